package api

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	apperrors "github.com/wfunc/mafia-game/internal/errors"
	"github.com/wfunc/mafia-game/internal/middleware"
	"github.com/wfunc/mafia-game/internal/service"
	"github.com/wfunc/mafia-game/internal/websocket"
)

// RoomHandler 房间处理器
type RoomHandler struct {
	roomService service.RoomService
	authService service.AuthService
	hub         *websocket.Hub
}

// NewRoomHandler 创建房间处理器
func NewRoomHandler(roomService service.RoomService, authService service.AuthService, hub *websocket.Hub) *RoomHandler {
	return &RoomHandler{
		roomService: roomService,
		authService: authService,
		hub:         hub,
	}
}

// parseRoomID 解析路径中的房间ID
func parseRoomID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		bindError(c, err)
		return 0, false
	}
	return uint(id), true
}

// displayName 取当前用户的展示名
func (h *RoomHandler) displayName(c *gin.Context, userID uint) string {
	user, err := h.authService.GetUser(c.Request.Context(), userID)
	if err != nil {
		return ""
	}
	return user.DisplayName()
}

// CreateRoom 创建房间
// @Summary 创建房间
// @Tags Room
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body service.CreateRoomRequest true "房间信息"
// @Success 200 {object} models.Room
// @Failure 400 {object} ErrorResponse
// @Router /api/v1/rooms [post]
func (h *RoomHandler) CreateRoom(c *gin.Context) {
	var req service.CreateRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	req.CreatorID, _ = middleware.GetUserID(c)

	room, err := h.roomService.CreateRoom(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, room)
}

// ListRooms 房间列表
// @Summary 房间列表
// @Description 返回等待中和游戏中的房间，密码只暴露是否设置
// @Tags Room
// @Produce json
// @Security BearerAuth
// @Success 200 {array} repository.RoomSummary
// @Router /api/v1/rooms [get]
func (h *RoomHandler) ListRooms(c *gin.Context) {
	rooms, err := h.roomService.ListRooms(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rooms)
}

// JoinRoom 加入房间
// @Summary 加入房间
// @Description 重复加入等价于刷新心跳
// @Tags Room
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "房间ID"
// @Param request body service.JoinRoomRequest false "加入参数"
// @Success 200 {object} service.JoinRoomResponse
// @Failure 404 {object} ErrorResponse
// @Router /api/v1/rooms/{id}/join [post]
func (h *RoomHandler) JoinRoom(c *gin.Context) {
	roomID, ok := parseRoomID(c)
	if !ok {
		return
	}

	// 请求体可省略（无密码房间）
	var req service.JoinRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		bindError(c, err)
		return
	}

	userID, _ := middleware.GetUserID(c)
	req.RoomID = roomID
	req.UserID = userID
	req.DisplayName = h.displayName(c, userID)

	resp, err := h.roomService.JoinRoom(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	h.hub.BroadcastToRoom(roomID, websocket.Event{
		Type:   websocket.EventPlayerJoined,
		RoomID: roomID,
		UserID: userID,
		Data:   gin.H{"user_name": req.DisplayName},
	})
	c.JSON(http.StatusOK, resp)
}

// LeaveRoom 离开房间
// @Summary 离开房间
// @Tags Room
// @Produce json
// @Security BearerAuth
// @Param id path int true "房间ID"
// @Success 200 {object} SuccessResponse
// @Router /api/v1/rooms/{id}/leave [post]
func (h *RoomHandler) LeaveRoom(c *gin.Context) {
	roomID, ok := parseRoomID(c)
	if !ok {
		return
	}
	userID, _ := middleware.GetUserID(c)

	if err := h.roomService.LeaveRoom(c.Request.Context(), roomID, userID); err != nil {
		respondError(c, err)
		return
	}

	h.hub.BroadcastToRoom(roomID, websocket.Event{
		Type:   websocket.EventPlayerLeft,
		RoomID: roomID,
		UserID: userID,
	})
	c.JSON(http.StatusOK, SuccessResponse{Message: "已离开房间"})
}

// Heartbeat 刷新心跳
// @Summary 刷新心跳
// @Tags Room
// @Produce json
// @Security BearerAuth
// @Param id path int true "房间ID"
// @Success 200 {object} SuccessResponse
// @Failure 400 {object} ErrorResponse
// @Router /api/v1/rooms/{id}/heartbeat [post]
func (h *RoomHandler) Heartbeat(c *gin.Context) {
	roomID, ok := parseRoomID(c)
	if !ok {
		return
	}
	userID, _ := middleware.GetUserID(c)

	if err := h.roomService.Heartbeat(c.Request.Context(), roomID, userID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, SuccessResponse{Message: "心跳已刷新"})
}

// GetRoomState 房间状态
// @Summary 房间状态
// @Description 返回成员列表、聊天记录、开局标记和会话ID
// @Tags Room
// @Produce json
// @Security BearerAuth
// @Param id path int true "房间ID"
// @Success 200 {object} service.RoomStateResponse
// @Failure 404 {object} ErrorResponse
// @Router /api/v1/rooms/{id}/state [get]
func (h *RoomHandler) GetRoomState(c *gin.Context) {
	roomID, ok := parseRoomID(c)
	if !ok {
		return
	}

	state, err := h.roomService.GetRoomState(c.Request.Context(), roomID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, state)
}

// chatRequest 聊天请求
type chatRequest struct {
	Message string `json:"message" binding:"required,max=500"`
}

// PostChat 发送聊天消息
// @Summary 发送聊天消息
// @Tags Room
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "房间ID"
// @Param request body chatRequest true "消息内容"
// @Success 200 {object} models.RoomChat
// @Failure 400 {object} ErrorResponse
// @Router /api/v1/rooms/{id}/chat [post]
func (h *RoomHandler) PostChat(c *gin.Context) {
	roomID, ok := parseRoomID(c)
	if !ok {
		return
	}

	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	userID, _ := middleware.GetUserID(c)
	name := h.displayName(c, userID)
	if name == "" {
		respondError(c, apperrors.New(apperrors.ErrNotFound, "用户不存在"))
		return
	}

	msg, err := h.roomService.PostChat(c.Request.Context(), roomID, userID, name, req.Message)
	if err != nil {
		respondError(c, err)
		return
	}

	h.hub.BroadcastToRoom(roomID, websocket.Event{
		Type:   websocket.EventChat,
		RoomID: roomID,
		UserID: userID,
		Data:   msg,
	})
	c.JSON(http.StatusOK, msg)
}

// CloseRoom 关闭房间
// @Summary 关闭房间
// @Description 仅房主可操作
// @Tags Room
// @Produce json
// @Security BearerAuth
// @Param id path int true "房间ID"
// @Success 200 {object} SuccessResponse
// @Failure 403 {object} ErrorResponse
// @Router /api/v1/rooms/{id} [delete]
func (h *RoomHandler) CloseRoom(c *gin.Context) {
	roomID, ok := parseRoomID(c)
	if !ok {
		return
	}
	userID, _ := middleware.GetUserID(c)

	if err := h.roomService.CloseRoom(c.Request.Context(), roomID, userID); err != nil {
		respondError(c, err)
		return
	}

	h.hub.BroadcastToRoom(roomID, websocket.Event{
		Type:   websocket.EventRoomClosed,
		RoomID: roomID,
	})
	c.JSON(http.StatusOK, SuccessResponse{Message: "房间已关闭"})
}
