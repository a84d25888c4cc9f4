package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/wfunc/mafia-game/internal/middleware"
	"github.com/wfunc/mafia-game/internal/service"
	"github.com/wfunc/mafia-game/internal/websocket"
)

// GameHandler 游戏处理器
type GameHandler struct {
	gameService service.GameService
	hub         *websocket.Hub
}

// NewGameHandler 创建游戏处理器
func NewGameHandler(gameService service.GameService, hub *websocket.Hub) *GameHandler {
	return &GameHandler{
		gameService: gameService,
		hub:         hub,
	}
}

// parseSessionID 解析路径中的会话ID
func parseSessionID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		bindError(c, err)
		return 0, false
	}
	return uint(id), true
}

// StartGame 开始游戏
// @Summary 开始游戏
// @Description 仅房主可操作；发牌并创建会话，返回会话ID
// @Tags Game
// @Produce json
// @Security BearerAuth
// @Param id path int true "房间ID"
// @Success 200 {object} map[string]uint
// @Failure 400 {object} ErrorResponse
// @Router /api/v1/rooms/{id}/start [post]
func (h *GameHandler) StartGame(c *gin.Context) {
	roomID, ok := parseRoomID(c)
	if !ok {
		return
	}
	userID, _ := middleware.GetUserID(c)

	sessionID, err := h.gameService.StartGame(c.Request.Context(), roomID, userID)
	if err != nil {
		respondError(c, err)
		return
	}

	h.hub.BroadcastToRoom(roomID, websocket.Event{
		Type:   websocket.EventGameStarted,
		RoomID: roomID,
		Data:   gin.H{"session_id": sessionID},
	})
	c.JSON(http.StatusOK, gin.H{"session_id": sessionID})
}

// voteRequest 投票请求
type voteRequest struct {
	TargetID uint `json:"target_id" binding:"required"`
}

// CastVote 投票
// @Summary 投票
// @Description 夜晚为行动角色的目标选择，投票阶段为处决表决；重投替换旧票
// @Tags Game
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "会话ID"
// @Param request body voteRequest true "投票目标"
// @Success 200 {object} SuccessResponse
// @Failure 400 {object} ErrorResponse
// @Router /api/v1/sessions/{id}/vote [post]
func (h *GameHandler) CastVote(c *gin.Context) {
	sessionID, ok := parseSessionID(c)
	if !ok {
		return
	}

	var req voteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	userID, _ := middleware.GetUserID(c)
	if err := h.gameService.CastVote(c.Request.Context(), sessionID, userID, req.TargetID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, SuccessResponse{Message: "投票成功"})
}

// GetTally 当前阶段计票
// @Summary 当前阶段计票
// @Tags Game
// @Produce json
// @Security BearerAuth
// @Param id path int true "会话ID"
// @Success 200 {object} map[uint]int
// @Failure 404 {object} ErrorResponse
// @Router /api/v1/sessions/{id}/tally [get]
func (h *GameHandler) GetTally(c *gin.Context) {
	sessionID, ok := parseSessionID(c)
	if !ok {
		return
	}

	tally, err := h.gameService.GetTally(c.Request.Context(), sessionID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, tally)
}

// AdvancePhase 推进阶段
// @Summary 推进阶段
// @Description 结算被离开阶段的淘汰并判定胜负
// @Tags Game
// @Produce json
// @Security BearerAuth
// @Param id path int true "会话ID"
// @Success 200 {object} service.PhaseResult
// @Failure 400 {object} ErrorResponse
// @Router /api/v1/sessions/{id}/advance [post]
func (h *GameHandler) AdvancePhase(c *gin.Context) {
	sessionID, ok := parseSessionID(c)
	if !ok {
		return
	}

	result, err := h.gameService.AdvancePhase(c.Request.Context(), sessionID)
	if err != nil {
		respondError(c, err)
		return
	}

	// 阶段变化通过所在房间广播
	state, stateErr := h.gameService.GetGameState(c.Request.Context(), sessionID, 0)
	if stateErr == nil {
		h.hub.BroadcastToRoom(state.RoomID, websocket.Event{
			Type:   websocket.EventPhaseChanged,
			RoomID: state.RoomID,
			Data:   result,
		})
	}
	c.JSON(http.StatusOK, result)
}

// GetGameState 对局状态
// @Summary 对局状态
// @Description 角色只对本人可见，其他玩家显示unknown
// @Tags Game
// @Produce json
// @Security BearerAuth
// @Param id path int true "会话ID"
// @Success 200 {object} service.GameStateResponse
// @Failure 404 {object} ErrorResponse
// @Router /api/v1/sessions/{id}/state [get]
func (h *GameHandler) GetGameState(c *gin.Context) {
	sessionID, ok := parseSessionID(c)
	if !ok {
		return
	}
	userID, _ := middleware.GetUserID(c)

	state, err := h.gameService.GetGameState(c.Request.Context(), sessionID, userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, state)
}
