package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	gorillaws "github.com/gorilla/websocket"
	"github.com/wfunc/mafia-game/internal/middleware"
	"github.com/wfunc/mafia-game/internal/service"
	"github.com/wfunc/mafia-game/internal/websocket"
	"go.uber.org/zap"
)

// WebSocketHandler 房间事件推送处理器
type WebSocketHandler struct {
	hub         *websocket.Hub
	roomService service.RoomService
	log         *zap.Logger
	upgrader    gorillaws.Upgrader
}

// NewWebSocketHandler 创建WebSocket处理器
func NewWebSocketHandler(hub *websocket.Hub, roomService service.RoomService, log *zap.Logger) *WebSocketHandler {
	return &WebSocketHandler{
		hub:         hub,
		roomService: roomService,
		log:         log,
		upgrader: gorillaws.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				// 客户端来源由JWT校验保证
				return true
			},
		},
	}
}

// RoomEvents 订阅房间事件
// @Summary 订阅房间事件
// @Description WebSocket升级接口，推送加入/离开/聊天/开局/阶段变化事件
// @Tags WebSocket
// @Security BearerAuth
// @Param id path int true "房间ID"
// @Router /ws/rooms/{id} [get]
func (h *WebSocketHandler) RoomEvents(c *gin.Context) {
	roomID, ok := parseRoomID(c)
	if !ok {
		return
	}
	userID, _ := middleware.GetUserID(c)

	// 先确认房间存在且用户有资格接收事件
	if _, err := h.roomService.GetRoomState(c.Request.Context(), roomID); err != nil {
		respondError(c, err)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error("WebSocket升级失败", zap.Error(err), zap.Uint("room_id", roomID))
		return
	}

	client := websocket.NewClient(h.hub, conn, userID, roomID)
	client.Register()

	go client.WritePump()
	go client.ReadPump()
}
