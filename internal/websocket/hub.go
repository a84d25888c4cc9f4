package websocket

import (
	"encoding/json"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Hub WebSocket连接管理中心
// 只持有"哪些连接在哪个房间"的路由状态，权威游戏状态一律在数据库；
// 多实例部署时每个实例只负责自己持有的连接。
type Hub struct {
	// 客户端连接池
	clients   map[string]*Client
	clientsMu sync.RWMutex

	// 房间到客户端的映射
	roomClients map[uint]map[*Client]bool
	roomMu      sync.RWMutex

	broadcast  chan *envelope
	register   chan *Client
	unregister chan *Client

	logger *zap.Logger
}

// envelope 广播封包
type envelope struct {
	roomID  uint
	payload []byte
}

// Event 房间事件
type Event struct {
	Type      string      `json:"type"`
	RoomID    uint        `json:"room_id"`
	UserID    uint        `json:"user_id,omitempty"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp int64       `json:"timestamp"`
}

// 事件类型
const (
	// 系统事件
	EventConnected = "connected"
	EventError     = "error"

	// 房间事件
	EventPlayerJoined = "player_joined"
	EventPlayerLeft   = "player_left"
	EventChat         = "chat"
	EventRoomClosed   = "room_closed"

	// 对局事件
	EventGameStarted  = "game_started"
	EventPhaseChanged = "phase_changed"
)

// NewHub 创建Hub
func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		clients:     make(map[string]*Client),
		roomClients: make(map[uint]map[*Client]bool),
		broadcast:   make(chan *envelope, 256),
		register:    make(chan *Client),
		unregister:  make(chan *Client),
		logger:      logger,
	}
}

// Run 运行Hub事件循环
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case env := <-h.broadcast:
			h.deliver(env)
		}
	}
}

// registerClient 注册客户端并加入房间索引
func (h *Hub) registerClient(client *Client) {
	h.clientsMu.Lock()
	h.clients[client.ID] = client
	h.clientsMu.Unlock()

	h.roomMu.Lock()
	if h.roomClients[client.RoomID] == nil {
		h.roomClients[client.RoomID] = make(map[*Client]bool)
	}
	h.roomClients[client.RoomID][client] = true
	h.roomMu.Unlock()

	h.logger.Debug("WebSocket客户端已连接",
		zap.String("client_id", client.ID),
		zap.Uint("user_id", client.UserID),
		zap.Uint("room_id", client.RoomID),
	)

	client.SendEvent(Event{
		Type:   EventConnected,
		RoomID: client.RoomID,
		UserID: client.UserID,
	})
}

// unregisterClient 注销客户端
func (h *Hub) unregisterClient(client *Client) {
	h.clientsMu.Lock()
	if _, ok := h.clients[client.ID]; ok {
		delete(h.clients, client.ID)
		client.closeSend()
	}
	h.clientsMu.Unlock()

	h.roomMu.Lock()
	if room := h.roomClients[client.RoomID]; room != nil {
		delete(room, client)
		if len(room) == 0 {
			delete(h.roomClients, client.RoomID)
		}
	}
	h.roomMu.Unlock()

	h.logger.Debug("WebSocket客户端已断开",
		zap.String("client_id", client.ID),
		zap.Uint("user_id", client.UserID),
	)
}

// deliver 把封包投递到房间内所有连接
func (h *Hub) deliver(env *envelope) {
	h.roomMu.RLock()
	room := h.roomClients[env.roomID]
	clients := make([]*Client, 0, len(room))
	for c := range room {
		clients = append(clients, c)
	}
	h.roomMu.RUnlock()

	for _, c := range clients {
		if !c.trySend(env.payload) {
			// 发送缓冲区满，视为失联
			h.logger.Warn("发送缓冲区已满，断开客户端",
				zap.String("client_id", c.ID))
			go func(cl *Client) { h.unregister <- cl }(c)
		}
	}
}

// BroadcastToRoom 向房间内所有连接广播事件
func (h *Hub) BroadcastToRoom(roomID uint, event Event) {
	event.RoomID = roomID
	event.Timestamp = time.Now().Unix()

	payload, err := json.Marshal(event)
	if err != nil {
		h.logger.Error("事件序列化失败", zap.Error(err), zap.String("type", event.Type))
		return
	}

	select {
	case h.broadcast <- &envelope{roomID: roomID, payload: payload}:
	default:
		h.logger.Warn("广播队列已满，丢弃事件",
			zap.Uint("room_id", roomID),
			zap.String("type", event.Type))
	}
}

// RoomConnectionCount 房间当前连接数
func (h *Hub) RoomConnectionCount(roomID uint) int {
	h.roomMu.RLock()
	defer h.roomMu.RUnlock()
	return len(h.roomClients[roomID])
}
