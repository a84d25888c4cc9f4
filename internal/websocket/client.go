package websocket

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	// 写超时
	writeWait = 10 * time.Second

	// 读取pong超时
	pongWait = 60 * time.Second

	// ping发送周期（必须小于pongWait）
	pingPeriod = (pongWait * 9) / 10

	// 最大消息大小
	maxMessageSize = 4 * 1024
)

// Client WebSocket客户端
type Client struct {
	ID     string
	UserID uint
	RoomID uint
	Hub    *Hub
	Conn   *websocket.Conn
	Send   chan []byte

	mu     sync.Mutex
	closed bool
}

// inbound 客户端上行消息，连接只用于接收事件推送
type inbound struct {
	Type string `json:"type"`
}

// NewClient 创建新客户端
func NewClient(hub *Hub, conn *websocket.Conn, userID, roomID uint) *Client {
	return &Client{
		ID:     uuid.New().String(),
		UserID: userID,
		RoomID: roomID,
		Hub:    hub,
		Conn:   conn,
		Send:   make(chan []byte, 64),
	}
}

// Register 注册到Hub
func (c *Client) Register() {
	c.Hub.register <- c
}

// trySend 非阻塞投递
// 注销后Send通道已关闭，closed标记保证迟到的发送方不会写入关闭的通道；
// 返回false表示缓冲区已满或连接已注销。
func (c *Client) trySend(payload []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.Send <- payload:
		return true
	default:
		return false
	}
}

// closeSend 标记注销并关闭发送通道，只能由Hub调用一次
func (c *Client) closeSend() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.Send)
	}
}

// SendEvent 向该客户端发送单个事件
func (c *Client) SendEvent(event Event) {
	event.Timestamp = time.Now().Unix()
	payload, err := json.Marshal(event)
	if err != nil {
		return
	}
	c.trySend(payload)
}

// ReadPump 读取消息
// 上行只做格式校验，聊天和游戏操作一律走HTTP接口保证事务性
func (c *Client) ReadPump() {
	defer func() {
		c.Hub.unregister <- c
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.Hub.logger.Error("WebSocket读取错误",
					zap.String("client_id", c.ID),
					zap.Error(err))
			}
			break
		}

		var msg inbound
		if err := json.Unmarshal(message, &msg); err != nil {
			c.SendEvent(Event{Type: EventError, RoomID: c.RoomID})
			continue
		}
	}
}

// WritePump 写入消息
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
