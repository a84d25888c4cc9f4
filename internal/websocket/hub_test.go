package websocket

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestHubRegisterUnregister(t *testing.T) {
	hub := NewHub(zap.NewNop())
	client := NewClient(hub, nil, 1, 10)

	hub.registerClient(client)
	assert.Equal(t, 1, hub.RoomConnectionCount(10))

	hub.unregisterClient(client)
	assert.Equal(t, 0, hub.RoomConnectionCount(10))
}

func TestSendEventAfterEviction(t *testing.T) {
	hub := NewHub(zap.NewNop())
	client := NewClient(hub, nil, 1, 10)

	hub.registerClient(client)
	hub.unregisterClient(client)

	// 注销后迟到的发送不能触碰已关闭的通道
	assert.NotPanics(t, func() {
		client.SendEvent(Event{Type: EventError, RoomID: 10})
	})
	assert.False(t, client.trySend([]byte("late")))
}

func TestCloseSendIdempotent(t *testing.T) {
	hub := NewHub(zap.NewNop())
	client := NewClient(hub, nil, 1, 10)

	assert.NotPanics(t, func() {
		client.closeSend()
		client.closeSend()
	})
}

func TestTrySendFullBuffer(t *testing.T) {
	hub := NewHub(zap.NewNop())
	client := NewClient(hub, nil, 1, 10)

	for i := 0; i < cap(client.Send); i++ {
		require.True(t, client.trySend([]byte("x")))
	}
	assert.False(t, client.trySend([]byte("overflow")))
}

func TestDeliverEvictsSlowClient(t *testing.T) {
	hub := NewHub(zap.NewNop())
	slow := NewClient(hub, nil, 1, 10)
	hub.registerClient(slow)

	// 填满发送缓冲区模拟失联客户端
	for slow.trySend([]byte("x")) {
	}

	hub.deliver(&envelope{roomID: 10, payload: []byte("y")})

	// 投递失败的客户端被送回注销队列
	evicted := <-hub.unregister
	assert.Equal(t, slow.ID, evicted.ID)
	hub.unregisterClient(evicted)
	assert.Equal(t, 0, hub.RoomConnectionCount(10))

	// 注销后再次投递与单发都不会panic
	assert.NotPanics(t, func() {
		hub.deliver(&envelope{roomID: 10, payload: []byte("z")})
		slow.SendEvent(Event{Type: EventChat, RoomID: 10})
	})
}
