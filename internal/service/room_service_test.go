package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	apperrors "github.com/wfunc/mafia-game/internal/errors"
	"github.com/wfunc/mafia-game/internal/models"
)

func TestRoomService_CreateRoom_Validation(t *testing.T) {
	env := setupTestEnv(t, 1)
	ctx := context.Background()

	// 空名称
	_, err := env.room.CreateRoom(ctx, &CreateRoomRequest{
		Name:       "   ",
		MaxPlayers: 10,
		CreatorID:  env.users[0].ID,
	})
	assert.True(t, apperrors.Is(err, apperrors.ErrInvalidRoomName))

	// 人数上限越界
	_, err = env.room.CreateRoom(ctx, &CreateRoomRequest{
		Name:       "人数不对",
		MaxPlayers: 3,
		CreatorID:  env.users[0].ID,
	})
	assert.True(t, apperrors.Is(err, apperrors.ErrInvalidMaxPlayers))

	_, err = env.room.CreateRoom(ctx, &CreateRoomRequest{
		Name:       "人数不对",
		MaxPlayers: 21,
		CreatorID:  env.users[0].ID,
	})
	assert.True(t, apperrors.Is(err, apperrors.ErrInvalidMaxPlayers))
}

func TestRoomService_JoinRoom_NotFound(t *testing.T) {
	env := setupTestEnv(t, 1)
	ctx := context.Background()

	_, err := env.room.JoinRoom(ctx, &JoinRoomRequest{
		RoomID:      9999,
		UserID:      env.users[0].ID,
		DisplayName: "无处可去",
	})
	assert.True(t, apperrors.Is(err, apperrors.ErrRoomNotFound))
}

func TestRoomService_JoinRoom_PasswordGate(t *testing.T) {
	env := setupTestEnv(t, 2)
	ctx := context.Background()

	room, err := env.room.CreateRoom(ctx, &CreateRoomRequest{
		Name:       "密码房",
		Password:   "s3cret",
		MaxPlayers: 10,
		CreatorID:  env.users[0].ID,
	})
	require.NoError(t, err)

	// 密码错误
	_, err = env.room.JoinRoom(ctx, &JoinRoomRequest{
		RoomID:      room.ID,
		UserID:      env.users[1].ID,
		DisplayName: env.users[1].DisplayName(),
		Password:    "wrong",
	})
	assert.True(t, apperrors.Is(err, apperrors.ErrWrongPassword))

	// 密码正确
	resp, err := env.room.JoinRoom(ctx, &JoinRoomRequest{
		RoomID:      room.ID,
		UserID:      env.users[1].ID,
		DisplayName: env.users[1].DisplayName(),
		Password:    "s3cret",
	})
	require.NoError(t, err)
	assert.False(t, resp.IsCreator)
}

func TestRoomService_JoinRoom_CapacityAndRejoin(t *testing.T) {
	env := setupTestEnv(t, 5)
	ctx := context.Background()

	room, err := env.room.CreateRoom(ctx, &CreateRoomRequest{
		Name:       "小房",
		MaxPlayers: 4,
		CreatorID:  env.users[0].ID,
	})
	require.NoError(t, err)

	for i := 0; i < 4; i++ {
		_, err := env.room.JoinRoom(ctx, &JoinRoomRequest{
			RoomID:      room.ID,
			UserID:      env.users[i].ID,
			DisplayName: env.users[i].DisplayName(),
		})
		require.NoError(t, err)
	}

	// 满员后新玩家被拒绝
	_, err = env.room.JoinRoom(ctx, &JoinRoomRequest{
		RoomID:      room.ID,
		UserID:      env.users[4].ID,
		DisplayName: env.users[4].DisplayName(),
	})
	assert.True(t, apperrors.Is(err, apperrors.ErrRoomFull))

	// 已在房间内的玩家重复加入不受满员限制，等价于刷新心跳
	resp, err := env.room.JoinRoom(ctx, &JoinRoomRequest{
		RoomID:      room.ID,
		UserID:      env.users[0].ID,
		DisplayName: env.users[0].DisplayName(),
	})
	require.NoError(t, err)
	assert.True(t, resp.IsCreator)

	state, err := env.room.GetRoomState(ctx, room.ID)
	require.NoError(t, err)
	assert.Len(t, state.Players, 4)
}

func TestRoomService_LeaveRoom(t *testing.T) {
	env := setupTestEnv(t, 2)
	ctx := context.Background()
	room := env.createAndFillRoom(t, 2)

	require.NoError(t, env.room.LeaveRoom(ctx, room.ID, env.users[1].ID))
	// 重复离开不报错
	require.NoError(t, env.room.LeaveRoom(ctx, room.ID, env.users[1].ID))

	state, err := env.room.GetRoomState(ctx, room.ID)
	require.NoError(t, err)
	assert.Len(t, state.Players, 1)
	assert.Equal(t, env.users[0].ID, state.Players[0].UserID)
}

func TestRoomService_GetRoomState_WithChat(t *testing.T) {
	env := setupTestEnv(t, 2)
	ctx := context.Background()
	room := env.createAndFillRoom(t, 2)

	_, err := env.room.PostChat(ctx, room.ID, env.users[0].ID, env.users[0].DisplayName(), "大家好")
	require.NoError(t, err)
	_, err = env.room.PostChat(ctx, room.ID, env.users[1].ID, env.users[1].DisplayName(), "晚上好")
	require.NoError(t, err)

	// 不在房间的用户不能发言
	_, err = env.room.PostChat(ctx, room.ID, 9999, "路人", "我也说一句")
	assert.True(t, apperrors.Is(err, apperrors.ErrNotInRoom))

	state, err := env.room.GetRoomState(ctx, room.ID)
	require.NoError(t, err)
	assert.False(t, state.Started)
	assert.Nil(t, state.SessionID)
	require.Len(t, state.Chat, 2)
	assert.Equal(t, "大家好", state.Chat[0].Message)
	assert.Equal(t, "晚上好", state.Chat[1].Message)

	// 加入顺序保持稳定
	assert.Equal(t, env.users[0].ID, state.Players[0].UserID)
	assert.Equal(t, env.users[1].ID, state.Players[1].UserID)
}

func TestRoomService_ListRooms_SweepsStale(t *testing.T) {
	env := setupTestEnv(t, 2)
	ctx := context.Background()
	room := env.createAndFillRoom(t, 2)

	// 把一个玩家的心跳改成过期
	require.NoError(t, env.db.Model(&models.RoomPlayer{}).
		Where("room_id = ? AND user_id = ?", room.ID, env.users[1].ID).
		Update("last_seen", time.Now().Add(-time.Hour)).Error)

	summaries, err := env.room.ListRooms(ctx)
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	assert.Equal(t, 1, summaries[0].CurrentPlayers)
}

func TestRoomService_CloseRoom_CreatorOnly(t *testing.T) {
	env := setupTestEnv(t, 2)
	ctx := context.Background()
	room := env.createAndFillRoom(t, 2)

	err := env.room.CloseRoom(ctx, room.ID, env.users[1].ID)
	assert.True(t, apperrors.Is(err, apperrors.ErrNotRoomCreator))

	require.NoError(t, env.room.CloseRoom(ctx, room.ID, env.users[0].ID))

	// 关闭后无法再加入
	_, err = env.room.JoinRoom(ctx, &JoinRoomRequest{
		RoomID:      room.ID,
		UserID:      env.users[1].ID,
		DisplayName: env.users[1].DisplayName(),
	})
	assert.True(t, apperrors.Is(err, apperrors.ErrRoomClosed))
}
