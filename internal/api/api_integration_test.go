package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wfunc/mafia-game/internal/config"
	"github.com/wfunc/mafia-game/internal/repository"
	"go.uber.org/zap"
)

// setupTestRouter 构造带内存数据库的完整路由
func setupTestRouter(t *testing.T) *gin.Engine {
	gin.SetMode(gin.TestMode)

	db := repository.SetupTestDB(t)
	cfg := &config.Config{}
	cfg.Server.Mode = gin.TestMode
	cfg.Game.PresenceTTL = 30 * time.Second
	cfg.Game.MinPlayers = 4
	cfg.Game.MaxPlayers = 20
	cfg.Game.ChatHistoryLimit = 50
	cfg.Security.JWT.Secret = "integration-test-secret"
	cfg.Security.JWT.ExpireHours = 1
	cfg.Security.JWT.RefreshHours = 24

	router := NewRouter(db, cfg, zap.NewNop())
	return router.GetEngine()
}

// doRequest 发送JSON请求
func doRequest(engine *gin.Engine, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	var buf *bytes.Buffer
	if body != nil {
		data, _ := json.Marshal(body)
		buf = bytes.NewBuffer(data)
	} else {
		buf = bytes.NewBuffer(nil)
	}

	req := httptest.NewRequest(method, path, buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

// registerUser 注册并返回访问令牌
func registerUser(t *testing.T, engine *gin.Engine, username string) string {
	w := doRequest(engine, "POST", "/api/v1/auth/register", "", gin.H{
		"username": username,
		"password": "password123",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp struct {
		AccessToken string `json:"access_token"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.AccessToken)
	return resp.AccessToken
}

func TestHealthCheck(t *testing.T) {
	engine := setupTestRouter(t)

	w := doRequest(engine, "GET", "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "healthy", resp["status"])
}

func TestAuthFlow(t *testing.T) {
	engine := setupTestRouter(t)

	// 注册
	token := registerUser(t, engine, "integrator")

	// 重复注册
	w := doRequest(engine, "POST", "/api/v1/auth/register", "", gin.H{
		"username": "integrator",
		"password": "password123",
	})
	assert.Equal(t, http.StatusConflict, w.Code)

	// 密码太短被参数校验拦截
	w = doRequest(engine, "POST", "/api/v1/auth/register", "", gin.H{
		"username": "shortpw",
		"password": "123",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// 登录
	w = doRequest(engine, "POST", "/api/v1/auth/login", "", gin.H{
		"username": "integrator",
		"password": "password123",
	})
	assert.Equal(t, http.StatusOK, w.Code)

	// 错误密码
	w = doRequest(engine, "POST", "/api/v1/auth/login", "", gin.H{
		"username": "integrator",
		"password": "wrong-password",
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// 带令牌获取资料
	w = doRequest(engine, "GET", "/api/v1/auth/profile", token, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	var profile map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &profile))
	assert.Equal(t, "integrator", profile["username"])

	// 无令牌访问受保护接口
	w = doRequest(engine, "GET", "/api/v1/auth/profile", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRoomLifecycleOverHTTP(t *testing.T) {
	engine := setupTestRouter(t)

	creator := registerUser(t, engine, "housemaster")
	guest := registerUser(t, engine, "guest")

	// 未认证创建房间
	w := doRequest(engine, "POST", "/api/v1/rooms", "", gin.H{
		"name": "nope", "max_players": 8,
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// 创建带密码的房间
	w = doRequest(engine, "POST", "/api/v1/rooms", creator, gin.H{
		"name":        "晚间场",
		"password":    "s3cret",
		"max_players": 8,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var room struct {
		ID uint `json:"id"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &room))
	require.NotZero(t, room.ID)

	// 房间列表只暴露是否设置密码
	w = doRequest(engine, "GET", "/api/v1/rooms", guest, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var rooms []struct {
		ID          uint   `json:"id"`
		Name        string `json:"name"`
		HasPassword bool   `json:"has_password"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &rooms))
	require.Len(t, rooms, 1)
	assert.True(t, rooms[0].HasPassword)
	assert.NotContains(t, w.Body.String(), "s3cret")

	roomPath := fmt.Sprintf("/api/v1/rooms/%d", room.ID)

	// 密码错误
	w = doRequest(engine, "POST", roomPath+"/join", guest, gin.H{"password": "wrong"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// 正确密码加入
	w = doRequest(engine, "POST", roomPath+"/join", guest, gin.H{"password": "s3cret"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	// 房主加入自己的房间
	w = doRequest(engine, "POST", roomPath+"/join", creator, gin.H{"password": "s3cret"})
	require.Equal(t, http.StatusOK, w.Code)

	var joinResp struct {
		IsCreator bool `json:"is_creator"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &joinResp))
	assert.True(t, joinResp.IsCreator)

	// 心跳
	w = doRequest(engine, "POST", roomPath+"/heartbeat", guest, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	// 聊天
	w = doRequest(engine, "POST", roomPath+"/chat", guest, gin.H{"message": "大家好"})
	assert.Equal(t, http.StatusOK, w.Code)

	// 房间状态
	w = doRequest(engine, "GET", roomPath+"/state", creator, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var state struct {
		Players []struct {
			UserID uint `json:"user_id"`
		} `json:"players"`
		Chat    []struct{ Message string } `json:"chat"`
		Started bool                       `json:"started"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &state))
	assert.Len(t, state.Players, 2)
	assert.Len(t, state.Chat, 1)
	assert.False(t, state.Started)

	// 非房主关闭房间
	w = doRequest(engine, "DELETE", roomPath, guest, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	// 房主关闭
	w = doRequest(engine, "DELETE", roomPath, creator, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	// 已关闭的房间无法加入
	w = doRequest(engine, "POST", roomPath+"/join", guest, gin.H{"password": "s3cret"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGameFlowOverHTTP(t *testing.T) {
	engine := setupTestRouter(t)

	tokens := make([]string, 4)
	for i := range tokens {
		tokens[i] = registerUser(t, engine, fmt.Sprintf("seat%d", i+1))
	}
	creator := tokens[0]

	// 创建并集合4人
	w := doRequest(engine, "POST", "/api/v1/rooms", creator, gin.H{
		"name": "四人局", "max_players": 8,
	})
	require.Equal(t, http.StatusOK, w.Code)

	var room struct {
		ID uint `json:"id"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &room))
	roomPath := fmt.Sprintf("/api/v1/rooms/%d", room.ID)

	for _, token := range tokens {
		w = doRequest(engine, "POST", roomPath+"/join", token, nil)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	}

	// 非房主无法开局
	w = doRequest(engine, "POST", roomPath+"/start", tokens[1], nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	// 房主开局
	w = doRequest(engine, "POST", roomPath+"/start", creator, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var started struct {
		SessionID uint `json:"session_id"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &started))
	require.NotZero(t, started.SessionID)

	// 重复开局
	w = doRequest(engine, "POST", roomPath+"/start", creator, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	sessionPath := fmt.Sprintf("/api/v1/sessions/%d", started.SessionID)

	// 对局状态：夜晚第1天，角色只对本人可见
	w = doRequest(engine, "GET", sessionPath+"/state", tokens[1], nil)
	require.Equal(t, http.StatusOK, w.Code)

	var game struct {
		Phase     string `json:"phase"`
		DayNumber int    `json:"day_number"`
		MyRole    string `json:"my_role"`
		Players   []struct {
			UserID uint   `json:"user_id"`
			Role   string `json:"role"`
		} `json:"players"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &game))
	assert.Equal(t, "night", game.Phase)
	assert.Equal(t, 1, game.DayNumber)
	assert.NotEqual(t, "unknown", game.MyRole)
	require.Len(t, game.Players, 4)

	hidden := 0
	for _, p := range game.Players {
		if p.Role == "unknown" {
			hidden++
		}
	}
	assert.Equal(t, 3, hidden, "只有请求者自己的角色可见")

	// 推进到白天再到投票阶段
	w = doRequest(engine, "POST", sessionPath+"/advance", creator, nil)
	require.Equal(t, http.StatusOK, w.Code)
	w = doRequest(engine, "POST", sessionPath+"/advance", creator, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var phase struct {
		Phase string `json:"phase"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &phase))
	assert.Equal(t, "vote", phase.Phase)

	// 投票阶段全员可投，目标取在场玩家
	w = doRequest(engine, "GET", sessionPath+"/state", tokens[0], nil)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &game))
	target := game.Players[0].UserID

	w = doRequest(engine, "POST", sessionPath+"/vote", tokens[1], gin.H{"target_id": target})
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())

	// 计票
	w = doRequest(engine, "GET", sessionPath+"/tally", tokens[1], nil)
	require.Equal(t, http.StatusOK, w.Code)

	var tally map[string]int
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &tally))
	assert.Equal(t, 1, tally[fmt.Sprintf("%d", target)])

	// 非法路径参数
	w = doRequest(engine, "GET", "/api/v1/sessions/abc/state", tokens[0], nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// 不存在的会话
	w = doRequest(engine, "GET", "/api/v1/sessions/9999/state", tokens[0], nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
