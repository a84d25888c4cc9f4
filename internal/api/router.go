package api

import (
	"github.com/gin-gonic/gin"
	"github.com/wfunc/mafia-game/internal/config"
	"github.com/wfunc/mafia-game/internal/middleware"
	"github.com/wfunc/mafia-game/internal/service"
	"github.com/wfunc/mafia-game/internal/websocket"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Router API路由器
type Router struct {
	engine         *gin.Engine
	db             *gorm.DB
	services       *service.Services
	hub            *websocket.Hub
	authHandler    *AuthHandler
	roomHandler    *RoomHandler
	gameHandler    *GameHandler
	wsHandler      *WebSocketHandler
	authMiddleware *middleware.AuthMiddleware
	log            *zap.Logger
}

// NewRouter 创建路由器
func NewRouter(db *gorm.DB, cfg *config.Config, log *zap.Logger) *Router {
	engine := gin.New()

	// 全局中间件
	engine.Use(middleware.Recovery())
	engine.Use(middleware.RequestLogger())

	// 创建服务
	services := service.NewServices(db, cfg, log)

	// 事件推送中心
	hub := websocket.NewHub(log)
	go hub.Run()

	// 创建处理器
	authHandler := NewAuthHandler(services.Auth)
	roomHandler := NewRoomHandler(services.Room, services.Auth, hub)
	gameHandler := NewGameHandler(services.Game, hub)
	wsHandler := NewWebSocketHandler(hub, services.Room, log)

	authMiddleware := middleware.NewAuthMiddleware(services.Auth)

	router := &Router{
		engine:         engine,
		db:             db,
		services:       services,
		hub:            hub,
		authHandler:    authHandler,
		roomHandler:    roomHandler,
		gameHandler:    gameHandler,
		wsHandler:      wsHandler,
		authMiddleware: authMiddleware,
		log:            log,
	}

	router.setupRoutes()
	return router
}

// setupRoutes 设置路由
func (r *Router) setupRoutes() {
	// 健康检查
	r.engine.GET("/health", r.healthCheck)

	// API文档
	registerOpenAPIRoutes(r.engine)
	registerSwaggerRoutes(r.engine)

	v1 := r.engine.Group("/api/v1")
	{
		// 认证相关路由（不需要认证）
		auth := v1.Group("/auth")
		{
			auth.POST("/register", r.authHandler.Register)
			auth.POST("/login", r.authHandler.Login)

			authRequired := auth.Group("")
			authRequired.Use(r.authMiddleware.RequireAuth())
			{
				authRequired.GET("/profile", r.authHandler.GetProfile)
			}
		}

		// 房间相关路由（需要认证）
		rooms := v1.Group("/rooms")
		rooms.Use(r.authMiddleware.RequireAuth())
		{
			rooms.POST("", r.roomHandler.CreateRoom)
			rooms.GET("", r.roomHandler.ListRooms)
			rooms.POST("/:id/join", r.roomHandler.JoinRoom)
			rooms.POST("/:id/leave", r.roomHandler.LeaveRoom)
			rooms.POST("/:id/heartbeat", r.roomHandler.Heartbeat)
			rooms.GET("/:id/state", r.roomHandler.GetRoomState)
			rooms.POST("/:id/chat", r.roomHandler.PostChat)
			rooms.DELETE("/:id", r.roomHandler.CloseRoom)
			rooms.POST("/:id/start", r.gameHandler.StartGame)
		}

		// 对局相关路由（需要认证）
		sessions := v1.Group("/sessions")
		sessions.Use(r.authMiddleware.RequireAuth())
		{
			sessions.POST("/:id/vote", r.gameHandler.CastVote)
			sessions.GET("/:id/tally", r.gameHandler.GetTally)
			sessions.POST("/:id/advance", r.gameHandler.AdvancePhase)
			sessions.GET("/:id/state", r.gameHandler.GetGameState)
		}
	}

	// WebSocket路由
	ws := r.engine.Group("/ws")
	ws.Use(r.authMiddleware.RequireAuth())
	{
		ws.GET("/rooms/:id", r.wsHandler.RoomEvents)
	}

	// 404处理
	r.engine.NoRoute(func(c *gin.Context) {
		c.JSON(404, gin.H{
			"code":    "NOT_FOUND",
			"message": "接口不存在",
		})
	})
}

// healthCheck 健康检查
func (r *Router) healthCheck(c *gin.Context) {
	sqlDB, err := r.db.DB()
	if err != nil {
		c.JSON(500, gin.H{
			"status":  "unhealthy",
			"message": "数据库连接失败",
		})
		return
	}

	if err := sqlDB.Ping(); err != nil {
		c.JSON(500, gin.H{
			"status":  "unhealthy",
			"message": "数据库ping失败",
		})
		return
	}

	c.JSON(200, gin.H{
		"status":  "healthy",
		"message": "服务运行正常",
	})
}

// Run 运行服务器
func (r *Router) Run(addr string) error {
	r.log.Info("Starting API server", zap.String("address", addr))
	return r.engine.Run(addr)
}

// GetEngine 获取Gin引擎（用于测试）
func (r *Router) GetEngine() *gin.Engine {
	return r.engine
}
