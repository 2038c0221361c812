package http

import (
	stdhttp "net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/sessionly/liveroom-server/internal/auth"
	"github.com/sessionly/liveroom-server/internal/config"
	"github.com/sessionly/liveroom-server/internal/core"
	"github.com/sessionly/liveroom-server/internal/store"
)

// NewServer builds the HTTP server: health, the WebSocket endpoint and the
// REST surface for chat history, rooms and notification publishing.
func NewServer(hub *core.Hub, st store.Store, cfg config.Config, logger *zerolog.Logger) *stdhttp.Server {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), LoggerMiddleware(logger))

	router.GET("/health", healthHandler)
	router.GET("/ws", gin.WrapH(NewWSHandler(hub, cfg, logger)))

	var jwtCfg *auth.JWTConfig
	if cfg.JWTSecret != "" {
		jwtCfg = &auth.JWTConfig{
			Secret:   []byte(cfg.JWTSecret),
			Issuer:   cfg.JWTIssuer,
			Audience: cfg.JWTAudience,
		}
	}

	api := router.Group("/api")
	if jwtCfg != nil {
		api.Use(AuthMiddleware(jwtCfg, logger))
	}

	rooms := NewRoomHandlers(st, logger)
	api.POST("/rooms", rooms.CreateRoom)
	api.POST("/rooms/:id/enrollments", rooms.Enroll)
	api.GET("/rooms/:id/messages", rooms.ListMessages)
	api.GET("/sessions/:id/attendees", rooms.ListAttendees)

	notifications := NewNotificationHandlers(hub, logger)
	api.POST("/notifications", notifications.Publish)

	return &stdhttp.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
}

func healthHandler(c *gin.Context) {
	c.String(stdhttp.StatusOK, "ok")
}
