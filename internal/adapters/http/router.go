// Package http exposes the ops surface: health, room listing, and the
// websocket chat endpoint.
package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/parlorchat/parlor/internal/adapters/ws"
	"github.com/parlorchat/parlor/internal/config"
	"github.com/parlorchat/parlor/internal/core"
)

// clientTokenCookie carries the per-browser token across visits.
const clientTokenCookie = "parlor_ct"

// ClientTokenMiddleware tags every browser with a stable token; websocket
// sessions reuse it as their session ID.
func ClientTokenMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, _ := c.Cookie(clientTokenCookie)
		if token == "" {
			token = uuid.NewString()
			c.SetCookie(clientTokenCookie, token, 3600*24*7, "/", "", false, true)
		}
		c.Set("client_token", token)
		c.Next()
	}
}

func SetupRouter(cfg *config.Config, registry *core.Registry) *gin.Engine {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())
	r.Use(ClientTokenMiddleware())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api")
	api.GET("/rooms", func(c *gin.Context) {
		c.JSON(http.StatusOK, registry.List())
	})

	ctl := ws.NewController(registry, cfg.SendBuffer, cfg.ReadLimit)
	api.GET("/ws/chat", ctl.HandleChat)

	log.Info().Str("module", "adapters.http").Msg("router setup")
	return r
}
