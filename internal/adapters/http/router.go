// Package http exposes the signaling endpoint and a small room admin API.
package http

import (
	"context"
	"net/http"

	"github.com/dkeye/Rundown/internal/adapters/signal"
	"github.com/dkeye/Rundown/internal/app/orch"
	"github.com/dkeye/Rundown/internal/config"
	"github.com/dkeye/Rundown/internal/domain"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

const clientTokenCookie = "ct"

func genClientToken() string {
	return uuid.NewString()
}

// ClientTokenMiddleware identifies a browser or client process across
// reconnects. The token becomes the session id of its signaling connection.
func ClientTokenMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, _ := c.Cookie(clientTokenCookie)
		if token == "" {
			token = genClientToken()
			c.SetCookie(clientTokenCookie, token, 3600*24*7, "/", "", false, true)
		}
		c.Set("client_token", token)
		c.Next()
	}
}

func SetupRouter(ctx context.Context, cfg *config.Config, o *orch.Orchestrator) *gin.Engine {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())

	store := cookie.NewStore([]byte(cfg.Secret))
	r.Use(sessions.Sessions("RundownSessions", store))
	r.Use(ClientTokenMiddleware())

	if cfg.StaticPath != "" {
		r.Static("/static", cfg.StaticPath)
	}

	log.Info().Str("module", "adapters.http").Str("static", cfg.StaticPath).Msg("router setup")

	r.GET("/healthz", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	ctrl := signal.NewSignalWSController(o, signal.Options{
		RoomTokens:      cfg.RoomTokens,
		ICEServers:      cfg.ICEServers,
		ReadLimit:       cfg.ReadLimit,
		PingPeriod:      cfg.PingPeriod,
		MessageLimit:    cfg.MessageLimit,
		MessageInterval: cfg.MessageInterval,
	})
	rooms := &roomHandlers{orch: o}

	api := r.Group("/api")
	api.GET("/ws/signal", func(c *gin.Context) {
		log.Info().Str("module", "adapters.http").Str("sid", c.GetString("client_token")).Msg("ws signal endpoint hit")
		ctrl.HandleSignal(ctx, c)
	})
	api.GET("/rooms", rooms.list)
	api.GET("/rooms/:name", rooms.get)
	api.GET("/rooms/:name/members", rooms.members)
	api.GET("/rooms/:name/recording", rooms.recording)
	api.DELETE("/rooms/:name", rooms.evict)

	return r
}

type roomHandlers struct {
	orch *orch.Orchestrator
}

func (h *roomHandlers) list(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"rooms": h.orch.Rooms.List()})
}

func (h *roomHandlers) get(c *gin.Context) {
	room, ok := h.orch.Rooms.Get(domain.RoomName(c.Param("name")))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "room not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"id":           room.Room().ID,
		"name":         room.Room().Name,
		"client_count": room.MemberCount(),
		"recording":    room.Recording(),
	})
}

func (h *roomHandlers) members(c *gin.Context) {
	room, ok := h.orch.Rooms.Get(domain.RoomName(c.Param("name")))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "room not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"participants": room.Participants()})
}

func (h *roomHandlers) recording(c *gin.Context) {
	rec, ok := h.orch.Recording(domain.RoomName(c.Param("name")))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "room not found"})
		return
	}
	c.JSON(http.StatusOK, rec)
}

func (h *roomHandlers) evict(c *gin.Context) {
	name := domain.RoomName(c.Param("name"))
	if !h.orch.EvictRoom(name) {
		c.JSON(http.StatusNotFound, gin.H{"error": "room not found"})
		return
	}
	log.Info().Str("module", "adapters.http").Str("room", string(name)).Msg("room evicted via api")
	c.Status(http.StatusNoContent)
}
