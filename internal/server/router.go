package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"puppet-server/internal/auth"
	"puppet-server/internal/gateway"
	"puppet-server/internal/handler"
	"puppet-server/internal/hub"
	"puppet-server/internal/middleware"
	"puppet-server/internal/relay"
)

type Deps struct {
	Relay       *relay.Service
	Gateway     *gateway.Gateway
	Hub         *hub.Hub
	TokenConfig auth.TokenConfig
	Logger      logrus.FieldLogger

	// Optional; defaults are created when nil.
	RegisterLimiter   *middleware.RateLimiter
	CompletionLimiter *middleware.RateLimiter
}

func NewRouter(deps Deps) *gin.Engine {
	log := deps.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}
	registerLimiter := deps.RegisterLimiter
	if registerLimiter == nil {
		registerLimiter = middleware.NewRateLimiter(10, time.Minute)
	}
	completionLimiter := deps.CompletionLimiter
	if completionLimiter == nil {
		completionLimiter = middleware.NewRateLimiter(60, time.Minute)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger(log.WithField("component", "http")))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	registry := &handler.RegistryHandler{Relay: deps.Relay}
	r.POST("/register", middleware.RateLimitMiddleware(registerLimiter), registry.Register)
	r.POST("/user_details", registry.UserDetails)

	completion := &handler.CompletionHandler{Gateway: deps.Gateway}
	r.POST("/assist", middleware.RateLimitMiddleware(completionLimiter), completion.Assist)
	r.POST("/adblock_filter", middleware.RateLimitMiddleware(completionLimiter), completion.AdblockFilter)

	commands := &handler.CommandHandler{Relay: deps.Relay}
	r.POST("/send_event", commands.SendEvent)
	r.POST("/add_command", middleware.RequireAdmin(deps.TokenConfig), commands.AddCommand)

	history := &handler.HistoryHandler{Relay: deps.Relay}
	r.GET("/get_history/:uid", history.GetHistory)
	r.POST("/saveurl", history.SaveURL)

	watch := &handler.WatchHandler{Hub: deps.Hub, Relay: deps.Relay, TokenConfig: deps.TokenConfig, Logger: log}
	r.GET("/ws", watch.Serve)

	return r
}
