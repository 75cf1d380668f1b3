// Package api exposes the ledger over HTTP.
package api

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cleared-dev/asientos/internal/accounts"
	"github.com/cleared-dev/asientos/internal/audit"
	"github.com/cleared-dev/asientos/internal/config"
	"github.com/cleared-dev/asientos/internal/journal"
)

// ActorHeader names the request header carrying the acting user.
const ActorHeader = "X-Actor"

// Handler serves the ledger endpoints.
type Handler struct {
	Journal  *journal.Service
	Accounts *accounts.Service
	Log      *slog.Logger
}

// NewRouter configures the gin engine and registers every route.
func NewRouter(cfg config.ServerConfig, h *Handler) *gin.Engine {
	if cfg.Mode != "" {
		gin.SetMode(cfg.Mode)
	}
	if h.Log == nil {
		h.Log = slog.Default()
	}

	r := gin.New()
	if gin.Mode() != gin.TestMode {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery(), origin())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api")

	api.POST("/entries", h.PostEntry)
	api.POST("/entries/validate", h.ValidateEntry)
	api.POST("/entries/draft", h.SaveDraft)
	api.GET("/entries/:ref", h.GetEntry)
	api.POST("/entries/:ref/register", h.RegisterEntry)
	api.POST("/entries/:ref/reverse", h.ReverseEntry)

	api.GET("/accounts", h.ListAccounts)
	api.GET("/accounts/:code/balances/:period", h.GetBalance)
	api.POST("/accounts/:code/balances/:period/recompute", h.RecomputeBalance)

	api.GET("/reports/trial-balance", h.TrialBalance)

	return r
}

// origin tags the request context with the client address for the audit log.
func origin() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := audit.WithOrigin(c.Request.Context(), c.ClientIP())
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func actor(c *gin.Context) string {
	if a := c.GetHeader(ActorHeader); a != "" {
		return a
	}
	return "api"
}
