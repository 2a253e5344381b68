// Package httpapi exposes titles over HTTP with gin.
package httpapi

import (
	"context"
	"log/slog"

	"github.com/gin-gonic/gin"

	"imdb-titles/internal/title"
)

// HeaderRequestID carries the request id in both directions.
const HeaderRequestID = "X-Request-ID"

// HealthChecker reports whether the backing store is reachable.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// Handler serves the title endpoints.
type Handler struct {
	repo   title.Repository
	health HealthChecker
	log    *slog.Logger
}

// NewHandler returns a Handler over repo. health may be nil, in which case
// /healthz always reports ok.
func NewHandler(repo title.Repository, health HealthChecker, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{repo: repo, health: health, log: log.With(slog.String("component", "httpapi"))}
}

// NewRouter builds the gin engine with request id, access log and recovery
// middleware.
func NewRouter(h *Handler) *gin.Engine {
	r := gin.New()
	r.Use(RequestID(h.log), AccessLog(), gin.Recovery())

	r.GET("/healthz", h.Healthz)
	r.GET("/titles/:id", h.GetTitle)
	r.POST("/titles", h.CreateTitle)
	r.PUT("/titles/:id/start-year", h.SetStartYear)
	return r
}
