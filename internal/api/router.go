package api

import (
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/charlesng35/socialink/internal/app"
	iauth "github.com/charlesng35/socialink/internal/auth"
	"github.com/charlesng35/socialink/internal/enrichment"
	"github.com/charlesng35/socialink/internal/handlers"
	"github.com/charlesng35/socialink/internal/middleware"
	"github.com/charlesng35/socialink/internal/monitoring"
	"github.com/charlesng35/socialink/internal/notify"
	"github.com/charlesng35/socialink/internal/services"
	"github.com/charlesng35/socialink/internal/storage"
)

// Dependencies carries the services the HTTP layer is built on. Pipeline,
// Uploader and Health are optional.
type Dependencies struct {
	Config    *app.Config
	Gateway   *iauth.Gateway
	Users     *services.UserService
	Posts     *services.PostService
	Pipeline  *enrichment.Pipeline
	Scheduler handlers.Scheduler
	Notifier  notify.Sender
	Uploader  storage.Uploader
	Health    *monitoring.HealthManager
}

func (d Dependencies) validate() error {
	switch {
	case d.Config == nil:
		return errors.New("config must be provided")
	case d.Gateway == nil:
		return errors.New("auth gateway must be provided")
	case d.Users == nil:
		return errors.New("user service must be provided")
	case d.Posts == nil:
		return errors.New("post service must be provided")
	case d.Scheduler == nil:
		return errors.New("task scheduler must be provided")
	case d.Notifier == nil:
		return errors.New("notifier must be provided")
	}
	return nil
}

// NewRouter builds the Gin engine, wires middleware and registers all routes.
func NewRouter(deps Dependencies) (*gin.Engine, error) {
	if err := deps.validate(); err != nil {
		return nil, err
	}
	cfg := deps.Config

	r := gin.New()

	r.Use(middleware.RequestID())
	r.Use(middleware.Recovery())
	r.Use(middleware.Logger())
	r.Use(middleware.Metrics())
	r.Use(middleware.SecurityHeaders())

	registerHealthRoutes(r, handlers.NewHealthHandler(deps.Health))

	registerAuthRoutes(r, authRouteDeps{
		Handler: handlers.NewAuthHandler(deps.Users, deps.Gateway, deps.Notifier, deps.Scheduler, cfg.Server.PublicURL),
		Limit:   middleware.RateLimit(cfg.Server.AuthRateLimit, authRateWindow(cfg.Server.AuthRateWindow)),
	})

	requireAuth := middleware.Auth(deps.Gateway)

	postHandler := handlers.NewPostHandler(deps.Posts, deps.Pipeline, deps.Scheduler, cfg.Server.PublicURL)
	registerPostRoutes(r, requireAuth, postHandler)

	uploadHandler := handlers.NewUploadHandler(deps.Uploader, cfg.Storage.MaxUploadBytes)
	r.POST("/upload", requireAuth, uploadHandler.Upload)

	if cfg.Monitoring.Prometheus.Enabled {
		endpoint := cfg.Monitoring.Prometheus.Endpoint
		if endpoint == "" {
			endpoint = "/metrics"
		}
		r.GET(endpoint, gin.WrapH(promhttp.Handler()))
	}

	r.NoRoute(middleware.NotFoundHandler)

	return r, nil
}

func authRateWindow(window time.Duration) time.Duration {
	if window <= 0 {
		return time.Minute
	}
	return window
}
