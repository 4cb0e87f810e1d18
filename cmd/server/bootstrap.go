package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/charlesng35/socialink/internal/api"
	"github.com/charlesng35/socialink/internal/app"
	iauth "github.com/charlesng35/socialink/internal/auth"
	"github.com/charlesng35/socialink/internal/database"
	"github.com/charlesng35/socialink/internal/enrichment"
	"github.com/charlesng35/socialink/internal/generator"
	"github.com/charlesng35/socialink/internal/monitoring"
	"github.com/charlesng35/socialink/internal/monitoring/checks"
	"github.com/charlesng35/socialink/internal/notify"
	"github.com/charlesng35/socialink/internal/services"
	"github.com/charlesng35/socialink/internal/storage"
	"github.com/charlesng35/socialink/internal/tasks"
	"github.com/charlesng35/socialink/pkg/logger"
)

// runtimeStack bundles long-lived services used by the HTTP server.
type runtimeStack struct {
	DB     *gorm.DB
	Runner *tasks.Runner
	Router *gin.Engine
}

// bootstrapRuntime initialises the database, background runner, services and
// the HTTP router.
func bootstrapRuntime(ctx context.Context, cfg *app.Config, log *zap.Logger) (*runtimeStack, error) {
	stack := &runtimeStack{}
	var err error
	success := false

	defer func() {
		if !success {
			if shutdownErr := stack.Shutdown(context.Background()); shutdownErr != nil {
				log.Warn("partial bootstrap cleanup failed", zap.Error(shutdownErr))
			}
		}
	}()

	if debug, _ := os.LookupEnv("GIN_DEBUG"); debug != "true" {
		gin.SetMode(gin.ReleaseMode)
	}

	stack.DB, err = initialiseDatabase(cfg)
	if err != nil {
		return nil, err
	}

	tokens, err := iauth.NewTokenService(cfg.Auth.TokenServiceConfig())
	if err != nil {
		return nil, fmt.Errorf("initialise token service: %w", err)
	}

	users, err := services.NewUserService(stack.DB, services.WithBcryptCost(cfg.Auth.BcryptCost))
	if err != nil {
		return nil, fmt.Errorf("initialise user service: %w", err)
	}

	posts, err := services.NewPostService(stack.DB)
	if err != nil {
		return nil, fmt.Errorf("initialise post service: %w", err)
	}

	gateway, err := iauth.NewGateway(tokens, users)
	if err != nil {
		return nil, fmt.Errorf("initialise auth gateway: %w", err)
	}

	mailer, err := cfg.Email.NewMailer()
	if err != nil {
		return nil, fmt.Errorf("initialise mailer: %w", err)
	}
	notifier := notify.New(mailer)
	log.Info("email delivery configured", zap.String("provider", strings.ToLower(cfg.Email.Provider)))

	var pipeline *enrichment.Pipeline
	if strings.TrimSpace(cfg.Generator.APIKey) != "" {
		client := generator.NewClient(cfg.Generator.ClientConfig())
		if pipeline, err = enrichment.NewPipeline(client, posts, notifier); err != nil {
			return nil, fmt.Errorf("initialise enrichment pipeline: %w", err)
		}
	} else {
		log.Warn("generator.api_key not set; image generation disabled")
	}

	var uploader storage.Uploader
	if cfg.Storage.S3.Enabled {
		s3Uploader, err := storage.NewS3Uploader(ctx, cfg.Storage.UploaderConfig())
		if err != nil {
			return nil, fmt.Errorf("initialise object storage: %w", err)
		}
		uploader = s3Uploader
		log.Info("object storage configured", zap.String("bucket", cfg.Storage.S3.Bucket))
	}

	stack.Runner = tasks.NewRunner(cfg.Tasks.RunnerConfig())
	stack.Runner.Start()

	health := monitoring.NewHealthManager()
	health.RegisterLiveness(monitoring.Check{Name: "process", Run: func(context.Context) monitoring.ProbeResult {
		return monitoring.ProbeResult{Status: monitoring.StatusUp}
	}})
	health.RegisterReadiness(checks.Database(stack.DB, 0))
	health.RegisterReadiness(checks.TaskQueue(stack.Runner, 0.9))

	stack.Router, err = api.NewRouter(api.Dependencies{
		Config:    cfg,
		Gateway:   gateway,
		Users:     users,
		Posts:     posts,
		Pipeline:  pipeline,
		Scheduler: stack.Runner,
		Notifier:  notifier,
		Uploader:  uploader,
		Health:    health,
	})
	if err != nil {
		return nil, fmt.Errorf("build api router: %w", err)
	}

	success = true
	return stack, nil
}

// Shutdown drains background tasks and releases the database. Errors from
// each step are combined.
func (s *runtimeStack) Shutdown(ctx context.Context) error {
	if s == nil {
		return nil
	}

	var err error
	if s.Runner != nil {
		err = multierr.Append(err, s.Runner.Stop(ctx))
	}
	if s.DB != nil {
		err = multierr.Append(err, database.Close(s.DB))
	}
	return err
}

func initialiseDatabase(cfg *app.Config) (*gorm.DB, error) {
	dbCfg := convertDatabaseConfig(cfg)
	db, err := database.Open(dbCfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := database.AutoMigrate(db); err != nil {
		_ = database.Close(db)
		return nil, fmt.Errorf("auto-migrate database: %w", err)
	}

	logger.WithModule("database").Info("database connected", zap.String("driver", dbCfg.Driver))
	return db, nil
}

func convertDatabaseConfig(cfg *app.Config) database.Config {
	dbCfg := database.Config{
		Driver: strings.ToLower(strings.TrimSpace(cfg.Database.Driver)),
		Path:   strings.TrimSpace(cfg.Database.Path),
		DSN:    strings.TrimSpace(cfg.Database.DSN),
	}

	var auth app.DBAuthConfig
	switch dbCfg.Driver {
	case "", "sqlite", "sqlite3":
		dbCfg.Driver = "sqlite"
		return dbCfg
	case "postgres", "postgresql":
		dbCfg.Driver = "postgres"
		auth = cfg.Database.Postgres
	case "mysql", "mariadb":
		dbCfg.Driver = "mysql"
		auth = cfg.Database.MySQL
	default:
		// unsupported drivers surface from database.Open
		return dbCfg
	}

	dbCfg.Host = strings.TrimSpace(auth.Host)
	dbCfg.Port = auth.Port
	dbCfg.Name = strings.TrimSpace(auth.Database)
	dbCfg.User = strings.TrimSpace(auth.Username)
	dbCfg.Password = auth.Password
	return dbCfg
}
