package routes

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/fazosimples/botfut/internal/config"
	"github.com/fazosimples/botfut/internal/identity"
	"github.com/fazosimples/botfut/internal/middleware"
	"github.com/fazosimples/botfut/internal/notification"
	"github.com/fazosimples/botfut/internal/onboarding"
	"github.com/fazosimples/botfut/internal/upstream"
	"github.com/fazosimples/botfut/internal/workspace"
)

// Deps aggregates shared dependencies required to wire routes.
type Deps struct {
	Cfg    config.Config
	DB     *pgxpool.Pool
	Cache  *redis.Client
	Logger *slog.Logger
	// Upstream overrides the league API client built from Cfg.
	Upstream *upstream.Client
}

// Setup configures middlewares and all application routes.
func Setup(app *fiber.App, d Deps) error {
	if !d.Cfg.IsDev() {
		if d.DB == nil {
			return fmt.Errorf("database is required when APP_ENV=%s", d.Cfg.Env)
		}
		if d.Cache == nil {
			return fmt.Errorf("redis is required when APP_ENV=%s", d.Cfg.Env)
		}
	}
	if d.Logger == nil {
		d.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	app.Use(recover.New())
	app.Use(middleware.RequestID())
	if strings.EqualFold(d.Cfg.LogFormat, "text") {
		app.Use(logger.New(logger.Config{
			Format:     "[${time}] ${status} -  ${latency} ${method} ${path}\n",
			TimeFormat: "15:04:05",
			TimeZone:   "Local",
		}))
	}
	app.Use(middleware.Audit(d.Logger))

	RegisterHealthRoutes(app, d)

	client := d.Upstream
	if client == nil {
		client = upstream.New(d.Cfg.UpstreamBaseURL, d.Cfg.UpstreamTimeout, d.Logger)
	}

	var identityStore identity.Store
	if d.Cache != nil {
		identityStore = identity.NewRedisStore(d.Cache, d.Cfg.IdentityCacheTTL)
	} else {
		identityStore = identity.NewMemoryStore()
	}

	var sessions onboarding.Repository
	if d.DB != nil {
		repo := onboarding.NewPostgresRepository(d.DB)
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := repo.EnsureSchema(ctx); err != nil {
			return err
		}
		sessions = repo
	} else {
		sessions = onboarding.NewMemoryRepository()
	}

	notifier := notification.NewLoggerNotifier(d.Logger)
	identitySvc := identity.NewService(client, identityStore, d.Logger)
	provisioner := workspace.NewProvisioner(client, notifier, d.Logger)
	onboardingSvc, err := onboarding.NewService(onboarding.ServiceDeps{
		Identities: identitySvc,
		Profiles:   identitySvc,
		Workspaces: provisioner,
		Repository: sessions,
		Notifier:   notifier,
		BotContact: d.Cfg.BotContact,
		Logger:     d.Logger,
		IdleTTL:    d.Cfg.SessionIdleTTL,
		Retention:  d.Cfg.SessionRetention,
	})
	if err != nil {
		return err
	}

	api := app.Group("/api/v1")
	api.Get("/ping", func(c *fiber.Ctx) error {
		return c.Status(http.StatusOK).JSON(fiber.Map{
			"status":     "ok",
			"request_id": middleware.RequestIDFrom(c),
			"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
		})
	})

	protected := api.Group("", middleware.BearerAuth())
	RegisterIdentityRoutes(protected, identity.NewHandler(identitySvc))

	submit := []fiber.Handler{
		middleware.SubmitRateLimit(d.Cache, d.Cfg.SubmitRateLimit),
		middleware.Idempotency(d.Cache, d.Cfg.IdempotencyTTL, d.Logger),
	}
	RegisterOnboardingRoutes(protected, onboarding.NewHandler(onboardingSvc), submit...)

	return nil
}
