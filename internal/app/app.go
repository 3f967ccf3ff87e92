package app

import (
	"context"
	"fmt"
	"net/http"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/markdave123-py/outreach/internal/config"
	"github.com/markdave123-py/outreach/internal/core"
	db "github.com/markdave123-py/outreach/internal/core/database"
	objectclient "github.com/markdave123-py/outreach/internal/core/object-client"
	"github.com/markdave123-py/outreach/internal/core/ratelimit"
	"github.com/markdave123-py/outreach/internal/core/token"
	"github.com/markdave123-py/outreach/internal/logger"
	"github.com/markdave123-py/outreach/internal/services"
)

type App struct {
	DBClient *db.DatabaseClient
	Store    core.AttachmentStore
	Redis    *redis.Client
	Server   *Server

	logger *logger.Logger
}

func NewApp(ctx context.Context, cfg *config.Config, log *logger.Logger) (*App, error) {
	dbClient, err := db.NewDatabaseClient(ctx, cfg)
	if err != nil {
		return nil, err
	}
	log.Info("database initialized and ready", "database", cfg.Mongo.Database)

	a := &App{DBClient: dbClient, logger: log}

	store, err := objectclient.NewAttachmentStore(ctx, cfg)
	if err != nil {
		_ = a.Close(context.Background())
		return nil, fmt.Errorf("couldn't initialize the attachment store: %w", err)
	}
	a.Store = store
	log.Info("attachment store initialized and ready", "driver", cfg.Storage.Driver)

	deps := RouterDeps{Tokens: token.NewJWT(cfg.JWT.Secret, cfg.JWT.TTL), Logger: log}

	if cfg.Redis.Addr != "" {
		client, err := ratelimit.NewRedisClient(ctx, cfg.Redis.Addr, cfg.Redis.Password)
		if err != nil {
			_ = a.Close(context.Background())
			return nil, fmt.Errorf("couldn't initialize redis: %w", err)
		}
		a.Redis = client

		login, err := ratelimit.NewFixedWindowLimiter(client, "outreach:ratelimit:login", cfg.RateLimit.Login, cfg.RateLimit.Window)
		if err != nil {
			_ = a.Close(context.Background())
			return nil, err
		}
		register, err := ratelimit.NewFixedWindowLimiter(client, "outreach:ratelimit:register", cfg.RateLimit.Register, cfg.RateLimit.Window)
		if err != nil {
			_ = a.Close(context.Background())
			return nil, err
		}
		deps.LoginLimiter = login
		deps.RegisterLimiter = register
		log.Info("rate limiting enabled", "login", cfg.RateLimit.Login, "register", cfg.RateLimit.Register, "window", cfg.RateLimit.Window.String())
	}

	if fs, ok := store.(*objectclient.FileStore); ok {
		deps.Uploads = http.FileServer(http.Dir(fs.Dir()))
	}

	deps.Services = Services{
		Contacts:  services.NewContactService(dbClient.Contacts(), log),
		Templates: services.NewTemplateService(dbClient.Templates(), store, log),
		Prompts:   services.NewPromptService(dbClient.PromptTemplates(), store, log),
		Users:     services.NewUserService(dbClient.Users(), store, deps.Tokens, cfg.BcryptCost, log),
	}

	a.Server = NewServer(cfg, deps)
	return a, nil
}

// Close releases the database and redis connections.
func (a *App) Close(ctx context.Context) error {
	var g errgroup.Group
	if a.DBClient != nil {
		g.Go(func() error { return a.DBClient.Close(ctx) })
	}
	if a.Redis != nil {
		g.Go(a.Redis.Close)
	}
	return g.Wait()
}
