package factory

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/mcoot/hostguard/internal/api/sse"
	"github.com/mcoot/hostguard/internal/config"
	"github.com/mcoot/hostguard/internal/dependencies/clock"
	"github.com/mcoot/hostguard/internal/dependencies/random"
	"github.com/mcoot/hostguard/internal/engine"
	"github.com/mcoot/hostguard/internal/model"
	"github.com/mcoot/hostguard/internal/notifier"
	"github.com/mcoot/hostguard/internal/services/auth"
	"github.com/mcoot/hostguard/internal/session/sim"
	"github.com/mcoot/hostguard/internal/storage"
	"github.com/mcoot/hostguard/internal/storage/memory"
	redisstorage "github.com/mcoot/hostguard/internal/storage/redis"
	sqlitestorage "github.com/mcoot/hostguard/internal/storage/sqlite"
)

// App contains all wired application components
type App struct {
	// Storage
	Storage storage.Storage

	// External dependencies
	Clock  clock.Clock
	Random random.Random

	// Moderation
	Engine  *engine.Engine
	Session *sim.Session

	// Operator surface
	Auth        *auth.Service
	Hub         *sse.Hub
	Broadcaster *sse.Broadcaster
	Notifier    *notifier.Discord // nil unless a webhook is configured

	closers []io.Closer
}

// New creates a new application with all dependencies wired
func New(cfg config.Config, logger *slog.Logger) (*App, error) {
	// Use no-op logger if not provided
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}

	var store storage.Storage
	var closers []io.Closer
	switch cfg.Storage {
	case config.StorageMemory, "":
		store = memory.New()
	case config.StorageRedis:
		redisCfg := redisstorage.DefaultConfig()
		redisCfg.URL = cfg.RedisURL
		redisCfg.KeyPrefix = cfg.RedisPrefix
		redisStore, err := redisstorage.New(redisCfg)
		if err != nil {
			return nil, fmt.Errorf("open redis storage: %w", err)
		}
		store = redisStore
		closers = append(closers, redisStore)
	case config.StorageSQLite:
		sqliteStore, err := sqlitestorage.Open(cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("open sqlite storage: %w", err)
		}
		store = sqliteStore
		closers = append(closers, sqliteStore)
	default:
		return nil, fmt.Errorf("invalid storage type %q", cfg.Storage)
	}

	var discord *notifier.Discord
	if cfg.DiscordWebhookURL != "" {
		d, err := notifier.NewDiscord(cfg.DiscordWebhookURL, logger)
		if err != nil {
			_ = closeAll(closers)
			return nil, err
		}
		discord = d
	}

	authCfg := auth.DefaultConfig()
	authCfg.TokenHash = cfg.OperatorTokenHash

	app, err := newWithDependencies(cfg, store, clock.New(), random.New(), authCfg, discord, logger)
	if err != nil {
		_ = closeAll(closers)
		return nil, err
	}
	app.closers = closers
	return app, nil
}

// newWithDependencies creates an App with the given dependencies (useful for testing)
func newWithDependencies(
	cfg config.Config,
	store storage.Storage,
	clk clock.Clock,
	rnd random.Random,
	authCfg auth.Config,
	discord *notifier.Discord,
	logger *slog.Logger,
) (*App, error) {
	authService, err := auth.New(clk, authCfg)
	if err != nil {
		return nil, err
	}

	local := model.Participant{
		Identity:    model.Identity(cfg.SimLocalID),
		DisplayName: cfg.SimLocalName,
	}
	session := sim.New(local, clk, rnd, cfg.SimDropPercent, logger)
	eng := engine.New(cfg.ToEngineConfig(), session, store, clk, logger)

	// Joins are inbound events; they enter the engine through its loop
	session.SetJoinHook(func(p model.Participant) {
		if err := eng.Do(context.Background(), func() { eng.ParticipantJoined(p) }); err != nil {
			logger.Warn("join not delivered to engine",
				slog.String("identity", string(p.Identity)),
				slog.String("error", err.Error()))
		}
	})

	hub := sse.NewHub(logger)
	broadcaster := sse.NewBroadcaster(hub, logger)
	eng.Subscribe(broadcaster)
	if discord != nil {
		eng.Subscribe(discord)
	}

	return &App{
		Storage:     store,
		Clock:       clk,
		Random:      rnd,
		Engine:      eng,
		Session:     session,
		Auth:        authService,
		Hub:         hub,
		Broadcaster: broadcaster,
		Notifier:    discord,
	}, nil
}

// Close releases the storage backend and waits for pending notifications.
// The engine should already have stopped so its final flush has landed.
func (a *App) Close() error {
	a.Hub.Close()
	if a.Notifier != nil {
		a.Notifier.Wait()
	}
	return closeAll(a.closers)
}

func closeAll(closers []io.Closer) error {
	var errs []error
	for _, c := range closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
