// Package app assembles the client agent from configuration: backend client,
// session, per-session stores, background channels and the local state API.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-client/internal/admin"
	httptransport "github.com/spec-kit/helpdesk-client/internal/api/http"
	"github.com/spec-kit/helpdesk-client/internal/api/http/handlers"
	"github.com/spec-kit/helpdesk-client/internal/apiclient"
	"github.com/spec-kit/helpdesk-client/internal/auth"
	"github.com/spec-kit/helpdesk-client/internal/basedata"
	"github.com/spec-kit/helpdesk-client/internal/clock"
	"github.com/spec-kit/helpdesk-client/internal/config"
	"github.com/spec-kit/helpdesk-client/internal/dashboard"
	"github.com/spec-kit/helpdesk-client/internal/events"
	"github.com/spec-kit/helpdesk-client/internal/notifications"
	"github.com/spec-kit/helpdesk-client/internal/observability"
	"github.com/spec-kit/helpdesk-client/internal/persistence"
	"github.com/spec-kit/helpdesk-client/internal/realtime"
	"github.com/spec-kit/helpdesk-client/internal/session"
	"github.com/spec-kit/helpdesk-client/internal/tickets"
	"github.com/spec-kit/helpdesk-client/internal/worker"
)

const (
	redisTokenPrefix = "helpdesk:session:"
	stompTopic       = "/topic/tickets"
)

// Options configures New. Clock, HTTPClient and TokenStore override the
// configured defaults.
type Options struct {
	Config     *config.Config
	Logger     *zap.Logger
	Clock      clock.Clock
	HTTPClient *http.Client
	TokenStore persistence.TokenStore
}

// App holds every long-lived component of the agent.
type App struct {
	Config        *config.Config
	Logger        *zap.Logger
	Metrics       *observability.Metrics
	Events        events.Dispatcher
	EventLog      *worker.EventLog
	Client        *apiclient.Client
	Session       *session.Manager
	Tabs          *dashboard.Tabs
	BaseData      *basedata.Store
	Tickets       *tickets.Store
	Notifications *notifications.Service
	Members       *admin.Members
	Management    *admin.Management
	AuditLogs     *admin.AuditLogs
	Realtime      *realtime.Bridge
	Lifecycle     *dashboard.Lifecycle

	tokenStore persistence.TokenStore
	postgres   *persistence.Postgres
	redis      *persistence.Redis
}

// New wires the agent. Connections opened here are released by Close.
func New(ctx context.Context, opts Options) (*App, error) {
	cfg := opts.Config
	if cfg == nil {
		return nil, errors.New("app: config is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	clk := opts.Clock
	if clk == nil {
		clk = clock.Real()
	}

	a := &App{
		Config:  cfg,
		Logger:  logger,
		Metrics: observability.NewMetrics(),
		Events:  events.NewInMemoryDispatcher(),
		Tabs:    dashboard.NewTabs(),
	}
	a.EventLog = worker.NewEventLog(a.Events, logger.Named("events"), worker.DefaultHistory)
	worker.StartEventLogWorker(a.EventLog)

	store, err := a.openTokenStore(ctx, opts.TokenStore)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.tokenStore = store

	a.Client = apiclient.New(apiclient.Options{
		BaseURL:    cfg.Backend.BaseURL,
		Timeout:    cfg.Backend.RequestTimeout(),
		HTTPClient: opts.HTTPClient,
		Token:      func() string { return a.Session.Token() },
		Logger:     logger.Named("backend"),
		Metrics:    a.Metrics,
	})
	a.Session = session.NewManager(session.Options{
		Client:   a.Client,
		Store:    store,
		TokenKey: cfg.Session.TokenKey,
		Logger:   logger.Named("session"),
		Events:   a.Events,
		Now:      clk.Now,
	})

	a.BaseData = basedata.NewStore(a.Client, a.Session, logger.Named("basedata"))
	a.Tickets = tickets.NewStore(tickets.Options{
		Client:  a.Client,
		Session: a.Session,
		RefData: a.BaseData,
		Clock:   clk,
		Logger:  logger.Named("tickets"),
		Events:  a.Events,
	})
	a.Notifications = notifications.NewService(notifications.Options{
		Client:       a.Client,
		Session:      a.Session,
		Tickets:      a.Tickets,
		Tabs:         a.Tabs,
		Clock:        clk,
		Logger:       logger.Named("notifications"),
		Events:       a.Events,
		PollInterval: cfg.Notification.PollInterval(),
	})
	a.Members = admin.NewMembers(a.Client, a.Session, logger.Named("members"))
	a.Management = admin.NewManagement(a.Client, a.Session, a.BaseData, logger.Named("management"))
	a.AuditLogs = admin.NewAuditLogs(a.Client, a.Session, logger.Named("audit"))

	subscriber, err := a.subscriber()
	if err != nil {
		a.Close()
		return nil, err
	}

	lifecycleOpts := dashboard.Options{
		Session:       a.Session,
		Tabs:          a.Tabs,
		BaseData:      a.BaseData,
		Tickets:       a.Tickets,
		Notifications: a.Notifications,
		Members:       a.Members,
		Management:    a.Management,
		AuditLogs:     a.AuditLogs,
		Logger:        logger.Named("dashboard"),
	}
	if subscriber != nil {
		a.Realtime = realtime.NewBridge(realtime.Options{
			Subscriber:     subscriber,
			Session:        a.Session,
			Tickets:        a.Tickets,
			Notifications:  a.Notifications,
			Clock:          clk,
			Logger:         logger.Named("realtime"),
			Events:         a.Events,
			Debounce:       cfg.Realtime.Debounce(),
			ReconnectDelay: cfg.Realtime.ReconnectDelay(),
		})
		lifecycleOpts.Realtime = a.Realtime
	}
	a.Lifecycle = dashboard.NewLifecycle(lifecycleOpts)
	a.Session.SetHooks(a.Lifecycle.Hooks())

	return a, nil
}

func (a *App) openTokenStore(ctx context.Context, override persistence.TokenStore) (persistence.TokenStore, error) {
	if override != nil {
		return override, nil
	}
	cfg := a.Config
	switch cfg.Session.Store {
	case config.SessionStoreMemory:
		return persistence.NewMemoryTokenStore(), nil
	case config.SessionStoreRedis:
		return persistence.NewRedisTokenStore(a.redisHandle(), redisTokenPrefix), nil
	case config.SessionStorePostgres:
		pg, err := persistence.NewPostgres(ctx, cfg.Postgres, a.Logger)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		a.postgres = pg
		if cfg.Postgres.RunMigrations {
			if err := persistence.RunMigrations(ctx, pg.PoolHandle(), a.Logger); err != nil {
				return nil, fmt.Errorf("run migrations: %w", err)
			}
		}
		return persistence.NewPostgresTokenStore(pg), nil
	default:
		return persistence.NewFileTokenStore(cfg.Session.File), nil
	}
}

func (a *App) redisHandle() *persistence.Redis {
	if a.redis == nil {
		a.redis = persistence.NewRedis(a.Config.Redis, a.Logger)
	}
	return a.redis
}

func (a *App) subscriber() (realtime.Subscriber, error) {
	cfg := a.Config
	switch cfg.Realtime.Transport {
	case config.RealtimeOff:
		return nil, nil
	case config.RealtimeRedis:
		return &realtime.RedisSubscriber{
			Client:  a.redisHandle().Client,
			Channel: cfg.Realtime.RedisChannel,
		}, nil
	case config.RealtimeSTOMP:
		return &realtime.StompSubscriber{
			URL:       cfg.Realtime.WebSocketURL(cfg.Backend.BaseURL),
			Topic:     stompTopic,
			Heartbeat: cfg.Realtime.Heartbeat(),
			Token:     a.Session.Token,
			Logger:    a.Logger.Named("stomp"),
		}, nil
	}
	return nil, fmt.Errorf("unknown realtime transport %q", cfg.Realtime.Transport)
}

// TokenStore returns the session token store.
func (a *App) TokenStore() persistence.TokenStore {
	return a.tokenStore
}

// LocalAPI builds the fiber app serving the local state API.
func (a *App) LocalAPI() *fiber.App {
	cfg := a.Config
	tokens := auth.NewTokenManager(cfg.LocalAPI.JWTSecret, cfg.LocalAPI.TokenTTL())

	server := fiber.New(fiber.Config{
		AppName:               cfg.App.Name,
		DisableStartupMessage: true,
	})
	httptransport.RegisterMiddlewares(server, a.Logger.Named("http"), a.Metrics, cfg.LocalAPI.RequestTimeout())
	httptransport.RegisterRoutes(server, httptransport.RouteConfig{
		Health: handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, map[string]handlers.Pinger{
			"backend":       a.Client,
			"session_store": a.tokenStore,
		}),
		LocalAuth:      handlers.NewLocalAuthHandler(tokens, cfg.LocalAPI.PasswordHash),
		State:          handlers.NewStateHandler(a.Session, a.Lifecycle, a.Tickets, a.Notifications, a.EventLog, a.Metrics),
		Tickets:        handlers.NewTicketsHandler(a.Tickets, a.Notifications),
		Notifications:  handlers.NewNotificationsHandler(a.Notifications, a.Tabs),
		Attachments:    handlers.NewAttachmentsHandler(a.Tickets),
		Admin:          handlers.NewAdminHandler(a.Members, a.Management, a.AuditLogs, cfg.LocalAPI.ExportDir),
		AuthMiddleware: auth.NewAuthMiddleware(tokens),
		Session:        a.Session,
	})
	return server
}

// Serve restores the persisted session, serves the local API and blocks
// until ctx is cancelled.
func (a *App) Serve(ctx context.Context) error {
	if err := a.Session.Restore(ctx); err != nil {
		a.Logger.Warn("session not restored", zap.Error(err))
	}

	server := a.LocalAPI()
	listenErr := make(chan error, 1)
	go func() {
		addr := a.Config.LocalAPI.Addr()
		a.Logger.Info("local api listening", zap.String("addr", addr))
		listenErr <- server.Listen(addr)
	}()

	var err error
	select {
	case <-ctx.Done():
		a.Logger.Info("shutting down")
	case err = <-listenErr:
		a.Logger.Error("local api stopped", zap.Error(err))
	}

	if shutdownErr := server.Shutdown(); shutdownErr != nil {
		a.Logger.Warn("local api shutdown", zap.Error(shutdownErr))
	}
	a.Lifecycle.Shutdown()
	return err
}

// Close releases storage connections and stops background work.
func (a *App) Close() {
	if a.Lifecycle != nil {
		a.Lifecycle.Shutdown()
	}
	if a.redis != nil {
		a.redis.Close()
	}
	if a.postgres != nil {
		a.postgres.Close()
	}
}
