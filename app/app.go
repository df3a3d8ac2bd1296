package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"treehole/admin"
	"treehole/appcontext"
	"treehole/config"
	"treehole/db"
	"treehole/messages"
	"treehole/metrics"
	"treehole/middleware"
	"treehole/router"
	"treehole/web"
	"treehole/websocket"
)

const shutdownTimeout = 10 * time.Second

// App is one running board: database pool, change feed hub, metrics and the
// assembled HTTP handler.
type App struct {
	Config  *config.Config
	Logger  *zap.SugaredLogger
	Pool    *db.DBPool
	Hub     *websocket.Hub
	Metrics *metrics.Metrics
	Service *messages.Service

	handler http.Handler
	stopHub context.CancelFunc
	wg      sync.WaitGroup
}

func DatabaseConfig(cfg *config.Config) db.DatabaseConfig {
	return db.DatabaseConfig{
		Type:     cfg.Database.Type,
		Database: cfg.Database.Database,
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
		User:     cfg.Database.User,
		Password: cfg.Database.Password,
		SSLMode:  cfg.Database.SSLMode,
	}
}

// New opens the database, starts the hub and builds the routes. Close
// releases all of it.
func New(ctx context.Context, cfg *config.Config, logger *zap.SugaredLogger) (*App, error) {
	pool, err := db.InitDB(ctx, DatabaseConfig(cfg))
	if err != nil {
		return nil, fmt.Errorf("could not init database: %w", err)
	}

	store, err := messages.NewStore(pool)
	if err != nil {
		pool.Close()
		return nil, err
	}

	a := &App{
		Config:  cfg,
		Logger:  logger,
		Pool:    pool,
		Hub:     websocket.NewHub(logger),
		Metrics: metrics.New(),
	}
	a.Service = messages.NewService(store, messages.Options{
		TimeFormat: cfg.Messages.TimeFormat,
		Notifier:   a.Hub,
		Recorder:   a.Metrics,
		Logger:     logger.Named("MESSAGES"),
	})

	hubCtx, cancel := context.WithCancel(context.Background())
	a.stopHub = cancel
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		a.Hub.Run(hubCtx)
	}()

	a.handler = a.routes(time.Now())
	return a, nil
}

func (a *App) routes(started time.Time) http.Handler {
	prefix := config.NormalizePrefix(a.Config.Server.Prefix)

	mainMux := router.NewRouter(a.Config.Server.Name, a.Logger)
	mainMux.Use(middleware.RequestID)
	mainMux.Use(middleware.Logger(a.Logger.Named("HTTP"), a.Metrics.Observe))
	mainMux.Use(middleware.Recover(a.Logger))

	mainMux.HandleStatic("GET /metrics", a.Metrics.Handler())
	mainMux.Handle("GET /healthz", func(ctx *appcontext.AppContext) {
		ctx.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
	if prefix != "" {
		mainMux.Redirect(prefix + "/")
	}

	apiMux := router.NewRouter("API", a.Logger)
	messages.NewHandler(a.Service).Routes(apiMux)
	apiMux.Handle("GET /ws", websocket.WebSocketHandler(a.Hub))
	apiMux.Handle("GET /admin/metrics", admin.MetricsHandler(&admin.Collector{
		Name:    a.Config.Server.Name,
		Type:    a.Pool.Type,
		Store:   a.Service.Store(),
		Pool:    a.Pool,
		Clients: a.Hub.Clients,
		Started: started,
	}))

	appMux := router.NewRouter("APP", a.Logger)
	appMux.RegisterFileServer(web.Static())
	appMux.Include(apiMux, "/api")

	mainMux.Include(appMux, prefix)
	return mainMux
}

func (a *App) Handler() http.Handler {
	return a.handler
}

// Run serves until ctx is cancelled, then shuts the server down gracefully.
func (a *App) Run(ctx context.Context) error {
	server := &http.Server{
		Addr:              net.JoinHostPort(a.Config.Server.Host, a.Config.Server.Port),
		Handler:           a.handler,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		a.Logger.Infow("server listening",
			"name", a.Config.Server.Name,
			"addr", server.Addr,
			"prefix", a.Config.Server.Prefix,
			"database", a.Pool.Type,
		)
		errc <- server.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("error starting server: %w", err)
	case <-ctx.Done():
	}

	a.Logger.Infow("shutting down", "name", a.Config.Server.Name)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}
	a.Logger.Infow("graceful shutdown completed")
	return nil
}

// Close stops the hub and closes the database pools.
func (a *App) Close() error {
	a.stopHub()
	a.wg.Wait()
	return a.Pool.Close()
}
