// Package app initializes and runs the TwitOff service.
// It configures logging, storage, the upstream clients and routing,
// and handles graceful shutdown.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"google.golang.org/grpc"

	"github.com/patric-chuzhbe/twitoff/internal/auth"
	"github.com/patric-chuzhbe/twitoff/internal/config"
	"github.com/patric-chuzhbe/twitoff/internal/db/memorystorage"
	"github.com/patric-chuzhbe/twitoff/internal/db/postgresdb"
	"github.com/patric-chuzhbe/twitoff/internal/db/sqlitedb"
	"github.com/patric-chuzhbe/twitoff/internal/embedding"
	"github.com/patric-chuzhbe/twitoff/internal/grpcserver"
	"github.com/patric-chuzhbe/twitoff/internal/logger"
	"github.com/patric-chuzhbe/twitoff/internal/models"
	"github.com/patric-chuzhbe/twitoff/internal/predict"
	"github.com/patric-chuzhbe/twitoff/internal/router"
	"github.com/patric-chuzhbe/twitoff/internal/service"
	"github.com/patric-chuzhbe/twitoff/internal/twitter"
)

const (
	readTimeout         = 15 * time.Second
	writeTimeout        = 2 * time.Minute
	shutdownTimeout     = 10 * time.Second
	healthCheckInterval = 15 * time.Second
)

type storage interface {
	service.Storage
	Close() error
}

// App holds the configuration, storage, service and handlers of a running TwitOff.
type App struct {
	cfg         *config.Config
	db          storage
	embedder    embedding.Embedder
	svc         *service.Service
	admin       *auth.Auth
	httpHandler http.Handler
}

// New initializes a new instance of App by:
// - loading configuration
// - initializing logger
// - selecting and setting up storage
// - building the Twitter and embedding clients
// - setting up the router and middleware
func New(optionsProto ...config.InitOption) (*App, error) {
	var err error
	app := &App{}

	app.cfg, err = config.New(optionsProto...)
	if err != nil {
		return nil, err
	}

	err = logger.Init(app.cfg.LogLevel, app.cfg.IsProduction())
	if err != nil {
		return nil, err
	}

	app.db, err = getStorageByType(app.cfg)
	if err != nil {
		return nil, err
	}

	app.embedder, err = newEmbedder(context.Background(), app.cfg)
	if err != nil {
		_ = app.db.Close()
		return nil, err
	}

	app.svc = service.New(
		app.db,
		twitter.New(
			app.cfg.TwitterAPIURL,
			app.cfg.TwitterBearerToken,
			app.cfg.TwitterAPIRPS,
			app.cfg.TwitterAPIBurst,
		),
		app.embedder,
		predict.NewPredictor(),
	)
	app.admin = auth.New(app.cfg.AdminTokenSecret)

	app.httpHandler, err = router.New(app.svc, app.admin)
	if err != nil {
		_ = app.embedder.Close()
		_ = app.db.Close()
		return nil, err
	}

	return app, nil
}

// Handler returns the HTTP handler of the web pages.
func (a *App) Handler() http.Handler {
	return a.httpHandler
}

// Run registers the seed users, then serves HTTP (and gRPC, when configured)
// until SIGINT or SIGTERM.
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if len(a.cfg.SeedUsers) > 0 {
		logger.Log.Infoln("registering seed users", "users", a.cfg.SeedUsers)
		if err := a.svc.AddUsers(ctx, a.cfg.SeedUsers); err != nil {
			logger.Log.Errorw("some seed users were not registered", "error", err)
		}
	}

	var grpcServer *grpc.Server
	serverErrCh := make(chan error, 2)

	if a.cfg.GRPCAddr != "" {
		server, lis, checker, err := grpcserver.NewGRPCServer(a.cfg.GRPCAddr, a.svc, a.admin)
		if err != nil {
			return err
		}
		grpcServer = server

		go checker.Run(ctx, healthCheckInterval)
		go func() {
			logger.Log.Infoln("gRPC server running", "GRPCAddr", a.cfg.GRPCAddr)
			serverErrCh <- grpcServer.Serve(lis)
		}()
	}

	logger.Log.Infoln("server running", "RunAddr", a.cfg.RunAddr)

	server := &http.Server{
		Addr:         a.cfg.RunAddr,
		Handler:      a.httpHandler,
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
	}

	go func() {
		serverErrCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Log.Infoln("Received shutdown signal. Closing storage and exiting...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if grpcServer != nil {
			grpcServer.GracefulStop()
		}

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}

		return nil

	case err := <-serverErrCh:
		if grpcServer != nil {
			grpcServer.Stop()
		}
		return fmt.Errorf("server error: %w", err)
	}
}

// Close releases the embedding client, the storage and the logger.
func (a *App) Close() {
	if err := a.embedder.Close(); err != nil {
		logger.Log.Errorw("embedding client close error", "error", err)
	}
	if err := a.db.Close(); err != nil {
		logger.Log.Errorw("storage close error", "error", err)
	}
	if err := logger.Sync(); err != nil {
		fmt.Println("Logger sync error:", err)
	}
}

func getAvailableStorageType(cfg *config.Config) int {
	if cfg.DatabaseDSN != "" {
		return models.StorageTypePostgresql
	}

	if cfg.SQLitePath != "" {
		return models.StorageTypeSQLite
	}

	return models.StorageTypeMemory
}

func getStorageByType(cfg *config.Config) (storage, error) {
	switch getAvailableStorageType(cfg) {
	case models.StorageTypeUnknown:
		return nil, errors.New("unknown storage type")

	case models.StorageTypePostgresql:
		return postgresdb.New(
			context.Background(),
			cfg.DatabaseDSN,
			cfg.DBConnectionTimeout,
		)

	case models.StorageTypeSQLite:
		return sqlitedb.New(
			context.Background(),
			cfg.SQLitePath,
			cfg.DBConnectionTimeout,
		)
	}

	return memorystorage.New()
}

func newEmbedder(ctx context.Context, cfg *config.Config) (embedding.Embedder, error) {
	switch cfg.EmbeddingProvider {
	case config.EmbeddingProviderGemini:
		gemini, err := embedding.NewGemini(ctx, cfg.GeminiAPIKey, cfg.EmbeddingModel)
		if err != nil {
			return nil, fmt.Errorf("in internal/app/app.go/newEmbedder(): error while `embedding.NewGemini()` calling: %w", err)
		}
		return gemini, nil

	case config.EmbeddingProviderHTTP:
		return embedding.NewHTTP(cfg.EmbeddingAPIURL, cfg.EmbeddingAPIKey, cfg.EmbeddingModel), nil
	}

	return nil, fmt.Errorf("unknown embedding provider %q", cfg.EmbeddingProvider)
}
