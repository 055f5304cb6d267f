package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/podboard/backend/auth"
	"github.com/podboard/backend/config"
	"github.com/podboard/backend/database"
	"github.com/podboard/backend/logger"
	"github.com/podboard/backend/natsserver"
	"github.com/podboard/backend/router"
	"github.com/podboard/backend/services"
	"github.com/podboard/backend/store"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		// No logger yet.
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.Production(), cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	os.Exit(start(cfg, log))
}

// start runs the server and returns the process exit code. The logger is
// flushed on every path, since os.Exit skips deferred calls.
func start(cfg *config.Config, log *zap.Logger) int {
	defer log.Sync() //nolint:errcheck

	if err := run(cfg, log); err != nil {
		log.Error("server failed", zap.Error(err))
		return 1
	}
	return 0
}

func run(cfg *config.Config, log *zap.Logger) error {
	started := time.Now()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.InsecureSecret {
		log.Warn("JWT_SECRET not set, using the development fallback secret; never do this in a real deployment")
	}
	if cfg.DatabaseURL == "" {
		return errors.New("DATABASE_URL must be set")
	}

	db, err := database.Connect(ctx, cfg.DatabaseURL, database.Options{LogQueries: cfg.LogQueries})
	if err != nil {
		return err
	}
	defer database.Close(db) //nolint:errcheck
	log.Info("database connected")

	tokens, err := auth.NewTokenService([]byte(cfg.JWTSecret))
	if err != nil {
		return err
	}

	opts := []services.UserServiceOption{services.WithLogger(log.Named("users"))}

	var (
		ns  *natsserver.EmbeddedNATS
		hub *services.UserHub
	)
	if cfg.NATSEnabled {
		ns, err = natsserver.New(natsserver.Config{Port: cfg.NATSPort}, log.Named("nats"))
		if err != nil {
			return err
		}
		defer ns.Shutdown()

		hub, err = services.NewUserHub(ns.Conn(), log.Named("userhub"))
		if err != nil {
			return err
		}
		go hub.Run()
		defer hub.Close()

		opts = append(opts, services.WithEvents(services.NewNATSPublisher(ns.Conn())))
		log.Info("user event hub initialized", zap.String("subject", services.UserEventsSubject))
	}

	users := services.NewUserService(
		store.NewGormStore(db),
		auth.NewBcryptHasher(cfg.BcryptCost),
		tokens,
		opts...,
	)

	if cfg.Production() {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := router.New(router.Deps{
		Users:       users,
		Tokens:      tokens,
		NATS:        ns,
		Hub:         hub,
		Log:         log,
		CORSOrigins: cfg.CORSOrigins,
		Started:     started,
	})

	return serve(ctx, log, ":"+cfg.Port, engine)
}

// serve runs the HTTP server until ctx is cancelled, then drains it.
func serve(ctx context.Context, log *zap.Logger, addr string, handler http.Handler) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server listening", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
