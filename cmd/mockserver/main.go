// Command mockserver serves the dashboard API over an in-memory user store
// for frontend development. It needs no database and runs no NATS server.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/podboard/backend/auth"
	"github.com/podboard/backend/config"
	"github.com/podboard/backend/logger"
	"github.com/podboard/backend/models"
	"github.com/podboard/backend/router"
	"github.com/podboard/backend/services"
	"github.com/podboard/backend/store"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

func main() {
	adminUser := flag.String("admin-user", "admin", "username of the seeded admin account")
	adminPassword := flag.String("admin-password", "admin123", "password of the seeded admin account")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	log, err := logger.New(false, cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}

	code := 0
	if err := serve(cfg, log, *adminUser, *adminPassword); err != nil {
		log.Error("mock server failed", zap.Error(err))
		code = 1
	}
	_ = log.Sync()
	os.Exit(code)
}

func serve(cfg *config.Config, log *zap.Logger, adminUser, adminPassword string) error {
	engine, err := newMockEngine(cfg, log, adminUser, adminPassword)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := &http.Server{Addr: ":" + cfg.Port, Handler: engine, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Info("mock server listening", zap.String("addr", srv.Addr), zap.String("admin", adminUser))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// newMockEngine builds the production router over a seeded MemoryStore.
func newMockEngine(cfg *config.Config, log *zap.Logger, adminUser, adminPassword string) (*gin.Engine, error) {
	tokens, err := auth.NewTokenService([]byte(cfg.JWTSecret))
	if err != nil {
		return nil, err
	}
	users := services.NewUserService(
		store.NewMemoryStore(),
		auth.NewBcryptHasher(bcrypt.MinCost),
		tokens,
		services.WithLogger(log.Named("users")),
	)
	if _, err := users.CreateUser(context.Background(), nil, services.CreateUserInput{
		Username: adminUser,
		Password: adminPassword,
		Role:     models.RoleAdmin,
	}); err != nil {
		return nil, fmt.Errorf("seed admin: %w", err)
	}

	return router.New(router.Deps{
		Users:       users,
		Tokens:      tokens,
		Log:         log,
		CORSOrigins: cfg.CORSOrigins,
	}), nil
}
