// Command createadmin bootstraps an admin account directly in the database.
//
//	createadmin <username> [password]
//
// The password is prompted for without echo when omitted.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/podboard/backend/auth"
	"github.com/podboard/backend/config"
	"github.com/podboard/backend/database"
	"github.com/podboard/backend/models"
	"github.com/podboard/backend/services"
	"github.com/podboard/backend/store"
	"golang.org/x/term"
)

// readPassword is a test seam for term.ReadPassword.
var readPassword = term.ReadPassword

func main() {
	os.Exit(run(context.Background(), os.Args[1:], os.Stdout, os.Stderr, openStore))
}

type storeOpener func(ctx context.Context, cfg *config.Config) (store.Store, func(), error)

func openStore(ctx context.Context, cfg *config.Config) (store.Store, func(), error) {
	if cfg.DatabaseURL == "" {
		return nil, nil, errors.New("DATABASE_URL must be set")
	}
	db, err := database.Connect(ctx, cfg.DatabaseURL, database.Options{LogQueries: cfg.LogQueries})
	if err != nil {
		return nil, nil, err
	}
	return store.NewGormStore(db), func() { _ = database.Close(db) }, nil
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer, open storeOpener) int {
	if len(args) < 1 || len(args) > 2 || args[0] == "" {
		fmt.Fprintln(stderr, "Usage: createadmin <username> [password]")
		return 1
	}
	username := args[0]

	var password string
	if len(args) == 2 {
		password = args[1]
	} else {
		fmt.Fprint(stderr, "Enter password: ")
		pw, err := readPassword(int(os.Stdin.Fd()))
		fmt.Fprintln(stderr)
		if err != nil {
			fmt.Fprintf(stderr, "Failed to read password: %v\n", err)
			return 1
		}
		password = string(pw)
	}

	if err := auth.ValidatePassword(password); err != nil {
		var verr *auth.ValidationError
		if errors.As(err, &verr) {
			fmt.Fprintf(stderr, "Password %s\n", verr.Reason)
		} else {
			fmt.Fprintf(stderr, "Invalid password: %v\n", err)
		}
		return 1
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(stderr, "Config error: %v\n", err)
		return 1
	}

	st, closeStore, err := open(ctx, cfg)
	if err != nil {
		fmt.Fprintf(stderr, "Failed to connect to database: %v\n", err)
		return 1
	}
	defer closeStore()

	tokens, err := auth.NewTokenService([]byte(cfg.JWTSecret))
	if err != nil {
		fmt.Fprintf(stderr, "Token service error: %v\n", err)
		return 1
	}
	svc := services.NewUserService(st, auth.NewBcryptHasher(cfg.BcryptCost), tokens)

	user, err := svc.CreateUser(ctx, nil, services.CreateUserInput{
		Username: username,
		Password: password,
		Role:     models.RoleAdmin,
	})
	switch {
	case errors.Is(err, auth.ErrDuplicateUsername):
		fmt.Fprintf(stderr, "User %q already exists\n", username)
		return 1
	case err != nil:
		fmt.Fprintf(stderr, "Failed to create admin: %v\n", err)
		return 1
	}

	fmt.Fprintf(stdout, "Admin user created: %s (id: %d)\n", user.Username, user.ID)
	return 0
}
