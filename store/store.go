// Package store defines the credential store capability and its two
// backends: Postgres through gorm, and an in-memory fixture used by the
// mock server and tests.
package store

import (
	"context"
	"errors"

	"github.com/podboard/backend/models"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("duplicate username")
)

// Changes lists the mutable columns of a user. Nil fields are left untouched.
type Changes struct {
	PasswordHash *string
	Role         *models.Role
}

// Empty reports whether no column would change.
func (c Changes) Empty() bool {
	return c.PasswordHash == nil && c.Role == nil
}

// Store persists user records. Each method is atomic on its own row;
// usernames are unique at this boundary.
type Store interface {
	FindByUsername(ctx context.Context, username string) (*models.User, error)
	FindByID(ctx context.Context, id uint) (*models.User, error)
	// Insert assigns ID and CreatedAt on success.
	Insert(ctx context.Context, user *models.User) error
	Update(ctx context.Context, id uint, changes Changes) (*models.User, error)
	Delete(ctx context.Context, id uint) error
	// ListOrderedByCreation returns every user, oldest first.
	ListOrderedByCreation(ctx context.Context) ([]models.User, error)
}
