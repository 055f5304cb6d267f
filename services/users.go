// Package services provides business logic services
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/podboard/backend/auth"
	"github.com/podboard/backend/models"
	"github.com/podboard/backend/store"
	"go.uber.org/zap"
)

// CreateUserInput is the payload of CreateUser. An empty Role means models.DefaultRole.
type CreateUserInput struct {
	Username string
	Password string
	Role     models.Role
}

// UpdateUserInput is the payload of UpdateUser. At least one field must be set.
type UpdateUserInput struct {
	Password *string
	Role     *models.Role
}

// UserService implements login and the admin user-management operations.
type UserService struct {
	store  store.Store
	hasher auth.PasswordHasher
	tokens *auth.TokenService
	events EventPublisher
	log    *zap.Logger
	now    func() time.Time

	// dummyHash is verified against when a login names an unknown user, so
	// both failure paths cost one hash comparison.
	dummyHash string
}

// UserServiceOption customizes a UserService.
type UserServiceOption func(*UserService)

// WithEvents publishes user changes through p.
func WithEvents(p EventPublisher) UserServiceOption {
	return func(s *UserService) {
		s.events = p
	}
}

// WithLogger sets the service logger.
func WithLogger(l *zap.Logger) UserServiceOption {
	return func(s *UserService) {
		s.log = l
	}
}

// NewUserService wires the service to its collaborators.
func NewUserService(st store.Store, hasher auth.PasswordHasher, tokens *auth.TokenService, opts ...UserServiceOption) *UserService {
	s := &UserService{
		store:  st,
		hasher: hasher,
		tokens: tokens,
		events: NopPublisher{},
		log:    zap.NewNop(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	h, err := hasher.Hash(uuid.NewString())
	if err != nil {
		s.log.Error("failed to prepare dummy password hash; unknown-user logins will answer faster", zap.Error(err))
	}
	s.dummyHash = h
	return s
}

// Login verifies credentials and issues a session token. An unknown user and
// a wrong password both yield auth.ErrInvalidCredentials.
func (s *UserService) Login(ctx context.Context, username, password string) (string, error) {
	if err := auth.ValidateUsername(username); err != nil {
		return "", err
	}
	if err := auth.ValidatePassword(password); err != nil {
		return "", err
	}

	user, err := s.store.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.hasher.Verify(password, s.dummyHash)
			return "", auth.ErrInvalidCredentials
		}
		return "", fmt.Errorf("find user: %w", err)
	}

	if !s.hasher.Verify(password, user.PasswordHash) {
		return "", auth.ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(user.ID, user.Username, user.Role)
	if err != nil {
		return "", fmt.Errorf("issue token: %w", err)
	}
	return token, nil
}

// CreateUser hashes the password and stores a new user.
func (s *UserService) CreateUser(ctx context.Context, caller *auth.Principal, in CreateUserInput) (*models.User, error) {
	if in.Role == "" {
		in.Role = models.DefaultRole
	}
	if err := auth.ValidateUsername(in.Username); err != nil {
		return nil, err
	}
	if err := auth.ValidatePassword(in.Password); err != nil {
		return nil, err
	}
	if err := auth.ValidateRole(in.Role); err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Username:     in.Username,
		PasswordHash: hash,
		Role:         in.Role,
	}
	if err := s.store.Insert(ctx, user); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, auth.ErrDuplicateUsername
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}

	s.log.Info("user created", zap.Uint("id", user.ID), zap.String("username", user.Username), zap.String("role", string(user.Role)))
	s.publish(ctx, models.UserCreated, *user, caller)
	return user, nil
}

// UpdateUser changes the password and/or role of another user. Callers cannot
// target their own account.
func (s *UserService) UpdateUser(ctx context.Context, caller auth.Principal, id uint, in UpdateUserInput) (*models.User, error) {
	if in.Password == nil && in.Role == nil {
		return nil, auth.Invalid("", "password or role is required")
	}
	if in.Password != nil {
		if err := auth.ValidatePassword(*in.Password); err != nil {
			return nil, err
		}
	}
	if in.Role != nil {
		if err := auth.ValidateRole(*in.Role); err != nil {
			return nil, err
		}
	}
	if id == caller.UserID {
		return nil, auth.ErrSelfModification
	}

	var changes store.Changes
	if in.Password != nil {
		hash, err := s.hasher.Hash(*in.Password)
		if err != nil {
			return nil, err
		}
		changes.PasswordHash = &hash
	}
	if in.Role != nil {
		role := *in.Role
		changes.Role = &role
	}

	user, err := s.store.Update(ctx, id, changes)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, auth.ErrNotFound
		}
		return nil, fmt.Errorf("update user: %w", err)
	}

	s.log.Info("user updated",
		zap.Uint("id", user.ID),
		zap.Bool("password_changed", in.Password != nil),
		zap.String("role", string(user.Role)),
		zap.String("by", caller.Username))
	s.publish(ctx, models.UserUpdated, *user, &caller)
	return user, nil
}

// DeleteUser removes another user. Callers cannot delete themselves.
func (s *UserService) DeleteUser(ctx context.Context, caller auth.Principal, id uint) error {
	if id == caller.UserID {
		return auth.ErrSelfModification
	}

	user, err := s.store.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return auth.ErrNotFound
		}
		return fmt.Errorf("find user: %w", err)
	}

	if err := s.store.Delete(ctx, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return auth.ErrNotFound
		}
		return fmt.Errorf("delete user: %w", err)
	}

	s.log.Info("user deleted", zap.Uint("id", id), zap.String("by", caller.Username))
	s.publish(ctx, models.UserDeleted, *user, &caller)
	return nil
}

// ListUsers returns every user, oldest first.
func (s *UserService) ListUsers(ctx context.Context) ([]models.User, error) {
	users, err := s.store.ListOrderedByCreation(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

// publish never fails the mutation that triggered it.
func (s *UserService) publish(ctx context.Context, typ models.UserEventType, user models.User, caller *auth.Principal) {
	user.PasswordHash = ""
	ev := models.UserEvent{Type: typ, User: user, At: s.now().UTC()}
	if caller != nil {
		ev.Actor = caller.Username
	}
	if err := s.events.Publish(ctx, ev); err != nil {
		s.log.Warn("failed to publish user event", zap.String("type", string(typ)), zap.Uint("id", user.ID), zap.Error(err))
	}
}
