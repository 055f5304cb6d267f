// Package storetest is a behavioural contract every store.Store backend must
// satisfy. Backends call Run from their own tests.
package storetest

import (
	"context"
	"testing"

	"github.com/podboard/backend/models"
	"github.com/podboard/backend/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Factory returns an empty store for one subtest.
type Factory func(t *testing.T) store.Store

// Run executes the contract against stores produced by newStore.
func Run(t *testing.T, newStore Factory) {
	t.Helper()

	t.Run("insert assigns id and creation time", func(t *testing.T) {
		s := newStore(t)
		u := &models.User{Username: "root", PasswordHash: "h1", Role: models.RoleAdmin}
		require.NoError(t, s.Insert(context.Background(), u))
		assert.NotZero(t, u.ID)
		assert.False(t, u.CreatedAt.IsZero())

		got, err := s.FindByUsername(context.Background(), "root")
		require.NoError(t, err)
		assert.Equal(t, u.ID, got.ID)
		assert.Equal(t, "h1", got.PasswordHash)
		assert.Equal(t, models.RoleAdmin, got.Role)
	})

	t.Run("insert defaults role", func(t *testing.T) {
		s := newStore(t)
		u := &models.User{Username: "norole", PasswordHash: "h"}
		require.NoError(t, s.Insert(context.Background(), u))
		assert.Equal(t, models.DefaultRole, u.Role)
	})

	t.Run("duplicate username", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		require.NoError(t, s.Insert(ctx, &models.User{Username: "root", PasswordHash: "a", Role: models.RoleAdmin}))
		err := s.Insert(ctx, &models.User{Username: "root", PasswordHash: "b", Role: models.RoleUser})
		assert.ErrorIs(t, err, store.ErrDuplicate)

		list, err := s.ListOrderedByCreation(ctx)
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, "a", list[0].PasswordHash)
	})

	t.Run("usernames are case sensitive", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		require.NoError(t, s.Insert(ctx, &models.User{Username: "Root", PasswordHash: "a", Role: models.RoleAdmin}))
		require.NoError(t, s.Insert(ctx, &models.User{Username: "root", PasswordHash: "b", Role: models.RoleAdmin}))

		_, err := s.FindByUsername(ctx, "ROOT")
		assert.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("find missing", func(t *testing.T) {
		s := newStore(t)
		_, err := s.FindByUsername(context.Background(), "ghost")
		assert.ErrorIs(t, err, store.ErrNotFound)
		_, err = s.FindByID(context.Background(), 9999)
		assert.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("update fields independently", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		u := &models.User{Username: "alice", PasswordHash: "old", Role: models.RoleUser}
		require.NoError(t, s.Insert(ctx, u))

		role := models.RoleAdmin
		got, err := s.Update(ctx, u.ID, store.Changes{Role: &role})
		require.NoError(t, err)
		assert.Equal(t, models.RoleAdmin, got.Role)
		assert.Equal(t, "old", got.PasswordHash)
		assert.Equal(t, "alice", got.Username)

		hash := "new"
		got, err = s.Update(ctx, u.ID, store.Changes{PasswordHash: &hash})
		require.NoError(t, err)
		assert.Equal(t, "new", got.PasswordHash)
		assert.Equal(t, models.RoleAdmin, got.Role)
		assert.True(t, u.CreatedAt.Equal(got.CreatedAt), "created_at is immutable")
	})

	t.Run("update missing", func(t *testing.T) {
		s := newStore(t)
		role := models.RoleUser
		_, err := s.Update(context.Background(), 9999, store.Changes{Role: &role})
		assert.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("delete", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		keep := &models.User{Username: "keep", PasswordHash: "h", Role: models.RoleAdmin}
		gone := &models.User{Username: "gone", PasswordHash: "h", Role: models.RoleUser}
		require.NoError(t, s.Insert(ctx, keep))
		require.NoError(t, s.Insert(ctx, gone))

		require.NoError(t, s.Delete(ctx, gone.ID))
		assert.ErrorIs(t, s.Delete(ctx, gone.ID), store.ErrNotFound)

		_, err := s.FindByID(ctx, gone.ID)
		assert.ErrorIs(t, err, store.ErrNotFound)

		list, err := s.ListOrderedByCreation(ctx)
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, "keep", list[0].Username)
	})

	t.Run("ids are not reused", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		first := &models.User{Username: "first", PasswordHash: "h", Role: models.RoleUser}
		require.NoError(t, s.Insert(ctx, first))
		require.NoError(t, s.Delete(ctx, first.ID))

		second := &models.User{Username: "first", PasswordHash: "h", Role: models.RoleUser}
		require.NoError(t, s.Insert(ctx, second))
		assert.Greater(t, second.ID, first.ID)
	})

	t.Run("list is ordered by creation", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		empty, err := s.ListOrderedByCreation(ctx)
		require.NoError(t, err)
		assert.Empty(t, empty)

		names := []string{"c", "a", "b"}
		for _, n := range names {
			require.NoError(t, s.Insert(ctx, &models.User{Username: n, PasswordHash: "h", Role: models.RoleUser}))
		}
		list, err := s.ListOrderedByCreation(ctx)
		require.NoError(t, err)
		require.Len(t, list, 3)
		for i, n := range names {
			assert.Equal(t, n, list[i].Username)
		}
	})
}
