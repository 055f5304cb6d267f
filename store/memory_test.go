package store_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/podboard/backend/models"
	"github.com/podboard/backend/store"
	"github.com/podboard/backend/store/storetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_Contract(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Store {
		return store.NewMemoryStore()
	})
}

func TestMemoryStore_ReturnsCopies(t *testing.T) {
	s := store.NewMemoryStore()
	ctx := context.Background()
	u := &models.User{Username: "root", PasswordHash: "h", Role: models.RoleAdmin}
	require.NoError(t, s.Insert(ctx, u))

	got, err := s.FindByID(ctx, u.ID)
	require.NoError(t, err)
	got.Role = models.RoleUser

	again, err := s.FindByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, again.Role)
}

func TestMemoryStore_ConcurrentInsertSameUsername(t *testing.T) {
	s := store.NewMemoryStore()
	ctx := context.Background()

	const workers = 16
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		oks  int
		dups int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			err := s.Insert(ctx, &models.User{Username: "race", PasswordHash: fmt.Sprint(i), Role: models.RoleUser})
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				oks++
			} else if assert.ErrorIs(t, err, store.ErrDuplicate) {
				dups++
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, oks)
	assert.Equal(t, workers-1, dups)
}
