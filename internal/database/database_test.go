package database

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"choreo-backend/internal/config"
	"choreo-backend/internal/model"
)

func TestOpenSQLiteInMemory(t *testing.T) {
	store, err := Open(&config.StoreConfig{Driver: config.DriverSQLite, SQLitePath: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	ctx := context.Background()
	require.NoError(t, store.Ping(ctx))

	require.NoError(t, store.Credentials.Create(ctx, &model.User{Username: "alice", PasswordHash: "h"}))
	d := &model.Dance{UserID: "alice", Name: "A", NumberOfDancers: 1, Formations: []model.Formation{}}
	require.NoError(t, store.Dances.Insert(ctx, d))

	got, err := store.Dances.FindOwned(ctx, "alice", d.ID)
	require.NoError(t, err)
	assert.Equal(t, "A", got.Name)
}

func TestOpenUnknownDriver(t *testing.T) {
	_, err := Open(&config.StoreConfig{Driver: "oracle"})
	assert.ErrorIs(t, err, config.ErrUnknownDriver)
}
