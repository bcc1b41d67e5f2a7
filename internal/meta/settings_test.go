package meta

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gobb-forum/gobb/internal/config"
	"github.com/gobb-forum/gobb/internal/db/dbtest"
	"github.com/gobb-forum/gobb/internal/db/transaction"
	"github.com/gobb-forum/gobb/internal/plugins"
)

func TestSettingsHash(t *testing.T) {
	db := dbtest.Open(t)
	ctx := context.Background()
	s := NewSettings(db, transaction.New(db))

	empty, err := s.Get(ctx, "general")
	require.NoError(t, err)
	assert.Empty(t, empty)

	require.NoError(t, s.Set(ctx, "general", map[string]string{"a": "1", "b": "2"}))
	require.NoError(t, s.Set(ctx, "general", map[string]string{"b": "3"}))
	require.NoError(t, s.SetOnEmpty(ctx, "general", "a", "9"))
	require.NoError(t, s.SetOnEmpty(ctx, "general", "c", "4"))

	got, err := s.Get(ctx, "general")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"a": "1", "b": "3", "c": "4"}, got)

	v, ok, err := s.GetOne(ctx, "general", "b")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "3", v)

	_, err = s.Get(ctx, "")
	require.ErrorIs(t, err, ErrInvalidHash)
}

func TestSettingsHashHiddenFromConfig(t *testing.T) {
	db := dbtest.Open(t)
	ctx := context.Background()
	txm := transaction.New(db)

	require.NoError(t, NewSettings(db, txm).Set(ctx, "general", map[string]string{"a": "1"}))

	c := NewConfigs(db, txm, plugins.NewRegistry(), config.Forum{})
	require.NoError(t, c.Set(ctx, FieldTitle, "gobb"))

	all, err := c.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{FieldTitle: "gobb"}, all)

	require.ErrorIs(t, c.Set(ctx, SettingsPrefix+"general", "x"), ErrInvalidField)
	require.ErrorIs(t, c.Remove(ctx, SettingsPrefix+"general"), ErrInvalidField)
}
