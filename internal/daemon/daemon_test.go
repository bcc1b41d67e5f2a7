package daemon

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gobb-forum/gobb/internal/config"
	"github.com/gobb-forum/gobb/internal/db/controller/groups"
	"github.com/gobb-forum/gobb/internal/db/models"
	"github.com/gobb-forum/gobb/internal/plugins"
	"github.com/gobb-forum/gobb/internal/privileges"
	"github.com/gobb-forum/gobb/internal/web/session"
)

func sqliteConfig(t *testing.T) *config.Config {
	t.Helper()

	return &config.Config{
		DB: config.DB{
			GormEngine: config.EngineSQLite,
			Name:       filepath.Join(t.TempDir(), "gobb.db"),
		},
		Forum: config.Forum{CategoriesPerPage: 20},
	}
}

func TestOpenDBUnknownEngine(t *testing.T) {
	_, err := openDB(&config.Config{DB: config.DB{GormEngine: "oracle"}})
	require.ErrorIs(t, err, ErrUnknownEngine)
}

func TestSeed(t *testing.T) {
	cfg := sqliteConfig(t)
	ctx := context.Background()

	db, err := openDB(cfg)
	require.NoError(t, err)

	deps, err := newDeps(ctx, cfg, db, plugins.NewRegistry())
	require.NoError(t, err)

	require.NoError(t, seed(ctx, db, deps.CategoryPrivs))

	for _, g := range systemGroups {
		group, err := groups.Get(db, g.Name)
		require.NoError(t, err)
		assert.True(t, group.System)
	}

	for _, uid := range []int64{models.GuestUID, 5} {
		allowed, err := deps.CategoryPrivs.IsUserAllowedTo(ctx, privileges.CategoryTopicsRead, []int64{models.RootCID}, uid)
		require.NoError(t, err)
		assert.Equal(t, []bool{true}, allowed)
	}

	// a second start keeps rescinded defaults
	require.NoError(t, deps.CategoryPrivs.Rescind(ctx, defaultPrivileges, []int64{models.RootCID}, models.GroupGuests))
	require.NoError(t, seed(ctx, db, deps.CategoryPrivs))

	allowed, err := deps.CategoryPrivs.IsUserAllowedTo(ctx, privileges.CategoryTopicsRead, []int64{models.RootCID}, models.GuestUID)
	require.NoError(t, err)
	assert.Equal(t, []bool{false}, allowed)
}

func TestOpenSessionsSQLite(t *testing.T) {
	cfg := sqliteConfig(t)

	db, err := openDB(cfg)
	require.NoError(t, err)

	store, err := openSessions(cfg, db)
	require.NoError(t, err)

	require.NoError(t, db.Table(session.DefaultTable).Create(&session.Record{K: "abc", V: []byte(`{"uid":9}`)}).Error)

	data, err := session.Read(store, "abc")
	require.NoError(t, err)
	assert.Equal(t, int64(9), data.UID)
}
