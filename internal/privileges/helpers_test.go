package privileges

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/gobb-forum/gobb/internal/db/controller/groups"
	"github.com/gobb-forum/gobb/internal/db/dbtest"
	"github.com/gobb-forum/gobb/internal/db/models"
	"github.com/gobb-forum/gobb/internal/db/transaction"
	"github.com/gobb-forum/gobb/internal/plugins"
)

const (
	uidAdmin  int64 = 1
	uidPlain  int64 = 2
	uidMod    int64 = 3
	uidDirect int64 = 4
)

type fixture struct {
	db    *gorm.DB
	txm   *transaction.Manager
	eval  *Evaluator
	hooks *plugins.Registry
}

// setupFixture seeds the system groups and four users: an administrator, a
// plain user, a member of Global Moderators and a user for direct grants.
func setupFixture(t *testing.T) *fixture {
	t.Helper()

	db := dbtest.Open(t)

	for _, name := range []string{
		models.GroupAdministrators,
		models.GroupRegisteredUsers,
		models.GroupGuests,
		models.GroupGlobalModerators,
	} {
		require.NoError(t, groups.Create(db, &models.Group{Name: name, System: true}))
	}

	for _, u := range []models.User{
		{ID: uidAdmin, Username: "admin", Active: true},
		{ID: uidPlain, Username: "plain", Active: true},
		{ID: uidMod, Username: "mod", Active: true},
		{ID: uidDirect, Username: "direct", Active: true},
	} {
		require.NoError(t, db.Create(&u).Error)
	}

	require.NoError(t, groups.Join(db, []string{models.GroupAdministrators}, groups.UIDMember(uidAdmin)))
	require.NoError(t, groups.Join(db, []string{models.GroupGlobalModerators}, groups.UIDMember(uidMod)))

	return &fixture{
		db:    db,
		txm:   transaction.New(db),
		eval:  NewEvaluator(db),
		hooks: plugins.NewRegistry(),
	}
}

func (f *fixture) admin(t *testing.T) *Admin {
	t.Helper()

	a, err := NewAdmin(f.db, f.txm, f.eval, f.hooks)
	require.NoError(t, err)

	return a
}

func (f *fixture) categories(t *testing.T) *Categories {
	t.Helper()

	c, err := NewCategories(f.db, f.txm, f.eval, f.hooks)
	require.NoError(t, err)

	return c
}
