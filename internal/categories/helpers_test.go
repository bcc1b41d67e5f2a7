package categories

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/gobb-forum/gobb/internal/config"
	store "github.com/gobb-forum/gobb/internal/db/controller/categories"
	"github.com/gobb-forum/gobb/internal/db/controller/groups"
	"github.com/gobb-forum/gobb/internal/db/dbtest"
	"github.com/gobb-forum/gobb/internal/db/models"
	"github.com/gobb-forum/gobb/internal/db/transaction"
	"github.com/gobb-forum/gobb/internal/meta"
	"github.com/gobb-forum/gobb/internal/plugins"
	"github.com/gobb-forum/gobb/internal/privileges"
)

const (
	uidAdmin int64 = 1
	uidUser  int64 = 2
)

type fixture struct {
	db      *gorm.DB
	svc     *Service
	privs   *privileges.Categories
	configs *meta.Configs
}

func newFixture(t *testing.T, forum config.Forum) *fixture {
	t.Helper()

	db := dbtest.Open(t)

	for _, name := range []string{models.GroupAdministrators, models.GroupRegisteredUsers, models.GroupGuests} {
		require.NoError(t, groups.Create(db, &models.Group{Name: name, System: true}))
	}
	require.NoError(t, groups.Join(db, []string{models.GroupAdministrators}, groups.UIDMember(uidAdmin)))

	txm := transaction.New(db)
	hooks := plugins.NewRegistry()

	privs, err := privileges.NewCategories(db, txm, privileges.NewEvaluator(db), hooks)
	require.NoError(t, err)

	configs := meta.NewConfigs(db, txm, hooks, forum)
	require.NoError(t, configs.Init(context.Background()))

	return &fixture{
		db:      db,
		svc:     NewService(db, txm, privs, configs),
		privs:   privs,
		configs: configs,
	}
}

// seedForum creates
//
//	1 General          (shows 2 children)
//	  4 Announcements
//	    7 Releases
//	  5 Help
//	  6 Feedback
//	2 Off Topic
//	  8 Games
//	3 Archive
//
// and lets registered users read all of them.
func seedForum(t *testing.T, f *fixture) {
	t.Helper()

	for _, c := range []models.Category{
		{Name: "General", Order: 1, SubCategoriesPerPage: 2},
		{Name: "Off Topic", Order: 2},
		{Name: "Archive", Order: 3},
		{Name: "Announcements", ParentCID: 1, Order: 1},
		{Name: "Help", ParentCID: 1, Order: 2},
		{Name: "Feedback", ParentCID: 1, Order: 3},
		{Name: "Releases", ParentCID: 4},
		{Name: "Games", ParentCID: 2},
	} {
		require.NoError(t, store.Create(f.db, &c))
	}

	grant(t, f, privileges.CategoryTopicsRead, 1, 2, 3, 4, 5, 6, 7, 8)
}

func grant(t *testing.T, f *fixture, privilege string, cids ...int64) {
	t.Helper()
	require.NoError(t, f.privs.Give(context.Background(),
		[]string{privileges.GroupPrefix + privilege}, cids, models.GroupRegisteredUsers))
}

func revoke(t *testing.T, f *fixture, privilege string, cids ...int64) {
	t.Helper()
	require.NoError(t, f.privs.Rescind(context.Background(),
		[]string{privileges.GroupPrefix + privilege}, cids, models.GroupRegisteredUsers))
}

func cidsOf(records []SelectCategory) []int64 {
	out := make([]int64, len(records))
	for i, r := range records {
		out[i] = r.CID
	}

	return out
}
