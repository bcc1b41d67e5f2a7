// Package webtest builds a seeded forum for the HTTP and socket tests.
package webtest

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/gobb-forum/gobb/internal/categories"
	"github.com/gobb-forum/gobb/internal/config"
	"github.com/gobb-forum/gobb/internal/db/controller/groups"
	"github.com/gobb-forum/gobb/internal/db/dbtest"
	"github.com/gobb-forum/gobb/internal/db/models"
	"github.com/gobb-forum/gobb/internal/db/transaction"
	fiberlog "github.com/gobb-forum/gobb/internal/logger/adapter/fiber"
	"github.com/gobb-forum/gobb/internal/meta"
	"github.com/gobb-forum/gobb/internal/plugins"
	"github.com/gobb-forum/gobb/internal/privileges"
	"github.com/gobb-forum/gobb/internal/web/handler"
)

// Seeded users.
const (
	UIDAdmin         int64 = 1 // member of administrators
	UIDMember        int64 = 2 // registered user without admin privileges
	UIDCategoryAdmin int64 = 3 // holds admin:categories through CategoryAdmins
)

// CategoryAdmins is the group granted admin:categories.
const CategoryAdmins = "Category Admins"

// Seeded categories.
const (
	CidGeneral int64 = 1 // readable by registered users and guests
	CidStaff   int64 = 2 // readable by administrators only
	CidNews    int64 = 3 // child of General
)

// Env is a seeded forum.
type Env struct {
	DB    *gorm.DB
	Hooks *plugins.Registry
	Deps  *handler.Deps
}

// New returns a forum with three users and three categories.
func New(t *testing.T) *Env {
	t.Helper()

	ctx := context.Background()
	db := dbtest.Open(t)
	txm := transaction.New(db)
	hooks := plugins.NewRegistry()
	eval := privileges.NewEvaluator(db)

	admin, err := privileges.NewAdmin(db, txm, eval, hooks)
	require.NoError(t, err)
	catPrivs, err := privileges.NewCategories(db, txm, eval, hooks)
	require.NoError(t, err)

	configs := meta.NewConfigs(db, txm, hooks, config.Forum{CategoriesPerPage: 20})
	require.NoError(t, configs.Init(ctx))

	deps := &handler.Deps{
		Admin:         admin,
		CategoryPrivs: catPrivs,
		Categories:    categories.NewService(db, txm, catPrivs, configs),
		Configs:       configs,
		Settings:      meta.NewSettings(db, txm),
	}

	for _, name := range []string{
		models.GroupAdministrators,
		models.GroupRegisteredUsers,
		models.GroupGuests,
		models.GroupGlobalModerators,
		CategoryAdmins,
	} {
		require.NoError(t, groups.Create(db, &models.Group{Name: name, System: name != CategoryAdmins}))
	}

	for _, u := range []models.User{
		{ID: UIDAdmin, Username: "admin", Active: true},
		{ID: UIDMember, Username: "member", Active: true},
		{ID: UIDCategoryAdmin, Username: "catadmin", Active: true},
	} {
		require.NoError(t, db.Create(&u).Error)
	}

	require.NoError(t, groups.Join(db, []string{models.GroupAdministrators}, groups.UIDMember(UIDAdmin)))
	require.NoError(t, groups.Join(db, []string{CategoryAdmins}, groups.UIDMember(UIDCategoryAdmin)))
	require.NoError(t, admin.Give(ctx, []string{privileges.GroupPrefix + privileges.AdminCategories}, CategoryAdmins))

	for _, c := range []models.Category{
		{Name: "General", Order: 1},
		{Name: "Staff", Order: 2},
		{Name: "News", ParentCID: CidGeneral, Order: 1},
	} {
		require.NoError(t, deps.Categories.Create(ctx, &c, 0))
	}

	read := privileges.GroupPrivileges([]string{privileges.CategoryFind, privileges.CategoryTopicsRead})
	require.NoError(t, catPrivs.Give(ctx, read, []int64{CidGeneral, CidNews},
		models.GroupRegisteredUsers, models.GroupGuests))

	return &Env{DB: db, Hooks: hooks, Deps: deps}
}

// AsUser returns a middleware acting as the identity middleware for uid.
func AsUser(uid int64) fiber.Handler {
	return func(c fiber.Ctx) error {
		c.Locals(fiberlog.LocalsUID, uid)
		return c.Next()
	}
}

// Do sends a request with an optional JSON body and decodes a JSON answer into out.
func Do(t *testing.T, app *fiber.App, method, path string, body, out any) *http.Response {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}

	resp, err := app.Test(req)
	require.NoError(t, err)

	if out != nil {
		raw, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(raw, out), string(raw))
	}

	return resp
}
