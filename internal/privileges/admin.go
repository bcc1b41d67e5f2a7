package privileges

import (
	"context"
	"encoding/json"
	"maps"
	"regexp"
	"slices"

	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/gobb-forum/gobb/internal/db/controller/groups"
	"github.com/gobb-forum/gobb/internal/db/transaction"
	"github.com/gobb-forum/gobb/internal/plugins"
)

// Admin privileges.
const (
	AdminDashboard  = "admin:dashboard"
	AdminCategories = "admin:categories"
	AdminSettings   = "admin:settings"

	// AdminLanding guards the empty admin path. It is not part of the listed privileges.
	AdminLanding = "manage:dashboard"
)

// AdminSubject is the subject admin privileges are granted and checked on.
const AdminSubject int64 = 0

// Admin hooks.
var (
	HookAdminListHuman       = plugins.Filter[[]Label]{Name: "filter:privileges.admin.list_human"}
	HookAdminGroupsListHuman = plugins.Filter[[]Label]{Name: "filter:privileges.admin.groups.list_human"}
	HookAdminList            = plugins.Filter[[]string]{Name: "filter:privileges.admin.list"}
	HookAdminGroupsList      = plugins.Filter[[]string]{Name: "filter:privileges.admin.groups.list"}
	HookAdminGet             = plugins.Filter[PrivData]{Name: "filter:privileges.admin.get"}
	HookAdminGive            = plugins.Action[GrantEvent]{Name: "action:privileges.admin.give"}
	HookAdminRescind         = plugins.Action[GrantEvent]{Name: "action:privileges.admin.rescind"}
)

// AdminDomain describes the admin control panel.
func AdminDomain() *Domain {
	users := []string{AdminDashboard, AdminCategories, AdminSettings}

	return &Domain{
		Name: "admin",
		Labels: []Label{
			{Name: "[[admin/manage/privileges:admin-dashboard]]"},
			{Name: "[[admin/manage/privileges:admin-categories]]"},
			{Name: "[[admin/manage/privileges:admin-settings]]"},
		},
		UserPrivileges:  users,
		GroupPrivileges: GroupPrivileges(users),
		Landing:         AdminLanding,
		Routes: map[string]string{
			"dashboard":         AdminDashboard,
			"manage/categories": AdminCategories,
			"extend/plugins":    AdminSettings,
			"extend/widgets":    AdminSettings,
			"extend/rewards":    AdminSettings,
		},
		Patterns: []Route{
			{Pattern: regexp.MustCompile(`^manage/categories/\d+`), Privilege: AdminCategories},
			{Pattern: regexp.MustCompile(`^settings/[\w\-]+$`), Privilege: AdminSettings},
			{Pattern: regexp.MustCompile(`^appearance/[\w]+$`), Privilege: AdminSettings},
			{Pattern: regexp.MustCompile(`^plugins/[\w\-]+$`), Privilege: AdminSettings},
		},
		Sockets: map[string]string{
			"admin.rooms.getAll":  AdminDashboard,
			"admin.analytics.get": AdminDashboard,

			"admin.categories.getAll":           AdminCategories,
			"admin.categories.create":           AdminCategories,
			"admin.categories.update":           AdminCategories,
			"admin.categories.purge":            AdminCategories,
			"admin.categories.copySettingsFrom": AdminCategories,

			"admin.getSearchDict":       AdminSettings,
			"admin.config.setMultiple":  AdminSettings,
			"admin.config.remove":       AdminSettings,
			"admin.themes.getInstalled": AdminSettings,
			"admin.themes.set":          AdminSettings,
			"admin.reloadAllSessions":   AdminSettings,
			"admin.settings.get":        AdminSettings,
		},
	}
}

// PrivData is the result of Admin.Get. It encodes as a flat object of
// privilege flags plus the superadmin field.
type PrivData struct {
	Privileges map[string]bool
	Superadmin bool
}

// MarshalJSON implements json.Marshaler.
func (p PrivData) MarshalJSON() ([]byte, error) {
	flat := make(map[string]bool, len(p.Privileges)+1)
	maps.Copy(flat, p.Privileges)
	flat["superadmin"] = p.Superadmin

	return json.Marshal(flat)
}

// LabelSet holds the column labels of a listing.
type LabelSet struct {
	Users  []Label `json:"users"`
	Groups []Label `json:"groups"`
}

// ListData is the result of Admin.List.
type ListData struct {
	Labels      LabelSet   `json:"labels"`
	Users       []UserRow  `json:"users"`
	Groups      []GroupRow `json:"groups"`
	ColumnCount int        `json:"columnCount"`
}

// Admin evaluates and mutates the admin privilege domain.
type Admin struct {
	*Domain

	db    *gorm.DB
	txm   *transaction.Manager
	eval  *Evaluator
	hooks *plugins.Registry
}

// NewAdmin creates the admin domain service. It fails when the domain is inconsistent.
func NewAdmin(db *gorm.DB, txm *transaction.Manager, eval *Evaluator, hooks *plugins.Registry) (*Admin, error) {
	d := AdminDomain()
	if err := d.Validate(); err != nil {
		return nil, err
	}

	return &Admin{Domain: d, db: db, txm: txm, eval: eval, hooks: hooks}, nil
}

// List returns labels and the current grants on the admin subject.
func (a *Admin) List(ctx context.Context) (*ListData, error) {
	var (
		out     ListData
		g, gctx = errgroup.WithContext(ctx)
		db      = a.db.WithContext(gctx)
	)

	g.Go(func() error {
		var err error
		out.Labels.Users, err = plugins.ApplyFilter(gctx, a.hooks, HookAdminListHuman, slices.Clone(a.Labels))
		return err
	})
	g.Go(func() error {
		var err error
		out.Labels.Groups, err = plugins.ApplyFilter(gctx, a.hooks, HookAdminGroupsListHuman, slices.Clone(a.Labels))
		return err
	})
	g.Go(func() error {
		list, err := plugins.ApplyFilter(gctx, a.hooks, HookAdminList, slices.Clone(a.UserPrivileges))
		if err != nil {
			return err
		}
		out.Users, err = userPrivileges(db, AdminSubject, list)
		return err
	})
	g.Go(func() error {
		list, err := plugins.ApplyFilter(gctx, a.hooks, HookAdminGroupsList, slices.Clone(a.GroupPrivileges))
		if err != nil {
			return err
		}
		out.Groups, err = groupPrivileges(db, AdminSubject, list)
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	out.ColumnCount = len(out.Labels.Users) + 2

	return &out, nil
}

// Get returns every admin privilege of uid. Super-users hold all of them.
func (a *Admin) Get(ctx context.Context, uid int64) (PrivData, error) {
	var (
		allowed []bool
		isAdmin bool
		g, gctx = errgroup.WithContext(ctx)
	)

	g.Go(func() error {
		var err error
		allowed, err = a.eval.IsUserAllowedTo(gctx, a.UserPrivileges, uid, []int64{AdminSubject})
		return err
	})
	g.Go(func() error {
		var err error
		isAdmin, err = groups.IsAdministrator(a.db.WithContext(gctx), uid)
		return err
	})

	if err := g.Wait(); err != nil {
		return PrivData{}, err
	}

	data := PrivData{Privileges: make(map[string]bool, len(a.UserPrivileges)), Superadmin: isAdmin}
	for i, p := range a.UserPrivileges {
		data.Privileges[p] = allowed[i] || isAdmin
	}

	return plugins.ApplyFilter(ctx, a.hooks, HookAdminGet, data)
}

// Can checks a single admin privilege.
func (a *Admin) Can(ctx context.Context, privilege string, uid int64) (bool, error) {
	allowed, err := a.eval.IsUserAllowedTo(ctx, []string{privilege}, uid, []int64{AdminSubject})
	if err != nil {
		return false, err
	}

	return allowed[0], nil
}

// CanPath checks the privilege guarding an admin path. Unmapped paths are
// reserved to super-users.
func (a *Admin) CanPath(ctx context.Context, path string, uid int64) (bool, error) {
	if privilege, ok := a.Resolve(path); ok {
		return a.Can(ctx, privilege, uid)
	}

	return a.eval.IsAdministrator(ctx, uid)
}

// CanSocket checks the privilege guarding an admin socket method. Unmapped
// methods are reserved to super-users.
func (a *Admin) CanSocket(ctx context.Context, method string, uid int64) (bool, error) {
	if privilege, ok := a.ResolveSocket(method); ok {
		return a.Can(ctx, privilege, uid)
	}

	return a.eval.IsAdministrator(ctx, uid)
}

// Give grants privileges to every member of groupNames.
func (a *Admin) Give(ctx context.Context, privileges []string, groupNames ...string) error {
	return a.apply(ctx, groups.Join, HookAdminGive, privileges, groupNames)
}

// Rescind revokes privileges from every member of groupNames.
func (a *Admin) Rescind(ctx context.Context, privileges []string, groupNames ...string) error {
	return a.apply(ctx, groups.Leave, HookAdminRescind, privileges, groupNames)
}

func (a *Admin) apply(
	ctx context.Context,
	method membershipFunc,
	hook plugins.Action[GrantEvent],
	privileges, groupNames []string,
) error {
	if err := validateGrant(a.Domain, privileges, groupNames); err != nil {
		return err
	}

	if err := giveOrRescind(ctx, a.txm, method, privileges, []int64{AdminSubject}, groupNames); err != nil {
		return err
	}

	plugins.FireAction(ctx, a.hooks, hook, GrantEvent{
		Privileges: slices.Clone(privileges),
		GroupNames: slices.Clone(groupNames),
	})

	return nil
}

