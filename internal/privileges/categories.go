package privileges

import (
	"context"
	"slices"

	"gorm.io/gorm"

	"github.com/gobb-forum/gobb/internal/db/controller/groups"
	"github.com/gobb-forum/gobb/internal/db/transaction"
	"github.com/gobb-forum/gobb/internal/plugins"
)

// Category privileges.
const (
	CategoryFind         = "find"
	CategoryRead         = "read"
	CategoryTopicsRead   = "topics:read"
	CategoryTopicsCreate = "topics:create"
	CategoryTopicsReply  = "topics:reply"
	CategoryPostsEdit    = "posts:edit"
	CategoryPostsDelete  = "posts:delete"
	CategoryModerate     = "moderate"
)

// Category hooks.
var (
	HookCategoriesGive    = plugins.Action[GrantEvent]{Name: "action:privileges.categories.give"}
	HookCategoriesRescind = plugins.Action[GrantEvent]{Name: "action:privileges.categories.rescind"}
)

// CategoryDomain describes the per category privileges.
func CategoryDomain() *Domain {
	users := []string{
		CategoryFind,
		CategoryRead,
		CategoryTopicsRead,
		CategoryTopicsCreate,
		CategoryTopicsReply,
		CategoryPostsEdit,
		CategoryPostsDelete,
		CategoryModerate,
	}

	return &Domain{
		Name: "categories",
		Labels: []Label{
			{Name: "[[admin/manage/privileges:find-category]]"},
			{Name: "[[admin/manage/privileges:access-category]]"},
			{Name: "[[admin/manage/privileges:access-topics]]"},
			{Name: "[[admin/manage/privileges:create-topics]]"},
			{Name: "[[admin/manage/privileges:reply-to-topics]]"},
			{Name: "[[admin/manage/privileges:edit-posts]]"},
			{Name: "[[admin/manage/privileges:delete-posts]]"},
			{Name: "[[admin/manage/privileges:moderate]]"},
		},
		UserPrivileges:  users,
		GroupPrivileges: GroupPrivileges(users),
	}
}

// Categories evaluates and mutates per category privileges.
type Categories struct {
	*Domain

	db    *gorm.DB
	txm   *transaction.Manager
	eval  *Evaluator
	hooks *plugins.Registry
}

// NewCategories creates the category domain service.
func NewCategories(db *gorm.DB, txm *transaction.Manager, eval *Evaluator, hooks *plugins.Registry) (*Categories, error) {
	d := CategoryDomain()
	if err := d.Validate(); err != nil {
		return nil, err
	}

	return &Categories{Domain: d, db: db, txm: txm, eval: eval, hooks: hooks}, nil
}

// FilterCids keeps the cids uid holds privilege on, preserving input order.
func (c *Categories) FilterCids(ctx context.Context, privilege string, cids []int64, uid int64) ([]int64, error) {
	return c.eval.FilterCids(ctx, privilege, cids, uid)
}

// IsUserAllowedTo checks privilege of uid on every cid.
func (c *Categories) IsUserAllowedTo(ctx context.Context, privilege string, cids []int64, uid int64) ([]bool, error) {
	return c.eval.IsUserAllowedTo(ctx, []string{privilege}, uid, cids)
}

// IsAdministrator reports whether uid is a super-user.
func (c *Categories) IsAdministrator(ctx context.Context, uid int64) (bool, error) {
	return c.eval.IsAdministrator(ctx, uid)
}

// Give grants privileges on cids to every member of groupNames.
func (c *Categories) Give(ctx context.Context, privileges []string, cids []int64, groupNames ...string) error {
	return c.apply(ctx, groups.Join, HookCategoriesGive, privileges, cids, groupNames)
}

// Rescind revokes privileges on cids from every member of groupNames.
func (c *Categories) Rescind(ctx context.Context, privileges []string, cids []int64, groupNames ...string) error {
	return c.apply(ctx, groups.Leave, HookCategoriesRescind, privileges, cids, groupNames)
}

func (c *Categories) apply(
	ctx context.Context,
	method membershipFunc,
	hook plugins.Action[GrantEvent],
	privileges []string,
	cids []int64,
	groupNames []string,
) error {
	if err := validateGrant(c.Domain, privileges, groupNames); err != nil {
		return err
	}
	if len(cids) == 0 {
		return ErrInvalidArguments
	}

	if err := giveOrRescind(ctx, c.txm, method, privileges, cids, groupNames); err != nil {
		return err
	}

	plugins.FireAction(ctx, c.hooks, hook, GrantEvent{
		Privileges: slices.Clone(privileges),
		GroupNames: slices.Clone(groupNames),
		Subjects:   slices.Clone(cids),
	})

	return nil
}

// List returns labels and the current grants on cid.
func (c *Categories) List(ctx context.Context, cid int64) (*ListData, error) {
	db := c.db.WithContext(ctx)

	users, err := userPrivileges(db, cid, c.UserPrivileges)
	if err != nil {
		return nil, err
	}

	groupRows, err := groupPrivileges(db, cid, c.GroupPrivileges)
	if err != nil {
		return nil, err
	}

	return &ListData{
		Labels:      LabelSet{Users: slices.Clone(c.Labels), Groups: slices.Clone(c.Labels)},
		Users:       users,
		Groups:      groupRows,
		ColumnCount: len(c.Labels) + 2,
	}, nil
}
