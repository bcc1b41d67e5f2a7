package privileges

import (
	"context"
	"slices"

	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/gobb-forum/gobb/internal/db/controller/groups"
	"github.com/gobb-forum/gobb/internal/db/models"
)

// Evaluator decides privilege checks from group memberships.
type Evaluator struct {
	db *gorm.DB
}

// NewEvaluator creates an Evaluator reading memberships from db.
func NewEvaluator(db *gorm.DB) *Evaluator {
	return &Evaluator{db: db}
}

// IsAdministrator reports whether uid is a super-user.
func (e *Evaluator) IsAdministrator(ctx context.Context, uid int64) (bool, error) {
	return groups.IsAdministrator(e.db.WithContext(ctx), uid)
}

// IsUserAllowedTo checks privileges of uid on subjects. Either privileges or
// subjects may hold more than one element, the result is parallel to that
// list. Super-users are allowed everything.
func (e *Evaluator) IsUserAllowedTo(ctx context.Context, privileges []string, uid int64, subjects []int64) ([]bool, error) {
	if len(privileges) > 1 && len(subjects) > 1 {
		return nil, ErrInvalidArguments
	}
	if len(privileges) == 0 || len(subjects) == 0 {
		return []bool{}, nil
	}

	// one (privilege, subject) pair per result slot
	n := max(len(privileges), len(subjects))
	userKeys := make([]string, n)
	groupKeys := make([]string, n)
	names := make([]string, n)
	for i := range n {
		p := privileges[min(i, len(privileges)-1)]
		s := subjects[min(i, len(subjects)-1)]
		userKeys[i] = Key(s, p)
		groupKeys[i] = GroupKey(s, p)
		names[i] = p
	}

	var (
		isAdmin    bool
		direct     []bool
		viaGroups  []bool
		g, gctx    = errgroup.WithContext(ctx)
		db         = e.db.WithContext(gctx)
		registered = uid > models.GuestUID
	)

	g.Go(func() error {
		var err error
		isAdmin, err = groups.IsAdministrator(db, uid)
		return err
	})

	if registered {
		g.Go(func() error {
			var err error
			direct, err = groups.IsMemberOfGroups(db, groups.UIDMember(uid), userKeys)
			return err
		})
	}

	g.Go(func() error {
		var err error
		viaGroups, err = e.isMemberOfGroupsList(db, uid, groupKeys)
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]bool, n)
	for i := range out {
		out[i] = isAdmin || viaGroups[i] || (registered && direct[i])
		observe(names[i], out[i])
	}

	return out, nil
}

// isMemberOfGroupsList reports for each key whether one of the groups of uid
// is a member of it.
func (e *Evaluator) isMemberOfGroupsList(db *gorm.DB, uid int64, keys []string) ([]bool, error) {
	userGroups, err := groups.UserGroups(db, uid)
	if err != nil {
		return nil, err
	}

	members, err := groups.MembersOf(db, keys)
	if err != nil {
		return nil, err
	}

	out := make([]bool, len(keys))
	for i, key := range keys {
		for _, m := range members[key] {
			if slices.Contains(userGroups, m) {
				out[i] = true
				break
			}
		}
	}

	return out, nil
}

// FilterCids keeps the cids uid holds privilege on, preserving input order.
func (e *Evaluator) FilterCids(ctx context.Context, privilege string, cids []int64, uid int64) ([]int64, error) {
	if len(cids) == 0 {
		return []int64{}, nil
	}

	allowed, err := e.IsUserAllowedTo(ctx, []string{privilege}, uid, cids)
	if err != nil {
		return nil, err
	}

	out := make([]int64, 0, len(cids))
	for i, cid := range cids {
		if allowed[i] {
			out = append(out, cid)
		}
	}

	return out, nil
}
