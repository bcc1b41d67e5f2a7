package privileges

import (
	"context"
	"slices"
	"strconv"

	"gorm.io/gorm"

	"github.com/gobb-forum/gobb/internal/db/controller/groups"
	"github.com/gobb-forum/gobb/internal/db/models"
	"github.com/gobb-forum/gobb/internal/db/transaction"
)

// GrantEvent is the payload of the give and rescind action hooks.
type GrantEvent struct {
	Privileges []string `json:"privileges"`
	GroupNames []string `json:"groupNames"`
	Subjects   []int64  `json:"subjects,omitempty"`
}

type membershipFunc func(db *gorm.DB, groupNames []string, member string) error

// validateGrant fails before any mutation is attempted.
func validateGrant(d *Domain, privileges, members []string) error {
	if len(privileges) == 0 {
		return ErrNoPrivileges
	}
	if len(members) == 0 {
		return ErrNoGroups
	}
	for _, p := range privileges {
		if !d.Known(p) {
			return ErrUnknownPrivilege
		}
	}
	for _, m := range members {
		if m == "" {
			return ErrNoGroups
		}
	}

	return nil
}

// giveOrRescind applies method for every member to the keys of all
// (subject, privilege) pairs inside one transaction.
func giveOrRescind(
	ctx context.Context,
	txm *transaction.Manager,
	method membershipFunc,
	privileges []string,
	subjects []int64,
	members []string,
) error {
	keys := make([]string, 0, len(subjects)*len(privileges))
	for _, s := range subjects {
		for _, p := range privileges {
			keys = append(keys, Key(s, p))
		}
	}

	return txm.Transaction(ctx, func(tx *transaction.Tx) error {
		for _, m := range members {
			if err := method(tx.DB(), keys, m); err != nil {
				return err
			}
		}

		return nil
	}, nil)
}

// UserRow is one user holding at least one privilege of a listing.
type UserRow struct {
	UID        int64           `json:"uid"`
	Username   string          `json:"username"`
	Privileges map[string]bool `json:"privileges"`
}

// GroupRow is one group of a listing.
type GroupRow struct {
	Name       string          `json:"name"`
	IsSystem   bool            `json:"isSystem"`
	Privileges map[string]bool `json:"privileges"`
}

func memberSets(db *gorm.DB, subject int64, privileges []string) ([]string, map[string][]string, error) {
	keys := make([]string, len(privileges))
	for i, p := range privileges {
		keys[i] = Key(subject, p)
	}

	members, err := groups.MembersOf(db, keys)

	return keys, members, err
}

// userPrivileges lists the users holding any of privileges on subject.
func userPrivileges(db *gorm.DB, subject int64, privileges []string) ([]UserRow, error) {
	keys, sets, err := memberSets(db, subject, privileges)
	if err != nil {
		return nil, err
	}

	var uids []string
	for _, k := range keys {
		for _, m := range sets[k] {
			if !slices.Contains(uids, m) {
				uids = append(uids, m)
			}
		}
	}

	rows := make([]UserRow, 0, len(uids))
	if len(uids) == 0 {
		return rows, nil
	}

	ids := make([]int64, 0, len(uids))
	for _, m := range uids {
		if id, err := strconv.ParseInt(m, 10, 64); err == nil {
			ids = append(ids, id)
		}
	}

	var users []models.User
	if err := db.Where("id IN ?", ids).Find(&users).Error; err != nil {
		return nil, err
	}

	byID := make(map[string]models.User, len(users))
	for _, u := range users {
		byID[groups.UIDMember(u.ID)] = u
	}

	for _, uid := range uids {
		u, ok := byID[uid]
		if !ok {
			continue
		}

		row := UserRow{UID: u.ID, Username: u.Username, Privileges: make(map[string]bool, len(privileges))}
		for i, p := range privileges {
			row.Privileges[p] = slices.Contains(sets[keys[i]], uid)
		}
		rows = append(rows, row)
	}

	return rows, nil
}

// groupPrivileges lists guests, every group holding any of privileges on
// subject, registered-users and Global Moderators first, administrators left out.
func groupPrivileges(db *gorm.DB, subject int64, privileges []string) ([]GroupRow, error) {
	keys, sets, err := memberSets(db, subject, privileges)
	if err != nil {
		return nil, err
	}

	var all []models.Group
	if err := db.Where("privilege = ?", false).Order("created_at, id").Find(&all).Error; err != nil {
		return nil, err
	}

	holding := make(map[string]struct{})
	for _, k := range keys {
		for _, m := range sets[k] {
			holding[m] = struct{}{}
		}
	}

	names := []string{models.GroupGuests}
	system := map[string]bool{models.GroupGuests: true}
	for _, g := range all {
		system[g.Name] = g.System
		if _, ok := holding[g.Name]; ok && g.Name != models.GroupGuests {
			names = append(names, g.Name)
		}
	}

	names = moveToFront(names, models.GroupGlobalModerators)
	names = moveToFront(names, models.GroupRegisteredUsers)
	names = slices.DeleteFunc(names, func(n string) bool { return n == models.GroupAdministrators })

	rows := make([]GroupRow, 0, len(names))
	for _, name := range names {
		row := GroupRow{Name: name, IsSystem: system[name], Privileges: make(map[string]bool, len(privileges))}
		for i, p := range privileges {
			row.Privileges[p] = slices.Contains(sets[keys[i]], name)
		}
		rows = append(rows, row)
	}

	return rows, nil
}

// moveToFront moves name to the front of names, inserting it when absent.
func moveToFront(names []string, name string) []string {
	out := make([]string, 0, len(names)+1)
	out = append(out, name)
	for _, n := range names {
		if n != name {
			out = append(out, n)
		}
	}

	return out
}
