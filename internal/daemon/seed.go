package daemon

import (
	"context"

	"gorm.io/gorm"

	"github.com/gobb-forum/gobb/internal/db/controller/groups"
	"github.com/gobb-forum/gobb/internal/db/models"
	"github.com/gobb-forum/gobb/internal/privileges"
)

var systemGroups = []models.Group{
	{Name: models.GroupAdministrators, Description: "Forum Administrators", System: true},
	{Name: models.GroupRegisteredUsers, Description: "Registered users", System: true},
	{Name: models.GroupGuests, Description: "Users that are not logged in", System: true},
	{Name: models.GroupGlobalModerators, Description: "Moderators of every category", System: true},
}

// defaultPrivileges are given to registered users and guests on the root category.
var defaultPrivileges = privileges.GroupPrivileges([]string{
	privileges.CategoryFind,
	privileges.CategoryRead,
	privileges.CategoryTopicsRead,
})

// seed creates the missing system groups. On a fresh database it also gives
// the default privileges, later starts keep what the administrators changed.
func seed(ctx context.Context, db *gorm.DB, cats *privileges.Categories) error {
	names := make([]string, len(systemGroups))
	for i, g := range systemGroups {
		names[i] = g.Name
	}

	exists, err := groups.Exists(db.WithContext(ctx), names)
	if err != nil {
		return err
	}

	fresh := true
	for i, g := range systemGroups {
		if exists[i] {
			fresh = false
			continue
		}

		group := g
		if err := groups.Create(db.WithContext(ctx), &group); err != nil {
			return err
		}
	}

	if !fresh {
		return nil
	}

	return cats.Give(ctx, defaultPrivileges, []int64{models.RootCID},
		models.GroupRegisteredUsers, models.GroupGuests)
}
