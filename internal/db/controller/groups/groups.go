// Package groups provides membership operations on user and privilege groups.
package groups

import (
	"errors"
	"strconv"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/gobb-forum/gobb/internal/db/models"
)

const (
	nameQueryPattern   = "name = ?"
	memberQueryPattern = "member = ?"
)

var (
	// ErrGroupNameEmpty is returned when a group name is empty.
	ErrGroupNameEmpty = errors.New("group name cannot be empty")
	// ErrGroupNotFound is returned when a group does not exist.
	ErrGroupNotFound = errors.New("group not found")
	// ErrGroupAlreadyExists is returned when creating a group that already exists.
	ErrGroupAlreadyExists = errors.New("group already exists")
	// ErrDBNil is returned when the database connection is nil.
	ErrDBNil = errors.New("database connection is nil")
)

// UIDMember renders a uid as a group member.
func UIDMember(uid int64) string {
	return strconv.FormatInt(uid, 10)
}

// implicit returns the groups every uid belongs to without a stored row.
func implicit(uid int64) []string {
	if uid <= models.GuestUID {
		return []string{models.GroupGuests}
	}

	return []string{models.GroupRegisteredUsers}
}

// Create creates a new group.
func Create(db *gorm.DB, group *models.Group) error {
	if db == nil {
		return ErrDBNil
	}
	if group.Name == "" {
		return ErrGroupNameEmpty
	}

	var count int64
	if err := db.Model(&models.Group{}).Where(nameQueryPattern, group.Name).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return ErrGroupAlreadyExists
	}

	return db.Create(group).Error
}

// Get retrieves a group by name.
func Get(db *gorm.DB, name string) (*models.Group, error) {
	if db == nil {
		return nil, ErrDBNil
	}
	if name == "" {
		return nil, ErrGroupNameEmpty
	}

	var group models.Group
	result := db.Where(nameQueryPattern, name).First(&group)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrGroupNotFound
		}
		return nil, result.Error
	}

	return &group, nil
}

// Exists reports for each name whether the group exists.
func Exists(db *gorm.DB, names []string) ([]bool, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	var found []string
	if err := db.Model(&models.Group{}).Where("name IN ?", names).Pluck("name", &found).Error; err != nil {
		return nil, err
	}

	set := toSet(found)
	out := make([]bool, len(names))
	for i, n := range names {
		_, out[i] = set[n]
	}

	return out, nil
}

// Join adds member to every group in groupNames. Missing groups are created
// as privilege groups. Existing memberships are left untouched.
func Join(db *gorm.DB, groupNames []string, member string) error {
	if db == nil {
		return ErrDBNil
	}
	if len(groupNames) == 0 {
		return nil
	}

	if err := ensure(db, groupNames); err != nil {
		return err
	}

	rows := make([]models.GroupMember, 0, len(groupNames))
	for _, g := range groupNames {
		if g == "" {
			return ErrGroupNameEmpty
		}
		rows = append(rows, models.GroupMember{GroupName: g, Member: member})
	}

	return db.Clauses(clause.OnConflict{DoNothing: true}).Create(&rows).Error
}

// Leave removes member from every group in groupNames.
func Leave(db *gorm.DB, groupNames []string, member string) error {
	if db == nil {
		return ErrDBNil
	}
	if len(groupNames) == 0 {
		return nil
	}

	return db.Where("group_name IN ? AND member = ?", groupNames, member).
		Delete(&models.GroupMember{}).Error
}

// ensure creates the privilege groups of names that do not exist yet.
func ensure(db *gorm.DB, names []string) error {
	exists, err := Exists(db, names)
	if err != nil {
		return err
	}

	var missing []models.Group
	seen := make(map[string]struct{}, len(names))
	for i, n := range names {
		if exists[i] {
			continue
		}
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		missing = append(missing, models.Group{Name: n, Hidden: true, System: true, Privilege: true})
	}

	if len(missing) == 0 {
		return nil
	}

	return db.Clauses(clause.OnConflict{DoNothing: true}).Create(&missing).Error
}

// Members returns the members of group ordered by join time.
func Members(db *gorm.DB, group string) ([]string, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	var out []string
	err := db.Model(&models.GroupMember{}).
		Where("group_name = ?", group).
		Order("created_at, member").
		Pluck("member", &out).Error

	return out, err
}

// MembersOf returns the members of each group in groupNames.
func MembersOf(db *gorm.DB, groupNames []string) (map[string][]string, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	out := make(map[string][]string, len(groupNames))
	if len(groupNames) == 0 {
		return out, nil
	}

	var rows []models.GroupMember
	if err := db.Where("group_name IN ?", groupNames).Order("created_at, member").Find(&rows).Error; err != nil {
		return nil, err
	}

	for _, r := range rows {
		out[r.GroupName] = append(out[r.GroupName], r.Member)
	}

	return out, nil
}

// IsMemberOfGroups reports for each group whether member belongs to it.
// Only stored memberships are considered.
func IsMemberOfGroups(db *gorm.DB, member string, groupNames []string) ([]bool, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	out := make([]bool, len(groupNames))
	if len(groupNames) == 0 {
		return out, nil
	}

	var found []string
	err := db.Model(&models.GroupMember{}).
		Where("group_name IN ? AND member = ?", groupNames, member).
		Pluck("group_name", &found).Error
	if err != nil {
		return nil, err
	}

	set := toSet(found)
	for i, g := range groupNames {
		_, out[i] = set[g]
	}

	return out, nil
}

// UserGroups returns the user groups of uid including the implicit ones.
func UserGroups(db *gorm.DB, uid int64) ([]string, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	var joined []string
	err := db.Model(&models.GroupMember{}).
		Where(memberQueryPattern, UIDMember(uid)).
		Pluck("group_name", &joined).Error
	if err != nil {
		return nil, err
	}

	var stored []string
	if len(joined) > 0 {
		err = db.Model(&models.Group{}).
			Where("name IN ? AND privilege = ?", joined, false).
			Order("name").
			Pluck("name", &stored).Error
		if err != nil {
			return nil, err
		}
	}

	out := implicit(uid)
	for _, g := range stored {
		if g != out[0] {
			out = append(out, g)
		}
	}

	return out, nil
}

// IsMember reports whether uid is a member of group, implicit groups included.
func IsMember(db *gorm.DB, uid int64, group string) (bool, error) {
	for _, g := range implicit(uid) {
		if g == group {
			return true, nil
		}
	}

	res, err := IsMemberOfGroups(db, UIDMember(uid), []string{group})
	if err != nil {
		return false, err
	}

	return res[0], nil
}

// IsAdministrator reports whether uid is a super-user.
func IsAdministrator(db *gorm.DB, uid int64) (bool, error) {
	if uid <= models.GuestUID {
		return false, nil
	}

	return IsMember(db, uid, models.GroupAdministrators)
}

// MembershipsLike returns every membership row whose group name starts with prefix.
func MembershipsLike(db *gorm.DB, prefix string) ([]models.GroupMember, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	var rows []models.GroupMember
	err := db.Where("SUBSTR(group_name, 1, ?) = ?", len(prefix), prefix).
		Order("group_name, member").
		Find(&rows).Error

	return rows, err
}

// RemoveMember drops member from every group. Used when a group is deleted.
func RemoveMember(db *gorm.DB, member string) error {
	if db == nil {
		return ErrDBNil
	}

	return db.Where(memberQueryPattern, member).Delete(&models.GroupMember{}).Error
}

func toSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}

	return set
}
