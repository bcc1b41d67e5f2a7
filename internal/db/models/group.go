package models

import "time"

// Well known group names.
const (
	GroupAdministrators   = "administrators"
	GroupRegisteredUsers  = "registered-users"
	GroupGuests           = "guests"
	GroupGlobalModerators = "Global Moderators"
)

// Group represents a named set of members. Besides user groups this table also
// holds the synthetic privilege groups (cid:<n>:privileges:<p>).
type Group struct {
	// ID is the unique identifier for the group.
	ID uint `gorm:"primaryKey"`
	// Name is unique across user groups and privilege groups.
	Name string `gorm:"unique;size:255;not null"`
	// Description provides a human-readable explanation of the group's purpose.
	Description string `gorm:"size:255"`
	// System groups can not be deleted.
	System bool
	// Hidden groups are not listed to users.
	Hidden bool
	// Privilege is set for the synthetic privilege groups.
	Privilege bool `gorm:"index"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TableName specifies the database table name for the Group model.
// This overrides GORM's default pluralized table naming.
func (Group) TableName() string {
	return "groups"
}

// GroupMember is a single membership row. Member is a decimal uid for user
// memberships or a group name when the group is a privilege:groups group.
type GroupMember struct {
	GroupName string `gorm:"column:group_name;primaryKey;size:255"`
	Member    string `gorm:"column:member;primaryKey;size:255;index"`
	CreatedAt time.Time
}

// TableName specifies the database table name for the GroupMember model.
func (GroupMember) TableName() string {
	return "group_members"
}
