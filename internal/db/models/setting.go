// Package models contains database model definitions.
package models

import "time"

// Setting is a single runtime configuration field.
type Setting struct {
	ID        uint64 `gorm:"primaryKey"`
	Name      string `gorm:"unique;size:255;not null"`
	Value     []byte
	UpdatedAt time.Time
}

// All returns every model the service migrates.
func All() []any {
	return []any{
		&Category{},
		&User{},
		&Group{},
		&GroupMember{},
		&CategoryWatch{},
		&Setting{},
	}
}
