package models

import (
	"time"

	"gorm.io/gorm"
)

// RootCID is the virtual parent of all top-level categories. It is never stored.
const RootCID int64 = 0

// DefaultSubCategoriesPerPage is used when a category has no explicit paging setting.
const DefaultSubCategoriesPerPage = 10

// Category represents a forum category. Categories form a tree through ParentCID.
type Category struct {
	// CID is the category id. Ids are never reused.
	CID int64 `gorm:"column:cid;primaryKey;autoIncrement" json:"cid"`
	// ParentCID is the parent category, RootCID for top-level categories.
	ParentCID int64 `gorm:"column:parent_cid;index;not null;default:0" json:"parentCid"`
	// Name is the display name of the category.
	Name string `gorm:"size:255;not null" json:"name"`
	// Description is a short human-readable text shown under the name.
	Description string `gorm:"size:1024" json:"description"`
	Icon        string `gorm:"size:64" json:"icon"`
	Color       string `gorm:"size:32" json:"color"`
	BgColor     string `gorm:"column:bg_color;size:32" json:"bgColor"`
	// Link turns the category into an external link when set.
	Link string `gorm:"size:1024" json:"link"`
	// Disabled categories stay in the tree but accept no new content.
	Disabled bool `json:"disabled"`
	// Order sorts siblings ascending, ties broken by CID.
	Order int `gorm:"column:sort_order;not null;default:0" json:"order"`
	// SubCategoriesPerPage caps the number of children shown below this category.
	SubCategoriesPerPage int            `gorm:"column:sub_categories_per_page;not null;default:10" json:"subCategoriesPerPage"`
	CreatedAt            time.Time      `json:"createdAt"`
	UpdatedAt            time.Time      `json:"updatedAt"`
	DeletedAt            gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName specifies the database table name for the Category model.
func (Category) TableName() string {
	return "categories"
}

// PerPage returns the paging setting, falling back to the default for unset rows.
func (c *Category) PerPage() int {
	if c.SubCategoriesPerPage <= 0 {
		return DefaultSubCategoriesPerPage
	}

	return c.SubCategoriesPerPage
}
