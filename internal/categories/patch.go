package categories

// Patch is a partial category update as sent by clients. Nil fields are left untouched.
type Patch struct {
	Name                 *string `json:"name" validate:"omitempty,min=1,max=255"`
	Description          *string `json:"description"`
	Icon                 *string `json:"icon"`
	Color                *string `json:"color"`
	BgColor              *string `json:"bgColor"`
	Link                 *string `json:"link"`
	ParentCID            *int64  `json:"parentCid" validate:"omitempty,min=0"`
	Disabled             *bool   `json:"disabled"`
	Order                *int    `json:"order"`
	SubCategoriesPerPage *int    `json:"subCategoriesPerPage" validate:"omitempty,min=1"`
}

// Columns returns the set fields keyed by column name.
func (p Patch) Columns() map[string]any {
	out := map[string]any{}

	setString := func(col string, v *string) {
		if v != nil {
			out[col] = *v
		}
	}

	setString("name", p.Name)
	setString("description", p.Description)
	setString("icon", p.Icon)
	setString("color", p.Color)
	setString("bg_color", p.BgColor)
	setString("link", p.Link)

	if p.ParentCID != nil {
		out["parent_cid"] = *p.ParentCID
	}
	if p.Disabled != nil {
		out["disabled"] = *p.Disabled
	}
	if p.Order != nil {
		out["sort_order"] = *p.Order
	}
	if p.SubCategoriesPerPage != nil {
		out["sub_categories_per_page"] = *p.SubCategoriesPerPage
	}

	return out
}
