// Package categories provides storage operations on the category tree.
package categories

import (
	"errors"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/gobb-forum/gobb/internal/db/controller/groups"
	"github.com/gobb-forum/gobb/internal/db/models"
)

const (
	cidQueryPattern    = "cid = ?"
	cidInQueryPattern  = "cid IN ?"
	siblingOrder       = "sort_order, cid"
	privilegeKeyPrefix = "cid:"
)

// likeEscaper quotes LIKE wildcards for the '!' escape character.
var likeEscaper = strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")

var (
	// ErrCategoryNotFound is returned when a category does not exist.
	ErrCategoryNotFound = errors.New("category not found")
	// ErrCategoryNameEmpty is returned when creating a category without a name.
	ErrCategoryNameEmpty = errors.New("category name cannot be empty")
	// ErrParentNotFound is returned when the parent of a category does not exist.
	ErrParentNotFound = errors.New("parent category not found")
	// ErrParentCycle is returned when a category would become its own ancestor.
	ErrParentCycle = errors.New("category can not be moved below itself")
	// ErrDBNil is returned when the database connection is nil.
	ErrDBNil = errors.New("database connection is nil")
)

// Get retrieves a category by id.
func Get(db *gorm.DB, cid int64) (*models.Category, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	var category models.Category
	result := db.Where(cidQueryPattern, cid).First(&category)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrCategoryNotFound
		}
		return nil, result.Error
	}

	return &category, nil
}

// GetMany retrieves categories in the order of cids. Unknown ids are skipped.
func GetMany(db *gorm.DB, cids []int64) ([]models.Category, error) {
	if db == nil {
		return nil, ErrDBNil
	}
	if len(cids) == 0 {
		return []models.Category{}, nil
	}

	var rows []models.Category
	if err := db.Where(cidInQueryPattern, cids).Find(&rows).Error; err != nil {
		return nil, err
	}

	byID := make(map[int64]models.Category, len(rows))
	for _, r := range rows {
		byID[r.CID] = r
	}

	out := make([]models.Category, 0, len(rows))
	for _, cid := range cids {
		if c, ok := byID[cid]; ok {
			out = append(out, c)
		}
	}

	return out, nil
}

// All returns every category in sibling order.
func All(db *gorm.DB) ([]models.Category, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	var rows []models.Category
	err := db.Order(siblingOrder).Find(&rows).Error

	return rows, err
}

// ChildrenCids returns the children of cid in sibling order.
func ChildrenCids(db *gorm.DB, cid int64) ([]int64, error) {
	children, err := ChildrenOf(db, []int64{cid})
	if err != nil {
		return nil, err
	}

	return children[cid], nil
}

// ChildrenOf returns the children of every parent in one query.
func ChildrenOf(db *gorm.DB, parents []int64) (map[int64][]int64, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	out := make(map[int64][]int64, len(parents))
	if len(parents) == 0 {
		return out, nil
	}

	var rows []models.Category
	err := db.Select("cid", "parent_cid").
		Where("parent_cid IN ?", parents).
		Order(siblingOrder).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	for _, r := range rows {
		out[r.ParentCID] = append(out[r.ParentCID], r.CID)
	}

	return out, nil
}

// DescendantCids walks the tree below cid breadth first. cid itself is not included.
func DescendantCids(db *gorm.DB, cid int64) ([]int64, error) {
	var (
		out     []int64
		visited = map[int64]struct{}{cid: {}}
		level   = []int64{cid}
	)

	for len(level) > 0 {
		children, err := ChildrenOf(db, level)
		if err != nil {
			return nil, err
		}

		var next []int64
		for _, parent := range level {
			for _, child := range children[parent] {
				if _, seen := visited[child]; seen {
					continue
				}
				visited[child] = struct{}{}
				out = append(out, child)
				next = append(next, child)
			}
		}

		level = next
	}

	return out, nil
}

// ParentCid returns the parent of cid.
func ParentCid(db *gorm.DB, cid int64) (int64, error) {
	parents, err := ParentCids(db, []int64{cid})
	if err != nil {
		return 0, err
	}

	parent, ok := parents[cid]
	if !ok {
		return 0, ErrCategoryNotFound
	}

	return parent, nil
}

// ParentCids returns the parent of every known cid.
func ParentCids(db *gorm.DB, cids []int64) (map[int64]int64, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	out := make(map[int64]int64, len(cids))
	if len(cids) == 0 {
		return out, nil
	}

	var rows []models.Category
	if err := db.Select("cid", "parent_cid").Where(cidInQueryPattern, cids).Find(&rows).Error; err != nil {
		return nil, err
	}

	for _, r := range rows {
		out[r.CID] = r.ParentCID
	}

	return out, nil
}

// AncestorCids walks parent links upward from cid. The root is not included.
func AncestorCids(db *gorm.DB, cid int64) ([]int64, error) {
	var (
		out     []int64
		visited = map[int64]struct{}{cid: {}}
		current = cid
	)

	for {
		parent, err := ParentCid(db, current)
		if errors.Is(err, ErrCategoryNotFound) {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
		if parent == models.RootCID {
			return out, nil
		}
		if _, seen := visited[parent]; seen {
			return out, nil
		}

		visited[parent] = struct{}{}
		out = append(out, parent)
		current = parent
	}
}

// SubCategoriesPerPage returns the paging setting of every known cid.
func SubCategoriesPerPage(db *gorm.DB, cids []int64) (map[int64]int, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	out := make(map[int64]int, len(cids))
	if len(cids) == 0 {
		return out, nil
	}

	var rows []models.Category
	err := db.Select("cid", "sub_categories_per_page").Where(cidInQueryPattern, cids).Find(&rows).Error
	if err != nil {
		return nil, err
	}

	for i := range rows {
		out[rows[i].CID] = rows[i].PerPage()
	}

	return out, nil
}

// Search returns the ids of categories whose name contains query, ignoring case.
func Search(db *gorm.DB, query string) ([]int64, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return []int64{}, nil
	}

	out := []int64{}
	err := db.Model(&models.Category{}).
		Where("LOWER(name) LIKE ? ESCAPE '!'", "%"+likeEscaper.Replace(query)+"%").
		Order(siblingOrder).
		Pluck("cid", &out).Error
	if err != nil {
		return nil, err
	}

	return out, nil
}

// Create stores a new category below its ParentCID.
func Create(db *gorm.DB, category *models.Category) error {
	if db == nil {
		return ErrDBNil
	}
	if strings.TrimSpace(category.Name) == "" {
		return ErrCategoryNameEmpty
	}
	if category.ParentCID != models.RootCID {
		if _, err := Get(db, category.ParentCID); err != nil {
			if errors.Is(err, ErrCategoryNotFound) {
				return ErrParentNotFound
			}
			return err
		}
	}
	if category.SubCategoriesPerPage <= 0 {
		category.SubCategoriesPerPage = models.DefaultSubCategoriesPerPage
	}

	return db.Create(category).Error
}

// Update applies fields to the category cid. Keys are column names.
func Update(db *gorm.DB, cid int64, fields map[string]any) (*models.Category, error) {
	category, err := Get(db, cid)
	if err != nil {
		return nil, err
	}

	if name, ok := fields["name"].(string); ok && strings.TrimSpace(name) == "" {
		return nil, ErrCategoryNameEmpty
	}

	if parent, ok := fields["parent_cid"].(int64); ok {
		if err := checkParent(db, cid, parent); err != nil {
			return nil, err
		}
	}

	if err := db.Model(category).Updates(fields).Error; err != nil {
		return nil, err
	}

	return Get(db, cid)
}

func checkParent(db *gorm.DB, cid, parent int64) error {
	if parent == models.RootCID {
		return nil
	}
	if parent == cid {
		return ErrParentCycle
	}
	if _, err := Get(db, parent); err != nil {
		if errors.Is(err, ErrCategoryNotFound) {
			return ErrParentNotFound
		}
		return err
	}

	descendants, err := DescendantCids(db, cid)
	if err != nil {
		return err
	}
	for _, d := range descendants {
		if d == parent {
			return ErrParentCycle
		}
	}

	return nil
}

// Purge soft deletes cid and moves its children to its parent. Run it in a
// transaction, it issues several statements.
func Purge(db *gorm.DB, cid int64) error {
	category, err := Get(db, cid)
	if err != nil {
		return err
	}

	err = db.Model(&models.Category{}).
		Where("parent_cid = ?", cid).
		Update("parent_cid", category.ParentCID).Error
	if err != nil {
		return err
	}

	if err := db.Where(cidQueryPattern, cid).Delete(&models.CategoryWatch{}).Error; err != nil {
		return err
	}

	rows, err := groups.MembershipsLike(db, privilegePrefix(cid))
	if err != nil {
		return err
	}
	for _, r := range rows {
		if err := groups.Leave(db, []string{r.GroupName}, r.Member); err != nil {
			return err
		}
	}

	return db.Delete(category).Error
}

// CopySettingsFrom copies display settings, paging and privileges of fromCid
// to toCid. Run it in a transaction, it issues several statements.
func CopySettingsFrom(db *gorm.DB, fromCid, toCid int64) (*models.Category, error) {
	from, err := Get(db, fromCid)
	if err != nil {
		return nil, err
	}
	if _, err := Get(db, toCid); err != nil {
		return nil, err
	}

	fields := map[string]any{
		"description":             from.Description,
		"icon":                    from.Icon,
		"color":                   from.Color,
		"bg_color":                from.BgColor,
		"sub_categories_per_page": from.PerPage(),
	}
	if err := db.Model(&models.Category{}).Where(cidQueryPattern, toCid).Updates(fields).Error; err != nil {
		return nil, err
	}

	existing, err := groups.MembershipsLike(db, privilegePrefix(toCid))
	if err != nil {
		return nil, err
	}
	for _, r := range existing {
		if err := groups.Leave(db, []string{r.GroupName}, r.Member); err != nil {
			return nil, err
		}
	}

	source, err := groups.MembershipsLike(db, privilegePrefix(fromCid))
	if err != nil {
		return nil, err
	}
	for _, r := range source {
		target := privilegePrefix(toCid) + strings.TrimPrefix(r.GroupName, privilegePrefix(fromCid))
		if err := groups.Join(db, []string{target}, r.Member); err != nil {
			return nil, err
		}
	}

	return Get(db, toCid)
}

func privilegePrefix(cid int64) string {
	return privilegeKeyPrefix + groups.UIDMember(cid) + ":privileges:"
}

// WatchStates returns the watch state of uid for each cid. Categories without
// a stored state get fallback.
func WatchStates(db *gorm.DB, uid int64, cids []int64, fallback models.WatchState) ([]models.WatchState, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	out := make([]models.WatchState, len(cids))
	for i := range out {
		out[i] = fallback
	}
	if len(cids) == 0 || uid <= models.GuestUID {
		return out, nil
	}

	var rows []models.CategoryWatch
	if err := db.Where("uid = ? AND cid IN ?", uid, cids).Find(&rows).Error; err != nil {
		return nil, err
	}

	byCid := make(map[int64]models.WatchState, len(rows))
	for _, r := range rows {
		byCid[r.CID] = r.State
	}
	for i, cid := range cids {
		if s, ok := byCid[cid]; ok {
			out[i] = s
		}
	}

	return out, nil
}

// SetWatchState stores state for uid on every cid.
func SetWatchState(db *gorm.DB, uid int64, cids []int64, state models.WatchState) error {
	if db == nil {
		return ErrDBNil
	}
	if len(cids) == 0 || uid <= models.GuestUID {
		return nil
	}

	rows := make([]models.CategoryWatch, 0, len(cids))
	for _, cid := range cids {
		rows = append(rows, models.CategoryWatch{UID: uid, CID: cid, State: state})
	}

	return db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "uid"}, {Name: "cid"}},
		DoUpdates: clause.AssignmentColumns([]string{"state"}),
	}).Create(&rows).Error
}
