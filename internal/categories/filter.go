package categories

import (
	"bytes"
	"cmp"
	"context"
	"encoding/json"
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/gobb-forum/gobb/internal/db/models"
)

const indent = "&nbsp;&nbsp;&nbsp;&nbsp;"

// AllWatchStates is used when a filter names no states.
var AllWatchStates = []string{"watching", "notwatching", "ignoring"}

// FilterQuery is the input of LoadCategoryFilter.
type FilterQuery struct {
	Query        string   `json:"query"`
	SelectedCids Cids     `json:"selectedCids"`
	States       []string `json:"states"`
	Privilege    string   `json:"privilege"`
	ShowLinks    bool     `json:"showLinks"`
}

// Cids holds category ids as sent by clients. It decodes from a JSON array
// of strings, numbers or both.
type Cids []string

// UnmarshalJSON implements json.Unmarshaler.
func (c *Cids) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	out := make(Cids, 0, len(raw))
	for _, r := range raw {
		r = bytes.TrimSpace(r)
		switch {
		case bytes.Equal(r, []byte("null")):
		case len(r) > 0 && r[0] == '"':
			var v string
			if err := json.Unmarshal(r, &v); err != nil {
				return err
			}
			out = append(out, v)
		default:
			var n json.Number
			if err := json.Unmarshal(r, &n); err != nil {
				return err
			}
			out = append(out, n.String())
		}
	}

	*c = out

	return nil
}

// SelectCategory is one entry of a category picker.
type SelectCategory struct {
	CID           int64  `json:"cid"`
	Value         int64  `json:"value"`
	Name          string `json:"name"`
	Text          string `json:"text"`
	Level         string `json:"level"`
	Depth         int    `json:"depth"`
	ParentCID     int64  `json:"parentCid"`
	Icon          string `json:"icon"`
	Color         string `json:"color"`
	BgColor       string `json:"bgColor"`
	Link          string `json:"link,omitempty"`
	DisabledClass bool   `json:"disabledClass"`
	Selected      bool   `json:"selected"`
	Match         bool   `json:"match,omitempty"`
}

// LoadCategoryFilter returns the picker entries for uid. With a query the
// candidates are the matching categories plus their ancestors and
// descendants, otherwise the paged tree of LoadCids.
func (s *Service) LoadCategoryFilter(ctx context.Context, uid int64, q FilterQuery) ([]SelectCategory, error) {
	privilege := q.Privilege
	if privilege == "" {
		privilege = DefaultPrivilege
	}

	states, err := parseStates(q.States)
	if err != nil {
		return nil, err
	}

	var cids, matched []int64

	if strings.TrimSpace(q.Query) != "" {
		cids, matched, err = s.findMatchedCids(ctx, q.Query)
	} else {
		cids, err = s.LoadCids(ctx, uid, privilege)
	}
	if err != nil {
		return nil, err
	}

	visible, err := s.GetVisibleCategories(ctx, VisibleParams{
		Cids:      cids,
		UID:       uid,
		States:    states,
		Privilege: privilege,
		ShowLinks: q.ShowLinks,
	})
	if err != nil {
		return nil, err
	}

	records := BuildForSelect(visible)
	if len(records) > MaxFilterResults {
		records = records[:MaxFilterResults]
	}

	selected := toSet(parseCids(q.SelectedCids))
	matches := toSet(matched)

	for i := range records {
		_, records[i].Selected = selected[records[i].CID]
		_, records[i].Match = matches[records[i].CID]
	}

	s.log.Debug().
		Int64("uid", uid).
		Str("privilege", privilege).
		Int("candidates", len(cids)).
		Int("records", len(records)).
		Msg("category filter loaded")

	return records, nil
}

// BuildForSelect flattens categories into picker entries, parents before
// their children and siblings by order. Categories whose parent is not part
// of the input start a tree of their own.
func BuildForSelect(categories []VisibleCategory) []SelectCategory {
	byCid := make(map[int64]*VisibleCategory, len(categories))
	for i := range categories {
		byCid[categories[i].CID] = &categories[i]
	}

	var roots []*VisibleCategory
	children := make(map[int64][]*VisibleCategory)
	for i := range categories {
		c := &categories[i]
		if _, ok := byCid[c.ParentCID]; ok && c.ParentCID != c.CID {
			children[c.ParentCID] = append(children[c.ParentCID], c)
			continue
		}
		roots = append(roots, c)
	}

	bySiblingOrder := func(a, b *VisibleCategory) int {
		return cmp.Or(cmp.Compare(a.Order, b.Order), cmp.Compare(a.CID, b.CID))
	}
	slices.SortStableFunc(roots, bySiblingOrder)
	for _, kids := range children {
		slices.SortStableFunc(kids, bySiblingOrder)
	}

	type frame struct {
		c     *VisibleCategory
		depth int
	}

	out := make([]SelectCategory, 0, len(categories))
	visited := make(map[int64]struct{}, len(categories))

	stack := make([]frame, 0, len(roots))
	for i := len(roots) - 1; i >= 0; i-- {
		stack = append(stack, frame{c: roots[i]})
	}

	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if _, seen := visited[f.c.CID]; seen {
			continue
		}
		visited[f.c.CID] = struct{}{}

		out = append(out, selectRecord(f.c, f.depth))

		kids := children[f.c.CID]
		for i := len(kids) - 1; i >= 0; i-- {
			stack = append(stack, frame{c: kids[i], depth: f.depth + 1})
		}
	}

	return out
}

func selectRecord(c *VisibleCategory, depth int) SelectCategory {
	level := strings.Repeat(indent, depth)

	bullet := ""
	if depth > 0 {
		bullet = "&bull; "
	}

	return SelectCategory{
		CID:           c.CID,
		Value:         c.CID,
		Name:          c.Name,
		Text:          level + bullet + c.Name,
		Level:         level,
		Depth:         depth,
		ParentCID:     c.ParentCID,
		Icon:          c.Icon,
		Color:         c.Color,
		BgColor:       c.BgColor,
		Link:          c.Link,
		DisabledClass: c.DisabledClass || c.Disabled,
	}
}

func parseStates(names []string) ([]models.WatchState, error) {
	if len(names) == 0 {
		names = AllWatchStates
	}

	out := make([]models.WatchState, 0, len(names))
	for _, n := range names {
		ws, ok := models.ParseWatchState(n)
		if !ok {
			return nil, ErrInvalidWatchState
		}
		out = append(out, ws)
	}

	return out, nil
}

// parseCids converts ids to integers. Fractions are truncated, entries that
// are not numbers are dropped.
func parseCids(raw Cids) []int64 {
	out := make([]int64, 0, len(raw))
	for _, r := range raw {
		r = strings.TrimSpace(r)
		if cid, err := strconv.ParseInt(r, 10, 64); err == nil {
			out = append(out, cid)
			continue
		}
		if f, err := strconv.ParseFloat(r, 64); err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) {
			out = append(out, int64(f))
		}
	}

	return out
}
