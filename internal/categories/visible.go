package categories

import (
	"context"
	"slices"
	"strings"

	"golang.org/x/sync/errgroup"

	store "github.com/gobb-forum/gobb/internal/db/controller/categories"
	"github.com/gobb-forum/gobb/internal/db/models"
	"github.com/gobb-forum/gobb/internal/privileges"
)

// VisibleParams selects the categories returned by GetVisibleCategories.
type VisibleParams struct {
	Cids      []int64
	UID       int64
	States    []models.WatchState
	Privilege string
	ShowLinks bool
}

// VisibleCategory is a category kept by GetVisibleCategories.
type VisibleCategory struct {
	models.Category

	// DisabledClass marks a category kept only to give a visible descendant its context.
	DisabledClass bool
}

// GetVisibleCategories keeps the categories of params.Cids that uid may see
// and whose watch state is one of params.States. A category that is not
// visible itself is kept, flagged DisabledClass, when one of its descendants
// in params.Cids is visible. The result follows the order of params.Cids.
func (s *Service) GetVisibleCategories(ctx context.Context, params VisibleParams) ([]VisibleCategory, error) {
	if len(params.Cids) == 0 {
		return []VisibleCategory{}, nil
	}

	privilege := params.Privilege
	if privilege == "" {
		privilege = DefaultPrivilege
	}

	var (
		data      []models.Category
		allowed   []bool
		moderated []bool
		isAdmin   bool
		states    []models.WatchState
		g, gctx   = errgroup.WithContext(ctx)
		db        = s.db.WithContext(gctx)
	)

	g.Go(func() error {
		var err error
		data, err = store.GetMany(db, params.Cids)
		return err
	})
	g.Go(func() error {
		var err error
		allowed, err = s.privs.IsUserAllowedTo(gctx, privilege, params.Cids, params.UID)
		return err
	})
	g.Go(func() error {
		var err error
		moderated, err = s.privs.IsUserAllowedTo(gctx, privileges.CategoryModerate, params.Cids, params.UID)
		return err
	})
	g.Go(func() error {
		var err error
		isAdmin, err = s.privs.IsAdministrator(gctx, params.UID)
		return err
	})
	g.Go(func() error {
		var err error
		states, err = store.WatchStates(db, params.UID, params.Cids, s.defaultWatchState())
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	cidAllowed := make(map[int64]bool, len(params.Cids))
	cidState := make(map[int64]models.WatchState, len(params.Cids))
	for i, cid := range params.Cids {
		cidAllowed[cid] = isAdmin || moderated[i] || allowed[i]
		cidState[cid] = states[i]
	}

	visible := make(map[int64]bool, len(data))
	childrenOf := make(map[int64][]int64)
	present := make(map[int64]struct{}, len(data))
	for i := range data {
		c := &data[i]
		present[c.CID] = struct{}{}
		visible[c.CID] = cidAllowed[c.CID] &&
			(params.ShowLinks || strings.TrimSpace(c.Link) == "") &&
			!c.Disabled &&
			slices.Contains(params.States, cidState[c.CID])
	}
	for i := range data {
		c := &data[i]
		if _, ok := present[c.ParentCID]; ok && c.ParentCID != c.CID {
			childrenOf[c.ParentCID] = append(childrenOf[c.ParentCID], c.CID)
		}
	}

	withVisibleDescendant := visibleDescendants(data, childrenOf, visible)

	out := make([]VisibleCategory, 0, len(data))
	for i := range data {
		c := data[i]
		if visible[c.CID] {
			out = append(out, VisibleCategory{Category: c})
			continue
		}
		if withVisibleDescendant[c.CID] {
			out = append(out, VisibleCategory{Category: c, DisabledClass: true})
		}
	}

	return out, nil
}

// visibleDescendants reports for every category whether a category below it is
// visible. The walk uses an explicit stack and tolerates cycles.
func visibleDescendants(data []models.Category, childrenOf map[int64][]int64, visible map[int64]bool) map[int64]bool {
	out := make(map[int64]bool, len(data))
	done := make(map[int64]bool, len(data))

	type frame struct {
		cid      int64
		expanded bool
	}

	for i := range data {
		start := data[i].CID
		if done[start] {
			continue
		}

		onStack := map[int64]bool{}
		stack := []frame{{cid: start}}

		for len(stack) > 0 {
			top := &stack[len(stack)-1]

			if top.expanded {
				cid := top.cid
				stack = stack[:len(stack)-1]

				for _, child := range childrenOf[cid] {
					if visible[child] || out[child] {
						out[cid] = true
						break
					}
				}
				done[cid] = true
				delete(onStack, cid)

				continue
			}

			top.expanded = true
			onStack[top.cid] = true

			for _, child := range childrenOf[top.cid] {
				if !done[child] && !onStack[child] {
					stack = append(stack, frame{cid: child})
				}
			}
		}
	}

	return out
}
