package categories

import (
	"context"
	"slices"

	"golang.org/x/sync/errgroup"

	store "github.com/gobb-forum/gobb/internal/db/controller/categories"
	"github.com/gobb-forum/gobb/internal/db/models"
)

// LoadCids returns the categories uid may see with privilege, parents before
// their children. The root level is cut to the configured page size and the
// children of every category to that category's own page size.
func (s *Service) LoadCids(ctx context.Context, uid int64, privilege string) ([]int64, error) {
	if privilege == "" {
		privilege = DefaultPrivilege
	}

	db := s.db.WithContext(ctx)

	roots, err := store.ChildrenCids(db, models.RootCID)
	if err != nil {
		return nil, err
	}

	roots, err = s.privs.FilterCids(ctx, privilege, roots, uid)
	if err != nil {
		return nil, err
	}

	page := truncate(roots, s.configs.CategoriesPerPage())

	visited := make(map[int64]struct{}, len(page))
	for _, cid := range page {
		visited[cid] = struct{}{}
	}

	accepted := make(map[int64][]int64)
	level := page

	for len(level) > 0 {
		var (
			children map[int64][]int64
			perPage  map[int64]int
			g, gctx  = errgroup.WithContext(ctx)
		)

		g.Go(func() error {
			var err error
			children, err = store.ChildrenOf(db.WithContext(gctx), level)
			return err
		})
		g.Go(func() error {
			var err error
			perPage, err = store.SubCategoriesPerPage(db.WithContext(gctx), level)
			return err
		})

		if err := g.Wait(); err != nil {
			return nil, err
		}

		var candidates []int64
		for _, parent := range level {
			candidates = append(candidates, children[parent]...)
		}

		allowed, err := s.privs.FilterCids(ctx, privilege, candidates, uid)
		if err != nil {
			return nil, err
		}

		allowedSet := toSet(allowed)

		var next []int64
		for _, parent := range level {
			var kids []int64
			for _, child := range children[parent] {
				if _, ok := allowedSet[child]; ok {
					kids = append(kids, child)
				}
			}

			for _, child := range truncate(kids, perPage[parent]) {
				if _, seen := visited[child]; seen {
					continue
				}
				visited[child] = struct{}{}
				accepted[parent] = append(accepted[parent], child)
				next = append(next, child)
			}
		}

		level = next
	}

	return preOrder(page, accepted), nil
}

// preOrder flattens the accepted forest depth first, parents before children.
func preOrder(roots []int64, children map[int64][]int64) []int64 {
	out := make([]int64, 0, len(roots))

	stack := slices.Clone(roots)
	slices.Reverse(stack)

	for len(stack) > 0 {
		cid := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		out = append(out, cid)

		kids := children[cid]
		for i := len(kids) - 1; i >= 0; i-- {
			stack = append(stack, kids[i])
		}
	}

	return out
}

func truncate(cids []int64, n int) []int64 {
	if n < 0 {
		n = 0
	}
	if len(cids) > n {
		return cids[:n]
	}

	return cids
}

func toSet(cids []int64) map[int64]struct{} {
	set := make(map[int64]struct{}, len(cids))
	for _, cid := range cids {
		set[cid] = struct{}{}
	}

	return set
}
