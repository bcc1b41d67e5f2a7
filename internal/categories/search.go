package categories

import (
	"context"

	"golang.org/x/sync/errgroup"

	store "github.com/gobb-forum/gobb/internal/db/controller/categories"
)

// walkConcurrency bounds the parallel tree walks of a search.
const walkConcurrency = 8

// findMatchedCids searches categories by name and widens the hits by their
// ancestors and descendants, so every hit keeps its path to the root and its subtree.
func (s *Service) findMatchedCids(ctx context.Context, query string) (cids, matched []int64, err error) {
	db := s.db.WithContext(ctx)

	matched, err = store.Search(db, query)
	if err != nil {
		return nil, nil, err
	}

	ancestors := make([][]int64, len(matched))
	descendants := make([][]int64, len(matched))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(walkConcurrency)

	for i, cid := range matched {
		g.Go(func() error {
			var err error
			ancestors[i], err = store.AncestorCids(db.WithContext(gctx), cid)
			return err
		})
		g.Go(func() error {
			var err error
			descendants[i], err = store.DescendantCids(db.WithContext(gctx), cid)
			return err
		})
	}

	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	cids = uniq(flatten(ancestors), flatten(descendants), matched)

	return cids, matched, nil
}

func flatten(lists [][]int64) []int64 {
	var out []int64
	for _, l := range lists {
		out = append(out, l...)
	}

	return out
}

// uniq concatenates lists keeping the first occurrence of every id.
func uniq(lists ...[]int64) []int64 {
	seen := make(map[int64]struct{})
	out := []int64{}

	for _, l := range lists {
		for _, cid := range l {
			if _, ok := seen[cid]; ok {
				continue
			}
			seen[cid] = struct{}{}
			out = append(out, cid)
		}
	}

	return out
}
