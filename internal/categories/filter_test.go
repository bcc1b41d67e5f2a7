package categories

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gobb-forum/gobb/internal/config"
	store "github.com/gobb-forum/gobb/internal/db/controller/categories"
	"github.com/gobb-forum/gobb/internal/db/models"
)

func TestFindMatchedCidsUnion(t *testing.T) {
	f := newFixture(t, config.Forum{CategoriesPerPage: 10})
	seedForum(t, f)

	cids, matched, err := f.svc.findMatchedCids(context.Background(), "announce")
	require.NoError(t, err)

	assert.Equal(t, []int64{4}, matched)
	// parent, match and child are all candidates
	assert.Subset(t, cids, []int64{1, 4, 7})
	assert.Len(t, cids, 3)
}

func TestLoadCategoryFilterWithoutQuery(t *testing.T) {
	f := newFixture(t, config.Forum{CategoriesPerPage: 2})
	seedForum(t, f)

	got, err := f.svc.LoadCategoryFilter(context.Background(), uidUser, FilterQuery{})
	require.NoError(t, err)

	assert.Equal(t, []int64{1, 4, 7, 5, 2, 8}, cidsOf(got))
	assert.Equal(t, 0, got[0].Depth)
	assert.Equal(t, 1, got[1].Depth)
	assert.Equal(t, 2, got[2].Depth)
	assert.Equal(t, indent+indent, got[2].Level)
	assert.Equal(t, indent+indent+"&bull; Releases", got[2].Text)
	for _, r := range got {
		assert.False(t, r.Selected)
		assert.False(t, r.Match)
		assert.False(t, r.DisabledClass)
	}
}

func TestLoadCategoryFilterQuery(t *testing.T) {
	f := newFixture(t, config.Forum{CategoriesPerPage: 10})
	seedForum(t, f)

	got, err := f.svc.LoadCategoryFilter(context.Background(), uidUser, FilterQuery{
		Query:        "announce",
		SelectedCids: []string{"7"},
	})
	require.NoError(t, err)

	require.Equal(t, []int64{1, 4, 7}, cidsOf(got))
	assert.False(t, got[0].Match)
	assert.True(t, got[1].Match)
	assert.False(t, got[2].Match)
	assert.True(t, got[2].Selected)
}

func TestLoadCategoryFilterSelectedAndMatched(t *testing.T) {
	f := newFixture(t, config.Forum{CategoriesPerPage: 10})
	seedForum(t, f)

	got, err := f.svc.LoadCategoryFilter(context.Background(), uidUser, FilterQuery{
		Query:        "help",
		SelectedCids: []string{"5", "not-a-number"},
	})
	require.NoError(t, err)

	var found bool
	for _, r := range got {
		if r.CID == 5 {
			found = true
			assert.True(t, r.Selected)
			assert.True(t, r.Match)
			continue
		}
		assert.False(t, r.Selected)
	}
	assert.True(t, found)
}

func TestLoadCategoryFilterCap(t *testing.T) {
	f := newFixture(t, config.Forum{CategoriesPerPage: 1000})

	for i := range 250 {
		require.NoError(t, store.Create(f.db, &models.Category{Name: fmt.Sprintf("cat %03d", i), Order: i}))
	}

	testCases := []struct {
		name  string
		query FilterQuery
	}{
		{name: "tree", query: FilterQuery{}},
		{name: "search", query: FilterQuery{Query: "cat"}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := f.svc.LoadCategoryFilter(context.Background(), uidAdmin, tc.query)
			require.NoError(t, err)
			assert.Len(t, got, MaxFilterResults)
			assert.Equal(t, int64(1), got[0].CID)
		})
	}
}

func TestLoadCategoryFilterVisibility(t *testing.T) {
	ctx := context.Background()

	t.Run("ignored parent kept for visible child", func(t *testing.T) {
		f := newFixture(t, config.Forum{CategoriesPerPage: 10})
		seedForum(t, f)
		require.NoError(t, f.svc.SetWatchState(ctx, uidUser, []int64{1, 6}, "ignoring"))

		got, err := f.svc.LoadCategoryFilter(ctx, uidUser, FilterQuery{States: []string{"watching"}})
		require.NoError(t, err)

		assert.Equal(t, []int64{1, 4, 7, 5, 2, 8, 3}, cidsOf(got))
		assert.True(t, got[0].DisabledClass)
		assert.False(t, got[1].DisabledClass)
	})

	t.Run("ignored leaf removed", func(t *testing.T) {
		f := newFixture(t, config.Forum{CategoriesPerPage: 10})
		seedForum(t, f)
		require.NoError(t, f.svc.SetWatchState(ctx, uidUser, []int64{7}, "ignoring"))

		got, err := f.svc.LoadCategoryFilter(ctx, uidUser, FilterQuery{States: []string{"watching", "notwatching"}})
		require.NoError(t, err)
		assert.Equal(t, []int64{1, 4, 5, 2, 8, 3}, cidsOf(got))
	})

	t.Run("links only with showLinks", func(t *testing.T) {
		f := newFixture(t, config.Forum{CategoriesPerPage: 10})
		seedForum(t, f)
		_, err := store.Update(f.db, 3, map[string]any{"link": "https://example.com"})
		require.NoError(t, err)

		got, err := f.svc.LoadCategoryFilter(ctx, uidUser, FilterQuery{})
		require.NoError(t, err)
		assert.NotContains(t, cidsOf(got), int64(3))

		got, err = f.svc.LoadCategoryFilter(ctx, uidUser, FilterQuery{ShowLinks: true})
		require.NoError(t, err)
		assert.Contains(t, cidsOf(got), int64(3))
	})

	t.Run("privilege denied subtree in search", func(t *testing.T) {
		f := newFixture(t, config.Forum{CategoriesPerPage: 10})
		seedForum(t, f)
		revoke(t, f, "topics:read", 1)

		got, err := f.svc.LoadCategoryFilter(ctx, uidUser, FilterQuery{Query: "releases"})
		require.NoError(t, err)

		// General is not readable but leads to the match
		require.Equal(t, []int64{1, 4, 7}, cidsOf(got))
		assert.True(t, got[0].DisabledClass)
		assert.True(t, got[2].Match)
	})

	t.Run("unknown state", func(t *testing.T) {
		f := newFixture(t, config.Forum{CategoriesPerPage: 10})

		_, err := f.svc.LoadCategoryFilter(ctx, uidUser, FilterQuery{States: []string{"subscribed"}})
		require.ErrorIs(t, err, ErrInvalidWatchState)
	})
}

func TestBuildForSelect(t *testing.T) {
	in := []VisibleCategory{
		{Category: models.Category{CID: 9, ParentCID: 3, Name: "orphan"}},
		{Category: models.Category{CID: 2, Name: "second", Order: 2}},
		{Category: models.Category{CID: 5, ParentCID: 1, Name: "child", Disabled: true}},
		{Category: models.Category{CID: 1, Name: "first", Order: 1}, DisabledClass: true},
	}

	got := BuildForSelect(in)

	require.Equal(t, []int64{9, 1, 5, 2}, cidsOf(got))
	assert.True(t, got[1].DisabledClass)
	assert.True(t, got[2].DisabledClass)
	assert.Equal(t, 1, got[2].Depth)
	assert.Equal(t, int64(1), got[2].ParentCID)
	assert.Equal(t, "first", got[1].Text)
	assert.Equal(t, int64(5), got[2].Value)
}

func TestCidsUnmarshalJSON(t *testing.T) {
	testCases := []struct {
		name    string
		data    string
		want    []int64
		wantErr bool
	}{
		{name: "strings", data: `["1","2"]`, want: []int64{1, 2}},
		{name: "numbers", data: `[1,2]`, want: []int64{1, 2}},
		{name: "mixed", data: `[3," 4 ",null]`, want: []int64{3, 4}},
		{name: "fraction", data: `[5.9]`, want: []int64{5}},
		{name: "garbage dropped", data: `["x","7"]`, want: []int64{7}},
		{name: "empty", data: `[]`, want: []int64{}},
		{name: "object", data: `[{}]`, wantErr: true},
		{name: "not an array", data: `"1"`, wantErr: true},
	}

	for _, tt := range testCases {
		t.Run(tt.name, func(t *testing.T) {
			var q FilterQuery
			err := json.Unmarshal([]byte(`{"selectedCids":`+tt.data+`}`), &q)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, parseCids(q.SelectedCids))
		})
	}
}
