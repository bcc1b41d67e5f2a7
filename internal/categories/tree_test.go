package categories

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gobb-forum/gobb/internal/config"
	"github.com/gobb-forum/gobb/internal/db/models"
	"github.com/gobb-forum/gobb/internal/meta"
	"github.com/gobb-forum/gobb/internal/privileges"
)

func TestLoadCids(t *testing.T) {
	testCases := []struct {
		name    string
		perPage int
		uid     int64
		setup   func(t *testing.T, f *fixture)
		want    []int64
	}{
		{
			name:    "pre-order with both page sizes",
			perPage: 2,
			uid:     uidUser,
			want:    []int64{1, 4, 7, 5, 2, 8},
		},
		{
			name:    "all roots",
			perPage: 10,
			uid:     uidUser,
			want:    []int64{1, 4, 7, 5, 2, 8, 3},
		},
		{
			name:    "denied child does not take a slot",
			perPage: 2,
			uid:     uidUser,
			setup:   func(t *testing.T, f *fixture) { revoke(t, f, privileges.CategoryTopicsRead, 4) },
			want:    []int64{1, 5, 6, 2, 8},
		},
		{
			name:    "denied root hides its subtree",
			perPage: 2,
			uid:     uidUser,
			setup:   func(t *testing.T, f *fixture) { revoke(t, f, privileges.CategoryTopicsRead, 1) },
			want:    []int64{2, 8, 3},
		},
		{
			name:    "guest without grants",
			perPage: 10,
			uid:     models.GuestUID,
			want:    []int64{},
		},
		{
			name:    "super-user ignores grants",
			perPage: 2,
			uid:     uidAdmin,
			setup:   func(t *testing.T, f *fixture) { revoke(t, f, privileges.CategoryTopicsRead, 1, 2, 3, 4, 5, 6, 7, 8) },
			want:    []int64{1, 4, 7, 5, 2, 8},
		},
		{
			name:    "runtime page size",
			perPage: 10,
			uid:     uidUser,
			setup: func(t *testing.T, f *fixture) {
				require.NoError(t, f.configs.Set(context.Background(), meta.FieldCategoriesPerPage, "1"))
			},
			want: []int64{1, 4, 7, 5},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t, config.Forum{CategoriesPerPage: tc.perPage})
			seedForum(t, f)
			if tc.setup != nil {
				tc.setup(t, f)
			}

			got, err := f.svc.LoadCids(context.Background(), tc.uid, "")
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestLoadCidsIsIdempotent(t *testing.T) {
	f := newFixture(t, config.Forum{CategoriesPerPage: 2})
	seedForum(t, f)
	ctx := context.Background()

	first, err := f.svc.LoadCids(ctx, uidUser, privileges.CategoryTopicsRead)
	require.NoError(t, err)

	second, err := f.svc.LoadCids(ctx, uidUser, privileges.CategoryTopicsRead)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestLoadCidsUsesRequestedPrivilege(t *testing.T) {
	f := newFixture(t, config.Forum{CategoriesPerPage: 10})
	seedForum(t, f)
	grant(t, f, privileges.CategoryTopicsCreate, 2, 8)

	got, err := f.svc.LoadCids(context.Background(), uidUser, privileges.CategoryTopicsCreate)
	require.NoError(t, err)
	assert.Equal(t, []int64{2, 8}, got)
}

func TestPreOrder(t *testing.T) {
	got := preOrder([]int64{1, 2}, map[int64][]int64{
		1: {3, 4},
		3: {5},
		2: {6},
	})
	assert.Equal(t, []int64{1, 3, 5, 4, 2, 6}, got)
}
