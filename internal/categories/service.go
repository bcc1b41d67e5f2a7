// Package categories builds the category listings shown to a user: the paged
// tree walk, the search with tree context and the select records of both.
package categories

import (
	"context"
	"errors"
	"maps"
	"slices"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	store "github.com/gobb-forum/gobb/internal/db/controller/categories"
	"github.com/gobb-forum/gobb/internal/db/models"
	"github.com/gobb-forum/gobb/internal/db/transaction"
	"github.com/gobb-forum/gobb/internal/logger"
	"github.com/gobb-forum/gobb/internal/meta"
	"github.com/gobb-forum/gobb/internal/privileges"
)

// DefaultPrivilege filters listings when the caller names none.
const DefaultPrivilege = privileges.CategoryTopicsRead

// MaxFilterResults caps the records returned by LoadCategoryFilter.
const MaxFilterResults = 200

// ErrInvalidWatchState is returned for an unknown watch state name.
var ErrInvalidWatchState = errors.New("[[error:invalid-watch-state]]")

// Service reads and mutates categories on behalf of users.
type Service struct {
	db      *gorm.DB
	txm     *transaction.Manager
	privs   *privileges.Categories
	configs *meta.Configs
	log     zerolog.Logger
}

// NewService creates a Service.
func NewService(db *gorm.DB, txm *transaction.Manager, privs *privileges.Categories, configs *meta.Configs) *Service {
	return &Service{
		db:      db,
		txm:     txm,
		privs:   privs,
		configs: configs,
		log:     logger.Component("categories"),
	}
}

// All returns every category in sibling order.
func (s *Service) All(ctx context.Context) ([]models.Category, error) {
	return store.All(s.db.WithContext(ctx))
}

// Get returns a single category.
func (s *Service) Get(ctx context.Context, cid int64) (*models.Category, error) {
	return store.Get(s.db.WithContext(ctx), cid)
}

// Create stores a new category. When CopyFrom is set, the settings and
// privileges of that category are copied in the same transaction.
func (s *Service) Create(ctx context.Context, category *models.Category, copyFrom int64) error {
	return s.txm.Transaction(ctx, func(tx *transaction.Tx) error {
		if err := store.Create(tx.DB(), category); err != nil {
			return err
		}
		if copyFrom == 0 {
			return nil
		}

		copied, err := store.CopySettingsFrom(tx.DB(), copyFrom, category.CID)
		if err != nil {
			return err
		}
		*category = *copied

		return nil
	}, nil)
}

// Update applies fields to several categories atomically.
func (s *Service) Update(ctx context.Context, updates map[int64]map[string]any) ([]models.Category, error) {
	out := make([]models.Category, 0, len(updates))

	err := s.txm.Transaction(ctx, func(tx *transaction.Tx) error {
		for _, cid := range slices.Sorted(maps.Keys(updates)) {
			c, err := store.Update(tx.DB(), cid, updates[cid])
			if err != nil {
				return err
			}
			out = append(out, *c)
		}

		return nil
	}, nil)
	if err != nil {
		return nil, err
	}

	return out, nil
}

// Purge removes a category, its children move up one level.
func (s *Service) Purge(ctx context.Context, cid int64) error {
	err := s.txm.Transaction(ctx, func(tx *transaction.Tx) error {
		return store.Purge(tx.DB(), cid)
	}, nil)
	if err != nil {
		return err
	}

	s.log.Info().Int64("cid", cid).Msg("category purged")

	return nil
}

// CopySettingsFrom copies settings and privileges of fromCid to toCid.
func (s *Service) CopySettingsFrom(ctx context.Context, fromCid, toCid int64) (*models.Category, error) {
	var out *models.Category

	err := s.txm.Transaction(ctx, func(tx *transaction.Tx) error {
		var err error
		out, err = store.CopySettingsFrom(tx.DB(), fromCid, toCid)
		return err
	}, nil)

	return out, err
}

// SetWatchState stores the watch state of uid on cids.
func (s *Service) SetWatchState(ctx context.Context, uid int64, cids []int64, state string) error {
	ws, ok := models.ParseWatchState(state)
	if !ok {
		return ErrInvalidWatchState
	}

	return store.SetWatchState(s.db.WithContext(ctx), uid, cids, ws)
}

func (s *Service) defaultWatchState() models.WatchState {
	if ws, ok := models.ParseWatchState(s.configs.DefaultWatchState()); ok {
		return ws
	}

	return models.WatchStateWatching
}
