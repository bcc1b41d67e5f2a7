// Package meta holds the runtime forum configuration stored in the database.
package meta

import (
	"context"
	"errors"
	"maps"
	"strconv"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/gobb-forum/gobb/internal/config"
	"github.com/gobb-forum/gobb/internal/db/controller/setting"
	"github.com/gobb-forum/gobb/internal/db/transaction"
	"github.com/gobb-forum/gobb/internal/plugins"
)

// Runtime configuration fields read by the service itself.
const (
	FieldCategoriesPerPage = "categoriesPerPage"
	FieldTitle             = "title"
)

// ErrInvalidField is returned for an empty field name.
var ErrInvalidField = errors.New("invalid config field")

// Hook payloads.
var (
	HookConfigSet    = plugins.Action[map[string]string]{Name: "action:config.set"}
	HookConfigRemove = plugins.Action[string]{Name: "action:config.remove"}
)

// Configs is the runtime configuration store. Reads are served from a cache
// that is refreshed by Init and kept current by every write of this process.
type Configs struct {
	db    *gorm.DB
	txm   *transaction.Manager
	hooks *plugins.Registry
	forum config.Forum

	mu    sync.RWMutex
	cache map[string]string
}

// NewConfigs creates the store. forum provides the fallbacks for fields not set at runtime.
func NewConfigs(db *gorm.DB, txm *transaction.Manager, hooks *plugins.Registry, forum config.Forum) *Configs {
	return &Configs{
		db:    db,
		txm:   txm,
		hooks: hooks,
		forum: forum,
		cache: map[string]string{},
	}
}

// Init loads all fields into the cache.
func (c *Configs) Init(ctx context.Context) error {
	all, err := c.load(ctx)
	if err != nil {
		log.Error().Err(err).Msg("can't load runtime config")
		return err
	}

	c.mu.Lock()
	c.cache = all
	c.mu.Unlock()

	return nil
}

func (c *Configs) load(ctx context.Context) (map[string]string, error) {
	rows, err := setting.GetAll(c.db.WithContext(ctx))
	if err != nil {
		return nil, err
	}

	out := make(map[string]string, len(rows))
	for _, r := range rows {
		if strings.HasPrefix(r.Name, SettingsPrefix) {
			continue
		}
		out[r.Name] = string(r.Value)
	}

	return out, nil
}

// List returns every stored field.
func (c *Configs) List(ctx context.Context) (map[string]string, error) {
	return c.load(ctx)
}

// Get returns a single field and whether it is set.
func (c *Configs) Get(ctx context.Context, field string) (string, bool, error) {
	s, err := setting.Get(c.db.WithContext(ctx), field)
	if errors.Is(err, setting.ErrSettingNotFound) {
		return "", false, nil
	}
	if errors.Is(err, setting.ErrSettingNameEmpty) {
		return "", false, ErrInvalidField
	}
	if err != nil {
		return "", false, err
	}

	return string(s.Value), true, nil
}

// GetFields returns the fields that are set.
func (c *Configs) GetFields(ctx context.Context, fields []string) (map[string]string, error) {
	raw, err := setting.GetMany(c.db.WithContext(ctx), fields)
	if err != nil {
		return nil, err
	}

	out := make(map[string]string, len(raw))
	for k, v := range raw {
		out[k] = string(v)
	}

	return out, nil
}

// Set stores a single field.
func (c *Configs) Set(ctx context.Context, field, value string) error {
	return c.SetMultiple(ctx, map[string]string{field: value})
}

// SetMultiple stores all fields atomically.
func (c *Configs) SetMultiple(ctx context.Context, fields map[string]string) error {
	if err := validFields(fields); err != nil {
		return err
	}

	err := c.txm.Transaction(ctx, func(tx *transaction.Tx) error {
		for field, value := range fields {
			if err := setting.Set(tx.DB(), field, []byte(value)); err != nil {
				return err
			}
		}

		return nil
	}, nil)
	if err != nil {
		return err
	}

	c.mu.Lock()
	maps.Copy(c.cache, fields)
	c.mu.Unlock()

	plugins.FireAction(ctx, c.hooks, HookConfigSet, maps.Clone(fields))

	return nil
}

// SetOnEmpty stores each field that is not set yet. Existing values are kept.
func (c *Configs) SetOnEmpty(ctx context.Context, fields map[string]string) error {
	if err := validFields(fields); err != nil {
		return err
	}

	written := make(map[string]string, len(fields))

	err := c.txm.Transaction(ctx, func(tx *transaction.Tx) error {
		for field, value := range fields {
			ok, err := setting.SetOnEmpty(tx.DB(), field, []byte(value))
			if err != nil {
				return err
			}
			if ok {
				written[field] = value
			}
		}

		return nil
	}, nil)
	if err != nil {
		return err
	}

	if len(written) == 0 {
		return nil
	}

	c.mu.Lock()
	maps.Copy(c.cache, written)
	c.mu.Unlock()

	plugins.FireAction(ctx, c.hooks, HookConfigSet, written)

	return nil
}

func validFields(fields map[string]string) error {
	for field := range fields {
		if field == "" || strings.HasPrefix(field, SettingsPrefix) {
			return ErrInvalidField
		}
	}

	return nil
}

// Remove deletes a field. Removing an unset field is not an error.
func (c *Configs) Remove(ctx context.Context, field string) error {
	if strings.HasPrefix(field, SettingsPrefix) {
		return ErrInvalidField
	}

	err := setting.DeleteByName(c.db.WithContext(ctx), field)
	if errors.Is(err, setting.ErrSettingNameEmpty) {
		return ErrInvalidField
	}
	if err != nil && !errors.Is(err, setting.ErrSettingNotFound) {
		return err
	}

	c.mu.Lock()
	delete(c.cache, field)
	c.mu.Unlock()

	plugins.FireAction(ctx, c.hooks, HookConfigRemove, field)

	return nil
}

// Cached returns a field from the cache.
func (c *Configs) Cached(field string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	v, ok := c.cache[field]

	return v, ok
}

// CategoriesPerPage returns the runtime page size for root categories,
// falling back to the configured default.
func (c *Configs) CategoriesPerPage() int {
	if v, ok := c.Cached(FieldCategoriesPerPage); ok {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}

		log.Warn().Str("field", FieldCategoriesPerPage).Str("value", v).Msg("ignoring invalid runtime value")
	}

	if c.forum.CategoriesPerPage > 0 {
		return c.forum.CategoriesPerPage
	}

	return config.DefaultCategoriesPerPage
}

// DefaultWatchState is the configured watch state of categories a user never touched.
func (c *Configs) DefaultWatchState() string {
	if c.forum.CategoryWatchState == "" {
		return "watching"
	}

	return c.forum.CategoryWatchState
}
