package meta

import (
	"context"
	"encoding/json"
	"errors"

	pkgerrors "github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/gobb-forum/gobb/internal/db/controller/setting"
	"github.com/gobb-forum/gobb/internal/db/transaction"
)

// SettingsPrefix namespaces the settings hashes inside the settings table.
const SettingsPrefix = "settings:"

// ErrInvalidHash is returned for an empty settings hash name.
var ErrInvalidHash = errors.New("invalid settings hash")

// Settings stores named hashes of plugin and page settings, one JSON object per hash.
type Settings struct {
	db  *gorm.DB
	txm *transaction.Manager
}

// NewSettings creates the settings hash store.
func NewSettings(db *gorm.DB, txm *transaction.Manager) *Settings {
	return &Settings{db: db, txm: txm}
}

// Get returns the hash. A hash that was never written is empty.
func (s *Settings) Get(ctx context.Context, hash string) (map[string]string, error) {
	if hash == "" {
		return nil, ErrInvalidHash
	}

	return readHash(s.db.WithContext(ctx), hash)
}

// GetOne returns a single field of the hash and whether it is set.
func (s *Settings) GetOne(ctx context.Context, hash, field string) (string, bool, error) {
	values, err := s.Get(ctx, hash)
	if err != nil {
		return "", false, err
	}

	v, ok := values[field]

	return v, ok, nil
}

// Set merges values into the hash.
func (s *Settings) Set(ctx context.Context, hash string, values map[string]string) error {
	if hash == "" {
		return ErrInvalidHash
	}

	return s.txm.Transaction(ctx, func(tx *transaction.Tx) error {
		current, err := readHash(tx.DB(), hash)
		if err != nil {
			return err
		}

		for k, v := range values {
			current[k] = v
		}

		return writeHash(tx.DB(), hash, current)
	}, nil)
}

// SetOnEmpty writes field only when it has no value yet.
func (s *Settings) SetOnEmpty(ctx context.Context, hash, field, value string) error {
	if hash == "" {
		return ErrInvalidHash
	}

	return s.txm.Transaction(ctx, func(tx *transaction.Tx) error {
		current, err := readHash(tx.DB(), hash)
		if err != nil {
			return err
		}

		if current[field] != "" {
			return nil
		}
		current[field] = value

		return writeHash(tx.DB(), hash, current)
	}, nil)
}

func readHash(db *gorm.DB, hash string) (map[string]string, error) {
	row, err := setting.Get(db, SettingsPrefix+hash)
	if errors.Is(err, setting.ErrSettingNotFound) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, err
	}

	out := map[string]string{}
	if err := json.Unmarshal(row.Value, &out); err != nil {
		return nil, pkgerrors.Wrapf(err, "decode settings hash %q", hash)
	}

	return out, nil
}

func writeHash(db *gorm.DB, hash string, values map[string]string) error {
	raw, err := json.Marshal(values)
	if err != nil {
		return pkgerrors.Wrapf(err, "encode settings hash %q", hash)
	}

	return setting.Set(db, SettingsPrefix+hash, raw)
}
