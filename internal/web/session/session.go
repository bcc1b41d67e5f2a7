// Package session resolves the caller of a request from the session cookie
// written by the login service.
package session

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/gobb-forum/gobb/internal/db/models"
	fiberlog "github.com/gobb-forum/gobb/internal/logger/adapter/fiber"
)

// DefaultCookie is the cookie carrying the session id.
const DefaultCookie = "session"

// DefaultTable is the table the login service writes sessions to.
const DefaultTable = "sessions"

// Storage reads raw session payloads. It is satisfied by the gofiber storage drivers.
type Storage interface {
	Get(key string) ([]byte, error)
}

// Data is the session payload.
type Data struct {
	UID int64 `json:"uid"`
}

// Read returns the session payload stored under id. A missing session is the guest.
func Read(store Storage, id string) (Data, error) {
	var data Data

	if store == nil || id == "" {
		return data, nil
	}

	raw, err := store.Get(id)
	if err != nil {
		return data, err
	}
	if len(raw) == 0 {
		return data, nil
	}

	if err := json.Unmarshal(raw, &data); err != nil {
		return Data{}, err
	}
	if data.UID < 0 {
		data.UID = models.GuestUID
	}

	return data, nil
}

// Config of the identity middleware.
type Config struct {
	Storage Storage
	Cookie  string
}

// New returns the identity middleware. It stores the caller uid in
// fiber.Locals; callers without a valid session are guests.
func New(cfg Config) fiber.Handler {
	if cfg.Cookie == "" {
		cfg.Cookie = DefaultCookie
	}

	return func(c fiber.Ctx) error {
		data, err := Read(cfg.Storage, c.Cookies(cfg.Cookie))
		if err != nil {
			log.Debug().Err(err).Msg("invalid session, continuing as guest")
		}

		c.Locals(fiberlog.LocalsUID, data.UID)

		return c.Next()
	}
}

// UID returns the caller uid stored by the identity middleware.
func UID(c fiber.Ctx) int64 {
	if uid, ok := c.Locals(fiberlog.LocalsUID).(int64); ok {
		return uid
	}

	return models.GuestUID
}

// Record is a row of the fiber storage table layout. E is the expiry as
// unix seconds, 0 never expires.
type Record struct {
	K string `gorm:"column:k;primaryKey;size:64"`
	V []byte `gorm:"column:v"`
	E int64  `gorm:"column:e;not null;default:0;index"`
}

// GormStorage reads sessions from the fiber storage table layout (k, v, e)
// through gorm. It serves engines without a gofiber storage driver.
type GormStorage struct {
	db    *gorm.DB
	table string
}

// NewGormStorage creates a read only session storage on table.
func NewGormStorage(db *gorm.DB, table string) *GormStorage {
	if table == "" {
		table = DefaultTable
	}

	return &GormStorage{db: db, table: table}
}

// Migrate creates the session table when it does not exist.
func (s *GormStorage) Migrate() error {
	return s.db.Table(s.table).AutoMigrate(&Record{})
}

// Get returns the payload of key, or nil when it is missing or expired.
func (s *GormStorage) Get(key string) ([]byte, error) {
	var r Record

	err := s.db.Table(s.table).Select("v", "e").Where("k = ?", key).Take(&r).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if r.E != 0 && r.E <= time.Now().Unix() {
		return nil, nil
	}

	return r.V, nil
}
