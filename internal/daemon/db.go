package daemon

import (
	"errors"
	"time"

	"github.com/glebarez/sqlite"
	pkgerrors "github.com/pkg/errors"
	gormmysql "gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/gobb-forum/gobb/internal/config"
	"github.com/gobb-forum/gobb/internal/db/dsn"
	"github.com/gobb-forum/gobb/internal/db/models"
)

// ErrUnknownEngine is returned for an unsupported DB.GormEngine.
var ErrUnknownEngine = errors.New("unknown gorm engine")

const connMaxLifetime = time.Hour

func dialector(cfg *config.Config) (gorm.Dialector, error) {
	switch cfg.DB.GormEngine {
	case config.EngineMySQL:
		return gormmysql.Open(dsn.Create(cfg)), nil
	case config.EnginePostgres:
		return postgres.Open(dsn.Create(cfg)), nil
	case config.EngineSQLite:
		return sqlite.Open(dsn.Create(cfg)), nil
	default:
		return nil, pkgerrors.Wrap(ErrUnknownEngine, cfg.DB.GormEngine)
	}
}

// openDB opens the configured database, tunes the pool and migrates the schema.
func openDB(cfg *config.Config) (*gorm.DB, error) {
	d, err := dialector(cfg)
	if err != nil {
		return nil, err
	}

	level := gormlogger.Warn
	if cfg.DevMode {
		level = gormlogger.Info
	}

	db, err := gorm.Open(d, &gorm.Config{Logger: gormlogger.Default.LogMode(level)})
	if err != nil {
		return nil, pkgerrors.Wrap(err, "failed to connect database")
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	switch {
	case cfg.DB.GormEngine == config.EngineSQLite:
		// sqlite allows a single writer
		sqlDB.SetMaxOpenConns(1)
	case cfg.DB.MaxOpenConns > 0:
		sqlDB.SetMaxOpenConns(cfg.DB.MaxOpenConns)
	}

	if cfg.DB.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.DB.MaxIdleConns)
	}
	sqlDB.SetConnMaxLifetime(connMaxLifetime)

	if err := db.AutoMigrate(models.All()...); err != nil {
		return nil, pkgerrors.Wrap(err, "failed to migrate database")
	}

	return db, nil
}
