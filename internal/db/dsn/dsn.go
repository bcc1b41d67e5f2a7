// Package dsn provides Data Source Name construction utilities for database connections.
package dsn

import (
	"fmt"
	"strings"

	"github.com/gobb-forum/gobb/internal/config"
)

// Create builds the Data Source Name for the configured engine.
func Create(dbCfg *config.Config) string {
	switch dbCfg.DB.GormEngine {
	case config.EnginePostgres:
		return postgres(&dbCfg.DB)
	case config.EngineSQLite:
		return sqlite(&dbCfg.DB)
	default:
		return mysql(&dbCfg.DB)
	}
}

func mysql(db *config.DB) string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?%s",
		db.User,
		db.Password,
		db.Host,
		db.Port,
		db.Name,
		db.Extras,
	)
}

func postgres(db *config.DB) string {
	out := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s",
		db.Host,
		db.Port,
		db.User,
		db.Password,
		db.Name,
	)

	if db.Extras != "" {
		out += " " + db.Extras
	}

	return out
}

func sqlite(db *config.DB) string {
	if db.Extras == "" {
		return db.Name
	}

	return db.Name + "?" + strings.TrimPrefix(db.Extras, "?")
}
