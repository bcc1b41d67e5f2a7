package dsn

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/gobb-forum/gobb/internal/config"
)

func TestCreate(t *testing.T) {
	testCases := []struct {
		name string
		db   config.DB
		want string
	}{
		{
			name: "mysql",
			db: config.DB{
				GormEngine: config.EngineMySQL,
				Host:       "127.0.0.1",
				Port:       3306,
				User:       "gobb",
				Password:   "secret",
				Name:       "forum",
				Extras:     "parseTime=true",
			},
			want: "gobb:secret@tcp(127.0.0.1:3306)/forum?parseTime=true",
		},
		{
			name: "postgres",
			db: config.DB{
				GormEngine: config.EnginePostgres,
				Host:       "db",
				Port:       5432,
				User:       "gobb",
				Password:   "secret",
				Name:       "forum",
				Extras:     "sslmode=disable",
			},
			want: "host=db port=5432 user=gobb password=secret dbname=forum sslmode=disable",
		},
		{
			name: "postgres without extras",
			db: config.DB{
				GormEngine: config.EnginePostgres,
				Host:       "db",
				Port:       5432,
				User:       "gobb",
				Password:   "secret",
				Name:       "forum",
			},
			want: "host=db port=5432 user=gobb password=secret dbname=forum",
		},
		{
			name: "sqlite",
			db:   config.DB{GormEngine: config.EngineSQLite, Name: "gobb.db"},
			want: "gobb.db",
		},
		{
			name: "sqlite with pragma",
			db:   config.DB{GormEngine: config.EngineSQLite, Name: "gobb.db", Extras: "?_pragma=foreign_keys(1)"},
			want: "gobb.db?_pragma=foreign_keys(1)",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Create(&config.Config{DB: tc.db}))
		})
	}
}
