// Package daemon wires the stores, services and servers of gobb together.
package daemon

import (
	"context"
	"io"
	"strconv"
	"time"

	mysqlstorage "github.com/gofiber/storage/mysql/v2"
	pgstorage "github.com/gofiber/storage/postgres/v3"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/gobb-forum/gobb/internal/categories"
	"github.com/gobb-forum/gobb/internal/config"
	"github.com/gobb-forum/gobb/internal/db/dsn"
	"github.com/gobb-forum/gobb/internal/db/transaction"
	"github.com/gobb-forum/gobb/internal/meta"
	"github.com/gobb-forum/gobb/internal/plugins"
	"github.com/gobb-forum/gobb/internal/privileges"
	"github.com/gobb-forum/gobb/internal/pubsub"
	"github.com/gobb-forum/gobb/internal/socket"
	"github.com/gobb-forum/gobb/internal/web"
	"github.com/gobb-forum/gobb/internal/web/handler"
	"github.com/gobb-forum/gobb/internal/web/session"
)

const socketShutdownTime = 5 * time.Second

// Daemon represents the main application daemon.
type Daemon struct {
	cfg        *config.Config
	db         *gorm.DB
	hooks      *plugins.Registry
	deps       *handler.Deps
	sessions   session.Storage
	webService *web.Service
	socket     *socket.Server
	redis      *redis.Client

	ctx    context.Context
	cancel context.CancelFunc
}

// Start runs the servers until SIGINT or SIGTERM.
func (d *Daemon) Start() error {
	if d.redis != nil {
		d.startRelay()
	} else if d.socket != nil {
		d.hooks.Observe(d.socket.Observe)
	}

	if d.socket != nil {
		go func() {
			if err := d.socket.Start(); err != nil {
				log.Fatal().Err(err).Msg("socket server failed")
			}
		}()
	}

	go func() {
		_ = d.webService.Start(":" + strconv.Itoa(d.cfg.Webserver.Port))
	}()

	log.Info().Int("port", d.cfg.Webserver.Port).Msg("gobb started")

	d.webService.WaitShutdown(d.stop)

	return nil
}

// startRelay publishes fired actions on redis and pushes the events of all
// instances to the local socket clients.
func (d *Daemon) startRelay() {
	pubsub.NewRelay(d.redis, d.cfg.Redis.ChannelPrefix).Attach(d.hooks)

	if d.socket == nil {
		return
	}

	go func() {
		err := pubsub.Listen(d.ctx, d.redis, d.cfg.Redis.ChannelPrefix, func(_ context.Context, ev pubsub.Event) {
			d.socket.Broadcast(ev)
		})
		if err != nil {
			log.Error().Err(err).Msg("event relay listener stopped")
		}
	}()
}

// stop releases everything but the http server.
func (d *Daemon) stop() {
	d.cancel()

	if d.socket != nil {
		ctx, cancel := context.WithTimeout(context.Background(), socketShutdownTime)
		if err := d.socket.Shutdown(ctx); err != nil {
			log.Error().Err(err).Msg("socket server shutdown")
		}
		cancel()
	}

	if d.redis != nil {
		if err := d.redis.Close(); err != nil {
			log.Error().Err(err).Msg("redis close")
		}
	}

	if c, ok := d.sessions.(io.Closer); ok {
		if err := c.Close(); err != nil {
			log.Error().Err(err).Msg("session storage close")
		}
	}

	if sqlDB, err := d.db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

// New creates a new Daemon instance with the provided configuration.
func New(cfg *config.Config) *Daemon {
	if cfg == nil {
		log.Fatal().Msg("config is nil")
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())

	db, err := openDB(cfg)
	if err != nil {
		log.Fatal().Err(err).Str("engine", cfg.DB.GormEngine).Msg("can't open database")
	}

	d := &Daemon{cfg: cfg, db: db, hooks: plugins.NewRegistry(), ctx: ctx, cancel: cancel}

	if d.deps, err = newDeps(ctx, cfg, db, d.hooks); err != nil {
		log.Fatal().Err(err).Msg("can't init services")
	}

	if err := seed(ctx, db, d.deps.CategoryPrivs); err != nil {
		log.Fatal().Err(err).Msg("can't seed database")
	}

	if d.sessions, err = openSessions(cfg, db); err != nil {
		log.Fatal().Err(err).Msg("can't open session storage")
	}

	if cfg.Redis.Enabled {
		if d.redis, err = pubsub.NewClient(ctx, cfg.Redis); err != nil {
			log.Fatal().Err(err).Str("addr", cfg.Redis.Addr).Msg("can't connect to redis")
		}
	}

	d.webService = web.New(cfg, d.deps, d.sessions)

	if cfg.Socket.Enabled {
		d.socket = socket.New(cfg, d.deps, d.sessions)
	}

	return d
}

func newDeps(ctx context.Context, cfg *config.Config, db *gorm.DB, hooks *plugins.Registry) (*handler.Deps, error) {
	txm := transaction.New(db)
	eval := privileges.NewEvaluator(db)

	admin, err := privileges.NewAdmin(db, txm, eval, hooks)
	if err != nil {
		return nil, err
	}

	catPrivs, err := privileges.NewCategories(db, txm, eval, hooks)
	if err != nil {
		return nil, err
	}

	configs := meta.NewConfigs(db, txm, hooks, cfg.Forum)
	if err := configs.Init(ctx); err != nil {
		return nil, err
	}

	return &handler.Deps{
		Admin:         admin,
		CategoryPrivs: catPrivs,
		Categories:    categories.NewService(db, txm, catPrivs, configs),
		Configs:       configs,
		Settings:      meta.NewSettings(db, txm),
	}, nil
}

// openSessions returns the storage of the login service sessions. MySQL and
// PostgreSQL use the gofiber storage drivers, sqlite reads the table through gorm.
func openSessions(cfg *config.Config, db *gorm.DB) (session.Storage, error) {
	table := cfg.Webserver.SessionTable
	if table == "" {
		table = session.DefaultTable
	}

	switch cfg.DB.GormEngine {
	case config.EngineMySQL:
		return mysqlstorage.New(mysqlstorage.Config{
			ConnectionURI: dsn.Create(cfg),
			Table:         table,
		}), nil
	case config.EnginePostgres:
		return pgstorage.New(pgstorage.Config{
			ConnectionURI: dsn.Create(cfg),
			Table:         table,
		}), nil
	default:
		store := session.NewGormStorage(db, table)

		return store, store.Migrate()
	}
}
