// Package transaction runs units of work atomically on a pooled gorm connection.
// Nested calls share the connection of their parent and are scoped by savepoints.
package transaction

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

var (
	// ErrDBNil is returned when the manager has no database handle.
	ErrDBNil = errors.New("database connection is nil")
	// ErrTxDone is returned when a finished transaction is used as parent.
	ErrTxDone = errors.New("transaction has already been committed or rolled back")
)

// Func is a unit of work executed inside a transaction.
type Func func(tx *Tx) error

// Manager hands out top-level transactions from the pool of db.
type Manager struct {
	db *gorm.DB
}

// Tx is a live transaction handle. A Tx must not be shared between goroutines.
type Tx struct {
	db    *gorm.DB
	root  *Tx
	depth int

	// owned by root
	mu      sync.Mutex
	counter int
	done    bool
}

// New creates a Manager on top of db.
func New(db *gorm.DB) *Manager {
	return &Manager{db: db}
}

// DB returns the gorm handle bound to the transaction's connection.
func (t *Tx) DB() *gorm.DB {
	return t.db
}

// Depth is 0 for a top-level transaction and grows by one per savepoint.
func (t *Tx) Depth() int {
	return t.depth
}

func (t *Tx) nextSavepoint() string {
	t.root.mu.Lock()
	defer t.root.mu.Unlock()

	t.root.counter++

	return fmt.Sprintf("sp_%d", t.root.counter)
}

func (t *Tx) finished() bool {
	t.root.mu.Lock()
	defer t.root.mu.Unlock()

	return t.root.done
}

// Transaction executes perform atomically. Without parent a connection is taken
// from the pool and a top-level transaction is started; with parent a savepoint
// is created on the parent's connection instead. The error returned by perform
// is returned unchanged after rolling back.
func (m *Manager) Transaction(ctx context.Context, perform Func, parent *Tx) error {
	if parent != nil {
		return nested(ctx, perform, parent)
	}

	if m == nil || m.db == nil {
		return ErrDBNil
	}

	return m.topLevel(ctx, perform)
}

func (m *Manager) topLevel(ctx context.Context, perform Func) (err error) {
	gtx := m.db.WithContext(ctx).Begin()
	if gtx.Error != nil {
		observe(levelTop, outcomeBeginFailed)

		return gtx.Error
	}

	tx := &Tx{db: gtx}
	tx.root = tx

	defer func() {
		tx.mu.Lock()
		tx.done = true
		tx.mu.Unlock()
	}()

	defer func() {
		if r := recover(); r != nil {
			rollback(gtx, levelTop)
			panic(r)
		}
	}()

	if err = perform(tx); err != nil {
		rollback(gtx, levelTop)

		return err
	}

	if err = gtx.Commit().Error; err != nil {
		log.Error().Err(err).Msg("transaction commit failed")
		observe(levelTop, outcomeCommitFailed)

		return err
	}

	observe(levelTop, outcomeCommitted)

	return nil
}

func nested(ctx context.Context, perform Func, parent *Tx) (err error) {
	if parent.finished() {
		return ErrTxDone
	}

	name := parent.nextSavepoint()
	db := parent.db.WithContext(ctx)

	if err = db.SavePoint(name).Error; err != nil {
		observe(levelSavepoint, outcomeBeginFailed)

		return err
	}

	tx := &Tx{db: db, root: parent.root, depth: parent.depth + 1}

	defer func() {
		if r := recover(); r != nil {
			rollbackTo(db, name)
			panic(r)
		}
	}()

	if err = perform(tx); err != nil {
		rollbackTo(db, name)

		return err
	}

	if err = db.Exec("RELEASE SAVEPOINT " + name).Error; err != nil {
		log.Error().Err(err).Str("savepoint", name).Msg("release savepoint failed")
		observe(levelSavepoint, outcomeCommitFailed)

		return err
	}

	observe(levelSavepoint, outcomeCommitted)

	return nil
}

func rollback(gtx *gorm.DB, level string) {
	if err := gtx.Rollback().Error; err != nil {
		log.Error().Err(err).Msg("transaction rollback failed")
	}

	observe(level, outcomeRolledBack)
}

func rollbackTo(db *gorm.DB, name string) {
	if err := db.RollbackTo(name).Error; err != nil {
		log.Error().Err(err).Str("savepoint", name).Msg("rollback to savepoint failed")
	}

	observe(levelSavepoint, outcomeRolledBack)
}
