// Package sqlite implements the SQLite storage backend for NutriHub. SQLite
// is the query engine; JSONL files in DataDir are the source of truth and are
// reloaded on every Attach.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "modernc.org/sqlite"

	"github.com/mesh-intelligence/nutrihub/pkg/types"
)

// dbFile is the SQLite database file created in DataDir.
const dbFile = "nutrihub.db"

// Compile-time interface check: Backend must implement Store.
var _ types.Store = (*Backend)(nil)

// Backend implements the Store interface using SQLite as the query engine
// and JSONL files as the source of truth.
type Backend struct {
	mu       sync.RWMutex
	attached bool
	config   types.Config
	dataDir  string
	db       *sql.DB
	tables   tableSet
	hub      *changeHub

	// persistMu serializes JSONL snapshots so the last rename always
	// carries the latest rows.
	persistMu sync.Mutex

	// Sync strategy state.
	syncStrategy string
	pendingMu    sync.Mutex
	pending      map[string]bool // tables awaiting JSONL persist (on_close)
}

// NewBackend creates a new SQLite backend instance.
// The backend is not attached; call Attach with a Config to initialize.
func NewBackend() *Backend {
	return &Backend{
		hub:     newChangeHub(),
		pending: make(map[string]bool),
	}
}

// GetTable returns a Table interface for the specified table name.
// Returns ErrTableNotFound if the table name is not recognized.
// Returns ErrStoreDetached if the backend is not attached.
func (b *Backend) GetTable(name string) (types.Table, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if !b.attached {
		return nil, types.ErrStoreDetached
	}
	return b.tables.GetTable(name)
}

// Attach initializes the backend with the given configuration.
// Creates DataDir if it does not exist, recreates the SQLite database, and
// loads every JSONL file into it.
// Returns ErrAlreadyAttached if already attached.
func (b *Backend) Attach(config types.Config) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.attached {
		return types.ErrAlreadyAttached
	}

	if err := config.Validate(); err != nil {
		return err
	}

	dataDir := config.DataDir
	if dataDir == "" {
		dataDir = "."
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return fmt.Errorf("creating data dir: %w", err)
	}

	dbPath := filepath.Join(dataDir, dbFile)
	// The database is a cache of the JSONL files; start fresh every time.
	_ = os.Remove(dbPath)

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	db.SetMaxOpenConns(1)

	for _, ddl := range append(append([]string{}, schemaDDL...), indexDDL...) {
		if _, err := db.Exec(ddl); err != nil {
			db.Close()
			return fmt.Errorf("creating schema: %w", err)
		}
	}

	if err := initJSONLFiles(dataDir); err != nil {
		db.Close()
		return err
	}

	if err := loadAllJSONL(db, dataDir); err != nil {
		db.Close()
		return fmt.Errorf("load JSONL: %w", err)
	}

	b.db = db
	b.config = config
	b.dataDir = dataDir
	b.syncStrategy = config.SyncStrategy
	if b.syncStrategy == "" {
		b.syncStrategy = types.SyncImmediate
	}
	b.tables = newTableSet(&session{backend: b})
	b.attached = true

	return nil
}

// Detach releases all resources held by the backend. Pending on_close writes
// are flushed and every Watch channel is closed. After Detach, all operations
// return ErrStoreDetached. Detach is idempotent.
func (b *Backend) Detach() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.attached {
		return nil
	}

	if err := b.flushPending(context.Background()); err != nil {
		return fmt.Errorf("flush pending writes: %w", err)
	}

	b.hub.closeAll()

	if err := b.db.Close(); err != nil {
		return fmt.Errorf("closing database: %w", err)
	}
	b.db = nil
	b.attached = false
	b.tables = nil

	return nil
}

// Watch subscribes to committed changes on tables (all when empty).
func (b *Backend) Watch(ctx context.Context, tables ...string) (<-chan types.ChangeEvent, error) {
	for _, name := range tables {
		if !isStandardTable(name) {
			return nil, fmt.Errorf("watching %q: %w", name, types.ErrTableNotFound)
		}
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	if !b.attached {
		return nil, types.ErrStoreDetached
	}

	sub := b.hub.subscribe(tables)
	go func() {
		select {
		case <-ctx.Done():
			b.hub.unsubscribe(sub)
		case <-sub.done:
		}
	}()
	return sub.ch, nil
}

// RunInTransaction runs fn against tables bound to one SQL transaction.
// fn must only use the tables it is given: the backend keeps a single
// connection, which the transaction holds until it finishes.
func (b *Backend) RunInTransaction(ctx context.Context, fn func(tx types.Tables) error) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if !b.attached {
		return types.ErrStoreDetached
	}

	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	s := &session{backend: b, tx: tx, touched: make(map[string]bool)}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(newTableSet(s)); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	if tables := s.touchedTables(); len(tables) > 0 {
		return b.afterWrite(ctx, tables)
	}
	return nil
}

// afterWrite publishes a change event for tables and persists them to JSONL
// according to the sync strategy. The caller must hold b.mu (read or write).
func (b *Backend) afterWrite(ctx context.Context, tables []string) error {
	b.hub.publish(newChangeEvent(tables))

	if b.syncStrategy == types.SyncOnClose {
		b.pendingMu.Lock()
		for _, t := range tables {
			b.pending[t] = true
		}
		b.pendingMu.Unlock()
		return nil
	}
	return b.persist(ctx, tables)
}

// persist rewrites the JSONL files of tables from the database.
func (b *Backend) persist(ctx context.Context, tables []string) error {
	b.persistMu.Lock()
	defer b.persistMu.Unlock()

	for _, t := range tables {
		if err := persistTableJSONL(ctx, b.db, b.dataDir, t); err != nil {
			return fmt.Errorf("persisting %s: %w", t, err)
		}
	}
	return nil
}

// flushPending persists every table queued by the on_close strategy.
func (b *Backend) flushPending(ctx context.Context) error {
	b.pendingMu.Lock()
	defer b.pendingMu.Unlock()

	if len(b.pending) == 0 {
		return nil
	}
	var tables []string
	for _, name := range types.StandardTableNames {
		if b.pending[name] {
			tables = append(tables, name)
		}
	}
	if err := b.persist(ctx, tables); err != nil {
		return err
	}
	b.pending = make(map[string]bool)
	return nil
}
