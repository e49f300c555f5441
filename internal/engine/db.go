package engine

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/afero"

	"github.com/petreldb/petrel/internal/btree"
	"github.com/petreldb/petrel/internal/bufferpool"
	"github.com/petreldb/petrel/internal/heap"
	"github.com/petreldb/petrel/internal/record"
	"github.com/petreldb/petrel/internal/storage"
)

var (
	ErrTableExists   = errors.New("engine: table already exists")
	ErrTableNotFound = errors.New("engine: table not found")
	ErrIndexExists   = errors.New("engine: index already exists")
	ErrIndexNotFound = errors.New("engine: index not found")
	ErrBadKeyColumn  = errors.New("engine: index key column must be a non-nullable integer")
)

// Options controls how a database is opened. InMemory swaps the page
// store for an afero in-memory filesystem behind the exact same code
// path; nothing above the FileSet can tell the difference.
type Options struct {
	DataDir      string
	InMemory     bool
	PoolCapacity int
}

// TableMeta is the JSON sidecar persisted per table:
// <DataDir>/tables/<name>.meta.json.
type TableMeta struct {
	Name      string        `json:"name"`
	Schema    record.Schema `json:"schema"`
	PageCount uint32        `json:"page_count"`
	Indexes   []IndexMeta   `json:"indexes,omitempty"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// IndexMeta records one secondary index over a table column.
type IndexMeta struct {
	Name   string `json:"name"`
	KeyCol string `json:"key_col"`
}

// Database owns the process-wide storage stack: one afero filesystem,
// one StorageManager, one buffer pool shared by every table and index.
type Database struct {
	DataDir string
	FS      afero.Fs
	SM      *storage.StorageManager
	Pool    *bufferpool.Pool
}

// Open sets up the storage stack rooted at opts.DataDir.
func Open(opts Options) (*Database, error) {
	var fs afero.Fs
	if opts.InMemory {
		fs = afero.NewMemMapFs()
	} else {
		fs = afero.NewOsFs()
	}
	if err := fs.MkdirAll(opts.DataDir, storage.FileMode0755); err != nil {
		return nil, fmt.Errorf("engine: create data dir: %w", err)
	}

	sm := storage.NewStorageManager()
	db := &Database{
		DataDir: opts.DataDir,
		FS:      fs,
		SM:      sm,
		Pool:    bufferpool.NewPool(sm, opts.PoolCapacity),
	}
	slog.Info("engine.open",
		"dataDir", opts.DataDir,
		"inMemory", opts.InMemory,
		"poolCapacity", opts.PoolCapacity,
	)
	return db, nil
}

func (db *Database) tableDir() string {
	return filepath.Join(db.DataDir, "tables")
}

func (db *Database) tableMetaPath(name string) string {
	return filepath.Join(db.tableDir(), name+".meta.json")
}

func (db *Database) tableFileSet(name string) storage.LocalFileSet {
	return storage.LocalFileSet{FS: db.FS, Dir: db.tableDir(), Base: name}
}

// indexFileSet derives the segment base for an index from its owning
// table: "<table>_<index>_idx". The B+Tree keeps its own shape sidecar
// next to these segments.
func (db *Database) indexFileSet(table, index string) storage.LocalFileSet {
	return storage.LocalFileSet{
		FS:   db.FS,
		Dir:  db.tableDir(),
		Base: fmt.Sprintf("%s_%s_idx", table, index),
	}
}

func (db *Database) writeTableMeta(meta *TableMeta) error {
	if err := db.FS.MkdirAll(db.tableDir(), storage.FileMode0755); err != nil {
		return err
	}
	meta.UpdatedAt = time.Now()

	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return err
	}
	return afero.WriteFile(db.FS, db.tableMetaPath(meta.Name), data, storage.FileMode0644)
}

func (db *Database) readTableMeta(name string) (*TableMeta, error) {
	data, err := afero.ReadFile(db.FS, db.tableMetaPath(name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrTableNotFound, name)
		}
		return nil, err
	}

	var meta TableMeta
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

// CreateTable registers a new empty heap table.
func (db *Database) CreateTable(name string, schema record.Schema) (*heap.Table, error) {
	if _, err := db.FS.Stat(db.tableMetaPath(name)); err == nil {
		return nil, fmt.Errorf("%w: %s", ErrTableExists, name)
	}

	meta := &TableMeta{
		Name:      name,
		Schema:    schema,
		CreatedAt: time.Now(),
	}
	if err := db.writeTableMeta(meta); err != nil {
		return nil, err
	}

	fs := db.tableFileSet(name)
	return heap.NewTable(name, schema, db.Pool.View(fs), 0), nil
}

// OpenTable loads an existing table. The on-disk segment sizes are the
// source of truth for PageCount; the meta snapshot is refreshed
// best-effort.
func (db *Database) OpenTable(name string) (*heap.Table, error) {
	meta, err := db.readTableMeta(name)
	if err != nil {
		return nil, err
	}

	fs := db.tableFileSet(name)
	pageCount, err := db.SM.CountPages(fs)
	if err != nil {
		return nil, err
	}

	if meta.PageCount != pageCount {
		meta.PageCount = pageCount
		if err := db.writeTableMeta(meta); err != nil {
			slog.Warn("engine.open_table.meta_refresh", "table", name, "err", err)
		}
	}

	return heap.NewTable(name, meta.Schema, db.Pool.View(fs), pageCount), nil
}

// SyncTableMeta persists the table's current page count.
func (db *Database) SyncTableMeta(tbl *heap.Table) error {
	meta, err := db.readTableMeta(tbl.Name)
	if err != nil {
		return err
	}
	meta.PageCount = tbl.PageCount
	return db.writeTableMeta(meta)
}

// CreateIndex builds a B+Tree over an integer column: existing rows are
// scanned and inserted as (key, packed TID). The index is recorded in
// the table meta so OpenIndex can find its key column later.
func (db *Database) CreateIndex(table, name, keyCol string) (*btree.Tree, error) {
	meta, err := db.readTableMeta(table)
	if err != nil {
		return nil, err
	}

	for _, im := range meta.Indexes {
		if im.Name == name {
			return nil, fmt.Errorf("%w: %s.%s", ErrIndexExists, table, name)
		}
	}

	ci := meta.Schema.ColIndex(keyCol)
	if ci < 0 || meta.Schema.Cols[ci].Type != record.ColInteger || meta.Schema.Cols[ci].Nullable {
		return nil, fmt.Errorf("%w: %s.%s", ErrBadKeyColumn, table, keyCol)
	}

	// The backfill scan reads through CountPages, so rows still sitting
	// in dirty frames must reach the segments first.
	if err := db.Pool.FlushRelation(db.tableFileSet(table)); err != nil {
		return nil, err
	}

	tbl, err := db.OpenTable(table)
	if err != nil {
		return nil, err
	}

	ifs := db.indexFileSet(table, name)
	tree, err := btree.Open(db.Pool.View(ifs), ifs)
	if err != nil {
		return nil, err
	}

	err = tbl.Scan(func(id heap.TID, row []any) error {
		if row[ci] == nil {
			return nil
		}
		return tree.Insert(int64(row[ci].(int32)), id.Pack())
	})
	if err != nil {
		return nil, err
	}

	meta.Indexes = append(meta.Indexes, IndexMeta{Name: name, KeyCol: keyCol})
	if err := db.writeTableMeta(meta); err != nil {
		return nil, err
	}
	slog.Info("engine.index.created", "table", table, "index", name, "keyCol", keyCol)
	return tree, nil
}

// OpenIndex opens an index previously created over table. Unknown
// names fail instead of bootstrapping an empty tree.
func (db *Database) OpenIndex(table, name string) (*btree.Tree, error) {
	meta, err := db.readTableMeta(table)
	if err != nil {
		return nil, err
	}

	known := false
	for _, im := range meta.Indexes {
		if im.Name == name {
			known = true
			break
		}
	}
	if !known {
		return nil, fmt.Errorf("%w: %s.%s", ErrIndexNotFound, table, name)
	}

	ifs := db.indexFileSet(table, name)
	return btree.Open(db.Pool.View(ifs), ifs)
}

// DropTable flushes and evicts the table's pages, then deletes its
// segments, its indexes' segments and sidecars, and its meta file.
func (db *Database) DropTable(name string) error {
	meta, err := db.readTableMeta(name)
	if err != nil {
		return err
	}

	for _, im := range meta.Indexes {
		ifs := db.indexFileSet(name, im.Name)
		if err := db.Pool.View(ifs).Drop(); err != nil {
			return err
		}
		if err := storage.RemoveAllSegments(ifs); err != nil {
			return err
		}
		if err := db.FS.Remove(btree.MetaPath(ifs)); err != nil && !os.IsNotExist(err) {
			return err
		}
	}

	fs := db.tableFileSet(name)
	if err := db.Pool.View(fs).Drop(); err != nil {
		return err
	}
	if err := storage.RemoveAllSegments(fs); err != nil {
		return err
	}
	if err := db.FS.Remove(db.tableMetaPath(name)); err != nil && !os.IsNotExist(err) {
		return err
	}
	slog.Info("engine.table.dropped", "table", name)
	return nil
}

// Close flushes every dirty page in the pool. Tables and indexes handed
// out by this Database must not be used afterwards.
func (db *Database) Close() error {
	return db.Pool.Close()
}
