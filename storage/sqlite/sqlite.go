/*
Package sqlite provides a storage.KeyValueDB backed by a single SQLite table using
the pure-Go modernc.org/sqlite driver.  Import it for its side effect of
registering the "sqlite" engine.
*/
package sqlite

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/blang/semver"
	_ "modernc.org/sqlite"

	"github.com/janelia-flyem/cclabels/dvid"
	"github.com/janelia-flyem/cclabels/storage"
)

// scanBatch is the number of rows read per query when iterating over a prefix.
const scanBatch = 1000

func init() {
	ver, err := semver.Make("0.1.0")
	if err != nil {
		dvid.Errorf("Unable to make semver in sqlite: %v\n", err)
	}
	storage.RegisterEngine(Engine{"sqlite", "SQLite single-table key-value store", ver})
}

type Engine struct {
	name   string
	desc   string
	semver semver.Version
}

func (e Engine) GetName() string {
	return e.name
}

func (e Engine) GetDescription() string {
	return e.desc
}

func (e Engine) GetSemVer() semver.Version {
	return e.semver
}

func (e Engine) String() string {
	return fmt.Sprintf("%s [%s]", e.name, e.semver)
}

// NewStore opens the database file at the "path" setting, creating it if needed.
// A path of ":memory:" opens a private in-memory database.
func (e Engine) NewStore(config dvid.StoreConfig) (storage.KeyValueDB, bool, error) {
	path, found, err := config.GetString("path")
	if err != nil {
		return nil, false, err
	}
	if !found || path == "" {
		return nil, false, fmt.Errorf("%q must be specified for sqlite configuration", "path")
	}
	var created bool
	if path != ":memory:" {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			created = true
			if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
				return nil, false, fmt.Errorf("can't make directory for %s: %v", path, err)
			}
		}
	} else {
		created = true
	}
	db, err := Open(path)
	if err != nil {
		return nil, false, err
	}
	db.config = config
	return db, created, nil
}

// DB is a storage.KeyValueDB stored in the "kv" table of a SQLite database.
type DB struct {
	path   string
	config dvid.StoreConfig
	db     *sql.DB
}

// Open opens or creates the database at path and ensures the kv table exists.
func Open(path string) (*DB, error) {
	sqldb, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// A single connection serializes writers and keeps ":memory:" databases
	// from being split across connections.
	sqldb.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	}
	for _, pragma := range pragmas {
		if _, err := sqldb.Exec(pragma); err != nil {
			sqldb.Close()
			return nil, fmt.Errorf("failed to apply %q: %v", pragma, err)
		}
	}
	_, err = sqldb.Exec(`
		CREATE TABLE IF NOT EXISTS kv (
			k  BLOB PRIMARY KEY,
			v  BLOB NOT NULL
		) WITHOUT ROWID;
	`)
	if err != nil {
		sqldb.Close()
		return nil, err
	}
	return &DB{path: path, db: sqldb}, nil
}

func (db *DB) String() string {
	return fmt.Sprintf("sqlite @ %s", db.path)
}

func (db *DB) Get(ctx context.Context, k []byte) ([]byte, error) {
	var v []byte
	err := db.db.QueryRowContext(ctx, "SELECT v FROM kv WHERE k = ?", k).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if v == nil {
		v = []byte{}
	}
	return v, nil
}

func (db *DB) Put(ctx context.Context, k, v []byte) error {
	if v == nil {
		v = []byte{}
	}
	_, err := db.db.ExecContext(ctx, "INSERT OR REPLACE INTO kv (k, v) VALUES (?, ?)", k, v)
	return err
}

func (db *DB) Delete(ctx context.Context, k []byte) error {
	_, err := db.db.ExecContext(ctx, "DELETE FROM kv WHERE k = ?", k)
	return err
}

// ProcessPrefix reads the prefix range in batches and releases the connection
// before calling f, so f may use the store.
func (db *DB) ProcessPrefix(ctx context.Context, prefix []byte, f func(k, v []byte) error) error {
	end := storage.PrefixEnd(prefix)
	after := prefix
	inclusive := true
	for {
		batch, err := db.scan(ctx, after, inclusive, end)
		if err != nil {
			return err
		}
		for _, kv := range batch {
			if !bytes.HasPrefix(kv.K, prefix) {
				return nil
			}
			if err := f(kv.K, kv.V); err != nil {
				return err
			}
		}
		if len(batch) < scanBatch {
			return nil
		}
		after, inclusive = batch[len(batch)-1].K, false
	}
}

func (db *DB) scan(ctx context.Context, start []byte, inclusive bool, end []byte) ([]storage.KeyValue, error) {
	op := ">"
	if inclusive {
		op = ">="
	}
	if start == nil {
		start = []byte{}
	}
	var rows *sql.Rows
	var err error
	if end == nil {
		rows, err = db.db.QueryContext(ctx,
			"SELECT k, v FROM kv WHERE k "+op+" ? ORDER BY k LIMIT ?", start, scanBatch)
	} else {
		rows, err = db.db.QueryContext(ctx,
			"SELECT k, v FROM kv WHERE k "+op+" ? AND k < ? ORDER BY k LIMIT ?", start, end, scanBatch)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var kvs []storage.KeyValue
	for rows.Next() {
		var kv storage.KeyValue
		if err := rows.Scan(&kv.K, &kv.V); err != nil {
			return nil, err
		}
		kvs = append(kvs, kv)
	}
	return kvs, rows.Err()
}

func (db *DB) DeletePrefix(ctx context.Context, prefix []byte) error {
	end := storage.PrefixEnd(prefix)
	var err error
	switch {
	case len(prefix) == 0:
		_, err = db.db.ExecContext(ctx, "DELETE FROM kv")
	case end == nil:
		_, err = db.db.ExecContext(ctx, "DELETE FROM kv WHERE k >= ?", prefix)
	default:
		_, err = db.db.ExecContext(ctx, "DELETE FROM kv WHERE k >= ? AND k < ?", prefix, end)
	}
	return err
}

func (db *DB) Close() error {
	return db.db.Close()
}
