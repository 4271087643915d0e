/*
Package badger provides a storage.KeyValueDB backed by BadgerDB, an embedded
LSM key-value store.  Import it for its side effect of registering the "badger"
engine.
*/
package badger

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/blang/semver"
	"github.com/dgraph-io/badger/v3"

	"github.com/janelia-flyem/cclabels/dvid"
	"github.com/janelia-flyem/cclabels/storage"
)

const (
	// DefaultSyncWrites is true if all writes are synced to disk, thereby making db resilient
	// at cost of speed.
	DefaultSyncWrites = false

	// SyncInterval is how often buffered writes are synced when SyncWrites is off.
	SyncInterval = 30 * time.Second
)

func init() {
	ver, err := semver.Make("0.2.0")
	if err != nil {
		dvid.Errorf("Unable to make semver in badger: %v\n", err)
	}
	e := Engine{"badger", "BadgerDB", ver}
	storage.RegisterEngine(e)
}

// --- Engine Implementation ------

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

// NewStore returns a badger store. The passed Config must contain a "path" string
// unless "inmemory" is true.
func (e Engine) NewStore(config dvid.StoreConfig) (storage.KeyValueDB, bool, error) {
	return e.newDB(config)
}

func parseConfig(config dvid.StoreConfig) (path string, inMemory bool, err error) {
	inMemory, _, err = config.GetBool("inmemory")
	if err != nil || inMemory {
		return
	}
	var found bool
	path, found, err = config.GetString("path")
	if err != nil {
		return
	}
	if !found || path == "" {
		err = fmt.Errorf("%q must be specified for BadgerDB configuration", "path")
		return
	}
	testing, _, err := config.GetBool("testing")
	if err != nil {
		return
	}
	if testing {
		path = filepath.Join(os.TempDir(), path)
	}
	return
}

// Periodically sync to prevent too many writes from being buffered
// if the process crashes.
func syncPeriodically(db *BadgerDB) {
	ticker := time.NewTicker(SyncInterval)
	defer ticker.Stop()
	for {
		select {
		case <-db.stopSyncCh:
			dvid.Debugf("Stopping sync goroutine for badger @ %s\n", db.directory)
			return
		case <-ticker.C:
			if err := db.bdp.Sync(); err != nil {
				dvid.Errorf("Unable to sync badger @ %s: %v\n", db.directory, err)
			}
		}
	}
}

// newDB returns a Badger backend, creating one at path if it doesn't exist.
func (e Engine) newDB(config dvid.StoreConfig) (*BadgerDB, bool, error) {
	path, inMemory, err := parseConfig(config)
	if err != nil {
		return nil, false, err
	}

	// Is there a database already at this path?  If not, create.
	created := inMemory
	if !inMemory {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			dvid.TimeInfof("Database not already at path (%s). Creating directory...\n", path)
			created = true
			if err := os.MkdirAll(path, 0744); err != nil {
				return nil, true, fmt.Errorf("can't make directory at %s: %v", path, err)
			}
		} else {
			dvid.TimeInfof("Found directory at %s\n", path)
		}
	}

	opts, err := getOptions(path, inMemory, config.Config)
	if err != nil {
		return nil, false, err
	}
	opts = opts.WithLogger(badgerLogger{}).WithNumVersionsToKeep(1)

	badgerDB := &BadgerDB{
		directory:  path,
		config:     config,
		stopSyncCh: make(chan struct{}),
	}
	if inMemory {
		badgerDB.directory = "memory"
	}

	dvid.TimeInfof("Opening badger @ %s\n", badgerDB.directory)
	bdp, err := badger.Open(opts)
	if err != nil {
		return nil, false, err
	}
	badgerDB.bdp = bdp
	if !opts.SyncWrites && !inMemory && !opts.ReadOnly {
		badgerDB.syncing = true
		go syncPeriodically(badgerDB)
	}
	return badgerDB, created, nil
}

// Delete removes the store's directory.
func (e Engine) Delete(config dvid.StoreConfig) error {
	path, inMemory, err := parseConfig(config)
	if err != nil || inMemory {
		return err
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		if err := os.RemoveAll(path); err != nil {
			return fmt.Errorf("can't delete old datastore %q: %v", path, err)
		}
	}
	return nil
}

// badgerLogger routes badger's own logging through dvid, demoting its chatty
// info messages to debug.
type badgerLogger struct{}

func (badgerLogger) Errorf(format string, args ...interface{}) {
	dvid.Errorf("badger: "+format, args...)
}

func (badgerLogger) Warningf(format string, args ...interface{}) {
	dvid.Warningf("badger: "+format, args...)
}

func (badgerLogger) Infof(format string, args ...interface{}) {
	dvid.Debugf("badger: "+format, args...)
}

func (badgerLogger) Debugf(format string, args ...interface{}) {}

// ---- storage.KeyValueDB implementation -----

// BadgerDB is a storage.KeyValueDB backed by a single badger database.
type BadgerDB struct {
	directory string
	config    dvid.StoreConfig
	bdp       *badger.DB

	closeOnce  sync.Once
	syncing    bool
	stopSyncCh chan struct{}
}

func (db *BadgerDB) String() string {
	return fmt.Sprintf("badger @ %s", db.directory)
}

// GetStoreConfig returns the configuration used to open the store.
func (db *BadgerDB) GetStoreConfig() dvid.StoreConfig {
	return db.config
}

func (db *BadgerDB) Close() error {
	if db == nil || db.bdp == nil {
		return nil
	}
	var err error
	db.closeOnce.Do(func() {
		if db.syncing {
			close(db.stopSyncCh)
		}
		err = db.bdp.Close()
		dvid.Infof("Closed Badger DB @ %s\n", db.directory)
	})
	return err
}

func (db *BadgerDB) Get(ctx context.Context, k []byte) ([]byte, error) {
	if db == nil || db.bdp == nil {
		return nil, fmt.Errorf("can't call Get on nil BadgerDB")
	}
	var v []byte
	err := db.bdp.View(func(txn *badger.Txn) error {
		item, err := txn.Get(k)
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		v, err = item.ValueCopy(nil)
		return err
	})
	return v, err
}

func (db *BadgerDB) Put(ctx context.Context, k, v []byte) error {
	if db == nil || db.bdp == nil {
		return fmt.Errorf("can't call Put on nil BadgerDB")
	}
	if v == nil {
		v = []byte{}
	}
	return db.bdp.Update(func(txn *badger.Txn) error {
		return txn.Set(k, v)
	})
}

func (db *BadgerDB) Delete(ctx context.Context, k []byte) error {
	if db == nil || db.bdp == nil {
		return fmt.Errorf("can't call Delete on nil BadgerDB")
	}
	return db.bdp.Update(func(txn *badger.Txn) error {
		return txn.Delete(k)
	})
}

// ProcessPrefix iterates within a single read transaction, so f sees a consistent
// snapshot.  f may write to the store; its writes are not visible to the iteration.
func (db *BadgerDB) ProcessPrefix(ctx context.Context, prefix []byte, f func(k, v []byte) error) error {
	if db == nil || db.bdp == nil {
		return fmt.Errorf("can't call ProcessPrefix on nil BadgerDB")
	}
	return db.bdp.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			item := it.Item()
			v, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			if err := f(item.KeyCopy(nil), v); err != nil {
				return err
			}
		}
		return nil
	})
}

// DeletePrefix uses badger's DropPrefix, which blocks writes while it runs.
func (db *BadgerDB) DeletePrefix(ctx context.Context, prefix []byte) error {
	if db == nil || db.bdp == nil {
		return fmt.Errorf("can't call DeletePrefix on nil BadgerDB")
	}
	if len(prefix) == 0 {
		return db.bdp.DropAll()
	}
	return db.bdp.DropPrefix(prefix)
}
