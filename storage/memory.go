package storage

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/blang/semver"

	"github.com/janelia-flyem/cclabels/dvid"
)

func init() {
	ver, err := semver.Make("0.1.0")
	if err != nil {
		dvid.Errorf("Unable to make semver in memory engine: %v\n", err)
	}
	RegisterEngine(memoryEngine{"memory", "In-process map, lost on exit", ver})
}

type memoryEngine struct {
	name   string
	desc   string
	semver semver.Version
}

func (e memoryEngine) GetName() string {
	return e.name
}

func (e memoryEngine) GetDescription() string {
	return e.desc
}

func (e memoryEngine) GetSemVer() semver.Version {
	return e.semver
}

func (e memoryEngine) String() string {
	return fmt.Sprintf("%s [%s]", e.name, e.semver)
}

// NewStore returns a new, empty in-memory store.  The configuration is ignored.
func (e memoryEngine) NewStore(config dvid.StoreConfig) (KeyValueDB, bool, error) {
	return NewMemoryDB(), true, nil
}

// MemoryDB is an in-process KeyValueDB.
type MemoryDB struct {
	mu sync.RWMutex
	kv map[string][]byte
}

// NewMemoryDB returns an empty in-memory store.
func NewMemoryDB() *MemoryDB {
	return &MemoryDB{kv: make(map[string][]byte)}
}

func (db *MemoryDB) String() string {
	return "memory store"
}

func (db *MemoryDB) Get(ctx context.Context, k []byte) ([]byte, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	if db.kv == nil {
		return nil, fmt.Errorf("cannot get from closed memory store")
	}
	v, found := db.kv[string(k)]
	if !found {
		return nil, nil
	}
	return bytes.Clone(v), nil
}

func (db *MemoryDB) Put(ctx context.Context, k, v []byte) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if db.kv == nil {
		return fmt.Errorf("cannot put into closed memory store")
	}
	if v == nil {
		v = []byte{}
	}
	db.kv[string(k)] = bytes.Clone(v)
	return nil
}

func (db *MemoryDB) Delete(ctx context.Context, k []byte) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	delete(db.kv, string(k))
	return nil
}

// ProcessPrefix works on a snapshot of the matching pairs, so f may modify the store.
func (db *MemoryDB) ProcessPrefix(ctx context.Context, prefix []byte, f func(k, v []byte) error) error {
	db.mu.RLock()
	var kvs []KeyValue
	for k, v := range db.kv {
		if bytes.HasPrefix([]byte(k), prefix) {
			kvs = append(kvs, KeyValue{K: []byte(k), V: bytes.Clone(v)})
		}
	}
	db.mu.RUnlock()

	sort.Slice(kvs, func(i, j int) bool { return bytes.Compare(kvs[i].K, kvs[j].K) < 0 })
	for _, kv := range kvs {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := f(kv.K, kv.V); err != nil {
			return err
		}
	}
	return nil
}

func (db *MemoryDB) DeletePrefix(ctx context.Context, prefix []byte) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	for k := range db.kv {
		if bytes.HasPrefix([]byte(k), prefix) {
			delete(db.kv, k)
		}
	}
	return nil
}

func (db *MemoryDB) Close() error {
	db.mu.Lock()
	db.kv = nil
	db.mu.Unlock()
	return nil
}
