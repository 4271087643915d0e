/*
Package storage provides a unified interface to a number of ordered key-value
engines.  Engines register themselves at init time and are selected by name through
a dvid.StoreConfig, so the label arrays and scratch entries of a run can live in
memory, in an embedded database (badger, sqlite), or in a cloud bucket.

Keys are opaque byte slices ordered lexicographically and values are simply
[]byte at this level.  We assume serialization/deserialization occur above the
storage level.
*/
package storage

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/blang/semver"

	"github.com/janelia-flyem/cclabels/dvid"
)

// ErrUnknownEngine is returned when a store configuration names an engine that was
// not compiled in or registered.
var ErrUnknownEngine = errors.New("unknown storage engine")

// Engine is a storage engine that can open stores from a configuration.
type Engine interface {
	GetName() string
	GetDescription() string
	GetSemVer() semver.Version
	String() string

	// NewStore opens the store described by config, returning whether it had to
	// be created.
	NewStore(config dvid.StoreConfig) (db KeyValueDB, created bool, err error)
}

// KeyValueDB is an ordered key-value store safe for concurrent use.
type KeyValueDB interface {
	fmt.Stringer

	// Get returns the value for a key or nil if the key is not present.
	Get(ctx context.Context, k []byte) ([]byte, error)

	// Put stores a value, overwriting any prior value for the key.
	Put(ctx context.Context, k, v []byte) error

	// Delete removes a key.  Deleting a missing key is not an error.
	Delete(ctx context.Context, k []byte) error

	// ProcessPrefix calls f on every key-value pair whose key starts with prefix
	// in ascending key order.  Iteration stops at the first error returned by f.
	ProcessPrefix(ctx context.Context, prefix []byte, f func(k, v []byte) error) error

	// DeletePrefix removes all keys starting with prefix.
	DeletePrefix(ctx context.Context, prefix []byte) error

	Close() error
}

var (
	enginesMu sync.RWMutex
	engines   = make(map[string]Engine)
)

// RegisterEngine registers an Engine for use, replacing any engine of the same name.
func RegisterEngine(e Engine) {
	enginesMu.Lock()
	defer enginesMu.Unlock()
	engines[e.GetName()] = e
}

// GetEngine returns the engine registered under name.
func GetEngine(name string) (Engine, error) {
	enginesMu.RLock()
	defer enginesMu.RUnlock()
	e, found := engines[name]
	if !found {
		return nil, fmt.Errorf("%w %q (available: %v)", ErrUnknownEngine, name, enginesAvailableLocked())
	}
	return e, nil
}

// EnginesAvailable returns the names of registered engines.
func EnginesAvailable() []string {
	enginesMu.RLock()
	defer enginesMu.RUnlock()
	return enginesAvailableLocked()
}

func enginesAvailableLocked() []string {
	names := make([]string, 0, len(engines))
	for name := range engines {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// EngineDescriptions returns a human-readable line per registered engine.
func EngineDescriptions() []string {
	enginesMu.RLock()
	defer enginesMu.RUnlock()
	var lines []string
	for _, name := range enginesAvailableLocked() {
		e := engines[name]
		lines = append(lines, fmt.Sprintf("%s: %s", e, e.GetDescription()))
	}
	return lines
}

// NewStore opens a store using the engine named in the configuration.
func NewStore(config dvid.StoreConfig) (KeyValueDB, error) {
	e, err := GetEngine(config.Engine)
	if err != nil {
		return nil, err
	}
	db, created, err := e.NewStore(config)
	if err != nil {
		return nil, fmt.Errorf("unable to open %s: %v", config, err)
	}
	if created {
		dvid.Infof("Created new %s store: %s\n", e.GetName(), db)
	} else {
		dvid.Infof("Opened existing %s store: %s\n", e.GetName(), db)
	}
	return db, nil
}
