/*
Package scratch holds the per-block boundary entries produced while labeling blocks
until every block has reported and the merge can run.

Entries are keyed by block id and a Put overwrites any earlier entry for the same
block, so a retried block never leaves duplicate or partial records behind.
*/
package scratch

import (
	"context"
	"encoding/binary"
	"fmt"
	"slices"
	"strings"

	"github.com/twinj/uuid"

	"github.com/janelia-flyem/cclabels/dvid"
	"github.com/janelia-flyem/cclabels/labels"
	"github.com/janelia-flyem/cclabels/storage"
)

// Store records one Entry per block id.
type Store interface {
	// Put stores the entry for a block, replacing any prior entry.
	Put(ctx context.Context, id uint64, e Entry) error

	// Get returns the entry for a block or nil if none was recorded.
	Get(ctx context.Context, id uint64) (*Entry, error)

	// IDs returns the ids of all recorded blocks in ascending order.
	IDs(ctx context.Context) ([]uint64, error)

	Delete(ctx context.Context, id uint64) error

	// Clear removes every entry.
	Clear(ctx context.Context) error
}

// KVStore is a Store over a storage.KeyValueDB.  Entries of different runs sharing
// a database are kept apart by a per-run prefix.
type KVStore struct {
	db     storage.KeyValueDB
	run    string
	prefix []byte
}

// NewKVStore returns a store for a new run with a unique id.
func NewKVStore(db storage.KeyValueDB) *KVStore {
	return OpenKVStore(db, uuid.NewV4().String())
}

// OpenKVStore returns the store for an existing run id.
func OpenKVStore(db storage.KeyValueDB, run string) *KVStore {
	return &KVStore{
		db:     db,
		run:    run,
		prefix: storage.JoinKey([]byte("scratch"), []byte(run), nil),
	}
}

// Run returns the run id namespacing this store's entries.
func (s *KVStore) Run() string {
	return s.run
}

func (s *KVStore) String() string {
	return fmt.Sprintf("scratch run %s in %s", s.run, s.db)
}

func (s *KVStore) key(id uint64) []byte {
	return binary.BigEndian.AppendUint64(slices.Clone(s.prefix), id)
}

func (s *KVStore) Put(ctx context.Context, id uint64, e Entry) error {
	data, err := e.MarshalMsg(nil)
	if err != nil {
		return fmt.Errorf("can't encode scratch entry for block %d: %v", id, err)
	}
	value, err := dvid.SerializeData(data, dvid.Snappy, dvid.CRC32)
	if err != nil {
		return err
	}
	return s.db.Put(ctx, s.key(id), value)
}

func decodeEntry(value []byte) (*Entry, error) {
	data, _, err := dvid.DeserializeData(value, true)
	if err != nil {
		return nil, err
	}
	e := new(Entry)
	if _, err := e.UnmarshalMsg(data); err != nil {
		return nil, err
	}
	return e, nil
}

func (s *KVStore) Get(ctx context.Context, id uint64) (*Entry, error) {
	value, err := s.db.Get(ctx, s.key(id))
	if err != nil || value == nil {
		return nil, err
	}
	e, err := decodeEntry(value)
	if err != nil {
		return nil, fmt.Errorf("bad scratch entry for block %d: %v", id, err)
	}
	return e, nil
}

func (s *KVStore) IDs(ctx context.Context) ([]uint64, error) {
	var ids []uint64
	err := s.db.ProcessPrefix(ctx, s.prefix, func(k, v []byte) error {
		if len(k) != len(s.prefix)+8 {
			return fmt.Errorf("unexpected scratch key %x", k)
		}
		ids = append(ids, binary.BigEndian.Uint64(k[len(s.prefix):]))
		return nil
	})
	return ids, err
}

func (s *KVStore) Delete(ctx context.Context, id uint64) error {
	return s.db.Delete(ctx, s.key(id))
}

func (s *KVStore) Clear(ctx context.Context) error {
	return s.db.DeletePrefix(ctx, s.prefix)
}

// IncompleteError is returned when the recorded blocks do not match the blocks
// expected from the partition.
type IncompleteError struct {
	Expected   int
	Missing    []uint64
	Unexpected []uint64
}

func formatIDs(ids []uint64) string {
	const maxShown = 10
	var parts []string
	for i, id := range ids {
		if i == maxShown {
			parts = append(parts, "...")
			break
		}
		parts = append(parts, fmt.Sprintf("%d", id))
	}
	return strings.Join(parts, ", ")
}

func (e *IncompleteError) Error() string {
	var msgs []string
	if len(e.Missing) > 0 {
		msgs = append(msgs, fmt.Sprintf("%d of %d blocks missing (%s)", len(e.Missing), e.Expected, formatIDs(e.Missing)))
	}
	if len(e.Unexpected) > 0 {
		msgs = append(msgs, fmt.Sprintf("%d unexpected blocks (%s)", len(e.Unexpected), formatIDs(e.Unexpected)))
	}
	return "scratch store incomplete: " + strings.Join(msgs, "; ")
}

// Collect checks that the store holds an entry for exactly the expected block ids
// and returns the union of their nodes and edges, each sorted and deduplicated.
// Nothing is returned unless every expected block has reported.
func Collect(ctx context.Context, store Store, expected []uint64) (nodes []uint64, edges []labels.Edge, err error) {
	ids, err := store.IDs(ctx)
	if err != nil {
		return nil, nil, err
	}
	want := make(map[uint64]struct{}, len(expected))
	for _, id := range expected {
		want[id] = struct{}{}
	}
	have := make(map[uint64]struct{}, len(ids))
	incomplete := &IncompleteError{Expected: len(want)}
	for _, id := range ids {
		have[id] = struct{}{}
		if _, found := want[id]; !found {
			incomplete.Unexpected = append(incomplete.Unexpected, id)
		}
	}
	for id := range want {
		if _, found := have[id]; !found {
			incomplete.Missing = append(incomplete.Missing, id)
		}
	}
	if len(incomplete.Missing) > 0 || len(incomplete.Unexpected) > 0 {
		slices.Sort(incomplete.Missing)
		return nil, nil, incomplete
	}

	nodeSet := make(map[uint64]struct{})
	edgeSet := make(labels.EdgeSet)
	for _, id := range ids {
		e, err := store.Get(ctx, id)
		if err != nil {
			return nil, nil, err
		}
		if e == nil {
			return nil, nil, &IncompleteError{Expected: len(want), Missing: []uint64{id}}
		}
		for _, label := range e.Nodes {
			nodeSet[label] = struct{}{}
		}
		for _, edge := range e.Edges {
			edgeSet[labels.NewEdge(edge[0], edge[1])] = struct{}{}
		}
	}
	nodes = make([]uint64, 0, len(nodeSet))
	for label := range nodeSet {
		nodes = append(nodes, label)
	}
	slices.Sort(nodes)
	return nodes, edgeSet.Edges(), nil
}
