package scratch

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/janelia-flyem/cclabels/labels"
	"github.com/janelia-flyem/cclabels/storage"
)

func TestEntryCodec(t *testing.T) {
	e := Entry{
		Nodes: []uint64{3, 1 << 62, 9},
		Edges: []labels.Edge{{3, 9}, {9, 1 << 62}},
	}
	data, err := e.MarshalMsg(nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(data) > e.Msgsize() {
		t.Errorf("encoded %d bytes, more than Msgsize %d", len(data), e.Msgsize())
	}
	var got Entry
	left, err := got.UnmarshalMsg(data)
	if err != nil {
		t.Fatal(err)
	}
	if len(left) != 0 {
		t.Errorf("%d bytes left after decoding", len(left))
	}
	if diff := cmp.Diff(e, got); diff != "" {
		t.Errorf("entry changed (-want +got):\n%s", diff)
	}

	var empty Entry
	data, _ = empty.MarshalMsg(nil)
	if _, err := got.UnmarshalMsg(data); err != nil {
		t.Fatal(err)
	}
	if len(got.Nodes) != 0 || len(got.Edges) != 0 {
		t.Errorf("expected empty entry, got %v", got)
	}
}

func TestKVStoreOverwrite(t *testing.T) {
	ctx := context.Background()
	s := NewKVStore(storage.NewMemoryDB())
	if err := s.Put(ctx, 5, Entry{Nodes: []uint64{1, 2}, Edges: []labels.Edge{{1, 2}}}); err != nil {
		t.Fatal(err)
	}
	// a retried block replaces its earlier record
	if err := s.Put(ctx, 5, Entry{Nodes: []uint64{7, 8}, Edges: []labels.Edge{{7, 8}}}); err != nil {
		t.Fatal(err)
	}
	e, err := s.Get(ctx, 5)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(&Entry{Nodes: []uint64{7, 8}, Edges: []labels.Edge{{7, 8}}}, e); diff != "" {
		t.Errorf("unexpected entry (-want +got):\n%s", diff)
	}
	if e, err = s.Get(ctx, 6); err != nil || e != nil {
		t.Errorf("expected no entry for unrecorded block, got %v (err %v)", e, err)
	}
}

func TestKVStoreRunsAreSeparate(t *testing.T) {
	ctx := context.Background()
	db := storage.NewMemoryDB()
	a, b := NewKVStore(db), NewKVStore(db)
	if a.Run() == b.Run() {
		t.Fatalf("expected distinct run ids")
	}
	a.Put(ctx, 1, Entry{})
	a.Put(ctx, 300, Entry{})
	b.Put(ctx, 2, Entry{})
	ids, err := a.IDs(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]uint64{1, 300}, ids); diff != "" {
		t.Errorf("unexpected ids (-want +got):\n%s", diff)
	}
	if err := a.Clear(ctx); err != nil {
		t.Fatal(err)
	}
	if ids, _ = a.IDs(ctx); len(ids) != 0 {
		t.Errorf("expected cleared store, got ids %v", ids)
	}
	if ids, _ = OpenKVStore(db, b.Run()).IDs(ctx); len(ids) != 1 {
		t.Errorf("clearing one run affected another: %v", ids)
	}
}

func TestCollect(t *testing.T) {
	ctx := context.Background()
	s := NewKVStore(storage.NewMemoryDB())
	s.Put(ctx, 0, Entry{Nodes: []uint64{1, 12}, Edges: []labels.Edge{{1, 12}}})
	s.Put(ctx, 1, Entry{Nodes: []uint64{12, 1, 25}, Edges: []labels.Edge{{12, 1}, {12, 25}}})

	_, _, err := Collect(ctx, s, []uint64{0, 1, 2, 3})
	var incomplete *IncompleteError
	if !errors.As(err, &incomplete) {
		t.Fatalf("expected IncompleteError, got %v", err)
	}
	if diff := cmp.Diff([]uint64{2, 3}, incomplete.Missing); diff != "" {
		t.Errorf("unexpected missing ids (-want +got):\n%s", diff)
	}

	s.Put(ctx, 2, Entry{})
	s.Put(ctx, 3, Entry{Nodes: []uint64{40}, Edges: nil})
	s.Put(ctx, 9, Entry{})
	if _, _, err = Collect(ctx, s, []uint64{0, 1, 2, 3}); !errors.As(err, &incomplete) || len(incomplete.Unexpected) != 1 {
		t.Fatalf("expected unexpected block 9 to be reported, got %v", err)
	}
	s.Delete(ctx, 9)

	nodes, edges, err := Collect(ctx, s, []uint64{0, 1, 2, 3})
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]uint64{1, 12, 25, 40}, nodes); diff != "" {
		t.Errorf("unexpected nodes (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]labels.Edge{{1, 12}, {12, 25}}, edges); diff != "" {
		t.Errorf("unexpected edges (-want +got):\n%s", diff)
	}
}
