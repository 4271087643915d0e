// Package storagetest exercises any storage.KeyValueDB against the behavior the
// label arrays and scratch stores depend on.
package storagetest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/janelia-flyem/cclabels/storage"
)

// RunAll runs every test against db.  The store should be empty.
func RunAll(t *testing.T, db storage.KeyValueDB) {
	t.Run("GetPut", func(t *testing.T) { GetPut(t, db) })
	t.Run("Prefix", func(t *testing.T) { Prefix(t, db) })
	t.Run("Concurrent", func(t *testing.T) { Concurrent(t, db) })
}

// GetPut checks missing keys, overwrite, and delete.
func GetPut(t *testing.T, db storage.KeyValueDB) {
	ctx := context.Background()
	key := []byte("getput/a")
	v, err := db.Get(ctx, key)
	if err != nil {
		t.Fatalf("get of missing key: %v", err)
	}
	if v != nil {
		t.Fatalf("expected nil for missing key, got %v", v)
	}
	if err := db.Put(ctx, key, []byte("first")); err != nil {
		t.Fatal(err)
	}
	if err := db.Put(ctx, key, []byte("second")); err != nil {
		t.Fatal(err)
	}
	if v, err = db.Get(ctx, key); err != nil {
		t.Fatal(err)
	}
	if string(v) != "second" {
		t.Errorf("expected overwritten value %q, got %q", "second", v)
	}
	binaryKey := []byte{'g', 0x00, 0xff, 0x10}
	binaryValue := []byte{0, 1, 2, 0xfe, 0xff}
	if err := db.Put(ctx, binaryKey, binaryValue); err != nil {
		t.Fatal(err)
	}
	if v, err = db.Get(ctx, binaryKey); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(v, binaryValue) {
		t.Errorf("binary value not preserved: got %v", v)
	}
	for _, k := range [][]byte{key, binaryKey, []byte("getput/missing")} {
		if err := db.Delete(ctx, k); err != nil {
			t.Fatalf("delete %q: %v", k, err)
		}
	}
	if v, err = db.Get(ctx, key); err != nil || v != nil {
		t.Errorf("expected deleted key to be missing, got %v (err %v)", v, err)
	}
}

// Prefix checks ordered prefix iteration, early termination, and prefix deletion.
func Prefix(t *testing.T, db storage.KeyValueDB) {
	ctx := context.Background()
	prefix := []byte("prefix/")
	var expected []string
	for _, id := range []uint64{300, 2, 1 << 40, 17} {
		k := storage.JoinKey([]byte("prefix"), storage.Uint64Key(id))
		if err := db.Put(ctx, k, []byte(fmt.Sprintf("%d", id))); err != nil {
			t.Fatal(err)
		}
	}
	expected = []string{"2", "17", "300", fmt.Sprintf("%d", uint64(1<<40))}
	if err := db.Put(ctx, []byte("prefiy"), []byte("outside")); err != nil {
		t.Fatal(err)
	}
	if err := db.Put(ctx, []byte("prefix"), []byte("outside")); err != nil {
		t.Fatal(err)
	}

	kvs, err := storage.GetAll(ctx, db, prefix)
	if err != nil {
		t.Fatal(err)
	}
	if len(kvs) != len(expected) {
		t.Fatalf("expected %d pairs under prefix, got %d", len(expected), len(kvs))
	}
	for i, kv := range kvs {
		if string(kv.V) != expected[i] {
			t.Errorf("pair %d: expected value %s, got %s", i, expected[i], kv.V)
		}
		if !bytes.HasPrefix(kv.K, prefix) {
			t.Errorf("key %v returned outside prefix", kv.K)
		}
	}

	stop := errors.New("stop")
	var n int
	err = db.ProcessPrefix(ctx, prefix, func(k, v []byte) error {
		n++
		return stop
	})
	if !errors.Is(err, stop) || n != 1 {
		t.Errorf("expected iteration to stop after first pair with error, got %d calls and %v", n, err)
	}

	if err := db.DeletePrefix(ctx, prefix); err != nil {
		t.Fatal(err)
	}
	if kvs, err = storage.GetAll(ctx, db, prefix); err != nil || len(kvs) != 0 {
		t.Errorf("expected no pairs after prefix delete, got %d (err %v)", len(kvs), err)
	}
	for _, k := range []string{"prefiy", "prefix"} {
		v, err := db.Get(ctx, []byte(k))
		if err != nil || string(v) != "outside" {
			t.Errorf("key %q outside prefix affected by delete: %q (err %v)", k, v, err)
		}
		db.Delete(ctx, []byte(k))
	}
}

// Concurrent checks that concurrent writers to distinct keys all land.
func Concurrent(t *testing.T, db storage.KeyValueDB) {
	ctx := context.Background()
	const numWriters = 8
	const perWriter = 25
	var wg sync.WaitGroup
	errs := make(chan error, numWriters)
	for w := 0; w < numWriters; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWriter; i++ {
				k := storage.JoinKey([]byte("concurrent"), storage.Uint64Key(uint64(w*perWriter+i)))
				if err := db.Put(ctx, k, []byte{byte(w)}); err != nil {
					errs <- err
					return
				}
			}
		}(w)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatal(err)
	}
	kvs, err := storage.GetAll(ctx, db, []byte("concurrent/"))
	if err != nil {
		t.Fatal(err)
	}
	if len(kvs) != numWriters*perWriter {
		t.Errorf("expected %d keys, got %d", numWriters*perWriter, len(kvs))
	}
	if err := db.DeletePrefix(ctx, []byte("concurrent/")); err != nil {
		t.Fatal(err)
	}
}
