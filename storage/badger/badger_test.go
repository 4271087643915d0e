package badger

import (
	"context"
	"testing"

	"github.com/twinj/uuid"

	"github.com/janelia-flyem/cclabels/dvid"
	"github.com/janelia-flyem/cclabels/storage"
	"github.com/janelia-flyem/cclabels/storage/storagetest"
)

func openTestDB(t *testing.T, settings map[string]interface{}) storage.KeyValueDB {
	t.Helper()
	db, err := storage.NewStore(dvid.StoreConfig{Config: dvid.NewConfig(settings), Engine: "badger"})
	if err != nil {
		t.Fatalf("can't open badger store: %v", err)
	}
	return db
}

func TestBadgerDB(t *testing.T) {
	db := openTestDB(t, map[string]interface{}{"path": t.TempDir()})
	defer db.Close()
	storagetest.RunAll(t, db)
}

func TestBadgerInMemory(t *testing.T) {
	db := openTestDB(t, map[string]interface{}{"inmemory": true})
	defer db.Close()
	storagetest.RunAll(t, db)
}

func TestBadgerReopen(t *testing.T) {
	config := dvid.StoreConfig{
		Config: dvid.NewConfig(map[string]interface{}{
			"path":    "cclabels-test-badger-" + uuid.NewV4().String(),
			"testing": true,
		}),
		Engine: "badger",
	}
	var e Engine
	db, created, err := e.NewStore(config)
	if err != nil {
		t.Fatal(err)
	}
	defer e.Delete(config)
	if !created {
		t.Errorf("expected new store to be created")
	}
	ctx := context.Background()
	if err := db.Put(ctx, []byte("k"), []byte("persisted")); err != nil {
		t.Fatal(err)
	}
	if err := db.Close(); err != nil {
		t.Fatal(err)
	}

	db, created, err = e.NewStore(config)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	if created {
		t.Errorf("expected existing store to be reopened")
	}
	v, err := db.Get(ctx, []byte("k"))
	if err != nil {
		t.Fatal(err)
	}
	if string(v) != "persisted" {
		t.Errorf("expected persisted value after reopen, got %q", v)
	}
}

func TestBadgerBadConfig(t *testing.T) {
	var e Engine
	if _, _, err := e.NewStore(dvid.StoreConfig{Config: dvid.NewConfig(nil), Engine: "badger"}); err == nil {
		t.Errorf("expected error when path is missing")
	}
	settings := map[string]interface{}{"path": t.TempDir(), "syncwrites": "yes"}
	if _, _, err := e.NewStore(dvid.StoreConfig{Config: dvid.NewConfig(settings), Engine: "badger"}); err == nil {
		t.Errorf("expected error for non-bool SyncWrites")
	}
}
