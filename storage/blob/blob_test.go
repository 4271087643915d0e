package blob

import (
	"context"
	"testing"

	"github.com/janelia-flyem/cclabels/dvid"
	"github.com/janelia-flyem/cclabels/storage"
	"github.com/janelia-flyem/cclabels/storage/storagetest"
)

func openStore(t *testing.T, settings map[string]interface{}) storage.KeyValueDB {
	t.Helper()
	db, err := storage.NewStore(dvid.StoreConfig{Config: dvid.NewConfig(settings), Engine: "blob"})
	if err != nil {
		t.Fatal(err)
	}
	return db
}

func TestMemBucket(t *testing.T) {
	db := openStore(t, map[string]interface{}{"bucket": "mem://"})
	defer db.Close()
	storagetest.RunAll(t, db)
}

func TestFileBucket(t *testing.T) {
	db := openStore(t, map[string]interface{}{"path": t.TempDir()})
	defer db.Close()
	storagetest.RunAll(t, db)
}

func TestPrefixedStoresAreDisjoint(t *testing.T) {
	dir := t.TempDir()
	a := openStore(t, map[string]interface{}{"path": dir, "prefix": "a"})
	defer a.Close()
	b := openStore(t, map[string]interface{}{"path": dir, "prefix": "b"})
	defer b.Close()

	ctx := context.Background()
	if err := a.Put(ctx, []byte("key"), []byte("from a")); err != nil {
		t.Fatal(err)
	}
	v, err := b.Get(ctx, []byte("key"))
	if err != nil {
		t.Fatal(err)
	}
	if v != nil {
		t.Errorf("store b sees key written to store a: %q", v)
	}
	if err := b.DeletePrefix(ctx, nil); err != nil {
		t.Fatal(err)
	}
	if v, err = a.Get(ctx, []byte("key")); err != nil || string(v) != "from a" {
		t.Errorf("store a lost key after delete in store b: %q (err %v)", v, err)
	}
}

func TestBadConfig(t *testing.T) {
	var e Engine
	bad := []map[string]interface{}{
		{},
		{"path": t.TempDir(), "bucket": "mem://"},
		{"bucket": 42},
	}
	for _, settings := range bad {
		if _, _, err := e.NewStore(dvid.StoreConfig{Config: dvid.NewConfig(settings), Engine: "blob"}); err == nil {
			t.Errorf("expected error for settings %v", settings)
		}
	}
}
