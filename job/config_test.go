package job

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/janelia-flyem/cclabels/dvid"
)

const testConfig = `
[logging]
logfile = "logs/cclabels.log"
max_log_size = 500
max_log_age = 30

[store.scratch]
engine = "sqlite"
path = "db/scratch.db"

[store.mem]
engine = "memory"

[cache.chunks]
size = 16

[compute]
workers = 3
retries = 2
block_shape = [32, 32, 16]
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	filename := filepath.Join(dir, name)
	if err := os.WriteFile(filename, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return filename
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	config, err := LoadConfig(writeFile(t, dir, "config.toml", testConfig))
	if err != nil {
		t.Fatalf("unable to load config: %v", err)
	}
	if got := config.Logging().Logfile; got != filepath.Join(dir, "logs", "cclabels.log") {
		t.Errorf("expected absolute logfile, got %q", got)
	}
	if config.Logging().MaxSize != 500 || config.Logging().MaxAge != 30 {
		t.Errorf("bad logging config: %+v", *config.Logging())
	}
	sc, err := config.StoreConfig("scratch")
	if err != nil {
		t.Fatal(err)
	}
	if sc.Engine != "sqlite" {
		t.Errorf("expected sqlite engine, got %q", sc.Engine)
	}
	path, _, err := sc.GetString("path")
	if err != nil {
		t.Fatal(err)
	}
	if path != filepath.Join(dir, "db", "scratch.db") {
		t.Errorf("expected absolute store path, got %q", path)
	}
	if _, found := sc.Config["engine"]; found {
		t.Errorf("engine setting should not be passed to the engine")
	}
	if _, err := config.StoreConfig("missing"); err == nil {
		t.Errorf("expected error for unknown store alias")
	}
	if size := config.CacheSize(ChunkCacheID); size != 16*dvid.Mega {
		t.Errorf("expected 16 MB chunk cache, got %d", size)
	}
	if size := config.CacheSize("other"); size != 0 {
		t.Errorf("expected no cache for unknown id, got %d", size)
	}
	if config.Workers() != 3 || config.Retries() != 2 {
		t.Errorf("bad compute settings: %d workers, %d retries", config.Workers(), config.Retries())
	}
	shape, err := config.BlockShape(3)
	if err != nil {
		t.Fatal(err)
	}
	if !shape.Equals(dvid.Point{32, 32, 16}) {
		t.Errorf("bad block shape %s", shape)
	}
	if _, err := config.BlockShape(2); err == nil {
		t.Errorf("expected error for block shape of wrong dimension")
	}

	db, err := config.OpenStore("mem")
	if err != nil {
		t.Fatal(err)
	}
	db.Close()
}

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()
	if config.Workers() != dvid.NumCPU {
		t.Errorf("expected %d workers, got %d", dvid.NumCPU, config.Workers())
	}
	shape, err := config.BlockShape(2)
	if err != nil {
		t.Fatal(err)
	}
	if !shape.Equals(dvid.Point{DefaultBlockShapeSize, DefaultBlockShapeSize}) {
		t.Errorf("bad default block shape %s", shape)
	}
	if _, err := config.OpenStore("memory"); err != nil {
		t.Errorf("unable to open default store: %v", err)
	}
}

func TestBadConfig(t *testing.T) {
	dir := t.TempDir()
	if _, err := LoadConfig(""); err == nil {
		t.Errorf("expected error for missing config file name")
	}
	if _, err := LoadConfig(writeFile(t, dir, "bad.toml", "[compute\nworkers = 3")); err == nil {
		t.Errorf("expected error for malformed TOML")
	}
	if _, err := LoadConfig(writeFile(t, dir, "neg.toml", "[compute]\nworkers = -1")); err == nil {
		t.Errorf("expected error for negative workers")
	}
	config, err := LoadConfig(writeFile(t, dir, "noengine.toml", "[store.foo]\npath = \"foo\""))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := config.StoreConfig("foo"); err == nil {
		t.Errorf("expected error for store without engine")
	}
}
