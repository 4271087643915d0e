package job

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/janelia-flyem/cclabels/blockwise"
	"github.com/janelia-flyem/cclabels/dvid"
)

func TestParseRequest(t *testing.T) {
	data := `{
		"input": {"path": "in.raw", "dtype": "uint8"},
		"output": {"store": "db", "name": "cc"},
		"offset": [10, 20],
		"shape": [100, 200],
		"block-shape": [32, 64],
		"order": "shuffle",
		"seed": 7,
		"retries": 0,
		"mapping": "out/mapping.txt"
	}`
	req, err := ParseRequest([]byte(data), "/data/jobs")
	if err != nil {
		t.Fatalf("unable to parse request: %v", err)
	}
	if req.Input.Path != "/data/jobs/in.raw" || !req.Input.IsRaw() {
		t.Errorf("bad input %+v", req.Input)
	}
	if req.Output.IsRaw() || req.Output.Store != "db" || req.Output.Name != "cc" {
		t.Errorf("bad output %+v", req.Output)
	}
	if req.Mapping != filepath.Join("/data/jobs", "out", "mapping.txt") {
		t.Errorf("bad mapping path %q", req.Mapping)
	}
	if req.Retries == nil || *req.Retries != 0 {
		t.Errorf("expected explicit zero retries")
	}
	bounds, err := req.Bounds()
	if err != nil {
		t.Fatal(err)
	}
	if !bounds.Equals(dvid.Region{Offset: dvid.Point{10, 20}, Size: dvid.Point{100, 200}}) {
		t.Errorf("bad bounds %s", bounds)
	}
	order, err := req.StitchOrder()
	if err != nil {
		t.Fatal(err)
	}
	if order != blockwise.ShuffleOrder {
		t.Errorf("expected shuffle order, got %v", order)
	}
}

func TestBadRequests(t *testing.T) {
	tests := map[string]string{
		"not json":        `{"input": `,
		"no shape":        `{"input": {"path": "a"}, "output": {"path": "b"}}`,
		"zero extent":     `{"input": {"path": "a"}, "output": {"path": "b"}, "shape": [4, 0]}`,
		"path and store":  `{"input": {"path": "a", "store": "db", "name": "x"}, "output": {"path": "b"}, "shape": [4]}`,
		"store no name":   `{"input": {"store": "db"}, "output": {"path": "b"}, "shape": [4]}`,
		"bad dtype":       `{"input": {"path": "a", "dtype": "float32"}, "output": {"path": "b"}, "shape": [4]}`,
		"unknown field":   `{"input": {"path": "a"}, "output": {"path": "b"}, "shape": [4], "voxel-size": [1]}`,
		"bad order":       `{"input": {"path": "a"}, "output": {"path": "b"}, "shape": [4], "order": "random"}`,
		"no workers":      `{"input": {"path": "a"}, "output": {"path": "b"}, "shape": [4], "workers": 0}`,
		"slash in name":   `{"input": {"path": "a"}, "output": {"store": "db", "name": "a/b"}, "shape": [4]}`,
		"block dims":      `{"input": {"path": "a"}, "output": {"path": "b"}, "shape": [4, 4], "block-shape": [2]}`,
		"same raw file":   `{"input": {"path": "a"}, "output": {"path": "a"}, "shape": [4]}`,
		"same array":      `{"input": {"store": "db", "name": "x"}, "output": {"store": "db", "name": "x"}, "shape": [4]}`,
		"bad compression": `{"input": {"path": "a"}, "output": {"path": "b"}, "shape": [4], "compression": "gzip"}`,
	}
	for name, data := range tests {
		if _, err := ParseRequest([]byte(data), "/tmp"); err == nil {
			t.Errorf("%s: expected error parsing %s", name, data)
		}
	}
}

func TestReadRequest(t *testing.T) {
	dir := t.TempDir()
	filename := writeFile(t, dir, "job.json", `{"input": {"path": "in.raw"}, "output": {"path": "out.raw", "dtype": "uint32"}, "shape": [8, 8, 8]}`)
	req, err := ReadRequest(filename)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(req.Output.Path, dir) {
		t.Errorf("expected output path relative to %s, got %q", dir, req.Output.Path)
	}
	if _, err := ReadRequest(filepath.Join(dir, "missing.json")); err == nil {
		t.Errorf("expected error reading missing request")
	}
}
