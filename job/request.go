package job

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/janelia-flyem/cclabels/array"
	"github.com/janelia-flyem/cclabels/blockwise"
	"github.com/janelia-flyem/cclabels/dvid"
)

var (
	compileOnce    sync.Once
	compiledSchema *jsonschema.Schema
	compileErr     error
)

func getSchema() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		compiledSchema, compileErr = jsonschema.CompileString("schema.json", requestSchema)
	})
	return compiledSchema, compileErr
}

// ArraySpec locates an array: either a raw file given by Path and DType, or a chunked
// array Name within the configured store Store.
type ArraySpec struct {
	Path  string `json:"path,omitempty"`
	DType string `json:"dtype,omitempty"`
	Store string `json:"store,omitempty"`
	Name  string `json:"name,omitempty"`
}

// IsRaw returns true if the array is a raw file.
func (s ArraySpec) IsRaw() bool {
	return s.Path != ""
}

func (s ArraySpec) String() string {
	if s.IsRaw() {
		return fmt.Sprintf("raw file %q", s.Path)
	}
	return fmt.Sprintf("array %q in store %q", s.Name, s.Store)
}

// Request is a labeling job.
type Request struct {
	Input  ArraySpec `json:"input"`
	Output ArraySpec `json:"output"`

	Offset     []int64 `json:"offset,omitempty"`
	Shape      []int64 `json:"shape"`
	BlockShape []int64 `json:"block-shape,omitempty"`
	ChunkShape []int64 `json:"chunk-shape,omitempty"`

	Compression string `json:"compression,omitempty"`
	Workers     int    `json:"workers,omitempty"`
	Retries     *int   `json:"retries,omitempty"`
	Order       string `json:"order,omitempty"`
	Seed        int64  `json:"seed,omitempty"`

	ScratchStore string `json:"scratch-store,omitempty"`
	Mapping      string `json:"mapping,omitempty"`
}

// ParseRequest validates JSON against the request schema and decodes it.  Relative
// file paths are taken relative to dir.
func ParseRequest(data []byte, dir string) (*Request, error) {
	sch, err := getSchema()
	if err != nil {
		return nil, fmt.Errorf("unable to compile job schema: %v", err)
	}
	var v interface{}
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("job request is not valid JSON: %v", err)
	}
	if err := sch.Validate(v); err != nil {
		return nil, fmt.Errorf("invalid job request: %v", err)
	}
	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("unable to decode job request: %v", err)
	}
	if err := req.check(); err != nil {
		return nil, err
	}
	for _, path := range []*string{&req.Input.Path, &req.Output.Path, &req.Mapping} {
		if *path == "" {
			continue
		}
		if *path, err = dvid.ConvertToAbsolute(*path, dir); err != nil {
			return nil, err
		}
	}
	return &req, nil
}

// ReadRequest reads and parses a job request from a JSON file.
func ReadRequest(filename string) (*Request, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("unable to read job request %q: %v", filename, err)
	}
	return ParseRequest(data, filepath.Dir(filename))
}

// check verifies what the schema cannot express.
func (req *Request) check() error {
	ndims := len(req.Shape)
	for name, p := range map[string][]int64{
		"offset":      req.Offset,
		"block-shape": req.BlockShape,
		"chunk-shape": req.ChunkShape,
	} {
		if len(p) != 0 && len(p) != ndims {
			return fmt.Errorf("%s %v must have %d dimensions like shape %v", name, p, ndims, req.Shape)
		}
	}
	if req.Input.IsRaw() && req.Output.IsRaw() && req.Input.Path == req.Output.Path {
		return fmt.Errorf("input and output are the same file %q", req.Input.Path)
	}
	if !req.Input.IsRaw() && !req.Output.IsRaw() &&
		req.Input.Store == req.Output.Store && req.Input.Name == req.Output.Name {
		return fmt.Errorf("input and output are the same %s", req.Input)
	}
	return nil
}

// Bounds returns the region covered by the volume.
func (req *Request) Bounds() (dvid.Region, error) {
	shape, err := dvid.SliceToPoint(req.Shape)
	if err != nil {
		return dvid.Region{}, err
	}
	offset := make(dvid.Point, len(shape))
	if len(req.Offset) != 0 {
		if offset, err = dvid.SliceToPoint(req.Offset); err != nil {
			return dvid.Region{}, err
		}
	}
	return dvid.NewRegion(offset, shape)
}

// StitchOrder returns the block order of the request.
func (req *Request) StitchOrder() (blockwise.Order, error) {
	return blockwise.ParseOrder(req.Order)
}

// dtype returns the label type of a raw array.
func (s ArraySpec) dtype() (array.DType, error) {
	return array.ParseDType(s.DType)
}
