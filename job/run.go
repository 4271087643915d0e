package job

import (
	"bufio"
	"context"
	"fmt"
	"os"

	"github.com/janelia-flyem/cclabels/array"
	"github.com/janelia-flyem/cclabels/dvid"
	"github.com/janelia-flyem/cclabels/scratch"
	"github.com/janelia-flyem/cclabels/stitch"
	"github.com/janelia-flyem/cclabels/storage"

	// the temporary scratch store of a job
	_ "github.com/janelia-flyem/cclabels/storage/badger"
)

// ChunkCacheID is the [cache] identifier sizing the chunk cache of stored arrays.
const ChunkCacheID = "chunks"

// runner holds the resources of one job.
type runner struct {
	config *Config
	req    *Request
	bounds dvid.Region

	stores  map[string]storage.KeyValueDB
	tempDir string
}

func (r *runner) store(alias string) (storage.KeyValueDB, error) {
	if db, found := r.stores[alias]; found {
		return db, nil
	}
	db, err := r.config.OpenStore(alias)
	if err != nil {
		return nil, err
	}
	r.stores[alias] = db
	return db, nil
}

func (r *runner) close() {
	for alias, db := range r.stores {
		if err := db.Close(); err != nil {
			dvid.Errorf("Error closing store %q: %v\n", alias, err)
		}
	}
	if r.tempDir != "" {
		if err := os.RemoveAll(r.tempDir); err != nil {
			dvid.Errorf("Unable to remove scratch directory %s: %v\n", r.tempDir, err)
		}
	}
}

func (r *runner) chunked(ctx context.Context, spec ArraySpec) (*array.Chunked, error) {
	db, err := r.store(spec.Store)
	if err != nil {
		return nil, err
	}
	compression, err := dvid.ParseCompression(r.req.Compression)
	if err != nil {
		return nil, err
	}
	var chunkShape dvid.Point
	if len(r.req.ChunkShape) != 0 {
		if chunkShape, err = dvid.SliceToPoint(r.req.ChunkShape); err != nil {
			return nil, err
		}
	}
	return array.NewChunked(ctx, db, array.ChunkedConfig{
		Name:        spec.Name,
		Bounds:      r.bounds,
		ChunkShape:  chunkShape,
		Compression: compression,
		CacheBytes:  r.config.CacheSize(ChunkCacheID),
	})
}

func (r *runner) source(ctx context.Context) (array.Array, error) {
	spec := r.req.Input
	if !spec.IsRaw() {
		return r.chunked(ctx, spec)
	}
	dtype, err := spec.dtype()
	if err != nil {
		return nil, err
	}
	f, err := os.Open(spec.Path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	src, err := array.NewMemory(r.bounds)
	if err != nil {
		return nil, err
	}
	if err := array.ImportRaw(ctx, bufio.NewReader(f), src, dtype); err != nil {
		return nil, fmt.Errorf("unable to import %s: %v", spec, err)
	}
	return src, nil
}

func (r *runner) destination(ctx context.Context, blockShape dvid.Point, workers int) (array.Array, error) {
	spec := r.req.Output
	if spec.IsRaw() {
		if _, err := spec.dtype(); err != nil {
			return nil, err
		}
		return array.NewMemory(r.bounds)
	}
	dst, err := r.chunked(ctx, spec)
	if err != nil {
		return nil, err
	}
	zero, err := array.IsZero(ctx, dst, blockShape, workers)
	if err != nil {
		return nil, err
	}
	if !zero {
		return nil, fmt.Errorf("output %s already holds labels; delete it first", spec)
	}
	return dst, nil
}

func (r *runner) scratchStore() (scratch.Store, error) {
	if r.req.ScratchStore != "" {
		db, err := r.store(r.req.ScratchStore)
		if err != nil {
			return nil, err
		}
		return scratch.NewKVStore(db), nil
	}
	dir, err := os.MkdirTemp("", "cclabels-scratch-")
	if err != nil {
		return nil, err
	}
	r.tempDir = dir
	config := dvid.StoreConfig{
		Config: dvid.NewConfig(map[string]interface{}{"path": dir}),
		Engine: "badger",
	}
	db, err := storage.NewStore(config)
	if err != nil {
		return nil, err
	}
	r.stores[""] = db
	return scratch.NewKVStore(db), nil
}

func (r *runner) options(workers int) (stitch.Options, error) {
	opts := stitch.Options{
		NumWorkers:  workers,
		MaxRetries:  r.config.Retries(),
		Seed:        r.req.Seed,
		KeepMapping: r.req.Mapping != "",
	}
	if r.req.Retries != nil {
		opts.MaxRetries = *r.req.Retries
	}
	var err error
	if len(r.req.BlockShape) != 0 {
		opts.BlockShape, err = dvid.SliceToPoint(r.req.BlockShape)
	} else {
		opts.BlockShape, err = r.config.BlockShape(r.bounds.NumDims())
	}
	if err != nil {
		return opts, err
	}
	if opts.Order, err = r.req.StitchOrder(); err != nil {
		return opts, err
	}
	return opts, nil
}

// checkOutputType verifies that every label the run may write fits the raw output.
func (r *runner) checkOutputType(blockShape dvid.Point) error {
	if !r.req.Output.IsRaw() {
		return nil
	}
	dtype, err := r.req.Output.dtype()
	if err != nil {
		return err
	}
	maxLabel, err := stitch.MaxLabel(r.bounds, blockShape)
	if err != nil {
		return err
	}
	if maxLabel > dtype.MaxValue() {
		return fmt.Errorf("output %s cannot hold labels up to %d; use a wider dtype or larger blocks",
			r.req.Output, maxLabel)
	}
	return nil
}

func (r *runner) export(ctx context.Context, dst array.Array) error {
	spec := r.req.Output
	dtype, err := spec.dtype()
	if err != nil {
		return err
	}
	if err := ensureDir(spec.Path); err != nil {
		return err
	}
	f, err := os.Create(spec.Path)
	if err != nil {
		return err
	}
	if err := array.ExportRaw(ctx, dst, f, dtype); err != nil {
		f.Close()
		return fmt.Errorf("unable to export %s: %v", spec, err)
	}
	return f.Close()
}

func writeMapping(filename string, stats *stitch.Stats) error {
	if err := ensureDir(filename); err != nil {
		return err
	}
	f, err := os.Create(filename)
	if err != nil {
		return err
	}
	if _, err := stats.Mapping.WriteTo(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Run executes a labeling job: the input is read, labeled blockwise into the
// output, and the output and optional mapping file are written.
func Run(ctx context.Context, config *Config, req *Request) (*stitch.Stats, error) {
	if config == nil {
		config = DefaultConfig()
	}
	bounds, err := req.Bounds()
	if err != nil {
		return nil, err
	}
	r := &runner{
		config: config,
		req:    req,
		bounds: bounds,
		stores: make(map[string]storage.KeyValueDB),
	}
	defer r.close()

	workers := config.Workers()
	if req.Workers > 0 {
		workers = req.Workers
	}
	opts, err := r.options(workers)
	if err != nil {
		return nil, err
	}
	if err := r.checkOutputType(opts.BlockShape); err != nil {
		return nil, err
	}
	src, err := r.source(ctx)
	if err != nil {
		return nil, err
	}
	dst, err := r.destination(ctx, opts.BlockShape, workers)
	if err != nil {
		return nil, err
	}
	if opts.Scratch, err = r.scratchStore(); err != nil {
		return nil, err
	}

	stats, err := stitch.Run(ctx, src, dst, opts)
	if err != nil {
		return nil, err
	}
	if req.Output.IsRaw() {
		if err := r.export(ctx, dst); err != nil {
			return nil, err
		}
	} else if c, ok := dst.(*array.Chunked); ok {
		c.LogStats()
	}
	if req.Mapping != "" {
		if err := writeMapping(req.Mapping, stats); err != nil {
			return nil, fmt.Errorf("unable to write mapping %q: %v", req.Mapping, err)
		}
	}
	return stats, nil
}
