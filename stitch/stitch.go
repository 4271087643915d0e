/*
Package stitch labels the connected components of a label array block by block and
stitches the block-local labels into one consistent labeling.

Labeling runs in three phases.  Each block is first labeled independently and its
labels are committed with a block-specific offset, recording which labels touch
across block boundaries.  Once every block has reported, the recorded adjacencies
are resolved into a mapping from each label to the smallest label of its component.
Finally every block is rewritten through that mapping.  Phases one and three run in
parallel in any order; the merge runs once, in between.
*/
package stitch

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/janelia-flyem/cclabels/array"
	"github.com/janelia-flyem/cclabels/blockwise"
	"github.com/janelia-flyem/cclabels/dvid"
	"github.com/janelia-flyem/cclabels/labels"
	"github.com/janelia-flyem/cclabels/scratch"
	"github.com/janelia-flyem/cclabels/storage"
)

// Options configure a labeling run.
type Options struct {
	// BlockShape is the shape of each block's write region.
	BlockShape dvid.Point

	NumWorkers int
	MaxRetries int

	// Order and Seed control the order blocks are handed to workers.  The result
	// does not depend on them.
	Order blockwise.Order
	Seed  int64

	// Scratch holds block boundaries between phases.  If nil, an in-memory store
	// is used.
	Scratch scratch.Store

	// KeepMapping returns the merge mapping in Stats.  Otherwise it is discarded
	// once the output is relabeled.
	KeepMapping bool
}

// Stats summarizes a labeling run.
type Stats struct {
	Blocks      int
	Capacity    uint64
	LocalLabels uint64
	Merge       MergeStats
	Relabeled   int // labels rewritten by the merge
	Retries     int

	LabelTime   time.Duration
	MergeTime   time.Duration
	RelabelTime time.Duration

	// Mapping is only set if Options.KeepMapping is true.
	Mapping labels.Mapping
}

// Capacity returns the per-block label capacity for blocks, the largest number of
// voxels in any read region plus one.
func Capacity(blocks []dvid.Block) (uint64, error) {
	var maxShape dvid.Point
	var maxVoxels int64
	for _, b := range blocks {
		if n := b.ReadRegion.NumVoxels(); n > maxVoxels {
			maxVoxels, maxShape = n, b.ReadRegion.Size
		}
	}
	if maxShape == nil {
		return 0, fmt.Errorf("no blocks to size label capacity")
	}
	return labels.CapacityFor(maxShape)
}

func labelingConfig(bounds dvid.Region, opts Options) blockwise.Config {
	return blockwise.Config{
		Name:       "block labeling",
		Total:      bounds,
		BlockShape: opts.BlockShape,
		Halo:       dvid.Uniform(bounds.NumDims(), 1),
		NumWorkers: opts.NumWorkers,
		MaxRetries: opts.MaxRetries,
		Fit:        blockwise.FitShrink,
		Order:      opts.Order,
		Seed:       opts.Seed,
	}
}

// plan partitions the labeling run and allocates each block's label range.
func plan(cfg blockwise.Config) ([]dvid.Block, labels.Namespace, error) {
	blocks, err := blockwise.Blocks(cfg)
	if err != nil {
		return nil, labels.Namespace{}, err
	}
	capacity, err := Capacity(blocks)
	if err != nil {
		return nil, labels.Namespace{}, err
	}
	ns, err := labels.NewNamespace(capacity, uint64(len(blocks)))
	if err != nil {
		return nil, labels.Namespace{}, err
	}
	return blocks, ns, nil
}

// MaxLabel returns the largest label a run over bounds with the given block shape
// may write.  Output arrays with a narrower value type may not hold the result.
func MaxLabel(bounds dvid.Region, blockShape dvid.Point) (uint64, error) {
	_, ns, err := plan(labelingConfig(bounds, Options{BlockShape: blockShape}))
	if err != nil {
		return 0, err
	}
	return ns.MaxLabel(), nil
}

// Run writes the connected components of src into dst.  Both arrays must have
// the same bounds and dst must be all background.  Output labels are the smallest
// provisional label of each component, so they are identical for any worker count,
// execution order, or retry history.
func Run(ctx context.Context, src, dst array.Array, opts Options) (*Stats, error) {
	bounds := src.Bounds()
	if !bounds.Equals(dst.Bounds()) {
		return nil, fmt.Errorf("source bounds %s differ from destination bounds %s", bounds, dst.Bounds())
	}
	store := opts.Scratch
	if store == nil {
		store = scratch.NewKVStore(storage.NewMemoryDB())
	}

	labelCfg := labelingConfig(bounds, opts)
	blocks, ns, err := plan(labelCfg)
	if err != nil {
		return nil, err
	}
	stats := &Stats{Blocks: len(blocks), Capacity: ns.Capacity}
	dvid.Infof("Labeling %s in %d blocks of %s with %s labels per block\n", bounds, len(blocks),
		opts.BlockShape, humanize.Comma(int64(ns.Capacity)))

	var localLabels atomic.Uint64
	report, err := blockwise.Run(ctx, labelCfg, func(ctx context.Context, b dvid.Block) error {
		bs, err := LabelBlock(ctx, src, dst, store, ns, b)
		if err != nil {
			return err
		}
		localLabels.Add(bs.LocalLabels)
		return nil
	})
	if err != nil {
		return nil, err
	}
	stats.LabelTime = report.Elapsed
	stats.Retries = report.Retries
	stats.LocalLabels = localLabels.Load()

	mergeStart := time.Now()
	mapping, mergeStats, err := ResolveMerges(ctx, store, dvid.BlockIDs(blocks))
	if err != nil {
		return nil, err
	}
	stats.Merge = mergeStats
	if opts.KeepMapping {
		stats.Mapping = mapping
	}
	stats.MergeTime = time.Since(mergeStart)
	if err := store.Clear(ctx); err != nil {
		dvid.Warningf("Unable to clear scratch entries after merge: %v\n", err)
	}

	relabeler := NewRelabeler(mapping)
	stats.Relabeled = relabeler.NumChanges()
	relabelCfg := labelCfg
	relabelCfg.Name = "relabeling"
	relabelCfg.Halo = nil
	report, err = blockwise.Run(ctx, relabelCfg, func(ctx context.Context, b dvid.Block) error {
		return relabeler.RelabelBlock(ctx, dst, b)
	})
	if err != nil {
		return nil, err
	}
	stats.RelabelTime = report.Elapsed
	stats.Retries += report.Retries

	dvid.Infof("Labeled %s: %s local labels, %s merged into %s boundary components\n", bounds,
		humanize.Comma(int64(stats.LocalLabels)), humanize.Comma(int64(stats.Relabeled)),
		humanize.Comma(int64(mergeStats.Components)))
	return stats, nil
}
