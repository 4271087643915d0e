package stitch

import (
	"context"

	"github.com/DmitriyVTitov/size"
	"github.com/dustin/go-humanize"

	"github.com/janelia-flyem/cclabels/dvid"
	"github.com/janelia-flyem/cclabels/labels"
	"github.com/janelia-flyem/cclabels/scratch"
)

// MergeStats describes a resolved merge.
type MergeStats struct {
	Nodes      int
	Edges      int
	Components int
}

// ResolveMerges collects the boundary entries of every expected block and maps each
// boundary label to the smallest label connected to it.  If any expected block has
// no entry, nothing is resolved and a *scratch.IncompleteError is returned.
func ResolveMerges(ctx context.Context, store scratch.Store, expected []uint64) (labels.Mapping, MergeStats, error) {
	timedLog := dvid.NewTimeLog()
	nodes, edges, err := scratch.Collect(ctx, store, expected)
	if err != nil {
		return nil, MergeStats{}, err
	}
	mapping := labels.Resolve(nodes, edges)
	stats := MergeStats{
		Nodes:      len(nodes),
		Edges:      len(edges),
		Components: mapping.NumComponents(),
	}
	timedLog.Infof("Resolved %s nodes and %s edges from %d blocks into %s components (mapping ~%s)",
		humanize.Comma(int64(stats.Nodes)), humanize.Comma(int64(stats.Edges)), len(expected),
		humanize.Comma(int64(stats.Components)), humanize.Bytes(uint64(size.Of(mapping))))
	return mapping, stats, nil
}
