/*
Package blockwise runs a function over every block of a partitioned region using
a bounded pool of workers.

Blocks are identified by their position in the partition, never by the order in
which they happen to execute, so a function that is idempotent per block produces
the same result for any worker count, execution order, or number of retries.
*/
package blockwise

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"
	"golang.org/x/sync/errgroup"

	"github.com/janelia-flyem/cclabels/dvid"
)

// Fit selects how cells at the upper boundary of the total region are handled.
type Fit uint8

const (
	// FitShrink shrinks residual cells to fit within the total region.
	FitShrink Fit = iota

	// FitValid drops residual cells.
	FitValid

	// FitOverhang keeps full-size residual cells that extend past the region.
	FitOverhang
)

func (f Fit) String() string {
	switch f {
	case FitShrink:
		return "shrink"
	case FitValid:
		return "valid"
	case FitOverhang:
		return "overhang"
	default:
		return fmt.Sprintf("fit(%d)", uint8(f))
	}
}

// Order is the order in which blocks are handed to workers.  It never affects
// block ids.
type Order uint8

const (
	PartitionOrder Order = iota
	ReverseOrder
	ShuffleOrder
)

func (o Order) String() string {
	switch o {
	case PartitionOrder:
		return "partition"
	case ReverseOrder:
		return "reverse"
	case ShuffleOrder:
		return "shuffle"
	default:
		return fmt.Sprintf("order(%d)", uint8(o))
	}
}

// ParseOrder returns the Order for a name; an empty name is PartitionOrder.
func ParseOrder(name string) (Order, error) {
	switch name {
	case "", "partition":
		return PartitionOrder, nil
	case "reverse":
		return ReverseOrder, nil
	case "shuffle":
		return ShuffleOrder, nil
	default:
		return PartitionOrder, fmt.Errorf("unknown block order %q (use partition, reverse, or shuffle)", name)
	}
}

// Config describes a blockwise task.
type Config struct {
	// Name identifies the task in logs.
	Name string

	Total      dvid.Region
	BlockShape dvid.Point
	Halo       dvid.Point // nil for no halo

	// NumWorkers is the maximum number of blocks processed at once.  If 0,
	// dvid.NumCPU is used.
	NumWorkers int

	// MaxRetries is the number of times a failed block is retried before the
	// task fails.
	MaxRetries int

	Fit   Fit
	Order Order
	Seed  int64 // for ShuffleOrder
}

// Func processes one block.  It must be safe to call again for the same block
// after a failure.
type Func func(ctx context.Context, block dvid.Block) error

// BlockError reports a block that failed permanently.
type BlockError struct {
	Block    dvid.Block
	Attempts int
	Err      error
}

func (e *BlockError) Error() string {
	return fmt.Sprintf("block %d failed after %d attempt(s): %v", e.Block.ID, e.Attempts, e.Err)
}

func (e *BlockError) Unwrap() error {
	return e.Err
}

// Report summarizes a completed task.
type Report struct {
	Blocks    []dvid.Block // in partition order
	Processed int
	Retries   int
	Elapsed   time.Duration
}

// Blocks validates the configuration and returns its partition.
func Blocks(cfg Config) ([]dvid.Block, error) {
	if cfg.Fit != FitShrink {
		return nil, fmt.Errorf("block fit %q is not supported, only %q", cfg.Fit, FitShrink)
	}
	if cfg.Order > ShuffleOrder {
		return nil, fmt.Errorf("unknown block order %s", cfg.Order)
	}
	if cfg.NumWorkers < 0 || cfg.MaxRetries < 0 {
		return nil, fmt.Errorf("workers (%d) and retries (%d) must not be negative", cfg.NumWorkers, cfg.MaxRetries)
	}
	return dvid.Partition(cfg.Total, cfg.BlockShape, cfg.Halo)
}

// ExecutionOrder returns the indices of n blocks in the order they are handed to
// workers.
func ExecutionOrder(n int, order Order, seed int64) []int {
	indices := make([]int, n)
	for i := range indices {
		indices[i] = i
	}
	switch order {
	case ReverseOrder:
		for i, j := 0, n-1; i < j; i, j = i+1, j-1 {
			indices[i], indices[j] = indices[j], indices[i]
		}
	case ShuffleOrder:
		rng := rand.New(rand.NewSource(seed))
		rng.Shuffle(n, func(i, j int) { indices[i], indices[j] = indices[j], indices[i] })
	}
	return indices
}

// Run partitions the configured region and calls fn on every block.  The first
// block to fail permanently cancels the remaining work and is returned as a
// *BlockError.  If ctx is cancelled, ctx.Err() is returned.
func Run(ctx context.Context, cfg Config, fn Func) (*Report, error) {
	blocks, err := Blocks(cfg)
	if err != nil {
		return nil, err
	}
	workers := cfg.NumWorkers
	if workers == 0 {
		workers = dvid.NumCPU
	}
	name := cfg.Name
	if name == "" {
		name = "blockwise task"
	}

	timedLog := dvid.NewTimeLog()
	dvid.Infof("Starting %s over %s: %s blocks of %s, %d workers, %s order\n", name, cfg.Total,
		humanize.Comma(int64(len(blocks))), cfg.BlockShape, workers, cfg.Order)

	var processed, retries atomic.Int64
	total := int64(len(blocks))
	nextReport := max(total/10, 1)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, i := range ExecutionOrder(len(blocks), cfg.Order, cfg.Seed) {
		if gctx.Err() != nil {
			break
		}
		block := blocks[i]
		g.Go(func() error {
			attempts, err := runBlock(gctx, block, cfg.MaxRetries, fn)
			retries.Add(int64(attempts - 1))
			if err != nil {
				return err
			}
			if done := processed.Add(1); done%nextReport == 0 || done == total {
				timedLog.Debugf("%s: %s of %s blocks done", name, humanize.Comma(done), humanize.Comma(total))
			}
			return nil
		})
	}
	err = g.Wait()
	if err == nil {
		err = ctx.Err()
	}
	report := &Report{
		Blocks:    blocks,
		Processed: int(processed.Load()),
		Retries:   int(retries.Load()),
		Elapsed:   timedLog.Elapsed(),
	}
	if err != nil {
		var blockErr *BlockError
		if errors.As(err, &blockErr) {
			timedLog.Errorf("%s failed on %s", name, blockErr.Block)
		}
		return report, err
	}
	timedLog.Infof("Finished %s: %s blocks, %d retries", name, humanize.Comma(total), report.Retries)
	return report, nil
}

// runBlock calls fn until it succeeds or retries are exhausted, returning the
// number of attempts made.
func runBlock(ctx context.Context, block dvid.Block, maxRetries int, fn Func) (int, error) {
	var err error
	for attempt := 1; attempt <= maxRetries+1; attempt++ {
		if err = ctx.Err(); err != nil {
			return attempt, err
		}
		if err = fn(ctx, block); err == nil {
			return attempt, nil
		}
		if ctx.Err() != nil {
			return attempt, ctx.Err()
		}
		if attempt <= maxRetries {
			dvid.Warningf("Retrying %s after attempt %d failed: %v\n", block, attempt, err)
		} else {
			return attempt, &BlockError{Block: block, Attempts: attempt, Err: err}
		}
	}
	return maxRetries + 1, &BlockError{Block: block, Attempts: maxRetries + 1, Err: err}
}
