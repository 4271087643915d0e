package array

import (
	"context"
	"errors"
	"fmt"

	"github.com/janelia-flyem/cclabels/blockwise"
	"github.com/janelia-flyem/cclabels/dvid"
)

var errNotZero = errors.New("foreground found")

// IsZero returns true if every voxel of the array is background.  The array is
// scanned in blocks of the given shape by up to workers goroutines.
func IsZero(ctx context.Context, a Array, blockShape dvid.Point, workers int) (bool, error) {
	cfg := blockwise.Config{
		Name:       fmt.Sprintf("zero check of %s", a.Bounds()),
		Total:      a.Bounds(),
		BlockShape: blockShape,
		NumWorkers: workers,
	}
	_, err := blockwise.Run(ctx, cfg, func(ctx context.Context, b dvid.Block) error {
		vol, err := a.Read(ctx, b.WriteRegion)
		if err != nil {
			return err
		}
		if !vol.IsZero() {
			return errNotZero
		}
		return nil
	})
	if errors.Is(err, errNotZero) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
