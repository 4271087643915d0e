//go:build lowmem

package badger

import (
	"github.com/dgraph-io/badger/v3"

	"github.com/janelia-flyem/cclabels/dvid"
)

func getOptions(path string, inMemory bool, config dvid.Config) (badger.Options, error) {
	opts := badger.DefaultOptions(path).WithSyncWrites(DefaultSyncWrites)
	if inMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	}

	readOnly, found, err := config.GetBool("ReadOnly")
	if err != nil {
		return opts, err
	}
	if found {
		opts = opts.WithReadOnly(readOnly)
	}

	valueSizeThresh, found, err := config.GetInt("ValueThreshold")
	if err != nil {
		return opts, err
	}
	if found {
		opts = opts.WithValueThreshold(int64(valueSizeThresh))
	}

	// Low-memory options
	dvid.Infof("Using Badger with low memory options.\n")
	opts = opts.WithValueLogFileSize(16 << 20)
	opts = opts.WithMemTableSize(8 << 20)
	opts = opts.WithNumMemtables(2)
	opts = opts.WithBlockCacheSize(8 << 20)
	opts = opts.WithIndexCacheSize(4 << 20)
	return opts, nil
}
