//go:build !lowmem

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

	syncWrites, found, err := config.GetBool("SyncWrites")
	if err != nil {
		return opts, err
	}
	if found {
		opts = opts.WithSyncWrites(syncWrites)
	}

	valueSizeThresh, found, err := config.GetInt("ValueThreshold")
	if err != nil {
		return opts, err
	}
	if found {
		opts = opts.WithValueThreshold(int64(valueSizeThresh))
	}

	vlogSize, found, err := config.GetInt("ValueLogFileSize")
	if err != nil {
		return opts, err
	}
	if found {
		opts = opts.WithValueLogFileSize(int64(vlogSize))
	}
	return opts, nil
}
