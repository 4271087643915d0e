package storage

import (
	"bytes"
	"context"
	"encoding/binary"
)

// KeyValue stores a key-value pair.
type KeyValue struct {
	K []byte
	V []byte
}

// JoinKey concatenates key parts with a '/' separator, e.g., "chunk/<name>/<index>".
func JoinKey(parts ...[]byte) []byte {
	return bytes.Join(parts, []byte{'/'})
}

// Uint64Key returns the big-endian encoding of id, which sorts in numeric order.
func Uint64Key(id uint64) []byte {
	return binary.BigEndian.AppendUint64(nil, id)
}

// PrefixEnd returns the smallest key greater than every key with the given prefix,
// or nil if there is no such key (empty prefix or all 0xff bytes).
func PrefixEnd(prefix []byte) []byte {
	end := bytes.Clone(prefix)
	for i := len(end) - 1; i >= 0; i-- {
		end[i]++
		if end[i] != 0 {
			return end[:i+1]
		}
	}
	return nil
}

// GetAll returns every key-value pair with the given prefix in key order.
func GetAll(ctx context.Context, db KeyValueDB, prefix []byte) ([]KeyValue, error) {
	var kvs []KeyValue
	err := db.ProcessPrefix(ctx, prefix, func(k, v []byte) error {
		kvs = append(kvs, KeyValue{K: k, V: v})
		return nil
	})
	return kvs, err
}
