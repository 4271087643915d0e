package array

import (
	"encoding/binary"
	"math"

	"github.com/coocood/freecache"
)

const (
	// freecache rounds smaller caches up to this size.
	minCacheBytes = 512 * 1024

	// freecache header size of every entry.
	cacheEntryHeader = 24
)

// chunkCache holds uncompressed chunks in a freecache.  freecache rejects entries
// larger than 1/1024 of its size, so each chunk is split into numbered pieces that
// fit.  A chunk is only returned if all of its pieces are present.
type chunkCache struct {
	cache    *freecache.Cache
	pieceLen int
}

// newChunkCache returns a cache of about size bytes for chunks of up to chunkBytes
// bytes with keys up to keyLen bytes.  It returns nil if a chunk cannot be held.
func newChunkCache(size, keyLen, chunkBytes int) *chunkCache {
	size = max(size, minCacheBytes)
	pieceLen := size/1024 - cacheEntryHeader - keyLen - 2
	if pieceLen <= 0 || chunkBytes > size {
		return nil
	}
	c := &chunkCache{pieceLen: pieceLen}
	if c.numPieces(chunkBytes) > math.MaxUint16 {
		return nil
	}
	c.cache = freecache.NewCache(size)
	return c
}

func (c *chunkCache) numPieces(n int) int {
	return (n + c.pieceLen - 1) / c.pieceLen
}

func pieceKey(key []byte, piece int) []byte {
	pk := make([]byte, len(key), len(key)+2)
	copy(pk, key)
	return binary.BigEndian.AppendUint16(pk, uint16(piece))
}

// get returns the n bytes of a cached chunk or nil on any missing piece.
func (c *chunkCache) get(key []byte, n int) ([]byte, error) {
	raw := make([]byte, 0, n)
	for piece := 0; piece < c.numPieces(n); piece++ {
		value, err := c.cache.Get(pieceKey(key, piece))
		if err == freecache.ErrNotFound {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		raw = append(raw, value...)
	}
	if len(raw) != n {
		return nil, nil
	}
	return raw, nil
}

// set caches the chunk.  If a piece cannot be stored, the whole chunk is dropped.
func (c *chunkCache) set(key, raw []byte) error {
	for piece := 0; piece < c.numPieces(len(raw)); piece++ {
		beg := piece * c.pieceLen
		end := min(beg+c.pieceLen, len(raw))
		if err := c.cache.Set(pieceKey(key, piece), raw[beg:end], 0); err != nil {
			c.del(key, len(raw))
			return err
		}
	}
	return nil
}

func (c *chunkCache) del(key []byte, n int) {
	for piece := 0; piece < c.numPieces(n); piece++ {
		c.cache.Del(pieceKey(key, piece))
	}
}

func (c *chunkCache) clear() {
	c.cache.Clear()
}
