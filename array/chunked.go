package array

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/janelia-flyem/cclabels/dvid"
	"github.com/janelia-flyem/cclabels/storage"
)

const numChunkShards = 64

// DefaultChunkShape is used when a chunked array is created without a chunk shape.
var DefaultChunkShape = dvid.Point{64, 64, 64}

// ChunkedConfig describes a chunked array.
type ChunkedConfig struct {
	// Name distinguishes arrays sharing a store.
	Name string

	Bounds     dvid.Region
	ChunkShape dvid.Point

	// Compression of stored chunks.  Checksums are always written.
	Compression dvid.Compression

	// CacheBytes is the size of the write-through chunk cache; 0 disables it.
	// Only use a cache if no other process writes the same array.
	CacheBytes int
}

type chunkedMeta struct {
	Offset     []int32
	Size       []int32
	ChunkShape []int32
}

// Chunked is an Array stored as fixed-shape chunks in a storage.KeyValueDB.  Chunks
// that are all background are not stored.  Chunks at the upper boundary are
// shrunk to fit the bounds.
type Chunked struct {
	db          storage.KeyValueDB
	name        string
	bounds      dvid.Region
	chunkShape  dvid.Point
	compression dvid.Compression

	cache   *chunkCache
	chunkMu [numChunkShards]sync.Mutex

	chunkReads  uint64
	cacheHits   uint64
	chunkWrites uint64
}

// NewChunked opens the named array in db, creating it if it does not exist.  An
// existing array must have the same bounds and chunk shape.
func NewChunked(ctx context.Context, db storage.KeyValueDB, config ChunkedConfig) (*Chunked, error) {
	if config.Name == "" || strings.Contains(config.Name, "/") {
		return nil, fmt.Errorf("bad chunked array name %q", config.Name)
	}
	if config.Bounds.Empty() {
		return nil, fmt.Errorf("chunked array %q has empty bounds %s", config.Name, config.Bounds)
	}
	chunkShape := config.ChunkShape
	if chunkShape == nil {
		chunkShape = make(dvid.Point, 0, config.Bounds.NumDims())
		for dim := 0; dim < config.Bounds.NumDims(); dim++ {
			chunkShape = append(chunkShape, DefaultChunkShape[min(dim, len(DefaultChunkShape)-1)])
		}
	}
	if len(chunkShape) != config.Bounds.NumDims() || !chunkShape.AllPositive() {
		return nil, fmt.Errorf("bad chunk shape %s for %d-d array", chunkShape, config.Bounds.NumDims())
	}
	a := &Chunked{
		db:          db,
		name:        config.Name,
		bounds:      config.Bounds,
		chunkShape:  chunkShape.Duplicate(),
		compression: config.Compression,
	}
	if err := a.checkMeta(ctx); err != nil {
		return nil, err
	}
	if config.CacheBytes > 0 {
		chunkBytes := int(a.chunkShape.Prod()) * 8
		keyLen := len(a.chunkKey(a.chunkShape))
		if a.cache = newChunkCache(config.CacheBytes, keyLen, chunkBytes); a.cache == nil {
			dvid.Warningf("Chunk cache of %d bytes for array %q is too small for chunks of %d bytes.\n",
				config.CacheBytes, a.name, chunkBytes)
		} else {
			dvid.Infof("Created freecache of ~ %d MB for array %q (%d pieces per chunk).\n",
				config.CacheBytes>>20, a.name, a.cache.numPieces(chunkBytes))
		}
	}
	return a, nil
}

func (a *Chunked) metaKey() []byte {
	return storage.JoinKey([]byte("array"), []byte(a.name), []byte("meta"))
}

func (a *Chunked) checkMeta(ctx context.Context) error {
	meta := chunkedMeta{Offset: a.bounds.Offset, Size: a.bounds.Size, ChunkShape: a.chunkShape}
	stored, err := a.db.Get(ctx, a.metaKey())
	if err != nil {
		return err
	}
	if stored == nil {
		data, err := json.Marshal(meta)
		if err != nil {
			return err
		}
		return a.db.Put(ctx, a.metaKey(), data)
	}
	var existing chunkedMeta
	if err := json.Unmarshal(stored, &existing); err != nil {
		return fmt.Errorf("bad metadata for array %q: %v", a.name, err)
	}
	if !dvid.Point(existing.Offset).Equals(a.bounds.Offset) || !dvid.Point(existing.Size).Equals(a.bounds.Size) ||
		!dvid.Point(existing.ChunkShape).Equals(a.chunkShape) {
		return fmt.Errorf("array %q exists with bounds [%v + %v] and chunks %v", a.name,
			existing.Offset, existing.Size, existing.ChunkShape)
	}
	return nil
}

func (a *Chunked) Bounds() dvid.Region {
	return a.bounds
}

// ChunkShape returns the shape of full-size chunks.
func (a *Chunked) ChunkShape() dvid.Point {
	return a.chunkShape
}

func (a *Chunked) String() string {
	return fmt.Sprintf("chunked array %q %s in %s", a.name, a.bounds, a.db)
}

// chunkKey is array/<name>/c/<big-endian uint32 per axis>.
func (a *Chunked) chunkKey(idx dvid.Point) []byte {
	key := a.chunkPrefix()
	for _, c := range idx {
		key = binary.BigEndian.AppendUint32(key, uint32(c))
	}
	return key
}

func (a *Chunked) chunkPrefix() []byte {
	return storage.JoinKey([]byte("array"), []byte(a.name), []byte("c"), nil)
}

func (a *Chunked) shard(key []byte) int {
	h := fnv.New32()
	h.Write(key)
	return int(h.Sum32() % numChunkShards)
}

// chunkRegion returns the voxels covered by the chunk at grid index idx.
func (a *Chunked) chunkRegion(idx dvid.Point) dvid.Region {
	offset := make(dvid.Point, len(idx))
	size := make(dvid.Point, len(idx))
	end := a.bounds.End()
	for dim := range idx {
		offset[dim] = a.bounds.Offset[dim] + idx[dim]*a.chunkShape[dim]
		size[dim] = min(a.chunkShape[dim], end[dim]-offset[dim])
	}
	return dvid.Region{Offset: offset, Size: size}
}

// forEachChunk calls f on the grid index of every chunk intersecting r, which must
// lie within bounds, in C order.
func (a *Chunked) forEachChunk(r dvid.Region, f func(idx dvid.Point) error) error {
	ndims := r.NumDims()
	beg := make(dvid.Point, ndims)
	last := make(dvid.Point, ndims)
	end := r.End()
	for dim := 0; dim < ndims; dim++ {
		beg[dim] = (r.Offset[dim] - a.bounds.Offset[dim]) / a.chunkShape[dim]
		last[dim] = (end[dim] - 1 - a.bounds.Offset[dim]) / a.chunkShape[dim]
	}
	idx := beg.Duplicate()
	for {
		if err := f(idx.Duplicate()); err != nil {
			return err
		}
		dim := ndims - 1
		for ; dim >= 0; dim-- {
			idx[dim]++
			if idx[dim] <= last[dim] {
				break
			}
			idx[dim] = beg[dim]
		}
		if dim < 0 {
			return nil
		}
	}
}

// getChunk returns the chunk's labels or nil if the chunk is all background.
// The caller must hold the chunk's shard lock.
func (a *Chunked) getChunk(ctx context.Context, key []byte, cr dvid.Region) (*dvid.Volume, error) {
	atomic.AddUint64(&a.chunkReads, 1)
	var raw []byte
	n := int(cr.NumVoxels()) * 8
	if a.cache != nil {
		cached, err := a.cache.get(key, n)
		if err != nil {
			return nil, err
		}
		if cached != nil {
			atomic.AddUint64(&a.cacheHits, 1)
			raw = cached
		}
	}
	if raw == nil {
		stored, err := a.db.Get(ctx, key)
		if err != nil {
			return nil, err
		}
		if stored == nil {
			return nil, nil
		}
		if raw, _, err = dvid.DeserializeData(stored, true); err != nil {
			return nil, fmt.Errorf("chunk %x of array %q: %v", key, a.name, err)
		}
		if a.cache != nil {
			if err := a.cache.set(key, raw); err != nil {
				dvid.Debugf("unable to cache chunk of array %q: %v\n", a.name, err)
			}
		}
	}
	vol, err := dvid.NewVolume(cr.Size)
	if err != nil {
		return nil, err
	}
	if err := vol.SetBytes(raw); err != nil {
		return nil, fmt.Errorf("chunk %x of array %q: %v", key, a.name, err)
	}
	return vol, nil
}

// putChunk stores the chunk, deleting it if it is all background.  The caller must
// hold the chunk's shard lock.
func (a *Chunked) putChunk(ctx context.Context, key []byte, vol *dvid.Volume) error {
	atomic.AddUint64(&a.chunkWrites, 1)
	if vol.IsZero() {
		if a.cache != nil {
			a.cache.del(key, vol.NumVoxels()*8)
		}
		return a.db.Delete(ctx, key)
	}
	raw := vol.Bytes()
	serialization, err := dvid.SerializeData(raw, a.compression, dvid.CRC32)
	if err != nil {
		return err
	}
	if err := a.db.Put(ctx, key, serialization); err != nil {
		return err
	}
	if a.cache != nil {
		if err := a.cache.set(key, raw); err != nil {
			dvid.Debugf("unable to cache chunk of array %q: %v\n", a.name, err)
		}
	}
	return nil
}

func (a *Chunked) Read(ctx context.Context, r dvid.Region) (*dvid.Volume, error) {
	if err := checkRead(a.bounds, r); err != nil {
		return nil, err
	}
	out, err := dvid.NewVolume(r.Size)
	if err != nil {
		return nil, err
	}
	inter := r.Intersect(a.bounds)
	if inter.Empty() {
		return out, nil
	}
	err = a.forEachChunk(inter, func(idx dvid.Point) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		key := a.chunkKey(idx)
		cr := a.chunkRegion(idx)
		shard := a.shard(key)
		a.chunkMu[shard].Lock()
		chunk, err := a.getChunk(ctx, key, cr)
		a.chunkMu[shard].Unlock()
		if err != nil || chunk == nil {
			return err
		}
		overlap := inter.Intersect(cr)
		return out.CopyBox(overlap.Offset.Sub(r.Offset), chunk, overlap.Offset.Sub(cr.Offset), overlap.Size)
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Write updates every chunk intersecting r.  Partially covered chunks are
// read-modify-written under the chunk's shard lock, so concurrent writes to
// disjoint regions sharing a chunk never lose updates.
func (a *Chunked) Write(ctx context.Context, r dvid.Region, v *dvid.Volume) error {
	if err := checkWrite(a.bounds, r, v); err != nil {
		return err
	}
	return a.forEachChunk(r, func(idx dvid.Point) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		key := a.chunkKey(idx)
		cr := a.chunkRegion(idx)
		overlap := r.Intersect(cr)

		shard := a.shard(key)
		a.chunkMu[shard].Lock()
		defer a.chunkMu[shard].Unlock()

		var chunk *dvid.Volume
		var err error
		if !overlap.Equals(cr) {
			if chunk, err = a.getChunk(ctx, key, cr); err != nil {
				return err
			}
		}
		if chunk == nil {
			if chunk, err = dvid.NewVolume(cr.Size); err != nil {
				return err
			}
		}
		if err := chunk.CopyBox(overlap.Offset.Sub(cr.Offset), v, overlap.Offset.Sub(r.Offset), overlap.Size); err != nil {
			return err
		}
		return a.putChunk(ctx, key, chunk)
	})
}

// NumStoredChunks returns the number of chunks holding any foreground.
func (a *Chunked) NumStoredChunks(ctx context.Context) (int, error) {
	var n int
	err := a.db.ProcessPrefix(ctx, a.chunkPrefix(), func(k, v []byte) error {
		n++
		return nil
	})
	return n, err
}

// Delete removes all chunks and metadata of the array.
func (a *Chunked) Delete(ctx context.Context) error {
	if a.cache != nil {
		a.cache.clear()
	}
	if err := a.db.DeletePrefix(ctx, a.chunkPrefix()); err != nil {
		return err
	}
	return a.db.Delete(ctx, a.metaKey())
}

// CacheHits returns the number of chunk reads served from the cache.
func (a *Chunked) CacheHits() uint64 {
	return atomic.LoadUint64(&a.cacheHits)
}

// LogStats logs chunk traffic and cache effectiveness.
func (a *Chunked) LogStats() {
	reads := atomic.LoadUint64(&a.chunkReads)
	hits := atomic.LoadUint64(&a.cacheHits)
	writes := atomic.LoadUint64(&a.chunkWrites)
	if a.cache != nil && reads > 0 {
		dvid.Infof("Array %q: %d chunk reads (%.1f%% cache hits), %d chunk writes\n",
			a.name, reads, 100*float64(hits)/float64(reads), writes)
	} else {
		dvid.Infof("Array %q: %d chunk reads, %d chunk writes\n", a.name, reads, writes)
	}
}
