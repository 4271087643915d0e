package array

import (
	"bytes"
	"context"
	"fmt"
	"math/rand"
	"sync"
	"testing"

	"github.com/janelia-flyem/cclabels/blockwise"
	"github.com/janelia-flyem/cclabels/dvid"
	"github.com/janelia-flyem/cclabels/storage"
)

func mustRegion(t *testing.T, offset, size dvid.Point) dvid.Region {
	t.Helper()
	r, err := dvid.NewRegion(offset, size)
	if err != nil {
		t.Fatal(err)
	}
	return r
}

func randomVolume(rng *rand.Rand, shape dvid.Point, maxLabel int) *dvid.Volume {
	vol, _ := dvid.NewVolume(shape)
	data := vol.Data()
	for i := range data {
		data[i] = uint64(rng.Intn(maxLabel + 1))
	}
	return vol
}

// testArray writes a random volume through a shuffled set of blocks and checks
// reads, including reads that extend past the bounds.
func testArray(t *testing.T, a Array) {
	ctx := context.Background()
	bounds := a.Bounds()
	rng := rand.New(rand.NewSource(1))
	expected := randomVolume(rng, bounds.Size, 5)

	cfg := blockwise.Config{Total: bounds, BlockShape: dvid.Point{3, 5, 2}, NumWorkers: 4, Order: blockwise.ShuffleOrder}
	_, err := blockwise.Run(ctx, cfg, func(ctx context.Context, b dvid.Block) error {
		rel, err := bounds.Crop(b.WriteRegion)
		if err != nil {
			return err
		}
		sub, err := expected.SubVolume(rel)
		if err != nil {
			return err
		}
		return a.Write(ctx, b.WriteRegion, sub)
	})
	if err != nil {
		t.Fatal(err)
	}

	got, err := a.Read(ctx, bounds)
	if err != nil {
		t.Fatal(err)
	}
	if !got.Equals(expected) {
		t.Fatalf("array contents differ after blockwise writes")
	}

	// a halo-padded read at the lower corner sees zeros outside
	padded := mustRegion(t, bounds.Offset.AddScalar(-1), dvid.Point{3, 3, 3})
	vol, err := a.Read(ctx, padded)
	if err != nil {
		t.Fatal(err)
	}
	for z := int32(0); z < 3; z++ {
		for y := int32(0); y < 3; y++ {
			for x := int32(0); x < 3; x++ {
				var want uint64
				if z > 0 && y > 0 && x > 0 {
					want = expected.Value(dvid.Point{z - 1, y - 1, x - 1})
				}
				if got := vol.Value(dvid.Point{z, y, x}); got != want {
					t.Fatalf("padded read at (%d,%d,%d): expected %d, got %d", z, y, x, want, got)
				}
			}
		}
	}

	outside := mustRegion(t, bounds.End(), dvid.Point{2, 2, 2})
	if vol, err = a.Read(ctx, outside); err != nil || !vol.IsZero() {
		t.Errorf("read outside bounds should be all zero (err %v)", err)
	}

	tooBig := mustRegion(t, bounds.Offset, bounds.Size.AddScalar(1))
	big, _ := dvid.NewVolume(tooBig.Size)
	if err := a.Write(ctx, tooBig, big); err == nil {
		t.Errorf("expected error writing outside bounds")
	}
	small, _ := dvid.NewVolume(dvid.Point{1, 1, 1})
	if err := a.Write(ctx, mustRegion(t, bounds.Offset, dvid.Point{2, 1, 1}), small); err == nil {
		t.Errorf("expected error writing volume of mismatched shape")
	}
}

func TestMemory(t *testing.T) {
	a, err := NewMemory(mustRegion(t, dvid.Point{10, -4, 0}, dvid.Point{7, 11, 9}))
	if err != nil {
		t.Fatal(err)
	}
	testArray(t, a)
}

func TestChunked(t *testing.T) {
	for _, compression := range []dvid.Compression{dvid.Uncompressed, dvid.Snappy, dvid.LZ4, dvid.Zstd} {
		for _, cacheBytes := range []int{0, 1 << 20} {
			t.Run(fmt.Sprintf("%s-cache%d", compression, cacheBytes), func(t *testing.T) {
				db := storage.NewMemoryDB()
				a, err := NewChunked(context.Background(), db, ChunkedConfig{
					Name:        "labels",
					Bounds:      mustRegion(t, dvid.Point{10, -4, 0}, dvid.Point{7, 11, 9}),
					ChunkShape:  dvid.Point{4, 4, 4},
					Compression: compression,
					CacheBytes:  cacheBytes,
				})
				if err != nil {
					t.Fatal(err)
				}
				testArray(t, a)
				a.LogStats()
			})
		}
	}
}

func TestChunkedCacheDefaultShape(t *testing.T) {
	ctx := context.Background()
	bounds := mustRegion(t, dvid.Point{0, 0, 0}, dvid.Point{64, 64, 64})
	rng := rand.New(rand.NewSource(4))
	vol := randomVolume(rng, bounds.Size, 1000)

	// 2 MB chunks are larger than a freecache entry of a 64 MB cache
	a, err := NewChunked(ctx, storage.NewMemoryDB(), ChunkedConfig{
		Name:       "cached",
		Bounds:     bounds,
		CacheBytes: 64 << 20,
	})
	if err != nil {
		t.Fatal(err)
	}
	if !a.ChunkShape().Equals(DefaultChunkShape) {
		t.Fatalf("expected default chunk shape, got %s", a.ChunkShape())
	}
	if err := a.Write(ctx, bounds, vol); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 2; i++ {
		got, err := a.Read(ctx, bounds)
		if err != nil {
			t.Fatal(err)
		}
		if !got.Equals(vol) {
			t.Fatalf("read %d: cached chunk differs from written labels", i)
		}
	}
	if hits := a.CacheHits(); hits != 2 {
		t.Errorf("expected 2 cache hits, got %d", hits)
	}

	// a cache that cannot hold a chunk is not used
	b, err := NewChunked(ctx, storage.NewMemoryDB(), ChunkedConfig{Name: "tiny", Bounds: bounds, CacheBytes: 1})
	if err != nil {
		t.Fatal(err)
	}
	if b.cache != nil {
		t.Errorf("expected no cache for %d byte chunks in a 1 byte cache", 64*64*64*8)
	}
	if err := b.Write(ctx, bounds, vol); err != nil {
		t.Fatal(err)
	}
	if got, err := b.Read(ctx, bounds); err != nil || !got.Equals(vol) {
		t.Errorf("uncached read failed (err %v)", err)
	}
}

func TestChunkCacheMissingPiece(t *testing.T) {
	c := newChunkCache(minCacheBytes, 8, 4096)
	if c == nil {
		t.Fatal("expected cache")
	}
	key := []byte("chunk001")
	raw := make([]byte, 4096)
	for i := range raw {
		raw[i] = byte(i)
	}
	if err := c.set(key, raw); err != nil {
		t.Fatal(err)
	}
	if n := c.numPieces(len(raw)); n < 2 {
		t.Fatalf("expected several pieces, got %d", n)
	}
	got, err := c.get(key, len(raw))
	if err != nil || !bytes.Equal(got, raw) {
		t.Fatalf("bad cached chunk (err %v)", err)
	}
	c.cache.Del(pieceKey(key, 1))
	if got, err := c.get(key, len(raw)); err != nil || got != nil {
		t.Errorf("expected miss with an evicted piece, got %d bytes (err %v)", len(got), err)
	}
}

func TestChunkedConcurrentSharedChunk(t *testing.T) {
	ctx := context.Background()
	db := storage.NewMemoryDB()
	bounds := mustRegion(t, dvid.Point{0, 0}, dvid.Point{8, 8})
	a, err := NewChunked(ctx, db, ChunkedConfig{Name: "shared", Bounds: bounds, ChunkShape: dvid.Point{8, 8}})
	if err != nil {
		t.Fatal(err)
	}
	// 64 single-voxel writes all landing in the same chunk
	var wg sync.WaitGroup
	for i := int32(0); i < 64; i++ {
		wg.Add(1)
		go func(i int32) {
			defer wg.Done()
			vol, _ := dvid.NewVolumeFromData(dvid.Point{1, 1}, []uint64{uint64(i) + 1})
			if err := a.Write(ctx, mustRegion(t, dvid.Point{i / 8, i % 8}, dvid.Point{1, 1}), vol); err != nil {
				t.Error(err)
			}
		}(i)
	}
	wg.Wait()
	vol, err := a.Read(ctx, bounds)
	if err != nil {
		t.Fatal(err)
	}
	for i, label := range vol.Data() {
		if label != uint64(i)+1 {
			t.Fatalf("voxel %d: expected %d, got %d (lost update)", i, i+1, label)
		}
	}
}

func TestChunkedSparseAndReopen(t *testing.T) {
	ctx := context.Background()
	db := storage.NewMemoryDB()
	config := ChunkedConfig{Name: "sparse", Bounds: mustRegion(t, dvid.Point{0, 0}, dvid.Point{10, 10}), ChunkShape: dvid.Point{5, 5}}
	a, err := NewChunked(ctx, db, config)
	if err != nil {
		t.Fatal(err)
	}
	vol, _ := dvid.NewVolumeFromData(dvid.Point{1, 1}, []uint64{7})
	if err := a.Write(ctx, mustRegion(t, dvid.Point{6, 6}, dvid.Point{1, 1}), vol); err != nil {
		t.Fatal(err)
	}
	if n, err := a.NumStoredChunks(ctx); err != nil || n != 1 {
		t.Errorf("expected 1 stored chunk, got %d (err %v)", n, err)
	}

	b, err := NewChunked(ctx, db, config)
	if err != nil {
		t.Fatal(err)
	}
	got, err := b.Read(ctx, mustRegion(t, dvid.Point{6, 6}, dvid.Point{1, 1}))
	if err != nil || got.Data()[0] != 7 {
		t.Errorf("reopened array lost label: %v (err %v)", got.Data(), err)
	}
	// clearing the voxel removes the chunk
	zero, _ := dvid.NewVolume(dvid.Point{1, 1})
	if err := b.Write(ctx, mustRegion(t, dvid.Point{6, 6}, dvid.Point{1, 1}), zero); err != nil {
		t.Fatal(err)
	}
	if n, _ := b.NumStoredChunks(ctx); n != 0 {
		t.Errorf("expected all-background chunk to be deleted, %d stored", n)
	}

	config.ChunkShape = dvid.Point{2, 2}
	if _, err := NewChunked(ctx, db, config); err == nil {
		t.Errorf("expected error reopening array with different chunk shape")
	}
	if err := b.Delete(ctx); err != nil {
		t.Fatal(err)
	}
	if _, err := NewChunked(ctx, db, config); err != nil {
		t.Errorf("expected deleted array to be recreatable: %v", err)
	}
}

func TestRaw(t *testing.T) {
	vol, _ := dvid.NewVolumeFromData(dvid.Point{2, 3}, []uint64{0, 1, 255, 256, 65535, 70000})
	var buf bytes.Buffer
	if err := WriteRaw(&buf, vol, Uint16); err == nil {
		t.Errorf("expected error writing label 70000 as uint16")
	}
	buf.Reset()
	if err := WriteRaw(&buf, vol, Uint32); err != nil {
		t.Fatal(err)
	}
	if buf.Len() != 24 {
		t.Errorf("expected 24 bytes of uint32, got %d", buf.Len())
	}
	got, err := ReadRaw(bytes.NewReader(buf.Bytes()), dvid.Point{2, 3}, Uint32)
	if err != nil {
		t.Fatal(err)
	}
	if !got.Equals(vol) {
		t.Errorf("raw round trip: expected %v, got %v", vol.Data(), got.Data())
	}
	if _, err := ReadRaw(bytes.NewReader(buf.Bytes()), dvid.Point{2, 2}, Uint32); err == nil {
		t.Errorf("expected error for trailing data")
	}
	if _, err := ReadRaw(bytes.NewReader(buf.Bytes()), dvid.Point{2, 4}, Uint32); err == nil {
		t.Errorf("expected error for short data")
	}
	if _, err := ParseDType("float32"); err == nil {
		t.Errorf("expected error for non-integer dtype")
	}
}

func TestImportExportRaw(t *testing.T) {
	ctx := context.Background()
	a, _ := NewMemory(mustRegion(t, dvid.Point{0, 0, 0}, dvid.Point{2, 2, 2}))
	in := []byte{1, 0, 2, 0, 0, 0, 3, 3}
	if err := ImportRaw(ctx, bytes.NewReader(in), a, Uint8); err != nil {
		t.Fatal(err)
	}
	var out bytes.Buffer
	if err := ExportRaw(ctx, a, &out, Uint8); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(in, out.Bytes()) {
		t.Errorf("expected %v, got %v", in, out.Bytes())
	}
}

func TestIsZero(t *testing.T) {
	ctx := context.Background()
	a, _ := NewMemory(mustRegion(t, dvid.Point{0, 0}, dvid.Point{9, 9}))
	zero, err := IsZero(ctx, a, dvid.Point{4, 4}, 2)
	if err != nil || !zero {
		t.Errorf("expected fresh array to be zero (err %v)", err)
	}
	vol, _ := dvid.NewVolumeFromData(dvid.Point{1, 1}, []uint64{3})
	a.Write(ctx, mustRegion(t, dvid.Point{8, 8}, dvid.Point{1, 1}), vol)
	zero, err = IsZero(ctx, a, dvid.Point{4, 4}, 2)
	if err != nil || zero {
		t.Errorf("expected array with foreground to be nonzero (err %v)", err)
	}
}
