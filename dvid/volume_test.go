package dvid

import (
	"bytes"
	"testing"
)

func TestVolumeSubVolumeAndPaste(t *testing.T) {
	v, err := NewVolume(Point{3, 4})
	if err != nil {
		t.Fatal(err)
	}
	for i := range v.Data() {
		v.Data()[i] = uint64(i + 1)
	}
	if got := v.Value(Point{2, 1}); got != 10 {
		t.Fatalf("expected label 10 at (2,1), got %d", got)
	}
	sub, err := v.SubVolume(Region{Point{1, 1}, Point{2, 2}})
	if err != nil {
		t.Fatal(err)
	}
	expected := []uint64{6, 7, 10, 11}
	for i, label := range sub.Data() {
		if label != expected[i] {
			t.Fatalf("bad subvolume: %v", sub.Data())
		}
	}

	dst, _ := NewVolume(Point{3, 4})
	if err := dst.Paste(Point{1, 2}, sub); err != nil {
		t.Fatal(err)
	}
	if dst.Value(Point{1, 2}) != 6 || dst.Value(Point{2, 3}) != 11 || dst.Value(Point{0, 0}) != 0 {
		t.Errorf("bad paste: %v", dst.Data())
	}
	if err := dst.Paste(Point{2, 3}, sub); err == nil {
		t.Errorf("expected error pasting past volume bounds")
	}
	if _, err := v.SubVolume(Region{Point{2, 2}, Point{2, 2}}); err == nil {
		t.Errorf("expected error extracting subvolume past bounds")
	}
}

func TestVolumeFaceSlice(t *testing.T) {
	v, _ := NewVolume(Point{2, 3, 4})
	for i := range v.Data() {
		v.Data()[i] = uint64(i)
	}
	low, err := v.FaceSlice(2, false)
	if err != nil {
		t.Fatal(err)
	}
	high, err := v.FaceSlice(2, true)
	if err != nil {
		t.Fatal(err)
	}
	expectLow := []uint64{0, 4, 8, 12, 16, 20}
	expectHigh := []uint64{3, 7, 11, 15, 19, 23}
	for i := range expectLow {
		if low[i] != expectLow[i] || high[i] != expectHigh[i] {
			t.Fatalf("bad face slices: low %v high %v", low, high)
		}
	}
	top, _ := v.FaceSlice(0, true)
	if len(top) != 12 || top[0] != 12 {
		t.Errorf("bad axis 0 face: %v", top)
	}
	if _, err := v.FaceSlice(3, false); err == nil {
		t.Errorf("expected error for missing axis")
	}
}

func TestVolumeBytesRoundTrip(t *testing.T) {
	v, _ := NewVolume(Point{5})
	copy(v.Data(), []uint64{0, 1, 1 << 40, 7, 0})
	b := v.Bytes()
	w, _ := NewVolume(Point{5})
	if err := w.SetBytes(b); err != nil {
		t.Fatal(err)
	}
	if !v.Equals(w) {
		t.Errorf("volumes differ after byte round trip")
	}
	if !bytes.Equal(b, w.Bytes()) {
		t.Errorf("bytes differ after round trip")
	}
	if err := w.SetBytes(b[:8]); err == nil {
		t.Errorf("expected error on short byte slice")
	}
}
