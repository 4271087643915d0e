package dvid

import "testing"

func TestPointArithmetic(t *testing.T) {
	a := Point{10, 21, 837821, 100}
	b := Point{78312, -200, 40123, -100}

	if got := a.Add(b); !got.Equals(Point{78322, -179, 877944, 0}) {
		t.Errorf("bad Add: %s", got)
	}
	if got := a.Sub(b); !got.Equals(Point{-78302, 221, 797698, 200}) {
		t.Errorf("bad Sub: %s", got)
	}
	if got := a.Max(b); !got.Equals(Point{78312, 21, 837821, 100}) {
		t.Errorf("bad Max: %s", got)
	}
	if got := a.Min(b); !got.Equals(Point{10, -200, 40123, -100}) {
		t.Errorf("bad Min: %s", got)
	}
	if got := a.AddScalar(10); !got.Equals(Point{20, 31, 837831, 110}) {
		t.Errorf("bad AddScalar: %s", got)
	}
	if a.String() != "(10,21,837821,100)" {
		t.Errorf("bad String: %s", a)
	}
	if p := (Point{4, 5, 6}).Prod(); p != 120 {
		t.Errorf("expected product 120, got %d", p)
	}
	if (Point{1, 0, 2}).AllPositive() {
		t.Errorf("point with zero element reported all positive")
	}
	if a.Equals(a[:3]) {
		t.Errorf("points of different dimensionality reported equal")
	}
}

func TestPointDuplicateIsCopy(t *testing.T) {
	a := Point{1, 2, 3}
	b := a.Duplicate()
	b[0] = 7
	if a[0] != 1 {
		t.Fatalf("Duplicate shares backing array with original")
	}
}

func TestStringToPoint(t *testing.T) {
	p, err := StringToPoint("64, 32,16", ",")
	if err != nil {
		t.Fatal(err)
	}
	if !p.Equals(Point{64, 32, 16}) {
		t.Errorf("bad parse: %s", p)
	}
	p, err = StringToPoint("8", ",")
	if err != nil {
		t.Fatal(err)
	}
	if !p.Equals(Point{8}) {
		t.Errorf("bad 1d parse: %s", p)
	}
	if _, err = StringToPoint("1,x,3", ","); err == nil {
		t.Errorf("expected error parsing non-integer coordinate")
	}
	if _, err = StringToPoint("", ","); err == nil {
		t.Errorf("expected error parsing empty string")
	}
}

func TestSliceToPoint(t *testing.T) {
	p, err := SliceToPoint([]int64{3, 4})
	if err != nil {
		t.Fatal(err)
	}
	if !p.Equals(Point{3, 4}) {
		t.Errorf("bad conversion: %s", p)
	}
	if _, err = SliceToPoint([]int64{1 << 40}); err == nil {
		t.Errorf("expected overflow error")
	}
}
