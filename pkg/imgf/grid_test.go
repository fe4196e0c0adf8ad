package imgf

import(
	"math"
	"testing"
)

func TestReflectIndexing(t *testing.T) {
	tests := []struct {
		i, n, want int
	}{
		{0, 5, 0},
		{4, 5, 4},
		{-1, 5, 0},
		{-2, 5, 1},
		{5, 5, 4},
		{6, 5, 3},
		{9, 5, 0},
		{0, 1, 0},
		{-3, 1, 0},
	}
	for _, tc := range tests {
		if got := reflect(tc.i, tc.n); got != tc.want {
			t.Errorf("reflect(%d, %d) = %d, want %d", tc.i, tc.n, got, tc.want)
		}
	}
}

func TestGaussianBlurPreservesConstant(t *testing.T) {
	g := NewGrid(16, 16)
	g.Fill(42.0)
	b := g.GaussianBlur(2.0)
	for y := 0; y < 16; y++ {
		for x := 0; x < 16; x++ {
			if math.Abs(b.Get(x, y)-42.0) > 1e-9 {
				t.Fatalf("blur of constant changed at (%d,%d): %f", x, y, b.Get(x, y))
			}
		}
	}
}

func TestSobelOnRamp(t *testing.T) {
	// a pure horizontal ramp has dx equal to the slope and dy zero
	g := NewGrid(16, 16)
	for y := 0; y < 16; y++ {
		for x := 0; x < 16; x++ {
			g.Set(x, y, float64(3*x))
		}
	}
	gx, gy, _ := g.Sobel()
	// interior only; the border reflection flattens the ramp there
	for y := 2; y < 14; y++ {
		for x := 2; x < 14; x++ {
			if math.Abs(gx.Get(x, y)-3.0) > 1e-9 {
				t.Fatalf("gx at (%d,%d) = %f, want 3", x, y, gx.Get(x, y))
			}
			if math.Abs(gy.Get(x, y)) > 1e-9 {
				t.Fatalf("gy at (%d,%d) = %f, want 0", x, y, gy.Get(x, y))
			}
		}
	}
}

func TestGridMedian(t *testing.T) {
	g := NewGrid(3, 1)
	g.Set(0, 0, 5)
	g.Set(1, 0, 1)
	g.Set(2, 0, 9)
	if got := g.Median(); got != 5 {
		t.Errorf("median = %f, want 5", got)
	}
}

func TestNTSCGray(t *testing.T) {
	f := NewFrame(2, 1)
	f.R.Set(0, 0, 100)
	f.G.Set(0, 0, 100)
	f.B.Set(0, 0, 100)
	f.R.Set(1, 0, 255)
	g := f.Gray()
	if math.Abs(g.Get(0, 0)-100) > 1e-9 {
		t.Errorf("gray of equal channels = %f, want 100", g.Get(0, 0))
	}
	if math.Abs(g.Get(1, 0)-0.299*255) > 1e-9 {
		t.Errorf("gray of pure red = %f, want %f", g.Get(1, 0), 0.299*255)
	}
}

func TestCheckStack(t *testing.T) {
	good := NewFrame(4, 4)
	good.R.Fill(10)

	if err := CheckStack(nil, 0); err == nil {
		t.Error("empty list should fail")
	}
	if err := CheckStack([]Frame{good}, 2); err == nil {
		t.Error("out-of-range ref index should fail")
	}
	if err := CheckStack([]Frame{good, NewFrame(5, 4)}, 0); err == nil {
		t.Error("mismatched dimensions should fail")
	}
	if err := CheckStack([]Frame{NewFrame(0, 4)}, 0); err == nil {
		t.Error("zero-width frame should fail")
	}
	if err := CheckStack([]Frame{NewFrame(4, 0)}, 0); err == nil {
		t.Error("zero-height frame should fail")
	}

	zero := NewFrame(4, 4)
	if err := CheckStack([]Frame{good, zero}, 0); err == nil {
		t.Error("all-zero frame should fail")
	}

	nan := NewFrame(4, 4)
	nan.G.Set(1, 1, math.NaN())
	if err := CheckStack([]Frame{good, nan}, 0); err == nil {
		t.Error("NaN frame should fail")
	}

	if err := CheckStack([]Frame{good, good}, 1); err != nil {
		t.Errorf("valid stack failed: %v", err)
	}
}
