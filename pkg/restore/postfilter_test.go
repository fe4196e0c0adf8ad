package restore

import(
	"math"
	"testing"

	"github.com/HSKayman/screen-removal/pkg/imgf"
)

func stepEdge(w, h, at int, lo, hi float64) imgf.Grid {
	g := imgf.NewGrid(w, h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if x < at {
				g.Set(x, y, lo)
			} else {
				g.Set(x, y, hi)
			}
		}
	}
	return g
}

// The defining property of the quadrant filter: a hard step edge stays
// a hard step edge, because one quadrant always lies entirely on the
// pixel's own side.
func TestKuwaharaPreservesStepEdge(t *testing.T) {
	g := stepEdge(16, 16, 8, 0, 255)
	out := Kuwahara(&g, 5)
	for y := 0; y < 16; y++ {
		for x := 0; x < 16; x++ {
			if x <= 5 || x >= 10 {
				want := 0.0
				if x >= 8 {
					want = 255
				}
				if out.Get(x, y) != want {
					t.Fatalf("at (%d,%d): %f, want %f", x, y, out.Get(x, y), want)
				}
			}
		}
	}
}

func TestKuwaharaFlattensNoiseRegion(t *testing.T) {
	g := imgf.NewGrid(16, 16)
	g.Fill(100)
	g.Set(8, 8, 130) // lone speck inside a flat region
	out := Kuwahara(&g, 5)
	// well away from the speck the region is flat and must stay flat
	if out.Get(2, 2) != 100 {
		t.Errorf("flat region changed: %f", out.Get(2, 2))
	}
	// the speck's neighbours pick a clean quadrant
	if out.Get(5, 8) != 100 {
		t.Errorf("speck leaked into neighbour: %f", out.Get(5, 8))
	}
}

// The bilateral filter must hug a strong edge tighter than a plain
// gaussian of similar support does.
func TestBilateralEdgePreserving(t *testing.T) {
	g := stepEdge(32, 32, 16, 40, 200)
	bil := Bilateral(&g, 9, 75, 75)
	gau := g.GaussianBlur(2.0)

	for _, x := range []int{14, 15, 16, 17} {
		orig := g.Get(x, 16)
		if math.Abs(bil.Get(x, 16)-orig) >= math.Abs(gau.Get(x, 16)-orig) {
			t.Errorf("at x=%d: bilateral drifted %f, gaussian %f",
				x, math.Abs(bil.Get(x, 16)-orig), math.Abs(gau.Get(x, 16)-orig))
		}
	}
}

// An even diameter from a config file rounds up to the enclosing odd
// window instead of walking off the kernel.
func TestBilateralEvenDiameter(t *testing.T) {
	g := stepEdge(32, 32, 16, 40, 200)
	out := Bilateral(&g, 8, 75, 75)
	if out.Dx() != 32 || out.Dy() != 32 {
		t.Fatalf("output is %dx%d", out.Dx(), out.Dy())
	}
	if !out.IsFinite() {
		t.Error("even-diameter output contains non-finite samples")
	}
	min, max := out.MinMax()
	if min < 40 || max > 200 {
		t.Errorf("output escaped input range: min %f max %f", min, max)
	}
}

func TestMedianFilterRemovesImpulse(t *testing.T) {
	g := imgf.NewGrid(16, 16)
	g.Fill(100)
	g.Set(7, 7, 255)
	out := MedianFilter(&g, 3)
	for y := 0; y < 16; y++ {
		for x := 0; x < 16; x++ {
			if out.Get(x, y) != 100 {
				t.Fatalf("impulse survived at (%d,%d): %f", x, y, out.Get(x, y))
			}
		}
	}
}

func TestUnsharpMask(t *testing.T) {
	flat := imgf.NewGrid(16, 16)
	flat.Fill(90)
	out := UnsharpMask(&flat, 1.0, 0.8)
	if out.Get(8, 8) != 90 {
		t.Errorf("constant image changed: %f", out.Get(8, 8))
	}

	g := stepEdge(16, 16, 8, 10, 250)
	sharp := UnsharpMask(&g, 1.0, 0.8)
	min, max := sharp.MinMax()
	if min < 0 || max > 255 {
		t.Errorf("output escaped 0..255: min %f max %f", min, max)
	}
	// overshoot must be clamped but the edge itself amplified
	if sharp.Get(8, 8) < g.Get(8, 8) {
		t.Errorf("bright side of edge got darker: %f < %f", sharp.Get(8, 8), g.Get(8, 8))
	}
}

// All-zero input skips every filter rather than dividing by zero
// normalizations.
func TestFiltersDegenerateInput(t *testing.T) {
	zero := imgf.NewGrid(8, 8)
	for name, run := range map[string]func() imgf.Grid{
		"kuwahara":  func() imgf.Grid { return Kuwahara(&zero, 5) },
		"bilateral": func() imgf.Grid { return Bilateral(&zero, 9, 75, 75) },
		"median":    func() imgf.Grid { return MedianFilter(&zero, 3) },
		"unsharp":   func() imgf.Grid { return UnsharpMask(&zero, 1.0, 0.8) },
	} {
		out := run()
		if !out.IsAllZero() || out.Dx() != 8 {
			t.Errorf("%s: degenerate input not passed through", name)
		}
	}
}
