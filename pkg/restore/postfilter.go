package restore

import(
	"log"
	"math"
	"sort"

	"github.com/HSKayman/screen-removal/pkg/imgf"
)

// Kuwahara is the minimum-variance quadrant filter: four overlapping
// (k+1)x(k+1) sub-windows anchor at each pixel, one per quadrant, and
// the pixel takes the mean of whichever has the lowest variance. A
// low-variance quadrant always exists on one side of an edge, so a
// step edge comes out as the mean of its own side rather than a blend.
func Kuwahara(g *imgf.Grid, size int) imgf.Grid {
	if degenerate(g, "kuwahara") {
		return g.Copy()
	}
	k := size / 2
	if k < 1 {
		return g.Copy()
	}
	w, h := g.Dx(), g.Dy()
	out := imgf.NewGrid(w, h)

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			// Anchors of the four quadrant windows, in padded coords:
			// NW, NE, SW, SE relative to (x,y).
			bestMean, bestVar := 0.0, math.MaxFloat64
			for _, anchor := range [4][2]int{{-k, -k}, {0, -k}, {-k, 0}, {0, 0}} {
				mean, variance := regionStats(g, x+anchor[0], y+anchor[1], k+1)
				if variance < bestVar {
					bestVar = variance
					bestMean = mean
				}
			}
			out.Set(x, y, bestMean)
		}
	}
	return out
}

func regionStats(g *imgf.Grid, x0, y0, size int) (float64, float64) {
	n := float64(size * size)
	sum, sumSq := 0.0, 0.0
	for dy := 0; dy < size; dy++ {
		for dx := 0; dx < size; dx++ {
			v := g.GetReflect(x0+dx, y0+dy)
			sum += v
			sumSq += v * v
		}
	}
	mean := sum / n
	return mean, sumSq/n - mean*mean
}

// Bilateral is the edge-preserving smoother: a local average weighted
// by both pixel distance and intensity difference, so it blurs inside
// consistent regions but not across strong edges. d is the window
// diameter; the two sigmas are the spatial and intensity bandwidths.
func Bilateral(g *imgf.Grid, d int, sigmaColor, sigmaSpace float64) imgf.Grid {
	if degenerate(g, "bilateral") {
		return g.Copy()
	}
	if sigmaColor <= 0 || sigmaSpace <= 0 {
		log.Printf("bilateral: non-positive sigma, returning input unchanged")
		return g.Copy()
	}
	half := d / 2
	side := 2*half + 1 // the window is always odd, whatever d was given
	w, h := g.Dx(), g.Dy()
	out := imgf.NewGrid(w, h)

	// precompute the spatial kernel
	spatial := make([]float64, side*side)
	for dy := -half; dy <= half; dy++ {
		for dx := -half; dx <= half; dx++ {
			dist := float64(dx*dx + dy*dy)
			spatial[(dy+half)*side+(dx+half)] = math.Exp(-dist / (2 * sigmaSpace * sigmaSpace))
		}
	}

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			center := g.Get(x, y)
			num, den := 0.0, 0.0
			for dy := -half; dy <= half; dy++ {
				for dx := -half; dx <= half; dx++ {
					v := g.GetReflect(x+dx, y+dy)
					diff := v - center
					wgt := spatial[(dy+half)*side+(dx+half)] * math.Exp(-diff*diff/(2*sigmaColor*sigmaColor))
					num += wgt * v
					den += wgt
				}
			}
			// den >= the center's own weight of 1, never zero
			out.Set(x, y, num/den)
		}
	}
	return out
}

// MedianFilter is a plain spatial median over a size x size window.
func MedianFilter(g *imgf.Grid, size int) imgf.Grid {
	if degenerate(g, "median") {
		return g.Copy()
	}
	half := size / 2
	w, h := g.Dx(), g.Dy()
	out := imgf.NewGrid(w, h)
	vals := make([]float64, 0, size*size)

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			vals = vals[:0]
			for dy := -half; dy <= half; dy++ {
				for dx := -half; dx <= half; dx++ {
					vals = append(vals, g.GetReflect(x+dx, y+dy))
				}
			}
			sort.Float64s(vals)
			out.Set(x, y, vals[len(vals)/2])
		}
	}
	return out
}

// UnsharpMask adds back a scaled difference against a gaussian blur,
// clamped to the working range.
func UnsharpMask(g *imgf.Grid, sigma, strength float64) imgf.Grid {
	if degenerate(g, "unsharp") {
		return g.Copy()
	}
	blurred := g.GaussianBlur(sigma)
	w, h := g.Dx(), g.Dy()
	out := imgf.NewGrid(w, h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := g.Get(x, y) + strength*(g.Get(x, y)-blurred.Get(x, y))
			if v < 0 { v = 0 }
			if v > 255 { v = 255 }
			out.Set(x, y, v)
		}
	}
	return out
}

// ApplyToFrame runs a plane filter on each channel independently.
func ApplyToFrame(f *imgf.Frame, filter func(*imgf.Grid) imgf.Grid) imgf.Frame {
	return imgf.Frame{
		R: filter(&f.R),
		G: filter(&f.G),
		B: filter(&f.B),
	}
}

// degenerate guards the filters against all-zero input; dividing by a
// zero normalization is worse than doing nothing.
func degenerate(g *imgf.Grid, name string) bool {
	if g.Dx() == 0 || g.Dy() == 0 || g.IsAllZero() {
		log.Printf("%s: degenerate (all-zero or empty) input, returning it unchanged", name)
		return true
	}
	return false
}
