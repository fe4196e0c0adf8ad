// Package imgf holds float64 image planes and the basic pixel math the
// restoration pipeline is built on. Values are kept on the 0..255 scale
// end to end, matching 8-bit video frames.
package imgf

import(
	"fmt"
	"math"
	"sort"
)

// A Grid is a single plane of float64 samples.
type Grid struct {
	stride int
	values []float64
}

func NewGrid(w, h int) Grid {
	return Grid{
		stride: w,
		values: make([]float64, w*h),
	}
}

func (g *Grid)NewFromThis() Grid           { return NewGrid(g.Dx(), g.Dy()) }
func (g *Grid)Set(x, y int, v float64)     { g.values[g.stride*y + x] = v }
func (g *Grid)Get(x, y int) float64        { return g.values[g.stride*y + x] }
func (g *Grid)Dx() int                     { return g.stride }

func (g *Grid)Dy() int {
	if g.stride == 0 {
		return 0
	}
	return len(g.values) / g.stride
}

// GetReflect reads a sample, reflecting coords at the borders (the image
// edge pixel is included in the reflection). Out-of-range reads never
// happen, and no zero padding gets introduced that would bias a mean
// or median downstream.
func (g *Grid)GetReflect(x, y int) float64 {
	return g.Get(reflect(x, g.Dx()), reflect(y, g.Dy()))
}

func reflect(i, n int) int {
	if n == 1 {
		return 0
	}
	period := 2 * n
	i = i % period
	if i < 0 {
		i += period
	}
	if i >= n {
		i = period - 1 - i
	}
	return i
}

func (g1 *Grid)Copy() Grid {
	g2 := Grid{stride: g1.stride, values: make([]float64, len(g1.values))}
	copy(g2.values, g1.values)
	return g2
}

func (g *Grid)Fill(v float64) {
	for i := range g.values {
		g.values[i] = v
	}
}

func (g *Grid)Mean() float64 {
	sum := 0.0
	for _, v := range g.values {
		sum += v
	}
	return sum / float64(len(g.values))
}

func (g *Grid)Variance() float64 {
	mean := g.Mean()
	sum := 0.0
	for _, v := range g.values {
		d := v - mean
		sum += d * d
	}
	return sum / float64(len(g.values))
}

func (g *Grid)MinMax() (float64, float64) {
	min, max := math.MaxFloat64, -math.MaxFloat64
	for _, v := range g.values {
		if v < min { min = v }
		if v > max { max = v }
	}
	return min, max
}

// IsFinite reports whether every sample is a normal number.
func (g *Grid)IsFinite() bool {
	for _, v := range g.values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

func (g *Grid)IsAllZero() bool {
	for _, v := range g.values {
		if v != 0 {
			return false
		}
	}
	return true
}

// Median returns the order-statistic median of all samples.
func (g *Grid)Median() float64 {
	vals := make([]float64, len(g.values))
	copy(vals, g.values)
	sort.Float64s(vals)
	n := len(vals)
	if n%2 == 1 {
		return vals[n/2]
	}
	return (vals[n/2-1] + vals[n/2]) / 2.0
}

// Region copies a w*h window anchored at (x0,y0), reading with border
// reflection so the window may overhang the plane.
func (g *Grid)Region(x0, y0, w, h int) Grid {
	r := NewGrid(w, h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			r.Set(x, y, g.GetReflect(x0+x, y0+y))
		}
	}
	return r
}

// Rows exposes the plane as row slices, for handing to FFT routines.
func (g *Grid)Rows() [][]float64 {
	w, h := g.Dx(), g.Dy()
	rows := make([][]float64, h)
	for y := 0; y < h; y++ {
		rows[y] = g.values[y*w : (y+1)*w]
	}
	return rows
}

func (g *Grid)Stats() string {
	min, max := g.MinMax()
	return fmt.Sprintf("grid[%dx%d, vals{%.2f,%.2f}]", g.Dx(), g.Dy(), min, max)
}

// GaussianBlur convolves with a separable gaussian kernel, reflecting at
// the borders. Kernel extent is 6*sigma rounded up to odd, like the
// usual rule of thumb.
func (g1 Grid)GaussianBlur(sigma float64) Grid {
	if sigma <= 0 {
		return g1.Copy()
	}
	size := int(6*sigma + 1)
	if size%2 == 0 {
		size++
	}
	half := size / 2

	kernel := make([]float64, size)
	sum := 0.0
	for i := 0; i < size; i++ {
		d := float64(i - half)
		kernel[i] = math.Exp(-d * d / (2 * sigma * sigma))
		sum += kernel[i]
	}
	for i := range kernel {
		kernel[i] /= sum
	}

	width, height := g1.Dx(), g1.Dy()
	T := g1.NewFromThis()
	g2 := g1.NewFromThis()

	//--- X blur, build up in T
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			t := 0.0
			for i := 0; i < size; i++ {
				t += kernel[i] * g1.GetReflect(x+i-half, y)
			}
			T.Set(x, y, t)
		}
	}

	//--- Y blur, read from T and generate output
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			t := 0.0
			for i := 0; i < size; i++ {
				t += kernel[i] * T.GetReflect(x, y+i-half)
			}
			g2.Set(x, y, t)
		}
	}

	return g2
}

// DownSample returns a half-resolution grid: gaussian blur at sigma 1.0,
// then 2x subsample. Used when building flow pyramids.
func (g1 *Grid)DownSample() Grid {
	blurred := g1.GaussianBlur(1.0)
	width := (g1.Dx() + 1) / 2
	height := (g1.Dy() + 1) / 2
	g2 := NewGrid(width, height)

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			g2.Set(x, y, blurred.Get(2*x, 2*y))
		}
	}

	return g2
}
