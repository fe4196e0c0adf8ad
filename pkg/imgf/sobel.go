package imgf

import "math"

// Sobel computes horizontal and vertical image gradients with the
// 1/8-normalized 3x3 sobel kernels, plus the gradient magnitude.
// Borders use symmetric reflection.
func (g *Grid)Sobel() (Grid, Grid, Grid) {
	width, height := g.Dx(), g.Dy()
	gx := g.NewFromThis()
	gy := g.NewFromThis()
	mag := g.NewFromThis()

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			nw := g.GetReflect(x-1, y-1)
			n  := g.GetReflect(x,   y-1)
			ne := g.GetReflect(x+1, y-1)
			w  := g.GetReflect(x-1, y)
			e  := g.GetReflect(x+1, y)
			sw := g.GetReflect(x-1, y+1)
			s  := g.GetReflect(x,   y+1)
			se := g.GetReflect(x+1, y+1)

			dx := ((ne + 2*e + se) - (nw + 2*w + sw)) / 8.0
			dy := ((sw + 2*s + se) - (nw + 2*n + ne)) / 8.0

			gx.Set(x, y, dx)
			gy.Set(x, y, dy)
			mag.Set(x, y, math.Sqrt(dx*dx+dy*dy))
		}
	}

	return gx, gy, mag
}

// HighFreqEnergy is the mean squared gradient magnitude, used as the
// screen-visibility indicator: a fine periodic mesh shows up as strong
// high-frequency gradient energy.
func (g *Grid)HighFreqEnergy() float64 {
	gx, gy, _ := g.Sobel()
	width, height := g.Dx(), g.Dy()
	sum := 0.0
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			dx := gx.Get(x, y)
			dy := gy.Get(x, y)
			sum += dx*dx + dy*dy
		}
	}
	return sum / float64(width*height)
}
