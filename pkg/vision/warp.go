package vision

import(
	"math"

	"github.com/HSKayman/screen-removal/pkg/imgf"
)

// Warp resamples a plane through a transform: every output pixel (x,y)
// is filled by bilinear sampling of src at t.Apply(x,y). Samples that
// land outside the plane reflect at the border, so no zeros leak in to
// bias the temporal statistic later. Output dimensions always equal
// the input's.
//
// Note the direction convention: t maps output coordinates to source
// sample positions. A homography fitted source->reference must be
// inverted before warping (WarpHomography does this).
func Warp(src *imgf.Grid, t Transform) imgf.Grid {
	w, h := src.Dx(), src.Dy()
	dst := imgf.NewGrid(w, h)
	if t.IsIdentity() {
		return src.Copy()
	}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			sx, sy := t.Apply(float64(x), float64(y))
			dst.Set(x, y, bilinear(src, sx, sy))
		}
	}
	return dst
}

// WarpHomography aligns src into the reference coordinate system given
// the fitted source->reference matrix, by inverse mapping. A singular
// matrix degrades to a straight copy.
func WarpHomography(src *imgf.Grid, h Homography) imgf.Grid {
	inv, err := h.Invert()
	if err != nil {
		return src.Copy()
	}
	return Warp(src, inv)
}

// WarpFrame applies the same transform to every channel.
func WarpFrame(f *imgf.Frame, t Transform) imgf.Frame {
	return imgf.Frame{
		R: Warp(&f.R, t),
		G: Warp(&f.G, t),
		B: Warp(&f.B, t),
	}
}

// WarpFrameHomography is WarpHomography across all three channels.
func WarpFrameHomography(f *imgf.Frame, h Homography) imgf.Frame {
	inv, err := h.Invert()
	if err != nil {
		return imgf.Frame{R: f.R.Copy(), G: f.G.Copy(), B: f.B.Copy()}
	}
	return WarpFrame(f, inv)
}

// bilinear samples a continuous position as the weighted average of
// the four surrounding samples, with reflected border reads.
func bilinear(g *imgf.Grid, x, y float64) float64 {
	x0 := int(math.Floor(x))
	y0 := int(math.Floor(y))
	fx := x - float64(x0)
	fy := y - float64(y0)

	v00 := g.GetReflect(x0, y0)
	v10 := g.GetReflect(x0+1, y0)
	v01 := g.GetReflect(x0, y0+1)
	v11 := g.GetReflect(x0+1, y0+1)

	return v00*(1-fx)*(1-fy) + v10*fx*(1-fy) + v01*(1-fx)*fy + v11*fx*fy
}
