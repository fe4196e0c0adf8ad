package vision

import(
	"math"

	"github.com/HSKayman/screen-removal/pkg/imgf"
)

// A FlowField is a dense displacement field: sampling the source frame
// at (x+u, y+v) lands on the scene point the reference frame shows at
// (x, y). Displacements are finite everywhere; pixels where the local
// solve was ill-conditioned stay at zero.
type FlowField struct {
	U, V imgf.Grid
}

func NewFlowField(w, h int) FlowField {
	return FlowField{U: imgf.NewGrid(w, h), V: imgf.NewGrid(w, h)}
}

func (f FlowField)Apply(x, y float64) (float64, float64) {
	xi, yi := int(x), int(y)
	if xi < 0 { xi = 0 }
	if yi < 0 { yi = 0 }
	if xi >= f.U.Dx() { xi = f.U.Dx() - 1 }
	if yi >= f.U.Dy() { yi = f.U.Dy() - 1 }
	return x + f.U.Get(xi, yi), y + f.V.Get(xi, yi)
}

func (f FlowField)IsIdentity() bool {
	return f.U.IsAllZero() && f.V.IsAllZero()
}

// MeanMagnitude is handy for logging how much motion got estimated.
func (f FlowField)MeanMagnitude() float64 {
	w, h := f.U.Dx(), f.U.Dy()
	sum := 0.0
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			u := f.U.Get(x, y)
			v := f.V.Get(x, y)
			sum += math.Hypot(u, v)
		}
	}
	return sum / float64(w*h)
}

// FlowConfig carries the Lucas-Kanade parameters. Defaults follow
// NewFlowConfig.
type FlowConfig struct {
	WindowSize   int // odd, local least-squares window
	Levels       int // pyramid levels
	EigThreshold float64 // conditioning floor on the normal matrix
}

func NewFlowConfig() FlowConfig {
	return FlowConfig{
		WindowSize:   15,
		Levels:       3,
		EigThreshold: 1e-4,
	}
}

// lucasKanade solves the brightness-constancy constraint in a local
// window around every pixel: A [u v]^T = -b with A stacking the
// spatial gradients and b the temporal difference. The 2x2 normal
// matrix is checked via its smallest eigenvalue; where it falls below
// the threshold the flow stays zero rather than amplifying noise.
func lucasKanade(ref, src *imgf.Grid, cfg FlowConfig) FlowField {
	w, h := ref.Dx(), ref.Dy()
	flow := NewFlowField(w, h)

	gx, gy, _ := ref.Sobel()
	halfWin := cfg.WindowSize / 2

	for y := halfWin; y < h-halfWin; y++ {
		for x := halfWin; x < w-halfWin; x++ {
			var axx, axy, ayy, bx, by float64
			for dy := -halfWin; dy <= halfWin; dy++ {
				for dx := -halfWin; dx <= halfWin; dx++ {
					ix := gx.Get(x+dx, y+dy)
					iy := gy.Get(x+dx, y+dy)
					it := src.Get(x+dx, y+dy) - ref.Get(x+dx, y+dy)
					axx += ix * ix
					axy += ix * iy
					ayy += iy * iy
					bx += ix * it
					by += iy * it
				}
			}

			if minEigen2x2(axx, axy, ayy) <= cfg.EigThreshold {
				continue // ill-conditioned: leave this pixel at zero
			}

			det := axx*ayy - axy*axy
			u := (-bx*ayy + by*axy) / det
			v := (-by*axx + bx*axy) / det
			flow.U.Set(x, y, u)
			flow.V.Set(x, y, v)
		}
	}
	return flow
}

// minEigen2x2 is the smallest eigenvalue of the symmetric matrix
// [[a, b], [b, c]], in closed form.
func minEigen2x2(a, b, c float64) float64 {
	tr := a + c
	det := a*c - b*b
	disc := tr*tr - 4*det
	if disc < 0 {
		disc = 0
	}
	return (tr - math.Sqrt(disc)) / 2
}

// EstimateFlow computes dense displacement from src to the reference
// coarse-to-fine: solve at the top of a blurred 2x pyramid, double and
// upsample the field, warp the source by the estimate so far, and
// solve again for the residual at each finer level. Weak-gradient
// regions end up with zero flow, the documented soft failure mode.
func EstimateFlow(src, ref *imgf.Grid, cfg FlowConfig) FlowField {
	if cfg.Levels < 1 {
		cfg.Levels = 1
	}

	refPyr := []imgf.Grid{ref.Copy()}
	srcPyr := []imgf.Grid{src.Copy()}
	for level := 1; level < cfg.Levels; level++ {
		r := refPyr[level-1].DownSample()
		s := srcPyr[level-1].DownSample()
		if r.Dx() < cfg.WindowSize || r.Dy() < cfg.WindowSize {
			break
		}
		refPyr = append(refPyr, r)
		srcPyr = append(srcPyr, s)
	}

	top := len(refPyr) - 1
	flow := lucasKanade(&refPyr[top], &srcPyr[top], cfg)

	for level := top - 1; level >= 0; level-- {
		flow = upsampleFlow(flow, refPyr[level].Dx(), refPyr[level].Dy())
		warped := Warp(&srcPyr[level], flow)
		residual := lucasKanade(&refPyr[level], &warped, cfg)
		addFlow(&flow, &residual)
	}
	return flow
}

// upsampleFlow doubles the field to the given dimensions, scaling the
// displacements by 2 to match the finer pixel grid.
func upsampleFlow(f FlowField, w, h int) FlowField {
	out := NewFlowField(w, h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			sx, sy := x/2, y/2
			if sx >= f.U.Dx() { sx = f.U.Dx() - 1 }
			if sy >= f.U.Dy() { sy = f.U.Dy() - 1 }
			out.U.Set(x, y, 2*f.U.Get(sx, sy))
			out.V.Set(x, y, 2*f.V.Get(sx, sy))
		}
	}
	return out
}

func addFlow(dst, delta *FlowField) {
	w, h := dst.U.Dx(), dst.U.Dy()
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			dst.U.Set(x, y, dst.U.Get(x, y)+delta.U.Get(x, y))
			dst.V.Set(x, y, dst.V.Get(x, y)+delta.V.Get(x, y))
		}
	}
}
