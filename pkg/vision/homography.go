package vision

import(
	"fmt"
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// A Homography is a row-major 3x3 projective matrix on homogeneous
// pixel coordinates. After fitting, the bottom-right entry is 1.
type Homography [9]float64

func Identity() Homography {
	return Homography{1, 0, 0, 0, 1, 0, 0, 0, 1}
}

func (h Homography)IsIdentity() bool {
	return h == Identity()
}

// Apply maps (x,y) through the matrix, dividing out the homogeneous
// coordinate.
func (h Homography)Apply(x, y float64) (float64, float64) {
	w := h[6]*x + h[7]*y + h[8]
	if w == 0 {
		w = 1e-12
	}
	return (h[0]*x + h[1]*y + h[2]) / w, (h[3]*x + h[4]*y + h[5]) / w
}

func (a Homography)Mul(b Homography) Homography {
	var c Homography
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			c[3*i+j] = a[3*i+0]*b[3*0+j] + a[3*i+1]*b[3*1+j] + a[3*i+2]*b[3*2+j]
		}
	}
	return c
}

func (h Homography)Det() float64 {
	return h[0]*(h[4]*h[8]-h[5]*h[7]) -
		h[1]*(h[3]*h[8]-h[5]*h[6]) +
		h[2]*(h[3]*h[7]-h[4]*h[6])
}

// Invert returns the inverse matrix, via the adjugate. Fails on a
// numerically singular matrix.
func (h Homography)Invert() (Homography, error) {
	det := h.Det()
	if math.Abs(det) < 1e-12 {
		return Identity(), errors.New("homography is singular")
	}
	adj := Homography{
		h[4]*h[8] - h[5]*h[7], h[2]*h[7] - h[1]*h[8], h[1]*h[5] - h[2]*h[4],
		h[5]*h[6] - h[3]*h[8], h[0]*h[8] - h[2]*h[6], h[2]*h[3] - h[0]*h[5],
		h[3]*h[7] - h[4]*h[6], h[1]*h[6] - h[0]*h[7], h[0]*h[4] - h[1]*h[3],
	}
	for i := range adj {
		adj[i] /= det
	}
	return adj.normalized(), nil
}

func (h Homography)normalized() Homography {
	if h[8] == 0 {
		return h
	}
	for i := range h {
		h[i] /= h[8]
	}
	return h
}

func (h Homography)String() string {
	str := ""
	for i := 0; i < 3; i++ {
		str += fmt.Sprintf("[%10.5f, %10.5f, %10.5f]\n", h[3*i], h[3*i+1], h[3*i+2])
	}
	return str
}

// hartleyNorm computes the similarity transform that moves a point set
// to centroid zero with average spread sqrt(2), the standard
// conditioning step before a DLT solve.
func hartleyNorm(xs, ys []float64) Homography {
	n := float64(len(xs))
	cx, cy := 0.0, 0.0
	for i := range xs {
		cx += xs[i]
		cy += ys[i]
	}
	cx /= n
	cy /= n

	dev := 0.0
	for i := range xs {
		dx := xs[i] - cx
		dy := ys[i] - cy
		dev += dx*dx + dy*dy
	}
	dev = math.Sqrt(dev / n)
	if dev < 1e-12 {
		dev = 1e-12
	}
	s := math.Sqrt2 / dev

	return Homography{
		s, 0, -s * cx,
		0, s, -s * cy,
		0, 0, 1,
	}
}

// fitDLT fits the projective transform taking source points onto
// reference points by homogeneous least squares: build the 2n x 9
// design matrix, take the right-singular vector of the smallest
// singular value, then undo the point normalization.
func fitDLT(matches []Match) (Homography, error) {
	n := len(matches)
	if n < 4 {
		return Identity(), errors.Errorf("need 4 matches to fit, have %d", n)
	}

	sx := make([]float64, n)
	sy := make([]float64, n)
	rx := make([]float64, n)
	ry := make([]float64, n)
	for i, m := range matches {
		sx[i], sy[i] = m.SrcX, m.SrcY
		rx[i], ry[i] = m.RefX, m.RefY
	}
	tSrc := hartleyNorm(sx, sy)
	tRef := hartleyNorm(rx, ry)

	a := mat.NewDense(2*n, 9, nil)
	for i := 0; i < n; i++ {
		x, y := tSrc.Apply(sx[i], sy[i])
		xp, yp := tRef.Apply(rx[i], ry[i])
		a.SetRow(2*i, []float64{-x, -y, -1, 0, 0, 0, x * xp, y * xp, xp})
		a.SetRow(2*i+1, []float64{0, 0, 0, -x, -y, -1, x * yp, y * yp, yp})
	}

	var svd mat.SVD
	// Full SVD: with exactly 4 matches the design matrix is 8x9 and the
	// null-space vector only appears in the full V.
	if !svd.Factorize(a, mat.SVDFullV) {
		return Identity(), errors.New("SVD of DLT design matrix failed")
	}
	var v mat.Dense
	svd.VTo(&v)

	var hn Homography
	for i := 0; i < 9; i++ {
		hn[i] = v.At(i, 8)
	}

	// Denormalize: H = Tref^-1 * Hn * Tsrc
	tRefInv, err := tRef.Invert()
	if err != nil {
		return Identity(), errors.Wrap(err, "denormalizing DLT solution")
	}
	// Reject before normalizing: scaling by a near-zero h22 would just
	// blow the matrix up rather than flag it.
	raw := tRefInv.Mul(hn).Mul(tSrc)
	if math.Abs(raw[8]) < 1e-12 || math.IsNaN(raw[0]) {
		return Identity(), errors.New("DLT produced a degenerate solution")
	}
	return raw.normalized(), nil
}
