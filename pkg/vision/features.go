package vision

import(
	"math"
	"sort"

	"github.com/mjibson/go-dsp/fft"

	"github.com/HSKayman/screen-removal/pkg/imgf"
)

// A Match pairs a point in the source frame with its correspondence in
// the reference frame, plus the descriptor distance of the match.
type Match struct {
	SrcX, SrcY float64
	RefX, RefY float64
	Distance   float64
}

// MatchConfig carries the knobs for detection, matching and the
// screen-pattern rejection filter. Defaults follow NewMatchConfig.
type MatchConfig struct {
	MaxFeatures     int     // corner budget per frame
	MaxMatches      int     // matches kept after the ratio test
	RatioThreshold  float64 // nearest vs second-nearest acceptance ratio
	DescriptorSize  int     // square descriptor patch side, odd

	HarrisK         float64
	HarrisThreshold float64 // fraction of the max corner response
	HarrisSigma     float64 // structure tensor smoothing
	NMSRadius       int

	// Screen rejection: a patch this size around the source point is
	// discarded when its variance exceeds VarianceThreshold and its
	// strongest non-DC frequency peak exceeds PeriodicityRatio times
	// that variance. Thresholds assume the 0..255 intensity scale; an
	// IntensityScale other than 255 rescales the variance threshold by
	// (IntensityScale/255)^2.
	ScreenPatchSize    int
	VarianceThreshold  float64
	PeriodicityRatio   float64
	IntensityScale     float64
}

func NewMatchConfig() MatchConfig {
	return MatchConfig{
		MaxFeatures:       500,
		MaxMatches:        100,
		RatioThreshold:    0.75,
		DescriptorSize:    11,
		HarrisK:           0.04,
		HarrisThreshold:   0.01,
		HarrisSigma:       1.0,
		NMSRadius:         5,
		ScreenPatchSize:   9,
		VarianceThreshold: 1500,
		PeriodicityRatio:  0.5,
		IntensityScale:    255,
	}
}

type corner struct {
	x, y  int
	score float64
}

// harrisCorners detects salient points: sobel gradient products are
// smoothed into the structure tensor, the response R = det - k*tr^2 is
// thresholded against a fraction of its max, then greedy non-maximum
// suppression keeps the strongest spread-out subset.
func harrisCorners(g *imgf.Grid, cfg MatchConfig) []corner {
	gx, gy, _ := g.Sobel()
	w, h := g.Dx(), g.Dy()

	xx := imgf.NewGrid(w, h)
	yy := imgf.NewGrid(w, h)
	xy := imgf.NewGrid(w, h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			dx := gx.Get(x, y)
			dy := gy.Get(x, y)
			xx.Set(x, y, dx*dx)
			yy.Set(x, y, dy*dy)
			xy.Set(x, y, dx*dy)
		}
	}
	sxx := xx.GaussianBlur(cfg.HarrisSigma)
	syy := yy.GaussianBlur(cfg.HarrisSigma)
	sxy := xy.GaussianBlur(cfg.HarrisSigma)

	resp := imgf.NewGrid(w, h)
	maxR := -math.MaxFloat64
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			det := sxx.Get(x, y)*syy.Get(x, y) - sxy.Get(x, y)*sxy.Get(x, y)
			tr := sxx.Get(x, y) + syy.Get(x, y)
			r := det - cfg.HarrisK*tr*tr
			resp.Set(x, y, r)
			if r > maxR {
				maxR = r
			}
		}
	}
	if maxR <= 0 {
		return nil
	}

	threshold := cfg.HarrisThreshold * maxR
	cands := []corner{}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if r := resp.Get(x, y); r > threshold {
				cands = append(cands, corner{x, y, r})
			}
		}
	}
	sort.Slice(cands, func(i, j int) bool { return cands[i].score > cands[j].score })

	// Greedy NMS, strongest first
	taken := make([]bool, w*h)
	out := []corner{}
	for _, c := range cands {
		if taken[c.y*w+c.x] {
			continue
		}
		out = append(out, c)
		if len(out) >= cfg.MaxFeatures {
			break
		}
		for dy := -cfg.NMSRadius; dy <= cfg.NMSRadius; dy++ {
			for dx := -cfg.NMSRadius; dx <= cfg.NMSRadius; dx++ {
				nx, ny := c.x+dx, c.y+dy
				if nx >= 0 && nx < w && ny >= 0 && ny < h {
					taken[ny*w+nx] = true
				}
			}
		}
	}
	return out
}

// descriptor samples a normalized intensity patch around a corner.
// Mean/std normalization makes the SSD distance tolerant of the small
// brightness shifts between burst frames.
func descriptor(g *imgf.Grid, c corner, size int) []float64 {
	half := size / 2
	d := make([]float64, size*size)
	sum := 0.0
	for dy := -half; dy <= half; dy++ {
		for dx := -half; dx <= half; dx++ {
			v := g.GetReflect(c.x+dx, c.y+dy)
			d[(dy+half)*size+(dx+half)] = v
			sum += v
		}
	}
	mean := sum / float64(len(d))
	dev := 0.0
	for i := range d {
		d[i] -= mean
		dev += d[i] * d[i]
	}
	dev = math.Sqrt(dev / float64(len(d)))
	if dev < 1e-6 {
		return d // flat patch, leave unscaled
	}
	for i := range d {
		d[i] /= dev
	}
	return d
}

func ssd(a, b []float64) float64 {
	sum := 0.0
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}

// FindMatches detects keypoints in both grayscale frames, matches their
// descriptors under the two-nearest-neighbour ratio test, then strips
// matches that sit on the periodic occluder texture. Returns nil when
// fewer than 4 matches survive; callers fall back to the identity
// transform. Pure function over its inputs.
func FindMatches(src, ref *imgf.Grid, cfg MatchConfig) []Match {
	// A light blur keeps the mesh texture from dominating detection,
	// same trick the matcher plays before descriptor extraction.
	srcS := src.GaussianBlur(1.0)
	refS := ref.GaussianBlur(1.0)

	srcCorners := harrisCorners(&srcS, cfg)
	refCorners := harrisCorners(&refS, cfg)
	if len(srcCorners) < 4 || len(refCorners) < 4 {
		return nil
	}

	refDescs := make([][]float64, len(refCorners))
	for i, c := range refCorners {
		refDescs[i] = descriptor(&refS, c, cfg.DescriptorSize)
	}

	matches := []Match{}
	for _, sc := range srcCorners {
		sd := descriptor(&srcS, sc, cfg.DescriptorSize)

		best, second := math.MaxFloat64, math.MaxFloat64
		bestIdx := -1
		for j := range refDescs {
			d := ssd(sd, refDescs[j])
			if d < best {
				second = best
				best = d
				bestIdx = j
			} else if d < second {
				second = d
			}
		}
		// Ratio test: ambiguous matches are the norm on a repeating
		// texture, and this is what rejects them.
		if bestIdx < 0 || best >= cfg.RatioThreshold*cfg.RatioThreshold*second {
			continue
		}
		rc := refCorners[bestIdx]
		matches = append(matches, Match{
			SrcX: float64(sc.x), SrcY: float64(sc.y),
			RefX: float64(rc.x), RefY: float64(rc.y),
			Distance: best,
		})
	}

	sort.Slice(matches, func(i, j int) bool { return matches[i].Distance < matches[j].Distance })
	if len(matches) > cfg.MaxMatches {
		matches = matches[:cfg.MaxMatches]
	}

	kept := matches[:0]
	for _, m := range matches {
		if !onScreenPattern(src, int(m.SrcX), int(m.SrcY), cfg) {
			kept = append(kept, m)
		}
	}

	if len(kept) < 4 {
		return nil
	}
	return kept
}

// onScreenPattern is the screen-pattern rejection rule: high local
// variance together with a strong non-DC frequency peak marks a patch
// as periodic occluder rather than scene structure. The thresholds are
// deliberate verbatim constants; they are load-bearing for periodic
// textures around a 4..8 px mesh pitch.
func onScreenPattern(g *imgf.Grid, x, y int, cfg MatchConfig) bool {
	size := cfg.ScreenPatchSize
	half := size / 2
	// Too close to the border to test; keep the match.
	if x < half || x >= g.Dx()-half || y < half || y >= g.Dy()-half {
		return false
	}

	patch := g.Region(x-half, y-half, size, size)

	scale := cfg.IntensityScale / 255.0
	varThreshold := cfg.VarianceThreshold * scale * scale
	localVar := patch.Variance()
	if localVar <= varThreshold {
		return false
	}

	spectrum := fft.FFT2Real(patch.Rows())
	maxMag := 0.0
	for i := range spectrum {
		for j := range spectrum[i] {
			if i == 0 && j == 0 {
				continue // DC carries the patch mean, not periodicity
			}
			if m := cmplxAbs(spectrum[i][j]); m > maxMag {
				maxMag = m
			}
		}
	}
	return maxMag > localVar*cfg.PeriodicityRatio
}

func cmplxAbs(c complex128) float64 {
	return math.Hypot(real(c), imag(c))
}
