package restore

import(
	"sort"

	"github.com/pkg/errors"

	"github.com/HSKayman/screen-removal/pkg/imgf"
)

// An AggregatorFunc collapses a stack of aligned frames into one,
// independently per pixel and per channel.
type AggregatorFunc func([]imgf.Frame) (imgf.Frame, error)

// AggregateMedian takes the per-pixel order-statistic median. This is
// the statistic the whole pipeline leans on: the occluder only
// vanishes where alignment is good and the occluder position differs
// across frames, and a median shrugs off the minority of pixels where
// a misaligned frame intrudes. It must stay a true median, not an
// averaged-top-K approximation.
func AggregateMedian(frames []imgf.Frame) (imgf.Frame, error) {
	if len(frames) == 0 {
		return imgf.Frame{}, errors.New("aggregate: empty frame stack")
	}
	w, h := frames[0].Dx(), frames[0].Dy()
	out := imgf.NewFrame(w, h)
	vals := make([]float64, len(frames))

	for c := 0; c < 3; c++ {
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				for i := range frames {
					vals[i] = plane(&frames[i], c).Get(x, y)
				}
				sort.Float64s(vals)
				n := len(vals)
				var m float64
				if n%2 == 1 {
					m = vals[n/2]
				} else {
					m = (vals[n/2-1] + vals[n/2]) / 2.0
				}
				plane(&out, c).Set(x, y, m)
			}
		}
	}
	return out, nil
}

// AggregateMean is the plain arithmetic per-pixel mean.
func AggregateMean(frames []imgf.Frame) (imgf.Frame, error) {
	if len(frames) == 0 {
		return imgf.Frame{}, errors.New("aggregate: empty frame stack")
	}
	weights := make([]float64, len(frames))
	for i := range weights {
		weights[i] = 1
	}
	return AggregateWeightedMean(frames, weights)
}

// AggregateWeightedMean averages under an explicit non-negative weight
// vector, renormalized to sum to 1. A weight vector of the wrong
// length or with negative entries is a boundary-contract violation.
func AggregateWeightedMean(frames []imgf.Frame, weights []float64) (imgf.Frame, error) {
	if len(frames) == 0 {
		return imgf.Frame{}, errors.New("aggregate: empty frame stack")
	}
	if len(weights) != len(frames) {
		return imgf.Frame{}, errors.Errorf("aggregate: %d weights for %d frames", len(weights), len(frames))
	}
	sum := 0.0
	for _, wt := range weights {
		if wt < 0 {
			return imgf.Frame{}, errors.Errorf("aggregate: negative weight %f", wt)
		}
		sum += wt
	}
	if sum == 0 {
		return imgf.Frame{}, errors.New("aggregate: weights sum to zero")
	}
	norm := make([]float64, len(weights))
	for i, wt := range weights {
		norm[i] = wt / sum
	}

	w, h := frames[0].Dx(), frames[0].Dy()
	out := imgf.NewFrame(w, h)
	for c := 0; c < 3; c++ {
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				acc := 0.0
				for i := range frames {
					acc += norm[i] * plane(&frames[i], c).Get(x, y)
				}
				plane(&out, c).Set(x, y, acc)
			}
		}
	}
	return out, nil
}

func plane(f *imgf.Frame, c int) *imgf.Grid {
	switch c {
	case 0:  return &f.R
	case 1:  return &f.G
	default: return &f.B
	}
}
