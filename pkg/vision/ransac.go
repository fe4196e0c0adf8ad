package vision

import(
	"log"
	"math"
	"math/rand"
)

// RansacConfig carries the robust-fit parameters. Defaults follow
// NewRansacConfig.
type RansacConfig struct {
	Iterations      int
	InlierThreshold float64 // max reprojection error, in pixels
	MinInliers      int
}

func NewRansacConfig() RansacConfig {
	return RansacConfig{
		Iterations:      1000,
		InlierThreshold: 5.0,
		MinInliers:      4,
	}
}

// EstimateHomography runs RANSAC over the matches: sample 4, fit by
// DLT, count matches reprojecting within the threshold. The candidate
// with the most inliers wins (strictly-greater comparison, so ties go
// to the earliest iteration and a fixed rng gives a fixed answer), and
// gets refit on all of its inliers. When no candidate reaches
// MinInliers the identity transform and an empty inlier set come back;
// that is a soft failure, not an error.
func EstimateHomography(matches []Match, cfg RansacConfig, rng *rand.Rand) (Homography, []bool) {
	n := len(matches)
	noInliers := make([]bool, n)
	if n < 4 {
		return Identity(), noInliers
	}

	bestH := Identity()
	bestInliers := noInliers
	bestCount := 0

	sample := make([]Match, 4)
	for iter := 0; iter < cfg.Iterations; iter++ {
		idx := rng.Perm(n)[:4]
		for i, j := range idx {
			sample[i] = matches[j]
		}
		if degenerateSample(sample) {
			continue // near-collinear, resample
		}

		h, err := fitDLT(sample)
		if err != nil {
			continue
		}

		inliers := make([]bool, n)
		count := 0
		for i, m := range matches {
			px, py := h.Apply(m.SrcX, m.SrcY)
			if math.Hypot(px-m.RefX, py-m.RefY) < cfg.InlierThreshold {
				inliers[i] = true
				count++
			}
		}
		if count > bestCount {
			bestCount = count
			bestInliers = inliers
			bestH = h
		}
	}

	if bestCount < cfg.MinInliers {
		log.Printf("ransac: best candidate has %d inliers (< %d), falling back to identity", bestCount, cfg.MinInliers)
		return Identity(), noInliers
	}

	// Final refit over the whole consensus set, for a lower-variance
	// estimate than any 4-point fit.
	consensus := make([]Match, 0, bestCount)
	for i, ok := range bestInliers {
		if ok {
			consensus = append(consensus, matches[i])
		}
	}
	if refit, err := fitDLT(consensus); err == nil {
		bestH = refit
	}
	return bestH, bestInliers
}

// degenerateSample reports whether any three of the four sampled
// correspondences are near collinear, on either side of the match. A
// DLT on such a sample is numerically meaningless.
func degenerateSample(sample []Match) bool {
	for i := 0; i < len(sample); i++ {
		for j := i + 1; j < len(sample); j++ {
			for k := j + 1; k < len(sample); k++ {
				if triangleArea(sample[i].SrcX, sample[i].SrcY, sample[j].SrcX, sample[j].SrcY, sample[k].SrcX, sample[k].SrcY) < 1e-6 {
					return true
				}
				if triangleArea(sample[i].RefX, sample[i].RefY, sample[j].RefX, sample[j].RefY, sample[k].RefX, sample[k].RefY) < 1e-6 {
					return true
				}
			}
		}
	}
	return false
}

func triangleArea(x0, y0, x1, y1, x2, y2 float64) float64 {
	return 0.5 * math.Abs((x1-x0)*(y2-y0)-(x2-x0)*(y1-y0))
}
