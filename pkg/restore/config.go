// Package restore assembles the restoration pipeline: temporal
// aggregation of aligned frames, edge-aware spatial post filters, the
// stage-by-stage orchestration and the quality metrics.
package restore

import(
	"io/ioutil"
	"log"

	"gopkg.in/yaml.v2"

	"github.com/HSKayman/screen-removal/pkg/imgf"
	"github.com/HSKayman/screen-removal/pkg/vision"
)

// Motion estimation modes.
const (
	MotionProjective = "projective"
	MotionDenseFlow  = "dense-flow"
)

// Temporal statistics.
const (
	StatMedian       = "median"
	StatMean         = "mean"
	StatWeightedMean = "weighted-mean"
)

type Config struct {
	RefIdx       int
	MotionMode   string   // "projective" or "dense-flow"
	TemporalStat string   // "median", "mean" or "weighted-mean"
	Weights      []float64 // weighted-mean only; non-negative, renormalized

	PostFilters     []string // applied in order: "kuwahara", "bilateral", "median"
	Sharpen         bool
	SharpenSigma    float64
	SharpenStrength float64

	Match  vision.MatchConfig
	Ransac vision.RansacConfig
	Flow   vision.FlowConfig

	KuwaharaSize        int
	BilateralDiameter   int
	BilateralSigmaColor float64
	BilateralSigmaSpace float64
	MedianSize          int

	LowpassSigma float64 // the naive baseline the metric compares against

	Seed    int64
	Workers int // 0 means one worker per CPU

	// Fitted homographies keyed by frame index, so a slow projective
	// fit can be persisted to the config file and replayed.
	Alignments map[string]vision.Homography
}

func NewConfig() Config {
	return Config{
		RefIdx:              0,
		MotionMode:          MotionProjective,
		TemporalStat:        StatMedian,
		PostFilters:         []string{},
		Sharpen:             false,
		SharpenSigma:        1.0,
		SharpenStrength:     0.8,
		Match:               vision.NewMatchConfig(),
		Ransac:              vision.NewRansacConfig(),
		Flow:                vision.NewFlowConfig(),
		KuwaharaSize:        5,
		BilateralDiameter:   9,
		BilateralSigmaColor: 75,
		BilateralSigmaSpace: 75,
		MedianSize:          3,
		LowpassSigma:        3.0,
		Seed:                1,
		Alignments:          map[string]vision.Homography{},
	}
}

func LoadConfig(filename string) (Config, error) {
	c := NewConfig()
	b, err := ioutil.ReadFile(filename)
	if err != nil {
		return c, err
	}
	err = yaml.Unmarshal(b, &c)
	return c, err
}

func (c Config)AsYaml() string {
	b, err := yaml.Marshal(c)
	if err != nil {
		log.Fatalf("can't marshal config yaml: %v", err)
	}
	return string(b)
}

// GetAggregator resolves the configured temporal statistic to its
// implementation. Unknown names are fatal misconfiguration.
func (c Config)GetAggregator() AggregatorFunc {
	switch c.TemporalStat {
	case StatMedian, "": return AggregateMedian
	case StatMean:       return AggregateMean
	case StatWeightedMean:
		weights := c.Weights
		return func(frames []imgf.Frame) (imgf.Frame, error) {
			return AggregateWeightedMean(frames, weights)
		}
	default:
		log.Fatalf("no temporal statistic named '%s'", c.TemporalStat)
		return nil
	}
}
