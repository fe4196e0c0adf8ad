package restore

import(
	"log"

	"github.com/skypies/util/histogram"

	"github.com/HSKayman/screen-removal/pkg/imgf"
)

// EnergyBreakdown is the high-frequency gradient energy of the three
// images the quality argument compares.
type EnergyBreakdown struct {
	Original        float64 `yaml:"original"`
	Restored        float64 `yaml:"restored"`
	LowpassBaseline float64 `yaml:"lowpassBaseline"`
}

// Metrics is the scalar quality record the pipeline ends on. Screen
// reduction is how much high-frequency energy (the mesh shows up
// there) went away; edge preservation is how much stayed. The low-pass
// baseline shows what a naive blur would have done instead.
type Metrics struct {
	ScreenReductionPercent  float64         `yaml:"screenReductionPercent"`
	EdgePreservationPercent float64         `yaml:"edgePreservationPercent"`
	HighFrequencyEnergy     EnergyBreakdown `yaml:"highFrequencyEnergy"`

	// Detected occluder period in pixels, when one stands out.
	ScreenPeriodX float64 `yaml:"screenPeriodX,omitempty"`
	ScreenPeriodY float64 `yaml:"screenPeriodY,omitempty"`
}

// computeMetrics compares gradient energy of the reference input, the
// restored result, and a gaussian low-pass of the reference.
func computeMetrics(refGray, restoredGray *imgf.Grid, lowpassSigma float64) Metrics {
	lowpass := refGray.GaussianBlur(lowpassSigma)

	hfOriginal := refGray.HighFreqEnergy()
	hfRestored := restoredGray.HighFreqEnergy()
	hfLowpass := lowpass.HighFreqEnergy()

	edgePct := 0.0
	if hfOriginal > 0 {
		edgePct = hfRestored / hfOriginal * 100.0
	}

	m := Metrics{
		ScreenReductionPercent:  100.0 - edgePct,
		EdgePreservationPercent: edgePct,
		HighFrequencyEnergy: EnergyBreakdown{
			Original:        hfOriginal,
			Restored:        hfRestored,
			LowpassBaseline: hfLowpass,
		},
	}
	if px, py, ok := DetectPeriod(refGray); ok {
		m.ScreenPeriodX = px
		m.ScreenPeriodY = py
	}

	logResidualHistogram(refGray, restoredGray)
	return m
}

// logResidualHistogram bins per-pixel |restored - reference| so the log
// shows whether the restoration changed a few pixels a lot (screen
// removal) or every pixel a little (blur).
func logResidualHistogram(ref, restored *imgf.Grid) {
	hist := histogram.Histogram{NumBuckets: 32, ValMin: 0, ValMax: 256}
	w, h := ref.Dx(), ref.Dy()
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			d := restored.Get(x, y) - ref.Get(x, y)
			if d < 0 {
				d = -d
			}
			hist.Add(histogram.ScalarVal(int(d)))
		}
	}
	log.Printf("residual |restored-ref| histogram: %v", hist)
}
