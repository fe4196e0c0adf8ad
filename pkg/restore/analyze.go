package restore

import(
	"math"

	"github.com/mjibson/go-dsp/fft"

	"github.com/HSKayman/screen-removal/pkg/imgf"
)

const (
	minScreenPeriod = 3
	maxScreenPeriod = 30
)

// DetectPeriod looks for a dominant repeating pattern along each axis:
// take the 2D FFT, zero out DC and its immediate neighbourhood, and
// scan the pure-horizontal and pure-vertical frequency bins covering
// periods of 3..30 px. A peak more than 5x the mean spectrum magnitude
// reads as a screen pitch. Returns (periodX, periodY, found); an axis
// without a peak reports 0.
func DetectPeriod(g *imgf.Grid) (float64, float64, bool) {
	w, h := g.Dx(), g.Dy()
	if w < 2*maxScreenPeriod || h < 2*maxScreenPeriod {
		return 0, 0, false
	}

	spectrum := fft.FFT2Real(g.Rows())
	mag := make([][]float64, h)
	total, count := 0.0, 0
	for y := 0; y < h; y++ {
		mag[y] = make([]float64, w)
		for x := 0; x < w; x++ {
			m := math.Hypot(real(spectrum[y][x]), imag(spectrum[y][x]))
			mag[y][x] = m
			total += m
			count++
		}
	}
	// zero DC and the low-frequency bins right next to it
	for y := 0; y < 3 && y < h; y++ {
		for x := 0; x < 3 && x < w; x++ {
			total -= mag[y][x]
			mag[y][x] = 0
			total -= mag[h-1-y][x]
			mag[h-1-y][x] = 0
			total -= mag[y][w-1-x]
			mag[y][w-1-x] = 0
		}
	}
	mean := total / float64(count)
	if mean <= 0 {
		return 0, 0, false
	}

	// horizontal pattern: scan the DC row across usable x frequencies
	periodX := scanAxis(func(i int) float64 { return mag[0][i] }, w, mean)
	// vertical pattern: scan the DC column
	periodY := scanAxis(func(i int) float64 { return mag[i][0] }, h, mean)

	return periodX, periodY, periodX > 0 || periodY > 0
}

// scanAxis finds the strongest bin in the frequency range matching
// periods of minScreenPeriod..maxScreenPeriod samples, and converts it
// back to a period. Returns 0 when nothing clears 5x the mean.
func scanAxis(at func(int) float64, n int, mean float64) float64 {
	lo := n / maxScreenPeriod
	hi := n / minScreenPeriod
	if lo < 1 {
		lo = 1
	}
	if hi > n/2 {
		hi = n / 2
	}

	bestIdx, bestMag := 0, 0.0
	for i := lo; i <= hi; i++ {
		if m := at(i); m > bestMag {
			bestMag = m
			bestIdx = i
		}
	}
	if bestIdx == 0 || bestMag <= mean*5 {
		return 0
	}
	return float64(n) / float64(bestIdx)
}
