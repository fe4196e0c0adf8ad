package restore

import(
	"math"
	"testing"

	"github.com/HSKayman/screen-removal/pkg/imgf"
)

func uniformFrame(w, h int, v float64) imgf.Frame {
	f := imgf.NewFrame(w, h)
	f.R.Fill(v)
	f.G.Fill(v)
	f.B.Fill(v)
	return f
}

// With 7 frames and an occluder block intruding on only 2 of them, the
// median must reproduce the clean value exactly. This is the robustness
// property the mean does not have.
func TestMedianRejectsMinorityOccluder(t *testing.T) {
	frames := make([]imgf.Frame, 7)
	for i := range frames {
		frames[i] = uniformFrame(8, 8, 100)
	}
	for _, i := range []int{2, 5} {
		for y := 2; y < 6; y++ {
			for x := 2; x < 6; x++ {
				frames[i].R.Set(x, y, 255)
				frames[i].G.Set(x, y, 255)
				frames[i].B.Set(x, y, 255)
			}
		}
	}

	med, err := AggregateMedian(frames)
	if err != nil {
		t.Fatalf("median: %v", err)
	}
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			if med.R.Get(x, y) != 100 {
				t.Fatalf("median at (%d,%d) = %f, want exactly 100", x, y, med.R.Get(x, y))
			}
		}
	}

	mean, err := AggregateMean(frames)
	if err != nil {
		t.Fatalf("mean: %v", err)
	}
	want := (5*100.0 + 2*255.0) / 7.0
	if math.Abs(mean.G.Get(3, 3)-want) > 1e-9 {
		t.Errorf("mean at block = %f, want %f", mean.G.Get(3, 3), want)
	}
}

// Even frame counts average the two central order statistics.
func TestMedianEvenCount(t *testing.T) {
	frames := []imgf.Frame{
		uniformFrame(2, 2, 10),
		uniformFrame(2, 2, 20),
		uniformFrame(2, 2, 90),
		uniformFrame(2, 2, 40),
	}
	med, err := AggregateMedian(frames)
	if err != nil {
		t.Fatalf("median: %v", err)
	}
	if med.B.Get(1, 1) != 30 {
		t.Errorf("even-count median = %f, want 30", med.B.Get(1, 1))
	}
}

func TestWeightedMean(t *testing.T) {
	frames := []imgf.Frame{
		uniformFrame(2, 2, 0),
		uniformFrame(2, 2, 100),
	}

	out, err := AggregateWeightedMean(frames, []float64{1, 3})
	if err != nil {
		t.Fatalf("weighted mean: %v", err)
	}
	if math.Abs(out.R.Get(0, 0)-75) > 1e-9 {
		t.Errorf("weighted mean = %f, want 75", out.R.Get(0, 0))
	}

	// weights renormalize, so scaling them must not change the result
	out2, err := AggregateWeightedMean(frames, []float64{10, 30})
	if err != nil {
		t.Fatalf("scaled weights: %v", err)
	}
	if out2.R.Get(0, 0) != out.R.Get(0, 0) {
		t.Error("weight scaling changed the result")
	}
}

func TestWeightedMeanContract(t *testing.T) {
	frames := []imgf.Frame{uniformFrame(2, 2, 1), uniformFrame(2, 2, 2)}

	if _, err := AggregateWeightedMean(frames, []float64{1}); err == nil {
		t.Error("length mismatch accepted")
	}
	if _, err := AggregateWeightedMean(frames, []float64{1, -0.5}); err == nil {
		t.Error("negative weight accepted")
	}
	if _, err := AggregateWeightedMean(frames, []float64{0, 0}); err == nil {
		t.Error("all-zero weights accepted")
	}
	if _, err := AggregateMedian(nil); err == nil {
		t.Error("empty stack accepted")
	}
}
