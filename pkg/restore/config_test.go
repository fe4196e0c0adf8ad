package restore

import(
	"io/ioutil"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"gopkg.in/yaml.v2"

	"github.com/HSKayman/screen-removal/pkg/imgf"
	"github.com/HSKayman/screen-removal/pkg/vision"
)

func TestConfigYamlRoundTrip(t *testing.T) {
	c := NewConfig()
	c.MotionMode = MotionDenseFlow
	c.TemporalStat = StatMean
	c.PostFilters = []string{"kuwahara", "bilateral"}
	c.Seed = 99
	c.Alignments["frame-1"] = vision.Identity()

	var back Config
	if err := yaml.Unmarshal([]byte(c.AsYaml()), &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if diff := cmp.Diff(c, back, cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("config changed over a yaml round trip (-want +got):\n%s", diff)
	}
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()

	if _, err := LoadConfig(filepath.Join(dir, "nope.yaml")); err == nil {
		t.Error("missing file did not error")
	}

	name := filepath.Join(dir, "cfg.yaml")
	body := "temporalstat: weighted-mean\nweights: [1, 2, 1]\nrefidx: 1\n"
	if err := ioutil.WriteFile(name, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}
	c, err := LoadConfig(name)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.TemporalStat != StatWeightedMean || c.RefIdx != 1 {
		t.Errorf("loaded config wrong: %+v", c)
	}
	if len(c.Weights) != 3 || c.Weights[1] != 2 {
		t.Errorf("weights wrong: %v", c.Weights)
	}
	// untouched fields keep their defaults
	if c.KuwaharaSize != 5 || c.MotionMode != MotionProjective {
		t.Errorf("defaults lost: %+v", c)
	}
}

// GetAggregator is behavioural: the selected statistic determines the
// output values.
func TestGetAggregator(t *testing.T) {
	frames := []imgf.Frame{
		uniformFrame(2, 2, 10),
		uniformFrame(2, 2, 10),
		uniformFrame(2, 2, 100),
	}

	c := NewConfig()
	c.TemporalStat = StatMedian
	out, err := c.GetAggregator()(frames)
	if err != nil {
		t.Fatal(err)
	}
	if out.R.Get(0, 0) != 10 {
		t.Errorf("median aggregator gave %f, want 10", out.R.Get(0, 0))
	}

	c.TemporalStat = StatMean
	out, err = c.GetAggregator()(frames)
	if err != nil {
		t.Fatal(err)
	}
	if out.R.Get(0, 0) != 40 {
		t.Errorf("mean aggregator gave %f, want 40", out.R.Get(0, 0))
	}

	c.TemporalStat = StatWeightedMean
	c.Weights = []float64{0, 0, 1}
	out, err = c.GetAggregator()(frames)
	if err != nil {
		t.Fatal(err)
	}
	if out.R.Get(0, 0) != 100 {
		t.Errorf("weighted aggregator gave %f, want 100", out.R.Get(0, 0))
	}

	// an empty statistic falls back to the median default
	c.TemporalStat = ""
	out, err = c.GetAggregator()(frames)
	if err != nil {
		t.Fatal(err)
	}
	if out.R.Get(0, 0) != 10 {
		t.Errorf("default aggregator gave %f, want 10", out.R.Get(0, 0))
	}
}
