package restore

import(
	"fmt"
	"log"
	"math/rand"
	"runtime"
	"sync"

	"github.com/pkg/errors"

	"github.com/HSKayman/screen-removal/pkg/imgf"
	"github.com/HSKayman/screen-removal/pkg/vision"
)

// Pipeline stages, forward-only.
type Stage int

const (
	Loaded Stage = iota
	MotionEstimated
	Aligned
	Aggregated
	PostProcessed
	Evaluated
)

func (s Stage)String() string {
	switch s {
	case Loaded:          return "Loaded"
	case MotionEstimated: return "MotionEstimated"
	case Aligned:         return "Aligned"
	case Aggregated:      return "Aggregated"
	case PostProcessed:   return "PostProcessed"
	case Evaluated:       return "Evaluated"
	}
	return fmt.Sprintf("Stage(%d)", int(s))
}

// A Context is the pipeline state threaded through the stages. Each
// stage consumes a Context and returns a new one; nothing here is
// mutated after a stage hands it on, which is what makes the stages
// individually testable.
type Context struct {
	Cfg    Config
	Stage  Stage

	Frames []imgf.Frame // the input burst, never modified
	Gray   []imgf.Grid  // NTSC luminance of each frame

	Transforms []vision.Transform // per frame, into ref coordinates
	AlignedTo  []imgf.Frame       // all frames in ref coordinates
	Restored   imgf.Frame
	Metrics    Metrics
}

// NewPipeline validates the burst and builds the Loaded context. This
// is the only place the pipeline can fail hard: shape mismatches,
// empty input or non-finite samples mean there is nothing sensible to
// output. Everything after degrades softly instead.
func NewPipeline(frames []imgf.Frame, cfg Config) (Context, error) {
	if err := imgf.CheckStack(frames, cfg.RefIdx); err != nil {
		return Context{}, errors.Wrap(err, "invalid input")
	}
	gray := make([]imgf.Grid, len(frames))
	for i := range frames {
		gray[i] = frames[i].Gray()
	}
	return Context{
		Cfg:    cfg,
		Stage:  Loaded,
		Frames: frames,
		Gray:   gray,
	}, nil
}

func (c Context)expectStage(want Stage) error {
	if c.Stage != want {
		return errors.Errorf("pipeline is %v, stage needs %v", c.Stage, want)
	}
	return nil
}

func (c Context)workers() int {
	n := c.Cfg.Workers
	if n <= 0 {
		n = runtime.NumCPU()
	}
	if n > len(c.Frames) {
		n = len(c.Frames)
	}
	if n < 1 {
		n = 1
	}
	return n
}

// forEachFrame fans fn out over the frame indices on a bounded worker
// pool. Each call owns its own output slot, so no shared state is
// written concurrently.
func (c Context)forEachFrame(fn func(i int)) {
	sem := make(chan struct{}, c.workers())
	var wg sync.WaitGroup
	for i := range c.Frames {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int) {
			defer wg.Done()
			defer func() { <-sem }()
			fn(i)
		}(i)
	}
	wg.Wait()
}

// EstimateMotion fits one transform per non-reference frame, into the
// reference frame's coordinate system. Projective mode matches
// features and runs RANSAC; too few usable matches means that frame
// falls back to the identity transform and the pipeline carries on.
// Dense mode runs pyramidal Lucas-Kanade. Frames are independent and
// processed in parallel; each gets its own seeded random source so the
// result does not depend on scheduling.
func (c Context)EstimateMotion() (Context, error) {
	if err := c.expectStage(Loaded); err != nil {
		return c, err
	}
	transforms := make([]vision.Transform, len(c.Frames))
	ref := &c.Gray[c.Cfg.RefIdx]

	c.forEachFrame(func(i int) {
		if i == c.Cfg.RefIdx {
			transforms[i] = vision.Identity()
			return
		}

		switch c.Cfg.MotionMode {
		case MotionDenseFlow:
			flow := vision.EstimateFlow(&c.Gray[i], ref, c.Cfg.Flow)
			log.Printf("frame %d: flow mean magnitude %.4f", i, flow.MeanMagnitude())
			transforms[i] = flow

		default: // projective
			key := fmt.Sprintf("frame-%d", i)
			if h, exists := c.Cfg.Alignments[key]; exists {
				log.Printf("frame %d: using cached homography", i)
				transforms[i] = h
				return
			}
			matches := vision.FindMatches(&c.Gray[i], ref, c.Cfg.Match)
			if matches == nil {
				log.Printf("frame %d: not enough matches, using identity", i)
				transforms[i] = vision.Identity()
				return
			}
			rng := rand.New(rand.NewSource(c.Cfg.Seed + int64(i)))
			h, inliers := vision.EstimateHomography(matches, c.Cfg.Ransac, rng)
			n := 0
			for _, ok := range inliers {
				if ok {
					n++
				}
			}
			log.Printf("frame %d: %d matches, %d inliers, det %.4f", i, len(matches), n, h.Det())
			transforms[i] = h
		}
	})

	c.Transforms = transforms
	c.Stage = MotionEstimated
	return c, nil
}

// Align warps every frame into the reference coordinate system. The
// reference frame passes through unchanged.
func (c Context)Align() (Context, error) {
	if err := c.expectStage(MotionEstimated); err != nil {
		return c, err
	}
	aligned := make([]imgf.Frame, len(c.Frames))

	c.forEachFrame(func(i int) {
		switch t := c.Transforms[i].(type) {
		case vision.Homography:
			aligned[i] = vision.WarpFrameHomography(&c.Frames[i], t)
		default:
			aligned[i] = vision.WarpFrame(&c.Frames[i], t)
		}
	})

	c.AlignedTo = aligned
	c.Stage = Aligned
	return c, nil
}

// Aggregate collapses the aligned stack with the configured temporal
// statistic (median by default).
func (c Context)Aggregate() (Context, error) {
	if err := c.expectStage(Aligned); err != nil {
		return c, err
	}
	restored, err := c.Cfg.GetAggregator()(c.AlignedTo)
	if err != nil {
		return c, errors.Wrap(err, "temporal aggregation")
	}
	c.Restored = restored
	c.Stage = Aggregated
	return c, nil
}

// PostProcess runs the configured spatial filters over the aggregated
// frame: optional unsharp mask first, then the filter chain in order.
// Unknown filter names are skipped with a warning rather than
// aborting; a best-effort image beats no image.
func (c Context)PostProcess() (Context, error) {
	if err := c.expectStage(Aggregated); err != nil {
		return c, err
	}
	out := c.Restored
	cfg := c.Cfg

	if cfg.Sharpen {
		out = ApplyToFrame(&out, func(g *imgf.Grid) imgf.Grid {
			return UnsharpMask(g, cfg.SharpenSigma, cfg.SharpenStrength)
		})
	}

	for _, name := range cfg.PostFilters {
		switch name {
		case "kuwahara":
			out = ApplyToFrame(&out, func(g *imgf.Grid) imgf.Grid {
				return Kuwahara(g, cfg.KuwaharaSize)
			})
		case "bilateral":
			out = ApplyToFrame(&out, func(g *imgf.Grid) imgf.Grid {
				return Bilateral(g, cfg.BilateralDiameter, cfg.BilateralSigmaColor, cfg.BilateralSigmaSpace)
			})
		case "median":
			out = ApplyToFrame(&out, func(g *imgf.Grid) imgf.Grid {
				return MedianFilter(g, cfg.MedianSize)
			})
		case "":
			// nothing
		default:
			log.Printf("no post filter named '%s', skipping", name)
		}
	}

	c.Restored = out
	c.Stage = PostProcessed
	return c, nil
}

// Evaluate computes the screen-reduction metrics against the reference
// frame and a naive low-pass baseline, reaching the terminal state.
func (c Context)Evaluate() (Context, error) {
	if err := c.expectStage(PostProcessed); err != nil {
		return c, err
	}
	restoredGray := c.Restored.Gray()
	c.Metrics = computeMetrics(&c.Gray[c.Cfg.RefIdx], &restoredGray, c.Cfg.LowpassSigma)
	c.Stage = Evaluated
	return c, nil
}

// Run chains all stages: Loaded -> MotionEstimated -> Aligned ->
// Aggregated -> PostProcessed -> Evaluated.
func Run(frames []imgf.Frame, cfg Config) (Context, error) {
	c, err := NewPipeline(frames, cfg)
	if err != nil {
		return c, err
	}
	for _, step := range []func(Context) (Context, error){
		Context.EstimateMotion,
		Context.Align,
		Context.Aggregate,
		Context.PostProcess,
		Context.Evaluate,
	} {
		if c, err = step(c); err != nil {
			return c, err
		}
	}
	return c, nil
}

// SaveAlignments copies fitted homographies into the config's cache
// map, so a config file round-trip can replay them.
func (c Context)SaveAlignments() map[string]vision.Homography {
	out := map[string]vision.Homography{}
	for i, t := range c.Transforms {
		if h, ok := t.(vision.Homography); ok && i != c.Cfg.RefIdx {
			out[fmt.Sprintf("frame-%d", i)] = h
		}
	}
	return out
}
