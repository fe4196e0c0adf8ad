// screenrestore removes a repeating occluder (a window screen, a mesh)
// from a short burst of frames, by aligning the frames against a
// reference and taking a robust temporal statistic per pixel.
//
// Usage:
//   screenrestore [flags] frame1.png frame2.png ...
//   screenrestore [flags] framesdir/
package main

import(
	"flag"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io/ioutil"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/image/tiff"
	"gopkg.in/yaml.v2"

	"github.com/HSKayman/screen-removal/pkg/imgf"
	"github.com/HSKayman/screen-removal/pkg/restore"
	"github.com/HSKayman/screen-removal/pkg/vision"
)

var(
	fOutputFilename  string
	fConfigFilename  string
	fMetricsFilename string
	fFlowVizFilename string
	fRefIdx          int
	fMotionMode      string
	fTemporalStat    string
	fPostFilters     string
	fSharpen         bool
	fSharpenStrength float64
	fSeed            int64
	fWorkers         int
	fSaveAlignments  bool
)

func init() {
	flag.StringVar(&fOutputFilename, "o", "restored.png", "name of output image file")
	flag.StringVar(&fConfigFilename, "config", "", "optional YAML config file")
	flag.StringVar(&fMetricsFilename, "metrics", "metrics.yaml", "where to write the metrics record ('' to skip)")
	flag.StringVar(&fFlowVizFilename, "flowviz", "", "write a flow visualization here (dense-flow mode)")
	flag.IntVar(&fRefIdx, "ref", 0, "index of the reference frame")
	flag.StringVar(&fMotionMode, "motion", restore.MotionProjective, "motion estimation: projective or dense-flow")
	flag.StringVar(&fTemporalStat, "temporal", restore.StatMedian, "temporal statistic: median, mean or weighted-mean")
	flag.StringVar(&fPostFilters, "post", "", "comma list of post filters: kuwahara, bilateral, median")
	flag.BoolVar(&fSharpen, "sharpen", false, "apply an unsharp mask before the post filters")
	flag.Float64Var(&fSharpenStrength, "sharpenstrength", 0.8, "unsharp mask strength")
	flag.Int64Var(&fSeed, "seed", 1, "seed for the RANSAC random source")
	flag.IntVar(&fWorkers, "workers", 0, "per-frame workers (0 = one per CPU)")
	flag.BoolVar(&fSaveAlignments, "savealignments", false, "write fitted homographies back into the config file")
}

// overrideConfig applies only the flags actually given on the command
// line, so config file values survive unless overridden.
func overrideConfig(cfg restore.Config) restore.Config {
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "ref":             cfg.RefIdx = fRefIdx
		case "motion":          cfg.MotionMode = fMotionMode
		case "temporal":        cfg.TemporalStat = fTemporalStat
		case "post":            cfg.PostFilters = strings.Split(fPostFilters, ",")
		case "sharpen":         cfg.Sharpen = fSharpen
		case "sharpenstrength": cfg.SharpenStrength = fSharpenStrength
		case "seed":            cfg.Seed = fSeed
		case "workers":         cfg.Workers = fWorkers
		}
	})
	return cfg
}

func main() {
	flag.Parse()
	log.Printf("Starting\n")

	cfg := restore.NewConfig()
	if fConfigFilename != "" {
		var err error
		if cfg, err = restore.LoadConfig(fConfigFilename); err != nil {
			log.Fatalf("config %s: %v", fConfigFilename, err)
		}
	}
	cfg = overrideConfig(cfg)

	frames, err := loadFrames(flag.Args())
	if err != nil {
		log.Fatal(err)
	}
	log.Printf("Loaded %d frames", len(frames))

	c, err := restore.Run(frames, cfg)
	if err != nil {
		log.Fatalf("pipeline: %v", err)
	}

	if err := writePNG(c.Restored.ToImage(), fOutputFilename); err != nil {
		log.Fatalf("write %s: %v", fOutputFilename, err)
	}
	log.Printf("Restored image written '%s'", fOutputFilename)

	if fFlowVizFilename != "" {
		writeFlowViz(c)
	}

	if fMetricsFilename != "" {
		b, _ := yaml.Marshal(c.Metrics)
		if err := ioutil.WriteFile(fMetricsFilename, b, 0644); err != nil {
			log.Fatalf("write %s: %v", fMetricsFilename, err)
		}
	}

	if fSaveAlignments && fConfigFilename != "" {
		cfg.Alignments = c.SaveAlignments()
		if err := ioutil.WriteFile(fConfigFilename, []byte(cfg.AsYaml()), 0644); err != nil {
			log.Fatalf("write %s: %v", fConfigFilename, err)
		}
		log.Printf("Alignments saved to '%s'", fConfigFilename)
	}

	log.Printf("screen reduction %.1f%%, edge preservation %.1f%%",
		c.Metrics.ScreenReductionPercent, c.Metrics.EdgePreservationPercent)
}

// loadFrames reads each arg; a directory loads its image files in
// name order.
func loadFrames(args []string) ([]imgf.Frame, error) {
	if len(args) == 0 {
		return nil, fmt.Errorf("no input frames given")
	}
	names := []string{}
	for _, arg := range args {
		item, err := os.Stat(arg)
		switch {
		case err != nil:
			return nil, fmt.Errorf("load %s: %v", arg, err)
		case item.IsDir():
			contents, err := ioutil.ReadDir(arg)
			if err != nil {
				return nil, fmt.Errorf("readdir %s: %v", arg, err)
			}
			for _, content := range contents {
				if isImageFile(content.Name()) {
					names = append(names, filepath.Join(arg, content.Name()))
				}
			}
		default:
			names = append(names, arg)
		}
	}
	sort.Strings(names)

	frames := make([]imgf.Frame, 0, len(names))
	for _, name := range names {
		img, err := loadImage(name)
		if err != nil {
			return nil, err
		}
		frames = append(frames, imgf.FromImage(img))
	}
	return frames, nil
}

func isImageFile(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".png", ".jpg", ".jpeg", ".tif", ".tiff":
		return true
	}
	return false
}

func loadImage(filename string) (image.Image, error) {
	reader, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("open %s: %v", filename, err)
	}
	defer reader.Close()

	switch strings.ToLower(filepath.Ext(filename)) {
	case ".tif", ".tiff":
		return tiff.Decode(reader)
	case ".jpg", ".jpeg":
		return jpeg.Decode(reader)
	default:
		return png.Decode(reader)
	}
}

func writePNG(img image.Image, filename string) error {
	writer, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer writer.Close()
	return png.Encode(writer, img)
}

func writeFlowViz(c restore.Context) {
	for i, t := range c.Transforms {
		flow, ok := t.(vision.FlowField)
		if !ok || i == c.Cfg.RefIdx {
			continue
		}
		if err := writePNG(restore.FlowWheel(flow), fFlowVizFilename); err != nil {
			log.Fatalf("write %s: %v", fFlowVizFilename, err)
		}
		arrowName := strings.TrimSuffix(fFlowVizFilename, ".png") + "-arrows.png"
		arrows := restore.FlowArrows(&c.Gray[i], flow, 16, 1.0)
		if err := writePNG(arrows, arrowName); err != nil {
			log.Fatalf("write %s: %v", arrowName, err)
		}
		log.Printf("Flow visualization written '%s'", fFlowVizFilename)
		return
	}
	log.Printf("no dense flow to visualize")
}
