package imgf

import(
	"image"
	"image/color"

	"github.com/pkg/errors"
)

// A Frame is one decoded color video frame, stored as three float64
// planes on the 0..255 scale. Frames are treated as immutable once
// built; pipeline stages produce new Frames rather than mutating.
type Frame struct {
	R, G, B Grid
}

func NewFrame(w, h int) Frame {
	return Frame{R: NewGrid(w, h), G: NewGrid(w, h), B: NewGrid(w, h)}
}

func (f *Frame)Dx() int { return f.R.Dx() }
func (f *Frame)Dy() int { return f.R.Dy() }

func (f *Frame)Planes() []*Grid { return []*Grid{&f.R, &f.G, &f.B} }

// FromImage converts any stdlib image into a Frame.
func FromImage(src image.Image) Frame {
	b := src.Bounds()
	f := NewFrame(b.Dx(), b.Dy())
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			r, g, bb, _ := src.At(b.Min.X+x, b.Min.Y+y).RGBA()
			// 16-bit color.Color values, scaled down to 0..255
			f.R.Set(x, y, float64(r)/257.0)
			f.G.Set(x, y, float64(g)/257.0)
			f.B.Set(x, y, float64(bb)/257.0)
		}
	}
	return f
}

// Gray collapses the frame to luminance with the NTSC weighting.
func (f *Frame)Gray() Grid {
	w, h := f.Dx(), f.Dy()
	g := NewGrid(w, h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			g.Set(x, y, 0.299*f.R.Get(x, y)+0.587*f.G.Get(x, y)+0.114*f.B.Get(x, y))
		}
	}
	return g
}

func clamp255(v float64) uint8 {
	if v < 0 { return 0 }
	if v > 255 { return 255 }
	return uint8(v + 0.5)
}

func (f *Frame)ToImage() *image.RGBA {
	w, h := f.Dx(), f.Dy()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, color.RGBA{
				R: clamp255(f.R.Get(x, y)),
				G: clamp255(f.G.Get(x, y)),
				B: clamp255(f.B.Get(x, y)),
				A: 0xff,
			})
		}
	}
	return img
}

// ToImage renders a single plane as grayscale.
func (g *Grid)ToImage() *image.Gray {
	w, h := g.Dx(), g.Dy()
	img := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetGray(x, y, color.Gray{Y: clamp255(g.Get(x, y))})
		}
	}
	return img
}

// CheckStack validates a burst of frames at the pipeline boundary: all
// frames share dimensions, are non-degenerate, and every sample is a
// real number. Violations here are the only fatal errors in the
// pipeline; everything downstream degrades softly instead.
func CheckStack(frames []Frame, refIdx int) error {
	if len(frames) == 0 {
		return errors.New("empty frame list")
	}
	if refIdx < 0 || refIdx >= len(frames) {
		return errors.Errorf("reference index %d out of range for %d frames", refIdx, len(frames))
	}
	w, h := frames[0].Dx(), frames[0].Dy()
	if w == 0 || h == 0 {
		return errors.New("zero-sized frame")
	}
	for i := range frames {
		f := &frames[i]
		if f.Dx() != w || f.Dy() != h {
			return errors.Errorf("frame %d is %dx%d, want %dx%d", i, f.Dx(), f.Dy(), w, h)
		}
		allZero := true
		for _, p := range f.Planes() {
			if !p.IsFinite() {
				return errors.Errorf("frame %d contains NaN or Inf samples", i)
			}
			if !p.IsAllZero() {
				allZero = false
			}
		}
		if allZero {
			return errors.Errorf("frame %d is all zero", i)
		}
	}
	return nil
}
