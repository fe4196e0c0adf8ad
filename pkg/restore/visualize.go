package restore

import(
	"image"
	"image/color"
	"math"
	"sort"

	"github.com/fogleman/gg"
	colorful "github.com/lucasb-eyer/go-colorful"

	"github.com/HSKayman/screen-removal/pkg/imgf"
	"github.com/HSKayman/screen-removal/pkg/vision"
)

// FlowWheel renders a displacement field on the usual color wheel:
// hue is direction, brightness is magnitude. Magnitude normalizes to
// the 99th percentile so one bad vector can't wash out the image.
func FlowWheel(f vision.FlowField) image.Image {
	w, h := f.U.Dx(), f.U.Dy()

	mags := make([]float64, 0, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			mags = append(mags, math.Hypot(f.U.Get(x, y), f.V.Get(x, y)))
		}
	}
	sort.Float64s(mags)
	maxFlow := mags[int(float64(len(mags))*0.99)]
	if maxFlow < 0.1 {
		maxFlow = mags[len(mags)-1]
		if maxFlow < 1.0 {
			maxFlow = 1.0
		}
	}

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			u := f.U.Get(x, y)
			v := f.V.Get(x, y)
			angle := math.Atan2(v, u) // -pi..pi
			mag := math.Hypot(u, v) / maxFlow
			if mag > 1 {
				mag = 1
			}
			c := colorful.Hsv((angle+math.Pi)/(2*math.Pi)*360.0, 1.0, mag)
			r, g, b := c.RGB255()
			img.SetRGBA(x, y, color.RGBA{R: r, G: g, B: b, A: 0xff})
		}
	}
	return img
}

// FlowArrows draws the field as arrows over the grayscale frame, one
// arrow per step pixels.
func FlowArrows(g *imgf.Grid, f vision.FlowField, step int, scale float64) image.Image {
	if step < 1 {
		step = 16
	}
	dc := gg.NewContextForImage(g.ToImage())
	dc.SetRGB(0, 1, 0)
	dc.SetLineWidth(1)

	w, h := g.Dx(), g.Dy()
	for y := 0; y < h; y += step {
		for x := 0; x < w; x += step {
			fx := f.U.Get(x, y) * scale
			fy := f.V.Get(x, y) * scale
			x0, y0 := float64(x), float64(y)
			x1, y1 := x0+fx, y0+fy
			dc.DrawLine(x0, y0, x1, y1)

			// arrow head
			angle := math.Atan2(fy, fx)
			tip := 0.3 * math.Hypot(fx, fy)
			dc.DrawLine(x1, y1, x1-tip*math.Cos(angle-0.5), y1-tip*math.Sin(angle-0.5))
			dc.DrawLine(x1, y1, x1-tip*math.Cos(angle+0.5), y1-tip*math.Sin(angle+0.5))
		}
	}
	dc.Stroke()
	return dc.Image()
}
