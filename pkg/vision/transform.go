// Package vision implements the motion-estimation core: keypoint
// matching with a screen-texture rejection filter, robust homography
// fitting, dense pyramidal flow, and frame warping.
package vision

// A Transform maps a pixel location in one frame to the corresponding
// location in another. The warper resolves every output pixel through
// exactly this one capability, so it never cares whether motion came
// from a fitted matrix or a dense field.
type Transform interface {
	Apply(x, y float64) (float64, float64)
	IsIdentity() bool
}
