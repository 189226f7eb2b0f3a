package imaging

import (
	"image"
	"image/color"
)

// MaskTypeCenterEllipse names the only mask geometry the service applies.
const MaskTypeCenterEllipse = "center_ellipse"

// CenterEllipseMask builds the fixed inpainting mask: a black canvas with a
// white filled ellipse spanning the middle 50% of both axes. White pixels are
// eligible for regeneration; the mask never depends on image content.
func CenterEllipseMask(width, height int) *image.Gray {
	mask := image.NewGray(image.Rect(0, 0, width, height))
	cx := float64(width) / 2
	cy := float64(height) / 2
	rx := float64(width) / 4
	ry := float64(height) / 4
	for y := 0; y < height; y++ {
		dy := (float64(y) + 0.5 - cy) / ry
		for x := 0; x < width; x++ {
			dx := (float64(x) + 0.5 - cx) / rx
			if dx*dx+dy*dy <= 1 {
				mask.SetGray(x, y, color.Gray{Y: 255})
			}
		}
	}
	return mask
}
