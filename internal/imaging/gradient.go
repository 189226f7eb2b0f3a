package imaging

import (
	"image"
	"image/color"
)

// Gradient renders a synthetic RGB gradient, used by the /test-image
// endpoint so integrations can verify the wire format without a model.
func Gradient(width, height int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		g := uint8(255 * y / max(height-1, 1))
		for x := 0; x < width; x++ {
			r := uint8(255 * x / max(width-1, 1))
			img.SetRGBA(x, y, color.RGBA{R: r, G: g, B: 128, A: 255})
		}
	}
	return img
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
