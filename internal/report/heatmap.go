package report

import (
	"fmt"
	"image"
	"image/color"

	"github.com/nfnt/resize"

	"github.com/jmylchreest/hdrprobe/internal/hdr"
)

// Heatmap renders a false-colour gamut map of one frame. Luminance is shown
// as PQ-encoded grey; P3 and Rec.2020 pixels are tinted with the chart
// colours for their bucket.
func Heatmap(frame *hdr.LinearFrame, nits []float64, classes []hdr.GamutClass) (*image.RGBA, error) {
	n := frame.Pixels()
	if len(nits) != n || len(classes) != n {
		return nil, fmt.Errorf("heatmap inputs disagree: %d pixels, %d luminance, %d classes", n, len(nits), len(classes))
	}
	img := image.NewRGBA(image.Rect(0, 0, frame.Width, frame.Height))
	for i := range n {
		grey := hdr.NitsToPQ(nits[i])
		var c color.RGBA
		switch classes[i] {
		case hdr.GamutP3:
			c = tint(colourP3, grey)
		case hdr.GamutRec2020:
			c = tint(colour2020, grey)
		default:
			v := toByte(grey)
			c = color.RGBA{v, v, v, 0xFF}
		}
		o := (i/frame.Width)*img.Stride + (i%frame.Width)*4
		img.Pix[o], img.Pix[o+1], img.Pix[o+2], img.Pix[o+3] = c.R, c.G, c.B, c.A
	}
	return img, nil
}

// tint scales a bucket colour by brightness, keeping it visible on black.
func tint(c color.RGBA, brightness float64) color.RGBA {
	k := 0.35 + 0.65*brightness
	return color.RGBA{toByte(float64(c.R) / 255 * k), toByte(float64(c.G) / 255 * k), toByte(float64(c.B) / 255 * k), 0xFF}
}

func toByte(v float64) uint8 {
	switch {
	case v <= 0:
		return 0
	case v >= 1:
		return 255
	default:
		return uint8(v*255 + 0.5)
	}
}

// Downscale shrinks img to width pixels, keeping the aspect ratio. Images
// already narrower than width are returned unchanged.
func Downscale(img image.Image, width int) image.Image {
	if width <= 0 || img.Bounds().Dx() <= width {
		return img
	}
	return resize.Resize(uint(width), 0, img, resize.Lanczos3)
}
