package scape

import (
	"image"
	"image/color"

	"golang.org/x/image/colornames"
)

var (
	frameBackground = colornames.Midnightblue
	frameBall       = colornames.White
	framePaddle     = colornames.Deepskyblue
	frameBlockFull  = colornames.Orangered
	frameBlockWeak  = colornames.Gold
)

// FrameImage paints a game frame as an RGBA image. Block colour fades from
// frameBlockFull to frameBlockWeak as the block loses health.
func FrameImage(pixels []float32, width, height int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.SetRGBA(x, y, pixelColor(pixels[y*width+x]))
		}
	}
	return img
}

func pixelColor(v float32) color.RGBA {
	switch {
	case v == PixelEmpty:
		return frameBackground
	case v == PixelBall:
		return frameBall
	case v == PixelPaddle:
		return framePaddle
	default:
		return blend(frameBlockWeak, frameBlockFull, v)
	}
}

func blend(from, to color.RGBA, t float32) color.RGBA {
	t = min(max(t, 0), 1)
	mix := func(a, b uint8) uint8 { return uint8(float32(a) + (float32(b)-float32(a))*t) }
	return color.RGBA{R: mix(from.R, to.R), G: mix(from.G, to.G), B: mix(from.B, to.B), A: 255}
}
