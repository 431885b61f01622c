package emulator

import (
	"image"
	"image/color"
)

const (
	SCREEN_WIDTH  = 240
	SCREEN_HEIGHT = 160
)

// A complete picture in the native 15 bit format: bits [0:4] red, [5:9]
// green, [10:14] blue
type Frame struct {
	Pixels [SCREEN_WIDTH * SCREEN_HEIGHT]uint16
}

// Returns a new black frame
func NewFrame() *Frame {
	return &Frame{}
}

// Receives every completed frame from the LCD
type FrameSink interface {
	PresentFrame(frame *Frame)
}

// Returns the 15 bit color at `x`,`y`
func (frame *Frame) Pixel(x, y int) uint16 {
	return frame.Pixels[y*SCREEN_WIDTH+x]
}

// Expands a 15 bit color to 8 bits per channel
func RGB555ToRGBA(val uint16) color.RGBA {
	r := uint8(val & 0x1f)
	g := uint8((val >> 5) & 0x1f)
	b := uint8((val >> 10) & 0x1f)
	return color.RGBA{
		R: (r << 3) | (r >> 2),
		G: (g << 3) | (g >> 2),
		B: (b << 3) | (b >> 2),
		A: 255,
	}
}

// Returns the RGBA color value at `x`,`y`
func (frame *Frame) At(x, y int) color.Color {
	return RGB555ToRGBA(frame.Pixel(x, y))
}

// Writes the frame into `dst` as RGBA bytes, 4 per pixel. `dst` must hold
// at least SCREEN_WIDTH * SCREEN_HEIGHT * 4 bytes
func (frame *Frame) CopyRGBA(dst []byte) {
	for i, val := range frame.Pixels {
		c := RGB555ToRGBA(val)
		dst[i*4+0] = c.R
		dst[i*4+1] = c.G
		dst[i*4+2] = c.B
		dst[i*4+3] = c.A
	}
}

// Converts the frame to an image.RGBA
func (frame *Frame) ToImage() image.Image {
	img := image.NewRGBA(image.Rect(0, 0, SCREEN_WIDTH, SCREEN_HEIGHT))
	frame.CopyRGBA(img.Pix)
	return img
}
