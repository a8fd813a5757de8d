package types

import "fmt"

// An Image stores linear HDR RGB radiance values in row-major order with
// row 0 at the top of the frame.
type Image struct {
	Width  int
	Height int
	Pix    []Vec3
}

// Allocate a new black image.
func NewImage(width, height int) *Image {
	if width < 0 || height < 0 {
		panic(fmt.Sprintf("types: invalid image dimensions %dx%d", width, height))
	}
	return &Image{
		Width:  width,
		Height: height,
		Pix:    make([]Vec3, width*height),
	}
}

// Get the pixel at (x, y).
func (im *Image) At(x, y int) Vec3 {
	return im.Pix[y*im.Width+x]
}

// Set the pixel at (x, y).
func (im *Image) Set(x, y int, c Vec3) {
	im.Pix[y*im.Width+x] = c
}

// Set all pixels to c.
func (im *Image) Fill(c Vec3) {
	for i := range im.Pix {
		im.Pix[i] = c
	}
}

// Returns true if both images share the same dimensions.
func (im *Image) SameSize(other *Image) bool {
	return other != nil && im.Width == other.Width && im.Height == other.Height
}

// Create a deep copy of the image.
func (im *Image) Clone() *Image {
	out := &Image{Width: im.Width, Height: im.Height, Pix: make([]Vec3, len(im.Pix))}
	copy(out.Pix, im.Pix)
	return out
}
