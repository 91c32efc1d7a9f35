package segmask

import (
	"fmt"
	"image"
	"image/color"
	"strings"

	"github.com/pkg/errors"
	"gocv.io/x/gocv"
)

// ColorOrder is the order of the three color channels in an Image's pixel
// data
type ColorOrder int

const (
	// RGB stores red, green, blue
	RGB ColorOrder = iota
	// BGR stores blue, green, red which is the order OpenCV reads and writes
	BGR
)

// String returns the lower case name of the color order
func (o ColorOrder) String() string {
	switch o {
	case RGB:
		return "rgb"
	case BGR:
		return "bgr"
	default:
		return fmt.Sprintf("ColorOrder(%d)", int(o))
	}
}

// ParseColorOrder converts "rgb" or "bgr" (any case) to a ColorOrder
func ParseColorOrder(s string) (ColorOrder, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "rgb", "":
		return RGB, nil
	case "bgr":
		return BGR, nil
	default:
		return RGB, errors.Errorf("unknown color order %q", s)
	}
}

// Shape is the width and height shared by an Image and its Masks
type Shape struct {
	Width  int
	Height int
}

func (s Shape) String() string {
	return fmt.Sprintf("%dx%d", s.Width, s.Height)
}

// Pixels returns the number of pixel positions in the shape
func (s Shape) Pixels() int {
	return s.Width * s.Height
}

// Image is an 8-bit, 3 channel image with interleaved samples stored in row
// major order
type Image struct {
	Width  int
	Height int
	// Order records which channel is stored first in Pix
	Order ColorOrder
	// Pix holds Width*Height*3 samples
	Pix []uint8
}

// NewImage returns an all black image of the given size
func NewImage(width, height int, order ColorOrder) *Image {
	return &Image{
		Width:  width,
		Height: height,
		Order:  order,
		Pix:    make([]uint8, width*height*3),
	}
}

// Shape returns the image dimensions
func (i *Image) Shape() Shape {
	return Shape{Width: i.Width, Height: i.Height}
}

// offset returns the index in Pix of the first sample of pixel x,y
func (i *Image) offset(x, y int) int {
	return (y*i.Width + x) * 3
}

// Pixel returns the three samples at x,y in the image's color order
func (i *Image) Pixel(x, y int) [3]uint8 {
	p := i.offset(x, y)
	return [3]uint8{i.Pix[p], i.Pix[p+1], i.Pix[p+2]}
}

// SetPixel sets the three samples at x,y, given in the image's color order
func (i *Image) SetPixel(x, y int, px [3]uint8) {
	p := i.offset(x, y)
	i.Pix[p], i.Pix[p+1], i.Pix[p+2] = px[0], px[1], px[2]
}

// RGBAt returns the pixel at x,y as red, green, blue regardless of storage
// order
func (i *Image) RGBAt(x, y int) (r, g, b uint8) {
	px := i.Pixel(x, y)

	if i.Order == BGR {
		return px[2], px[1], px[0]
	}

	return px[0], px[1], px[2]
}

// Clone returns a deep copy of the image
func (i *Image) Clone() *Image {
	pix := make([]uint8, len(i.Pix))
	copy(pix, i.Pix)

	return &Image{Width: i.Width, Height: i.Height, Order: i.Order, Pix: pix}
}

// ConvertOrder returns a copy of the image with its channels stored in the
// given order
func (i *Image) ConvertOrder(order ColorOrder) *Image {
	out := i.Clone()

	if order == i.Order {
		return out
	}

	// RGB<->BGR is the same swap of the first and third sample
	for p := 0; p < len(out.Pix); p += 3 {
		out.Pix[p], out.Pix[p+2] = out.Pix[p+2], out.Pix[p]
	}

	out.Order = order
	return out
}

// validate checks Pix holds exactly Width*Height*3 samples
func (i *Image) validate() error {
	if i.Width <= 0 || i.Height <= 0 {
		return errors.Errorf("invalid image size %dx%d", i.Width, i.Height)
	}

	if len(i.Pix) != i.Width*i.Height*3 {
		return errors.Errorf("image %dx%d has %d samples, expected %d",
			i.Width, i.Height, len(i.Pix), i.Width*i.Height*3)
	}

	return nil
}

// ImageFromMat copies a 3 channel 8-bit gocv.Mat into an Image.  OpenCV Mats
// read from disk are BGR, so order should normally be BGR, the data is
// converted when RGB is requested.
func ImageFromMat(mat gocv.Mat, matOrder, order ColorOrder) (*Image, error) {

	if mat.Empty() {
		return nil, errors.New("mat is empty")
	}

	if mat.Type() != gocv.MatTypeCV8UC3 {
		return nil, errors.Errorf("unsupported mat type %v, want CV8UC3", mat.Type())
	}

	// it is too slow to read pixel by pixel over CGO, so copy the bytes out
	data := mat.ToBytes()

	img := &Image{
		Width:  mat.Cols(),
		Height: mat.Rows(),
		Order:  matOrder,
		Pix:    data,
	}

	if err := img.validate(); err != nil {
		return nil, err
	}

	if order != matOrder {
		img = img.ConvertOrder(order)
	}

	return img, nil
}

// ToMat returns a CV8UC3 gocv.Mat holding a copy of the image in the given
// channel order, drawing on it never touches the image.  The caller must
// Close the returned Mat.
func (i *Image) ToMat(order ColorOrder) (gocv.Mat, error) {

	if err := i.validate(); err != nil {
		return gocv.NewMat(), err
	}

	src := i

	if i.Order != order {
		src = i.ConvertOrder(order)
	}

	// NewMatFromBytes wraps the slice without copying
	view, err := gocv.NewMatFromBytes(i.Height, i.Width, gocv.MatTypeCV8UC3, src.Pix)

	if err != nil {
		return gocv.NewMat(), err
	}

	defer view.Close()

	return view.Clone(), nil
}

// ToNRGBA converts the image to a standard library image with opaque alpha
func (i *Image) ToNRGBA() *image.NRGBA {

	out := image.NewNRGBA(image.Rect(0, 0, i.Width, i.Height))

	for y := 0; y < i.Height; y++ {
		for x := 0; x < i.Width; x++ {
			r, g, b := i.RGBAt(x, y)
			out.SetNRGBA(x, y, color.NRGBA{R: r, G: g, B: b, A: 255})
		}
	}

	return out
}

// ImageFromStd converts any standard library image to an Image in the given
// color order.  Alpha is discarded.
func ImageFromStd(src image.Image, order ColorOrder) *Image {

	b := src.Bounds()
	img := NewImage(b.Dx(), b.Dy(), RGB)

	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			c := color.NRGBAModel.Convert(src.At(b.Min.X+x, b.Min.Y+y)).(color.NRGBA)
			img.SetPixel(x, y, [3]uint8{c.R, c.G, c.B})
		}
	}

	if order != RGB {
		return img.ConvertOrder(order)
	}

	return img
}
