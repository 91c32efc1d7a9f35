package segmask

import (
	"github.com/pkg/errors"
	"gocv.io/x/gocv"
)

const (
	// MaskOff is the value of a background mask element
	MaskOff uint8 = 0
	// MaskOn is the value of a foreground mask element
	MaskOn uint8 = 255
	// DefaultMaskThreshold is the grayscale value a mask raster must exceed
	// for a pixel to count as foreground
	DefaultMaskThreshold uint8 = 128
)

// Mask marks the pixels belonging to one detected object, or with
// AggregateMasks the union of all objects.  Each element of Data is either
// MaskOff or MaskOn.
type Mask struct {
	Width  int
	Height int
	Data   []uint8
}

// NewMask returns an all background mask
func NewMask(width, height int) Mask {
	if width < 0 || height < 0 {
		width, height = 0, 0
	}

	return Mask{
		Width:  width,
		Height: height,
		Data:   make([]uint8, width*height),
	}
}

// MaskFromValues builds a Mask from one value per pixel in row major order,
// any non-zero value becomes foreground
func MaskFromValues(width, height int, values []uint8) (Mask, error) {

	if len(values) != width*height {
		return Mask{}, errors.Errorf("mask %dx%d given %d values", width, height, len(values))
	}

	m := NewMask(width, height)

	for i, v := range values {
		if v != 0 {
			m.Data[i] = MaskOn
		}
	}

	return m, nil
}

// MaskFromBools builds a Mask from rows of booleans.  All rows must have the
// same length.
func MaskFromBools(rows [][]bool) (Mask, error) {

	height := len(rows)
	width := 0

	if height > 0 {
		width = len(rows[0])
	}

	m := NewMask(width, height)

	for y, row := range rows {
		if len(row) != width {
			return Mask{}, errors.Errorf("mask row %d has %d elements, expected %d",
				y, len(row), width)
		}

		for x, on := range row {
			m.Set(x, y, on)
		}
	}

	return m, nil
}

// MaskFromGray thresholds a single channel raster, pixels with a value greater
// than threshold become foreground
func MaskFromGray(width, height int, gray []uint8, threshold uint8) (Mask, error) {

	if len(gray) != width*height {
		return Mask{}, errors.Errorf("gray raster %dx%d given %d values",
			width, height, len(gray))
	}

	m := NewMask(width, height)

	for i, v := range gray {
		if v > threshold {
			m.Data[i] = MaskOn
		}
	}

	return m, nil
}

// Shape returns the mask dimensions
func (m Mask) Shape() Shape {
	return Shape{Width: m.Width, Height: m.Height}
}

// At reports whether x,y is foreground
func (m Mask) At(x, y int) bool {
	return m.Data[y*m.Width+x] != MaskOff
}

// Set marks x,y as foreground or background
func (m Mask) Set(x, y int, on bool) {
	if on {
		m.Data[y*m.Width+x] = MaskOn
		return
	}

	m.Data[y*m.Width+x] = MaskOff
}

// Count returns the number of foreground pixels
func (m Mask) Count() int {
	n := 0

	for _, v := range m.Data {
		if v != MaskOff {
			n++
		}
	}

	return n
}

// Coverage returns the fraction of pixels that are foreground
func (m Mask) Coverage() float64 {
	if len(m.Data) == 0 {
		return 0
	}

	return float64(m.Count()) / float64(len(m.Data))
}

// Clone returns a deep copy of the mask
func (m Mask) Clone() Mask {
	data := make([]uint8, len(m.Data))
	copy(data, m.Data)

	return Mask{Width: m.Width, Height: m.Height, Data: data}
}

// checkShape returns a ShapeError when the mask is not of shape want or its
// data length disagrees with its dimensions
func (m Mask) checkShape(want Shape, index int) error {
	if m.Shape() != want || len(m.Data) != want.Pixels() {
		return &ShapeError{Index: index, Want: want, Got: m.Shape()}
	}

	return nil
}

// ToMat returns a CV8U gocv.Mat of the mask.  The caller must Close the
// returned Mat.
func (m Mask) ToMat() (gocv.Mat, error) {
	return gocv.NewMatFromBytes(m.Height, m.Width, gocv.MatTypeCV8U, m.Data)
}

// MaskFromMat converts a single channel 8-bit gocv.Mat to a Mask using
// threshold, as MaskFromGray does
func MaskFromMat(mat gocv.Mat, threshold uint8) (Mask, error) {

	if mat.Empty() {
		return Mask{}, errors.New("mask mat is empty")
	}

	if mat.Type() != gocv.MatTypeCV8U {
		return Mask{}, errors.Errorf("unsupported mask mat type %v, want CV8U", mat.Type())
	}

	return MaskFromGray(mat.Cols(), mat.Rows(), mat.ToBytes(), threshold)
}
