package render

import (
	"image/color"

	"gocv.io/x/gocv"
)

// Alignment of a text label relative to its object
type Alignment int

const (
	Left   Alignment = 1
	Center Alignment = 2
	Right  Alignment = 3
)

// Font defines the parameters for rendering text on an image using GoCV
type Font struct {
	Face      gocv.HersheyFont
	Scale     float64
	Color     color.RGBA
	Thickness int
	LineType  gocv.LineType
	// Padding to place around text
	LeftPad   int
	RightPad  int
	TopPad    int
	BottomPad int
	// Alignment of the text label to the bounding box
	Alignment Alignment
}

// DefaultFont returns default font settings
func DefaultFont() Font {
	return Font{
		Face:      gocv.FontHersheySimplex,
		Scale:     0.5,
		Color:     White,
		Thickness: 1,
		LineType:  gocv.LineAA,
		LeftPad:   4,
		RightPad:  4,
		TopPad:    4,
		BottomPad: 6,
		Alignment: Left,
	}
}

// labelX returns the horizontal center of a text label of textWidth placed
// against a box spanning left to right
func (f Font) labelX(left, right, textWidth, lineThickness int) int {

	switch f.Alignment {
	case Center:
		return (left + right) / 2

	case Right:
		return right - (textWidth / 2) - f.RightPad + (lineThickness / 2)

	case Left:
		fallthrough
	default:
		return left + (textWidth / 2) + f.LeftPad - (lineThickness / 2)
	}
}
