package preprocess

import (
	"image"
	"image/color"

	"github.com/pkg/errors"
	"gocv.io/x/gocv"
)

// Resizer scales a source image to the model input tensor size with a
// letterbox, and maps model coordinates back onto the source image
type Resizer struct {
	// srcWidth is the width of the source image
	srcWidth int
	// srcHeight is the height of the source image
	srcHeight int
	// destWidth is the width to scale to
	destWidth int
	// destHeight is the height to scale to
	destHeight int
	// tempMat is a Mat used during the resize process
	tempMat gocv.Mat
	// letterbox parameters used in scaling
	xPad  int
	yPad  int
	scale float32
	// resize dimensions
	resizeW int
	resizeH int
}

// NewResizer returns a resizer used for scaling an image to the needed
// dimensions for input tensor size
func NewResizer(srcWidth, srcHeight, destWidth, destHeight int) *Resizer {
	r := &Resizer{
		srcWidth:   srcWidth,
		srcHeight:  srcHeight,
		destWidth:  destWidth,
		destHeight: destHeight,
		tempMat:    gocv.NewMat(),
	}

	// precalculate scaling dimensions
	r.preCalc()

	return r
}

// Close frees memory allocated during resize process
func (r *Resizer) Close() error {
	return r.tempMat.Close()
}

// preCalc the scaling factors for source and destination Mats
func (r *Resizer) preCalc() {

	r.resizeW = r.destWidth
	r.resizeH = r.destHeight

	scaleW := float32(r.destWidth) / float32(r.srcWidth)
	scaleH := float32(r.destHeight) / float32(r.srcHeight)
	r.scale = scaleH

	if scaleW < scaleH {
		r.scale = scaleW
		r.resizeH = int(float32(r.srcHeight) * r.scale)
	} else {
		r.resizeW = int(float32(r.srcWidth) * r.scale)
	}

	r.yPad = (r.destHeight - r.resizeH) / 2 // padding height / 2
	r.xPad = (r.destWidth - r.resizeW) / 2  // padding width / 2
}

// LetterBoxResize resizes the input image to the dimensions needed for the input
// tensor size whilst maintaining image aspect.  Color is that used for letter
// box padding.
func (r *Resizer) LetterBoxResize(src gocv.Mat, dest *gocv.Mat, color color.RGBA) {

	gocv.Resize(src, &r.tempMat, image.Pt(r.resizeW, r.resizeH),
		0, 0, gocv.InterpolationArea)

	gocv.CopyMakeBorder(r.tempMat, dest, r.yPad, r.destHeight-r.resizeH-r.yPad,
		r.xPad, r.destWidth-r.resizeW-r.xPad, gocv.BorderConstant, color)
}

// ReverseX maps an x coordinate in the model input back to the source image,
// clamped to the source width
func (r *Resizer) ReverseX(x int) int {
	return clampInt(int(float32(x-r.xPad)/r.scale), 0, r.srcWidth)
}

// ReverseY maps a y coordinate in the model input back to the source image,
// clamped to the source height
func (r *Resizer) ReverseY(y int) int {
	return clampInt(int(float32(y-r.yPad)/r.scale), 0, r.srcHeight)
}

// ReverseMask maps a single channel mask at model input resolution
// (destWidth x destHeight) back onto the source image, removing the letterbox
// padding and scaling with nearest neighbour so values stay binary
func (r *Resizer) ReverseMask(mask []uint8) ([]uint8, error) {

	if len(mask) != r.destWidth*r.destHeight {
		return nil, errors.Errorf("mask has %d values, expected %dx%d",
			len(mask), r.destWidth, r.destHeight)
	}

	modelMat, err := gocv.NewMatFromBytes(r.destHeight, r.destWidth, gocv.MatTypeCV8U, mask)

	if err != nil {
		return nil, errors.Wrap(err, "error creating mask Mat")
	}

	defer modelMat.Close()

	// crop out the letterbox padding
	roi := modelMat.Region(image.Rect(r.xPad, r.yPad, r.xPad+r.resizeW, r.yPad+r.resizeH))
	defer roi.Close()

	srcMat := gocv.NewMat()
	defer srcMat.Close()

	gocv.Resize(roi, &srcMat, image.Pt(r.srcWidth, r.srcHeight), 0, 0,
		gocv.InterpolationNearestNeighbor)

	return srcMat.ToBytes(), nil
}

// ScaleFactor returns the scale factor used in letterbox resize
func (r *Resizer) ScaleFactor() float32 {
	return r.scale
}

// XPad returns the x padding used in letterbox resize
func (r *Resizer) XPad() int {
	return r.xPad
}

// YPad returns the y padding used in letterbox resize
func (r *Resizer) YPad() int {
	return r.yPad
}

// DestWidth returns the width of the model input
func (r *Resizer) DestWidth() int {
	return r.destWidth
}

// DestHeight returns the height of the model input
func (r *Resizer) DestHeight() int {
	return r.destHeight
}

func clampInt(v, min, max int) int {
	if v < min {
		return min
	}

	if v > max {
		return max
	}

	return v
}
