package render

import (
	"github.com/pkg/errors"
	"github.com/segmask/go-segmask"
	"gocv.io/x/gocv"
)

// draw converts img to a BGR Mat, applies fn and converts the result back to
// an Image in img's color order
func draw(img *segmask.Image, fn func(mat *gocv.Mat) error) (*segmask.Image, error) {

	mat, err := img.ToMat(segmask.BGR)

	if err != nil {
		return nil, errors.Wrap(err, "error converting image to Mat")
	}

	defer mat.Close()

	if err := fn(&mat); err != nil {
		return nil, err
	}

	return segmask.ImageFromMat(mat, segmask.BGR, img.Order)
}

// Overlay returns a copy of img with every object mask painted on as a
// transparent color plus the detection boxes, when the result has them
func Overlay(img *segmask.Image, res *segmask.Result, alpha float32) (*segmask.Image, error) {
	return draw(img, func(mat *gocv.Mat) error {
		if err := SegmentMask(mat, res.Masks, alpha); err != nil {
			return err
		}

		DetectionBoxes(mat, res, DefaultFont(), 1)

		return nil
	})
}

// Outline returns a copy of img with each object's outline and label drawn
func Outline(img *segmask.Image, res *segmask.Result, style OutlineStyle) (*segmask.Image, error) {
	return draw(img, func(mat *gocv.Mat) error {
		return SegmentOutline(mat, res, style)
	})
}
