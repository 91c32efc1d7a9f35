package render

import (
	"image"

	clipper "github.com/ctessum/go.clipper"
	"github.com/pkg/errors"
	"github.com/segmask/go-segmask"
	"gocv.io/x/gocv"
)

// OutlineStyle defines how object outlines are drawn by SegmentOutline
type OutlineStyle struct {
	// MinArea filters out contours smaller than this many pixels, picked up
	// from aliasing or noise in the binary mask
	MinArea float64
	// Epsilon is the approximation accuracy used to simplify contours
	Epsilon float64
	// Offset grows (positive) or shrinks (negative) the outline by this many
	// pixels
	Offset        float64
	LineThickness int
	Font          Font
}

// DefaultOutlineStyle returns default outline settings
func DefaultOutlineStyle() OutlineStyle {
	return OutlineStyle{
		MinArea:       20,
		Epsilon:       3,
		Offset:        0,
		LineThickness: 2,
		Font:          DefaultFont(),
	}
}

// SegmentMask renders each object mask as a transparent colored overlay on
// top of a BGR image
func SegmentMask(img *gocv.Mat, masks []segmask.Mask, alpha float32) error {

	width := img.Cols()
	height := img.Rows()

	// it is too slow to manipulate pixel by pixel using GoCV due to slowness
	// over CGO.  So we copy the bytes from the source image and manipulate
	// the bytes directly before copying back to a Mat
	imgData := img.ToBytes()

	for i, m := range masks {

		if m.Width != width || m.Height != height {
			return &segmask.ShapeError{Index: i,
				Want: segmask.Shape{Width: width, Height: height}, Got: m.Shape()}
		}

		clr := ObjectColor(i)

		for idx, v := range m.Data {
			if v == segmask.MaskOff {
				continue
			}

			pixelPos := idx * 3
			b, g, r := imgData[pixelPos+0], imgData[pixelPos+1], imgData[pixelPos+2]

			imgData[pixelPos+0] = uint8(float32(b)*(1-alpha) + float32(clr.B)*alpha)
			imgData[pixelPos+1] = uint8(float32(g)*(1-alpha) + float32(clr.G)*alpha)
			imgData[pixelPos+2] = uint8(float32(r)*(1-alpha) + float32(clr.R)*alpha)
		}
	}

	tmpImg, err := gocv.NewMatFromBytes(height, width, gocv.MatTypeCV8UC3, imgData)

	if err != nil {
		return errors.Wrap(err, "error creating overlay Mat")
	}

	defer tmpImg.Close()
	tmpImg.CopyTo(img)

	return nil
}

// findTopPoint finds the highest point (Y axis) of the given points
func findTopPoint(pts []image.Point) image.Point {
	topPoint := pts[0]

	for _, pt := range pts[1:] {
		if pt.Y < topPoint.Y {
			topPoint = pt
		}
	}

	return topPoint
}

// offsetPolygon grows or shrinks a closed polygon by delta pixels.  A shrink
// can split or remove the polygon so several or no polygons may be returned.
func offsetPolygon(pts []image.Point, delta float64) [][]image.Point {

	if delta == 0 {
		return [][]image.Point{pts}
	}

	var path clipper.Path

	for _, pt := range pts {
		path = append(path, &clipper.IntPoint{X: clipper.CInt(pt.X), Y: clipper.CInt(pt.Y)})
	}

	co := clipper.NewClipperOffset()
	co.AddPath(path, clipper.JtRound, clipper.EtClosedPolygon)

	solution := co.Execute(delta)
	polys := make([][]image.Point, 0, len(solution))

	for _, sol := range solution {
		poly := make([]image.Point, 0, len(sol))

		for _, pt := range sol {
			poly = append(poly, image.Pt(int(pt.X), int(pt.Y)))
		}

		if len(poly) > 2 {
			polys = append(polys, poly)
		}
	}

	return polys
}

// objectOutlines returns the simplified, offset outlines of a single mask
func objectOutlines(m segmask.Mask, style OutlineStyle) ([][]image.Point, error) {

	maskMat, err := m.ToMat()

	if err != nil {
		return nil, errors.Wrap(err, "error creating mask Mat")
	}

	defer maskMat.Close()

	contours := gocv.FindContours(maskMat, gocv.RetrievalExternal, gocv.ChainApproxSimple)
	defer contours.Close()

	outlines := make([][]image.Point, 0)

	for i := 0; i < contours.Size(); i++ {
		contour := contours.At(i)

		if gocv.ContourArea(contour) < style.MinArea {
			continue
		}

		approx := gocv.ApproxPolyDP(contour, style.Epsilon, true)
		pts := approx.ToPoints()
		approx.Close()

		if len(pts) < 3 {
			continue
		}

		outlines = append(outlines, offsetPolygon(pts, style.Offset)...)
	}

	return outlines, nil
}

// SegmentOutline renders the outline of every object mask on a BGR image
// with its label placed above the top most point of the outline
func SegmentOutline(img *gocv.Mat, res *segmask.Result, style OutlineStyle) error {

	boxLabels := make([]boxLabel, 0)

	for i, m := range res.Masks {

		outlines, err := objectOutlines(m, style)

		if err != nil {
			return errors.Wrapf(err, "error finding outline of object %d", i)
		}

		if len(outlines) == 0 {
			continue
		}

		useClr := ObjectColor(i)

		ptsVec := gocv.NewPointsVectorFromPoints(outlines)
		gocv.Polylines(img, ptsVec, true, useClr, style.LineThickness)
		ptsVec.Close()

		// label the largest outline
		top := findTopPoint(outlines[0])
		rect := boundsOf(outlines[0])

		for _, o := range outlines[1:] {
			if r := boundsOf(o); r.Dx()*r.Dy() > rect.Dx()*rect.Dy() {
				rect = r
				top = findTopPoint(o)
			}
		}

		centerX := (rect.Min.X + rect.Max.X) / 2
		boxLabels = append(boxLabels,
			newBoxLabel(labelText(res, i), centerX, top.Y, useClr, style.Font))
	}

	drawLabels(img, boxLabels, style.Font)

	return nil
}

func boundsOf(pts []image.Point) image.Rectangle {
	r := image.Rectangle{Min: pts[0], Max: pts[0]}

	for _, pt := range pts[1:] {
		r = r.Union(image.Rectangle{Min: pt, Max: pt.Add(image.Pt(1, 1))})
	}

	return r
}
