package render

import (
	"fmt"
	"image"
	"image/color"

	"github.com/segmask/go-segmask"
	"gocv.io/x/gocv"
)

// boxLabel defines where the detection object label should be rendered on
// source image
type boxLabel struct {
	rect    image.Rectangle
	clr     color.RGBA
	text    string
	textPos image.Point
}

// newBoxLabel lays out a label of text centered on centerX with its
// baseline sitting on top
func newBoxLabel(text string, centerX, top int, clr color.RGBA, font Font) boxLabel {

	textSize := gocv.GetTextSize(text, font.Face, font.Scale, font.Thickness)

	return boxLabel{
		rect: image.Rect(centerX-textSize.X/2-font.LeftPad,
			top-textSize.Y-font.TopPad-font.BottomPad,
			centerX+textSize.X/2+font.RightPad, top),
		clr:     clr,
		text:    text,
		textPos: image.Pt(centerX-textSize.X/2, top-font.BottomPad),
	}
}

// drawLabels draws all precalculated box labels last so they are the top
// most layer and don't get overlapped with boxes or contour lines
func drawLabels(img *gocv.Mat, labels []boxLabel, font Font) {
	for _, box := range labels {
		gocv.Rectangle(img, box.rect, box.clr, -1)

		gocv.PutTextWithParams(img, box.text, box.textPos,
			font.Face, font.Scale, font.Color, font.Thickness,
			font.LineType, false)
	}
}

// labelText formats the label of object i
func labelText(res *segmask.Result, i int) string {
	return fmt.Sprintf("%s %.2f", res.Labels[i], res.Scores[i])
}

// DetectionBoxes renders the bounding boxes and labels of the detected
// objects.  Results without boxes draw nothing.
func DetectionBoxes(img *gocv.Mat, res *segmask.Result, font Font, lineThickness int) {

	boxLabels := make([]boxLabel, 0, len(res.Boxes))

	for i, box := range res.Boxes {

		useClr := ObjectColor(i)

		rect := image.Rect(box.Left, box.Top, box.Right, box.Bottom)
		gocv.Rectangle(img, rect, useClr, lineThickness)

		text := labelText(res, i)
		textSize := gocv.GetTextSize(text, font.Face, font.Scale, font.Thickness)
		centerX := font.labelX(box.Left, box.Right, textSize.X, lineThickness)

		boxLabels = append(boxLabels, newBoxLabel(text, centerX, box.Top, useClr, font))
	}

	drawLabels(img, boxLabels, font)
}
