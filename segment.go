package segmask

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
)

// Segmenter runs instance segmentation on an image.  Implementations wrap a
// pretrained model and return one Mask per detected object, each the same
// shape as img.
type Segmenter interface {
	Segment(ctx context.Context, img *Image) (*Result, error)
}

// SegmenterFunc adapts an ordinary function to the Segmenter interface
type SegmenterFunc func(ctx context.Context, img *Image) (*Result, error)

// Segment calls f(ctx, img)
func (f SegmenterFunc) Segment(ctx context.Context, img *Image) (*Result, error) {
	return f(ctx, img)
}

// Box is the bounding box of a detected object in image pixel coordinates
type Box struct {
	Left   int
	Top    int
	Right  int
	Bottom int
}

func (b Box) String() string {
	return fmt.Sprintf("(%d %d %d %d)", b.Left, b.Top, b.Right, b.Bottom)
}

// Result is the typed output of a Segmenter.  Index i of each slice describes
// the same object.
type Result struct {
	Masks  []Mask
	Labels []string
	Scores []float32
	// Boxes is optional, a segmenter that has no boxes leaves it empty
	Boxes []Box
}

// Len returns the number of detected objects
func (r *Result) Len() int {
	if r == nil {
		return 0
	}

	return len(r.Masks)
}

// Validate checks the slices agree in length and every mask matches ref
func (r *Result) Validate(ref Shape) error {

	if r == nil {
		return nil
	}

	n := len(r.Masks)

	if len(r.Labels) != n || len(r.Scores) != n {
		return errors.Errorf("result has %d masks, %d labels and %d scores",
			n, len(r.Labels), len(r.Scores))
	}

	if len(r.Boxes) != 0 && len(r.Boxes) != n {
		return errors.Errorf("result has %d masks and %d boxes", n, len(r.Boxes))
	}

	for i, m := range r.Masks {
		if err := m.checkShape(ref, i); err != nil {
			return err
		}
	}

	return nil
}

// Detection is a single object from a Result
type Detection struct {
	Label string
	Score float32
	Box   Box
	// Pixels is the foreground pixel count of the object's mask
	Pixels int
}

// Detections flattens the result into one Detection per object
func (r *Result) Detections() []Detection {

	dets := make([]Detection, 0, r.Len())

	for i := 0; i < r.Len(); i++ {
		d := Detection{
			Label:  r.Labels[i],
			Score:  r.Scores[i],
			Pixels: r.Masks[i].Count(),
		}

		if i < len(r.Boxes) {
			d.Box = r.Boxes[i]
		}

		dets = append(dets, d)
	}

	return dets
}

// Segment runs seg on img and checks the result against img's shape.  Any
// failure from the segmenter comes back as a ModelError.
func Segment(ctx context.Context, seg Segmenter, img *Image) (*Result, error) {

	res, err := seg.Segment(ctx, img)

	if err != nil {
		return nil, NewModelError(err)
	}

	if res == nil {
		res = &Result{}
	}

	if err := res.Validate(img.Shape()); err != nil {
		return nil, err
	}

	return res, nil
}
