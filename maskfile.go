package segmask

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

// MaskFileSegmenter is a Segmenter whose "model output" is a set of mask
// raster files produced ahead of time, one file per object.  It lets masks
// exported by another tool be applied to an image with the same pipeline.
type MaskFileSegmenter struct {
	// Paths of the mask files, in object order
	Paths []string
	// Threshold is the value a mask pixel's red channel must exceed to be
	// foreground, grayscale files carry the gray value in every channel
	Threshold uint8
}

// NewMaskFileSegmenter returns a MaskFileSegmenter for the given mask files
// using DefaultMaskThreshold
func NewMaskFileSegmenter(paths ...string) *MaskFileSegmenter {
	return &MaskFileSegmenter{
		Paths:     paths,
		Threshold: DefaultMaskThreshold,
	}
}

// Segment loads every mask file.  Labels are the file names without
// extension and every score is 1.
func (s *MaskFileSegmenter) Segment(ctx context.Context, img *Image) (*Result, error) {

	res := &Result{
		Masks:  make([]Mask, 0, len(s.Paths)),
		Labels: make([]string, 0, len(s.Paths)),
		Scores: make([]float32, 0, len(s.Paths)),
	}

	for _, path := range s.Paths {

		if err := ctx.Err(); err != nil {
			return nil, err
		}

		m, err := LoadMask(path, s.Threshold)

		if err != nil {
			return nil, errors.Wrapf(err, "loading mask file")
		}

		res.Masks = append(res.Masks, m)
		res.Labels = append(res.Labels, maskLabel(path))
		res.Scores = append(res.Scores, 1)
	}

	return res, nil
}

// maskLabel derives a label from a mask file name
func maskLabel(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
