package segmask

import (
	"image"
	"image/color"

	"github.com/pkg/errors"
)

// AggregateMasks combines the per object masks into a single mask of shape
// ref where a pixel is foreground if it is foreground in any of the masks.
// With no masks (nothing detected) an all background mask is returned.  Every
// mask must be of shape ref otherwise a ShapeError is returned, and ref must
// have positive dimensions.
func AggregateMasks(ref Shape, masks ...Mask) (Mask, error) {

	if ref.Width <= 0 || ref.Height <= 0 {
		return Mask{}, errors.Wrapf(ErrShapeMismatch, "reference shape %s is not positive", ref)
	}

	for i, m := range masks {
		if err := m.checkShape(ref, i); err != nil {
			return Mask{}, err
		}
	}

	out := NewMask(ref.Width, ref.Height)

	for _, m := range masks {
		for i, v := range m.Data {
			if v != MaskOff {
				out.Data[i] = MaskOn
			}
		}
	}

	return out, nil
}

// ApplyMask returns a copy of img with every channel zeroed where mask is
// background, and unchanged where mask is foreground.  img is not modified.
func ApplyMask(img *Image, mask Mask) (*Image, error) {

	if err := img.validate(); err != nil {
		return nil, err
	}

	if err := mask.checkShape(img.Shape(), -1); err != nil {
		return nil, err
	}

	out := NewImage(img.Width, img.Height, img.Order)

	for i, v := range mask.Data {
		if v == MaskOff {
			continue
		}

		p := i * 3
		out.Pix[p] = img.Pix[p]
		out.Pix[p+1] = img.Pix[p+1]
		out.Pix[p+2] = img.Pix[p+2]
	}

	return out, nil
}

// Cutout returns img as an RGBA image whose alpha is opaque where mask is
// foreground and fully transparent where it is background
func Cutout(img *Image, mask Mask) (*image.NRGBA, error) {

	if err := img.validate(); err != nil {
		return nil, err
	}

	if err := mask.checkShape(img.Shape(), -1); err != nil {
		return nil, err
	}

	out := image.NewNRGBA(image.Rect(0, 0, img.Width, img.Height))

	for y := 0; y < img.Height; y++ {
		for x := 0; x < img.Width; x++ {
			r, g, b := img.RGBAt(x, y)
			alpha := uint8(0)

			if mask.At(x, y) {
				alpha = 255
			}

			out.SetNRGBA(x, y, color.NRGBA{R: r, G: g, B: b, A: alpha})
		}
	}

	return out, nil
}
