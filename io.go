package segmask

import (
	"image"
	"image/color"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/pkg/errors"
	"gocv.io/x/gocv"

	// register the WebP decoder for the pure Go fallback loader
	_ "golang.org/x/image/webp"
)

// writer identifies which encoder handles an output file extension
type writer int

const (
	writerOpenCV writer = iota
	writerImaging
)

// outputWriters maps supported output file extensions to their encoder
var outputWriters = map[string]writer{
	".jpg":  writerOpenCV,
	".jpeg": writerOpenCV,
	".png":  writerOpenCV,
	".bmp":  writerImaging,
	".gif":  writerImaging,
	".tif":  writerImaging,
	".tiff": writerImaging,
}

// CheckReadable returns ErrFileNotFound when path does not exist or is a
// directory
func CheckReadable(path string) error {

	info, err := os.Stat(path)

	if err != nil {
		return errors.Wrapf(ErrFileNotFound, "%s: %v", path, err)
	}

	if info.IsDir() {
		return errors.Wrapf(ErrFileNotFound, "%s is a directory", path)
	}

	return nil
}

// outputWriter returns the encoder for path's extension after checking the
// destination directory exists
func outputWriter(path string) (writer, error) {

	ext := strings.ToLower(filepath.Ext(path))
	w, ok := outputWriters[ext]

	if !ok {
		return 0, errors.Wrapf(ErrIO, "unsupported output format %q for %s", ext, path)
	}

	if info, err := os.Stat(filepath.Dir(path)); err != nil || !info.IsDir() {
		return 0, errors.Wrapf(ErrIO, "output directory of %s does not exist", path)
	}

	return w, nil
}

// LoadImage reads the image file at path and returns it with its channels in
// the given order.  OpenCV decodes the file, formats it was built without
// (such as WebP) are decoded in Go instead.
func LoadImage(path string, order ColorOrder) (*Image, error) {

	if err := CheckReadable(path); err != nil {
		return nil, err
	}

	mat := gocv.IMRead(path, gocv.IMReadColor)
	defer mat.Close()

	if !mat.Empty() {
		img, err := ImageFromMat(mat, BGR, order)

		if err != nil {
			return nil, errors.Wrapf(ErrIO, "decoding %s: %v", path, err)
		}

		return img, nil
	}

	std, err := imaging.Open(path)

	if err != nil {
		return nil, errors.Wrapf(ErrIO, "decoding %s: %v", path, err)
	}

	return ImageFromStd(std, order), nil
}

// LoadMask reads a mask raster file and thresholds its first (red) channel,
// pixels brighter than threshold are foreground.  Grayscale files carry the
// gray value in every channel.
func LoadMask(path string, threshold uint8) (Mask, error) {

	if err := CheckReadable(path); err != nil {
		return Mask{}, err
	}

	mat := gocv.IMRead(path, gocv.IMReadColor)
	defer mat.Close()

	if !mat.Empty() {
		channels := gocv.Split(mat)

		defer func() {
			for _, c := range channels {
				c.Close()
			}
		}()

		// OpenCV decodes to BGR
		m, err := MaskFromMat(channels[2], threshold)

		if err != nil {
			return Mask{}, errors.Wrapf(ErrIO, "decoding mask %s: %v", path, err)
		}

		return m, nil
	}

	std, err := imaging.Open(path)

	if err != nil {
		return Mask{}, errors.Wrapf(ErrIO, "decoding mask %s: %v", path, err)
	}

	nrgba := imaging.Clone(std)
	b := nrgba.Bounds()
	values := make([]uint8, b.Dx()*b.Dy())

	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			values[y*b.Dx()+x] = nrgba.NRGBAAt(b.Min.X+x, b.Min.Y+y).R
		}
	}

	return MaskFromGray(b.Dx(), b.Dy(), values, threshold)
}

// SaveImage writes img to path, overwriting any existing file.  The format
// is chosen by the file extension.
func SaveImage(path string, img *Image) error {

	w, err := outputWriter(path)

	if err != nil {
		return err
	}

	if err := img.validate(); err != nil {
		return errors.Wrapf(ErrIO, "writing %s: %v", path, err)
	}

	if w == writerImaging {
		return saveStd(path, img.ToNRGBA())
	}

	mat, err := img.ToMat(BGR)

	if err != nil {
		return errors.Wrapf(ErrIO, "writing %s: %v", path, err)
	}

	defer mat.Close()

	return writeMat(path, mat)
}

// SaveMask writes the mask as a single channel image where foreground is
// white and background black
func SaveMask(path string, mask Mask) error {

	w, err := outputWriter(path)

	if err != nil {
		return err
	}

	if len(mask.Data) != mask.Width*mask.Height || len(mask.Data) == 0 {
		return errors.Wrapf(ErrIO, "writing %s: invalid mask %s", path, mask.Shape())
	}

	if w == writerImaging {
		gray := &image.Gray{
			Pix:    mask.Data,
			Stride: mask.Width,
			Rect:   image.Rect(0, 0, mask.Width, mask.Height),
		}

		return saveStd(path, gray)
	}

	mat, err := mask.ToMat()

	if err != nil {
		return errors.Wrapf(ErrIO, "writing %s: %v", path, err)
	}

	defer mat.Close()

	return writeMat(path, mat)
}

// SaveCutout writes an RGBA cutout produced by Cutout.  Use a format with an
// alpha channel such as PNG, the alpha is flattened onto black otherwise.
func SaveCutout(path string, cutout *image.NRGBA) error {

	if _, err := outputWriter(path); err != nil {
		return err
	}

	ext := strings.ToLower(filepath.Ext(path))

	if ext == ".jpg" || ext == ".jpeg" || ext == ".bmp" {
		flat := imaging.New(cutout.Bounds().Dx(), cutout.Bounds().Dy(), color.Black)
		return saveStd(path, imaging.Overlay(flat, cutout, image.Pt(0, 0), 1.0))
	}

	return saveStd(path, cutout)
}

// writeMat encodes mat with OpenCV
func writeMat(path string, mat gocv.Mat) error {

	if ok := gocv.IMWrite(path, mat); !ok {
		return errors.Wrapf(ErrIO, "failed to write %s", path)
	}

	return nil
}

// saveStd encodes a standard library image with imaging
func saveStd(path string, img image.Image) error {

	if err := imaging.Save(img, path); err != nil {
		return errors.Wrapf(ErrIO, "writing %s: %v", path, err)
	}

	return nil
}
