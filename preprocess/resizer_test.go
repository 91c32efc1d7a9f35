package preprocess

import (
	"image/color"
	"testing"

	"go.viam.com/test"
	"gocv.io/x/gocv"
)

var (
	black = color.RGBA{R: 0, G: 0, B: 0, A: 255}
)

func TestLetterBoxResize(t *testing.T) {

	tests := []struct {
		srcWidth      int
		srcHeight     int
		resizeWidth   int
		resizeHeight  int
		expectedXPad  int
		expectedYPad  int
		expectedScale float32
	}{
		{1280, 720, 640, 640, 0, 140, 0.50},
		{800, 1000, 640, 640, 64, 0, 0.64},
		{800, 800, 640, 640, 0, 0, 0.8},
	}

	for _, tc := range tests {
		img := gocv.NewMatWithSize(tc.srcHeight, tc.srcWidth, gocv.MatTypeCV8UC3)
		resizedImg := gocv.NewMat()
		resizer := NewResizer(tc.srcWidth, tc.srcHeight, tc.resizeWidth, tc.resizeHeight)

		resizer.LetterBoxResize(img, &resizedImg, black)

		test.That(t, resizer.XPad(), test.ShouldEqual, tc.expectedXPad)
		test.That(t, resizer.YPad(), test.ShouldEqual, tc.expectedYPad)
		test.That(t, resizer.ScaleFactor(), test.ShouldEqual, tc.expectedScale)
		test.That(t, resizedImg.Cols(), test.ShouldEqual, tc.resizeWidth)
		test.That(t, resizedImg.Rows(), test.ShouldEqual, tc.resizeHeight)

		img.Close()
		resizedImg.Close()
		resizer.Close()
	}
}

func TestReverseCoordinates(t *testing.T) {
	resizer := NewResizer(1280, 720, 640, 640)
	defer resizer.Close()

	// y padding of 140 and scale of 0.5
	test.That(t, resizer.ReverseX(320), test.ShouldEqual, 640)
	test.That(t, resizer.ReverseY(140), test.ShouldEqual, 0)
	test.That(t, resizer.ReverseY(320), test.ShouldEqual, 360)

	// coordinates inside the padding clamp to the image edge
	test.That(t, resizer.ReverseY(10), test.ShouldEqual, 0)
	test.That(t, resizer.ReverseY(630), test.ShouldEqual, 720)
}

func TestReverseMask(t *testing.T) {
	// 4x2 source letterboxed into 4x4, one row of padding top and bottom
	resizer := NewResizer(4, 2, 4, 4)
	defer resizer.Close()

	test.That(t, resizer.YPad(), test.ShouldEqual, 1)

	mask := []uint8{
		0, 0, 0, 0,
		255, 0, 0, 255,
		0, 255, 255, 0,
		0, 0, 0, 0,
	}

	out, err := resizer.ReverseMask(mask)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, out, test.ShouldResemble, []uint8{
		255, 0, 0, 255,
		0, 255, 255, 0,
	})

	_, err = resizer.ReverseMask(make([]uint8, 3))
	test.That(t, err, test.ShouldNotBeNil)
}
