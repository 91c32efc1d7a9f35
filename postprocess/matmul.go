package postprocess

import (
	"image"

	"github.com/pkg/errors"
	"github.com/segmask/go-segmask/preprocess"
	"gocv.io/x/gocv"
	"gonum.org/v1/gonum/mat"
)

// protoMasks multiplies the mask coefficients of each object (N x C) by the
// prototype tensor (C x H*W) and binarizes the product, a positive sum is an
// object pixel.  Each returned mask is at prototype resolution.
func protoMasks(objs []candidate, proto Tensor) [][]uint8 {

	rows := len(objs)
	protoC := proto.Channels()
	protoLen := proto.Height() * proto.Width()

	coeffs := mat.NewDense(rows, protoC, nil)

	for i, o := range objs {
		for k := 0; k < protoC; k++ {
			coeffs.Set(i, k, float64(o.coeffs[k]))
		}
	}

	protoData := make([]float64, protoC*protoLen)

	for i := range protoData {
		protoData[i] = float64(proto.At(i))
	}

	var prod mat.Dense
	prod.Mul(coeffs, mat.NewDense(protoC, protoLen, protoData))

	masks := make([][]uint8, rows)

	for i := range masks {
		row := prod.RawRowView(i)
		m := make([]uint8, protoLen)

		for j, sum := range row {
			if sum > 0 {
				m[j] = 255
			}
		}

		masks[i] = m
	}

	return masks
}

// instanceMasks builds the mask of each object at source image resolution.
// The prototype mask is scaled to the model input size, cleared outside the
// object's bounding box then reversed out of the letterbox.
func (y *YOLOv8Seg) instanceMasks(objs []candidate, proto Tensor,
	resizer *preprocess.Resizer) ([][]uint8, error) {

	if len(objs) == 0 {
		return nil, nil
	}

	modelW := resizer.DestWidth()
	modelH := resizer.DestHeight()

	modelMat := gocv.NewMat()
	defer modelMat.Close()

	boxMask := make([]uint8, modelW*modelH)
	masks := make([][]uint8, len(objs))

	for b, pm := range protoMasks(objs, proto) {

		protoMat, err := gocv.NewMatFromBytes(proto.Height(), proto.Width(), gocv.MatTypeCV8U, pm)

		if err != nil {
			return nil, errors.Wrap(err, "error creating prototype mask Mat")
		}

		gocv.Resize(protoMat, &modelMat, image.Pt(modelW, modelH), 0, 0,
			gocv.InterpolationNearestNeighbor)
		protoMat.Close()

		full := modelMat.ToBytes()

		for i := range boxMask {
			boxMask[i] = 0
		}

		x1, y1 := int(objs[b].x1), int(objs[b].y1)
		x2, y2 := int(objs[b].x2), int(objs[b].y2)

		for yy := y1; yy < y2; yy++ {
			row := yy * modelW
			copy(boxMask[row+x1:row+x2], full[row+x1:row+x2])
		}

		masks[b], err = resizer.ReverseMask(boxMask)

		if err != nil {
			return nil, errors.Wrapf(err, "error reversing mask %d", b)
		}
	}

	return masks, nil
}
