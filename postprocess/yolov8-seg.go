package postprocess

import (
	"github.com/pkg/errors"
	"github.com/segmask/go-segmask/preprocess"
)

// YOLOv8Seg defines the struct for YOLOv8Seg model inference post processing
type YOLOv8Seg struct {
	// Params are the Model configuration parameters
	Params YOLOv8SegParams
}

// YOLOv8SegParams defines the struct containing the YOLOv8Seg parameters to use
// for post processing operations
type YOLOv8SegParams struct {
	// BoxThreshold is the minimum probability score required for a bounding box
	// region to be considered for processing
	BoxThreshold float32
	// NMSThreshold is the Non-Maximum Suppression threshold used for defining
	// the maximum allowed Intersection Over Union (IoU) between two
	// bounding boxes for both to be kept
	NMSThreshold float32
	// ObjectClassNum is the number of different object classes the Model has
	// been trained with
	ObjectClassNum int
	// MaxObjectNumber is the maximum number of objects detected that can be
	// returned
	MaxObjectNumber int
	// PrototypeChannel is the number of channels in the Prototype tensor
	// used for generating the Segment Mask
	PrototypeChannel int
	// PrototypeHeight is the spatial height of the Prototype tensor
	PrototypeHeight int
	// PrototypeWeight is the spatial width of the Prototype tensor
	PrototypeWeight int
}

// YOLOv8SegCOCOParams returns an instance of YOLOv8SegParams configured with
// default values for a Model trained on the COCO dataset featuring:
// - Object Classes: 80
// - Box Threshold: 0.25
// - NMS Threshold: 0.45
// - Maximum Object Number: 64
// - PrototypeChannel: 32
// - PrototypeHeight: 160
// - PrototypeWeight: 160
func YOLOv8SegCOCOParams() YOLOv8SegParams {
	return YOLOv8SegParams{
		BoxThreshold:     0.25,
		NMSThreshold:     0.45,
		ObjectClassNum:   80,
		MaxObjectNumber:  64,
		PrototypeChannel: 32,
		PrototypeHeight:  160,
		PrototypeWeight:  160,
	}
}

// NewYOLOv8Seg returns an instance of the YOLOv8Seg post processor
func NewYOLOv8Seg(p YOLOv8SegParams) *YOLOv8Seg {
	return &YOLOv8Seg{
		Params: p,
	}
}

// SegmentResult holds the detected objects and one binary mask per object
// at the source image resolution, where 255 marks object pixels
type SegmentResult struct {
	DetectResults []DetectResult
	Masks         [][]uint8
}

// candidate is an object which passed the box threshold, in model input
// coordinates
type candidate struct {
	x1, y1, x2, y2 float32
	class          int
	score          float32
	coeffs         []float32
}

// strideData accumulates candidates across all output branches
type strideData struct {
	// filterBoxes are stored as x, y, w, h
	filterBoxes    []float32
	objProbs       []float32
	classID        []int
	filterSegments [][]float32
}

// Segment runs object detection over the model outputs then builds the
// instance mask of every object kept after NMS.  The outputs are expected in
// the RKNN Model Zoo layout: for each stride a box, score, score sum and
// mask coefficient tensor, followed by the prototype tensor.
func (y *YOLOv8Seg) Segment(outputs []Tensor,
	resizer *preprocess.Resizer) (SegmentResult, error) {

	if len(outputs) < 5 || (len(outputs)-1)%4 != 0 {
		return SegmentResult{}, errors.Errorf("unexpected number of output tensors %d", len(outputs))
	}

	proto := outputs[len(outputs)-1]

	if err := proto.validate("prototype"); err != nil {
		return SegmentResult{}, err
	}

	if proto.Channels() != y.Params.PrototypeChannel ||
		proto.Height() != y.Params.PrototypeHeight ||
		proto.Width() != y.Params.PrototypeWeight {
		return SegmentResult{}, errors.Errorf("prototype tensor dims %v do not match %dx%dx%d",
			proto.Dims, y.Params.PrototypeChannel, y.Params.PrototypeHeight, y.Params.PrototypeWeight)
	}

	objs, err := y.detect(outputs[:len(outputs)-1], resizer.DestWidth(), resizer.DestHeight())

	if err != nil {
		return SegmentResult{}, err
	}

	res := SegmentResult{
		DetectResults: make([]DetectResult, len(objs)),
	}

	for i, o := range objs {
		res.DetectResults[i] = DetectResult{
			Class: o.class,
			Box: BoxRect{
				Left:   resizer.ReverseX(int(o.x1)),
				Top:    resizer.ReverseY(int(o.y1)),
				Right:  resizer.ReverseX(int(o.x2)),
				Bottom: resizer.ReverseY(int(o.y2)),
			},
			Probability: o.score,
		}
	}

	res.Masks, err = y.instanceMasks(objs, proto, resizer)

	if err != nil {
		return SegmentResult{}, err
	}

	return res, nil
}

// detect decodes every output branch, sorts candidates by score and applies
// per class NMS, returning at most MaxObjectNumber objects
func (y *YOLOv8Seg) detect(branches []Tensor, modelW, modelH int) ([]candidate, error) {

	data := &strideData{}
	validCount := 0

	for b := 0; b < len(branches); b += 4 {
		n, err := y.processStride(branches[b:b+4], data, modelH)

		if err != nil {
			return nil, errors.Wrapf(err, "error processing output branch %d", b/4)
		}

		validCount += n
	}

	if validCount <= 0 {
		// no object detected
		return nil, nil
	}

	// indexArray keeps the index of detected objects held in data
	indexArray := make([]int, validCount)

	for i := range indexArray {
		indexArray[i] = i
	}

	quickSortIndiceInverse(data.objProbs, 0, validCount-1, indexArray)

	// create a unique set of class IDs
	classSet := make(map[int]bool)

	for _, id := range data.classID {
		classSet[id] = true
	}

	for c := range classSet {
		nms(validCount, data.filterBoxes, data.classID, indexArray, c,
			y.Params.NMSThreshold)
	}

	objs := make([]candidate, 0)

	for i := 0; i < validCount; i++ {
		if indexArray[i] == -1 || len(objs) >= y.Params.MaxObjectNumber {
			continue
		}

		n := indexArray[i]

		x1 := data.filterBoxes[n*4+0]
		y1 := data.filterBoxes[n*4+1]
		x2 := x1 + data.filterBoxes[n*4+2]
		y2 := y1 + data.filterBoxes[n*4+3]

		objs = append(objs, candidate{
			x1:     clamp(x1, 0, modelW),
			y1:     clamp(y1, 0, modelH),
			x2:     clamp(x2, 0, modelW),
			y2:     clamp(y2, 0, modelH),
			class:  data.classID[n],
			score:  data.objProbs[i],
			coeffs: data.filterSegments[n],
		})
	}

	return objs, nil
}

// processStride decodes one output branch of box, score, score sum and mask
// coefficient tensors, returning the number of candidates added to data
func (y *YOLOv8Seg) processStride(t []Tensor, data *strideData,
	modelH int) (int, error) {

	boxTensor, scoreTensor, scoreSumTensor, segTensor := t[0], t[1], t[2], t[3]

	for i, name := range []string{"box", "score", "score sum", "segment"} {
		if err := t[i].validate(name); err != nil {
			return 0, err
		}
	}

	gridH := boxTensor.Height()
	gridW := boxTensor.Width()
	gridLen := gridH * gridW
	stride := modelH / gridH

	if stride == 0 {
		return 0, errors.Errorf("box tensor grid %dx%d exceeds model input height %d",
			gridW, gridH, modelH)
	}

	if scoreTensor.Channels() < y.Params.ObjectClassNum {
		return 0, errors.Errorf("score tensor has %d classes, expected %d",
			scoreTensor.Channels(), y.Params.ObjectClassNum)
	}

	if segTensor.Channels() < y.Params.PrototypeChannel {
		return 0, errors.Errorf("segment tensor has %d channels, expected %d",
			segTensor.Channels(), y.Params.PrototypeChannel)
	}

	// distribution focal loss (DFL) bins per box side
	dflLen := boxTensor.Channels() / 4

	if dflLen < 1 {
		return 0, errors.Errorf("box tensor has %d channels", boxTensor.Channels())
	}

	validCount := 0
	beforeDFL := make([]float32, 4*dflLen)

	for i := 0; i < gridH; i++ {
		for j := 0; j < gridW; j++ {

			offset := i*gridW + j
			maxClassID := -1

			// quick filtering using score sum
			if scoreSumTensor.At(offset) < y.Params.BoxThreshold {
				continue
			}

			maxScore := float32(0)

			for c := 0; c < y.Params.ObjectClassNum; c++ {
				score := scoreTensor.At(offset + c*gridLen)

				if score > y.Params.BoxThreshold && score > maxScore {
					maxScore = score
					maxClassID = c
				}
			}

			if maxClassID < 0 {
				continue
			}

			coeffs := make([]float32, y.Params.PrototypeChannel)

			for k := range coeffs {
				coeffs[k] = segTensor.At(offset + k*gridLen)
			}

			for k := 0; k < dflLen*4; k++ {
				beforeDFL[k] = boxTensor.At(offset + k*gridLen)
			}

			box := computeDFL(beforeDFL, dflLen)

			x1 := (-box[0] + float32(j) + 0.5) * float32(stride)
			y1 := (-box[1] + float32(i) + 0.5) * float32(stride)
			x2 := (box[2] + float32(j) + 0.5) * float32(stride)
			y2 := (box[3] + float32(i) + 0.5) * float32(stride)

			data.filterBoxes = append(data.filterBoxes, x1, y1, x2-x1, y2-y1)
			data.filterSegments = append(data.filterSegments, coeffs)
			data.objProbs = append(data.objProbs, maxScore)
			data.classID = append(data.classID, maxClassID)
			validCount++
		}
	}

	return validCount, nil
}
