package rknn

/*
#include "rknn_api.h"
#include <stdlib.h>
#include <string.h>
*/
import "C"
import (
	"unsafe"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"gocv.io/x/gocv"
)

// Output is one model output tensor copied into Go memory.  Either Int8 or
// Float is populated depending on the tensor type and the runtime's
// wantFloat setting.
type Output struct {
	// Index is the output tensor index
	Index uint32
	// Attr are the tensor attributes reported by the model
	Attr TensorAttr
	// Int8 holds quantized data when outputs are not converted to float
	Int8 []int8
	// Float holds float32 data, or FP16 data converted to float32
	Float []float32
}

// Inference runs the model on a single image which must already be resized
// to the model input dimensions.  The outputs are copied into Go memory and
// the C buffers released before returning.
func (r *Runtime) Inference(mat gocv.Mat) ([]Output, error) {

	// make mat continuous
	if !mat.IsContinuous() {
		mat = mat.Clone()
		defer mat.Close()
	}

	data, err := mat.DataPtrUint8()

	if err != nil {
		return nil, errors.Wrap(err, "error getting data pointer to Mat")
	}

	if len(data) == 0 {
		return nil, errors.New("inference input Mat is empty")
	}

	input := C.rknn_input{
		index:        0,
		buf:          unsafe.Pointer(&data[0]),
		size:         C.uint32_t(len(data)),
		pass_through: 0,
		_type:        C.rknn_tensor_type(TensorUint8),
		fmt:          C.rknn_tensor_format(TensorNHWC),
	}

	ret := C.rknn_inputs_set(r.ctx, 1, &input)

	if ret != C.RKNN_SUCC {
		return nil, callError("rknn_inputs_set", ret)
	}

	ret = C.rknn_run(r.ctx, nil)

	if ret < 0 {
		return nil, callError("rknn_run", ret)
	}

	return r.getOutputs()
}

// getOutputs wraps C.rknn_outputs_get, copies every buffer into an Output and
// releases the C buffers with C.rknn_outputs_release
func (r *Runtime) getOutputs() (outs []Output, err error) {

	n := r.ioNum.NumberOutput
	cOutputs := make([]C.rknn_output, n)

	wantFloat := C.uint8_t(0)

	if r.wantFloat {
		wantFloat = 1
	}

	for idx := range cOutputs {
		cOutputs[idx].index = C.uint32_t(idx)
		cOutputs[idx].want_float = wantFloat
	}

	ret := C.rknn_outputs_get(r.ctx, C.uint32_t(n),
		(*C.rknn_output)(unsafe.Pointer(&cOutputs[0])), nil)

	if ret < 0 {
		return nil, callError("rknn_outputs_get", ret)
	}

	defer func() {
		ret := C.rknn_outputs_release(r.ctx, C.uint32_t(n),
			(*C.rknn_output)(unsafe.Pointer(&cOutputs[0])))

		if ret != C.RKNN_SUCC {
			err = multierr.Append(err, callError("rknn_outputs_release", ret))
		}
	}()

	outs = make([]Output, n)

	for i, cOut := range cOutputs {
		size := int(cOut.size)

		outs[i] = Output{
			Index: uint32(cOut.index),
			Attr:  r.outputAttrs[i],
		}

		switch {
		case cOut.want_float == 1:
			buf := unsafe.Slice((*float32)(cOut.buf), size/4)
			outs[i].Float = append([]float32(nil), buf...)

		case r.outputAttrs[i].Type == TensorFloat16:
			// some models mix int8 and fp16 output tensors
			buf := unsafe.Slice((*uint16)(cOut.buf), size/2)
			outs[i].Float = float16ToFloat32(buf)

		default:
			buf := unsafe.Slice((*int8)(cOut.buf), size)
			outs[i].Int8 = append([]int8(nil), buf...)
		}
	}

	return outs, nil
}
