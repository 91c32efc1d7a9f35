package rknn

/*
#cgo LDFLAGS: -lrknnrt
#include "rknn_api.h"
#include <stdlib.h>
*/
import "C"
import (
	"os"
	"strconv"
	"strings"
	"unsafe"

	"github.com/pkg/errors"
)

// CoreMask wraps C.rknn_core_mask
type CoreMask int

// rknn_core_mask values used to target which cores on the NPU the model is run
// on. Auto will pick an idle core, the others pin the model to a specific core
// or combination of cores.
const (
	NPUCoreAuto    CoreMask = C.RKNN_NPU_CORE_AUTO
	NPUCore0       CoreMask = C.RKNN_NPU_CORE_0
	NPUCore1       CoreMask = C.RKNN_NPU_CORE_1
	NPUCore2       CoreMask = C.RKNN_NPU_CORE_2
	NPUCore01      CoreMask = C.RKNN_NPU_CORE_0_1
	NPUCore012     CoreMask = C.RKNN_NPU_CORE_0_1_2
	NPUSkipSetCore CoreMask = 9999
)

// platformCore is the NPU core mask used for each supported Rockchip platform.
// rknn_set_core_mask is only supported on the multi core NPUs.
var platformCore = map[string]CoreMask{
	"rk3588": NPUCoreAuto,
	"rk3582": NPUCoreAuto,
	"rk3576": NPUCoreAuto,
	"rk3568": NPUSkipSetCore,
	"rk3566": NPUSkipSetCore,
	"rk3562": NPUSkipSetCore,
}

// ErrorCode is a return code of the C API
type ErrorCode int

// error code values returned by the C API
const (
	Success                ErrorCode = C.RKNN_SUCC
	ErrFail                ErrorCode = C.RKNN_ERR_FAIL
	ErrTimeout             ErrorCode = C.RKNN_ERR_TIMEOUT
	ErrDeviceUnavailable   ErrorCode = C.RKNN_ERR_DEVICE_UNAVAILABLE
	ErrMallocFail          ErrorCode = C.RKNN_ERR_MALLOC_FAIL
	ErrParamInvalid        ErrorCode = C.RKNN_ERR_PARAM_INVALID
	ErrModelInvalid        ErrorCode = C.RKNN_ERR_MODEL_INVALID
	ErrCtxInvalid          ErrorCode = C.RKNN_ERR_CTX_INVALID
	ErrInputInvalid        ErrorCode = C.RKNN_ERR_INPUT_INVALID
	ErrOutputInvalid       ErrorCode = C.RKNN_ERR_OUTPUT_INVALID
	ErrDeviceMismatch      ErrorCode = C.RKNN_ERR_DEVICE_UNMATCH
	ErrPreCompiledModel    ErrorCode = C.RKNN_ERR_INCOMPATILE_PRE_COMPILE_MODEL
	ErrOptimizationVersion ErrorCode = C.RKNN_ERR_INCOMPATILE_OPTIMIZATION_LEVEL_VERSION
	ErrPlatformMismatch    ErrorCode = C.RKNN_ERR_TARGET_PLATFORM_UNMATCH
)

// String returns a readable description of the error code
func (e ErrorCode) String() string {
	switch e {
	case Success:
		return "execution successful"
	case ErrFail:
		return "execution failed"
	case ErrTimeout:
		return "execution timed out"
	case ErrDeviceUnavailable:
		return "device is unavailable"
	case ErrMallocFail:
		return "C memory allocation failed"
	case ErrParamInvalid:
		return "parameter is invalid"
	case ErrModelInvalid:
		return "model file is invalid"
	case ErrCtxInvalid:
		return "context is invalid"
	case ErrInputInvalid:
		return "input is invalid"
	case ErrOutputInvalid:
		return "output is invalid"
	case ErrDeviceMismatch:
		return "device mismatch, please update rknn sdk and npu driver/firmware"
	case ErrPreCompiledModel:
		return "the RKNN model uses pre_compile mode, but is not compatible with current driver"
	case ErrOptimizationVersion:
		return "the RKNN model optimization level is not compatible with current driver"
	case ErrPlatformMismatch:
		return "the RKNN model target platform is not compatible with the current platform"
	default:
		return "unknown error code " + strconv.Itoa(int(e))
	}
}

// callError formats a failed C API call
func callError(fn string, ret C.int) error {
	return errors.Errorf("C.%s failed with code %d, error: %s", fn, int(ret),
		ErrorCode(ret).String())
}

// Runtime is a loaded RKNN model ready for inference
type Runtime struct {
	// ctx is the C runtime context
	ctx C.rknn_context
	// ioNum caches the number of model input/output tensors
	ioNum IONumber
	// inputAttrs caches the input tensor attributes of the model
	inputAttrs []TensorAttr
	// outputAttrs caches the output tensor attributes of the model
	outputAttrs []TensorAttr
	// wantFloat requests outputs converted to float32 by the runtime rather
	// than left as quantized int8
	wantFloat bool
}

// NewRuntime loads the RKNN compiled model file and pins it to the given NPU
// cores
func NewRuntime(modelFile string, core CoreMask) (*Runtime, error) {

	r := &Runtime{}

	if err := r.init(modelFile); err != nil {
		return nil, err
	}

	if core != NPUSkipSetCore {
		if err := r.setCoreMask(core); err != nil {
			r.Close()
			return nil, err
		}
	}

	var err error

	if r.ioNum, err = r.QueryModelIONumber(); err != nil {
		r.Close()
		return nil, err
	}

	if r.inputAttrs, err = r.QueryInputTensors(); err != nil {
		r.Close()
		return nil, err
	}

	if r.outputAttrs, err = r.QueryOutputTensors(); err != nil {
		r.Close()
		return nil, err
	}

	return r, nil
}

// NewRuntimeByPlatform loads the model with the NPU core mask suited to the
// given platform, one of rk3562|rk3566|rk3568|rk3576|rk3582|rk3588
func NewRuntimeByPlatform(platform string, modelFile string) (*Runtime, error) {

	core, ok := platformCore[strings.ToLower(strings.TrimSpace(platform))]

	if !ok {
		return nil, errors.Errorf("unknown platform: %s", platform)
	}

	return NewRuntime(modelFile, core)
}

// init wraps C.rknn_init
func (r *Runtime) init(modelFile string) error {

	// check file exists in Go, before passing to C
	info, err := os.Stat(modelFile)

	if err != nil {
		return errors.Wrapf(err, "model file does not exist at %s", modelFile)
	}

	if info.IsDir() {
		return errors.Errorf("model file %s is a directory", modelFile)
	}

	cModelFile := C.CString(modelFile)
	defer C.free(unsafe.Pointer(cModelFile))

	ret := C.rknn_init(&r.ctx, unsafe.Pointer(cModelFile), 0, 0, nil)

	if ret != C.RKNN_SUCC {
		return callError("rknn_init", ret)
	}

	return nil
}

// setCoreMask wraps C.rknn_set_core_mask
func (r *Runtime) setCoreMask(mask CoreMask) error {

	ret := C.rknn_set_core_mask(r.ctx, C.rknn_core_mask(mask))

	if ret != C.RKNN_SUCC {
		return callError("rknn_set_core_mask", ret)
	}

	return nil
}

// Close wraps C.rknn_destroy which unloads the model and releases all C
// resources
func (r *Runtime) Close() error {

	ret := C.rknn_destroy(r.ctx)

	if ret != C.RKNN_SUCC {
		return callError("rknn_destroy", ret)
	}

	return nil
}

// SetWantFloat sets whether output tensors are converted to float32 by the
// runtime or left as quantized int8 for post processing
func (r *Runtime) SetWantFloat(val bool) {
	r.wantFloat = val
}

// SDKVersion represents the C.rknn_sdk_version struct
type SDKVersion struct {
	DriverVersion string
	APIVersion    string
}

// SDKVersion returns the RKNN API and driver versions
func (r *Runtime) SDKVersion() (SDKVersion, error) {

	var cSdkVer C.rknn_sdk_version

	ret := C.rknn_query(
		r.ctx,
		C.RKNN_QUERY_SDK_VERSION,
		unsafe.Pointer(&cSdkVer),
		C.uint(C.sizeof_rknn_sdk_version),
	)

	if ret != C.RKNN_SUCC {
		return SDKVersion{}, callError("rknn_query", ret)
	}

	return SDKVersion{
		DriverVersion: C.GoString(&(cSdkVer.drv_version[0])),
		APIVersion:    C.GoString(&(cSdkVer.api_version[0])),
	}, nil
}

// InputSize returns the width, height and channels of the first input
// tensor, accounting for NCHW or NHWC layout
func (r *Runtime) InputSize() (width, height, channels int) {

	attr := r.inputAttrs[0]

	if attr.Fmt == TensorNHWC {
		return int(attr.Dims[2]), int(attr.Dims[1]), int(attr.Dims[3])
	}

	return int(attr.Dims[3]), int(attr.Dims[2]), int(attr.Dims[1])
}
