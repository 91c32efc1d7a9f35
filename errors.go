package segmask

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	// ErrFileNotFound is returned when an input path does not resolve to a
	// readable file
	ErrFileNotFound = errors.New("file not found")
	// ErrShapeMismatch is returned when a mask and image (or two masks) do
	// not share the same width and height
	ErrShapeMismatch = errors.New("shape mismatch")
	// ErrIO is returned when an image can not be decoded or written
	ErrIO = errors.New("io error")
	// ErrModel matches every failure raised by a Segmenter
	ErrModel = errors.New("model error")
)

// ShapeError describes which value broke the shape invariant
type ShapeError struct {
	// Index of the offending mask, or -1 when the mismatch is between a
	// single mask and an image
	Index int
	Want  Shape
	Got   Shape
}

func (e *ShapeError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("%s: want %s, got %s", ErrShapeMismatch, e.Want, e.Got)
	}

	return fmt.Sprintf("%s: mask %d want %s, got %s", ErrShapeMismatch,
		e.Index, e.Want, e.Got)
}

// Is lets errors.Is(err, ErrShapeMismatch) match a ShapeError
func (e *ShapeError) Is(target error) bool {
	return target == ErrShapeMismatch
}

// ModelError wraps a failure from the segmentation model unchanged
type ModelError struct {
	Err error
}

func (e *ModelError) Error() string {
	return fmt.Sprintf("%s: %v", ErrModel, e.Err)
}

// Unwrap returns the original model failure
func (e *ModelError) Unwrap() error {
	return e.Err
}

// Is lets errors.Is(err, ErrModel) match a ModelError
func (e *ModelError) Is(target error) bool {
	return target == ErrModel
}

// NewModelError wraps err as a ModelError, returning nil for a nil err and
// err itself if it is already a ModelError
func NewModelError(err error) error {
	if err == nil {
		return nil
	}

	var me *ModelError

	if errors.As(err, &me) {
		return err
	}

	return &ModelError{Err: err}
}
