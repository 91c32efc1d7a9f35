package segmask

import (
	"testing"

	"github.com/pkg/errors"
	"go.viam.com/test"
)

func TestModelError(t *testing.T) {
	test.That(t, NewModelError(nil), test.ShouldBeNil)

	cause := errors.New("inference failed")
	err := NewModelError(cause)

	test.That(t, err, test.ShouldWrap, ErrModel)
	test.That(t, errors.Unwrap(err), test.ShouldEqual, cause)
	test.That(t, err.Error(), test.ShouldContainSubstring, "inference failed")

	// wrapping twice keeps a single ModelError
	again := NewModelError(errors.Wrap(err, "segment"))
	var me *ModelError
	test.That(t, errors.As(again, &me), test.ShouldBeTrue)
	test.That(t, me.Err, test.ShouldEqual, cause)
}

func TestShapeErrorMessage(t *testing.T) {
	err := &ShapeError{Index: 2, Want: Shape{2, 2}, Got: Shape{3, 3}}
	test.That(t, err.Error(), test.ShouldContainSubstring, "mask 2")
	test.That(t, err.Error(), test.ShouldContainSubstring, "3x3")
	test.That(t, errors.Is(err, ErrShapeMismatch), test.ShouldBeTrue)
	test.That(t, errors.Is(err, ErrIO), test.ShouldBeFalse)
}
