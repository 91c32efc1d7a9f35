package rknn

import (
	"fmt"
	"io"

	"github.com/pkg/errors"
)

// Query writes the SDK version and the model's input and output tensor
// attributes to w in human readable form
func (r *Runtime) Query(w io.Writer) error {

	ver, err := r.SDKVersion()

	if err != nil {
		return errors.Wrap(err, "error querying SDK version")
	}

	fmt.Fprintf(w, "Driver Version: %s, API Version: %s\n", ver.DriverVersion, ver.APIVersion)

	num, err := r.QueryModelIONumber()

	if err != nil {
		return errors.Wrap(err, "error querying IO numbers")
	}

	fmt.Fprintf(w, "Model Input Number: %d, Output Number: %d\n", num.NumberInput, num.NumberOutput)

	fmt.Fprintf(w, "Input tensors:\n")

	for _, attr := range r.inputAttrs {
		fmt.Fprintf(w, "  %s\n", attr)
	}

	fmt.Fprintf(w, "Output tensors:\n")

	for _, attr := range r.outputAttrs {
		fmt.Fprintf(w, "  %s\n", attr)
	}

	return nil
}
