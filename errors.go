package tuplex

import (
	"errors"
	"fmt"

	"github.com/soumenms2015/tuplex/sample"
	"github.com/soumenms2015/tuplex/transcode"
	"github.com/soumenms2015/tuplex/types"
)

var (
	// ErrEmptyInput is returned when there are no records to convert.
	ErrEmptyInput = errors.New("empty input")

	// ErrInterrupted is returned when a pending cancellation halted the
	// conversion. No partial dataset is produced.
	ErrInterrupted = transcode.ErrInterrupted

	// ErrSchemaInference is returned when no usable schema could be
	// derived from the sample.
	ErrSchemaInference = sample.ErrSchemaInference
)

// ErrUnsupportedType indicates a majority type that cannot be
// transferred to the encoded row format.
type ErrUnsupportedType struct {
	Type types.Type
}

func (e *ErrUnsupportedType) Error() string {
	return fmt.Sprintf("unsupported type '%s' found, could not transfer data", e.Type)
}
