package mrrd

import (
	"errors"
	"fmt"

	"github.com/robert-malhotra/go-mrrd/transform"
)

var (
	ErrOpenFailed         = errors.New("mrrd: cannot open dataset")
	ErrNotFound           = errors.New("mrrd: not found")
	ErrOutOfRange         = errors.New("mrrd: index out of range")
	ErrTypeMismatch       = errors.New("mrrd: element type mismatch")
	ErrSchemaMismatch     = errors.New("mrrd: schema mismatch")
	ErrShapeMismatch      = errors.New("mrrd: shape mismatch")
	ErrInvalidAcquisition = errors.New("mrrd: invalid acquisition")
	ErrWriteFailed        = errors.New("mrrd: write failed")
	ErrClosed             = errors.New("mrrd: dataset is closed")

	// ErrTransformAllocFailed is returned when the FFT scratch buffer cannot
	// be obtained.
	ErrTransformAllocFailed = transform.ErrTransformAlloc
)

func writeFailed(what string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrWriteFailed, what, err)
}
