// Package transform converts between k-space and image space.
//
// Buffers are two-dimensional and column-major: element (x, y) of an
// nx by ny buffer lies at x + y*nx. The zero frequency of a centered
// buffer sits at (nx/2, ny/2).
package transform

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrTransformAlloc is returned when the scratch buffer for a
	// transform cannot be obtained.
	ErrTransformAlloc = errors.New("transform: cannot allocate transform buffer")

	// ErrShape is returned when a buffer does not hold nx*ny elements.
	ErrShape = errors.New("transform: buffer does not match extents")
)

// Complex is the set of element types the shifts operate on.
type Complex interface {
	complex64 | complex128
}

// checkExtents validates nx and ny and returns nx*ny.
func checkExtents(nx, ny int) (int, error) {
	if nx <= 0 || ny <= 0 {
		return 0, fmt.Errorf("%w: extents %dx%d", ErrTransformAlloc, nx, ny)
	}
	if nx > math.MaxInt/ny {
		return 0, fmt.Errorf("%w: extents %dx%d overflow", ErrTransformAlloc, nx, ny)
	}
	return nx * ny, nil
}

func checkBuffer(n, nx, ny int) error {
	size, err := checkExtents(nx, ny)
	if err != nil {
		return err
	}
	if n != size {
		return fmt.Errorf("%w: %d elements for %dx%d", ErrShape, n, nx, ny)
	}
	return nil
}

// FFTShift moves the zero frequency of a to the center by rotating each
// axis by floor(N/2).
func FFTShift[T Complex](a []T, nx, ny int) error {
	return circShift(a, nx, ny, nx/2, ny/2)
}

// IFFTShift undoes FFTShift by rotating each axis by ceil(N/2). For even
// extents it equals FFTShift.
func IFFTShift[T Complex](a []T, nx, ny int) error {
	return circShift(a, nx, ny, (nx+1)/2, (ny+1)/2)
}

// circShift rotates a in place so that element (x, y) moves to
// ((x+dx) mod nx, (y+dy) mod ny).
func circShift[T Complex](a []T, nx, ny, dx, dy int) error {
	if err := checkBuffer(len(a), nx, ny); err != nil {
		return err
	}
	tmp := make([]T, len(a))
	for y := 0; y < ny; y++ {
		row := ((y + dy) % ny) * nx
		for x := 0; x < nx; x++ {
			tmp[row+(x+dx)%nx] = a[x+y*nx]
		}
	}
	copy(a, tmp)
	return nil
}
