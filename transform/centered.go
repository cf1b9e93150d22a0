package transform

import "fmt"

// Centered2D transforms a in place with the zero frequency at the center
// of both the input and the output: fftshift, forward DFT, fftshift. It
// turns an image into centered k-space.
func Centered2D(backend DFT2, a []complex64, nx, ny int) error {
	return centered(backend, a, nx, ny, false)
}

// InverseCentered2D undoes Centered2D: ifftshift, inverse DFT,
// ifftshift.
func InverseCentered2D(backend DFT2, a []complex64, nx, ny int) error {
	return centered(backend, a, nx, ny, true)
}

func centered(backend DFT2, a []complex64, nx, ny int, inverse bool) error {
	size, err := checkExtents(nx, ny)
	if err != nil {
		return err
	}
	if len(a) != size {
		return fmt.Errorf("%w: %d elements for %dx%d", ErrShape, len(a), nx, ny)
	}

	shift := FFTShift[complex64]
	if inverse {
		shift = IFFTShift[complex64]
	}
	if err := shift(a, nx, ny); err != nil {
		return err
	}

	buf := make([]complex128, size)
	for i, v := range a {
		buf[i] = complex128(v)
	}
	if inverse {
		err = backend.Inverse(buf, buf, nx, ny)
	} else {
		err = backend.Forward(buf, buf, nx, ny)
	}
	if err != nil {
		return err
	}
	for i, v := range buf {
		a[i] = complex64(v)
	}
	return shift(a, nx, ny)
}
