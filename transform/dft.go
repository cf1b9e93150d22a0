package transform

import (
	"fmt"

	"gonum.org/v1/gonum/dsp/fourier"
)

// DFT2 computes two-dimensional discrete Fourier transforms of
// column-major buffers. dst and src may be the same slice.
type DFT2 interface {
	// Forward computes the unnormalized forward transform.
	Forward(dst, src []complex128, nx, ny int) error
	// Inverse computes the inverse transform scaled by 1/(nx*ny).
	Inverse(dst, src []complex128, nx, ny int) error
	// Close releases the plans held by the backend.
	Close() error
}

// GonumDFT2 is a DFT2 built from one-dimensional gonum FFTs applied along
// each axis. Plans are kept per length until Close. It is not safe for
// concurrent use.
type GonumDFT2 struct {
	plans map[int]*fourier.CmplxFFT
	col   []complex128
}

// NewGonumDFT2 returns an empty backend.
func NewGonumDFT2() *GonumDFT2 {
	return &GonumDFT2{plans: make(map[int]*fourier.CmplxFFT)}
}

func (g *GonumDFT2) plan(n int) *fourier.CmplxFFT {
	if g.plans == nil {
		g.plans = make(map[int]*fourier.CmplxFFT)
	}
	p, ok := g.plans[n]
	if !ok {
		p = fourier.NewCmplxFFT(n)
		g.plans[n] = p
	}
	return p
}

// Forward implements DFT2.
func (g *GonumDFT2) Forward(dst, src []complex128, nx, ny int) error {
	return g.transform(dst, src, nx, ny, false)
}

// Inverse implements DFT2.
func (g *GonumDFT2) Inverse(dst, src []complex128, nx, ny int) error {
	if err := g.transform(dst, src, nx, ny, true); err != nil {
		return err
	}
	scale := complex(1/float64(nx*ny), 0)
	for i := range dst {
		dst[i] *= scale
	}
	return nil
}

// Close drops the cached plans. The backend may be used again afterwards.
func (g *GonumDFT2) Close() error {
	g.plans = nil
	g.col = nil
	return nil
}

func (g *GonumDFT2) transform(dst, src []complex128, nx, ny int, inverse bool) error {
	if err := checkBuffer(len(src), nx, ny); err != nil {
		return err
	}
	if len(dst) != len(src) {
		return fmt.Errorf("%w: destination holds %d elements, source %d", ErrShape, len(dst), len(src))
	}
	copy(dst, src)

	apply := func(p *fourier.CmplxFFT, v []complex128) {
		if inverse {
			p.Sequence(v, v)
		} else {
			p.Coefficients(v, v)
		}
	}

	rows := g.plan(nx)
	for y := 0; y < ny; y++ {
		apply(rows, dst[y*nx:(y+1)*nx])
	}

	cols := g.plan(ny)
	if cap(g.col) < ny {
		g.col = make([]complex128, ny)
	}
	col := g.col[:ny]
	for x := 0; x < nx; x++ {
		for y := range col {
			col[y] = dst[x+y*nx]
		}
		apply(cols, col)
		for y, v := range col {
			dst[x+y*nx] = v
		}
	}
	return nil
}
