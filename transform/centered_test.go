package transform

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// square returns the test phantom: ones strictly inside the middle half
// along x and the middle three quarters along y.
func square(nx, ny int) []complex64 {
	a := make([]complex64, nx*ny)
	for y := 0; y < ny; y++ {
		for x := 0; x < nx; x++ {
			if x > nx/4 && x < nx-nx/4 && y > ny/8 && y < ny-ny/8 {
				a[x+y*nx] = 1
			}
		}
	}
	return a
}

func TestCenteredDCAtCenter(t *testing.T) {
	const nx, ny = 16, 8
	a := make([]complex64, nx*ny)
	for i := range a {
		a[i] = 1
	}
	g := NewGonumDFT2()
	defer g.Close()
	require.NoError(t, Centered2D(g, a, nx, ny))

	want := make([]complex64, nx*ny)
	want[nx/2+(ny/2)*nx] = nx * ny
	assertClose(t, want, a, 1e-3)
}

func TestCenteredImpulseIsFlat(t *testing.T) {
	const nx, ny = 8, 6
	a := make([]complex64, nx*ny)
	a[nx/2+(ny/2)*nx] = 1

	g := NewGonumDFT2()
	defer g.Close()
	require.NoError(t, Centered2D(g, a, nx, ny))
	for i, v := range a {
		assert.InDelta(t, 1, real(v), 1e-6, "element %d", i)
		assert.InDelta(t, 0, imag(v), 1e-6, "element %d", i)
	}
}

func TestCenteredLinearity(t *testing.T) {
	const nx, ny = 12, 10
	x, y := square(nx, ny), make([]complex64, nx*ny)
	for i := range y {
		y[i] = complex(float32(i%7), float32(i%5))
	}
	const alpha, beta = 2, -3
	sum := make([]complex64, nx*ny)
	for i := range sum {
		sum[i] = alpha*x[i] + beta*y[i]
	}

	g := NewGonumDFT2()
	defer g.Close()
	require.NoError(t, Centered2D(g, x, nx, ny))
	require.NoError(t, Centered2D(g, y, nx, ny))
	require.NoError(t, Centered2D(g, sum, nx, ny))

	want := make([]complex64, nx*ny)
	for i := range want {
		want[i] = alpha*x[i] + beta*y[i]
	}
	assertClose(t, want, sum, 1e-3)
}

func TestInverseCenteredRecoversPhantom(t *testing.T) {
	for _, ext := range [][2]int{{256, 128}, {9, 7}} {
		nx, ny := ext[0], ext[1]
		a := square(nx, ny)
		g := NewGonumDFT2()
		require.NoError(t, Centered2D(g, a, nx, ny))
		require.NoError(t, InverseCentered2D(g, a, nx, ny))
		require.NoError(t, g.Close())
		assertClose(t, square(nx, ny), a, 1e-4)
	}
}

func TestCenteredErrors(t *testing.T) {
	g := NewGonumDFT2()
	defer g.Close()
	assert.ErrorIs(t, Centered2D(g, nil, 0, 0), ErrTransformAlloc)
	assert.ErrorIs(t, Centered2D(g, make([]complex64, 3), 2, 2), ErrShape)
}
