// Package preview renders k-space and image magnitudes side by side as a
// PNG for a quick visual check of a demo run.
package preview

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"
	"math/cmplx"
	"os"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"gonum.org/v1/gonum/floats"
)

// PanelSize is the edge length of each square panel in pixels.
const PanelSize = 256

var ErrShape = errors.New("preview: buffer does not match extents")

// Magnitude maps a column-major nx by ny buffer to a grayscale image of
// |v| scaled so the largest value is white. With logScale the values are
// compressed with log(1+|v|) first.
func Magnitude(a []complex64, nx, ny int, logScale bool) (*image.Gray, error) {
	if nx <= 0 || ny <= 0 || len(a) != nx*ny {
		return nil, fmt.Errorf("%w: %d elements for %dx%d", ErrShape, len(a), nx, ny)
	}
	mag := make([]float64, len(a))
	for i, v := range a {
		m := cmplx.Abs(complex128(v))
		if logScale {
			m = math.Log1p(m)
		}
		mag[i] = m
	}
	if peak := floats.Max(mag); peak > 0 {
		floats.Scale(255/peak, mag)
	}

	img := image.NewGray(image.Rect(0, 0, nx, ny))
	for y := 0; y < ny; y++ {
		for x := 0; x < nx; x++ {
			img.SetGray(x, y, color.Gray{Y: uint8(math.Round(mag[x+y*nx]))})
		}
	}
	return img, nil
}

// SideBySide renders the log magnitude of kspace next to the magnitude of
// img, each resampled into a labelled PanelSize square.
func SideBySide(kspace, img []complex64, nx, ny int) (*image.RGBA, error) {
	left, err := Magnitude(kspace, nx, ny, true)
	if err != nil {
		return nil, fmt.Errorf("k-space: %w", err)
	}
	right, err := Magnitude(img, nx, ny, false)
	if err != nil {
		return nil, fmt.Errorf("image: %w", err)
	}

	out := image.NewRGBA(image.Rect(0, 0, 2*PanelSize, PanelSize))
	draw.Draw(out, out.Bounds(), image.Black, image.Point{}, draw.Src)
	for i, p := range []struct {
		src   image.Image
		label string
	}{
		{left, "k-space (log)"},
		{right, "image"},
	} {
		panel := image.Rect(i*PanelSize, 0, (i+1)*PanelSize, PanelSize)
		draw.ApproxBiLinear.Scale(out, panel, p.src, p.src.Bounds(), draw.Over, nil)
		label(out, panel.Min.X+4, p.label)
	}
	return out, nil
}

func label(dst draw.Image, x int, text string) {
	face := basicfont.Face7x13
	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(color.RGBA{R: 255, G: 200, A: 255}),
		Face: face,
		Dot:  fixed.P(x, 2+face.Metrics().Ascent.Ceil()),
	}
	d.DrawString(text)
}

// WritePNG encodes img to path.
func WritePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return fmt.Errorf("encoding %s: %w", path, err)
	}
	return f.Close()
}
