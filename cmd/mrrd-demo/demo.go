package main

import (
	"fmt"

	"github.com/robert-malhotra/go-mrrd/internal/config"
	"github.com/robert-malhotra/go-mrrd/internal/preview"
	"github.com/robert-malhotra/go-mrrd/ismrmrdxml"
	"github.com/robert-malhotra/go-mrrd/mrrd"
	"github.com/robert-malhotra/go-mrrd/transform"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Names of the two array stacks the demo writes.
const (
	imageName  = "the_square"
	kspaceName = "the_square_k"
)

// demo writes the dataset described by cfg. The dataset is closed on
// every path; a close error is reported alongside any earlier one.
func demo(cfg *config.Config, log *zap.SugaredLogger) (err error) {
	nx, ny := cfg.Acquisition.Nx, cfg.Acquisition.Ny

	d, err := mrrd.Open(cfg.Output.Path, cfg.Output.Group,
		mrrd.WithLogger(log),
		mrrd.WithCompression(cfg.Output.Compression),
	)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Append(err, d.Close())
	}()

	if err := d.AppendArray(imageName, phantom(nx, ny)); err != nil {
		return err
	}
	img, err := d.ReadArray(imageName, 0, mrrd.Complex64)
	if err != nil {
		return err
	}
	log.Infow("read back image", "name", imageName, "dims", img.Dims)

	pixels, err := mrrd.Values[complex64](img)
	if err != nil {
		return err
	}
	kspace := make([]complex64, len(pixels))
	copy(kspace, pixels)
	if err := centeredTransform(kspace, nx, ny); err != nil {
		return err
	}
	k, err := mrrd.FromSlice(kspace, img.Dims...)
	if err != nil {
		return err
	}
	if err := d.AppendArray(kspaceName, k); err != nil {
		return err
	}

	for line := 0; line < ny; line++ {
		if err := d.AppendAcquisition(readout(kspace, nx, ny, line, cfg.Acquisition.SampleTimeUS)); err != nil {
			return fmt.Errorf("acquisition %d: %w", line, err)
		}
	}
	log.Infow("wrote acquisitions", "count", ny)

	xml, err := ismrmrdxml.Serialize(header(cfg))
	if err != nil {
		return err
	}
	if err := d.WriteHeader(xml); err != nil {
		return err
	}

	if cfg.Preview.Enabled {
		pic, err := preview.SideBySide(kspace, pixels, nx, ny)
		if err != nil {
			return err
		}
		if err := preview.WritePNG(cfg.Preview.Path, pic); err != nil {
			return err
		}
		log.Infow("wrote preview", "path", cfg.Preview.Path)
	}

	log.Infow("wrote dataset", "path", cfg.Output.Path, "group", cfg.Output.Group)
	return nil
}

// centeredTransform runs the centered forward transform with a backend
// scoped to this call.
func centeredTransform(a []complex64, nx, ny int) (err error) {
	backend := transform.NewGonumDFT2()
	defer func() {
		err = multierr.Append(err, backend.Close())
	}()
	return transform.Centered2D(backend, a, nx, ny)
}

// phantom returns the nx by ny test image: ones strictly inside the
// middle half along x and the middle three quarters along y.
func phantom(nx, ny int) *mrrd.NDArray {
	a := mrrd.NewNDArray[complex64](uint64(nx), uint64(ny))
	v, _ := mrrd.Values[complex64](a)
	for y := 0; y < ny; y++ {
		for x := 0; x < nx; x++ {
			if x > nx/4 && x < nx-nx/4 && y > ny/8 && y < ny-ny/8 {
				v[x+y*nx] = 1
			}
		}
	}
	return a
}

// readout returns the acquisition holding k-space line line.
func readout(kspace []complex64, nx, ny, line int, sampleTimeUS float32) *mrrd.Acquisition {
	acq := mrrd.NewAcquisition(uint16(nx), 1, 0)
	h := &acq.Head
	h.ClearAllFlags()
	if line == 0 {
		h.SetFlag(mrrd.FirstInSlice)
	}
	if line == ny-1 {
		h.SetFlag(mrrd.LastInSlice)
	}
	h.Idx.KSpaceEncodeStep1 = uint16(line)
	h.CenterSample = uint16(nx / 2)
	h.SampleTimeUS = sampleTimeUS

	row := kspace[line*nx : (line+1)*nx]
	for x, v := range row {
		acq.Data[2*x] = real(v)
		acq.Data[2*x+1] = imag(v)
	}
	return acq
}

// header returns the experiment header of the run.
func header(cfg *config.Config) *ismrmrdxml.Header {
	a := &cfg.Acquisition
	return &ismrmrdxml.Header{
		ExperimentalConditions: ismrmrdxml.ExperimentalConditions{
			H1ResonanceFrequencyHz: a.ResonanceFrequencyHz,
		},
		Encoding: []ismrmrdxml.Encoding{{
			EncodedSpace: ismrmrdxml.EncodingSpace{
				MatrixSize:  ismrmrdxml.MatrixSize{X: uint16(a.Nx), Y: uint16(a.Ny), Z: 1},
				FieldOfView: ismrmrdxml.FieldOfView{X: a.FOV[0], Y: a.FOV[1], Z: a.FOV[2]},
			},
			ReconSpace: ismrmrdxml.EncodingSpace{
				MatrixSize:  ismrmrdxml.MatrixSize{X: a.ReconMatrix[0], Y: a.ReconMatrix[1], Z: a.ReconMatrix[2]},
				FieldOfView: ismrmrdxml.FieldOfView{X: a.ReconFOV[0], Y: a.ReconFOV[1], Z: a.ReconFOV[2]},
			},
			EncodingLimits: ismrmrdxml.EncodingLimits{
				KSpaceEncodingStep1: ismrmrdxml.NewLimit(0, uint16(a.Ny-1), uint16(a.Ny/2)),
			},
			Trajectory: ismrmrdxml.Cartesian,
		}},
	}
}
