package main

import (
	"context"
	"errors"
	"fmt"
	"math/cmplx"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/cucumber/godog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/robert-malhotra/go-mrrd/internal/config"
	"github.com/robert-malhotra/go-mrrd/ismrmrdxml"
	"github.com/robert-malhotra/go-mrrd/mrrd"
)

// scenario holds the state of one scenario.
type scenario struct {
	dir     string
	cfg     *config.Config
	d       *mrrd.Dataset
	header  *ismrmrdxml.Header
	lastErr error
}

func TestFeatures(t *testing.T) {
	suite := godog.TestSuite{
		ScenarioInitializer: initializeScenario,
		Options: &godog.Options{
			Format:   "pretty",
			Paths:    []string{"features"},
			TestingT: t,
		},
	}
	if suite.Run() != 0 {
		t.Fatal("non-zero status returned, failed to run feature tests")
	}
}

func initializeScenario(sc *godog.ScenarioContext) {
	s := &scenario{}

	sc.Before(func(ctx context.Context, _ *godog.Scenario) (context.Context, error) {
		dir, err := os.MkdirTemp("", "mrrd-demo-*")
		if err != nil {
			return ctx, err
		}
		s.dir = dir
		return ctx, nil
	})
	sc.After(func(ctx context.Context, _ *godog.Scenario, err error) (context.Context, error) {
		if s.d != nil {
			s.d.Close()
		}
		os.RemoveAll(s.dir)
		return ctx, nil
	})

	sc.Step(`^the demo has run with a (\d+) by (\d+) matrix$`, s.demoHasRun)
	sc.Step(`^the file contains array "([^"]*)" of depth (\d+) with dimensions (\d+) by (\d+)$`, s.containsArray)
	sc.Step(`^the file contains (\d+) acquisitions$`, s.containsAcquisitions)
	sc.Step(`^acquisition (\d+) has FIRST_IN_SLICE (set|clear) and LAST_IN_SLICE (set|clear)$`, s.acquisitionFlags)
	sc.Step(`^acquisitions (\d+) to (\d+) have both slice flags clear$`, s.flagsClear)
	sc.Step(`^every acquisition has (\d+) samples centered at (\d+) with sample time ([\d.]+) us on one channel$`, s.everyAcquisition)
	sc.Step(`^every acquisition encodes its own line$`, s.encodesOwnLine)
	sc.Step(`^the file has an XML header$`, s.hasHeader)
	sc.Step(`^"([^"]*)" is (\d+) at \((\d+), (\d+)\)$`, s.pixelIs)
	sc.Step(`^the largest magnitude of "([^"]*)" is at \((\d+), (\d+)\)$`, s.peakAt)
	sc.Step(`^I append a real-float array named "([^"]*)"$`, s.appendRealArray)
	sc.Step(`^I append an acquisition of (\d+) samples with (\d+) data values$`, s.appendShortAcquisition)
	sc.Step(`^the append fails with (\w+)$`, s.appendFails)
	sc.Step(`^"([^"]*)" still has depth (\d+)$`, s.stillHasDepth)
	sc.Step(`^the header reparses with resonance frequency (\d+)$`, s.headerFrequency)
	sc.Step(`^the header has one encoding with encoded matrix (\d+)x(\d+)x(\d+) and recon matrix (\d+)x(\d+)x(\d+)$`, s.headerMatrices)
	sc.Step(`^the kspace_encoding_step_1 limit is \((\d+), (\d+), (\d+)\)$`, s.headerLimit)
	sc.Step(`^the trajectory is "([^"]*)"$`, s.headerTrajectory)
}

func (s *scenario) demoHasRun(nx, ny int) error {
	s.cfg = config.DefaultConfig()
	s.cfg.Acquisition.Nx, s.cfg.Acquisition.Ny = nx, ny
	s.cfg.Output.Path = filepath.Join(s.dir, "testdata.h5")
	if err := demo(s.cfg, zap.NewNop().Sugar()); err != nil {
		return err
	}
	d, err := mrrd.Open(s.cfg.Output.Path, s.cfg.Output.Group)
	if err != nil {
		return err
	}
	s.d = d
	return nil
}

func (s *scenario) containsArray(name string, depth, nx, ny int) error {
	got, err := s.d.ArrayDepth(name)
	if err != nil {
		return err
	}
	if got != uint64(depth) {
		return fmt.Errorf("%s has depth %d, want %d", name, got, depth)
	}
	a, err := s.d.ReadArray(name, 0, mrrd.Complex64)
	if err != nil {
		return err
	}
	if want := []uint64{uint64(nx), uint64(ny)}; !slices.Equal(a.Dims, want) {
		return fmt.Errorf("%s has dimensions %v, want %v", name, a.Dims, want)
	}
	return nil
}

func (s *scenario) containsAcquisitions(n int) error {
	got, err := s.d.NumAcquisitions()
	if err != nil {
		return err
	}
	if got != uint64(n) {
		return fmt.Errorf("%d acquisitions, want %d", got, n)
	}
	return nil
}

func (s *scenario) acquisitionFlags(i int, first, last string) error {
	acq, err := s.d.ReadAcquisition(uint64(i))
	if err != nil {
		return err
	}
	if got := acq.Head.IsFlagSet(mrrd.FirstInSlice); got != (first == "set") {
		return fmt.Errorf("acquisition %d: FIRST_IN_SLICE = %v", i, got)
	}
	if got := acq.Head.IsFlagSet(mrrd.LastInSlice); got != (last == "set") {
		return fmt.Errorf("acquisition %d: LAST_IN_SLICE = %v", i, got)
	}
	return nil
}

func (s *scenario) flagsClear(from, to int) error {
	for i := from; i <= to; i++ {
		if err := s.acquisitionFlags(i, "clear", "clear"); err != nil {
			return err
		}
	}
	return nil
}

func (s *scenario) eachAcquisition(fn func(i uint64, acq *mrrd.Acquisition) error) error {
	n, err := s.d.NumAcquisitions()
	if err != nil {
		return err
	}
	for i := uint64(0); i < n; i++ {
		acq, err := s.d.ReadAcquisition(i)
		if err != nil {
			return err
		}
		if err := fn(i, acq); err != nil {
			return fmt.Errorf("acquisition %d: %w", i, err)
		}
	}
	return nil
}

func (s *scenario) everyAcquisition(samples, center int, sampleTime float64) error {
	return s.eachAcquisition(func(_ uint64, acq *mrrd.Acquisition) error {
		h := acq.Head
		switch {
		case int(h.NumberOfSamples) != samples:
			return fmt.Errorf("number_of_samples = %d", h.NumberOfSamples)
		case int(h.CenterSample) != center:
			return fmt.Errorf("center_sample = %d", h.CenterSample)
		case float64(h.SampleTimeUS) != sampleTime:
			return fmt.Errorf("sample_time_us = %g", h.SampleTimeUS)
		case h.ActiveChannels != 1 || h.AvailableChannels != 1:
			return fmt.Errorf("channels = %d/%d", h.ActiveChannels, h.AvailableChannels)
		case len(acq.Data) != 2*samples:
			return fmt.Errorf("%d data values", len(acq.Data))
		}
		return nil
	})
}

func (s *scenario) encodesOwnLine() error {
	kspace, _, err := mrrd.ReadArrayAs[complex64](s.d, kspaceName, 0)
	if err != nil {
		return err
	}
	nx := s.cfg.Acquisition.Nx
	return s.eachAcquisition(func(i uint64, acq *mrrd.Acquisition) error {
		if uint64(acq.Head.Idx.KSpaceEncodeStep1) != i {
			return fmt.Errorf("kspace_encode_step_1 = %d", acq.Head.Idx.KSpaceEncodeStep1)
		}
		for x := 0; x < nx; x++ {
			v, err := acq.Sample(0, uint16(x))
			if err != nil {
				return err
			}
			if want := kspace[x+int(i)*nx]; v != want {
				return fmt.Errorf("sample %d = %v, want %v", x, v, want)
			}
		}
		return nil
	})
}

func (s *scenario) hasHeader() error {
	text, err := s.d.ReadHeader()
	if err != nil {
		return err
	}
	s.header, err = ismrmrdxml.Deserialize(text)
	return err
}

func (s *scenario) pixelIs(name string, want, x, y int) error {
	a, err := s.d.ReadArray(name, 0, mrrd.Complex64)
	if err != nil {
		return err
	}
	v, err := mrrd.At[complex64](a, uint64(x), uint64(y))
	if err != nil {
		return err
	}
	if v != complex(float32(want), 0) {
		return fmt.Errorf("%s(%d, %d) = %v, want %d", name, x, y, v, want)
	}
	return nil
}

func (s *scenario) peakAt(name string, x, y int) error {
	a, err := s.d.ReadArray(name, 0, mrrd.Complex64)
	if err != nil {
		return err
	}
	v, _ := mrrd.Values[complex64](a)
	peak := 0
	for i := range v {
		if cmplx.Abs(complex128(v[i])) > cmplx.Abs(complex128(v[peak])) {
			peak = i
		}
	}
	nx := int(a.Dims[0])
	if px, py := peak%nx, peak/nx; px != x || py != y {
		return fmt.Errorf("peak of %s at (%d, %d)", name, px, py)
	}
	return nil
}

func (s *scenario) appendRealArray(name string) error {
	a := mrrd.NewNDArray[float32](uint64(s.cfg.Acquisition.Nx), uint64(s.cfg.Acquisition.Ny))
	s.lastErr = s.d.AppendArray(name, a)
	return nil
}

func (s *scenario) appendShortAcquisition(samples, values int) error {
	acq := mrrd.NewAcquisition(uint16(samples), 1, 0)
	acq.Data = make([]float32, values)
	s.lastErr = s.d.AppendAcquisition(acq)
	return nil
}

var errorKinds = map[string]error{
	"OpenFailed":         mrrd.ErrOpenFailed,
	"NotFound":           mrrd.ErrNotFound,
	"OutOfRange":         mrrd.ErrOutOfRange,
	"TypeMismatch":       mrrd.ErrTypeMismatch,
	"SchemaMismatch":     mrrd.ErrSchemaMismatch,
	"ShapeMismatch":      mrrd.ErrShapeMismatch,
	"InvalidAcquisition": mrrd.ErrInvalidAcquisition,
	"WriteFailed":        mrrd.ErrWriteFailed,
}

func (s *scenario) appendFails(kind string) error {
	want, ok := errorKinds[kind]
	if !ok {
		return fmt.Errorf("unknown error kind %q", kind)
	}
	if !errors.Is(s.lastErr, want) {
		return fmt.Errorf("append returned %v, want %s", s.lastErr, kind)
	}
	return nil
}

func (s *scenario) stillHasDepth(name string, depth int) error {
	got, err := s.d.ArrayDepth(name)
	if err != nil {
		return err
	}
	if got != uint64(depth) {
		return fmt.Errorf("%s has depth %d, want %d", name, got, depth)
	}
	return nil
}

func (s *scenario) loadHeader() (*ismrmrdxml.Header, error) {
	if s.header == nil {
		if err := s.hasHeader(); err != nil {
			return nil, err
		}
	}
	return s.header, nil
}

func (s *scenario) headerFrequency(hz int64) error {
	h, err := s.loadHeader()
	if err != nil {
		return err
	}
	if got := h.ExperimentalConditions.H1ResonanceFrequencyHz; got != hz {
		return fmt.Errorf("H1resonanceFrequency_Hz = %d", got)
	}
	return nil
}

func (s *scenario) headerMatrices(ex, ey, ez, rx, ry, rz int) error {
	h, err := s.loadHeader()
	if err != nil {
		return err
	}
	if len(h.Encoding) != 1 {
		return fmt.Errorf("%d encodings", len(h.Encoding))
	}
	e := h.Encoding[0]
	want := ismrmrdxml.MatrixSize{X: uint16(ex), Y: uint16(ey), Z: uint16(ez)}
	if e.EncodedSpace.MatrixSize != want {
		return fmt.Errorf("encoded matrix %+v", e.EncodedSpace.MatrixSize)
	}
	want = ismrmrdxml.MatrixSize{X: uint16(rx), Y: uint16(ry), Z: uint16(rz)}
	if e.ReconSpace.MatrixSize != want {
		return fmt.Errorf("recon matrix %+v", e.ReconSpace.MatrixSize)
	}
	return nil
}

func (s *scenario) headerLimit(lo, hi, center int) error {
	h, err := s.loadHeader()
	if err != nil {
		return err
	}
	l := h.Encoding[0].EncodingLimits.KSpaceEncodingStep1
	if l == nil || *l != *ismrmrdxml.NewLimit(uint16(lo), uint16(hi), uint16(center)) {
		return fmt.Errorf("kspace_encoding_step_1 limit %+v", l)
	}
	return nil
}

func (s *scenario) headerTrajectory(want string) error {
	h, err := s.loadHeader()
	if err != nil {
		return err
	}
	if got := h.Encoding[0].Trajectory; string(got) != want {
		return fmt.Errorf("trajectory %q", got)
	}
	return nil
}

func TestDemoOpenFailure(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Output.Path = filepath.Join(t.TempDir(), "missing", "testdata.h5")
	err := demo(cfg, zap.NewNop().Sugar())
	assert.ErrorIs(t, err, mrrd.ErrOpenFailed)
}

func TestDemoPreview(t *testing.T) {
	dir := t.TempDir()
	cfg := config.DefaultConfig()
	cfg.Acquisition.Nx, cfg.Acquisition.Ny = 32, 16
	cfg.Output.Path = filepath.Join(dir, "testdata.h5")
	cfg.Output.Compression = 3
	cfg.Preview.Enabled = true
	cfg.Preview.Path = filepath.Join(dir, "preview.png")
	require.NoError(t, demo(cfg, zap.NewNop().Sugar()))

	_, err := os.Stat(cfg.Preview.Path)
	require.NoError(t, err)

	d, err := mrrd.Open(cfg.Output.Path, cfg.Output.Group, mrrd.ReadOnly())
	require.NoError(t, err)
	defer d.Close()
	n, err := d.NumAcquisitions()
	require.NoError(t, err)
	assert.Equal(t, uint64(16), n)
}

func TestPhantomAndReadout(t *testing.T) {
	const nx, ny = 8, 4
	a := phantom(nx, ny)
	v, err := mrrd.Values[complex64](a)
	require.NoError(t, err)
	// x in (2, 6), y in (0, 4)
	assert.Equal(t, complex64(1), v[3+1*nx])
	assert.Equal(t, complex64(0), v[2+1*nx])
	assert.Equal(t, complex64(0), v[3+0*nx])

	acq := readout(v, nx, ny, ny-1, 5)
	assert.True(t, acq.Head.IsFlagSet(mrrd.LastInSlice))
	assert.False(t, acq.Head.IsFlagSet(mrrd.FirstInSlice))
	assert.Equal(t, uint16(ny-1), acq.Head.Idx.KSpaceEncodeStep1)
	assert.Equal(t, uint16(nx/2), acq.Head.CenterSample)
	require.NoError(t, acq.Validate())
}
