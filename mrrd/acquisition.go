package mrrd

import (
	"errors"
	"fmt"
	"sync"

	"github.com/robert-malhotra/go-mrrd/hdf5"
)

// Members of the acquisition stream group.
const (
	headTable = "head"
	dataTable = "data"
	trajTable = "traj"
)

// EncodingCounters locates an acquisition in k-space and in the
// experiment loops.
type EncodingCounters struct {
	KSpaceEncodeStep1 uint16    `h5:"kspace_encode_step_1"`
	KSpaceEncodeStep2 uint16    `h5:"kspace_encode_step_2"`
	Average           uint16    `h5:"average"`
	Slice             uint16    `h5:"slice"`
	Contrast          uint16    `h5:"contrast"`
	Phase             uint16    `h5:"phase"`
	Repetition        uint16    `h5:"repetition"`
	Set               uint16    `h5:"set"`
	Segment           uint16    `h5:"segment"`
	User              [8]uint16 `h5:"user"`
}

// AcquisitionHeader is the fixed-size header stored in one row of the
// head table.
type AcquisitionHeader struct {
	Version              uint16           `h5:"version"`
	Flags                uint64           `h5:"flags"`
	MeasurementUID       uint32           `h5:"measurement_uid"`
	ScanCounter          uint32           `h5:"scan_counter"`
	AcquisitionTimeStamp uint32           `h5:"acquisition_time_stamp"`
	PhysiologyTimeStamp  [3]uint32        `h5:"physiology_time_stamp"`
	NumberOfSamples      uint16           `h5:"number_of_samples"`
	AvailableChannels    uint16           `h5:"available_channels"`
	ActiveChannels       uint16           `h5:"active_channels"`
	ChannelMask          [16]uint64       `h5:"channel_mask"`
	DiscardPre           uint16           `h5:"discard_pre"`
	DiscardPost          uint16           `h5:"discard_post"`
	CenterSample         uint16           `h5:"center_sample"`
	EncodingSpaceRef     uint16           `h5:"encoding_space_ref"`
	TrajectoryDimensions uint16           `h5:"trajectory_dimensions"`
	SampleTimeUS         float32          `h5:"sample_time_us"`
	Position             [3]float32       `h5:"position"`
	ReadDir              [3]float32       `h5:"read_dir"`
	PhaseDir             [3]float32       `h5:"phase_dir"`
	SliceDir             [3]float32       `h5:"slice_dir"`
	PatientTablePosition [3]float32       `h5:"patient_table_position"`
	Idx                  EncodingCounters `h5:"idx"`
	UserInt              [8]int32         `h5:"user_int"`
	UserFloat            [8]float32       `h5:"user_float"`
}

// AcquisitionFlag names one bit of AcquisitionHeader.Flags. Flag n is
// stored as bit n-1.
type AcquisitionFlag uint8

const (
	FirstInEncodeStep1 AcquisitionFlag = iota + 1
	LastInEncodeStep1
	FirstInEncodeStep2
	LastInEncodeStep2
	FirstInAverage
	LastInAverage
	FirstInSlice
	LastInSlice
	FirstInContrast
	LastInContrast
	FirstInPhase
	LastInPhase
	FirstInRepetition
	LastInRepetition
	FirstInSet
	LastInSet
	FirstInSegment
	LastInSegment
	IsNoiseMeasurement
	IsParallelCalibration
	IsParallelCalibrationAndImaging
	IsReverse
	IsNavigationData
	IsPhaseCorrData
	LastInMeasurement
	IsHPFeedbackData
	IsDummyScanData
	IsRTFeedbackData
	IsSurfaceCoilCorrectionScanData
)

const (
	User1 AcquisitionFlag = iota + 57
	User2
	User3
	User4
	User5
	User6
	User7
	User8
)

var flagNames = [...]string{
	FirstInEncodeStep1:              "FIRST_IN_ENCODE_STEP1",
	LastInEncodeStep1:               "LAST_IN_ENCODE_STEP1",
	FirstInEncodeStep2:              "FIRST_IN_ENCODE_STEP2",
	LastInEncodeStep2:               "LAST_IN_ENCODE_STEP2",
	FirstInAverage:                  "FIRST_IN_AVERAGE",
	LastInAverage:                   "LAST_IN_AVERAGE",
	FirstInSlice:                    "FIRST_IN_SLICE",
	LastInSlice:                     "LAST_IN_SLICE",
	FirstInContrast:                 "FIRST_IN_CONTRAST",
	LastInContrast:                  "LAST_IN_CONTRAST",
	FirstInPhase:                    "FIRST_IN_PHASE",
	LastInPhase:                     "LAST_IN_PHASE",
	FirstInRepetition:               "FIRST_IN_REPETITION",
	LastInRepetition:                "LAST_IN_REPETITION",
	FirstInSet:                      "FIRST_IN_SET",
	LastInSet:                       "LAST_IN_SET",
	FirstInSegment:                  "FIRST_IN_SEGMENT",
	LastInSegment:                   "LAST_IN_SEGMENT",
	IsNoiseMeasurement:              "IS_NOISE_MEASUREMENT",
	IsParallelCalibration:           "IS_PARALLEL_CALIBRATION",
	IsParallelCalibrationAndImaging: "IS_PARALLEL_CALIBRATION_AND_IMAGING",
	IsReverse:                       "IS_REVERSE",
	IsNavigationData:                "IS_NAVIGATION_DATA",
	IsPhaseCorrData:                 "IS_PHASECORR_DATA",
	LastInMeasurement:               "LAST_IN_MEASUREMENT",
	IsHPFeedbackData:                "IS_HPFEEDBACK_DATA",
	IsDummyScanData:                 "IS_DUMMYSCAN_DATA",
	IsRTFeedbackData:                "IS_RTFEEDBACK_DATA",
	IsSurfaceCoilCorrectionScanData: "IS_SURFACECOILCORRECTIONSCAN_DATA",
}

func (f AcquisitionFlag) String() string {
	if int(f) < len(flagNames) && flagNames[f] != "" {
		return flagNames[f]
	}
	if f >= User1 && f <= User8 {
		return fmt.Sprintf("USER%d", f-User1+1)
	}
	return fmt.Sprintf("AcquisitionFlag(%d)", uint8(f))
}

// SetFlags returns the flags set in h in bit order.
func (h *AcquisitionHeader) SetFlags() []AcquisitionFlag {
	var out []AcquisitionFlag
	for f := AcquisitionFlag(1); f <= 64; f++ {
		if h.IsFlagSet(f) {
			out = append(out, f)
		}
	}
	return out
}

// Bit returns the mask of f in the flags word.
func (f AcquisitionFlag) Bit() uint64 {
	if f == 0 || f > 64 {
		return 0
	}
	return 1 << (f - 1)
}

// SetFlag sets f.
func (h *AcquisitionHeader) SetFlag(f AcquisitionFlag) { h.Flags |= f.Bit() }

// ClearFlag clears f.
func (h *AcquisitionHeader) ClearFlag(f AcquisitionFlag) { h.Flags &^= f.Bit() }

// IsFlagSet reports whether f is set.
func (h *AcquisitionHeader) IsFlagSet(f AcquisitionFlag) bool {
	b := f.Bit()
	return b != 0 && h.Flags&b != 0
}

// ClearAllFlags clears every flag.
func (h *AcquisitionHeader) ClearAllFlags() { h.Flags = 0 }

// Acquisition is one readout: its header, an optional trajectory and the
// sampled data.
//
// Data holds NumberOfSamples complex samples per active channel, channel
// after channel, each sample as an interleaved real and imaginary pair.
// Traj holds TrajectoryDimensions values per sample.
type Acquisition struct {
	Head AcquisitionHeader
	Traj []float32
	Data []float32
}

// NewAcquisition returns an acquisition with zeroed payloads sized for
// samples samples of channels channels.
func NewAcquisition(samples, channels, trajDims uint16) *Acquisition {
	a := &Acquisition{
		Head: AcquisitionHeader{
			Version:              1,
			NumberOfSamples:      samples,
			AvailableChannels:    channels,
			ActiveChannels:       channels,
			TrajectoryDimensions: trajDims,
		},
		Data: make([]float32, 2*int(samples)*int(channels)),
	}
	if n := int(trajDims) * int(samples); n > 0 {
		a.Traj = make([]float32, n)
	}
	return a
}

func (a *Acquisition) offset(channel, sample uint16) int {
	return 2 * (int(channel)*int(a.Head.NumberOfSamples) + int(sample))
}

func (a *Acquisition) checkSample(channel, sample uint16) error {
	if channel >= a.Head.ActiveChannels || sample >= a.Head.NumberOfSamples {
		return fmt.Errorf("%w: sample (%d, %d) of %d channels x %d samples",
			ErrOutOfRange, channel, sample, a.Head.ActiveChannels, a.Head.NumberOfSamples)
	}
	if a.offset(channel, sample)+1 >= len(a.Data) {
		return fmt.Errorf("%w: %d data values", ErrShapeMismatch, len(a.Data))
	}
	return nil
}

// Sample returns the complex sample of channel at position sample.
func (a *Acquisition) Sample(channel, sample uint16) (complex64, error) {
	if err := a.checkSample(channel, sample); err != nil {
		return 0, err
	}
	o := a.offset(channel, sample)
	return complex(a.Data[o], a.Data[o+1]), nil
}

// SetSample stores v as the sample of channel at position sample.
func (a *Acquisition) SetSample(channel, sample uint16, v complex64) error {
	if err := a.checkSample(channel, sample); err != nil {
		return err
	}
	o := a.offset(channel, sample)
	a.Data[o], a.Data[o+1] = real(v), imag(v)
	return nil
}

// Validate checks the payload lengths against the header.
func (a *Acquisition) Validate() error {
	h := &a.Head
	if h.ActiveChannels > h.AvailableChannels {
		return fmt.Errorf("%w: %d active channels of %d available",
			ErrInvalidAcquisition, h.ActiveChannels, h.AvailableChannels)
	}
	if want := 2 * int(h.NumberOfSamples) * int(h.ActiveChannels); len(a.Data) != want {
		return fmt.Errorf("%w: %d data values, want %d", ErrShapeMismatch, len(a.Data), want)
	}
	if want := int(h.TrajectoryDimensions) * int(h.NumberOfSamples); len(a.Traj) != want {
		return fmt.Errorf("%w: %d trajectory values, want %d", ErrShapeMismatch, len(a.Traj), want)
	}
	return nil
}

var headDatatype = sync.OnceValues(func() (*hdf5.Datatype, error) {
	return hdf5.DatatypeOf(AcquisitionHeader{})
})

// stream holds the open tables of the acquisition stream.
type stream struct {
	head, data, traj *hdf5.Dataset
}

func (s *stream) len() uint64 {
	return min(s.head.Len(), s.data.Len(), s.traj.Len())
}

// openStream opens the acquisition tables. With create set, missing
// tables are created.
func (d *Dataset) openStream(create bool) (*stream, error) {
	var g *hdf5.Group
	var err error
	switch {
	case d.group.HasMember(streamGroup):
		g, err = d.group.OpenGroup(streamGroup)
	case create:
		g, err = d.group.CreateGroup(streamGroup)
		if err == nil {
			d.log.Debugw("created acquisition stream")
		}
	default:
		return nil, fmt.Errorf("%w: no acquisitions in %s", ErrNotFound, d.Path())
	}
	if err != nil {
		return nil, err
	}

	headType, err := headDatatype()
	if err != nil {
		return nil, err
	}
	s := &stream{}
	// A descriptor row of a varlen table is 16 bytes, too small for deflate
	// to shrink, so only the header table is filtered.
	tables := []struct {
		name     string
		dt       *hdf5.Datatype
		dst      **hdf5.Dataset
		filtered bool
	}{
		{headTable, headType, &s.head, true},
		{dataTable, hdf5.VarLen(hdf5.Float32()), &s.data, false},
		{trajTable, hdf5.VarLen(hdf5.Float32()), &s.traj, false},
	}
	for _, t := range tables {
		if g.HasMember(t.name) {
			ds, err := g.OpenDataset(t.name)
			if err != nil {
				return nil, err
			}
			if !ds.Datatype().Equal(t.dt) || ds.Rank() != 1 {
				return nil, fmt.Errorf("%w: acquisition table %s holds %v", ErrSchemaMismatch, t.name, ds.Datatype())
			}
			*t.dst = ds
			continue
		}
		if !create {
			return nil, fmt.Errorf("%w: acquisition table %s", ErrNotFound, t.name)
		}
		opts := []hdf5.DatasetOption{hdf5.WithMaxDims(0), hdf5.WithChunks(1)}
		if t.filtered {
			opts = append(opts, d.createOptions()...)
		}
		ds, err := g.CreateDatasetWithType(t.name, []uint64{0}, t.dt, opts...)
		if err != nil {
			return nil, err
		}
		*t.dst = ds
	}
	return s, nil
}

// AppendAcquisition adds acq to the end of the acquisition stream. An
// invalid acquisition is rejected before anything is written.
func (d *Dataset) AppendAcquisition(acq *Acquisition) error {
	if err := d.checkWrite(); err != nil {
		return err
	}
	if err := acq.Validate(); err != nil {
		return err
	}
	s, err := d.openStream(true)
	if err != nil {
		return writeFailed("opening acquisition stream", err)
	}
	row := s.head.Len()
	if row != s.data.Len() || row != s.traj.Len() {
		return fmt.Errorf("%w: acquisition tables hold %d headers, %d data and %d trajectory rows",
			ErrSchemaMismatch, row, s.data.Len(), s.traj.Len())
	}
	if err := s.head.AppendValue(acq.Head); err != nil {
		return writeFailed("appending acquisition header", err)
	}
	if err := s.data.AppendVarLen(acq.Data); err != nil {
		return writeFailed("appending acquisition data", err)
	}
	if err := s.traj.AppendVarLen(acq.Traj); err != nil {
		return writeFailed("appending acquisition trajectory", err)
	}
	d.log.Debugw("appended acquisition", "row", row, "samples", acq.Head.NumberOfSamples)
	return nil
}

// NumAcquisitions returns the number of acquisitions in the stream, 0
// when none has been appended.
func (d *Dataset) NumAcquisitions() (uint64, error) {
	if err := d.check(); err != nil {
		return 0, err
	}
	s, err := d.openStream(false)
	if errors.Is(err, ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return s.len(), nil
}

// ReadAcquisition returns acquisition i.
func (d *Dataset) ReadAcquisition(i uint64) (*Acquisition, error) {
	if err := d.check(); err != nil {
		return nil, err
	}
	s, err := d.openStream(false)
	if errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("%w: acquisition %d of 0", ErrOutOfRange, i)
	}
	if err != nil {
		return nil, err
	}
	if n := s.len(); i >= n {
		return nil, fmt.Errorf("%w: acquisition %d of %d", ErrOutOfRange, i, n)
	}

	acq := &Acquisition{}
	raw, err := s.head.ReadRow(i)
	if err != nil {
		return nil, fmt.Errorf("reading acquisition %d: %w", i, err)
	}
	if err := s.head.Decode(raw, &acq.Head); err != nil {
		return nil, fmt.Errorf("decoding acquisition %d: %w", i, err)
	}
	if err := s.data.ReadVarLen(i, &acq.Data); err != nil {
		return nil, fmt.Errorf("reading acquisition %d data: %w", i, err)
	}
	if err := s.traj.ReadVarLen(i, &acq.Traj); err != nil {
		return nil, fmt.Errorf("reading acquisition %d trajectory: %w", i, err)
	}
	if len(acq.Traj) == 0 {
		acq.Traj = nil
	}
	if acq.Data == nil {
		acq.Data = []float32{}
	}
	return acq, nil
}
