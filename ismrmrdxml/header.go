// Package ismrmrdxml models the XML experiment header of an MR raw
// dataset.
//
// The types mirror the ISMRMRD schema: struct fields appear in the order
// the schema declares its elements, required elements are values and
// optional ones are pointers or slices.
package ismrmrdxml

import "encoding/xml"

// Namespace is the default namespace of a header document.
const Namespace = "http://www.ismrm.org/ISMRMRD"

// SchemaFile is the schema a serialized header points to.
const SchemaFile = "ismrmrd.xsd"

// SchemaInstance is the XML Schema instance namespace, bound to xsi.
const SchemaInstance = "http://www.w3.org/2001/XMLSchema-instance"

const rootName = "ismrmrdHeader"

// Header is the root ismrmrdHeader element.
type Header struct {
	XMLName                      xml.Name                      `xml:"http://www.ismrm.org/ISMRMRD ismrmrdHeader"`
	Version                      *int64                        `xml:"version,omitempty"`
	SubjectInformation           *SubjectInformation           `xml:"subjectInformation,omitempty"`
	StudyInformation             *StudyInformation             `xml:"studyInformation,omitempty"`
	MeasurementInformation       *MeasurementInformation       `xml:"measurementInformation,omitempty"`
	AcquisitionSystemInformation *AcquisitionSystemInformation `xml:"acquisitionSystemInformation,omitempty"`
	ExperimentalConditions       ExperimentalConditions        `xml:"experimentalConditions"`
	Encoding                     []Encoding                    `xml:"encoding"`
	SequenceParameters           *SequenceParameters           `xml:"sequenceParameters,omitempty"`
	UserParameters               *UserParameters               `xml:"userParameters,omitempty"`
}

// SubjectInformation identifies the patient.
type SubjectInformation struct {
	PatientName      string   `xml:"patientName,omitempty"`
	PatientWeightKg  *float32 `xml:"patientWeight_kg,omitempty"`
	PatientHeightM   *float32 `xml:"patientHeight_m,omitempty"`
	PatientID        string   `xml:"patientID,omitempty"`
	PatientBirthdate string   `xml:"patientBirthdate,omitempty"`
	PatientGender    string   `xml:"patientGender,omitempty"`
}

// StudyInformation identifies the study a measurement belongs to.
type StudyInformation struct {
	StudyDate        string `xml:"studyDate,omitempty"`
	StudyTime        string `xml:"studyTime,omitempty"`
	StudyID          string `xml:"studyID,omitempty"`
	AccessionNumber  *int64 `xml:"accessionNumber,omitempty"`
	StudyDescription string `xml:"studyDescription,omitempty"`
	StudyInstanceUID string `xml:"studyInstanceUID,omitempty"`
}

// MeasurementInformation describes one series. PatientPosition is
// required once the element is present.
type MeasurementInformation struct {
	MeasurementID     string `xml:"measurementID,omitempty"`
	SeriesDate        string `xml:"seriesDate,omitempty"`
	SeriesTime        string `xml:"seriesTime,omitempty"`
	PatientPosition   string `xml:"patientPosition"`
	ProtocolName      string `xml:"protocolName,omitempty"`
	SeriesDescription string `xml:"seriesDescription,omitempty"`
}

// AcquisitionSystemInformation describes the scanner and its receiver.
type AcquisitionSystemInformation struct {
	SystemVendor                   string   `xml:"systemVendor,omitempty"`
	SystemModel                    string   `xml:"systemModel,omitempty"`
	SystemFieldStrengthT           *float32 `xml:"systemFieldStrength_T,omitempty"`
	RelativeReceiverNoiseBandwidth *float32 `xml:"relativeReceiverNoiseBandwidth,omitempty"`
	ReceiverChannels               *uint16  `xml:"receiverChannels,omitempty"`
	InstitutionName                string   `xml:"institutionName,omitempty"`
	StationName                    string   `xml:"stationName,omitempty"`
}

// ExperimentalConditions holds the proton resonance frequency in Hz.
type ExperimentalConditions struct {
	H1ResonanceFrequencyHz int64 `xml:"H1resonanceFrequency_Hz"`
}

// Encoding describes one encoding space of the acquisition.
type Encoding struct {
	EncodedSpace          EncodingSpace          `xml:"encodedSpace"`
	ReconSpace            EncodingSpace          `xml:"reconSpace"`
	EncodingLimits        EncodingLimits         `xml:"encodingLimits"`
	Trajectory            Trajectory             `xml:"trajectory"`
	TrajectoryDescription *TrajectoryDescription `xml:"trajectoryDescription,omitempty"`
	ParallelImaging       *ParallelImaging       `xml:"parallelImaging,omitempty"`
	EchoTrainLength       *int64                 `xml:"echoTrainLength,omitempty"`
}

// EncodingSpace is a matrix size and the field of view it covers.
type EncodingSpace struct {
	MatrixSize  MatrixSize  `xml:"matrixSize"`
	FieldOfView FieldOfView `xml:"fieldOfView_mm"`
}

// MatrixSize is the number of samples along each axis.
type MatrixSize struct {
	X uint16 `xml:"x"`
	Y uint16 `xml:"y"`
	Z uint16 `xml:"z"`
}

// FieldOfView is the extent of an encoding space in millimetres.
type FieldOfView struct {
	X float32 `xml:"x"`
	Y float32 `xml:"y"`
	Z float32 `xml:"z"`
}

// Limit is the range of an encoding counter.
type Limit struct {
	Minimum uint16 `xml:"minimum"`
	Maximum uint16 `xml:"maximum"`
	Center  uint16 `xml:"center"`
}

// EncodingLimits bounds each encoding counter. Unset limits are omitted.
type EncodingLimits struct {
	KSpaceEncodingStep0 *Limit `xml:"kspace_encoding_step_0,omitempty"`
	KSpaceEncodingStep1 *Limit `xml:"kspace_encoding_step_1,omitempty"`
	KSpaceEncodingStep2 *Limit `xml:"kspace_encoding_step_2,omitempty"`
	Average             *Limit `xml:"average,omitempty"`
	Slice               *Limit `xml:"slice,omitempty"`
	Contrast            *Limit `xml:"contrast,omitempty"`
	Phase               *Limit `xml:"phase,omitempty"`
	Repetition          *Limit `xml:"repetition,omitempty"`
	Set                 *Limit `xml:"set,omitempty"`
	Segment             *Limit `xml:"segment,omitempty"`
	User0               *Limit `xml:"user_0,omitempty"`
	User1               *Limit `xml:"user_1,omitempty"`
	User2               *Limit `xml:"user_2,omitempty"`
	User3               *Limit `xml:"user_3,omitempty"`
	User4               *Limit `xml:"user_4,omitempty"`
	User5               *Limit `xml:"user_5,omitempty"`
	User6               *Limit `xml:"user_6,omitempty"`
	User7               *Limit `xml:"user_7,omitempty"`
}

// Trajectory is the k-space trajectory of an encoding.
type Trajectory string

const (
	Cartesian   Trajectory = "cartesian"
	EPI         Trajectory = "epi"
	Radial      Trajectory = "radial"
	GoldenAngle Trajectory = "goldenangle"
	Spiral      Trajectory = "spiral"
	Other       Trajectory = "other"
)

// Valid reports whether t is one of the schema's trajectory values.
func (t Trajectory) Valid() bool {
	switch t {
	case Cartesian, EPI, Radial, GoldenAngle, Spiral, Other:
		return true
	}
	return false
}

// TrajectoryDescription parameterizes a non-Cartesian trajectory.
type TrajectoryDescription struct {
	Identifier          string          `xml:"identifier"`
	UserParameterLong   []UserParameter `xml:"userParameterLong"`
	UserParameterDouble []UserParameter `xml:"userParameterDouble"`
	Comment             string          `xml:"comment,omitempty"`
}

// ParallelImaging describes undersampling and calibration.
type ParallelImaging struct {
	AccelerationFactor    AccelerationFactor `xml:"accelerationFactor"`
	CalibrationMode       string             `xml:"calibrationMode,omitempty"`
	InterleavingDimension string             `xml:"interleavingDimension,omitempty"`
}

// AccelerationFactor is the undersampling along each phase encoding axis.
type AccelerationFactor struct {
	KSpaceEncodingStep1 uint16 `xml:"kspace_encoding_step_1"`
	KSpaceEncodingStep2 uint16 `xml:"kspace_encoding_step_2"`
}

// SequenceParameters lists the timing and flip angles of the sequence.
// Times are in milliseconds.
type SequenceParameters struct {
	TR           []float32 `xml:"TR"`
	TE           []float32 `xml:"TE"`
	TI           []float32 `xml:"TI"`
	FlipAngleDeg []float32 `xml:"flipAngle_deg"`
	SequenceType string    `xml:"sequence_type,omitempty"`
}

// UserParameter is a named value. Value holds the element text.
type UserParameter struct {
	Name  string `xml:"name"`
	Value string `xml:"value"`
}

// UserParameters holds free-form parameters grouped by value type.
type UserParameters struct {
	Long   []UserParameter `xml:"userParameterLong"`
	Double []UserParameter `xml:"userParameterDouble"`
	String []UserParameter `xml:"userParameterString"`
}
