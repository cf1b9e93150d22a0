package ismrmrdxml

import (
	"encoding/xml"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleHeader() *Header {
	return &Header{
		ExperimentalConditions: ExperimentalConditions{H1ResonanceFrequencyHz: 63500000},
		Encoding: []Encoding{{
			EncodedSpace: EncodingSpace{
				MatrixSize:  MatrixSize{X: 256, Y: 128, Z: 1},
				FieldOfView: FieldOfView{X: 600, Y: 300, Z: 6},
			},
			ReconSpace: EncodingSpace{
				MatrixSize:  MatrixSize{X: 128, Y: 128, Z: 1},
				FieldOfView: FieldOfView{X: 300, Y: 300, Z: 6},
			},
			EncodingLimits: EncodingLimits{KSpaceEncodingStep1: NewLimit(0, 127, 64)},
			Trajectory:     Cartesian,
		}},
	}
}

func TestSerialize(t *testing.T) {
	text, err := Serialize(sampleHeader())
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(text, "<?xml"))
	assert.Contains(t, text, `<ismrmrdHeader xmlns="http://www.ismrm.org/ISMRMRD"`+
		` xmlns:xsi="http://www.w3.org/2001/XMLSchema-instance"`+
		` xsi:schemaLocation="http://www.ismrm.org/ISMRMRD ismrmrd.xsd">`)
	assert.Contains(t, text, "<H1resonanceFrequency_Hz>63500000</H1resonanceFrequency_Hz>")
	assert.Contains(t, text, "<trajectory>cartesian</trajectory>")
	assert.NotContains(t, text, "kspace_encoding_step_0")
	assert.NotContains(t, text, "studyInformation")

	// Schema order: encodedSpace, reconSpace, encodingLimits, trajectory.
	order := []string{"<experimentalConditions>", "<encoding>", "<encodedSpace>", "<reconSpace>", "<encodingLimits>", "<trajectory>"}
	last := -1
	for _, tag := range order {
		i := strings.Index(text, tag)
		require.Greater(t, i, last, tag)
		last = i
	}
}

func TestRoundTrip(t *testing.T) {
	h := sampleHeader()
	strength := float32(1.5)
	h.AcquisitionSystemInformation = &AcquisitionSystemInformation{
		SystemVendor:         "synthetic",
		SystemFieldStrengthT: &strength,
	}
	h.StudyInformation = &StudyInformation{StudyID: "demo"}
	h.SequenceParameters = &SequenceParameters{TR: []float32{5}, TE: []float32{2.5}, SequenceType: "Flash"}
	h.UserParameters = &UserParameters{Long: []UserParameter{{Name: "lines", Value: "128"}}}

	text, err := Serialize(h)
	require.NoError(t, err)
	got, err := Deserialize(text)
	require.NoError(t, err)

	h.XMLName = got.XMLName
	assert.Equal(t, h, got)

	again, err := Serialize(got)
	require.NoError(t, err)
	assert.Equal(t, text, again)
}

func TestDeserializeErrors(t *testing.T) {
	const body = `<experimentalConditions><H1resonanceFrequency_Hz>1</H1resonanceFrequency_Hz></experimentalConditions>`
	tests := []struct {
		name string
		text string
		want error
	}{
		{"truncated", "<ismrmrdHeader", ErrInvalid},
		{"empty", "", ErrInvalid},
		{"foreign namespace", `<ismrmrdHeader xmlns="urn:other">` + body + `</ismrmrdHeader>`, ErrNamespace},
		{"no namespace", `<?xml version="1.0"?><ismrmrdHeader>` + body + `</ismrmrdHeader>`, ErrNamespace},
		{"wrong root", `<header xmlns="http://www.ismrm.org/ISMRMRD">` + body + `</header>`, ErrInvalid},
		{"no encoding", `<ismrmrdHeader xmlns="http://www.ismrm.org/ISMRMRD">` + body + `</ismrmrdHeader>`, ErrInvalid},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Deserialize(tt.text)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestDeserializeSchemaAttributes(t *testing.T) {
	text, err := Serialize(sampleHeader())
	require.NoError(t, err)
	require.Contains(t, text, "ismrmrd.xsd")

	got, err := Deserialize(text)
	require.NoError(t, err)
	assert.Equal(t, xml.Name{Space: Namespace, Local: "ismrmrdHeader"}, got.XMLName)
	assert.Equal(t, uint16(256), got.Encoding[0].EncodedSpace.MatrixSize.X)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Header)
	}{
		{"no encoding", func(h *Header) { h.Encoding = nil }},
		{"no frequency", func(h *Header) { h.ExperimentalConditions.H1ResonanceFrequencyHz = 0 }},
		{"bad trajectory", func(h *Header) { h.Encoding[0].Trajectory = "zigzag" }},
		{"zero matrix", func(h *Header) { h.Encoding[0].ReconSpace.MatrixSize.Z = 0 }},
		{"center above max", func(h *Header) { h.Encoding[0].EncodingLimits.Slice = NewLimit(0, 3, 4) }},
		{"min above max", func(h *Header) { h.Encoding[0].EncodingLimits.Average = NewLimit(2, 1, 1) }},
		{"no patient position", func(h *Header) { h.MeasurementInformation = &MeasurementInformation{} }},
	}
	require.NoError(t, sampleHeader().Validate())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := sampleHeader()
			tt.modify(h)
			assert.ErrorIs(t, h.Validate(), ErrInvalid)
			_, err := Serialize(h)
			assert.ErrorIs(t, err, ErrInvalid)
		})
	}
}

func TestTrajectoryValid(t *testing.T) {
	for _, tr := range []Trajectory{Cartesian, EPI, Radial, GoldenAngle, Spiral, Other} {
		assert.True(t, tr.Valid(), tr)
	}
	assert.False(t, Trajectory("").Valid())
}
