package ismrmrdxml

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalid is returned for a header that breaks the schema.
	ErrInvalid = errors.New("ismrmrdxml: invalid header")

	// ErrNamespace is returned when a document's root element is not in
	// Namespace.
	ErrNamespace = errors.New("ismrmrdxml: wrong namespace")
)

// Serialize validates h and renders it as an indented XML document with
// Namespace as the default namespace. The root names SchemaFile as the
// schema location of Namespace.
func Serialize(h *Header) (string, error) {
	if err := h.Validate(); err != nil {
		return "", err
	}
	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	enc := xml.NewEncoder(&buf)
	enc.Indent("", "  ")
	if err := enc.EncodeElement(h, rootElement()); err != nil {
		return "", fmt.Errorf("encoding header: %w", err)
	}
	if err := enc.Close(); err != nil {
		return "", fmt.Errorf("encoding header: %w", err)
	}
	buf.WriteByte('\n')
	return buf.String(), nil
}

// rootElement is the ismrmrdHeader start tag with its schema attributes.
// The xsi prefix is part of the attribute's local name so the encoder
// writes it as is.
func rootElement() xml.StartElement {
	return xml.StartElement{
		Name: xml.Name{Space: Namespace, Local: rootName},
		Attr: []xml.Attr{
			{Name: xml.Name{Local: "xmlns:xsi"}, Value: SchemaInstance},
			{Name: xml.Name{Local: "xsi:schemaLocation"}, Value: Namespace + " " + SchemaFile},
		},
	}
}

// Deserialize parses and validates a header document. The root element
// must be an ismrmrdHeader in Namespace.
func Deserialize(text string) (*Header, error) {
	dec := xml.NewDecoder(strings.NewReader(text))
	var root xml.StartElement
	for {
		tok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalid, err)
		}
		if se, ok := tok.(xml.StartElement); ok {
			root = se
			break
		}
	}
	if root.Name.Space != Namespace {
		return nil, fmt.Errorf("%w: %q", ErrNamespace, root.Name.Space)
	}
	if root.Name.Local != rootName {
		return nil, fmt.Errorf("%w: root element <%s>", ErrInvalid, root.Name.Local)
	}
	var h Header
	if err := dec.DecodeElement(&h, &root); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	if err := h.Validate(); err != nil {
		return nil, err
	}
	return &h, nil
}

// Validate checks the cardinalities and value ranges the schema imposes.
func (h *Header) Validate() error {
	if h.ExperimentalConditions.H1ResonanceFrequencyHz <= 0 {
		return fmt.Errorf("%w: H1resonanceFrequency_Hz must be positive", ErrInvalid)
	}
	if len(h.Encoding) == 0 {
		return fmt.Errorf("%w: at least one encoding is required", ErrInvalid)
	}
	for i := range h.Encoding {
		if err := h.Encoding[i].validate(); err != nil {
			return fmt.Errorf("%w: encoding %d: %w", ErrInvalid, i, err)
		}
	}
	if m := h.MeasurementInformation; m != nil && m.PatientPosition == "" {
		return fmt.Errorf("%w: measurementInformation needs patientPosition", ErrInvalid)
	}
	return nil
}

func (e *Encoding) validate() error {
	if err := e.EncodedSpace.MatrixSize.validate(); err != nil {
		return fmt.Errorf("encodedSpace: %w", err)
	}
	if err := e.ReconSpace.MatrixSize.validate(); err != nil {
		return fmt.Errorf("reconSpace: %w", err)
	}
	if !e.Trajectory.Valid() {
		return fmt.Errorf("trajectory %q", e.Trajectory)
	}
	for name, l := range e.EncodingLimits.all() {
		if l.Minimum > l.Maximum || l.Center < l.Minimum || l.Center > l.Maximum {
			return fmt.Errorf("limit %s: center %d outside [%d, %d]", name, l.Center, l.Minimum, l.Maximum)
		}
	}
	return nil
}

func (m MatrixSize) validate() error {
	if m.X == 0 || m.Y == 0 || m.Z == 0 {
		return fmt.Errorf("matrix size %dx%dx%d", m.X, m.Y, m.Z)
	}
	return nil
}

// all yields the limits that are set, keyed by element name.
func (l *EncodingLimits) all() map[string]*Limit {
	out := make(map[string]*Limit)
	for name, p := range map[string]*Limit{
		"kspace_encoding_step_0": l.KSpaceEncodingStep0,
		"kspace_encoding_step_1": l.KSpaceEncodingStep1,
		"kspace_encoding_step_2": l.KSpaceEncodingStep2,
		"average":                l.Average,
		"slice":                  l.Slice,
		"contrast":               l.Contrast,
		"phase":                  l.Phase,
		"repetition":             l.Repetition,
		"set":                    l.Set,
		"segment":                l.Segment,
		"user_0":                 l.User0,
		"user_1":                 l.User1,
		"user_2":                 l.User2,
		"user_3":                 l.User3,
		"user_4":                 l.User4,
		"user_5":                 l.User5,
		"user_6":                 l.User6,
		"user_7":                 l.User7,
	} {
		if p != nil {
			out[name] = p
		}
	}
	return out
}

// NewLimit returns the limit [lo, hi] centered at center.
func NewLimit(lo, hi, center uint16) *Limit {
	return &Limit{Minimum: lo, Maximum: hi, Center: center}
}
