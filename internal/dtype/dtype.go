package dtype

import (
	"encoding/binary"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/robert-malhotra/go-mrrd/internal/message"
)

// ErrUnsupported is returned for Go types or datatypes with no mapping.
var ErrUnsupported = errors.New("unsupported type")

// complexNames lists the accepted member names of complex compounds; the
// first pair is written.
var complexNames = [][2]string{{"real", "imag"}, {"r", "i"}}

// Complex returns the compound datatype of a complex number whose parts
// are floats of partSize bytes.
func Complex(partSize uint32) *message.Datatype {
	part := message.NewFloatDatatype(partSize)
	return message.NewCompoundDatatype(2*partSize, []message.CompoundMember{
		{Name: complexNames[0][0], Offset: 0, Type: part},
		{Name: complexNames[0][1], Offset: partSize, Type: part},
	})
}

// ComplexParts reports whether dt is a complex compound and returns the
// real and imaginary members.
func ComplexParts(dt *message.Datatype) (re, im message.CompoundMember, ok bool) {
	if dt == nil || dt.Class != message.ClassCompound || len(dt.Members) != 2 {
		return re, im, false
	}
	for _, names := range complexNames {
		r, okr := dt.Member(names[0])
		i, oki := dt.Member(names[1])
		if !okr || !oki {
			continue
		}
		if r.Type.Class != message.ClassFloatPoint || !r.Type.Equal(i.Type) {
			return re, im, false
		}
		return r, i, true
	}
	return re, im, false
}

// For returns the datatype of the Go type t. For slices and pointers the
// element type is used.
func For(t reflect.Type) (*message.Datatype, error) {
	for t.Kind() == reflect.Ptr || t.Kind() == reflect.Slice {
		t = t.Elem()
	}

	switch t.Kind() {
	case reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64, reflect.Int:
		return message.NewIntDatatype(uint32(t.Size()), true), nil
	case reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uint:
		return message.NewIntDatatype(uint32(t.Size()), false), nil
	case reflect.Float32, reflect.Float64:
		return message.NewFloatDatatype(uint32(t.Size())), nil
	case reflect.Complex64, reflect.Complex128:
		return Complex(uint32(t.Size() / 2)), nil
	case reflect.Array:
		var dims []uint32
		for t.Kind() == reflect.Array {
			dims = append(dims, uint32(t.Len()))
			t = t.Elem()
		}
		base, err := For(t)
		if err != nil {
			return nil, err
		}
		return message.NewArrayDatatype(dims, base), nil
	case reflect.Struct:
		return forStruct(t)
	}
	return nil, fmt.Errorf("%w: Go type %v", ErrUnsupported, t)
}

func forStruct(t reflect.Type) (*message.Datatype, error) {
	var members []message.CompoundMember
	var offset uint32
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		name, ok := fieldName(sf)
		if !ok {
			continue
		}
		if k := sf.Type.Kind(); k == reflect.Slice || k == reflect.Ptr {
			return nil, fmt.Errorf("%w: field %s of kind %v", ErrUnsupported, sf.Name, k)
		}
		mt, err := For(sf.Type)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", sf.Name, err)
		}
		members = append(members, message.CompoundMember{Name: name, Offset: offset, Type: mt})
		offset += mt.Size
	}
	if len(members) == 0 {
		return nil, fmt.Errorf("%w: struct %v has no fields", ErrUnsupported, t)
	}
	return message.NewCompoundDatatype(offset, members), nil
}

// fieldName returns the member name of a struct field and whether the
// field is stored at all.
func fieldName(sf reflect.StructField) (string, bool) {
	if !sf.IsExported() {
		return "", false
	}
	tag := sf.Tag.Get("h5")
	if tag == "-" {
		return "", false
	}
	if name, _, _ := strings.Cut(tag, ","); name != "" {
		return name, true
	}
	return sf.Name, true
}

// GoType returns the Go type that For maps onto dt. Compound members
// become struct fields tagged with the member name.
func GoType(dt *message.Datatype) (reflect.Type, error) {
	if dt == nil {
		return nil, fmt.Errorf("%w: nil datatype", ErrUnsupported)
	}
	switch dt.Class {
	case message.ClassFixedPoint:
		return intType(dt)
	case message.ClassFloatPoint:
		switch dt.Size {
		case 4:
			return reflect.TypeOf(float32(0)), nil
		case 8:
			return reflect.TypeOf(float64(0)), nil
		}
	case message.ClassString:
		return reflect.TypeOf(""), nil
	case message.ClassCompound:
		if re, _, ok := ComplexParts(dt); ok {
			if re.Type.Size == 4 {
				return reflect.TypeOf(complex64(0)), nil
			}
			return reflect.TypeOf(complex128(0)), nil
		}
		fields := make([]reflect.StructField, len(dt.Members))
		for i, m := range dt.Members {
			ft, err := GoType(m.Type)
			if err != nil {
				return nil, fmt.Errorf("member %q: %w", m.Name, err)
			}
			fields[i] = reflect.StructField{
				Name: exportName(m.Name),
				Type: ft,
				Tag:  reflect.StructTag(fmt.Sprintf(`h5:%q`, m.Name)),
			}
		}
		return reflect.StructOf(fields), nil
	case message.ClassArray:
		t, err := GoType(dt.Base)
		if err != nil {
			return nil, err
		}
		for i := len(dt.ArrayDims) - 1; i >= 0; i-- {
			t = reflect.ArrayOf(int(dt.ArrayDims[i]), t)
		}
		return t, nil
	case message.ClassVarLen:
		if dt.VarLenString {
			return reflect.TypeOf(""), nil
		}
		t, err := GoType(dt.Base)
		if err != nil {
			return nil, err
		}
		return reflect.SliceOf(t), nil
	}
	return nil, fmt.Errorf("%w: %v", ErrUnsupported, dt)
}

func intType(dt *message.Datatype) (reflect.Type, error) {
	signed := []reflect.Type{reflect.TypeOf(int8(0)), reflect.TypeOf(int16(0)), reflect.TypeOf(int32(0)), reflect.TypeOf(int64(0))}
	unsigned := []reflect.Type{reflect.TypeOf(uint8(0)), reflect.TypeOf(uint16(0)), reflect.TypeOf(uint32(0)), reflect.TypeOf(uint64(0))}
	idx := map[uint32]int{1: 0, 2: 1, 4: 2, 8: 3}
	i, ok := idx[dt.Size]
	if !ok {
		return nil, fmt.Errorf("%w: %d-byte integer", ErrUnsupported, dt.Size)
	}
	if dt.Signed {
		return signed[i], nil
	}
	return unsigned[i], nil
}

// exportName turns a member name into an exported Go identifier.
func exportName(name string) string {
	if name == "" {
		return "Field"
	}
	var b strings.Builder
	upper := true
	for _, r := range name {
		switch {
		case r == '_' || r == ' ' || r == '-':
			upper = true
			continue
		case r >= '0' && r <= '9', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		default:
			continue
		}
		if upper && r >= 'a' && r <= 'z' {
			r -= 'a' - 'A'
		}
		upper = false
		b.WriteRune(r)
	}
	s := b.String()
	if s == "" || (s[0] >= '0' && s[0] <= '9') {
		s = "F" + s
	}
	return s
}

// order returns the byte order of a numeric datatype.
func order(dt *message.Datatype) binary.ByteOrder {
	if dt.ByteOrder == message.OrderBE {
		return binary.BigEndian
	}
	return binary.LittleEndian
}
