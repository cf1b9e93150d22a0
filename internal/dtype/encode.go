package dtype

import (
	"fmt"
	"math"
	"reflect"
	"unsafe"

	"github.com/robert-malhotra/go-mrrd/internal/message"
)

// Encode packs v as elements of dt. v is a single value or a slice of
// values; a pointer to either is followed.
func Encode(dt *message.Datatype, v any) ([]byte, error) {
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Ptr {
		rv = rv.Elem()
	}
	if !rv.IsValid() {
		return nil, fmt.Errorf("%w: nil value", ErrUnsupported)
	}
	size := int(dt.Size)

	if rv.Kind() != reflect.Slice {
		out := make([]byte, size)
		return out, encodeValue(dt, out, rv)
	}

	n := rv.Len()
	out := make([]byte, n*size)
	if canDirectCopy(dt, rv.Type().Elem()) {
		if n > 0 {
			copy(out, unsafe.Slice((*byte)(rv.UnsafePointer()), n*size))
		}
		return out, nil
	}
	for i := 0; i < n; i++ {
		if err := encodeValue(dt, out[i*size:(i+1)*size], rv.Index(i)); err != nil {
			return nil, fmt.Errorf("element %d: %w", i, err)
		}
	}
	return out, nil
}

func encodeValue(dt *message.Datatype, buf []byte, v reflect.Value) error {
	switch dt.Class {
	case message.ClassFixedPoint:
		var u uint64
		switch v.Kind() {
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			u = uint64(v.Int())
		case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
			u = v.Uint()
		case reflect.Bool:
			if v.Bool() {
				u = 1
			}
		default:
			return fmt.Errorf("%w: %v into %v", ErrUnsupported, v.Type(), dt)
		}
		putUint(dt, buf, u)
		return nil

	case message.ClassFloatPoint:
		var f float64
		switch v.Kind() {
		case reflect.Float32, reflect.Float64:
			f = v.Float()
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			f = float64(v.Int())
		case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
			f = float64(v.Uint())
		default:
			return fmt.Errorf("%w: %v into %v", ErrUnsupported, v.Type(), dt)
		}
		putFloat(dt, buf, f)
		return nil

	case message.ClassCompound:
		if v.Kind() == reflect.Complex64 || v.Kind() == reflect.Complex128 {
			re, im, ok := ComplexParts(dt)
			if !ok {
				return fmt.Errorf("%w: complex into %v", ErrUnsupported, dt)
			}
			c := v.Complex()
			putFloat(re.Type, buf[re.Offset:], real(c))
			putFloat(im.Type, buf[im.Offset:], imag(c))
			return nil
		}
		if v.Kind() != reflect.Struct {
			return fmt.Errorf("%w: %v into %v", ErrUnsupported, v.Type(), dt)
		}
		fields := fieldsByName(v.Type())
		for _, m := range dt.Members {
			idx, ok := fields[m.Name]
			if !ok {
				continue
			}
			end := m.Offset + m.Type.Size
			if err := encodeValue(m.Type, buf[m.Offset:end], v.Field(idx)); err != nil {
				return fmt.Errorf("member %q: %w", m.Name, err)
			}
		}
		return nil

	case message.ClassArray:
		elems := flatten(v, nil)
		if uint32(len(elems))*dt.Base.Size != dt.Size {
			return fmt.Errorf("%w: %v into %v", ErrUnsupported, v.Type(), dt)
		}
		bs := dt.Base.Size
		for i, e := range elems {
			if err := encodeValue(dt.Base, buf[uint32(i)*bs:uint32(i+1)*bs], e); err != nil {
				return err
			}
		}
		return nil
	}
	return fmt.Errorf("%w: encoding %v", ErrUnsupported, dt)
}

// flatten returns the elements of a possibly nested Go array in row-major
// order. Non-array values are returned as a single element.
func flatten(v reflect.Value, out []reflect.Value) []reflect.Value {
	if v.Kind() != reflect.Array && v.Kind() != reflect.Slice {
		return append(out, v)
	}
	for i := 0; i < v.Len(); i++ {
		out = flatten(v.Index(i), out)
	}
	return out
}

// fieldsByName maps member names to struct field indexes.
func fieldsByName(t reflect.Type) map[string]int {
	m := make(map[string]int, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		if name, ok := fieldName(t.Field(i)); ok {
			m[name] = i
		}
	}
	return m
}

func putUint(dt *message.Datatype, buf []byte, u uint64) {
	o := order(dt)
	switch dt.Size {
	case 1:
		buf[0] = byte(u)
	case 2:
		o.PutUint16(buf, uint16(u))
	case 4:
		o.PutUint32(buf, uint32(u))
	case 8:
		o.PutUint64(buf, u)
	}
}

func putFloat(dt *message.Datatype, buf []byte, f float64) {
	if dt.Size == 4 {
		order(dt).PutUint32(buf, math.Float32bits(float32(f)))
		return
	}
	order(dt).PutUint64(buf, math.Float64bits(f))
}

// canDirectCopy reports whether elements of Go type t have the exact
// in-memory representation of dt on a little-endian host.
func canDirectCopy(dt *message.Datatype, t reflect.Type) bool {
	if dt.ByteOrder != message.OrderLE || uintptr(dt.Size) != t.Size() {
		return false
	}
	switch dt.Class {
	case message.ClassFixedPoint:
		switch t.Kind() {
		case reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			return dt.Signed
		case reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
			return !dt.Signed
		}
	case message.ClassFloatPoint:
		return t.Kind() == reflect.Float32 || t.Kind() == reflect.Float64
	case message.ClassCompound:
		if t.Kind() != reflect.Complex64 && t.Kind() != reflect.Complex128 {
			return false
		}
		re, im, ok := ComplexParts(dt)
		return ok && re.Offset == 0 && im.Offset == re.Type.Size && re.Type.ByteOrder == message.OrderLE
	}
	return false
}
