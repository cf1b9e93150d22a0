package dtype

import (
	"fmt"
	"math"
	"reflect"
	"unsafe"

	"github.com/robert-malhotra/go-mrrd/internal/message"
)

// Decode unpacks elements of dt into dest, which must be a pointer to a
// value or to a slice. A slice is resized to hold every element in data.
func Decode(dt *message.Datatype, data []byte, dest any) error {
	rv := reflect.ValueOf(dest)
	if rv.Kind() != reflect.Ptr || rv.IsNil() {
		return fmt.Errorf("%w: destination must be a non-nil pointer", ErrUnsupported)
	}
	rv = rv.Elem()
	size := int(dt.Size)
	if size == 0 || len(data)%size != 0 {
		return fmt.Errorf("%w: %d bytes is not a whole number of %d-byte elements", ErrUnsupported, len(data), size)
	}

	if rv.Kind() != reflect.Slice {
		if len(data) < size {
			return fmt.Errorf("%w: no element to decode", ErrUnsupported)
		}
		return decodeValue(dt, data[:size], rv)
	}

	n := len(data) / size
	rv.Set(reflect.MakeSlice(rv.Type(), n, n))
	if canDirectCopy(dt, rv.Type().Elem()) {
		if n > 0 {
			copy(unsafe.Slice((*byte)(rv.UnsafePointer()), n*size), data)
		}
		return nil
	}
	for i := 0; i < n; i++ {
		if err := decodeValue(dt, data[i*size:(i+1)*size], rv.Index(i)); err != nil {
			return fmt.Errorf("element %d: %w", i, err)
		}
	}
	return nil
}

// DecodeSlice is Decode into a new []T.
func DecodeSlice[T any](dt *message.Datatype, data []byte) ([]T, error) {
	var out []T
	if err := Decode(dt, data, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func decodeValue(dt *message.Datatype, buf []byte, v reflect.Value) error {
	switch dt.Class {
	case message.ClassFixedPoint:
		u := getUint(dt, buf)
		if dt.Signed && dt.Size < 8 {
			shift := 64 - 8*dt.Size
			u = uint64(int64(u<<shift) >> shift)
		}
		switch v.Kind() {
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			v.SetInt(int64(u))
		case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
			v.SetUint(u)
		case reflect.Float32, reflect.Float64:
			if dt.Signed {
				v.SetFloat(float64(int64(u)))
			} else {
				v.SetFloat(float64(u))
			}
		case reflect.Bool:
			v.SetBool(u != 0)
		default:
			return fmt.Errorf("%w: %v into %v", ErrUnsupported, dt, v.Type())
		}
		return nil

	case message.ClassFloatPoint:
		switch v.Kind() {
		case reflect.Float32, reflect.Float64:
			v.SetFloat(getFloat(dt, buf))
			return nil
		}
		return fmt.Errorf("%w: %v into %v", ErrUnsupported, dt, v.Type())

	case message.ClassCompound:
		if v.Kind() == reflect.Complex64 || v.Kind() == reflect.Complex128 {
			re, im, ok := ComplexParts(dt)
			if !ok {
				return fmt.Errorf("%w: %v into %v", ErrUnsupported, dt, v.Type())
			}
			v.SetComplex(complex(getFloat(re.Type, buf[re.Offset:]), getFloat(im.Type, buf[im.Offset:])))
			return nil
		}
		if v.Kind() != reflect.Struct {
			return fmt.Errorf("%w: %v into %v", ErrUnsupported, dt, v.Type())
		}
		fields := fieldsByName(v.Type())
		for _, m := range dt.Members {
			idx, ok := fields[m.Name]
			if !ok {
				continue
			}
			if err := decodeValue(m.Type, buf[m.Offset:m.Offset+m.Type.Size], v.Field(idx)); err != nil {
				return fmt.Errorf("member %q: %w", m.Name, err)
			}
		}
		return nil

	case message.ClassArray:
		elems := flatten(v, nil)
		bs := dt.Base.Size
		if uint32(len(elems))*bs != dt.Size {
			return fmt.Errorf("%w: %v into %v", ErrUnsupported, dt, v.Type())
		}
		for i, e := range elems {
			if err := decodeValue(dt.Base, buf[uint32(i)*bs:uint32(i+1)*bs], e); err != nil {
				return err
			}
		}
		return nil
	}
	return fmt.Errorf("%w: decoding %v", ErrUnsupported, dt)
}

func getUint(dt *message.Datatype, buf []byte) uint64 {
	o := order(dt)
	switch dt.Size {
	case 1:
		return uint64(buf[0])
	case 2:
		return uint64(o.Uint16(buf))
	case 4:
		return uint64(o.Uint32(buf))
	case 8:
		return o.Uint64(buf)
	}
	return 0
}

func getFloat(dt *message.Datatype, buf []byte) float64 {
	if dt.Size == 4 {
		return float64(math.Float32frombits(order(dt).Uint32(buf)))
	}
	return math.Float64frombits(order(dt).Uint64(buf))
}
