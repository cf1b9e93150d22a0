package hdf5

import (
	"reflect"

	"github.com/robert-malhotra/go-mrrd/internal/dtype"
	"github.com/robert-malhotra/go-mrrd/internal/message"
)

// Datatype describes the elements of a dataset.
type Datatype = message.Datatype

// Member is one field of a compound datatype.
type Member = message.CompoundMember

// Int returns a little-endian integer type of size bytes.
func Int(size uint32, signed bool) *Datatype { return message.NewIntDatatype(size, signed) }

// Float32 returns the IEEE single precision type.
func Float32() *Datatype { return message.NewFloatDatatype(4) }

// Float64 returns the IEEE double precision type.
func Float64() *Datatype { return message.NewFloatDatatype(8) }

// Complex64 returns the compound {real, imag} of two float32 values.
func Complex64() *Datatype { return dtype.Complex(4) }

// Complex128 returns the compound {real, imag} of two float64 values.
func Complex128() *Datatype { return dtype.Complex(8) }

// Compound returns a compound type of size bytes.
func Compound(size uint32, members ...Member) *Datatype {
	return message.NewCompoundDatatype(size, members)
}

// Array returns a fixed-size array of base.
func Array(base *Datatype, dims ...uint32) *Datatype {
	return message.NewArrayDatatype(dims, base)
}

// VarLen returns a variable-length sequence of base.
func VarLen(base *Datatype) *Datatype { return message.NewVarLenDatatype(base) }

// VarLenString returns a variable-length UTF-8 string type.
func VarLenString() *Datatype { return message.NewVarLenStringDatatype(message.CharsetUTF8) }

// IsComplex reports whether dt is a complex compound, as written by this
// package or by h5py.
func IsComplex(dt *Datatype) bool {
	_, _, ok := dtype.ComplexParts(dt)
	return ok
}

// DatatypeOf returns the datatype of v's Go type. Struct fields map to
// compound members named by their h5 tag.
func DatatypeOf(v any) (*Datatype, error) {
	return dtype.For(reflect.TypeOf(v))
}
