// Package dtype maps Go types onto HDF5 datatypes and converts between Go
// values and packed HDF5 element bytes.
//
// Type mapping:
//
//	Go type            | HDF5 datatype
//	-------------------|------------------------------------------------
//	int8 ... int64     | signed fixed-point of the same size
//	uint8 ... uint64   | unsigned fixed-point of the same size
//	float32, float64   | IEEE float
//	complex64/128      | compound {real, imag} of float32 / float64
//	[N]T, [N][M]T      | array of T with dims (N) / (N, M)
//	struct             | compound, members packed in field order
//
// Struct fields are named by their `h5` tag, or by the field name when the
// tag is absent; `h5:"-"` skips a field. Compound members are matched by
// name when decoding, so the file's member order and padding may differ
// from the Go struct. Complex compounds written by h5py with members
// {r, i} decode as well.
//
// Use [For] to derive a datatype, [Encode] to pack values and [Decode] to
// unpack them. [GoType] goes the other way, from a datatype to a Go type.
package dtype
