// Package object reads and writes version 2 HDF5 object headers.
//
// An object header is the "OHDR" block every group and dataset starts
// with. It carries the messages describing the object (dataspace, datatype,
// layout, links) and ends in a lookup3 checksum.
//
//	Offset  Size  Field
//	0       4     "OHDR"
//	4       1     version (2)
//	5       1     flags; bits 0-1 give the width of the chunk size field
//	6       1-8   size of chunk 0 (messages and padding, not the checksum)
//	...           messages: type(1) size(2) flags(1) body
//	...     4     checksum over everything before it
//
// Headers are written with spare room padded out by a NIL message, so a
// header can be rewritten in place as long as its messages still fit in the
// original chunk. [Header.Fits] reports whether that is possible.
package object
