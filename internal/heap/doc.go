// Package heap reads and writes HDF5 global heap collections (signature
// "GCOL"), the storage behind variable-length strings and sequences.
//
// A collection is a block of at least [MinCollectionSize] bytes holding
// numbered objects, each padded to an 8-byte boundary. Objects are addressed
// by an [ID]: the collection address plus the object index. Index 0 is the
// free-space object that covers the unused tail of a collection.
//
// A dataset element of variable-length type stores a 4-byte sequence length
// followed by the heap ID of its contents; see [EncodeVarLen] and
// [DecodeVarLen].
//
// The [Writer] keeps one open collection and fills it in place. When an
// object does not fit it starts a new collection sized to hold it.
package heap
