// Package layout reads and writes the raw data of HDF5 datasets.
//
// Three storage classes are handled, each behind the [Layout] interface:
//
//   - Compact: the data lives inside the object header ([Compact]).
//   - Contiguous: one block in the file ([Contiguous]).
//   - Chunked: fixed-shape chunks located through a chunk index
//     ([Chunked]). The single-chunk and fixed-array indexes are supported.
//
// Extendible datasets are stored chunked with a [FixedArray] index that the
// writer rebuilds whenever the dataset grows. The array is sized so that it
// never needs paging, and the blocks of the previous index are returned to
// the file's free list.
//
// Selections are rectangular: a start and a count per dimension, in
// row-major order. Chunks are decoded through the dataset's filter
// pipeline and only chunks that intersect the selection are read.
package layout
