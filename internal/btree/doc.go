// Package btree reads version 2 B-trees used as chunk indexes.
//
// Files written by this module index chunks with a fixed array, but
// libhdf5 and h5py switch to a v2 B-tree when a dataset has more than one
// unlimited dimension. Reading those files requires walking the tree:
//
//   - the header (BTHD) records the node size, the record size and the
//     tree depth
//   - internal nodes (BTIN) hold records followed by child pointers
//   - leaf nodes (BTLF) hold records only
//
// Record types 10 (unfiltered chunks) and 11 (filtered chunks) are
// supported. [ReadChunks] returns every record in key order; mapping the
// scaled offsets onto a chunk grid is left to the caller.
package btree
