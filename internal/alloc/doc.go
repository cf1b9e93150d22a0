// Package alloc manages file space for the HDF5 writer.
//
// New blocks are taken from a first-fit free list when a released block is
// large enough, otherwise they are placed at the end of the file. Blocks are
// released when a structure is rewritten elsewhere, for example the chunk
// index of an extendible dataset after an append.
//
//	a := alloc.New(eof)
//	addr := a.Alloc(1024)
//	a.Free(addr, 1024)
//	again := a.Alloc(512) // reuses the front of the freed block
package alloc
