// Package superblock reads and writes the HDF5 superblock.
//
// Only version 2 and 3 superblocks are handled: the root group is referenced
// directly by object header address and the block ends in a lookup3
// checksum. The writer always produces version 3 with 8-byte offsets and
// lengths.
//
//	Offset  Size  Field
//	0       8     signature 89 48 44 46 0d 0a 1a 0a
//	8       1     version
//	9       1     size of offsets (O)
//	10      1     size of lengths
//	11      1     file consistency flags
//	12      O     base address
//	12+O    O     superblock extension address
//	12+2O   O     end-of-file address
//	12+3O   O     root group object header address
//	12+4O   4     checksum
//
// Bit 0 of the consistency flags marks a file that is open for writing. A
// writer sets it on open and clears it on close, so a second writer can
// refuse a file another handle still owns.
package superblock
