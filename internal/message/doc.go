// Package message encodes and parses the HDF5 object header messages the
// container layer uses.
//
// Supported messages:
//
//   - Dataspace (0x0001): rank, current and maximum extents. See [Dataspace].
//   - Link Info (0x0002) and Group Info (0x000A): compact-storage group
//     bookkeeping. See [LinkInfo] and [GroupInfo].
//   - Datatype (0x0003): fixed-point, floating-point, compound, array and
//     variable-length types. See [Datatype].
//   - Fill Value (0x0005): allocation and fill time. See [FillValue].
//   - Link (0x0006): hard links stored in the group header. See [Link].
//   - Data Layout (0x0008): compact, contiguous and chunked storage with
//     single-chunk or fixed array indexes. See [DataLayout].
//   - Filter Pipeline (0x000B): filters applied to every chunk. See
//     [FilterPipeline].
//
// Every message implements [Message]; its Encode method appends the message
// body to a [binary.Encoder]. [Parse] maps a raw message body back to the
// typed value and wraps anything else in [Unknown].
package message
