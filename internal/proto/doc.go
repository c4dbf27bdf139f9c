// Package proto implements the binary frame codec for the framewire
// protocol: many logical streams multiplexed over one bidirectional byte
// connection, each unit of traffic a self-describing frame.
//
// Every frame starts with a 6-byte header:
//
//	0                   1                   2                   3
//	+-+-----------------------------------------------------------+
//	|0|                     Stream ID (31)                        |
//	+-+-----------+-------------------+---------------------------+
//	| Type (6)    |     Flags (10)    |
//	+-------------+-------------------+
//
// followed, in this order, by the fields the type and flags call for:
//
//   - a 4-byte big-endian flow-control count, when the type carries an
//     initial demand (REQUEST_STREAM, REQUEST_CHANNEL) or is REQUEST_N
//   - a metadata block, when the metadata flag is set: a 3-byte big-endian
//     length prefix and exactly that many bytes
//   - the data block: all remaining bytes, on types that can carry data
//
// Frames are immutable values; decoding never copies, it returns views into
// the source buffer. The codec is stateless apart from the fragmentation
// Assembler, which buffers per-stream chains and must see a connection's
// frames in arrival order.
package proto
