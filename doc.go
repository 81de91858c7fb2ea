// Package ioframe implements a sans-I/O incremental binary-protocol parser
// engine: a trap-dispatch state machine that lets a protocol author describe
// the reading of a binary stream as a straight-line, resumable computation.
//
// A parse computation issues read requests (traps) against an input Buffer
// fed from outside the package; when the buffer lacks enough bytes the
// computation suspends transparently and resumes once more data arrives.
// The companion descriptor algebra (see Descriptor, Schema) builds
// bidirectional field descriptors (fixed-width integers, length-prefixed
// blobs, tagged switches, object lists, enum wrappers) into schemas that
// both parse bytes and serialize values from a single declaration.
//
// The package owns no transport: bytes enter through Parser.Send and leave
// through the output events drained by the host driver (Parser.Run is a
// reference blocking driver over a net.Conn).
package ioframe
