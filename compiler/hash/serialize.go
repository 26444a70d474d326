package hash

import (
	"encoding/binary"
)

// ---------------------------------------------------------------------------
// Deterministic binary serialization of the frozen hashing AST.
//
// Encoding conventions:
//   - First byte: HashVersion (0x02)
//   - Integers: big-endian fixed-width (int64=8B)
//   - De Bruijn indices: unsigned varint
//   - Strings: uint32 big-endian length + UTF-8 bytes
//   - Child nodes: serialized inline, pre-order
// ---------------------------------------------------------------------------

// Serialize produces a deterministic byte serialization of an HNode tree.
// The returned bytes are suitable for hashing with SHA-256.
func Serialize(node HNode) []byte {
	s := &serializer{buf: make([]byte, 0, 64)}
	s.writeByte(HashVersion)
	s.serializeNode(node)
	return s.buf
}

type serializer struct {
	buf []byte
}

func (s *serializer) writeByte(b byte) {
	s.buf = append(s.buf, b)
}

func (s *serializer) writeUvarint(v uint64) {
	s.buf = binary.AppendUvarint(s.buf, v)
}

func (s *serializer) writeUint32(v uint32) {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	s.buf = append(s.buf, b[:]...)
}

func (s *serializer) writeInt64(v int64) {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], uint64(v))
	s.buf = append(s.buf, b[:]...)
}

func (s *serializer) writeString(v string) {
	s.writeUint32(uint32(len(v)))
	s.buf = append(s.buf, v...)
}

func (s *serializer) serializeNode(node HNode) {
	switch n := node.(type) {
	case *HIntLiteral:
		s.writeByte(TagIntLiteral)
		s.writeInt64(n.Value)

	case *HBoundVar:
		s.writeByte(TagBoundVar)
		s.writeUvarint(n.Index)

	case *HFreeVar:
		s.writeByte(TagFreeVar)
		s.writeString(n.Name)

	case *HAbs:
		s.writeByte(TagAbs)
		s.serializeNode(n.Body)

	case *HApp:
		s.writeByte(TagApp)
		s.serializeNode(n.Func)
		s.serializeNode(n.Arg)

	case *HBinOp:
		s.writeByte(TagBinOp)
		s.writeByte(n.Op)
		s.serializeNode(n.Left)
		s.serializeNode(n.Right)
	}
}
