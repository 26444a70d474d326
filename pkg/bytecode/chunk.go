package bytecode

import (
	"encoding/binary"
	"fmt"
)

// BytecodeVersion is the current bytecode format version.
// Increment when making incompatible changes to the format.
const BytecodeVersion uint16 = 1

// Chunk is the compiled code of one top-level function.
//
// Slots 0..ParamCount-1 hold the arguments; the remaining slots hold the
// results of the function's statements in order.
type Chunk struct {
	Name string `cbor:"1,keyasint"`

	// Code section
	Code []byte `cbor:"2,keyasint"`

	// Constant pool, referenced by OpConst
	Constants []int64 `cbor:"3,keyasint,omitempty"`

	ParamCount uint8  `cbor:"4,keyasint"`
	LocalCount uint16 `cbor:"5,keyasint"`

	// Slot names for disassembly
	VarNames []string `cbor:"6,keyasint,omitempty"`
}

// NewChunk creates a new empty chunk.
func NewChunk(name string) *Chunk {
	return &Chunk{
		Name: name,
		Code: make([]byte, 0, 64),
	}
}

// AddConstant adds an integer to the pool and returns its index.
// If the constant already exists, returns the existing index.
func (c *Chunk) AddConstant(value int64) (uint16, error) {
	for i, v := range c.Constants {
		if v == value {
			return uint16(i), nil
		}
	}
	if len(c.Constants) > 0xFFFF {
		return 0, fmt.Errorf("%s: constant pool overflow", c.Name)
	}
	idx := uint16(len(c.Constants))
	c.Constants = append(c.Constants, value)
	return idx, nil
}

// Emit appends a single-byte opcode to the code section.
func (c *Chunk) Emit(op Opcode) int {
	offset := len(c.Code)
	c.Code = append(c.Code, byte(op))
	return offset
}

// EmitWithOperand appends an opcode with operand bytes.
func (c *Chunk) EmitWithOperand(op Opcode, operands ...byte) int {
	offset := len(c.Code)
	c.Code = append(c.Code, byte(op))
	c.Code = append(c.Code, operands...)
	return offset
}

// EmitUint16 appends an opcode with a big-endian u16 operand.
func (c *Chunk) EmitUint16(op Opcode, v uint16) int {
	offset := len(c.Code)
	c.Code = append(c.Code, byte(op))
	c.Code = binary.BigEndian.AppendUint16(c.Code, v)
	return offset
}

// CodeLen returns the length of the code section.
func (c *Chunk) CodeLen() int {
	return len(c.Code)
}

// readUint16 decodes the u16 operand at offset.
func (c *Chunk) readUint16(offset int) uint16 {
	return binary.BigEndian.Uint16(c.Code[offset:])
}

// varName returns the debug name of a slot, or "".
func (c *Chunk) varName(slot int) string {
	if slot < len(c.VarNames) {
		return c.VarNames[slot]
	}
	return ""
}

// Module is a compiled program: one chunk per function plus main.
type Module struct {
	Version   uint16   `cbor:"1,keyasint"`
	Functions []*Chunk `cbor:"2,keyasint"`
	Main      int      `cbor:"3,keyasint"` // index into Functions
}

// MainChunk returns the entry point.
func (m *Module) MainChunk() (*Chunk, error) {
	if m.Main < 0 || m.Main >= len(m.Functions) {
		return nil, fmt.Errorf("bytecode: main index %d out of range (%d functions)", m.Main, len(m.Functions))
	}
	return m.Functions[m.Main], nil
}
