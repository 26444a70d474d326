package bytecode

import (
	"fmt"
	"strings"
)

// Disassemble returns a human-readable listing of the chunk.
func (c *Chunk) Disassemble() string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("; === %s ===\n", c.Name))
	if c.ParamCount > 0 {
		sb.WriteString(fmt.Sprintf("; Parameters (%d): %s\n", c.ParamCount,
			strings.Join(c.paramNames(), ", ")))
	}
	if c.LocalCount > 0 {
		sb.WriteString(fmt.Sprintf("; Locals: %d slots\n", c.LocalCount))
	}

	if len(c.Constants) > 0 {
		sb.WriteString("; Constants:\n")
		for i, v := range c.Constants {
			sb.WriteString(fmt.Sprintf(";   [%3d] %d\n", i, v))
		}
	}

	sb.WriteString("; Code:\n")
	offset := 0
	for offset < len(c.Code) {
		line, n := c.disassembleInstruction(offset)
		sb.WriteString(fmt.Sprintf("%04X  %s\n", offset, line))
		offset += n
	}
	return sb.String()
}

func (c *Chunk) paramNames() []string {
	names := make([]string, c.ParamCount)
	for i := range names {
		names[i] = c.varName(i)
	}
	return names
}

// disassembleInstruction formats the instruction at offset and returns
// its length.
func (c *Chunk) disassembleInstruction(offset int) (string, int) {
	op := Opcode(c.Code[offset])
	n := op.InstructionLen()
	if offset+n > len(c.Code) {
		return fmt.Sprintf("%s <truncated>", op), len(c.Code) - offset
	}

	switch op {
	case OpConst:
		idx := c.readUint16(offset + 1)
		if int(idx) < len(c.Constants) {
			return fmt.Sprintf("%s %d ; %d", op, idx, c.Constants[idx]), n
		}
		return fmt.Sprintf("%s %d", op, idx), n

	case OpLoadLocal, OpStoreLocal:
		slot := c.readUint16(offset + 1)
		if name := c.varName(int(slot)); name != "" {
			return fmt.Sprintf("%s %d ; %s", op, slot, name), n
		}
		return fmt.Sprintf("%s %d", op, slot), n

	case OpLoadFunc:
		return fmt.Sprintf("%s %d", op, c.readUint16(offset+1)), n

	case OpCall, OpMakeTuple, OpProject:
		return fmt.Sprintf("%s %d", op, c.Code[offset+1]), n

	default:
		return op.String(), n
	}
}

// Disassemble lists every function of the module, main last.
func (m *Module) Disassemble() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("; lamc bytecode v%d, %d functions\n", m.Version, len(m.Functions)))
	for i, c := range m.Functions {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("; function %d", i))
		if i == m.Main {
			sb.WriteString(" (main)")
		}
		sb.WriteString("\n")
		sb.WriteString(c.Disassemble())
	}
	return sb.String()
}
