package bytecode

import "fmt"

// Opcode represents a bytecode instruction.
// Opcodes are organized into ranges by category for easy identification.
type Opcode byte

const (
	// ========================================================================
	// Stack manipulation (0x00-0x0F)
	// ========================================================================

	OpNop Opcode = 0x00 // No operation
	OpPop Opcode = 0x01 // Pop top of stack

	// ========================================================================
	// Constants (0x10-0x1F)
	// ========================================================================

	OpConst     Opcode = 0x10 // Push integer constant from pool: OpConst <index:u16>
	OpConstUnit Opcode = 0x11 // Push unit

	// ========================================================================
	// Local slots (0x20-0x2F)
	// ========================================================================

	OpLoadLocal  Opcode = 0x20 // Push local slot: OpLoadLocal <slot:u16>
	OpStoreLocal Opcode = 0x21 // Pop and store to local slot: OpStoreLocal <slot:u16>

	// ========================================================================
	// Functions (0x30-0x3F)
	// ========================================================================

	OpLoadFunc Opcode = 0x30 // Push a function value: OpLoadFunc <index:u16>

	// ========================================================================
	// Arithmetic (0x50-0x5F)
	// ========================================================================

	OpAdd Opcode = 0x50 // Pop two, push sum
	OpSub Opcode = 0x51 // Pop two, push difference (a - b where b is TOS)
	OpMul Opcode = 0x52 // Pop two, push product
	OpDiv Opcode = 0x53 // Pop two, push quotient (truncated)

	// ========================================================================
	// Calls (0xA0-0xAF)
	// ========================================================================

	OpCall Opcode = 0xA0 // Call function below argc args: OpCall <argc:u8>

	// ========================================================================
	// Tuples (0xB0-0xBF)
	// ========================================================================

	OpMakeTuple Opcode = 0xB0 // Pop n values, push a tuple of them: OpMakeTuple <n:u8>
	OpProject   Opcode = 0xB1 // Pop tuple, push one field: OpProject <index:u8>

	// ========================================================================
	// Return (0xF0-0xFF)
	// ========================================================================

	OpReturn     Opcode = 0xF0 // Return top of stack
	OpReturnUnit Opcode = 0xF1 // Return unit
)

// OpcodeInfo provides metadata about each opcode for debugging and validation.
type OpcodeInfo struct {
	Name       string // Human-readable name
	StackPop   int    // How many values popped from stack (-1 = variable)
	StackPush  int    // How many values pushed to stack
	OperandLen int    // Number of operand bytes following the opcode
}

// opcodeInfoTable maps opcodes to their metadata.
var opcodeInfoTable = map[Opcode]OpcodeInfo{
	OpNop: {"NOP", 0, 0, 0},
	OpPop: {"POP", 1, 0, 0},

	OpConst:     {"CONST", 0, 1, 2},
	OpConstUnit: {"CONST_UNIT", 0, 1, 0},

	OpLoadLocal:  {"LOAD_LOCAL", 0, 1, 2},
	OpStoreLocal: {"STORE_LOCAL", 1, 0, 2},

	OpLoadFunc: {"LOAD_FUNC", 0, 1, 2},

	OpAdd: {"ADD", 2, 1, 0},
	OpSub: {"SUB", 2, 1, 0},
	OpMul: {"MUL", 2, 1, 0},
	OpDiv: {"DIV", 2, 1, 0},

	OpCall: {"CALL", -1, 1, 1}, // Pops function + argc args

	OpMakeTuple: {"MAKE_TUPLE", -1, 1, 1},
	OpProject:   {"PROJECT", 1, 1, 1},

	OpReturn:     {"RETURN", 1, 0, 0},
	OpReturnUnit: {"RETURN_UNIT", 0, 0, 0},
}

// GetOpcodeInfo returns metadata for an opcode.
// Returns a zero OpcodeInfo with name "UNKNOWN" if the opcode is not recognized.
func GetOpcodeInfo(op Opcode) OpcodeInfo {
	if info, ok := opcodeInfoTable[op]; ok {
		return info
	}
	return OpcodeInfo{Name: fmt.Sprintf("UNKNOWN(0x%02X)", byte(op))}
}

// String returns the human-readable name of an opcode.
func (op Opcode) String() string {
	return GetOpcodeInfo(op).Name
}

// OperandLen returns the number of operand bytes for this opcode.
func (op Opcode) OperandLen() int {
	return GetOpcodeInfo(op).OperandLen
}

// InstructionLen returns the total length of an instruction (1 + operand bytes).
func (op Opcode) InstructionLen() int {
	return 1 + op.OperandLen()
}

// IsReturn returns true if this opcode terminates the current function.
func (op Opcode) IsReturn() bool {
	return op == OpReturn || op == OpReturnUnit
}

// IsArithmetic returns true for the binary integer operators.
func (op Opcode) IsArithmetic() bool {
	return op >= OpAdd && op <= OpDiv
}

// AllOpcodes returns a slice of all defined opcodes.
// Useful for testing that all opcodes have metadata.
func AllOpcodes() []Opcode {
	opcodes := make([]Opcode, 0, len(opcodeInfoTable))
	for op := range opcodeInfoTable {
		opcodes = append(opcodes, op)
	}
	return opcodes
}

// OpcodeCount returns the number of defined opcodes.
func OpcodeCount() int {
	return len(opcodeInfoTable)
}
