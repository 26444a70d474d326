package bytecode

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// cborEncMode uses canonical encoding so equal modules produce equal bytes.
var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("bytecode: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// MarshalModule serializes a Module to CBOR bytes.
func MarshalModule(m *Module) ([]byte, error) {
	return cborEncMode.Marshal(m)
}

// UnmarshalModule deserializes a Module from CBOR bytes and checks that it
// was written by this bytecode version.
func UnmarshalModule(data []byte) (*Module, error) {
	var m Module
	if err := cbor.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("bytecode: unmarshal module: %w", err)
	}
	if m.Version != BytecodeVersion {
		return nil, fmt.Errorf("bytecode: module version %d, want %d", m.Version, BytecodeVersion)
	}
	for i, c := range m.Functions {
		if c == nil {
			return nil, fmt.Errorf("bytecode: function %d is empty", i)
		}
	}
	if _, err := m.MainChunk(); err != nil {
		return nil, err
	}
	return &m, nil
}
