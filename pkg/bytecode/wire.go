package bytecode

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// cborEncMode uses canonical options so equal programs encode to equal bytes.
var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("bytecode: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// Marshal serializes a Program to CBOR bytes. Each instruction is encoded
// as a three-element array [op, name, value].
func Marshal(p Program) ([]byte, error) {
	code := p.code
	if code == nil {
		code = []Instruction{}
	}
	return cborEncMode.Marshal(code)
}

// Unmarshal deserializes and validates a Program from CBOR bytes.
func Unmarshal(data []byte) (Program, error) {
	var code []Instruction
	if err := cbor.Unmarshal(data, &code); err != nil {
		return Program{}, fmt.Errorf("bytecode: unmarshal program: %w", err)
	}
	p := Program{code: code}
	if err := p.Validate(); err != nil {
		return Program{}, fmt.Errorf("bytecode: %w", err)
	}
	return p, nil
}

// MarshalCBOR implements cbor.Marshaler so a Program can be embedded in
// other CBOR messages.
func (p Program) MarshalCBOR() ([]byte, error) {
	return Marshal(p)
}

// UnmarshalCBOR implements cbor.Unmarshaler.
func (p *Program) UnmarshalCBOR(data []byte) error {
	decoded, err := Unmarshal(data)
	if err != nil {
		return err
	}
	*p = decoded
	return nil
}
