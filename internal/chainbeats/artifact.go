// Package chainbeats binds the ChainBeats contract: its compiled artifact,
// deployment and the calls the harness makes against it.
package chainbeats

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// ContractName is the name of the contract in compiler output.
const ContractName = "ChainBeats"

var (
	// ErrEmptyBytecode is returned when an artifact has no creation code.
	ErrEmptyBytecode = errors.New("chainbeats: empty bytecode")
	// ErrIncompatibleABI is returned when an artifact lacks part of the
	// interface the harness calls.
	ErrIncompatibleABI = errors.New("chainbeats: incompatible ABI")
)

// Artifact is a compiled contract with ABI and bytecode. Both Hardhat
// ("bytecode": "0x...") and Foundry ("bytecode": {"object": "0x..."})
// layouts are accepted.
type Artifact struct {
	ContractName     string          `json:"contractName,omitempty"`
	SourceName       string          `json:"sourceName,omitempty"`
	ABI              json.RawMessage `json:"abi"`
	Bytecode         Bytecode        `json:"bytecode"`
	DeployedBytecode Bytecode        `json:"deployedBytecode,omitempty"`
}

// Bytecode contains the contract bytecode as a 0x-prefixed hex string.
type Bytecode struct {
	Object string `json:"object"`
}

// UnmarshalJSON accepts either a plain hex string or an {"object": ...} wrapper.
func (b *Bytecode) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		return json.Unmarshal(data, &b.Object)
	}
	type wrapped Bytecode
	var w wrapped
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*b = Bytecode(w)
	return nil
}

// Bytes decodes the hex bytecode.
func (b Bytecode) Bytes() ([]byte, error) {
	obj := strings.TrimSpace(b.Object)
	if obj == "" || obj == "0x" {
		return nil, ErrEmptyBytecode
	}
	if !strings.HasPrefix(obj, "0x") && !strings.HasPrefix(obj, "0X") {
		obj = "0x" + obj
	}
	if strings.Contains(obj, "__") {
		return nil, fmt.Errorf("bytecode has unlinked library placeholders")
	}
	code, err := hexutil.Decode(obj)
	if err != nil {
		return nil, fmt.Errorf("decode bytecode: %w", err)
	}
	return code, nil
}

// LoadArtifact reads and checks an artifact file.
func LoadArtifact(path string) (*Artifact, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read artifact: %w", err)
	}
	a, err := ParseArtifact(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return a, nil
}

// ParseArtifact parses and checks artifact JSON.
func ParseArtifact(data []byte) (*Artifact, error) {
	var a Artifact
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("parse artifact: %w", err)
	}
	if err := a.Validate(); err != nil {
		return nil, err
	}
	return &a, nil
}

// ParsedABI parses the artifact's ABI.
func (a *Artifact) ParsedABI() (abi.ABI, error) {
	if len(a.ABI) == 0 {
		return abi.ABI{}, fmt.Errorf("%w: artifact has no ABI", ErrIncompatibleABI)
	}
	parsed, err := abi.JSON(bytes.NewReader(a.ABI))
	if err != nil {
		return abi.ABI{}, fmt.Errorf("parse ABI: %w", err)
	}
	return parsed, nil
}

// CreationCode returns the decoded creation bytecode.
func (a *Artifact) CreationCode() ([]byte, error) {
	return a.Bytecode.Bytes()
}

// Validate checks that the artifact can be deployed and exposes the
// interface the harness uses.
func (a *Artifact) Validate() error {
	parsed, err := a.ParsedABI()
	if err != nil {
		return err
	}
	if err := CheckABI(parsed); err != nil {
		return err
	}
	if _, err := a.CreationCode(); err != nil {
		return err
	}
	return nil
}

// CheckABI verifies that parsed exposes the constructor and methods the
// harness calls, with matching arity.
func CheckABI(parsed abi.ABI) error {
	if n := len(parsed.Constructor.Inputs); n != 4 {
		return fmt.Errorf("%w: constructor takes %d arguments, want 4", ErrIncompatibleABI, n)
	}
	want := map[string]int{
		MethodMint:        1,
		MethodMintPrice:   0,
		MethodGetMetadata: 1,
	}
	for name, inputs := range want {
		m, ok := parsed.Methods[name]
		if !ok {
			return fmt.Errorf("%w: missing method %s", ErrIncompatibleABI, name)
		}
		if len(m.Inputs) != inputs {
			return fmt.Errorf("%w: %s takes %d arguments, want %d", ErrIncompatibleABI, name, len(m.Inputs), inputs)
		}
	}
	if !parsed.Methods[MethodMint].IsPayable() {
		return fmt.Errorf("%w: %s is not payable", ErrIncompatibleABI, MethodMint)
	}
	return nil
}
