package contract

import (
	"bytes"
	"encoding/json"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/pkg/errors"
)

// ErrFunctionNotFound is returned when a function name has no fragment in the ABI.
var ErrFunctionNotFound = errors.New("function not found in ABI")

// Param is a single ABI input or output, including the solidity internal type
// (e.g. "externalEuint32") which go-ethereum's abi package does not keep for
// scalar types.
type Param struct {
	Name         string  `json:"name"`
	Type         string  `json:"type"`
	InternalType string  `json:"internalType,omitempty"`
	Components   []Param `json:"components,omitempty"`
}

// Fragment is a function entry of a contract ABI.
type Fragment struct {
	Type            string  `json:"type"`
	Name            string  `json:"name"`
	Inputs          []Param `json:"inputs"`
	Outputs         []Param `json:"outputs"`
	StateMutability string  `json:"stateMutability,omitempty"`
}

// IsView reports whether calling the fragment does not need a transaction.
func (f *Fragment) IsView() bool {
	return f.StateMutability == "view" || f.StateMutability == "pure"
}

// ABI keeps the raw ABI JSON, the function fragments with their internal types
// and the parsed go-ethereum ABI used for packing call data.
type ABI struct {
	raw       json.RawMessage
	fragments []Fragment
	parsed    abi.ABI
}

// ParseABI parses a contract ABI. Both a bare JSON array and a hardhat/foundry
// artifact object with an "abi" field are accepted.
func ParseABI(data []byte) (*ABI, error) {
	raw := bytes.TrimSpace(data)
	if len(raw) == 0 {
		return nil, errors.New("empty ABI")
	}

	if raw[0] == '{' {
		var artifact struct {
			ABI json.RawMessage `json:"abi"`
		}
		if err := json.Unmarshal(raw, &artifact); err != nil {
			return nil, errors.Wrap(err, "failed to decode ABI artifact")
		}
		if len(artifact.ABI) == 0 {
			return nil, errors.New("ABI artifact has no abi field")
		}
		raw = artifact.ABI
	}

	var entries []Fragment
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, errors.Wrap(err, "failed to decode ABI fragments")
	}

	fragments := make([]Fragment, 0, len(entries))
	for _, entry := range entries {
		if entry.Type == "function" {
			fragments = append(fragments, entry)
		}
	}

	parsed, err := abi.JSON(bytes.NewReader(raw))
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse ABI")
	}

	return &ABI{
		raw:       append(json.RawMessage(nil), raw...),
		fragments: fragments,
		parsed:    parsed,
	}, nil
}

// MustParseABI is like ParseABI but panics on error. Intended for tests and
// package level ABI constants.
func MustParseABI(data string) *ABI {
	parsed, err := ParseABI([]byte(data))
	if err != nil {
		panic(err)
	}
	return parsed
}

// Function returns the first function fragment named name.
func (a *ABI) Function(name string) (*Fragment, error) {
	for i := range a.fragments {
		if a.fragments[i].Name == name {
			return &a.fragments[i], nil
		}
	}
	return nil, errors.Wrapf(ErrFunctionNotFound, "function %q", name)
}

// Method returns the go-ethereum method for name. Overloaded functions resolve
// to the first overload, matching Function.
func (a *ABI) Method(name string) (abi.Method, error) {
	if method, ok := a.parsed.Methods[name]; ok {
		return method, nil
	}
	for _, method := range a.parsed.Methods {
		if method.RawName == name {
			return method, nil
		}
	}
	return abi.Method{}, errors.Wrapf(ErrFunctionNotFound, "function %q", name)
}

// Functions returns all function fragments in declaration order.
func (a *ABI) Functions() []Fragment {
	return a.fragments
}

// Parsed returns the go-ethereum representation of the ABI.
func (a *ABI) Parsed() abi.ABI {
	return a.parsed
}

// MarshalJSON returns the original ABI array, which is what the relayer expects
// in session creation requests.
func (a *ABI) MarshalJSON() ([]byte, error) {
	if a == nil || len(a.raw) == 0 {
		return []byte("[]"), nil
	}
	return a.raw, nil
}
