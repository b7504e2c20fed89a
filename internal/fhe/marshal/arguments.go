package marshal

import (
	"github.com/pkg/errors"
	"github/tomi204/fhevm-client/internal/contract"
	"github/tomi204/fhevm-client/internal/fhe"
)

var (
	// ErrFunctionNotFound is returned when the ABI has no fragment for the function.
	ErrFunctionNotFound = contract.ErrFunctionNotFound
	// ErrHandleCountMismatch is returned when the engine produced fewer handles
	// than the function declares encrypted parameters.
	ErrHandleCountMismatch = errors.New("encrypted handles do not match the function's encrypted parameters")
)

// externalState tracks how external encrypted parameters are fed: the first
// one takes the handle, every later one in the same call takes the proof.
type externalState int

const (
	awaitingHandle externalState = iota
	awaitingProofOnly
)

// BuildCallArguments returns the call arguments of functionName in ABI input
// order. Encrypted parameters receive handle hex, the inputProof parameter
// receives the proof hex and all other parameters pass originalArgs through by
// position (nil when not supplied).
func BuildCallArguments(enc *fhe.EncryptedInput, abi *contract.ABI, functionName string, originalArgs []any) ([]any, error) {
	if enc == nil {
		return nil, errors.New("encrypted input is required")
	}
	if abi == nil {
		return nil, errors.New("contract ABI is required")
	}

	fragment, err := abi.Function(functionName)
	if err != nil {
		return nil, err
	}

	proofHex := MustCanonicalHex(enc.InputProof)
	original := func(i int) any {
		if i < len(originalArgs) {
			return originalArgs[i]
		}
		return nil
	}

	cursor := 0
	nextHandle := func(param contract.Param) (string, error) {
		if cursor >= len(enc.Handles) {
			return "", errors.Wrapf(ErrHandleCountMismatch, "no handle left for %s %s (have %d)", param.InternalType, param.Name, len(enc.Handles))
		}
		handle := MustCanonicalHex(enc.Handles[cursor])
		cursor++
		return handle, nil
	}

	state := awaitingHandle
	args := make([]any, 0, len(fragment.Inputs))

	for i, param := range fragment.Inputs {
		switch {
		case IsInputProof(param.Name, param.Type):
			// checked first: the proof parameter is never an encrypted value
			args = append(args, proofHex)

		case !IsEncryptedType(param.InternalType):
			args = append(args, original(i))

		case IsExternalType(param.InternalType):
			if state == awaitingProofOnly {
				args = append(args, proofHex)
				continue
			}
			handle, err := nextHandle(param)
			if err != nil {
				return nil, err
			}
			args = append(args, handle)
			state = awaitingProofOnly

		default:
			// already on chain encrypted value (euint*)
			handle, err := nextHandle(param)
			if err != nil {
				return nil, err
			}
			args = append(args, handle)
		}
	}

	return args, nil
}
