// Package marshal turns a logical contract call into the ABI ordered argument
// list expected by a confidential contract, threading encrypted handles and the
// input proof into the right positions.
package marshal

import (
	"strings"

	"github.com/rs/zerolog/log"
	"github/tomi204/fhevm-client/internal/fhe"
)

const (
	externalPrefix = "externalE"
	onChainPrefix  = "euint"
	inputProofName = "inputProof"
	inputProofType = "bytes"
	fallbackMethod = fhe.MethodUint64
)

var methodsByType = map[string]fhe.EncryptionMethod{
	"ebool":    fhe.MethodBool,
	"euint8":   fhe.MethodUint8,
	"euint16":  fhe.MethodUint16,
	"euint32":  fhe.MethodUint32,
	"euint64":  fhe.MethodUint64,
	"euint128": fhe.MethodUint128,
	"euint256": fhe.MethodUint256,
	"eaddress": fhe.MethodAddress,
}

// ClassifyEncryptionMethod maps an ABI internal type such as "externalEuint32"
// to the builder call encrypting it. Unknown types fall back to the 64-bit
// builder and log a warning instead of failing the call.
func ClassifyEncryptionMethod(internalType string) fhe.EncryptionMethod {
	name := internalType
	if strings.HasPrefix(name, externalPrefix) {
		// externalEuint32 -> euint32
		name = "e" + strings.TrimPrefix(name, externalPrefix)
	}

	if method, ok := methodsByType[name]; ok {
		return method
	}

	log.Warn().
		Str("internal_type", internalType).
		Str("fallback", string(fallbackMethod)).
		Msg("Marshal: unknown encrypted type, using 64-bit builder")

	return fallbackMethod
}

// IsEncryptedType reports whether an internal type marks an encrypted parameter.
func IsEncryptedType(internalType string) bool {
	return IsExternalType(internalType) || strings.HasPrefix(internalType, onChainPrefix)
}

// IsExternalType reports whether the parameter takes a freshly encrypted input.
func IsExternalType(internalType string) bool {
	return strings.HasPrefix(internalType, externalPrefix)
}

// IsInputProof reports whether a parameter carries the input proof.
func IsInputProof(name string, abiType string) bool {
	return name == inputProofName && abiType == inputProofType
}
