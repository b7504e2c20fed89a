package contract

import (
	"github.com/ethereum/go-ethereum/common"
)

// Descriptor identifies the target of every call made by a client.
type Descriptor struct {
	Address common.Address
	ABI     *ABI
	Name    string

	// ReadFunction overrides the client's default read function for this contract.
	ReadFunction string
}

// ReadResult is the outcome of reading an encrypted value.
type ReadResult struct {
	// Handle is the canonical hex of the on-chain handle.
	Handle string `json:"handle"`
	// Value is the decrypted cleartext rendered as a decimal string ("true"/"false" for booleans).
	Value string `json:"value"`
}

// MutateRequest names the function to invoke and its logical (cleartext) arguments,
// indexed by ABI input position.
type MutateRequest struct {
	FunctionName string `json:"functionName"`
	Values       []any  `json:"values"`
}

// MutateResult is the settled transaction of a mutate call.
type MutateResult struct {
	TxHash      string `json:"txHash"`
	BlockNumber uint64 `json:"blockNumber"`
}
