package marshal_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github/tomi204/fhevm-client/internal/fhe"
	"github/tomi204/fhevm-client/internal/fhe/marshal"
)

func TestClassifyEncryptionMethod(t *testing.T) {
	tests := []struct {
		internalType string
		want         fhe.EncryptionMethod
	}{
		{"externalEbool", fhe.MethodBool},
		{"externalEuint8", fhe.MethodUint8},
		{"externalEuint16", fhe.MethodUint16},
		{"externalEuint32", fhe.MethodUint32},
		{"externalEuint64", fhe.MethodUint64},
		{"externalEuint128", fhe.MethodUint128},
		{"externalEuint256", fhe.MethodUint256},
		{"externalEaddress", fhe.MethodAddress},
		{"euint32", fhe.MethodUint32},
		{"ebool", fhe.MethodBool},
		{"externalEuint512", fhe.MethodUint64},
		{"bytes", fhe.MethodUint64},
		{"", fhe.MethodUint64},
	}

	for _, tt := range tests {
		t.Run(tt.internalType, func(t *testing.T) {
			assert.Equal(t, tt.want, marshal.ClassifyEncryptionMethod(tt.internalType))
		})
	}
}

func TestIsEncryptedType(t *testing.T) {
	assert.True(t, marshal.IsEncryptedType("externalEuint32"))
	assert.True(t, marshal.IsEncryptedType("euint64"))
	assert.False(t, marshal.IsEncryptedType("uint64"))
	assert.False(t, marshal.IsEncryptedType("bytes"))
	assert.False(t, marshal.IsEncryptedType("address"))

	assert.True(t, marshal.IsInputProof("inputProof", "bytes"))
	assert.False(t, marshal.IsInputProof("inputProof", "bytes32"))
	assert.False(t, marshal.IsInputProof("proof", "bytes"))
}
