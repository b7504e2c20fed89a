package marshal

import (
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/pkg/errors"
)

// ToCanonicalHex renders bytes or a hex string as a single 0x prefixed form.
// It is idempotent: ToCanonicalHex("abcd") == ToCanonicalHex("0xabcd") == "0xabcd".
func ToCanonicalHex(value any) (string, error) {
	switch v := value.(type) {
	case string:
		return canonicalHexString(v), nil
	case []byte:
		return hexutil.Encode(v), nil
	case hexutil.Bytes:
		return hexutil.Encode(v), nil
	case [32]byte:
		return hexutil.Encode(v[:]), nil
	case common.Hash:
		return v.Hex(), nil
	default:
		return "", errors.Errorf("cannot render %T as hex", value)
	}
}

// MustCanonicalHex is ToCanonicalHex for the byte slices produced by the engine.
func MustCanonicalHex(b []byte) string {
	return hexutil.Encode(b)
}

func canonicalHexString(s string) string {
	if strings.HasPrefix(s, "0x") {
		return s
	}
	if strings.HasPrefix(s, "0X") {
		return "0x" + s[2:]
	}
	return "0x" + s
}

// IsZeroHandle reports whether a handle hex is the all zero sentinel, which
// stands for an uninitialized value.
func IsZeroHandle(handle string) bool {
	digits := strings.TrimPrefix(canonicalHexString(handle), "0x")
	return strings.Trim(digits, "0") == ""
}
