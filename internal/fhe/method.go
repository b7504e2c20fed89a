package fhe

import (
	"encoding/json"
	"fmt"
	"math/big"
	"reflect"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/pkg/errors"
)

// EncryptionMethod names the builder call used for an encrypted type.
type EncryptionMethod string

const (
	MethodBool    EncryptionMethod = "addBool"
	MethodUint8   EncryptionMethod = "add8"
	MethodUint16  EncryptionMethod = "add16"
	MethodUint32  EncryptionMethod = "add32"
	MethodUint64  EncryptionMethod = "add64"
	MethodUint128 EncryptionMethod = "add128"
	MethodUint256 EncryptionMethod = "add256"
	MethodAddress EncryptionMethod = "addAddress"
)

// ErrInvalidValue is returned when a cleartext value does not fit the encrypted type.
var ErrInvalidValue = errors.New("invalid value for encrypted type")

// Bits returns the bit width of integer methods and 0 otherwise.
func (m EncryptionMethod) Bits() int {
	switch m {
	case MethodUint8:
		return 8
	case MethodUint16:
		return 16
	case MethodUint32:
		return 32
	case MethodUint64:
		return 64
	case MethodUint128:
		return 128
	case MethodUint256:
		return 256
	case MethodBool, MethodAddress:
		return 0
	default:
		return 0
	}
}

// Add feeds value into builder using the builder call m names. A nil value
// encrypts zero.
func (m EncryptionMethod) Add(builder InputBuilder, value any) error {
	switch m {
	case MethodBool:
		b, err := toBool(value)
		if err != nil {
			return err
		}
		builder.AddBool(b)
		return nil
	case MethodAddress:
		addr, err := toAddress(value)
		if err != nil {
			return err
		}
		builder.AddAddress(addr)
		return nil
	case MethodUint8, MethodUint16, MethodUint32, MethodUint64, MethodUint128, MethodUint256:
	default:
		return errors.Errorf("unknown encryption method %q", m)
	}

	n, err := toUint256(value)
	if err != nil {
		return err
	}
	if n.BitLen() > m.Bits() {
		return errors.Wrapf(ErrInvalidValue, "%s overflows %d bits", n.Dec(), m.Bits())
	}

	switch m {
	case MethodUint8:
		builder.Add8(uint8(n.Uint64()))
	case MethodUint16:
		builder.Add16(uint16(n.Uint64()))
	case MethodUint32:
		builder.Add32(uint32(n.Uint64()))
	case MethodUint64:
		builder.Add64(n.Uint64())
	case MethodUint128:
		builder.Add128(n)
	default:
		builder.Add256(n)
	}

	return nil
}

func toUint256(value any) (*uint256.Int, error) {
	switch v := value.(type) {
	case nil:
		return uint256.NewInt(0), nil
	case *uint256.Int:
		return new(uint256.Int).Set(v), nil
	case *big.Int:
		n, overflow := uint256.FromBig(v)
		if overflow || v.Sign() < 0 {
			return nil, errors.Wrapf(ErrInvalidValue, "%s is out of range", v)
		}
		return n, nil
	case json.Number:
		return parseUint256(v.String())
	case string:
		return parseUint256(v)
	case float64:
		if v < 0 || v != float64(uint64(v)) {
			return nil, errors.Wrapf(ErrInvalidValue, "%v is not an unsigned integer", v)
		}
		return uint256.NewInt(uint64(v)), nil
	case bool:
		if v {
			return uint256.NewInt(1), nil
		}
		return uint256.NewInt(0), nil
	}

	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if rv.Int() < 0 {
			return nil, errors.Wrapf(ErrInvalidValue, "%d is negative", rv.Int())
		}
		return uint256.NewInt(uint64(rv.Int())), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return uint256.NewInt(rv.Uint()), nil
	default:
		return nil, errors.Wrapf(ErrInvalidValue, "unsupported value type %T", value)
	}
}

func parseUint256(s string) (*uint256.Int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return uint256.NewInt(0), nil
	}

	base := 10
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		s = s[2:]
		base = 16
	}

	n, ok := new(big.Int).SetString(s, base)
	if !ok {
		return nil, errors.Wrapf(ErrInvalidValue, "not a number: %q", s)
	}
	return toUint256(n)
}

func toBool(value any) (bool, error) {
	switch v := value.(type) {
	case nil:
		return false, nil
	case bool:
		return v, nil
	case string:
		if b, err := strconv.ParseBool(v); err == nil {
			return b, nil
		}
	}

	n, err := toUint256(value)
	if err != nil {
		return false, errors.Wrapf(ErrInvalidValue, "not a bool: %v", value)
	}
	return !n.IsZero(), nil
}

func toAddress(value any) (common.Address, error) {
	switch v := value.(type) {
	case nil:
		return common.Address{}, nil
	case common.Address:
		return v, nil
	case string:
		if common.IsHexAddress(v) {
			return common.HexToAddress(v), nil
		}
	}
	return common.Address{}, errors.Wrapf(ErrInvalidValue, "not an address: %s", fmt.Sprint(value))
}
