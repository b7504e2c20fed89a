package contract

import (
	"encoding/json"
	"fmt"
	"math/big"
	"reflect"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/holiman/uint256"
	"github.com/pkg/errors"
)

// ErrInvalidArgument is returned when a loosely typed argument cannot be
// converted into the Go type go-ethereum packs for the ABI input.
var ErrInvalidArgument = errors.New("invalid contract argument")

// CoerceArguments converts loosely typed values (hex strings, decimal strings,
// json.Number, plain ints) into the exact Go types the go-ethereum packer expects
// for the method inputs.
func CoerceArguments(method abi.Method, args []any) ([]any, error) {
	if len(args) != len(method.Inputs) {
		return nil, errors.Wrapf(ErrInvalidArgument, "%s expects %d arguments, got %d", method.RawName, len(method.Inputs), len(args))
	}

	out := make([]any, len(args))
	for i, input := range method.Inputs {
		value, err := coerce(input.Type, args[i])
		if err != nil {
			return nil, errors.Wrapf(err, "argument %d (%s %s)", i, input.Type.String(), input.Name)
		}
		out[i] = value
	}

	return out, nil
}

//nolint:cyclop // one case per ABI kind
func coerce(typ abi.Type, value any) (any, error) {
	if value == nil {
		return reflect.Zero(typ.GetType()).Interface(), nil
	}

	// already the packer's type
	if reflect.TypeOf(value) == typ.GetType() {
		return value, nil
	}

	switch typ.T {
	case abi.UintTy, abi.IntTy:
		n, err := toBigInt(value)
		if err != nil {
			return nil, err
		}
		if typ.Size > 64 {
			return n, nil
		}
		return convertSmallInt(typ, n)
	case abi.BoolTy:
		return toBool(value)
	case abi.AddressTy:
		s, ok := value.(string)
		if !ok || !common.IsHexAddress(s) {
			return nil, errors.Wrapf(ErrInvalidArgument, "not an address: %v", value)
		}
		return common.HexToAddress(s), nil
	case abi.StringTy:
		return fmt.Sprint(value), nil
	case abi.BytesTy:
		return toBytes(value)
	case abi.FixedBytesTy:
		b, err := toBytes(value)
		if err != nil {
			return nil, err
		}
		if len(b) > typ.Size {
			return nil, errors.Wrapf(ErrInvalidArgument, "%d bytes do not fit bytes%d", len(b), typ.Size)
		}
		arr := reflect.New(typ.GetType()).Elem()
		// left aligned like solidity bytesN
		reflect.Copy(arr, reflect.ValueOf(b))
		return arr.Interface(), nil
	case abi.SliceTy, abi.ArrayTy:
		items, ok := value.([]any)
		if !ok {
			return value, nil
		}
		var slice reflect.Value
		if typ.T == abi.SliceTy {
			slice = reflect.MakeSlice(typ.GetType(), len(items), len(items))
		} else {
			if len(items) != typ.Size {
				return nil, errors.Wrapf(ErrInvalidArgument, "array expects %d items, got %d", typ.Size, len(items))
			}
			slice = reflect.New(typ.GetType()).Elem()
		}
		for i, item := range items {
			elem, err := coerce(*typ.Elem, item)
			if err != nil {
				return nil, err
			}
			slice.Index(i).Set(reflect.ValueOf(elem))
		}
		return slice.Interface(), nil
	default:
		return value, nil
	}
}

func convertSmallInt(typ abi.Type, n *big.Int) (any, error) {
	target := typ.GetType()
	if typ.T == abi.UintTy {
		if n.Sign() < 0 || n.BitLen() > typ.Size {
			return nil, errors.Wrapf(ErrInvalidArgument, "%s overflows uint%d", n, typ.Size)
		}
		return reflect.ValueOf(n.Uint64()).Convert(target).Interface(), nil
	}
	if !n.IsInt64() || n.BitLen() >= typ.Size {
		return nil, errors.Wrapf(ErrInvalidArgument, "%s overflows int%d", n, typ.Size)
	}
	return reflect.ValueOf(n.Int64()).Convert(target).Interface(), nil
}

func toBigInt(value any) (*big.Int, error) {
	switch v := value.(type) {
	case *big.Int:
		return v, nil
	case *uint256.Int:
		return v.ToBig(), nil
	case json.Number:
		return parseBigInt(v.String())
	case string:
		return parseBigInt(v)
	case float64:
		if v != float64(int64(v)) {
			return nil, errors.Wrapf(ErrInvalidArgument, "not an integer: %v", v)
		}
		return big.NewInt(int64(v)), nil
	case bool:
		if v {
			return big.NewInt(1), nil
		}
		return big.NewInt(0), nil
	}

	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return big.NewInt(rv.Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return new(big.Int).SetUint64(rv.Uint()), nil
	default:
		return nil, errors.Wrapf(ErrInvalidArgument, "not a number: %v (%T)", value, value)
	}
}

func parseBigInt(s string) (*big.Int, error) {
	s = strings.TrimSpace(s)
	base := 10
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		s = s[2:]
		base = 16
	}
	n, ok := new(big.Int).SetString(s, base)
	if !ok {
		return nil, errors.Wrapf(ErrInvalidArgument, "not a number: %q", s)
	}
	return n, nil
}

func toBool(value any) (bool, error) {
	switch v := value.(type) {
	case bool:
		return v, nil
	case string:
		b, err := strconv.ParseBool(v)
		if err != nil {
			return false, errors.Wrapf(ErrInvalidArgument, "not a bool: %q", v)
		}
		return b, nil
	}
	n, err := toBigInt(value)
	if err != nil {
		return false, errors.Wrapf(ErrInvalidArgument, "not a bool: %v", value)
	}
	return n.Sign() != 0, nil
}

func toBytes(value any) ([]byte, error) {
	switch v := value.(type) {
	case []byte:
		return v, nil
	case hexutil.Bytes:
		return v, nil
	case common.Hash:
		return v.Bytes(), nil
	case [32]byte:
		return v[:], nil
	case string:
		if !strings.HasPrefix(v, "0x") && !strings.HasPrefix(v, "0X") {
			v = "0x" + v
		}
		b, err := hexutil.Decode(v)
		if err != nil {
			return nil, errors.Wrapf(ErrInvalidArgument, "not hex: %q", v)
		}
		return b, nil
	default:
		return nil, errors.Wrapf(ErrInvalidArgument, "not bytes: %T", value)
	}
}
