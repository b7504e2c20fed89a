// Package mock is an in-memory encryption engine. Ciphertexts are never
// produced: handles are derived deterministically and the cleartext is kept
// in a map, which is enough to exercise the call pipeline without a coprocessor.
package mock

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"math/big"
	"strconv"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
	"github.com/holiman/uint256"
	"github.com/pkg/errors"
	"github/tomi204/fhevm-client/internal/fhe"
)

const (
	handleLength  = 32
	handleVersion = 0

	// positions inside the 32 byte handle
	indexByte   = 21
	typeByte    = 30
	versionByte = 31

	keyLength = 32
)

// type ids follow the fhevm FheType enumeration
var typeIDs = map[fhe.EncryptionMethod]byte{
	fhe.MethodBool:    0,
	fhe.MethodUint8:   2,
	fhe.MethodUint16:  3,
	fhe.MethodUint32:  4,
	fhe.MethodUint64:  5,
	fhe.MethodUint128: 6,
	fhe.MethodAddress: 7,
	fhe.MethodUint256: 8,
}

// Config tunes the EIP-712 domain returned by CreateEIP712.
type Config struct {
	ChainID           int64
	VerifyingContract common.Address
}

// Engine is a deterministic in-memory fhe.Engine.
type Engine struct {
	cfg Config

	mu      sync.RWMutex
	values  map[string]any
	counter uint64

	decryptCalls int
}

var _ fhe.Engine = (*Engine)(nil)

// New creates an empty engine.
func New(cfg Config) *Engine {
	return &Engine{
		cfg:    cfg,
		values: make(map[string]any),
	}
}

// Factory returns an fhe.Factory creating a fresh engine.
func Factory(cfg Config) fhe.Factory {
	return func(ctx context.Context) (fhe.Engine, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return New(cfg), nil
	}
}

// Store registers the cleartext behind a handle, e.g. a value computed on chain.
func (e *Engine) Store(handle []byte, value any) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.values[hexutil.Encode(handle)] = value
}

// Value returns the cleartext stored for a handle.
func (e *Engine) Value(handle string) (any, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	v, ok := e.values[handle]
	return v, ok
}

// DecryptCalls returns how many times UserDecrypt was invoked.
func (e *Engine) DecryptCalls() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.decryptCalls
}

// CreateEncryptedInput implements fhe.Engine.
func (e *Engine) CreateEncryptedInput(contract common.Address, user common.Address) (fhe.InputBuilder, error) {
	if contract == (common.Address{}) {
		return nil, errors.New("contract address is required")
	}
	if user == (common.Address{}) {
		return nil, errors.New("user address is required")
	}
	return &builder{engine: e, contract: contract, user: user}, nil
}

// UserDecrypt implements fhe.Engine. Unknown handles are left out of the result.
func (e *Engine) UserDecrypt(
	ctx context.Context,
	pairs []fhe.HandleContractPair,
	privateKey string,
	publicKey string,
	signature string,
	contracts []common.Address,
	user common.Address,
	startTimestamp int64,
	durationDays int64,
) (map[string]any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if privateKey == "" || publicKey == "" || signature == "" {
		return nil, errors.New("incomplete decryption authorization")
	}
	if durationDays <= 0 || startTimestamp <= 0 {
		return nil, errors.New("invalid decryption validity window")
	}

	allowed := make(map[common.Address]struct{}, len(contracts))
	for _, c := range contracts {
		allowed[c] = struct{}{}
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.decryptCalls++

	out := make(map[string]any, len(pairs))
	for _, pair := range pairs {
		if _, ok := allowed[pair.ContractAddress]; !ok {
			return nil, errors.Errorf("contract %s is not covered by the authorization", pair.ContractAddress.Hex())
		}
		if value, ok := e.values[pair.Handle]; ok {
			out[pair.Handle] = value
		}
	}

	return out, nil
}

// GenerateKeypair implements fhe.Engine.
func (e *Engine) GenerateKeypair() (string, string, error) {
	private := make([]byte, keyLength)
	if _, err := rand.Read(private); err != nil {
		return "", "", errors.Wrap(err, "failed to generate keypair")
	}
	public := crypto.Keccak256(private)
	return hexutil.Encode(public), hexutil.Encode(private), nil
}

// CreateEIP712 implements fhe.Engine with the user decryption request layout.
func (e *Engine) CreateEIP712(publicKey string, contracts []common.Address, startTimestamp int64, durationDays int64) (*apitypes.TypedData, error) {
	addresses := make([]interface{}, 0, len(contracts))
	for _, c := range contracts {
		addresses = append(addresses, c.Hex())
	}

	return &apitypes.TypedData{
		Types: apitypes.Types{
			"EIP712Domain": []apitypes.Type{
				{Name: "name", Type: "string"},
				{Name: "version", Type: "string"},
				{Name: "chainId", Type: "uint256"},
				{Name: "verifyingContract", Type: "address"},
			},
			"UserDecryptRequestVerification": []apitypes.Type{
				{Name: "publicKey", Type: "bytes"},
				{Name: "contractAddresses", Type: "address[]"},
				{Name: "startTimestamp", Type: "uint256"},
				{Name: "durationDays", Type: "uint256"},
				{Name: "extraData", Type: "bytes"},
			},
		},
		PrimaryType: "UserDecryptRequestVerification",
		Domain: apitypes.TypedDataDomain{
			Name:              "Decryption",
			Version:           "1",
			ChainId:           math.NewHexOrDecimal256(e.cfg.ChainID),
			VerifyingContract: e.cfg.VerifyingContract.Hex(),
		},
		Message: apitypes.TypedDataMessage{
			"publicKey":         publicKey,
			"contractAddresses": addresses,
			"startTimestamp":    strconv.FormatInt(startTimestamp, 10),
			"durationDays":      strconv.FormatInt(durationDays, 10),
			"extraData":         "0x00",
		},
	}, nil
}

func (e *Engine) nextSeed() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.counter++
	return e.counter
}

type entry struct {
	method fhe.EncryptionMethod
	value  any
}

type builder struct {
	engine   *Engine
	contract common.Address
	user     common.Address
	entries  []entry
}

func (b *builder) add(method fhe.EncryptionMethod, value any) fhe.InputBuilder {
	b.entries = append(b.entries, entry{method: method, value: value})
	return b
}

func (b *builder) AddBool(value bool) fhe.InputBuilder { return b.add(fhe.MethodBool, value) }

func (b *builder) Add8(value uint8) fhe.InputBuilder {
	return b.add(fhe.MethodUint8, new(big.Int).SetUint64(uint64(value)))
}

func (b *builder) Add16(value uint16) fhe.InputBuilder {
	return b.add(fhe.MethodUint16, new(big.Int).SetUint64(uint64(value)))
}

func (b *builder) Add32(value uint32) fhe.InputBuilder {
	return b.add(fhe.MethodUint32, new(big.Int).SetUint64(uint64(value)))
}

func (b *builder) Add64(value uint64) fhe.InputBuilder {
	return b.add(fhe.MethodUint64, new(big.Int).SetUint64(value))
}

func (b *builder) Add128(value *uint256.Int) fhe.InputBuilder {
	return b.add(fhe.MethodUint128, value.ToBig())
}

func (b *builder) Add256(value *uint256.Int) fhe.InputBuilder {
	return b.add(fhe.MethodUint256, value.ToBig())
}

func (b *builder) AddAddress(value common.Address) fhe.InputBuilder {
	return b.add(fhe.MethodAddress, value.Hex())
}

// Encrypt derives one handle per added value and a proof committing to all of them.
func (b *builder) Encrypt(ctx context.Context) (*fhe.EncryptedInput, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(b.entries) == 0 {
		return nil, errors.New("encrypted input is empty")
	}

	seed := make([]byte, 8)
	binary.BigEndian.PutUint64(seed, b.engine.nextSeed())
	base := crypto.Keccak256(b.contract.Bytes(), b.user.Bytes(), seed)

	handles := make([][]byte, 0, len(b.entries))
	proof := []byte{byte(len(b.entries))}
	for i, e := range b.entries {
		handle := crypto.Keccak256(base, []byte{byte(i)})
		handle[indexByte] = byte(i)
		handle[typeByte] = typeIDs[e.method]
		handle[versionByte] = handleVersion

		b.engine.Store(handle[:handleLength], e.value)
		handles = append(handles, handle[:handleLength])
		proof = append(proof, handle...)
	}

	return &fhe.EncryptedInput{Handles: handles, InputProof: proof}, nil
}
