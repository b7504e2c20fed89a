// Package local drives confidential contracts directly: views and transactions
// go through the chain RPC, encryption and decryption through the engine.
package local

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/holiman/uint256"
	"github.com/pkg/errors"
	"github/tomi204/fhevm-client/internal/chain"
	"github/tomi204/fhevm-client/internal/contract"
	"github/tomi204/fhevm-client/internal/decrypt"
	"github/tomi204/fhevm-client/internal/fhe"
	"github/tomi204/fhevm-client/internal/fhe/marshal"
	"github/tomi204/fhevm-client/internal/metrics"
	"github/tomi204/fhevm-client/internal/util"
	"github/tomi204/fhevm-client/internal/wallet/signer"
)

const (
	kindRead   = "read"
	kindMutate = "mutate"

	// ZeroValue is the cleartext of the all zero handle.
	ZeroValue = "0"
)

var (
	ErrFunctionNotFound     = marshal.ErrFunctionNotFound
	ErrMissingAuthorization = errors.New("no decryption authorization available")
	ErrEmptyDecryptResult   = errors.New("decryption returned no value for handle")
	ErrTransactionReverted  = chain.ErrTransactionReverted
	ErrNoSigner             = errors.New("operation requires a signer")
)

// Contract is the chain side of one confidential contract.
type Contract interface {
	Call(ctx context.Context, method string, args ...any) ([]any, error)
	Transact(ctx context.Context, method string, args ...any) (*types.Transaction, error)
	WaitMined(ctx context.Context, tx *types.Transaction) (*types.Receipt, error)
}

type Options struct {
	Descriptor contract.Descriptor
	Contract   Contract
	Engine     *fhe.Provider
	Signer     signer.Signer

	// Loader defaults to decrypt.NewService() and Store to a memory store.
	Loader  decrypt.Loader
	Store   decrypt.Store
	Metrics *metrics.Service
}

// Service reads and mutates one confidential contract without a relayer.
type Service interface {
	Read(ctx context.Context, functionName string) (*contract.ReadResult, error)
	Mutate(ctx context.Context, req contract.MutateRequest) (*contract.MutateResult, error)
	Close() error
}

type service struct {
	descriptor contract.Descriptor
	contract   Contract
	engine     *fhe.Provider
	signer     signer.Signer
	loader     decrypt.Loader
	store      decrypt.Store
	metrics    *metrics.Service
}

//nolint:ireturn // Returning interface aids DI
func NewService(opts Options) (Service, error) {
	if opts.Descriptor.ABI == nil {
		return nil, errors.New("contract ABI is required")
	}
	if opts.Contract == nil {
		return nil, errors.New("chain contract is required")
	}
	if opts.Engine == nil {
		return nil, errors.New("encryption engine provider is required")
	}

	loader := opts.Loader
	if loader == nil {
		loader = decrypt.NewService()
	}

	store := opts.Store
	if store == nil {
		store = decrypt.NewMemoryStore()
	}

	return &service{
		descriptor: opts.Descriptor,
		contract:   opts.Contract,
		engine:     opts.Engine,
		signer:     opts.Signer,
		loader:     loader,
		store:      store,
		metrics:    opts.Metrics,
	}, nil
}

// Read calls the view functionName and decrypts the handle it returns.
func (s *service) Read(ctx context.Context, functionName string) (res *contract.ReadResult, err error) {
	defer func() { s.metrics.ObserveLocalCall(kindRead, err) }()

	log := util.LogFromContext(ctx).With().
		Str("contract", s.descriptor.Address.Hex()).
		Str("function", functionName).
		Logger()

	fragment, err := s.descriptor.ABI.Function(functionName)
	if err != nil {
		return nil, err
	}

	args, err := s.viewArguments(fragment)
	if err != nil {
		return nil, err
	}

	out, err := s.contract.Call(ctx, functionName, args...)
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, errors.Errorf("%s returned no values", functionName)
	}

	handle, err := marshal.ToCanonicalHex(out[0])
	if err != nil {
		return nil, errors.Wrapf(err, "%s did not return a handle", functionName)
	}

	if marshal.IsZeroHandle(handle) {
		log.Debug().Msg("LocalService: zero handle, skipping decryption")
		return &contract.ReadResult{Handle: handle, Value: ZeroValue}, nil
	}

	if s.signer == nil {
		return nil, errors.Wrap(ErrMissingAuthorization, "no signer configured")
	}

	engine, err := s.engine.Get(ctx)
	if err != nil {
		return nil, err
	}

	contracts := []common.Address{s.descriptor.Address}
	auth, err := s.loader.LoadOrSign(ctx, engine, contracts, s.signer, s.store)
	if err != nil {
		return nil, err
	}
	if auth == nil {
		return nil, ErrMissingAuthorization
	}

	values, err := engine.UserDecrypt(
		ctx,
		[]fhe.HandleContractPair{{Handle: handle, ContractAddress: s.descriptor.Address}},
		auth.PrivateKey,
		auth.PublicKey,
		auth.Signature,
		auth.ContractAddresses,
		auth.UserAddress,
		auth.StartTimestamp,
		auth.DurationDays,
	)
	if err != nil {
		return nil, errors.Wrap(err, "failed to decrypt handle")
	}
	s.metrics.IncDecryptions()

	value, ok := lookupHandle(values, handle)
	if !ok {
		return nil, errors.Wrapf(ErrEmptyDecryptResult, "handle %s", handle)
	}

	log.Debug().Str("handle", handle).Msg("LocalService: handle decrypted")

	return &contract.ReadResult{Handle: handle, Value: formatCleartext(value)}, nil
}

// viewArguments passes the signer address to views taking exactly one address,
// e.g. balanceOf(account).
func (s *service) viewArguments(fragment *contract.Fragment) ([]any, error) {
	switch {
	case len(fragment.Inputs) == 0:
		return nil, nil
	case len(fragment.Inputs) == 1 && fragment.Inputs[0].Type == "address":
		if s.signer == nil {
			return nil, errors.Wrapf(ErrNoSigner, "%s needs an account", fragment.Name)
		}
		return []any{s.signer.Address()}, nil
	default:
		return nil, errors.Errorf("view %s takes arguments that cannot be derived", fragment.Name)
	}
}

// Mutate encrypts the values of the encrypted parameters, sends the
// transaction and waits for its receipt.
func (s *service) Mutate(ctx context.Context, req contract.MutateRequest) (res *contract.MutateResult, err error) {
	defer func() { s.metrics.ObserveLocalCall(kindMutate, err) }()

	log := util.LogFromContext(ctx).With().
		Str("contract", s.descriptor.Address.Hex()).
		Str("function", req.FunctionName).
		Logger()

	fragment, err := s.descriptor.ABI.Function(req.FunctionName)
	if err != nil {
		return nil, err
	}

	if s.signer == nil {
		return nil, ErrNoSigner
	}

	args := req.Values
	if hasEncryptedInputs(fragment) {
		engine, err := s.engine.Get(ctx)
		if err != nil {
			return nil, err
		}

		builder, err := engine.CreateEncryptedInput(s.descriptor.Address, s.signer.Address())
		if err != nil {
			return nil, errors.Wrap(err, "failed to create encrypted input")
		}

		for i, param := range fragment.Inputs {
			if marshal.IsInputProof(param.Name, param.Type) || !marshal.IsEncryptedType(param.InternalType) {
				continue
			}

			method := marshal.ClassifyEncryptionMethod(param.InternalType)
			if err := method.Add(builder, valueAt(req.Values, i)); err != nil {
				return nil, errors.Wrapf(err, "parameter %s", param.Name)
			}
		}

		encrypted, err := builder.Encrypt(ctx)
		if err != nil {
			return nil, errors.Wrap(err, "failed to encrypt input")
		}

		args, err = marshal.BuildCallArguments(encrypted, s.descriptor.ABI, req.FunctionName, req.Values)
		if err != nil {
			return nil, err
		}
	}

	tx, err := s.contract.Transact(ctx, req.FunctionName, args...)
	if err != nil {
		return nil, err
	}

	log.Info().Str("tx_hash", tx.Hash().Hex()).Msg("LocalService: transaction sent")

	receipt, err := s.contract.WaitMined(ctx, tx)
	if err != nil {
		return nil, err
	}

	if err := chain.CheckReceipt(receipt); err != nil {
		return nil, err
	}

	return &contract.MutateResult{
		TxHash:      receipt.TxHash.Hex(),
		BlockNumber: receipt.BlockNumber.Uint64(),
	}, nil
}

// Close cancels engine initialization and releases the engine.
func (s *service) Close() error {
	return s.engine.Close()
}

func hasEncryptedInputs(fragment *contract.Fragment) bool {
	for _, param := range fragment.Inputs {
		if !marshal.IsInputProof(param.Name, param.Type) && marshal.IsEncryptedType(param.InternalType) {
			return true
		}
	}

	return false
}

func valueAt(values []any, i int) any {
	if i < len(values) && values[i] != nil {
		return values[i]
	}

	return 0
}

func lookupHandle(values map[string]any, handle string) (any, bool) {
	if v, ok := values[handle]; ok {
		return v, true
	}

	for k, v := range values {
		if strings.EqualFold(k, handle) {
			return v, true
		}
	}

	return nil, false
}

func formatCleartext(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case *big.Int:
		return t.String()
	case *uint256.Int:
		return t.Dec()
	case bool:
		if t {
			return "true"
		}
		return "false"
	default:
		return fmt.Sprint(t)
	}
}
