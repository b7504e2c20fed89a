package chain

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github/tomi204/fhevm-client/internal/contract"
	"github/tomi204/fhevm-client/internal/wallet/signer"
)

const (
	defaultReceiptPollInterval = 1 * time.Second
	defaultReceiptMaxInterval  = 5 * time.Second
	defaultReceiptWaitTimeout  = 2 * time.Minute
)

// ErrNoTransactor is returned when a transaction is sent through a read-only contract.
var ErrNoTransactor = errors.New("contract has no transaction signer")

// ErrTransactionReverted is returned for a mined transaction with a failed status.
var ErrTransactionReverted = errors.New("transaction reverted")

// ReceiptFetcher is the part of the RPC client receipt polling needs.
type ReceiptFetcher interface {
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
}

// BoundContract calls and transacts against one contract through an RPCClient,
// coercing loosely typed arguments with the contract ABI.
type BoundContract struct {
	rpc        *RPCClient
	descriptor contract.Descriptor
	transactor signer.Transactor

	ReceiptPollInterval time.Duration
	ReceiptWaitTimeout  time.Duration
}

// NewBoundContract binds descriptor. transactor may be nil for read-only use.
func NewBoundContract(rpc *RPCClient, descriptor contract.Descriptor, transactor signer.Transactor) *BoundContract {
	return &BoundContract{
		rpc:                 rpc,
		descriptor:          descriptor,
		transactor:          transactor,
		ReceiptPollInterval: defaultReceiptPollInterval,
		ReceiptWaitTimeout:  defaultReceiptWaitTimeout,
	}
}

func (c *BoundContract) bind(ctx context.Context) (*bind.BoundContract, error) {
	client, err := c.rpc.Client(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get RPC client")
	}
	return bind.NewBoundContract(c.descriptor.Address, c.descriptor.ABI.Parsed(), client, client, client), nil
}

// Call invokes a view function and returns its unpacked outputs.
func (c *BoundContract) Call(ctx context.Context, method string, args ...any) ([]any, error) {
	abiMethod, err := c.descriptor.ABI.Method(method)
	if err != nil {
		return nil, err
	}

	params, err := contract.CoerceArguments(abiMethod, args)
	if err != nil {
		return nil, err
	}

	bound, err := c.bind(ctx)
	if err != nil {
		return nil, err
	}

	opts := &bind.CallOpts{Context: ctx}
	if c.transactor != nil {
		// fhevm ACL checks in views depend on msg.sender
		opts.From = c.transactor.Address()
	}

	var out []any
	if err := bound.Call(opts, &out, abiMethod.Name, params...); err != nil {
		return nil, errors.Wrapf(err, "failed to call %s", method)
	}

	return out, nil
}

// Transact signs and submits a transaction invoking method.
func (c *BoundContract) Transact(ctx context.Context, method string, args ...any) (*types.Transaction, error) {
	if c.transactor == nil {
		return nil, ErrNoTransactor
	}

	abiMethod, err := c.descriptor.ABI.Method(method)
	if err != nil {
		return nil, err
	}

	params, err := contract.CoerceArguments(abiMethod, args)
	if err != nil {
		return nil, err
	}

	chainID, err := c.rpc.ChainID(ctx)
	if err != nil {
		return nil, err
	}

	opts, err := c.transactor.TransactOpts(ctx, chainID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create transact opts")
	}

	bound, err := c.bind(ctx)
	if err != nil {
		return nil, err
	}

	tx, err := bound.Transact(opts, abiMethod.Name, params...)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to send %s transaction", method)
	}

	log.Debug().
		Str("contract", c.descriptor.Address.Hex()).
		Str("method", method).
		Str("tx_hash", tx.Hash().Hex()).
		Msg("BoundContract: transaction sent")

	return tx, nil
}

// WaitMined polls for the transaction receipt.
func (c *BoundContract) WaitMined(ctx context.Context, tx *types.Transaction) (*types.Receipt, error) {
	return WaitForReceipt(ctx, c.rpc, tx.Hash(), c.ReceiptPollInterval, c.ReceiptWaitTimeout)
}

// WaitForReceipt polls fetcher with exponential backoff until the receipt is
// available, ctx is done or timeout elapses. Errors other than "not found"
// stop the polling immediately.
func WaitForReceipt(
	ctx context.Context,
	fetcher ReceiptFetcher,
	txHash common.Hash,
	pollInterval time.Duration,
	timeout time.Duration,
) (*types.Receipt, error) {
	if pollInterval <= 0 {
		pollInterval = defaultReceiptPollInterval
	}
	if timeout <= 0 {
		timeout = defaultReceiptWaitTimeout
	}

	expBackOff := backoff.NewExponentialBackOff(
		backoff.WithInitialInterval(pollInterval),
		backoff.WithMaxInterval(max(pollInterval, defaultReceiptMaxInterval)),
		backoff.WithMaxElapsedTime(timeout),
	)

	operation := func() (*types.Receipt, error) {
		receipt, err := fetcher.TransactionReceipt(ctx, txHash)
		if err == nil {
			return receipt, nil
		}
		if errors.Is(err, ethereum.NotFound) {
			return nil, err
		}
		return nil, backoff.Permanent(err)
	}

	notify := func(err error, next time.Duration) {
		log.Debug().
			Str("tx_hash", txHash.Hex()).
			Dur("next_poll", next).
			Msg("BoundContract: receipt not available yet")
	}

	receipt, err := backoff.RetryNotifyWithData(operation, backoff.WithContext(expBackOff, ctx), notify)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, errors.Wrap(ctxErr, "context canceled while waiting for receipt")
		}
		return nil, errors.Wrapf(err, "failed while waiting for receipt of %s", txHash.Hex())
	}

	return receipt, nil
}

// CheckReceipt fails with ErrTransactionReverted when receipt reports a failure.
func CheckReceipt(receipt *types.Receipt) error {
	if receipt.Status != types.ReceiptStatusSuccessful {
		return errors.Wrapf(ErrTransactionReverted, "tx %s in block %v", receipt.TxHash.Hex(), receipt.BlockNumber)
	}

	return nil
}
