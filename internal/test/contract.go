package test

import (
	"context"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/core/types"
	"github.com/pkg/errors"
)

// ContractCall is one recorded invocation.
type ContractCall struct {
	Method string
	Args   []any
}

// FakeContract records view calls and transactions instead of reaching a node.
type FakeContract struct {
	mu sync.Mutex

	results     map[string][]any
	CallErr     error
	TransactErr error
	Reverted    bool

	calls        []ContractCall
	transactions []ContractCall
	block        uint64
}

func NewFakeContract() *FakeContract {
	return &FakeContract{
		results: make(map[string][]any),
		block:   1000,
	}
}

// SetResult sets the values returned by Call for method.
func (f *FakeContract) SetResult(method string, out ...any) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.results[method] = out
}

func (f *FakeContract) Call(ctx context.Context, method string, args ...any) ([]any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls = append(f.calls, ContractCall{Method: method, Args: args})
	if f.CallErr != nil {
		return nil, f.CallErr
	}

	out, ok := f.results[method]
	if !ok {
		return nil, errors.Errorf("no result configured for %s", method)
	}

	return out, nil
}

func (f *FakeContract) Transact(ctx context.Context, method string, args ...any) (*types.Transaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.TransactErr != nil {
		return nil, f.TransactErr
	}

	f.transactions = append(f.transactions, ContractCall{Method: method, Args: args})

	return types.NewTx(&types.LegacyTx{
		Nonce:    uint64(len(f.transactions)),
		GasPrice: big.NewInt(1),
		Gas:      21000,
		Data:     []byte(method),
	}), nil
}

func (f *FakeContract) WaitMined(ctx context.Context, tx *types.Transaction) (*types.Receipt, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	f.block++

	status := types.ReceiptStatusSuccessful
	if f.Reverted {
		status = types.ReceiptStatusFailed
	}

	return &types.Receipt{
		TxHash:      tx.Hash(),
		BlockNumber: new(big.Int).SetUint64(f.block),
		Status:      status,
	}, nil
}

func (f *FakeContract) Calls() []ContractCall {
	f.mu.Lock()
	defer f.mu.Unlock()

	return append([]ContractCall(nil), f.calls...)
}

func (f *FakeContract) Transactions() []ContractCall {
	f.mu.Lock()
	defer f.mu.Unlock()

	return append([]ContractCall(nil), f.transactions...)
}
