package chain

import (
	"context"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

var ErrNoHealthyEndpoint = errors.New("no healthy RPC endpoint")

type endpoint struct {
	url    string
	client *ethclient.Client // nil until dialed
}

// RPCClient spreads calls over several JSON-RPC endpoints, sticking to the
// last healthy one and failing over in order.
type RPCClient struct {
	mu        sync.Mutex
	endpoints []endpoint
	preferred int

	chainIDMu sync.Mutex
	chainID   *big.Int
}

// NewRPCClient dials every URL. At least one dial has to succeed; the others
// are redialed when the client fails over to them.
func NewRPCClient(urls []string) (*RPCClient, error) {
	if len(urls) == 0 {
		return nil, errors.New("at least one RPC URL is required")
	}

	c := NewLazyRPCClient(urls)
	dialed := 0
	for i := range c.endpoints {
		ep := &c.endpoints[i]

		client, err := ethclient.Dial(ep.url)
		if err != nil {
			log.Warn().Str("url", ep.url).Err(err).Msg("RPCClient: dial failed, endpoint deferred")
			continue
		}
		ep.client = client
		dialed++
	}

	if dialed == 0 {
		return nil, errors.Wrap(ErrNoHealthyEndpoint, "every dial failed")
	}

	return c, nil
}

// NewLazyRPCClient dials nothing up front. Endpoints are dialed by the first
// call that needs the chain.
func NewLazyRPCClient(urls []string) *RPCClient {
	c := &RPCClient{endpoints: make([]endpoint, len(urls))}
	for i, url := range urls {
		c.endpoints[i].url = url
	}

	return c
}

func (c *RPCClient) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i := range c.endpoints {
		if c.endpoints[i].client != nil {
			c.endpoints[i].client.Close()
			c.endpoints[i].client = nil
		}
	}
}

// Client returns the first endpoint, starting at the preferred one, that
// answers eth_blockNumber.
func (c *RPCClient) Client(ctx context.Context) (*ethclient.Client, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := len(c.endpoints)
	for step := range n {
		idx := (c.preferred + step) % n
		ep := &c.endpoints[idx]

		if ep.client == nil {
			client, err := ethclient.DialContext(ctx, ep.url)
			if err != nil {
				continue
			}
			ep.client = client
		}

		if _, err := ep.client.BlockNumber(ctx); err != nil {
			log.Warn().Str("url", ep.url).Err(err).Msg("RPCClient: endpoint unhealthy, failing over")
			continue
		}

		c.preferred = idx
		return ep.client, nil
	}

	return nil, ErrNoHealthyEndpoint
}

// ChainID is queried once and cached.
func (c *RPCClient) ChainID(ctx context.Context) (*big.Int, error) {
	c.chainIDMu.Lock()
	defer c.chainIDMu.Unlock()

	if c.chainID == nil {
		client, err := c.Client(ctx)
		if err != nil {
			return nil, err
		}

		id, err := client.ChainID(ctx)
		if err != nil {
			return nil, errors.Wrap(err, "eth_chainId")
		}
		c.chainID = id
	}

	return new(big.Int).Set(c.chainID), nil
}

func (c *RPCClient) TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	client, err := c.Client(ctx)
	if err != nil {
		return nil, err
	}

	// ethereum.NotFound must stay matchable for receipt polling
	receipt, err := client.TransactionReceipt(ctx, txHash)
	if err != nil {
		return nil, errors.Wrap(err, "eth_getTransactionReceipt")
	}

	return receipt, nil
}
