// Package client is the single entry point for confidential contract calls. A
// Client is bound to one contract and runs either locally (engine and chain
// RPC held by the caller) or through a relayer session.
package client

import (
	"context"
	"net/http"

	"github.com/kat-co/vala"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github/tomi204/fhevm-client/internal/contract"
	"github/tomi204/fhevm-client/internal/decrypt"
	"github/tomi204/fhevm-client/internal/fhe"
	"github/tomi204/fhevm-client/internal/local"
	"github/tomi204/fhevm-client/internal/metrics"
	"github/tomi204/fhevm-client/internal/relayer"
	"github/tomi204/fhevm-client/internal/wallet/signer"
)

// Mode selects the controller behind a Client.
type Mode string

const (
	ModeLocal  Mode = "local"
	ModeRemote Mode = "remote"

	DefaultReadFunction = "getCount"
)

var (
	ErrMissingSigner = errors.New("remote mode requires a signer")
	ErrUnknownMode   = errors.New("unknown client mode")
)

// LocalOptions configures ModeLocal.
type LocalOptions struct {
	Contract local.Contract
	Engine   *fhe.Provider
	Loader   decrypt.Loader
	Store    decrypt.Store
}

// RemoteOptions configures ModeRemote.
type RemoteOptions struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client

	// Transactor sends "client-sign" transactions. Optional.
	Transactor relayer.Transactor
}

type Options struct {
	Mode                Mode
	Contract            contract.Descriptor
	Signer              signer.Signer
	DefaultReadFunction string
	Metrics             *metrics.Service

	Local  *LocalOptions
	Remote *RemoteOptions
}

type controller interface {
	Read(ctx context.Context, functionName string) (*contract.ReadResult, error)
	Mutate(ctx context.Context, req contract.MutateRequest) (*contract.MutateResult, error)
}

type Client struct {
	mode        Mode
	contract    contract.Descriptor
	readDefault string

	controller controller
	local      local.Service
	remote     relayer.Service
	metrics    *metrics.Service
}

// New validates opts and builds the controller for opts.Mode.
func New(opts Options) (*Client, error) {
	// a typed nil *ABI must reach the nil check as an untyped nil
	var parsedABI any
	if opts.Contract.ABI != nil {
		parsedABI = opts.Contract.ABI
	}

	if err := vala.BeginValidation().Validate(
		vala.IsNotNil(parsedABI, "Contract.ABI"),
		vala.Not(vala.Equals(opts.Contract.Address.Hex(), zeroAddressHex, "Contract.Address")),
		vala.StringNotEmpty(string(opts.Mode), "Mode"),
	).Check(); err != nil {
		return nil, errors.Wrap(err, "invalid client options")
	}

	c := &Client{
		mode:        opts.Mode,
		contract:    opts.Contract,
		readDefault: opts.DefaultReadFunction,
		metrics:     opts.Metrics,
	}
	if c.readDefault == "" {
		c.readDefault = opts.Contract.ReadFunction
	}
	if c.readDefault == "" {
		c.readDefault = DefaultReadFunction
	}

	switch opts.Mode {
	case ModeLocal:
		svc, err := newLocal(opts)
		if err != nil {
			return nil, err
		}
		c.local, c.controller = svc, svc

	case ModeRemote:
		svc, err := newRemote(opts)
		if err != nil {
			return nil, err
		}
		c.remote, c.controller = svc, svc

	default:
		return nil, errors.Wrapf(ErrUnknownMode, "%q", opts.Mode)
	}

	log.Debug().
		Str("mode", string(c.mode)).
		Str("contract", c.contract.Address.Hex()).
		Msg("Client: initialized")

	return c, nil
}

const zeroAddressHex = "0x0000000000000000000000000000000000000000"

//nolint:ireturn
func newLocal(opts Options) (local.Service, error) {
	if opts.Local == nil {
		return nil, errors.New("local mode requires local options")
	}

	return local.NewService(local.Options{
		Descriptor: opts.Contract,
		Contract:   opts.Local.Contract,
		Engine:     opts.Local.Engine,
		Signer:     opts.Signer,
		Loader:     opts.Local.Loader,
		Store:      opts.Local.Store,
		Metrics:    opts.Metrics,
	})
}

//nolint:ireturn
func newRemote(opts Options) (relayer.Service, error) {
	if opts.Signer == nil {
		return nil, ErrMissingSigner
	}
	if opts.Remote == nil {
		return nil, errors.New("remote mode requires remote options")
	}

	return relayer.NewService(relayer.Options{
		BaseURL:    opts.Remote.BaseURL,
		APIKey:     opts.Remote.APIKey,
		HTTPClient: opts.Remote.HTTPClient,
		Contract:   opts.Contract,
		Signer:     opts.Signer,
		Transactor: opts.Remote.Transactor,
		Metrics:    opts.Metrics,
	})
}

func (c *Client) Mode() Mode {
	return c.mode
}

func (c *Client) Contract() contract.Descriptor {
	return c.contract
}

// Metrics may be nil when the client was built without them.
func (c *Client) Metrics() *metrics.Service {
	return c.metrics
}

// Read returns the cleartext behind the handle returned by functionName, or by
// the default read function when functionName is empty.
func (c *Client) Read(ctx context.Context, functionName string) (*contract.ReadResult, error) {
	if functionName == "" {
		functionName = c.readDefault
	}

	return c.controller.Read(ctx, functionName)
}

func (c *Client) Mutate(ctx context.Context, req contract.MutateRequest) (*contract.MutateResult, error) {
	return c.controller.Mutate(ctx, req)
}

// Metadata returns diagnostic fields: the relayer URL and session for remote
// clients, nothing for local ones.
func (c *Client) Metadata() map[string]any {
	if c.remote == nil {
		return map[string]any{}
	}

	md := c.remote.Metadata()

	return map[string]any{
		"relayerBaseUrl": md.RelayerBaseURL,
		"sessionId":      md.SessionID,
		"state":          md.State,
		"nonce":          md.Nonce,
	}
}

// Session opens the relayer session ahead of the first call. Local clients
// have no session and return an empty one.
func (c *Client) Session(ctx context.Context) (relayer.Session, error) {
	if c.remote == nil {
		return relayer.Session{}, nil
	}

	return c.remote.CreateSession(ctx)
}

// Close cancels engine initialization and releases connections.
func (c *Client) Close() error {
	if c.local != nil {
		return c.local.Close()
	}
	if c.remote != nil {
		c.remote.Close()
	}

	return nil
}
