// Package relayer talks to an untrusted HTTP relayer that encrypts, decrypts
// and submits on behalf of the user. Every request is authenticated by a
// personal_sign signature over a nonce-ordered message.
package relayer

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github/tomi204/fhevm-client/internal/chain"
	"github/tomi204/fhevm-client/internal/contract"
	"github/tomi204/fhevm-client/internal/metrics"
	"github/tomi204/fhevm-client/internal/wallet/signer"
)

const defaultHTTPTimeout = 30 * time.Second

// Transactor submits relayer prepared calls with the local signer.
type Transactor interface {
	Transact(ctx context.Context, method string, args ...any) (*types.Transaction, error)
	WaitMined(ctx context.Context, tx *types.Transaction) (*types.Receipt, error)
}

type Options struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
	Contract   contract.Descriptor
	Signer     signer.Signer

	// Transactor handles "client-sign" mutate responses. Optional.
	Transactor Transactor
	Metrics    *metrics.Service
}

// Service runs one relayer session for one (contract, signer) pair.
type Service interface {
	Read(ctx context.Context, functionName string) (*contract.ReadResult, error)
	Mutate(ctx context.Context, req contract.MutateRequest) (*contract.MutateResult, error)
	CreateSession(ctx context.Context) (Session, error)
	Session() Session
	Metadata() Metadata
	Close()
}

type service struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	contract   contract.Descriptor
	signer     signer.Signer
	transactor Transactor
	metrics    *metrics.Service

	session *sessionState
}

// NewService validates opts. No request is sent before the first call.
//
//nolint:ireturn // Returning interface aids DI
func NewService(opts Options) (Service, error) {
	if opts.BaseURL == "" {
		return nil, errors.New("relayer base URL is required")
	}
	if opts.Signer == nil {
		return nil, errors.New("relayer signer is required")
	}
	if opts.Contract.ABI == nil {
		return nil, errors.New("contract ABI is required")
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultHTTPTimeout}
	}

	return &service{
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		apiKey:     opts.APIKey,
		httpClient: httpClient,
		contract:   opts.Contract,
		signer:     opts.Signer,
		transactor: opts.Transactor,
		metrics:    opts.Metrics,
		session:    newSessionState(),
	}, nil
}

// Session returns a snapshot of the current session.
func (s *service) Session() Session {
	return s.session.snapshot()
}

func (s *service) Metadata() Metadata {
	snap := s.session.snapshot()

	return Metadata{
		RelayerBaseURL: s.baseURL,
		SessionID:      snap.ID,
		State:          snap.State.String(),
		Nonce:          snap.Nonce,
	}
}

// CreateSession opens the relayer session and completes the EIP-712
// authorization handshake if the relayer asks for one. It is a no-op for an
// already active session.
func (s *service) CreateSession(ctx context.Context) (Session, error) {
	if err := s.session.acquire(ctx); err != nil {
		return Session{}, err
	}
	defer s.session.release()

	if err := s.ensureSession(ctx); err != nil {
		return Session{}, err
	}

	return s.session.snapshot(), nil
}

// ensureSession must be called with the session semaphore held.
func (s *service) ensureSession(ctx context.Context) error {
	snap := s.session.snapshot()

	switch snap.State {
	case StateActive:
		return nil
	case StateAuthorizationPending:
		return s.authorize(ctx)
	case StateUninitialized, StateSessionCreated, StateAuthorized:
	}

	abiJSON, err := s.contract.ABI.MarshalJSON()
	if err != nil {
		return errors.Wrap(err, "failed to encode contract ABI")
	}

	user := s.signer.Address()
	body, err := s.post(ctx, PathSessions, createSessionRequest{
		ContractAddress: s.contract.Address.Hex(),
		ABI:             abiJSON,
		UserAddress:     user.Hex(),
	})
	if err != nil {
		return err
	}

	var res createSessionResponse
	if err := decodeJSON(body, &res); err != nil {
		return errors.Wrapf(ErrProtocolViolation, "invalid session response: %v", err)
	}
	if res.SessionID == "" || res.Nonce == nil {
		return errors.Wrap(ErrProtocolViolation, "session response misses sessionId or nonce")
	}

	s.session.created(res.SessionID, uint64(*res.Nonce))
	s.metrics.SetSessionNonce(res.SessionID, uint64(*res.Nonce))

	log.Info().
		Str("session_id", res.SessionID).
		Str("user_address", user.Hex()).
		Str("contract", s.contract.Address.Hex()).
		Str("status", res.Status).
		Msg("RelayerService: session created")

	if res.Authorization == nil {
		s.session.activate("")
		return nil
	}

	if res.Status != StatusPendingSignature {
		s.session.activate(res.Authorization.PublicKey)
		return nil
	}

	if res.Authorization.Type != AuthorizationEIP712 {
		return errors.Wrapf(ErrProtocolViolation, "unsupported authorization type %q", res.Authorization.Type)
	}

	s.session.awaitAuthorization(res.Authorization)

	return s.authorize(ctx)
}

func (s *service) authorize(ctx context.Context) error {
	typed, ok := s.signer.(signer.TypedDataSigner)
	if !ok {
		return ErrUnsupportedSigner
	}

	s.session.mu.RLock()
	envelope := s.session.pending
	sessionID := s.session.id
	s.session.mu.RUnlock()

	typedData, err := typedDataFromEnvelope(envelope)
	if err != nil {
		return errors.Wrapf(ErrProtocolViolation, "invalid authorization payload: %v", err)
	}

	signature, err := typed.SignTypedData(ctx, typedData)
	if err != nil {
		return errors.Wrap(err, "failed to sign session authorization")
	}

	body, err := s.post(ctx, PathAuthorize, authorizeRequest{
		SessionID: sessionID,
		Signature: hexutil.Encode(signature),
	})
	if err != nil {
		return err
	}

	var res authorizeResponse
	if err := decodeJSON(body, &res); err != nil {
		return errors.Wrapf(ErrProtocolViolation, "invalid authorize response: %v", err)
	}

	s.session.authorized(res.Nonce)
	s.session.activate("")

	snap := s.session.snapshot()
	s.metrics.SetSessionNonce(snap.ID, snap.Nonce)

	log.Info().
		Str("session_id", snap.ID).
		Uint64("nonce", snap.Nonce).
		Str("status", res.Status).
		Msg("RelayerService: session authorized")

	return nil
}

// nonceCarrier is implemented by responses to signed requests.
type nonceCarrier interface {
	nextNonce() *Quantity
}

func (r *readResponse) nextNonce() *Quantity   { return r.NextNonce }
func (r *mutateResponse) nextNonce() *Quantity { return r.NextNonce }

// signed runs one nonce-ordered request. The nonce only moves once the relayer
// accepted the request, and it moves before the lock is released.
func (s *service) signed(ctx context.Context, path string, functionName string, values []any, out nonceCarrier) error {
	if err := s.session.acquire(ctx); err != nil {
		return err
	}
	defer s.session.release()

	if err := s.ensureSession(ctx); err != nil {
		return err
	}

	snap := s.session.snapshot()
	values = normalizeValues(values)

	message, err := BuildMessage(snap.ID, functionName, values, snap.Nonce)
	if err != nil {
		return err
	}

	signature, err := s.signer.SignMessage(ctx, []byte(message))
	if err != nil {
		return errors.Wrap(err, "failed to sign relayer request")
	}

	body, err := s.post(ctx, path, SignedRequest{
		SessionID:    snap.ID,
		FunctionName: functionName,
		Values:       values,
		Signature:    hexutil.Encode(signature),
		Nonce:        snap.Nonce,
	})
	if err != nil {
		log.Debug().Err(err).
			Str("session_id", snap.ID).
			Uint64("nonce", snap.Nonce).
			Msg("RelayerService: request failed, nonce kept")
		return err
	}

	decodeErr := decodeJSON(body, out)

	var next *Quantity
	if decodeErr == nil {
		next = out.nextNonce()
	}

	nonce, adopted := s.session.advance(snap.Nonce, next)
	s.metrics.SetSessionNonce(snap.ID, nonce)

	if next != nil && !adopted {
		log.Warn().
			Str("session_id", snap.ID).
			Uint64("used_nonce", snap.Nonce).
			Uint64("next_nonce", uint64(*next)).
			Msg("RelayerService: ignoring stale nextNonce")
	} else if next == nil {
		log.Debug().Str("session_id", snap.ID).Uint64("nonce", nonce).Msg("RelayerService: no nextNonce, incremented locally")
	}

	if decodeErr != nil {
		return errors.Wrapf(ErrProtocolViolation, "invalid %s response: %v", endpointLabel(path), decodeErr)
	}

	return nil
}

// Read asks the relayer for the disclosed value behind functionName.
func (s *service) Read(ctx context.Context, functionName string) (*contract.ReadResult, error) {
	var res readResponse
	if err := s.signed(ctx, PathRead, functionName, nil, &res); err != nil {
		return nil, err
	}

	if res.Handle == nil {
		return nil, errors.Wrap(ErrProtocolViolation, "read response misses handle")
	}

	return &contract.ReadResult{
		Handle: *res.Handle,
		Value:  stringValue(res.Value),
	}, nil
}

// Mutate asks the relayer to run functionName with values. When the relayer
// answers with client-sign parameters, the transaction is sent locally.
func (s *service) Mutate(ctx context.Context, req contract.MutateRequest) (*contract.MutateResult, error) {
	var res mutateResponse
	if err := s.signed(ctx, PathMutate, req.FunctionName, req.Values, &res); err != nil {
		return nil, err
	}

	switch {
	case res.Mode == ModeClientSign:
		return s.clientSign(ctx, req.FunctionName, res.Params)
	case res.Mode == "" && res.TxHash != "" && res.BlockNumber != nil:
		return &contract.MutateResult{TxHash: res.TxHash, BlockNumber: uint64(*res.BlockNumber)}, nil
	default:
		return nil, errors.Wrapf(ErrProtocolViolation, "unknown mutate response (mode %q)", res.Mode)
	}
}

func (s *service) clientSign(ctx context.Context, functionName string, params []any) (*contract.MutateResult, error) {
	if s.transactor == nil {
		return nil, errors.Wrap(ErrProtocolViolation, "client-sign response but no local transactor")
	}

	log.Info().
		Str("function", functionName).
		Int("params", len(params)).
		Msg("RelayerService: relayer requested client-side signing")

	tx, err := s.transactor.Transact(ctx, functionName, params...)
	if err != nil {
		return nil, err
	}

	receipt, err := s.transactor.WaitMined(ctx, tx)
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

func stringValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case json.Number:
		return t.String()
	case bool:
		return strconv.FormatBool(t)
	default:
		encoded, err := encodeJSON(t)
		if err != nil {
			return ""
		}
		return string(encoded)
	}
}

// Close releases idle HTTP connections.
func (s *service) Close() {
	s.httpClient.CloseIdleConnections()
}
