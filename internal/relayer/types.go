package relayer

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/pkg/errors"
)

// Endpoints of the relayer HTTP API.
const (
	PathSessions  = "/v1/sessions"
	PathAuthorize = "/v1/sessions/authorize"
	PathRead      = "/v1/fhe/read"
	PathMutate    = "/v1/fhe/mutate"

	HeaderRelayerKey = "x-relayer-key"

	// MessagePrefix starts every signed request message.
	MessagePrefix = "ZAMA_FHE_REQUEST"

	StatusPendingSignature = "pending_signature"
	AuthorizationEIP712    = "eip712"
	ModeClientSign         = "client-sign"
)

var (
	ErrUnsupportedSigner = errors.New("signer does not support EIP-712 typed data signing")
	ErrProtocolViolation = errors.New("unexpected relayer response")
	ErrRelayer           = errors.New("relayer request failed")
)

// RelayerError is a non-2xx relayer response.
//
//nolint:revive // relayer.RelayerError reads better at call sites than relayer.Error
type RelayerError struct {
	StatusCode int
	Message    string
}

func (e *RelayerError) Error() string {
	return fmt.Sprintf("relayer responded %d: %s", e.StatusCode, e.Message)
}

func (e *RelayerError) Is(target error) bool {
	return target == ErrRelayer
}

func newRelayerError(statusCode int, body []byte) *RelayerError {
	var payload struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}

	msg := http.StatusText(statusCode)
	if err := json.Unmarshal(body, &payload); err == nil {
		switch {
		case payload.Error != "":
			msg = payload.Error
		case payload.Message != "":
			msg = payload.Message
		}
	}

	return &RelayerError{StatusCode: statusCode, Message: msg}
}

// State is the lifecycle position of a relayer session.
type State int

const (
	StateUninitialized State = iota
	StateSessionCreated
	StateAuthorizationPending
	StateAuthorized
	StateActive
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateSessionCreated:
		return "session_created"
	case StateAuthorizationPending:
		return "authorization_pending"
	case StateAuthorized:
		return "authorized"
	case StateActive:
		return "active"
	default:
		return "unknown"
	}
}

// Session is a snapshot of the relayer session.
type Session struct {
	ID                     string
	Nonce                  uint64
	AuthorizationPublicKey string
	State                  State
}

// SignedRequest is the body of every nonce-ordered request.
type SignedRequest struct {
	SessionID    string `json:"sessionId"`
	FunctionName string `json:"functionName"`
	Values       []any  `json:"values"`
	Signature    string `json:"signature"`
	Nonce        uint64 `json:"nonce"`
}

// Quantity is an unsigned integer the relayer may send as a JSON number, a
// decimal string or a 0x-prefixed hex string.
type Quantity uint64

func (q *Quantity) UnmarshalJSON(data []byte) error {
	raw := strings.TrimSpace(string(data))
	if raw == "null" {
		return nil
	}

	if unquoted, err := strconv.Unquote(raw); err == nil {
		raw = unquoted
	}

	if strings.HasPrefix(raw, "0x") || strings.HasPrefix(raw, "0X") {
		v, err := hexutil.DecodeUint64(strings.ToLower(raw))
		if err != nil {
			return errors.Wrapf(err, "invalid quantity %q", raw)
		}
		*q = Quantity(v)
		return nil
	}

	v, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return errors.Wrapf(err, "invalid quantity %q", raw)
	}
	*q = Quantity(v)

	return nil
}

type createSessionRequest struct {
	ContractAddress string          `json:"contractAddress"`
	ABI             json.RawMessage `json:"abi"`
	UserAddress     string          `json:"userAddress"`
}

type createSessionResponse struct {
	SessionID     string                 `json:"sessionId"`
	Nonce         *Quantity              `json:"nonce"`
	Status        string                 `json:"status,omitempty"`
	Authorization *authorizationEnvelope `json:"authorization,omitempty"`
}

// authorizationEnvelope carries the typed data the user signs to activate a session.
type authorizationEnvelope struct {
	Type        string          `json:"type"`
	PublicKey   string          `json:"publicKey,omitempty"`
	Domain      json.RawMessage `json:"domain"`
	Types       json.RawMessage `json:"types"`
	Message     json.RawMessage `json:"message"`
	PrimaryType string          `json:"primaryType,omitempty"`
}

type authorizeRequest struct {
	SessionID string `json:"sessionId"`
	Signature string `json:"signature"`
}

type authorizeResponse struct {
	Status string    `json:"status"`
	Nonce  *Quantity `json:"nonce"`
}

type readResponse struct {
	Handle    *string   `json:"handle"`
	Value     any       `json:"value"`
	NextNonce *Quantity `json:"nextNonce,omitempty"`
}

type mutateResponse struct {
	TxHash      string    `json:"txHash,omitempty"`
	BlockNumber *Quantity `json:"blockNumber,omitempty"`
	Mode        string    `json:"mode,omitempty"`
	Params      []any     `json:"params,omitempty"`
	NextNonce   *Quantity `json:"nextNonce,omitempty"`
}

// Metadata describes the session for diagnostics.
type Metadata struct {
	RelayerBaseURL string `json:"relayerBaseUrl"`
	SessionID      string `json:"sessionId,omitempty"`
	State          string `json:"state"`
	Nonce          uint64 `json:"nonce"`
}
