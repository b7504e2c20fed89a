// Package test holds fixtures shared by package tests: a fake relayer served by
// echo and an in-memory contract.
package test

import (
	"bytes"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github/tomi204/fhevm-client/internal/relayer"
	"github/tomi204/fhevm-client/internal/wallet/signer"
)

const FakeRelayerChainID = 31337

// RecordedRequest is one request the fake relayer received.
type RecordedRequest struct {
	Path   string
	Header http.Header
	Body   json.RawMessage
}

// SignedCall is a verified signed request.
type SignedCall struct {
	Path    string
	Request relayer.SignedRequest
}

// Reply lets a test decide the response of a signed request. A nil body falls
// back to the default response. A uint64 "nextNonce" in the body moves the
// session nonce to that value.
type Reply func(call SignedCall) (status int, body map[string]any)

type fakeSession struct {
	user       common.Address
	contract   common.Address
	nonce      uint64
	authorized bool
	typedData  apitypes.TypedData
}

// FakeRelayer implements the relayer HTTP API and verifies every signature
// and nonce it receives.
type FakeRelayer struct {
	Echo   *echo.Echo
	Server *httptest.Server

	// knobs, set before the first request
	RequireAuthorization bool
	InitialNonce         uint64
	NonceStep            uint64
	OmitNextNonce        bool
	EchoUsedNonce        bool // reply with the used nonce as nextNonce
	APIKey               string
	OnRead               Reply
	OnMutate             Reply

	mu          sync.Mutex
	sessions    map[string]*fakeSession
	requests    []RecordedRequest
	signedCalls []SignedCall
	authorizes  int
}

// NewFakeRelayer starts a fake relayer closed with the test.
func NewFakeRelayer(t *testing.T) *FakeRelayer {
	t.Helper()

	f := &FakeRelayer{
		NonceStep: 1,
		sessions:  make(map[string]*fakeSession),
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(f.record)

	e.POST(relayer.PathSessions, f.postSession)
	e.POST(relayer.PathAuthorize, f.postAuthorize)
	e.POST(relayer.PathRead, f.postSigned)
	e.POST(relayer.PathMutate, f.postSigned)

	f.Echo = e
	f.Server = httptest.NewServer(e)
	t.Cleanup(f.Server.Close)

	return f
}

func (f *FakeRelayer) URL() string {
	return f.Server.URL
}

func (f *FakeRelayer) Requests() []RecordedRequest {
	f.mu.Lock()
	defer f.mu.Unlock()

	return append([]RecordedRequest(nil), f.requests...)
}

// RequestsTo returns the recorded requests sent to path.
func (f *FakeRelayer) RequestsTo(path string) []RecordedRequest {
	var out []RecordedRequest
	for _, r := range f.Requests() {
		if r.Path == path {
			out = append(out, r)
		}
	}

	return out
}

// SignedCalls returns the verified signed requests in arrival order.
func (f *FakeRelayer) SignedCalls() []SignedCall {
	f.mu.Lock()
	defer f.mu.Unlock()

	return append([]SignedCall(nil), f.signedCalls...)
}

func (f *FakeRelayer) AuthorizeCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.authorizes
}

// SessionNonce returns the nonce the relayer expects next for sessionID.
func (f *FakeRelayer) SessionNonce(sessionID string) uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()

	if s, ok := f.sessions[sessionID]; ok {
		return s.nonce
	}

	return 0
}

func (f *FakeRelayer) record(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		var body json.RawMessage
		if err := json.NewDecoder(c.Request().Body).Decode(&body); err != nil {
			return c.JSON(http.StatusBadRequest, map[string]any{"error": "invalid JSON body"})
		}

		f.mu.Lock()
		f.requests = append(f.requests, RecordedRequest{
			Path:   c.Path(),
			Header: c.Request().Header.Clone(),
			Body:   body,
		})
		f.mu.Unlock()

		if f.APIKey != "" && c.Request().Header.Get(relayer.HeaderRelayerKey) != f.APIKey {
			return c.JSON(http.StatusUnauthorized, map[string]any{"error": "invalid relayer key"})
		}

		c.Set("body", body)

		return next(c)
	}
}

func bodyOf(c echo.Context, out any) error {
	raw, _ := c.Get("body").(json.RawMessage)
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	return dec.Decode(out)
}

func (f *FakeRelayer) postSession(c echo.Context) error {
	var req struct {
		ContractAddress string          `json:"contractAddress"`
		ABI             json.RawMessage `json:"abi"`
		UserAddress     string          `json:"userAddress"`
	}
	if err := bodyOf(c, &req); err != nil || !common.IsHexAddress(req.UserAddress) || len(req.ABI) == 0 {
		return c.JSON(http.StatusBadRequest, map[string]any{"error": "invalid session request"})
	}

	id := uuid.New().String()
	session := &fakeSession{
		user:       common.HexToAddress(req.UserAddress),
		contract:   common.HexToAddress(req.ContractAddress),
		nonce:      f.InitialNonce,
		authorized: !f.RequireAuthorization,
	}

	res := map[string]any{
		"sessionId": id,
		"nonce":     session.nonce,
	}

	if f.RequireAuthorization {
		session.typedData = sessionTypedData(id, session)
		res["status"] = relayer.StatusPendingSignature
		res["authorization"] = map[string]any{
			"type":      relayer.AuthorizationEIP712,
			"publicKey": hexutil.Encode(common.LeftPadBytes([]byte(id[:8]), 32)),
			"domain": map[string]any{
				"name":              session.typedData.Domain.Name,
				"version":           session.typedData.Domain.Version,
				"chainId":           FakeRelayerChainID,
				"verifyingContract": session.typedData.Domain.VerifyingContract,
			},
			"types": map[string]any{
				"SessionAuthorization": session.typedData.Types["SessionAuthorization"],
			},
			"message": map[string]any{
				"sessionId": id,
				"user":      session.user.Hex(),
				"nonce":     session.nonce,
			},
		}
	}

	f.mu.Lock()
	f.sessions[id] = session
	f.mu.Unlock()

	return c.JSON(http.StatusOK, res)
}

func sessionTypedData(id string, s *fakeSession) apitypes.TypedData {
	return apitypes.TypedData{
		Types: apitypes.Types{
			"EIP712Domain": []apitypes.Type{
				{Name: "name", Type: "string"},
				{Name: "version", Type: "string"},
				{Name: "chainId", Type: "uint256"},
				{Name: "verifyingContract", Type: "address"},
			},
			"SessionAuthorization": []apitypes.Type{
				{Name: "sessionId", Type: "string"},
				{Name: "user", Type: "address"},
				{Name: "nonce", Type: "uint256"},
			},
		},
		PrimaryType: "SessionAuthorization",
		Domain: apitypes.TypedDataDomain{
			Name:              "FHE Relayer",
			Version:           "1",
			ChainId:           math.NewHexOrDecimal256(FakeRelayerChainID),
			VerifyingContract: s.contract.Hex(),
		},
		Message: apitypes.TypedDataMessage{
			"sessionId": id,
			"user":      s.user.Hex(),
			"nonce":     strconv.FormatUint(s.nonce, 10),
		},
	}
}

func (f *FakeRelayer) postAuthorize(c echo.Context) error {
	var req struct {
		SessionID string `json:"sessionId"`
		Signature string `json:"signature"`
	}
	if err := bodyOf(c, &req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]any{"error": "invalid authorize request"})
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	f.authorizes++

	session, ok := f.sessions[req.SessionID]
	if !ok {
		return c.JSON(http.StatusNotFound, map[string]any{"error": "unknown session"})
	}

	sig, err := hexutil.Decode(req.Signature)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]any{"error": "invalid signature encoding"})
	}

	recovered, err := signer.RecoverTypedDataSigner(session.typedData, sig)
	if err != nil || recovered != session.user {
		return c.JSON(http.StatusUnauthorized, map[string]any{"error": "authorization signature mismatch"})
	}

	session.authorized = true
	session.nonce += f.NonceStep

	return c.JSON(http.StatusOK, map[string]any{"status": "active", "nonce": session.nonce})
}

func (f *FakeRelayer) postSigned(c echo.Context) error {
	var req relayer.SignedRequest
	if err := bodyOf(c, &req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]any{"error": "invalid signed request"})
	}

	f.mu.Lock()
	session, ok := f.sessions[req.SessionID]
	if !ok {
		f.mu.Unlock()
		return c.JSON(http.StatusNotFound, map[string]any{"error": "unknown session"})
	}

	if !session.authorized {
		f.mu.Unlock()
		return c.JSON(http.StatusForbidden, map[string]any{"error": "session not authorized"})
	}

	if req.Nonce != session.nonce {
		f.mu.Unlock()
		return c.JSON(http.StatusConflict, map[string]any{"error": "invalid nonce"})
	}

	message, err := relayer.BuildMessage(req.SessionID, req.FunctionName, req.Values, req.Nonce)
	if err != nil {
		f.mu.Unlock()
		return c.JSON(http.StatusBadRequest, map[string]any{"error": err.Error()})
	}

	sig, err := hexutil.Decode(req.Signature)
	if err != nil {
		f.mu.Unlock()
		return c.JSON(http.StatusBadRequest, map[string]any{"error": "invalid signature encoding"})
	}

	recovered, err := signer.RecoverMessageSigner([]byte(message), sig)
	if err != nil || recovered != session.user {
		f.mu.Unlock()
		return c.JSON(http.StatusUnauthorized, map[string]any{"error": "signature mismatch"})
	}

	call := SignedCall{Path: c.Path(), Request: req}
	f.signedCalls = append(f.signedCalls, call)
	f.mu.Unlock()

	reply := f.OnMutate
	if c.Path() == relayer.PathRead {
		reply = f.OnRead
	}

	status, body := http.StatusOK, map[string]any(nil)
	if reply != nil {
		status, body = reply(call)
	}

	if status < http.StatusOK || status >= http.StatusMultipleChoices {
		if body == nil {
			return c.NoContent(status)
		}
		return c.JSON(status, body)
	}

	if body == nil {
		body = f.defaultReply(call)
	}

	f.mu.Lock()
	if next, set := body["nextNonce"].(uint64); set {
		session.nonce = next
	} else {
		session.nonce += f.NonceStep
		switch {
		case f.EchoUsedNonce:
			body["nextNonce"] = call.Request.Nonce
		case !f.OmitNextNonce:
			body["nextNonce"] = session.nonce
		}
	}
	f.mu.Unlock()

	return c.JSON(status, body)
}

func (f *FakeRelayer) defaultReply(call SignedCall) map[string]any {
	if call.Path == relayer.PathRead {
		return map[string]any{
			"handle": hexutil.Encode(common.LeftPadBytes([]byte{0x01}, 32)),
			"value":  "42",
		}
	}

	return map[string]any{
		"txHash":      common.BigToHash(big.NewInt(int64(call.Request.Nonce) + 1)).Hex(),
		"blockNumber": 100 + call.Request.Nonce,
	}
}
