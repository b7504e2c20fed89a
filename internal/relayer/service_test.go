package relayer_test

import (
	"encoding/json"
	"net/http"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github/tomi204/fhevm-client/internal/contract"
	"github/tomi204/fhevm-client/internal/data/fixtures"
	"github/tomi204/fhevm-client/internal/metrics"
	"github/tomi204/fhevm-client/internal/relayer"
	"github/tomi204/fhevm-client/internal/test"
	"github/tomi204/fhevm-client/internal/wallet/signer"
)

var counterAddress = common.HexToAddress("0x5FbDB2315678afecb367f032d93F642f64180aa3")

func counterDescriptor() contract.Descriptor {
	return contract.Descriptor{
		Address: counterAddress,
		ABI:     fixtures.MustABI(fixtures.FHECounter),
		Name:    fixtures.FHECounter,
	}
}

func newService(t *testing.T, fake *test.FakeRelayer, s signer.Signer, opts ...func(*relayer.Options)) relayer.Service {
	t.Helper()

	o := relayer.Options{
		BaseURL:  fake.URL(),
		Contract: counterDescriptor(),
		Signer:   s,
	}
	for _, fn := range opts {
		fn(&o)
	}

	svc, err := relayer.NewService(o)
	require.NoError(t, err)
	t.Cleanup(svc.Close)

	return svc
}

func TestCreateSessionWithoutAuthorization(t *testing.T) {
	fake := test.NewFakeRelayer(t)
	fake.InitialNonce = 7
	sig := test.NewCountingSigner(t)
	svc := newService(t, fake, sig)

	session, err := svc.CreateSession(t.Context())
	require.NoError(t, err)

	assert.NotEmpty(t, session.ID)
	assert.Equal(t, uint64(7), session.Nonce)
	assert.Equal(t, relayer.StateActive, session.State)
	assert.Equal(t, 0, sig.TypedDataSignatures())
	assert.Equal(t, 0, fake.AuthorizeCalls())

	reqs := fake.RequestsTo(relayer.PathSessions)
	require.Len(t, reqs, 1)
	assert.Equal(t, "application/json", reqs[0].Header.Get("Content-Type"))

	var body map[string]any
	require.NoError(t, json.Unmarshal(reqs[0].Body, &body))
	assert.Equal(t, counterAddress.Hex(), body["contractAddress"])
	assert.Equal(t, test.TestAddress, body["userAddress"])
	assert.NotEmpty(t, body["abi"])

	again, err := svc.CreateSession(t.Context())
	require.NoError(t, err)
	assert.Equal(t, session.ID, again.ID)
	assert.Len(t, fake.RequestsTo(relayer.PathSessions), 1)
}

func TestPendingSignatureAuthorizesOnceBeforeRequests(t *testing.T) {
	fake := test.NewFakeRelayer(t)
	fake.RequireAuthorization = true
	sig := test.NewCountingSigner(t)
	svc := newService(t, fake, sig)

	res, err := svc.Read(t.Context(), "getCount")
	require.NoError(t, err)
	assert.Equal(t, "42", res.Value)

	assert.Equal(t, 1, sig.TypedDataSignatures())
	assert.Equal(t, 1, fake.AuthorizeCalls())

	paths := make([]string, 0)
	for _, r := range fake.Requests() {
		paths = append(paths, r.Path)
	}
	assert.Equal(t, []string{relayer.PathSessions, relayer.PathAuthorize, relayer.PathRead}, paths)

	session := svc.Session()
	assert.Equal(t, relayer.StateActive, session.State)
	assert.NotEmpty(t, session.AuthorizationPublicKey)

	_, err = svc.Mutate(t.Context(), contract.MutateRequest{FunctionName: "increment", Values: []any{1}})
	require.NoError(t, err)
	assert.Equal(t, 1, sig.TypedDataSignatures())
	assert.Equal(t, 1, fake.AuthorizeCalls())
}

func TestPendingSignatureRequiresTypedDataSigner(t *testing.T) {
	fake := test.NewFakeRelayer(t)
	fake.RequireAuthorization = true

	key, err := signer.NewFromHex(test.TestPrivateKey)
	require.NoError(t, err)
	svc := newService(t, fake, test.MessageOnlySigner{Signer: key})

	_, err = svc.CreateSession(t.Context())
	require.ErrorIs(t, err, relayer.ErrUnsupportedSigner)
	assert.Equal(t, 0, fake.AuthorizeCalls())
	assert.Empty(t, fake.SignedCalls())
}

func TestSignedRequestsAdoptNextNonce(t *testing.T) {
	fake := test.NewFakeRelayer(t)
	fake.OnRead = func(call test.SignedCall) (int, map[string]any) {
		return http.StatusOK, map[string]any{"handle": "0x01", "value": json.Number("3"), "nextNonce": call.Request.Nonce + 10}
	}
	svc := newService(t, fake, test.NewCountingSigner(t))

	_, err := svc.Read(t.Context(), "getCount")
	require.NoError(t, err)
	assert.Equal(t, uint64(10), svc.Session().Nonce)

	_, err = svc.Read(t.Context(), "getCount")
	require.NoError(t, err)
	assert.Equal(t, uint64(20), svc.Session().Nonce)

	calls := fake.SignedCalls()
	require.Len(t, calls, 2)
	assert.Equal(t, uint64(0), calls[0].Request.Nonce)
	assert.Equal(t, uint64(10), calls[1].Request.Nonce)
	assert.Equal(t, []any{}, calls[0].Request.Values)
	assert.Equal(t, "getCount", calls[0].Request.FunctionName)
}

func TestSignedRequestsIncrementWithoutNextNonce(t *testing.T) {
	fake := test.NewFakeRelayer(t)
	fake.OmitNextNonce = true
	svc := newService(t, fake, test.NewCountingSigner(t))

	for range 3 {
		_, err := svc.Mutate(t.Context(), contract.MutateRequest{FunctionName: "increment", Values: []any{2}})
		require.NoError(t, err)
	}

	calls := fake.SignedCalls()
	require.Len(t, calls, 3)
	for i, c := range calls {
		assert.Equal(t, uint64(i), c.Request.Nonce)
	}
	assert.Equal(t, uint64(3), svc.Session().Nonce)
}

func TestStaleNextNonceIsNotAdopted(t *testing.T) {
	fake := test.NewFakeRelayer(t)
	fake.EchoUsedNonce = true
	svc := newService(t, fake, test.NewCountingSigner(t))

	for range 3 {
		_, err := svc.Mutate(t.Context(), contract.MutateRequest{FunctionName: "increment", Values: []any{1}})
		require.NoError(t, err)
	}

	calls := fake.SignedCalls()
	require.Len(t, calls, 3)
	for i, c := range calls {
		assert.Equal(t, uint64(i), c.Request.Nonce)
	}
	assert.Equal(t, uint64(3), svc.Session().Nonce)
}

func TestFailedRequestKeepsNonce(t *testing.T) {
	fake := test.NewFakeRelayer(t)
	fail := true
	fake.OnMutate = func(_ test.SignedCall) (int, map[string]any) {
		if fail {
			return http.StatusUnprocessableEntity, map[string]any{"error": "execution reverted"}
		}
		return http.StatusOK, nil
	}
	svc := newService(t, fake, test.NewCountingSigner(t))

	_, err := svc.Read(t.Context(), "getCount")
	require.NoError(t, err)
	before := svc.Session().Nonce

	_, err = svc.Mutate(t.Context(), contract.MutateRequest{FunctionName: "increment", Values: []any{1}})
	require.ErrorIs(t, err, relayer.ErrRelayer)

	var relayerErr *relayer.RelayerError
	require.True(t, errors.As(err, &relayerErr))
	assert.Equal(t, http.StatusUnprocessableEntity, relayerErr.StatusCode)
	assert.Equal(t, "execution reverted", relayerErr.Message)
	assert.Equal(t, before, svc.Session().Nonce)

	fail = false
	res, err := svc.Mutate(t.Context(), contract.MutateRequest{FunctionName: "increment", Values: []any{1}})
	require.NoError(t, err)
	assert.NotEmpty(t, res.TxHash)

	calls := fake.SignedCalls()
	require.Len(t, calls, 3)
	assert.Equal(t, before, calls[1].Request.Nonce)
	assert.Equal(t, before, calls[2].Request.Nonce)
}

func TestRelayerErrorFallsBackToStatusText(t *testing.T) {
	fake := test.NewFakeRelayer(t)
	fake.OnRead = func(_ test.SignedCall) (int, map[string]any) {
		return http.StatusBadGateway, nil
	}
	svc := newService(t, fake, test.NewCountingSigner(t))

	_, err := svc.Read(t.Context(), "getCount")

	var relayerErr *relayer.RelayerError
	require.True(t, errors.As(err, &relayerErr))
	assert.Equal(t, http.StatusText(http.StatusBadGateway), relayerErr.Message)
}

func TestMutateSettledByRelayer(t *testing.T) {
	fake := test.NewFakeRelayer(t)
	fake.OnMutate = func(_ test.SignedCall) (int, map[string]any) {
		return http.StatusOK, map[string]any{"txHash": "0xabc", "blockNumber": "0x10"}
	}
	svc := newService(t, fake, test.NewCountingSigner(t))

	res, err := svc.Mutate(t.Context(), contract.MutateRequest{FunctionName: "increment", Values: []any{5}})
	require.NoError(t, err)
	assert.Equal(t, "0xabc", res.TxHash)
	assert.Equal(t, uint64(16), res.BlockNumber)

	calls := fake.SignedCalls()
	require.Len(t, calls, 1)
	assert.Equal(t, []any{json.Number("5")}, calls[0].Request.Values)
}

func TestMutateClientSign(t *testing.T) {
	fake := test.NewFakeRelayer(t)
	fake.OnMutate = func(_ test.SignedCall) (int, map[string]any) {
		return http.StatusOK, map[string]any{"mode": "client-sign", "params": []any{5, "0xabc"}}
	}
	local := test.NewFakeContract()
	svc := newService(t, fake, test.NewCountingSigner(t), func(o *relayer.Options) {
		o.Transactor = local
	})

	res, err := svc.Mutate(t.Context(), contract.MutateRequest{FunctionName: "increment", Values: []any{5}})
	require.NoError(t, err)

	txs := local.Transactions()
	require.Len(t, txs, 1)
	assert.Equal(t, "increment", txs[0].Method)
	assert.Equal(t, []any{json.Number("5"), "0xabc"}, txs[0].Args)

	assert.NotEmpty(t, res.TxHash)
	assert.Equal(t, uint64(1001), res.BlockNumber)
	assert.Equal(t, uint64(1), svc.Session().Nonce)
}

func TestMutateClientSignWithoutTransactor(t *testing.T) {
	fake := test.NewFakeRelayer(t)
	fake.OnMutate = func(_ test.SignedCall) (int, map[string]any) {
		return http.StatusOK, map[string]any{"mode": "client-sign", "params": []any{1}}
	}
	svc := newService(t, fake, test.NewCountingSigner(t))

	_, err := svc.Mutate(t.Context(), contract.MutateRequest{FunctionName: "increment"})
	require.ErrorIs(t, err, relayer.ErrProtocolViolation)
	assert.Equal(t, uint64(1), svc.Session().Nonce)
}

func TestMutateUnknownShape(t *testing.T) {
	fake := test.NewFakeRelayer(t)
	fake.OnMutate = func(_ test.SignedCall) (int, map[string]any) {
		return http.StatusOK, map[string]any{"mode": "batched"}
	}
	svc := newService(t, fake, test.NewCountingSigner(t))

	_, err := svc.Mutate(t.Context(), contract.MutateRequest{FunctionName: "increment", Values: []any{1}})
	require.ErrorIs(t, err, relayer.ErrProtocolViolation)

	fake.OnMutate = func(_ test.SignedCall) (int, map[string]any) {
		return http.StatusOK, map[string]any{"txHash": "0x01"}
	}
	_, err = svc.Mutate(t.Context(), contract.MutateRequest{FunctionName: "increment", Values: []any{1}})
	require.ErrorIs(t, err, relayer.ErrProtocolViolation)
}

func TestReadWithoutHandleIsProtocolViolation(t *testing.T) {
	fake := test.NewFakeRelayer(t)
	fake.OnRead = func(_ test.SignedCall) (int, map[string]any) {
		return http.StatusOK, map[string]any{"value": "1"}
	}
	svc := newService(t, fake, test.NewCountingSigner(t))

	_, err := svc.Read(t.Context(), "getCount")
	require.ErrorIs(t, err, relayer.ErrProtocolViolation)
}

func TestConcurrentRequestsNeverReuseNonce(t *testing.T) {
	fake := test.NewFakeRelayer(t)
	svc := newService(t, fake, test.NewCountingSigner(t))

	const workers = 8

	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			var err error
			if i%2 == 0 {
				_, err = svc.Read(t.Context(), "getCount")
			} else {
				_, err = svc.Mutate(t.Context(), contract.MutateRequest{FunctionName: "increment", Values: []any{i}})
			}
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}

	seen := make(map[uint64]bool)
	for _, c := range fake.SignedCalls() {
		assert.False(t, seen[c.Request.Nonce], "nonce %d used twice", c.Request.Nonce)
		seen[c.Request.Nonce] = true
	}
	assert.Len(t, seen, workers)
	assert.Len(t, fake.RequestsTo(relayer.PathSessions), 1)
}

func TestAPIKeyHeader(t *testing.T) {
	fake := test.NewFakeRelayer(t)
	fake.APIKey = "secret"

	svc := newService(t, fake, test.NewCountingSigner(t), func(o *relayer.Options) {
		o.APIKey = "secret"
	})
	_, err := svc.Read(t.Context(), "getCount")
	require.NoError(t, err)

	for _, r := range fake.Requests() {
		assert.Equal(t, "secret", r.Header.Get(relayer.HeaderRelayerKey))
	}

	unauthorized := newService(t, fake, test.NewCountingSigner(t))
	_, err = unauthorized.CreateSession(t.Context())
	require.ErrorIs(t, err, relayer.ErrRelayer)
}

func TestMetadataAndMetrics(t *testing.T) {
	fake := test.NewFakeRelayer(t)
	m, err := metrics.New()
	require.NoError(t, err)

	svc := newService(t, fake, test.NewCountingSigner(t), func(o *relayer.Options) {
		o.Metrics = m
	})

	md := svc.Metadata()
	assert.Equal(t, fake.URL(), md.RelayerBaseURL)
	assert.Empty(t, md.SessionID)
	assert.Equal(t, "uninitialized", md.State)

	_, err = svc.Read(t.Context(), "getCount")
	require.NoError(t, err)

	md = svc.Metadata()
	assert.Equal(t, svc.Session().ID, md.SessionID)
	assert.Equal(t, "active", md.State)
	assert.Equal(t, uint64(1), md.Nonce)

	assert.InDelta(t, 1, testutil.ToFloat64(m.RelayerRequests().WithLabelValues("sessions", metrics.OutcomeSuccess)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.RelayerRequests().WithLabelValues("read", metrics.OutcomeSuccess)), 0)
}

func TestNewServiceValidation(t *testing.T) {
	_, err := relayer.NewService(relayer.Options{Contract: counterDescriptor(), Signer: test.NewCountingSigner(t)})
	require.Error(t, err)

	_, err = relayer.NewService(relayer.Options{BaseURL: "http://localhost", Contract: counterDescriptor()})
	require.Error(t, err)
}
