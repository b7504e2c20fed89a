package fhe_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github/tomi204/fhevm-client/internal/fhe"
	"github/tomi204/fhevm-client/internal/fhe/mock"
)

type closingEngine struct {
	*mock.Engine
	closed atomic.Bool
}

func (c *closingEngine) Close() error {
	c.closed.Store(true)
	return nil
}

func TestProviderInitializesOnce(t *testing.T) {
	var calls atomic.Int32
	provider := fhe.NewProvider(func(ctx context.Context) (fhe.Engine, error) {
		calls.Add(1)
		return mock.New(mock.Config{}), nil
	})
	defer provider.Close()

	first, err := provider.Get(t.Context())
	require.NoError(t, err)
	second, err := provider.Get(t.Context())
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, int32(1), calls.Load())
}

func TestProviderGetAfterCloseFails(t *testing.T) {
	engine := &closingEngine{Engine: mock.New(mock.Config{})}
	provider := fhe.StaticProvider(engine)

	_, err := provider.Get(t.Context())
	require.NoError(t, err)

	require.NoError(t, provider.Close())
	assert.True(t, engine.closed.Load())

	_, err = provider.Get(t.Context())
	require.ErrorIs(t, err, fhe.ErrEngineClosed)

	// closing twice is harmless
	require.NoError(t, provider.Close())
}

func TestProviderCloseDuringInitialization(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	engine := &closingEngine{Engine: mock.New(mock.Config{})}

	provider := fhe.NewProvider(func(ctx context.Context) (fhe.Engine, error) {
		close(started)
		<-release
		// the factory ignores cancellation and still produces an engine
		return engine, nil
	})

	result := make(chan error, 1)
	go func() {
		_, err := provider.Get(context.Background())
		result <- err
	}()

	<-started
	require.NoError(t, provider.Close())
	close(release)

	select {
	case err := <-result:
		require.ErrorIs(t, err, fhe.ErrEngineClosed)
	case <-time.After(5 * time.Second):
		t.Fatal("Get did not return after Close")
	}

	assert.Eventually(t, engine.closed.Load, 5*time.Second, 10*time.Millisecond,
		"an engine resolved after cancellation must be released")
}

func TestProviderFactorySeesCancellation(t *testing.T) {
	started := make(chan struct{})
	canceled := make(chan struct{})
	provider := fhe.NewProvider(func(ctx context.Context) (fhe.Engine, error) {
		close(started)
		<-ctx.Done()
		close(canceled)
		return nil, ctx.Err()
	})

	go func() {
		_, _ = provider.Get(context.Background())
	}()

	<-started
	require.NoError(t, provider.Close())

	select {
	case <-canceled:
	case <-time.After(5 * time.Second):
		t.Fatal("factory context was not canceled")
	}
}

func TestProviderRetriesAfterFailure(t *testing.T) {
	var calls atomic.Int32
	provider := fhe.NewProvider(func(ctx context.Context) (fhe.Engine, error) {
		if calls.Add(1) == 1 {
			return nil, errors.New("key download failed")
		}
		return mock.New(mock.Config{}), nil
	})
	defer provider.Close()

	_, err := provider.Get(t.Context())
	require.Error(t, err)

	engine, err := provider.Get(t.Context())
	require.NoError(t, err)
	assert.NotNil(t, engine)
}

func TestProviderGetHonoursCallerContext(t *testing.T) {
	provider := fhe.NewProvider(func(ctx context.Context) (fhe.Engine, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})
	defer provider.Close()

	ctx, cancel := context.WithTimeout(t.Context(), 20*time.Millisecond)
	defer cancel()

	_, err := provider.Get(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}
