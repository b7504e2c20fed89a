package fhe

import (
	"context"
	"io"
	"sync"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// ErrEngineClosed is returned by Provider.Get once the provider was closed,
// including to callers that were waiting on an initialization in flight.
var ErrEngineClosed = errors.New("encryption engine provider closed")

// Provider owns the single, cancellable initialization of an engine for the
// lifetime of one client.
type Provider struct {
	factory Factory

	mu      sync.Mutex
	ctx     context.Context //nolint:containedctx // scopes the in-flight factory call
	cancel  context.CancelFunc
	closed  bool
	current *attempt
	engine  Engine
}

type attempt struct {
	done   chan struct{}
	engine Engine
	err    error
}

// NewProvider returns a provider that lazily calls factory on first use.
func NewProvider(factory Factory) *Provider {
	ctx, cancel := context.WithCancel(context.Background())
	return &Provider{
		factory: factory,
		ctx:     ctx,
		cancel:  cancel,
	}
}

// StaticProvider wraps an already created engine.
func StaticProvider(engine Engine) *Provider {
	return NewProvider(func(context.Context) (Engine, error) {
		return engine, nil
	})
}

// Get returns the engine, starting the initialization if needed. Waiting is
// bounded by ctx; a ctx expiring does not cancel the shared initialization.
func (p *Provider) Get(ctx context.Context) (Engine, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, ErrEngineClosed
	}
	if p.current == nil {
		p.current = &attempt{done: make(chan struct{})}
		go p.initialize(p.current)
	}
	current := p.current
	p.mu.Unlock()

	select {
	case <-current.done:
	case <-ctx.Done():
		return nil, errors.Wrap(ctx.Err(), "context canceled while waiting for encryption engine")
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil, ErrEngineClosed
	}

	return current.engine, current.err
}

func (p *Provider) initialize(a *attempt) {
	engine, err := p.factory(p.ctx)

	p.mu.Lock()
	defer p.mu.Unlock()
	defer close(a.done)

	switch {
	case p.closed:
		if err == nil {
			closeEngine(engine)
		}
		a.err = ErrEngineClosed
	case err != nil:
		log.Warn().Err(err).Msg("EngineProvider: encryption engine initialization failed")
		a.err = errors.Wrap(err, "failed to initialize encryption engine")
		// the next Get starts a fresh attempt
		p.current = nil
	default:
		a.engine = engine
		p.engine = engine
	}
}

// Close cancels an initialization in flight and releases the engine. Get fails
// with ErrEngineClosed afterwards.
func (p *Provider) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	p.cancel()
	engine := p.engine
	p.engine = nil
	p.mu.Unlock()

	closeEngine(engine)
	return nil
}

func closeEngine(engine Engine) {
	closer, ok := engine.(io.Closer)
	if !ok {
		return
	}
	if err := closer.Close(); err != nil {
		log.Warn().Err(err).Msg("EngineProvider: failed to close encryption engine")
	}
}
