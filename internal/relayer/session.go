package relayer

import (
	"context"
	"sync"

	"golang.org/x/sync/semaphore"
)

// sessionState owns the mutable session. Every relayer exchange holds the
// semaphore for its whole duration, so a nonce is read, signed and advanced by
// one request at a time. mu only guards snapshots taken without the semaphore.
type sessionState struct {
	sem *semaphore.Weighted

	mu      sync.RWMutex
	id      string
	nonce   uint64
	pubKey  string
	state   State
	pending *authorizationEnvelope
}

func newSessionState() *sessionState {
	return &sessionState{sem: semaphore.NewWeighted(1)}
}

func (s *sessionState) acquire(ctx context.Context) error {
	return s.sem.Acquire(ctx, 1)
}

func (s *sessionState) release() {
	s.sem.Release(1)
}

func (s *sessionState) snapshot() Session {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return Session{
		ID:                     s.id,
		Nonce:                  s.nonce,
		AuthorizationPublicKey: s.pubKey,
		State:                  s.state,
	}
}

func (s *sessionState) created(id string, nonce uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.id = id
	s.nonce = nonce
	s.state = StateSessionCreated
}

func (s *sessionState) awaitAuthorization(envelope *authorizationEnvelope) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.pending = envelope
	s.pubKey = envelope.PublicKey
	s.state = StateAuthorizationPending
}

func (s *sessionState) authorized(nonce *Quantity) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if nonce != nil {
		s.nonce = uint64(*nonce)
	}
	s.pending = nil
	s.state = StateAuthorized
}

func (s *sessionState) activate(publicKey string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if publicKey != "" {
		s.pubKey = publicKey
	}
	s.state = StateActive
}

// advance is the only transition moving the nonce after a signed request was
// accepted. It adopts next when it is ahead of the used nonce and increments
// by one otherwise, so a used nonce is never handed out twice.
func (s *sessionState) advance(used uint64, next *Quantity) (uint64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	adopted := next != nil && uint64(*next) > used
	if adopted {
		s.nonce = uint64(*next)
	} else {
		s.nonce = used + 1
	}

	return s.nonce, adopted
}
