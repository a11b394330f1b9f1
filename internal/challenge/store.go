// Package challenge provides the in-memory ChallengeStore: the only
// shared mutable resource in the core. It is an explicitly owned value
// injected into the auth service, never ambient process state.
package challenge

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/zkvault/zkvault-server/internal/model"
)

var _ model.ChallengeStore = (*MemoryStore)(nil)

type key struct {
	identityID uuid.UUID
	ceremony   model.Ceremony
}

// MemoryStore keeps pending ceremonies in a mutex-guarded map keyed by
// identity and ceremony, so ceremonies for different identities never
// interfere. Expired entries are swept lazily on writes.
type MemoryStore struct {
	mu      sync.Mutex
	pending map[key]model.Challenge
	now     func() time.Time
}

// NewMemoryStore creates an empty challenge store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		pending: make(map[key]model.Challenge),
		now:     time.Now,
	}
}

// Put stores a challenge, replacing any pending one for the same
// identity and ceremony.
func (s *MemoryStore) Put(_ context.Context, challenge model.Challenge) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sweepLocked()
	s.pending[key{identityID: challenge.IdentityID, ceremony: challenge.Ceremony}] = challenge
	return nil
}

// Take atomically removes and returns the pending challenge for the
// identity and ceremony. The removal is what guarantees single use: a
// second Take for the same ceremony fails ErrNoPendingChallenge no
// matter how the first verification went.
func (s *MemoryStore) Take(_ context.Context, identityID uuid.UUID, ceremony model.Ceremony) (model.Challenge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := key{identityID: identityID, ceremony: ceremony}
	challenge, ok := s.pending[k]
	if !ok {
		return model.Challenge{}, model.ErrNoPendingChallenge
	}
	delete(s.pending, k)

	if challenge.Expired(s.now()) {
		return model.Challenge{}, model.ErrChallengeExpired
	}
	return challenge, nil
}

func (s *MemoryStore) sweepLocked() {
	now := s.now()
	for k, c := range s.pending {
		if c.Expired(now) {
			delete(s.pending, k)
		}
	}
}
