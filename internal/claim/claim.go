// Package claim keeps two workers from refreshing the same athlete at the
// same time, whatever windows they cover. A claim is keyed by athlete and
// owned by a token (the refresh run id); the owner may re-acquire its own
// claim.
package claim

import (
	"context"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Claimer acquires and releases per-athlete claims.
type Claimer interface {
	// Claim returns false, nil when another owner holds the claim.
	Claim(ctx context.Context, playerID primitive.ObjectID, token string) (bool, error)
	Release(ctx context.Context, playerID primitive.ObjectID, token string) error
}

// Key is the storage key of a claim.
func Key(playerID primitive.ObjectID) string {
	return "planner:claim:" + playerID.Hex()
}

type noop struct{}

// Noop grants every claim. Used when redis is not configured.
func Noop() Claimer { return noop{} }

func (noop) Claim(context.Context, primitive.ObjectID, string) (bool, error) {
	return true, nil
}

func (noop) Release(context.Context, primitive.ObjectID, string) error {
	return nil
}

type entry struct {
	token   string
	expires time.Time
}

// Memory is an in-process Claimer with expiring claims.
type Memory struct {
	mu     sync.Mutex
	ttl    time.Duration
	claims map[string]entry
	now    func() time.Time
}

// NewMemory creates an in-process Claimer.
func NewMemory(ttl time.Duration) *Memory {
	return &Memory{ttl: ttl, claims: map[string]entry{}, now: time.Now}
}

func (m *Memory) Claim(_ context.Context, playerID primitive.ObjectID, token string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := Key(playerID)
	now := m.now()
	if e, ok := m.claims[k]; ok && now.Before(e.expires) && e.token != token {
		return false, nil
	}
	m.claims[k] = entry{token: token, expires: now.Add(m.ttl)}
	return true, nil
}

func (m *Memory) Release(_ context.Context, playerID primitive.ObjectID, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := Key(playerID)
	if e, ok := m.claims[k]; ok && e.token == token {
		delete(m.claims, k)
	}
	return nil
}
