// Package session holds client-session state layered on top of the
// authoritative issue records: the per-user sets of upvoted and reported
// issue ids. The sets are advisory and session-scoped; they prevent
// double-upvoting within one session but are never treated as
// server-authoritative state. They are cleared on logout and expire with
// the access token.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Overlays is a point-in-time snapshot of one user's session marks.
type Overlays struct {
	Upvoted  map[string]struct{}
	Reported map[string]struct{}
}

// Has reports whether the id is in the given set.
func has(set map[string]struct{}, id string) bool {
	_, ok := set[id]
	return ok
}

// HasUpvoted reports whether the snapshot marks the issue as upvoted.
func (o Overlays) HasUpvoted(issueID string) bool { return has(o.Upvoted, issueID) }

// HasReported reports whether the snapshot marks the issue as reported.
func (o Overlays) HasReported(issueID string) bool { return has(o.Reported, issueID) }

// OverlayStore tracks session-scoped issue marks per user.
type OverlayStore interface {
	MarkUpvoted(ctx context.Context, userID, issueID string) error
	HasUpvoted(ctx context.Context, userID, issueID string) (bool, error)
	MarkReported(ctx context.Context, userID, issueID string) error
	Snapshot(ctx context.Context, userID string) (Overlays, error)
	// Clear drops all marks for the user; called on logout.
	Clear(ctx context.Context, userID string) error
}

const (
	upvoteKeyPrefix = "overlay:upvotes:"
	reportKeyPrefix = "overlay:reports:"
)

type redisOverlayStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisOverlayStore builds a Redis-backed overlay store. The ttl should
// match the access-token lifetime so abandoned sessions age out.
func NewRedisOverlayStore(client *redis.Client, ttl time.Duration) OverlayStore {
	return &redisOverlayStore{client: client, ttl: ttl}
}

func (s *redisOverlayStore) mark(ctx context.Context, key, issueID string) error {
	pipe := s.client.TxPipeline()
	pipe.SAdd(ctx, key, issueID)
	if s.ttl > 0 {
		pipe.Expire(ctx, key, s.ttl)
	}
	_, err := pipe.Exec(ctx)
	return err
}

func (s *redisOverlayStore) MarkUpvoted(ctx context.Context, userID, issueID string) error {
	return s.mark(ctx, upvoteKeyPrefix+userID, issueID)
}

func (s *redisOverlayStore) HasUpvoted(ctx context.Context, userID, issueID string) (bool, error) {
	return s.client.SIsMember(ctx, upvoteKeyPrefix+userID, issueID).Result()
}

func (s *redisOverlayStore) MarkReported(ctx context.Context, userID, issueID string) error {
	return s.mark(ctx, reportKeyPrefix+userID, issueID)
}

func (s *redisOverlayStore) Snapshot(ctx context.Context, userID string) (Overlays, error) {
	overlays := Overlays{
		Upvoted:  map[string]struct{}{},
		Reported: map[string]struct{}{},
	}
	upvoted, err := s.client.SMembers(ctx, upvoteKeyPrefix+userID).Result()
	if err != nil {
		return overlays, err
	}
	reported, err := s.client.SMembers(ctx, reportKeyPrefix+userID).Result()
	if err != nil {
		return overlays, err
	}
	for _, id := range upvoted {
		overlays.Upvoted[id] = struct{}{}
	}
	for _, id := range reported {
		overlays.Reported[id] = struct{}{}
	}
	return overlays, nil
}

func (s *redisOverlayStore) Clear(ctx context.Context, userID string) error {
	return s.client.Del(ctx, upvoteKeyPrefix+userID, reportKeyPrefix+userID).Err()
}

type memoryOverlayStore struct {
	mu       sync.RWMutex
	upvoted  map[string]map[string]struct{}
	reported map[string]map[string]struct{}
}

// NewMemoryOverlayStore builds a process-local overlay store. Used when no
// Redis is reachable and in tests; marks do not survive restarts.
func NewMemoryOverlayStore() OverlayStore {
	return &memoryOverlayStore{
		upvoted:  map[string]map[string]struct{}{},
		reported: map[string]map[string]struct{}{},
	}
}

func markLocal(sets map[string]map[string]struct{}, userID, issueID string) {
	set, ok := sets[userID]
	if !ok {
		set = map[string]struct{}{}
		sets[userID] = set
	}
	set[issueID] = struct{}{}
}

func (s *memoryOverlayStore) MarkUpvoted(_ context.Context, userID, issueID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	markLocal(s.upvoted, userID, issueID)
	return nil
}

func (s *memoryOverlayStore) HasUpvoted(_ context.Context, userID, issueID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return has(s.upvoted[userID], issueID), nil
}

func (s *memoryOverlayStore) MarkReported(_ context.Context, userID, issueID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	markLocal(s.reported, userID, issueID)
	return nil
}

func (s *memoryOverlayStore) Snapshot(_ context.Context, userID string) (Overlays, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	overlays := Overlays{
		Upvoted:  map[string]struct{}{},
		Reported: map[string]struct{}{},
	}
	for id := range s.upvoted[userID] {
		overlays.Upvoted[id] = struct{}{}
	}
	for id := range s.reported[userID] {
		overlays.Reported[id] = struct{}{}
	}
	return overlays, nil
}

func (s *memoryOverlayStore) Clear(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.upvoted, userID)
	delete(s.reported, userID)
	return nil
}
