package repository

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/mvanderlyn27/odyssey-backend-sub003/internal/domain/model"
	"github.com/mvanderlyn27/odyssey-backend-sub003/internal/domain/ranking"
	"github.com/mvanderlyn27/odyssey-backend-sub003/pkg/metrics"
)

const storeMemory = "memory"

// MemoryStore keeps ranks, profiles and the user leaderboard in process.
// It implements Store, ProfileSource and Leaderboard.
type MemoryStore struct {
	mu       sync.RWMutex
	ranks    map[string]model.UserRanks
	profiles map[string]model.UserProfile
	board    *leaderboardIndex
}

var (
	_ Store         = (*MemoryStore)(nil)
	_ ProfileSource = (*MemoryStore)(nil)
	_ Leaderboard   = (*MemoryStore)(nil)
)

// NewMemoryStore constructs an empty store.
func NewMemoryStore(opts ...Option) *MemoryStore {
	s := &MemoryStore{
		ranks:    make(map[string]model.UserRanks),
		profiles: make(map[string]model.UserProfile),
		board:    newLeaderboardIndex(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// PutProfile stores or replaces a profile.
func (s *MemoryStore) PutProfile(p model.UserProfile) {
	s.mu.Lock()
	s.profiles[p.UserID] = p
	s.mu.Unlock()
}

// Profile implements ProfileSource.
func (s *MemoryStore) Profile(_ context.Context, userID string) (model.UserProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.profiles[userID]
	if !ok {
		return model.UserProfile{}, fmt.Errorf("%w: profile %q", ErrNotFound, userID)
	}
	return p, nil
}

// LoadRanks implements Store. The result is a copy.
func (s *MemoryStore) LoadRanks(_ context.Context, userID string) (model.UserRanks, error) {
	start := time.Now()
	s.mu.RLock()
	ranks, ok := s.ranks[userID]
	if ok {
		ranks = ranks.Clone()
	}
	s.mu.RUnlock()
	if !ok {
		ranks = model.NewUserRanks()
	}
	metrics.RecordStoreOperation(storeMemory, "load", time.Since(start), nil)
	return ranks, nil
}

// SaveRanks implements Store.
func (s *MemoryStore) SaveRanks(_ context.Context, userID string, payload ranking.Payload) error {
	if payload.Empty() {
		return nil
	}
	start := time.Now()

	s.mu.Lock()
	ranks, ok := s.ranks[userID]
	if ok {
		ranks = ranks.Clone()
	} else {
		ranks = model.NewUserRanks()
	}
	for _, row := range payload.Rows() {
		if row.UserID != userID {
			s.mu.Unlock()
			err := fmt.Errorf("%w: row for user %q in batch of %q", ErrPersist, row.UserID, userID)
			metrics.RecordStoreOperation(storeMemory, "save", time.Since(start), err)
			return err
		}
		ranks.Put(row)
	}
	s.ranks[userID] = ranks
	if payload.User != nil {
		s.board.upsert(userID, payload.User.LeaderboardScore)
	}
	size := s.board.len()
	s.mu.Unlock()

	metrics.RecordStoreOperation(storeMemory, "save", time.Since(start), nil)
	metrics.UpdateLeaderboardUsers(size)
	return nil
}

// TopN implements Leaderboard.
func (s *MemoryStore) TopN(_ context.Context, n int) ([]Entry, error) {
	if n < 1 {
		return nil, ErrInvalidLimit
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := s.board.top(n)
	for i := range out {
		out[i].Tier = s.userTier(out[i].UserID)
	}
	return out, nil
}

// Rank implements Leaderboard in O(log n) expected time.
func (s *MemoryStore) Rank(_ context.Context, userID string) (Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rank, score, ok := s.board.rank(userID)
	if !ok {
		return Entry{}, fmt.Errorf("%w: user %q not ranked", ErrNotFound, userID)
	}
	return Entry{Rank: rank, UserID: userID, Score: score, Tier: s.userTier(userID)}, nil
}

// Count implements Leaderboard.
func (s *MemoryStore) Count(_ context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.board.len()
}

func (s *MemoryStore) userTier(userID string) model.TierRef {
	if u := s.ranks[userID].User; u != nil {
		return u.LeaderboardTier
	}
	return model.TierRef{}
}
