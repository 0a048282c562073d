package rulestore

import (
	"sync"
	"time"

	"github.com/haukened/reclaim/internal/reclaim/common/clock"
	"github.com/haukened/reclaim/internal/reclaim/domain"
)

// memoryStore keeps rules in process memory. It backs offline evaluation
// and tests; contents are lost on Close.
type memoryStore struct {
	mu      sync.RWMutex
	clock   clock.Clock
	order   []string
	rules   map[string]domain.SiteRule
	version uint64
	updated int64
}

// NewMemory returns an empty in-memory Store seeded with rules, in order.
func NewMemory(clk clock.Clock, rules ...domain.SiteRule) (Store, error) {
	if clk == nil {
		clk = clock.RealClock{}
	}
	s := &memoryStore{clock: clk, rules: make(map[string]domain.SiteRule)}
	for _, r := range rules {
		if _, err := s.Put(r); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (s *memoryStore) List() ([]domain.SiteRule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.SiteRule, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.rules[id])
	}
	return out, nil
}

func (s *memoryStore) Get(id string) (domain.SiteRule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.rules[id]
	if !ok {
		return domain.SiteRule{}, ErrNotFound
	}
	return r, nil
}

func (s *memoryStore) Put(r domain.SiteRule) (domain.SiteRule, error) {
	now := s.clock.Now()
	r = Prepare(r, now)

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.rules[r.ID]; !exists {
		s.order = append(s.order, r.ID)
	}
	s.rules[r.ID] = r
	s.touch(now)
	return r, nil
}

func (s *memoryStore) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rules[id]; !ok {
		return ErrNotFound
	}
	delete(s.rules, id)
	for i, oid := range s.order {
		if oid == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	s.touch(s.clock.Now())
	return nil
}

func (s *memoryStore) Stats() StoreStats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return StoreStats{Rules: uint64(len(s.rules)), Version: s.version, UpdatedUnix: s.updated}
}

func (s *memoryStore) Close() error { return nil }

func (s *memoryStore) touch(now time.Time) {
	s.version++
	s.updated = now.Unix()
}

// Prepare assigns an ID and creation time to new rules.
func Prepare(r domain.SiteRule, now time.Time) domain.SiteRule {
	if r.ID == "" {
		r.ID = NewID()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = now
	}
	return r
}

var _ Store = (*memoryStore)(nil)
