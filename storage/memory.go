package storage

import (
	"context"
	"fmt"
	"sync"

	"nutriplan"
)

// MemoryStore keeps plans in process memory. It is safe for concurrent use.
type MemoryStore struct {
	mu     sync.Mutex
	plans  map[string]nutriplan.StoredPlan
	active map[string]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		plans:  make(map[string]nutriplan.StoredPlan),
		active: make(map[string]string),
	}
}

func (s *MemoryStore) LoadActivePlan(ctx context.Context, userID string) (nutriplan.StoredPlan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.active[userID]
	if !ok {
		return nutriplan.StoredPlan{}, nutriplan.ErrNoActivePlan
	}
	sp := s.plans[id]
	sp.Plan = sp.Plan.Clone()
	return sp, nil
}

func (s *MemoryStore) ArchiveActivePlan(ctx context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.active[userID]
	if !ok {
		return nil
	}
	sp := s.plans[id]
	sp.Status = nutriplan.PlanStatusArchived
	sp.UpdatedAt = now()
	s.plans[id] = sp
	delete(s.active, userID)
	return nil
}

func (s *MemoryStore) SaveNewActivePlan(ctx context.Context, userID string, plan nutriplan.Plan) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.active[userID]; ok {
		return "", fmt.Errorf("user %s already has an active plan", userID)
	}

	ts := now()
	id := newID()
	s.plans[id] = nutriplan.StoredPlan{
		ID:        id,
		UserID:    userID,
		Status:    nutriplan.PlanStatusActive,
		Plan:      plan.Clone(),
		CreatedAt: ts,
		UpdatedAt: ts,
	}
	s.active[userID] = id
	return id, nil
}

func (s *MemoryStore) UpdateActivePlan(ctx context.Context, planID string, plan nutriplan.Plan) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sp, ok := s.plans[planID]
	if !ok {
		return nutriplan.ErrPlanNotFound
	}
	if sp.Status != nutriplan.PlanStatusActive {
		return nutriplan.ErrNoActivePlan
	}
	sp.Plan = plan.Clone()
	sp.UpdatedAt = now()
	s.plans[planID] = sp
	return nil
}

// Plans returns every plan of a user, archived ones included.
func (s *MemoryStore) Plans(userID string) []nutriplan.StoredPlan {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []nutriplan.StoredPlan
	for _, sp := range s.plans {
		if sp.UserID == userID {
			out = append(out, sp)
		}
	}
	return out
}
