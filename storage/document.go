package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"sync"

	"nutriplan"
)

// errBlobNotFound is returned by a Blobs implementation for a missing key.
var errBlobNotFound = errors.New("blob not found")

// Blobs is a flat key/value byte store: a directory or an S3 bucket.
type Blobs interface {
	Load(ctx context.Context, key string) ([]byte, error)
	Save(ctx context.Context, key string, data []byte) error
	Delete(ctx context.Context, key string) error
}

// documentStore keeps each plan as a JSON document under plans/<id>.json and the user's active
// plan ID under users/<user>/active.
type documentStore struct {
	mu    sync.Mutex
	blobs Blobs
}

func newDocumentStore(blobs Blobs) *documentStore {
	return &documentStore{blobs: blobs}
}

func planKey(id string) string       { return path.Join("plans", id+".json") }
func activeKey(userID string) string { return path.Join("users", userID, "active") }

func (s *documentStore) LoadActivePlan(ctx context.Context, userID string) (nutriplan.StoredPlan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, err := s.activeID(ctx, userID)
	if err != nil {
		return nutriplan.StoredPlan{}, err
	}

	sp, err := s.load(ctx, id)
	if errors.Is(err, nutriplan.ErrPlanNotFound) {
		return nutriplan.StoredPlan{}, nutriplan.ErrNoActivePlan
	}
	return sp, err
}

func (s *documentStore) ArchiveActivePlan(ctx context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, err := s.activeID(ctx, userID)
	if errors.Is(err, nutriplan.ErrNoActivePlan) {
		return nil
	}
	if err != nil {
		return err
	}

	sp, err := s.load(ctx, id)
	switch {
	case errors.Is(err, nutriplan.ErrPlanNotFound):
	case err != nil:
		return err
	default:
		sp.Status = nutriplan.PlanStatusArchived
		sp.UpdatedAt = now()
		if err := s.save(ctx, sp); err != nil {
			return err
		}
	}

	if err := s.blobs.Delete(ctx, activeKey(userID)); err != nil && !errors.Is(err, errBlobNotFound) {
		return fmt.Errorf("failed to clear active plan pointer: %w", err)
	}
	return nil
}

func (s *documentStore) SaveNewActivePlan(ctx context.Context, userID string, plan nutriplan.Plan) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.activeID(ctx, userID); err == nil {
		return "", fmt.Errorf("user %s already has an active plan", userID)
	} else if !errors.Is(err, nutriplan.ErrNoActivePlan) {
		return "", err
	}

	ts := now()
	sp := nutriplan.StoredPlan{
		ID:        newID(),
		UserID:    userID,
		Status:    nutriplan.PlanStatusActive,
		Plan:      plan,
		CreatedAt: ts,
		UpdatedAt: ts,
	}
	if err := s.save(ctx, sp); err != nil {
		return "", err
	}
	if err := s.blobs.Save(ctx, activeKey(userID), []byte(sp.ID)); err != nil {
		return "", fmt.Errorf("failed to write active plan pointer: %w", err)
	}
	return sp.ID, nil
}

func (s *documentStore) UpdateActivePlan(ctx context.Context, planID string, plan nutriplan.Plan) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sp, err := s.load(ctx, planID)
	if err != nil {
		return err
	}
	if sp.Status != nutriplan.PlanStatusActive {
		return nutriplan.ErrNoActivePlan
	}
	sp.Plan = plan
	sp.UpdatedAt = now()
	return s.save(ctx, sp)
}

func (s *documentStore) activeID(ctx context.Context, userID string) (string, error) {
	data, err := s.blobs.Load(ctx, activeKey(userID))
	if errors.Is(err, errBlobNotFound) {
		return "", nutriplan.ErrNoActivePlan
	}
	if err != nil {
		return "", fmt.Errorf("failed to read active plan pointer: %w", err)
	}
	return string(data), nil
}

func (s *documentStore) load(ctx context.Context, id string) (nutriplan.StoredPlan, error) {
	data, err := s.blobs.Load(ctx, planKey(id))
	if errors.Is(err, errBlobNotFound) {
		return nutriplan.StoredPlan{}, nutriplan.ErrPlanNotFound
	}
	if err != nil {
		return nutriplan.StoredPlan{}, fmt.Errorf("failed to read plan %s: %w", id, err)
	}

	var sp nutriplan.StoredPlan
	if err := json.Unmarshal(data, &sp); err != nil {
		return nutriplan.StoredPlan{}, fmt.Errorf("failed to decode plan %s: %w", id, err)
	}
	return sp, nil
}

func (s *documentStore) save(ctx context.Context, sp nutriplan.StoredPlan) error {
	data, err := json.MarshalIndent(sp, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode plan %s: %w", sp.ID, err)
	}
	if err := s.blobs.Save(ctx, planKey(sp.ID), data); err != nil {
		return fmt.Errorf("failed to write plan %s: %w", sp.ID, err)
	}
	return nil
}
