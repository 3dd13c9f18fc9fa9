package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"nutriplan"
)

// PostgresStore is a PlanStore backed by PostgreSQL.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore connects to the database and makes sure the schema exists.
func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	store := &PostgresStore{pool: pool}
	if err := store.initSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return store, nil
}

func (s *PostgresStore) Close() {
	s.pool.Close()
}

func (s *PostgresStore) initSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS nutrition_plans (
			id UUID PRIMARY KEY,
			user_id TEXT NOT NULL,
			status TEXT NOT NULL,
			plan_json JSONB NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);
		CREATE UNIQUE INDEX IF NOT EXISTS idx_nutrition_plans_one_active
			ON nutrition_plans(user_id) WHERE status = 'active';
	`)
	if err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) LoadActivePlan(ctx context.Context, userID string) (nutriplan.StoredPlan, error) {
	var (
		sp       nutriplan.StoredPlan
		planJSON []byte
	)
	err := s.pool.QueryRow(ctx, `
		SELECT id::text, user_id, status, plan_json, created_at, updated_at
		FROM nutrition_plans
		WHERE user_id = $1 AND status = $2
		ORDER BY created_at DESC
		LIMIT 1`,
		userID, nutriplan.PlanStatusActive,
	).Scan(&sp.ID, &sp.UserID, &sp.Status, &planJSON, &sp.CreatedAt, &sp.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nutriplan.StoredPlan{}, nutriplan.ErrNoActivePlan
	}
	if err != nil {
		return nutriplan.StoredPlan{}, fmt.Errorf("query active plan: %w", err)
	}

	if err := json.Unmarshal(planJSON, &sp.Plan); err != nil {
		return nutriplan.StoredPlan{}, fmt.Errorf("decode plan %s: %w", sp.ID, err)
	}
	return sp, nil
}

func (s *PostgresStore) ArchiveActivePlan(ctx context.Context, userID string) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE nutrition_plans SET status = $1, updated_at = now() WHERE user_id = $2 AND status = $3`,
		nutriplan.PlanStatusArchived, userID, nutriplan.PlanStatusActive)
	if err != nil {
		return fmt.Errorf("archive active plan: %w", err)
	}
	return nil
}

func (s *PostgresStore) SaveNewActivePlan(ctx context.Context, userID string, plan nutriplan.Plan) (string, error) {
	planJSON, err := json.Marshal(plan)
	if err != nil {
		return "", fmt.Errorf("encode plan: %w", err)
	}

	id := newID()
	_, err = s.pool.Exec(ctx,
		`INSERT INTO nutrition_plans (id, user_id, status, plan_json) VALUES ($1, $2, $3, $4)`,
		id, userID, nutriplan.PlanStatusActive, planJSON)
	if err != nil {
		return "", fmt.Errorf("insert plan: %w", err)
	}
	return id, nil
}

func (s *PostgresStore) UpdateActivePlan(ctx context.Context, planID string, plan nutriplan.Plan) error {
	planJSON, err := json.Marshal(plan)
	if err != nil {
		return fmt.Errorf("encode plan: %w", err)
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE nutrition_plans SET plan_json = $1, updated_at = now() WHERE id::text = $2 AND status = $3`,
		planJSON, planID, nutriplan.PlanStatusActive)
	if err != nil {
		return fmt.Errorf("update plan: %w", err)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	var status string
	err = s.pool.QueryRow(ctx, `SELECT status FROM nutrition_plans WHERE id::text = $1`, planID).Scan(&status)
	if errors.Is(err, pgx.ErrNoRows) {
		return nutriplan.ErrPlanNotFound
	}
	if err != nil {
		return fmt.Errorf("look up plan: %w", err)
	}
	return nutriplan.ErrNoActivePlan
}
