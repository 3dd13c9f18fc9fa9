package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"nutriplan"
)

// SQLiteStore is a PlanStore backed by a local SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// A single connection serializes writers.
	db.SetMaxOpenConns(1)

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) initSchema() error {
	schema := `
    CREATE TABLE IF NOT EXISTS nutrition_plans (
        id TEXT PRIMARY KEY,
        user_id TEXT NOT NULL,
        status TEXT NOT NULL,
        plan_json TEXT NOT NULL,
        created_at TEXT NOT NULL,
        updated_at TEXT NOT NULL
    );

    CREATE INDEX IF NOT EXISTS idx_nutrition_plans_user_status ON nutrition_plans(user_id, status);
    `

	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	return nil
}

func (s *SQLiteStore) LoadActivePlan(ctx context.Context, userID string) (nutriplan.StoredPlan, error) {
	query := `
        SELECT id, user_id, status, plan_json, created_at, updated_at
        FROM nutrition_plans
        WHERE user_id = ? AND status = ?
        ORDER BY created_at DESC
        LIMIT 1
    `

	var (
		sp                   nutriplan.StoredPlan
		planJSON             string
		createdAt, updatedAt string
	)
	err := s.db.QueryRowContext(ctx, query, userID, nutriplan.PlanStatusActive).
		Scan(&sp.ID, &sp.UserID, &sp.Status, &planJSON, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nutriplan.StoredPlan{}, nutriplan.ErrNoActivePlan
	}
	if err != nil {
		return nutriplan.StoredPlan{}, fmt.Errorf("failed to query active plan: %w", err)
	}

	if err := json.Unmarshal([]byte(planJSON), &sp.Plan); err != nil {
		return nutriplan.StoredPlan{}, fmt.Errorf("failed to decode plan %s: %w", sp.ID, err)
	}
	if sp.CreatedAt, err = time.Parse(timeLayout, createdAt); err != nil {
		return nutriplan.StoredPlan{}, fmt.Errorf("failed to parse created_at: %w", err)
	}
	if sp.UpdatedAt, err = time.Parse(timeLayout, updatedAt); err != nil {
		return nutriplan.StoredPlan{}, fmt.Errorf("failed to parse updated_at: %w", err)
	}

	return sp, nil
}

func (s *SQLiteStore) ArchiveActivePlan(ctx context.Context, userID string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE nutrition_plans SET status = ?, updated_at = ? WHERE user_id = ? AND status = ?`,
		nutriplan.PlanStatusArchived, now().Format(timeLayout), userID, nutriplan.PlanStatusActive)
	if err != nil {
		return fmt.Errorf("failed to archive active plan: %w", err)
	}
	return nil
}

func (s *SQLiteStore) SaveNewActivePlan(ctx context.Context, userID string, plan nutriplan.Plan) (string, error) {
	planJSON, err := json.Marshal(plan)
	if err != nil {
		return "", fmt.Errorf("failed to encode plan: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback()

	var active int
	if err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM nutrition_plans WHERE user_id = ? AND status = ?`,
		userID, nutriplan.PlanStatusActive).Scan(&active); err != nil {
		return "", fmt.Errorf("failed to count active plans: %w", err)
	}
	if active > 0 {
		return "", fmt.Errorf("user %s already has an active plan", userID)
	}

	id := newID()
	ts := now().Format(timeLayout)
	_, err = tx.ExecContext(ctx, `
        INSERT INTO nutrition_plans (id, user_id, status, plan_json, created_at, updated_at)
        VALUES (?, ?, ?, ?, ?, ?)
    `, id, userID, nutriplan.PlanStatusActive, string(planJSON), ts, ts)
	if err != nil {
		return "", fmt.Errorf("failed to insert plan: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("failed to commit plan: %w", err)
	}
	return id, nil
}

// UpdateActivePlan only touches a row that is still active, so a swap racing a regeneration
// cannot bring an archived plan back.
func (s *SQLiteStore) UpdateActivePlan(ctx context.Context, planID string, plan nutriplan.Plan) error {
	planJSON, err := json.Marshal(plan)
	if err != nil {
		return fmt.Errorf("failed to encode plan: %w", err)
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE nutrition_plans SET plan_json = ?, updated_at = ? WHERE id = ? AND status = ?`,
		string(planJSON), now().Format(timeLayout), planID, nutriplan.PlanStatusActive)
	if err != nil {
		return fmt.Errorf("failed to update plan: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update plan: %w", err)
	}
	if n > 0 {
		return nil
	}

	var status string
	err = s.db.QueryRowContext(ctx, `SELECT status FROM nutrition_plans WHERE id = ?`, planID).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return nutriplan.ErrPlanNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to look up plan: %w", err)
	}
	return nutriplan.ErrNoActivePlan
}
