package planner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"nutriplan"
	"nutriplan/autofix"
	"nutriplan/shopping"
	"nutriplan/swap"
	"nutriplan/targets"
)

// Service exposes the plan operations a user can request against a PlanStore.
type Service struct {
	orch  *Orchestrator
	store nutriplan.PlanStore
	slack nutriplan.SlackClient
}

// NewService builds a Service. slack may be nil when exporting is not configured.
func NewService(orch *Orchestrator, store nutriplan.PlanStore, slack nutriplan.SlackClient) *Service {
	return &Service{orch: orch, store: store, slack: slack}
}

// GenerateResult is the response to a successful generation.
type GenerateResult struct {
	PlanID   string          `json:"plan_id"`
	Plan     nutriplan.Plan  `json:"plan"`
	Targets  targets.Result  `json:"targets"`
	Attempts int             `json:"attempts"`
	AutoFix  *autofix.Result `json:"fixed,omitempty"`
}

// SwapResult is the response to a successful swap.
type SwapResult struct {
	PlanID string      `json:"plan_id"`
	Swap   swap.Result `json:"swap"`
}

// ShoppingResult is the shopping list of the active plan.
type ShoppingResult struct {
	PlanID string `json:"plan_id"`
	shopping.List
}

var errMissingUser = errors.New("user id is required")

// Generate runs the orchestrator and, on success, archives the user's active plan and stores the new
// one as active. Nothing is stored when generation fails.
func (s *Service) Generate(ctx context.Context, userID string, profile nutriplan.Profile) (GenerateResult, error) {
	if strings.TrimSpace(userID) == "" {
		return GenerateResult{}, errMissingUser
	}

	out, err := s.orch.Run(ctx, profile)
	if err != nil {
		return GenerateResult{Targets: out.Targets, Attempts: out.Attempts, AutoFix: out.AutoFix}, err
	}

	if err := s.store.ArchiveActivePlan(ctx, userID); err != nil {
		return GenerateResult{}, fmt.Errorf("failed to archive active plan: %w", err)
	}

	id, err := s.store.SaveNewActivePlan(ctx, userID, out.Plan)
	if err != nil {
		return GenerateResult{}, fmt.Errorf("failed to save plan: %w", err)
	}

	slog.Info("PLANNER: Plan stored", "user_id", userID, "plan_id", id, "attempts", out.Attempts, "autofix", out.AutoFix != nil)

	return GenerateResult{
		PlanID:   id,
		Plan:     out.Plan,
		Targets:  out.Targets,
		Attempts: out.Attempts,
		AutoFix:  out.AutoFix,
	}, nil
}

// ActivePlan returns the user's active plan or nutriplan.ErrNoActivePlan.
func (s *Service) ActivePlan(ctx context.Context, userID string) (nutriplan.StoredPlan, error) {
	if strings.TrimSpace(userID) == "" {
		return nutriplan.StoredPlan{}, errMissingUser
	}
	return s.store.LoadActivePlan(ctx, userID)
}

// Swap replaces one item of the active plan. An invalid swap leaves the stored plan untouched.
func (s *Service) Swap(ctx context.Context, userID string, req swap.Request) (SwapResult, error) {
	active, err := s.ActivePlan(ctx, userID)
	if err != nil {
		return SwapResult{}, err
	}

	res, err := swap.Apply(active.Plan, req)
	if err != nil {
		slog.Info("PLANNER: Swap rejected", "user_id", userID, "plan_id", active.ID, "error", err)
		return SwapResult{}, err
	}

	if err := s.store.UpdateActivePlan(ctx, active.ID, res.Plan); err != nil {
		return SwapResult{}, fmt.Errorf("failed to update plan: %w", err)
	}

	slog.Info("PLANNER: Swap applied",
		"plan_id", active.ID,
		"from", res.OldFood,
		"to", res.NewFood,
		"old_quantity_g", res.OldQuantityG,
		"new_quantity_g", res.NewQuantityG,
		"mode", res.Mode,
	)

	return SwapResult{PlanID: active.ID, Swap: res}, nil
}

// ShoppingList aggregates the active plan into a shopping list.
func (s *Service) ShoppingList(ctx context.Context, userID string) (ShoppingResult, error) {
	active, err := s.ActivePlan(ctx, userID)
	if err != nil {
		return ShoppingResult{}, err
	}
	return ShoppingResult{PlanID: active.ID, List: shopping.Build(active.Plan)}, nil
}

// ExportShoppingList posts the active plan's shopping list to a Slack channel.
func (s *Service) ExportShoppingList(ctx context.Context, userID, channel string) (ShoppingResult, error) {
	if s.slack == nil {
		return ShoppingResult{}, errors.New("slack export is not configured")
	}

	list, err := s.ShoppingList(ctx, userID)
	if err != nil {
		return ShoppingResult{}, err
	}

	if err := s.slack.PostMessage(ctx, channel, list.Text); err != nil {
		return ShoppingResult{}, fmt.Errorf("failed to post shopping list: %w", err)
	}
	return list, nil
}
