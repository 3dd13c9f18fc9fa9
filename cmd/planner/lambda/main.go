package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/aws/aws-lambda-go/lambda"

	"nutriplan"
	"nutriplan/bootstrap"
	"nutriplan/planner"
	"nutriplan/swap"
)

// Request selects one plan operation for one user.
type Request struct {
	Action  string             `json:"action"`
	UserID  string             `json:"user_id"`
	Profile *nutriplan.Profile `json:"profile,omitempty"`
	Swap    *swap.Request      `json:"swap,omitempty"`
	Export  bool               `json:"export,omitempty"`
	Channel string             `json:"channel,omitempty"`
}

type Response struct {
	Output any `json:"output"`
}

type handler struct {
	svc *planner.Service
}

func (h handler) handle(ctx context.Context, req Request) (Response, error) {
	slog.Info("HANDLER: Request received", "action", req.Action, "user_id", req.UserID)

	switch req.Action {
	case "generate":
		if req.Profile == nil {
			return Response{}, fmt.Errorf("generate requires a profile")
		}
		res, err := h.svc.Generate(ctx, req.UserID, *req.Profile)
		if err != nil {
			return Response{}, err
		}
		return Response{Output: res}, nil

	case "active":
		sp, err := h.svc.ActivePlan(ctx, req.UserID)
		if err != nil {
			return Response{}, err
		}
		return Response{Output: sp}, nil

	case "swap":
		if req.Swap == nil {
			return Response{}, fmt.Errorf("swap requires a swap request")
		}
		res, err := h.svc.Swap(ctx, req.UserID, *req.Swap)
		if err != nil {
			return Response{}, err
		}
		return Response{Output: res}, nil

	case "shopping_list":
		var (
			list planner.ShoppingResult
			err  error
		)
		if req.Export {
			list, err = h.svc.ExportShoppingList(ctx, req.UserID, req.Channel)
		} else {
			list, err = h.svc.ShoppingList(ctx, req.UserID)
		}
		if err != nil {
			return Response{}, err
		}
		return Response{Output: list}, nil

	default:
		return Response{}, fmt.Errorf("unknown action %q", req.Action)
	}
}

func main() {
	fn := func(ctx context.Context, req Request) (Response, error) {
		cfg, err := nutriplan.LoadConfig()
		if err != nil {
			return Response{}, fmt.Errorf("failed to load config: %w", err)
		}

		gen, err := bootstrap.NewGenerator(ctx, cfg.Model)
		if err != nil {
			slog.Error("SETUP: Failed to create generator", "error", err)
			return Response{}, err
		}

		store, closeStore, err := bootstrap.NewStore(ctx, cfg.Store)
		if err != nil {
			slog.Error("SETUP: Failed to create plan store", "error", err)
			return Response{}, err
		}
		defer func() {
			if err := closeStore(); err != nil {
				slog.Error("SETUP: Failed to close plan store", "error", err)
			}
		}()

		tracerProvider, meterProvider, otelShutdown, err := nutriplan.InitOtel(ctx)
		if err != nil {
			slog.Error("SETUP: Failed to initialize OpenTelemetry", "error", err)
			return Response{}, err
		}
		defer func() {
			if err := otelShutdown(ctx); err != nil {
				slog.Error("SETUP: Failed to shutdown OpenTelemetry", "error", err)
			}
		}()

		orch := planner.NewOrchestrator(
			gen,
			planner.OptionsFromConfig(cfg.Planner),
			nutriplan.NewStdoutAttemptLogger(),
			tracerProvider.Tracer(nutriplan.TracerNamePlanner),
			meterProvider.Meter(nutriplan.TracerNamePlanner),
		)
		slackClient := bootstrap.NewSlackClient(cfg.Slack, &http.Client{Timeout: cfg.Model.Timeout})

		return handler{svc: planner.NewService(orch, store, slackClient)}.handle(ctx, req)
	}

	lambda.Start(fn)
}
