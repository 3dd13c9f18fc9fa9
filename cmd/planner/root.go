package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"

	"github.com/spf13/cobra"

	"nutriplan"
	"nutriplan/bootstrap"
	"nutriplan/planner"
)

var (
	cfg nutriplan.Config

	userID  string
	dump    bool
	logDir  string
	rootCmd = &cobra.Command{
		Use:   "planner",
		Short: "Generate and manage validated daily meal plans",
		Long: `planner asks a text generator for a one-day meal plan built around your
calorie and macro targets, checks it against hard nutrition rules, and keeps
the accepted plan as your active plan.

  planner generate --sex male --age 30 --height 180 --weight 80 --activity moderate --goal maintain
  planner active
  planner swap --meal 1 --item 0 --food Atum
  planner shopping-list --export`,
		SilenceUsage: true,
	}
)

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&userID, "user", "local", "user the plan belongs to")
	rootCmd.PersistentFlags().BoolVar(&dump, "dump", false, "also dump the result with go-spew to stderr")
	rootCmd.PersistentFlags().StringVar(&logDir, "log-dir", "", "write the generation attempt log to this directory")

	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(activeCmd)
	rootCmd.AddCommand(swapCmd)
	rootCmd.AddCommand(shoppingCmd)
}

func initConfig() {
	var err error
	cfg, err = nutriplan.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
}

// app holds the wired service and everything that has to be released afterwards.
type app struct {
	svc     *planner.Service
	closers []func(context.Context) error
}

func newApp(ctx context.Context) (*app, error) {
	a := &app{}

	gen, err := bootstrap.NewGenerator(ctx, cfg.Model)
	if err != nil {
		return nil, err
	}

	store, closeStore, err := bootstrap.NewStore(ctx, cfg.Store)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, func(context.Context) error { return closeStore() })

	tracerProvider, meterProvider, otelShutdown, err := nutriplan.InitOtel(ctx)
	if err != nil {
		return nil, errors.Join(fmt.Errorf("failed to initialize OpenTelemetry: %w", err), a.Close(ctx))
	}
	a.closers = append(a.closers, otelShutdown)

	logger, err := a.attemptLogger()
	if err != nil {
		return nil, errors.Join(err, a.Close(ctx))
	}

	orch := planner.NewOrchestrator(
		gen,
		planner.OptionsFromConfig(cfg.Planner),
		logger,
		tracerProvider.Tracer(nutriplan.TracerNamePlanner),
		meterProvider.Meter(nutriplan.TracerNamePlanner),
	)
	slackClient := bootstrap.NewSlackClient(cfg.Slack, &http.Client{Timeout: cfg.Model.Timeout})

	a.svc = planner.NewService(orch, store, slackClient)
	return a, nil
}

func (a *app) attemptLogger() (nutriplan.AttemptLogger, error) {
	if logDir == "" {
		return nutriplan.NewNoOpAttemptLogger(), nil
	}
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	path := nutriplan.NewAttemptLogFilePath(logDir, cfg.Model.ModelID)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}

	logger := nutriplan.NewFileAttemptLogger(f)
	a.closers = append(a.closers, func(context.Context) error {
		return errors.Join(logger.Flush(), f.Close())
	})
	slog.Info("SETUP: Attempt log enabled", "path", path)
	return logger, nil
}

// Close releases resources in reverse order of acquisition.
func (a *app) Close(ctx context.Context) error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i](ctx))
	}
	a.closers = nil
	return errors.Join(errs...)
}

// withApp wires the service for one command and always releases it.
func withApp(cmd *cobra.Command, fn func(ctx context.Context, svc *planner.Service) error) (err error) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := a.Close(ctx); cerr != nil {
			slog.Error("SETUP: Failed to release resources", "error", cerr)
			err = errors.Join(err, cerr)
		}
	}()

	return fn(ctx, a.svc)
}

func printResult(out, errOut io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return err
	}
	if dump {
		nutriplan.Dump(errOut, v)
	}
	return nil
}
