// Package planner drives plan generation and exposes the user-facing plan operations.
package planner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"nutriplan"
	"nutriplan/autofix"
	"nutriplan/guardrails"
	"nutriplan/planjson"
	"nutriplan/prompt"
	"nutriplan/targets"
)

const (
	defaultMaxAttempts           = 3
	defaultFirstTemperature      = 0.4
	defaultCorrectionTemperature = 0.2
)

// Options tune the attempt loop. Zero values fall back to the defaults.
type Options struct {
	MaxAttempts           int
	FirstTemperature      float64
	CorrectionTemperature float64
	AttemptTimeout        time.Duration
	Locale                string
}

// OptionsFromConfig maps the environment configuration onto Options.
func OptionsFromConfig(cfg nutriplan.PlannerConfig) Options {
	return Options{
		MaxAttempts:           cfg.MaxAttempts,
		FirstTemperature:      cfg.FirstTemperature,
		CorrectionTemperature: cfg.CorrectionTemperature,
		AttemptTimeout:        cfg.AttemptTimeout,
		Locale:                cfg.Locale,
	}
}

func (o Options) withDefaults() Options {
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = defaultMaxAttempts
	}
	if o.FirstTemperature <= 0 {
		o.FirstTemperature = defaultFirstTemperature
	}
	if o.CorrectionTemperature <= 0 {
		o.CorrectionTemperature = defaultCorrectionTemperature
	}
	if o.Locale == "" {
		o.Locale = planjson.DefaultLocale
	}
	return o
}

// Outcome is what a generation run produced.
type Outcome struct {
	Plan       nutriplan.Plan             `json:"plan"`
	Targets    targets.Result             `json:"targets"`
	Validation nutriplan.ValidationResult `json:"validation"`
	Attempts   int                        `json:"attempts"`
	AutoFix    *autofix.Result            `json:"autofix,omitempty"`
	State      State                      `json:"-"`
}

// Orchestrator runs the generate, validate, regenerate, auto-fix cycle for one profile.
type Orchestrator struct {
	gen     nutriplan.Generator
	opts    Options
	logger  nutriplan.AttemptLogger
	tracer  trace.Tracer
	metrics orchestratorMetrics
}

type orchestratorMetrics struct {
	runs          metric.Int64Counter
	runsCompleted metric.Int64Counter
	runsFailed    metric.Int64Counter
	attempts      metric.Int64Counter
	autofixes     metric.Int64Counter
	runDuration   metric.Float64Histogram
	generateTime  metric.Float64Histogram
}

// NewOrchestrator wires a generator into the state machine. A nil logger, tracer or meter
// falls back to a no-op logger and the global OpenTelemetry providers.
func NewOrchestrator(gen nutriplan.Generator, opts Options, log nutriplan.AttemptLogger, tracer trace.Tracer, meter metric.Meter) *Orchestrator {
	if log == nil {
		log = nutriplan.NewNoOpAttemptLogger()
	}
	if tracer == nil {
		tracer = otel.Tracer(nutriplan.TracerNamePlanner)
	}
	if meter == nil {
		meter = otel.Meter(nutriplan.TracerNamePlanner)
	}

	var m orchestratorMetrics
	m.runs, _ = meter.Int64Counter("planner_runs_total",
		metric.WithDescription("Total number of plan generation runs started"))
	m.runsCompleted, _ = meter.Int64Counter("planner_runs_completed_total",
		metric.WithDescription("Total number of generation runs that produced a valid plan"))
	m.runsFailed, _ = meter.Int64Counter("planner_runs_failed_total",
		metric.WithDescription("Total number of generation runs that failed"))
	m.attempts, _ = meter.Int64Counter("planner_attempts_total",
		metric.WithDescription("Total number of generator calls"))
	m.autofixes, _ = meter.Int64Counter("planner_autofix_total",
		metric.WithDescription("Total number of auto-fix passes"))
	m.runDuration, _ = meter.Float64Histogram("planner_run_duration_seconds",
		metric.WithDescription("Duration of a generation run in seconds"))
	m.generateTime, _ = meter.Float64Histogram("generator_response_time_seconds",
		metric.WithDescription("Time taken by the generator to respond in seconds"))

	return &Orchestrator{
		gen:     gen,
		opts:    opts.withDefaults(),
		logger:  log,
		tracer:  tracer,
		metrics: m,
	}
}

// machine is the explicit loop state: the attempt counter and the last problems seen.
type machine struct {
	state     State
	attempt   int
	max       int
	problems  []string
	candidate *nutriplan.Plan
	result    nutriplan.ValidationResult
	lastErr   error
}

// next returns the instructions and temperature for the upcoming attempt.
func (m *machine) next(base nutriplan.Instructions, opts Options) (nutriplan.Instructions, float64) {
	if m.attempt <= 1 {
		return base, opts.FirstTemperature
	}
	return prompt.Correction(base, m.problems), opts.CorrectionTemperature
}

func (m *machine) exhausted() bool { return m.attempt >= m.max }

// Run generates a plan for the profile. It returns a *nutriplan.TransportError when the generator
// fails, a *nutriplan.ValidationFailure when no candidate passes the guardrails even after auto-fix,
// and the last parse or schema error when no attempt produced a usable plan. The returned plan is
// never persisted here.
func (o *Orchestrator) Run(ctx context.Context, profile nutriplan.Profile) (Outcome, error) {
	ctx, span := o.tracer.Start(ctx, "Orchestrator.Run")
	defer span.End()

	start := time.Now()
	o.metrics.runs.Add(ctx, 1)

	out, err := o.run(ctx, span, profile)

	o.metrics.runDuration.Record(ctx, time.Since(start).Seconds())
	if err != nil {
		o.metrics.runsFailed.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", failureReason(err))))
		span.SetStatus(codes.Error, "plan generation failed")
		span.RecordError(err)
		return out, err
	}

	o.metrics.runsCompleted.Add(ctx, 1)
	return out, nil
}

func (o *Orchestrator) run(ctx context.Context, span trace.Span, profile nutriplan.Profile) (Outcome, error) {
	if err := profile.Validate(); err != nil {
		return Outcome{State: StateFailed}, err
	}

	tr := targets.Calculate(profile)
	span.SetAttributes(
		attribute.Int("targets.calories_kcal", tr.Targets.CaloriesKcal),
		attribute.Int("profile.meals_per_day", profile.MealsPerDay),
	)

	slog.Info("PLANNER: Starting run",
		"calories_kcal", tr.Targets.CaloriesKcal,
		"protein_g", tr.Targets.ProteinG,
		"carbs_g", tr.Targets.CarbsG,
		"fat_g", tr.Targets.FatG,
		"meals_per_day", profile.MealsPerDay,
	)

	base, err := prompt.Build(profile, tr.Targets, o.opts.Locale)
	if err != nil {
		return Outcome{Targets: tr, State: StateFailed}, fmt.Errorf("failed to build instructions: %w", err)
	}

	m := &machine{state: StateDrafting, max: o.opts.MaxAttempts}

	for m.attempt = 1; m.attempt <= m.max; m.attempt++ {
		if err := ctx.Err(); err != nil {
			return Outcome{Targets: tr, Attempts: m.attempt - 1, State: StateFailed}, &nutriplan.TransportError{Attempt: m.attempt, Err: err}
		}

		if done, err := o.attempt(ctx, m, base, tr.Targets, profile.MealsPerDay); err != nil {
			return Outcome{Targets: tr, Attempts: m.attempt, State: StateFailed}, err
		} else if done {
			break
		}
	}
	attempts := min(m.attempt, m.max)

	if m.candidate == nil {
		slog.Warn("PLANNER: No attempt produced a usable plan", "attempts", attempts, "error", m.lastErr)
		o.log(nutriplan.AttemptLog{Attempt: attempts, State: StateFailed.String(), Error: errString(m.lastErr)})
		return Outcome{Targets: tr, Attempts: attempts, State: StateFailed}, m.lastErr
	}

	out := Outcome{Targets: tr, Attempts: attempts}

	if m.state != StateAccepted {
		m.state = StateAutoFixing
		o.metrics.autofixes.Add(ctx, 1)

		fixed := autofix.Apply(*m.candidate)
		out.AutoFix = &fixed
		m.candidate = &fixed.Plan
		m.result = validate(fixed.Plan, tr.Targets, profile.MealsPerDay)

		slog.Info("PLANNER: Auto-fix applied",
			"changed", fixed.Changed,
			"kcal_before", fixed.Before,
			"kcal_after", fixed.After,
			"ok", m.result.OK,
			"problems", len(m.result.Problems),
		)
		span.AddEvent("Auto-fix applied", trace.WithAttributes(
			attribute.Bool("changed", fixed.Changed),
			attribute.Int("kcal_before", fixed.Before),
			attribute.Int("kcal_after", fixed.After),
		))
		o.log(nutriplan.AttemptLog{Attempt: attempts, State: StateAutoFixing.String(), Problems: m.result.Problems})

		if !m.result.OK {
			out.Validation = m.result
			out.State = StateFailed
			return out, &nutriplan.ValidationFailure{Result: m.result}
		}
	}

	plan := m.candidate.Clone()
	plan.Targets = tr.Targets
	plan.MealsPerDay = profile.MealsPerDay
	if plan.Locale == "" {
		plan.Locale = o.opts.Locale
	}

	out.Plan = plan
	out.Validation = m.result
	out.State = StateFinalized

	slog.Info("PLANNER: Plan finalized", "attempts", attempts, "meals", len(plan.Meals), "total_kcal", plan.TotalKcal())
	o.log(nutriplan.AttemptLog{Attempt: attempts, State: StateFinalized.String()})

	return out, nil
}

// attempt performs one generator call and moves the machine. It reports done when a candidate
// was accepted. A non-nil error aborts the run.
func (o *Orchestrator) attempt(ctx context.Context, m *machine, base nutriplan.Instructions, tgt nutriplan.Targets, mealsPerDay int) (bool, error) {
	ctx, span := o.tracer.Start(ctx, fmt.Sprintf("Orchestrator.Attempt.%d", m.attempt))
	defer span.End()

	m.state = StateDrafting
	in, temperature := m.next(base, o.opts)
	entry := nutriplan.AttemptLog{
		Attempt:     m.attempt,
		Timestamp:   time.Now(),
		Temperature: temperature,
		Input:       &in,
	}

	slog.Info("PLANNER: Sending instructions to generator",
		"attempt", m.attempt,
		"temperature", temperature,
		"correction", m.attempt > 1,
		"user_size_bytes", len(in.User),
	)

	genStart := time.Now()
	raw, err := o.generate(ctx, in, temperature)
	o.metrics.generateTime.Record(ctx, time.Since(genStart).Seconds())

	if err != nil {
		o.metrics.attempts.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", "transport_error")))
		m.state = StateFailed
		entry.State = m.state.String()
		entry.Error = err.Error()
		o.log(entry)
		span.SetStatus(codes.Error, "generator call failed")
		span.RecordError(err)
		slog.Error("PLANNER: Generator call failed", "attempt", m.attempt, "error", err)
		return false, &nutriplan.TransportError{Attempt: m.attempt, Err: err}
	}
	entry.Output = raw

	plan, err := planjson.Decode(raw)
	if err != nil {
		o.metrics.attempts.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", "decode_error")))
		m.lastErr = err
		m.problems = decodeProblems(err)
		m.state = StateRegenerating
		if m.exhausted() {
			m.state = StateFailed
		}
		entry.State = m.state.String()
		entry.Problems = m.problems
		entry.Error = err.Error()
		o.log(entry)
		span.RecordError(err)
		slog.Warn("PLANNER: Could not decode generator output", "attempt", m.attempt, "error", err)
		return false, nil
	}

	// Generator-echoed targets are never trusted, not even for auto-fix.
	plan.Targets = tgt

	m.state = StateValidating
	m.candidate = &plan
	m.result = validate(plan, tgt, mealsPerDay)

	if m.result.OK {
		o.metrics.attempts.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", "accepted")))
		m.state = StateAccepted
		entry.State = m.state.String()
		o.log(entry)
		span.AddEvent("Candidate accepted")
		slog.Info("PLANNER: Candidate accepted", "attempt", m.attempt, "total_kcal", m.result.Meta.TotalKcal)
		return true, nil
	}

	o.metrics.attempts.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", "rejected")))
	m.problems = m.result.Problems
	m.state = StateRegenerating
	if m.exhausted() {
		m.state = StateAutoFixing
	}
	entry.State = m.state.String()
	entry.Problems = m.result.Problems
	o.log(entry)
	span.AddEvent("Candidate rejected", trace.WithAttributes(attribute.Int("problems", len(m.result.Problems))))
	slog.Info("PLANNER: Candidate rejected",
		"attempt", m.attempt,
		"problems", len(m.result.Problems),
		"total_kcal", m.result.Meta.TotalKcal,
	)
	return false, nil
}

func (o *Orchestrator) generate(ctx context.Context, in nutriplan.Instructions, temperature float64) (string, error) {
	if o.opts.AttemptTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.opts.AttemptTimeout)
		defer cancel()
	}
	return o.gen.Generate(ctx, in, temperature)
}

// validate runs the guardrails and also requires the requested number of meals.
func validate(plan nutriplan.Plan, tgt nutriplan.Targets, mealsPerDay int) nutriplan.ValidationResult {
	res := guardrails.Validate(plan, tgt)
	if mealsPerDay > 0 && len(plan.Meals) != mealsPerDay {
		res.Problems = append(res.Problems, fmt.Sprintf("wrong number of meals: %d (requested %d)", len(plan.Meals), mealsPerDay))
		res.OK = false
	}
	return res
}

func decodeProblems(err error) []string {
	var schemaErr *nutriplan.SchemaError
	if errors.As(err, &schemaErr) {
		out := make([]string, 0, len(schemaErr.Problems)+1)
		out = append(out, "the JSON did not match the required format")
		return append(out, schemaErr.Problems...)
	}
	return []string{"the response was not valid JSON; return only the JSON object"}
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, nutriplan.ErrTransport):
		return "transport"
	case errors.Is(err, nutriplan.ErrValidationFailure):
		return "validation"
	case errors.Is(err, nutriplan.ErrGenerationParse):
		return "parse"
	case errors.Is(err, nutriplan.ErrSchema):
		return "schema"
	case errors.Is(err, nutriplan.ErrInvalidProfile):
		return "profile"
	default:
		return "other"
	}
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

// log records an attempt, handling errors gracefully.
func (o *Orchestrator) log(entry nutriplan.AttemptLog) {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}
	if err := o.logger.LogAttempt(entry); err != nil {
		slog.Error("PLANNER: Failed to log attempt", "error", err, "attempt", entry.Attempt)
	}
}
