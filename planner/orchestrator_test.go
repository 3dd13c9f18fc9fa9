package planner

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"nutriplan"
)

var wantTargets = nutriplan.Targets{CaloriesKcal: 2759, ProteinG: 144, CarbsG: 402, FatG: 64}

func testProfile() nutriplan.Profile {
	return nutriplan.Profile{
		Sex:         nutriplan.SexMale,
		Age:         30,
		HeightCM:    180,
		WeightKG:    80,
		Activity:    nutriplan.ActivityModerate,
		Goal:        nutriplan.GoalMaintain,
		MealsPerDay: 4,
	}
}

// compliantPlan passes every guardrail for wantTargets. Its echoed targets are deliberately wrong.
func compliantPlan() nutriplan.Plan {
	return nutriplan.Plan{
		Version:     "1.0",
		Locale:      "pt-PT",
		Targets:     nutriplan.Targets{CaloriesKcal: 1, ProteinG: 1, CarbsG: 1, FatG: 1},
		MealsPerDay: 4,
		MealDistribution: []nutriplan.MealShare{
			{Meal: "Pequeno-almoço", Kcal: 700},
			{Meal: "Almoço", Kcal: 900},
			{Meal: "Lanche", Kcal: 350},
			{Meal: "Jantar", Kcal: 809},
		},
		Meals: []nutriplan.Meal{
			{
				Name: "Pequeno-almoço",
				Items: []nutriplan.Item{
					{Food: "Ovos", QuantityG: 150},
					{Food: "Aveia", QuantityG: 80},
					{Food: "Banana", QuantityG: 120},
					{Food: "Espinafres", QuantityG: 100},
				},
				EstimatedMacros: nutriplan.Macros{Kcal: 700, ProteinG: 40, CarbsG: 80, FatG: 20},
			},
			{
				Name: "Almoço",
				Items: []nutriplan.Item{
					{Food: "Peito de Frango", QuantityG: 200},
					{Food: "Arroz", QuantityG: 300, Notes: "cozido"},
					{Food: "Brócolos", QuantityG: 200},
					{Food: "Azeite", QuantityG: 10},
				},
				EstimatedMacros: nutriplan.Macros{Kcal: 900, ProteinG: 70, CarbsG: 95, FatG: 20},
			},
			{
				Name: "Lanche",
				Items: []nutriplan.Item{
					{Food: "Iogurte Natural", QuantityG: 250},
					{Food: "Nozes", QuantityG: 30},
				},
				EstimatedMacros: nutriplan.Macros{Kcal: 350, ProteinG: 20, CarbsG: 17, FatG: 27},
			},
			{
				Name: "Jantar",
				Items: []nutriplan.Item{
					{Food: "Salmão", QuantityG: 180},
					{Food: "Batata", QuantityG: 300},
					{Food: "Salada", QuantityG: 150},
					{Food: "Azeite", QuantityG: 10},
				},
				EstimatedMacros: nutriplan.Macros{Kcal: 800, ProteinG: 45, CarbsG: 65, FatG: 35},
			},
		},
		SwapOptions: []nutriplan.SwapGroup{},
		Rules:       []string{},
		Warnings:    []string{},
	}
}

// lowPlan only breaks the calorie range; auto-fix brings it to 2519 kcal.
func lowPlan() nutriplan.Plan {
	p := compliantPlan()
	p.MealDistribution = []nutriplan.MealShare{
		{Meal: "Pequeno-almoço", Kcal: 400},
		{Meal: "Almoço", Kcal: 500},
		{Meal: "Lanche", Kcal: 250},
		{Meal: "Jantar", Kcal: 350},
	}
	p.Meals[0].Items[1].QuantityG = 40
	p.Meals[0].EstimatedMacros.Kcal = 400
	p.Meals[1].Items[1].QuantityG = 150
	p.Meals[1].Items[3].QuantityG = 5
	p.Meals[1].EstimatedMacros.Kcal = 500
	p.Meals[2].EstimatedMacros.Kcal = 250
	p.Meals[3].Items = p.Meals[3].Items[:3]
	p.Meals[3].Items[1].QuantityG = 150
	p.Meals[3].EstimatedMacros.Kcal = 350
	return p
}

func encode(t *testing.T, p nutriplan.Plan) string {
	t.Helper()
	data, err := json.Marshal(p)
	require.NoError(t, err)
	return string(data)
}

type scripted struct {
	raw string
	err error
}

type generatorCall struct {
	in          nutriplan.Instructions
	temperature float64
}

// scriptedGenerator replays canned responses in order.
type scriptedGenerator struct {
	responses []scripted
	calls     []generatorCall
}

func (g *scriptedGenerator) Generate(ctx context.Context, in nutriplan.Instructions, temperature float64) (string, error) {
	g.calls = append(g.calls, generatorCall{in: in, temperature: temperature})
	if len(g.calls) > len(g.responses) {
		return "", errors.New("unexpected generator call")
	}
	r := g.responses[len(g.calls)-1]
	return r.raw, r.err
}

type recordingLogger struct {
	entries []nutriplan.AttemptLog
}

func (l *recordingLogger) LogAttempt(a nutriplan.AttemptLog) error {
	l.entries = append(l.entries, a)
	return nil
}

func (l *recordingLogger) states() []string {
	out := make([]string, 0, len(l.entries))
	for _, e := range l.entries {
		out = append(out, e.State)
	}
	return out
}

func newTestOrchestrator(gen nutriplan.Generator, log nutriplan.AttemptLogger) *Orchestrator {
	return NewOrchestrator(gen, Options{}, log, nil, nil)
}

func TestRunAcceptsFirstCompliantPlan(t *testing.T) {
	gen := &scriptedGenerator{responses: []scripted{{raw: encode(t, compliantPlan())}}}
	log := &recordingLogger{}

	out, err := newTestOrchestrator(gen, log).Run(context.Background(), testProfile())
	require.NoError(t, err)

	assert.Equal(t, StateFinalized, out.State)
	assert.Equal(t, 1, out.Attempts)
	assert.Nil(t, out.AutoFix)
	assert.True(t, out.Validation.OK)
	assert.Equal(t, wantTargets, out.Plan.Targets, "generator-echoed targets are replaced")
	assert.Equal(t, wantTargets, out.Targets.Targets)
	assert.Equal(t, 4, out.Plan.MealsPerDay)

	require.Len(t, gen.calls, 1)
	assert.Equal(t, 0.4, gen.calls[0].temperature)
	assert.Contains(t, gen.calls[0].in.User, "- calories_kcal: 2759")

	assert.Equal(t, []string{"accepted", "finalized"}, log.states())
	require.NotNil(t, log.entries[0].Input)
	assert.NotEmpty(t, log.entries[0].Output)
}

func TestRunRegeneratesWithCorrections(t *testing.T) {
	bad := compliantPlan()
	bad.Meals[2].Items = append(bad.Meals[2].Items, nutriplan.Item{Food: "Sabão", QuantityG: 10})

	gen := &scriptedGenerator{responses: []scripted{
		{raw: encode(t, bad)},
		{raw: encode(t, compliantPlan())},
	}}
	log := &recordingLogger{}

	out, err := newTestOrchestrator(gen, log).Run(context.Background(), testProfile())
	require.NoError(t, err)

	assert.Equal(t, 2, out.Attempts)
	require.Len(t, gen.calls, 2)
	assert.Equal(t, 0.4, gen.calls[0].temperature)
	assert.Equal(t, 0.2, gen.calls[1].temperature, "corrections run cooler")
	assert.Equal(t, gen.calls[0].in.System, gen.calls[1].in.System)
	assert.Contains(t, gen.calls[1].in.User, gen.calls[0].in.User)
	assert.Contains(t, gen.calls[1].in.User, "The previous plan was rejected.")
	assert.Contains(t, gen.calls[1].in.User, `forbidden item: "Sabão"`)

	assert.Equal(t, []string{"regenerating", "accepted", "finalized"}, log.states())
	assert.Contains(t, log.entries[0].Problems, `forbidden item: "Sabão"`)
}

func TestRunTreatsUnparseableOutputAsAttempt(t *testing.T) {
	gen := &scriptedGenerator{responses: []scripted{
		{raw: "Desculpa, não consigo."},
		{raw: "Aqui está:\n" + encode(t, compliantPlan()) + "\nBom apetite!"},
	}}

	out, err := newTestOrchestrator(gen, nil).Run(context.Background(), testProfile())
	require.NoError(t, err)

	assert.Equal(t, 2, out.Attempts)
	assert.Contains(t, gen.calls[1].in.User, "not valid JSON")
}

func TestRunSchemaErrorsFeedCorrections(t *testing.T) {
	gen := &scriptedGenerator{responses: []scripted{
		{raw: `{"version":"1.0","meals":[]}`},
		{raw: encode(t, compliantPlan())},
	}}

	_, err := newTestOrchestrator(gen, nil).Run(context.Background(), testProfile())
	require.NoError(t, err)

	assert.Contains(t, gen.calls[1].in.User, "targets is required")
}

func TestRunFailsWhenNothingParses(t *testing.T) {
	gen := &scriptedGenerator{responses: []scripted{{raw: "no"}, {raw: "still no"}, {raw: "{ nope }"}}}
	log := &recordingLogger{}

	out, err := newTestOrchestrator(gen, log).Run(context.Background(), testProfile())

	require.Error(t, err)
	assert.True(t, errors.Is(err, nutriplan.ErrGenerationParse))
	assert.Equal(t, StateFailed, out.State)
	assert.Equal(t, 3, out.Attempts)
	assert.Len(t, gen.calls, 3)
	assert.Equal(t, []string{"regenerating", "regenerating", "failed", "failed"}, log.states())
}

func TestRunAbortsOnTransportError(t *testing.T) {
	gen := &scriptedGenerator{responses: []scripted{{err: errors.New("connection refused")}}}

	out, err := newTestOrchestrator(gen, nil).Run(context.Background(), testProfile())

	require.Error(t, err)
	assert.True(t, errors.Is(err, nutriplan.ErrTransport))
	var transportErr *nutriplan.TransportError
	require.True(t, errors.As(err, &transportErr))
	assert.Equal(t, 1, transportErr.Attempt)
	assert.Contains(t, err.Error(), "connection refused")
	assert.Len(t, gen.calls, 1, "transport errors are not retried")
	assert.Equal(t, StateFailed, out.State)
}

func TestRunTransportErrorAfterRejection(t *testing.T) {
	bad := lowPlan()
	gen := &scriptedGenerator{responses: []scripted{
		{raw: encode(t, bad)},
		{err: context.DeadlineExceeded},
	}}

	_, err := newTestOrchestrator(gen, nil).Run(context.Background(), testProfile())

	var transportErr *nutriplan.TransportError
	require.True(t, errors.As(err, &transportErr))
	assert.Equal(t, 2, transportErr.Attempt)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestRunAutoFixesAfterExhaustingAttempts(t *testing.T) {
	low := encode(t, lowPlan())
	gen := &scriptedGenerator{responses: []scripted{{raw: low}, {raw: low}, {raw: low}}}
	log := &recordingLogger{}

	out, err := newTestOrchestrator(gen, log).Run(context.Background(), testProfile())
	require.NoError(t, err)

	assert.Len(t, gen.calls, 3)
	assert.Equal(t, 3, out.Attempts)
	require.NotNil(t, out.AutoFix)
	assert.True(t, out.AutoFix.Changed)
	assert.Equal(t, 1500, out.AutoFix.Before)
	assert.Equal(t, 2519, out.AutoFix.After)
	assert.Equal(t, 2519, out.Plan.TotalKcal())
	assert.True(t, out.Validation.OK)

	sum := 0
	for _, s := range out.Plan.MealDistribution {
		sum += s.Kcal
	}
	assert.Equal(t, 2759, sum)

	assert.Equal(t, []string{"regenerating", "regenerating", "autofixing", "autofixing", "finalized"}, log.states())
}

func TestRunFailsValidationAfterAutoFix(t *testing.T) {
	bad := lowPlan()
	bad.Meals[2].Items = append(bad.Meals[2].Items, nutriplan.Item{Food: "Detergente", QuantityG: 10})
	raw := encode(t, bad)
	gen := &scriptedGenerator{responses: []scripted{{raw: raw}, {raw: raw}, {raw: raw}}}

	out, err := newTestOrchestrator(gen, nil).Run(context.Background(), testProfile())

	require.Error(t, err)
	assert.True(t, errors.Is(err, nutriplan.ErrValidationFailure))
	var vf *nutriplan.ValidationFailure
	require.True(t, errors.As(err, &vf))
	assert.False(t, vf.Result.OK)
	assert.Contains(t, vf.Result.Problems, `forbidden item: "Detergente"`)
	assert.Equal(t, 2483, vf.Result.Meta.ExpectedRange[0])

	assert.Equal(t, StateFailed, out.State)
	assert.NotNil(t, out.AutoFix)
	assert.Equal(t, vf.Result, out.Validation)
}

func TestRunRequiresRequestedMealCount(t *testing.T) {
	profile := testProfile()
	profile.MealsPerDay = 5
	raw := encode(t, compliantPlan())
	gen := &scriptedGenerator{responses: []scripted{{raw: raw}, {raw: raw}, {raw: raw}}}

	_, err := newTestOrchestrator(gen, nil).Run(context.Background(), profile)

	var vf *nutriplan.ValidationFailure
	require.True(t, errors.As(err, &vf))
	assert.Contains(t, vf.Result.Problems, "wrong number of meals: 4 (requested 5)")
	assert.Contains(t, gen.calls[1].in.User, "wrong number of meals")
}

func TestRunRejectsInvalidProfile(t *testing.T) {
	gen := &scriptedGenerator{}
	profile := testProfile()
	profile.Age = 12

	_, err := newTestOrchestrator(gen, nil).Run(context.Background(), profile)

	require.Error(t, err)
	assert.True(t, errors.Is(err, nutriplan.ErrInvalidProfile))
	assert.Empty(t, gen.calls)
}

func TestRunStopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	gen := &scriptedGenerator{}

	_, err := newTestOrchestrator(gen, nil).Run(ctx, testProfile())

	assert.True(t, errors.Is(err, nutriplan.ErrTransport))
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Empty(t, gen.calls)
}

func TestRunHonoursOptions(t *testing.T) {
	raw := encode(t, lowPlan())
	gen := &scriptedGenerator{responses: []scripted{{raw: raw}, {raw: raw}}}

	orch := NewOrchestrator(gen, Options{MaxAttempts: 2, FirstTemperature: 0.7, CorrectionTemperature: 0.1}, nil, nil, nil)
	out, err := orch.Run(context.Background(), testProfile())
	require.NoError(t, err)

	assert.Len(t, gen.calls, 2)
	assert.Equal(t, 0.7, gen.calls[0].temperature)
	assert.Equal(t, 0.1, gen.calls[1].temperature)
	assert.NotNil(t, out.AutoFix)
}

func TestMachineNext(t *testing.T) {
	opts := Options{}.withDefaults()
	base := nutriplan.Instructions{System: "sys", User: "user"}
	m := &machine{max: opts.MaxAttempts, attempt: 1}

	in, temp := m.next(base, opts)
	assert.Equal(t, base, in)
	assert.Equal(t, 0.4, temp)
	assert.False(t, m.exhausted())

	m.attempt = 3
	m.problems = []string{"missing fruit (at least 1 per day)"}
	in, temp = m.next(base, opts)
	assert.Equal(t, 0.2, temp)
	assert.Contains(t, in.User, "- missing fruit (at least 1 per day)")
	assert.True(t, m.exhausted())
}

func TestState(t *testing.T) {
	assert.Equal(t, "autofixing", StateAutoFixing.String())
	assert.Equal(t, "unknown", State(42).String())
	assert.True(t, StateFinalized.Terminal())
	assert.True(t, StateFailed.Terminal())
	assert.False(t, StateRegenerating.Terminal())
}

func TestRunInstrumentation(t *testing.T) {
	ctx := context.Background()

	spans := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(spans))
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	bad := compliantPlan()
	bad.Meals = bad.Meals[:3]
	gen := &scriptedGenerator{responses: []scripted{
		{raw: encode(t, bad)},
		{raw: encode(t, compliantPlan())},
	}}

	orch := NewOrchestrator(gen, Options{}, nil, tp.Tracer("test"), mp.Meter("test"))
	_, err := orch.Run(ctx, testProfile())
	require.NoError(t, err)

	var names []string
	for _, s := range spans.Ended() {
		names = append(names, s.Name())
	}
	assert.ElementsMatch(t, []string{"Orchestrator.Attempt.1", "Orchestrator.Attempt.2", "Orchestrator.Run"}, names)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))
	assert.Equal(t, int64(2), counterTotal(rm, "planner_attempts_total"))
	assert.Equal(t, int64(1), counterTotal(rm, "planner_runs_completed_total"))
	assert.Equal(t, int64(0), counterTotal(rm, "planner_runs_failed_total"))
}

func counterTotal(rm metricdata.ResourceMetrics, name string) int64 {
	var total int64
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			if sum, ok := m.Data.(metricdata.Sum[int64]); ok {
				for _, dp := range sum.DataPoints {
					total += dp.Value
				}
			}
		}
	}
	return total
}
