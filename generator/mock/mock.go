// Package mock is a deterministic Generator for demos and offline runs.
package mock

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"regexp"
	"strconv"

	"nutriplan"
	"nutriplan/autofix"
)

var (
	kcalPattern    = regexp.MustCompile(`(?m)^- calories_kcal: (\d+)$`)
	proteinPattern = regexp.MustCompile(`(?m)^- protein_g: (\d+)$`)
	carbsPattern   = regexp.MustCompile(`(?m)^- carbs_g: (\d+)$`)
	fatPattern     = regexp.MustCompile(`(?m)^- fat_g: (\d+)$`)
	mealsPattern   = regexp.MustCompile(`(?m)^- meals per day: (\d+)$`)
)

type template struct {
	name   string
	weight int
	main   bool
	items  []nutriplan.Item
}

var (
	breakfast = template{name: "Pequeno-almoço", weight: 25, main: true, items: []nutriplan.Item{
		{Food: "Ovos", QuantityG: 150},
		{Food: "Aveia", QuantityG: 80},
		{Food: "Banana", QuantityG: 120},
		{Food: "Espinafres", QuantityG: 100},
	}}
	lunch = template{name: "Almoço", weight: 35, main: true, items: []nutriplan.Item{
		{Food: "Peito de Frango", QuantityG: 200},
		{Food: "Arroz", QuantityG: 300, Notes: "cozido"},
		{Food: "Brócolos", QuantityG: 200},
		{Food: "Azeite", QuantityG: 10},
	}}
	snack = template{name: "Lanche", weight: 10, items: []nutriplan.Item{
		{Food: "Iogurte Natural", QuantityG: 250},
		{Food: "Nozes", QuantityG: 30},
	}}
	dinner = template{name: "Jantar", weight: 30, main: true, items: []nutriplan.Item{
		{Food: "Salmão", QuantityG: 180},
		{Food: "Batata", QuantityG: 300},
		{Food: "Salada", QuantityG: 150},
		{Food: "Azeite", QuantityG: 10},
	}}
)

// Generator ignores temperature and corrections: the same instructions always yield the same plan.
type Generator struct{}

func NewGenerator() *Generator {
	return &Generator{}
}

// Generate reads the targets and meal count out of the user instructions and returns a plan
// whose meal estimates add up to the calorie target exactly.
func (g *Generator) Generate(ctx context.Context, in nutriplan.Instructions, temperature float64) (string, error) {
	slog.Info("GENERATOR: Invoked", "provider", "mock", "temperature", temperature)

	tgt, meals, err := readInstructions(in.User)
	if err != nil {
		return "", err
	}

	plan := buildPlan(tgt, meals)
	b, err := json.Marshal(plan)
	if err != nil {
		return "", fmt.Errorf("mock: failed to marshal plan: %w", err)
	}

	slog.Info("GENERATOR: Returning mock plan", "provider", "mock", "meals", len(plan.Meals), "total_kcal", plan.TotalKcal())
	return string(b), nil
}

func readInstructions(user string) (nutriplan.Targets, int, error) {
	var values [5]int
	for i, re := range []*regexp.Regexp{kcalPattern, proteinPattern, carbsPattern, fatPattern, mealsPattern} {
		m := re.FindStringSubmatch(user)
		if m == nil {
			return nutriplan.Targets{}, 0, fmt.Errorf("mock: %q not found in instructions", re.String())
		}
		values[i], _ = strconv.Atoi(m[1])
	}
	tgt := nutriplan.Targets{CaloriesKcal: values[0], ProteinG: values[1], CarbsG: values[2], FatG: values[3]}
	return tgt, values[4], nil
}

// layout picks the meal templates for a meal count: three main meals plus snacks.
func layout(meals int) []template {
	out := []template{breakfast, lunch}
	for i := 0; i < meals-3; i++ {
		s := snack
		if i > 0 {
			s.name = fmt.Sprintf("Lanche %d", i+1)
		}
		out = append(out, s)
	}
	return append(out, dinner)
}

func buildPlan(tgt nutriplan.Targets, meals int) nutriplan.Plan {
	templates := layout(max(meals, 3))

	weights := make([]nutriplan.MealShare, len(templates))
	totalWeight := 0
	for i, t := range templates {
		weights[i] = nutriplan.MealShare{Meal: t.name, Kcal: t.weight}
		totalWeight += t.weight
	}
	dist := autofix.Rescale(weights, tgt.CaloriesKcal)

	plan := nutriplan.Plan{
		Version:          "1.0",
		Locale:           "pt-PT",
		Targets:          tgt,
		MealsPerDay:      len(templates),
		MealDistribution: dist,
		SwapOptions:      []nutriplan.SwapGroup{},
		Rules:            []string{"Pesar os alimentos depois de cozinhados."},
		Warnings:         []string{},
	}

	for i, t := range templates {
		share := float64(t.weight) / float64(totalWeight)
		protein := int(math.Round(float64(tgt.ProteinG) * share))
		if t.main {
			protein = max(protein, 35)
		}
		plan.Meals = append(plan.Meals, nutriplan.Meal{
			Name:  t.name,
			Items: append([]nutriplan.Item(nil), t.items...),
			EstimatedMacros: nutriplan.Macros{
				Kcal:     dist[i].Kcal,
				ProteinG: protein,
				CarbsG:   int(math.Round(float64(tgt.CarbsG) * share)),
				FatG:     int(math.Round(float64(tgt.FatG) * share)),
			},
		})
	}
	return plan
}
