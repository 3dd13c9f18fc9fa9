package shopping

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nutriplan"
	"nutriplan/foods"
)

func shoppingPlan() nutriplan.Plan {
	return nutriplan.Plan{
		Meals: []nutriplan.Meal{
			{Name: "Pequeno-almoço", Items: []nutriplan.Item{
				{Food: "Ovos", QuantityG: 120},
				{Food: "Aveia", QuantityG: 60},
				{Food: "Leite", QuantityG: 250},
				{Food: "Banana", QuantityG: 120},
			}},
			{Name: "Almoço", Items: []nutriplan.Item{
				{Food: "Peito de Frango", QuantityG: 600},
				{Food: "Arroz", QuantityG: 700},
				{Food: "Brócolos", QuantityG: 200},
				{Food: "Azeite", QuantityG: 10},
			}},
			{Name: "Jantar", Items: []nutriplan.Item{
				{Food: "peito de frango", QuantityG: 500},
				{Food: "Arroz", QuantityG: 300},
				{Food: "brocolos", QuantityG: 150},
				{Food: "Azeite", QuantityG: 10},
				{Food: "Quinoa", QuantityG: 0},
				{Food: "  ", QuantityG: 100},
			}},
			{Name: "Lanche", Items: []nutriplan.Item{
				{Food: "Maçã", QuantityG: 150},
				{Food: "Tofu", QuantityG: 90},
			}},
		},
	}
}

func TestBuild(t *testing.T) {
	list := Build(shoppingPlan())

	assert.Equal(t, []Item{
		{Name: "Leite", Grams: 250, Category: CategoryProteins},
		{Name: "Ovos", Grams: 120, Category: CategoryProteins},
		{Name: "Peito de Frango", Grams: 1100, Category: CategoryProteins},
		{Name: "Arroz", Grams: 1000, Category: CategoryCarbs},
		{Name: "Aveia", Grams: 60, Category: CategoryCarbs},
		{Name: "Azeite", Grams: 20, Category: CategoryFats},
		{Name: "Brócolos", Grams: 350, Category: CategoryVegetables},
		{Name: "Banana", Grams: 120, Category: CategoryFruit},
		{Name: "Maçã", Grams: 150, Category: CategoryFruit},
		{Name: "Tofu", Grams: 90, Category: CategoryOther},
	}, list.Items)

	assert.Equal(t, []Line{
		{Name: "Leite", Grams: 250, Qty: 250, Unit: UnitMillilitre},
		{Name: "Ovos", Grams: 120, Qty: 2, Unit: UnitCount},
		{Name: "Peito de Frango", Grams: 1100, Qty: 1.1, Unit: UnitKilograms},
	}, list.Grouped[CategoryProteins])
	assert.Equal(t, []Line{
		{Name: "Arroz", Grams: 1000, Qty: 1, Unit: UnitKilograms},
		{Name: "Aveia", Grams: 60, Qty: 60, Unit: UnitGrams},
	}, list.Grouped[CategoryCarbs])
	assert.Equal(t, []Line{{Name: "Azeite", Grams: 20, Qty: 22, Unit: UnitMillilitre}}, list.Grouped[CategoryFats])

	want := "Proteins\n- Leite: 250ml\n- Ovos: 2unit\n- Peito de Frango: 1.1kg\n\n" +
		"Carbs\n- Arroz: 1kg\n- Aveia: 60g\n\n" +
		"Fats\n- Azeite: 22ml\n\n" +
		"Vegetables\n- Brócolos: 350g\n\n" +
		"Fruit\n- Banana: 1unit\n- Maçã: 1unit\n\n" +
		"Other\n- Tofu: 90g"
	assert.Equal(t, want, list.Text)
}

func TestBuildPreservesGramsPerFood(t *testing.T) {
	plan := shoppingPlan()
	list := Build(plan)

	want := map[string]int{}
	for _, meal := range plan.Meals {
		for _, it := range meal.Items {
			if it.QuantityG > 0 && foods.Normalize(it.Food) != "" {
				want[foods.Normalize(it.Food)] += it.QuantityG
			}
		}
	}

	got := map[string]int{}
	for _, it := range list.Items {
		got[foods.Normalize(it.Name)] += it.Grams
	}
	assert.Equal(t, want, got)

	grouped := map[string]int{}
	for _, lines := range list.Grouped {
		for _, l := range lines {
			grouped[foods.Normalize(l.Name)] += l.Grams
		}
	}
	assert.Equal(t, want, grouped)
}

func TestBuildEmptyPlan(t *testing.T) {
	list := Build(nutriplan.Plan{})

	require.NotNil(t, list.Items)
	assert.Empty(t, list.Items)
	assert.Empty(t, list.Grouped)
	assert.Equal(t, "", list.Text)
}

func TestCategorize(t *testing.T) {
	tests := map[string]Category{
		"Banana":               CategoryFruit,
		"Maçã":                 CategoryFruit,
		"Salada de atum":       CategoryVegetables,
		"Espinafres":           CategoryVegetables,
		"Manteiga de amendoim": CategoryFats,
		"Pão Integral":         CategoryCarbs,
		"Wrap":                 CategoryCarbs,
		"Iogurte Natural":      CategoryProteins,
		"Iogurte com banana":   CategoryFruit,
		"Whey":                 CategoryProteins,
		"Quinoa":               CategoryOther,
	}

	for food, want := range tests {
		t.Run(food, func(t *testing.T) {
			assert.Equal(t, want, Categorize(food))
		})
	}
}

func TestFormatQty(t *testing.T) {
	tests := []struct {
		food     string
		grams    int
		wantQty  float64
		wantUnit Unit
	}{
		{"Arroz", 999, 999, UnitGrams},
		{"Arroz", 1000, 1, UnitKilograms},
		{"Batata", 1260, 1.3, UnitKilograms},
		{"Carne de Vaca", 2040, 2, UnitKilograms},
		{"Aveia", 1200, 1200, UnitGrams},
		{"Azeite", 10, 11, UnitMillilitre},
		{"Leite", 500, 500, UnitMillilitre},
		{"Ovos", 20, 1, UnitCount},
		{"Ovos", 180, 3, UnitCount},
		{"Banana", 360, 3, UnitCount},
		{"Maçã", 200, 1, UnitCount},
		{"Maçã", 450, 3, UnitCount},
		{"Tofu", 90, 90, UnitGrams},
	}

	for _, tt := range tests {
		qty, unit := FormatQty(tt.food, tt.grams)
		assert.Equal(t, tt.wantQty, qty, "%s %dg", tt.food, tt.grams)
		assert.Equal(t, tt.wantUnit, unit, "%s %dg", tt.food, tt.grams)
	}
}
