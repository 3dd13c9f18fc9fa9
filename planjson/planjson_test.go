package planjson

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nutriplan"
)

const validPlan = `{
  "version": "1.0",
  "targets": {"calories_kcal": 2758.6, "protein_g": 144, "carbs_g": 402, "fat_g": 64},
  "meals_per_day": 3,
  "meal_distribution": [{"meal": "Pequeno-almoço", "kcal": 700}, {"meal": "Almoço", "kcal": 1000.4}, {"meal": "Jantar", "kcal": 1058}],
  "meals": [
    {
      "name": "Pequeno-almoço",
      "items": [{"food": "Ovos", "quantity_g": 120.5, "notes": "mexidos"}, {"food": "Aveia", "quantity_g": 60}],
      "estimated_macros": {"kcal": 700, "protein_g": 36.2, "carbs_g": 60, "fat_g": 20}
    },
    {
      "name": "Almoço",
      "items": [{"food": "Peito de Frango", "quantity_g": 200}],
      "estimated_macros": {"kcal": 1000, "protein_g": 62, "carbs_g": 100, "fat_g": 25}
    }
  ],
  "rules": ["beber água"]
}`

func TestDecode(t *testing.T) {
	plan, err := Decode(validPlan)
	require.NoError(t, err)

	assert.Equal(t, "1.0", plan.Version)
	assert.Equal(t, DefaultLocale, plan.Locale)
	assert.Equal(t, nutriplan.Targets{CaloriesKcal: 2759, ProteinG: 144, CarbsG: 402, FatG: 64}, plan.Targets)
	assert.Equal(t, 3, plan.MealsPerDay)
	assert.Equal(t, []nutriplan.MealShare{{Meal: "Pequeno-almoço", Kcal: 700}, {Meal: "Almoço", Kcal: 1000}, {Meal: "Jantar", Kcal: 1058}}, plan.MealDistribution)

	require.Len(t, plan.Meals, 2)
	assert.Equal(t, []nutriplan.Item{
		{Food: "Ovos", QuantityG: 121, Notes: "mexidos"},
		{Food: "Aveia", QuantityG: 60},
	}, plan.Meals[0].Items)
	assert.Equal(t, nutriplan.Macros{Kcal: 700, ProteinG: 36, CarbsG: 60, FatG: 20}, plan.Meals[0].EstimatedMacros)

	assert.NotNil(t, plan.SwapOptions)
	assert.Empty(t, plan.SwapOptions)
	assert.Equal(t, []string{"beber água"}, plan.Rules)
	assert.NotNil(t, plan.Warnings)
	assert.Empty(t, plan.Warnings)
}

func TestDecodeKeepsLocaleAndSwapOptions(t *testing.T) {
	raw := `{"version":"1.0","locale":"en-GB","targets":{"calories_kcal":2000,"protein_g":120,"carbs_g":200,"fat_g":60},
	"meals_per_day":3,"meal_distribution":[],"meals":[],
	"swap_options":[{"swap":"Frango","options":[{"from":"Frango","to":"Peru","ratio":"1:1"}]}]}`

	plan, err := Decode(raw)
	require.NoError(t, err)

	assert.Equal(t, "en-GB", plan.Locale)
	assert.Equal(t, []nutriplan.SwapGroup{
		{Swap: "Frango", Options: []nutriplan.SwapOption{{From: "Frango", To: "Peru", Ratio: "1:1"}}},
	}, plan.SwapOptions)
}

func TestDecodeExtractsEmbeddedObject(t *testing.T) {
	raw := "Claro! Aqui está o plano:\n```json\n" + validPlan + "\n```\nBom apetite."

	plan, err := Decode(raw)
	require.NoError(t, err)
	assert.Len(t, plan.Meals, 2)
}

func TestDecodeParseErrors(t *testing.T) {
	tests := map[string]string{
		"no braces":           "I cannot produce a plan today.",
		"broken object":       "here { not json at all }",
		"closing before open": "} nope {",
		"empty":               "",
	}

	for name, raw := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Decode(raw)

			require.Error(t, err)
			assert.True(t, errors.Is(err, nutriplan.ErrGenerationParse))
			var parseErr *nutriplan.GenerationParseError
			require.True(t, errors.As(err, &parseErr))
			assert.Equal(t, raw, parseErr.Raw)
		})
	}
}

func TestDecodeSchemaErrors(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want []string
	}{
		{
			name: "missing top-level fields",
			raw:  `{"meals_per_day": 3, "meal_distribution": [], "meals": []}`,
			want: []string{"version is required", "targets is required"},
		},
		{
			name: "meals per day out of range",
			raw: `{"version":"1","targets":{"calories_kcal":1,"protein_g":1,"carbs_g":1,"fat_g":1},
			"meals_per_day":7,"meal_distribution":[],"meals":[]}`,
			want: []string{"meals_per_day must be at most 6"},
		},
		{
			name: "nested item fields",
			raw: `{"version":"1","targets":{"calories_kcal":1,"protein_g":1,"carbs_g":1,"fat_g":1},
			"meals_per_day":3,"meal_distribution":[],
			"meals":[{"name":"Almoço","items":[{"quantity_g":-5}]}]}`,
			want: []string{
				"meals[0].items[0].food is required",
				"meals[0].items[0].quantity_g must be at least 0",
				"meals[0].estimated_macros is required",
			},
		},
		{
			name: "missing target macro",
			raw: `{"version":"1","targets":{"calories_kcal":1,"protein_g":1,"carbs_g":1},
			"meals_per_day":3,"meal_distribution":[],"meals":[]}`,
			want: []string{"targets.fat_g is required"},
		},
		{
			name: "quantity beyond integer range",
			raw: `{"version":"1","targets":{"calories_kcal":1,"protein_g":1,"carbs_g":1,"fat_g":1},
			"meals_per_day":3,"meal_distribution":[{"meal":"Almoço","kcal":1e19}],
			"meals":[{"name":"Almoço","items":[{"food":"Azeite","quantity_g":1e19}],
			"estimated_macros":{"kcal":1e19,"protein_g":40,"carbs_g":60,"fat_g":20}}]}`,
			want: []string{
				"meal_distribution[0].kcal must be at most 20000",
				"meals[0].items[0].quantity_g must be at most 5000",
				"meals[0].estimated_macros.kcal must be at most 20000",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(tt.raw)

			require.Error(t, err)
			assert.True(t, errors.Is(err, nutriplan.ErrSchema))
			var schemaErr *nutriplan.SchemaError
			require.True(t, errors.As(err, &schemaErr))
			for _, want := range tt.want {
				assert.Contains(t, schemaErr.Problems, want)
			}
		})
	}
}

func TestDecodeWrongTypes(t *testing.T) {
	t.Run("string quantity", func(t *testing.T) {
		raw := `{"version":"1","targets":{"calories_kcal":1,"protein_g":1,"carbs_g":1,"fat_g":1},
		"meals_per_day":3,"meal_distribution":[],
		"meals":[{"name":"Almoço","items":[{"food":"Arroz","quantity_g":"muito"}],"estimated_macros":{"kcal":1,"protein_g":1,"carbs_g":1,"fat_g":1}}]}`

		_, err := Decode(raw)

		var schemaErr *nutriplan.SchemaError
		require.True(t, errors.As(err, &schemaErr))
		require.Len(t, schemaErr.Problems, 1)
		assert.Contains(t, schemaErr.Problems[0], "quantity_g")
	})

	t.Run("top-level array", func(t *testing.T) {
		_, err := Decode(`[1, 2, 3]`)

		var schemaErr *nutriplan.SchemaError
		require.True(t, errors.As(err, &schemaErr))
		assert.Equal(t, []string{"plan must be a JSON object, got array"}, schemaErr.Problems)
	})
}

func TestEncodeWritesEmptyLists(t *testing.T) {
	data, err := Encode(nutriplan.Plan{Version: "1.0", Meals: []nutriplan.Meal{{Name: "Almoço"}}})
	require.NoError(t, err)

	s := string(data)
	assert.Contains(t, s, `"locale":"pt-PT"`)
	assert.Contains(t, s, `"meal_distribution":[]`)
	assert.Contains(t, s, `"items":[]`)
	assert.Contains(t, s, `"swap_options":[]`)
	assert.Contains(t, s, `"rules":[]`)
	assert.Contains(t, s, `"warnings":[]`)
}

func TestEncodeOutputDecodes(t *testing.T) {
	plan, err := Decode(validPlan)
	require.NoError(t, err)

	data, err := Encode(plan)
	require.NoError(t, err)

	again, err := Decode(string(data))
	require.NoError(t, err)
	assert.Equal(t, plan, again)
}
