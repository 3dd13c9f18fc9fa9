package prompt

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nutriplan"
)

func testProfile() nutriplan.Profile {
	return nutriplan.Profile{
		Sex:         nutriplan.SexMale,
		Age:         30,
		HeightCM:    180,
		WeightKG:    80.5,
		Activity:    nutriplan.ActivityModerate,
		Goal:        nutriplan.GoalMaintain,
		MealsPerDay: 4,
		Dislikes:    []string{"salmão", "pepino"},
	}
}

func TestBuild(t *testing.T) {
	targets := nutriplan.Targets{CaloriesKcal: 2759, ProteinG: 144, CarbsG: 402, FatG: 64}

	in, err := Build(testProfile(), targets, "pt-PT")
	require.NoError(t, err)

	t.Run("targets verbatim", func(t *testing.T) {
		assert.Contains(t, in.User, "- calories_kcal: 2759\n")
		assert.Contains(t, in.User, "- protein_g: 144\n")
		assert.Contains(t, in.User, "- carbs_g: 402\n")
		assert.Contains(t, in.User, "- fat_g: 64\n")
	})

	t.Run("profile", func(t *testing.T) {
		assert.Contains(t, in.User, "- weight_kg: 80.5")
		assert.Contains(t, in.User, "- height_cm: 180")
		assert.Contains(t, in.User, "- meals per day: 4")
		assert.Contains(t, in.User, "- dislikes: salmão, pepino")
		assert.Contains(t, in.User, "- allergies/intolerances: none")
		assert.Contains(t, in.User, `"meals" must have exactly 4 entries and "meal_distribution" exactly 4 entries`)
	})

	t.Run("kcal range", func(t *testing.T) {
		assert.Contains(t, in.User, "between 2483 and 3035 kcal")
	})

	t.Run("whitelist and blacklist", func(t *testing.T) {
		assert.Contains(t, in.User, "- Fats: azeite, amêndoas, nozes, manteiga de amendoim, abacate")
		assert.Contains(t, in.User, "- bola de algodão")
		assert.Contains(t, in.User, "- bacalhau")
	})

	t.Run("system carries locale and schema", func(t *testing.T) {
		assert.Contains(t, in.System, "for the locale pt-PT")
		assert.Contains(t, in.System, `"quantity_g"`)
		assert.Contains(t, in.System, `"meals_per_day"`)
	})
}

func TestBuildIsDeterministic(t *testing.T) {
	targets := nutriplan.Targets{CaloriesKcal: 2000, ProteinG: 120, CarbsG: 230, FatG: 60}

	a, err := Build(testProfile(), targets, "pt-PT")
	require.NoError(t, err)
	b, err := Build(testProfile(), targets, "pt-PT")
	require.NoError(t, err)

	assert.Equal(t, a, b)
}

func TestCorrection(t *testing.T) {
	base := nutriplan.Instructions{System: "sys", User: "user"}

	t.Run("appends problems", func(t *testing.T) {
		got := Correction(base, []string{"missing fruit (at least 1 per day)", `forbidden item: "sabão"`})

		assert.Equal(t, "sys", got.System)
		assert.True(t, len(got.User) > len(base.User))
		assert.Contains(t, got.User, "user\n\nThe previous plan was rejected.")
		assert.Contains(t, got.User, "- missing fruit (at least 1 per day)\n- forbidden item: \"sabão\"")
	})

	t.Run("no problems keeps base", func(t *testing.T) {
		assert.Equal(t, base, Correction(base, nil))
	})
}

func TestPlanSchema(t *testing.T) {
	data, err := json.Marshal(PlanSchema())
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))

	assert.Equal(t, "object", decoded["type"])
	assert.ElementsMatch(t,
		[]any{"version", "targets", "meals_per_day", "meal_distribution", "meals"},
		decoded["required"])

	props, ok := decoded["properties"].(map[string]any)
	require.True(t, ok)
	for _, key := range []string{"version", "locale", "targets", "meals_per_day", "meal_distribution", "meals", "swap_options", "rules", "warnings"} {
		assert.Contains(t, props, key)
	}
}
