package mock

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nutriplan"
	"nutriplan/guardrails"
	"nutriplan/planjson"
	"nutriplan/prompt"
)

func TestGenerateProducesValidPlans(t *testing.T) {
	tgt := nutriplan.Targets{CaloriesKcal: 2759, ProteinG: 144, CarbsG: 402, FatG: 64}

	for _, meals := range []int{3, 4, 5, 6} {
		profile := nutriplan.Profile{
			Sex: nutriplan.SexMale, Age: 30, HeightCM: 180, WeightKG: 80,
			Activity: nutriplan.ActivityModerate, Goal: nutriplan.GoalMaintain, MealsPerDay: meals,
		}
		in, err := prompt.Build(profile, tgt, "pt-PT")
		require.NoError(t, err)

		raw, err := NewGenerator().Generate(context.Background(), in, 0.4)
		require.NoError(t, err)

		plan, err := planjson.Decode(raw)
		require.NoError(t, err)

		assert.Len(t, plan.Meals, meals)
		assert.Equal(t, tgt.CaloriesKcal, plan.TotalKcal())

		res := guardrails.Validate(plan, tgt)
		assert.True(t, res.OK, "meals=%d problems=%v", meals, res.Problems)
	}
}

func TestGenerateIsDeterministic(t *testing.T) {
	in := nutriplan.Instructions{User: "- calories_kcal: 2000\n- protein_g: 120\n- carbs_g: 250\n- fat_g: 60\n- meals per day: 4"}

	a, err := NewGenerator().Generate(context.Background(), in, 0.4)
	require.NoError(t, err)
	b, err := NewGenerator().Generate(context.Background(), in, 0.2)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestGenerateNeedsTargets(t *testing.T) {
	_, err := NewGenerator().Generate(context.Background(), nutriplan.Instructions{User: "hello"}, 0.4)
	assert.Error(t, err)
}

func TestLayout(t *testing.T) {
	names := func(ts []template) []string {
		var out []string
		for _, t := range ts {
			out = append(out, t.name)
		}
		return out
	}
	assert.Equal(t, []string{"Pequeno-almoço", "Almoço", "Jantar"}, names(layout(3)))
	assert.Equal(t, []string{"Pequeno-almoço", "Almoço", "Lanche", "Lanche 2", "Jantar"}, names(layout(5)))
}
