// Package targets derives daily calorie and macro targets from a biometric profile.
package targets

import (
	"math"

	"nutriplan"
)

// activityMultipliers maps an activity level to its TDEE multiplier.
var activityMultipliers = map[nutriplan.ActivityLevel]float64{
	nutriplan.ActivitySedentary: 1.2,
	nutriplan.ActivityLight:     1.375,
	nutriplan.ActivityModerate:  1.55,
	nutriplan.ActivityHigh:      1.725,
	nutriplan.ActivityAthlete:   1.9,
}

var goalDeltas = map[nutriplan.Goal]float64{
	nutriplan.GoalLose:     -350,
	nutriplan.GoalMaintain: 0,
	nutriplan.GoalGain:     300,
}

const (
	proteinPerKg     = 1.8
	proteinPerKgGain = 2.0
	fatPerKg         = 0.8
)

// Result carries the targets plus the intermediate energy figures for diagnostics.
type Result struct {
	Targets nutriplan.Targets `json:"targets"`
	BMR     float64           `json:"bmr"`
	TDEE    float64           `json:"tdee"`
}

// Multiplier returns the TDEE multiplier for an activity level. Unknown levels are treated as sedentary.
func Multiplier(level nutriplan.ActivityLevel) float64 {
	if m, ok := activityMultipliers[level]; ok {
		return m
	}
	return activityMultipliers[nutriplan.ActivitySedentary]
}

// BMR uses the Mifflin-St Jeor equation.
func BMR(p nutriplan.Profile) float64 {
	bmr := 10*p.WeightKG + 6.25*p.HeightCM - 5*float64(p.Age)
	if p.Sex == nutriplan.SexMale {
		return bmr + 5
	}
	return bmr - 161
}

// Calculate is pure: identical profiles always yield identical targets.
func Calculate(p nutriplan.Profile) Result {
	bmr := BMR(p)
	tdee := bmr * Multiplier(p.Activity)

	calories := nonNegative(math.Round(tdee + goalDeltas[p.Goal]))

	rate := proteinPerKg
	if p.Goal == nutriplan.GoalGain {
		rate = proteinPerKgGain
	}
	protein := nonNegative(math.Round(p.WeightKG * rate))
	fat := nonNegative(math.Round(p.WeightKG * fatPerKg))

	remaining := math.Max(0, float64(calories-protein*4-fat*9))
	carbs := nonNegative(math.Round(remaining / 4))

	return Result{
		Targets: nutriplan.Targets{
			CaloriesKcal: calories,
			ProteinG:     protein,
			CarbsG:       carbs,
			FatG:         fat,
		},
		BMR:  bmr,
		TDEE: tdee,
	}
}

func nonNegative(v float64) int {
	if v < 0 {
		return 0
	}
	return int(v)
}
