package swap

import (
	"math"
	"strings"

	"nutriplan/foods"
)

// Mode is the quantity a substitution tries to preserve.
type Mode string

const (
	ModeProtein Mode = "protein"
	ModeCarb    Mode = "carb"
	ModeFat     Mode = "fat"
	ModeKcal    Mode = "kcal"
)

// drift caps how far a single swap may move the quantity, as factors of the old quantity.
// Protein is the tightest band because main-meal protein is guardrail-critical.
var drift = map[Mode][2]float64{
	ModeProtein: {0.7, 1.4},
	ModeCarb:    {0.6, 1.7},
	ModeFat:     {0.5, 1.5},
	ModeKcal:    {0.6, 1.6},
}

// ModeFor derives the balance mode from the category of the food being replaced.
func ModeFor(cat foods.Category) Mode {
	switch cat {
	case foods.CategoryProtein:
		return ModeProtein
	case foods.CategoryFat:
		return ModeFat
	default:
		return ModeKcal
	}
}

// Rebalance returns the quantity of newFood that preserves the mode's macro of oldQtyG of oldFood,
// within the drift band and the new food's realistic bounds. Unknown foods fail closed and keep the
// old quantity.
func Rebalance(oldFood string, oldQtyG int, newFood string, mode Mode) int {
	oldMeta, okOld := foods.Lookup(oldFood)
	newMeta, okNew := foods.Lookup(newFood)
	if !okOld || !okNew {
		return max(0, oldQtyG)
	}
	return rebalance(oldMeta, newMeta, float64(oldQtyG), mode)
}

func rebalance(oldMeta, newMeta foods.FoodMeta, oldQty float64, mode Mode) int {
	old := oldMeta.Of(oldQty)
	per := newMeta.Per100g

	raw := oldQty
	switch mode {
	case ModeProtein:
		if per.ProteinG > 0.1 {
			raw = old.ProteinG / per.ProteinG * 100
		}
	case ModeCarb:
		if per.CarbsG > 0.1 {
			raw = old.CarbsG / per.CarbsG * 100
		}
	case ModeFat:
		if per.FatG > 0.1 {
			raw = old.FatG / per.FatG * 100
		}
	default:
		mode = ModeKcal
		if per.Kcal > 1 {
			raw = old.Kcal / per.Kcal * 100
		}
	}

	band := drift[mode]
	raw = clamp(raw, oldQty*band[0], oldQty*band[1])
	raw = clamp(raw, float64(newMeta.MinG), float64(newMeta.MaxG))

	step := float64(stepFor(newMeta.Name))
	rounded := math.Round(raw/step) * step

	return int(clamp(rounded, float64(newMeta.MinG), float64(newMeta.MaxG)))
}

// stepFor is the rounding granularity people actually weigh a food in.
func stepFor(name string) int {
	n := foods.Normalize(name)
	switch {
	case strings.Contains(n, "azeite"):
		return 5
	case containsAny(n, []string{"noz", "amendo", "manteiga"}):
		return 5
	case containsAny(n, []string{"arroz", "massa", "batata"}):
		return 25
	case containsAny(n, []string{"pao", "aveia"}):
		return 10
	default:
		return 10
	}
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
