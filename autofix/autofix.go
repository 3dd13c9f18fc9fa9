// Package autofix deterministically pushes an under-target plan toward its calorie range.
// It only raises quantities or appends missing items; it never removes or shrinks anything.
package autofix

import (
	"math"
	"sort"
	"strings"

	"nutriplan"
	"nutriplan/foods"
	"nutriplan/guardrails"
)

const (
	minOilG            = 10
	defaultVeggieG     = 200
	lunchStarchG       = 300
	dinnerStarchG      = 250
	breakfastOatsG     = 60
	defaultKcalPerGram = 0.3
)

// kcalPerGram is matched in order against the normalized food name; unmatched foods are
// assumed to be vegetables.
var kcalPerGram = []struct {
	keys []string
	rate float64
}{
	{[]string{"azeite"}, 9},
	{[]string{"noz", "amendoa"}, 6},
	{[]string{"manteiga de amendoim"}, 6},
	{[]string{"aveia"}, 3.8},
	{[]string{"pao"}, 2.5},
	{[]string{"arroz", "massa"}, 1.3},
	{[]string{"batata"}, 0.8},
	{[]string{"banana"}, 0.9},
	{[]string{"maca"}, 0.5},
	{[]string{"frango", "peru"}, 1.65},
	{[]string{"vaca", "porco"}, 2.0},
	{[]string{"atum"}, 1.3},
	{[]string{"salmao"}, 2.0},
	{[]string{"ovo"}, 1.55},
	{[]string{"iogurte"}, 0.7},
	{[]string{"queijo"}, 2.0},
}

// Result reports what Apply did. Before and After are total estimated kcal.
type Result struct {
	Plan    nutriplan.Plan `json:"plan"`
	Changed bool           `json:"changed"`
	Before  int            `json:"before"`
	After   int            `json:"after"`
}

// Apply returns a corrected copy of the plan. The input plan is never modified.
func Apply(plan nutriplan.Plan) Result {
	out := plan.Clone()
	before := out.TotalKcal()
	minOK, _ := guardrails.KcalRange(out.Targets.CaloriesKcal)

	if before >= minOK || len(out.Meals) == 0 {
		return Result{Plan: out, Changed: false, Before: before, After: before}
	}

	breakfast, lunch, dinner := mainMeals(out.Meals)

	ensureOil(&out.Meals[lunch], minOilG)
	ensureOil(&out.Meals[dinner], minOilG)
	ensureVeggies(&out.Meals[lunch], defaultVeggieG)
	ensureVeggies(&out.Meals[dinner], defaultVeggieG)
	raiseStarch(&out.Meals[lunch], lunchStarchG)
	raiseStarch(&out.Meals[dinner], dinnerStarchG)
	ensureOats(&out.Meals[breakfast], breakfastOatsG)

	after := 0
	for i := range out.Meals {
		out.Meals[i].EstimatedMacros.Kcal = MealKcal(out.Meals[i])
		after += out.Meals[i].EstimatedMacros.Kcal
	}

	out.MealDistribution = Rescale(out.MealDistribution, out.Targets.CaloriesKcal)

	return Result{Plan: out, Changed: true, Before: before, After: after}
}

// mainMeals locates breakfast, lunch and dinner by name, falling back to the first,
// second-to-last and last meal.
func mainMeals(meals []nutriplan.Meal) (breakfast, lunch, dinner int) {
	breakfast, lunch, dinner = -1, -1, -1
	for i, m := range meals {
		switch foods.ClassifyMeal(m.Name) {
		case foods.MealBreakfast:
			if breakfast < 0 {
				breakfast = i
			}
		case foods.MealLunch:
			if lunch < 0 {
				lunch = i
			}
		case foods.MealDinner:
			if dinner < 0 {
				dinner = i
			}
		}
	}

	last := len(meals) - 1
	if breakfast < 0 {
		breakfast = 0
	}
	if lunch < 0 {
		lunch = max(0, last-1)
	}
	if dinner < 0 {
		dinner = last
	}
	return breakfast, lunch, dinner
}

func ensureOil(meal *nutriplan.Meal, grams int) {
	if !raiseFirst(meal, foods.IsOil, grams) {
		meal.Items = append(meal.Items, nutriplan.Item{Food: "Azeite", QuantityG: grams})
	}
}

func ensureVeggies(meal *nutriplan.Meal, grams int) {
	for _, it := range meal.Items {
		if foods.IsVeggie(foods.Normalize(it.Food)) {
			return
		}
	}
	meal.Items = append(meal.Items, nutriplan.Item{Food: "Brócolos", QuantityG: grams})
}

func raiseStarch(meal *nutriplan.Meal, grams int) {
	if !raiseFirst(meal, foods.IsStarch, grams) {
		meal.Items = append(meal.Items, nutriplan.Item{Food: "Arroz", QuantityG: grams, Notes: "cozido"})
	}
}

func ensureOats(meal *nutriplan.Meal, grams int) {
	if !raiseFirst(meal, foods.IsOats, grams) {
		meal.Items = append(meal.Items, nutriplan.Item{Food: "Aveia", QuantityG: grams})
	}
}

// raiseFirst lifts the first matching item to at least grams and reports whether one was found.
func raiseFirst(meal *nutriplan.Meal, match func(string) bool, grams int) bool {
	for i := range meal.Items {
		if match(foods.Normalize(meal.Items[i].Food)) {
			meal.Items[i].QuantityG = max(meal.Items[i].QuantityG, grams)
			return true
		}
	}
	return false
}

// ItemKcal estimates the kcal of a quantity of food from the per-gram heuristic table.
func ItemKcal(food string, grams int) int {
	f := foods.Normalize(food)
	rate := defaultKcalPerGram
	for _, row := range kcalPerGram {
		if containsAny(f, row.keys) {
			rate = row.rate
			break
		}
	}
	return int(math.Round(float64(grams) * rate))
}

// MealKcal recomputes kcal only; the other estimated macros are left alone.
func MealKcal(meal nutriplan.Meal) int {
	total := 0
	for _, it := range meal.Items {
		total += ItemKcal(it.Food, it.QuantityG)
	}
	return total
}

// Rescale scales the distribution so its kcal entries sum to exactly target while keeping the
// relative weighting. Rounding remainders go to the entries with the largest fractional parts.
func Rescale(dist []nutriplan.MealShare, target int) []nutriplan.MealShare {
	out := append([]nutriplan.MealShare(nil), dist...)
	if len(out) == 0 {
		return out
	}

	sum := 0
	for _, s := range out {
		sum += max(0, s.Kcal)
	}

	type share struct {
		idx  int
		frac float64
	}
	shares := make([]share, len(out))
	assigned := 0
	for i, s := range out {
		var raw float64
		if sum == 0 {
			raw = float64(target) / float64(len(out))
		} else {
			raw = float64(max(0, s.Kcal)) * float64(target) / float64(sum)
		}
		floor := math.Floor(raw)
		out[i].Kcal = int(floor)
		assigned += int(floor)
		shares[i] = share{idx: i, frac: raw - floor}
	}

	sort.SliceStable(shares, func(a, b int) bool { return shares[a].frac > shares[b].frac })
	for i := 0; assigned < target; i = (i + 1) % len(shares) {
		out[shares[i].idx].Kcal++
		assigned++
	}

	return out
}

func containsAny(s string, keys []string) bool {
	for _, k := range keys {
		if strings.Contains(s, k) {
			return true
		}
	}
	return false
}
