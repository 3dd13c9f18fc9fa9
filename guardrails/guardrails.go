// Package guardrails holds the hard rules a generated plan must satisfy before it is accepted.
package guardrails

import (
	"fmt"
	"math"
	"strings"

	"nutriplan"
	"nutriplan/foods"
)

const (
	minMainMealProteinG = 35
	minEggG             = 60
	minVeggieG          = 100
	minProteinItemG     = 80

	minDailyItems         = 8
	minDailyFruit         = 1
	minDailyVeggies       = 2
	minDailyFats          = 1
	minMainMealsWithCarbs = 2
)

// KcalRange returns the inclusive accepted range for a calorie target, 90% to 110% rounded.
func KcalRange(target int) (int, int) {
	return int(math.Round(float64(target) * 0.9)), int(math.Round(float64(target) * 1.1))
}

// Validate evaluates every rule and accumulates problems; it never short-circuits.
func Validate(plan nutriplan.Plan, targets nutriplan.Targets) nutriplan.ValidationResult {
	problems := make([]string, 0)

	totalKcal := plan.TotalKcal()
	target := targets.CaloriesKcal
	minOK, maxOK := KcalRange(target)

	if totalKcal < minOK || totalKcal > maxOK {
		problems = append(problems, fmt.Sprintf(
			"total kcal out of range: %d kcal (target %d, expected %d-%d)",
			totalKcal, target, minOK, maxOK,
		))
	}

	var fruitCount, veggieCount, fatCount, totalItems, mainMealsWithCarbs int

	for i, meal := range plan.Meals {
		label := strings.TrimSpace(meal.Name)
		if label == "" {
			label = fmt.Sprintf("meal #%d", i+1)
		}

		if foods.IsMainMeal(meal.Name) {
			if p := meal.EstimatedMacros.ProteinG; p < minMainMealProteinG {
				problems = append(problems, fmt.Sprintf("low protein in %s: %dg (minimum %dg)", label, p, minMainMealProteinG))
			}
			if mealHas(meal, foods.IsCarb) {
				mainMealsWithCarbs++
			}
			if !mealHas(meal, foods.IsVeggie) {
				problems = append(problems, fmt.Sprintf("%s has no vegetables (needs at least 1 vegetable item)", label))
			}
		}

		for _, item := range meal.Items {
			totalItems++
			food := foods.Normalize(item.Food)

			if foods.IsFruit(food) {
				fruitCount++
			}
			if foods.IsVeggie(food) {
				veggieCount++
			}
			if foods.IsFat(food) {
				fatCount++
			}

			problems = append(problems, itemProblems(label, item, food)...)
		}
	}

	if totalItems < minDailyItems {
		problems = append(problems, fmt.Sprintf("plan too short: only %d items in the day (minimum %d)", totalItems, minDailyItems))
	}
	if fruitCount < minDailyFruit {
		problems = append(problems, "missing fruit (at least 1 per day)")
	}
	if veggieCount < minDailyVeggies {
		problems = append(problems, fmt.Sprintf("too few vegetables in the day: %d (minimum %d vegetable items)", veggieCount, minDailyVeggies))
	}
	if fatCount < minDailyFats {
		problems = append(problems, "missing a healthy fat (olive oil, nuts, avocado or peanut butter)")
	}
	if mainMealsWithCarbs < minMainMealsWithCarbs {
		problems = append(problems, fmt.Sprintf("main meals need carbs: only %d main meal(s) contain a carb (minimum %d)", mainMealsWithCarbs, minMainMealsWithCarbs))
	}

	return nutriplan.ValidationResult{
		OK:       len(problems) == 0,
		Problems: problems,
		Meta: nutriplan.ValidationMeta{
			TotalKcal:          totalKcal,
			TargetKcal:         target,
			ExpectedRange:      [2]int{minOK, maxOK},
			FruitCount:         fruitCount,
			VeggieCount:        veggieCount,
			FatCount:           fatCount,
			TotalItems:         totalItems,
			MainMealsWithCarbs: mainMealsWithCarbs,
		},
	}
}

// itemProblems checks a single item. An empty food name stops the remaining item checks.
func itemProblems(meal string, item nutriplan.Item, food string) []string {
	var problems []string

	if foods.IsForbidden(food) {
		problems = append(problems, fmt.Sprintf("forbidden item: %q", item.Food))
	}

	if food == "" {
		return append(problems, fmt.Sprintf("empty item in %s (food name is empty)", meal))
	}

	if !foods.IsAllowed(food) {
		problems = append(problems, fmt.Sprintf("item outside the list of common foods: %q", item.Food))
	}

	if foods.IsEgg(food) && item.QuantityG < minEggG {
		problems = append(problems, fmt.Sprintf("egg quantity too low: %q with %dg (minimum %dg, give eggs in grams e.g. 120g)", item.Food, item.QuantityG, minEggG))
	}

	if foods.IsVeggie(food) && item.QuantityG < minVeggieG {
		problems = append(problems, fmt.Sprintf("vegetable quantity too low: %q with %dg (minimum %dg)", item.Food, item.QuantityG, minVeggieG))
	}

	if foods.IsCarb(food) {
		if minG := foods.CarbMinimumG(food); item.QuantityG < minG {
			problems = append(problems, fmt.Sprintf("carb quantity too low: %q with %dg (minimum %dg)", item.Food, item.QuantityG, minG))
		}
	}

	if foods.IsProtein(food) && item.QuantityG < minProteinItemG {
		problems = append(problems, fmt.Sprintf("protein quantity too low: %q with %dg (minimum %dg)", item.Food, item.QuantityG, minProteinItemG))
	}

	return problems
}

func mealHas(meal nutriplan.Meal, match func(string) bool) bool {
	for _, it := range meal.Items {
		if match(foods.Normalize(it.Food)) {
			return true
		}
	}
	return false
}
