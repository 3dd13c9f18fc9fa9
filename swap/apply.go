package swap

import (
	"errors"
	"fmt"
	"math"

	"github.com/go-playground/validator/v10"

	"nutriplan"
	"nutriplan/foods"
)

// Request identifies the item to replace and its substitute.
type Request struct {
	MealIndex int    `json:"mealIndex" validate:"gte=0,lte=20"`
	ItemIndex int    `json:"itemIndex" validate:"gte=0,lte=20"`
	NewFood   string `json:"newFood" validate:"required,max=80"`
}

// Result is the swapped plan plus what changed.
type Result struct {
	Plan         nutriplan.Plan `json:"plan"`
	Category     foods.Category `json:"category"`
	Mode         Mode           `json:"mode"`
	OldFood      string         `json:"old_food"`
	NewFood      string         `json:"new_food"`
	OldQuantityG int            `json:"old_quantity_g"`
	NewQuantityG int            `json:"new_quantity_g"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Apply replaces one item of a copy of the plan. On error the input plan is untouched and
// the error is an *nutriplan.InvalidSwapError.
func Apply(plan nutriplan.Plan, req Request) (Result, error) {
	if err := validate.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return Result{}, &nutriplan.InvalidSwapError{Reason: fmt.Sprintf("%s failed %q", verrs[0].Field(), verrs[0].Tag())}
		}
		return Result{}, &nutriplan.InvalidSwapError{Reason: err.Error()}
	}

	if req.MealIndex >= len(plan.Meals) {
		return Result{}, &nutriplan.InvalidSwapError{Reason: fmt.Sprintf("meal %d not found", req.MealIndex)}
	}
	if req.ItemIndex >= len(plan.Meals[req.MealIndex].Items) {
		return Result{}, &nutriplan.InvalidSwapError{Reason: fmt.Sprintf("item %d not found in meal %d", req.ItemIndex, req.MealIndex)}
	}

	old := plan.Meals[req.MealIndex].Items[req.ItemIndex]

	cat, options := Options(old.Food)
	if len(options) == 0 {
		return Result{}, &nutriplan.InvalidSwapError{Reason: fmt.Sprintf("no swap options for %q", old.Food)}
	}

	canonical, ok := matchOption(options, req.NewFood)
	if !ok {
		return Result{}, &nutriplan.InvalidSwapError{Reason: fmt.Sprintf("%q is not a swap option for %q", req.NewFood, old.Food)}
	}

	mode := ModeFor(cat)
	newQty := Rebalance(old.Food, old.QuantityG, canonical, mode)

	out := plan.Clone()
	meal := &out.Meals[req.MealIndex]
	meal.Items[req.ItemIndex] = nutriplan.Item{Food: canonical, QuantityG: newQty, Notes: old.Notes}
	meal.EstimatedMacros = adjustMacros(meal.EstimatedMacros, old, meal.Items[req.ItemIndex])

	return Result{
		Plan:         out,
		Category:     cat,
		Mode:         mode,
		OldFood:      old.Food,
		NewFood:      canonical,
		OldQuantityG: old.QuantityG,
		NewQuantityG: newQty,
	}, nil
}

// matchOption compares case- and accent-insensitively and returns the catalog spelling.
func matchOption(options []string, food string) (string, bool) {
	want := foods.Normalize(food)
	for _, opt := range options {
		if foods.Normalize(opt) == want {
			return opt, true
		}
	}
	return "", false
}

// adjustMacros moves the meal estimate by the difference between the old and new item.
// When either food is unknown the estimate is left as is.
func adjustMacros(m nutriplan.Macros, oldItem, newItem nutriplan.Item) nutriplan.Macros {
	oldMeta, errOld := lookup(oldItem.Food)
	newMeta, errNew := lookup(newItem.Food)
	if errOld != nil || errNew != nil {
		return m
	}

	before := oldMeta.Of(float64(oldItem.QuantityG))
	after := newMeta.Of(float64(newItem.QuantityG))

	return nutriplan.Macros{
		Kcal:     shift(m.Kcal, after.Kcal-before.Kcal),
		ProteinG: shift(m.ProteinG, after.ProteinG-before.ProteinG),
		CarbsG:   shift(m.CarbsG, after.CarbsG-before.CarbsG),
		FatG:     shift(m.FatG, after.FatG-before.FatG),
	}
}

func shift(v int, delta float64) int {
	return max(0, v+int(math.Round(delta)))
}

// lookup is the strict form of foods.Lookup.
func lookup(food string) (foods.FoodMeta, error) {
	meta, ok := foods.Lookup(food)
	if !ok {
		return foods.FoodMeta{}, fmt.Errorf("%q: %w", food, nutriplan.ErrUnknownFood)
	}
	return meta, nil
}
