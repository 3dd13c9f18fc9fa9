package foods

type MealKind int

const (
	MealOther MealKind = iota
	MealBreakfast
	MealLunch
	MealDinner
)

var (
	breakfastPatterns = []string{"pequeno", "cafe", "breakfast"}
	lunchPatterns     = []string{"almoc", "lunch"}
	dinnerPatterns    = []string{"jantar", "dinner"}
)

// ClassifyMeal maps a free-text meal name to its kind. Breakfast is checked first because
// "pequeno-almoço" also contains the lunch pattern.
func ClassifyMeal(name string) MealKind {
	n := Normalize(name)
	switch {
	case containsAny(n, breakfastPatterns):
		return MealBreakfast
	case containsAny(n, lunchPatterns):
		return MealLunch
	case containsAny(n, dinnerPatterns):
		return MealDinner
	default:
		return MealOther
	}
}

// IsMainMeal reports whether stricter main-meal guardrails apply to the meal.
func IsMainMeal(name string) bool {
	return ClassifyMeal(name) != MealOther
}

func (k MealKind) String() string {
	switch k {
	case MealBreakfast:
		return "breakfast"
	case MealLunch:
		return "lunch"
	case MealDinner:
		return "dinner"
	default:
		return "other"
	}
}
