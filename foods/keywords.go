package foods

// Keyword tables are matched as substrings of a Normalize'd food name.
var (
	forbiddenKeywords = []string{
		"algodao", "bola de algodao", "sabao", "detergente", "plastico",
		"papel", "shampoo", "desinfetante", "bacalhau",
	}

	proteinKeywords = []string{
		"ovo", "frango", "peru", "atum", "salmao", "vaca", "porco",
		"iogurte", "queijo", "leite", "whey",
	}

	carbKeywords = []string{
		"arroz", "massa", "batata", "pao", "aveia", "banana", "maca", "wrap", "tortilha",
	}

	fatKeywords = []string{
		"azeite", "amendoa", "noz", "abacate", "manteiga de amendoim",
	}

	vegKeywords = []string{
		"alface", "salada", "tomate", "cenoura", "brocol", "espinafr",
		"courgette", "pepino", "pimento", "cebola",
	}

	fruitKeywords = []string{"banana", "maca"}

	allowedKeywords = concat(proteinKeywords, carbKeywords, fatKeywords, vegKeywords)
)

func concat(lists ...[]string) []string {
	var out []string
	for _, l := range lists {
		out = append(out, l...)
	}
	return out
}

// The predicates below take an already normalized food name.

func IsForbidden(food string) bool { return containsAny(food, forbiddenKeywords) }

// IsAllowed reports whether the food matches the closed vocabulary of common supermarket foods.
func IsAllowed(food string) bool { return containsAny(food, allowedKeywords) }

// IsProtein is broader than the protein category of the food table: dairy and eggs count too.
func IsProtein(food string) bool { return containsAny(food, proteinKeywords) }

func IsCarb(food string) bool   { return containsAny(food, carbKeywords) }
func IsFat(food string) bool    { return containsAny(food, fatKeywords) }
func IsVeggie(food string) bool { return containsAny(food, vegKeywords) }
func IsFruit(food string) bool  { return containsAny(food, fruitKeywords) }
func IsEgg(food string) bool    { return containsAny(food, []string{"ovo"}) }

// IsOil matches olive oil only, not every fat.
func IsOil(food string) bool { return containsAny(food, []string{"azeite"}) }

// IsStarch matches the main-meal starches auto-fix is allowed to raise.
func IsStarch(food string) bool { return containsAny(food, []string{"arroz", "massa", "batata"}) }

func IsOats(food string) bool { return containsAny(food, []string{"aveia"}) }

// CarbMinimumG is the smallest realistic serving for a carb item.
func CarbMinimumG(food string) int {
	switch {
	case containsAny(food, []string{"banana", "maca"}):
		return 80
	case containsAny(food, []string{"pao"}):
		return 80
	case containsAny(food, []string{"batata doce"}):
		return 90
	case containsAny(food, []string{"batata"}):
		return 100
	case containsAny(food, []string{"arroz", "massa"}):
		return 100
	case containsAny(food, []string{"aveia"}):
		return 40
	default:
		return 80
	}
}
