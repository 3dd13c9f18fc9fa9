// Package swap implements single-item substitutions: the categorized option catalog, the
// quantity rebalancer and the plan transformation that ties them together.
package swap

import (
	"strings"

	"nutriplan/foods"
)

// Category precedence matters: "iogurte com banana" is a protein, not a carb.
var categoryKeywords = []struct {
	category foods.Category
	keys     []string
}{
	{foods.CategoryProtein, []string{"frango", "peru", "atum", "salmao", "vaca", "porco", "ovo", "iogurte", "queijo", "leite", "whey"}},
	{foods.CategoryCarb, []string{"arroz", "massa", "batata", "pao", "aveia", "wrap", "tortilha", "banana", "maca"}},
	{foods.CategoryVeg, []string{"brocol", "cenoura", "tomate", "alface", "salada", "espinafr", "pepino", "courgette", "pimento", "cebola"}},
	{foods.CategoryFat, []string{"azeite", "noz", "amendoa", "abacate", "manteiga de amendoim"}},
}

var peers = map[foods.Category][]string{
	foods.CategoryProtein: {"Peito de Frango", "Peru", "Atum (lata ao natural)", "Carne de Vaca", "Carne de Porco", "Salmão", "Ovos", "Iogurte Natural", "Queijo Fresco", "Leite"},
	foods.CategoryCarb:    {"Arroz", "Massa", "Batata", "Batata Doce", "Pão Integral", "Pão", "Aveia", "Banana", "Maçã", "Wrap/Tortilha"},
	foods.CategoryVeg:     {"Brócolos", "Cenoura", "Tomate", "Alface", "Salada", "Espinafres", "Pepino", "Courgette", "Pimentos", "Cebola"},
	foods.CategoryFat:     {"Azeite", "Nozes", "Amêndoas", "Manteiga de Amendoim", "Abacate"},
}

// baseKeys is ordered: "batata doce" and "pao integral" must win over their prefixes.
var baseKeys = []struct {
	match []string
	key   string
}{
	{[]string{"frango"}, "frango"},
	{[]string{"peru"}, "peru"},
	{[]string{"atum"}, "atum"},
	{[]string{"salmao"}, "salmao"},
	{[]string{"vaca"}, "vaca"},
	{[]string{"porco"}, "porco"},
	{[]string{"ovo"}, "ovo"},
	{[]string{"iogurte"}, "iogurte"},
	{[]string{"queijo"}, "queijo"},
	{[]string{"leite"}, "leite"},
	{[]string{"arroz"}, "arroz"},
	{[]string{"massa"}, "massa"},
	{[]string{"batata doce"}, "batata doce"},
	{[]string{"batata"}, "batata"},
	{[]string{"pao integral"}, "pao integral"},
	{[]string{"pao"}, "pao"},
	{[]string{"aveia"}, "aveia"},
	{[]string{"banana"}, "banana"},
	{[]string{"maca"}, "maca"},
	{[]string{"wrap", "tortilha"}, "wrap"},
	{[]string{"brocol"}, "brocol"},
	{[]string{"cenoura"}, "cenoura"},
	{[]string{"tomate"}, "tomate"},
	{[]string{"alface"}, "alface"},
	{[]string{"salada"}, "salada"},
	{[]string{"espinafr"}, "espinafr"},
	{[]string{"pepino"}, "pepino"},
	{[]string{"courgette"}, "courgette"},
	{[]string{"pimento"}, "pimento"},
	{[]string{"cebola"}, "cebola"},
	{[]string{"azeite"}, "azeite"},
	{[]string{"noz"}, "noz"},
	{[]string{"amendoa"}, "amendoa"},
	{[]string{"manteiga de amendoim"}, "manteiga de amendoim"},
	{[]string{"abacate"}, "abacate"},
}

// CategoryOf classifies a food for substitution purposes.
func CategoryOf(food string) foods.Category {
	f := foods.Normalize(food)
	for _, c := range categoryKeywords {
		if containsAny(f, c.keys) {
			return c.category
		}
	}
	return foods.CategoryOther
}

// BaseKey is the coarse keyword that identifies the underlying food of an option.
func BaseKey(option string) string {
	o := foods.Normalize(option)
	for _, b := range baseKeys {
		if containsAny(o, b.match) {
			return b.key
		}
	}
	return o
}

// Options returns the peers a food may be swapped for, excluding the food itself and close variants.
// Foods in the "other" category have no options.
func Options(food string) (foods.Category, []string) {
	cat := CategoryOf(food)
	list, ok := peers[cat]
	if !ok {
		return cat, nil
	}

	f := foods.Normalize(food)
	out := make([]string, 0, len(list))
	for _, opt := range list {
		if strings.Contains(f, BaseKey(opt)) {
			continue
		}
		out = append(out, opt)
	}
	return cat, out
}

func containsAny(s string, keys []string) bool {
	for _, k := range keys {
		if strings.Contains(s, k) {
			return true
		}
	}
	return false
}
