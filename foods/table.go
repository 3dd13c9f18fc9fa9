package foods

import "strings"

type Category string

const (
	CategoryProtein Category = "protein"
	CategoryCarb    Category = "carb"
	CategoryFat     Category = "fat"
	CategoryVeg     Category = "veg"
	CategoryFruit   Category = "fruit"
	CategoryOther   Category = "other"
)

// Density is a macro vector per 100g of food.
type Density struct {
	Kcal     float64
	ProteinG float64
	CarbsG   float64
	FatG     float64
}

// FoodMeta describes a known food and its realistic serving bounds.
type FoodMeta struct {
	Name     string
	Keys     []string
	Per100g  Density
	MinG     int
	MaxG     int
	Category Category
}

// Of returns the absolute macros contained in grams of the food.
func (m FoodMeta) Of(grams float64) Density {
	f := grams / 100
	return Density{
		Kcal:     m.Per100g.Kcal * f,
		ProteinG: m.Per100g.ProteinG * f,
		CarbsG:   m.Per100g.CarbsG * f,
		FatG:     m.Per100g.FatG * f,
	}
}

// Lookup is first match, so more specific entries ("batata doce", "pao integral") precede their prefixes.
var table = []FoodMeta{
	{Name: "Peito de Frango", Keys: []string{"frango"}, Per100g: Density{165, 31, 0, 4}, MinG: 100, MaxG: 300, Category: CategoryProtein},
	{Name: "Peru", Keys: []string{"peru"}, Per100g: Density{135, 29, 0, 1.5}, MinG: 100, MaxG: 300, Category: CategoryProtein},
	{Name: "Atum (lata ao natural)", Keys: []string{"atum"}, Per100g: Density{116, 26, 0, 1}, MinG: 80, MaxG: 250, Category: CategoryProtein},
	{Name: "Salmão", Keys: []string{"salmao"}, Per100g: Density{208, 20, 0, 13}, MinG: 100, MaxG: 250, Category: CategoryProtein},
	{Name: "Carne de Vaca", Keys: []string{"vaca"}, Per100g: Density{217, 26, 0, 12}, MinG: 100, MaxG: 300, Category: CategoryProtein},
	{Name: "Carne de Porco", Keys: []string{"porco"}, Per100g: Density{242, 27, 0, 14}, MinG: 100, MaxG: 300, Category: CategoryProtein},
	{Name: "Ovos", Keys: []string{"ovo"}, Per100g: Density{143, 13, 1, 10}, MinG: 80, MaxG: 320, Category: CategoryProtein},
	{Name: "Iogurte Natural", Keys: []string{"iogurte"}, Per100g: Density{61, 4, 5, 3}, MinG: 125, MaxG: 500, Category: CategoryProtein},
	{Name: "Queijo Fresco", Keys: []string{"queijo fresco"}, Per100g: Density{90, 10, 3, 4}, MinG: 80, MaxG: 250, Category: CategoryProtein},
	{Name: "Leite", Keys: []string{"leite"}, Per100g: Density{42, 3.4, 5, 1}, MinG: 200, MaxG: 800, Category: CategoryProtein},

	// rice and pasta are cooked weights
	{Name: "Arroz", Keys: []string{"arroz"}, Per100g: Density{130, 2.7, 28, 0.3}, MinG: 120, MaxG: 450, Category: CategoryCarb},
	{Name: "Massa", Keys: []string{"massa"}, Per100g: Density{158, 5.8, 31, 0.9}, MinG: 120, MaxG: 450, Category: CategoryCarb},
	{Name: "Batata Doce", Keys: []string{"batata doce"}, Per100g: Density{90, 2, 21, 0.2}, MinG: 150, MaxG: 600, Category: CategoryCarb},
	{Name: "Batata", Keys: []string{"batata"}, Per100g: Density{87, 2, 20, 0.1}, MinG: 150, MaxG: 600, Category: CategoryCarb},
	{Name: "Pão Integral", Keys: []string{"pao integral"}, Per100g: Density{250, 13, 41, 4}, MinG: 60, MaxG: 220, Category: CategoryCarb},
	{Name: "Pão", Keys: []string{"pao"}, Per100g: Density{265, 9, 49, 3.2}, MinG: 60, MaxG: 250, Category: CategoryCarb},
	{Name: "Aveia", Keys: []string{"aveia"}, Per100g: Density{389, 17, 66, 7}, MinG: 40, MaxG: 140, Category: CategoryCarb},

	{Name: "Banana", Keys: []string{"banana"}, Per100g: Density{89, 1.1, 23, 0.3}, MinG: 80, MaxG: 300, Category: CategoryFruit},
	{Name: "Maçã", Keys: []string{"maca"}, Per100g: Density{52, 0.3, 14, 0.2}, MinG: 120, MaxG: 350, Category: CategoryFruit},

	{Name: "Cenoura", Keys: []string{"cenoura"}, Per100g: Density{41, 0.9, 10, 0.2}, MinG: 100, MaxG: 350, Category: CategoryVeg},
	{Name: "Brócolos", Keys: []string{"brocolo"}, Per100g: Density{35, 2.8, 7, 0.4}, MinG: 100, MaxG: 350, Category: CategoryVeg},
	{Name: "Alface/Salada", Keys: []string{"alface", "salada"}, Per100g: Density{15, 1.4, 2.9, 0.2}, MinG: 100, MaxG: 400, Category: CategoryVeg},

	{Name: "Azeite", Keys: []string{"azeite"}, Per100g: Density{884, 0, 0, 100}, MinG: 5, MaxG: 25, Category: CategoryFat},
	{Name: "Nozes", Keys: []string{"noz"}, Per100g: Density{654, 15, 14, 65}, MinG: 10, MaxG: 70, Category: CategoryFat},
	{Name: "Amêndoas", Keys: []string{"amendoa"}, Per100g: Density{579, 21, 22, 50}, MinG: 10, MaxG: 70, Category: CategoryFat},
	{Name: "Manteiga de Amendoim", Keys: []string{"manteiga de amendoim"}, Per100g: Density{588, 25, 20, 50}, MinG: 10, MaxG: 40, Category: CategoryFat},
	{Name: "Abacate", Keys: []string{"abacate"}, Per100g: Density{160, 2, 9, 15}, MinG: 50, MaxG: 250, Category: CategoryFat},
}

// Lookup finds the FoodMeta whose keyword appears in the food name.
func Lookup(food string) (FoodMeta, bool) {
	f := Normalize(food)
	if f == "" {
		return FoodMeta{}, false
	}
	for _, meta := range table {
		for _, k := range meta.Keys {
			if strings.Contains(f, k) {
				return meta, true
			}
		}
	}
	return FoodMeta{}, false
}

// All returns a copy of the food table.
func All() []FoodMeta {
	out := make([]FoodMeta, len(table))
	copy(out, table)
	return out
}
