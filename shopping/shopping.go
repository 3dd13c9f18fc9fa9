// Package shopping aggregates a plan into a categorized shopping list with display units.
package shopping

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"nutriplan"
	"nutriplan/foods"
)

type Category string

const (
	CategoryProteins   Category = "Proteins"
	CategoryCarbs      Category = "Carbs"
	CategoryFats       Category = "Fats"
	CategoryVegetables Category = "Vegetables"
	CategoryFruit      Category = "Fruit"
	CategoryOther      Category = "Other"
)

// Categories lists every category in display order.
var Categories = []Category{
	CategoryProteins, CategoryCarbs, CategoryFats, CategoryVegetables, CategoryFruit, CategoryOther,
}

func rank(c Category) int {
	for i, cat := range Categories {
		if cat == c {
			return i
		}
	}
	return len(Categories)
}

type Unit string

const (
	UnitGrams      Unit = "g"
	UnitKilograms  Unit = "kg"
	UnitMillilitre Unit = "ml"
	UnitCount      Unit = "unit"
)

// Item is one aggregated food.
type Item struct {
	Name     string   `json:"name"`
	Grams    int      `json:"grams"`
	Category Category `json:"category"`
}

// Line is an aggregated food with its display quantity.
type Line struct {
	Name  string  `json:"name"`
	Grams int     `json:"grams"`
	Qty   float64 `json:"qty"`
	Unit  Unit    `json:"unit"`
}

// List is the shopping list response.
type List struct {
	Items   []Item              `json:"items"`
	Grouped map[Category][]Line `json:"grouped"`
	Text    string              `json:"text"`
}

// Build sums quantities per normalized food name across every meal. Items with an empty
// name or a non-positive quantity are skipped. The first spelling seen is kept for display.
func Build(plan nutriplan.Plan) List {
	byKey := map[string]int{}
	var items []Item

	for _, meal := range plan.Meals {
		for _, it := range meal.Items {
			name := strings.TrimSpace(it.Food)
			if name == "" || it.QuantityG <= 0 {
				continue
			}

			key := foods.Normalize(name)
			if i, ok := byKey[key]; ok {
				items[i].Grams += it.QuantityG
				continue
			}
			byKey[key] = len(items)
			items = append(items, Item{Name: name, Grams: it.QuantityG, Category: Categorize(name)})
		}
	}

	sort.SliceStable(items, func(i, j int) bool {
		ri, rj := rank(items[i].Category), rank(items[j].Category)
		if ri != rj {
			return ri < rj
		}
		return foods.Normalize(items[i].Name) < foods.Normalize(items[j].Name)
	})

	grouped := make(map[Category][]Line, len(Categories))
	for _, it := range items {
		qty, unit := FormatQty(it.Name, it.Grams)
		grouped[it.Category] = append(grouped[it.Category], Line{Name: it.Name, Grams: it.Grams, Qty: qty, Unit: unit})
	}

	if items == nil {
		items = []Item{}
	}
	return List{Items: items, Grouped: grouped, Text: render(grouped)}
}

// Categorize checks fruit before carbs and vegetables before proteins, so "banana" is fruit
// and "salada de atum" shops as a vegetable.
func Categorize(food string) Category {
	f := foods.Normalize(food)
	switch {
	case foods.IsFruit(f):
		return CategoryFruit
	case foods.IsVeggie(f):
		return CategoryVegetables
	case foods.IsFat(f):
		return CategoryFats
	case foods.IsCarb(f):
		return CategoryCarbs
	case foods.IsProtein(f):
		return CategoryProteins
	default:
		return CategoryOther
	}
}

var bulkKeywords = []string{
	"arroz", "massa", "batata", "carne", "frango", "peru", "legume", "salada", "brocol", "cenoura",
}

// FormatQty converts grams into the unit a shopper would look for.
func FormatQty(food string, grams int) (float64, Unit) {
	f := foods.Normalize(food)
	g := float64(grams)

	switch {
	case grams >= 1000 && containsAny(f, bulkKeywords):
		return math.Round(g/100) / 10, UnitKilograms
	case strings.Contains(f, "azeite"):
		// olive oil is about 0.91 g/ml
		return math.Round(g / 0.91), UnitMillilitre
	case strings.Contains(f, "leite"):
		return g, UnitMillilitre
	case strings.Contains(f, "ovo"):
		return units(g, 60), UnitCount
	case strings.Contains(f, "banana"):
		return units(g, 120), UnitCount
	case strings.Contains(f, "maca"):
		return units(g, 180), UnitCount
	default:
		return g, UnitGrams
	}
}

func units(g, per float64) float64 {
	return math.Max(1, math.Round(g/per))
}

func render(grouped map[Category][]Line) string {
	var blocks []string
	for _, cat := range Categories {
		lines := grouped[cat]
		if len(lines) == 0 {
			continue
		}
		var b strings.Builder
		b.WriteString(string(cat))
		for _, l := range lines {
			fmt.Fprintf(&b, "\n- %s: %s%s", l.Name, formatNumber(l.Qty), l.Unit)
		}
		blocks = append(blocks, b.String())
	}
	return strings.Join(blocks, "\n\n")
}

func formatNumber(v float64) string {
	if v == math.Trunc(v) {
		return fmt.Sprintf("%d", int64(v))
	}
	return fmt.Sprintf("%.1f", v)
}

func containsAny(s string, keys []string) bool {
	for _, k := range keys {
		if strings.Contains(s, k) {
			return true
		}
	}
	return false
}
