// Package prompt builds the instructions sent to a plan generator.
package prompt

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/jsonschema"

	"nutriplan"
	"nutriplan/guardrails"
)

// Allowed is the whitelist offered to the generator, grouped the way it is printed.
var Allowed = []struct {
	Group string
	Foods []string
}{
	{"Proteins", []string{
		"ovos", "peito de frango", "peru", "atum (lata ao natural)", "salmão", "carne de vaca",
		"carne de porco", "iogurte natural", "iogurte grego", "queijo fresco", "queijo cottage",
		"leite", "whey (opcional)",
	}},
	{"Carbs", []string{
		"arroz", "massa", "batata", "batata doce", "pão integral", "pão", "aveia", "banana", "maçã", "wrap/tortilha",
	}},
	{"Fats", []string{"azeite", "amêndoas", "nozes", "manteiga de amendoim", "abacate"}},
	{"Vegetables", []string{
		"alface", "tomate", "cenoura", "brócolos", "espinafres", "courgette", "pepino", "pimentos", "cebola",
	}},
}

// Forbidden items are never acceptable in a plan.
var Forbidden = []string{
	"algodão", "bola de algodão", "sabão", "detergente", "plástico", "papel", "shampoo", "desinfetante", "bacalhau",
}

const systemPrompt = `You are a virtual nutritionist.

GOAL:
Create ONE daily meal plan for the locale %s using common, cheap supermarket foods.

OUTPUT FORMAT:
Return ONLY the JSON object - no explanations, no text before or after, no markdown formatting. Start immediately with { and end with }.

CRITICAL RULES:
- Never invent targets. Use exactly the targets you are given.
- Quantities are grams (quantity_g). Eggs are grams too (e.g. 120), never units.
- Every number must be an integer with no decimal places.
- Respect dislikes and allergies completely.
- Never use inedible or non-food words.

JSON Schema:
%s
`

const userPrompt = `User:
- sex: %s
- age: %d
- height_cm: %s
- weight_kg: %s
- activity: %s
- goal: %s
- meals per day: %d
- dislikes: %s
- allergies/intolerances: %s

Targets (MANDATORY, use exactly these values):
- calories_kcal: %d
- protein_g: %d
- carbs_g: %d
- fat_g: %d

ALLOWED FOODS (use only these or very close synonyms, with their Portuguese names):
%s

FORBIDDEN FOODS (never use):
%s

STRUCTURE:
- "meals" must have exactly %d entries and "meal_distribution" exactly %d entries.
- Use simple meal names: "Pequeno-almoço", "Almoço", "Lanche", "Jantar".
- Each meal has 2 to 4 items.
- Pequeno-almoço: protein + carb + fruit + vegetable.
- Almoço: protein + carb + vegetables + fat (azeite or nozes).
- Lanche: protein (iogurte/queijo) + optional carb.
- Jantar: protein + carb + vegetables + fat.

VALIDATION RULES:
- The sum of estimated_macros.kcal over all meals must be between %d and %d kcal.
- Pequeno-almoço, Almoço and Jantar must each have estimated_macros.protein_g >= 35.
- Include at least 1 fruit (banana or maçã), at least 2 vegetable items and at least 1 healthy fat.
- The whole day has at least 8 items.
- Minimum quantities: eggs 60g, vegetables 100g, protein foods 80g, oats 40g, rice/pasta/potato 100g, bread/fruit 80g.
- If the total kcal is low, raise carbs at Almoço and Jantar (arroz/massa/batata 250g-350g cooked), add 10g azeite to Almoço and Jantar and add 60g aveia to Pequeno-almoço.
`

const correctionPrompt = `The previous plan was rejected.
Fix the plan, strictly respecting the allowed foods and removing invalid items.

Problems found:
%s

Return ONLY valid JSON (no text outside the JSON).`

// Build returns the base instructions for a profile. The targets appear verbatim in the user message.
func Build(p nutriplan.Profile, t nutriplan.Targets, locale string) (nutriplan.Instructions, error) {
	schema, err := json.MarshalIndent(PlanSchema(), "", "  ")
	if err != nil {
		return nutriplan.Instructions{}, fmt.Errorf("marshaling plan schema: %w", err)
	}

	lo, hi := guardrails.KcalRange(t.CaloriesKcal)

	user := fmt.Sprintf(userPrompt,
		p.Sex, p.Age, number(p.HeightCM), number(p.WeightKG), p.Activity, p.Goal, p.MealsPerDay,
		listOr(p.Dislikes, "none"), listOr(p.Allergies, "none"),
		t.CaloriesKcal, t.ProteinG, t.CarbsG, t.FatG,
		allowedBlock(), bullets(Forbidden),
		p.MealsPerDay, p.MealsPerDay,
		lo, hi,
	)

	return nutriplan.Instructions{
		System: strings.TrimSpace(fmt.Sprintf(systemPrompt, locale, schema)),
		User:   strings.TrimSpace(user),
	}, nil
}

// Correction appends the problems of the previous attempt to the base user message.
func Correction(base nutriplan.Instructions, problems []string) nutriplan.Instructions {
	if len(problems) == 0 {
		return base
	}
	return nutriplan.Instructions{
		System: base.System,
		User:   base.User + "\n\n" + fmt.Sprintf(correctionPrompt, bullets(problems)),
	}
}

// PlanSchema describes the plan JSON the generator must return.
func PlanSchema() *jsonschema.Schema {
	zero := 0.0
	minMeals, maxMeals := 3.0, 6.0

	macros := func(keys ...string) *jsonschema.Schema {
		s := &jsonschema.Schema{Type: "object", Properties: map[string]*jsonschema.Schema{}, Required: keys}
		for _, k := range keys {
			s.Properties[k] = &jsonschema.Schema{Type: "integer", Minimum: &zero}
		}
		return s
	}

	return &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			"version": {Type: "string"},
			"locale":  {Type: "string"},
			"targets": macros("calories_kcal", "protein_g", "carbs_g", "fat_g"),
			"meals_per_day": {
				Type:    "integer",
				Minimum: &minMeals,
				Maximum: &maxMeals,
			},
			"meal_distribution": {
				Type: "array",
				Items: &jsonschema.Schema{
					Type: "object",
					Properties: map[string]*jsonschema.Schema{
						"meal": {Type: "string"},
						"kcal": {Type: "integer", Minimum: &zero},
					},
					Required: []string{"meal", "kcal"},
				},
			},
			"meals": {
				Type: "array",
				Items: &jsonschema.Schema{
					Type: "object",
					Properties: map[string]*jsonschema.Schema{
						"name": {Type: "string"},
						"items": {
							Type: "array",
							Items: &jsonschema.Schema{
								Type: "object",
								Properties: map[string]*jsonschema.Schema{
									"food":       {Type: "string"},
									"quantity_g": {Type: "integer", Minimum: &zero},
									"notes":      {Type: "string"},
								},
								Required: []string{"food", "quantity_g"},
							},
						},
						"estimated_macros": macros("kcal", "protein_g", "carbs_g", "fat_g"),
					},
					Required: []string{"name", "items", "estimated_macros"},
				},
			},
			"swap_options": {
				Type: "array",
				Items: &jsonschema.Schema{
					Type: "object",
					Properties: map[string]*jsonschema.Schema{
						"swap": {Type: "string"},
						"options": {
							Type: "array",
							Items: &jsonschema.Schema{
								Type: "object",
								Properties: map[string]*jsonschema.Schema{
									"from":  {Type: "string"},
									"to":    {Type: "string"},
									"ratio": {Type: "string"},
								},
								Required: []string{"from", "to", "ratio"},
							},
						},
					},
					Required: []string{"swap", "options"},
				},
			},
			"rules":    {Type: "array", Items: &jsonschema.Schema{Type: "string"}},
			"warnings": {Type: "array", Items: &jsonschema.Schema{Type: "string"}},
		},
		Required: []string{"version", "targets", "meals_per_day", "meal_distribution", "meals"},
	}
}

func allowedBlock() string {
	lines := make([]string, 0, len(Allowed))
	for _, g := range Allowed {
		lines = append(lines, fmt.Sprintf("- %s: %s", g.Group, strings.Join(g.Foods, ", ")))
	}
	return strings.Join(lines, "\n")
}

func bullets(items []string) string {
	lines := make([]string, 0, len(items))
	for _, it := range items {
		lines = append(lines, "- "+it)
	}
	return strings.Join(lines, "\n")
}

func listOr(items []string, empty string) string {
	if len(items) == 0 {
		return empty
	}
	return strings.Join(items, ", ")
}

func number(v float64) string {
	return fmt.Sprintf("%g", v)
}
