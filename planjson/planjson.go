// Package planjson turns generator output into a Plan. Nothing downstream touches generated
// data before it has been through Decode.
package planjson

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"nutriplan"
)

const DefaultLocale = "pt-PT"

// The wire shape uses pointers so a missing field can be told apart from a zero value.

type wireMacros struct {
	Kcal     *float64 `json:"kcal" validate:"required,gte=0,lte=20000"`
	ProteinG *float64 `json:"protein_g" validate:"required,gte=0,lte=20000"`
	CarbsG   *float64 `json:"carbs_g" validate:"required,gte=0,lte=20000"`
	FatG     *float64 `json:"fat_g" validate:"required,gte=0,lte=20000"`
}

type wireTargets struct {
	CaloriesKcal *float64 `json:"calories_kcal" validate:"required,gte=0,lte=20000"`
	ProteinG     *float64 `json:"protein_g" validate:"required,gte=0,lte=20000"`
	CarbsG       *float64 `json:"carbs_g" validate:"required,gte=0,lte=20000"`
	FatG         *float64 `json:"fat_g" validate:"required,gte=0,lte=20000"`
}

type wireItem struct {
	Food      *string  `json:"food" validate:"required"`
	QuantityG *float64 `json:"quantity_g" validate:"required,gte=0,lte=5000"`
	Notes     *string  `json:"notes"`
}

type wireMeal struct {
	Name            *string     `json:"name" validate:"required"`
	Items           []wireItem  `json:"items" validate:"required,dive"`
	EstimatedMacros *wireMacros `json:"estimated_macros" validate:"required"`
}

type wireShare struct {
	Meal *string  `json:"meal" validate:"required"`
	Kcal *float64 `json:"kcal" validate:"required,gte=0,lte=20000"`
}

type wireSwapOption struct {
	From  *string `json:"from" validate:"required"`
	To    *string `json:"to" validate:"required"`
	Ratio *string `json:"ratio" validate:"required"`
}

type wireSwapGroup struct {
	Swap    *string          `json:"swap" validate:"required"`
	Options []wireSwapOption `json:"options" validate:"required,dive"`
}

type wirePlan struct {
	Version          *string         `json:"version" validate:"required"`
	Locale           *string         `json:"locale"`
	Targets          *wireTargets    `json:"targets" validate:"required"`
	MealsPerDay      *float64        `json:"meals_per_day" validate:"required,gte=3,lte=6"`
	MealDistribution []wireShare     `json:"meal_distribution" validate:"required,dive"`
	Meals            []wireMeal      `json:"meals" validate:"required,dive"`
	SwapOptions      []wireSwapGroup `json:"swap_options" validate:"omitempty,dive"`
	Rules            []string        `json:"rules"`
	Warnings         []string        `json:"warnings"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Decode parses raw generator text. When the text is not JSON as a whole, the substring between
// the first '{' and the last '}' is tried. Unrecoverable text yields a *nutriplan.GenerationParseError;
// JSON that does not have the plan shape yields a *nutriplan.SchemaError.
func Decode(raw string) (nutriplan.Plan, error) {
	data, err := extract(raw)
	if err != nil {
		return nutriplan.Plan{}, &nutriplan.GenerationParseError{Raw: raw, Err: err}
	}

	var w wirePlan
	if err := json.Unmarshal(data, &w); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			problem := fmt.Sprintf("%s must be %s, got %s", typeErr.Field, typeErr.Type, typeErr.Value)
			if typeErr.Field == "" {
				problem = fmt.Sprintf("plan must be a JSON object, got %s", typeErr.Value)
			}
			return nutriplan.Plan{}, &nutriplan.SchemaError{Problems: []string{problem}}
		}
		return nutriplan.Plan{}, &nutriplan.GenerationParseError{Raw: raw, Err: err}
	}

	if err := validate.Struct(w); err != nil {
		return nutriplan.Plan{}, schemaError(err)
	}

	return w.plan(), nil
}

func extract(raw string) ([]byte, error) {
	data := []byte(raw)
	if json.Valid(data) {
		return data, nil
	}

	txt := strings.TrimSpace(raw)
	start := strings.Index(txt, "{")
	end := strings.LastIndex(txt, "}")
	if start < 0 || end <= start {
		return nil, errors.New("no JSON object found in output")
	}

	data = []byte(txt[start : end+1])
	var probe any
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, err
	}
	return data, nil
}

func schemaError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return &nutriplan.SchemaError{Problems: []string{err.Error()}}
	}

	problems := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := fe.Namespace()
		if i := strings.Index(field, "."); i >= 0 {
			field = field[i+1:]
		}
		switch fe.Tag() {
		case "required":
			problems = append(problems, fmt.Sprintf("%s is required", field))
		case "gte":
			problems = append(problems, fmt.Sprintf("%s must be at least %s", field, fe.Param()))
		case "lte":
			problems = append(problems, fmt.Sprintf("%s must be at most %s", field, fe.Param()))
		default:
			problems = append(problems, fmt.Sprintf("%s failed %s", field, fe.Tag()))
		}
	}
	return &nutriplan.SchemaError{Problems: problems}
}

func (w wirePlan) plan() nutriplan.Plan {
	p := nutriplan.Plan{
		Version: *w.Version,
		Locale:  DefaultLocale,
		Targets: nutriplan.Targets{
			CaloriesKcal: round(w.Targets.CaloriesKcal),
			ProteinG:     round(w.Targets.ProteinG),
			CarbsG:       round(w.Targets.CarbsG),
			FatG:         round(w.Targets.FatG),
		},
		MealsPerDay:      round(w.MealsPerDay),
		MealDistribution: make([]nutriplan.MealShare, 0, len(w.MealDistribution)),
		Meals:            make([]nutriplan.Meal, 0, len(w.Meals)),
		SwapOptions:      make([]nutriplan.SwapGroup, 0, len(w.SwapOptions)),
		Rules:            nonNil(w.Rules),
		Warnings:         nonNil(w.Warnings),
	}
	if w.Locale != nil && strings.TrimSpace(*w.Locale) != "" {
		p.Locale = *w.Locale
	}

	for _, s := range w.MealDistribution {
		p.MealDistribution = append(p.MealDistribution, nutriplan.MealShare{Meal: *s.Meal, Kcal: round(s.Kcal)})
	}

	for _, m := range w.Meals {
		meal := nutriplan.Meal{
			Name:  *m.Name,
			Items: make([]nutriplan.Item, 0, len(m.Items)),
			EstimatedMacros: nutriplan.Macros{
				Kcal:     round(m.EstimatedMacros.Kcal),
				ProteinG: round(m.EstimatedMacros.ProteinG),
				CarbsG:   round(m.EstimatedMacros.CarbsG),
				FatG:     round(m.EstimatedMacros.FatG),
			},
		}
		for _, it := range m.Items {
			item := nutriplan.Item{Food: *it.Food, QuantityG: round(it.QuantityG)}
			if it.Notes != nil {
				item.Notes = *it.Notes
			}
			meal.Items = append(meal.Items, item)
		}
		p.Meals = append(p.Meals, meal)
	}

	for _, g := range w.SwapOptions {
		group := nutriplan.SwapGroup{Swap: *g.Swap, Options: make([]nutriplan.SwapOption, 0, len(g.Options))}
		for _, o := range g.Options {
			group.Options = append(group.Options, nutriplan.SwapOption{From: *o.From, To: *o.To, Ratio: *o.Ratio})
		}
		p.SwapOptions = append(p.SwapOptions, group)
	}

	return p
}

func round(v *float64) int {
	return int(math.Round(*v))
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// Encode writes the plan in its wire format. Absent lists are written as empty arrays.
func Encode(plan nutriplan.Plan) ([]byte, error) {
	p := plan.Clone()
	if p.MealDistribution == nil {
		p.MealDistribution = []nutriplan.MealShare{}
	}
	if p.Meals == nil {
		p.Meals = []nutriplan.Meal{}
	}
	for i := range p.Meals {
		if p.Meals[i].Items == nil {
			p.Meals[i].Items = []nutriplan.Item{}
		}
	}
	if p.SwapOptions == nil {
		p.SwapOptions = []nutriplan.SwapGroup{}
	}
	for i := range p.SwapOptions {
		if p.SwapOptions[i].Options == nil {
			p.SwapOptions[i].Options = []nutriplan.SwapOption{}
		}
	}
	p.Rules = nonNil(p.Rules)
	p.Warnings = nonNil(p.Warnings)
	if p.Locale == "" {
		p.Locale = DefaultLocale
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(p); err != nil {
		return nil, fmt.Errorf("encoding plan: %w", err)
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
