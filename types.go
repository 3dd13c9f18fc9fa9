package nutriplan

import (
	"context"
	"net/http"
	"slices"
	"time"
)

type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

type SlackClient interface {
	PostMessage(ctx context.Context, channel string, message string) error
}

// Generator is the external text-generation collaborator. Implementations return the raw model output;
// interpreting it is the planner's job.
type Generator interface {
	Generate(ctx context.Context, in Instructions, temperature float64) (string, error)
}

// PlanStore owns the lifecycle of the single active plan per user.
type PlanStore interface {
	LoadActivePlan(ctx context.Context, userID string) (StoredPlan, error)
	ArchiveActivePlan(ctx context.Context, userID string) error
	SaveNewActivePlan(ctx context.Context, userID string, plan Plan) (string, error)
	UpdateActivePlan(ctx context.Context, planID string, plan Plan) error
}

// Instructions is the system+user pair sent to a Generator.
type Instructions struct {
	System string `json:"system"`
	User   string `json:"user"`
}

type Sex string

const (
	SexMale   Sex = "male"
	SexFemale Sex = "female"
)

type ActivityLevel string

const (
	ActivitySedentary ActivityLevel = "sedentary"
	ActivityLight     ActivityLevel = "light"
	ActivityModerate  ActivityLevel = "moderate"
	ActivityHigh      ActivityLevel = "high"
	ActivityAthlete   ActivityLevel = "athlete"
)

type Goal string

const (
	GoalLose     Goal = "lose"
	GoalMaintain Goal = "maintain"
	GoalGain     Goal = "gain"
)

// Profile is the biometric input a plan is built from.
type Profile struct {
	Sex         Sex           `json:"sex" validate:"required,oneof=male female"`
	Age         int           `json:"age" validate:"gte=16,lte=90"`
	HeightCM    float64       `json:"height_cm" validate:"gte=130,lte=230"`
	WeightKG    float64       `json:"weight_kg" validate:"gte=35,lte=250"`
	Activity    ActivityLevel `json:"activity" validate:"required,oneof=sedentary light moderate high athlete"`
	Goal        Goal          `json:"goal" validate:"required,oneof=lose maintain gain"`
	MealsPerDay int           `json:"meals_per_day" validate:"gte=3,lte=6"`
	Dislikes    []string      `json:"dislikes,omitempty" validate:"dive,max=80"`
	Allergies   []string      `json:"allergies,omitempty" validate:"dive,max=80"`
}

// Targets are the authoritative daily energy and macro goals.
type Targets struct {
	CaloriesKcal int `json:"calories_kcal"`
	ProteinG     int `json:"protein_g"`
	CarbsG       int `json:"carbs_g"`
	FatG         int `json:"fat_g"`
}

type Macros struct {
	Kcal     int `json:"kcal"`
	ProteinG int `json:"protein_g"`
	CarbsG   int `json:"carbs_g"`
	FatG     int `json:"fat_g"`
}

type Item struct {
	Food      string `json:"food"`
	QuantityG int    `json:"quantity_g"`
	Notes     string `json:"notes"`
}

type Meal struct {
	Name            string `json:"name"`
	Items           []Item `json:"items"`
	EstimatedMacros Macros `json:"estimated_macros"`
}

type MealShare struct {
	Meal string `json:"meal"`
	Kcal int    `json:"kcal"`
}

type SwapOption struct {
	From  string `json:"from"`
	To    string `json:"to"`
	Ratio string `json:"ratio"`
}

type SwapGroup struct {
	Swap    string       `json:"swap"`
	Options []SwapOption `json:"options"`
}

// Plan is a single day of meals. It is treated as a value: stages that change it work on a Clone.
type Plan struct {
	Version          string      `json:"version"`
	Locale           string      `json:"locale"`
	Targets          Targets     `json:"targets"`
	MealsPerDay      int         `json:"meals_per_day"`
	MealDistribution []MealShare `json:"meal_distribution"`
	Meals            []Meal      `json:"meals"`
	SwapOptions      []SwapGroup `json:"swap_options"`
	Rules            []string    `json:"rules"`
	Warnings         []string    `json:"warnings"`
}

// Clone returns a deep copy of the plan. Nil and empty slices keep their state.
func (p Plan) Clone() Plan {
	out := p
	out.MealDistribution = slices.Clone(p.MealDistribution)
	out.Rules = slices.Clone(p.Rules)
	out.Warnings = slices.Clone(p.Warnings)

	out.Meals = slices.Clone(p.Meals)
	for i := range out.Meals {
		out.Meals[i].Items = slices.Clone(out.Meals[i].Items)
	}

	out.SwapOptions = slices.Clone(p.SwapOptions)
	for i := range out.SwapOptions {
		out.SwapOptions[i].Options = slices.Clone(out.SwapOptions[i].Options)
	}

	return out
}

// TotalKcal sums the estimated kcal of every meal.
func (p Plan) TotalKcal() int {
	total := 0
	for _, m := range p.Meals {
		total += m.EstimatedMacros.Kcal
	}
	return total
}

// ValidationMeta carries the aggregate counts behind a ValidationResult.
type ValidationMeta struct {
	TotalKcal          int    `json:"total_kcal"`
	TargetKcal         int    `json:"target_kcal"`
	ExpectedRange      [2]int `json:"expected_range"`
	FruitCount         int    `json:"fruit_count"`
	VeggieCount        int    `json:"veggie_count"`
	FatCount           int    `json:"fat_count"`
	TotalItems         int    `json:"total_items"`
	MainMealsWithCarbs int    `json:"main_meals_with_carbs"`
}

type ValidationResult struct {
	OK       bool           `json:"ok"`
	Problems []string       `json:"problems"`
	Meta     ValidationMeta `json:"meta"`
}

const (
	PlanStatusActive   = "active"
	PlanStatusArchived = "archived"
)

// StoredPlan is a plan as held by a PlanStore.
type StoredPlan struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Status    string    `json:"status"`
	Plan      Plan      `json:"plan"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
