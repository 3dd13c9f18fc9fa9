package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"nutriplan"
	"nutriplan/planner"
)

var (
	profileFile string
	profileArgs nutriplan.Profile
	sexFlag     string
	activity    string
	goal        string
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate a new plan and make it the active one",
	RunE: func(cmd *cobra.Command, args []string) error {
		profile, err := readProfile(cmd)
		if err != nil {
			return err
		}

		return withApp(cmd, func(ctx context.Context, svc *planner.Service) error {
			res, err := svc.Generate(ctx, userID, profile)
			if err != nil {
				var vf *nutriplan.ValidationFailure
				if errors.As(err, &vf) {
					fmt.Fprintln(cmd.ErrOrStderr(), "The plan was rejected:")
					for _, p := range vf.Result.Problems {
						fmt.Fprintf(cmd.ErrOrStderr(), "  - %s\n", p)
					}
				}
				return fmt.Errorf("generate: %w", err)
			}
			return printResult(cmd.OutOrStdout(), cmd.ErrOrStderr(), res)
		})
	},
}

func init() {
	addProfileFlags(generateCmd)
}

func addProfileFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVar(&profileFile, "profile", "", "read the profile from a JSON file instead of flags")
	f.StringVar(&sexFlag, "sex", "male", "male or female")
	f.IntVar(&profileArgs.Age, "age", 30, "age in years")
	f.Float64Var(&profileArgs.HeightCM, "height", 175, "height in cm")
	f.Float64Var(&profileArgs.WeightKG, "weight", 75, "weight in kg")
	f.StringVar(&activity, "activity", "moderate", "sedentary, light, moderate, high or athlete")
	f.StringVar(&goal, "goal", "maintain", "lose, maintain or gain")
	f.IntVar(&profileArgs.MealsPerDay, "meals", 4, "meals per day (3-6)")
	f.StringSliceVar(&profileArgs.Dislikes, "dislike", nil, "food to avoid (repeatable)")
	f.StringSliceVar(&profileArgs.Allergies, "allergy", nil, "allergy or intolerance (repeatable)")
}

// readProfile prefers --profile; explicitly set flags still override the file.
func readProfile(cmd *cobra.Command) (nutriplan.Profile, error) {
	p := profileArgs
	p.Sex = nutriplan.Sex(sexFlag)
	p.Activity = nutriplan.ActivityLevel(activity)
	p.Goal = nutriplan.Goal(goal)

	if profileFile == "" {
		return p, nil
	}

	data, err := os.ReadFile(profileFile)
	if err != nil {
		return nutriplan.Profile{}, fmt.Errorf("failed to read profile: %w", err)
	}
	var fromFile nutriplan.Profile
	if err := json.Unmarshal(data, &fromFile); err != nil {
		return nutriplan.Profile{}, fmt.Errorf("failed to parse profile %s: %w", profileFile, err)
	}

	flags := cmd.Flags()
	overrides := map[string]func(){
		"sex":      func() { fromFile.Sex = p.Sex },
		"age":      func() { fromFile.Age = p.Age },
		"height":   func() { fromFile.HeightCM = p.HeightCM },
		"weight":   func() { fromFile.WeightKG = p.WeightKG },
		"activity": func() { fromFile.Activity = p.Activity },
		"goal":     func() { fromFile.Goal = p.Goal },
		"meals":    func() { fromFile.MealsPerDay = p.MealsPerDay },
		"dislike":  func() { fromFile.Dislikes = p.Dislikes },
		"allergy":  func() { fromFile.Allergies = p.Allergies },
	}
	for name, apply := range overrides {
		if flags.Changed(name) {
			apply()
		}
	}
	if fromFile.MealsPerDay == 0 {
		fromFile.MealsPerDay = 4
	}
	return fromFile, nil
}
