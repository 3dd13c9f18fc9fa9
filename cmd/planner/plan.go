package main

import (
	"context"

	"github.com/spf13/cobra"

	"nutriplan/planner"
	"nutriplan/swap"
)

var activeCmd = &cobra.Command{
	Use:   "active",
	Short: "Show the active plan",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, svc *planner.Service) error {
			sp, err := svc.ActivePlan(ctx, userID)
			if err != nil {
				return err
			}
			return printResult(cmd.OutOrStdout(), cmd.ErrOrStderr(), sp)
		})
	},
}

var swapReq swap.Request

var swapCmd = &cobra.Command{
	Use:   "swap",
	Short: "Replace one item of the active plan with an equivalent food",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, svc *planner.Service) error {
			res, err := svc.Swap(ctx, userID, swapReq)
			if err != nil {
				return err
			}
			return printResult(cmd.OutOrStdout(), cmd.ErrOrStderr(), res)
		})
	},
}

var (
	exportSlack  bool
	slackChannel string
)

var shoppingCmd = &cobra.Command{
	Use:   "shopping-list",
	Short: "Aggregate the active plan into a shopping list",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, svc *planner.Service) error {
			var (
				list planner.ShoppingResult
				err  error
			)
			if exportSlack {
				list, err = svc.ExportShoppingList(ctx, userID, slackChannel)
			} else {
				list, err = svc.ShoppingList(ctx, userID)
			}
			if err != nil {
				return err
			}
			return printResult(cmd.OutOrStdout(), cmd.ErrOrStderr(), list)
		})
	},
}

func init() {
	swapCmd.Flags().IntVar(&swapReq.MealIndex, "meal", 0, "zero-based meal index")
	swapCmd.Flags().IntVar(&swapReq.ItemIndex, "item", 0, "zero-based item index within the meal")
	swapCmd.Flags().StringVar(&swapReq.NewFood, "food", "", "replacement food, one of the item's swap options")
	_ = swapCmd.MarkFlagRequired("food")

	shoppingCmd.Flags().BoolVar(&exportSlack, "export", false, "post the list to Slack")
	shoppingCmd.Flags().StringVar(&slackChannel, "channel", "", "Slack channel (defaults to SLACK_CHANNEL)")
}
