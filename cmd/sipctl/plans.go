package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	grpcadapter "github.com/simaogato/sipledger-backend/internal/adapter/grpc"
	"github.com/simaogato/sipledger-backend/internal/cli"
)

var (
	flagPlanUser       string
	flagPlanInstrument string
	flagPlanAmount     string
	flagPlanStart      string
	flagPlanFrequency  string
	flagPlanGoal       string
	flagPriceAsOf      string
	flagPriceFrom      string
	flagPriceTo        string

	flagUpdateAmount    string
	flagUpdateFrequency string
	flagUpdateGoal      string
	flagUpdateActive    bool
	flagUpdateClearGoal bool
)

var plansCmd = &cobra.Command{
	Use:   "plans",
	Short: "Create and edit installment plans",
}

var plansCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a plan",
	Args:  cobra.NoArgs,
	RunE:  runPlansCreate,
}

var plansUpdateCmd = &cobra.Command{
	Use:   "update <plan-id>",
	Short: "Change amount, frequency, active flag or goal of a plan",
	Args:  cobra.ExactArgs(1),
	RunE:  runPlansUpdate,
}

var plansStopCmd = &cobra.Command{
	Use:   "stop <plan-id>",
	Short: "Deactivate a plan; no further installments are scheduled",
	Args:  cobra.ExactArgs(1),
	RunE:  runPlansStop,
}

var plansDeleteCmd = &cobra.Command{
	Use:   "delete <plan-id>",
	Short: "Delete a plan that has no ledger records",
	Args:  cobra.ExactArgs(1),
	RunE:  runPlansDelete,
}

var plansValueCmd = &cobra.Command{
	Use:   "value <plan-id>",
	Short: "Value a plan's units at the latest price",
	Args:  cobra.ExactArgs(1),
	RunE:  runPlansValue,
}

var priceCmd = &cobra.Command{
	Use:   "price",
	Short: "Maintain instrument prices",
}

var priceAddCmd = &cobra.Command{
	Use:   "add <instrument-id> <price>",
	Short: "Record a price point",
	Args:  cobra.ExactArgs(2),
	RunE:  runPriceAdd,
}

var priceHistoryCmd = &cobra.Command{
	Use:   "history <instrument-id>",
	Short: "List recorded prices of an instrument",
	Args:  cobra.ExactArgs(1),
	RunE:  runPriceHistory,
}

func init() {
	plansCreateCmd.Flags().StringVar(&flagPlanUser, "user", "", "Owning user ID")
	plansCreateCmd.Flags().StringVar(&flagPlanInstrument, "instrument", "", "Instrument (scheme code)")
	plansCreateCmd.Flags().StringVar(&flagPlanAmount, "amount", "", "Contribution per installment")
	plansCreateCmd.Flags().StringVar(&flagPlanStart, "start", time.Now().Format(time.DateOnly), "First due date (YYYY-MM-DD)")
	plansCreateCmd.Flags().StringVar(&flagPlanFrequency, "frequency", "monthly", "weekly, monthly or quarterly")
	plansCreateCmd.Flags().StringVar(&flagPlanGoal, "goal", "", "Goal ID")
	for _, name := range []string{"user", "instrument", "amount"} {
		_ = plansCreateCmd.MarkFlagRequired(name)
	}

	plansUpdateCmd.Flags().StringVar(&flagUpdateAmount, "amount", "", "New contribution per installment")
	plansUpdateCmd.Flags().StringVar(&flagUpdateFrequency, "frequency", "", "New frequency")
	plansUpdateCmd.Flags().BoolVar(&flagUpdateActive, "active", true, "Active flag")
	plansUpdateCmd.Flags().StringVar(&flagUpdateGoal, "goal", "", "New goal ID")
	plansUpdateCmd.Flags().BoolVar(&flagUpdateClearGoal, "clear-goal", false, "Unlink the goal")
	plansUpdateCmd.MarkFlagsMutuallyExclusive("goal", "clear-goal")

	priceAddCmd.Flags().StringVar(&flagPriceAsOf, "as-of", "", "Observation time, RFC 3339 or YYYY-MM-DD (default now)")

	plansCmd.AddCommand(plansCreateCmd, plansUpdateCmd, plansStopCmd, plansDeleteCmd, plansValueCmd)
	priceHistoryCmd.Flags().StringVar(&flagPriceFrom, "from", time.Now().AddDate(0, -1, 0).Format(time.DateOnly), "Range start")
	priceHistoryCmd.Flags().StringVar(&flagPriceTo, "to", time.Now().Format(time.DateOnly), "Range end, inclusive")

	priceCmd.AddCommand(priceAddCmd, priceHistoryCmd)
	rootCmd.AddCommand(plansCmd, priceCmd)
}

func runPlansCreate(cmd *cobra.Command, _ []string) error {
	fields := map[string]any{
		"user_id":       flagPlanUser,
		"instrument_id": flagPlanInstrument,
		"amount":        flagPlanAmount,
		"start_date":    flagPlanStart,
		"frequency":     flagPlanFrequency,
	}
	if flagPlanGoal != "" {
		fields["goal_id"] = flagPlanGoal
	}
	return withClient(cmd, func(ctx context.Context, c *grpcadapter.Client) error {
		p, err := c.CreatePlan(ctx, fields)
		if err != nil {
			return err
		}
		printPlan(cmd.OutOrStdout(), p)
		return nil
	})
}

func runPlansUpdate(cmd *cobra.Command, args []string) error {
	fields := map[string]any{"plan_id": args[0]}
	flags := cmd.Flags()
	if flags.Changed("amount") {
		fields["amount"] = flagUpdateAmount
	}
	if flags.Changed("frequency") {
		fields["frequency"] = flagUpdateFrequency
	}
	if flags.Changed("active") {
		fields["active"] = flagUpdateActive
	}
	if flags.Changed("goal") {
		fields["goal_id"] = flagUpdateGoal
	}
	if flagUpdateClearGoal {
		fields["clear_goal"] = true
	}
	if len(fields) == 1 {
		return fmt.Errorf("nothing to update: pass at least one of --amount, --frequency, --active, --goal, --clear-goal")
	}

	return withClient(cmd, func(ctx context.Context, c *grpcadapter.Client) error {
		p, err := c.UpdatePlan(ctx, fields)
		if err != nil {
			return err
		}
		printPlan(cmd.OutOrStdout(), p)
		return nil
	})
}

func runPlansStop(cmd *cobra.Command, args []string) error {
	return withClient(cmd, func(ctx context.Context, c *grpcadapter.Client) error {
		p, err := c.UpdatePlan(ctx, map[string]any{"plan_id": args[0], "active": false})
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "  Plan %s stopped\n", str(p, "id"))
		return nil
	})
}

func runPlansDelete(cmd *cobra.Command, args []string) error {
	return withClient(cmd, func(ctx context.Context, c *grpcadapter.Client) error {
		if err := c.DeletePlan(ctx, args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "  Plan %s deleted\n", args[0])
		return nil
	})
}

func runPlansValue(cmd *cobra.Command, args []string) error {
	return withClient(cmd, func(ctx context.Context, c *grpcadapter.Client) error {
		v, err := c.GetMarketValue(ctx, args[0])
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), cli.RenderKV(
			[2]string{"Plan", str(v, "plan_id")},
			[2]string{"Units", str(v, "units")},
			[2]string{"Price", str(v, "price")},
			[2]string{"As of", str(v, "as_of")},
			[2]string{"Market value", str(v, "market_value")},
			[2]string{"Paid", str(v, "paid_amount")},
			[2]string{"Gain", str(v, "gain")},
		))
		return nil
	})
}

func runPriceAdd(cmd *cobra.Command, args []string) error {
	asOf := flagPriceAsOf
	if asOf == "" {
		asOf = time.Now().UTC().Format(time.RFC3339)
	}
	return withClient(cmd, func(ctx context.Context, c *grpcadapter.Client) error {
		p, err := c.RecordPrice(ctx, args[0], asOf, args[1])
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "  %s @ %s recorded for %s\n", str(p, "price"), str(p, "as_of"), str(p, "instrument_id"))
		return nil
	})
}

func runPriceHistory(cmd *cobra.Command, args []string) error {
	return withClient(cmd, func(ctx context.Context, c *grpcadapter.Client) error {
		res, err := c.ListPrices(ctx, args[0], flagPriceFrom, flagPriceTo)
		if err != nil {
			return err
		}
		t := cli.Table{Title: args[0], Headers: []string{"As of", "Price"}}
		for _, p := range list(res, "points") {
			t.Rows = append(t.Rows, []string{str(p, "as_of"), str(p, "price")})
		}
		fmt.Fprint(cmd.OutOrStdout(), cli.RenderTable(t))
		return nil
	})
}
