package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	grpcadapter "github.com/simaogato/sipledger-backend/internal/adapter/grpc"
	"github.com/simaogato/sipledger-backend/internal/cli"
)

var (
	flagStatusPlan string
	flagStatusUser string
)

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Run the installment scheduler once",
	Args:  cobra.NoArgs,
	RunE:  runSchedule,
}

var settleCmd = &cobra.Command{
	Use:   "settle <record-id> <PAID|FAILED|SKIPPED>",
	Short: "Move a pending installment to a final state",
	Args:  cobra.ExactArgs(2),
	RunE:  runSettle,
}

var recordsCmd = &cobra.Command{
	Use:   "records <plan-id>",
	Short: "List the ledger records of a plan",
	Args:  cobra.ExactArgs(1),
	RunE:  runRecords,
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show plan health for one plan or all plans of a user",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

var remindCmd = &cobra.Command{
	Use:   "remind",
	Short: "Compute and send due and missed installment reminders",
	Args:  cobra.NoArgs,
	RunE:  runRemind,
}

func init() {
	statusCmd.Flags().StringVar(&flagStatusPlan, "plan", "", "Plan ID")
	statusCmd.Flags().StringVar(&flagStatusUser, "user", "", "User ID")
	statusCmd.MarkFlagsOneRequired("plan", "user")
	statusCmd.MarkFlagsMutuallyExclusive("plan", "user")

	rootCmd.AddCommand(scheduleCmd, settleCmd, recordsCmd, statusCmd, remindCmd)
}

func runSchedule(cmd *cobra.Command, _ []string) error {
	return withClient(cmd, func(ctx context.Context, c *grpcadapter.Client) error {
		summary, err := c.RunScheduler(ctx)
		if err != nil {
			return err
		}

		w := cmd.OutOrStdout()
		fmt.Fprint(w, cli.RenderKV(
			[2]string{"Plans", str(summary, "total_plans")},
			[2]string{"Scheduled", str(summary, "scheduled")},
			[2]string{"Skipped", str(summary, "skipped")},
			[2]string{"Failed", str(summary, "failed")},
			[2]string{"Undispatched", str(summary, "undispatched")},
		))
		if summary["incomplete"] == true {
			fmt.Fprintf(w, "  Run interrupted: %s\n", str(summary, "error"))
		}

		errs := list(summary, "errors")
		if len(errs) == 0 {
			return nil
		}
		t := cli.Table{Title: "Failures", Headers: []string{"Plan", "Error"}}
		for _, e := range errs {
			t.Rows = append(t.Rows, []string{str(e, "plan_id"), str(e, "message")})
		}
		fmt.Fprint(w, cli.RenderTable(t))
		return nil
	})
}

func runSettle(cmd *cobra.Command, args []string) error {
	state := strings.ToUpper(strings.TrimSpace(args[1]))
	return withClient(cmd, func(ctx context.Context, c *grpcadapter.Client) error {
		res, err := c.TransitionRecord(ctx, args[0], state)
		if err != nil {
			return err
		}

		w := cmd.OutOrStdout()
		record := sub(res, "record")
		if res["no_op"] == true {
			fmt.Fprintf(w, "  Record %s is already %s\n", str(record, "id"), cli.RenderStatus(str(record, "state")))
			return nil
		}
		pairs := [][2]string{
			{"Record", str(record, "id")},
			{"Due", str(record, "due_date")},
			{"State", cli.RenderStatus(str(record, "state"))},
		}
		if _, ok := res["units_bought"]; ok {
			pairs = append(pairs,
				[2]string{"Price", str(res, "price")},
				[2]string{"Units bought", str(res, "units_bought")},
				[2]string{"Plan units", str(sub(res, "plan"), "units")},
			)
		}
		fmt.Fprint(w, cli.RenderKV(pairs...))
		return nil
	})
}

func runRecords(cmd *cobra.Command, args []string) error {
	return withClient(cmd, func(ctx context.Context, c *grpcadapter.Client) error {
		res, err := c.ListRecords(ctx, args[0])
		if err != nil {
			return err
		}
		printRecords(cmd.OutOrStdout(), "Ledger", list(res, "records"))
		return nil
	})
}

func runStatus(cmd *cobra.Command, _ []string) error {
	return withClient(cmd, func(ctx context.Context, c *grpcadapter.Client) error {
		if flagStatusPlan != "" {
			res, err := c.GetPlanStatus(ctx, flagStatusPlan)
			if err != nil {
				return err
			}
			printStatuses(cmd.OutOrStdout(), []map[string]any{res})
			return nil
		}

		res, err := c.ListUserPlanStatus(ctx, flagStatusUser)
		if err != nil {
			return err
		}
		statuses := list(res, "plans")
		if len(statuses) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "  No plans.")
			return nil
		}
		printStatuses(cmd.OutOrStdout(), statuses)
		return nil
	})
}

func runRemind(cmd *cobra.Command, _ []string) error {
	return withClient(cmd, func(ctx context.Context, c *grpcadapter.Client) error {
		res, err := c.SendReminders(ctx)
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), cli.RenderKV(
			[2]string{"Due tomorrow", str(res, "due_tomorrow")},
			[2]string{"Missed today", str(res, "missed_today")},
			[2]string{"Undelivered", str(res, "failed")},
		))
		return nil
	})
}
