package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	grpcadapter "github.com/simaogato/sipledger-backend/internal/adapter/grpc"
	"github.com/simaogato/sipledger-backend/internal/cli"
)

var (
	flagNotifyUser   string
	flagNotifyUnread bool
)

var notificationsCmd = &cobra.Command{
	Use:     "notifications",
	Aliases: []string{"inbox"},
	Short:   "Read stored reminders of a user",
}

var notificationsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List a user's notifications, newest first",
	Args:  cobra.NoArgs,
	RunE:  runNotificationsList,
}

var notificationsReadCmd = &cobra.Command{
	Use:   "read <notification-id>",
	Short: "Mark a notification as read",
	Args:  cobra.ExactArgs(1),
	RunE:  runNotificationsRead,
}

func init() {
	notificationsCmd.PersistentFlags().StringVar(&flagNotifyUser, "user", "", "Owning user ID")
	_ = notificationsCmd.MarkPersistentFlagRequired("user")
	notificationsListCmd.Flags().BoolVar(&flagNotifyUnread, "unread", false, "Only unread notifications")

	notificationsCmd.AddCommand(notificationsListCmd, notificationsReadCmd)
	rootCmd.AddCommand(notificationsCmd)
}

func runNotificationsList(cmd *cobra.Command, _ []string) error {
	return withClient(cmd, func(ctx context.Context, c *grpcadapter.Client) error {
		res, err := c.ListNotifications(ctx, flagNotifyUser, flagNotifyUnread)
		if err != nil {
			return err
		}

		t := cli.Table{Title: "Notifications", Headers: []string{"ID", "When", "Kind", "Read", "Message"}}
		for _, n := range list(res, "notifications") {
			t.Rows = append(t.Rows, []string{
				str(n, "id"),
				str(n, "created_at"),
				str(n, "kind"),
				str(n, "read"),
				str(n, "message"),
			})
		}
		fmt.Fprint(cmd.OutOrStdout(), cli.RenderTable(t))
		return nil
	})
}

func runNotificationsRead(cmd *cobra.Command, args []string) error {
	return withClient(cmd, func(ctx context.Context, c *grpcadapter.Client) error {
		if err := c.MarkNotificationRead(ctx, args[0], flagNotifyUser); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "  Notification %s marked read\n", args[0])
		return nil
	})
}
