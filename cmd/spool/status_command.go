package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"spool/internal/ipc"
	"spool/internal/queue"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show daemon status and queue counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Status()
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Daemon:    running (pid %d)\n", resp.PID)
				fmt.Fprintf(out, "Socket:    %s\n", resp.SocketPath)
				fmt.Fprintf(out, "Queue DB:  %s\n", resp.QueueDBPath)

				rows := make([][]string, 0, len(resp.QueueStats))
				for _, status := range queue.AllStatuses() {
					count, ok := resp.QueueStats[string(status)]
					if !ok {
						continue
					}
					rows = append(rows, []string{string(status), strconv.Itoa(count)})
				}
				if len(rows) == 0 {
					fmt.Fprintln(out, "Queue is empty.")
					return nil
				}
				fmt.Fprintln(out, renderTable(
					[]string{"STATUS", "JOBS"},
					rows,
					[]columnAlignment{alignLeft, alignRight},
				))
				return nil
			})
		},
	}
}

func newTestNotifyCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "test-notify",
		Short: "Send a test push notification through the daemon",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.TestNotification()
				if err != nil {
					return err
				}
				if !resp.Sent {
					return fmt.Errorf("test notification failed: %s", resp.Message)
				}
				fmt.Fprintln(cmd.OutOrStdout(), resp.Message)
				return nil
			})
		},
	}
}
