package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"spool/internal/ipc"
)

func newAddCommand(ctx *commandContext) *cobra.Command {
	var title string
	var format string
	var userID string
	var detected bool

	cmd := &cobra.Command{
		Use:   "add <url>",
		Short: "Enqueue a new download",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			url := strings.TrimSpace(args[0])
			if url == "" {
				return fmt.Errorf("url is required")
			}
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Add(ipc.AddRequest{
					URL:      url,
					Title:    title,
					Format:   format,
					UserID:   userID,
					Detected: detected,
				})
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Enqueued %s\n", resp.ID)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&title, "title", "t", "", "Display title for the job")
	cmd.Flags().StringVarP(&format, "format", "f", "", "Format selector passed to the extractor")
	cmd.Flags().StringVarP(&userID, "user", "u", "", "Owning user id")
	cmd.Flags().BoolVar(&detected, "detected", false, "Register the job without queuing it for download")
	return cmd
}

func newListCommand(ctx *commandContext) *cobra.Command {
	var userID string
	var statuses []string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List queue jobs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.QueueList(userID, statuses)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(resp.Items) == 0 {
					fmt.Fprintln(out, "Queue is empty.")
					return nil
				}
				rows := make([][]string, 0, len(resp.Items))
				for _, item := range resp.Items {
					rows = append(rows, []string{
						shortID(item.ID),
						item.Status,
						fmt.Sprintf("%.1f%%", item.Progress),
						item.Speed,
						item.ETA,
						displayTitle(item),
					})
				}
				fmt.Fprintln(out, renderTable(
					[]string{"ID", "STATUS", "PROGRESS", "SPEED", "ETA", "TITLE"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignRight, alignLeft},
				))
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&userID, "user", "u", "", "Limit to jobs owned by this user id")
	cmd.Flags().StringSliceVarP(&statuses, "status", "s", nil, "Limit to jobs in these statuses")
	return cmd
}

func newShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <job-id>",
		Short: "Show details for a single job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				id, err := resolveJobID(client, args[0])
				if err != nil {
					return err
				}
				resp, err := client.QueueDescribe(id)
				if err != nil {
					return err
				}
				printJob(cmd, resp.Item)
				return nil
			})
		},
	}
}

func newStartCommand(ctx *commandContext) *cobra.Command {
	var all bool
	var userID string

	cmd := &cobra.Command{
		Use:   "start [job-id]",
		Short: "Schedule queued jobs for download",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if all == (len(args) == 1) {
				return fmt.Errorf("provide a job id or --all, not both")
			}
			return ctx.withClient(func(client *ipc.Client) error {
				out := cmd.OutOrStdout()
				if all {
					resp, err := client.StartQueued(userID)
					if err != nil {
						return err
					}
					fmt.Fprintf(out, "Scheduled %d queued job(s)\n", resp.Started)
					return nil
				}
				id, err := resolveJobID(client, args[0])
				if err != nil {
					return err
				}
				resp, err := client.Start(id)
				if err != nil {
					return err
				}
				if !resp.Started {
					return fmt.Errorf("start %s: %s", id, resp.Message)
				}
				fmt.Fprintf(out, "Started %s\n", id)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "Schedule every queued job")
	cmd.Flags().StringVarP(&userID, "user", "u", "", "Limit --all to jobs owned by this user id")
	return cmd
}

func newPromoteCommand(ctx *commandContext) *cobra.Command {
	var autoStart bool

	cmd := &cobra.Command{
		Use:   "promote <job-id>",
		Short: "Move a detected job into the queue",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				id, err := resolveJobID(client, args[0])
				if err != nil {
					return err
				}
				resp, err := client.Promote(id, autoStart)
				if err != nil {
					return err
				}
				if !resp.Promoted {
					return fmt.Errorf("job %s is not in the detected state", id)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Promoted %s\n", id)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&autoStart, "start", false, "Schedule the job immediately after promotion")
	return cmd
}

func newCancelCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "cancel <job-id>",
		Short: "Cancel a queued or downloading job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				id, err := resolveJobID(client, args[0])
				if err != nil {
					return err
				}
				resp, err := client.Cancel(id)
				if err != nil {
					return err
				}
				if !resp.Canceled {
					return fmt.Errorf("job %s is not active", id)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Canceled %s\n", id)
				return nil
			})
		},
	}
}

func newRemoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <job-id>",
		Short: "Remove a job and delete its downloaded file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				id, err := resolveJobID(client, args[0])
				if err != nil {
					return err
				}
				resp, err := client.Remove(id)
				if err != nil {
					return err
				}
				if !resp.Removed {
					return fmt.Errorf("job %s not found", id)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %s\n", id)
				return nil
			})
		},
	}
}

func newClearCommand(ctx *commandContext) *cobra.Command {
	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Sweep finished jobs out of the queue",
	}

	clearCmd.AddCommand(&cobra.Command{
		Use:   "completed",
		Short: "Remove completed jobs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.QueueClearCompleted()
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %d completed job(s)\n", resp.Removed)
				return nil
			})
		},
	})

	clearCmd.AddCommand(&cobra.Command{
		Use:   "failed",
		Short: "Remove failed jobs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.QueueClearFailed()
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %d failed job(s)\n", resp.Removed)
				return nil
			})
		},
	})

	return clearCmd
}

func newReloadCommand(ctx *commandContext) *cobra.Command {
	var userID string

	cmd := &cobra.Command{
		Use:   "reload",
		Short: "Reconcile the daemon registry against the store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				if _, err := client.Reload(userID); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Reconciled queue state")
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&userID, "user", "u", "", "Limit reconciliation to jobs owned by this user id")
	return cmd
}

// resolveJobID accepts a full job id or an unambiguous prefix of one.
func resolveJobID(client *ipc.Client, arg string) (string, error) {
	arg = strings.TrimSpace(arg)
	if arg == "" {
		return "", fmt.Errorf("job id is required")
	}
	if _, err := client.QueueDescribe(arg); err == nil {
		return arg, nil
	}
	resp, err := client.QueueList("", nil)
	if err != nil {
		return "", err
	}
	var match string
	for _, item := range resp.Items {
		if !strings.HasPrefix(item.ID, arg) {
			continue
		}
		if match != "" {
			return "", fmt.Errorf("job id prefix %q is ambiguous", arg)
		}
		match = item.ID
	}
	if match == "" {
		return "", fmt.Errorf("no job matches %q", arg)
	}
	return match, nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func displayTitle(item ipc.JobItem) string {
	if strings.TrimSpace(item.Title) != "" {
		return item.Title
	}
	return item.URL
}

func printJob(cmd *cobra.Command, item ipc.JobItem) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "ID:          %s\n", item.ID)
	fmt.Fprintf(out, "Title:       %s\n", displayTitle(item))
	fmt.Fprintf(out, "URL:         %s\n", item.URL)
	fmt.Fprintf(out, "Status:      %s\n", item.Status)
	fmt.Fprintf(out, "Progress:    %.1f%%\n", item.Progress)
	if item.Speed != "" {
		fmt.Fprintf(out, "Speed:       %s\n", item.Speed)
	}
	if item.ETA != "" {
		fmt.Fprintf(out, "ETA:         %s\n", item.ETA)
	}
	if item.Filename != "" {
		fmt.Fprintf(out, "File:        %s\n", item.Filename)
	}
	if item.ErrorMessage != "" {
		fmt.Fprintf(out, "Error:       %s\n", item.ErrorMessage)
	}
	if item.UserID != "" {
		fmt.Fprintf(out, "User:        %s\n", item.UserID)
	}
	fmt.Fprintf(out, "In library:  %s\n", yesNo(item.InLibrary))
	fmt.Fprintf(out, "Downloads:   %s\n", yesNo(item.InDownloads))
	fmt.Fprintf(out, "Enqueued:    %s\n", item.EnqueuedAt.Local().Format("2006-01-02 15:04:05"))
	fmt.Fprintf(out, "Updated:     %s\n", item.UpdatedAt.Local().Format("2006-01-02 15:04:05"))
}
