package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/prts-dev/pipesync/internal/domain"
	"github.com/prts-dev/pipesync/internal/provider"
	"github.com/prts-dev/pipesync/internal/tui"
)

func alertsCmd(rf *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "alerts",
		Short: "List and acknowledge alerts",
	}
	cmd.AddCommand(alertsListCmd(rf))
	cmd.AddCommand(alertsAckCmd(rf))
	return cmd
}

func alertsListCmd(rf *rootFlags) *cobra.Command {
	var unackedOnly bool
	var hidden []string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List alerts, newest first as returned by the server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, rf, func(ctx context.Context, s *session) error {
				alerts, err := provider.Call(ctx, s.refresher, s.client.GetAlerts)
				if err != nil {
					return err
				}
				if unackedOnly {
					alerts = unacknowledged(alerts)
				}
				for _, id := range hidden {
					alerts = domain.RemoveAlert(alerts, id)
				}
				return render(cmd.OutOrStdout(), rf.Output, alerts, func() *table.Table {
					t := newTable("ID", "SEVERITY", "TITLE", "SOURCE", "TIME", "ACK")
					for _, a := range alerts {
						t.Row(a.ID, tui.RenderSeverity(a.Severity), a.Title, a.Source,
							a.Timestamp.Local().Format(time.DateTime), ackMark(a.Acknowledged))
					}
					return t
				})
			})
		},
	}
	cmd.Flags().BoolVar(&unackedOnly, "unacknowledged", false, "Hide acknowledged alerts")
	cmd.Flags().StringSliceVar(&hidden, "hide", nil, "Alert IDs to leave out of the list (the server is not told)")
	return cmd
}

func unacknowledged(alerts []domain.AlertItem) []domain.AlertItem {
	var out []domain.AlertItem
	for _, a := range alerts {
		if !a.Acknowledged {
			out = append(out, a)
		}
	}
	return out
}

func ackMark(ack bool) string {
	if ack {
		return "✓"
	}
	return ""
}

func alertsAckCmd(rf *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "ack <id>",
		Short: "Acknowledge an alert",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, rf, func(ctx context.Context, s *session) error {
				alert, err := provider.Call(ctx, s.refresher, func(ctx context.Context) (domain.AlertItem, error) {
					return s.client.AcknowledgeAlert(ctx, args[0])
				})
				if err != nil {
					return err
				}
				if rf.Output != outputTable {
					return render(cmd.OutOrStdout(), rf.Output, alert, nil)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Acknowledged %s: %s\n", alert.ID, alert.Title)
				return nil
			})
		},
	}
}
