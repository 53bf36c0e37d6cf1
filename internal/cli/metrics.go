package cli

import (
	"context"
	"fmt"

	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/prts-dev/pipesync/internal/provider"
)

func metricsCmd(rf *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "metrics",
		Short: "Show platform health metrics",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, rf, func(ctx context.Context, s *session) error {
				m, err := provider.Call(ctx, s.refresher, s.client.GetMetrics)
				if err != nil {
					return err
				}
				return render(cmd.OutOrStdout(), rf.Output, m, func() *table.Table {
					return newTable("METRIC", "VALUE").
						Row("CPU", fmt.Sprintf("%.1f%%", m.CPUUsage)).
						Row("Memory", fmt.Sprintf("%.1f%%", m.MemoryUsage)).
						Row("Disk", fmt.Sprintf("%.1f%%", m.DiskUsage)).
						Row("Network in", fmt.Sprintf("%.1f MB/s", m.NetworkIn)).
						Row("Network out", fmt.Sprintf("%.1f MB/s", m.NetworkOut)).
						Row("Requests", fmt.Sprintf("%.0f/s", m.RequestsPerSecond)).
						Row("Error rate", fmt.Sprintf("%.2f%%", m.ErrorRate))
				})
			})
		},
	}
}
