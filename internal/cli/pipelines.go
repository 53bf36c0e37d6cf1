package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/prts-dev/pipesync/internal/domain"
	"github.com/prts-dev/pipesync/internal/git"
	"github.com/prts-dev/pipesync/internal/provider"
	"github.com/prts-dev/pipesync/internal/tui"
)

func pipelinesCmd(rf *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "pipelines",
		Aliases: []string{"pl"},
		Short:   "List and control pipelines",
	}
	cmd.AddCommand(pipelinesListCmd(rf))
	cmd.AddCommand(pipelinesGetCmd(rf))
	cmd.AddCommand(pipelineActionCmd(rf, "trigger", "Start a new run of a pipeline", (*session).trigger))
	cmd.AddCommand(pipelineActionCmd(rf, "cancel", "Cancel a running pipeline", (*session).cancel))
	cmd.AddCommand(pipelineActionCmd(rf, "retry", "Retry a failed pipeline", (*session).retry))
	return cmd
}

func pipelinesListCmd(rf *rootFlags) *cobra.Command {
	var branch string
	var currentBranch bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent pipelines",
		RunE: func(cmd *cobra.Command, args []string) error {
			if currentBranch {
				cwd, err := os.Getwd()
				if err != nil {
					return fmt.Errorf("getting current directory: %w", err)
				}
				if branch, err = git.CurrentBranch(cwd); err != nil {
					return err
				}
			}
			return withSession(cmd, rf, func(ctx context.Context, s *session) error {
				pipelines, err := provider.Call(ctx, s.refresher, s.client.GetPipelines)
				if err != nil {
					return err
				}
				pipelines = filterByBranch(pipelines, branch)
				return render(cmd.OutOrStdout(), rf.Output, pipelines, func() *table.Table {
					t := newTable("ID", "NAME", "BRANCH", "STATUS", "DURATION", "TRIGGERED BY")
					for _, p := range pipelines {
						t.Row(p.ID, p.Name, p.Branch, tui.RenderStatus(p.Status), p.Duration, p.TriggeredBy)
					}
					return t
				})
			})
		},
	}
	cmd.Flags().StringVarP(&branch, "branch", "b", "", "Only show pipelines for this branch")
	cmd.Flags().BoolVar(&currentBranch, "current-branch", false, "Only show pipelines for the branch checked out here")
	cmd.MarkFlagsMutuallyExclusive("branch", "current-branch")
	return cmd
}

func filterByBranch(pipelines []domain.Pipeline, branch string) []domain.Pipeline {
	if branch == "" {
		return pipelines
	}
	var out []domain.Pipeline
	for _, p := range pipelines {
		if p.Branch == branch {
			out = append(out, p)
		}
	}
	return out
}

func pipelinesGetCmd(rf *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Show one pipeline with its stages",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, rf, func(ctx context.Context, s *session) error {
				p, err := provider.NewRefreshingSource(s.client, s.refresher).GetPipeline(ctx, args[0])
				if err != nil {
					return err
				}
				return render(cmd.OutOrStdout(), rf.Output, p, func() *table.Table {
					fmt.Fprintf(cmd.OutOrStdout(), "%s #%s on %s: %s (%s)\n",
						p.Name, p.ID, p.Branch, tui.StatusLabel(p.Status), p.Duration)
					return stagesTable(p)
				})
			})
		},
	}
}

func stagesTable(p domain.Pipeline) *table.Table {
	t := newTable("STAGE", "STATUS", "DURATION", "JOBS")
	for _, st := range p.Stages {
		t.Row(st.Name, tui.RenderStatus(st.Status), st.Duration, fmt.Sprintf("%d", len(st.Jobs)))
	}
	return t
}

type pipelineAction func(s *session, ctx context.Context, id string) (domain.Pipeline, error)

func (s *session) trigger(ctx context.Context, id string) (domain.Pipeline, error) {
	return provider.Call(ctx, s.refresher, func(ctx context.Context) (domain.Pipeline, error) {
		return s.client.TriggerPipeline(ctx, id)
	})
}

func (s *session) cancel(ctx context.Context, id string) (domain.Pipeline, error) {
	return provider.Call(ctx, s.refresher, func(ctx context.Context) (domain.Pipeline, error) {
		return s.client.CancelPipeline(ctx, id)
	})
}

func (s *session) retry(ctx context.Context, id string) (domain.Pipeline, error) {
	return provider.Call(ctx, s.refresher, func(ctx context.Context) (domain.Pipeline, error) {
		return s.client.RetryPipeline(ctx, id)
	})
}

func pipelineActionCmd(rf *rootFlags, use, short string, action pipelineAction) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, rf, func(ctx context.Context, s *session) error {
				p, err := action(s, ctx, args[0])
				if err != nil {
					return fmt.Errorf("%s pipeline %s: %w", use, args[0], err)
				}
				if rf.Output != outputTable {
					return render(cmd.OutOrStdout(), rf.Output, p, nil)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s #%s: %s\n", p.Name, p.ID, tui.RenderStatus(p.Status))
				return nil
			})
		},
	}
}
