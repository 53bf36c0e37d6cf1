package cli

import (
	"context"
	"fmt"
	"strconv"

	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/prts-dev/pipesync/internal/domain"
	"github.com/prts-dev/pipesync/internal/provider"
)

func projectsCmd(rf *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "projects",
		Short: "List and create projects",
	}
	cmd.AddCommand(projectsListCmd(rf))
	cmd.AddCommand(projectsCreateCmd(rf))
	return cmd
}

func projectsListCmd(rf *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List projects",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, rf, func(ctx context.Context, s *session) error {
				projects, err := provider.Call(ctx, s.refresher, s.client.GetProjects)
				if err != nil {
					return err
				}
				return render(cmd.OutOrStdout(), rf.Output, projects, func() *table.Table {
					t := newTable("ID", "PROJECT", "PIPELINES", "MEMBERS", "LAST ACTIVITY")
					for _, p := range projects {
						t.Row(p.ID, projectTitle(p), strconv.Itoa(p.PipelinesCount), strconv.Itoa(p.MembersCount), p.LastActivity)
					}
					return t
				})
			})
		},
	}
}

func projectTitle(p domain.Project) string {
	if p.Emoji == "" {
		return p.Name
	}
	return p.Emoji + " " + p.Name
}

func projectsCreateCmd(rf *rootFlags) *cobra.Command {
	var p domain.Project
	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p.Name = args[0]
			return withSession(cmd, rf, func(ctx context.Context, s *session) error {
				created, err := provider.Call(ctx, s.refresher, func(ctx context.Context) (domain.Project, error) {
					return s.client.CreateProject(ctx, p)
				})
				if err != nil {
					return err
				}
				if rf.Output != outputTable {
					return render(cmd.OutOrStdout(), rf.Output, created, nil)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Created project %s (%s)\n", projectTitle(created), created.ID)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&p.Description, "description", "d", "", "Project description")
	cmd.Flags().StringVar(&p.Emoji, "emoji", "", "Emoji shown next to the name")
	return cmd
}
