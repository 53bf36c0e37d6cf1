package cli

import (
	"bufio"
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/prts-dev/pipesync/internal/domain"
	"github.com/prts-dev/pipesync/internal/provider"
)

func loginCmd(rf *rootFlags) *cobra.Command {
	var username, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and store the session tokens in the config file",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, rf, func(ctx context.Context, s *session) error {
				if username == "" {
					username = s.cfg.API.Username
				}
				if username == "" || password == "" {
					var err error
					username, password, err = promptCredentials(cmd, username)
					if err != nil {
						return err
					}
				}
				if err := s.tokens.Login(ctx, username, password); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s. Token saved to %s\n", username, s.cfgPath)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&username, "username", "u", "", "Account username or email")
	cmd.Flags().StringVarP(&password, "password", "p", "", "Account password (read from stdin when omitted)")
	return cmd
}

// promptCredentials reads missing credentials line by line from stdin.
// Prompts go to stderr so stdout stays clean for piping.
func promptCredentials(cmd *cobra.Command, username string) (string, string, error) {
	in := bufio.NewReader(cmd.InOrStdin())
	if username == "" {
		fmt.Fprint(cmd.ErrOrStderr(), "Username: ")
		line, err := in.ReadString('\n')
		if err != nil && line == "" {
			return "", "", fmt.Errorf("reading username: %w", err)
		}
		username = strings.TrimSpace(line)
	}
	fmt.Fprint(cmd.ErrOrStderr(), "Password: ")
	line, err := in.ReadString('\n')
	if err != nil && line == "" {
		return "", "", fmt.Errorf("reading password: %w", err)
	}
	return username, strings.TrimRight(line, "\r\n"), nil
}

func logoutCmd(rf *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "End the session and forget the stored tokens",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, rf, func(ctx context.Context, s *session) error {
				if err := s.tokens.Logout(ctx); err != nil {
					// Local tokens are already gone; the backend call is best effort.
					s.logger.Warn("backend logout failed", "err", err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Logged out.")
				return nil
			})
		},
	}
}

func whoamiCmd(rf *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, rf, func(ctx context.Context, s *session) error {
				user, err := provider.Call(ctx, s.refresher, s.tokens.Flow().CurrentUser)
				if err != nil {
					return err
				}
				return render(cmd.OutOrStdout(), rf.Output, user, func() *table.Table {
					t := newTable("ID", "USERNAME", "EMAIL", "ROLE")
					return t.Row(user.ID, user.Username, user.Email, roleOrDash(user.Role))
				})
			})
		},
	}
}

func roleOrDash(r domain.Role) string {
	if r == "" {
		return "--"
	}
	return string(r)
}
