// Package cli wires the pipesync command tree.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/prts-dev/pipesync/internal/api"
	"github.com/prts-dev/pipesync/internal/auth"
	"github.com/prts-dev/pipesync/internal/config"
	"github.com/prts-dev/pipesync/internal/provider"
)

type rootFlags struct {
	ConfigPath string
	APIURL     string
	Output     string
}

// Execute runs the command tree against os.Args.
// An interrupt cancels the command context.
func Execute(version string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	return NewRootCmd(version).ExecuteContext(ctx)
}

// NewRootCmd builds the command tree. Each call has its own flag state.
func NewRootCmd(version string) *cobra.Command {
	rf := &rootFlags{}
	rootCmd := &cobra.Command{
		Use:           "pipesync",
		Short:         "Follow CI/CD pipelines from the terminal with a live status card",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return validateOutput(rf.Output)
		},
	}

	rootCmd.PersistentFlags().StringVar(&rf.ConfigPath, "config", config.DefaultConfigPath(), "Path to config file")
	rootCmd.PersistentFlags().StringVar(&rf.APIURL, "api-url", "", "Backend origin (overrides api.url and PIPESYNC_API_URL)")
	rootCmd.PersistentFlags().StringVarP(&rf.Output, "output", "o", outputTable, "Output format: table, json or yaml")

	rootCmd.AddCommand(loginCmd(rf))
	rootCmd.AddCommand(logoutCmd(rf))
	rootCmd.AddCommand(whoamiCmd(rf))
	rootCmd.AddCommand(pipelinesCmd(rf))
	rootCmd.AddCommand(alertsCmd(rf))
	rootCmd.AddCommand(projectsCmd(rf))
	rootCmd.AddCommand(metricsCmd(rf))
	rootCmd.AddCommand(pushCmd(rf))
	rootCmd.AddCommand(watchCmd(rf))

	return rootCmd
}

// session is everything a command needs to talk to the backend.
type session struct {
	cfg       *config.Config
	cfgPath   string
	client    *api.Client
	tokens    *auth.TokenManager
	refresher *provider.Refresher
	logger    *log.Logger
	closeLog  func() error
}

// open loads config, builds the client and restores the stored session.
// logOut receives log output unless the config names a log file.
func (rf *rootFlags) open(logOut io.Writer) (*session, error) {
	cfg, err := config.LoadFrom(rf.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	// The flag is not written back on Save.
	origin := cfg.APIURLOrDefault()
	if rf.APIURL != "" {
		origin = rf.APIURL
	}

	logger, closeLog, err := newLogger(cfg, logOut)
	if err != nil {
		return nil, err
	}

	client, err := api.NewClient(origin, "", api.WithTimeout(cfg.TimeoutOrDefault()))
	if err != nil {
		closeLog()
		return nil, err
	}

	s := &session{
		cfg:      &cfg,
		cfgPath:  rf.ConfigPath,
		client:   client,
		logger:   logger,
		closeLog: closeLog,
	}
	s.tokens = auth.NewTokenManager(s.cfg, rf.ConfigPath, client)
	s.tokens.Restore()
	s.refresher = provider.NewRefresher("api", s.refreshToken, client.SetAuthToken)
	logger.Debug("session opened", "api", client.BaseURL(), "authenticated", client.HasAuthToken())
	return s, nil
}

// refreshToken refreshes the access token. A token that was obtained but
// could not be persisted is still used for this run.
func (s *session) refreshToken(ctx context.Context) (string, error) {
	token, err := s.tokens.Refresh(ctx)
	if err != nil && token != "" {
		s.logger.Warn("token refreshed but not saved", "err", err)
		return token, nil
	}
	return token, err
}

func (s *session) Close() error {
	return s.closeLog()
}

// withSession opens a session for the duration of fn.
func withSession(cmd *cobra.Command, rf *rootFlags, fn func(ctx context.Context, s *session) error) error {
	s, err := rf.open(cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer s.Close()
	return fn(cmd.Context(), s)
}

// Main runs the CLI and exits with status 1 on error.
func Main(version string) {
	if err := Execute(version); err != nil {
		fmt.Fprintf(os.Stderr, "pipesync: %v\n", err)
		os.Exit(1)
	}
}
