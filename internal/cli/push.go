package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/prts-dev/pipesync/internal/config"
	"github.com/prts-dev/pipesync/internal/notify"
	"github.com/prts-dev/pipesync/internal/provider"
)

func pushCmd(rf *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "push",
		Short: "Register for push notifications and route payloads",
	}
	cmd.AddCommand(pushRegisterCmd(rf))
	cmd.AddCommand(pushRouteCmd(rf))
	return cmd
}

// refreshingRegistrar registers push tokens with one silent token refresh on 401.
type refreshingRegistrar struct {
	s *session
}

func (r refreshingRegistrar) RegisterPushToken(ctx context.Context, token, platform string) error {
	_, err := provider.Call(ctx, r.s.refresher, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, r.s.client.RegisterPushToken(ctx, token, platform)
	})
	return err
}

func pushRegisterCmd(rf *rootFlags) *cobra.Command {
	var platform string
	cmd := &cobra.Command{
		Use:   "register <token>",
		Short: "Send a device push token to the backend",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, rf, func(ctx context.Context, s *session) error {
				if platform == "" {
					platform = s.cfg.PlatformOrDefault()
				}
				registrar := notify.NewRegistrar(refreshingRegistrar{s: s}, s.logger)
				if !registrar.Register(ctx, args[0], platform) {
					return fmt.Errorf("push token was not registered")
				}
				s.cfg.Push.Token = args[0]
				s.cfg.Push.Platform = platform
				if err := config.Save(s.cfgPath, *s.cfg); err != nil {
					return fmt.Errorf("saving push token: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Registered %s push token.\n", platform)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&platform, "platform", "", "Device platform (defaults to push.platform, then ios)")
	return cmd
}

// printNavigator writes navigation signals as lines instead of switching screens.
type printNavigator struct {
	w io.Writer
}

func (n printNavigator) NavigateToPipeline(id string) {
	fmt.Fprintf(n.w, "open pipeline %s\n", id)
}

func (n printNavigator) NavigateToAlerts(id string) {
	fmt.Fprintf(n.w, "open alerts %s\n", id)
}

func pushRouteCmd(rf *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "route <payload.json>",
		Short: "Route push payloads (one JSON object per line, - for stdin) and print where they lead",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in := cmd.InOrStdin()
			if args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return fmt.Errorf("opening payload file: %w", err)
				}
				defer f.Close()
				in = f
			}
			return withSession(cmd, rf, func(ctx context.Context, s *session) error {
				router := notify.NewRouter(printNavigator{w: cmd.OutOrStdout()}, nil, nil, nil, s.logger)
				return router.Consume(ctx, in)
			})
		},
	}
}
