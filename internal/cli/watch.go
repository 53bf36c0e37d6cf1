package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/prts-dev/pipesync/internal/domain"
	"github.com/prts-dev/pipesync/internal/liveactivity"
	"github.com/prts-dev/pipesync/internal/notify"
	"github.com/prts-dev/pipesync/internal/provider"
	"github.com/prts-dev/pipesync/internal/statussync"
	"github.com/prts-dev/pipesync/internal/tui"
)

type watchFlags struct {
	Latest   bool
	PushFile string
	NoTUI    bool
}

func watchCmd(rf *rootFlags) *cobra.Command {
	wf := &watchFlags{}
	cmd := &cobra.Command{
		Use:   "watch [<id>]",
		Short: "Follow one pipeline with a live status card",
		Long: `Follow one pipeline until you quit. The live card shows the current stage,
progress and elapsed time, and lingers after the run finishes.

Push payloads (one JSON object per line) can be fed through --push-file,
which may be a named pipe.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if (len(args) == 1) == wf.Latest {
				return errors.New("give either a pipeline id or --latest")
			}
			logOut := cmd.ErrOrStderr()
			if !wf.NoTUI {
				// The TUI owns the terminal; logs go to [log] file or nowhere.
				logOut = io.Discard
			}
			s, err := rf.open(logOut)
			if err != nil {
				return err
			}
			defer s.Close()

			ctx := cmd.Context()
			id := ""
			if len(args) == 1 {
				id = args[0]
			} else if id, err = latestPipeline(ctx, s); err != nil {
				return err
			}

			w := newWatcher(s, id)
			if wf.NoTUI {
				return w.runHeadless(ctx, cmd.OutOrStdout(), wf.PushFile)
			}
			return w.runTUI(ctx, wf.PushFile)
		},
	}
	cmd.Flags().BoolVar(&wf.Latest, "latest", false, "Watch the most recent pipeline")
	cmd.Flags().StringVar(&wf.PushFile, "push-file", "", "Read push payloads from this file or pipe")
	cmd.Flags().BoolVar(&wf.NoTUI, "no-tui", false, "Print activity changes as lines instead of a full-screen view")
	return cmd
}

// latestPipeline returns the ID of the first pipeline the server lists.
func latestPipeline(ctx context.Context, s *session) (string, error) {
	pipelines, err := provider.Call(ctx, s.refresher, s.client.GetPipelines)
	if err != nil {
		return "", err
	}
	if len(pipelines) == 0 {
		return "", errors.New("no pipelines found")
	}
	return pipelines[0].ID, nil
}

// watcher wires one tracked pipeline through the synchronizer, the live
// activity and the push router. A retry that creates a new run moves
// everything over to the new ID.
type watcher struct {
	s    *session
	sync *statussync.Synchronizer

	bridge *liveactivity.Bridge
	router *notify.Router

	mu sync.Mutex
	id string
}

func newWatcher(s *session, id string) *watcher {
	source := provider.NewRefreshingSource(s.client, s.refresher)
	w := &watcher{s: s, id: id, sync: statussync.New(source, s.logger)}
	w.sync.Track(id)
	return w
}

// attach builds the activity controller on host and subscribes it.
// A disabled live activity replaces host with liveactivity.DisabledHost.
func (w *watcher) attach(host liveactivity.Host, nav notify.Navigator) {
	if w.s.cfg.LiveActivity.Disabled {
		host = liveactivity.DisabledHost{}
	}
	ctrl := liveactivity.NewController(host, w.s.logger, liveactivity.WithLinger(w.s.cfg.LingerOrDefault()))
	w.bridge = liveactivity.NewBridge(ctrl, w.s.logger)
	w.bridge.Follow(w.currentID())
	w.sync.Subscribe(w.bridge)
	w.router = notify.NewRouter(nav, w.bridge, ctrl, w.sync, w.s.logger)
}

func (w *watcher) currentID() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.id
}

// refresh fetches the pipeline. The first success starts the activity from
// the newest stored snapshot unless a transition has started it already.
func (w *watcher) refresh(ctx context.Context, id string) (domain.Pipeline, error) {
	p, err := w.sync.Refresh(ctx, id)
	if err != nil {
		return p, err
	}
	latest := p
	if snap, ok := w.sync.Snapshot(id); ok {
		latest = snap
	}
	w.bridge.Begin(latest)
	return p, nil
}

// retry starts a new run and restarts the activity on it.
func (w *watcher) retry(ctx context.Context, id string) (domain.Pipeline, error) {
	p, err := w.s.retry(ctx, id)
	if err != nil {
		return p, err
	}
	w.follow(p)
	return p, nil
}

// follow switches tracking to p when it is a different run.
func (w *watcher) follow(p domain.Pipeline) {
	w.mu.Lock()
	if p.ID != "" && p.ID != w.id {
		w.sync.Untrack(w.id)
		w.sync.Track(p.ID)
		w.id = p.ID
	}
	w.mu.Unlock()
	w.bridge.Track(p)
}

// consumePush routes payloads from path until it ends or ctx is cancelled.
func (w *watcher) consumePush(ctx context.Context, path string) {
	if path == "" {
		return
	}
	go func() {
		f, err := os.Open(path)
		if err != nil {
			w.s.logger.Error("opening push file", "path", path, "err", err)
			return
		}
		defer f.Close()
		if err := w.router.Consume(ctx, f); err != nil && !errors.Is(err, context.Canceled) {
			w.s.logger.Error("reading push file", "path", path, "err", err)
		}
	}()
}

func (w *watcher) runTUI(ctx context.Context, pushFile string) error {
	m := tui.NewWatchModel(w.currentID())
	m.Interval = w.s.cfg.PollIntervalOrDefault()
	m.ActiveInterval = w.s.cfg.ActiveIntervalOrDefault()
	m.OnRefresh = w.refresh
	m.OnRetry = w.retry
	m.OnCancel = w.s.cancel

	program := tui.NewProgram(m, tea.WithContext(ctx))
	w.attach(tui.NewProgramHost(program), tui.NewProgramNavigator(program))
	// Refreshes started by push payloads reach the view through here.
	w.sync.Subscribe(statussync.SubscriberFuncs{
		Transition: func(tr statussync.Transition) {
			program.Send(tui.SnapshotMsg{ID: tr.ID, Pipeline: tr.New})
		},
	})

	pushCtx, stop := context.WithCancel(ctx)
	defer stop()
	w.consumePush(pushCtx, pushFile)

	_, err := program.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}

// runHeadless polls until the pipeline finishes or ctx is cancelled.
func (w *watcher) runHeadless(ctx context.Context, out io.Writer, pushFile string) error {
	ctx, stop := context.WithCancel(ctx)
	defer stop()

	w.attach(tui.NewLineHost(out), printNavigator{w: out})
	w.sync.Subscribe(statussync.SubscriberFuncs{
		Transition: func(tr statussync.Transition) {
			if tr.ID == w.currentID() && tr.New.Status.IsTerminal() {
				stop()
			}
		},
	})

	id := w.currentID()
	p, err := w.refresh(ctx, id)
	if err != nil {
		return fmt.Errorf("watching pipeline %s: %w", id, err)
	}
	if p.Status.IsTerminal() {
		return nil
	}

	w.consumePush(ctx, pushFile)
	poller := statussync.NewPoller(w.sync, w.s.logger)
	poller.Interval = w.s.cfg.PollIntervalOrDefault()
	poller.ActiveInterval = w.s.cfg.ActiveIntervalOrDefault()
	if err := poller.Run(ctx); !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
