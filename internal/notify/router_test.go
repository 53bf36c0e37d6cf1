package notify_test

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/prts-dev/pipesync/internal/domain"
	"github.com/prts-dev/pipesync/internal/liveactivity"
	"github.com/prts-dev/pipesync/internal/notify"
)

type fakeNavigator struct {
	pipelines []string
	alerts    []string
}

func (n *fakeNavigator) NavigateToPipeline(id string) { n.pipelines = append(n.pipelines, id) }
func (n *fakeNavigator) NavigateToAlerts(id string)   { n.alerts = append(n.alerts, id) }

type fixedTracker string

func (f fixedTracker) TrackedPipeline() string { return string(f) }

type fakeActivity struct {
	state   liveactivity.State
	updates []liveactivity.Content
	ended   []domain.Status
}

func (a *fakeActivity) State() liveactivity.State { return a.state }

func (a *fakeActivity) Update(status domain.Status, stage string, progress float64, elapsed string) {
	c := liveactivity.Content{Status: status, CurrentStage: stage, Progress: progress, ElapsedTime: elapsed}
	a.updates = append(a.updates, c)
	a.state.Content = c
}

func (a *fakeActivity) End(final domain.Status) { a.ended = append(a.ended, final) }

type fakeRefresher struct {
	ids []string
	err error
}

func (f *fakeRefresher) Refresh(_ context.Context, id string) (domain.Pipeline, error) {
	f.ids = append(f.ids, id)
	return domain.Pipeline{ID: id}, f.err
}

func activeActivity() *fakeActivity {
	return &fakeActivity{state: liveactivity.State{
		Phase: liveactivity.PhaseActive,
		Content: liveactivity.Content{
			Status: domain.StatusRunning, CurrentStage: "Build", Progress: 0.2, ElapsedTime: "30s",
		},
	}}
}

func discard() *log.Logger { return log.New(io.Discard) }

func TestParsePayload(t *testing.T) {
	p, err := notify.ParsePayload([]byte(`{"type":"pipeline","pipelineId":"42","status":"running","progress":0.5}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.TargetID() != "42" {
		t.Errorf("expected target '42', got '%s'", p.TargetID())
	}
	if p.Progress == nil || *p.Progress != 0.5 {
		t.Errorf("expected progress 0.5, got %v", p.Progress)
	}

	alert, _ := notify.ParsePayload([]byte(`{"type":"alert","id":"a-1"}`))
	if alert.TargetID() != "a-1" {
		t.Errorf("expected generic id fallback, got '%s'", alert.TargetID())
	}

	if _, err := notify.ParsePayload([]byte(`not json`)); err == nil {
		t.Error("expected error for malformed payload")
	}
}

func TestRoute_AlertNavigates(t *testing.T) {
	nav := &fakeNavigator{}
	r := notify.NewRouter(nav, nil, nil, nil, discard())

	got := r.Route(context.Background(), notify.Payload{Type: "alert", AlertID: "a-9"})

	if got != notify.OutcomeAlert {
		t.Errorf("expected alert outcome, got %s", got)
	}
	if len(nav.alerts) != 1 || nav.alerts[0] != "a-9" {
		t.Errorf("expected NavigateToAlerts(a-9), got %v", nav.alerts)
	}
}

func TestRoute_UnknownTypeIsDropped(t *testing.T) {
	nav := &fakeNavigator{}
	refresher := &fakeRefresher{}
	r := notify.NewRouter(nav, fixedTracker("1"), activeActivity(), refresher, discard())

	for _, typ := range []string{"", "deploy", "PIPELINE"} {
		if got := r.Route(context.Background(), notify.Payload{Type: typ, ID: "1"}); got != notify.OutcomeDropped {
			t.Errorf("type %q: expected dropped, got %s", typ, got)
		}
	}
	if len(nav.pipelines)+len(nav.alerts)+len(refresher.ids) != 0 {
		t.Error("dropped payloads must have no side effects")
	}
}

func TestRoute_UntrackedPipelineOnlyNavigates(t *testing.T) {
	nav := &fakeNavigator{}
	refresher := &fakeRefresher{}
	activity := activeActivity()
	r := notify.NewRouter(nav, fixedTracker("1"), activity, refresher, discard())

	got := r.Route(context.Background(), notify.Payload{Type: "pipeline", PipelineID: "2", Status: "failed"})

	if got != notify.OutcomePipeline {
		t.Errorf("expected pipeline outcome, got %s", got)
	}
	if len(nav.pipelines) != 1 || nav.pipelines[0] != "2" {
		t.Errorf("expected NavigateToPipeline(2), got %v", nav.pipelines)
	}
	if len(activity.ended)+len(activity.updates)+len(refresher.ids) != 0 {
		t.Error("untracked pipelines must not touch the activity or refresh")
	}
}

func TestRoute_TrackedPipelineUpdatesWithFallbacks(t *testing.T) {
	nav := &fakeNavigator{}
	refresher := &fakeRefresher{}
	activity := activeActivity()
	r := notify.NewRouter(nav, fixedTracker("1"), activity, refresher, discard())

	progress := 0.6
	got := r.Route(context.Background(), notify.Payload{Type: "pipeline", ID: "1", Stage: "Test", Progress: &progress})

	if got != notify.OutcomeTrackedPipeline {
		t.Errorf("expected tracked outcome, got %s", got)
	}
	if len(activity.updates) != 1 {
		t.Fatalf("expected one update, got %d", len(activity.updates))
	}
	want := liveactivity.Content{Status: domain.StatusRunning, CurrentStage: "Test", Progress: 0.6, ElapsedTime: "30s"}
	if activity.updates[0] != want {
		t.Errorf("expected %+v, got %+v", want, activity.updates[0])
	}
	if len(refresher.ids) != 1 || refresher.ids[0] != "1" {
		t.Errorf("expected a refresh of '1', got %v", refresher.ids)
	}
}

func TestRoute_TrackedPipelineTerminalStatusEnds(t *testing.T) {
	activity := activeActivity()
	r := notify.NewRouter(&fakeNavigator{}, fixedTracker("1"), activity, &fakeRefresher{}, discard())

	r.Route(context.Background(), notify.Payload{Type: "pipeline", PipelineID: "1", Status: "success"})

	if len(activity.ended) != 1 || activity.ended[0] != domain.StatusSuccess {
		t.Errorf("expected End(success), got %v", activity.ended)
	}
	if len(activity.updates) != 0 {
		t.Errorf("expected no update, got %d", len(activity.updates))
	}
}

func TestRoute_UnknownStatusFallsBackToCurrent(t *testing.T) {
	activity := activeActivity()
	r := notify.NewRouter(&fakeNavigator{}, fixedTracker("1"), activity, &fakeRefresher{}, discard())

	r.Route(context.Background(), notify.Payload{Type: "pipeline", PipelineID: "1", Status: "exploded"})

	if len(activity.updates) != 1 || activity.updates[0].Status != domain.StatusRunning {
		t.Errorf("expected update keeping running status, got %+v", activity.updates)
	}
}

func TestRoute_RefreshFailureIsNotFatal(t *testing.T) {
	nav := &fakeNavigator{}
	r := notify.NewRouter(nav, fixedTracker("1"), nil, &fakeRefresher{err: errors.New("down")}, discard())

	got := r.Route(context.Background(), notify.Payload{Type: "pipeline", PipelineID: "1"})

	if got != notify.OutcomeTrackedPipeline {
		t.Errorf("expected tracked outcome, got %s", got)
	}
}

func TestConsume_RoutesEachLine(t *testing.T) {
	nav := &fakeNavigator{}
	r := notify.NewRouter(nav, nil, nil, nil, discard())
	in := strings.NewReader(`{"type":"alert","alertId":"a"}

garbage
{"type":"pipeline","pipelineId":"p"}
{"type":"other"}
`)
	if err := r.Consume(context.Background(), in); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(nav.alerts) != 1 || len(nav.pipelines) != 1 {
		t.Errorf("expected 1 alert and 1 pipeline, got %v and %v", nav.alerts, nav.pipelines)
	}
}
