package statussync_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"github.com/prts-dev/pipesync/internal/api"
	"github.com/prts-dev/pipesync/internal/domain"
	"github.com/prts-dev/pipesync/internal/statussync"
)

type result struct {
	p   domain.Pipeline
	err error
}

// scriptedSource returns its results in order and repeats the last one.
type scriptedSource struct {
	mu      sync.Mutex
	results []result
	calls   int
}

func (s *scriptedSource) GetPipeline(_ context.Context, _ string) (domain.Pipeline, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := min(s.calls, len(s.results)-1)
	s.calls++
	return s.results[i].p, s.results[i].err
}

// recorder collects subscriber events.
type recorder struct {
	mu          sync.Mutex
	transitions []statussync.Transition
	failures    []error
}

func (r *recorder) OnTransition(tr statussync.Transition) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.transitions = append(r.transitions, tr)
}

func (r *recorder) OnFetchFailed(_ string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failures = append(r.failures, err)
}

func discard() *log.Logger { return log.New(io.Discard) }

func running() domain.Pipeline {
	return domain.Pipeline{
		ID:       "1",
		Status:   domain.StatusRunning,
		Duration: "1m",
		Stages:   []domain.Stage{{ID: "s1", Name: "Build", Status: domain.StatusRunning}},
	}
}

func succeeded() domain.Pipeline {
	return domain.Pipeline{
		ID:       "1",
		Status:   domain.StatusSuccess,
		Duration: "2m",
		Stages:   []domain.Stage{{ID: "s1", Name: "Build", Status: domain.StatusSuccess}},
	}
}

func TestRefresh_UntrackedReturnsErrNotTracked(t *testing.T) {
	s := statussync.New(&scriptedSource{results: []result{{p: running()}}}, discard())
	_, err := s.Refresh(context.Background(), "1")
	if !errors.Is(err, statussync.ErrNotTracked) {
		t.Errorf("expected ErrNotTracked, got %v", err)
	}
}

func TestRefresh_FirstFetchIsBaselineWithoutEvent(t *testing.T) {
	s := statussync.New(&scriptedSource{results: []result{{p: running()}}}, discard())
	rec := &recorder{}
	s.Subscribe(rec)
	s.Track("1")

	if _, ok := s.Snapshot("1"); ok {
		t.Error("expected unknown snapshot before first fetch")
	}
	got, err := s.Refresh(context.Background(), "1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Status != domain.StatusRunning {
		t.Errorf("expected running, got '%s'", got.Status)
	}
	if len(rec.transitions) != 0 {
		t.Errorf("expected no transition on first fetch, got %d", len(rec.transitions))
	}
	if snap, ok := s.Snapshot("1"); !ok || snap.Status != domain.StatusRunning {
		t.Errorf("expected stored running snapshot, got %+v ok=%v", snap, ok)
	}
}

func TestRefresh_UnchangedSnapshotsFireNoEvents(t *testing.T) {
	same := running()
	later := running()
	later.Duration = "1m30s"
	src := &scriptedSource{results: []result{{p: same}, {p: same}, {p: later}, {p: later}}}
	s := statussync.New(src, discard())
	rec := &recorder{}
	s.Subscribe(rec)
	s.Track("1")

	for i := 0; i < 5; i++ {
		if _, err := s.Refresh(context.Background(), "1"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if len(rec.transitions) != 0 {
		t.Errorf("expected zero transitions, got %d", len(rec.transitions))
	}
	snap, _ := s.Snapshot("1")
	if snap.Duration != "1m30s" {
		t.Errorf("expected display fields refreshed to '1m30s', got '%s'", snap.Duration)
	}
}

func TestRefresh_StatusChangeFiresExactlyOneTransition(t *testing.T) {
	src := &scriptedSource{results: []result{{p: running()}, {p: succeeded()}}}
	s := statussync.New(src, discard())
	rec := &recorder{}
	s.Subscribe(rec)
	s.Track("1")

	for i := 0; i < 3; i++ {
		if _, err := s.Refresh(context.Background(), "1"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if len(rec.transitions) != 1 {
		t.Fatalf("expected exactly one transition, got %d", len(rec.transitions))
	}
	tr := rec.transitions[0]
	if tr.ID != "1" {
		t.Errorf("expected id '1', got '%s'", tr.ID)
	}
	if tr.Old.Status != domain.StatusRunning || tr.New.Status != domain.StatusSuccess {
		t.Errorf("expected running -> success, got %s -> %s", tr.Old.Status, tr.New.Status)
	}
}

func TestRefresh_StageOnlyChangeIsATransition(t *testing.T) {
	first := running()
	first.Stages = append(first.Stages, domain.Stage{ID: "s2", Name: "Test", Status: domain.StatusPending})
	second := running()
	second.Stages = []domain.Stage{
		{ID: "s1", Name: "Build", Status: domain.StatusSuccess},
		{ID: "s2", Name: "Test", Status: domain.StatusRunning},
	}
	src := &scriptedSource{results: []result{{p: first}, {p: second}}}
	s := statussync.New(src, discard())
	rec := &recorder{}
	s.Subscribe(rec)
	s.Track("1")

	s.Refresh(context.Background(), "1")
	s.Refresh(context.Background(), "1")

	if len(rec.transitions) != 1 {
		t.Fatalf("expected one transition, got %d", len(rec.transitions))
	}
	if rec.transitions[0].New.Stages[1].Status != domain.StatusRunning {
		t.Errorf("unexpected new stage status: %s", rec.transitions[0].New.Stages[1].Status)
	}
}

func TestRefresh_SubscribersNotifiedInOrderAndCancellable(t *testing.T) {
	src := &scriptedSource{results: []result{{p: running()}, {p: succeeded()}}}
	s := statussync.New(src, discard())
	var order []string
	s.Subscribe(statussync.SubscriberFuncs{Transition: func(statussync.Transition) { order = append(order, "a") }})
	cancel := s.Subscribe(statussync.SubscriberFuncs{Transition: func(statussync.Transition) { order = append(order, "b") }})
	s.Subscribe(statussync.SubscriberFuncs{Transition: func(statussync.Transition) { order = append(order, "c") }})
	cancel()
	s.Track("1")

	s.Refresh(context.Background(), "1")
	s.Refresh(context.Background(), "1")

	if len(order) != 2 || order[0] != "a" || order[1] != "c" {
		t.Errorf("expected [a c], got %v", order)
	}
}

func TestRefresh_TerminalContradictionIsCountedAndAccepted(t *testing.T) {
	failed := succeeded()
	failed.Status = domain.StatusFailed
	src := &scriptedSource{results: []result{{p: succeeded()}, {p: failed}}}
	s := statussync.New(src, discard())
	rec := &recorder{}
	s.Subscribe(rec)
	s.Track("1")

	s.Refresh(context.Background(), "1")
	if s.Anomalies() != 0 {
		t.Fatalf("expected no anomalies after baseline, got %d", s.Anomalies())
	}
	if _, err := s.Refresh(context.Background(), "1"); err != nil {
		t.Fatalf("anomaly must not surface as an error, got %v", err)
	}
	if s.Anomalies() != 1 {
		t.Errorf("expected 1 anomaly, got %d", s.Anomalies())
	}
	snap, _ := s.Snapshot("1")
	if snap.Status != domain.StatusFailed {
		t.Errorf("expected snapshot updated to failed, got '%s'", snap.Status)
	}
	if len(rec.transitions) != 1 {
		t.Errorf("expected the change to still be a transition, got %d", len(rec.transitions))
	}
}

func TestRefresh_FetchFailureKeepsSnapshotAndNotifies(t *testing.T) {
	boom := errors.New("boom")
	src := &scriptedSource{results: []result{{p: running()}, {err: boom}}}
	s := statussync.New(src, discard())
	rec := &recorder{}
	s.Subscribe(rec)
	s.Track("1")

	s.Refresh(context.Background(), "1")
	_, err := s.Refresh(context.Background(), "1")

	var fetchErr *statussync.FetchError
	if !errors.As(err, &fetchErr) {
		t.Fatalf("expected FetchError, got %T %v", err, err)
	}
	if fetchErr.ID != "1" || !errors.Is(err, boom) {
		t.Errorf("unexpected fetch error: %v", err)
	}
	if len(rec.failures) != 1 || len(rec.transitions) != 0 {
		t.Errorf("expected 1 failure and 0 transitions, got %d and %d", len(rec.failures), len(rec.transitions))
	}
	snap, _ := s.Snapshot("1")
	if snap.Status != domain.StatusRunning {
		t.Errorf("expected snapshot unchanged, got '%s'", snap.Status)
	}
}

func TestRefresh_ServerErrorSurfacesHTTPError(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.Write([]byte(`{"id":"1","name":"deploy","status":"running","branch":"main","duration":"10s"}`))
			return
		}
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client, err := api.NewClient(server.URL, "")
	if err != nil {
		t.Fatal(err)
	}
	s := statussync.New(client, discard())
	rec := &recorder{}
	s.Subscribe(rec)
	s.Track("1")

	if _, err := s.Refresh(context.Background(), "1"); err != nil {
		t.Fatalf("unexpected baseline error: %v", err)
	}
	_, err = s.Refresh(context.Background(), "1")

	var httpErr *api.HTTPError
	if !errors.As(err, &httpErr) || httpErr.StatusCode != http.StatusInternalServerError {
		t.Fatalf("expected HTTPError{500}, got %v", err)
	}
	snap, ok := s.Snapshot("1")
	if !ok || snap.Status != domain.StatusRunning || snap.Name != "deploy" {
		t.Errorf("expected last-known snapshot unchanged, got %+v", snap)
	}
	if len(rec.failures) != 1 {
		t.Errorf("expected one failure notification, got %d", len(rec.failures))
	}
	if len(rec.transitions) != 0 {
		t.Errorf("expected no transition, got %d", len(rec.transitions))
	}
}

// gatedSource hands each fetch to the test, which decides when and with what it completes.
type gatedSource struct {
	calls chan chan result
}

func (g *gatedSource) GetPipeline(ctx context.Context, _ string) (domain.Pipeline, error) {
	reply := make(chan result)
	g.calls <- reply
	select {
	case r := <-reply:
		return r.p, r.err
	case <-ctx.Done():
		return domain.Pipeline{}, ctx.Err()
	}
}

type refreshOutcome struct {
	p   domain.Pipeline
	err error
}

func startRefresh(s *statussync.Synchronizer, id string) <-chan refreshOutcome {
	done := make(chan refreshOutcome, 1)
	go func() {
		p, err := s.Refresh(context.Background(), id)
		done <- refreshOutcome{p, err}
	}()
	return done
}

func receive[T any](t *testing.T, ch <-chan T) T {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(2 * time.Second):
		t.Fatal("timed out")
		var zero T
		return zero
	}
}

func TestRefresh_OutOfOrderCompletionKeepsNewerSnapshot(t *testing.T) {
	src := &gatedSource{calls: make(chan chan result)}
	s := statussync.New(src, discard())
	rec := &recorder{}
	s.Subscribe(rec)
	s.Track("1")

	older := startRefresh(s, "1")
	olderReply := receive(t, src.calls)
	newer := startRefresh(s, "1")
	newerReply := receive(t, src.calls)

	newerReply <- result{p: succeeded()}
	if out := receive(t, newer); out.err != nil || out.p.Status != domain.StatusSuccess {
		t.Fatalf("unexpected newer outcome: %+v", out)
	}
	olderReply <- result{p: running()}
	out := receive(t, older)
	if out.err != nil {
		t.Fatalf("unexpected error: %v", out.err)
	}
	if out.p.Status != domain.StatusSuccess {
		t.Errorf("stale refresh should return the current snapshot, got '%s'", out.p.Status)
	}

	snap, _ := s.Snapshot("1")
	if snap.Status != domain.StatusSuccess {
		t.Errorf("expected newer snapshot to win, got '%s'", snap.Status)
	}
	if len(rec.transitions) != 0 {
		t.Errorf("expected no transitions from a discarded result, got %d", len(rec.transitions))
	}
	if s.Anomalies() != 0 {
		t.Errorf("a discarded result must not count as an anomaly, got %d", s.Anomalies())
	}
}

func TestRefresh_SupersededFailureIsNotReported(t *testing.T) {
	src := &gatedSource{calls: make(chan chan result)}
	s := statussync.New(src, discard())
	rec := &recorder{}
	s.Subscribe(rec)
	s.Track("1")

	older := startRefresh(s, "1")
	olderReply := receive(t, src.calls)
	newer := startRefresh(s, "1")
	newerReply := receive(t, src.calls)

	newerReply <- result{p: succeeded()}
	if out := receive(t, newer); out.err != nil {
		t.Fatalf("unexpected error: %v", out.err)
	}
	olderReply <- result{err: errors.New("timeout")}
	out := receive(t, older)
	if out.err != nil {
		t.Fatalf("expected superseded failure to be ignored, got %v", out.err)
	}
	if out.p.Status != domain.StatusSuccess {
		t.Errorf("expected the current snapshot, got '%s'", out.p.Status)
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()
	if len(rec.failures) != 0 {
		t.Errorf("expected no failure notification, got %d", len(rec.failures))
	}
}

func TestRefresh_ServerTimestampOverridesIssueOrder(t *testing.T) {
	src := &gatedSource{calls: make(chan chan result)}
	s := statussync.New(src, discard())
	s.Track("1")

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	first := startRefresh(s, "1")
	firstReply := receive(t, src.calls)
	second := startRefresh(s, "1")
	secondReply := receive(t, src.calls)

	// The later-issued request observed an older server state.
	newerState := succeeded()
	newerState.UpdatedAt = base.Add(time.Minute)
	olderState := running()
	olderState.UpdatedAt = base

	firstReply <- result{p: newerState}
	receive(t, first)
	secondReply <- result{p: olderState}
	receive(t, second)

	snap, _ := s.Snapshot("1")
	if snap.Status != domain.StatusSuccess {
		t.Errorf("expected the snapshot with the later updatedAt to win, got '%s'", snap.Status)
	}
}

func TestRefresh_UntrackDuringFetchDiscardsResult(t *testing.T) {
	src := &gatedSource{calls: make(chan chan result)}
	s := statussync.New(src, discard())
	rec := &recorder{}
	s.Subscribe(rec)
	s.Track("1")

	pending := startRefresh(s, "1")
	reply := receive(t, src.calls)
	s.Untrack("1")
	s.Track("1")
	reply <- result{p: running()}

	out := receive(t, pending)
	if !errors.Is(out.err, statussync.ErrNotTracked) {
		t.Errorf("expected ErrNotTracked, got %v", out.err)
	}
	if _, ok := s.Snapshot("1"); ok {
		t.Error("expected re-tracked entry to stay unknown")
	}
}

func TestTrackUntrack(t *testing.T) {
	s := statussync.New(&scriptedSource{results: []result{{p: running()}}}, discard())
	s.Track("a")
	s.Track("b")
	s.Track("a")
	if got := s.Tracked(); len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Errorf("expected [a b], got %v", got)
	}
	s.Untrack("a")
	if got := s.Tracked(); len(got) != 1 || got[0] != "b" {
		t.Errorf("expected [b], got %v", got)
	}
}

func TestSnapshot_ReturnsCopy(t *testing.T) {
	s := statussync.New(&scriptedSource{results: []result{{p: running()}}}, discard())
	s.Track("1")
	s.Refresh(context.Background(), "1")

	snap, _ := s.Snapshot("1")
	snap.Stages[0].Status = domain.StatusFailed

	again, _ := s.Snapshot("1")
	if again.Stages[0].Status != domain.StatusRunning {
		t.Errorf("mutating a returned snapshot must not affect stored state")
	}
}
