package journal_test

import (
	"context"
	"errors"
	"path/filepath"
	"reflect"
	"testing"

	"mulmocast/internal/journal"
	"mulmocast/internal/logging"
	"mulmocast/internal/session"
	"mulmocast/internal/testsupport"
)

func TestRunLifecycle(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenJournal(t, cfg)
	ctx := context.Background()

	if err := store.BeginRun(ctx, journal.Run{ID: "run-1", ScriptName: "demo", ScriptPath: "/tmp/demo.json", Languages: []string{"en", "ja"}}); err != nil {
		t.Fatalf("BeginRun failed: %v", err)
	}
	run, err := store.GetRun(ctx, "run-1")
	if err != nil || run == nil {
		t.Fatalf("GetRun: %v %#v", err, run)
	}
	if run.Status != journal.RunRunning || run.FinishedAt != nil {
		t.Fatalf("unexpected running state %#v", run)
	}
	if !reflect.DeepEqual(run.Languages, []string{"en", "ja"}) {
		t.Fatalf("unexpected languages %v", run.Languages)
	}

	if err := store.FinishRun(ctx, "run-1", "", errors.New("generation error: audio")); err != nil {
		t.Fatalf("FinishRun failed: %v", err)
	}
	run, _ = store.GetRun(ctx, "run-1")
	if run.Status != journal.RunFailed || run.ErrorMessage != "generation error: audio" || run.FinishedAt == nil {
		t.Fatalf("unexpected failed state %#v", run)
	}

	if err := store.FinishRun(ctx, "missing", "", nil); err == nil {
		t.Fatal("expected error for unknown run")
	}
	if missing, err := store.GetRun(ctx, "missing"); err != nil || missing != nil {
		t.Fatalf("expected nil run, got %#v err=%v", missing, err)
	}
}

func TestSinkRecordsTrackerEvents(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenJournal(t, cfg)
	ctx := context.Background()
	if err := store.BeginRun(ctx, journal.Run{ID: "run-2", ScriptName: "demo"}); err != nil {
		t.Fatalf("BeginRun failed: %v", err)
	}

	registry := session.NewRegistry()
	dispose := registry.Subscribe(store.Sink(ctx, "run-2", logging.NewNop()))
	defer dispose()
	tracker := session.NewTracker(registry)

	tracker.Begin(session.TypeAudio)
	tracker.BeginBeat(session.BeatAudio, "0")
	tracker.BeginBeat(session.BeatAudio, "1")
	tracker.EndBeat(session.BeatAudio, "0")
	tracker.End(session.TypeAudio)

	events, err := store.Events(ctx, "run-2")
	if err != nil {
		t.Fatalf("Events failed: %v", err)
	}
	if len(events) != 5 {
		t.Fatalf("expected 5 events, got %d", len(events))
	}
	if events[0].Kind != session.KindSession || events[0].SessionType != "audio" || !events[0].InSession {
		t.Fatalf("unexpected first event %#v", events[0])
	}
	if events[1].Kind != session.KindBeat || events[1].BeatKey != "0" {
		t.Fatalf("unexpected beat event %#v", events[1])
	}

	summary, err := store.Summarize(ctx, "run-2")
	if err != nil {
		t.Fatalf("Summarize failed: %v", err)
	}
	if summary.Completed["audio"] != 1 {
		t.Fatalf("expected one completed audio beat, got %v", summary.Completed)
	}
	if !reflect.DeepEqual(summary.Running["audio"], []string{"1"}) {
		t.Fatalf("expected beat 1 still running, got %v", summary.Running)
	}
}

func TestListRunsNewestFirst(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenJournal(t, cfg)
	ctx := context.Background()
	for _, id := range []string{"a", "b", "c"} {
		if err := store.BeginRun(ctx, journal.Run{ID: id, ScriptName: id}); err != nil {
			t.Fatalf("BeginRun %s: %v", id, err)
		}
	}
	if err := store.FinishRun(ctx, "b", "/out/b.mp4", nil); err != nil {
		t.Fatalf("FinishRun: %v", err)
	}

	runs, err := store.ListRuns(ctx, 2)
	if err != nil {
		t.Fatalf("ListRuns failed: %v", err)
	}
	if len(runs) != 2 || runs[0].ID != "c" || runs[1].ID != "b" {
		t.Fatalf("unexpected runs %#v", runs)
	}
	if runs[1].Status != journal.RunSucceeded || runs[1].OutputPath != "/out/b.mp4" {
		t.Fatalf("unexpected finished run %#v", runs[1])
	}
}

func TestReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")
	store, err := journal.OpenPath(path)
	if err != nil {
		t.Fatalf("OpenPath: %v", err)
	}
	if err := store.BeginRun(context.Background(), journal.Run{ID: "keep", ScriptName: "demo"}); err != nil {
		t.Fatalf("BeginRun: %v", err)
	}
	store.Close()

	reopened, err := journal.OpenPath(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()
	run, err := reopened.GetRun(context.Background(), "keep")
	if err != nil || run == nil {
		t.Fatalf("expected persisted run, got %#v err=%v", run, err)
	}
}
