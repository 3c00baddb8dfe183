package journal

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/loqalabs/loqa-voice/internal/config"
	"github.com/loqalabs/loqa-voice/internal/kokoro"
	"github.com/loqalabs/loqa-voice/internal/pipeline"
)

func newLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestOpenEphemeral(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "journal.db")
	cfg := config.JournalConfig{Path: path, RetentionMode: "ephemeral"}
	js, err := Open(ctx, cfg, newLogger())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	t.Cleanup(func() { _ = js.Close() })
	if js.db != nil {
		t.Fatal("ephemeral journal must not hold a database connection")
	}
	if err := js.AppendEvent(ctx, Event{SessionID: "s", Type: "x"}); err != nil {
		t.Fatalf("ephemeral append should be a no-op: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatal("ephemeral journal must not create a database")
	}
}

func TestAppendAndQuery(t *testing.T) {
	tmp := t.TempDir()
	cfg := config.JournalConfig{Path: filepath.Join(tmp, "journal.db"), RetentionMode: "session"}
	js, err := Open(context.Background(), cfg, newLogger())
	if err != nil {
		t.Fatalf("open journal: %v", err)
	}
	t.Cleanup(func() { _ = js.Close() })

	sessionID := "session-123"
	if err := js.AppendSession(context.Background(), Session{ID: sessionID, ModelDir: "/models/kokoro", SpeakerID: 2, Lexicon: "us-en only"}); err != nil {
		t.Fatalf("append session: %v", err)
	}
	if err := js.AppendEvent(context.Background(), Event{SessionID: sessionID, Type: "test", Payload: []byte("hello")}); err != nil {
		t.Fatalf("append event: %v", err)
	}
	events, err := js.listSessionEvents(context.Background(), sessionID, 10)
	if err != nil {
		t.Fatalf("list events: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if string(events[0].Payload) != "hello" {
		t.Fatalf("unexpected payload: %s", events[0].Payload)
	}
	if events[0].CreatedAt.IsZero() {
		t.Fatal("expected creation time")
	}

	sessions, err := js.listSessions(context.Background(), 10)
	if err != nil {
		t.Fatalf("list sessions: %v", err)
	}
	if len(sessions) != 1 || sessions[0].SpeakerID != 2 || sessions[0].ModelDir != "/models/kokoro" {
		t.Fatalf("unexpected sessions %+v", sessions)
	}
}

func TestPruneByDaysAndSessions(t *testing.T) {
	tmp := t.TempDir()
	cfg := config.JournalConfig{Path: filepath.Join(tmp, "journal.db"), RetentionMode: "persistent", RetentionDays: 1, MaxSessions: 1}
	js, err := Open(context.Background(), cfg, newLogger())
	if err != nil {
		t.Fatalf("open journal: %v", err)
	}
	t.Cleanup(func() { _ = js.Close() })

	js.clock = func() time.Time { return time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC) }
	if err := js.AppendSession(context.Background(), Session{ID: "old-session"}); err != nil {
		t.Fatalf("append session: %v", err)
	}
	if err := js.AppendEvent(context.Background(), Event{SessionID: "old-session", Type: "note"}); err != nil {
		t.Fatalf("append event: %v", err)
	}

	js.clock = func() time.Time { return time.Date(2025, 1, 3, 0, 0, 0, 0, time.UTC) }
	if err := js.AppendSession(context.Background(), Session{ID: "new-session"}); err != nil {
		t.Fatalf("append session: %v", err)
	}
	if err := js.Prune(context.Background()); err != nil {
		t.Fatalf("prune: %v", err)
	}

	events, err := js.listSessionEvents(context.Background(), "old-session", 10)
	if err != nil {
		t.Fatalf("list events: %v", err)
	}
	if len(events) != 0 {
		t.Fatalf("expected old session pruned")
	}
	sessions, err := js.listSessions(context.Background(), 10)
	if err != nil {
		t.Fatalf("list sessions: %v", err)
	}
	if len(sessions) != 1 || sessions[0].ID != "new-session" {
		t.Fatalf("expected only the new session, got %+v", sessions)
	}
}

func TestRecorderJournalsSession(t *testing.T) {
	cfg := config.JournalConfig{Path: filepath.Join(t.TempDir(), "journal.db"), RetentionMode: "persistent"}
	js, err := Open(context.Background(), cfg, newLogger())
	if err != nil {
		t.Fatalf("open journal: %v", err)
	}
	t.Cleanup(func() { _ = js.Close() })

	rec := NewRecorder(js)
	ctx := context.Background()
	req := kokoro.Request{ModelDir: "/models/kokoro", SpeakerID: 1, Speed: 1.2, Lexicon: kokoro.LexiconBaseAndAuxiliary}
	start := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	rec.Observe(ctx, pipeline.Event{Type: pipeline.EventStarted, SessionID: "run-1", Time: start, Request: req, Playback: true})
	rec.Observe(ctx, pipeline.Event{Type: pipeline.EventProgress, SessionID: "run-1", Time: start.Add(time.Second), Progress: 0.5})
	rec.Observe(ctx, pipeline.Event{Type: pipeline.EventFailed, SessionID: "run-1", Time: start.Add(2 * time.Second), Request: req, Err: errors.New("engine crashed")})

	events, err := js.listSessionEvents(ctx, "run-1", 10)
	if err != nil {
		t.Fatalf("list events: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("expected start and finish events, got %d", len(events))
	}
	if events[0].Type != string(pipeline.EventStarted) || events[1].Type != string(pipeline.EventFailed) {
		t.Fatalf("unexpected event types %s, %s", events[0].Type, events[1].Type)
	}
	var started startedPayload
	if err := json.Unmarshal(events[0].Payload, &started); err != nil {
		t.Fatal(err)
	}
	if started.Lexicon != "us-en + zh" || started.SpeakerID != 1 || !started.Playback {
		t.Fatalf("unexpected start payload %+v", started)
	}
	var finished finishedPayload
	if err := json.Unmarshal(events[1].Payload, &finished); err != nil {
		t.Fatal(err)
	}
	if finished.Error != "engine crashed" {
		t.Fatalf("unexpected finish payload %+v", finished)
	}
	if !events[0].CreatedAt.Equal(start) {
		t.Fatalf("expected event time %v, got %v", start, events[0].CreatedAt)
	}
}
