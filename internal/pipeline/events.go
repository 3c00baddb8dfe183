package pipeline

import (
	"context"
	"time"

	"github.com/loqalabs/loqa-voice/internal/kokoro"
)

type EventType string

const (
	EventStarted   EventType = "synthesis.started"
	EventProgress  EventType = "synthesis.progress"
	EventCompleted EventType = "synthesis.completed"
	EventFailed    EventType = "synthesis.failed"
)

// Event describes one step of a synthesis session. Chunk fields are only set
// on progress events; Samples aliases engine memory and must not be retained.
type Event struct {
	Type       EventType
	SessionID  string
	Time       time.Time
	Request    kokoro.Request
	SampleRate int

	Chunk    int
	Samples  []float32
	Progress float64

	TotalSamples int
	Duration     time.Duration
	Stopped      bool
	Playback     bool
	Err          error
}

// Observer is notified synchronously, in order, of every session event.
type Observer interface {
	Observe(ctx context.Context, ev Event)
}

type ObserverFunc func(ctx context.Context, ev Event)

func (f ObserverFunc) Observe(ctx context.Context, ev Event) { f(ctx, ev) }
