package journal

import (
	"context"
	"encoding/json"
	"log/slog"

	"go.opentelemetry.io/otel/trace"

	"github.com/loqalabs/loqa-voice/internal/pipeline"
)

type startedPayload struct {
	ModelDir  string  `json:"model_dir"`
	SpeakerID int     `json:"speaker_id"`
	Speed     float64 `json:"speed"`
	Lexicon   string  `json:"lexicon"`
	Playback  bool    `json:"playback"`
}

type finishedPayload struct {
	SampleRate   int    `json:"sample_rate,omitempty"`
	TotalSamples int    `json:"total_samples"`
	ElapsedMS    int64  `json:"elapsed_ms"`
	Stopped      bool   `json:"stopped,omitempty"`
	Playback     bool   `json:"playback"`
	Error        string `json:"error,omitempty"`
}

// Recorder writes session start and finish events to a Store. Per-chunk
// progress is not journaled.
type Recorder struct {
	store *Store
}

func NewRecorder(store *Store) *Recorder {
	return &Recorder{store: store}
}

func (r *Recorder) Observe(ctx context.Context, ev pipeline.Event) {
	var payload any
	switch ev.Type {
	case pipeline.EventStarted:
		err := r.store.AppendSession(ctx, Session{
			ID:        ev.SessionID,
			ModelDir:  ev.Request.ModelDir,
			SpeakerID: ev.Request.SpeakerID,
			Lexicon:   ev.Request.Lexicon.String(),
			CreatedAt: ev.Time,
		})
		if err != nil {
			r.store.log.Warn("failed to record session", slog.String("error", err.Error()))
			return
		}
		payload = startedPayload{
			ModelDir:  ev.Request.ModelDir,
			SpeakerID: ev.Request.SpeakerID,
			Speed:     ev.Request.Speed,
			Lexicon:   ev.Request.Lexicon.String(),
			Playback:  ev.Playback,
		}
	case pipeline.EventCompleted, pipeline.EventFailed:
		p := finishedPayload{
			SampleRate:   ev.SampleRate,
			TotalSamples: ev.TotalSamples,
			ElapsedMS:    ev.Duration.Milliseconds(),
			Stopped:      ev.Stopped,
			Playback:     ev.Playback,
		}
		if ev.Err != nil {
			p.Error = ev.Err.Error()
		}
		payload = p
	default:
		return
	}

	data, err := json.Marshal(payload)
	if err != nil {
		r.store.log.Warn("failed to encode journal payload", slog.String("error", err.Error()))
		return
	}
	evt := Event{SessionID: ev.SessionID, Type: string(ev.Type), Payload: data, CreatedAt: ev.Time}
	if sc := trace.SpanContextFromContext(ctx); sc.HasTraceID() {
		evt.TraceID = sc.TraceID().String()
	}
	if err := r.store.AppendEvent(ctx, evt); err != nil {
		r.store.log.Warn("failed to record event", slog.String("type", evt.Type), slog.String("error", err.Error()))
	}
}
