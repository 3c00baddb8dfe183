package bus

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/loqalabs/loqa-voice/internal/audio"
	"github.com/loqalabs/loqa-voice/internal/pipeline"
	"github.com/loqalabs/loqa-voice/internal/protocol"
)

// Publisher mirrors synthesis events onto the bus. Publish failures are
// logged and never interrupt synthesis.
type Publisher struct {
	client       *Client
	prefix       string
	publishAudio bool
	log          *slog.Logger
}

func NewPublisher(client *Client, prefix string, publishAudio bool) *Publisher {
	return &Publisher{
		client:       client,
		prefix:       prefix,
		publishAudio: publishAudio,
		log:          client.log,
	}
}

func (p *Publisher) Observe(_ context.Context, ev pipeline.Event) {
	switch ev.Type {
	case pipeline.EventProgress:
		p.publish(protocol.SubjectProgressSuffix, protocol.Progress{
			SessionID:  ev.SessionID,
			Sequence:   ev.Chunk,
			Progress:   ev.Progress,
			SampleRate: ev.SampleRate,
			Samples:    len(ev.Samples),
			Timestamp:  ev.Time.UTC(),
		})
		if p.publishAudio {
			p.publish(protocol.SubjectAudioSuffix, protocol.AudioChunk{
				SessionID:  ev.SessionID,
				Sequence:   ev.Chunk,
				SampleRate: ev.SampleRate,
				Channels:   1,
				PCM:        audio.PCM16LE(ev.Samples),
			})
		}
	case pipeline.EventCompleted, pipeline.EventFailed:
		status := protocol.Status{
			SessionID:    ev.SessionID,
			Completed:    ev.Type == pipeline.EventCompleted,
			Stopped:      ev.Stopped,
			SampleRate:   ev.SampleRate,
			TotalSamples: ev.TotalSamples,
			ElapsedMS:    ev.Duration.Milliseconds(),
			Timestamp:    time.Now().UTC(),
		}
		if ev.Err != nil {
			status.Error = ev.Err.Error()
		}
		p.publish(protocol.SubjectDoneSuffix, status)
	}
}

func (p *Publisher) publish(suffix string, msg any) {
	data, err := json.Marshal(msg)
	if err != nil {
		p.log.Warn("failed to marshal bus message", slog.String("error", err.Error()))
		return
	}
	subject := protocol.Subject(p.prefix, suffix)
	if err := p.client.Conn().Publish(subject, data); err != nil {
		p.log.Warn("failed to publish bus message", slog.String("subject", subject), slog.String("error", err.Error()))
	}
}
