// Package pipeline drives one synthesis run: it feeds a document to an engine,
// fans every chunk out to the accumulator and the live device, and reports
// progress to observers.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/loqalabs/loqa-voice/internal/apperr"
	"github.com/loqalabs/loqa-voice/internal/audio"
	"github.com/loqalabs/loqa-voice/internal/kokoro"
	"github.com/loqalabs/loqa-voice/internal/playback"
	"github.com/loqalabs/loqa-voice/internal/textnorm"
	"github.com/loqalabs/loqa-voice/internal/tts"
)

// ThreadHint is the number of inference threads requested from the engine.
const ThreadHint = 2

type Config struct {
	Factory   tts.Factory
	Driver    playback.Driver
	Playback  bool
	Observers []Observer
	Logger    *slog.Logger
	Metrics   *Metrics
	Tracer    trace.Tracer
	// OnChunk runs after each chunk has reached the sinks. It may call
	// Session.Stop to end the run early.
	OnChunk   func(s *Session, c audio.Chunk)
}

type Controller struct {
	factory   tts.Factory
	driver    playback.Driver
	playback  bool
	observers []Observer
	log       *slog.Logger
	metrics   *Metrics
	tracer    trace.Tracer
	onChunk   func(*Session, audio.Chunk)
}

func New(cfg Config) (*Controller, error) {
	if cfg.Factory == nil {
		return nil, errors.New("pipeline: engine factory is required")
	}
	c := &Controller{
		factory:   cfg.Factory,
		driver:    cfg.Driver,
		playback:  cfg.Playback,
		observers: cfg.Observers,
		log:       cfg.Logger,
		metrics:   cfg.Metrics,
		tracer:    cfg.Tracer,
		onChunk:   cfg.OnChunk,
	}
	if c.driver == nil {
		c.driver = playback.Null()
	}
	if c.log == nil {
		c.log = slog.Default()
	}
	c.log = c.log.With(slog.String("component", "pipeline"))
	if c.metrics == nil {
		c.metrics = noopMetrics()
	}
	if c.tracer == nil {
		c.tracer = otel.Tracer(instrumentationName)
	}
	return c, nil
}

// Session is the state of one Synthesize call.
type Session struct {
	id      string
	req     kokoro.Request
	ctx     context.Context
	log     *slog.Logger
	span    trace.Span
	buf     *audio.Buffer
	sinks   audio.Fanout
	acc     *audio.Accumulator
	live    *playback.LiveSink
	chunks  int
	stopped atomic.Bool
	err     error
}

func (s *Session) ID() string { return s.id }

// Stop asks the engine to end the run after the current chunk.
func (s *Session) Stop() { s.stopped.Store(true) }

func (s *Session) Stopped() bool { return s.stopped.Load() }

// Chunks returns the number of chunks delivered so far.
func (s *Session) Chunks() int { return s.chunks }

// Synthesize runs the engine over doc and returns every sample it produced.
// A run stopped early, by Session.Stop or by ctx, still returns the samples
// delivered before the stop.
func (c *Controller) Synthesize(ctx context.Context, doc textnorm.Document, req kokoro.Request) (*audio.Buffer, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	s := &Session{id: uuid.NewString(), req: req}
	s.log = c.log.With(slog.String("session_id", s.id))

	ctx, span := c.tracer.Start(ctx, "tts.synthesize", trace.WithAttributes(
		attribute.String("session.id", s.id),
		attribute.String("model.dir", req.ModelDir),
		attribute.Int("speaker.id", req.SpeakerID),
		attribute.Float64("speed", req.Speed),
		attribute.String("lexicon", req.Lexicon.String()),
	))
	defer span.End()
	s.ctx, s.span = ctx, span

	start := time.Now()
	c.emit(ctx, Event{Type: EventStarted, SessionID: s.id, Time: start, Request: req, Playback: c.playback})
	s.log.Debug("synthesis started", slog.Int("text_bytes", doc.Len()))

	err := c.run(s, doc)
	elapsed := time.Since(start)
	done := Event{
		SessionID: s.id,
		Time:      time.Now(),
		Request:   req,
		Duration:  elapsed,
		Stopped:   s.Stopped(),
		Playback:  s.live != nil && s.live.Err() == nil,
	}
	if s.buf != nil {
		done.SampleRate = s.buf.SampleRate()
		done.TotalSamples = s.buf.Len()
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		c.metrics.finished(ctx, elapsed, "failed")
		done.Type, done.Err = EventFailed, err
		c.emit(ctx, done)
		s.log.Error("synthesis failed", slog.String("error", err.Error()))
		return nil, err
	}

	outcome := "completed"
	if done.Stopped {
		outcome = "stopped"
	}
	span.SetAttributes(attribute.Int("chunks", s.chunks), attribute.Int("samples", s.buf.Len()))
	c.metrics.finished(ctx, elapsed, outcome)
	done.Type = EventCompleted
	c.emit(ctx, done)
	s.log.Info("synthesis finished",
		slog.String("outcome", outcome),
		slog.Int("chunks", s.chunks),
		slog.Duration("audio", s.buf.Duration()),
		slog.Duration("elapsed", elapsed),
	)
	return s.buf, nil
}

func (c *Controller) run(s *Session, doc textnorm.Document) error {
	engine, err := c.factory(tts.EngineConfig{
		Paths:      s.req.Paths(),
		NumThreads: ThreadHint,
		Debug:      s.req.Debug == 1,
	})
	if err != nil {
		return apperr.Synthesis("create engine", err)
	}
	defer func() {
		if err := engine.Close(); err != nil {
			s.log.Warn("failed to close engine", slog.String("error", err.Error()))
		}
	}()

	rate := engine.SampleRate()
	if rate <= 0 {
		return apperr.Synthesis("create engine", fmt.Errorf("invalid sample rate %d", rate))
	}
	s.buf = audio.NewBuffer(rate)
	s.acc = audio.NewAccumulator(s.buf)
	s.sinks = audio.Fanout{s.acc}
	if c.playback {
		s.live = playback.NewLiveSink(c.driver, rate, s.log, playback.OnDegrade(func(error) {
			c.metrics.playbackDegraded(s.ctx)
		}))
		s.sinks = append(s.sinks, s.live)
	}
	defer s.sinks.Close()

	err = engine.Generate(s.ctx, tts.GenerateRequest{
		Text:      doc.Text(),
		SpeakerID: s.req.SpeakerID,
		Speed:     s.req.Speed,
	}, func(chunk audio.Chunk) bool {
		return c.handle(s, chunk)
	})
	if s.err != nil {
		return s.err
	}
	if err != nil {
		if ctxErr := s.ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) && s.buf.Len() > 0 {
			s.Stop()
		} else {
			return apperr.Synthesis("generate", err)
		}
	}
	if s.buf.Len() == 0 {
		return apperr.Synthesis("generate", errors.New("engine produced no audio"))
	}
	return nil
}

func (c *Controller) handle(s *Session, chunk audio.Chunk) bool {
	if s.ctx.Err() != nil {
		s.Stop()
		return false
	}
	if chunk.SampleRate != s.buf.SampleRate() {
		s.err = apperr.Synthesis("receive chunk", fmt.Errorf("%w: %d Hz after %d Hz",
			audio.ErrSampleRateMismatch, chunk.SampleRate, s.buf.SampleRate()))
		return false
	}
	s.sinks.Write(chunk)
	if err := s.acc.Err(); err != nil {
		s.err = apperr.Synthesis("receive chunk", err)
		return false
	}

	index := s.chunks
	s.chunks++
	c.metrics.chunk(s.ctx, len(chunk.Samples))
	s.span.AddEvent("chunk", trace.WithAttributes(
		attribute.Int("index", index),
		attribute.Int("samples", len(chunk.Samples)),
		attribute.Float64("progress", chunk.Progress),
	))
	s.log.Info("synthesis progress", slog.String("progress", fmt.Sprintf("%.3f%%", chunk.Progress*100)))
	c.emit(s.ctx, Event{
		Type:       EventProgress,
		SessionID:  s.id,
		Time:       time.Now(),
		Request:    s.req,
		SampleRate: chunk.SampleRate,
		Chunk:      index,
		Samples:    chunk.Samples,
		Progress:   chunk.Progress,
	})
	if c.onChunk != nil {
		c.onChunk(s, chunk)
	}
	if s.ctx.Err() != nil {
		s.Stop()
	}
	return !s.Stopped()
}

func (c *Controller) emit(ctx context.Context, ev Event) {
	for _, o := range c.observers {
		o.Observe(ctx, ev)
	}
}
