package playback

import (
	"log/slog"

	"github.com/loqalabs/loqa-voice/internal/apperr"
	"github.com/loqalabs/loqa-voice/internal/audio"
)

// LiveSink plays chunks on a device opened at a fixed sample rate. Device
// failures disable playback for the rest of the session and are never
// returned to the caller.
type LiveSink struct {
	dev        Device
	sampleRate int
	log        *slog.Logger
	pcm        []int16
	err        error
	onDegrade  func(error)
}

// SinkOption customizes a LiveSink.
type SinkOption func(*LiveSink)

// OnDegrade registers a callback invoked once when playback is disabled.
func OnDegrade(fn func(error)) SinkOption {
	return func(s *LiveSink) { s.onDegrade = fn }
}

// NewLiveSink opens a device from driver. If that fails the returned sink is
// already disabled.
func NewLiveSink(driver Driver, sampleRate int, log *slog.Logger, opts ...SinkOption) *LiveSink {
	s := &LiveSink{
		sampleRate: sampleRate,
		log:        log.With(slog.String("driver", driver.Name())),
	}
	for _, opt := range opts {
		opt(s)
	}
	dev, err := driver.Open(sampleRate)
	if err != nil {
		s.disable("open audio device", err)
		return s
	}
	s.dev = dev
	s.log.Debug("playback started", slog.Int("sample_rate", sampleRate))
	return s
}

func (s *LiveSink) Write(c audio.Chunk) {
	if s.dev == nil || len(c.Samples) == 0 {
		return
	}
	s.pcm = audio.QuantizeInto(s.pcm[:0], c.Samples)
	if err := s.dev.Write(s.pcm); err != nil {
		s.disable("write audio device", err)
	}
}

// Close stops the device. It is safe to call more than once.
func (s *LiveSink) Close() {
	if s.dev == nil {
		return
	}
	if err := s.dev.Close(); err != nil {
		s.log.Warn("failed to close audio device", slog.String("error", err.Error()))
	}
	s.dev = nil
}

// Enabled reports whether the sink is still playing.
func (s *LiveSink) Enabled() bool { return s.dev != nil }

// Err returns the device error that disabled playback, if any.
func (s *LiveSink) Err() error { return s.err }

func (s *LiveSink) disable(op string, err error) {
	s.err = apperr.Device(op, err)
	s.log.Warn("live playback disabled", slog.String("error", s.err.Error()))
	if s.dev != nil {
		if cerr := s.dev.Close(); cerr != nil {
			s.log.Debug("close after failure", slog.String("error", cerr.Error()))
		}
		s.dev = nil
	}
	if s.onDegrade != nil {
		s.onDegrade(s.err)
	}
}

// NullSink discards every chunk.
type NullSink struct{}

func (NullSink) Write(audio.Chunk) {}
func (NullSink) Close()            {}
