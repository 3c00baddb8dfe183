package tts

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/loqalabs/loqa-voice/internal/audio"
)

// mockRuneDuration is how much audio the mock engine produces per input rune
// at speed 1.0.
const mockRuneDuration = 20 * time.Millisecond

// MockEngine produces a deterministic tone in place of real speech.
type MockEngine struct {
	sampleRate    int
	chunkDuration time.Duration

	mu       sync.Mutex
	lastText string
}

// NewMockFactory returns a Factory for MockEngine. Construction still
// requires the model file to exist so misconfigured model directories fail
// the same way they would with a real engine.
func NewMockFactory(sampleRate int, chunkDuration time.Duration) Factory {
	return func(cfg EngineConfig) (Engine, error) {
		return NewMockEngine(cfg, sampleRate, chunkDuration)
	}
}

func NewMockEngine(cfg EngineConfig, sampleRate int, chunkDuration time.Duration) (*MockEngine, error) {
	if sampleRate <= 0 {
		return nil, errors.New("mock engine sample rate must be positive")
	}
	if chunkDuration <= 0 {
		return nil, errors.New("mock engine chunk duration must be positive")
	}
	if _, err := os.Stat(cfg.Paths.Model); err != nil {
		return nil, fmt.Errorf("load model: %w", err)
	}
	return &MockEngine{sampleRate: sampleRate, chunkDuration: chunkDuration}, nil
}

func (m *MockEngine) SampleRate() int { return m.sampleRate }

func (m *MockEngine) Close() error { return nil }

// LastText returns the text of the most recent Generate call.
func (m *MockEngine) LastText() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastText
}

func (m *MockEngine) Generate(ctx context.Context, req GenerateRequest, fn ChunkFunc) error {
	if strings.TrimSpace(req.Text) == "" {
		return errors.New("no text to synthesize")
	}
	speed := req.Speed
	if !(speed > 0) {
		speed = 1
	}
	m.mu.Lock()
	m.lastText = req.Text
	m.mu.Unlock()

	perRune := float64(m.sampleRate) * mockRuneDuration.Seconds() / speed
	total := int(math.Ceil(float64(utf8.RuneCountInString(req.Text)) * perRune))
	perChunk := int(float64(m.sampleRate) * m.chunkDuration.Seconds())
	if perChunk <= 0 {
		perChunk = 1
	}
	freq := 220.0 + 20.0*float64(req.SpeakerID%20)

	for start := 0; start < total; start += perChunk {
		if err := ctx.Err(); err != nil {
			return err
		}
		end := min(start+perChunk, total)
		samples := make([]float32, end-start)
		for i := range samples {
			t := float64(start+i) / float64(m.sampleRate)
			samples[i] = float32(0.3 * math.Sin(2*math.Pi*freq*t))
		}
		chunk := audio.Chunk{
			Samples:    samples,
			SampleRate: m.sampleRate,
			Progress:   float64(end) / float64(total),
		}
		if !fn(chunk) {
			return nil
		}
	}
	return nil
}
