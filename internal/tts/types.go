// Package tts defines the contract for offline speech engines and the engines
// the runner can drive.
package tts

import (
	"context"

	"github.com/loqalabs/loqa-voice/internal/audio"
	"github.com/loqalabs/loqa-voice/internal/kokoro"
)

// EngineConfig carries what an engine needs at construction time.
type EngineConfig struct {
	Paths      kokoro.ResourcePaths
	NumThreads int
	Debug      bool
}

// GenerateRequest contains parameters to synthesize speech.
type GenerateRequest struct {
	Text      string
	SpeakerID int
	Speed     float64
}

// ChunkFunc receives each chunk in order. Returning false asks the engine to
// stop before producing the next chunk.
type ChunkFunc func(audio.Chunk) bool

// Engine is the contract for producing audio.
type Engine interface {
	SampleRate() int
	Generate(ctx context.Context, req GenerateRequest, fn ChunkFunc) error
	Close() error
}

// Factory constructs an engine for one synthesis run.
type Factory func(cfg EngineConfig) (Engine, error)
