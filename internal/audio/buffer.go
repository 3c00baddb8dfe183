// Package audio holds the float sample types that flow from the engine to
// playback and to the WAV writer, plus the PCM quantization both share.
package audio

import (
	"errors"
	"fmt"
	"time"
)

// Chunk is one incremental batch of generated samples.
type Chunk struct {
	Samples    []float32
	SampleRate int
	// Progress is the engine's completion estimate in [0,1].
	Progress float64
}

// ErrSampleRateMismatch is returned when a chunk disagrees with the rate the
// buffer was established with.
var ErrSampleRateMismatch = errors.New("sample rate changed mid-stream")

// Buffer accumulates every sample of one synthesis run in arrival order.
type Buffer struct {
	sampleRate int
	samples    []float32
}

// NewBuffer returns a buffer fixed to sampleRate. A zero rate is learned from
// the first appended chunk.
func NewBuffer(sampleRate int) *Buffer {
	return &Buffer{sampleRate: sampleRate}
}

// Append copies the chunk's samples onto the end of the buffer.
func (b *Buffer) Append(c Chunk) error {
	if c.SampleRate <= 0 {
		return fmt.Errorf("chunk sample rate must be positive, got %d", c.SampleRate)
	}
	if b.sampleRate == 0 {
		b.sampleRate = c.SampleRate
	}
	if c.SampleRate != b.sampleRate {
		return fmt.Errorf("%w: buffer %d Hz, chunk %d Hz", ErrSampleRateMismatch, b.sampleRate, c.SampleRate)
	}
	b.samples = append(b.samples, c.Samples...)
	return nil
}

func (b *Buffer) SampleRate() int { return b.sampleRate }

// Samples exposes the accumulated samples. Callers must not modify them.
func (b *Buffer) Samples() []float32 { return b.samples }

func (b *Buffer) Len() int { return len(b.samples) }

// Duration is the playback length of the buffer.
func (b *Buffer) Duration() time.Duration {
	if b.sampleRate <= 0 {
		return 0
	}
	return time.Duration(len(b.samples)) * time.Second / time.Duration(b.sampleRate)
}
