package tts

import (
	"fmt"
	"time"

	"github.com/loqalabs/loqa-voice/internal/config"
)

// NewFactory selects the engine implementation configured in cfg.
func NewFactory(cfg config.SynthConfig) (Factory, error) {
	switch cfg.Mode {
	case "mock", "":
		return NewMockFactory(cfg.SampleRate, time.Duration(cfg.ChunkDurationMS)*time.Millisecond), nil
	case "exec":
		return NewExecFactory(cfg.Command, cfg.SampleRate, time.Duration(cfg.TimeoutMS)*time.Millisecond)
	default:
		return nil, fmt.Errorf("unknown synth mode %q", cfg.Mode)
	}
}
