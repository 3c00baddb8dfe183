package kokoro

import (
	"math"

	"github.com/loqalabs/loqa-voice/internal/apperr"
)

// LexiconMode selects which lexicons are handed to the engine.
type LexiconMode int

const (
	LexiconBaseOnly LexiconMode = iota
	LexiconBaseAndAuxiliary
)

// LexiconModeFor maps the --include-zh-lexicon switch to a mode.
func LexiconModeFor(includeAuxiliary bool) LexiconMode {
	if includeAuxiliary {
		return LexiconBaseAndAuxiliary
	}
	return LexiconBaseOnly
}

func (m LexiconMode) String() string {
	if m == LexiconBaseAndAuxiliary {
		return "us-en + zh"
	}
	return "us-en only"
}

// Request holds the voice parameters of one synthesis run.
type Request struct {
	ModelDir  string
	SpeakerID int
	Speed     float64
	Debug     int
	Lexicon   LexiconMode
}

// Validate checks the invariants the engine relies on.
func (r Request) Validate() error {
	if r.ModelDir == "" {
		return apperr.Argumentf("model dir must not be empty")
	}
	if r.SpeakerID < 0 {
		return apperr.Argumentf("speaker id must be >= 0, got %d", r.SpeakerID)
	}
	if !(r.Speed > 0) || math.IsInf(r.Speed, 0) {
		return apperr.Argumentf("speed must be a positive number, got %v", r.Speed)
	}
	if r.Debug != 0 && r.Debug != 1 {
		return apperr.Argumentf("debug must be 0 or 1, got %d", r.Debug)
	}
	return nil
}

// Paths resolves the resource paths for this request.
func (r Request) Paths() ResourcePaths {
	return Resolve(r.ModelDir, r.Lexicon == LexiconBaseAndAuxiliary)
}
