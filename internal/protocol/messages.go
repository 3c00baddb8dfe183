package protocol

import "time"

// Progress is published once per synthesized chunk.
type Progress struct {
	SessionID  string    `json:"session_id"`
	Sequence   int       `json:"sequence"`
	Progress   float64   `json:"progress"`
	SampleRate int       `json:"sample_rate"`
	Samples    int       `json:"samples"`
	Timestamp  time.Time `json:"timestamp"`
}

// AudioChunk carries the 16-bit little-endian PCM of one chunk.
type AudioChunk struct {
	SessionID  string `json:"session_id"`
	Sequence   int    `json:"sequence"`
	SampleRate int    `json:"sample_rate"`
	Channels   int    `json:"channels"`
	PCM        []byte `json:"pcm"`
}

// Status is published when a session ends.
type Status struct {
	SessionID    string    `json:"session_id"`
	Completed    bool      `json:"completed"`
	Stopped      bool      `json:"stopped,omitempty"`
	Error        string    `json:"error,omitempty"`
	SampleRate   int       `json:"sample_rate,omitempty"`
	TotalSamples int       `json:"total_samples"`
	ElapsedMS    int64     `json:"elapsed_ms"`
	Timestamp    time.Time `json:"timestamp"`
}

const (
	SubjectProgressSuffix = "progress"
	SubjectAudioSuffix    = "audio"
	SubjectDoneSuffix     = "done"
)

// Subject joins a configured prefix and a subject suffix.
func Subject(prefix, suffix string) string {
	if prefix == "" {
		return suffix
	}
	return prefix + "." + suffix
}
