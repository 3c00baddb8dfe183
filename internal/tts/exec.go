package tts

import (
	"bufio"
	"bytes"
	"context"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os/exec"
	"strings"
	"time"

	"github.com/mattn/go-shellwords"

	"github.com/loqalabs/loqa-voice/internal/audio"
)

const maxResponseLine = 16 << 20

type execEngine struct {
	cmd        []string
	cfg        EngineConfig
	sampleRate int
	timeout    time.Duration
}

type execRequest struct {
	Model      string  `json:"model"`
	Voices     string  `json:"voices"`
	Tokens     string  `json:"tokens"`
	DataDir    string  `json:"data_dir"`
	DictDir    string  `json:"dict_dir"`
	Lexicon    string  `json:"lexicon"`
	NumThreads int     `json:"num_threads"`
	Debug      bool    `json:"debug"`
	Text       string  `json:"text"`
	SID        int     `json:"sid"`
	Speed      float64 `json:"speed"`
	SampleRate int     `json:"sample_rate"`
}

type execResponse struct {
	Samples    string  `json:"samples"`
	SampleRate int     `json:"sample_rate"`
	Progress   float64 `json:"progress"`
	Error      string  `json:"error"`
}

// NewExecFactory returns a Factory whose engines run command once per
// Generate call. The command receives one JSON request on stdin and streams
// JSON lines with base64 little-endian float32 samples on stdout.
func NewExecFactory(command string, sampleRate int, timeout time.Duration) (Factory, error) {
	parser := shellwords.NewParser()
	args, err := parser.Parse(command)
	if err != nil {
		return nil, fmt.Errorf("parse tts command: %w", err)
	}
	if len(args) == 0 {
		return nil, fmt.Errorf("tts command empty")
	}
	if sampleRate <= 0 {
		return nil, fmt.Errorf("tts sample rate must be positive")
	}
	return func(cfg EngineConfig) (Engine, error) {
		if _, err := exec.LookPath(args[0]); err != nil {
			return nil, fmt.Errorf("locate tts command: %w", err)
		}
		return &execEngine{cmd: args, cfg: cfg, sampleRate: sampleRate, timeout: timeout}, nil
	}, nil
}

func (e *execEngine) SampleRate() int { return e.sampleRate }

func (e *execEngine) Close() error { return nil }

func (e *execEngine) Generate(ctx context.Context, req GenerateRequest, fn ChunkFunc) error {
	data, err := json.Marshal(execRequest{
		Model:      e.cfg.Paths.Model,
		Voices:     e.cfg.Paths.Voices,
		Tokens:     e.cfg.Paths.Tokens,
		DataDir:    e.cfg.Paths.DataDir,
		DictDir:    e.cfg.Paths.DictDir,
		Lexicon:    e.cfg.Paths.Lexicon,
		NumThreads: e.cfg.NumThreads,
		Debug:      e.cfg.Debug,
		Text:       req.Text,
		SID:        req.SpeakerID,
		Speed:      req.Speed,
		SampleRate: e.sampleRate,
	})
	if err != nil {
		return err
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	if e.timeout > 0 {
		runCtx, cancel = context.WithTimeout(runCtx, e.timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(runCtx, e.cmd[0], e.cmd[1:]...)
	cmd.Stdin = bytes.NewReader(data)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	cmd.WaitDelay = time.Second
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return err
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start tts command: %w", err)
	}

	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 0, 64*1024), maxResponseLine)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		chunk, err := e.decode(line)
		if err != nil {
			cancel()
			cmd.Wait()
			return err
		}
		if len(chunk.Samples) == 0 {
			continue
		}
		if !fn(chunk) {
			cancel()
			cmd.Wait()
			return nil
		}
	}
	scanErr := scanner.Err()
	waitErr := cmd.Wait()
	if err := ctx.Err(); err != nil {
		return err
	}
	if waitErr != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return fmt.Errorf("tts command failed: %w: %s", waitErr, msg)
		}
		return fmt.Errorf("tts command failed: %w", waitErr)
	}
	if scanErr != nil {
		return fmt.Errorf("read tts output: %w", scanErr)
	}
	return nil
}

func (e *execEngine) decode(line []byte) (audio.Chunk, error) {
	var resp execResponse
	if err := json.Unmarshal(line, &resp); err != nil {
		return audio.Chunk{}, fmt.Errorf("decode tts response: %w", err)
	}
	if resp.Error != "" {
		return audio.Chunk{}, errors.New(resp.Error)
	}
	raw, err := base64.StdEncoding.DecodeString(resp.Samples)
	if err != nil {
		return audio.Chunk{}, fmt.Errorf("decode tts samples: %w", err)
	}
	if len(raw)%4 != 0 {
		return audio.Chunk{}, fmt.Errorf("tts samples truncated: %d bytes", len(raw))
	}
	samples := make([]float32, len(raw)/4)
	for i := range samples {
		samples[i] = math.Float32frombits(binary.LittleEndian.Uint32(raw[i*4:]))
	}
	rate := resp.SampleRate
	if rate == 0 {
		rate = e.sampleRate
	}
	return audio.Chunk{Samples: samples, SampleRate: rate, Progress: resp.Progress}, nil
}
