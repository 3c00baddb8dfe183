package playback

import (
	"bytes"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/loqalabs/loqa-voice/internal/apperr"
	"github.com/loqalabs/loqa-voice/internal/audio"
)

func newLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

type fakeDevice struct {
	written  []int16
	writes   int
	failAt   int
	closed   int
	closeErr error
}

func (d *fakeDevice) Write(pcm []int16) error {
	d.writes++
	if d.failAt > 0 && d.writes >= d.failAt {
		return errors.New("device unplugged")
	}
	d.written = append(d.written, pcm...)
	return nil
}

func (d *fakeDevice) Close() error {
	d.closed++
	return d.closeErr
}

type fakeDriver struct {
	dev     *fakeDevice
	openErr error
	rate    int
}

func (d *fakeDriver) Name() string { return "fake" }

func (d *fakeDriver) Open(sampleRate int) (Device, error) {
	d.rate = sampleRate
	if d.openErr != nil {
		return nil, d.openErr
	}
	return d.dev, nil
}

func (d *fakeDriver) Close() error { return nil }

func TestLiveSinkQuantizesChunks(t *testing.T) {
	dev := &fakeDevice{}
	drv := &fakeDriver{dev: dev}
	s := NewLiveSink(drv, 24000, newLogger())
	if drv.rate != 24000 {
		t.Fatalf("device opened at %d Hz", drv.rate)
	}

	chunks := [][]float32{{0, 0.5, -0.5}, {2, -2}}
	var want []int16
	for _, c := range chunks {
		s.Write(audio.Chunk{Samples: c, SampleRate: 24000})
		want = append(want, audio.PCM16(c)...)
	}
	s.Close()
	s.Close()

	if len(dev.written) != len(want) {
		t.Fatalf("expected %d samples, got %d", len(want), len(dev.written))
	}
	for i := range want {
		if dev.written[i] != want[i] {
			t.Fatalf("sample %d = %d, want %d", i, dev.written[i], want[i])
		}
	}
	if dev.closed != 1 {
		t.Fatalf("expected device closed once, got %d", dev.closed)
	}
}

func TestLiveSinkOpenFailureDisablesPlayback(t *testing.T) {
	var degraded error
	s := NewLiveSink(&fakeDriver{openErr: errors.New("no device")}, 24000, newLogger(),
		OnDegrade(func(err error) { degraded = err }))
	if s.Enabled() {
		t.Fatal("expected playback disabled")
	}
	s.Write(audio.Chunk{Samples: []float32{0.1}, SampleRate: 24000})
	s.Close()
	if apperr.KindOf(s.Err()) != apperr.KindDevice {
		t.Fatalf("expected device error, got %v", s.Err())
	}
	if degraded == nil {
		t.Fatal("expected degrade callback")
	}
}

func TestLiveSinkWriteFailureDisablesPlayback(t *testing.T) {
	dev := &fakeDevice{failAt: 2}
	s := NewLiveSink(&fakeDriver{dev: dev}, 16000, newLogger())
	s.Write(audio.Chunk{Samples: []float32{0.1}, SampleRate: 16000})
	s.Write(audio.Chunk{Samples: []float32{0.2}, SampleRate: 16000})
	s.Write(audio.Chunk{Samples: []float32{0.3}, SampleRate: 16000})
	if s.Enabled() {
		t.Fatal("expected playback disabled after write failure")
	}
	if dev.writes != 2 {
		t.Fatalf("expected writes to stop after failure, got %d", dev.writes)
	}
	if dev.closed != 1 {
		t.Fatalf("expected failed device to be closed once, got %d", dev.closed)
	}
	s.Close()
	if dev.closed != 1 {
		t.Fatalf("close after failure must not reclose the device")
	}
}

func TestNullDriver(t *testing.T) {
	d := Null()
	if _, err := d.Open(24000); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
	s := NewLiveSink(d, 24000, newLogger())
	if s.Enabled() {
		t.Fatal("null driver must not enable playback")
	}
}

func TestDetectFallsBackToNull(t *testing.T) {
	saved := probes
	t.Cleanup(func() { probes = saved })

	probes = nil
	registerProbe("broken", func(int) (Driver, error) { return nil, errors.New("no backend") })
	if got := Detect(newLogger(), 512); got.Name() != "null" {
		t.Fatalf("expected null driver, got %s", got.Name())
	}

	registerProbe("fake", func(int) (Driver, error) { return &fakeDriver{dev: &fakeDevice{}}, nil })
	if got := Detect(newLogger(), 512); got.Name() != "fake" {
		t.Fatalf("expected fake driver, got %s", got.Name())
	}
}

func TestLiveSinkKeepsCallerComponent(t *testing.T) {
	var out bytes.Buffer
	log := slog.New(slog.NewTextHandler(&out, nil)).With(slog.String("component", "pipeline"))
	s := NewLiveSink(&fakeDriver{openErr: errors.New("no device")}, 24000, log)
	s.Close()

	line := strings.TrimSpace(out.String())
	if !strings.Contains(line, "live playback disabled") {
		t.Fatalf("expected degrade warning, got %q", line)
	}
	if n := strings.Count(line, "component="); n != 1 {
		t.Fatalf("expected one component attribute, got %d: %s", n, line)
	}
	if !strings.Contains(line, "driver=fake") {
		t.Fatalf("expected driver attribute: %s", line)
	}
}
