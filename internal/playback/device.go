// Package playback streams synthesized audio to a live output device.
//
// A Driver is chosen once at startup by Detect. Drivers that depend on native
// audio libraries register a probe from their own build-tagged file, so the
// rest of the program only ever sees the Driver interface.
package playback

import (
	"errors"
	"log/slog"
)

// ErrUnavailable is returned by drivers that cannot open any output device.
var ErrUnavailable = errors.New("no audio output available")

// Device is an open mono 16-bit output stream. Write blocks until the device
// has accepted the samples, which throttles synthesis to playback speed.
type Device interface {
	Write(pcm []int16) error
	Close() error
}

// Driver opens output devices.
type Driver interface {
	Name() string
	Open(sampleRate int) (Device, error)
	Close() error
}

type nullDriver struct{}

// Null returns the driver used when playback is disabled or unsupported.
func Null() Driver { return nullDriver{} }

func (nullDriver) Name() string             { return "null" }
func (nullDriver) Open(int) (Device, error) { return nil, ErrUnavailable }
func (nullDriver) Close() error             { return nil }

type probe struct {
	name string
	open func(framesPerBuffer int) (Driver, error)
}

var probes []probe

func registerProbe(name string, open func(framesPerBuffer int) (Driver, error)) {
	probes = append(probes, probe{name: name, open: open})
}

// Detect returns the first driver whose probe succeeds, or the null driver.
func Detect(log *slog.Logger, framesPerBuffer int) Driver {
	log = log.With(slog.String("component", "playback"))
	for _, p := range probes {
		d, err := p.open(framesPerBuffer)
		if err != nil {
			log.Info("audio driver unavailable", slog.String("driver", p.name), slog.String("error", err.Error()))
			continue
		}
		log.Debug("audio driver selected", slog.String("driver", d.Name()))
		return d
	}
	return Null()
}
