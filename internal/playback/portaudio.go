//go:build !noportaudio

package playback

import (
	"errors"
	"fmt"

	"github.com/gordonklaus/portaudio"
)

func init() {
	registerProbe("portaudio", openPortAudio)
}

type portAudioDriver struct {
	framesPerBuffer int
}

func openPortAudio(framesPerBuffer int) (Driver, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("initialize portaudio: %w", err)
	}
	if _, err := portaudio.DefaultOutputDevice(); err != nil {
		portaudio.Terminate()
		return nil, fmt.Errorf("default output device: %w", err)
	}
	return &portAudioDriver{framesPerBuffer: framesPerBuffer}, nil
}

func (d *portAudioDriver) Name() string { return "portaudio" }

func (d *portAudioDriver) Open(sampleRate int) (Device, error) {
	buf := make([]int16, d.framesPerBuffer)
	stream, err := portaudio.OpenDefaultStream(0, 1, float64(sampleRate), len(buf), buf)
	if err != nil {
		return nil, fmt.Errorf("open output stream: %w", err)
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		return nil, fmt.Errorf("start output stream: %w", err)
	}
	return &portAudioDevice{stream: stream, buf: buf}, nil
}

func (d *portAudioDriver) Close() error {
	return portaudio.Terminate()
}

// portAudioDevice writes through a blocking stream. Samples that do not fill
// a whole buffer are held until the next Write or Close so chunk boundaries
// do not introduce gaps.
type portAudioDevice struct {
	stream  *portaudio.Stream
	buf     []int16
	pending int
}

func (d *portAudioDevice) Write(pcm []int16) error {
	for len(pcm) > 0 {
		n := copy(d.buf[d.pending:], pcm)
		d.pending += n
		pcm = pcm[n:]
		if d.pending < len(d.buf) {
			return nil
		}
		if err := d.flush(); err != nil {
			return err
		}
	}
	return nil
}

func (d *portAudioDevice) flush() error {
	d.pending = 0
	err := d.stream.Write()
	if errors.Is(err, portaudio.OutputUnderflowed) {
		return nil
	}
	return err
}

// Close plays out the held samples, then stops the stream. Stop waits for
// queued buffers to drain.
func (d *portAudioDevice) Close() error {
	var errs []error
	if d.pending > 0 {
		clear(d.buf[d.pending:])
		if err := d.flush(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := d.stream.Stop(); err != nil {
		errs = append(errs, err)
	}
	if err := d.stream.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
