// Package wav writes synthesized audio as mono 16-bit PCM WAV files.
package wav

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/loqalabs/loqa-voice/internal/apperr"
	"github.com/loqalabs/loqa-voice/internal/audio"
)

const (
	Channels  = 1
	BitDepth  = 16
	pcmFormat = 1
)

// Write stores buf at path. The file is built next to path and renamed into
// place only after it is complete, so a failed write leaves path untouched.
func Write(path string, buf *audio.Buffer) (err error) {
	if buf == nil || buf.SampleRate() <= 0 {
		return apperr.IO("write wav", errors.New("audio buffer has no sample rate"))
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return apperr.IO("write wav", err)
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	if err = Encode(tmp, buf); err != nil {
		return apperr.IO("write wav", err)
	}
	if err = tmp.Sync(); err != nil {
		return apperr.IO("write wav", err)
	}
	if err = tmp.Close(); err != nil {
		return apperr.IO("write wav", err)
	}
	if err = os.Chmod(tmp.Name(), 0o644); err != nil {
		return apperr.IO("write wav", err)
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return apperr.IO("write wav", err)
	}
	return nil
}

// Encode writes buf as a complete WAV stream to w.
func Encode(w io.WriteSeeker, buf *audio.Buffer) error {
	pcm := audio.PCM16(buf.Samples())
	data := make([]int, len(pcm))
	for i, s := range pcm {
		data[i] = int(s)
	}

	enc := wav.NewEncoder(w, buf.SampleRate(), BitDepth, Channels, pcmFormat)
	ib := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: Channels, SampleRate: buf.SampleRate()},
		Data:           data,
		SourceBitDepth: BitDepth,
	}
	if err := enc.Write(ib); err != nil {
		return fmt.Errorf("encode wav: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("close wav encoder: %w", err)
	}
	return nil
}

// File is a decoded PCM WAV file.
type File struct {
	SampleRate int
	Channels   int
	BitDepth   int
	Samples    []int16
}

// Read decodes a PCM WAV file.
func Read(path string) (File, error) {
	f, err := os.Open(path)
	if err != nil {
		return File{}, apperr.IO("read wav", err)
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return File{}, apperr.IO("read wav", fmt.Errorf("%s is not a valid wav file", path))
	}
	ib, err := dec.FullPCMBuffer()
	if err != nil {
		return File{}, apperr.IO("read wav", err)
	}
	if dec.WavAudioFormat != pcmFormat {
		return File{}, apperr.IO("read wav", fmt.Errorf("unsupported audio format %d", dec.WavAudioFormat))
	}

	samples := make([]int16, len(ib.Data))
	for i, v := range ib.Data {
		samples[i] = int16(v)
	}
	return File{
		SampleRate: int(dec.SampleRate),
		Channels:   int(dec.NumChans),
		BitDepth:   int(dec.BitDepth),
		Samples:    samples,
	}, nil
}
