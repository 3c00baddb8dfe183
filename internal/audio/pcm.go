package audio

import (
	"encoding/binary"
	"math"
)

const pcmScale = 32767

// Quantize clamps x to [-1,1] and rounds x*32767 to the nearest integer,
// ties away from zero. Playback and file output both go through here so the
// two paths are bit-identical.
func Quantize(x float32) int16 {
	v := float64(x)
	switch {
	case math.IsNaN(v):
		return 0
	case v > 1:
		v = 1
	case v < -1:
		v = -1
	}
	return int16(math.Round(v * pcmScale))
}

// QuantizeInto appends the quantized samples of src to dst.
func QuantizeInto(dst []int16, src []float32) []int16 {
	for _, x := range src {
		dst = append(dst, Quantize(x))
	}
	return dst
}

// PCM16 quantizes src into a new slice.
func PCM16(src []float32) []int16 {
	return QuantizeInto(make([]int16, 0, len(src)), src)
}

// PCM16LE quantizes src into little-endian 16-bit bytes.
func PCM16LE(src []float32) []byte {
	out := make([]byte, 2*len(src))
	for i, x := range src {
		binary.LittleEndian.PutUint16(out[2*i:], uint16(Quantize(x)))
	}
	return out
}
