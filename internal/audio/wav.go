// Package audio implements the PCM segment operations behind the song
// combine stage: a WAV container codec plus resampling, normalization,
// fades and overlay mixing.
package audio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"time"
)

// Segment is uncompressed PCM audio. Samples are interleaved across
// channels and normalized to [-1, 1].
type Segment struct {
	SampleRate int
	Channels   int
	Samples    []float64
}

// NewSilence returns a silent segment of the given duration.
func NewSilence(sampleRate, channels int, d time.Duration) *Segment {
	frames := framesFor(sampleRate, d)
	return &Segment{
		SampleRate: sampleRate,
		Channels:   channels,
		Samples:    make([]float64, frames*channels),
	}
}

// NewTone returns a sine tone at the given frequency. Used by the local
// generation fallbacks.
func NewTone(freq float64, sampleRate, channels int, d time.Duration) *Segment {
	seg := NewSilence(sampleRate, channels, d)
	frames := len(seg.Samples) / channels
	for i := 0; i < frames; i++ {
		v := 0.5 * math.Sin(2*math.Pi*freq*float64(i)/float64(sampleRate))
		for ch := 0; ch < channels; ch++ {
			seg.Samples[i*channels+ch] = v
		}
	}
	return seg
}

func framesFor(sampleRate int, d time.Duration) int {
	return int(int64(sampleRate) * int64(d) / int64(time.Second))
}

// Frames returns the number of sample frames (samples per channel).
func (s *Segment) Frames() int {
	if s.Channels == 0 {
		return 0
	}
	return len(s.Samples) / s.Channels
}

// Duration returns the playback length of the segment.
func (s *Segment) Duration() time.Duration {
	if s.SampleRate == 0 {
		return 0
	}
	return time.Duration(int64(s.Frames()) * int64(time.Second) / int64(s.SampleRate))
}

func (s *Segment) Clone() *Segment {
	out := &Segment{SampleRate: s.SampleRate, Channels: s.Channels}
	out.Samples = make([]float64, len(s.Samples))
	copy(out.Samples, s.Samples)
	return out
}

const (
	riffHeaderSize = 44
	pcmFormat      = 1
	bitsPerSample  = 16
)

var ErrInvalidWAV = errors.New("invalid WAV data")

// EncodeWAV serializes the segment as a PCM16 little-endian WAV file.
func EncodeWAV(s *Segment) []byte {
	dataSize := len(s.Samples) * 2
	buf := bytes.NewBuffer(make([]byte, 0, riffHeaderSize+dataSize))

	byteRate := s.SampleRate * s.Channels * bitsPerSample / 8
	blockAlign := s.Channels * bitsPerSample / 8

	buf.WriteString("RIFF")
	binary.Write(buf, binary.LittleEndian, uint32(36+dataSize))
	buf.WriteString("WAVE")
	buf.WriteString("fmt ")
	binary.Write(buf, binary.LittleEndian, uint32(16))
	binary.Write(buf, binary.LittleEndian, uint16(pcmFormat))
	binary.Write(buf, binary.LittleEndian, uint16(s.Channels))
	binary.Write(buf, binary.LittleEndian, uint32(s.SampleRate))
	binary.Write(buf, binary.LittleEndian, uint32(byteRate))
	binary.Write(buf, binary.LittleEndian, uint16(blockAlign))
	binary.Write(buf, binary.LittleEndian, uint16(bitsPerSample))
	buf.WriteString("data")
	binary.Write(buf, binary.LittleEndian, uint32(dataSize))

	for _, v := range s.Samples {
		buf.Write(pcm16Bytes(v))
	}
	return buf.Bytes()
}

func pcm16Bytes(v float64) []byte {
	if v > 1 {
		v = 1
	} else if v < -1 {
		v = -1
	}
	n := int16(math.Round(v * 32767))
	return []byte{byte(n), byte(n >> 8)}
}

// DecodeWAV parses a PCM16 WAV file. Non-PCM encodings are rejected.
func DecodeWAV(data []byte) (*Segment, error) {
	if len(data) < riffHeaderSize || string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return nil, ErrInvalidWAV
	}

	var (
		sampleRate int
		channels   int
		pcm        []byte
		haveFmt    bool
	)

	// Walk RIFF chunks; only fmt and data matter.
	pos := 12
	for pos+8 <= len(data) {
		chunkID := string(data[pos : pos+4])
		chunkSize := int(binary.LittleEndian.Uint32(data[pos+4 : pos+8]))
		body := pos + 8
		if body+chunkSize > len(data) {
			return nil, ErrInvalidWAV
		}

		switch chunkID {
		case "fmt ":
			if chunkSize < 16 {
				return nil, ErrInvalidWAV
			}
			format := binary.LittleEndian.Uint16(data[body : body+2])
			if format != pcmFormat {
				return nil, fmt.Errorf("unsupported WAV format %d", format)
			}
			channels = int(binary.LittleEndian.Uint16(data[body+2 : body+4]))
			sampleRate = int(binary.LittleEndian.Uint32(data[body+4 : body+8]))
			bits := binary.LittleEndian.Uint16(data[body+14 : body+16])
			if bits != bitsPerSample {
				return nil, fmt.Errorf("unsupported bit depth %d", bits)
			}
			haveFmt = true
		case "data":
			pcm = data[body : body+chunkSize]
		}

		pos = body + chunkSize
		if chunkSize%2 == 1 {
			pos++ // chunks are word-aligned
		}
	}

	if !haveFmt || pcm == nil || channels == 0 || sampleRate == 0 {
		return nil, ErrInvalidWAV
	}

	samples := make([]float64, len(pcm)/2)
	for i := range samples {
		n := int16(binary.LittleEndian.Uint16(pcm[i*2 : i*2+2]))
		samples[i] = float64(n) / 32767
	}

	return &Segment{SampleRate: sampleRate, Channels: channels, Samples: samples}, nil
}
