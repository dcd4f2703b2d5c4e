package audio

import (
	"math"
	"time"
)

// Mixing constants for the combine stage.
const (
	voicePeak   = 0.9
	voiceGainDB = 2.0
	voiceFade   = time.Second
)

// SetFrameRate resamples the segment to the given rate using linear
// interpolation, preserving duration and channel count.
func (s *Segment) SetFrameRate(rate int) *Segment {
	if rate == s.SampleRate {
		return s.Clone()
	}
	if s.Frames() == 0 {
		out := s.Clone()
		out.SampleRate = rate
		return out
	}

	srcFrames := s.Frames()
	dstFrames := int(int64(srcFrames) * int64(rate) / int64(s.SampleRate))
	out := &Segment{
		SampleRate: rate,
		Channels:   s.Channels,
		Samples:    make([]float64, dstFrames*s.Channels),
	}

	ratio := float64(s.SampleRate) / float64(rate)
	for i := 0; i < dstFrames; i++ {
		srcPos := float64(i) * ratio
		i0 := int(srcPos)
		i1 := i0 + 1
		if i1 >= srcFrames {
			i1 = srcFrames - 1
		}
		frac := srcPos - float64(i0)
		for ch := 0; ch < s.Channels; ch++ {
			v0 := s.Samples[i0*s.Channels+ch]
			v1 := s.Samples[i1*s.Channels+ch]
			out.Samples[i*s.Channels+ch] = v0 + (v1-v0)*frac
		}
	}
	return out
}

// SetChannels converts between mono and stereo. Mono to stereo
// duplicates the channel; stereo to mono averages.
func (s *Segment) SetChannels(n int) *Segment {
	if n == s.Channels {
		return s.Clone()
	}

	frames := s.Frames()
	out := &Segment{
		SampleRate: s.SampleRate,
		Channels:   n,
		Samples:    make([]float64, frames*n),
	}

	for i := 0; i < frames; i++ {
		if n > s.Channels {
			for ch := 0; ch < n; ch++ {
				src := ch
				if src >= s.Channels {
					src = s.Channels - 1
				}
				out.Samples[i*n+ch] = s.Samples[i*s.Channels+src]
			}
			continue
		}
		var mixed float64
		for ch := 0; ch < s.Channels; ch++ {
			mixed += s.Samples[i*s.Channels+ch]
		}
		mixed /= float64(s.Channels)
		for ch := 0; ch < n; ch++ {
			out.Samples[i*n+ch] = mixed
		}
	}
	return out
}

// Normalize scales the segment so its peak amplitude equals the target.
// A silent segment is returned unchanged.
func (s *Segment) Normalize(peak float64) *Segment {
	var max float64
	for _, v := range s.Samples {
		if a := math.Abs(v); a > max {
			max = a
		}
	}

	out := s.Clone()
	if max == 0 {
		return out
	}
	scale := peak / max
	for i := range out.Samples {
		out.Samples[i] *= scale
	}
	return out
}

// Gain applies a gain in decibels. Samples are clamped at encode time,
// not here, matching overlay headroom behavior.
func (s *Segment) Gain(db float64) *Segment {
	scale := math.Pow(10, db/20)
	out := s.Clone()
	for i := range out.Samples {
		out.Samples[i] *= scale
	}
	return out
}

// FadeIn linearly ramps the first d of the segment from silence.
func (s *Segment) FadeIn(d time.Duration) *Segment {
	return s.fade(d, true)
}

// FadeOut linearly ramps the last d of the segment to silence.
func (s *Segment) FadeOut(d time.Duration) *Segment {
	return s.fade(d, false)
}

func (s *Segment) fade(d time.Duration, in bool) *Segment {
	out := s.Clone()
	frames := out.Frames()
	fadeFrames := framesFor(out.SampleRate, d)
	if fadeFrames > frames {
		fadeFrames = frames
	}
	if fadeFrames == 0 {
		return out
	}

	for i := 0; i < fadeFrames; i++ {
		gain := float64(i) / float64(fadeFrames)
		frame := i
		if !in {
			frame = frames - 1 - i
		}
		for ch := 0; ch < out.Channels; ch++ {
			out.Samples[frame*out.Channels+ch] *= gain
		}
	}
	return out
}

// AppendSilence extends the segment with trailing silence.
func (s *Segment) AppendSilence(d time.Duration) *Segment {
	out := s.Clone()
	extra := framesFor(out.SampleRate, d) * out.Channels
	out.Samples = append(out.Samples, make([]float64, extra)...)
	return out
}

// Overlay additively mixes b onto a. Both segments must share sample
// rate and channel count; the result spans the longer of the two.
func Overlay(a, b *Segment) *Segment {
	out := a.Clone()
	if len(b.Samples) > len(out.Samples) {
		out.Samples = append(out.Samples, make([]float64, len(b.Samples)-len(out.Samples))...)
	}
	for i, v := range b.Samples {
		out.Samples[i] += v
	}
	return out
}

// MixSongTracks combines a melody track and a voice track into the final
// song: the voice is resampled to the melody's rate and channel count,
// normalized, lifted and faded in/out; the shorter track is padded with
// trailing silence so both reach equal length; the two are then
// overlaid. The result carries the melody's sample rate and channels,
// and its duration is max(len(melody), len(voice)).
func MixSongTracks(melody, voice *Segment) *Segment {
	v := voice.SetFrameRate(melody.SampleRate).SetChannels(melody.Channels)
	v = v.Normalize(voicePeak).Gain(voiceGainDB)
	v = v.FadeIn(voiceFade).FadeOut(voiceFade)

	m := melody.Clone()
	if v.Frames() > m.Frames() {
		m = m.AppendSilence(v.Duration() - m.Duration())
	} else if m.Frames() > v.Frames() {
		v = v.AppendSilence(m.Duration() - v.Duration())
	}

	// Any sub-frame remainder after the duration-based pad is absorbed
	// by Overlay, which spans the longer of its inputs.
	return Overlay(m, v)
}
