package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/lyricwave/api/internal/audio"
	"github.com/lyricwave/api/internal/config"
)

// VoiceGenerator defines the interface for text-to-speech synthesis
type VoiceGenerator interface {
	GenerateVoice(ctx context.Context, text string) ([]byte, error)
	IsConfigured() bool
}

// VoiceClient calls an external text-to-speech service that answers with
// raw WAV bytes. Without a configured upstream it synthesizes a spoken
// placeholder locally.
type VoiceClient struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
}

type generateVoiceRequest struct {
	Text string `json:"text"`
}

const (
	voiceSampleRate = 24000
	voiceChannels   = 1
)

// NewVoiceClient creates a new text-to-speech client
func NewVoiceClient(cfg *config.ModelConfig) *VoiceClient {
	return &VoiceClient{
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.Timeout) * time.Second,
		},
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
	}
}

// GenerateVoice returns spoken WAV audio for the lyric text.
func (c *VoiceClient) GenerateVoice(ctx context.Context, text string) ([]byte, error) {
	if !c.IsConfigured() {
		return synthVoice(text), nil
	}

	body, err := json.Marshal(generateVoiceRequest{Text: text})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal voice request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/tts", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create voice request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "audio/wav")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("voice generation request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("voice service returned %d: %s", resp.StatusCode, msg)
	}

	return io.ReadAll(resp.Body)
}

// IsConfigured returns true when an upstream TTS endpoint is set
func (c *VoiceClient) IsConfigured() bool {
	return c.baseURL != ""
}

// synthVoice produces one short tone burst per word, pitched by a hash
// of the word. Deterministic for a given text.
func synthVoice(text string) []byte {
	words := strings.Fields(text)
	if len(words) == 0 {
		words = []string{"silence"}
	}

	seg := &audio.Segment{SampleRate: voiceSampleRate, Channels: voiceChannels}
	gap := audio.NewSilence(voiceSampleRate, voiceChannels, 80*time.Millisecond)
	for _, word := range words {
		h := fnv.New32a()
		h.Write([]byte(word))
		freq := 120 + float64(h.Sum32()%160) // speech-register band
		dur := time.Duration(120+40*len(word)) * time.Millisecond

		burst := audio.NewTone(freq, voiceSampleRate, voiceChannels, dur)
		burst = burst.FadeIn(15 * time.Millisecond).FadeOut(15 * time.Millisecond)
		seg.Samples = append(seg.Samples, burst.Samples...)
		seg.Samples = append(seg.Samples, gap.Samples...)
	}

	return audio.EncodeWAV(seg)
}
