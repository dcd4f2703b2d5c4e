package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"io"
	"math/rand"
	"net/http"
	"time"

	"github.com/lyricwave/api/internal/audio"
	"github.com/lyricwave/api/internal/config"
)

// MelodyGenerator defines the interface for melody synthesis
type MelodyGenerator interface {
	GenerateMelody(ctx context.Context, text, style string) ([]byte, error)
	IsConfigured() bool
}

// MelodyClient calls an external text-to-melody model service. When no
// upstream is configured it falls back to a deterministic local
// synthesizer so the pipeline stays runnable in development.
type MelodyClient struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
}

type generateMelodyRequest struct {
	Text  string `json:"text"`
	Style string `json:"style,omitempty"`
}

const (
	melodySampleRate = 32000
	melodyChannels   = 1
)

// NewMelodyClient creates a new melody generation client
func NewMelodyClient(cfg *config.ModelConfig) *MelodyClient {
	return &MelodyClient{
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.Timeout) * time.Second,
		},
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
	}
}

// GenerateMelody returns WAV audio for the given lyric text. The style
// name, when present, is prepended to the prompt.
func (c *MelodyClient) GenerateMelody(ctx context.Context, text, style string) ([]byte, error) {
	prompt := text
	if style != "" {
		prompt = style + ": " + text
	}

	if !c.IsConfigured() {
		return synthMelody(prompt), nil
	}

	body, err := json.Marshal(generateMelodyRequest{Text: prompt, Style: style})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal melody request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/melody/generate", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create melody request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "audio/wav")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("melody generation request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("melody service returned %d: %s", resp.StatusCode, msg)
	}

	return io.ReadAll(resp.Body)
}

// IsConfigured returns true when an upstream model endpoint is set
func (c *MelodyClient) IsConfigured() bool {
	return c.baseURL != ""
}

// pentatonic scale in Hz, spread over two octaves
var melodyScale = []float64{261.63, 293.66, 329.63, 392.00, 440.00, 523.25, 587.33, 659.25, 783.99, 880.00}

// synthMelody produces a short tone sequence seeded by the prompt text.
func synthMelody(text string) []byte {
	h := fnv.New64a()
	h.Write([]byte(text))
	rng := rand.New(rand.NewSource(int64(h.Sum64())))

	notes := 8 + rng.Intn(8)
	seg := &audio.Segment{SampleRate: melodySampleRate, Channels: melodyChannels}
	for i := 0; i < notes; i++ {
		freq := melodyScale[rng.Intn(len(melodyScale))]
		dur := time.Duration(250+rng.Intn(500)) * time.Millisecond
		tone := audio.NewTone(freq, melodySampleRate, melodyChannels, dur)
		tone = tone.FadeIn(10 * time.Millisecond).FadeOut(10 * time.Millisecond)
		seg.Samples = append(seg.Samples, tone.Samples...)
	}

	return audio.EncodeWAV(seg)
}
