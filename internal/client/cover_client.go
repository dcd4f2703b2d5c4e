package client

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"io"
	"math/rand"
	"net/http"
	"time"

	"github.com/lyricwave/api/internal/config"
)

// CoverGenerator defines the interface for cover image synthesis
type CoverGenerator interface {
	GenerateCover(ctx context.Context, text string) ([]byte, error)
	IsConfigured() bool
}

// CoverClient calls an external text-to-image model service. Without a
// configured upstream it draws an abstract cover locally, seeded by a
// hash of the lyric text so the same text always yields the same image.
type CoverClient struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
}

type generateCoverRequest struct {
	Prompt string `json:"prompt"`
}

const (
	coverWidth  = 800
	coverHeight = 600
	coverShapes = 100
)

// NewCoverClient creates a new cover image client
func NewCoverClient(cfg *config.ModelConfig) *CoverClient {
	return &CoverClient{
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.Timeout) * time.Second,
		},
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
	}
}

// GenerateCover returns JPEG bytes for the given lyric text.
func (c *CoverClient) GenerateCover(ctx context.Context, text string) ([]byte, error) {
	if !c.IsConfigured() {
		return drawAbstractCover(text)
	}

	body, err := json.Marshal(generateCoverRequest{Prompt: text})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal cover request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/images/generate", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create cover request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "image/jpeg")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("cover generation request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("cover service returned %d: %s", resp.StatusCode, msg)
	}

	return io.ReadAll(resp.Body)
}

// IsConfigured returns true when an upstream image endpoint is set
func (c *CoverClient) IsConfigured() bool {
	return c.baseURL != ""
}

// drawAbstractCover renders random shapes on a white canvas, seeded by
// an md5 hash of the text.
func drawAbstractCover(text string) ([]byte, error) {
	sum := md5.Sum([]byte(text))
	seed := int64(binary.BigEndian.Uint64(sum[:8]))
	rng := rand.New(rand.NewSource(seed))

	img := image.NewRGBA(image.Rect(0, 0, coverWidth, coverHeight))
	fillRect(img, img.Bounds(), color.RGBA{255, 255, 255, 255})

	for i := 0; i < coverShapes; i++ {
		col := color.RGBA{
			uint8(rng.Intn(256)),
			uint8(rng.Intn(256)),
			uint8(rng.Intn(256)),
			255,
		}
		x := rng.Intn(coverWidth)
		y := rng.Intn(coverHeight)
		w := 10 + rng.Intn(190)
		h := 10 + rng.Intn(190)

		switch rng.Intn(3) {
		case 0:
			fillEllipse(img, x, y, w/2, h/2, col)
		case 1:
			fillRect(img, image.Rect(x, y, x+w, y+h), col)
		default:
			drawLine(img, x, y, rng.Intn(coverWidth), rng.Intn(coverHeight), col)
		}
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 85}); err != nil {
		return nil, fmt.Errorf("failed to encode cover image: %w", err)
	}
	return buf.Bytes(), nil
}

func fillRect(img *image.RGBA, r image.Rectangle, col color.RGBA) {
	r = r.Intersect(img.Bounds())
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			img.SetRGBA(x, y, col)
		}
	}
}

func fillEllipse(img *image.RGBA, cx, cy, rx, ry int, col color.RGBA) {
	if rx == 0 || ry == 0 {
		return
	}
	for y := cy - ry; y <= cy+ry; y++ {
		for x := cx - rx; x <= cx+rx; x++ {
			dx := float64(x-cx) / float64(rx)
			dy := float64(y-cy) / float64(ry)
			if dx*dx+dy*dy <= 1 {
				if image.Pt(x, y).In(img.Bounds()) {
					img.SetRGBA(x, y, col)
				}
			}
		}
	}
}

func drawLine(img *image.RGBA, x0, y0, x1, y1 int, col color.RGBA) {
	dx := abs(x1 - x0)
	dy := -abs(y1 - y0)
	sx, sy := 1, 1
	if x0 > x1 {
		sx = -1
	}
	if y0 > y1 {
		sy = -1
	}
	err := dx + dy

	for {
		if image.Pt(x0, y0).In(img.Bounds()) {
			img.SetRGBA(x0, y0, col)
		}
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			x0 += sx
		}
		if e2 <= dx {
			err += dx
			y0 += sy
		}
	}
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
