// Package content resolves practice items, prompt audio and resume position.
package content

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/dil-foundation/lms-web-app-sub004/internal/backend"
	"github.com/dil-foundation/lms-web-app-sub004/internal/practice"
	"github.com/dil-foundation/lms-web-app-sub004/internal/validate"
)

// Provider supplies items and prompt audio for an exercise.
type Provider interface {
	Items(ctx context.Context, ex practice.Exercise) ([]practice.Item, error)
	Audio(ctx context.Context, ex practice.Exercise, item practice.Item) (practice.Clip, error)
}

// HTTPProvider reads content from the learning backend. Every response has
// one schema; a mismatch is an error rather than a probe for other keys.
type HTTPProvider struct {
	Client *backend.Client
}

type itemsResponse struct {
	Success *bool      `json:"success"`
	Message string     `json:"message"`
	Data    []itemWire `json:"data" validate:"dive"`
}

type itemWire struct {
	ID               int      `json:"id" validate:"gt=0"`
	Prompt           string   `json:"prompt" validate:"required"`
	AudioRef         string   `json:"audio_ref"`
	Secondary        string   `json:"secondary"`
	ExpectedKeywords []string `json:"expected_keywords"`
	Difficulty       string   `json:"difficulty"`
}

type audioResponse struct {
	AudioURL    string `json:"audio_url" validate:"omitempty,url"`
	AudioBase64 string `json:"audio_base64" validate:"required_without=AudioURL"`
}

// Items implements Provider.
func (p HTTPProvider) Items(ctx context.Context, ex practice.Exercise) ([]practice.Item, error) {
	var resp itemsResponse
	if err := p.Client.Get(ctx, ex.ItemsPath, &resp); err != nil {
		return nil, fmt.Errorf("load %s items: %w", ex.Key, err)
	}
	if resp.Success != nil && !*resp.Success {
		return nil, fmt.Errorf("load %s items: %s", ex.Key, resp.Message)
	}
	if err := validate.Default().Struct(resp); err != nil {
		return nil, fmt.Errorf("load %s items: %w", ex.Key, err)
	}

	items := make([]practice.Item, 0, len(resp.Data))
	for _, w := range resp.Data {
		items = append(items, practice.Item{
			ID:               w.ID,
			Prompt:           strings.TrimSpace(w.Prompt),
			AudioRef:         strings.TrimSpace(w.AudioRef),
			Secondary:        strings.TrimSpace(w.Secondary),
			ExpectedKeywords: w.ExpectedKeywords,
			Difficulty:       practice.NormalizeDifficulty(w.Difficulty),
		})
	}
	return items, nil
}

// Audio implements Provider. It posts the item id under the exercise's item field.
func (p HTTPProvider) Audio(ctx context.Context, ex practice.Exercise, item practice.Item) (practice.Clip, error) {
	if item.AudioRef != "" {
		return practice.Clip{URL: item.AudioRef}, nil
	}
	var resp audioResponse
	body := map[string]int{ex.ItemField: item.ID}
	if err := p.Client.Post(ctx, ex.AudioRoute(item.ID), body, &resp); err != nil {
		return practice.Clip{}, fmt.Errorf("%w: %w", practice.ErrPlayback, err)
	}
	if err := validate.Default().Struct(resp); err != nil {
		return practice.Clip{}, fmt.Errorf("%w: %w", practice.ErrPlayback, err)
	}
	return ClipFromPayload(resp.AudioURL, resp.AudioBase64)
}

// ClipFromPayload builds a clip from a url or a base64 blob; a data URI prefix
// is stripped.
func ClipFromPayload(url, b64 string) (practice.Clip, error) {
	if url = strings.TrimSpace(url); url != "" {
		return practice.Clip{URL: url}, nil
	}
	b64 = strings.TrimSpace(b64)
	if b64 == "" {
		return practice.Clip{}, fmt.Errorf("%w: response has no audio", practice.ErrPlayback)
	}

	mime := "audio/mpeg"
	if strings.HasPrefix(b64, "data:") {
		header, payload, ok := strings.Cut(b64, ",")
		if !ok {
			return practice.Clip{}, fmt.Errorf("%w: malformed data uri", practice.ErrPlayback)
		}
		if m, _, found := strings.Cut(strings.TrimPrefix(header, "data:"), ";"); found && m != "" {
			mime = m
		}
		b64 = payload
	}
	data, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return practice.Clip{}, fmt.Errorf("%w: decode audio: %w", practice.ErrPlayback, err)
	}
	return practice.Clip{Data: data, MIME: mime}, nil
}
