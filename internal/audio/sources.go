// Package audio adapts PulseAudio to the microphone and prompt speaker used by
// a practice session.
package audio

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jfreymuth/pulse"
	pulseproto "github.com/jfreymuth/pulse/proto"
)

const clientName = "recite"

// Source is one Pulse input source.
type Source struct {
	ID          string
	Description string
	State       string
	Available   bool
	Muted       bool
	Default     bool
}

// Selection is the resolved input plus a warning when a fallback was used.
type Selection struct {
	Source   Source
	Warning  string
	Fallback bool
}

func newClient(icon string) (*pulse.Client, error) {
	client, err := pulse.NewClient(
		pulse.ClientApplicationName(clientName),
		pulse.ClientApplicationIconName(icon),
	)
	if err != nil {
		return nil, fmt.Errorf("connect pulse server: %w", err)
	}
	return client, nil
}

// ListSources returns the Pulse input sources with default and availability
// metadata.
func ListSources(_ context.Context) ([]Source, error) {
	client, err := newClient("audio-input-microphone")
	if err != nil {
		return nil, err
	}
	defer client.Close()

	def, err := client.DefaultSource()
	if err != nil {
		return nil, fmt.Errorf("read default source: %w", err)
	}

	var infos pulseproto.GetSourceInfoListReply
	if err := client.RawRequest(&pulseproto.GetSourceInfoList{}, &infos); err != nil {
		return nil, fmt.Errorf("list sources: %w", err)
	}

	sources := make([]Source, 0, len(infos))
	for _, info := range infos {
		if info == nil {
			continue
		}
		sources = append(sources, Source{
			ID:          info.SourceName,
			Description: info.Device,
			State:       sourceState(info.State),
			Available:   portAvailable(info),
			Muted:       info.Mute,
			Default:     info.SourceName == def.ID(),
		})
	}
	return sources, nil
}

// SelectSource resolves the configured input and fallback against live sources.
func SelectSource(ctx context.Context, input, fallback string) (Selection, error) {
	sources, err := ListSources(ctx)
	if err != nil {
		return Selection{}, err
	}
	return choose(sources, input, fallback)
}

func choose(sources []Source, input, fallback string) (Selection, error) {
	if len(sources) == 0 {
		return Selection{}, errors.New("no audio input sources found")
	}

	input = normalizeTerm(input)
	fallback = normalizeTerm(fallback)

	var def, byInput, byFallback *Source
	for i := range sources {
		src := &sources[i]
		if src.Default {
			def = src
		}
		if byInput == nil && matches(*src, input) {
			byInput = src
		}
		if byFallback == nil && matches(*src, fallback) {
			byFallback = src
		}
	}

	primary := byInput
	switch {
	case input == "":
		if def == nil {
			return Selection{}, errors.New("default audio source is unavailable")
		}
		primary = def
	case byInput == nil:
		return Selection{}, fmt.Errorf("audio.input %q did not match any source", input)
	}
	if usable(*primary) {
		return Selection{Source: *primary}, nil
	}

	reason := "unavailable"
	if primary.Muted {
		reason = "muted"
	}

	alt := def
	if fallback != "" {
		if byFallback == nil {
			return Selection{}, fmt.Errorf("input %q is %s and fallback %q not found", primary.ID, reason, fallback)
		}
		alt = byFallback
	}
	if alt == nil {
		return Selection{}, fmt.Errorf("input %q is %s and no default source exists", primary.ID, reason)
	}
	if alt.Muted {
		return Selection{}, fmt.Errorf("audio fallback source %q is muted", alt.ID)
	}
	if !alt.Available {
		return Selection{}, fmt.Errorf("audio fallback source %q is not available", alt.ID)
	}

	return Selection{
		Source:   *alt,
		Warning:  fmt.Sprintf("audio.input %q is %s; falling back to %q", primary.ID, reason, alt.ID),
		Fallback: alt.ID != primary.ID,
	}, nil
}

func normalizeTerm(term string) string {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "default" {
		return ""
	}
	return term
}

func usable(src Source) bool {
	return src.Available && !src.Muted
}

func matches(src Source, term string) bool {
	if term == "" {
		return false
	}
	return strings.Contains(strings.ToLower(src.ID), term) ||
		strings.Contains(strings.ToLower(src.Description), term)
}

func sourceState(state uint32) string {
	switch state {
	case 0:
		return "running"
	case 1:
		return "idle"
	case 2:
		return "suspended"
	default:
		return fmt.Sprintf("unknown(%d)", state)
	}
}

// portAvailable treats a source without ports, or whose active port reports
// unknown (0) or yes (2), as available.
func portAvailable(info *pulseproto.GetSourceInfoReply) bool {
	if info == nil {
		return false
	}
	for _, port := range info.Ports {
		if port.Name == info.ActivePortName {
			return port.Available != 1
		}
	}
	return true
}
