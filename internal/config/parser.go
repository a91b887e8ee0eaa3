package config

import (
	"encoding/json"
	"fmt"
	"strings"
)

type fileConfig struct {
	Exercise  *string                 `json:"exercise"`
	Backend   *fileBackend            `json:"backend"`
	Scoring   *fileScoring            `json:"scoring"`
	Progress  *fileProgress           `json:"progress"`
	Audio     *fileAudio              `json:"audio"`
	User      *fileUser               `json:"user"`
	Exercises map[string]fileOverride `json:"exercises"`
	Indicator *fileIndicator          `json:"indicator"`
	HTTP      *fileHTTP               `json:"http"`
	Debug     *fileDebug              `json:"debug"`
}

type fileBackend struct {
	BaseURL          *string `json:"base_url"`
	RequestTimeoutMS *int    `json:"request_timeout_ms"`
	Token            *string `json:"token"`
}

type fileScoring struct {
	Transport     *string `json:"transport"`
	GRPCEndpoint  *string `json:"grpc_endpoint"`
	TimeoutMS     *int    `json:"timeout_ms"`
	MaxAudioBytes *int    `json:"max_audio_bytes"`
}

type fileProgress struct {
	Store      *string `json:"store"`
	SQLitePath *string `json:"sqlite_path"`
}

type fileAudio struct {
	Input    *string `json:"input"`
	Fallback *string `json:"fallback"`
}

type fileUser struct {
	ID    *string `json:"id"`
	Email *string `json:"email"`
}

type fileOverride struct {
	RecordSeconds *int  `json:"record_seconds"`
	SingleAttempt *bool `json:"single_attempt"`
}

type fileIndicator struct {
	Enable         *bool   `json:"enable"`
	Backend        *string `json:"backend"`
	DesktopAppName *string `json:"desktop_app_name"`
	SoundEnable    *bool   `json:"sound_enable"`
	ErrorTimeoutMS *int    `json:"error_timeout_ms"`
}

type fileHTTP struct {
	Listen *string `json:"listen"`
}

type fileDebug struct {
	AudioDump *bool   `json:"audio_dump"`
	DumpDir   *string `json:"dump_dir"`
}

func parseJSONC(content string, base Config) (Config, []Warning, error) {
	normalized, err := normalizeJSONC(content)
	if err != nil {
		return Config{}, nil, err
	}

	decoder := json.NewDecoder(strings.NewReader(normalized))
	decoder.DisallowUnknownFields()

	var payload fileConfig
	if err := decoder.Decode(&payload); err != nil {
		return Config{}, nil, wrapJSONDecodeError(normalized, err)
	}
	if err := ensureSingleJSONValue(decoder); err != nil {
		return Config{}, nil, wrapJSONDecodeError(normalized, err)
	}

	cfg := base
	if err := payload.applyTo(&cfg); err != nil {
		return Config{}, nil, err
	}

	warnings, err := Validate(cfg)
	if err != nil {
		return Config{}, nil, err
	}
	return cfg, warnings, nil
}

func setString(dst *string, src *string) {
	if src != nil {
		*dst = strings.TrimSpace(*src)
	}
}

func set[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}

func (p fileConfig) applyTo(cfg *Config) error {
	setString(&cfg.Exercise, p.Exercise)

	if b := p.Backend; b != nil {
		setString(&cfg.Backend.BaseURL, b.BaseURL)
		set(&cfg.Backend.RequestTimeoutMS, b.RequestTimeoutMS)
		setString(&cfg.Backend.Token, b.Token)
	}
	if s := p.Scoring; s != nil {
		setString(&cfg.Scoring.Transport, s.Transport)
		cfg.Scoring.Transport = strings.ToLower(cfg.Scoring.Transport)
		setString(&cfg.Scoring.GRPCEndpoint, s.GRPCEndpoint)
		set(&cfg.Scoring.TimeoutMS, s.TimeoutMS)
		set(&cfg.Scoring.MaxAudioBytes, s.MaxAudioBytes)
	}
	if pr := p.Progress; pr != nil {
		setString(&cfg.Progress.Store, pr.Store)
		cfg.Progress.Store = strings.ToLower(cfg.Progress.Store)
		setString(&cfg.Progress.SQLitePath, pr.SQLitePath)
	}
	if a := p.Audio; a != nil {
		setString(&cfg.Audio.Input, a.Input)
		setString(&cfg.Audio.Fallback, a.Fallback)
	}
	if u := p.User; u != nil {
		setString(&cfg.User.ID, u.ID)
		setString(&cfg.User.Email, u.Email)
	}
	if p.Exercises != nil {
		overrides := make(map[string]ExerciseOverride, len(cfg.Exercises)+len(p.Exercises))
		for key, o := range cfg.Exercises {
			overrides[key] = o
		}
		for key, o := range p.Exercises {
			key = strings.TrimSpace(key)
			if key == "" {
				return fmt.Errorf("exercises contains an empty key")
			}
			overrides[key] = ExerciseOverride{RecordSeconds: o.RecordSeconds, SingleAttempt: o.SingleAttempt}
		}
		cfg.Exercises = overrides
	}
	if i := p.Indicator; i != nil {
		set(&cfg.Indicator.Enable, i.Enable)
		setString(&cfg.Indicator.Backend, i.Backend)
		cfg.Indicator.Backend = strings.ToLower(cfg.Indicator.Backend)
		setString(&cfg.Indicator.DesktopAppName, i.DesktopAppName)
		set(&cfg.Indicator.SoundEnable, i.SoundEnable)
		set(&cfg.Indicator.ErrorTimeoutMS, i.ErrorTimeoutMS)
	}
	if h := p.HTTP; h != nil {
		setString(&cfg.HTTP.Listen, h.Listen)
	}
	if d := p.Debug; d != nil {
		set(&cfg.Debug.AudioDump, d.AudioDump)
		setString(&cfg.Debug.DumpDir, d.DumpDir)
	}
	return nil
}
