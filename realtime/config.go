// File: realtime/config.go
// Package realtime
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package realtime

// Defaults match the cloud API's documented session settings.
const (
	DefaultModel  = "gpt-4o-realtime-preview-2024-12-17"
	DefaultVoice  = "alloy"
	DefaultFormat = "pcm16"
)

// VADConfig tunes server-side turn detection.
type VADConfig struct {
	Threshold         float64
	PrefixPaddingMS   int
	SilenceDurationMS int
}

// Config is the protocol-level session configuration. It is pushed to the
// peer on every connect and on explicit UpdateSession; only non-empty fields
// are transmitted.
type Config struct {
	Model             string
	Voice             string
	InputAudioFormat  string
	OutputAudioFormat string
	Instructions      string
	TurnDetection     *VADConfig // nil = manual (push-to-talk) turns
}

// DefaultConfig returns the config used when the caller supplies nothing.
func DefaultConfig() Config {
	return Config{
		Model:             DefaultModel,
		Voice:             DefaultVoice,
		InputAudioFormat:  DefaultFormat,
		OutputAudioFormat: DefaultFormat,
	}
}

func (c *Config) withDefaults() Config {
	out := *c
	if out.Model == "" {
		out.Model = DefaultModel
	}
	if out.Voice == "" {
		out.Voice = DefaultVoice
	}
	if out.InputAudioFormat == "" {
		out.InputAudioFormat = DefaultFormat
	}
	if out.OutputAudioFormat == "" {
		out.OutputAudioFormat = DefaultFormat
	}
	return out
}
