// File: realtime/events.go
// Package realtime
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Inbound event decoding. Field names are fixed wire literals and must match
// byte-for-byte.

package realtime

import (
	"encoding/base64"
	"encoding/json"
)

// EventKind identifies a decoded inbound event.
type EventKind int

const (
	EventUnknown EventKind = iota
	EventSessionCreated
	EventInputCommitted
	EventAudioDelta
	EventTextDelta
	EventAudioDone
	EventResponseDone
	EventError
)

// String returns the event kind name.
func (k EventKind) String() string {
	switch k {
	case EventSessionCreated:
		return "session_created"
	case EventInputCommitted:
		return "input_committed"
	case EventAudioDelta:
		return "audio_delta"
	case EventTextDelta:
		return "text_delta"
	case EventAudioDone:
		return "audio_done"
	case EventResponseDone:
		return "response_done"
	case EventError:
		return "error"
	}
	return "unknown"
}

// Usage carries the peer's token accounting from response.done.
type Usage struct {
	TotalTokens  int `json:"total_tokens"`
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// Event is one decoded inbound protocol event. Only the fields relevant to
// its Kind are populated.
type Event struct {
	Kind    EventKind
	RawType string // wire type string, kept for EventUnknown diagnostics

	SessionID string // EventSessionCreated
	Model     string // EventSessionCreated
	Audio     []byte // EventAudioDelta, decoded PCM bytes
	Text      string // EventTextDelta
	Usage     Usage  // EventResponseDone
	ErrMsg    string // EventError
	ErrCode   string // EventError
}

// wireEvent is the superset of inbound fields this client reads.
type wireEvent struct {
	Type    string `json:"type"`
	Delta   string `json:"delta"`
	Session struct {
		ID    string `json:"id"`
		Model string `json:"model"`
	} `json:"session"`
	Response struct {
		Usage Usage `json:"usage"`
	} `json:"response"`
	Error struct {
		Message string `json:"message"`
		Code    string `json:"code"`
	} `json:"error"`
}

// ParseEvent maps one Text frame payload to a typed Event. It never fails:
// malformed JSON, a missing type field, or an undecodable delta all yield
// EventUnknown.
func ParseEvent(data []byte) *Event {
	var w wireEvent
	if err := json.Unmarshal(data, &w); err != nil || w.Type == "" {
		return &Event{Kind: EventUnknown}
	}

	ev := &Event{RawType: w.Type}
	switch w.Type {
	case "session.created":
		ev.Kind = EventSessionCreated
		ev.SessionID = w.Session.ID
		ev.Model = w.Session.Model

	case "input_audio_buffer.committed":
		ev.Kind = EventInputCommitted

	case "response.audio.delta":
		pcm, err := base64.StdEncoding.DecodeString(w.Delta)
		if err != nil {
			ev.Kind = EventUnknown
			return ev
		}
		ev.Kind = EventAudioDelta
		ev.Audio = pcm

	case "response.text.delta", "response.audio_transcript.delta":
		ev.Kind = EventTextDelta
		ev.Text = w.Delta

	case "response.audio.done":
		ev.Kind = EventAudioDone

	case "response.done":
		ev.Kind = EventResponseDone
		ev.Usage = w.Response.Usage

	case "error":
		ev.Kind = EventError
		ev.ErrMsg = w.Error.Message
		ev.ErrCode = w.Error.Code

	default:
		ev.Kind = EventUnknown
	}
	return ev
}
