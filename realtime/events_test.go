// File: realtime/events_test.go
// Package realtime
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package realtime

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEventSessionCreated(t *testing.T) {
	ev := ParseEvent([]byte(`{
		"type": "session.created",
		"session": {"id": "sess_001", "model": "gpt-4o-realtime-preview-2024-12-17"}
	}`))
	require.Equal(t, EventSessionCreated, ev.Kind)
	assert.Equal(t, "sess_001", ev.SessionID)
	assert.Equal(t, "gpt-4o-realtime-preview-2024-12-17", ev.Model)
}

func TestParseEventAudioDelta(t *testing.T) {
	ev := ParseEvent([]byte(`{"type":"response.audio.delta","delta":"AAAAAA=="}`))
	require.Equal(t, EventAudioDelta, ev.Kind)
	assert.Equal(t, []byte{0, 0, 0, 0}, ev.Audio)
}

func TestParseEventAudioDeltaBadBase64(t *testing.T) {
	ev := ParseEvent([]byte(`{"type":"response.audio.delta","delta":"!!!not-base64!!!"}`))
	assert.Equal(t, EventUnknown, ev.Kind)
	assert.Equal(t, "response.audio.delta", ev.RawType)
	assert.Nil(t, ev.Audio)
}

func TestParseEventTextDeltas(t *testing.T) {
	ev := ParseEvent([]byte(`{"type":"response.text.delta","delta":"Hello"}`))
	require.Equal(t, EventTextDelta, ev.Kind)
	assert.Equal(t, "Hello", ev.Text)

	ev = ParseEvent([]byte(`{"type":"response.audio_transcript.delta","delta":", world"}`))
	require.Equal(t, EventTextDelta, ev.Kind)
	assert.Equal(t, ", world", ev.Text)
}

func TestParseEventResponseDone(t *testing.T) {
	ev := ParseEvent([]byte(`{
		"type": "response.done",
		"response": {"usage": {"total_tokens": 42, "input_tokens": 30, "output_tokens": 12}}
	}`))
	require.Equal(t, EventResponseDone, ev.Kind)
	assert.Equal(t, 42, ev.Usage.TotalTokens)
	assert.Equal(t, 30, ev.Usage.InputTokens)
	assert.Equal(t, 12, ev.Usage.OutputTokens)
}

func TestParseEventError(t *testing.T) {
	ev := ParseEvent([]byte(`{
		"type": "error",
		"error": {"message": "buffer too small", "code": "input_audio_buffer_commit_empty"}
	}`))
	require.Equal(t, EventError, ev.Kind)
	assert.Equal(t, "buffer too small", ev.ErrMsg)
	assert.Equal(t, "input_audio_buffer_commit_empty", ev.ErrCode)
}

func TestParseEventLifecycleMarkers(t *testing.T) {
	assert.Equal(t, EventInputCommitted,
		ParseEvent([]byte(`{"type":"input_audio_buffer.committed"}`)).Kind)
	assert.Equal(t, EventAudioDone,
		ParseEvent([]byte(`{"type":"response.audio.done"}`)).Kind)
}

func TestParseEventNeverFails(t *testing.T) {
	cases := map[string]string{
		"malformed json":  `{"type": "resp`,
		"missing type":    `{"delta": "abc"}`,
		"empty object":    `{}`,
		"unknown type":    `{"type":"rate_limits.updated"}`,
		"not even object": `[1,2,3]`,
	}
	for name, payload := range cases {
		ev := ParseEvent([]byte(payload))
		require.NotNil(t, ev, name)
		assert.Equal(t, EventUnknown, ev.Kind, name)
	}
}

func TestEventKindString(t *testing.T) {
	assert.Equal(t, "audio_delta", EventAudioDelta.String())
	assert.Equal(t, "unknown", EventUnknown.String())
	assert.Equal(t, "unknown", EventKind(99).String())
}
