// File: realtime/client.go
// Package realtime
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Outbound operations and the poll loop. Wire event names and field names
// are fixed literals.

package realtime

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/momentics/realtime-ws/api"
	"github.com/momentics/realtime-ws/client"
	"github.com/momentics/realtime-ws/protocol"
)

// ConnState models the protocol-level connection lifecycle, layered above
// the WebSocket session state.
type ConnState int32

const (
	StateDisconnected ConnState = iota
	StateConnecting
	StateConnected
	StateError
)

const defaultCreatedWait = 10 * time.Second

// Option mutates client construction.
type Option func(*Client)

// WithEventIDs overrides the event_id generator (tests use a fixed counter).
func WithEventIDs(gen func() string) Option {
	return func(c *Client) { c.newEventID = gen }
}

// WithCreatedWait bounds how long Connect waits for session.created.
func WithCreatedWait(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.createdWait = d
		}
	}
}

// Client speaks the realtime JSON event protocol over one WebSocket session.
// It is the only component that mutates the session config.
type Client struct {
	sess        *client.WSSession
	cfg         Config
	state       ConnState
	sessionID   string
	model       string
	newEventID  func() string
	createdWait time.Duration
}

// NewClient wraps an unconnected (or attached) session.
func NewClient(sess *client.WSSession, cfg Config, opts ...Option) *Client {
	c := &Client{
		sess:        sess,
		cfg:         cfg.withDefaults(),
		newEventID:  uuid.NewString,
		createdWait: defaultCreatedWait,
	}
	if sess.State() == client.StateOpen {
		c.state = StateConnected
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// State returns the protocol connection state.
func (c *Client) State() ConnState { return c.state }

// SessionID returns the peer-assigned session id, empty until
// session.created arrives.
func (c *Client) SessionID() string { return c.sessionID }

// Model returns the model name the peer reported in session.created.
func (c *Client) Model() string { return c.model }

// Config returns the active session configuration.
func (c *Client) Config() Config { return c.cfg }

// Connect performs the WebSocket handshake, waits for session.created, and
// pushes the session configuration to the peer.
func (c *Client) Connect() error {
	c.state = StateConnecting
	if err := c.sess.Connect(); err != nil {
		c.state = StateError
		return err
	}

	deadline := time.Now().Add(c.createdWait)
	for {
		ev, err := c.PollEvent()
		if err != nil {
			c.state = StateError
			return fmt.Errorf("waiting for session.created: %w", err)
		}
		if ev != nil {
			if ev.Kind == EventSessionCreated {
				break
			}
			// A peer error here (bad model, bad auth) means the session
			// will never be created; fail now, not at the deadline.
			if ev.Kind == EventError {
				c.state = StateError
				_ = c.sess.Close()
				return api.NewError(api.ErrCodeAPI, ev.ErrMsg).
					WithContext("code", ev.ErrCode)
			}
		}
		if time.Now().After(deadline) {
			c.state = StateError
			_ = c.sess.Close()
			return fmt.Errorf("session.created: %w", api.ErrOperationTimeout)
		}
		if ev == nil {
			time.Sleep(5 * time.Millisecond)
		}
	}

	if err := c.UpdateSession(c.cfg); err != nil {
		c.state = StateError
		return err
	}
	c.state = StateConnected
	return nil
}

// Disconnect closes the session.
func (c *Client) Disconnect() error {
	c.state = StateDisconnected
	return c.sess.Close()
}

// Session exposes the underlying WebSocket session, mainly for stats.
func (c *Client) Session() *client.WSSession { return c.sess }

// AppendAudio streams one PCM chunk into the peer's input buffer.
func (c *Client) AppendAudio(pcm []byte) error {
	return c.sendEvent(struct {
		Type    string `json:"type"`
		EventID string `json:"event_id,omitempty"`
		Audio   string `json:"audio"`
	}{
		Type:    "input_audio_buffer.append",
		EventID: c.newEventID(),
		Audio:   base64.StdEncoding.EncodeToString(pcm),
	})
}

// CommitAudio commits the input buffer, ending the user turn.
func (c *Client) CommitAudio() error {
	return c.sendTyped("input_audio_buffer.commit")
}

// ClearAudio discards the uncommitted input buffer.
func (c *Client) ClearAudio() error {
	return c.sendTyped("input_audio_buffer.clear")
}

// CancelResponse aborts the in-flight response generation.
func (c *Client) CancelResponse() error {
	return c.sendTyped("response.cancel")
}

// SendText adds a user text message to the conversation.
func (c *Client) SendText(text string) error {
	type contentPart struct {
		Type string `json:"type"`
		Text string `json:"text"`
	}
	type item struct {
		Type    string        `json:"type"`
		Role    string        `json:"role"`
		Content []contentPart `json:"content"`
	}
	return c.sendEvent(struct {
		Type    string `json:"type"`
		EventID string `json:"event_id,omitempty"`
		Item    item   `json:"item"`
	}{
		Type:    "conversation.item.create",
		EventID: c.newEventID(),
		Item: item{
			Type:    "message",
			Role:    "user",
			Content: []contentPart{{Type: "input_text", Text: text}},
		},
	})
}

// CreateResponse asks the peer to generate a response, optionally overriding
// the session instructions for this response only.
func (c *Client) CreateResponse(instructions string) error {
	type responseParams struct {
		Instructions string `json:"instructions,omitempty"`
	}
	var resp *responseParams
	if instructions != "" {
		resp = &responseParams{Instructions: instructions}
	}
	return c.sendEvent(struct {
		Type     string          `json:"type"`
		EventID  string          `json:"event_id,omitempty"`
		Response *responseParams `json:"response,omitempty"`
	}{
		Type:     "response.create",
		EventID:  c.newEventID(),
		Response: resp,
	})
}

// UpdateSession transmits only the non-empty fields of cfg and records it as
// the active configuration.
func (c *Client) UpdateSession(cfg Config) error {
	type turnDetection struct {
		Type              string  `json:"type"`
		Threshold         float64 `json:"threshold"`
		PrefixPaddingMS   int     `json:"prefix_padding_ms"`
		SilenceDurationMS int     `json:"silence_duration_ms"`
	}
	type sessionParams struct {
		Voice             string         `json:"voice,omitempty"`
		InputAudioFormat  string         `json:"input_audio_format,omitempty"`
		OutputAudioFormat string         `json:"output_audio_format,omitempty"`
		Instructions      string         `json:"instructions,omitempty"`
		TurnDetection     *turnDetection `json:"turn_detection,omitempty"`
	}

	params := sessionParams{
		Voice:             cfg.Voice,
		InputAudioFormat:  cfg.InputAudioFormat,
		OutputAudioFormat: cfg.OutputAudioFormat,
		Instructions:      cfg.Instructions,
	}
	if vad := cfg.TurnDetection; vad != nil {
		params.TurnDetection = &turnDetection{
			Type:              "server_vad",
			Threshold:         vad.Threshold,
			PrefixPaddingMS:   vad.PrefixPaddingMS,
			SilenceDurationMS: vad.SilenceDurationMS,
		}
	}

	err := c.sendEvent(struct {
		Type    string        `json:"type"`
		EventID string        `json:"event_id,omitempty"`
		Session sessionParams `json:"session"`
	}{
		Type:    "session.update",
		EventID: c.newEventID(),
		Session: params,
	})
	if err != nil {
		return err
	}
	c.cfg = cfg
	return nil
}

// SendRaw transmits an arbitrary event object, for protocol events without a
// typed helper.
func (c *Client) SendRaw(event map[string]any) error {
	return c.sendEvent(event)
}

// PollEvent pumps the session once and decodes the next surfaced message, if
// any. Returns (nil, nil) when no event is currently available. Peer error
// events are returned as EventError; they do not close the session.
func (c *Client) PollEvent() (*Event, error) {
	if msg, ok := c.sess.Next(); ok {
		return c.decode(msg), nil
	}
	if err := c.sess.Pump(); err != nil {
		if c.state != StateError {
			c.state = StateDisconnected
		}
		return nil, err
	}
	if msg, ok := c.sess.Next(); ok {
		return c.decode(msg), nil
	}
	return nil, nil
}

func (c *Client) decode(msg *client.Message) *Event {
	if msg.Opcode != protocol.OpcodeText {
		// Binary frames are not part of this event protocol.
		return &Event{Kind: EventUnknown}
	}
	ev := ParseEvent(msg.Payload)
	if ev.Kind == EventSessionCreated {
		c.sessionID = ev.SessionID
		c.model = ev.Model
	}
	return ev
}

func (c *Client) sendTyped(eventType string) error {
	return c.sendEvent(struct {
		Type    string `json:"type"`
		EventID string `json:"event_id,omitempty"`
	}{
		Type:    eventType,
		EventID: c.newEventID(),
	})
}

func (c *Client) sendEvent(event any) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	if err := c.sess.Send(protocol.OpcodeText, data); err != nil {
		return err
	}
	return nil
}
