// File: audio/controller.go
// Package audio
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Package audio drives push-to-talk conversational turns over a realtime
// client: stream PCM in fixed chunks, commit, request a response, then
// reassemble the streamed reply into one playable buffer.

package audio

import (
	"bytes"
	"errors"
	"fmt"
	"time"

	"github.com/momentics/realtime-ws/api"
	"github.com/momentics/realtime-ws/realtime"
)

var (
	ErrTurnTimeout   = errors.New("audio: response deadline exceeded")
	ErrTurnCancelled = errors.New("audio: turn cancelled")
	ErrBadTurnState  = errors.New("audio: operation invalid in current turn state")
)

// TurnState tracks one conversational turn.
type TurnState int32

const (
	TurnIdle TurnState = iota
	TurnStreaming
	TurnCommitted
	TurnAwaitingResponse
	TurnComplete
	TurnFailed
)

func (s TurnState) String() string {
	switch s {
	case TurnIdle:
		return "idle"
	case TurnStreaming:
		return "streaming"
	case TurnCommitted:
		return "committed"
	case TurnAwaitingResponse:
		return "awaiting_response"
	case TurnComplete:
		return "complete"
	case TurnFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Player consumes a complete PCM16 response buffer. Implementations own
// playback timing; Play blocks until the audio is handed off.
type Player interface {
	Play(pcm []byte) error
}

// Config sizes the turn pipeline. Zero values take defaults.
type Config struct {
	// SampleRate of the PCM16 mono stream, Hz.
	SampleRate int
	// ChunkDuration is the slice size for AppendAudio sends.
	ChunkDuration time.Duration
	// ResponseTimeout bounds Await.
	ResponseTimeout time.Duration
	// PollInterval is the idle sleep between pump polls in Await.
	PollInterval time.Duration
}

const (
	defaultSampleRate      = 24000
	defaultChunkDuration   = 100 * time.Millisecond
	defaultResponseTimeout = 60 * time.Second
	defaultPollInterval    = 5 * time.Millisecond
)

func (c Config) withDefaults() Config {
	if c.SampleRate <= 0 {
		c.SampleRate = defaultSampleRate
	}
	if c.ChunkDuration <= 0 {
		c.ChunkDuration = defaultChunkDuration
	}
	if c.ResponseTimeout <= 0 {
		c.ResponseTimeout = defaultResponseTimeout
	}
	if c.PollInterval <= 0 {
		c.PollInterval = defaultPollInterval
	}
	return c
}

// chunkBytes is the byte length of one ChunkDuration slice of PCM16 mono.
func (c Config) chunkBytes() int {
	samples := c.SampleRate * int(c.ChunkDuration/time.Millisecond) / 1000
	return samples * 2
}

// Controller sequences one turn at a time. Not safe for concurrent use;
// callers pump it from a single loop like the session beneath it.
type Controller struct {
	rc     *realtime.Client
	player Player
	cfg    Config

	state     TurnState
	respAudio bytes.Buffer
	respText  bytes.Buffer
	lastErr   error
}

// NewController builds a turn controller. player may be nil; completed audio
// is then only retained for TurnAudio.
func NewController(rc *realtime.Client, player Player, cfg Config) *Controller {
	return &Controller{
		rc:     rc,
		player: player,
		cfg:    cfg.withDefaults(),
	}
}

// TurnState returns the current state.
func (c *Controller) TurnState() TurnState { return c.state }

// TurnAudio returns the reassembled response audio of the last completed turn.
func (c *Controller) TurnAudio() []byte { return c.respAudio.Bytes() }

// TurnText returns the accumulated transcript of the last turn.
func (c *Controller) TurnText() string { return c.respText.String() }

// Err returns the failure of the last turn, nil unless TurnFailed.
func (c *Controller) Err() error { return c.lastErr }

// ChunkBytes reports the chunk size Feed slices to.
func (c *Controller) ChunkBytes() int { return c.cfg.chunkBytes() }

// StartTurn clears the peer's input buffer and any local residue from the
// previous turn. Valid from any terminal state.
func (c *Controller) StartTurn() error {
	switch c.state {
	case TurnIdle, TurnComplete, TurnFailed:
	default:
		return fmt.Errorf("%w: start in %s", ErrBadTurnState, c.state)
	}
	c.respAudio.Reset()
	c.respText.Reset()
	c.lastErr = nil
	if err := c.rc.ClearAudio(); err != nil {
		return c.fail(err)
	}
	c.state = TurnStreaming
	return nil
}

// Feed streams captured PCM, slicing it into fixed chunks. A short tail is
// sent as-is; the peer accepts partial chunks at commit time.
func (c *Controller) Feed(pcm []byte) error {
	if c.state != TurnStreaming {
		return fmt.Errorf("%w: feed in %s", ErrBadTurnState, c.state)
	}
	chunk := c.cfg.chunkBytes()
	for len(pcm) > 0 {
		n := chunk
		if n > len(pcm) {
			n = len(pcm)
		}
		if err := c.rc.AppendAudio(pcm[:n]); err != nil {
			return c.fail(err)
		}
		pcm = pcm[n:]
	}
	return nil
}

// Commit ends the input phase.
func (c *Controller) Commit() error {
	if c.state != TurnStreaming {
		return fmt.Errorf("%w: commit in %s", ErrBadTurnState, c.state)
	}
	if err := c.rc.CommitAudio(); err != nil {
		return c.fail(err)
	}
	c.state = TurnCommitted
	return nil
}

// RequestResponse asks for a model response to the committed audio.
// instructions may be empty to use the session defaults.
func (c *Controller) RequestResponse(instructions string) error {
	if c.state != TurnCommitted {
		return fmt.Errorf("%w: request in %s", ErrBadTurnState, c.state)
	}
	if err := c.rc.CreateResponse(instructions); err != nil {
		return c.fail(err)
	}
	c.state = TurnAwaitingResponse
	return nil
}

// Await pumps events until the response finishes, the peer reports an error,
// or the response deadline passes. On success the reassembled audio is handed
// to the player and the turn is TurnComplete.
func (c *Controller) Await() error {
	if c.state != TurnAwaitingResponse {
		return fmt.Errorf("%w: await in %s", ErrBadTurnState, c.state)
	}
	deadline := time.Now().Add(c.cfg.ResponseTimeout)
	done := false
	for !done {
		// Hard ceiling: a peer streaming deltas forever must not extend
		// the turn past its deadline.
		if time.Now().After(deadline) {
			return c.fail(fmt.Errorf("%w: %w", ErrTurnTimeout, api.ErrOperationTimeout))
		}
		ev, err := c.rc.PollEvent()
		if err != nil {
			return c.fail(err)
		}
		if ev == nil {
			time.Sleep(c.cfg.PollInterval)
			continue
		}
		switch ev.Kind {
		case realtime.EventAudioDelta:
			c.respAudio.Write(ev.Audio)
		case realtime.EventTextDelta:
			c.respText.WriteString(ev.Text)
		case realtime.EventAudioDone, realtime.EventResponseDone:
			done = true
		case realtime.EventError:
			apiErr := api.NewError(api.ErrCodeAPI, ev.ErrMsg).
				WithContext("code", ev.ErrCode)
			return c.fail(apiErr)
		}
	}
	if c.player != nil && c.respAudio.Len() > 0 {
		if err := c.player.Play(c.respAudio.Bytes()); err != nil {
			return c.fail(err)
		}
	}
	c.state = TurnComplete
	return nil
}

// Cancel aborts a turn in flight. The turn lands in TurnFailed with
// ErrTurnCancelled so StartTurn can follow.
func (c *Controller) Cancel() error {
	switch c.state {
	case TurnStreaming, TurnCommitted, TurnAwaitingResponse:
	default:
		return fmt.Errorf("%w: cancel in %s", ErrBadTurnState, c.state)
	}
	if c.state == TurnAwaitingResponse {
		if err := c.rc.CancelResponse(); err != nil {
			return c.fail(err)
		}
	}
	c.state = TurnFailed
	c.lastErr = ErrTurnCancelled
	return nil
}

// SendBuffer runs a whole one-shot turn: clear, feed, commit, request, await.
func (c *Controller) SendBuffer(pcm []byte, instructions string) error {
	if err := c.StartTurn(); err != nil {
		return err
	}
	if err := c.Feed(pcm); err != nil {
		return err
	}
	if err := c.Commit(); err != nil {
		return err
	}
	if err := c.RequestResponse(instructions); err != nil {
		return err
	}
	return c.Await()
}

func (c *Controller) fail(err error) error {
	c.state = TurnFailed
	c.lastErr = err
	return err
}
