// Package stt defines the Transcriber interface for speech-to-text backends.
//
// A Transcriber converts a complete audio payload into text in one call. The
// provider's own language identification is trusted: no language hint is
// forced, and the detected language is threaded through to the caller.
package stt

import (
	"context"
	"errors"
)

// ErrAudioTooLarge is returned when the audio payload exceeds the byte ceiling.
// The check happens before the provider is called.
var ErrAudioTooLarge = errors.New("audio payload exceeds size limit")

// ErrAudioTooLong is returned when the transcribed audio exceeds the duration
// ceiling. Duration is only knowable after the provider returns, so the check
// happens on the provider's reported duration.
var ErrAudioTooLong = errors.New("audio exceeds duration limit")

// Result is a completed transcription.
type Result struct {
	// Text is the transcribed speech content.
	Text string

	// DurationSeconds is the audio length as reported by the provider.
	DurationSeconds float64

	// Language is the provider-detected spoken language (e.g. "english", "hindi").
	Language string
}

// Transcriber is the abstraction over any speech-to-text backend.
// Implementations must be safe for concurrent use.
type Transcriber interface {
	// Transcribe converts the given audio bytes into text. It returns
	// ErrAudioTooLarge or ErrAudioTooLong when the payload violates the
	// configured ceilings; any other error is a provider failure.
	Transcribe(ctx context.Context, audio []byte) (*Result, error)
}
