package stt

import (
	"bytes"
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

// WhisperTranscriber implements Transcriber using the OpenAI audio
// transcription API. The verbose JSON response format is requested so the
// provider reports duration and detected language alongside the text.
type WhisperTranscriber struct {
	client     *openai.Client
	model      string
	maxBytes   int64
	maxSeconds float64
}

// NewWhisperTranscriber creates a transcriber with the given ceilings.
func NewWhisperTranscriber(apiKey, model string, maxBytes int64, maxSeconds float64) *WhisperTranscriber {
	return &WhisperTranscriber{
		client:     openai.NewClient(apiKey),
		model:      model,
		maxBytes:   maxBytes,
		maxSeconds: maxSeconds,
	}
}

func (t *WhisperTranscriber) Transcribe(ctx context.Context, audio []byte) (*Result, error) {
	if int64(len(audio)) > t.maxBytes {
		return nil, ErrAudioTooLarge
	}

	resp, err := t.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    t.model,
		Reader:   bytes.NewReader(audio),
		FilePath: "audio.m4a",
		Format:   openai.AudioResponseFormatVerboseJSON,
	})
	if err != nil {
		return nil, fmt.Errorf("creating transcription: %w", err)
	}

	result := &Result{
		Text:            resp.Text,
		DurationSeconds: resp.Duration,
		Language:        resp.Language,
	}

	if t.maxSeconds > 0 && result.DurationSeconds > t.maxSeconds {
		return result, ErrAudioTooLong
	}
	return result, nil
}
