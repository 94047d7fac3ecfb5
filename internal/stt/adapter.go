// Package stt defines the interface between the SDK and streaming
// speech-to-text providers.
package stt

import (
	"context"

	"speech-cloud-sdk/internal/transcript"
)

// Callback receives recognition results from the STT provider. Callbacks
// for a single stream are invoked serially, in stream delivery order.
type Callback interface {
	// OnWordUpdate is called with a sliding-window word revision batch.
	OnWordUpdate(u transcript.WordListUpdate)

	// OnEndOfUtterance is called when the provider detects end of speech.
	OnEndOfUtterance()

	// OnError is called when an error occurs during recognition.
	OnError(err error)
}

// Adapter defines the interface for STT providers (Google, mock, ...).
type Adapter interface {
	// Start begins a streaming recognition session.
	Start(ctx context.Context, cb Callback) error

	// SendAudio sends raw audio bytes to the provider.
	SendAudio(ctx context.Context, audio []byte) error

	// Close ends the session and releases resources.
	Close() error
}
