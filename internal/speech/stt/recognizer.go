// Package stt holds the speech input side: the recognizer contract, the
// wake-word detector and single-utterance command capture.
package stt

import "context"

// Result is one recognizer output.
type Result struct {
	Text    string `json:"text"`
	IsFinal bool   `json:"is_final"`
}

// Recognizer owns the microphone between Start and Stop. onResult is called
// from the recognizer's goroutine and must not block.
type Recognizer interface {
	Start(ctx context.Context, onResult func(Result)) error
	// Stop releases the microphone and resets recognition state.
	Stop()
	// Final flushes and returns any text not yet reported as final.
	Final() string
}
