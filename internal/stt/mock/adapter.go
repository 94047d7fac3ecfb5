// Package mock provides a mock STT adapter for testing and demos without
// cloud credentials. It replays a scripted sequence of sliding-window word
// updates that exercises the aggregator the way a real backend does:
// growth, in-place revision of earlier guesses, and window shrinkage.
package mock

import (
	"context"
	"sync"
	"time"

	"speech-cloud-sdk/internal/stt"
	"speech-cloud-sdk/internal/transcript"
)

// Step is one scripted stream event.
type Step struct {
	Update         transcript.WordListUpdate
	EndOfUtterance bool
}

func words(startIndex int, texts ...string) []transcript.Word {
	out := make([]transcript.Word, len(texts))
	for i, t := range texts {
		out[i] = transcript.Word{Text: t, Index: startIndex + i, Confidence: 0.9}
	}
	return out
}

// DefaultScript simulates a short dictation in which the backend revises
// "eye" to "I", extends the window, mis-hears "cancel" as "council
// meetings" and then corrects itself by shrinking the transcript.
var DefaultScript = []Step{
	{Update: transcript.WordListUpdate{Words: words(0, "eye"), LastWordIndex: 0}},
	{Update: transcript.WordListUpdate{Words: words(0, "I", "want"), LastWordIndex: 1}},
	{Update: transcript.WordListUpdate{Words: words(2, "to", "cancel"), LastWordIndex: 3}},
	{Update: transcript.WordListUpdate{Words: words(3, "council", "meetings"), LastWordIndex: 4}},
	{Update: transcript.WordListUpdate{Words: words(3, "cancel"), LastWordIndex: 3}},
	{Update: transcript.WordListUpdate{Words: words(4, "my", "subscription"), LastWordIndex: 5}, EndOfUtterance: true},
}

// Adapter implements stt.Adapter with scripted responses. Each SendAudio
// call advances the script by one step. A single delivery goroutine
// replays steps strictly in script order, with a short delay per step to
// mimic network behavior — the aggregator contract requires updates to be
// applied in arrival order, so deliveries are never concurrent.
type Adapter struct {
	mu      sync.Mutex
	cb      stt.Callback
	script  []Step
	next    int
	delay   time.Duration
	pending chan Step
	done    chan struct{}
	started bool
	closed  bool
}

// New creates a mock adapter replaying DefaultScript.
func New() *Adapter {
	return NewWithScript(DefaultScript)
}

// NewWithScript creates a mock adapter replaying the given steps.
func NewWithScript(script []Step) *Adapter {
	return &Adapter{
		script:  script,
		delay:   20 * time.Millisecond,
		pending: make(chan Step, len(script)+1),
		done:    make(chan struct{}),
	}
}

// Start begins a mock recognition session.
func (a *Adapter) Start(ctx context.Context, cb stt.Callback) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.cb = cb
	if !a.started {
		a.started = true
		go a.deliver()
	}
	return nil
}

// deliver replays queued steps serially until the pending queue is closed.
func (a *Adapter) deliver() {
	defer close(a.done)
	for step := range a.pending {
		time.Sleep(a.delay)

		a.mu.Lock()
		cb := a.cb
		a.mu.Unlock()
		if cb == nil {
			continue
		}

		if len(step.Update.Words) > 0 {
			cb.OnWordUpdate(step.Update)
		}
		if step.EndOfUtterance {
			cb.OnEndOfUtterance()
		}
	}
}

// SendAudio consumes an audio frame and queues the next scripted step.
// Frames beyond the end of the script are silently discarded.
func (a *Adapter) SendAudio(ctx context.Context, audio []byte) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed || a.next >= len(a.script) {
		return nil
	}
	a.pending <- a.script[a.next]
	a.next++
	return nil
}

// Close drains in-flight deliveries and ends the session.
func (a *Adapter) Close() error {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return nil
	}
	a.closed = true
	started := a.started
	close(a.pending)
	a.mu.Unlock()

	if started {
		<-a.done
	}
	return nil
}

// Remaining returns the number of script steps not yet queued.
func (a *Adapter) Remaining() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.script) - a.next
}
