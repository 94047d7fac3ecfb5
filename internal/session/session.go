// Package session coordinates one streaming recognition session: it owns
// the transcript aggregator, feeds it word updates arriving from the STT
// adapter's read loop, and exposes the live transcript to consumers.
//
// The aggregator itself is unsynchronized; Session wraps every access —
// the applying callback and all reads — in its own mutex, which is the
// external-locking pattern the aggregator documents.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"speech-cloud-sdk/internal/events"
	"speech-cloud-sdk/internal/models"
	"speech-cloud-sdk/internal/observability/logging"
	"speech-cloud-sdk/internal/observability/metrics"
	"speech-cloud-sdk/internal/stt"
	"speech-cloud-sdk/internal/transcript"
)

// ErrSessionClosed is returned when audio is sent to a terminal session.
var ErrSessionClosed = errors.New("session is closed")

// Session manages one audio transcription session. It implements
// stt.Callback; the adapter invokes the callbacks serially in stream
// delivery order, which is exactly the arrival-order contract the
// aggregator requires. One Session per stream; concurrent streams need
// independent sessions.
type Session struct {
	id        string
	adapter   stt.Adapter
	publisher *events.Publisher
	m         *metrics.Metrics
	logger    zerolog.Logger

	mu         sync.Mutex
	agg        *transcript.Aggregator
	state      State
	err        error
	utterances int
	startedAt  time.Time

	done     chan struct{}
	doneOnce sync.Once
}

// New creates a session around the given adapter. The publisher may be a
// log-only publisher (events.New(nil)) when no event sink is configured.
func New(adapter stt.Adapter, publisher *events.Publisher) *Session {
	id := uuid.NewString()
	return &Session{
		id:        id,
		adapter:   adapter,
		publisher: publisher,
		m:         metrics.DefaultMetrics,
		logger:    logging.WithSession(id),
		agg:       transcript.NewAggregator(),
		state:     StateOpen,
		done:      make(chan struct{}),
	}
}

// ID returns the session ID.
func (s *Session) ID() string {
	return s.id
}

// Start begins the recognition stream with this session as the callback
// receiver.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	s.startedAt = time.Now()
	s.mu.Unlock()

	if err := s.adapter.Start(ctx, s); err != nil {
		return fmt.Errorf("start recognition stream: %w", err)
	}
	s.m.RecordSessionStart()
	s.logger.Info().Msg("Recognition session started")
	return nil
}

// SendAudio forwards audio bytes to the STT adapter.
func (s *Session) SendAudio(ctx context.Context, audio []byte) error {
	s.mu.Lock()
	state := s.state
	err := s.err
	s.mu.Unlock()

	if state.IsTerminal() {
		if err != nil {
			return fmt.Errorf("%w: %w", ErrSessionClosed, err)
		}
		return ErrSessionClosed
	}
	return s.adapter.SendAudio(ctx, audio)
}

// Close ends the recognition stream, waits for in-flight results to be
// merged and finalizes the transcript. Idempotent.
func (s *Session) Close() error {
	// The adapter drains pending callbacks on Close; the session mutex
	// must not be held while that happens.
	closeErr := s.adapter.Close()

	s.mu.Lock()
	if s.state.IsTerminal() {
		s.mu.Unlock()
		return closeErr
	}
	s.state = StateCompleted
	duration := time.Since(s.startedAt)
	ev := models.TranscriptCompleted{
		EventType:  "transcript.completed",
		SessionID:  s.id,
		Timestamp:  time.Now().UnixMilli(),
		Text:       s.agg.Transcript(),
		WordCount:  s.agg.Len(),
		Utterances: s.utterances,
		DurationMs: duration.Milliseconds(),
	}
	s.mu.Unlock()

	s.m.RecordSessionEnd(true, duration.Seconds())
	s.signalDone()

	s.logger.Info().
		Int("words", ev.WordCount).
		Int("utterances", ev.Utterances).
		Dur("duration", duration).
		Msg("Recognition session completed")

	if err := s.publisher.PublishCompleted(context.Background(), s.id, ev); err != nil {
		s.logger.Error().Err(err).Msg("Failed to publish completed transcript")
	}
	return closeErr
}

// State returns the current session state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Err returns the error that failed the session, or nil.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Utterances returns the number of utterance boundaries seen so far.
func (s *Session) Utterances() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.utterances
}

// Transcript returns the current transcript joined with single spaces.
func (s *Session) Transcript() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.agg.Transcript()
}

// Text returns the current transcript joined with delimiter.
func (s *Session) Text(delimiter string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.agg.Text(delimiter)
}

// Words returns a snapshot copy of the current word list.
func (s *Session) Words() []transcript.Word {
	s.mu.Lock()
	defer s.mu.Unlock()
	view := s.agg.Words()
	out := make([]transcript.Word, len(view))
	copy(out, view)
	return out
}

// Done returns a channel closed when the session reaches a terminal
// state.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// --- stt.Callback implementation ---

// OnWordUpdate merges one revision batch into the transcript. An update
// the aggregator rejects fails the session permanently: the stream is
// internally inconsistent at that point and continuing would silently
// corrupt the transcript.
func (s *Session) OnWordUpdate(u transcript.WordListUpdate) {
	s.mu.Lock()
	if s.state.IsTerminal() {
		s.mu.Unlock()
		s.logger.Debug().Msg("Word update ignored on terminal session")
		return
	}

	oldLen := s.agg.Len()
	if err := s.agg.ProcessUpdate(u); err != nil {
		s.m.RecordIndexViolation()
		s.failLocked(fmt.Errorf("merge word update: %w", err))
		s.mu.Unlock()
		s.signalDone()
		return
	}
	newLen := s.agg.Len()
	s.m.RecordUpdateApplied(len(u.Words), newLen < oldLen)

	ev := models.TranscriptUpdated{
		EventType:     "transcript.updated",
		SessionID:     s.id,
		Timestamp:     time.Now().UnixMilli(),
		Text:          s.agg.Transcript(),
		WordCount:     newLen,
		RevisedWords:  len(u.Words),
		LastWordIndex: u.LastWordIndex,
	}
	s.mu.Unlock()

	if err := s.publisher.PublishUpdated(context.Background(), s.id, ev); err != nil {
		s.logger.Error().Err(err).Msg("Failed to publish transcript snapshot")
	}
}

// OnEndOfUtterance records an utterance boundary.
func (s *Session) OnEndOfUtterance() {
	s.mu.Lock()
	s.utterances++
	s.mu.Unlock()
	s.m.RecordUtterance()
}

// OnError fails the session.
func (s *Session) OnError(err error) {
	s.mu.Lock()
	if s.state.IsTerminal() {
		s.mu.Unlock()
		return
	}
	s.failLocked(err)
	s.mu.Unlock()
	s.signalDone()
}

// failLocked moves the session to StateFailed. Must be called with s.mu
// held and StateOpen current.
func (s *Session) failLocked(err error) {
	s.state = StateFailed
	s.err = err
	duration := time.Since(s.startedAt)
	s.m.RecordSessionEnd(false, duration.Seconds())
	s.logger.Error().Err(err).Msg("Recognition session failed")
}

func (s *Session) signalDone() {
	s.doneOnce.Do(func() { close(s.done) })
}
