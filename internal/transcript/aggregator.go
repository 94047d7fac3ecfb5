// Package transcript reconciles a stream of overlapping, revisable
// sliding-window word updates into a single ordered transcript.
//
// Recognition backends periodically re-send a window of recent words, some
// of which supersede earlier guesses for the same position. The Aggregator
// merges those batches by word index: the transcript grows or shrinks to
// whatever length each update declares, and a later word at a given index
// always wins over an earlier one.
package transcript

import (
	"errors"
	"fmt"
	"strings"
)

// ErrIndexOutOfRange reports an update whose word index is not within the
// bounds implied by that same update's declared length. Use errors.Is
// against this sentinel, or errors.As with *IndexOutOfRangeError for the
// offending values.
var ErrIndexOutOfRange = errors.New("word index out of range")

// IndexOutOfRangeError carries the inconsistent index and the length the
// update declared for itself.
type IndexOutOfRangeError struct {
	Index  int
	Length int
}

func (e *IndexOutOfRangeError) Error() string {
	return fmt.Sprintf("word index %d out of range for declared transcript length %d", e.Index, e.Length)
}

func (e *IndexOutOfRangeError) Is(target error) bool {
	return target == ErrIndexOutOfRange
}

// Aggregator maintains the authoritative ordered transcript built from a
// sequence of WordListUpdate batches.
//
// Aggregator provides no internal locking. Updates must be applied
// serially in arrival order (each update's meaning depends on the exact
// prior state), and callers that read concurrently with the applying
// goroutine must guard both sides with their own mutex — see
// internal/session for the canonical wrapping. One Aggregator per
// recognition session; independent streams need independent instances.
type Aggregator struct {
	words []Word
}

// NewAggregator returns an empty aggregator (transcript length zero).
func NewAggregator() *Aggregator {
	return &Aggregator{}
}

// ProcessUpdate applies one revision batch.
//
// An update with no words is a no-op. Otherwise the transcript is resized
// to exactly u.LastWordIndex+1 entries — growing with placeholder slots
// for words delivered by earlier or later updates, or truncating the tail
// when the backend shrinks its window — and every word in the batch
// overwrites the slot at its own index.
//
// A word whose index falls outside [0, LastWordIndex] makes the update
// internally inconsistent; ProcessUpdate returns *IndexOutOfRangeError and
// leaves the transcript unchanged. This is deliberately a hard error
// rather than a clamp: the upstream stream is already corrupt at that
// point, and continuing to merge would silently corrupt the transcript.
func (a *Aggregator) ProcessUpdate(u WordListUpdate) error {
	if len(u.Words) == 0 {
		return nil
	}

	newLen := u.LastWordIndex + 1
	for _, w := range u.Words {
		if w.Index < 0 || w.Index >= newLen {
			return &IndexOutOfRangeError{Index: w.Index, Length: newLen}
		}
	}

	for len(a.words) < newLen {
		a.words = append(a.words, Word{Index: len(a.words)})
	}
	if newLen < len(a.words) {
		a.words = a.words[:newLen]
	}
	for _, w := range u.Words {
		a.words[w.Index] = w
	}
	return nil
}

// Len returns the current transcript length.
func (a *Aggregator) Len() int {
	return len(a.words)
}

// Words returns the current transcript in index order. The returned slice
// is a view over internal state: it stays cheap to call, but it is not
// valid across a concurrent ProcessUpdate. Callers that need a stable
// snapshot must copy it while holding their own lock.
func (a *Aggregator) Words() []Word {
	return a.words
}

// Text renders the transcript by joining each word's trimmed text with
// delimiter, with no leading or trailing delimiter. Empty transcript
// renders as "".
func (a *Aggregator) Text(delimiter string) string {
	if len(a.words) == 0 {
		return ""
	}
	parts := make([]string, len(a.words))
	for i, w := range a.words {
		parts[i] = trimNonPrintable(w.Text)
	}
	return strings.Join(parts, delimiter)
}

// Transcript renders the transcript with a single space delimiter.
func (a *Aggregator) Transcript() string {
	return a.Text(" ")
}

// trimNonPrintable strips ASCII whitespace, control characters and DEL
// from both ends of s. Speech backends pad tokens with such bytes; actual
// text in any script (incl. code points above ASCII) is left intact.
func trimNonPrintable(s string) string {
	return strings.TrimFunc(s, func(r rune) bool {
		return r <= 0x20 || r == 0x7F
	})
}
