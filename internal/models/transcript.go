// Package models defines the data structures for transcript events.
package models

// TranscriptUpdated is a live snapshot emitted after a word-list update
// has been merged into the session transcript.
type TranscriptUpdated struct {
	EventType     string `json:"eventType"`
	SessionID     string `json:"sessionId"`
	Timestamp     int64  `json:"timestamp"`
	Text          string `json:"text"`
	WordCount     int    `json:"wordCount"`
	RevisedWords  int    `json:"revisedWords"`
	LastWordIndex int    `json:"lastWordIndex"`
}

// TranscriptCompleted is the final transcript emitted when a session ends.
type TranscriptCompleted struct {
	EventType  string `json:"eventType"`
	SessionID  string `json:"sessionId"`
	Timestamp  int64  `json:"timestamp"`
	Text       string `json:"text"`
	WordCount  int    `json:"wordCount"`
	Utterances int    `json:"utterances"`
	DurationMs int64  `json:"durationMs"`
}
