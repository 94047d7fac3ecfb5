package transcript

// Word is one recognized token in the transcript. Index is the word's
// zero-based position in the global transcript ordering; it doubles as the
// merge key when a later update revises an earlier guess at the same
// position. The remaining fields are provider metadata carried opaquely:
// the aggregator never inspects them, and a revision replaces them
// wholesale together with the text.
type Word struct {
	Text       string
	Index      int
	Confidence float64
	StartMs    int64
	EndMs      int64
}

// WordListUpdate is one server-pushed revision batch from the recognition
// stream. Words may arrive in any order; each entry carries its own Index.
// LastWordIndex declares the index of the last word the transcript must
// contain after the update is applied, i.e. the new authoritative length
// is LastWordIndex+1. An update with no words is a valid no-op
// (heartbeat), regardless of what LastWordIndex says.
type WordListUpdate struct {
	Words         []Word
	LastWordIndex int
}
