package google

import (
	"strings"

	speechpb "cloud.google.com/go/speech/apiv2/speechpb"

	"speech-cloud-sdk/internal/transcript"
)

// windower maps streaming recognition results onto the global word
// indexing the aggregator expects. Words from final results are committed:
// their indices are assigned once and never reused. Interim results form a
// sliding window re-sent on top of the committed prefix, so a shorter
// interim window in a later response shrinks the declared transcript
// length and truncates superseded guesses.
type windower struct {
	committed int
}

// update converts one streaming response into a word revision batch.
// ok is false when the response carries no words at all.
func (w *windower) update(resp *speechpb.StreamingRecognizeResponse) (transcript.WordListUpdate, bool) {
	var words []transcript.Word
	next := w.committed

	for _, r := range resp.GetResults() {
		if !r.GetIsFinal() {
			continue
		}
		rw := alternativeWords(r)
		for i := range rw {
			rw[i].Index = next + i
		}
		words = append(words, rw...)
		next += len(rw)
	}
	w.committed = next

	// Only the first interim result is used: trailing interims have low
	// stability and would thrash the window on every response.
	for _, r := range resp.GetResults() {
		if r.GetIsFinal() {
			continue
		}
		rw := alternativeWords(r)
		for i := range rw {
			rw[i].Index = next + i
		}
		words = append(words, rw...)
		next += len(rw)
		break
	}

	if len(words) == 0 {
		return transcript.WordListUpdate{}, false
	}
	return transcript.WordListUpdate{Words: words, LastWordIndex: next - 1}, true
}

// alternativeWords extracts the best alternative's words. When the backend
// sends no word-level info (common for interim results), words are
// synthesized by splitting the transcript on whitespace, carrying the
// alternative-level confidence.
func alternativeWords(r *speechpb.StreamingRecognitionResult) []transcript.Word {
	if len(r.GetAlternatives()) == 0 {
		return nil
	}
	alt := r.GetAlternatives()[0]

	if infos := alt.GetWords(); len(infos) > 0 {
		words := make([]transcript.Word, len(infos))
		for i, wi := range infos {
			words[i] = transcript.Word{
				Text:       wi.GetWord(),
				Confidence: float64(wi.GetConfidence()),
				StartMs:    wi.GetStartOffset().AsDuration().Milliseconds(),
				EndMs:      wi.GetEndOffset().AsDuration().Milliseconds(),
			}
		}
		return words
	}

	fields := strings.Fields(alt.GetTranscript())
	words := make([]transcript.Word, len(fields))
	for i, f := range fields {
		words[i] = transcript.Word{
			Text:       f,
			Confidence: float64(alt.GetConfidence()),
		}
	}
	return words
}
