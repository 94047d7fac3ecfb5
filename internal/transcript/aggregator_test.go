package transcript

import (
	"errors"
	"testing"
)

func word(text string, index int) Word {
	return Word{Text: text, Index: index}
}

func update(lastIndex int, words ...Word) WordListUpdate {
	return WordListUpdate{Words: words, LastWordIndex: lastIndex}
}

func apply(t *testing.T, a *Aggregator, updates ...WordListUpdate) {
	t.Helper()
	for i, u := range updates {
		if err := a.ProcessUpdate(u); err != nil {
			t.Fatalf("update %d: unexpected error: %v", i, err)
		}
	}
}

func TestAggregator_InitialState(t *testing.T) {
	a := NewAggregator()

	if a.Len() != 0 {
		t.Errorf("expected empty aggregator, got length %d", a.Len())
	}
	if got := a.Transcript(); got != "" {
		t.Errorf("expected empty transcript, got %q", got)
	}
	if words := a.Words(); len(words) != 0 {
		t.Errorf("expected no words, got %v", words)
	}
}

func TestAggregator_SingleWord(t *testing.T) {
	a := NewAggregator()
	apply(t, a, update(0, word("foo", 0)))

	if got := a.Transcript(); got != "foo" {
		t.Errorf("expected %q, got %q", "foo", got)
	}
	if a.Len() != 1 {
		t.Errorf("expected length 1, got %d", a.Len())
	}
}

func TestAggregator_TwoWords(t *testing.T) {
	a := NewAggregator()
	apply(t, a, update(1, word("foo", 0), word("bar", 1)))

	if got := a.Transcript(); got != "foo bar" {
		t.Errorf("expected %q, got %q", "foo bar", got)
	}
}

func TestAggregator_Append(t *testing.T) {
	a := NewAggregator()
	apply(t, a,
		update(1, word("foo", 0), word("bar", 1)),
		update(2, word("baz", 2)),
	)

	if got := a.Transcript(); got != "foo bar baz" {
		t.Errorf("expected %q, got %q", "foo bar baz", got)
	}
}

func TestAggregator_ReplacePrefix(t *testing.T) {
	a := NewAggregator()
	apply(t, a,
		update(1, word("foo", 0), word("bar", 1)),
		update(1, word("food", 0)),
	)

	if got := a.Transcript(); got != "food bar" {
		t.Errorf("expected %q, got %q", "food bar", got)
	}
}

func TestAggregator_CollapseToOne(t *testing.T) {
	a := NewAggregator()
	apply(t, a,
		update(1, word("foo", 0), word("bar", 1)),
		update(0, word("foobar", 0)),
	)

	if a.Len() != 1 {
		t.Errorf("expected length 1 after collapse, got %d", a.Len())
	}
	if got := a.Transcript(); got != "foobar" {
		t.Errorf("expected %q, got %q", "foobar", got)
	}
}

func TestAggregator_IndexOutOfRange(t *testing.T) {
	a := NewAggregator()
	err := a.ProcessUpdate(update(0, word("x", 1)))

	if err == nil {
		t.Fatal("expected error for index beyond declared length")
	}
	if !errors.Is(err, ErrIndexOutOfRange) {
		t.Errorf("expected errors.Is(err, ErrIndexOutOfRange), got %v", err)
	}
	var oor *IndexOutOfRangeError
	if !errors.As(err, &oor) {
		t.Fatalf("expected *IndexOutOfRangeError, got %T", err)
	}
	if oor.Index != 1 || oor.Length != 1 {
		t.Errorf("expected Index=1 Length=1, got Index=%d Length=%d", oor.Index, oor.Length)
	}
}

func TestAggregator_NegativeIndex(t *testing.T) {
	a := NewAggregator()
	err := a.ProcessUpdate(update(2, word("x", -1)))

	if !errors.Is(err, ErrIndexOutOfRange) {
		t.Errorf("expected ErrIndexOutOfRange for negative index, got %v", err)
	}
}

// A rejected update must not modify the transcript, even when other words
// in the same batch were valid.
func TestAggregator_FailedUpdateLeavesStateUnchanged(t *testing.T) {
	a := NewAggregator()
	apply(t, a, update(1, word("foo", 0), word("bar", 1)))

	err := a.ProcessUpdate(update(0, word("ok", 0), word("broken", 7)))
	if !errors.Is(err, ErrIndexOutOfRange) {
		t.Fatalf("expected ErrIndexOutOfRange, got %v", err)
	}
	if got := a.Transcript(); got != "foo bar" {
		t.Errorf("transcript changed after rejected update: %q", got)
	}
	if a.Len() != 2 {
		t.Errorf("length changed after rejected update: %d", a.Len())
	}
}

// P1: an update with no words leaves all state untouched, whatever its
// LastWordIndex claims.
func TestAggregator_EmptyUpdateIsNoOp(t *testing.T) {
	lastIndexes := []int{-5, -1, 0, 3, 1000}

	for _, li := range lastIndexes {
		a := NewAggregator()
		apply(t, a,
			update(1, word("foo", 0), word("bar", 1)),
			update(li),
		)

		if a.Len() != 2 {
			t.Errorf("lastIndex=%d: expected length 2, got %d", li, a.Len())
		}
		if got := a.Transcript(); got != "foo bar" {
			t.Errorf("lastIndex=%d: expected %q, got %q", li, "foo bar", got)
		}
	}
}

// P2: after any successful non-empty update, the length equals the
// declared LastWordIndex+1.
func TestAggregator_LengthMatchesDeclaration(t *testing.T) {
	tests := []struct {
		name string
		u    WordListUpdate
		want int
	}{
		{"grow from empty", update(4, word("a", 0)), 5},
		{"exact fill", update(1, word("a", 0), word("b", 1)), 2},
		{"sparse tail", update(9, word("z", 9)), 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := NewAggregator()
			apply(t, a, tt.u)
			if a.Len() != tt.want {
				t.Errorf("expected length %d, got %d", tt.want, a.Len())
			}
		})
	}
}

// P3: a revision replaces the whole word at that index, metadata included.
func TestAggregator_OverwriteReplacesMetadata(t *testing.T) {
	a := NewAggregator()
	apply(t, a, WordListUpdate{
		Words:         []Word{{Text: "foo", Index: 0, Confidence: 0.4, StartMs: 100, EndMs: 400}},
		LastWordIndex: 0,
	})
	apply(t, a, WordListUpdate{
		Words:         []Word{{Text: "food", Index: 0, Confidence: 0.9, StartMs: 120, EndMs: 450}},
		LastWordIndex: 0,
	})

	w := a.Words()[0]
	if w.Text != "food" || w.Confidence != 0.9 || w.StartMs != 120 || w.EndMs != 450 {
		t.Errorf("expected full replacement, got %+v", w)
	}
}

// P4: growth never disturbs words below the old length that the update
// does not touch.
func TestAggregator_GrowthPreservesPrefix(t *testing.T) {
	a := NewAggregator()
	apply(t, a,
		update(2, word("one", 0), word("two", 1), word("three", 2)),
		update(5, word("four", 3), word("five", 4), word("six", 5)),
	)

	if got := a.Transcript(); got != "one two three four five six" {
		t.Errorf("prefix disturbed: %q", got)
	}
}

// P5: a shrinking update truncates to exactly the declared length, with
// any same-batch revisions applied to the surviving prefix.
func TestAggregator_ShrinkTruncatesTail(t *testing.T) {
	a := NewAggregator()
	apply(t, a,
		update(3, word("a", 0), word("b", 1), word("c", 2), word("d", 3)),
		update(1, word("ab", 0)),
	)

	if a.Len() != 2 {
		t.Errorf("expected length 2, got %d", a.Len())
	}
	if got := a.Transcript(); got != "ab b" {
		t.Errorf("expected %q, got %q", "ab b", got)
	}
}

// P6 holds against the update's own declared length, including when the
// update shrinks the transcript: an index valid against the old length but
// beyond the new one is still a protocol violation.
func TestAggregator_ShrinkWithIndexBeyondNewLength(t *testing.T) {
	a := NewAggregator()
	apply(t, a, update(4, word("a", 0), word("b", 1), word("c", 2), word("d", 3), word("e", 4)))

	err := a.ProcessUpdate(update(2, word("x", 4)))
	if !errors.Is(err, ErrIndexOutOfRange) {
		t.Errorf("expected ErrIndexOutOfRange, got %v", err)
	}
}

// Placeholder slots reserved by growth are filled by later updates.
func TestAggregator_PlaceholdersFilledLater(t *testing.T) {
	a := NewAggregator()
	apply(t, a,
		update(2, word("tail", 2)),
		update(2, word("head", 0), word("mid", 1)),
	)

	if got := a.Transcript(); got != "head mid tail" {
		t.Errorf("expected %q, got %q", "head mid tail", got)
	}
}

// Unfilled placeholders render as empty strings between delimiters.
func TestAggregator_PlaceholderRendering(t *testing.T) {
	a := NewAggregator()
	apply(t, a, update(2, word("tail", 2)))

	if got := a.Transcript(); got != "  tail" {
		t.Errorf("expected %q, got %q", "  tail", got)
	}
}

func TestAggregator_WordOrderWithinUpdateIrrelevant(t *testing.T) {
	a := NewAggregator()
	apply(t, a, update(2, word("c", 2), word("a", 0), word("b", 1)))

	if got := a.Transcript(); got != "a b c" {
		t.Errorf("expected %q, got %q", "a b c", got)
	}
}

// P7: texts are trimmed of ASCII whitespace/control padding before joining.
func TestAggregator_TextTrimming(t *testing.T) {
	tests := []struct {
		name  string
		texts []string
		delim string
		want  string
	}{
		{"space padding", []string{" foo ", "\tbar\n"}, " ", "foo bar"},
		{"control padding", []string{"\x00foo\x1f", "\x7fbar\x7f"}, " ", "foo bar"},
		{"interior whitespace kept", []string{"a b", "c"}, " ", "a b c"},
		{"custom delimiter", []string{"foo", "bar"}, ", ", "foo, bar"},
		{"empty delimiter", []string{"foo", "bar"}, "", "foobar"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := NewAggregator()
			words := make([]Word, len(tt.texts))
			for i, text := range tt.texts {
				words[i] = word(text, i)
			}
			apply(t, a, update(len(tt.texts)-1, words...))

			if got := a.Text(tt.delim); got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

// P8: word text is opaque data; every script survives merge and render.
func TestAggregator_MultiScript(t *testing.T) {
	tests := []struct {
		name  string
		first []string
		fixed string
		want  string
	}{
		{"cyrillic", []string{"привет", "мир"}, "спасибо", "спасибо мир"},
		{"cjk", []string{"音声", "認識"}, "文字", "文字 認識"},
		{"mixed", []string{"hello", "мир"}, "héllo", "héllo мир"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := NewAggregator()
			apply(t, a,
				update(1, word(tt.first[0], 0), word(tt.first[1], 1)),
				update(1, word(tt.fixed, 0)),
			)

			if got := a.Transcript(); got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

// Padded multi-byte text keeps its non-ASCII runes after trimming.
func TestAggregator_TrimKeepsNonASCII(t *testing.T) {
	a := NewAggregator()
	apply(t, a, update(0, word(" привет\n", 0)))

	if got := a.Transcript(); got != "привет" {
		t.Errorf("expected %q, got %q", "привет", got)
	}
}

func TestAggregator_SlidingWindowSequence(t *testing.T) {
	// A realistic stream: the backend re-sends a window of recent words,
	// revising earlier guesses, then shrinks after a correction.
	a := NewAggregator()

	steps := []struct {
		u    WordListUpdate
		want string
	}{
		{update(0, word("eye", 0)), "eye"},
		{update(1, word("I", 0), word("want", 1)), "I want"},
		{update(3, word("want", 1), word("to", 2), word("cancel", 3)), "I want to cancel"},
		{update(4, word("council", 3), word("meetings", 4)), "I want to council meetings"},
		{update(3, word("cancel", 3)), "I want to cancel"},
	}

	for i, step := range steps {
		if err := a.ProcessUpdate(step.u); err != nil {
			t.Fatalf("step %d: unexpected error: %v", i, err)
		}
		if got := a.Transcript(); got != step.want {
			t.Errorf("step %d: expected %q, got %q", i, step.want, got)
		}
	}
}
