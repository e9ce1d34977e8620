package caption

import (
	"errors"
	"strings"
	"testing"

	"github.com/strauser85/snap-sold-sub000/timing"
	"github.com/strauser85/snap-sold-sub000/types"
)

func estimateWords(t *testing.T, text string, dur float64) []types.WordTiming {
	t.Helper()
	est := timing.NewEstimator(timing.DefaultEstimatorConfig())
	return est.Estimate(strings.Fields(text), dur)
}

func TestSegmentNeverOverlaps(t *testing.T) {
	timings := estimateWords(t, "Welcome to this stunning home. Three bedrooms, two bathrooms, and a renovated kitchen! Call today.", 30)
	chunks := NewSegmenter(DefaultSegmenterConfig()).Segment(timings)

	if len(chunks) == 0 {
		t.Fatal("no chunks")
	}
	if chunks[0].Start != timings[0].Start {
		t.Errorf("first chunk Start %.3f != first word Start %.3f", chunks[0].Start, timings[0].Start)
	}
	for i := 1; i < len(chunks); i++ {
		if chunks[i].Start < chunks[i-1].End {
			t.Errorf("chunk %d overlaps previous: %.3f < %.3f", i, chunks[i].Start, chunks[i-1].End)
		}
	}
}

func TestSegmentWordCap(t *testing.T) {
	timings := estimateWords(t, "one two three four five six seven eight", 10)
	chunks := NewSegmenter(SegmenterConfig{MaxWordsPerChunk: 3, CommaMinWords: 2}).Segment(timings)

	for i, c := range chunks {
		if len(c.Words) > 3 {
			t.Errorf("chunk %d has %d words, cap is 3", i, len(c.Words))
		}
	}
	// 8 words at cap 3 → 3+3+2
	if len(chunks) != 3 {
		t.Errorf("got %d chunks, want 3", len(chunks))
	}
}

func TestSegmentSentenceBreak(t *testing.T) {
	timings := estimateWords(t, "Welcome home. Stunning views", 10)
	chunks := NewSegmenter(DefaultSegmenterConfig()).Segment(timings)

	if len(chunks) != 2 {
		t.Fatalf("got %d chunks, want 2: %+v", len(chunks), chunks)
	}
	if chunks[0].Text != "Welcome home." {
		t.Errorf("first chunk = %q", chunks[0].Text)
	}
}

func TestSegmentCommaBreak(t *testing.T) {
	timings := estimateWords(t, "granite counters, hardwood floors", 10)
	chunks := NewSegmenter(DefaultSegmenterConfig()).Segment(timings)

	if len(chunks) != 2 {
		t.Fatalf("got %d chunks, want 2: %+v", len(chunks), chunks)
	}
	if !strings.HasSuffix(chunks[0].Text, ",") {
		t.Errorf("first chunk should end at comma, got %q", chunks[0].Text)
	}
}

func TestSegmentDecimalNotSentence(t *testing.T) {
	if endsSentence("4.5") {
		t.Error("4.5 is a figure, not a sentence end")
	}
	if !endsSentence("home.") {
		t.Error("home. ends a sentence")
	}
	if !endsSentence("now!") {
		t.Error("now! ends a sentence")
	}
}

func TestSegmentEmpty(t *testing.T) {
	if got := NewSegmenter(DefaultSegmenterConfig()).Segment(nil); got != nil {
		t.Errorf("got %v, want nil", got)
	}
}

func TestFallbackSentencesEvenSplit(t *testing.T) {
	s := NewSegmenter(DefaultSegmenterConfig())
	chunks := s.FallbackSentences("Welcome home. Stunning views! Move in today.", 30)

	if len(chunks) != 3 {
		t.Fatalf("got %d chunks, want 3", len(chunks))
	}
	for i, c := range chunks {
		if d := c.Duration(); d < 9.999 || d > 10.001 {
			t.Errorf("chunk %d duration %.3f, want 10", i, d)
		}
	}
	if chunks[0].Start != 0 {
		t.Errorf("first chunk starts at %.3f, want 0", chunks[0].Start)
	}
	if chunks[2].End != 30 {
		t.Errorf("last chunk ends at %.3f, want 30", chunks[2].End)
	}
}

func TestWriteASSWordHighlight(t *testing.T) {
	timings := estimateWords(t, "Welcome home.", 10)
	chunks := NewSegmenter(DefaultSegmenterConfig()).Segment(timings)

	var b strings.Builder
	if err := WriteASS(&b, chunks); err != nil {
		t.Fatal(err)
	}
	out := b.String()

	if !strings.Contains(out, "[Events]") {
		t.Error("missing events section")
	}
	// one dialogue event per word
	if got := strings.Count(out, "Dialogue:"); got != 2 {
		t.Errorf("got %d dialogue events, want 2", got)
	}
	if !strings.Contains(out, "{\\c&H0000FFFF&}Welcome{\\c&H00FFFFFF&}") {
		t.Error("first word not highlighted")
	}
}

func TestWriteASSFallbackChunks(t *testing.T) {
	chunks := []types.CaptionChunk{{Text: "Welcome home.", Start: 0, End: 5}}

	var b strings.Builder
	if err := WriteASS(&b, chunks); err != nil {
		t.Fatal(err)
	}
	if got := strings.Count(b.String(), "Dialogue:"); got != 1 {
		t.Errorf("got %d dialogue events, want 1", got)
	}
}

// failingWriter fails after limit bytes, like a full disk mid-track.
type failingWriter struct {
	limit   int
	written int
}

func (f *failingWriter) Write(p []byte) (int, error) {
	if f.written+len(p) > f.limit {
		return 0, errors.New("no space left on device")
	}
	f.written += len(p)
	return len(p), nil
}

func TestWriteASSReportsWriteFailure(t *testing.T) {
	chunks := []types.CaptionChunk{{Text: "Welcome home.", Start: 0, End: 5}}

	if err := WriteASS(&failingWriter{limit: 40}, chunks); err == nil {
		t.Fatal("truncated track reported as success")
	}
}
