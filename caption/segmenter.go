package caption

import (
	"strings"

	"github.com/strauser85/snap-sold-sub000/script"
	"github.com/strauser85/snap-sold-sub000/types"
)

// SegmenterConfig tunes caption chunking for short-form pacing.
type SegmenterConfig struct {
	MaxWordsPerChunk int // hard cap per chunk
	CommaMinWords    int // a comma closes the chunk once it holds this many words
}

// DefaultSegmenterConfig returns the short-form video tuning.
func DefaultSegmenterConfig() SegmenterConfig {
	return SegmenterConfig{
		MaxWordsPerChunk: 3,
		CommaMinWords:    2,
	}
}

// Segmenter groups word timings into short on-screen caption bursts.
type Segmenter struct {
	cfg SegmenterConfig
}

func NewSegmenter(cfg SegmenterConfig) *Segmenter {
	if cfg.MaxWordsPerChunk <= 0 {
		cfg.MaxWordsPerChunk = 3
	}
	if cfg.CommaMinWords <= 0 {
		cfg.CommaMinWords = 2
	}
	return &Segmenter{cfg: cfg}
}

// Segment greedily accumulates words into chunks, closing on sentence-terminal
// punctuation, the word cap, a comma past the minimum, or exhaustion. Output
// chunks are contiguous and never overlap; the first chunk starts where the
// first word starts.
func (s *Segmenter) Segment(timings []types.WordTiming) []types.CaptionChunk {
	if len(timings) == 0 {
		return nil
	}

	var chunks []types.CaptionChunk
	var cur []types.WordTiming

	for i, wt := range timings {
		cur = append(cur, wt)

		boundary := endsSentence(wt.Word) ||
			len(cur) >= s.cfg.MaxWordsPerChunk ||
			(strings.HasSuffix(wt.Word, ",") && len(cur) >= s.cfg.CommaMinWords) ||
			i == len(timings)-1

		if boundary {
			chunks = append(chunks, buildChunk(cur))
			cur = nil
		}
	}
	return chunks
}

// FallbackSentences segments the raw script at sentence boundaries and spreads
// totalDuration evenly across them. Coarser than word-level chunks, but always
// produces something displayable when no timings exist.
func (s *Segmenter) FallbackSentences(clean string, totalDuration float64) []types.CaptionChunk {
	sentences := script.Sentences(clean)
	if len(sentences) == 0 || totalDuration <= 0 {
		return nil
	}

	chunks := make([]types.CaptionChunk, len(sentences))
	for i, text := range sentences {
		chunks[i] = types.CaptionChunk{
			Text:  text,
			Start: totalDuration * float64(i) / float64(len(sentences)),
			End:   totalDuration * float64(i+1) / float64(len(sentences)),
		}
	}
	return chunks
}

func buildChunk(words []types.WordTiming) types.CaptionChunk {
	texts := make([]string, len(words))
	for i, w := range words {
		texts[i] = w.Word
	}
	owned := make([]types.WordTiming, len(words))
	copy(owned, words)

	return types.CaptionChunk{
		Text:  strings.Join(texts, " "),
		Words: owned,
		Start: words[0].Start,
		End:   words[len(words)-1].End,
	}
}

// endsSentence reports whether a word closes a sentence. Periods inside
// numbers like "4.5" don't count.
func endsSentence(word string) bool {
	trimmed := strings.TrimSpace(word)
	if strings.HasSuffix(trimmed, "!") || strings.HasSuffix(trimmed, "?") {
		return true
	}
	if !strings.HasSuffix(trimmed, ".") {
		return false
	}
	if len(trimmed) >= 2 {
		prev := trimmed[len(trimmed)-2]
		if prev >= '0' && prev <= '9' && !strings.HasSuffix(trimmed, "..") {
			// "4." mid-number split ends up here when tokenized oddly;
			// treat digit-period as part of a figure, not a terminator
			return false
		}
	}
	return true
}
