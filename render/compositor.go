package render

import (
	"sort"
	"strings"

	"github.com/strauser85/snap-sold-sub000/types"
)

// Compositor resolves playback time against the immutable display plan and
// caption chunks. It holds no mutable state: the same t against the same
// schedules always yields the same frame.
type Compositor struct {
	slots  []types.ImageDisplaySlot
	chunks []types.CaptionChunk
}

// NewCompositor shares the schedules by read-only reference; callers must not
// mutate them afterwards.
func NewCompositor(slots []types.ImageDisplaySlot, chunks []types.CaptionChunk) *Compositor {
	return &Compositor{slots: slots, chunks: chunks}
}

// Compose produces the frame for elapsed time t: the active image plus the
// currently revealed caption text. Past the end of either schedule the last
// entry is used, so there is never a frame without an image.
func (c *Compositor) Compose(t float64) types.RenderFrame {
	frame := types.RenderFrame{Elapsed: t}

	if len(c.slots) > 0 {
		frame.ImageRef = c.activeSlot(t).ImageRef
	}
	if chunk, ok := c.activeChunk(t); ok {
		frame.Caption = revealText(chunk, t)
	}
	return frame
}

func (c *Compositor) activeSlot(t float64) types.ImageDisplaySlot {
	if t <= c.slots[0].Start {
		return c.slots[0]
	}
	i := sort.Search(len(c.slots), func(i int) bool {
		return c.slots[i].End > t
	})
	if i >= len(c.slots) {
		return c.slots[len(c.slots)-1]
	}
	return c.slots[i]
}

// activeChunk finds the caption containing t. Inside a gap between chunks
// there is no caption; past the last chunk the caption stays up, fully
// revealed.
func (c *Compositor) activeChunk(t float64) (types.CaptionChunk, bool) {
	if len(c.chunks) == 0 {
		return types.CaptionChunk{}, false
	}
	last := c.chunks[len(c.chunks)-1]
	if t >= last.End {
		return last, true
	}
	// End is inclusive: at a chunk boundary the finishing chunk wins, so
	// its reveal is complete before the next chunk takes over.
	i := sort.Search(len(c.chunks), func(i int) bool {
		return c.chunks[i].End >= t
	})
	if i >= len(c.chunks) {
		return last, true
	}
	if t < c.chunks[i].Start {
		return types.CaptionChunk{}, false
	}
	return c.chunks[i], true
}

// revealText applies the progressive reveal: word-by-word when true word
// timings exist, otherwise proportional by character count. Either way the
// full text is revealed by the chunk's end.
func revealText(chunk types.CaptionChunk, t float64) string {
	if t >= chunk.End {
		return chunk.Text
	}

	if len(chunk.Words) > 0 {
		var parts []string
		for _, w := range chunk.Words {
			if t >= w.Start {
				parts = append(parts, w.Word)
			}
		}
		return strings.Join(parts, " ")
	}

	span := chunk.End - chunk.Start
	if span <= 0 {
		return chunk.Text
	}
	frac := (t - chunk.Start) / span
	if frac < 0 {
		frac = 0
	}
	runes := []rune(chunk.Text)
	shown := int(frac * float64(len(runes)))
	if shown > len(runes) {
		shown = len(runes)
	}
	return string(runes[:shown])
}
