package caption

import (
	"fmt"
	"io"
	"os"

	"github.com/strauser85/snap-sold-sub000/config"
	"github.com/strauser85/snap-sold-sub000/types"
)

// errWriter carries the first write failure so the event loop doesn't have
// to check every Fprint; later writes become no-ops.
type errWriter struct {
	w   io.Writer
	err error
}

func (ew *errWriter) Write(p []byte) (int, error) {
	if ew.err != nil {
		return len(p), nil
	}
	n, err := ew.w.Write(p)
	if err != nil {
		ew.err = err
	}
	return n, nil
}

// WriteASS renders caption chunks as an ASS subtitle track with word-by-word
// highlighting. When a chunk carries word timings, each word gets its own
// dialogue event with the active word in yellow; fallback chunks without
// word timings get a single plain event. A truncated write surfaces as the
// returned error.
func WriteASS(dst io.Writer, chunks []types.CaptionChunk) error {
	ew := &errWriter{w: dst}
	w := io.Writer(ew)

	fmt.Fprintln(w, "[Script Info]")
	fmt.Fprintln(w, "Title: SnapSold Listing Video")
	fmt.Fprintln(w, "ScriptType: v4.00+")
	fmt.Fprintf(w, "PlayResX: %d\n", config.VideoWidth)
	fmt.Fprintf(w, "PlayResY: %d\n", config.VideoHeight)
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "[V4+ Styles]")
	fmt.Fprintln(w, "Format: Name, Fontname, Fontsize, PrimaryColour, SecondaryColour, OutlineColour, BackColour, Bold, Italic, Underline, StrikeOut, ScaleX, ScaleY, Spacing, Angle, BorderStyle, Outline, Shadow, Alignment, MarginL, MarginR, MarginV, Encoding")

	// MarginV positions captions at 40% from the bottom of the frame
	marginV := config.VideoHeight * 2 / 5
	fmt.Fprintf(w, "Style: Default,Consolas,%d,&H00FFFFFF,&H00FFFFFF,&H00000000,&H00000000,-1,0,0,0,100,100,0,0,1,3,0,2,40,40,%d,1\n", config.SubtitleFontSize, marginV)

	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "[Events]")
	fmt.Fprintln(w, "Format: Layer, Start, End, Style, Name, MarginL, MarginR, MarginV, Effect, Text")

	for _, chunk := range chunks {
		if len(chunk.Words) == 0 {
			fmt.Fprintf(w, "Dialogue: 0,%s,%s,Default,,0,0,0,,%s\n",
				assTimestamp(chunk.Start), assTimestamp(chunk.End), chunk.Text)
			continue
		}

		for active := range chunk.Words {
			text := highlightWord(chunk.Words, active)

			start := chunk.Words[active].Start
			end := chunk.Words[active].End
			if active < len(chunk.Words)-1 {
				end = chunk.Words[active+1].Start
			}

			fmt.Fprintf(w, "Dialogue: 0,%s,%s,Default,,0,0,0,,%s\n",
				assTimestamp(start), assTimestamp(end), text)
		}
	}
	return ew.err
}

// RenderASSFile writes the caption track to disk for ffmpeg's ass filter.
func RenderASSFile(path string, chunks []types.CaptionChunk) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := WriteASS(f, chunks); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// highlightWord renders a chunk with the active word in yellow.
func highlightWord(words []types.WordTiming, active int) string {
	out := ""
	for i, w := range words {
		if i > 0 {
			out += " "
		}
		if i == active {
			out += fmt.Sprintf("{\\c&H0000FFFF&}%s{\\c&H00FFFFFF&}", w.Word)
		} else {
			out += w.Word
		}
	}
	return out
}

// assTimestamp converts seconds to ASS timestamp format (h:mm:ss.cc).
func assTimestamp(seconds float64) string {
	hours := int(seconds / 3600)
	minutes := int((seconds - float64(hours*3600)) / 60)
	secs := int(seconds) % 60
	centisecs := int((seconds - float64(int(seconds))) * 100)

	return fmt.Sprintf("%d:%02d:%02d.%02d", hours, minutes, secs, centisecs)
}
