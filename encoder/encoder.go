package encoder

import (
	"context"
	"fmt"
	"log"
	"sync"

	ffmpeg "github.com/u2takey/ffmpeg-go"

	"github.com/strauser85/snap-sold-sub000/config"
	"github.com/strauser85/snap-sold-sub000/types"
)

// Options configures one encode run.
type Options struct {
	Codec     Codec
	AudioGain float64 // 1.0 passes audio through at unity
	Compress  bool    // apply dynamic-range compression before muxing
}

// Encoder drives one ffmpeg mux run: still-image slots plus the voiceover
// into a single container, captions burned in from an ASS track. Encoded
// output arrives as chunks appended to an internal buffer; encode progress
// doubles as the session's sync-clock position source.
type Encoder struct {
	opts Options

	mu     sync.Mutex
	chunks [][]byte
	pos    float64
	active bool
	runErr error

	done chan struct{}
}

// New creates an encoder for a negotiated codec.
func New(opts Options) *Encoder {
	if opts.AudioGain <= 0 {
		opts.AudioGain = 1.0
	}
	return &Encoder{opts: opts, done: make(chan struct{})}
}

// Position implements syncclock.PositionSource: seconds of audio muxed so
// far, and whether the encode is still delivering.
func (e *Encoder) Position() (float64, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.pos, e.active
}

// Write receives encoded container bytes from the ffmpeg pipe. Each call is
// one chunk; delivery is sequential from the process, so a single mutex is
// enough. Zero-length chunks are tolerated.
func (e *Encoder) Write(p []byte) (int, error) {
	chunk := make([]byte, len(p))
	copy(chunk, p)

	e.mu.Lock()
	e.chunks = append(e.chunks, chunk)
	e.mu.Unlock()
	return len(p), nil
}

// Start launches the encode. The slot plan's image refs must be local paths;
// assPath may be empty when there are no captions. Start returns immediately;
// the run ends when the process exits or the context is cancelled.
func (e *Encoder) Start(ctx context.Context, plan []types.ImageDisplaySlot, assPath, audioPath string) error {
	if len(plan) == 0 {
		return types.NewInputError("empty display plan")
	}

	progress, err := newProgressListener(func(seconds float64, done bool) {
		e.mu.Lock()
		if seconds > e.pos {
			e.pos = seconds
		}
		e.mu.Unlock()
	})
	if err != nil {
		return &types.DeviceError{Op: "progress socket", Err: err}
	}

	cmd := e.buildGraph(plan, assPath, audioPath).
		GlobalArgs("-progress", progress.URL()).
		OverWriteOutput().
		WithOutput(e).
		Compile()

	if err := cmd.Start(); err != nil {
		progress.Close()
		return &types.DeviceError{Op: "encode start", Err: err}
	}

	e.mu.Lock()
	e.active = true
	e.mu.Unlock()

	go func() {
		defer close(e.done)
		defer progress.Close()

		err := cmd.Wait()

		e.mu.Lock()
		e.active = false
		if err != nil && ctx.Err() == nil {
			e.runErr = &types.DeviceError{Op: "encode", Err: err}
			log.Printf("encoder fault: %v", err)
		}
		e.mu.Unlock()
	}()

	// cancellation kills the process; handles are released either way
	go func() {
		select {
		case <-ctx.Done():
			_ = cmd.Process.Kill()
		case <-e.done:
		}
	}()

	return nil
}

// Wait blocks until the encode run finishes and returns its terminal error.
func (e *Encoder) Wait() error {
	<-e.done
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.runErr
}

// Err returns the run error observed so far, if any.
func (e *Encoder) Err() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.runErr
}

// Finalize assembles the accumulated chunks into the finished artifact.
// An entirely empty chunk set is a hard failure: the recording produced
// nothing usable.
func (e *Encoder) Finalize() ([]byte, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	total := 0
	for _, c := range e.chunks {
		total += len(c)
	}
	if total == 0 {
		return nil, types.ErrEmptyRecording
	}

	out := make([]byte, 0, total)
	for _, c := range e.chunks {
		out = append(out, c...)
	}
	return out, nil
}

// buildGraph assembles the ffmpeg filter graph: one looped input per display
// slot, scaled and padded to the vertical frame, concatenated, captions
// burned in, then muxed with the gain-adjusted voiceover.
func (e *Encoder) buildGraph(plan []types.ImageDisplaySlot, assPath, audioPath string) *ffmpeg.Stream {
	clips := make([]*ffmpeg.Stream, len(plan))
	for i, slot := range plan {
		in := ffmpeg.Input(slot.ImageRef, ffmpeg.KwArgs{
			"loop":      1,
			"t":         fmt.Sprintf("%.3f", slot.Duration()),
			"framerate": config.FrameRate,
		})
		clips[i] = in.
			Filter("scale", ffmpeg.Args{fmt.Sprintf("%d:%d:force_original_aspect_ratio=decrease", config.VideoWidth, config.VideoHeight)}).
			Filter("pad", ffmpeg.Args{fmt.Sprintf("%d:%d:(ow-iw)/2:(oh-ih)/2", config.VideoWidth, config.VideoHeight)}).
			Filter("setsar", ffmpeg.Args{"1"})
	}

	video := ffmpeg.Concat(clips)
	if assPath != "" {
		video = video.Filter("ass", ffmpeg.Args{assPath})
	}

	audio := ffmpeg.Input(audioPath).Audio()
	if e.opts.AudioGain != 1.0 {
		audio = audio.Filter("volume", ffmpeg.Args{fmt.Sprintf("%.2f", e.opts.AudioGain)})
	}
	if e.opts.Compress {
		audio = audio.Filter("acompressor", ffmpeg.Args{"threshold=0.5:ratio=4:attack=5:release=60"})
	}

	return ffmpeg.Output([]*ffmpeg.Stream{video, audio}, "pipe:", e.outputArgs())
}

// outputArgs maps the negotiated codec onto the muxer command line. The mp4
// container needs fragmented movflags to stream over a pipe.
func (e *Encoder) outputArgs() ffmpeg.KwArgs {
	args := ffmpeg.KwArgs{
		"c:v":      e.opts.Codec.Video,
		"c:a":      e.opts.Codec.Audio,
		"b:a":      config.AudioBitrate,
		"preset":   config.VideoPreset,
		"pix_fmt":  "yuv420p",
		"r":        config.FrameRate,
		"f":        e.opts.Codec.Container,
		"shortest": "",
	}
	if e.opts.Codec.Container == "mp4" {
		args["movflags"] = "frag_keyframe+empty_moov"
	}
	return args
}
