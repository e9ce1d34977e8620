package encoder

import (
	"fmt"
	"os/exec"
	"strings"

	"github.com/strauser85/snap-sold-sub000/types"
)

// Codec is one candidate encoding: video encoder, audio encoder, container.
type Codec struct {
	Name      string // identifier reported to the output consumer
	Video     string // ffmpeg video encoder
	Audio     string // ffmpeg audio encoder
	Container string // mux format
}

// DefaultCodecs is the preference order: best quality first, most compatible
// last. Negotiation walks the list until one is accepted.
var DefaultCodecs = []Codec{
	{Name: "h264-aac", Video: "libx264", Audio: "aac", Container: "mp4"},
	{Name: "vp9-opus", Video: "libvpx-vp9", Audio: "libopus", Container: "webm"},
	{Name: "vp8-vorbis", Video: "libvpx", Audio: "libvorbis", Container: "webm"},
}

// Prober reports whether the capture subsystem accepts a codec pair.
type Prober interface {
	Supports(c Codec) bool
}

// Negotiate tries candidates in order and returns the first supported one.
// Exhausting the list is fatal: there is no degraded mode without a codec.
func Negotiate(p Prober, candidates []Codec) (Codec, error) {
	for _, c := range candidates {
		if p.Supports(c) {
			return c, nil
		}
	}
	return Codec{}, &types.DeviceError{Op: "codec negotiation", Err: types.ErrNoCodec}
}

// FFmpegProber checks codec support against the local ffmpeg build's encoder
// list. The list is fetched once and cached.
type FFmpegProber struct {
	encoders string
}

// NewFFmpegProber shells out for the encoder list. ffmpeg missing entirely
// is a device failure.
func NewFFmpegProber() (*FFmpegProber, error) {
	out, err := exec.Command("ffmpeg", "-hide_banner", "-encoders").Output()
	if err != nil {
		return nil, &types.DeviceError{Op: "encoder probe", Err: fmt.Errorf("ffmpeg unavailable: %w", err)}
	}
	return &FFmpegProber{encoders: string(out)}, nil
}

func (p *FFmpegProber) Supports(c Codec) bool {
	return strings.Contains(p.encoders, " "+c.Video+" ") &&
		strings.Contains(p.encoders, " "+c.Audio+" ")
}
