package config

import "time"

// Video Output Constants
const (
	// VideoWidth is the output video width (9:16 aspect ratio)
	VideoWidth = 1080

	// VideoHeight is the output video height (9:16 aspect ratio)
	VideoHeight = 1920

	// FrameRate is the output frame rate
	FrameRate = 30

	// AudioBitrate is the audio quality bitrate
	AudioBitrate = "192k"

	// VideoPreset is the ffmpeg encoding speed preset
	VideoPreset = "fast"
)

// Session Constants
const (
	// TickInterval drives the session's render loop
	TickInterval = 100 * time.Millisecond

	// SessionEpsilon pads the session deadline past the planned duration,
	// so a stalled encoder still self-terminates
	SessionEpsilon = 3 * time.Second

	// MaxVideoDuration is the maximum allowed video length in seconds
	MaxVideoDuration = 180.0

	// MaxScriptChars is the character ceiling for narration scripts
	// (bound imposed by the speech service)
	MaxScriptChars = 4000

	// MaxConcurrentSessions limits simultaneous recording sessions;
	// encoder and audio handles are exclusive per session
	MaxConcurrentSessions = 1
)

// Subtitle Constants
const (
	// SubtitleFontSize is the ASS caption font size at 1080x1920
	SubtitleFontSize = 72

	// SubtitleMaxWords caps words per caption chunk for short-form pacing
	SubtitleMaxWords = 3
)

// Directory Constants
const (
	// OutputDir is the directory for generated videos
	OutputDir = "output"
)
