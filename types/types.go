package types

// WordTiming maps one spoken word onto its window within the voiceover audio.
// Timings either come back from the speech engine or are estimated.
type WordTiming struct {
	Word  string  `json:"word"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// CaptionChunk is a short burst of on-screen text covering a handful of words.
type CaptionChunk struct {
	Text  string       `json:"text"`
	Words []WordTiming `json:"words,omitempty"`
	Start float64      `json:"start"`
	End   float64      `json:"end"`
}

// Duration returns the chunk's on-screen time.
func (c CaptionChunk) Duration() float64 {
	return c.End - c.Start
}

// ImageDisplaySlot is the window during which one image is the active visual.
type ImageDisplaySlot struct {
	ImageRef string  `json:"image_ref"`
	Start    float64 `json:"start"`
	End      float64 `json:"end"`
	Reused   bool    `json:"reused"`
	Priority int     `json:"priority"`
}

// Duration returns the slot length in seconds.
func (s ImageDisplaySlot) Duration() float64 {
	return s.End - s.Start
}

// RenderFrame is the immutable per-tick snapshot the compositor produces:
// which image is up, how much of the caption is revealed, and when.
type RenderFrame struct {
	ImageRef string  `json:"image_ref"`
	Caption  string  `json:"caption,omitempty"`
	Elapsed  float64 `json:"elapsed"`
}

// VideoRequest is the intake payload for one marketing video, arriving via
// the HTTP API or the Kafka topic.
type VideoRequest struct {
	ID           string       `json:"id"`
	Script       string       `json:"script"`
	ImageURLs    []string     `json:"image_urls"`
	Voiceover    string       `json:"voiceover"`
	Duration     float64      `json:"duration"`
	WordTimings  []WordTiming `json:"word_timings,omitempty"`
	SpeakingRate float64      `json:"speaking_rate,omitempty"`
}

// VideoResult is the finished artifact handed to the output consumer.
type VideoResult struct {
	ID       string  `json:"id"`
	Codec    string  `json:"codec"`
	Duration float64 `json:"duration"`
	Artifact []byte  `json:"-"`
}
