package timing

import (
	"strings"
	"unicode"

	"github.com/strauser85/snap-sold-sub000/types"
)

// EstimatorConfig tunes the heuristic word-duration model. One configurable
// estimator covers every delivery style instead of per-style copies.
type EstimatorConfig struct {
	BaseWordSeconds   float64 // base duration per word
	LongWordBonus     float64 // words over 6 characters
	VeryLongWordBonus float64 // additional bonus over 10 characters
	CommaPause        float64 // trailing comma
	SentencePause     float64 // trailing . ! ?
	DigitBonus        float64 // word contains a digit
	DomainTermBonus   float64 // multi-syllable listing vocabulary
	StartOffset       float64 // speech engine startup latency
	TrailingBuffer    float64 // seconds reserved after the last word
	SpeakingRate      float64 // delivery multiplier, 1.0 = neutral
}

// DefaultEstimatorConfig returns the tuning used for listing narrations.
func DefaultEstimatorConfig() EstimatorConfig {
	return EstimatorConfig{
		BaseWordSeconds:   0.30,
		LongWordBonus:     0.08,
		VeryLongWordBonus: 0.10,
		CommaPause:        0.15,
		SentencePause:     0.35,
		DigitBonus:        0.12,
		DomainTermBonus:   0.10,
		StartOffset:       0.15,
		TrailingBuffer:    0.25,
		SpeakingRate:      1.0,
	}
}

// domainTerms are listing-vocabulary words that narrators stretch out.
var domainTerms = map[string]bool{
	"bedroom":      true,
	"bedrooms":     true,
	"bathroom":     true,
	"bathrooms":    true,
	"kitchen":      true,
	"granite":      true,
	"stainless":    true,
	"hardwood":     true,
	"renovated":    true,
	"spacious":     true,
	"neighborhood": true,
	"community":    true,
	"appliances":   true,
	"countertops":  true,
	"fireplace":    true,
	"landscaping":  true,
	"panoramic":    true,
	"property":     true,
}

// Estimator produces per-word timings when the speech engine supplies none.
type Estimator struct {
	cfg EstimatorConfig
}

// NewEstimator creates an estimator. A zero SpeakingRate is treated as 1.0.
func NewEstimator(cfg EstimatorConfig) *Estimator {
	if cfg.SpeakingRate <= 0 {
		cfg.SpeakingRate = 1.0
	}
	return &Estimator{cfg: cfg}
}

// Estimate assigns each word a heuristic window, then scales the whole
// sequence so it fits targetDuration exactly regardless of heuristic drift.
// The final End is always ≤ targetDuration. Zero words yields an empty slice,
// which callers treat as "no captions".
func (e *Estimator) Estimate(words []string, targetDuration float64) []types.WordTiming {
	if len(words) == 0 || targetDuration <= 0 {
		return nil
	}

	timings := make([]types.WordTiming, 0, len(words))
	clock := e.cfg.StartOffset

	for _, w := range words {
		d := e.wordSeconds(w)
		timings = append(timings, types.WordTiming{
			Word:  w,
			Start: clock,
			End:   clock + d,
		})
		clock += d
	}

	// Scale every timing so the sequence lands inside the target, leaving
	// the trailing buffer for the engine's fade-out.
	usable := targetDuration - e.cfg.TrailingBuffer
	if usable <= 0 {
		usable = targetDuration
	}
	raw := timings[len(timings)-1].End
	scale := usable / raw

	for i := range timings {
		timings[i].Start *= scale
		timings[i].End *= scale
	}
	return timings
}

// Align maps the script's words 1:1 onto engine-supplied timings. When the
// counts disagree the alignment is untrustworthy and estimation takes over.
// Timings are clamped to targetDuration: the planned duration can be shorter
// than the engine's full narration, and the final End must not exceed it.
func (e *Estimator) Align(words []string, engine []types.WordTiming, targetDuration float64) []types.WordTiming {
	if len(engine) == 0 || len(engine) != len(words) {
		return e.Estimate(words, targetDuration)
	}
	out := make([]types.WordTiming, len(words))
	for i, w := range words {
		wt := types.WordTiming{Word: w, Start: engine[i].Start, End: engine[i].End}
		if targetDuration > 0 {
			if wt.Start > targetDuration {
				wt.Start = targetDuration
			}
			if wt.End > targetDuration {
				wt.End = targetDuration
			}
		}
		out[i] = wt
	}
	return out
}

func (e *Estimator) wordSeconds(word string) float64 {
	d := e.cfg.BaseWordSeconds

	bare := strings.TrimFunc(word, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	if len(bare) > 6 {
		d += e.cfg.LongWordBonus
	}
	if len(bare) > 10 {
		d += e.cfg.VeryLongWordBonus
	}
	if strings.HasSuffix(word, ",") {
		d += e.cfg.CommaPause
	}
	if strings.HasSuffix(word, ".") || strings.HasSuffix(word, "!") || strings.HasSuffix(word, "?") {
		d += e.cfg.SentencePause
	}
	if strings.ContainsFunc(bare, unicode.IsDigit) {
		d += e.cfg.DigitBonus
	}
	if domainTerms[strings.ToLower(bare)] {
		d += e.cfg.DomainTermBonus
	}

	return d / e.cfg.SpeakingRate
}
