package timing

import (
	"strings"
	"testing"

	"github.com/strauser85/snap-sold-sub000/types"
)

func TestEstimateFitsTarget(t *testing.T) {
	est := NewEstimator(DefaultEstimatorConfig())

	scripts := []string{
		"Welcome home.",
		"Three bedrooms, two bathrooms, and a renovated kitchen with granite countertops.",
		"Stunning 4 bedroom home in a quiet neighborhood! Call today. Don't wait.",
	}
	durations := []float64{5, 10, 30, 90}

	for _, s := range scripts {
		words := strings.Fields(s)
		for _, d := range durations {
			timings := est.Estimate(words, d)
			if len(timings) != len(words) {
				t.Fatalf("%q: got %d timings for %d words", s, len(timings), len(words))
			}
			last := timings[len(timings)-1]
			if last.End > d {
				t.Errorf("%q at %.0fs: last End %.3f exceeds target", s, d, last.End)
			}
		}
	}
}

func TestEstimateMonotonic(t *testing.T) {
	est := NewEstimator(DefaultEstimatorConfig())
	words := strings.Fields("This spacious property features hardwood floors, stainless appliances, and panoramic views.")
	timings := est.Estimate(words, 20)

	for i, wt := range timings {
		if wt.Start >= wt.End {
			t.Errorf("timing %d: Start %.3f >= End %.3f", i, wt.Start, wt.End)
		}
		if i > 0 && wt.Start < timings[i-1].Start {
			t.Errorf("timing %d: Start decreased", i)
		}
	}
}

func TestEstimateTwoWords(t *testing.T) {
	// "Welcome home." over 10 seconds
	est := NewEstimator(DefaultEstimatorConfig())
	timings := est.Estimate([]string{"Welcome", "home."}, 10)

	if len(timings) != 2 {
		t.Fatalf("got %d timings, want 2", len(timings))
	}
	if timings[1].End > 10 {
		t.Errorf("End = %.3f, want <= 10", timings[1].End)
	}
	if timings[0].Start <= 0 {
		t.Errorf("first Start = %.3f, want > 0 (startup offset)", timings[0].Start)
	}
}

func TestEstimateZeroWords(t *testing.T) {
	est := NewEstimator(DefaultEstimatorConfig())
	if got := est.Estimate(nil, 10); got != nil {
		t.Errorf("got %v, want nil", got)
	}
}

func TestEstimateModifiers(t *testing.T) {
	est := NewEstimator(DefaultEstimatorConfig())

	plain := est.wordSeconds("home")
	tests := []struct {
		word string
		why  string
	}{
		{"bedrooms", "domain term + long word"},
		{"home,", "trailing comma"},
		{"home.", "sentence terminator"},
		{"4", "digit"},
		{"magnificent", "very long word"},
	}
	for _, tt := range tests {
		if got := est.wordSeconds(tt.word); got <= plain {
			t.Errorf("wordSeconds(%q) = %.3f, want > %.3f (%s)", tt.word, got, plain, tt.why)
		}
	}
}

func TestSpeakingRateSlowsDelivery(t *testing.T) {
	slow := NewEstimator(EstimatorConfig{BaseWordSeconds: 0.3, SpeakingRate: 0.85, StartOffset: 0.1, TrailingBuffer: 0.2})
	fast := NewEstimator(EstimatorConfig{BaseWordSeconds: 0.3, SpeakingRate: 1.0, StartOffset: 0.1, TrailingBuffer: 0.2})

	if slow.wordSeconds("home") <= fast.wordSeconds("home") {
		t.Error("rate 0.85 should stretch word durations")
	}
}

func TestAlignUsesEngineTimings(t *testing.T) {
	est := NewEstimator(DefaultEstimatorConfig())
	engine := []types.WordTiming{
		{Word: "welcome", Start: 0.1, End: 0.6},
		{Word: "home", Start: 0.6, End: 1.1},
	}
	got := est.Align([]string{"Welcome", "home."}, engine, 10)

	if got[0].Start != 0.1 || got[1].End != 1.1 {
		t.Errorf("engine timings not preserved: %+v", got)
	}
	if got[0].Word != "Welcome" || got[1].Word != "home." {
		t.Errorf("original words not kept: %+v", got)
	}
}

func TestAlignClampsToTargetDuration(t *testing.T) {
	// the planned duration truncated the narration: words past the cut are
	// pinned at the boundary so the final End never exceeds the target
	est := NewEstimator(DefaultEstimatorConfig())
	engine := []types.WordTiming{
		{Word: "welcome", Start: 0.1, End: 0.6},
		{Word: "home", Start: 0.6, End: 1.4},
		{Word: "today", Start: 1.4, End: 2.2},
	}
	got := est.Align([]string{"Welcome", "home", "today."}, engine, 1.0)

	if got[0].Start != 0.1 || got[0].End != 0.6 {
		t.Errorf("in-range timing altered: %+v", got[0])
	}
	if got[1].End != 1.0 {
		t.Errorf("straddling End = %.3f, want clamped to 1.0", got[1].End)
	}
	if got[2].Start != 1.0 || got[2].End != 1.0 {
		t.Errorf("past-cut word not pinned at boundary: %+v", got[2])
	}
	for i, wt := range got {
		if wt.End > 1.0 {
			t.Errorf("word %d End %.3f exceeds target", i, wt.End)
		}
	}
}

func TestAlignCountMismatchFallsBack(t *testing.T) {
	est := NewEstimator(DefaultEstimatorConfig())
	engine := []types.WordTiming{{Word: "welcome", Start: 0.1, End: 0.6}}
	got := est.Align([]string{"Welcome", "home."}, engine, 10)

	if len(got) != 2 {
		t.Fatalf("fallback estimate missing: %+v", got)
	}
	if got[1].End > 10 {
		t.Errorf("fallback End %.3f exceeds target", got[1].End)
	}
}
