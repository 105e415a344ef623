package inference

import (
	"math"
	"testing"

	"behavioral-auth/internal/features"
)

func TestConsistency_EmptyHistoryIsNeutral(t *testing.T) {
	vec := features.Normalize(sampleRaw())

	if got := consistency(vec, nil, 100); got != NeutralConsistency {
		t.Errorf("nil history: expected %v, got %v", NeutralConsistency, got)
	}
	if got := consistency(vec, []features.HistoricalPattern{}, 100); got != NeutralConsistency {
		t.Errorf("empty history: expected %v, got %v", NeutralConsistency, got)
	}
}

func TestConsistency_IdenticalPatternScoresFull(t *testing.T) {
	raw := sampleRaw()
	vec := features.Normalize(raw)
	history := []features.HistoricalPattern{{RawFeatureSet: raw, Timestamp: 1704067200}}

	if got := consistency(vec, history, 100); got != 100 {
		t.Errorf("expected 100 for identical pattern, got %v", got)
	}
}

func TestConsistency_MatchesDistanceFormula(t *testing.T) {
	raw := sampleRaw()
	vec := features.Normalize(raw)

	other := raw
	other.AvgKeyHoldTimeMs = 170
	history := []features.HistoricalPattern{{RawFeatureSet: other}}

	// Expected value straight from the documented formula.
	hv := features.Normalize(other)
	var sq float64
	for i := range vec {
		d := vec[i] - hv[i]
		sq += d * d
	}
	want := math.Max(0, 100-math.Sqrt(sq))

	got := consistency(vec, history, 100)
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("expected %v, got %v", want, got)
	}
	if got <= 0 || got >= 100 {
		t.Errorf("moderate drift should land strictly between 0 and 100, got %v", got)
	}
}

func TestConsistency_SaturatesToZeroBeyondMaxDistance(t *testing.T) {
	current := features.Normalize(features.RawFeatureSet{
		TypingSpeedWPM:      features.MinTypingSpeed,
		AvgKeyHoldTimeMs:    features.MinKeyHoldTime,
		AvgTransitionTimeMs: features.MinTransitionTime,
	})
	far := features.RawFeatureSet{
		TypingSpeedWPM:         features.MaxTypingSpeed,
		AvgKeyHoldTimeMs:       features.MaxKeyHoldTime,
		AvgTransitionTimeMs:    features.MaxTransitionTime,
		ErrorRatePercent:       features.MaxErrorRate,
		ActivityHourPreference: features.MaxActivityHour,
	}

	got := consistency(current, []features.HistoricalPattern{{RawFeatureSet: far}}, 100)
	if got != 0 {
		t.Errorf("expected similarity to saturate at 0, got %v", got)
	}
}

func TestConsistency_CentroidOfMultiplePatterns(t *testing.T) {
	raw := sampleRaw()
	vec := features.Normalize(raw)

	// Two patterns straddling the current sample symmetrically on key hold
	// time average back to it exactly.
	lower, upper := raw, raw
	lower.AvgKeyHoldTimeMs = 100
	upper.AvgKeyHoldTimeMs = 140
	history := []features.HistoricalPattern{
		{RawFeatureSet: lower},
		{RawFeatureSet: upper},
	}

	got := consistency(vec, history, 100)
	if math.Abs(got-100) > 1e-9 {
		t.Errorf("expected centroid to match current vector, got %v", got)
	}
}

func TestCompare(t *testing.T) {
	a := features.FeatureVector{0, 0, 0, 0, 0, 0, 0}
	b := features.FeatureVector{3, 4, 0, 0, 0, 0, 0}

	distance, similarity := Compare(a, b, 100)
	if distance != 5 {
		t.Errorf("expected distance 5, got %v", distance)
	}
	if similarity != 95 {
		t.Errorf("expected similarity 95, got %v", similarity)
	}

	distance, similarity = Compare(a, a, 100)
	if distance != 0 || similarity != 100 {
		t.Errorf("identical vectors: expected 0/100, got %v/%v", distance, similarity)
	}

	_, similarity = Compare(a, b, 4) // distance beyond the scale
	if similarity != 0 {
		t.Errorf("expected similarity to clamp at 0, got %v", similarity)
	}
}

func TestConsistency_MaxDistanceScaling(t *testing.T) {
	raw := sampleRaw()
	vec := features.Normalize(raw)

	other := raw
	other.AvgKeyHoldTimeMs = raw.AvgKeyHoldTimeMs + 40
	history := []features.HistoricalPattern{{RawFeatureSet: other}}

	loose := consistency(vec, history, 400)
	tight := consistency(vec, history, 50)
	if loose <= tight {
		t.Errorf("larger max distance must be more forgiving: loose=%v tight=%v", loose, tight)
	}
}
