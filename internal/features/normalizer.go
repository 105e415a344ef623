// Package features turns raw typing-rhythm telemetry into the fixed-order
// numeric vector the scoring model was trained on. Out-of-range values are
// clipped, never rejected; clipping is the error policy for raw input.
package features

// VectorSize is the length of every feature vector: the five raw telemetry
// values plus two derived ratios.
const VectorSize = 7

// FeatureNames is the canonical ordering of the feature vector. Model weights
// are trained against this exact order; reordering silently corrupts every
// prediction, so all code indexes through this single constant.
var FeatureNames = []string{
	"typing_speed",
	"key_hold_time",
	"transition_time",
	"error_rate",
	"activity_hour",
	"speed_accuracy_ratio",
	"rhythm_ratio",
}

// Clipping bounds per raw feature.
const (
	MinTypingSpeed    = 10.0
	MaxTypingSpeed    = 200.0
	MinKeyHoldTime    = 20.0
	MaxKeyHoldTime    = 500.0
	MinTransitionTime = 20.0
	MaxTransitionTime = 400.0
	MinErrorRate      = 0.0
	MaxErrorRate      = 50.0
	MinActivityHour   = 0.0
	MaxActivityHour   = 23.0
)

// RawFeatureSet is one behavioral telemetry sample as supplied by the caller.
// Absent fields are zero values and get clipped to the feature minimum.
type RawFeatureSet struct {
	TypingSpeedWPM         float64 `json:"typing_speed_wpm" yaml:"typing_speed_wpm"`
	AvgKeyHoldTimeMs       float64 `json:"avg_key_hold_time_ms" yaml:"avg_key_hold_time_ms"`
	AvgTransitionTimeMs    float64 `json:"avg_transition_time_ms" yaml:"avg_transition_time_ms"`
	ErrorRatePercent       float64 `json:"error_rate_percent" yaml:"error_rate_percent"`
	ActivityHourPreference float64 `json:"activity_hour_preference" yaml:"activity_hour_preference"`
}

// HistoricalPattern is a previously observed sample for the same identity,
// supplied read-only by the caller for centroid comparison.
type HistoricalPattern struct {
	RawFeatureSet
	Timestamp int64 `json:"timestamp"`
}

// FeatureVector is an ordered 7-float vector laid out per FeatureNames.
// It is created fresh per prediction and never mutated after construction.
type FeatureVector []float64

// Normalize clips the raw sample to its documented bounds and appends the two
// derived ratios. Pure function; never fails. The +1 denominators keep both
// ratios finite at zero error rate and zero transition time.
func Normalize(raw RawFeatureSet) FeatureVector {
	speed := clip(raw.TypingSpeedWPM, MinTypingSpeed, MaxTypingSpeed)
	hold := clip(raw.AvgKeyHoldTimeMs, MinKeyHoldTime, MaxKeyHoldTime)
	transition := clip(raw.AvgTransitionTimeMs, MinTransitionTime, MaxTransitionTime)
	errRate := clip(raw.ErrorRatePercent, MinErrorRate, MaxErrorRate)
	hour := clip(raw.ActivityHourPreference, MinActivityHour, MaxActivityHour)

	speedAccuracy := speed / (errRate + 1)
	rhythm := hold / (transition + 1)

	return FeatureVector{speed, hold, transition, errRate, hour, speedAccuracy, rhythm}
}

func clip(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
