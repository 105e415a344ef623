// Command synthgen generates a synthetic typing-rhythm dataset: per-user
// baselines with natural variation, plus impostor samples drawn from
// unrelated baselines, labeled for training.
package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strconv"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type sample struct {
	userID       int
	typingSpeed  int
	keyHold      int
	transition   int
	errorRate    int
	activityHour int
	legitimate   bool
}

type baseline struct {
	speed, hold, transition, errRate, hour float64
}

func clampInt(v float64, lo, hi int) int {
	i := int(v)
	if i < lo {
		return lo
	}
	if i > hi {
		return hi
	}
	return i
}

func draw(rng *rand.Rand, b baseline, spread float64, userID int, legitimate bool) sample {
	return sample{
		userID:       userID,
		typingSpeed:  clampInt(rng.NormFloat64()*5*spread+b.speed, 20, 150),
		keyHold:      clampInt(rng.NormFloat64()*10*spread+b.hold, 40, 300),
		transition:   clampInt(rng.NormFloat64()*8*spread+b.transition, 30, 250),
		errorRate:    clampInt(rng.NormFloat64()*1*spread+b.errRate, 0, 30),
		activityHour: clampInt(rng.NormFloat64()*2*spread+b.hour, 0, 23),
		legitimate:   legitimate,
	}
}

func legitimateBaseline(rng *rand.Rand) baseline {
	return baseline{
		speed:      float64(40 + rng.Intn(60)),
		hold:       float64(80 + rng.Intn(70)),
		transition: float64(60 + rng.Intn(60)),
		errRate:    float64(1 + rng.Intn(7)),
		hour:       float64(8 + rng.Intn(14)),
	}
}

func impostorBaseline(rng *rand.Rand) baseline {
	return baseline{
		speed:      float64(30 + rng.Intn(60)),
		hold:       float64(70 + rng.Intn(110)),
		transition: float64(50 + rng.Intn(90)),
		errRate:    float64(3 + rng.Intn(12)),
		hour:       float64(6 + rng.Intn(17)),
	}
}

func main() {
	var (
		totalSamples    = flag.Int("samples", 10000, "Total number of samples")
		outputPath      = flag.String("output", "data/synthetic.csv", "Output CSV path")
		legitimateRatio = flag.Float64("legitimate-ratio", 0.8, "Ratio of legitimate samples (0.0-1.0)")
		seed            = flag.Int64("seed", 42, "Random seed")
	)
	flag.Parse()

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	if *legitimateRatio <= 0 || *legitimateRatio > 1 {
		log.Fatal().Float64("ratio", *legitimateRatio).Msg("legitimate ratio must be in (0,1]")
	}

	rng := rand.New(rand.NewSource(*seed))

	const samplesPerUser = 100
	impostorRatio := 1.0 - *legitimateRatio
	impostorPerUser := int(samplesPerUser * impostorRatio)
	users := *totalSamples / (samplesPerUser + impostorPerUser)
	if users < 1 {
		users = 1
	}

	log.Info().
		Int("users", users).
		Int("samples_per_user", samplesPerUser).
		Float64("legitimate_ratio", *legitimateRatio).
		Msg("generating dataset")

	var samples []sample
	for userID := 0; userID < users; userID++ {
		legit := legitimateBaseline(rng)
		for i := 0; i < samplesPerUser; i++ {
			samples = append(samples, draw(rng, legit, 1.0, userID, true))
		}

		// Impostors type with someone else's rhythm, and less steadily.
		impostor := impostorBaseline(rng)
		for i := 0; i < impostorPerUser; i++ {
			samples = append(samples, draw(rng, impostor, 1.6, userID, false))
		}
	}

	rng.Shuffle(len(samples), func(i, j int) {
		samples[i], samples[j] = samples[j], samples[i]
	})

	if err := writeCSV(*outputPath, samples); err != nil {
		log.Fatal().Err(err).Str("path", *outputPath).Msg("write failed")
	}

	legitCount := 0
	for _, s := range samples {
		if s.legitimate {
			legitCount++
		}
	}
	log.Info().
		Int("total", len(samples)).
		Int("legitimate", legitCount).
		Int("impostor", len(samples)-legitCount).
		Str("path", *outputPath).
		Msg("dataset written")
}

func writeCSV(path string, samples []sample) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create output file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	header := []string{
		"user_id", "typing_speed_wpm", "avg_key_hold_time_ms",
		"avg_transition_time_ms", "error_rate_percent",
		"activity_hour_preference", "is_legitimate",
	}
	if err := w.Write(header); err != nil {
		return err
	}

	for _, s := range samples {
		label := "0"
		if s.legitimate {
			label = "1"
		}
		row := []string{
			strconv.Itoa(s.userID),
			strconv.Itoa(s.typingSpeed),
			strconv.Itoa(s.keyHold),
			strconv.Itoa(s.transition),
			strconv.Itoa(s.errorRate),
			strconv.Itoa(s.activityHour),
			label,
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}

	w.Flush()
	return w.Error()
}
