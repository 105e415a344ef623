package storage

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"go.etcd.io/bbolt"

	"behavioral-auth/internal/features"
)

const samplesBucket = "samples"

// SampleRecord is one observed telemetry sample tied to a user. Accumulated
// samples become the user's historical patterns for consistency blending.
type SampleRecord struct {
	UserID    string                 `json:"user_id"`
	Timestamp time.Time              `json:"timestamp"`
	Features  features.RawFeatureSet `json:"features"`
}

// StoreSample stores one observed sample for a user.
func (s *Store) StoreSample(record SampleRecord) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(samplesBucket))

		data, err := json.Marshal(record)
		if err != nil {
			return fmt.Errorf("marshal sample record: %w", err)
		}

		key := fmt.Sprintf("%s_%d", record.UserID, record.Timestamp.UnixNano())
		return b.Put([]byte(key), data)
	})
}

// GetRecentSamples returns up to limit of the most recent samples for a user
// as historical patterns, newest first.
func (s *Store) GetRecentSamples(userID string, limit int) ([]features.HistoricalPattern, error) {
	var patterns []features.HistoricalPattern

	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(samplesBucket))
		c := b.Cursor()

		prefix := []byte(userID + "_")

		// Seek past the user's key range, then walk backwards.
		seekKey := append(append([]byte{}, prefix...), 0xff)
		k, v := c.Seek(seekKey)
		if k == nil {
			k, v = c.Last()
		}
		for ; k != nil && len(patterns) < limit; k, v = c.Prev() {
			if !bytes.HasPrefix(k, prefix) {
				continue
			}

			var record SampleRecord
			if err := json.Unmarshal(v, &record); err != nil {
				continue
			}
			patterns = append(patterns, features.HistoricalPattern{
				RawFeatureSet: record.Features,
				Timestamp:     record.Timestamp.Unix(),
			})
		}
		return nil
	})

	return patterns, err
}
