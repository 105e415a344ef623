// Package storage provides optional persistent storage for the behavioral
// scoring service. It uses BoltDB to keep an audit trail of served
// predictions and the observed telemetry samples per user.
//
// The package provides thread-safe operations for storing and retrieving
// time-series data with efficient range queries and automatic bucket management.
package storage

import (
	"bytes"
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	"go.etcd.io/bbolt"
)

const (
	auditBucket = "predictions" // Bucket name for served prediction records
)

// AuditRecord is one served prediction, persisted for later review.
type AuditRecord struct {
	UserID       string    `json:"user_id"`
	RequestID    string    `json:"request_id"`
	Timestamp    time.Time `json:"timestamp"`
	Confidence   int       `json:"confidence_score"`
	AnomalyScore float64   `json:"anomaly_score"`
	ModelVersion string    `json:"model_version"`
	LatencyMs    float64   `json:"latency_ms"`
}

// Store provides persistent storage backed by BoltDB. It manages separate
// buckets for audit records and observed samples and supports time-range
// queries keyed by user.
type Store struct {
	db *bbolt.DB
}

// New creates a storage instance under the specified data path.
// It initializes the BoltDB database and creates necessary buckets.
// Returns an error if the database cannot be opened or buckets cannot be created.
func New(dataPath string) (*Store, error) {
	dbPath := filepath.Join(dataPath, "behavioral-auth.db")

	db, err := bbolt.Open(dbPath, 0o600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists([]byte(auditBucket)); err != nil {
			return fmt.Errorf("create predictions bucket: %w", err)
		}
		if _, err := tx.CreateBucketIfNotExists([]byte(samplesBucket)); err != nil {
			return fmt.Errorf("create samples bucket: %w", err)
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

// Close closes the database connection gracefully.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// StoreAudit stores one served prediction in the audit bucket. The key format
// "userID_timestamp" keeps per-user records contiguous for range scans.
func (s *Store) StoreAudit(record AuditRecord) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(auditBucket))

		data, err := json.Marshal(record)
		if err != nil {
			return fmt.Errorf("marshal audit record: %w", err)
		}

		key := fmt.Sprintf("%s_%d", record.UserID, record.Timestamp.UnixNano())
		return b.Put([]byte(key), data)
	})
}

// GetAudits retrieves the audit records for a user within a time range,
// ordered by timestamp. The range is inclusive of both start and end.
func (s *Store) GetAudits(userID string, start, end time.Time) ([]AuditRecord, error) {
	var records []AuditRecord

	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(auditBucket))
		c := b.Cursor()

		prefix := []byte(userID + "_")
		startKey := []byte(fmt.Sprintf("%s_%d", userID, start.UnixNano()))
		endKey := []byte(fmt.Sprintf("%s_%d", userID, end.UnixNano()))

		for k, v := c.Seek(startKey); k != nil && bytes.Compare(k, endKey) <= 0; k, v = c.Next() {
			if !bytes.HasPrefix(k, prefix) {
				continue
			}

			var record AuditRecord
			if err := json.Unmarshal(v, &record); err != nil {
				continue // Skip malformed records
			}
			records = append(records, record)
		}

		return nil
	})

	return records, err
}
