// Package storage provides persistent storage for the yield prediction
// service. It uses BoltDB to keep an audit log of served predictions and
// the history of training runs.
//
// Records are keyed "<partition>_<unix nanos>" with the timestamp padded to
// a fixed width, so byte order matches time order and a cursor seek gives
// efficient time-range queries per crop or per model library.
package storage

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"agri-yield/internal/ml"

	"go.etcd.io/bbolt"
)

const (
	predictionsBucket  = "predictions"   // Bucket name for the prediction audit log
	trainingRunsBucket = "training_runs" // Bucket name for training run reports

	// DBFile is the database file created inside the data path.
	DBFile = "agri-yield.db"
)

// Store provides persistent storage using BoltDB. It is safe for
// concurrent use.
type Store struct {
	db *bbolt.DB // BoltDB database instance
}

// New creates a new storage instance in the directory dataPath.
// It initializes the BoltDB database and creates necessary buckets.
func New(dataPath string) (*Store, error) {
	dbPath := filepath.Join(dataPath, DBFile)

	db, err := bbolt.Open(dbPath, 0o600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Create buckets
	err = db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists([]byte(predictionsBucket)); err != nil {
			return fmt.Errorf("create predictions bucket: %w", err)
		}
		if _, err := tx.CreateBucketIfNotExists([]byte(trainingRunsBucket)); err != nil {
			return fmt.Errorf("create training runs bucket: %w", err)
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

// RecordPrediction appends a served prediction to the audit log.
func (s *Store) RecordPrediction(event ml.PredictionEvent) error {
	return s.put(predictionsBucket, cropKey(event.Record.Crop), event.Timestamp, event)
}

// GetPredictions returns the predictions for crop within [start, end],
// ordered by time.
func (s *Store) GetPredictions(crop string, start, end time.Time) ([]ml.PredictionEvent, error) {
	return getRecordsInRange[ml.PredictionEvent](s, predictionsBucket, cropKey(crop), start, end)
}

// RecentPredictions returns up to limit of the newest predictions across
// all crops, newest first.
func (s *Store) RecentPredictions(limit int) ([]ml.PredictionEvent, error) {
	events, err := getAll[ml.PredictionEvent](s, predictionsBucket)
	if err != nil {
		return nil, err
	}
	sort.Slice(events, func(i, j int) bool {
		return events[i].Timestamp.After(events[j].Timestamp)
	})
	if limit > 0 && len(events) > limit {
		events = events[:limit]
	}
	return events, nil
}

func (s *Store) put(bucketName, partition string, ts time.Time, v any) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(bucketName))

		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("marshal %s record: %w", bucketName, err)
		}

		return b.Put(recordKey(partition, ts), data)
	})
}

// getRecordsInRange retrieves the records of one partition within a time
// range, inclusive at both ends.
func getRecordsInRange[T any](s *Store, bucketName, partition string, start, end time.Time) ([]T, error) {
	var records []T

	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(bucketName))
		c := b.Cursor()

		prefix := []byte(partition + "_")
		startKey := recordKey(partition, start)
		endKey := recordKey(partition, end)

		for k, v := c.Seek(startKey); k != nil && bytes.Compare(k, endKey) <= 0; k, v = c.Next() {
			if !bytes.HasPrefix(k, prefix) {
				continue
			}

			var record T
			if err := json.Unmarshal(v, &record); err != nil {
				continue // Skip malformed records
			}
			records = append(records, record)
		}

		return nil
	})

	return records, err
}

func getAll[T any](s *Store, bucketName string) ([]T, error) {
	var records []T

	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(bucketName)).ForEach(func(_, v []byte) error {
			var record T
			if err := json.Unmarshal(v, &record); err != nil {
				return nil // Skip malformed records
			}
			records = append(records, record)
			return nil
		})
	})

	return records, err
}

var (
	minKeyTime = time.Unix(0, 0)
	maxKeyTime = time.Unix(0, math.MaxInt64)
)

// recordKey builds "<partition>_<unix nanos>" with the nanos zero-padded to
// 20 digits. Times before the epoch map to 0 and times past the int64
// nanosecond range map to the maximum.
func recordKey(partition string, ts time.Time) []byte {
	var nanos int64
	switch {
	case ts.Before(minKeyTime):
		nanos = 0
	case ts.After(maxKeyTime):
		nanos = math.MaxInt64
	default:
		nanos = ts.UnixNano()
	}
	return []byte(fmt.Sprintf("%s_%020d", partition, nanos))
}

func cropKey(crop string) string {
	return strings.ToLower(strings.TrimSpace(crop))
}
