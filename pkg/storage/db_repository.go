package storage

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	bolt "go.etcd.io/bbolt"

	"mediasort/pkg/imports"
)

// DbCatalogStorage records completed moves so earlier runs can be reviewed.
// It is history only; destinations are never derived from it.
type DbCatalogStorage struct {
	dbClient *bolt.DB
}

const moveKeyPrefix = "move:"
const runKeyPrefix = "run:"

// keyTimeLayout sorts lexicographically in time order.
const keyTimeLayout = "20060102T150405.000000000Z"

var moveBucket = []byte("moves")
var runBucket = []byte("runs")

// CatalogFile is the catalog location relative to the output directory.
var CatalogFile = filepath.Join(StateDir, "catalog.db")

func getBucket(bucketname []byte, tx *bolt.Tx) (*bolt.Bucket, error) {
	bucket := tx.Bucket(bucketname)
	if bucket != nil {
		return bucket, nil
	}
	if !tx.Writable() {
		return nil, nil
	}
	return tx.CreateBucket(bucketname)
}

// NewCatalogDbStorage opens (creating if needed) the catalog at dbPath.
func NewCatalogDbStorage(dbPath string) (*DbCatalogStorage, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, err
	}
	dbClient, err := bolt.Open(dbPath, 0o600, &bolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open catalog %s: %w", dbPath, err)
	}

	s := DbCatalogStorage{
		dbClient: dbClient,
	}
	err = s.dbClient.Update(func(txn *bolt.Tx) error {
		for _, name := range [][]byte{moveBucket, runBucket} {
			if _, err := getBucket(name, txn); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		_ = dbClient.Close()
		return nil, err
	}
	return &s, nil
}

// CloseDb closes link to db
func (s *DbCatalogStorage) CloseDb() error {
	return s.dbClient.Close()
}

// AddMove stores a completed move and returns its key.
func (s *DbCatalogStorage) AddMove(rec *imports.MoveRecord) (string, error) {
	key := moveKeyPrefix + rec.RunID + ":" + rec.MovedAt.UTC().Format(keyTimeLayout) + ":" + rec.Destination
	err := s.dbClient.Update(func(txn *bolt.Tx) error {
		bucket, err := getBucket(moveBucket, txn)
		if err != nil {
			return err
		}
		m := &DbMove{
			Key:         key,
			RunID:       rec.RunID,
			Source:      rec.Source,
			Destination: rec.Destination,
			Taken:       rec.Taken,
			TakenSource: rec.TakenSource,
			Camera:      rec.Camera,
			MovedAt:     rec.MovedAt,
		}
		d, err := marshal(m)
		if err != nil {
			return err
		}
		return bucket.Put([]byte(key), d)
	})
	if err != nil {
		return "", err
	}
	return key, nil
}

// SaveRun stores or replaces the summary of a run.
func (s *DbCatalogStorage) SaveRun(run *imports.RunRecord) error {
	key := runKeyPrefix + run.ID
	return s.dbClient.Update(func(txn *bolt.Tx) error {
		bucket, err := getBucket(runBucket, txn)
		if err != nil {
			return err
		}
		r := &DbRun{
			Key:        key,
			ID:         run.ID,
			SourceDir:  run.SourceDir,
			OutputDir:  run.OutputDir,
			DryRun:     run.DryRun,
			StartedAt:  run.StartedAt,
			FinishedAt: run.FinishedAt,
			Moved:      run.Moved,
			Duplicates: run.Duplicates,
			Failed:     run.Failed,
		}
		d, err := marshal(r)
		if err != nil {
			return err
		}
		return bucket.Put([]byte(key), d)
	})
}

// GetAllRuns returns every recorded run, newest first.
func (s *DbCatalogStorage) GetAllRuns() ([]*imports.RunRecord, error) {
	var runs []*imports.RunRecord
	err := s.dbClient.View(func(txn *bolt.Tx) error {
		bucket, err := getBucket(runBucket, txn)
		if err != nil || bucket == nil {
			return err
		}
		return bucket.ForEach(func(k, v []byte) error {
			r := DbRun{}
			if err := unmarshal(v, &r); err != nil {
				return fmt.Errorf("decode %s: %w", k, err)
			}
			runs = append(runs, &imports.RunRecord{
				ID:         r.ID,
				SourceDir:  r.SourceDir,
				OutputDir:  r.OutputDir,
				DryRun:     r.DryRun,
				StartedAt:  r.StartedAt,
				FinishedAt: r.FinishedAt,
				Moved:      r.Moved,
				Duplicates: r.Duplicates,
				Failed:     r.Failed,
			})
			return nil
		})
	})
	sort.Slice(runs, func(i, j int) bool { return runs[i].StartedAt.After(runs[j].StartedAt) })
	return runs, err
}

// GetMovesByRun returns the moves of one run in the order they happened.
// runID may be a unique prefix of the full id.
func (s *DbCatalogStorage) GetMovesByRun(runID string) ([]*imports.MoveRecord, error) {
	var moves []*imports.MoveRecord
	err := s.dbClient.View(func(txn *bolt.Tx) error {
		bucket, err := getBucket(moveBucket, txn)
		if err != nil || bucket == nil {
			return err
		}
		prefix := []byte(moveKeyPrefix + runID)
		c := bucket.Cursor()
		for k, v := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, v = c.Next() {
			m := DbMove{}
			if err := unmarshal(v, &m); err != nil {
				return fmt.Errorf("decode %s: %w", k, err)
			}
			moves = append(moves, &imports.MoveRecord{
				RunID:       m.RunID,
				Source:      m.Source,
				Destination: m.Destination,
				Taken:       m.Taken,
				TakenSource: m.TakenSource,
				Camera:      m.Camera,
				MovedAt:     m.MovedAt,
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if ids := distinctRuns(moves); len(ids) > 1 {
		return nil, fmt.Errorf("run id %q is ambiguous: matches %s", runID, strings.Join(ids, ", "))
	}
	sort.SliceStable(moves, func(i, j int) bool { return moves[i].MovedAt.Before(moves[j].MovedAt) })
	return moves, nil
}

func distinctRuns(moves []*imports.MoveRecord) []string {
	seen := map[string]struct{}{}
	var ids []string
	for _, m := range moves {
		if _, ok := seen[m.RunID]; !ok {
			seen[m.RunID] = struct{}{}
			ids = append(ids, m.RunID)
		}
	}
	return ids
}

func marshal(v any) ([]byte, error) {
	var b bytes.Buffer
	enc := gob.NewEncoder(&b)
	err := enc.Encode(v)
	return b.Bytes(), err
}

func unmarshal(d []byte, v any) error {
	dec := gob.NewDecoder(bytes.NewBuffer(d))
	return dec.Decode(v)
}
