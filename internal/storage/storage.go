// Package storage keeps the fitted scaler and classifier in a single BoltDB
// file so a deployment ships one artifact bundle instead of loose documents.
//
// The bundle holds artifact documents and build metadata only. Patient
// submissions are never written here.
package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.etcd.io/bbolt"
)

const (
	artifactsBucket = "artifacts" // scaler and classifier documents
	metaBucket      = "meta"      // bundle build information

	scalerKey     = "scaler"
	classifierKey = "classifier"
	metaKey       = "info"
)

// ErrNotFound means the bundle lacks a bucket or key.
var ErrNotFound = errors.New("not found in bundle")

// Meta describes how a bundle was built.
type Meta struct {
	CreatedAt      time.Time `json:"created_at"`
	FeatureNames   []string  `json:"feature_names"`
	ScalerKind     string    `json:"scaler_kind"`
	ClassifierKind string    `json:"classifier_kind"`
	Source         string    `json:"source,omitempty"`
}

// Store is an artifact bundle backed by BoltDB.
type Store struct {
	db *bbolt.DB
}

// New opens or creates the bundle at path and ensures its buckets exist.
func New(path string) (*Store, error) {
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bundle: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists([]byte(artifactsBucket)); err != nil {
			return fmt.Errorf("create artifacts bucket: %w", err)
		}
		if _, err := tx.CreateBucketIfNotExists([]byte(metaBucket)); err != nil {
			return fmt.Errorf("create meta bucket: %w", err)
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

// OpenReadOnly opens an existing bundle without taking the write lock, so
// several processes can load the same file.
func OpenReadOnly(path string) (*Store, error) {
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: 1 * time.Second, ReadOnly: true})
	if err != nil {
		return nil, fmt.Errorf("failed to open bundle: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database. It is safe to call more than once.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

// PutArtifacts replaces both documents and the metadata in one transaction.
func (s *Store) PutArtifacts(scaler, classifier []byte, meta Meta) error {
	if len(scaler) == 0 || len(classifier) == 0 {
		return errors.New("both artifact documents are required")
	}
	metaJSON, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("marshal meta: %w", err)
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(artifactsBucket))
		if err := b.Put([]byte(scalerKey), scaler); err != nil {
			return fmt.Errorf("put scaler: %w", err)
		}
		if err := b.Put([]byte(classifierKey), classifier); err != nil {
			return fmt.Errorf("put classifier: %w", err)
		}
		return tx.Bucket([]byte(metaBucket)).Put([]byte(metaKey), metaJSON)
	})
}

// Artifacts returns copies of the scaler and classifier documents.
func (s *Store) Artifacts() (scaler, classifier []byte, err error) {
	err = s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(artifactsBucket))
		if b == nil {
			return fmt.Errorf("%s bucket: %w", artifactsBucket, ErrNotFound)
		}
		if scaler, err = get(b, scalerKey); err != nil {
			return err
		}
		classifier, err = get(b, classifierKey)
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	return scaler, classifier, nil
}

func (s *Store) Meta() (Meta, error) {
	var meta Meta
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(metaBucket))
		if b == nil {
			return fmt.Errorf("%s bucket: %w", metaBucket, ErrNotFound)
		}
		data, err := get(b, metaKey)
		if err != nil {
			return err
		}
		return json.Unmarshal(data, &meta)
	})
	return meta, err
}

// get copies the value out; bbolt values are only valid inside the transaction.
func get(b *bbolt.Bucket, key string) ([]byte, error) {
	v := b.Get([]byte(key))
	if v == nil {
		return nil, fmt.Errorf("%s: %w", key, ErrNotFound)
	}
	return append([]byte(nil), v...), nil
}
