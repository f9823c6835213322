// Package store persists a board: the latest snapshot of every shape and an
// append-only journal of the actions that produced it.
package store

import (
	"encoding/binary"
	"errors"
	"fmt"
	"log"
	"time"

	"SyncBoard/internal/action"
	"SyncBoard/internal/state"

	bolt "go.etcd.io/bbolt"
)

var (
	shapesBucket  = []byte("shapes")
	journalBucket = []byte("journal")
)

var ErrCorrupt = errors.New("corrupt board store")

type Store struct {
	db *bolt.DB
}

// Open opens (or creates) the board file at path.
func Open(path string) (*Store, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open board store: %w", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{shapesBucket, journalBucket} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return fmt.Errorf("create bucket %s: %w", name, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	log.Printf("[STORE] Opened board store %s", path)
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Append journals a and writes its new state as the shape's snapshot, in one
// transaction.
func (s *Store) Append(a action.Action) error {
	entry, err := action.Encode(a)
	if err != nil {
		return err
	}
	snap, err := action.EncodeState(a.NewState)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		j := tx.Bucket(journalBucket)
		seq, err := j.NextSequence()
		if err != nil {
			return err
		}
		if err := j.Put(seqKey(seq), entry); err != nil {
			return err
		}
		return tx.Bucket(shapesBucket).Put([]byte(a.ShapeID), snap)
	})
}

// SaveSnapshot replaces the stored snapshot with shapes. The journal is kept.
func (s *Store) SaveSnapshot(shapes map[state.ShapeID]*state.ShapeState) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		if err := tx.DeleteBucket(shapesBucket); err != nil && !errors.Is(err, bolt.ErrBucketNotFound) {
			return err
		}
		b, err := tx.CreateBucket(shapesBucket)
		if err != nil {
			return err
		}
		for id, st := range shapes {
			data, err := action.EncodeState(st)
			if err != nil {
				return fmt.Errorf("encode %s: %w", id, err)
			}
			if err := b.Put([]byte(id), data); err != nil {
				return err
			}
		}
		return nil
	})
}

// LoadSnapshot returns every stored shape state.
func (s *Store) LoadSnapshot() (map[state.ShapeID]*state.ShapeState, error) {
	out := make(map[state.ShapeID]*state.ShapeState)
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(shapesBucket).ForEach(func(k, v []byte) error {
			st, err := action.DecodeState(v)
			if err != nil {
				return fmt.Errorf("%w: shape %s: %v", ErrCorrupt, k, err)
			}
			out[state.ShapeID(k)] = st
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Journal returns the encoded actions in the order they were applied.
func (s *Store) Journal() ([][]byte, error) {
	var out [][]byte
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(journalBucket).ForEach(func(_, v []byte) error {
			out = append(out, append([]byte(nil), v...))
			return nil
		})
	})
	return out, err
}

func seqKey(seq uint64) []byte {
	k := make([]byte, 8)
	binary.BigEndian.PutUint64(k, seq)
	return k
}
