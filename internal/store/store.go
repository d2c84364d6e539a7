// Package store keeps scan results on disk so the viewer can start from the
// last tree without rescanning.
package store

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/cespare/xxhash/v2"
	bolt "go.etcd.io/bbolt"
	"go.uber.org/zap"

	"graphfs/internal/platform"
	"graphfs/internal/tree"
)

var (
	scansBucket = []byte("scans")
	metaBucket  = []byte("meta")
	lastKey     = []byte("last")
)

// ErrNotFound is returned when no scan is stored for the requested root.
var ErrNotFound = errors.New("store: scan not found")

// Snapshot is one persisted scan.
type Snapshot struct {
	Root       string        `json:"root"`
	Engine     string        `json:"engine"`
	ScannedAt  time.Time     `json:"scannedAt"`
	TotalFiles int           `json:"totalFiles"`
	TotalDirs  int           `json:"totalDirs"`
	Tree       *tree.RawNode `json:"tree"`
}

// Entry lists a stored scan without its tree.
type Entry struct {
	Root      string    `json:"root"`
	ScannedAt time.Time `json:"scannedAt"`
}

type Store struct {
	db  *bolt.DB
	log *zap.Logger
}

// DefaultPath is graphfs.db in the user's config directory.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	dir = filepath.Join(dir, "graphfs")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	return filepath.Join(dir, "graphfs.db"), nil
}

// Open opens or creates the database at path.
func Open(path string, log *zap.Logger) (*Store, error) {
	if log == nil {
		log = zap.NewNop()
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open store %s: %w", path, err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		for _, b := range [][]byte{scansBucket, metaBucket} {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create buckets: %w", err)
	}
	log.Debug("store opened", zap.String("path", path))
	return &Store{db: db, log: log}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// key hashes the OS-folded root so C:\Users and c:\users share a slot on
// case-insensitive systems.
func key(root string) []byte {
	var k [8]byte
	binary.BigEndian.PutUint64(k[:], xxhash.Sum64String(platform.Impl.PathKey(filepath.Clean(root))))
	return k[:]
}

// SaveLastScan stores snap under its root and marks it as the last scan.
func (s *Store) SaveLastScan(snap *Snapshot) error {
	if snap == nil || snap.Tree == nil {
		return errors.New("store: empty snapshot")
	}
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	k := key(snap.Root)
	err = s.db.Update(func(tx *bolt.Tx) error {
		if err := tx.Bucket(scansBucket).Put(k, data); err != nil {
			return err
		}
		return tx.Bucket(metaBucket).Put(lastKey, k)
	})
	if err != nil {
		return fmt.Errorf("save scan %s: %w", snap.Root, err)
	}
	s.log.Info("scan saved", zap.String("root", snap.Root), zap.Int("bytes", len(data)))
	return nil
}

// LoadLastScan returns the most recently saved scan.
func (s *Store) LoadLastScan() (*Snapshot, error) {
	var snap *Snapshot
	err := s.db.View(func(tx *bolt.Tx) error {
		k := tx.Bucket(metaBucket).Get(lastKey)
		if k == nil {
			return ErrNotFound
		}
		var err error
		snap, err = decode(tx.Bucket(scansBucket).Get(k))
		return err
	})
	return snap, err
}

// LoadScan returns the scan saved for root.
func (s *Store) LoadScan(root string) (*Snapshot, error) {
	var snap *Snapshot
	err := s.db.View(func(tx *bolt.Tx) error {
		var err error
		snap, err = decode(tx.Bucket(scansBucket).Get(key(root)))
		return err
	})
	return snap, err
}

// Delete removes the scan saved for root. Deleting the last scan clears the
// last-scan mark.
func (s *Store) Delete(root string) error {
	k := key(root)
	return s.db.Update(func(tx *bolt.Tx) error {
		if err := tx.Bucket(scansBucket).Delete(k); err != nil {
			return err
		}
		meta := tx.Bucket(metaBucket)
		if last := meta.Get(lastKey); last != nil && string(last) == string(k) {
			return meta.Delete(lastKey)
		}
		return nil
	})
}

// List returns the stored roots, newest scan first.
func (s *Store) List() ([]Entry, error) {
	var out []Entry
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(scansBucket).ForEach(func(k, v []byte) error {
			var e Entry
			if err := json.Unmarshal(v, &e); err != nil {
				s.log.Warn("unreadable scan entry skipped", zap.Binary("key", k), zap.Error(err))
				return nil
			}
			out = append(out, e)
			return nil
		})
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ScannedAt.After(out[j].ScannedAt) })
	return out, err
}

func decode(data []byte) (*Snapshot, error) {
	if data == nil {
		return nil, ErrNotFound
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	if snap.Tree == nil {
		return nil, ErrNotFound
	}
	return &snap, nil
}
