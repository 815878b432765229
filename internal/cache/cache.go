// Package cache provides file-based caching of crunch results, keyed by
// a file's path, size, and modification time so any change to the
// underlying replay invalidates the entry. Adapted from dupedog's
// progressive-hash cache: same self-cleaning BoltDB-swap design, applied
// here to whole []combo.Combo results instead of byte-range hashes.
package cache

import (
	"bytes"
	"encoding/binary"
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/pdeblois/crunch/internal/combo"
)

const bucketName = "combos"

// Cache provides persistent caching of combo-detection results using
// BoltDB. Each run reads from the existing database (if any) and writes
// only the entries it actually used into a fresh one, so stale entries
// for files no longer scanned are dropped automatically.
type Cache struct {
	readDB  *bolt.DB // existing cache (read-only)
	writeDB *bolt.DB // new cache (write) - BoltDB locks this file
	path    string   // final path (for atomic swap)
	enabled bool
}

// Open opens the existing cache at path for reading and creates a new
// one for writing. Returns a disabled cache if path is empty.
func Open(path string) (*Cache, error) {
	if path == "" {
		return &Cache{enabled: false}, nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}

	c := &Cache{path: path, enabled: true}
	var err error

	if _, statErr := os.Stat(path); statErr == nil {
		c.readDB, err = bolt.Open(path, 0o600, &bolt.Options{
			ReadOnly: true,
			Timeout:  1 * time.Second,
		})
		if err != nil {
			c.readDB = nil
		}
	}

	newPath := path + ".new"
	c.writeDB, err = bolt.Open(newPath, 0o600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("create new cache (locked by another instance?): %w", err)
	}

	if err := c.writeDB.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucketName))
		return err
	}); err != nil {
		_ = c.Close()
		return nil, err
	}

	return c, nil
}

// Close closes both databases and atomically replaces the old cache
// file with the new one, but only if the write database closed cleanly.
func (c *Cache) Close() error {
	var errs []error
	if c.readDB != nil {
		if err := c.readDB.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if c.writeDB != nil {
		if err := c.writeDB.Close(); err != nil {
			errs = append(errs, err)
		} else if err := os.Rename(c.path+".new", c.path); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return errs[0]
	}
	return nil
}

const keyVersion byte = 1 // increment when key format changes

// makeKey builds a deterministic key: ver(1) + path + NUL + size(8) +
// mtime(8). Any change to size or mtime invalidates the entry.
func makeKey(path string, size int64, modTime time.Time) []byte {
	buf := new(bytes.Buffer)
	buf.WriteByte(keyVersion)
	buf.WriteString(path)
	buf.WriteByte(0)
	_ = binary.Write(buf, binary.BigEndian, size)
	_ = binary.Write(buf, binary.BigEndian, modTime.UnixNano())
	return buf.Bytes()
}

// Lookup retrieves cached combos for a file, identified by path, size,
// and modTime. On a hit, the entry is copied into the write database
// (self-cleaning). Returns (nil, false, nil) on a clean miss.
func (c *Cache) Lookup(path string, size int64, modTime time.Time) ([]combo.Combo, bool, error) {
	if !c.enabled || c.readDB == nil {
		return nil, false, nil
	}

	key := makeKey(path, size, modTime)
	var data []byte

	err := c.readDB.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketName))
		if b == nil {
			return nil
		}
		if v := b.Get(key); v != nil {
			data = append([]byte(nil), v...)
		}
		return nil
	})
	if err != nil {
		return nil, false, fmt.Errorf("cache lookup: %w", err)
	}
	if data == nil {
		return nil, false, nil
	}

	var combos []combo.Combo
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&combos); err != nil {
		return nil, false, fmt.Errorf("cache decode: %w", err)
	}

	_ = c.Store(path, size, modTime, combos)
	return combos, true, nil
}

// Store saves a file's combo results to the new database.
func (c *Cache) Store(path string, size int64, modTime time.Time, combos []combo.Combo) error {
	if !c.enabled || c.writeDB == nil {
		return nil
	}

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(combos); err != nil {
		return fmt.Errorf("cache encode: %w", err)
	}

	err := c.writeDB.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketName))
		return b.Put(makeKey(path, size, modTime), buf.Bytes())
	})
	if err != nil {
		return fmt.Errorf("cache store: %w", err)
	}
	return nil
}
