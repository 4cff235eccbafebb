// Package store persists install cache entries across runs. Entries are
// JSON documents in a pogreb database keyed by asset id; pogreb's
// write-ahead log keeps every put atomic, so a crash mid-write reverts
// to the prior entry instead of a torn one.
package store

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/akrylysov/pogreb"
	pogrebfs "github.com/akrylysov/pogreb/fs"
	"github.com/go-git/go-billy/v5"
)

// Entry records one installed asset.
type Entry struct {
	AssetID     string              `json:"asset_id"`
	Fingerprint string              `json:"fingerprint"`
	Files       []string            `json:"files"`
	Sums        map[string][]string `json:"sums,omitempty"`
	LastChecked int64               `json:"last_checked"`
}

// CheckFiles reports whether every recorded file still exists under the
// server root. A missing file makes the entry stale.
func (e *Entry) CheckFiles(fs billy.Filesystem) bool {
	for _, f := range e.Files {
		if _, err := fs.Stat(f); err != nil {
			return false
		}
	}
	return true
}

// Store is the on-disk cache of install entries.
type Store struct {
	db *pogreb.DB
}

// Open opens (or creates) the cache database at path.
func Open(path string) (*Store, error) {
	db, err := pogreb.Open(path, nil)
	if err != nil {
		return nil, fmt.Errorf("open cache db %q: %w", path, err)
	}
	return &Store{db: db}, nil
}

// OpenMem opens an in-memory store, used by tests and dry runs that
// must not touch the real cache.
func OpenMem() (*Store, error) {
	db, err := pogreb.Open(".", &pogreb.Options{FileSystem: pogrebfs.Mem})
	if err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

// Get returns the entry for id, or nil if the asset was never
// installed.
func (s *Store) Get(id string) (*Entry, error) {
	raw, err := s.db.Get([]byte(id))
	if err != nil {
		return nil, fmt.Errorf("cache get %q: %w", id, err)
	}
	if raw == nil {
		return nil, nil
	}
	var e Entry
	if err := json.Unmarshal(raw, &e); err != nil {
		return nil, fmt.Errorf("cache entry %q: %w", id, err)
	}
	return &e, nil
}

// Put replaces the entry for e.AssetID. LastChecked is in Unix
// seconds, filled in when the caller left it zero.
func (s *Store) Put(e *Entry) error {
	if e.LastChecked == 0 {
		e.LastChecked = time.Now().Unix()
	}
	raw, err := json.Marshal(e)
	if err != nil {
		return err
	}
	if err := s.db.Put([]byte(e.AssetID), raw); err != nil {
		return fmt.Errorf("cache put %q: %w", e.AssetID, err)
	}
	return s.db.Sync()
}

// Delete drops the entry for id, if any.
func (s *Store) Delete(id string) error {
	return s.db.Delete([]byte(id))
}

func (s *Store) Close() error {
	return s.db.Close()
}
