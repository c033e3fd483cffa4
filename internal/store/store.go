// Package store persists company profiles in a single JSON snapshot
// file shared across all sessions.
//
// Every save is a full read-modify-write of the snapshot, serialized
// by a store-scoped mutex; the write lands in a temp file that
// atomically replaces the original, so readers always see a complete,
// valid snapshot and a crash mid-write never leaves a half-written
// file.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/socialcap/profile-api/internal/crawl"
	"github.com/socialcap/profile-api/internal/domain"
)

// Store is the file-backed profile repository. The backing file is the
// single source of truth; the Store exclusively owns the persisted
// representation and callers only ever hold copies.
type Store struct {
	path string
	mu   sync.Mutex // serializes writers
	log  *zap.Logger
	now  func() time.Time // injectable clock for testing
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// Open creates a Store over path. A missing file starts empty; a
// corrupt file is logged and treated as empty rather than failing the
// whole service.
func Open(path string, log *zap.Logger, opts ...Option) (*Store, error) {
	if path == "" {
		return nil, errors.New("store: empty path")
	}
	if log == nil {
		log = zap.NewNop()
	}
	s := &Store{path: path, log: log, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}

	if _, err := s.read(); err != nil {
		return nil, err
	}
	return s, nil
}

// Save creates or updates a profile and returns the stored copy with
// its new version. expectedVersion guards against lost updates: a
// non-zero value that does not match the current stored version is
// rejected with ErrConflict. Zero skips the check (last-write-wins).
func (s *Store) Save(p domain.CompanyProfile, expectedVersion int) (domain.CompanyProfile, error) {
	id, err := resolveID(p)
	if err != nil {
		return domain.CompanyProfile{}, err
	}
	p.ID = id

	s.mu.Lock()
	defer s.mu.Unlock()

	snap, err := s.read()
	if err != nil {
		return domain.CompanyProfile{}, err
	}

	now := s.now().UTC()
	if existing, ok := snap[id]; ok {
		if expectedVersion != 0 && expectedVersion != existing.Version {
			return domain.CompanyProfile{}, fmt.Errorf(
				"store: save %s: expected version %d, have %d: %w",
				id, expectedVersion, existing.Version, domain.ErrConflict)
		}
		p.CreatedAt = existing.CreatedAt
		p.Version = existing.Version + 1
	} else {
		p.CreatedAt = now
		p.Version = 1
	}
	p.UpdatedAt = now
	if p.UpdatedAt.Before(p.CreatedAt) {
		p.UpdatedAt = p.CreatedAt
	}

	snap[id] = p
	if err := s.write(snap); err != nil {
		return domain.CompanyProfile{}, err
	}
	s.log.Info("profile saved", zap.String("id", id), zap.Int("version", p.Version))
	return p, nil
}

// Load returns the profile for id, or ErrNotFound.
func (s *Store) Load(id string) (domain.CompanyProfile, error) {
	snap, err := s.read()
	if err != nil {
		return domain.CompanyProfile{}, err
	}
	p, ok := snap[id]
	if !ok {
		return domain.CompanyProfile{}, fmt.Errorf("store: load %s: %w", id, domain.ErrNotFound)
	}
	return p, nil
}

// List returns all profiles, most recently updated first.
func (s *Store) List() ([]domain.CompanyProfile, error) {
	snap, err := s.read()
	if err != nil {
		return nil, err
	}
	out := make([]domain.CompanyProfile, 0, len(snap))
	for _, p := range snap {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].UpdatedAt.After(out[j].UpdatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// Delete removes a profile. Deletion is always an explicit caller
// action; nothing in the pipeline deletes automatically.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap, err := s.read()
	if err != nil {
		return err
	}
	if _, ok := snap[id]; !ok {
		return fmt.Errorf("store: delete %s: %w", id, domain.ErrNotFound)
	}
	delete(snap, id)
	if err := s.write(snap); err != nil {
		return err
	}
	s.log.Info("profile deleted", zap.String("id", id))
	return nil
}

// resolveID picks the stable key: an explicit id wins, then the
// normalized source domain, then a fresh uuid for manual entries.
func resolveID(p domain.CompanyProfile) (string, error) {
	if p.ID != "" {
		return p.ID, nil
	}
	if p.SourceURL != "" {
		id, err := crawl.NormalizeDomain(p.SourceURL)
		if err != nil {
			return "", fmt.Errorf("store: %w", err)
		}
		return id, nil
	}
	return uuid.New().String(), nil
}

// ─── Snapshot I/O ─────────────────────────────────────────────────────────────

type snapshot map[string]domain.CompanyProfile

func (s *Store) read() (snapshot, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return snapshot{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: read %s: %w", s.path, err)
	}
	if len(data) == 0 {
		return snapshot{}, nil
	}

	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		s.log.Warn("profiles file corrupt, starting empty",
			zap.String("path", s.path), zap.Error(err))
		return snapshot{}, nil
	}
	return snap, nil
}

// write lands the snapshot in a temp file next to the target and
// renames it over the original.
func (s *Store) write(snap snapshot) error {
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("store: marshal: %w", err)
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("store: temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("store: write %s: %w", tmpName, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("store: sync %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("store: close %s: %w", tmpName, err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("store: replace %s: %w", s.path, err)
	}
	return nil
}
