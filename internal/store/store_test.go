package store

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/socialcap/profile-api/internal/domain"
)

func newTestStore(t *testing.T, opts ...Option) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "profiles.json")
	s, err := Open(path, nil, opts...)
	require.NoError(t, err)
	return s, path
}

func TestSaveAndLoad(t *testing.T) {
	s, _ := newTestStore(t)

	saved, err := s.Save(domain.CompanyProfile{
		Name:      "Acme Bakery",
		SourceURL: "https://www.acme-bakery.test/",
		Fields:    domain.Fields{Industry: "Bakery"},
	}, 0)
	require.NoError(t, err)

	assert.Equal(t, "acme-bakery.test", saved.ID)
	assert.Equal(t, 1, saved.Version)
	assert.False(t, saved.CreatedAt.IsZero())
	assert.Equal(t, saved.CreatedAt, saved.UpdatedAt)

	got, err := s.Load(saved.ID)
	require.NoError(t, err)
	assert.Equal(t, saved, got)
}

func TestSaveIncrementsVersionAndKeepsCreatedAt(t *testing.T) {
	now := time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)
	s, _ := newTestStore(t, WithClock(func() time.Time { return now }))

	first, err := s.Save(domain.CompanyProfile{ID: "acme", Name: "Acme"}, 0)
	require.NoError(t, err)

	now = now.Add(time.Hour)
	second, err := s.Save(domain.CompanyProfile{ID: "acme", Name: "Acme v2"}, first.Version)
	require.NoError(t, err)

	assert.Equal(t, 2, second.Version)
	assert.Equal(t, first.CreatedAt, second.CreatedAt)
	assert.True(t, second.UpdatedAt.After(first.UpdatedAt))
	assert.Equal(t, "Acme v2", second.Name)
}

func TestSaveStaleVersionConflict(t *testing.T) {
	s, _ := newTestStore(t)

	base, err := s.Save(domain.CompanyProfile{ID: "acme", Name: "Acme"}, 0)
	require.NoError(t, err)

	winner, err := s.Save(domain.CompanyProfile{ID: "acme", Name: "Winner"}, base.Version)
	require.NoError(t, err)
	require.Equal(t, 2, winner.Version)

	_, err = s.Save(domain.CompanyProfile{ID: "acme", Name: "Loser"}, base.Version)
	require.ErrorIs(t, err, domain.ErrConflict)

	got, err := s.Load("acme")
	require.NoError(t, err)
	assert.Equal(t, "Winner", got.Name)
	assert.Equal(t, 2, got.Version)
}

func TestSaveZeroVersionOverwrites(t *testing.T) {
	s, _ := newTestStore(t)

	_, err := s.Save(domain.CompanyProfile{ID: "acme", Name: "v1"}, 0)
	require.NoError(t, err)
	saved, err := s.Save(domain.CompanyProfile{ID: "acme", Name: "v2"}, 0)
	require.NoError(t, err)

	assert.Equal(t, 2, saved.Version)
	assert.Equal(t, "v2", saved.Name)
}

func TestConcurrentSavesOneWinner(t *testing.T) {
	s, _ := newTestStore(t)

	base, err := s.Save(domain.CompanyProfile{ID: "acme", Name: "base"}, 0)
	require.NoError(t, err)

	const writers = 8
	var wg sync.WaitGroup
	errs := make([]error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = s.Save(domain.CompanyProfile{ID: "acme", Name: "claim"}, base.Version)
		}(i)
	}
	wg.Wait()

	wins := 0
	for _, err := range errs {
		if err == nil {
			wins++
		} else {
			assert.ErrorIs(t, err, domain.ErrConflict)
		}
	}
	assert.Equal(t, 1, wins)

	got, err := s.Load("acme")
	require.NoError(t, err)
	assert.Equal(t, 2, got.Version)
}

func TestListMostRecentlyUpdatedFirst(t *testing.T) {
	now := time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)
	s, _ := newTestStore(t, WithClock(func() time.Time { return now }))

	for _, id := range []string{"alpha", "beta", "gamma"} {
		_, err := s.Save(domain.CompanyProfile{ID: id, Name: id}, 0)
		require.NoError(t, err)
		now = now.Add(time.Minute)
	}

	got, err := s.List()
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "gamma", got[0].ID)
	assert.Equal(t, "beta", got[1].ID)
	assert.Equal(t, "alpha", got[2].ID)
}

func TestDelete(t *testing.T) {
	s, _ := newTestStore(t)

	_, err := s.Save(domain.CompanyProfile{ID: "acme", Name: "Acme"}, 0)
	require.NoError(t, err)

	require.NoError(t, s.Delete("acme"))
	_, err = s.Load("acme")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	assert.ErrorIs(t, s.Delete("acme"), domain.ErrNotFound)
}

func TestLoadMissing(t *testing.T) {
	s, _ := newTestStore(t)
	_, err := s.Load("nope")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestManualProfileGetsGeneratedID(t *testing.T) {
	s, _ := newTestStore(t)

	saved, err := s.Save(domain.CompanyProfile{Name: "Offline Shop"}, 0)
	require.NoError(t, err)
	_, err = uuid.Parse(saved.ID)
	assert.NoError(t, err, "manual entries get a generated id")
}

func TestSaveInvalidSourceURL(t *testing.T) {
	s, _ := newTestStore(t)
	_, err := s.Save(domain.CompanyProfile{Name: "X", SourceURL: "ftp://acme.test"}, 0)
	assert.ErrorIs(t, err, domain.ErrInvalidURL)
}

func TestSnapshotSurvivesReopen(t *testing.T) {
	s, path := newTestStore(t)

	saved, err := s.Save(domain.CompanyProfile{ID: "acme", Name: "Acme"}, 0)
	require.NoError(t, err)

	// The file on disk is one well-formed JSON object.
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var snap map[string]domain.CompanyProfile
	require.NoError(t, json.Unmarshal(data, &snap))
	require.Contains(t, snap, "acme")

	reopened, err := Open(path, nil)
	require.NoError(t, err)
	got, err := reopened.Load("acme")
	require.NoError(t, err)
	assert.Equal(t, saved.Name, got.Name)
	assert.Equal(t, saved.Version, got.Version)
}

func TestCorruptFileStartsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profiles.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	s, err := Open(path, nil)
	require.NoError(t, err)

	got, err := s.List()
	require.NoError(t, err)
	assert.Empty(t, got)

	_, err = s.Save(domain.CompanyProfile{ID: "acme", Name: "Acme"}, 0)
	require.NoError(t, err)
}
