package registry

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/quantforge/fundcore/internal/coreerr"
)

// Store persists the full set of strategy records to a single JSON file.
// The registry file is single-writer: every mutating method takes the
// store's mutex for the duration of the read-modify-write cycle.
type Store struct {
	mu   sync.Mutex
	path string
}

// NewStore opens (without yet reading) the registry file at path.
func NewStore(path string) *Store {
	return &Store{path: path}
}

type fileFormat struct {
	Records map[string]*Record `json:"records"`
}

func (s *Store) load() (*fileFormat, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return &fileFormat{Records: map[string]*Record{}}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("registry: read store file: %w", err)
	}
	var ff fileFormat
	if err := json.Unmarshal(data, &ff); err != nil {
		return nil, fmt.Errorf("registry: parse store file: %w", err)
	}
	if ff.Records == nil {
		ff.Records = map[string]*Record{}
	}
	return &ff, nil
}

func (s *Store) save(ff *fileFormat) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0750); err != nil {
		return fmt.Errorf("registry: create store directory: %w", err)
	}
	data, err := json.MarshalIndent(ff, "", "  ")
	if err != nil {
		return fmt.Errorf("registry: marshal store file: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return fmt.Errorf("registry: write store file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("registry: commit store file: %w", err)
	}
	return nil
}

// Get returns the record for id, or coreerr.ErrNotFound.
func (s *Store) Get(id string) (*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ff, err := s.load()
	if err != nil {
		return nil, err
	}
	rec, ok := ff.Records[id]
	if !ok {
		return nil, coreerr.NewNotFound("registry: record %q", id)
	}
	return rec, nil
}

// List returns every record, in no particular order.
func (s *Store) List() ([]*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ff, err := s.load()
	if err != nil {
		return nil, err
	}
	out := make([]*Record, 0, len(ff.Records))
	for _, rec := range ff.Records {
		out = append(out, rec)
	}
	return out, nil
}

// Put inserts or replaces rec, stamping CreatedAt on first write and
// UpdatedAt on every write.
func (s *Store) Put(rec *Record) error {
	if rec == nil {
		return fmt.Errorf("registry: cannot put nil record")
	}
	if err := rec.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	ff, err := s.load()
	if err != nil {
		return err
	}

	now := time.Now()
	if existing, ok := ff.Records[rec.ID]; ok {
		rec.CreatedAt = existing.CreatedAt
	} else {
		rec.CreatedAt = now
	}
	rec.UpdatedAt = now

	ff.Records[rec.ID] = rec
	if err := s.save(ff); err != nil {
		return err
	}

	log.Info().Str("strategy_id", rec.ID).Str("level", string(rec.Level)).Msg("registry: record saved")
	return nil
}

// SetLevel transitions a record's level, used by the fund manager's
// promotion/demotion/kill checks to persist the outcome.
func (s *Store) SetLevel(id string, level Level) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ff, err := s.load()
	if err != nil {
		return err
	}
	rec, ok := ff.Records[id]
	if !ok {
		return coreerr.NewNotFound("registry: record %q", id)
	}
	rec.Level = level
	rec.UpdatedAt = time.Now()
	if err := s.save(ff); err != nil {
		return err
	}

	log.Info().Str("strategy_id", id).Str("level", string(level)).Msg("registry: level transitioned")
	return nil
}

// Delete removes a record, idempotent if it's already gone.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ff, err := s.load()
	if err != nil {
		return err
	}
	delete(ff.Records, id)
	return s.save(ff)
}
