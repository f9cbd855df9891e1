package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/desertthunder/anisync/internal/models"
	"github.com/desertthunder/anisync/internal/shared"
)

// ExpiryMargin treats tokens as expired slightly before their literal
// expiry so a request never races against it.
const ExpiryMargin = 5 * time.Minute

// Store persists one [models.TokenRecord] per service to a JSON file.
//
// It holds no network logic and no business logic. Reads and writes are
// serialized so a refresh in progress never races a save from another
// trigger. Writes go to a temp file first and are renamed into place, so a
// crash mid-write never leaves a corrupt record.
type Store struct {
	path string
	mu   sync.Mutex
}

// NewStore creates a token store backed by the file at path.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Path returns the location of the token file.
func (s *Store) Path() string {
	return s.path
}

// Load reads all persisted token records. A missing file is not an error;
// it yields an empty map.
func (s *Store) Load() (map[models.ServiceName]models.TokenRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

func (s *Store) load() (map[models.ServiceName]models.TokenRecord, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return map[models.ServiceName]models.TokenRecord{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read token file: %v", shared.ErrPersistence, err)
	}

	var records map[models.ServiceName]models.TokenRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("%w: failed to parse token file: %v", shared.ErrPersistence, err)
	}
	if records == nil {
		records = map[models.ServiceName]models.TokenRecord{}
	}

	return records, nil
}

// Save atomically persists all token records with restrictive permissions.
func (s *Store) Save(records map[models.ServiceName]models.TokenRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save(records)
}

func (s *Store) save(records map[models.ServiceName]models.TokenRecord) error {
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: failed to marshal tokens: %v", shared.ErrPersistence, err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("%w: failed to create token directory: %v", shared.ErrPersistence, err)
	}

	tmp, err := os.CreateTemp(dir, ".tokens-*.json")
	if err != nil {
		return fmt.Errorf("%w: failed to create temp file: %v", shared.ErrPersistence, err)
	}
	tmpName := tmp.Name()

	if err := tmp.Chmod(0600); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("%w: failed to set token file permissions: %v", shared.ErrPersistence, err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("%w: failed to write tokens: %v", shared.ErrPersistence, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("%w: failed to close temp file: %v", shared.ErrPersistence, err)
	}

	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("%w: failed to replace token file: %v", shared.ErrPersistence, err)
	}

	return nil
}

// Put stores a single service's record, preserving the others.
func (s *Store) Put(service models.ServiceName, record models.TokenRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.load()
	if err != nil {
		return err
	}
	records[service] = record
	return s.save(records)
}

// Get returns the record for one service and whether it exists.
func (s *Store) Get(service models.ServiceName) (models.TokenRecord, bool, error) {
	records, err := s.Load()
	if err != nil {
		return models.TokenRecord{}, false, err
	}
	record, ok := records[service]
	return record, ok, nil
}

// IsExpired reports whether the record is expired at now, applying the
// safety margin.
func (s *Store) IsExpired(record models.TokenRecord, now time.Time) bool {
	return record.Expired(now, ExpiryMargin)
}
