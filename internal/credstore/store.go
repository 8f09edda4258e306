package credstore

import (
	"sync"

	"go.uber.org/zap"

	"github.com/muurk/wifiprov/internal/logging"
)

// Store persists exactly one Credentials pair in a Region.
type Store struct {
	region Region
	mu     sync.RWMutex
}

// New creates a store over region.
func New(region Region) *Store {
	return &Store{region: region}
}

// Load returns the persisted pair, or the empty pair for a virgin or erased
// region. Read faults are logged and also yield the empty pair.
func (s *Store) Load() Credentials {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := s.region.ReadRegion()
	if err != nil {
		logging.Warn("Credential store read failed, treating as empty", zap.Error(err))
		return Credentials{}
	}

	return Decode(data)
}

// Save writes both fields as one region image. Concurrent Load calls observe
// either the previous pair or the new one.
func (s *Store) Save(c Credentials) error {
	data, err := Encode(c)
	if err != nil {
		return &StoreError{Op: "save", Err: err}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.region.WriteRegion(data); err != nil {
		return writeFailed("save", err)
	}

	logging.Debug("Credentials persisted", zap.String("network", c.Name))
	return nil
}

// Clear overwrites the whole region with zero bytes. It is an explicit
// maintenance action and is never triggered by provisioning itself.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.region.WriteRegion(make([]byte, s.region.Size())); err != nil {
		return writeFailed("clear", err)
	}

	logging.Info("Credential store cleared")
	return nil
}
