package state

import (
	"fmt"
	"sync"
	"time"

	"github.com/five82/marina/internal/records"
)

// Snapshot represents the latest accepted result set.
type Snapshot struct {
	Result              records.ResultSet
	HasResult           bool
	Generation          uint64 // generation of the accepted result
	LastUpdated         time.Time
	ConsecutiveFailures int // Number of consecutive failed fetches
}

// IsOffline returns true when the record service has failed several fetches
// in a row.
func (s Snapshot) IsOffline() bool {
	return s.ConsecutiveFailures >= 2
}

// Store coordinates concurrent fetches writing the current result set. Each
// fetch is issued a generation; only the newest issued generation may
// replace the stored result.
type Store struct {
	mu       sync.RWMutex
	issued   uint64
	snapshot Snapshot
}

// Issue reserves the next generation. Any result tagged with an older
// generation is stale from now on.
func (s *Store) Issue() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.issued++
	return s.issued
}

// Latest returns the newest issued generation.
func (s *Store) Latest() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.issued
}

// Update replaces the stored result when gen is the newest issued
// generation and reports whether it did. A failed result drops the previous
// records: the store never holds records and an error at once.
func (s *Store) Update(gen uint64, rs records.ResultSet) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if gen != s.issued {
		return false
	}

	if rs.Err != nil {
		rs.Records = nil
		s.snapshot.ConsecutiveFailures++
	} else {
		if rs.Records == nil {
			rs.Records = []records.Record{}
		}
		s.snapshot.ConsecutiveFailures = 0
	}
	s.snapshot.Result = rs.Clone()
	s.snapshot.HasResult = true
	s.snapshot.Generation = gen
	s.snapshot.LastUpdated = time.Now()
	return true
}

// Snapshot returns a copy of the current snapshot.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := s.snapshot
	snap.Result = s.snapshot.Result.Clone()
	if s.snapshot.Result.Err != nil {
		snap.Result.Err = fmt.Errorf("%w", s.snapshot.Result.Err)
	}
	return snap
}
