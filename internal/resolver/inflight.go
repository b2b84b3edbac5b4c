package resolver

import "sync"

// inflightSet tracks series with a resolution attempt in progress so a
// scheduled sweep and a manual request never run the chain for the
// same series at the same time.
type inflightSet struct {
	mu     sync.Mutex
	active map[int64]struct{}
}

func newInflightSet() *inflightSet {
	return &inflightSet{
		active: make(map[int64]struct{}),
	}
}

// tryAcquire marks a series as in flight. Returns false when another
// attempt already holds it.
func (s *inflightSet) tryAcquire(seriesID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, held := s.active[seriesID]; held {
		return false
	}
	s.active[seriesID] = struct{}{}
	return true
}

// release clears the in-flight mark for a series.
func (s *inflightSet) release(seriesID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.active, seriesID)
}
