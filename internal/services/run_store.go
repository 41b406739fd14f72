package services

import (
	"sync"
	"time"

	"segmentcli/pkg/contracts/domain"
)

// DefaultRunCapacity bounds the number of runs kept in memory
const DefaultRunCapacity = 100

// RunRecord is a finished segmentation run held for the API
type RunRecord struct {
	ID         string               `json:"id"`
	SourceName string               `json:"source_name"`
	Report     domain.SegmentReport `json:"report"`
	Download   domain.ExportTable   `json:"-"`
	OutputDir  string               `json:"output_dir,omitempty"`
	Files      []string             `json:"files,omitempty"`
	StoredID   string               `json:"stored_id,omitempty"`
	Published  bool                 `json:"published"`
	CreatedAt  time.Time            `json:"created_at"`
}

// RunStore keeps the most recent runs in memory. The oldest run is evicted
// once capacity is reached.
type RunStore struct {
	mu       sync.RWMutex
	runs     map[string]*RunRecord
	order    []string
	capacity int
}

// NewRunStore creates a store holding at most capacity runs
func NewRunStore(capacity int) *RunStore {
	if capacity <= 0 {
		capacity = DefaultRunCapacity
	}
	return &RunStore{
		runs:     make(map[string]*RunRecord),
		capacity: capacity,
	}
}

// Put stores rec, replacing any run with the same id
func (s *RunStore) Put(rec *RunRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.runs[rec.ID]; ok {
		s.runs[rec.ID] = rec
		return
	}

	for len(s.order) >= s.capacity {
		delete(s.runs, s.order[0])
		s.order = s.order[1:]
	}
	s.runs[rec.ID] = rec
	s.order = append(s.order, rec.ID)
}

// Get returns the run with the given id
func (s *RunStore) Get(id string) (*RunRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.runs[id]
	if !ok {
		return nil, ErrRunNotFound
	}
	return rec, nil
}

// List returns the stored runs, newest first
func (s *RunStore) List() []*RunRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*RunRecord, 0, len(s.order))
	for i := len(s.order) - 1; i >= 0; i-- {
		out = append(out, s.runs[s.order[i]])
	}
	return out
}

// Len returns the number of stored runs
func (s *RunStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}
