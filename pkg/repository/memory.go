package repository

import (
	"context"
	"sync"
	"time"

	"github.com/m-mizutani/conceptstudio/pkg/model"
	"github.com/m-mizutani/goerr/v2"
)

// Memory keeps results in process memory for the lifetime of the session
type Memory struct {
	mu      sync.RWMutex
	results []*model.Result
	now     func() time.Time
}

// MemoryOption is a functional option for Memory
type MemoryOption func(*Memory)

// WithClock replaces the clock used to stamp appended results
func WithClock(now func() time.Time) MemoryOption {
	return func(m *Memory) {
		m.now = now
	}
}

// NewMemory creates an empty in-memory result store
func NewMemory(opts ...MemoryOption) *Memory {
	m := &Memory{now: time.Now}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Append stores a copy of result at the head. A zero ID or CreatedAt is
// assigned here; CreatedAt never goes backwards relative to the newest result.
func (m *Memory) Append(ctx context.Context, result *model.Result) error {
	if result == nil {
		return goerr.New("result is nil")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	r := *result
	if r.ID == "" {
		r.ID = model.NewResultID()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = m.now()
	}
	if len(m.results) > 0 && r.CreatedAt.Before(m.results[0].CreatedAt) {
		r.CreatedAt = m.results[0].CreatedAt
	}
	*result = r

	// Rebuild rather than shift in place so earlier snapshots stay intact
	next := make([]*model.Result, 0, len(m.results)+1)
	next = append(next, &r)
	next = append(next, m.results...)
	m.results = next

	return nil
}

func (m *Memory) Get(ctx context.Context, id model.ResultID) (*model.Result, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, r := range m.results {
		if r.ID == id {
			copied := *r
			return &copied, nil
		}
	}
	return nil, goerr.Wrap(ErrNotFound, "result not found", goerr.V("result_id", id))
}

func (m *Memory) List(ctx context.Context) ([]*model.Result, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	list := make([]*model.Result, len(m.results))
	for i, r := range m.results {
		copied := *r
		list[i] = &copied
	}
	return list, nil
}

func (m *Memory) Clear(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.results = nil
	return nil
}

// MemoryPreference is a PreferenceStore that forgets everything on exit
type MemoryPreference struct {
	mu   sync.RWMutex
	pref *model.Preference
}

func NewMemoryPreference() *MemoryPreference {
	return &MemoryPreference{}
}

func (m *MemoryPreference) GetPreference(ctx context.Context) (*model.Preference, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.pref == nil {
		return nil, nil
	}
	copied := *m.pref
	return &copied, nil
}

func (m *MemoryPreference) PutPreference(ctx context.Context, pref *model.Preference) error {
	if pref == nil {
		return goerr.New("preference is nil")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	copied := *pref
	m.pref = &copied
	return nil
}
