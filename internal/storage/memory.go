package storage

import (
	"context"
	"fmt"
	"sync"

	"github.com/JD-Gaming/jd-gaming/internal/model"
)

type MemoryStore struct {
	mu          sync.RWMutex
	initialized bool
	runs        map[string]model.Run
	networks    map[string]map[networkKey]model.NetworkRecord
	diagnostics map[string][]model.GenerationDiagnostics
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Init(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.initialized = true
	s.runs = make(map[string]model.Run)
	s.networks = make(map[string]map[networkKey]model.NetworkRecord)
	s.diagnostics = make(map[string][]model.GenerationDiagnostics)
	return nil
}

func (s *MemoryStore) SaveRun(_ context.Context, run model.Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.initialized {
		return ErrNotInitialized
	}
	if run.ID == "" {
		return fmt.Errorf("save run: %w", ErrRunID)
	}

	s.runs[run.ID] = run
	return nil
}

func (s *MemoryStore) GetRun(_ context.Context, id string) (model.Run, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	run, ok := s.runs[id]
	return run, ok, nil
}

func (s *MemoryStore) ListRuns(_ context.Context) ([]model.Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	runs := make([]model.Run, 0, len(s.runs))
	for _, run := range s.runs {
		runs = append(runs, run)
	}
	sortRuns(runs)
	return runs, nil
}

func (s *MemoryStore) SaveNetwork(_ context.Context, record model.NetworkRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.initialized {
		return ErrNotInitialized
	}
	if record.RunID == "" {
		return fmt.Errorf("save network: %w", ErrRunID)
	}

	byKey, ok := s.networks[record.RunID]
	if !ok {
		byKey = make(map[networkKey]model.NetworkRecord)
		s.networks[record.RunID] = byKey
	}
	record.Blob = append([]byte(nil), record.Blob...)
	byKey[networkKey{generation: record.Generation, index: record.Index}] = record
	return nil
}

func (s *MemoryStore) ListNetworks(_ context.Context, runID string) ([]model.NetworkRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	records := make([]model.NetworkRecord, 0, len(s.networks[runID]))
	for _, rec := range s.networks[runID] {
		rec.Blob = append([]byte(nil), rec.Blob...)
		records = append(records, rec)
	}
	sortNetworks(records)
	return records, nil
}

func (s *MemoryStore) SaveGenerationDiagnostics(_ context.Context, runID string, diagnostics []model.GenerationDiagnostics) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.initialized {
		return ErrNotInitialized
	}

	s.diagnostics[runID] = append([]model.GenerationDiagnostics(nil), diagnostics...)
	return nil
}

func (s *MemoryStore) GetGenerationDiagnostics(_ context.Context, runID string) ([]model.GenerationDiagnostics, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	diagnostics, ok := s.diagnostics[runID]
	if !ok {
		return nil, false, nil
	}
	return append([]model.GenerationDiagnostics(nil), diagnostics...), true, nil
}
