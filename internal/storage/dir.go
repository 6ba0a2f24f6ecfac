package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/JD-Gaming/jd-gaming/internal/atomicfile"
	"github.com/JD-Gaming/jd-gaming/internal/model"
)

const (
	runsDirName     = "runs"
	indexFileName   = "networks.json"
	diagnosticsName = "diagnostics.json"
)

// CheckpointName is the file name a saved network gets: generation, seed,
// population index and score per round.
func CheckpointName(rec model.NetworkRecord) string {
	return fmt.Sprintf("0x%08x_0x%08x_%d_%f.ffw", uint32(rec.Generation), uint32(rec.Seed), rec.Index, rec.ScorePerRound())
}

// DirStore keeps each run in its own directory under root. Networks are plain
// network files named by CheckpointName so they can be loaded directly; their
// metadata lives in an index next to them.
type DirStore struct {
	root string

	mu          sync.Mutex
	initialized bool
}

func NewDirStore(root string) *DirStore {
	return &DirStore{root: root}
}

func (s *DirStore) Root() string { return s.root }

func (s *DirStore) Init(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.root == "" {
		return errors.New("checkpoint directory is required")
	}
	if err := os.MkdirAll(filepath.Join(s.root, runsDirName), 0o755); err != nil {
		return err
	}
	s.initialized = true
	return nil
}

// RunDir is where the networks and diagnostics of runID are written.
func (s *DirStore) RunDir(runID string) string {
	return filepath.Join(s.root, runID)
}

func (s *DirStore) SaveRun(_ context.Context, run model.Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.initialized {
		return ErrNotInitialized
	}
	if err := checkRunID(run.ID); err != nil {
		return fmt.Errorf("save run: %w", err)
	}

	payload, err := EncodeRun(run)
	if err != nil {
		return err
	}
	return atomicfile.Write(filepath.Join(s.root, runsDirName, run.ID+".json"), payload)
}

func (s *DirStore) GetRun(_ context.Context, id string) (model.Run, bool, error) {
	if err := checkRunID(id); err != nil {
		return model.Run{}, false, nil
	}
	payload, err := os.ReadFile(filepath.Join(s.root, runsDirName, id+".json"))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return model.Run{}, false, nil
		}
		return model.Run{}, false, err
	}
	run, err := DecodeRun(payload)
	if err != nil {
		return model.Run{}, false, fmt.Errorf("decode run %s: %w", id, err)
	}
	return run, true, nil
}

func (s *DirStore) ListRuns(ctx context.Context) ([]model.Run, error) {
	entries, err := os.ReadDir(filepath.Join(s.root, runsDirName))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	var runs []model.Run
	for _, entry := range entries {
		id, ok := strings.CutSuffix(entry.Name(), ".json")
		if !ok || entry.IsDir() {
			continue
		}
		run, found, err := s.GetRun(ctx, id)
		if err != nil {
			return nil, err
		}
		if found {
			runs = append(runs, run)
		}
	}
	sortRuns(runs)
	return runs, nil
}

func (s *DirStore) SaveNetwork(_ context.Context, record model.NetworkRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.initialized {
		return ErrNotInitialized
	}
	if err := checkRunID(record.RunID); err != nil {
		return fmt.Errorf("save network: %w", err)
	}

	dir := s.RunDir(record.RunID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	index, err := readIndex(dir)
	if err != nil {
		return err
	}
	key := networkKey{generation: record.Generation, index: record.Index}
	kept := index[:0]
	for _, rec := range index {
		if (networkKey{generation: rec.Generation, index: rec.Index}) == key {
			_ = os.Remove(filepath.Join(dir, CheckpointName(rec)))
			continue
		}
		kept = append(kept, rec)
	}
	if err := atomicfile.Write(filepath.Join(dir, CheckpointName(record)), record.Blob); err != nil {
		return err
	}
	meta := record
	meta.Blob = nil
	kept = append(kept, meta)
	sortNetworks(kept)
	return writeIndex(dir, kept)
}

func (s *DirStore) ListNetworks(_ context.Context, runID string) ([]model.NetworkRecord, error) {
	if err := checkRunID(runID); err != nil {
		return nil, err
	}
	dir := s.RunDir(runID)
	index, err := readIndex(dir)
	if err != nil {
		return nil, err
	}
	for i := range index {
		blob, err := os.ReadFile(filepath.Join(dir, CheckpointName(index[i])))
		if err != nil {
			return nil, fmt.Errorf("read network %d/%d: %w", index[i].Generation, index[i].Index, err)
		}
		index[i].Blob = blob
	}
	return index, nil
}

func (s *DirStore) SaveGenerationDiagnostics(_ context.Context, runID string, diagnostics []model.GenerationDiagnostics) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.initialized {
		return ErrNotInitialized
	}
	if err := checkRunID(runID); err != nil {
		return fmt.Errorf("save diagnostics: %w", err)
	}

	payload, err := EncodeGenerationDiagnostics(diagnostics)
	if err != nil {
		return err
	}
	dir := s.RunDir(runID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	return atomicfile.Write(filepath.Join(dir, diagnosticsName), payload)
}

func (s *DirStore) GetGenerationDiagnostics(_ context.Context, runID string) ([]model.GenerationDiagnostics, bool, error) {
	if err := checkRunID(runID); err != nil {
		return nil, false, nil
	}
	payload, err := os.ReadFile(filepath.Join(s.RunDir(runID), diagnosticsName))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, err
	}
	diagnostics, err := DecodeGenerationDiagnostics(payload)
	if err != nil {
		return nil, false, fmt.Errorf("decode diagnostics %s: %w", runID, err)
	}
	return diagnostics, true, nil
}

func checkRunID(id string) error {
	if id == "" {
		return ErrRunID
	}
	if id == runsDirName || strings.ContainsAny(id, `/\`) || id == "." || id == ".." {
		return fmt.Errorf("invalid run id %q", id)
	}
	return nil
}

func readIndex(dir string) ([]model.NetworkRecord, error) {
	payload, err := os.ReadFile(filepath.Join(dir, indexFileName))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	records, err := DecodeNetworkIndex(payload)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", filepath.Join(dir, indexFileName), err)
	}
	return records, nil
}

func writeIndex(dir string, records []model.NetworkRecord) error {
	payload, err := EncodeNetworkIndex(records)
	if err != nil {
		return err
	}
	return atomicfile.Write(filepath.Join(dir, indexFileName), payload)
}
