package storage

import (
	"context"
	"errors"

	"github.com/JD-Gaming/jd-gaming/internal/model"
)

var (
	ErrNotInitialized     = errors.New("store is not initialized")
	ErrUnsupportedBackend = errors.New("unsupported store backend")
	ErrRunID              = errors.New("run id is required")
)

// Store persists training runs, the networks they produce and per-generation
// diagnostics.
type Store interface {
	Init(ctx context.Context) error
	SaveRun(ctx context.Context, run model.Run) error
	GetRun(ctx context.Context, id string) (model.Run, bool, error)
	ListRuns(ctx context.Context) ([]model.Run, error)
	SaveNetwork(ctx context.Context, record model.NetworkRecord) error
	// ListNetworks returns the run's networks ordered by generation, then
	// index.
	ListNetworks(ctx context.Context, runID string) ([]model.NetworkRecord, error)
	SaveGenerationDiagnostics(ctx context.Context, runID string, diagnostics []model.GenerationDiagnostics) error
	GetGenerationDiagnostics(ctx context.Context, runID string) ([]model.GenerationDiagnostics, bool, error)
}
