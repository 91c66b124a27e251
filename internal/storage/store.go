package storage

import (
	"context"

	"antcolony/internal/model"
)

// Store persists colony runs, their per-tick fitness history and the genomes
// used as policies.
type Store interface {
	Init(ctx context.Context) error
	SaveGenome(ctx context.Context, genome model.Genome) error
	GetGenome(ctx context.Context, id string) (model.Genome, bool, error)
	SaveRun(ctx context.Context, run model.RunSummary) error
	GetRun(ctx context.Context, id string) (model.RunSummary, bool, error)
	// ListRuns returns summaries newest first. limit <= 0 returns all.
	ListRuns(ctx context.Context, limit int) ([]model.RunSummary, error)
	SaveFitnessHistory(ctx context.Context, runID string, history []float64) error
	GetFitnessHistory(ctx context.Context, runID string) ([]float64, bool, error)
}
