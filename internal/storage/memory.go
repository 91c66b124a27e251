package storage

import (
	"context"
	"errors"
	"sort"
	"sync"

	"antcolony/internal/model"
)

var errNotInitialized = errors.New("store is not initialized")

type MemoryStore struct {
	mu          sync.RWMutex
	initialized bool
	genomes     map[string]model.Genome
	runs        map[string]model.RunSummary
	history     map[string][]float64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Init(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.initialized = true
	s.genomes = make(map[string]model.Genome)
	s.runs = make(map[string]model.RunSummary)
	s.history = make(map[string][]float64)
	return nil
}

func (s *MemoryStore) SaveGenome(_ context.Context, genome model.Genome) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return errNotInitialized
	}
	s.genomes[genome.ID] = cloneGenome(genome)
	return nil
}

func (s *MemoryStore) GetGenome(_ context.Context, id string) (model.Genome, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	genome, ok := s.genomes[id]
	if !ok {
		return model.Genome{}, false, nil
	}
	return cloneGenome(genome), true, nil
}

func (s *MemoryStore) SaveRun(_ context.Context, run model.RunSummary) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return errNotInitialized
	}
	s.runs[run.ID] = cloneRun(run)
	return nil
}

func (s *MemoryStore) GetRun(_ context.Context, id string) (model.RunSummary, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	run, ok := s.runs[id]
	if !ok {
		return model.RunSummary{}, false, nil
	}
	return cloneRun(run), true, nil
}

func (s *MemoryStore) ListRuns(_ context.Context, limit int) ([]model.RunSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.RunSummary, 0, len(s.runs))
	for _, run := range s.runs {
		out = append(out, cloneRun(run))
	}
	sortRunsNewestFirst(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryStore) SaveFitnessHistory(_ context.Context, runID string, history []float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return errNotInitialized
	}
	copied := append([]float64(nil), history...)
	s.history[runID] = copied
	return nil
}

func (s *MemoryStore) GetFitnessHistory(_ context.Context, runID string) ([]float64, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	history, ok := s.history[runID]
	if !ok {
		return nil, false, nil
	}
	copied := append([]float64(nil), history...)
	return copied, true, nil
}

func sortRunsNewestFirst(runs []model.RunSummary) {
	sort.Slice(runs, func(i, j int) bool {
		if !runs[i].CreatedAt.Equal(runs[j].CreatedAt) {
			return runs[i].CreatedAt.After(runs[j].CreatedAt)
		}
		return runs[i].ID < runs[j].ID
	})
}

func cloneGenome(g model.Genome) model.Genome {
	g.Neurons = append([]model.Neuron(nil), g.Neurons...)
	g.Synapses = append([]model.Synapse(nil), g.Synapses...)
	g.SensorIDs = append([]string(nil), g.SensorIDs...)
	g.ActuatorIDs = append([]string(nil), g.ActuatorIDs...)
	return g
}

func cloneRun(r model.RunSummary) model.RunSummary {
	r.Results = append([]model.AgentResult(nil), r.Results...)
	r.Config = append([]byte(nil), r.Config...)
	return r
}
