package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/jhoicas/moysklad-audit/internal/domain/entity"
	"github.com/jhoicas/moysklad-audit/internal/domain/repository"
)

var _ repository.CheckRunRepository = (*CheckRunRepo)(nil)

// CheckRunRepo historial en memoria, usado cuando no hay base de datos configurada.
type CheckRunRepo struct {
	mu   sync.RWMutex
	runs map[string]entity.CheckRun
}

func NewCheckRunRepository() *CheckRunRepo {
	return &CheckRunRepo{runs: make(map[string]entity.CheckRun)}
}

func (r *CheckRunRepo) Save(_ context.Context, run *entity.CheckRun) error {
	if run.ID == "" {
		run.ID = uuid.New().String()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runs[run.ID] = *run
	return nil
}

func (r *CheckRunRepo) GetByID(_ context.Context, id string) (*entity.CheckRun, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	run, ok := r.runs[id]
	if !ok {
		return nil, nil
	}
	return &run, nil
}

func (r *CheckRunRepo) List(_ context.Context, filter entity.CheckRunFilter) ([]*entity.CheckRun, error) {
	r.mu.RLock()
	var out []*entity.CheckRun
	for _, run := range r.runs {
		if filter.Region != "" && run.Region != filter.Region {
			continue
		}
		if filter.DocumentType != "" && run.DocumentType != filter.DocumentType {
			continue
		}
		run := run
		out = append(out, &run)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.After(out[j].StartedAt) })

	if filter.Offset >= len(out) {
		return nil, nil
	}
	out = out[filter.Offset:]
	if filter.Limit > 0 && filter.Limit < len(out) {
		out = out[:filter.Limit]
	}
	return out, nil
}
