package repository

import (
	"context"

	"github.com/jhoicas/moysklad-audit/internal/domain/entity"
)

// CheckRunRepository define el puerto de persistencia del historial de auditorías.
type CheckRunRepository interface {
	// Save inserta la ejecución; asigna ID si viene vacío.
	Save(ctx context.Context, run *entity.CheckRun) error
	// GetByID devuelve nil, nil si no existe.
	GetByID(ctx context.Context, id string) (*entity.CheckRun, error)
	// List ordena por fecha de inicio descendente.
	List(ctx context.Context, filter entity.CheckRunFilter) ([]*entity.CheckRun, error)
}
