package check

import (
	"context"
	"time"

	"github.com/jhoicas/moysklad-audit/internal/domain/entity"
)

// Gateway acceso a la API de MoySklad de una región.
type Gateway interface {
	// Fetch colección completa de /entity/{resource}.
	Fetch(ctx context.Context, resource, filter, expand string) ([]entity.Document, error)
	// Get recurso individual por href o ruta.
	Get(ctx context.Context, hrefOrPath string) (entity.Document, error)
}

// Notification resultado de una auditoría listo para enviar.
type Notification struct {
	DocumentType entity.DocumentType
	Region       entity.Region
	From         time.Time
	To           time.Time
	Report       entity.PeriodReport
}

// Notifier entrega el informe a un canal externo (chat).
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// Summarizer notificadores que además aceptan un resumen de varias auditorías.
type Summarizer interface {
	NotifySummary(ctx context.Context, region entity.Region, from, to time.Time, results []TypeResult) error
}

// ReportRenderer representación imprimible (PDF) de una ejecución.
type ReportRenderer interface {
	RenderRun(ctx context.Context, run *entity.CheckRun) ([]byte, error)
}
