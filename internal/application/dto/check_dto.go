package dto

import (
	"time"

	"github.com/jhoicas/moysklad-audit/internal/domain/entity"
)

// RunCheckRequest entrada para auditar un tipo de documento. Fechas YYYY-MM-DD; vacías = ayer.
type RunCheckRequest struct {
	DocumentType string `json:"document_type" validate:"required"`
	Region       string `json:"region" validate:"required"`
	DateFrom     string `json:"date_from"`
	DateTo       string `json:"date_to"`
}

// RunAllRequest entrada para auditar todos los tipos en varias regiones (vacío = todas).
type RunAllRequest struct {
	Regions  []string `json:"regions"`
	DateFrom string   `json:"date_from"`
	DateTo   string   `json:"date_to"`
}

// CheckRunResponse ejecución completa con el informe.
type CheckRunResponse struct {
	ID            string              `json:"id,omitempty"`
	DocumentType  string              `json:"document_type"`
	DocumentLabel string              `json:"document_label"`
	Region        string              `json:"region"`
	DateFrom      string              `json:"date_from"`
	DateTo        string              `json:"date_to"`
	StartedAt     time.Time           `json:"started_at"`
	FinishedAt    time.Time           `json:"finished_at"`
	IssueCount    int                 `json:"issue_count"`
	Report        entity.PeriodReport `json:"report"`
}

// CheckRunSummary fila del historial (sin el detalle de errores).
type CheckRunSummary struct {
	ID           string              `json:"id"`
	DocumentType string              `json:"document_type"`
	Region       string              `json:"region"`
	DateFrom     string              `json:"date_from"`
	DateTo       string              `json:"date_to"`
	StartedAt    time.Time           `json:"started_at"`
	Status       entity.ReportStatus `json:"status"`
	Total        int                 `json:"total"`
	Valid        int                 `json:"valid"`
	Skipped      int                 `json:"skipped"`
	WithErrors   int                 `json:"with_errors"`
	IssueCount   int                 `json:"issue_count"`
	ErrorMessage string              `json:"error_message,omitempty"`
}

// CheckRunListResponse historial paginado.
type CheckRunListResponse struct {
	Items []CheckRunSummary `json:"items"`
	Page  PageResponse      `json:"page"`
}

// RunAllResponse ejecuciones agrupadas por región.
type RunAllResponse struct {
	Regions map[string][]CheckRunSummary `json:"regions"`
}

// NewCheckRunResponse convierte una ejecución del dominio.
func NewCheckRunResponse(run *entity.CheckRun) CheckRunResponse {
	return CheckRunResponse{
		ID:            run.ID,
		DocumentType:  string(run.DocumentType),
		DocumentLabel: run.DocumentType.Label(),
		Region:        string(run.Region),
		DateFrom:      run.DateFrom.Format(time.DateOnly),
		DateTo:        run.DateTo.Format(time.DateOnly),
		StartedAt:     run.StartedAt,
		FinishedAt:    run.FinishedAt,
		IssueCount:    run.Report.IssueCount(),
		Report:        run.Report,
	}
}

// NewCheckRunSummary resumen de una ejecución para listados.
func NewCheckRunSummary(run *entity.CheckRun) CheckRunSummary {
	return CheckRunSummary{
		ID:           run.ID,
		DocumentType: string(run.DocumentType),
		Region:       string(run.Region),
		DateFrom:     run.DateFrom.Format(time.DateOnly),
		DateTo:       run.DateTo.Format(time.DateOnly),
		StartedAt:    run.StartedAt,
		Status:       run.Report.Status,
		Total:        run.Report.Total,
		Valid:        run.Report.Valid,
		Skipped:      run.Report.Skipped,
		WithErrors:   len(run.Report.Errors),
		IssueCount:   run.Report.IssueCount(),
		ErrorMessage: run.Report.ErrorMessage,
	}
}
