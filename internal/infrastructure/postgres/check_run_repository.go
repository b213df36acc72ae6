package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/moysklad-audit/internal/domain/entity"
	"github.com/jhoicas/moysklad-audit/internal/domain/repository"
)

var _ repository.CheckRunRepository = (*CheckRunRepo)(nil)

// Schema tabla del historial; el informe completo se guarda como JSONB.
const Schema = `
CREATE TABLE IF NOT EXISTS check_runs (
	id            UUID PRIMARY KEY,
	document_type TEXT        NOT NULL,
	region        TEXT        NOT NULL,
	date_from     DATE        NOT NULL,
	date_to       DATE        NOT NULL,
	status        TEXT        NOT NULL,
	total         INTEGER     NOT NULL,
	valid         INTEGER     NOT NULL,
	skipped       INTEGER     NOT NULL,
	error_count   INTEGER     NOT NULL,
	report        JSONB       NOT NULL,
	started_at    TIMESTAMPTZ NOT NULL,
	finished_at   TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS check_runs_started_at_idx ON check_runs (started_at DESC);`

// CheckRunRepo implementación de CheckRunRepository (usable con pool o tx).
type CheckRunRepo struct {
	q Querier
}

// NewCheckRunRepository construye el adaptador. Pasar pool o tx (Querier).
func NewCheckRunRepository(q Querier) *CheckRunRepo {
	return &CheckRunRepo{q: q}
}

// EnsureSchema crea la tabla si no existe.
func (r *CheckRunRepo) EnsureSchema(ctx context.Context) error {
	if _, err := r.q.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("create check_runs: %w", err)
	}
	return nil
}

// Save persiste la ejecución con su informe.
func (r *CheckRunRepo) Save(ctx context.Context, run *entity.CheckRun) error {
	if run.ID == "" {
		run.ID = uuid.New().String()
	}
	report, err := json.Marshal(run.Report)
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	query := `
		INSERT INTO check_runs (id, document_type, region, date_from, date_to, status,
		                        total, valid, skipped, error_count, report, started_at, finished_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`
	_, err = r.q.Exec(ctx, query,
		run.ID, string(run.DocumentType), string(run.Region), run.DateFrom, run.DateTo,
		string(run.Report.Status), run.Report.Total, run.Report.Valid, run.Report.Skipped,
		len(run.Report.Errors), report, run.StartedAt, run.FinishedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("check run %s already exists: %w", run.ID, err)
		}
		return fmt.Errorf("insert check run: %w", err)
	}
	return nil
}

const selectCheckRun = `
	SELECT id::text, document_type, region, date_from, date_to, report, started_at, finished_at
	FROM check_runs`

// GetByID obtiene una ejecución completa.
func (r *CheckRunRepo) GetByID(ctx context.Context, id string) (*entity.CheckRun, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, nil
	}
	run, err := scanCheckRun(r.q.QueryRow(ctx, selectCheckRun+" WHERE id = $1", id))
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get check run: %w", err)
	}
	return run, nil
}

// List historial filtrado por región y tipo, paginado.
func (r *CheckRunRepo) List(ctx context.Context, filter entity.CheckRunFilter) ([]*entity.CheckRun, error) {
	var (
		conds []string
		args  []any
	)
	if filter.Region != "" {
		args = append(args, string(filter.Region))
		conds = append(conds, fmt.Sprintf("region = $%d", len(args)))
	}
	if filter.DocumentType != "" {
		args = append(args, string(filter.DocumentType))
		conds = append(conds, fmt.Sprintf("document_type = $%d", len(args)))
	}
	query := selectCheckRun
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	args = append(args, limit, filter.Offset)
	query += fmt.Sprintf(" ORDER BY started_at DESC LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list check runs: %w", err)
	}
	defer rows.Close()

	var out []*entity.CheckRun
	for rows.Next() {
		run, err := scanCheckRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan check run: %w", err)
		}
		out = append(out, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list check runs: %w", err)
	}
	return out, nil
}

func scanCheckRun(row pgx.Row) (*entity.CheckRun, error) {
	var (
		run          entity.CheckRun
		docType, reg string
		report       []byte
	)
	err := row.Scan(&run.ID, &docType, &reg, &run.DateFrom, &run.DateTo, &report, &run.StartedAt, &run.FinishedAt)
	if err != nil {
		return nil, err
	}
	run.DocumentType = entity.DocumentType(docType)
	run.Region = entity.Region(reg)
	if err := json.Unmarshal(report, &run.Report); err != nil {
		return nil, fmt.Errorf("decode report: %w", err)
	}
	return &run, nil
}
