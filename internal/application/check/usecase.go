package check

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/jhoicas/moysklad-audit/internal/domain"
	"github.com/jhoicas/moysklad-audit/internal/domain/audit"
	"github.com/jhoicas/moysklad-audit/internal/domain/entity"
)

// Mensajes de fallo de una ejecución.
const (
	msgRateLimited = "Превышен лимит запросов к API МойСклад. Повторите проверку позже."
	msgCheckFailed = "Ошибка при проверке: %v"
	msgUnknownType = "Неизвестный тип документа: %s"
)

// TypeResult informe de un tipo de documento dentro de una auditoría completa.
type TypeResult struct {
	DocumentType entity.DocumentType
	Report       entity.PeriodReport
	StartedAt    time.Time
	FinishedAt   time.Time
}

// UseCase audita los documentos de una región contra su Gateway.
type UseCase struct {
	region entity.Region
	gw     Gateway
	opts   []audit.Option
	log    zerolog.Logger
	now    func() time.Time
}

// NewUseCase construye el caso de uso; opts se aplican a cada Engine creado.
func NewUseCase(region entity.Region, gw Gateway, log zerolog.Logger, opts ...audit.Option) *UseCase {
	return &UseCase{
		region: region,
		gw:     gw,
		opts:   opts,
		log:    log.With().Str("region", string(region)).Logger(),
		now:    time.Now,
	}
}

func (uc *UseCase) Region() entity.Region { return uc.region }

// PeriodFilter filtro de fecha de creación que cubre los días completos [from, to].
func PeriodFilter(from, to time.Time) string {
	return fmt.Sprintf("created>=%s 00:00:00;created<=%s 23:59:59",
		from.Format(time.DateOnly), to.Format(time.DateOnly))
}

// DefaultPeriod el día anterior a now.
func DefaultPeriod(now time.Time) (from, to time.Time) {
	y := now.AddDate(0, 0, -1)
	day := time.Date(y.Year(), y.Month(), y.Day(), 0, 0, 0, 0, y.Location())
	return day, day
}

// RunCheck descarga los documentos del periodo, evalúa cada uno y agrega el resultado.
// Los fallos del gateway se devuelven como informe con estado error.
func (uc *UseCase) RunCheck(ctx context.Context, typ entity.DocumentType, from, to time.Time) (report entity.PeriodReport) {
	log := uc.log.With().Str("document_type", string(typ)).Logger()
	defer func() {
		if rec := recover(); rec != nil {
			log.Error().Str("panic", fmt.Sprint(rec)).Msg("fallo inesperado en la auditoría")
			report = entity.FailedReport(entity.ErrorKindInternal, fmt.Sprintf(msgCheckFailed, rec))
		}
	}()

	if !typ.Valid() {
		return entity.FailedReport(entity.ErrorKindInternal, fmt.Sprintf(msgUnknownType, typ))
	}

	filter := PeriodFilter(from, to)
	log.Info().Str("filter", filter).Msg("iniciando auditoría")
	docs, err := uc.gw.Fetch(ctx, typ.Resource(), filter, typ.Expand())
	if err != nil {
		log.Error().Err(err).Msg("no se pudieron descargar los documentos")
		return failure(err)
	}

	resolver := NewResolver(uc.gw, log)
	// El logger de la ejecución va al final: lleva región y tipo de documento.
	opts := append(append([]audit.Option{}, uc.opts...), audit.WithLogger(log))
	engine := audit.NewEngine(uc.region, resolver, opts...)

	report = entity.PeriodReport{
		Total:  len(docs),
		Errors: []entity.DocumentError{},
		Status: entity.StatusSuccess,
	}
	for _, d := range docs {
		v := engine.Evaluate(ctx, typ, d)
		if err := resolver.Err(); err != nil {
			log.Error().Err(err).Str("document", d.Name()).Msg("auditoría interrumpida por límite de la API")
			return failure(err)
		}
		switch {
		case v.Excluded:
			report.Skipped++
		case v.Valid():
			report.Valid++
		default:
			report.Errors = append(report.Errors, v.Report)
		}
	}

	log.Info().Int("total", report.Total).Int("valid", report.Valid).Int("skipped", report.Skipped).
		Int("with_errors", len(report.Errors)).Int("issues", report.IssueCount()).Msg("auditoría finalizada")
	return report
}

// RunAll audita todos los tipos en orden; las devoluciones solo en las regiones que las auditan.
func (uc *UseCase) RunAll(ctx context.Context, from, to time.Time) []TypeResult {
	var out []TypeResult
	for _, typ := range entity.DocumentTypes() {
		if typ.IsReturn() && !uc.region.AuditsReturns() {
			continue
		}
		started := uc.now()
		report := uc.RunCheck(ctx, typ, from, to)
		out = append(out, TypeResult{DocumentType: typ, Report: report, StartedAt: started, FinishedAt: uc.now()})
	}
	return out
}

// failure traduce un error del gateway a un informe con estado error.
func failure(err error) entity.PeriodReport {
	switch {
	case errors.Is(err, domain.ErrDailyQuotaExceeded):
		return entity.FailedReport(entity.ErrorKindDailyQuota, err.Error())
	case errors.Is(err, domain.ErrRateLimitExhausted):
		return entity.FailedReport(entity.ErrorKindRateLimited, msgRateLimited)
	case errors.Is(err, domain.ErrTransientAPI):
		return entity.FailedReport(entity.ErrorKindTransient, fmt.Sprintf(msgCheckFailed, err))
	}
	return entity.FailedReport(entity.ErrorKindInternal, fmt.Sprintf(msgCheckFailed, err))
}
