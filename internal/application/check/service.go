package check

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/jhoicas/moysklad-audit/internal/domain"
	"github.com/jhoicas/moysklad-audit/internal/domain/entity"
	"github.com/jhoicas/moysklad-audit/internal/domain/repository"
)

// Service enruta las auditorías por región, guarda el historial y notifica.
type Service struct {
	useCases map[entity.Region]*UseCase
	runs     repository.CheckRunRepository
	notifier Notifier
	renderer ReportRenderer
	log      zerolog.Logger
	now      func() time.Time
}

// ServiceOption configura el Service.
type ServiceOption func(*Service)

// WithRepository historial de ejecuciones (sin él no se persiste nada).
func WithRepository(r repository.CheckRunRepository) ServiceOption {
	return func(s *Service) { s.runs = r }
}

// WithNotifier canal de notificación (opcional).
func WithNotifier(n Notifier) ServiceOption {
	return func(s *Service) { s.notifier = n }
}

// WithRenderer generador de PDF de las ejecuciones guardadas.
func WithRenderer(r ReportRenderer) ServiceOption {
	return func(s *Service) { s.renderer = r }
}

func WithServiceClock(now func() time.Time) ServiceOption {
	return func(s *Service) { s.now = now }
}

// NewService construye el servicio con un caso de uso por región configurada.
func NewService(useCases []*UseCase, log zerolog.Logger, opts ...ServiceOption) *Service {
	s := &Service{
		useCases: make(map[entity.Region]*UseCase, len(useCases)),
		log:      log,
		now:      time.Now,
	}
	for _, uc := range useCases {
		s.useCases[uc.Region()] = uc
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Regions regiones con credenciales, en orden estable.
func (s *Service) Regions() []entity.Region {
	out := make([]entity.Region, 0, len(s.useCases))
	for r := range s.useCases {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (s *Service) useCase(region entity.Region) (*UseCase, error) {
	uc, ok := s.useCases[region]
	if !ok {
		return nil, fmt.Errorf("%w: la región %s no está configurada", domain.ErrInvalidInput, region)
	}
	return uc, nil
}

func validatePeriod(from, to time.Time) error {
	if from.IsZero() || to.IsZero() {
		return fmt.Errorf("%w: periodo incompleto", domain.ErrInvalidInput)
	}
	if to.Before(from) {
		return fmt.Errorf("%w: la fecha final es anterior a la inicial", domain.ErrInvalidInput)
	}
	return nil
}

// RunCheck audita un tipo de documento en una región, guarda la ejecución y notifica.
// Solo devuelve error por entrada inválida; los fallos de la API quedan en el informe.
func (s *Service) RunCheck(ctx context.Context, typ entity.DocumentType, region entity.Region, from, to time.Time) (*entity.CheckRun, error) {
	uc, err := s.useCase(region)
	if err != nil {
		return nil, err
	}
	if !typ.Valid() {
		return nil, fmt.Errorf("%w: tipo de documento desconocido %q", domain.ErrInvalidInput, typ)
	}
	if err := validatePeriod(from, to); err != nil {
		return nil, err
	}
	if typ.IsReturn() && !region.AuditsReturns() {
		return nil, fmt.Errorf("%w: las devoluciones no se auditan en la región %s", domain.ErrInvalidInput, region)
	}

	started := s.now()
	report := uc.RunCheck(ctx, typ, from, to)
	run := s.record(ctx, region, from, to, TypeResult{
		DocumentType: typ, Report: report, StartedAt: started, FinishedAt: s.now(),
	})
	s.notify(ctx, Notification{DocumentType: typ, Region: region, From: from, To: to, Report: report})
	return run, nil
}

// RunRegion audita todos los tipos de una región. Con un Summarizer se envía un único resumen.
func (s *Service) RunRegion(ctx context.Context, region entity.Region, from, to time.Time) ([]*entity.CheckRun, error) {
	uc, err := s.useCase(region)
	if err != nil {
		return nil, err
	}
	if err := validatePeriod(from, to); err != nil {
		return nil, err
	}

	results := uc.RunAll(ctx, from, to)
	runs := make([]*entity.CheckRun, 0, len(results))
	for _, res := range results {
		runs = append(runs, s.record(ctx, region, from, to, res))
	}

	if sum, ok := s.notifier.(Summarizer); ok {
		if err := sum.NotifySummary(ctx, region, from, to, results); err != nil {
			s.log.Error().Err(err).Str("region", string(region)).Msg("no se pudo enviar el resumen")
		}
		return runs, nil
	}
	for _, res := range results {
		s.notify(ctx, Notification{DocumentType: res.DocumentType, Region: region, From: from, To: to, Report: res.Report})
	}
	return runs, nil
}

// RunRegions audita varias regiones en paralelo, una goroutine por región.
func (s *Service) RunRegions(ctx context.Context, regions []entity.Region, from, to time.Time) (map[entity.Region][]*entity.CheckRun, error) {
	if len(regions) == 0 {
		regions = s.Regions()
	}
	for _, r := range regions {
		if _, err := s.useCase(r); err != nil {
			return nil, err
		}
	}

	var (
		mu  sync.Mutex
		out = make(map[entity.Region][]*entity.CheckRun, len(regions))
	)
	g, gctx := errgroup.WithContext(ctx)
	for _, region := range regions {
		region := region
		g.Go(func() error {
			runs, err := s.RunRegion(gctx, region, from, to)
			if err != nil {
				return err
			}
			mu.Lock()
			out[region] = runs
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// Run ejecución guardada por ID.
func (s *Service) Run(ctx context.Context, id string) (*entity.CheckRun, error) {
	if s.runs == nil {
		return nil, domain.ErrNotFound
	}
	run, err := s.runs.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("check: obtener ejecución: %w", err)
	}
	if run == nil {
		return nil, domain.ErrNotFound
	}
	return run, nil
}

// Runs historial filtrado.
func (s *Service) Runs(ctx context.Context, filter entity.CheckRunFilter) ([]*entity.CheckRun, error) {
	if s.runs == nil {
		return []*entity.CheckRun{}, nil
	}
	runs, err := s.runs.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("check: listar ejecuciones: %w", err)
	}
	return runs, nil
}

// RunPDF PDF de una ejecución guardada.
func (s *Service) RunPDF(ctx context.Context, id string) ([]byte, *entity.CheckRun, error) {
	if s.renderer == nil {
		return nil, nil, fmt.Errorf("check: generador de PDF no configurado")
	}
	run, err := s.Run(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	out, err := s.renderer.RenderRun(ctx, run)
	if err != nil {
		return nil, nil, fmt.Errorf("check: generar PDF: %w", err)
	}
	return out, run, nil
}

// record construye la ejecución y la guarda; un fallo de persistencia no invalida el informe.
func (s *Service) record(ctx context.Context, region entity.Region, from, to time.Time, res TypeResult) *entity.CheckRun {
	run := &entity.CheckRun{
		DocumentType: res.DocumentType,
		Region:       region,
		DateFrom:     from,
		DateTo:       to,
		Report:       res.Report,
		StartedAt:    res.StartedAt,
		FinishedAt:   res.FinishedAt,
	}
	if s.runs == nil {
		return run
	}
	if err := s.runs.Save(ctx, run); err != nil {
		s.log.Error().Err(err).Str("region", string(region)).Str("document_type", string(res.DocumentType)).
			Msg("no se pudo guardar la ejecución")
	}
	return run
}

// notify envía el informe si tiene hallazgos o falló.
func (s *Service) notify(ctx context.Context, n Notification) {
	if s.notifier == nil || (len(n.Report.Errors) == 0 && !n.Report.Failed()) {
		return
	}
	if err := s.notifier.Notify(ctx, n); err != nil {
		s.log.Error().Err(err).Str("region", string(n.Region)).Str("document_type", string(n.DocumentType)).
			Msg("no se pudo enviar la notificación")
	}
}
