// Package bootstrap arma el servicio de auditoría a partir de la configuración.
package bootstrap

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/jhoicas/moysklad-audit/internal/application/check"
	"github.com/jhoicas/moysklad-audit/internal/domain/audit"
	"github.com/jhoicas/moysklad-audit/internal/domain/entity"
	"github.com/jhoicas/moysklad-audit/internal/infrastructure/bitrix"
	"github.com/jhoicas/moysklad-audit/internal/infrastructure/memory"
	"github.com/jhoicas/moysklad-audit/internal/infrastructure/moysklad"
	"github.com/jhoicas/moysklad-audit/internal/infrastructure/pdf"
	"github.com/jhoicas/moysklad-audit/internal/infrastructure/postgres"
	"github.com/jhoicas/moysklad-audit/pkg/config"
	"github.com/jhoicas/moysklad-audit/pkg/logger"
)

// App servicio listo para usar y los recursos que hay que cerrar.
type App struct {
	Service  *check.Service
	Registry *prometheus.Registry
	closers  []func()
}

// Close libera conexiones (pool de PostgreSQL).
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

// Build crea un cliente MoySklad por región con credenciales, el historial
// (PostgreSQL si está configurado, memoria si no), el notificador de Bitrix24 y el PDF.
func Build(ctx context.Context, cfg *config.Config, log *logger.Logger) (*App, error) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := moysklad.NewMetrics(reg)

	auditOpts := []audit.Option{
		audit.WithLocation(cfg.Audit.Location()),
		audit.WithContactCenter(cfg.Audit.ContactCenterEmployee),
		audit.WithAppHost(cfg.Audit.AppHost),
	}

	var useCases []*check.UseCase
	for _, region := range entity.Regions() {
		client, err := moysklad.NewClientFromConfig(region, cfg.MoySklad, log.Component("moysklad"), metrics)
		if err != nil {
			log.Warn().Err(err).Str("region", string(region)).Msg("región sin cliente MoySklad, se omite")
			continue
		}
		useCases = append(useCases, check.NewUseCase(region, client, log.Component("check"), auditOpts...))
	}
	if len(useCases) == 0 {
		return nil, fmt.Errorf("bootstrap: ninguna región tiene credenciales de MoySklad")
	}

	app := &App{Registry: reg}
	svcOpts := []check.ServiceOption{
		check.WithRenderer(pdf.NewMarotoReportGenerator(cfg.PDF.FontPath)),
	}

	if cfg.DB.Enabled() {
		pool, err := postgres.NewPool(ctx, cfg.DB)
		if err != nil {
			return nil, fmt.Errorf("bootstrap: conexión a PostgreSQL: %w", err)
		}
		app.closers = append(app.closers, pool.Close)
		repo := postgres.NewCheckRunRepository(pool)
		if err := repo.EnsureSchema(ctx); err != nil {
			app.Close()
			return nil, fmt.Errorf("bootstrap: esquema: %w", err)
		}
		svcOpts = append(svcOpts, check.WithRepository(repo))
	} else {
		log.Warn().Msg("sin base de datos: el historial se guarda solo en memoria")
		svcOpts = append(svcOpts, check.WithRepository(memory.NewCheckRunRepository()))
	}

	if cfg.Bitrix.Enabled() {
		svcOpts = append(svcOpts, check.WithNotifier(bitrix.NewNotifier(cfg.Bitrix, log.Component("bitrix"))))
	}

	app.Service = check.NewService(useCases, log.Component("service"), svcOpts...)
	return app, nil
}
