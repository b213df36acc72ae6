package check_test

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/moysklad-audit/internal/application/check"
	"github.com/jhoicas/moysklad-audit/internal/domain"
	"github.com/jhoicas/moysklad-audit/internal/domain/entity"
	"github.com/jhoicas/moysklad-audit/internal/infrastructure/memory"
)

func newService(t *testing.T, gws map[entity.Region]*fakeGateway, opts ...check.ServiceOption) *check.Service {
	t.Helper()
	var ucs []*check.UseCase
	for region, gw := range gws {
		ucs = append(ucs, check.NewUseCase(region, gw, zerolog.Nop()))
	}
	clock := time.Date(2024, time.March, 6, 8, 0, 0, 0, time.UTC)
	opts = append(opts, check.WithServiceClock(func() time.Time { return clock }))
	return check.NewService(ucs, zerolog.Nop(), opts...)
}

func TestService_RunCheckPersistsAndNotifies(t *testing.T) {
	gw := newFakeGateway()
	gw.collection["salesreturn"] = []entity.Document{salesReturn("1", nil, 100)}
	repo := memory.NewCheckRunRepository()
	notifier := &fakeNotifier{}
	svc := newService(t, map[entity.Region]*fakeGateway{entity.RegionRB: gw},
		check.WithRepository(repo), check.WithNotifier(notifier))

	run, err := svc.RunCheck(context.Background(), entity.DocSalesReturn, entity.RegionRB, day, day)
	require.NoError(t, err)
	assert.NotEmpty(t, run.ID)
	assert.Equal(t, entity.RegionRB, run.Region)
	assert.Equal(t, 1, len(run.Report.Errors))

	stored, err := svc.Run(context.Background(), run.ID)
	require.NoError(t, err)
	assert.Equal(t, run.Report.Total, stored.Report.Total)

	runs, err := svc.Runs(context.Background(), entity.CheckRunFilter{Region: entity.RegionRB})
	require.NoError(t, err)
	assert.Len(t, runs, 1)

	require.Len(t, notifier.sent, 1)
	assert.Equal(t, entity.DocSalesReturn, notifier.sent[0].DocumentType)
	assert.Equal(t, day, notifier.sent[0].From)
}

func TestService_CleanReportIsNotNotified(t *testing.T) {
	notifier := &fakeNotifier{}
	svc := newService(t, map[entity.Region]*fakeGateway{entity.RegionRF: newFakeGateway()}, check.WithNotifier(notifier))

	run, err := svc.RunCheck(context.Background(), entity.DocRetailSale, entity.RegionRF, day, day)
	require.NoError(t, err)
	assert.Empty(t, run.ID)
	assert.Empty(t, notifier.sent)
}

func TestService_InvalidInput(t *testing.T) {
	svc := newService(t, map[entity.Region]*fakeGateway{
		entity.RegionRB: newFakeGateway(),
		entity.RegionKZ: newFakeGateway(),
	})
	ctx := context.Background()

	_, err := svc.RunCheck(ctx, entity.DocShipment, entity.RegionRF, day, day)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = svc.RunCheck(ctx, entity.DocShipment, entity.RegionRB, day, day.AddDate(0, 0, -1))
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = svc.RunCheck(ctx, entity.DocumentType("orders"), entity.RegionRB, day, day)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = svc.RunCheck(ctx, entity.DocSalesReturn, entity.RegionKZ, day, day)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = svc.Run(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	runs, err := svc.Runs(ctx, entity.CheckRunFilter{})
	require.NoError(t, err)
	assert.Empty(t, runs)
}

func TestService_RunRegionsConcurrently(t *testing.T) {
	rb, kz := newFakeGateway(), newFakeGateway()
	rb.collection["salesreturn"] = []entity.Document{salesReturn("1", nil, 100)}
	repo := memory.NewCheckRunRepository()
	summarizer := &fakeSummarizer{}
	svc := newService(t, map[entity.Region]*fakeGateway{entity.RegionRB: rb, entity.RegionKZ: kz},
		check.WithRepository(repo), check.WithNotifier(summarizer))

	out, err := svc.RunRegions(context.Background(), nil, day, day)
	require.NoError(t, err)
	assert.Len(t, out[entity.RegionRB], 7)
	assert.Len(t, out[entity.RegionKZ], 4)

	assert.Len(t, summarizer.summaries[entity.RegionRB], 7)
	assert.Len(t, summarizer.summaries[entity.RegionKZ], 4)
	assert.Empty(t, summarizer.sent)

	runs, err := repo.List(context.Background(), entity.CheckRunFilter{Limit: 100})
	require.NoError(t, err)
	assert.Len(t, runs, 11)
}

func TestService_RunRegionsRejectsUnknownRegion(t *testing.T) {
	svc := newService(t, map[entity.Region]*fakeGateway{entity.RegionRB: newFakeGateway()})
	_, err := svc.RunRegions(context.Background(), []entity.Region{entity.RegionRB, entity.RegionRF}, day, day)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Equal(t, []entity.Region{entity.RegionRB}, svc.Regions())
}

type fakeRenderer struct{ runs []string }

func (r *fakeRenderer) RenderRun(_ context.Context, run *entity.CheckRun) ([]byte, error) {
	r.runs = append(r.runs, run.ID)
	return []byte("%PDF-1.3"), nil
}

func TestService_RunPDF(t *testing.T) {
	repo := memory.NewCheckRunRepository()
	renderer := &fakeRenderer{}
	svc := newService(t, map[entity.Region]*fakeGateway{entity.RegionRB: newFakeGateway()},
		check.WithRepository(repo), check.WithRenderer(renderer))

	run, err := svc.RunCheck(context.Background(), entity.DocContractor, entity.RegionRB, day, day)
	require.NoError(t, err)

	out, got, err := svc.RunPDF(context.Background(), run.ID)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.3", string(out))
	assert.Equal(t, run.ID, got.ID)
	assert.Equal(t, []string{run.ID}, renderer.runs)

	_, _, err = svc.RunPDF(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
