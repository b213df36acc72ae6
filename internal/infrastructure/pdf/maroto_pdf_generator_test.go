package pdf_test

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/moysklad-audit/internal/domain/entity"
	"github.com/jhoicas/moysklad-audit/internal/infrastructure/pdf"
)

func sampleRun(report entity.PeriodReport) *entity.CheckRun {
	day := time.Date(2024, time.March, 5, 0, 0, 0, 0, time.UTC)
	return &entity.CheckRun{
		ID:           "run-1",
		DocumentType: entity.DocShipment,
		Region:       entity.RegionRB,
		DateFrom:     day,
		DateTo:       day,
		Report:       report,
		StartedAt:    day.Add(30 * time.Hour),
	}
}

func TestRenderRun_WithErrors(t *testing.T) {
	report := entity.PeriodReport{
		Total:  3,
		Valid:  1,
		Status: entity.StatusSuccess,
		Errors: []entity.DocumentError{
			{Name: "00001", Owner: "Ivanov", Issues: []entity.IssueRecord{
				{Category: "Channel", Message: "missing"},
				{Category: "Price", Message: "zero"},
			}},
			{Name: "00002", Owner: "Petrov", Issues: []entity.IssueRecord{{Category: "Contract", Message: "missing"}}},
		},
	}

	out, err := pdf.NewMarotoReportGenerator("").RenderRun(context.Background(), sampleRun(report))
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))
}

func TestRenderRun_Failed(t *testing.T) {
	out, err := pdf.NewMarotoReportGenerator("").RenderRun(context.Background(),
		sampleRun(entity.FailedReport(entity.ErrorKindRateLimited, "rate limited")))
	require.NoError(t, err)
	assert.NotEmpty(t, out)
}

func TestRenderRun_MissingFont(t *testing.T) {
	_, err := pdf.NewMarotoReportGenerator("/nonexistent/font.ttf").RenderRun(context.Background(),
		sampleRun(entity.PeriodReport{Status: entity.StatusSuccess}))
	assert.Error(t, err)
}

func TestFilename(t *testing.T) {
	assert.Equal(t, "audit_RB_shipments_20240305.pdf", pdf.Filename(sampleRun(entity.PeriodReport{})))
}
