// Package pdf genera la versión imprimible de una ejecución de auditoría.
//
// Layout de la página A4:
//
//	┌─────────────────────────────────────────────────────────────┐
//	│  HEADER: Tipo de documento + región │ Periodo + fecha         │
//	│  ─────────────────────────────────────────────────────────  │
//	│  RESUMEN: Всего | Без ошибок | Пропущено | С ошибками | ...  │
//	│  ─────────────────────────────────────────────────────────  │
//	│  TABLA: № | Документ | Ответственный | Замечания             │
//	└─────────────────────────────────────────────────────────────┘
package pdf

import (
	"context"
	"fmt"
	"strconv"

	maroto "github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/row"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/consts/pagesize"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"
	"github.com/johnfercher/maroto/v2/pkg/repository"

	"github.com/jhoicas/moysklad-audit/internal/application/check"
	"github.com/jhoicas/moysklad-audit/internal/domain/entity"
)

var _ check.ReportRenderer = (*MarotoReportGenerator)(nil)

// ── Paleta de colores ─────────────────────────────────────────────────────────

var (
	colorPrimary = &props.Color{Red: 0, Green: 70, Blue: 127}
	colorGray    = &props.Color{Red: 100, Green: 100, Blue: 100}
	colorError   = &props.Color{Red: 180, Green: 30, Blue: 30}
)

const (
	defaultFamily = "helvetica"
	customFamily  = "report"
	issueLine     = 4.0
)

// ── Generator ─────────────────────────────────────────────────────────────────

// MarotoReportGenerator implementa check.ReportRenderer usando Maroto v2.
type MarotoReportGenerator struct {
	fontPath string
}

// NewMarotoReportGenerator construye el generador. fontPath: TTF con cirílico; vacío = helvetica.
func NewMarotoReportGenerator(fontPath string) *MarotoReportGenerator {
	return &MarotoReportGenerator{fontPath: fontPath}
}

// RenderRun genera el PDF de la ejecución y devuelve sus bytes.
func (g *MarotoReportGenerator) RenderRun(_ context.Context, run *entity.CheckRun) ([]byte, error) {
	builder := config.NewBuilder().
		WithPageSize(pagesize.A4).
		WithLeftMargin(10).WithRightMargin(10).
		WithTopMargin(10).WithBottomMargin(10).
		WithTitle("Аудит "+run.DocumentType.Label(), true)

	family := defaultFamily
	if g.fontPath != "" {
		fonts, err := repository.New().
			AddUTF8Font(customFamily, fontstyle.Normal, g.fontPath).
			AddUTF8Font(customFamily, fontstyle.Bold, g.fontPath).
			Load()
		if err != nil {
			return nil, fmt.Errorf("pdf: cargar fuente %s: %w", g.fontPath, err)
		}
		builder = builder.WithCustomFonts(fonts)
		family = customFamily
	}
	cfg := builder.WithDefaultFont(&props.Font{Family: family, Size: 9}).Build()

	m := maroto.New(cfg)

	m.AddRows(headerRow(run))
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.5}))
	m.AddRows(summaryRow(run.Report))
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.3}))

	if run.Report.Failed() {
		m.AddRows(row.New(10).Add(col.New(12).Add(
			text.New(run.Report.ErrorMessage, props.Text{Style: fontstyle.Bold, Size: 10, Color: colorError, Top: 2}),
		)))
	} else {
		m.AddRows(tableHeaderRow())
		m.AddRows(tableRows(run.Report.Errors)...)
	}

	doc, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("pdf: generar documento: %w", err)
	}
	return doc.GetBytes(), nil
}

// Filename nombre sugerido para la descarga.
func Filename(run *entity.CheckRun) string {
	return fmt.Sprintf("audit_%s_%s_%s.pdf", run.Region, run.DocumentType, run.DateFrom.Format("20060102"))
}

// ── Secciones ─────────────────────────────────────────────────────────────────

// headerRow: tipo de documento y región (izq), periodo y fecha de ejecución (der).
func headerRow(run *entity.CheckRun) core.Row {
	period := run.DateFrom.Format("02.01.2006") + " - " + run.DateTo.Format("02.01.2006")
	return row.New(18).Add(
		col.New(7).Add(
			text.New("Мониторинг: "+run.DocumentType.Label(), props.Text{
				Style: fontstyle.Bold, Size: 13, Color: colorPrimary, Top: 1,
			}),
			text.New(fmt.Sprintf("Регион: %s (%s)", run.Region.Label(), run.Region), props.Text{
				Size: 9, Top: 9, Color: colorGray,
			}),
		),
		col.New(5).Add(
			text.New("Период: "+period, props.Text{
				Style: fontstyle.Bold, Size: 9, Align: align.Right, Top: 2,
			}),
			text.New("Проверка: "+run.StartedAt.Format("02.01.2006 15:04"), props.Text{
				Size: 8, Align: align.Right, Top: 9, Color: colorGray,
			}),
		),
	)
}

// summaryRow: contadores del informe.
func summaryRow(r entity.PeriodReport) core.Row {
	cell := func(label string, value int) core.Col {
		return col.New(2).Add(
			text.New(label, props.Text{Size: 7, Align: align.Center, Color: colorGray, Top: 1}),
			text.New(strconv.Itoa(value), props.Text{Style: fontstyle.Bold, Size: 11, Align: align.Center, Top: 5}),
		)
	}
	return row.New(13).Add(
		cell("Всего", r.Total),
		cell("Без ошибок", r.Valid),
		cell("Пропущено", r.Skipped),
		cell("С ошибками", len(r.Errors)),
		cell("Замечаний", r.IssueCount()),
		col.New(2),
	)
}

func tableHeaderRow() core.Row {
	h := func(label string, size int, a align.Type) core.Col {
		return col.New(size).Add(text.New(label, props.Text{
			Style: fontstyle.Bold, Size: 8, Align: a, Color: colorPrimary, Top: 2, Left: 1, Right: 1,
		}))
	}
	return row.New(8).Add(
		h("№", 1, align.Center),
		h("Документ", 3, align.Left),
		h("Ответственный", 2, align.Left),
		h("Замечания", 6, align.Left),
	)
}

// tableRows: una fila por documento; la altura crece con el número de hallazgos.
func tableRows(errs []entity.DocumentError) []core.Row {
	rows := make([]core.Row, 0, len(errs))
	for i, e := range errs {
		issues := e.IssueTexts()
		height := issueLine*float64(max(len(issues), 1)) + 3

		issueCol := col.New(6)
		for j, is := range issues {
			issueCol.Add(text.New("• "+is, props.Text{Size: 7, Top: 1 + issueLine*float64(j), Left: 1}))
		}
		rows = append(rows, row.New(height).Add(
			col.New(1).Add(text.New(strconv.Itoa(i+1), props.Text{Size: 8, Align: align.Center, Top: 1})),
			col.New(3).Add(text.New(e.Label(), props.Text{Size: 8, Top: 1, Left: 1})),
			col.New(2).Add(text.New(e.Owner, props.Text{Size: 8, Top: 1, Left: 1, Color: colorGray})),
			issueCol,
		))
	}
	return rows
}
