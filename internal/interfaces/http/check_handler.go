package http

import (
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/moysklad-audit/internal/application/check"
	"github.com/jhoicas/moysklad-audit/internal/application/dto"
	"github.com/jhoicas/moysklad-audit/internal/domain"
	"github.com/jhoicas/moysklad-audit/internal/domain/entity"
	"github.com/jhoicas/moysklad-audit/internal/infrastructure/pdf"
)

// CheckHandler maneja las peticiones HTTP de auditoría (protegido).
type CheckHandler struct {
	svc *check.Service
	loc *time.Location
	now func() time.Time
}

// NewCheckHandler construye el handler. loc: zona en la que se interpretan las fechas.
func NewCheckHandler(svc *check.Service, loc *time.Location) *CheckHandler {
	if loc == nil {
		loc = time.UTC
	}
	return &CheckHandler{svc: svc, loc: loc, now: time.Now}
}

// parsePeriod fechas YYYY-MM-DD; sin fechas = ayer, con una sola = ese día.
func (h *CheckHandler) parsePeriod(fromStr, toStr string) (time.Time, time.Time, error) {
	if fromStr == "" && toStr == "" {
		from, to := check.DefaultPeriod(h.now().In(h.loc))
		return from, to, nil
	}
	if fromStr == "" {
		fromStr = toStr
	}
	if toStr == "" {
		toStr = fromStr
	}
	from, err := time.ParseInLocation(time.DateOnly, fromStr, h.loc)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: date_from debe tener formato YYYY-MM-DD", domain.ErrInvalidInput)
	}
	to, err := time.ParseInLocation(time.DateOnly, toStr, h.loc)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: date_to debe tener formato YYYY-MM-DD", domain.ErrInvalidInput)
	}
	return from, to, nil
}

func errorStatus(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: err.Error()})
	case errors.Is(err, domain.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Code: "NOT_FOUND", Message: "ejecución no encontrada"})
	}
	return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: err.Error()})
}

// Run audita un tipo de documento en una región. Los fallos de la API llegan en report.status.
// POST /api/checks
func (h *CheckHandler) Run(c *fiber.Ctx) error {
	var in dto.RunCheckRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	typ, err := entity.ParseDocumentType(in.DocumentType)
	if err != nil {
		return errorStatus(c, err)
	}
	region, err := entity.ParseRegion(in.Region)
	if err != nil {
		return errorStatus(c, err)
	}
	from, to, err := h.parsePeriod(in.DateFrom, in.DateTo)
	if err != nil {
		return errorStatus(c, err)
	}

	run, err := h.svc.RunCheck(c.UserContext(), typ, region, from, to)
	if err != nil {
		return errorStatus(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.NewCheckRunResponse(run))
}

// RunAll audita todos los tipos en las regiones pedidas, en paralelo por región.
// POST /api/checks/all
func (h *CheckHandler) RunAll(c *fiber.Ctx) error {
	var in dto.RunAllRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&in); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
		}
	}
	regions := make([]entity.Region, 0, len(in.Regions))
	for _, r := range in.Regions {
		region, err := entity.ParseRegion(r)
		if err != nil {
			return errorStatus(c, err)
		}
		regions = append(regions, region)
	}
	from, to, err := h.parsePeriod(in.DateFrom, in.DateTo)
	if err != nil {
		return errorStatus(c, err)
	}

	byRegion, err := h.svc.RunRegions(c.UserContext(), regions, from, to)
	if err != nil {
		return errorStatus(c, err)
	}
	out := dto.RunAllResponse{Regions: make(map[string][]dto.CheckRunSummary, len(byRegion))}
	for region, runs := range byRegion {
		items := make([]dto.CheckRunSummary, len(runs))
		for i, run := range runs {
			items[i] = dto.NewCheckRunSummary(run)
		}
		out.Regions[string(region)] = items
	}
	return c.Status(fiber.StatusCreated).JSON(out)
}

// List historial de ejecuciones, filtrable por región y tipo.
// GET /api/checks?region=RB&document_type=shipments&limit=20&offset=0
func (h *CheckHandler) List(c *fiber.Ctx) error {
	var page dto.PageRequest
	if err := c.QueryParser(&page); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "paginación inválida"})
	}
	page.DefaultPage()

	filter := entity.CheckRunFilter{Limit: page.Limit, Offset: page.Offset}
	if r := c.Query("region"); r != "" {
		region, err := entity.ParseRegion(r)
		if err != nil {
			return errorStatus(c, err)
		}
		filter.Region = region
	}
	if t := c.Query("document_type"); t != "" {
		typ, err := entity.ParseDocumentType(t)
		if err != nil {
			return errorStatus(c, err)
		}
		filter.DocumentType = typ
	}

	runs, err := h.svc.Runs(c.UserContext(), filter)
	if err != nil {
		return errorStatus(c, err)
	}
	items := make([]dto.CheckRunSummary, len(runs))
	for i, run := range runs {
		items[i] = dto.NewCheckRunSummary(run)
	}
	return c.JSON(dto.CheckRunListResponse{Items: items, Page: dto.PageResponse{Limit: page.Limit, Offset: page.Offset}})
}

// GetByID detalle completo de una ejecución.
// GET /api/checks/:id
func (h *CheckHandler) GetByID(c *fiber.Ctx) error {
	run, err := h.svc.Run(c.UserContext(), c.Params("id"))
	if err != nil {
		return errorStatus(c, err)
	}
	return c.JSON(dto.NewCheckRunResponse(run))
}

// PDF informe imprimible de una ejecución.
// GET /api/checks/:id/pdf
func (h *CheckHandler) PDF(c *fiber.Ctx) error {
	body, run, err := h.svc.RunPDF(c.UserContext(), c.Params("id"))
	if err != nil {
		return errorStatus(c, err)
	}
	c.Set(fiber.HeaderContentType, "application/pdf")
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="%s"`, pdf.Filename(run)))
	return c.Send(body)
}
