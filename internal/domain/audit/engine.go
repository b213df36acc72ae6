package audit

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/jhoicas/moysklad-audit/internal/domain/entity"
)

// DefaultContactCenter nombre del empleado "Контакт-Центр".
const DefaultContactCenter = "Контакт-Центр"

// OwnerUnspecified nombre usado cuando el responsable no se puede resolver.
const OwnerUnspecified = "Не указан"

// Resolver resuelve referencias remotas (responsable, contraparte, contrato, posiciones).
// Los fallos de red se tratan como dato ausente.
type Resolver interface {
	OwnerName(ctx context.Context, ref entity.Reference) (name, id string)
	ReferenceName(ctx context.Context, ref entity.Reference) string
	CompanyType(ctx context.Context, d entity.Document) entity.CompanyType
	Contract(ctx context.Context, ref entity.Reference) (entity.Document, bool)
	Positions(ctx context.Context, d entity.Document, lazy bool) []entity.Document
}

// Engine evalúa documentos contra las reglas de una región.
type Engine struct {
	region        entity.Region
	resolver      Resolver
	contactCenter string
	appHost       string
	now           func() time.Time
	loc           *time.Location
	log           zerolog.Logger
}

// Option configura el Engine.
type Option func(*Engine)

func WithClock(now func() time.Time) Option { return func(e *Engine) { e.now = now } }

func WithLocation(loc *time.Location) Option {
	return func(e *Engine) {
		if loc != nil {
			e.loc = loc
		}
	}
}

func WithLogger(l zerolog.Logger) Option { return func(e *Engine) { e.log = l } }

func WithContactCenter(name string) Option {
	return func(e *Engine) {
		if name != "" {
			e.contactCenter = name
		}
	}
}

func WithAppHost(host string) Option { return func(e *Engine) { e.appHost = host } }

// NewEngine crea un evaluador para la región. Con resolver nil solo se usan datos embebidos.
func NewEngine(region entity.Region, resolver Resolver, opts ...Option) *Engine {
	if resolver == nil {
		resolver = InlineResolver{}
	}
	e := &Engine{
		region:        region,
		resolver:      resolver,
		contactCenter: DefaultContactCenter,
		appHost:       DefaultAppHost,
		now:           time.Now,
		loc:           time.UTC,
		log:           zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) Region() entity.Region { return e.region }

// today fecha actual (medianoche) en la zona configurada.
func (e *Engine) today() time.Time {
	return truncateDay(e.now().In(e.loc))
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// Verdict resultado de evaluar un documento.
type Verdict struct {
	// Excluded el documento queda fuera de la auditoría (no cuenta como válido ni con errores).
	Excluded      bool
	ExcludeReason string
	Outcomes      []RuleOutcome
	Report        entity.DocumentError
}

// Valid sin hallazgos.
func (v Verdict) Valid() bool { return !v.Excluded && len(v.Report.Issues) == 0 }

// Outcome resultado de una regla por clave ("phone", "payment"...).
func (v Verdict) Outcome(key string) (Outcome, bool) {
	for _, ro := range v.Outcomes {
		if ro.Rule == key {
			return ro.Outcome, true
		}
	}
	return Outcome{}, false
}

// subject estado de evaluación de un documento: memoiza tipo de contraparte y contrato.
type subject struct {
	ctx context.Context
	e   *Engine
	typ entity.DocumentType
	doc entity.Document

	companyType    *entity.CompanyType
	contract       entity.Document
	contractLoaded bool
	failed         map[string]bool
}

func (s *subject) companyTypeOf() entity.CompanyType {
	if s.companyType == nil {
		ct := s.e.resolver.CompanyType(s.ctx, s.doc)
		s.companyType = &ct
	}
	return *s.companyType
}

// contractRef referencia al contrato si el campo estándar existe.
func (s *subject) contractRef() (entity.Reference, bool) {
	return s.doc.Ref("contract")
}

// contractDoc contrato completo (una consulta por documento como máximo).
func (s *subject) contractDoc() (entity.Document, bool) {
	if !s.contractLoaded {
		s.contractLoaded = true
		if ref, ok := s.contractRef(); ok && ref.Href != "" {
			s.contract, _ = s.e.resolver.Contract(s.ctx, ref)
		}
	}
	return s.contract, s.contract != nil
}

// Excluded filtros por región previos a las reglas.
func (e *Engine) Excluded(typ entity.DocumentType, d entity.Document) (bool, string) {
	if e.region == entity.RegionKZ && typ == entity.DocShipment {
		if strings.Contains(strings.ToLower(d.Str("description")), "kaspi") {
			return true, "kaspi"
		}
	}
	return false, ""
}

// Evaluate aplica todas las reglas del tipo al documento. Ninguna regla interrumpe a otra.
func (e *Engine) Evaluate(ctx context.Context, typ entity.DocumentType, d entity.Document) Verdict {
	if excluded, reason := e.Excluded(typ, d); excluded {
		e.log.Debug().Str("document", d.Name()).Str("reason", reason).Msg("documento excluido")
		return Verdict{Excluded: true, ExcludeReason: reason}
	}

	s := &subject{ctx: ctx, e: e, typ: typ, doc: d, failed: make(map[string]bool)}
	rules := Pipeline(typ)
	v := Verdict{Outcomes: make([]RuleOutcome, 0, len(rules)), Report: e.header(s)}

	for _, r := range rules {
		var out Outcome
		if r.UnlessFailed != "" && s.failed[r.UnlessFailed] {
			out = Skip(r.UnlessFailed + " failed")
		} else {
			out = e.run(r, s)
		}
		v.Outcomes = append(v.Outcomes, RuleOutcome{Rule: r.Key, Outcome: out})
		if !out.Failed() {
			continue
		}
		s.failed[r.Key] = true
		e.collect(s, &v.Report, r, out)
	}
	return v
}

// run ejecuta una regla; un panic por datos inesperados se registra y se trata como dato ausente.
func (e *Engine) run(r Rule, s *subject) (out Outcome) {
	defer func() {
		if rec := recover(); rec != nil {
			e.log.Warn().Str("rule", r.Key).Str("document", s.doc.Name()).
				Str("panic", fmt.Sprint(rec)).Msg("error de acceso a datos, se omite la regla")
			out = Skip("data access error")
		}
	}()
	return r.Check(s)
}

func (e *Engine) collect(s *subject, report *entity.DocumentError, r Rule, out Outcome) {
	add := func(issue entity.IssueRecord) {
		report.Issues = append(report.Issues, issue)
		if s.typ == entity.DocContractor {
			return
		}
		if r.Group == GroupContract {
			report.ContractIssues = append(report.ContractIssues, issue.String())
		} else {
			report.MainIssues = append(report.MainIssues, issue.String())
		}
	}

	if len(out.Prices) > 0 {
		report.PriceErrors = append(report.PriceErrors, out.Prices...)
		for _, p := range out.Prices {
			add(entity.IssueRecord{
				Category: fmt.Sprintf("Позиция '%s'", p.Product),
				Message:  fmt.Sprintf("%s, цена=%s, кол-во=%s", p.Issue, p.Price.String(), p.Quantity.String()),
			})
		}
		return
	}
	if report.Fields == nil {
		report.Fields = make(map[string]string)
	}
	report.Fields[r.ErrorKey()] = strings.Join(out.Messages, "; ")
	for _, m := range out.Messages {
		add(entity.IssueRecord{Category: r.Category, Message: m})
	}
}

// header datos de cabecera del informe del documento.
func (e *Engine) header(s *subject) entity.DocumentError {
	d := s.doc
	report := entity.DocumentError{
		ID:     orDefault(d.ID(), "Без ID"),
		Name:   orDefault(d.Name(), "Без названия"),
		Moment: d.Str("moment"),
		Link:   BuildLink(e.appHost, d, s.typ.Resource()),
	}

	ownerRef, _ := d.Ref("owner")
	report.Owner, report.OwnerID = e.resolver.OwnerName(s.ctx, ownerRef)

	if s.typ == entity.DocContractor {
		report.CompanyType = s.companyTypeOf()
		return report
	}
	agent, _ := d.Ref("agent")
	report.Counterparty = orDefault(strings.TrimSpace(agent.Name), "Без контрагента")
	report.DisplayName = fmt.Sprintf("%s (%s)", report.Name, report.Counterparty)
	return report
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
