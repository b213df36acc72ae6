package audit

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/moysklad-audit/internal/domain/entity"
)

func checkSalesChannel(s *subject) Outcome {
	ch := ExtractSalesChannel(s.doc)
	switch ch.State {
	case FieldFilled:
		return Pass()
	case FieldEmpty:
		switch ch.Source {
		case "salesChannel":
			return Fail("Поле 'Канал-продаж' не заполнено (salesChannel без meta/name)")
		case "salesChannel:text":
			return Fail("Поле 'Канал-продаж' не заполнено (salesChannel пустой)")
		}
		return Fail("Поле 'Канал-продаж' не заполнено")
	}
	return Fail("Поле 'Канал-продаж' не найдено")
}

// projectName nombre del proyecto; si la referencia no trae nombre se resuelve por href.
func (s *subject) projectName() string {
	if ref, ok := s.doc.Ref("project"); ok {
		if name := strings.TrimSpace(ref.Name); name != "" {
			return name
		}
		if ref.Href != "" {
			return s.e.resolver.ReferenceName(s.ctx, ref)
		}
		return ""
	}
	return s.doc.Str("project")
}

// channelName nombre del canal; igual que el proyecto, se resuelve si solo hay href.
func (s *subject) channelName() string {
	if name := ChannelName(s.doc); name != "" {
		return name
	}
	if ref, ok := s.doc.Ref("salesChannel"); ok && ref.Href != "" {
		return s.e.resolver.ReferenceName(s.ctx, ref)
	}
	return ""
}

func checkProject(s *subject) Outcome {
	channel := s.channelName()
	if channel == "" {
		return Skip("no sales channel")
	}
	allowed, known := AllowedProjects(channel)
	if !known {
		return Skip("unconstrained channel")
	}
	if len(allowed) == 0 {
		return Pass()
	}
	project := s.projectName()
	expected := strings.Join(allowed, ", ")
	if project == "" {
		return Failf("Для канала '%s' должен быть указан проект. Ожидается: %s", channel, expected)
	}
	if !projectAllowed(project, allowed) {
		return Failf("Для канала '%s' указан некорректный проект '%s'. Ожидается: %s", channel, project, expected)
	}
	return Pass()
}

var kopecks = decimal.NewFromInt(100)

func checkZeroPrices(s *subject) Outcome {
	positions := s.e.resolver.Positions(s.ctx, s.doc, s.typ.LazyPositions())
	if len(positions) == 0 {
		return Skip("no positions")
	}
	var issues []entity.PriceIssue
	for _, p := range positions {
		raw, _ := p.Number("price")
		price := raw.Div(kopecks)
		if !price.IsZero() {
			continue
		}
		qty, _ := p.Number("quantity")
		issues = append(issues, entity.PriceIssue{
			Product:  orDefault(p.Object("assortment").Str("name"), "Без названия"),
			Issue:    "Нулевая цена",
			Price:    price,
			Quantity: qty,
		})
	}
	if len(issues) == 0 {
		return Pass()
	}
	return Outcome{Status: Failed, Prices: issues}
}

func checkContractPresence(s *subject) Outcome {
	ct := s.companyTypeOf()
	if ct == entity.CompanyUnknown {
		return Skip("unknown company type")
	}
	if !ct.IsBusiness() {
		return Skip("not a business counterparty")
	}
	if ref, ok := s.contractRef(); ok && ref.Filled() {
		return Pass()
	}
	for _, a := range s.doc.Attributes() {
		if contractAttr(Normalize(a.Name)) && a.Filled() {
			return Pass()
		}
	}
	return Fail("Не указан договор для юрлица/ИП")
}

func checkContractFields(s *subject) Outcome {
	contract, ok := s.contractDoc()
	if !ok {
		return Skip("no linked contract")
	}
	var missing []string
	if contract.Str("contractType") == "" {
		missing = append(missing, "Не указан тип договора")
	}
	scan, found := FindAttribute(contract, contractScanAttr)
	if !found || !scan.IsFile() || !scan.Filled() {
		missing = append(missing, "Не загружен скан договора")
	}
	if len(missing) > 0 {
		return Fail(strings.Join(missing, "; "))
	}
	return Pass()
}

// checkShipmentContractType tipo de contrato obligatorio en envíos de RF a personas jurídicas/ИП.
func checkShipmentContractType(s *subject) Outcome {
	if s.e.region != entity.RegionRF {
		return Skip("region")
	}
	if !s.companyTypeOf().IsBusiness() {
		return Skip("not a business counterparty")
	}
	contract, ok := s.contractDoc()
	if !ok {
		return Skip("no linked contract")
	}
	if contract.Str("contractType") == "" {
		return Fail("Тип договора не заполнен")
	}
	return Pass()
}

// isContactCenter el documento lo lleva el "Контакт-Центр" (responsable o atributo "Сотрудник").
func (s *subject) isContactCenter() bool {
	targets := map[string]bool{Normalize(s.e.contactCenter): true, "контактцентр": true}

	ownerRef, _ := s.doc.Ref("owner")
	owner, _ := s.e.resolver.OwnerName(s.ctx, ownerRef)
	if targets[Normalize(owner)] {
		return true
	}
	for _, a := range s.doc.Attributes() {
		if employeeAttr(Normalize(a.Name)) && targets[Normalize(a.Text())] {
			return true
		}
	}
	return false
}

func checkSalesSource(s *subject) Outcome {
	contactCenter := s.isContactCenter()
	individual := s.companyTypeOf() == entity.CompanyIndividual

	var applies bool
	switch s.typ {
	case entity.DocShipment, entity.DocConsignmentIn:
		applies = contactCenter && individual
	default:
		applies = contactCenter || individual
	}
	if !applies {
		return Skip("not a contact-center sale to an individual")
	}

	attr, ok := FindAttribute(s.doc, sourceAttr)
	if !ok {
		return Fail("Поле 'Источник продажи' не найдено")
	}
	if !attr.Filled() {
		return Fail("Поле 'Источник продажи' не заполнено")
	}
	return Pass()
}
