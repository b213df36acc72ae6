package audit

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/moysklad-audit/internal/domain/entity"
)

// PaymentEpsilon tolerancia de redondeo al comparar importe pagado con el total.
var PaymentEpsilon = decimal.RequireFromString("0.01")

// TermKind estado del plazo de pago derivado de la condición del contrato.
type TermKind int

const (
	// TermUnrecognized condición desconocida: no se verifica el pago.
	TermUnrecognized TermKind = iota
	// TermExempt sin contrato real, patrocinio o comisión.
	TermExempt
	// TermPrepayment pago completo exigido siempre.
	TermPrepayment
	// TermDeferral pago completo exigido solo al superar MaxDays.
	TermDeferral
)

// PaymentTerm condición de pago clasificada.
type PaymentTerm struct {
	Kind      TermKind
	Condition string
	Label     string
	MaxDays   int
}

var exemptConditions = normalizeAll([]string{
	"Без договора",
	"предоставления безвозмездной (спонсорской) помощи",
	"Договор комиссии",
})

// ClassifyCondition clasifica la condición del contrato ("Предоплата", "Отсрочка 16-30 дней"...).
func ClassifyCondition(condition string) PaymentTerm {
	norm := Normalize(condition)
	term := PaymentTerm{Condition: condition}
	for _, ex := range exemptConditions {
		if norm == ex {
			term.Kind = TermExempt
			return term
		}
	}
	switch {
	case norm == "предоплата":
		term.Kind = TermPrepayment
	case strings.Contains(norm, "отсрочка1630"):
		term.Kind, term.Label, term.MaxDays = TermDeferral, "Отсрочка 16-30 дней", 30
	case strings.Contains(norm, "отсрочка3060"):
		term.Kind, term.Label, term.MaxDays = TermDeferral, "Отсрочка 30-60 дней", 60
	case strings.Contains(norm, "отсрочка60") && strings.Contains(norm, "более"):
		term.Kind, term.Label, term.MaxDays = TermDeferral, "Отсрочка 60+ дней", 61
	}
	return term
}

// Assess aplica el plazo a un documento con importe sum, pagado payed y daysElapsed días desde su fecha.
func (t PaymentTerm) Assess(sum, payed decimal.Decimal, daysElapsed int) Outcome {
	underpaid := payed.Add(PaymentEpsilon).LessThan(sum)
	switch t.Kind {
	case TermExempt:
		return Skip("exempt contract condition")
	case TermPrepayment:
		if underpaid {
			return Failf("Условие договора '%s': требуется 100%% оплата. Оплачено: %s, требуется: %s",
				t.Condition, payed.StringFixed(2), sum.StringFixed(2))
		}
		return Pass()
	case TermDeferral:
		if daysElapsed > t.MaxDays && underpaid {
			return Failf("%s истекла (прошло %d дней). Оплачено: %s, требуется: %s",
				t.Label, daysElapsed, payed.StringFixed(2), sum.StringFixed(2))
		}
		return Pass()
	}
	return Skip("unrecognized contract condition")
}

// amounts importe total y pagado en unidades monetarias (la API devuelve céntimos).
func amounts(d entity.Document) (sum, payed decimal.Decimal) {
	rawSum, _ := d.Number("sum")
	rawPayed, _ := d.Number("payedSum")
	return rawSum.Div(kopecks), rawPayed.Div(kopecks)
}

// daysBetween días naturales entre la fecha del documento y hoy.
func daysBetween(from, today time.Time) int {
	from = from.In(today.Location())
	a := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, time.UTC)
	b := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, time.UTC)
	return int(b.Sub(a).Hours() / 24)
}

func checkPayment(s *subject) Outcome {
	if s.e.region != entity.RegionRB && s.e.region != entity.RegionRF {
		return Skip("region")
	}
	moment, ok := s.doc.Moment(s.e.loc)
	if !ok {
		return Skip("no document date")
	}
	sum, payed := amounts(s.doc)
	if !sum.IsPositive() {
		return Skip("zero sum")
	}
	contract, ok := s.contractDoc()
	if !ok {
		return Skip("no linked contract")
	}
	condition, ok := ExtractAttributeValue(contract, contractConditionAtt)
	if !ok || condition == "" {
		return Skip("no contract condition")
	}

	term := ClassifyCondition(condition)
	if term.Kind == TermUnrecognized {
		s.e.log.Warn().Str("document", s.doc.Name()).Str("condition", condition).
			Msg("condición de contrato no reconocida, no se verifica el pago")
	}
	return term.Assess(sum, payed, daysBetween(moment, s.e.today()))
}

var allowedPaymentMethods = normalizeAll([]string{"р/с", "р/с предоплата (школа-обучение, аренда)"})

func paymentMethodAllowed(norm string) bool {
	for _, allowed := range allowedPaymentMethods {
		if strings.Contains(norm, allowed) || strings.Contains(allowed, norm) {
			return true
		}
	}
	return false
}

func isPrepaidService(norm string) bool {
	return strings.Contains(norm, "предоплата") &&
		(strings.Contains(norm, "школа") || strings.Contains(norm, "обучение") || strings.Contains(norm, "аренда"))
}

// checkPaymentMethod método de pago de personas jurídicas/ИП en RB.
func checkPaymentMethod(s *subject) Outcome {
	if s.e.region != entity.RegionRB {
		return Skip("region")
	}
	if !s.companyTypeOf().IsBusiness() {
		return Skip("not a business counterparty")
	}
	method, ok := ExtractAttributeValue(s.doc, paymentMethodAttr)
	if !ok || method == "" {
		return Skip("no payment method")
	}
	norm := Normalize(method)
	if norm == "" || !paymentMethodAllowed(norm) {
		return Failf("Для юр. лиц/ИП недопустимый метод расчета: '%s'. Разрешены: р/с, р/с предоплата", method)
	}
	if s.doc.Object("contract") == nil {
		return Failf("Метод расчета '%s' требует наличия договора", method)
	}
	if isPrepaidService(norm) {
		sum, payed := amounts(s.doc)
		if sum.IsPositive() && payed.Add(PaymentEpsilon).LessThan(sum) {
			return Failf("Метод расчета '%s' требует 100%% предоплаты. Оплачено: %s, требуется: %s",
				method, payed.StringFixed(2), sum.StringFixed(2))
		}
	}
	return Pass()
}
