package audit

import (
	"strings"

	"github.com/jhoicas/moysklad-audit/internal/domain/entity"
)

// phoneFormat prefijos admitidos y longitud exacta por región.
type phoneFormat struct {
	prefixes    []string
	prefixLabel string
	length      int
}

var phoneFormats = map[entity.Region]phoneFormat{
	entity.RegionRB: {prefixes: []string{"375"}, prefixLabel: "375", length: 12},
	entity.RegionRF: {prefixes: []string{"7", "8"}, prefixLabel: "7", length: 11},
	entity.RegionKZ: {prefixes: []string{"7"}, prefixLabel: "7", length: 11},
}

func checkPhone(s *subject) Outcome {
	raw := ExtractPhone(s.doc)
	if raw == "" {
		return Fail("Телефон не указан")
	}
	digits := OnlyDigits(raw)
	if digits == "" {
		return Failf("Телефон содержит недопустимые символы: %s", raw)
	}

	format, ok := phoneFormats[s.e.region]
	if !ok {
		switch {
		case len(digits) < 10:
			return Failf("Номер слишком короткий: %d цифр", len(digits))
		case len(digits) > 15:
			return Failf("Номер слишком длинный: %d цифр", len(digits))
		}
		return Pass()
	}
	if !hasAnyPrefix(digits, format.prefixes) {
		return Failf("Номер должен начинаться с %s: %s", format.prefixLabel, raw)
	}
	if len(digits) != format.length {
		return Failf("Неверная длина номера: %d цифр (должно быть %d)", len(digits), format.length)
	}
	return Pass()
}

func hasAnyPrefix(s string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}

func checkTaxID(s *subject) Outcome {
	ct := s.companyTypeOf()
	if !ct.IsBusiness() {
		return Skip("not a business counterparty")
	}
	raw, ok := ExtractTaxID(s.doc)
	if !ok {
		return Fail("УНП/ИНН не заполнен")
	}
	digits := OnlyDigits(raw)

	switch s.e.region {
	case entity.RegionRB:
		if len(digits) != 9 {
			return Failf("Неверная длина УНП для РБ: %d цифр (должно быть 9)", len(digits))
		}
	case entity.RegionRF:
		if ct == entity.CompanyLegal && len(digits) != 10 {
			return Failf("Неверная длина ИНН для юр. лица в РФ: %d цифр (должно быть 10)", len(digits))
		}
		if ct == entity.CompanyEntrepreneur && len(digits) != 12 {
			return Failf("Неверная длина ИНН для ИП в РФ: %d цифр (должно быть 12)", len(digits))
		}
	}
	if digits == "" {
		return Failf("УНП/ИНН содержит недопустимые символы: %s", raw)
	}
	return Pass()
}

var pdAgreementValues = map[string]bool{
	"принял согласие":   true,
	"принял соглашение": true,
}

// onlyRBIndividual reglas de datos personales: solo personas físicas en RB.
func onlyRBIndividual(s *subject) (Outcome, bool) {
	if s.e.region != entity.RegionRB {
		return Skip("region"), false
	}
	if s.companyTypeOf() != entity.CompanyIndividual {
		return Skip("not an individual"), false
	}
	return Outcome{}, true
}

func checkPDAgreement(s *subject) Outcome {
	if out, ok := onlyRBIndividual(s); !ok {
		return out
	}
	attr, ok := FindAttribute(s.doc, pdAgreementAttr)
	if !ok {
		return Fail("Поле 'Соглашение политики ПД' не найдено")
	}
	if !attr.Filled() {
		return Fail("Поле не заполнено")
	}
	value := attr.Text()
	if pdAgreementValues[strings.ToLower(value)] {
		return Pass()
	}
	return Failf("Неверное значение: '%s' (должно быть 'Принял согласие' или 'Принял соглашение')", value)
}

// pdMinValidityDays margen mínimo de vigencia del acuerdo de datos personales.
const pdMinValidityDays = 30

func checkPDAgreementDate(s *subject) Outcome {
	if out, ok := onlyRBIndividual(s); !ok {
		return out
	}
	attr, ok := FindAttribute(s.doc, pdDateAttr)
	if !ok {
		return Fail("Поле 'Дата окончания соглашения ПД' не найдено")
	}
	if !attr.Filled() {
		return Fail("Поле не заполнено")
	}
	raw := attr.Text()
	end, ok := entity.ParseMoment(raw, s.e.loc)
	if !ok {
		return Failf("Неверный формат даты: %s", raw)
	}
	end = truncateDay(end)
	if end.Before(s.e.today().AddDate(0, 0, pdMinValidityDays)) {
		return Failf("Дата окончания соглашения ПД (%s) меньше чем через месяц от текущей даты", end.Format("2006-01-02"))
	}
	return Pass()
}

func checkActualAddress(s *subject) Outcome {
	if s.companyTypeOf() != entity.CompanyLegal {
		return Skip("not a legal entity")
	}
	address := s.doc.Str("actualAddress")
	if address == "" {
		obj := s.doc.Object("actualAddress")
		address = orDefault(obj.Str("fullAddress"), obj.Str("present"))
	}
	if address == "" {
		return Fail("Фактический адрес не заполнен")
	}
	return Pass()
}

func checkGroups(s *subject) Outcome {
	if s.companyTypeOf() != entity.CompanyLegal {
		return Skip("not a legal entity")
	}
	if len(s.doc.List("tags")) == 0 {
		return Fail("Группа (тег) не указана")
	}
	return Pass()
}

func checkTypeNameConsistency(s *subject) Outcome {
	name := strings.ToLower(s.doc.Name())
	switch s.companyTypeOf() {
	case entity.CompanyLegal:
		if strings.Contains(name, "индивидуальный предприниматель") || hasToken(name, "ип") {
			return Fail("Несоответствие: тип 'Юридическое лицо', но в наименовании указано 'Индивидуальный предприниматель'")
		}
		return Pass()
	case entity.CompanyIndividual:
		if hasToken(name, "ооо") || hasToken(name, "оао") {
			return Fail("Несоответствие: тип 'Физическое лицо', но в наименовании указано 'ООО/ОАО'")
		}
		return Pass()
	}
	return Skip("company type")
}

// directoryCheck campo de catálogo obligatorio para toda contraparte en las regiones dadas.
// Vale una referencia (con href o nombre) o un texto no vacío.
func directoryCheck(label string, match NameMatcher, regions ...entity.Region) func(*subject) Outcome {
	return func(s *subject) Outcome {
		if !regionIn(s.e.region, regions) {
			return Skip("region")
		}
		attr, ok := FindAttribute(s.doc, match)
		if !ok {
			return Failf("%s не найден", label)
		}
		if !attr.Filled() {
			return Failf("%s не заполнен", label)
		}
		return Pass()
	}
}

func regionIn(r entity.Region, regions []entity.Region) bool {
	for _, x := range regions {
		if x == r {
			return true
		}
	}
	return false
}
