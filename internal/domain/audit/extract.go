package audit

import (
	"strings"

	"github.com/jhoicas/moysklad-audit/internal/domain/entity"
)

// Accessor estrategia de lectura de un valor textual; las listas se evalúan en orden
// y gana el primer valor no vacío.
type Accessor struct {
	Source string
	Get    func(entity.Document) string
}

// Field campo estándar del documento.
func Field(key string) Accessor {
	return Accessor{Source: key, Get: func(d entity.Document) string { return d.Str(key) }}
}

// Nested campo dentro de un objeto anidado (requisites.unp).
func Nested(obj, key string) Accessor {
	return Accessor{Source: obj + "." + key, Get: func(d entity.Document) string { return d.Object(obj).Str(key) }}
}

// RefName nombre de una referencia embebida (salesChannel.name).
func RefName(key string) Accessor {
	return Accessor{Source: key + ".name", Get: func(d entity.Document) string {
		ref, _ := d.Ref(key)
		return strings.TrimSpace(ref.Name)
	}}
}

// AttributeValue primer atributo con nombre coincidente y valor no vacío.
func AttributeValue(match NameMatcher) Accessor {
	return Accessor{Source: "attributes", Get: func(d entity.Document) string {
		for _, a := range d.Attributes() {
			if !match(Normalize(a.Name)) {
				continue
			}
			if v := a.Text(); v != "" {
				return v
			}
		}
		return ""
	}}
}

// FirstOf aplica la lista de accesores y devuelve el primer valor encontrado.
func FirstOf(d entity.Document, accessors []Accessor) (value, source string, ok bool) {
	for _, acc := range accessors {
		if v := acc.Get(d); v != "" {
			return v, acc.Source, true
		}
	}
	return "", "", false
}

var (
	phoneAccessors = []Accessor{
		Field("phone"),
		AttributeValue(Contains("тел")),
	}

	taxIDAccessors = []Accessor{
		Field("unp"),
		Field("inn"),
		Field("taxNumber"),
		Nested("requisites", "unp"),
		Nested("requisites", "inn"),
		Nested("requisites", "УНП"),
		Field("code"),
		AttributeValue(Contains("унп", "инн", "идентификационный номер")),
	}

	channelAttribute     = Exact("Канал продаж", "Канал продажи")
	contractTypeAttr     = Exact("Тип договора", "Тип договор")
	clientTypeAttr       = Exact("Тип клиента", "Тип клиент")
	regionAttr           = Exact("Регион РБ", "Регион")
	pdAgreementAttr      = Contains("Соглашение политики ПД")
	pdDateAttr           = Contains("Дата окончания соглашения ПД")
	companyTypeAttr      = Contains("тип контрагента", "companytype")
	employeeAttr         = Contains("сотрудник")
	sourceAttr           = ContainsAll("источник", "продаж")
	contractAttr         = Except(Contains("договор", "contract"), "тип")
	contractConditionAtt = Exact("Условие договора", "Условие")
	contractScanAttr     = Exact("Скан договора", "Скан д", "Скан")
	paymentMethodAttr    = Exact("Метод расчета", "Метод оплаты")
)

// ExtractPhone teléfono: campo estándar y, si falta, atributo cuyo nombre contiene "тел".
func ExtractPhone(d entity.Document) string {
	v, _, _ := FirstOf(d, phoneAccessors)
	return v
}

// ExtractTaxID УНП/ИНН desde campos estándar, requisitos, código o atributos.
func ExtractTaxID(d entity.Document) (string, bool) {
	v, _, ok := FirstOf(d, taxIDAccessors)
	return v, ok
}

// FindAttribute primer atributo cuyo nombre coincide (lleno o no).
func FindAttribute(d entity.Document, match NameMatcher) (entity.Attribute, bool) {
	for _, a := range d.Attributes() {
		if match(Normalize(a.Name)) {
			return a, true
		}
	}
	return entity.Attribute{}, false
}

// ExtractAttributeValue valor textual del primer atributo coincidente.
func ExtractAttributeValue(d entity.Document, match NameMatcher) (string, bool) {
	a, ok := FindAttribute(d, match)
	if !ok {
		return "", false
	}
	return a.Text(), true
}

// FieldState resultado de buscar un campo con varias ubicaciones posibles.
type FieldState int

const (
	FieldMissing FieldState = iota
	FieldEmpty
	FieldFilled
)

// FieldValue valor localizado, su estado y de dónde salió.
type FieldValue struct {
	State  FieldState
	Text   string
	Source string
}

// ExtractSalesChannel canal de venta: campo salesChannel (referencia o texto) o atributo "Канал продаж".
func ExtractSalesChannel(d entity.Document) FieldValue {
	if d.Has("salesChannel") {
		if ref, ok := d.Ref("salesChannel"); ok {
			if ref.Filled() {
				return FieldValue{State: FieldFilled, Text: strings.TrimSpace(ref.Name), Source: "salesChannel"}
			}
			return FieldValue{State: FieldEmpty, Source: "salesChannel"}
		}
		if s := d.Str("salesChannel"); s != "" {
			return FieldValue{State: FieldFilled, Text: s, Source: "salesChannel"}
		}
		return FieldValue{State: FieldEmpty, Source: "salesChannel:text"}
	}
	if a, ok := FindAttribute(d, channelAttribute); ok {
		if a.Filled() {
			return FieldValue{State: FieldFilled, Text: a.Text(), Source: "attributes"}
		}
		return FieldValue{State: FieldEmpty, Source: "attributes"}
	}
	return FieldValue{State: FieldMissing}
}

// ChannelName nombre del canal de venta (vacío si no hay nombre legible).
func ChannelName(d entity.Document) string {
	if name := RefName("salesChannel").Get(d); name != "" {
		return name
	}
	if s := d.Str("salesChannel"); s != "" {
		return s
	}
	v, _ := ExtractAttributeValue(d, channelAttribute)
	return v
}

// InlineCompanyType tipo de contraparte sin consultas: campo propio (contrapartes) o agent embebido.
func InlineCompanyType(d entity.Document) entity.CompanyType {
	if ct := entity.ParseCompanyType(d.Str("companyType")); ct != entity.CompanyUnknown {
		return ct
	}
	return entity.ParseCompanyType(d.Object("agent").Str("companyType"))
}

// AttributeCompanyType tipo de contraparte declarado en un atributo del documento.
func AttributeCompanyType(d entity.Document) entity.CompanyType {
	v, _ := ExtractAttributeValue(d, companyTypeAttr)
	return entity.ParseCompanyType(v)
}
