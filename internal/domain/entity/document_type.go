package entity

import (
	"fmt"
	"strings"

	"github.com/jhoicas/moysklad-audit/internal/domain"
)

// DocumentType tipo de documento auditado.
type DocumentType string

const (
	DocContractor        DocumentType = "contractors"
	DocShipment          DocumentType = "shipments"
	DocRetailSale        DocumentType = "sales"
	DocConsignmentIn     DocumentType = "commission"
	DocSalesReturn       DocumentType = "salesReturns"
	DocRetailReturn      DocumentType = "retailReturns"
	DocConsignmentReturn DocumentType = "commissionReturns"
)

type documentTypeInfo struct {
	resource string // recurso remoto: /entity/{resource}
	expand   string
	label    string
	// lazyPositions: las posiciones se piden por documento (/entity/{resource}/{id}/positions).
	lazyPositions bool
}

var documentTypes = map[DocumentType]documentTypeInfo{
	DocContractor:        {resource: "counterparty", expand: "owner", label: "Контрагенты"},
	DocShipment:          {resource: "demand", expand: "owner,salesChannel,agent,contract", label: "Отгрузки", lazyPositions: true},
	DocRetailSale:        {resource: "retaildemand", expand: "positions,owner,salesChannel,agent", label: "Продажи"},
	DocConsignmentIn:     {resource: "commissionreportin", expand: "positions,owner,salesChannel,agent,contract", label: "Отчеты комиссионеров"},
	DocSalesReturn:       {resource: "salesreturn", expand: "positions,owner,salesChannel,agent,contract", label: "Возвраты покупателей"},
	DocRetailReturn:      {resource: "retailsalesreturn", expand: "positions,owner,salesChannel,agent", label: "Возвраты розницы"},
	DocConsignmentReturn: {resource: "commissionreportout", expand: "positions,owner,salesChannel,agent,contract", label: "Возвраты комиссионеров"},
}

// DocumentTypes orden de ejecución de una auditoría completa.
func DocumentTypes() []DocumentType {
	return []DocumentType{
		DocContractor, DocShipment, DocConsignmentIn, DocRetailSale,
		DocSalesReturn, DocRetailReturn, DocConsignmentReturn,
	}
}

// ParseDocumentType acepta el nombre externo ("shipments") o el recurso remoto ("demand").
func ParseDocumentType(s string) (DocumentType, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	for t, info := range documentTypes {
		if strings.ToLower(string(t)) == key || info.resource == key {
			return t, nil
		}
	}
	return "", fmt.Errorf("%w: tipo de documento desconocido %q", domain.ErrInvalidInput, s)
}

func (t DocumentType) Valid() bool {
	_, ok := documentTypes[t]
	return ok
}

// Resource recurso remoto del tipo.
func (t DocumentType) Resource() string { return documentTypes[t].resource }

// Expand referencias que se expanden en la consulta.
func (t DocumentType) Expand() string { return documentTypes[t].expand }

// Label nombre visible en informes y notificaciones.
func (t DocumentType) Label() string {
	if l := documentTypes[t].label; l != "" {
		return l
	}
	return string(t)
}

func (t DocumentType) LazyPositions() bool { return documentTypes[t].lazyPositions }

// IsReturn tipos de devolución (solo se auditan en RB y RF).
func (t DocumentType) IsReturn() bool {
	return t == DocSalesReturn || t == DocRetailReturn || t == DocConsignmentReturn
}

// Region cuenta regional de MoySklad.
type Region string

const (
	RegionRB Region = "RB"
	RegionRF Region = "RF"
	RegionKZ Region = "KZ"
)

// Regions regiones soportadas.
func Regions() []Region { return []Region{RegionRB, RegionRF, RegionKZ} }

// ParseRegion acepta RB/RF/KZ y los alias BY/RU.
func ParseRegion(s string) (Region, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "RB", "BY":
		return RegionRB, nil
	case "RF", "RU":
		return RegionRF, nil
	case "KZ":
		return RegionKZ, nil
	}
	return "", fmt.Errorf("%w: región no soportada %q", domain.ErrInvalidInput, s)
}

func (r Region) Label() string {
	switch r {
	case RegionRB:
		return "Беларусь"
	case RegionRF:
		return "Россия"
	case RegionKZ:
		return "Казахстан"
	}
	return string(r)
}

// AuditsReturns indica si en la región se auditan las devoluciones.
func (r Region) AuditsReturns() bool { return r == RegionRB || r == RegionRF }

// CompanyType forma jurídica de la contraparte.
type CompanyType string

const (
	CompanyUnknown      CompanyType = ""
	CompanyLegal        CompanyType = "legal"
	CompanyEntrepreneur CompanyType = "entrepreneur"
	CompanyIndividual   CompanyType = "individual"
)

// ParseCompanyType acepta los códigos de la API y las etiquetas en ruso de los atributos.
func ParseCompanyType(s string) CompanyType {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "legal", "юридическое лицо", "юрлицо", "юл":
		return CompanyLegal
	case "entrepreneur", "индивидуальный предприниматель", "ип":
		return CompanyEntrepreneur
	case "individual", "физическое лицо", "физлицо", "фл":
		return CompanyIndividual
	}
	return CompanyUnknown
}

// IsBusiness persona jurídica o empresario individual.
func (c CompanyType) IsBusiness() bool {
	return c == CompanyLegal || c == CompanyEntrepreneur
}
