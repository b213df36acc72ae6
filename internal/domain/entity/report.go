package entity

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// IssueRecord hallazgo individual: categoría visible + mensaje.
type IssueRecord struct {
	Category string `json:"category"`
	Message  string `json:"message"`
}

// String forma "Categoría: mensaje" usada en listados y notificaciones.
func (i IssueRecord) String() string {
	if i.Category == "" {
		return i.Message
	}
	return i.Category + ": " + i.Message
}

// PriceIssue posición con precio nulo.
type PriceIssue struct {
	Product  string          `json:"product"`
	Issue    string          `json:"issue"`
	Price    decimal.Decimal `json:"price"`
	Quantity decimal.Decimal `json:"quantity"`
}

// DocumentError resultado de un documento con al menos un hallazgo.
type DocumentError struct {
	ID           string
	Name         string
	DisplayName  string
	Counterparty string
	Owner        string
	OwnerID      string
	CompanyType  CompanyType
	Moment       string
	Link         string
	// Fields mensaje por regla, con clave "<regla>_error" (phone_error, payment_error...).
	Fields         map[string]string
	PriceErrors    []PriceIssue
	Issues         []IssueRecord
	MainIssues     []string
	ContractIssues []string
}

// IssueTexts hallazgos formateados.
func (e DocumentError) IssueTexts() []string {
	out := make([]string, len(e.Issues))
	for i, is := range e.Issues {
		out[i] = is.String()
	}
	return out
}

// Label nombre visible del documento.
func (e DocumentError) Label() string {
	if e.DisplayName != "" {
		return e.DisplayName
	}
	return e.Name
}

var documentErrorKeys = map[string]bool{
	"id": true, "name": true, "display_name": true, "counterparty": true, "owner": true,
	"owner_id": true, "company_type": true, "moment": true, "link": true,
	"price_errors": true, "issues": true, "main_issues": true, "contract_issues": true,
}

// MarshalJSON aplana Fields al nivel superior (phone_error, unp_error...).
func (e DocumentError) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(e.Fields)+12)
	for k, v := range e.Fields {
		out[k] = v
	}
	out["id"] = e.ID
	out["name"] = e.Name
	out["owner"] = e.Owner
	out["link"] = e.Link
	out["issues"] = nonNil(e.Issues)
	if e.DisplayName != "" {
		out["display_name"] = e.DisplayName
	}
	if e.Counterparty != "" {
		out["counterparty"] = e.Counterparty
	}
	if e.OwnerID != "" {
		out["owner_id"] = e.OwnerID
	}
	if e.CompanyType != CompanyUnknown {
		out["company_type"] = e.CompanyType
	}
	if e.Moment != "" {
		out["moment"] = e.Moment
	}
	if len(e.PriceErrors) > 0 {
		out["price_errors"] = e.PriceErrors
	}
	if len(e.MainIssues) > 0 {
		out["main_issues"] = e.MainIssues
	}
	if len(e.ContractIssues) > 0 {
		out["contract_issues"] = e.ContractIssues
	}
	return json.Marshal(out)
}

// UnmarshalJSON inverso de MarshalJSON (lectura del historial persistido).
func (e *DocumentError) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("entity: decodificar error de documento: %w", err)
	}
	str := func(key string) string {
		var s string
		_ = json.Unmarshal(raw[key], &s)
		return s
	}
	*e = DocumentError{
		ID:           str("id"),
		Name:         str("name"),
		DisplayName:  str("display_name"),
		Counterparty: str("counterparty"),
		Owner:        str("owner"),
		OwnerID:      str("owner_id"),
		CompanyType:  CompanyType(str("company_type")),
		Moment:       str("moment"),
		Link:         str("link"),
	}
	for key, target := range map[string]any{
		"issues":          &e.Issues,
		"price_errors":    &e.PriceErrors,
		"main_issues":     &e.MainIssues,
		"contract_issues": &e.ContractIssues,
	} {
		if v, ok := raw[key]; ok {
			if err := json.Unmarshal(v, target); err != nil {
				return fmt.Errorf("entity: decodificar %s: %w", key, err)
			}
		}
	}
	for k, v := range raw {
		if documentErrorKeys[k] || !strings.HasSuffix(k, "_error") {
			continue
		}
		var s string
		if err := json.Unmarshal(v, &s); err != nil {
			continue
		}
		if e.Fields == nil {
			e.Fields = make(map[string]string)
		}
		e.Fields[k] = s
	}
	return nil
}

// ReportStatus estado de una ejecución.
type ReportStatus string

const (
	StatusSuccess ReportStatus = "success"
	StatusError   ReportStatus = "error"
)

// ErrorKind clasificación del fallo de una ejecución.
type ErrorKind string

const (
	ErrorKindNone        ErrorKind = ""
	ErrorKindDailyQuota  ErrorKind = "daily_quota"
	ErrorKindRateLimited ErrorKind = "rate_limited"
	ErrorKindTransient   ErrorKind = "transient"
	ErrorKindInternal    ErrorKind = "internal"
)

// PeriodReport resultado de auditar un tipo de documento en un periodo.
// Total = Valid + len(Errors) + Skipped.
type PeriodReport struct {
	Total        int             `json:"total"`
	Valid        int             `json:"valid"`
	Skipped      int             `json:"skipped"`
	Errors       []DocumentError `json:"errors"`
	Status       ReportStatus    `json:"status"`
	ErrorMessage string          `json:"error_message,omitempty"`
	ErrorKind    ErrorKind       `json:"error_kind,omitempty"`
}

// FailedReport informe vacío con estado error.
func FailedReport(kind ErrorKind, message string) PeriodReport {
	return PeriodReport{Errors: []DocumentError{}, Status: StatusError, ErrorKind: kind, ErrorMessage: message}
}

// IssueCount número total de hallazgos.
func (r PeriodReport) IssueCount() int {
	n := 0
	for _, e := range r.Errors {
		n += len(e.Issues)
	}
	return n
}

func (r PeriodReport) Failed() bool { return r.Status == StatusError }

// CheckRun ejecución persistida de una auditoría.
type CheckRun struct {
	ID           string
	DocumentType DocumentType
	Region       Region
	DateFrom     time.Time
	DateTo       time.Time
	Report       PeriodReport
	StartedAt    time.Time
	FinishedAt   time.Time
}

// CheckRunFilter criterios de listado del historial.
type CheckRunFilter struct {
	Region       Region
	DocumentType DocumentType
	Limit        int
	Offset       int
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
