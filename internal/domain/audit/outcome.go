package audit

import (
	"fmt"

	"github.com/jhoicas/moysklad-audit/internal/domain/entity"
)

// Status resultado de una regla.
type Status int

const (
	// Passed la regla aplica y el documento la cumple.
	Passed Status = iota
	// Skipped la regla no aplica al documento (región, tipo de contraparte, datos ausentes).
	Skipped
	// Failed la regla aplica y hay al menos un hallazgo.
	Failed
)

func (s Status) String() string {
	switch s {
	case Passed:
		return "passed"
	case Skipped:
		return "skipped"
	case Failed:
		return "failed"
	}
	return fmt.Sprintf("status(%d)", int(s))
}

// Outcome resultado explícito de una regla sobre un documento.
type Outcome struct {
	Status   Status
	Messages []string
	// Reason motivo de Skipped (para depuración y tests).
	Reason string
	// Prices posiciones con precio nulo; cada una genera su propio hallazgo.
	Prices []entity.PriceIssue
}

func Pass() Outcome { return Outcome{Status: Passed} }

func Skip(reason string) Outcome { return Outcome{Status: Skipped, Reason: reason} }

func Fail(msg string) Outcome { return Outcome{Status: Failed, Messages: []string{msg}} }

func Failf(format string, args ...any) Outcome { return Fail(fmt.Sprintf(format, args...)) }

func (o Outcome) Failed() bool { return o.Status == Failed }

// Group agrupa hallazgos en el informe (principales / de contrato).
type Group int

const (
	GroupMain Group = iota
	GroupContract
)

// Rule regla con nombre, categoría visible y verificación.
type Rule struct {
	// Key prefijo de la clave del informe: "phone" -> "phone_error".
	Key      string
	Category string
	Group    Group
	Check    func(s *subject) Outcome
	// UnlessFailed omite la regla si la regla indicada ya falló en el mismo documento.
	UnlessFailed string
}

// ErrorKey clave en el informe.
func (r Rule) ErrorKey() string { return r.Key + "_error" }

// RuleOutcome resultado de una regla concreta.
type RuleOutcome struct {
	Rule    string
	Outcome Outcome
}
