package moysklad

import (
	"fmt"

	"github.com/jhoicas/moysklad-audit/internal/domain"
)

// APIError respuesta no exitosa (distinta de 429) o fallo de red.
type APIError struct {
	Status int // 0 si no hubo respuesta
	Method string
	URL    string
	Body   string
	Err    error
}

func (e *APIError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("moysklad: %s %s: %v", e.Method, e.URL, e.Err)
	}
	return fmt.Sprintf("moysklad: %s %s: HTTP %d: %s", e.Method, e.URL, e.Status, e.Body)
}

func (e *APIError) Unwrap() []error {
	if e.Err != nil {
		return []error{domain.ErrTransientAPI, e.Err}
	}
	return []error{domain.ErrTransientAPI}
}

// RateLimitError 429 persistente tras agotar los reintentos.
type RateLimitError struct {
	Attempts int
	URL      string
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("moysklad: %s: HTTP 429 tras %d intentos", e.URL, e.Attempts)
}

func (e *RateLimitError) Unwrap() error { return domain.ErrRateLimitExhausted }

// QuotaError cuota diaria de peticiones agotada.
type QuotaError struct {
	Limit int
}

// Error mensaje visible para el usuario.
func (e *QuotaError) Error() string {
	return fmt.Sprintf(domain.DailyQuotaMessage, e.Limit)
}

func (e *QuotaError) Unwrap() error { return domain.ErrDailyQuotaExceeded }
