package moysklad

import (
	"sync"
	"time"
)

const (
	// ErrorWindowSpan ventana deslizante de errores.
	ErrorWindowSpan = 60 * time.Second
	// TotalErrorsWarn errores por minuto a partir de los cuales se avisa.
	TotalErrorsWarn = 150
	// SimilarErrorsWarn errores por minuto con el mismo estado y recurso (cerca del bloqueo automático).
	SimilarErrorsWarn = 180
)

type errorEvent struct {
	at       time.Time
	status   int
	endpoint string
}

// ErrorWindow registro de errores del último minuto.
type ErrorWindow struct {
	mu     sync.Mutex
	span   time.Duration
	now    func() time.Time
	events []errorEvent
}

func NewErrorWindow(span time.Duration, now func() time.Time) *ErrorWindow {
	if now == nil {
		now = time.Now
	}
	return &ErrorWindow{span: span, now: now}
}

// Record añade un error y devuelve el total de la ventana y los del mismo estado y recurso.
func (w *ErrorWindow) Record(status int, endpoint string) (total, similar int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	now := w.now()
	w.events = append(w.events, errorEvent{at: now, status: status, endpoint: endpoint})
	w.pruneLocked(now)
	for _, ev := range w.events {
		if ev.status == status && ev.endpoint == endpoint {
			similar++
		}
	}
	return len(w.events), similar
}

// Prune descarta los eventos fuera de la ventana y devuelve cuántos quedan.
func (w *ErrorWindow) Prune() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.pruneLocked(w.now())
	return len(w.events)
}

func (w *ErrorWindow) pruneLocked(now time.Time) {
	i := 0
	for i < len(w.events) && now.Sub(w.events[i].at) > w.span {
		i++
	}
	if i > 0 {
		w.events = append(w.events[:0], w.events[i:]...)
	}
}
