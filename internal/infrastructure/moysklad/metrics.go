package moysklad

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics métricas del cliente. Un *Metrics nil no registra nada.
type Metrics struct {
	Requests    *prometheus.CounterVec
	Retries     *prometheus.CounterVec
	Latency     *prometheus.HistogramVec
	ErrorWindow *prometheus.GaugeVec
	DailyUsed   *prometheus.GaugeVec
}

// NewMetrics registra las métricas en reg (nil = sin registrar).
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Requests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "moysklad_requests_total",
			Help: "Peticiones a la API de MoySklad por región y código HTTP",
		}, []string{"region", "status"}),
		Retries: f.NewCounterVec(prometheus.CounterOpts{
			Name: "moysklad_retries_total",
			Help: "Reintentos tras HTTP 429",
		}, []string{"region"}),
		Latency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "moysklad_request_duration_seconds",
			Help:    "Duración de las peticiones a MoySklad",
			Buckets: prometheus.DefBuckets,
		}, []string{"region"}),
		ErrorWindow: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "moysklad_error_window_size",
			Help: "Errores registrados en la ventana deslizante de 60 segundos",
		}, []string{"region"}),
		DailyUsed: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "moysklad_daily_requests",
			Help: "Peticiones consumidas de la cuota diaria",
		}, []string{"region"}),
	}
}

func (m *Metrics) observeRequest(region string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.Requests.WithLabelValues(region, strconv.Itoa(status)).Inc()
	m.Latency.WithLabelValues(region).Observe(d.Seconds())
}

func (m *Metrics) incRetry(region string) {
	if m == nil {
		return
	}
	m.Retries.WithLabelValues(region).Inc()
}

func (m *Metrics) setErrorWindow(region string, n int) {
	if m == nil {
		return
	}
	m.ErrorWindow.WithLabelValues(region).Set(float64(n))
}

func (m *Metrics) setDailyUsed(region string, n int) {
	if m == nil {
		return
	}
	m.DailyUsed.WithLabelValues(region).Set(float64(n))
}
