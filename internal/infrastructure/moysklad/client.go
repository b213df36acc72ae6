package moysklad

import (
	"compress/gzip"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/jhoicas/moysklad-audit/internal/domain/entity"
	"github.com/jhoicas/moysklad-audit/pkg/config"
)

const (
	// PageLimit máximo de filas por página que admite la API.
	PageLimit = 1000
	// ExpandPageLimit máximo de filas por página cuando se usa expand.
	ExpandPageLimit = 100
	// MaxRetryDelay tope del backoff exponencial tras 429.
	MaxRetryDelay = 30 * time.Second

	bodySnippet = 500
)

// Options parámetros del cliente de una región.
type Options struct {
	Region     string
	BaseURL    string
	Login      string
	Password   string
	MinDelay   time.Duration
	PerMinute  int // 0 = sin límite por minuto
	DailyLimit int // 0 = sin límite diario
	MaxRetries int
	Timeout    time.Duration

	HTTPClient *http.Client
	Logger     zerolog.Logger
	Metrics    *Metrics
	// Sleep espera entre reintentos; por defecto respeta ctx.
	Sleep func(ctx context.Context, d time.Duration) error
	Now   func() time.Time
}

// Client acceso de solo lectura a la API de MoySklad con cuotas y reintentos.
type Client struct {
	region     string
	baseURL    string
	auth       string
	http       *http.Client
	log        zerolog.Logger
	metrics    *Metrics
	sleep      func(ctx context.Context, d time.Duration) error
	now        func() time.Time
	maxRetries int

	delay     *rate.Limiter
	perMinute *rate.Limiter
	window    *ErrorWindow

	mu         sync.Mutex
	dailyLimit int
	dailyDay   string
	dailyCount int
}

// NewClient crea el cliente con credenciales fijas (codificadas una sola vez).
func NewClient(opts Options) (*Client, error) {
	if opts.Login == "" || opts.Password == "" {
		return nil, fmt.Errorf("moysklad: faltan credenciales para la región %s", opts.Region)
	}
	if opts.BaseURL == "" {
		opts.BaseURL = config.DefaultBaseURL
	}
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = 5
	}
	if opts.HTTPClient == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 60 * time.Second
		}
		opts.HTTPClient = &http.Client{Timeout: timeout}
	}
	if opts.Sleep == nil {
		opts.Sleep = sleepContext
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	delay := rate.NewLimiter(rate.Inf, 1)
	if opts.MinDelay > 0 {
		delay = rate.NewLimiter(rate.Every(opts.MinDelay), 1)
	}
	perMinute := rate.NewLimiter(rate.Inf, 1)
	if opts.PerMinute > 0 {
		perMinute = rate.NewLimiter(rate.Every(time.Minute/time.Duration(opts.PerMinute)), opts.PerMinute)
	}

	credentials := base64.StdEncoding.EncodeToString([]byte(opts.Login + ":" + opts.Password))
	c := &Client{
		region:     opts.Region,
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		auth:       "Basic " + credentials,
		http:       opts.HTTPClient,
		log:        opts.Logger.With().Str("region", opts.Region).Logger(),
		metrics:    opts.Metrics,
		sleep:      opts.Sleep,
		now:        opts.Now,
		maxRetries: opts.MaxRetries,
		delay:      delay,
		perMinute:  perMinute,
		window:     NewErrorWindow(ErrorWindowSpan, opts.Now),
		dailyLimit: opts.DailyLimit,
	}
	c.log.Info().Str("base_url", c.baseURL).Msg("cliente MoySklad inicializado")
	return c, nil
}

// NewClientFromConfig cliente de la región con las cuotas de la configuración.
func NewClientFromConfig(region entity.Region, cfg config.MoySkladConfig, log zerolog.Logger, m *Metrics) (*Client, error) {
	cred, err := cfg.Region(string(region))
	if err != nil {
		return nil, err
	}
	return NewClient(Options{
		Region:     string(region),
		BaseURL:    cred.BaseURL,
		Login:      cred.Login,
		Password:   cred.Password,
		MinDelay:   cfg.MinDelay,
		PerMinute:  cfg.PerMinuteLimit,
		DailyLimit: cfg.DailyLimit,
		MaxRetries: cfg.MaxRetries,
		Timeout:    cfg.Timeout,
		Logger:     log,
		Metrics:    m,
	})
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Fetch lista completa de /entity/{resource} con filtro y expand, página a página.
func (c *Client) Fetch(ctx context.Context, resource, filter, expand string) ([]entity.Document, error) {
	path := "/entity/" + strings.Trim(resource, "/")
	limit := PageLimit
	if expand != "" {
		limit = ExpandPageLimit
	}

	var out []entity.Document
	for offset := 0; ; offset += limit {
		q := url.Values{}
		q.Set("limit", strconv.Itoa(limit))
		q.Set("offset", strconv.Itoa(offset))
		if filter != "" {
			q.Set("filter", filter)
		}
		if expand != "" {
			q.Set("expand", expand)
		}
		page, err := c.request(ctx, path, q)
		if err != nil {
			return nil, err
		}
		rows := page.Rows("rows")
		out = append(out, rows...)

		size, hasSize := page.Object("meta").Number("size")
		if len(rows) < limit || (hasSize && int64(len(out)) >= size.IntPart()) {
			break
		}
	}
	c.log.Debug().Str("resource", resource).Int("rows", len(out)).Msg("colección descargada")
	return out, nil
}

// Get un recurso por href absoluto (se elimina la URL base) o por ruta relativa.
func (c *Client) Get(ctx context.Context, hrefOrPath string) (entity.Document, error) {
	path, query := c.splitTarget(hrefOrPath)
	return c.request(ctx, path, query)
}

func (c *Client) splitTarget(target string) (string, url.Values) {
	target = strings.TrimPrefix(target, c.baseURL)
	path, rawQuery, _ := strings.Cut(target, "?")
	query, _ := url.ParseQuery(rawQuery)
	if !strings.HasPrefix(path, "/") && !strings.HasPrefix(path, "http") {
		path = "/" + path
	}
	return path, query
}

// RetryDelay espera tras un 429: Retry-After (mínimo 1s) o min(30s, 2^attempt).
func RetryDelay(retryAfter string, attempt int) time.Duration {
	if retryAfter != "" {
		if secs, err := strconv.ParseFloat(strings.TrimSpace(retryAfter), 64); err == nil {
			return time.Duration(math.Max(secs, 1) * float64(time.Second))
		}
	}
	backoff := time.Duration(math.Pow(2, float64(attempt))) * time.Second
	if backoff > MaxRetryDelay {
		return MaxRetryDelay
	}
	return backoff
}

func (c *Client) request(ctx context.Context, path string, query url.Values) (entity.Document, error) {
	target := path
	if !strings.HasPrefix(path, "http") {
		target = c.baseURL + path
	}
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	attempt := 0
	for {
		if err := c.acquire(ctx); err != nil {
			return nil, err
		}

		status, header, body, err := c.do(ctx, target)
		if err != nil {
			c.recordError(0, path)
			c.log.Error().Err(err).Str("url", target).Msg("error de red en petición a MoySklad")
			return nil, &APIError{Method: http.MethodGet, URL: target, Err: err}
		}

		switch {
		case status >= 200 && status < 300:
			c.metrics.setErrorWindow(c.region, c.window.Prune())
			doc, err := entity.DecodeDocument(body)
			if err != nil {
				return nil, &APIError{Method: http.MethodGet, URL: target, Status: status, Err: err}
			}
			return doc, nil

		case status == http.StatusTooManyRequests:
			c.recordError(status, path)
			if isDailyLimitBody(body) {
				return nil, &QuotaError{Limit: c.dailyLimit}
			}
			attempt++
			if attempt > c.maxRetries {
				c.log.Error().Str("url", target).Int("attempts", attempt).Msg("reintentos tras 429 agotados")
				return nil, &RateLimitError{Attempts: attempt, URL: target}
			}
			wait := RetryDelay(header.Get("Retry-After"), attempt)
			c.metrics.incRetry(c.region)
			c.log.Warn().Dur("wait", wait).Int("attempt", attempt).Str("path", path).
				Msg("HTTP 429 Too Many Requests, esperando antes de reintentar")
			if err := c.sleep(ctx, wait); err != nil {
				return nil, err
			}

		default:
			c.recordError(status, path)
			snippet := truncate(string(body), bodySnippet)
			c.log.Error().Int("status", status).Str("method", http.MethodGet).Str("url", target).
				Str("params", query.Encode()).Str("body", snippet).Msg("respuesta de error de MoySklad")
			if isDailyLimitBody(body) {
				return nil, &QuotaError{Limit: c.dailyLimit}
			}
			return nil, &APIError{Method: http.MethodGet, URL: target, Status: status, Body: snippet}
		}
	}
}

// acquire espera el retardo mínimo y la cuota por minuto; falla si la cuota diaria está agotada.
func (c *Client) acquire(ctx context.Context) error {
	if err := c.takeDaily(); err != nil {
		return err
	}
	if err := c.delay.Wait(ctx); err != nil {
		return err
	}
	return c.perMinute.Wait(ctx)
}

func (c *Client) takeDaily() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.dailyLimit <= 0 {
		return nil
	}
	day := c.now().Format("2006-01-02")
	if day != c.dailyDay {
		c.dailyDay, c.dailyCount = day, 0
	}
	if c.dailyCount >= c.dailyLimit {
		c.log.Warn().Int("limit", c.dailyLimit).Msg("cuota diaria de MoySklad agotada")
		return &QuotaError{Limit: c.dailyLimit}
	}
	c.dailyCount++
	c.metrics.setDailyUsed(c.region, c.dailyCount)
	return nil
}

func (c *Client) do(ctx context.Context, target string) (int, http.Header, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return 0, nil, nil, err
	}
	req.Header.Set("Authorization", c.auth)
	req.Header.Set("Accept", "application/json;charset=utf-8")
	req.Header.Set("Accept-Encoding", "gzip")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, nil, err
	}
	defer resp.Body.Close()
	c.metrics.observeRequest(c.region, resp.StatusCode, time.Since(start))

	var r io.Reader = resp.Body
	if strings.EqualFold(resp.Header.Get("Content-Encoding"), "gzip") {
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return resp.StatusCode, resp.Header, nil, fmt.Errorf("gzip: %w", err)
		}
		defer gz.Close()
		r = gz
	}
	body, err := io.ReadAll(r)
	if err != nil {
		return resp.StatusCode, resp.Header, nil, fmt.Errorf("leer respuesta: %w", err)
	}
	return resp.StatusCode, resp.Header, body, nil
}

func (c *Client) recordError(status int, endpoint string) {
	total, similar := c.window.Record(status, endpoint)
	c.metrics.setErrorWindow(c.region, total)
	if total >= TotalErrorsWarn {
		c.log.Warn().Int("errors", total).
			Msg("demasiados errores en el último minuto; revisar las peticiones para evitar el bloqueo de la API")
	}
	if similar >= SimilarErrorsWarn {
		c.log.Warn().Int("errors", similar).Int("status", status).Str("endpoint", endpoint).
			Msg("errores repetidos con el mismo estado y recurso; cerca del umbral de desconexión automática")
	}
}

// isDailyLimitBody el proveedor informa de la cuota diaria agotada.
func isDailyLimitBody(body []byte) bool {
	text := strings.ToLower(string(body))
	for _, marker := range []string{"дневной лимит", "суточный лимит", "daily limit", "daily quota"} {
		if strings.Contains(text, marker) {
			return true
		}
	}
	return false
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
