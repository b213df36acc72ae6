package moysklad_test

import (
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/moysklad-audit/internal/domain"
	"github.com/jhoicas/moysklad-audit/internal/infrastructure/moysklad"
)

type sleepRecorder struct {
	mu    sync.Mutex
	waits []time.Duration
}

func (s *sleepRecorder) sleep(_ context.Context, d time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.waits = append(s.waits, d)
	return nil
}

func newTestClient(t *testing.T, srv *httptest.Server, mutate func(*moysklad.Options)) (*moysklad.Client, *sleepRecorder) {
	t.Helper()
	rec := &sleepRecorder{}
	opts := moysklad.Options{
		Region:     "RB",
		BaseURL:    srv.URL,
		Login:      "admin@test",
		Password:   "secret",
		MaxRetries: 5,
		Sleep:      rec.sleep,
	}
	if mutate != nil {
		mutate(&opts)
	}
	c, err := moysklad.NewClient(opts)
	require.NoError(t, err)
	return c, rec
}

func rowsJSON(from, n, size int) string {
	rows := make([]string, n)
	for i := range rows {
		rows[i] = fmt.Sprintf(`{"id":"%d","name":"doc-%d"}`, from+i, from+i)
	}
	return fmt.Sprintf(`{"meta":{"size":%d},"rows":[%s]}`, size, strings.Join(rows, ","))
}

func TestFetch_PaginatesWithExpandLimit(t *testing.T) {
	var (
		mu      sync.Mutex
		offsets []string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/entity/demand", r.URL.Path)
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "admin@test", user)
		assert.Equal(t, "secret", pass)
		assert.Equal(t, "application/json;charset=utf-8", r.Header.Get("Accept"))
		assert.Equal(t, "100", r.URL.Query().Get("limit"))
		assert.Equal(t, "owner,agent", r.URL.Query().Get("expand"))
		assert.Equal(t, "created>=2024-03-01 00:00:00", r.URL.Query().Get("filter"))

		offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
		mu.Lock()
		offsets = append(offsets, r.URL.Query().Get("offset"))
		mu.Unlock()
		n := 100
		if offset == 100 {
			n = 30
		}
		_, _ = w.Write([]byte(rowsJSON(offset, n, 130)))
	}))
	defer srv.Close()

	c, _ := newTestClient(t, srv, nil)
	docs, err := c.Fetch(context.Background(), "demand", "created>=2024-03-01 00:00:00", "owner,agent")
	require.NoError(t, err)
	assert.Len(t, docs, 130)
	mu.Lock()
	assert.Equal(t, []string{"0", "100"}, offsets)
	mu.Unlock()
	assert.Equal(t, "doc-129", docs[129].Name())
}

func TestFetch_StopsAtMetaSize(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		assert.Equal(t, "1000", r.URL.Query().Get("limit"))
		_, _ = w.Write([]byte(rowsJSON(0, 1000, 1000)))
	}))
	defer srv.Close()

	c, _ := newTestClient(t, srv, nil)
	docs, err := c.Fetch(context.Background(), "counterparty", "", "")
	require.NoError(t, err)
	assert.Len(t, docs, 1000)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestRetryDelay(t *testing.T) {
	assert.Equal(t, 8*time.Second, moysklad.RetryDelay("", 3))
	assert.Equal(t, 2*time.Second, moysklad.RetryDelay("", 1))
	assert.Equal(t, 30*time.Second, moysklad.RetryDelay("", 5))
	assert.Equal(t, time.Second, moysklad.RetryDelay("0.2", 4))
	assert.Equal(t, 2500*time.Millisecond, moysklad.RetryDelay("2.5", 1))
	assert.Equal(t, 4*time.Second, moysklad.RetryDelay("soon", 2))
}

func TestGet_RetriesOn429WithBackoff(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) <= 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte(`{"id":"1","name":"ok"}`))
	}))
	defer srv.Close()

	c, rec := newTestClient(t, srv, nil)
	doc, err := c.Get(context.Background(), "/entity/contract/1")
	require.NoError(t, err)
	assert.Equal(t, "ok", doc.Name())
	assert.Equal(t, []time.Duration{2 * time.Second, 4 * time.Second, 8 * time.Second}, rec.waits)
}

func TestGet_RateLimitExhausted(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Header().Set("Retry-After", "1")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c, rec := newTestClient(t, srv, nil)
	_, err := c.Get(context.Background(), "/entity/demand")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrRateLimitExhausted)

	var rle *moysklad.RateLimitError
	require.True(t, errors.As(err, &rle))
	assert.Equal(t, 6, rle.Attempts)
	assert.Equal(t, int32(6), atomic.LoadInt32(&calls))
	assert.Len(t, rec.waits, 5)
}

func TestGet_ServerErrorIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"errors":[{"error":"boom"}]}`))
	}))
	defer srv.Close()

	c, rec := newTestClient(t, srv, nil)
	_, err := c.Get(context.Background(), "/entity/demand")
	assert.ErrorIs(t, err, domain.ErrTransientAPI)

	var apiErr *moysklad.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusInternalServerError, apiErr.Status)
	assert.Contains(t, apiErr.Body, "boom")
	assert.Empty(t, rec.waits)
}

func TestGet_DailyQuota(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c, _ := newTestClient(t, srv, func(o *moysklad.Options) { o.DailyLimit = 2 })
	for i := 0; i < 2; i++ {
		_, err := c.Get(context.Background(), "/entity/demand")
		require.NoError(t, err)
	}
	_, err := c.Get(context.Background(), "/entity/demand")
	assert.ErrorIs(t, err, domain.ErrDailyQuotaExceeded)
	assert.Equal(t, "Достигнут дневной лимит API МойСклад (2 запросов). Попробуйте позже.", err.Error())
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestGet_ProviderDailyLimitBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"errors":[{"error":"Превышен дневной лимит запросов"}]}`))
	}))
	defer srv.Close()

	c, _ := newTestClient(t, srv, func(o *moysklad.Options) { o.DailyLimit = 1000 })
	_, err := c.Get(context.Background(), "/entity/demand")
	assert.ErrorIs(t, err, domain.ErrDailyQuotaExceeded)
}

func TestGet_GzipAndAbsoluteHref(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/entity/contract/c-1", r.URL.Path)
		assert.Equal(t, "attributes", r.URL.Query().Get("expand"))
		assert.Equal(t, "gzip", r.Header.Get("Accept-Encoding"))

		var buf bytes.Buffer
		gz := gzip.NewWriter(&buf)
		_, _ = gz.Write([]byte(`{"id":"c-1","contractType":"Sales"}`))
		_ = gz.Close()
		w.Header().Set("Content-Encoding", "gzip")
		_, _ = w.Write(buf.Bytes())
	}))
	defer srv.Close()

	c, _ := newTestClient(t, srv, nil)
	doc, err := c.Get(context.Background(), srv.URL+"/entity/contract/c-1?expand=attributes")
	require.NoError(t, err)
	assert.Equal(t, "Sales", doc.Str("contractType"))
}

func TestClient_MinDelayBetweenRequests(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c, _ := newTestClient(t, srv, func(o *moysklad.Options) { o.MinDelay = 40 * time.Millisecond })
	start := time.Now()
	for i := 0; i < 3; i++ {
		_, err := c.Get(context.Background(), "/entity/demand")
		require.NoError(t, err)
	}
	assert.GreaterOrEqual(t, time.Since(start), 75*time.Millisecond)
}

func TestNewClient_RequiresCredentials(t *testing.T) {
	_, err := moysklad.NewClient(moysklad.Options{Region: "KZ"})
	assert.Error(t, err)
}

func TestErrorWindow(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	w := moysklad.NewErrorWindow(time.Minute, func() time.Time { return now })

	total, similar := w.Record(429, "/entity/demand")
	assert.Equal(t, 1, total)
	assert.Equal(t, 1, similar)

	now = now.Add(30 * time.Second)
	total, similar = w.Record(500, "/entity/demand")
	assert.Equal(t, 2, total)
	assert.Equal(t, 1, similar)

	now = now.Add(31 * time.Second)
	assert.Equal(t, 1, w.Prune())

	now = now.Add(time.Minute)
	assert.Equal(t, 0, w.Prune())
}

func TestMetrics_NilSafe(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c, _ := newTestClient(t, srv, func(o *moysklad.Options) { o.Metrics = moysklad.NewMetrics(nil) })
	_, err := c.Get(context.Background(), "entity/demand")
	assert.NoError(t, err)
}
