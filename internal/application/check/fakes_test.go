package check_test

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jhoicas/moysklad-audit/internal/application/check"
	"github.com/jhoicas/moysklad-audit/internal/domain"
	"github.com/jhoicas/moysklad-audit/internal/domain/entity"
)

// fakeGateway colecciones por recurso y documentos por href, con contador de llamadas.
type fakeGateway struct {
	mu         sync.Mutex
	collection map[string][]entity.Document
	byHref     map[string]entity.Document
	fetchErr   error
	getErr     error

	fetches []string
	filters []string
	expands []string
	gets    map[string]int
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		collection: make(map[string][]entity.Document),
		byHref:     make(map[string]entity.Document),
		gets:       make(map[string]int),
	}
}

func (g *fakeGateway) Fetch(_ context.Context, resource, filter, expand string) ([]entity.Document, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.fetches = append(g.fetches, resource)
	g.filters = append(g.filters, filter)
	g.expands = append(g.expands, expand)
	if g.fetchErr != nil {
		return nil, g.fetchErr
	}
	return g.collection[resource], nil
}

func (g *fakeGateway) Get(_ context.Context, href string) (entity.Document, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.gets[href]++
	if g.getErr != nil {
		return nil, g.getErr
	}
	doc, ok := g.byHref[href]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrTransientAPI, href)
	}
	return doc, nil
}

func (g *fakeGateway) totalGets() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	n := 0
	for _, c := range g.gets {
		n += c
	}
	return n
}

func (g *fakeGateway) getCount(href string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.gets[href]
}

// fakeNotifier registra notificaciones y resúmenes.
type fakeNotifier struct {
	mu        sync.Mutex
	sent      []check.Notification
	summaries map[entity.Region][]check.TypeResult
	err       error
}

func (n *fakeNotifier) Notify(_ context.Context, msg check.Notification) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, msg)
	return n.err
}

type fakeSummarizer struct {
	fakeNotifier
}

func (n *fakeSummarizer) NotifySummary(_ context.Context, region entity.Region, _, _ time.Time, results []check.TypeResult) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.summaries == nil {
		n.summaries = make(map[entity.Region][]check.TypeResult)
	}
	n.summaries[region] = results
	return n.err
}

var (
	day = time.Date(2024, time.March, 5, 0, 0, 0, 0, time.UTC)
)

func channel(name string) map[string]any {
	return map[string]any{"meta": map[string]any{"href": "https://x/saleschannel/" + name}, "name": name}
}

func positions(prices ...int) map[string]any {
	rows := make([]any, len(prices))
	for i, p := range prices {
		rows[i] = map[string]any{"assortment": map[string]any{"name": fmt.Sprintf("Товар %d", i+1)}, "price": p, "quantity": 1}
	}
	return map[string]any{"rows": rows}
}

func salesReturn(id string, ch map[string]any, prices ...int) entity.Document {
	doc := entity.Document{
		"id":        id,
		"name":      "ВП-" + id,
		"owner":     map[string]any{"meta": map[string]any{"href": "https://x/employee/e-1"}, "name": "Иванов"},
		"agent":     map[string]any{"meta": map[string]any{"href": "https://x/counterparty/a-1"}, "name": "ООО Ромашка"},
		"positions": positions(prices...),
	}
	if ch != nil {
		doc["salesChannel"] = ch
	}
	return doc
}

// retailSale venta con contrato y contraparte solo por href (obliga a consultar el gateway).
func retailSale(id string) entity.Document {
	return entity.Document{
		"id":           id,
		"name":         "РП-" + id,
		"owner":        map[string]any{"meta": map[string]any{"href": "https://x/employee/e-1"}, "name": "Иванов"},
		"agent":        map[string]any{"meta": map[string]any{"href": "https://x/counterparty/a-" + id}},
		"contract":     map[string]any{"meta": map[string]any{"href": "https://x/contract/c-" + id}},
		"salesChannel": channel("Маркетплейсы"),
		"sum":          10000,
		"payedSum":     0,
		"positions":    positions(10000),
	}
}
