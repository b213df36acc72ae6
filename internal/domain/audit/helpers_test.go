package audit_test

import (
	"context"
	"time"

	"github.com/jhoicas/moysklad-audit/internal/domain/audit"
	"github.com/jhoicas/moysklad-audit/internal/domain/entity"
)

// fakeResolver resolver en memoria: contratos por href y tipo de contraparte fijo.
type fakeResolver struct {
	audit.InlineResolver
	companyType entity.CompanyType
	contracts   map[string]entity.Document
	names       map[string]string
	owners      map[string]string

	contractCalls int
}

func (f *fakeResolver) OwnerName(ctx context.Context, ref entity.Reference) (string, string) {
	if name, ok := f.owners[ref.Href]; ok {
		return name, ref.ID()
	}
	return f.InlineResolver.OwnerName(ctx, ref)
}

func (f *fakeResolver) ReferenceName(ctx context.Context, ref entity.Reference) string {
	if name, ok := f.names[ref.Href]; ok {
		return name
	}
	return f.InlineResolver.ReferenceName(ctx, ref)
}

func (f *fakeResolver) CompanyType(ctx context.Context, d entity.Document) entity.CompanyType {
	if f.companyType != entity.CompanyUnknown {
		return f.companyType
	}
	return f.InlineResolver.CompanyType(ctx, d)
}

func (f *fakeResolver) Contract(_ context.Context, ref entity.Reference) (entity.Document, bool) {
	f.contractCalls++
	c, ok := f.contracts[ref.Href]
	return c, ok
}

var fixedNow = time.Date(2024, time.April, 10, 12, 0, 0, 0, time.UTC)

func newEngine(region entity.Region, r audit.Resolver) *audit.Engine {
	return audit.NewEngine(region, r, audit.WithClock(func() time.Time { return fixedNow }))
}

func attr(name string, value any) map[string]any {
	return map[string]any{"name": name, "type": "string", "value": value}
}

func fileAttr(name string, value any) map[string]any {
	return map[string]any{"name": name, "type": "file", "value": value}
}

func ref(href, name string) map[string]any {
	return map[string]any{"meta": map[string]any{"href": href}, "name": name}
}

func position(product string, priceKopecks, qty int) map[string]any {
	return map[string]any{
		"assortment": map[string]any{"name": product},
		"price":      priceKopecks,
		"quantity":   qty,
	}
}

func momentDaysAgo(days int) string {
	return fixedNow.AddDate(0, 0, -days).Format("2006-01-02 15:04:05.000")
}

const contractHref = "https://api.moysklad.ru/api/remap/1.2/entity/contract/c-1"

func contractWithCondition(condition string) entity.Document {
	return entity.Document{
		"contractType": "Sales",
		"attributes": []any{
			attr("Условие договора", map[string]any{"name": condition}),
			fileAttr("Скан договора", map[string]any{"filename": "scan.pdf"}),
		},
	}
}

func outcomeOf(v audit.Verdict, key string) audit.Outcome {
	out, _ := v.Outcome(key)
	return out
}
