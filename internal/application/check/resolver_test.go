package check_test

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/moysklad-audit/internal/application/check"
	"github.com/jhoicas/moysklad-audit/internal/domain"
	"github.com/jhoicas/moysklad-audit/internal/domain/audit"
	"github.com/jhoicas/moysklad-audit/internal/domain/entity"
	"github.com/jhoicas/moysklad-audit/internal/infrastructure/moysklad"
)

func TestResolver_OwnerName(t *testing.T) {
	gw := newFakeGateway()
	gw.byHref["https://x/employee/e-1"] = entity.Document{"fullName": "Петров Петр"}
	gw.byHref["https://x/employee/e-2"] = entity.Document{"login": "sidorov@shop"}
	r := check.NewResolver(gw, zerolog.Nop())
	ctx := context.Background()

	name, id := r.OwnerName(ctx, entity.Reference{Href: "https://x/employee/e-0", Name: "Иванов"})
	assert.Equal(t, "Иванов", name)
	assert.Equal(t, "e-0", id)
	assert.Zero(t, gw.getCount("https://x/employee/e-0"))

	for i := 0; i < 3; i++ {
		name, id = r.OwnerName(ctx, entity.Reference{Href: "https://x/employee/e-1"})
		assert.Equal(t, "Петров Петр", name)
		assert.Equal(t, "e-1", id)
	}
	assert.Equal(t, 1, gw.getCount("https://x/employee/e-1"))

	name, _ = r.OwnerName(ctx, entity.Reference{Href: "https://x/employee/e-2"})
	assert.Equal(t, "sidorov@shop", name)

	name, _ = r.OwnerName(ctx, entity.Reference{Href: "https://x/employee/missing"})
	assert.Equal(t, audit.OwnerUnspecified, name)

	name, id = r.OwnerName(ctx, entity.Reference{})
	assert.Equal(t, audit.OwnerUnspecified, name)
	assert.Empty(t, id)
}

func TestResolver_ReferenceName(t *testing.T) {
	gw := newFakeGateway()
	gw.byHref["https://x/project/p-1"] = entity.Document{"name": "Аптеки"}
	r := check.NewResolver(gw, zerolog.Nop())

	assert.Equal(t, "Аптеки", r.ReferenceName(context.Background(), entity.Reference{Href: "https://x/project/p-1"}))
	assert.Equal(t, "Аптеки", r.ReferenceName(context.Background(), entity.Reference{Href: "https://x/project/p-1"}))
	assert.Equal(t, 1, gw.getCount("https://x/project/p-1"))
	assert.Empty(t, r.ReferenceName(context.Background(), entity.Reference{Href: "https://x/project/none"}))
}

func TestResolver_CompanyTypeOrder(t *testing.T) {
	gw := newFakeGateway()
	gw.byHref["https://x/counterparty/a-1"] = entity.Document{"companyType": "entrepreneur"}
	r := check.NewResolver(gw, zerolog.Nop())
	ctx := context.Background()
	agent := map[string]any{"meta": map[string]any{"href": "https://x/counterparty/a-1"}}

	own := entity.Document{"id": "c-1", "companyType": "legal"}
	assert.Equal(t, entity.CompanyLegal, r.CompanyType(ctx, own))

	inline := entity.Document{"id": "d-1", "agent": map[string]any{"companyType": "individual", "meta": agent["meta"]}}
	assert.Equal(t, entity.CompanyIndividual, r.CompanyType(ctx, inline))
	assert.Zero(t, gw.getCount("https://x/counterparty/a-1"))

	fetched := entity.Document{"id": "d-2", "agent": agent}
	other := entity.Document{"id": "d-3", "agent": agent}
	assert.Equal(t, entity.CompanyEntrepreneur, r.CompanyType(ctx, fetched))
	assert.Equal(t, entity.CompanyEntrepreneur, r.CompanyType(ctx, other))
	assert.Equal(t, 1, gw.getCount("https://x/counterparty/a-1"))

	byAttr := entity.Document{"id": "d-4", "attributes": []any{
		map[string]any{"name": "Тип контрагента", "type": "string", "value": "Юридическое лицо"},
	}}
	assert.Equal(t, entity.CompanyLegal, r.CompanyType(ctx, byAttr))

	assert.Equal(t, entity.CompanyUnknown, r.CompanyType(ctx, entity.Document{"id": "d-5"}))
}

func TestResolver_ContractCachedAndFailureIsAbsent(t *testing.T) {
	gw := newFakeGateway()
	gw.byHref["https://x/contract/k-1"] = entity.Document{"contractType": "Sales"}
	r := check.NewResolver(gw, zerolog.Nop())
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		c, ok := r.Contract(ctx, entity.Reference{Href: "https://x/contract/k-1"})
		require.True(t, ok)
		assert.Equal(t, "Sales", c.Str("contractType"))
	}
	assert.Equal(t, 1, gw.getCount("https://x/contract/k-1"))

	for i := 0; i < 2; i++ {
		_, ok := r.Contract(ctx, entity.Reference{Href: "https://x/contract/broken"})
		assert.False(t, ok)
	}
	assert.Equal(t, 1, gw.getCount("https://x/contract/broken"))

	_, ok := r.Contract(ctx, entity.Reference{})
	assert.False(t, ok)
}

func TestResolver_Positions(t *testing.T) {
	gw := newFakeGateway()
	gw.collection["demand/d-1/positions"] = []entity.Document{{"price": 0, "quantity": 2}}
	r := check.NewResolver(gw, zerolog.Nop())
	ctx := context.Background()

	expanded := entity.Document{"id": "r-1", "positions": positions(100, 200)}
	assert.Len(t, r.Positions(ctx, expanded, true), 2)

	lazy := entity.Document{
		"id":        "d-1",
		"meta":      map[string]any{"href": "https://x/demand/d-1", "type": "demand"},
		"positions": map[string]any{"meta": map[string]any{"href": "https://x/demand/d-1/positions"}},
	}
	assert.Len(t, r.Positions(ctx, lazy, true), 1)
	assert.Len(t, r.Positions(ctx, lazy, true), 1)
	assert.Equal(t, []string{"demand/d-1/positions"}, gw.fetches)
	assert.Equal(t, []string{"assortment"}, gw.expands)

	assert.Empty(t, r.Positions(ctx, lazy, false))
}

func TestResolver_KeepsFirstTerminalError(t *testing.T) {
	gw := newFakeGateway()
	r := check.NewResolver(gw, zerolog.Nop())
	ctx := context.Background()

	_, ok := r.Contract(ctx, entity.Reference{Href: "https://x/contract/missing"})
	assert.False(t, ok)
	assert.NoError(t, r.Err(), "un fallo transitorio no detiene la ejecución")

	quota := &moysklad.QuotaError{Limit: 5}
	gw.getErr = quota
	_, ok = r.Contract(ctx, entity.Reference{Href: "https://x/contract/c-1"})
	assert.False(t, ok)
	require.ErrorIs(t, r.Err(), domain.ErrDailyQuotaExceeded)

	gw.getErr = nil
	gw.byHref["https://x/contract/c-2"] = entity.Document{"name": "Д-2"}
	_, ok = r.Contract(ctx, entity.Reference{Href: "https://x/contract/c-2"})
	assert.False(t, ok)
	assert.Zero(t, gw.getCount("https://x/contract/c-2"))
	assert.Same(t, quota, r.Err())
}
