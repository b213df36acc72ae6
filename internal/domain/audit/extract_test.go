package audit_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jhoicas/moysklad-audit/internal/domain/audit"
	"github.com/jhoicas/moysklad-audit/internal/domain/entity"
)

func TestNormalize(t *testing.T) {
	assert.Equal(t, audit.Normalize("Канал продаж"), audit.Normalize("канал-продаж"))
	assert.Equal(t, "рспредоплаташколаобучениеаренда", audit.Normalize("р/с предоплата (школа-обучение, аренда)"))
	assert.Equal(t, "375291234567", audit.OnlyDigits("+375 (29) 123-45-67"))
}

func TestExtractTaxID_Order(t *testing.T) {
	doc := entity.Document{
		"code":       "999",
		"requisites": map[string]any{"УНП": "190000001"},
		"attributes": []any{attr("Идентификационный номер", "123")},
	}
	v, ok := audit.ExtractTaxID(doc)
	assert.True(t, ok)
	assert.Equal(t, "190000001", v)

	v, ok = audit.ExtractTaxID(entity.Document{"attributes": []any{attr("ИНН клиента", "7701234567")}})
	assert.True(t, ok)
	assert.Equal(t, "7701234567", v)

	_, ok = audit.ExtractTaxID(entity.Document{})
	assert.False(t, ok)
}

func TestExtractSalesChannel(t *testing.T) {
	v := audit.ExtractSalesChannel(entity.Document{"salesChannel": ref("https://x/saleschannel/1", "Опт")})
	assert.Equal(t, audit.FieldFilled, v.State)
	assert.Equal(t, "Опт", v.Text)

	v = audit.ExtractSalesChannel(entity.Document{"attributes": []any{attr("Канал продажи", map[string]any{"name": "Сети"})}})
	assert.Equal(t, audit.FieldFilled, v.State)
	assert.Equal(t, "attributes", v.Source)

	v = audit.ExtractSalesChannel(entity.Document{"salesChannel": nil})
	assert.Equal(t, audit.FieldMissing, v.State)
}

func TestAllowedProjects(t *testing.T) {
	projects, known := audit.AllowedProjects("Транзиты")
	assert.True(t, known)
	assert.Equal(t, []string{"Европа", "ОАЭ", "Казахстан", "Беларусь", "Россия"}, projects)

	projects, known = audit.AllowedProjects("CTM")
	assert.True(t, known)
	assert.Empty(t, projects)

	_, known = audit.AllowedProjects("")
	assert.False(t, known)
}

func TestBuildLink(t *testing.T) {
	doc := entity.Document{"id": "abc", "meta": map[string]any{"type": "demand", "href": "https://api/demand/abc"}}
	assert.Equal(t, "https://online.moysklad.ru/app/#demand/edit?id=abc", audit.BuildLink("", doc, "shipments"))

	contractor := entity.Document{"meta": map[string]any{"href": "https://api/entity/counterparty/xyz?expand=owner"}}
	assert.Equal(t, "https://erp.local/app/#Company/edit?id=xyz", audit.BuildLink("https://erp.local/", contractor, "counterparty"))

	assert.Equal(t, "", audit.BuildLink("", entity.Document{}, "demand"))
}
