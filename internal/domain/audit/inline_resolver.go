package audit

import (
	"context"
	"strings"

	"github.com/jhoicas/moysklad-audit/internal/domain/entity"
)

// InlineResolver resuelve solo con los datos embebidos en el documento, sin consultas remotas.
type InlineResolver struct{}

var _ Resolver = InlineResolver{}

func (InlineResolver) OwnerName(_ context.Context, ref entity.Reference) (string, string) {
	return orDefault(strings.TrimSpace(ref.Name), OwnerUnspecified), ref.ID()
}

func (InlineResolver) ReferenceName(_ context.Context, ref entity.Reference) string {
	return strings.TrimSpace(ref.Name)
}

func (InlineResolver) CompanyType(_ context.Context, d entity.Document) entity.CompanyType {
	if ct := InlineCompanyType(d); ct != entity.CompanyUnknown {
		return ct
	}
	return AttributeCompanyType(d)
}

func (InlineResolver) Contract(context.Context, entity.Reference) (entity.Document, bool) {
	return nil, false
}

func (InlineResolver) Positions(_ context.Context, d entity.Document, _ bool) []entity.Document {
	return d.Rows("positions")
}
