package check

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/jhoicas/moysklad-audit/internal/domain"
	"github.com/jhoicas/moysklad-audit/internal/domain/audit"
	"github.com/jhoicas/moysklad-audit/internal/domain/entity"
)

var _ audit.Resolver = (*Resolver)(nil)

// Resolver resuelve referencias con una consulta como máximo por identificador.
// Vive lo que dura una ejecución; los fallos se registran y se tratan como dato ausente,
// salvo cuota diaria o límite de peticiones agotados: esos detienen la ejecución (ver Err).
type Resolver struct {
	gw  Gateway
	log zerolog.Logger

	mu           sync.Mutex
	terminal     error
	owners       map[string]string
	names        map[string]string
	companyTypes map[string]entity.CompanyType
	agentTypes   map[string]entity.CompanyType
	contracts    map[string]entity.Document
	positions    map[string][]entity.Document
}

func NewResolver(gw Gateway, log zerolog.Logger) *Resolver {
	return &Resolver{
		gw:           gw,
		log:          log,
		owners:       make(map[string]string),
		names:        make(map[string]string),
		companyTypes: make(map[string]entity.CompanyType),
		agentTypes:   make(map[string]entity.CompanyType),
		contracts:    make(map[string]entity.Document),
		positions:    make(map[string][]entity.Document),
	}
}

// Err primer fallo terminal (cuota diaria o reintentos por 429 agotados), o nil.
func (r *Resolver) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.terminal
}

func isTerminal(err error) bool {
	return errors.Is(err, domain.ErrDailyQuotaExceeded) || errors.Is(err, domain.ErrRateLimitExhausted)
}

func (r *Resolver) keep(err error) {
	if !isTerminal(err) {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.terminal == nil {
		r.terminal = err
	}
}

// get consulta por href; tras un fallo terminal no vuelve a llamar al gateway.
func (r *Resolver) get(ctx context.Context, href string) (entity.Document, error) {
	if err := r.Err(); err != nil {
		return nil, err
	}
	doc, err := r.gw.Get(ctx, href)
	if err != nil {
		r.keep(err)
	}
	return doc, err
}

func (r *Resolver) fetch(ctx context.Context, resource, expand string) ([]entity.Document, error) {
	if err := r.Err(); err != nil {
		return nil, err
	}
	rows, err := r.gw.Fetch(ctx, resource, "", expand)
	if err != nil {
		r.keep(err)
	}
	return rows, err
}

// lookup lee la caché; en caso de fallo llama a load sin el candado y guarda el primer valor.
func lookup[V any](r *Resolver, cache map[string]V, key string, load func() V) V {
	r.mu.Lock()
	if v, ok := cache[key]; ok {
		r.mu.Unlock()
		return v
	}
	r.mu.Unlock()

	v := load()

	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := cache[key]; ok {
		return existing
	}
	cache[key] = v
	return v
}

// OwnerName nombre del responsable: nombre embebido o consulta por href (name, fullName, login).
func (r *Resolver) OwnerName(ctx context.Context, ref entity.Reference) (string, string) {
	id := ref.ID()
	if name := strings.TrimSpace(ref.Name); name != "" {
		return name, id
	}
	if ref.Href == "" || id == "" {
		return audit.OwnerUnspecified, id
	}
	name := lookup(r, r.owners, id, func() string {
		emp, err := r.get(ctx, ref.Href)
		if err != nil {
			r.log.Warn().Err(err).Str("owner", id).Msg("no se pudo obtener el responsable")
			return ""
		}
		for _, key := range []string{"name", "fullName", "login"} {
			if v := emp.Str(key); v != "" {
				return v
			}
		}
		return ""
	})
	if name == "" {
		return audit.OwnerUnspecified, id
	}
	return name, id
}

// ReferenceName nombre de cualquier referencia (canal, proyecto) resolviendo el href si hace falta.
func (r *Resolver) ReferenceName(ctx context.Context, ref entity.Reference) string {
	if name := strings.TrimSpace(ref.Name); name != "" {
		return name
	}
	if ref.Href == "" {
		return ""
	}
	return lookup(r, r.names, ref.Href, func() string {
		d, err := r.get(ctx, ref.Href)
		if err != nil {
			r.log.Warn().Err(err).Str("href", ref.Href).Msg("no se pudo resolver la referencia")
			return ""
		}
		return d.Name()
	})
}

// CompanyType tipo de contraparte memoizado por documento: campo propio, agent embebido,
// agent consultado y por último atributo del documento.
func (r *Resolver) CompanyType(ctx context.Context, d entity.Document) entity.CompanyType {
	key := d.ID()
	if key == "" {
		key = d.Meta().Href
	}
	resolve := func() entity.CompanyType {
		if ct := audit.InlineCompanyType(d); ct != entity.CompanyUnknown {
			return ct
		}
		if ct := r.agentType(ctx, d); ct != entity.CompanyUnknown {
			return ct
		}
		return audit.AttributeCompanyType(d)
	}
	if key == "" {
		return resolve()
	}
	return lookup(r, r.companyTypes, key, resolve)
}

func (r *Resolver) agentType(ctx context.Context, d entity.Document) entity.CompanyType {
	agent, ok := d.Ref("agent")
	if !ok || agent.Href == "" {
		return entity.CompanyUnknown
	}
	return lookup(r, r.agentTypes, agent.ID(), func() entity.CompanyType {
		doc, err := r.get(ctx, agent.Href)
		if err != nil {
			r.log.Warn().Err(err).Str("agent", agent.ID()).Msg("no se pudo obtener la contraparte")
			return entity.CompanyUnknown
		}
		return entity.ParseCompanyType(doc.Str("companyType"))
	})
}

// Contract contrato completo (con atributos) por referencia.
func (r *Resolver) Contract(ctx context.Context, ref entity.Reference) (entity.Document, bool) {
	if ref.Href == "" {
		return nil, false
	}
	c := lookup(r, r.contracts, ref.ID(), func() entity.Document {
		doc, err := r.get(ctx, ref.Href)
		if err != nil {
			r.log.Warn().Err(err).Str("contract", ref.ID()).Msg("no se pudieron obtener los datos del contrato")
			return nil
		}
		return doc
	})
	return c, c != nil
}

// Positions posiciones expandidas o, si el tipo lo requiere, descargadas por documento.
func (r *Resolver) Positions(ctx context.Context, d entity.Document, lazy bool) []entity.Document {
	if d.Expanded("positions") || !lazy {
		return d.Rows("positions")
	}
	id, resource := d.ID(), d.Meta().Type
	if id == "" || resource == "" {
		return nil
	}
	return lookup(r, r.positions, resource+"/"+id, func() []entity.Document {
		rows, err := r.fetch(ctx, resource+"/"+id+"/positions", "assortment")
		if err != nil {
			r.log.Warn().Err(err).Str("document", d.Name()).Msg("no se pudieron cargar las posiciones")
			return nil
		}
		return rows
	})
}
