package entity

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Document registro remoto de MoySklad (contraparte, envío, venta, informe...).
// Es un mapa opaco decodificado con json.Number; los accesores nunca hacen panic:
// un valor de tipo inesperado se lee como ausente.
type Document map[string]any

// DecodeDocument decodifica un objeto JSON conservando los números como json.Number.
func DecodeDocument(data []byte) (Document, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var d Document
	if err := dec.Decode(&d); err != nil {
		return nil, fmt.Errorf("entity: decodificar documento: %w", err)
	}
	return d, nil
}

// Str devuelve el campo como texto recortado ("" si falta o no es escalar).
func (d Document) Str(key string) string {
	switch v := d[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case json.Number:
		return v.String()
	}
	return ""
}

// Object devuelve el objeto anidado en key o nil.
func (d Document) Object(key string) Document {
	return asDocument(d[key])
}

// List devuelve la lista en key o nil.
func (d Document) List(key string) []any {
	v, _ := d[key].([]any)
	return v
}

// Number lee un campo numérico (json.Number, float64 o int).
func (d Document) Number(key string) (decimal.Decimal, bool) {
	return asDecimal(d[key])
}

// Has indica si el campo existe y no es null.
func (d Document) Has(key string) bool {
	v, ok := d[key]
	return ok && v != nil
}

// ID identificador del documento; si falta, el último segmento de meta.href.
func (d Document) ID() string {
	if id := d.Str("id"); id != "" {
		return id
	}
	return d.Meta().ID()
}

func (d Document) Name() string { return d.Str("name") }

// Meta referencia del propio documento (href, tipo remoto y nombre).
func (d Document) Meta() Reference {
	m := d.Object("meta")
	return Reference{Href: m.Str("href"), Type: m.Str("type"), Name: d.Str("name")}
}

// Ref lee un campo de referencia ({meta, name}); ok = false si el campo no es un objeto.
func (d Document) Ref(key string) (Reference, bool) {
	obj := d.Object(key)
	if obj == nil {
		return Reference{}, false
	}
	return obj.Meta(), true
}

// Attributes atributos adicionales del documento.
func (d Document) Attributes() []Attribute {
	raw := d.List("attributes")
	out := make([]Attribute, 0, len(raw))
	for _, item := range raw {
		a := asDocument(item)
		if a == nil {
			continue
		}
		out = append(out, Attribute{
			ID:    a.Str("id"),
			Name:  a.Str("name"),
			Type:  a.Str("type"),
			Value: a["value"],
		})
	}
	return out
}

// Rows devuelve las filas de una colección anidada: {meta, rows: [...]} o lista directa.
func (d Document) Rows(key string) []Document {
	var raw []any
	switch v := d[key].(type) {
	case []any:
		raw = v
	default:
		raw = asDocument(v).List("rows")
	}
	out := make([]Document, 0, len(raw))
	for _, item := range raw {
		if row := asDocument(item); row != nil {
			out = append(out, row)
		}
	}
	return out
}

// Expanded indica si una colección anidada viene con filas (y no solo con meta).
func (d Document) Expanded(key string) bool {
	switch v := d[key].(type) {
	case []any:
		return true
	default:
		_, ok := asDocument(v)["rows"]
		return ok
	}
}

var momentLayouts = []string{
	"2006-01-02 15:04:05.000",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05.000",
	"2006-01-02T15:04:05",
	time.RFC3339Nano,
	"2006-01-02",
}

// ParseMoment interpreta las fechas de MoySklad ("2024-03-01 10:20:30.000").
func ParseMoment(s string, loc *time.Location) (time.Time, bool) {
	s = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "Z"))
	if s == "" {
		return time.Time{}, false
	}
	if loc == nil {
		loc = time.UTC
	}
	for _, layout := range momentLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// Moment fecha del documento.
func (d Document) Moment(loc *time.Location) (time.Time, bool) {
	return ParseMoment(d.Str("moment"), loc)
}

func asDocument(v any) Document {
	switch m := v.(type) {
	case map[string]any:
		return Document(m)
	case Document:
		return m
	}
	return nil
}

func asDecimal(v any) (decimal.Decimal, bool) {
	switch n := v.(type) {
	case json.Number:
		d, err := decimal.NewFromString(n.String())
		return d, err == nil
	case float64:
		return decimal.NewFromFloat(n), true
	case int:
		return decimal.NewFromInt(int64(n)), true
	case int64:
		return decimal.NewFromInt(n), true
	case decimal.Decimal:
		return n, true
	}
	return decimal.Zero, false
}

// Reference vínculo a otro recurso remoto.
type Reference struct {
	Href string
	Type string
	Name string
}

// ID último segmento del href (sin query string).
func (r Reference) ID() string {
	return LastSegment(r.Href)
}

// Filled indica si la referencia apunta a algo (enlace o nombre no vacío).
func (r Reference) Filled() bool {
	return r.Href != "" || strings.TrimSpace(r.Name) != ""
}

// LastSegment último segmento de ruta de un href.
func LastSegment(href string) string {
	if i := strings.IndexByte(href, '?'); i >= 0 {
		href = href[:i]
	}
	href = strings.TrimRight(href, "/")
	if i := strings.LastIndexByte(href, '/'); i >= 0 {
		return href[i+1:]
	}
	return href
}

// Attribute campo adicional definido por el usuario (texto, número, referencia o archivo).
type Attribute struct {
	ID    string
	Name  string
	Type  string
	Value any
}

// IsFile indica un atributo de tipo archivo.
func (a Attribute) IsFile() bool { return a.Type == "file" }

// Text valor como texto: cadena, nombre de la referencia o número.
func (a Attribute) Text() string {
	switch v := a.Value.(type) {
	case string:
		return strings.TrimSpace(v)
	case json.Number:
		return v.String()
	case bool:
		if v {
			return "true"
		}
		return "false"
	}
	if obj := asDocument(a.Value); obj != nil {
		return obj.Str("name")
	}
	return ""
}

// Ref valor como referencia (atributos de tipo catálogo).
func (a Attribute) Ref() (Reference, bool) {
	obj := asDocument(a.Value)
	if obj == nil {
		return Reference{}, false
	}
	return obj.Meta(), true
}

// Filled indica si el atributo tiene un valor utilizable.
func (a Attribute) Filled() bool {
	switch v := a.Value.(type) {
	case nil:
		return false
	case string:
		return strings.TrimSpace(v) != ""
	case json.Number, bool, float64, int:
		return true
	}
	if a.IsFile() {
		return len(asDocument(a.Value)) > 0
	}
	if ref, ok := a.Ref(); ok {
		return ref.Filled()
	}
	return false
}
