package audit

import (
	"fmt"
	"strings"

	"github.com/jhoicas/moysklad-audit/internal/domain/entity"
)

// DefaultAppHost interfaz web de MoySklad.
const DefaultAppHost = "https://online.moysklad.ru"

// linkPaths tipo remoto -> ruta de la interfaz web.
var linkPaths = map[string]string{
	"demand":              "demand",
	"shipment":            "demand",
	"salesreturn":         "salesreturn",
	"retaildemand":        "retaildemand",
	"retailsalesreturn":   "retailsalesreturn",
	"commissionreportin":  "commissionreportin",
	"commission":          "commissionreportin",
	"commissionreportout": "commissionreportout",
	"counterparty":        "Company",
	"contractor":          "Company",
}

// BuildLink URL navegable del documento: <host>/app/#<ruta>/edit?id=<id>.
// Sin id devuelve el href (o "" si tampoco hay).
func BuildLink(host string, d entity.Document, fallbackType string) string {
	if d == nil {
		return ""
	}
	if host == "" {
		host = DefaultAppHost
	}
	meta := d.Meta()
	id := d.ID()
	if id == "" {
		return meta.Href
	}

	entityType := meta.Type
	if entityType == "" {
		entityType = fallbackType
	}
	path, ok := linkPaths[strings.ToLower(entityType)]
	if !ok {
		path, ok = linkPaths[strings.ToLower(fallbackType)]
	}
	if !ok {
		path = entityType
	}
	if path == "" {
		return meta.Href
	}
	return fmt.Sprintf("%s/app/#%s/edit?id=%s", strings.TrimRight(host, "/"), path, id)
}
