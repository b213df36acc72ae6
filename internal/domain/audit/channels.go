package audit

import (
	"strings"
)

// channelProjects canal de venta -> proyectos admitidos. Lista vacía: el canal no exige proyecto.
// El orden importa: gana la primera entrada cuyo nombre contiene al canal o viceversa.
var channelProjects = []struct {
	channel  string
	projects []string
}{
	{"Сети", []string{"Федеральные", "Региональные", "Локальные"}},
	{"Опт", []string{"Крупный Опт", "Средний Опт", "Салоны"}},
	{"Фарма", []string{"Аптеки"}},
	{"Экспорт", []string{"Экспорт Азия"}},
	{"Транзиты", []string{"Европа", "ОАЭ", "Казахстан", "Беларусь", "Россия"}},
	{"Маркетплейсы", nil},
	{"Розница ИМ", nil},
	{"Розница офлайн", nil},
	{"Розница услуги", nil},
	{"Розница сертификаты", nil},
	{"CTM", nil},
}

// AllowedProjects proyectos admitidos para el canal; known = false si el canal no está en la tabla.
func AllowedProjects(channel string) (projects []string, known bool) {
	norm := Normalize(channel)
	if norm == "" {
		return nil, false
	}
	for _, entry := range channelProjects {
		key := Normalize(entry.channel)
		if strings.Contains(norm, key) || strings.Contains(key, norm) {
			return entry.projects, true
		}
	}
	return nil, false
}

func projectAllowed(project string, allowed []string) bool {
	norm := Normalize(project)
	for _, p := range allowed {
		if Normalize(p) == norm {
			return true
		}
	}
	return false
}
