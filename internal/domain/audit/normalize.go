package audit

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

// Normalize pasa a minúsculas (NFKC) y deja solo letras y dígitos:
// "Канал продаж" y "канал-продаж" comparan igual.
func Normalize(s string) string {
	// cases.Caser no es seguro para uso concurrente: uno por llamada.
	s = cases.Lower(language.Und).String(norm.NFKC.String(s))
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// OnlyDigits conserva solo los dígitos ASCII.
func OnlyDigits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// NameMatcher decide si un nombre (ya normalizado) corresponde al campo buscado.
type NameMatcher func(normalized string) bool

// Exact coincide con alguno de los nombres dados (se normalizan aquí).
func Exact(names ...string) NameMatcher {
	set := make(map[string]struct{}, len(names))
	for _, n := range names {
		set[Normalize(n)] = struct{}{}
	}
	return func(s string) bool {
		_, ok := set[s]
		return ok
	}
}

// Contains coincide si el nombre contiene alguno de los fragmentos.
func Contains(tokens ...string) NameMatcher {
	norms := normalizeAll(tokens)
	return func(s string) bool {
		for _, t := range norms {
			if strings.Contains(s, t) {
				return true
			}
		}
		return false
	}
}

// ContainsAll coincide si el nombre contiene todos los fragmentos.
func ContainsAll(tokens ...string) NameMatcher {
	norms := normalizeAll(tokens)
	return func(s string) bool {
		for _, t := range norms {
			if !strings.Contains(s, t) {
				return false
			}
		}
		return true
	}
}

// Except excluye los nombres que contienen alguno de los fragmentos.
func Except(m NameMatcher, tokens ...string) NameMatcher {
	excluded := Contains(tokens...)
	return func(s string) bool {
		return m(s) && !excluded(s)
	}
}

func normalizeAll(in []string) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = Normalize(s)
	}
	return out
}

// hasToken busca una palabra completa en un texto libre (en minúsculas).
func hasToken(text, token string) bool {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, f := range fields {
		if f == token {
			return true
		}
	}
	return false
}
