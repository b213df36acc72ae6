package domain

import "errors"

// Errores de dominio (sin dependencias externas).
var (
	ErrNotFound     = errors.New("recurso no encontrado")
	ErrInvalidInput = errors.New("entrada inválida")

	// Fallos del proveedor (MoySklad).
	ErrTransientAPI       = errors.New("error transitorio de la API")
	ErrRateLimitExhausted = errors.New("reintentos por límite de peticiones agotados")
	ErrDailyQuotaExceeded = errors.New("cuota diaria de peticiones agotada")
)

// DailyQuotaMessage texto mostrado al usuario cuando se agota la cuota diaria (%d = límite configurado).
const DailyQuotaMessage = "Достигнут дневной лимит API МойСклад (%d запросов). Попробуйте позже."
