package cli

import (
	"fmt"

	"github.com/jhoicas/moysklad-audit/internal/domain"
	"github.com/jhoicas/moysklad-audit/pkg/config"
	"github.com/jhoicas/moysklad-audit/pkg/jwt"
)

func issueToken(cfg config.JWTConfig, subject, role string, minutes int) (string, error) {
	if role != jwt.RoleAdmin && role != jwt.RoleViewer {
		return "", fmt.Errorf("%w: rol desconocido %q", domain.ErrInvalidInput, role)
	}
	if cfg.Secret == "" {
		return "", fmt.Errorf("%w: JWT_SECRET no configurado", domain.ErrInvalidInput)
	}
	return jwt.Generate(cfg.Secret, subject, role, cfg.Issuer, minutes)
}
