package bitrix

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/jhoicas/moysklad-audit/internal/application/check"
	"github.com/jhoicas/moysklad-audit/internal/domain/entity"
	"github.com/jhoicas/moysklad-audit/pkg/config"
)

var (
	_ check.Notifier   = (*Notifier)(nil)
	_ check.Summarizer = (*Notifier)(nil)
)

const (
	methodMessageAdd = "im.message.add"
	// MaxListed documentos listados por categoría antes de "... и еще N".
	MaxListed = 10
)

// Notifier envía los informes a un chat de Bitrix24 mediante un webhook entrante.
type Notifier struct {
	webhookURL string
	dialogID   string
	httpClient *http.Client
	log        zerolog.Logger
}

// NewNotifier construye el adaptador. chatID admite "123" o "chat123".
func NewNotifier(cfg config.BitrixConfig, log zerolog.Logger) *Notifier {
	dialog := strings.TrimSpace(cfg.ChatID)
	if !strings.HasPrefix(dialog, "chat") {
		dialog = "chat" + dialog
	}
	return &Notifier{
		webhookURL: strings.TrimRight(cfg.WebhookURL, "/"),
		dialogID:   dialog,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		log:        log,
	}
}

type messageRequest struct {
	DialogID string `json:"DIALOG_ID"`
	Message  string `json:"MESSAGE"`
}

type messageResponse struct {
	Result           any    `json:"result"`
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

// Notify envía el informe de un tipo de documento.
func (n *Notifier) Notify(ctx context.Context, msg check.Notification) error {
	return n.Send(ctx, FormatReport(msg))
}

// NotifySummary envía un único mensaje con el resultado de cada tipo auditado.
func (n *Notifier) NotifySummary(ctx context.Context, region entity.Region, from, to time.Time, results []check.TypeResult) error {
	return n.Send(ctx, FormatSummary(region, from, to, results))
}

// Send publica un mensaje de texto en el chat.
func (n *Notifier) Send(ctx context.Context, message string) error {
	body, err := json.Marshal(messageRequest{DialogID: n.dialogID, Message: message})
	if err != nil {
		return fmt.Errorf("bitrix: serializar mensaje: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.webhookURL+"/"+methodMessageAdd, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("bitrix: crear HTTP request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("bitrix: llamada HTTP fallida: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if err != nil {
		return fmt.Errorf("bitrix: leer respuesta: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("bitrix: HTTP %d: %s", resp.StatusCode, string(raw))
	}

	var out messageResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return fmt.Errorf("bitrix: deserializar respuesta: %w", err)
	}
	if !truthy(out.Result) {
		desc := out.ErrorDescription
		if desc == "" {
			desc = "Неизвестная ошибка"
		}
		return fmt.Errorf("bitrix: mensaje rechazado (%s): %s", out.Error, desc)
	}
	n.log.Info().Str("dialog", n.dialogID).Msg("mensaje enviado a Bitrix24")
	return nil
}

func truthy(v any) bool {
	switch r := v.(type) {
	case nil:
		return false
	case bool:
		return r
	case float64:
		return r != 0
	case string:
		return r != ""
	}
	return true
}

func period(from, to time.Time) string {
	return from.Format("02.01.2006") + " - " + to.Format("02.01.2006")
}

// FormatReport texto del informe: cabecera, total y documentos agrupados por categoría.
func FormatReport(msg check.Notification) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📊 Мониторинг %s %s за %s\n\n", msg.DocumentType.Label(), msg.Region, period(msg.From, msg.To))

	if msg.Report.Failed() {
		fmt.Fprintf(&b, "❌ %s\n", msg.Report.ErrorMessage)
		return b.String()
	}
	fmt.Fprintf(&b, "Всего ошибок: %d\n\n", len(msg.Report.Errors))

	var order []string
	groups := make(map[string][]string)
	for _, e := range msg.Report.Errors {
		seen := make(map[string]bool)
		for _, is := range e.Issues {
			cat := is.Category
			if strings.HasPrefix(cat, "Позиция") {
				cat = "Цена"
			}
			if seen[cat] {
				continue
			}
			seen[cat] = true
			if _, ok := groups[cat]; !ok {
				order = append(order, cat)
			}
			groups[cat] = append(groups[cat], e.Label())
		}
	}

	for _, cat := range order {
		docs := groups[cat]
		fmt.Fprintf(&b, "%s (%d):\n", cat, len(docs))
		for i, name := range docs {
			if i == MaxListed {
				fmt.Fprintf(&b, "  ... и еще %d\n", len(docs)-MaxListed)
				break
			}
			fmt.Fprintf(&b, "  • %s\n", name)
		}
		b.WriteString("\n")
	}
	return b.String()
}

// FormatSummary una línea por tipo auditado.
func FormatSummary(region entity.Region, from, to time.Time, results []check.TypeResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📊 Мониторинг %s за %s\n\n", region, period(from, to))
	total := 0
	for _, r := range results {
		if r.Report.Failed() {
			fmt.Fprintf(&b, "❌ %s: %s\n", r.DocumentType.Label(), r.Report.ErrorMessage)
			continue
		}
		total += len(r.Report.Errors)
		fmt.Fprintf(&b, "• %s: проверено %d, с ошибками %d\n", r.DocumentType.Label(), r.Report.Total, len(r.Report.Errors))
	}
	fmt.Fprintf(&b, "\nВсего ошибок: %d\n", total)
	return b.String()
}
