package config

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// DefaultBaseURL API JSON 1.2 de MoySklad.
const DefaultBaseURL = "https://api.moysklad.ru/api/remap/1.2"

// Config agrupa la configuración de la aplicación (lectura vía Viper desde env y opcionalmente archivo).
type Config struct {
	App      AppConfig
	MoySklad MoySkladConfig
	Audit    AuditConfig
	DB       DBConfig
	JWT      JWTConfig
	HTTP     HTTPConfig
	Bitrix   BitrixConfig
	PDF      PDFConfig
}

// AppConfig configuración general de la aplicación.
type AppConfig struct {
	Env      string // development, staging, production
	Name     string
	LogLevel string
	Region   string // región por defecto para la CLI
}

// Credentials acceso a una cuenta de MoySklad.
type Credentials struct {
	Login    string
	Password string
	BaseURL  string
}

// Complete indica si hay login y contraseña.
func (c Credentials) Complete() bool {
	return c.Login != "" && c.Password != ""
}

// MoySkladConfig cuotas y credenciales por región (RB, RF, KZ).
type MoySkladConfig struct {
	Regions        map[string]Credentials
	MinDelay       time.Duration
	PerMinuteLimit int
	DailyLimit     int // 0 = sin límite diario
	MaxRetries     int
	Timeout        time.Duration
}

// Region devuelve las credenciales de la región (RB, RF, KZ) o un error si faltan.
func (c MoySkladConfig) Region(code string) (Credentials, error) {
	cred, ok := c.Regions[strings.ToUpper(code)]
	if !ok {
		return Credentials{}, fmt.Errorf("config: región no soportada: %s", code)
	}
	if !cred.Complete() {
		return Credentials{}, fmt.Errorf("config: faltan credenciales de MoySklad para la región %s", code)
	}
	return cred, nil
}

// AuditConfig parámetros de las reglas de auditoría.
type AuditConfig struct {
	ContactCenterEmployee string
	AppHost               string // host de la interfaz web usado en los enlaces
	Timezone              string
}

// Location zona horaria para fechas de documentos; UTC si no se puede cargar.
func (c AuditConfig) Location() *time.Location {
	if c.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// BitrixConfig webhook de Bitrix24 para notificaciones.
type BitrixConfig struct {
	WebhookURL string
	ChatID     string
}

// Enabled indica si el notificador está configurado.
func (c BitrixConfig) Enabled() bool {
	return c.WebhookURL != "" && c.ChatID != ""
}

// PDFConfig fuente TTF con soporte de cirílico (vacío = fuente por defecto).
type PDFConfig struct {
	FontPath string
}

// DBConfig configuración de PostgreSQL.
// Si DatabaseURL no está vacío, se usa como connection string completo.
type DBConfig struct {
	DatabaseURL string
	Host        string
	Port        int
	User        string
	Password    string
	DBName      string
	SSLMode     string
}

// Enabled indica si hay una base de datos configurada para el historial.
func (c DBConfig) Enabled() bool {
	return c.DatabaseURL != "" || c.Host != ""
}

// ConnectionString devuelve el DSN a usar: DATABASE_URL si está definido, si no el construido con DSN().
func (c DBConfig) ConnectionString() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return c.DSN()
}

// DSN devuelve el connection string para PostgreSQL con URL encoding para caracteres especiales.
func (c DBConfig) DSN() string {
	u := &url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     fmt.Sprintf("%s:%d", c.Host, c.Port),
		Path:     "/" + c.DBName,
		RawQuery: fmt.Sprintf("sslmode=%s", c.SSLMode),
	}
	return u.String()
}

// JWTConfig configuración de JWT.
type JWTConfig struct {
	Secret     string
	Expiration int // minutos
	Issuer     string
}

// HTTPConfig configuración del servidor HTTP.
type HTTPConfig struct {
	Host string
	Port int
}

// Addr devuelve la dirección de escucha (host:port).
func (c HTTPConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Load lee la configuración desde variables de entorno (y opcionalmente desde archivo).
// Las env vars tienen prioridad. Nombres esperados: APP_ENV, MOYSKLAD_BY_LOGIN, JWT_SECRET, etc.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	_ = v.ReadInConfig() // ignoramos error si no existe

	v.SetConfigName("config")
	v.AddConfigPath("./config")
	_ = v.ReadInConfig()

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	return fromViper(v)
}

func fromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		App: AppConfig{
			Env:      getString(v, "APP_ENV", "development"),
			Name:     getString(v, "APP_NAME", "moysklad-audit"),
			LogLevel: strings.ToLower(getString(v, "LOG_LEVEL", "info")),
			Region:   strings.ToUpper(getString(v, "REGION", "RB")),
		},
		MoySklad: MoySkladConfig{
			Regions:        loadRegions(v),
			MinDelay:       getSeconds(v, "MOYSKLAD_MIN_DELAY", 100*time.Millisecond),
			PerMinuteLimit: getInt(v, "MOYSKLAD_RATE_LIMIT", 100),
			DailyLimit:     getInt(v, "MOYSKLAD_DAILY_LIMIT", 1000),
			MaxRetries:     getInt(v, "MOYSKLAD_MAX_RETRY_429", 5),
			Timeout:        getSeconds(v, "MOYSKLAD_TIMEOUT", 60*time.Second),
		},
		Audit: AuditConfig{
			ContactCenterEmployee: getString(v, "CONTACT_CENTER_EMPLOYEE", "Контакт-Центр"),
			AppHost:               getString(v, "MOYSKLAD_APP_HOST", "https://online.moysklad.ru"),
			Timezone:              getString(v, "AUDIT_TIMEZONE", "Europe/Minsk"),
		},
		DB: DBConfig{
			DatabaseURL: getString(v, "DATABASE_URL", ""),
			Host:        getString(v, "DB_HOST", ""),
			Port:        getInt(v, "DB_PORT", 5432),
			User:        getString(v, "DB_USER", "postgres"),
			Password:    getString(v, "DB_PASSWORD", ""),
			DBName:      getString(v, "DB_NAME", "moysklad_audit"),
			SSLMode:     getString(v, "DB_SSLMODE", "disable"),
		},
		JWT: JWTConfig{
			Secret:     getString(v, "JWT_SECRET", ""),
			Expiration: getInt(v, "JWT_EXPIRATION_MINUTES", 60),
			Issuer:     getString(v, "JWT_ISSUER", "moysklad-audit"),
		},
		HTTP: HTTPConfig{
			Host: getString(v, "HTTP_HOST", "0.0.0.0"),
			Port: getInt(v, "HTTP_PORT", 8080),
		},
		Bitrix: BitrixConfig{
			WebhookURL: getString(v, "BITRIX24_WEBHOOK_URL", ""),
			ChatID:     getString(v, "BITRIX24_CHAT_ID", ""),
		},
		PDF: PDFConfig{
			FontPath: getString(v, "PDF_FONT_PATH", ""),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	var errs []error
	if c.MoySklad.PerMinuteLimit <= 0 {
		errs = append(errs, errors.New("config: MOYSKLAD_RATE_LIMIT debe ser mayor que cero"))
	}
	if c.MoySklad.DailyLimit < 0 {
		errs = append(errs, errors.New("config: MOYSKLAD_DAILY_LIMIT no puede ser negativo"))
	}
	if c.MoySklad.MaxRetries < 0 {
		errs = append(errs, errors.New("config: MOYSKLAD_MAX_RETRY_429 no puede ser negativo"))
	}
	if c.MoySklad.MinDelay < 0 {
		errs = append(errs, errors.New("config: MOYSKLAD_MIN_DELAY no puede ser negativo"))
	}
	return errors.Join(errs...)
}

// loadRegions admite MOYSKLAD_BY_LOGIN, MOYSKLAD_LOGIN_BY y los nombres antiguos RB/RF.
func loadRegions(v *viper.Viper) map[string]Credentials {
	load := func(codes ...string) Credentials {
		var c Credentials
		for _, code := range codes {
			if c.Login == "" {
				c.Login = firstString(v, "MOYSKLAD_"+code+"_LOGIN", "MOYSKLAD_LOGIN_"+code)
			}
			if c.Password == "" {
				c.Password = firstString(v, "MOYSKLAD_"+code+"_PASSWORD", "MOYSKLAD_PASSWORD_"+code)
			}
			if c.BaseURL == "" {
				c.BaseURL = firstString(v, "MOYSKLAD_"+code+"_BASE_URL")
			}
		}
		if c.BaseURL == "" {
			c.BaseURL = DefaultBaseURL
		}
		return c
	}
	return map[string]Credentials{
		"RB": load("RB", "BY"),
		"RF": load("RF", "RU"),
		"KZ": load("KZ"),
	}
}

func firstString(v *viper.Viper, keys ...string) string {
	for _, k := range keys {
		if s := strings.TrimSpace(v.GetString(k)); s != "" {
			return s
		}
	}
	return ""
}

func getString(v *viper.Viper, key, def string) string {
	if v.IsSet(key) {
		return v.GetString(key)
	}
	return def
}

func getInt(v *viper.Viper, key string, def int) int {
	if v.IsSet(key) {
		switch v.Get(key).(type) {
		case int:
			return v.GetInt(key)
		case string:
			n, err := strconv.Atoi(strings.TrimSpace(v.GetString(key)))
			if err != nil {
				return def
			}
			return n
		default:
			return v.GetInt(key)
		}
	}
	return def
}

// getSeconds lee un número de segundos (admite fracciones: 0.1 = 100ms).
func getSeconds(v *viper.Viper, key string, def time.Duration) time.Duration {
	if !v.IsSet(key) {
		return def
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(v.GetString(key)), 64)
	if err != nil {
		return def
	}
	return time.Duration(f * float64(time.Second))
}
