// Package config provides application configuration loaded from environment
// variables with defaults and validation. It centralizes the HTTP server,
// chat platform credentials, AI collaborator, reminder schedule, storage,
// rate limiting and observability settings.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Chat platform names accepted by CHAT_PLATFORM.
const (
	PlatformLINE     = "line"
	PlatformTelegram = "telegram"
	// PlatformNone runs without a webhook (ops API only).
	PlatformNone = "none"
)

// Reminder schedule modes accepted by REMINDER_MODE.
const (
	ReminderInterval = "interval"
	ReminderDaily    = "daily"
)

// CORSConfig defines Cross-Origin Resource Sharing settings for the ops API.
type CORSConfig struct {
	AllowedOrigins []string
}

// SecurityConfig defines security-related settings such as HSTS.
type SecurityConfig struct {
	EnableHSTS bool
	HSTSMaxAge time.Duration
}

// OTELConfig defines OpenTelemetry observability settings.
type OTELConfig struct {
	Enabled     bool    // OTEL_ENABLED
	Endpoint    string  // OTEL_EXPORTER_OTLP_ENDPOINT (e.g. "otel:4317")
	Insecure    bool    // OTEL_EXPORTER_OTLP_INSECURE (true if no TLS)
	ServiceName string  // OTEL_SERVICE_NAME
	SampleRatio float64 // OTEL_TRACES_SAMPLER_ARG in [0..1]
}

// LINEConfig holds Messaging API credentials.
type LINEConfig struct {
	ChannelSecret string // LINE_CHANNEL_SECRET, verifies X-Line-Signature
	ChannelToken  string // LINE_CHANNEL_TOKEN, long-lived access token
}

// TelegramConfig holds Bot API credentials.
type TelegramConfig struct {
	BotToken      string // TELEGRAM_BOT_TOKEN
	WebhookSecret string // TELEGRAM_WEBHOOK_SECRET, optional secret_token
}

// AIConfig configures the generative collaborator. An empty GeminiAPIKey
// disables it.
type AIConfig struct {
	GeminiAPIKey string        // GEMINI_API_KEY
	Model        string        // GEMINI_MODEL
	Timeout      time.Duration // AI_TIMEOUT
}

// ReminderConfig configures the expiry reminder scheduler.
type ReminderConfig struct {
	Enabled     bool          // REMINDERS_ENABLED
	Mode        string        // REMINDER_MODE: interval|daily
	Interval    time.Duration // REMINDER_INTERVAL
	DailyAt     string        // REMINDER_DAILY_AT, HH:MM
	Timezone    string        // REMINDER_TIMEZONE, IANA name
	HorizonDays int           // REMINDER_HORIZON_DAYS
}

// Config holds all configuration values for the application.
type Config struct {
	// Server
	Port              string        // just the number
	ReadTimeout       time.Duration // e.g. 15s
	ReadHeaderTimeout time.Duration // e.g. 10s
	WriteTimeout      time.Duration // must exceed AI_TIMEOUT plus a reply
	IdleTimeout       time.Duration // e.g. 60s
	MaxHeaderBytes    int           // bytes
	GinMode           string        // debug|release|test

	// Logging / Docs / ops API
	LogLevel       string // debug|info|warn|error|fatal|panic
	LogPretty      bool   // pretty console logs in dev
	SwaggerEnabled bool   // enable Swagger UI route
	APIEnabled     bool   // mount the ops API
	APIBasePath    string // base path for ops API routes

	// Storage
	DBPath   string        // SQLite path
	EventTTL time.Duration // how long webhook event ids and Idempotency-Keys are remembered

	// Chat platform
	Platform string // CHAT_PLATFORM: line|telegram|none
	LINE     LINEConfig
	Telegram TelegramConfig

	// Conversation
	IdleFallback        string // ai|help
	RejectPastDates     bool   // two-step and single-entry adds, modify
	RejectPastDatesBulk bool   // each entry of a multi-entry add
	Locale              string // BOT_LOCALE, e.g. en or zh-TW
	PushTimeout         time.Duration
	AI                  AIConfig

	// Reminders
	Reminder ReminderConfig

	// Rate limiting (ops API)
	RateRPS   float64 // tokens per second (>= 0)
	RateBurst int     // bucket size (>= 1)

	// Web protection
	CORS     CORSConfig
	Security SecurityConfig

	// Observability
	OTEL OTELConfig
}

// MustLoad loads the configuration and panics if validation fails.
func MustLoad() Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// Load reads configuration from environment variables,
// applies defaults, normalizes values, and validates the result.
func Load() (Config, error) {
	cfg := Config{
		// Server
		Port:              getenv("PORT", "8080"),
		ReadTimeout:       getdur("READ_TIMEOUT", 15*time.Second),
		ReadHeaderTimeout: getdur("READ_HEADER_TIMEOUT", 10*time.Second),
		WriteTimeout:      getdur("WRITE_TIMEOUT", 45*time.Second),
		IdleTimeout:       getdur("IDLE_TIMEOUT", 60*time.Second),
		MaxHeaderBytes:    getint("MAX_HEADER_BYTES", 1<<20),
		GinMode:           strings.ToLower(getenv("GIN_MODE", "release")),

		// Logging / Docs / ops API
		LogLevel:       strings.ToLower(getenv("LOG_LEVEL", "info")),
		LogPretty:      getbool("LOG_PRETTY", false),
		SwaggerEnabled: getbool("SWAGGER_ENABLED", false),
		APIEnabled:     getbool("API_ENABLED", true),
		APIBasePath:    normalizeBasePath(getenv("API_BASE_PATH", "/api/v1")),

		// Storage
		DBPath:   getenv("DB_PATH", "pantry.db"),
		EventTTL: getdur("EVENT_TTL", 24*time.Hour),

		// Chat platform
		Platform: strings.ToLower(strings.TrimSpace(getenv("CHAT_PLATFORM", PlatformLINE))),
		LINE: LINEConfig{
			ChannelSecret: getenv("LINE_CHANNEL_SECRET", ""),
			ChannelToken:  getenv("LINE_CHANNEL_TOKEN", ""),
		},
		Telegram: TelegramConfig{
			BotToken:      getenv("TELEGRAM_BOT_TOKEN", ""),
			WebhookSecret: getenv("TELEGRAM_WEBHOOK_SECRET", ""),
		},

		// Conversation
		IdleFallback:        strings.ToLower(getenv("IDLE_FALLBACK", "ai")),
		RejectPastDates:     getbool("REJECT_PAST_DATES", true),
		RejectPastDatesBulk: getbool("REJECT_PAST_DATES_BULK", false),
		Locale:              getenv("BOT_LOCALE", "en"),
		PushTimeout:         getdur("PUSH_TIMEOUT", 10*time.Second),
		AI: AIConfig{
			GeminiAPIKey: getenv("GEMINI_API_KEY", ""),
			Model:        getenv("GEMINI_MODEL", "gemini-1.5-flash"),
			Timeout:      getdur("AI_TIMEOUT", 20*time.Second),
		},

		// Reminders
		Reminder: ReminderConfig{
			Enabled:     getbool("REMINDERS_ENABLED", true),
			Mode:        strings.ToLower(getenv("REMINDER_MODE", ReminderInterval)),
			Interval:    getdur("REMINDER_INTERVAL", time.Hour),
			DailyAt:     getenv("REMINDER_DAILY_AT", "09:00"),
			Timezone:    getenv("REMINDER_TIMEZONE", "UTC"),
			HorizonDays: getint("REMINDER_HORIZON_DAYS", 3),
		},

		// Rate limiting
		RateRPS:   getfloat("RATE_RPS", 5.0),
		RateBurst: getint("RATE_BURST", 10),

		// Web protection
		CORS: CORSConfig{
			AllowedOrigins: splitCSV(getenv("CORS_ALLOWED_ORIGINS", "")),
		},
		Security: SecurityConfig{
			EnableHSTS: getbool("ENABLE_HSTS", false),
			HSTSMaxAge: getdur("HSTS_MAX_AGE", 180*24*time.Hour),
		},

		// Observability (OpenTelemetry)
		OTEL: OTELConfig{
			Enabled:     getbool("OTEL_ENABLED", false),
			Endpoint:    getenv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			Insecure:    getbool("OTEL_EXPORTER_OTLP_INSECURE", true),
			ServiceName: getenv("OTEL_SERVICE_NAME", "pantry-bot"),
			SampleRatio: getfloat("OTEL_TRACES_SAMPLER_ARG", 1.0),
		},
	}

	// --- normalization ---
	if cfg.LogLevel == "warning" {
		cfg.LogLevel = "warn"
	}
	switch cfg.GinMode {
	case "debug", "release", "test":
	default:
		cfg.GinMode = "release"
	}

	return cfg, cfg.validate()
}

func (cfg Config) validate() error {
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error", "fatal", "panic":
	default:
		return errors.New("LOG_LEVEL must be one of: debug, info, warn, error, fatal, panic")
	}
	if strings.TrimSpace(cfg.Port) == "" {
		return errors.New("PORT must not be empty")
	}
	if cfg.ReadTimeout <= 0 || cfg.ReadHeaderTimeout <= 0 || cfg.WriteTimeout <= 0 || cfg.IdleTimeout <= 0 {
		return errors.New("timeouts must be positive durations")
	}
	if cfg.MaxHeaderBytes <= 0 {
		return errors.New("MAX_HEADER_BYTES must be > 0")
	}
	if strings.TrimSpace(cfg.DBPath) == "" {
		return errors.New("DB_PATH must not be empty")
	}
	if cfg.EventTTL <= 0 {
		return errors.New("EVENT_TTL must be > 0")
	}

	switch cfg.Platform {
	case PlatformLINE:
		if cfg.LINE.ChannelSecret == "" || cfg.LINE.ChannelToken == "" {
			return errors.New("LINE_CHANNEL_SECRET and LINE_CHANNEL_TOKEN are required when CHAT_PLATFORM=line")
		}
	case PlatformTelegram:
		if cfg.Telegram.BotToken == "" || cfg.Telegram.WebhookSecret == "" {
			return errors.New("TELEGRAM_BOT_TOKEN and TELEGRAM_WEBHOOK_SECRET are required when CHAT_PLATFORM=telegram")
		}
	case PlatformNone:
	default:
		return errors.New("CHAT_PLATFORM must be one of: line, telegram, none")
	}

	switch cfg.IdleFallback {
	case "ai", "help":
	default:
		return errors.New("IDLE_FALLBACK must be one of: ai, help")
	}
	if strings.TrimSpace(cfg.Locale) == "" {
		return errors.New("BOT_LOCALE must not be empty")
	}
	if cfg.PushTimeout <= 0 || cfg.AI.Timeout <= 0 {
		return errors.New("PUSH_TIMEOUT and AI_TIMEOUT must be > 0")
	}

	switch cfg.Reminder.Mode {
	case ReminderInterval:
		if cfg.Reminder.Interval <= 0 {
			return errors.New("REMINDER_INTERVAL must be > 0")
		}
	case ReminderDaily:
		if _, _, err := parseClock(cfg.Reminder.DailyAt); err != nil {
			return err
		}
	default:
		return errors.New("REMINDER_MODE must be one of: interval, daily")
	}
	if _, err := time.LoadLocation(cfg.Reminder.Timezone); err != nil {
		return fmt.Errorf("REMINDER_TIMEZONE: %w", err)
	}
	if cfg.Reminder.HorizonDays < 0 {
		return errors.New("REMINDER_HORIZON_DAYS must be >= 0")
	}

	if cfg.RateRPS < 0 {
		return errors.New("RATE_RPS must be >= 0")
	}
	if cfg.RateBurst < 1 {
		return errors.New("RATE_BURST must be >= 1")
	}
	if cfg.Security.HSTSMaxAge < 0 {
		return errors.New("HSTS_MAX_AGE must be >= 0")
	}
	if cfg.OTEL.SampleRatio < 0 || cfg.OTEL.SampleRatio > 1 {
		return errors.New("OTEL_TRACES_SAMPLER_ARG must be in [0,1]")
	}
	return nil
}

// Location returns the reminder timezone. Load has already validated it.
func (r ReminderConfig) Location() *time.Location {
	loc, err := time.LoadLocation(r.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// parseClock validates an HH:MM time of day.
func parseClock(v string) (hour, minute int, err error) {
	t, err := time.Parse("15:04", strings.TrimSpace(v))
	if err != nil {
		return 0, 0, fmt.Errorf("REMINDER_DAILY_AT must be HH:MM, got %q", v)
	}
	return t.Hour(), t.Minute(), nil
}

// ---- helpers (no external deps) ----

func getenv(k, def string) string {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		return v
	}
	return def
}

func getfloat(k string, def float64) float64 {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getint(k string, def int) int {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getbool(k string, def bool) bool {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "true", "yes", "y", "on":
			return true
		case "0", "false", "no", "n", "off":
			return false
		}
	}
	return def
}

func getdur(k string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// normalizeBasePath ensures leading '/' and strips trailing '/' (except root).
func normalizeBasePath(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	if p = strings.TrimRight(p, "/"); p == "" {
		return "/"
	}
	return p
}
