package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const (
	defaultInternalToken = "change-me-internal-token"
	defaultJWTSecret     = "change-me-jwt-secret"
)

type RuntimeConfig struct {
	AppEnv   string `envconfig:"APP_ENV" default:"dev"`
	HTTPAddr string `envconfig:"HTTP_ADDR" default:":8080"`

	CORSAllowedOrigins string `envconfig:"CORS_ALLOWED_ORIGINS"`

	DatabaseURL string `envconfig:"DATABASE_URL" default:"staybook.db"`

	StripeSecretKey         string   `envconfig:"STRIPE_SECRET_KEY"`
	StripeWebhookSecret     string   `envconfig:"STRIPE_WEBHOOK_SECRET"`
	StripePlatformAccountID string   `envconfig:"STRIPE_PLATFORM_ACCOUNT_ID"`
	DeferredFeeMethods      []string `envconfig:"DEFERRED_FEE_METHODS" default:"sepa_debit,bancontact,ideal,sofort"`

	SMTPHost     string `envconfig:"SMTP_HOST"`
	SMTPPort     int    `envconfig:"SMTP_PORT" default:"587"`
	SMTPUsername string `envconfig:"SMTP_USERNAME"`
	SMTPPassword string `envconfig:"SMTP_PASSWORD"`
	MailFrom     string `envconfig:"MAIL_FROM" default:"bookings@staybook.local"`
	MailFromName string `envconfig:"MAIL_FROM_NAME" default:"StayBook"`

	DownstreamWebhookURL string `envconfig:"DOWNSTREAM_WEBHOOK_URL"`
	AMQPURL              string `envconfig:"AMQP_URL"`
	AMQPExchange         string `envconfig:"AMQP_EXCHANGE" default:"staybook.events"`
	RedisURL             string `envconfig:"REDIS_URL"`

	InternalToken       string `envconfig:"INTERNAL_TOKEN" default:"change-me-internal-token"`
	InternalTokenBcrypt string `envconfig:"INTERNAL_TOKEN_BCRYPT"`
	JWTSecret           string `envconfig:"JWT_SECRET" default:"change-me-jwt-secret"`

	CollectorInterval    time.Duration `envconfig:"COLLECTOR_INTERVAL" default:"1m"`
	CollectorBatch       int           `envconfig:"COLLECTOR_BATCH" default:"20"`
	CollectorMaxAttempts int           `envconfig:"COLLECTOR_MAX_ATTEMPTS" default:"8"`
	CollectorBaseBackoff time.Duration `envconfig:"COLLECTOR_BASE_BACKOFF" default:"1m"`
	CollectorMaxBackoff  time.Duration `envconfig:"COLLECTOR_MAX_BACKOFF" default:"6h"`

	ReconcileToleranceMinor int64         `envconfig:"RECONCILE_TOLERANCE_MINOR" default:"1"`
	EventWriteRetries       int           `envconfig:"EVENT_WRITE_RETRIES" default:"3"`
	SideEffectTimeout       time.Duration `envconfig:"SIDE_EFFECT_TIMEOUT" default:"30s"`
	DeliveryRetentionDays   int           `envconfig:"DELIVERY_RETENTION_DAYS" default:"90"`

	OTelEnabled  bool   `envconfig:"OTEL_ENABLED" default:"false"`
	OTelEndpoint string `envconfig:"OTEL_EXPORTER_OTLP_ENDPOINT" default:"localhost:4317"`
}

// Load reads .env when present, then the environment.
func Load() (*RuntimeConfig, error) {
	if err := godotenv.Load(); err == nil {
		log.Println("loaded .env")
	}

	cfg := &RuntimeConfig{}
	if err := envconfig.Process("", cfg); err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	cfg.AppEnv = strings.ToLower(strings.TrimSpace(cfg.AppEnv))
	cfg.DeferredFeeMethods = normalizeList(cfg.DeferredFeeMethods)

	if err := validateConfig(cfg); err != nil {
		return nil, err
	}

	log.Printf("config env=%s http_addr=%s smtp=%t amqp=%t redis=%t downstream_webhook=%t otel=%t",
		cfg.AppEnv, cfg.HTTPAddr, cfg.SMTPHost != "", cfg.AMQPURL != "", cfg.RedisURL != "",
		cfg.DownstreamWebhookURL != "", cfg.OTelEnabled)

	return cfg, nil
}

func validateConfig(cfg *RuntimeConfig) error {
	if cfg.CollectorInterval <= 0 {
		return fmt.Errorf("COLLECTOR_INTERVAL must be > 0")
	}
	if cfg.CollectorBatch <= 0 {
		return fmt.Errorf("COLLECTOR_BATCH must be > 0")
	}
	if cfg.CollectorBaseBackoff <= 0 || cfg.CollectorMaxBackoff < cfg.CollectorBaseBackoff {
		return fmt.Errorf("COLLECTOR_BASE_BACKOFF must be > 0 and <= COLLECTOR_MAX_BACKOFF")
	}
	if cfg.CollectorMaxAttempts < 0 {
		return fmt.Errorf("COLLECTOR_MAX_ATTEMPTS must be >= 0")
	}
	if cfg.ReconcileToleranceMinor < 0 {
		return fmt.Errorf("RECONCILE_TOLERANCE_MINOR must be >= 0")
	}
	if cfg.EventWriteRetries < 1 {
		return fmt.Errorf("EVENT_WRITE_RETRIES must be >= 1")
	}
	if cfg.SideEffectTimeout <= 0 {
		return fmt.Errorf("SIDE_EFFECT_TIMEOUT must be > 0")
	}

	if isProdLike(cfg.AppEnv) {
		if cfg.InternalTokenBcrypt == "" && isEmptyOrDefault(cfg.InternalToken, defaultInternalToken) {
			return fmt.Errorf("in prod/release INTERNAL_TOKEN or INTERNAL_TOKEN_BCRYPT must be set and not default")
		}
		if isEmptyOrDefault(cfg.JWTSecret, defaultJWTSecret) {
			return fmt.Errorf("in prod/release JWT_SECRET must be set and not default")
		}
		if strings.TrimSpace(cfg.StripeSecretKey) == "" {
			return fmt.Errorf("in prod/release STRIPE_SECRET_KEY must be set")
		}
		if strings.TrimSpace(cfg.StripeWebhookSecret) == "" {
			return fmt.Errorf("in prod/release STRIPE_WEBHOOK_SECRET must be set")
		}
		if strings.TrimSpace(cfg.StripePlatformAccountID) == "" {
			return fmt.Errorf("in prod/release STRIPE_PLATFORM_ACCOUNT_ID must be set")
		}
	}

	return nil
}

func (c *RuntimeConfig) ProdLike() bool {
	return isProdLike(c.AppEnv)
}

func isProdLike(env string) bool {
	env = strings.ToLower(strings.TrimSpace(env))
	return env == "prod" || env == "production" || env == "release"
}

func isEmptyOrDefault(v, def string) bool {
	trimmed := strings.TrimSpace(v)
	return trimmed == "" || trimmed == def
}

func normalizeList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, v := range in {
		v = strings.ToLower(strings.TrimSpace(v))
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}
