package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// DefaultPublicURL is used for file and storefront links when neither
// NEXT_PUBLIC_BASE_URL nor NEXT_PUBLIC_SITE_URL is set.
const DefaultPublicURL = "http://localhost:3000"

// Config holds all process-wide settings, resolved once at startup from the
// environment. It is read-only after Load returns.
type Config struct {
	SMTPHost     string `envconfig:"SMTP_HOST" default:"smtp.hostinger.com"`
	SMTPPort     int    `envconfig:"SMTP_PORT" default:"465"`
	SMTPSecure   bool   `envconfig:"SMTP_SECURE" default:"true"`
	SMTPUser     string `envconfig:"SMTP_USER"`
	SMTPEmail    string `envconfig:"SMTP_EMAIL"`
	SMTPPassword string `envconfig:"SMTP_PASSWORD"`
	SMTPFrom     string `envconfig:"SMTP_FROM"`

	// SMTPTLSRejectUnauthorized turns certificate verification off when false.
	SMTPTLSRejectUnauthorized bool          `envconfig:"SMTP_TLS_REJECT_UNAUTHORIZED" default:"true"`
	SMTPPoolSize              int           `envconfig:"SMTP_POOL_SIZE" default:"5"`
	SMTPTimeout               time.Duration `envconfig:"SMTP_TIMEOUT" default:"10s"`

	SendTimeout   time.Duration `envconfig:"SEND_TIMEOUT" default:"30s"`
	RenderTimeout time.Duration `envconfig:"RENDER_TIMEOUT" default:"5s"`
	UploadTimeout time.Duration `envconfig:"UPLOAD_TIMEOUT" default:"15s"`

	// ResendAPIKey enables the hosted API backend unless it is the demo placeholder.
	ResendAPIKey string `envconfig:"RESEND_API_KEY"`
	ResendFrom   string `envconfig:"RESEND_FROM" default:"Batarya Kit <onboarding@resend.dev>"`

	AdminEmail string `envconfig:"ADMIN_EMAIL" default:"admin@bataryakit.com"`

	// UploadBaseDir selects the local storage backend when set.
	UploadBaseDir      string `envconfig:"UPLOAD_BASE_DIR"`
	GCSBucket          string `envconfig:"GCS_BUCKET"`
	GCSCredentialsFile string `envconfig:"GCS_CREDENTIALS_FILE"`

	BaseURL string `envconfig:"NEXT_PUBLIC_BASE_URL"`
	SiteURL string `envconfig:"NEXT_PUBLIC_SITE_URL"`

	CompanyName    string `envconfig:"COMPANY_NAME" default:"Batarya Kit"`
	CompanyAddress string `envconfig:"COMPANY_ADDRESS"`
	CompanyTaxID   string `envconfig:"COMPANY_TAX_ID"`
	CompanyPhone   string `envconfig:"COMPANY_PHONE"`
	CompanyEmail   string `envconfig:"COMPANY_EMAIL"`

	InvoiceLocale string `envconfig:"INVOICE_LOCALE" default:"tr"`

	DatabaseURL string `envconfig:"DATABASE_URL"`
	Port        int    `envconfig:"PORT" default:"8080"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`
	APIKey      string `envconfig:"NOTIFIER_API_KEY"`
}

// Load reads Config from environment variables using envconfig.
func Load() (*Config, error) {
	var c Config
	if err := envconfig.Process("", &c); err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if c.SMTPPoolSize < 1 {
		c.SMTPPoolSize = 1
	}
	return &c, nil
}

// SMTPUsername returns SMTP_USER, falling back to SMTP_EMAIL.
func (c *Config) SMTPUsername() string {
	if c.SMTPUser != "" {
		return c.SMTPUser
	}
	return c.SMTPEmail
}

// SMTPFromHeader returns SMTP_FROM or `"Batarya Kit <user>"` when unset.
func (c *Config) SMTPFromHeader() string {
	if c.SMTPFrom != "" {
		return c.SMTPFrom
	}
	return fmt.Sprintf("%s <%s>", c.CompanyName, c.SMTPUsername())
}

// PublicURL is the prefix for returned file URLs and outbound links, without
// a trailing slash.
func (c *Config) PublicURL() string {
	u := c.BaseURL
	if u == "" {
		u = c.SiteURL
	}
	if u == "" {
		u = DefaultPublicURL
	}
	return strings.TrimRight(u, "/")
}
