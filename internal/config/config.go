// Package config reads and writes nuacha.yaml and overlays secrets from
// the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/nuacha-app/nuacha/internal/budget"
	"github.com/nuacha-app/nuacha/internal/categorize"
	"github.com/nuacha-app/nuacha/internal/duplicates"
	"github.com/nuacha-app/nuacha/internal/model"
	"github.com/nuacha-app/nuacha/internal/payroll"
	"github.com/nuacha-app/nuacha/internal/receipt"
)

// FileName is the config file at the root of a data directory.
const FileName = "nuacha.yaml"

// Config represents nuacha.yaml.
type Config struct {
	Household   HouseholdConfig   `yaml:"household"`
	Budget      budget.Rule       `yaml:"budget"`
	Duplicates  DuplicatesConfig  `yaml:"duplicates"`
	Receipts    ReceiptsConfig    `yaml:"receipts"`
	Payroll     payroll.Settings  `yaml:"payroll"`
	Categorizer CategorizerConfig `yaml:"categorizer"`
	Server      ServerConfig      `yaml:"server"`
	Database    DatabaseConfig    `yaml:"database"`
	Storage     StorageConfig     `yaml:"storage"`
	OCR         OCRConfig         `yaml:"ocr"`
	LLM         LLMConfig         `yaml:"llm"`
	PayPal      PayPalConfig      `yaml:"paypal"`
	Auth        AuthConfig        `yaml:"-"`
}

// HouseholdConfig identifies the household or business the data belongs to.
type HouseholdConfig struct {
	Name     string           `yaml:"name"`
	Kind     model.FamilyKind `yaml:"kind"`
	Currency string           `yaml:"currency"`
}

// DuplicatesConfig mirrors duplicates.Options.
type DuplicatesConfig struct {
	DateWindowDays  int             `yaml:"date_window_days"`
	AmountTolerance decimal.Decimal `yaml:"amount_tolerance"`
	MinSimilarity   float64         `yaml:"min_similarity"`
}

// Options converts to duplicates.Options.
func (d DuplicatesConfig) Options() duplicates.Options {
	return duplicates.Options{
		DateWindowDays:  d.DateWindowDays,
		AmountTolerance: d.AmountTolerance,
		MinSimilarity:   d.MinSimilarity,
	}
}

// ReceiptsConfig tunes the OCR worker.
type ReceiptsConfig struct {
	PartialTolerance decimal.Decimal `yaml:"partial_tolerance"`
	ReviewConfidence float64         `yaml:"review_confidence"`
	PollInterval     time.Duration   `yaml:"poll_interval"`
	MaxPages         int             `yaml:"max_pages"`
}

// PartialOptions converts to receipt.PartialOptions.
func (r ReceiptsConfig) PartialOptions() receipt.PartialOptions {
	return receipt.PartialOptions{Tolerance: r.PartialTolerance, MinConfidence: r.ReviewConfidence}
}

// CategorizerConfig holds keyword rules and the fallback category. A
// blank fallback leaves unmatched expenses uncategorised.
type CategorizerConfig struct {
	Fallback string            `yaml:"fallback,omitempty"`
	Rules    []categorize.Rule `yaml:"rules"`
}

// ServerConfig controls the HTTP API.
type ServerConfig struct {
	Addr           string   `yaml:"addr"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// DatabaseConfig selects the SQL driver. DSN usually comes from
// DATABASE_URL.
type DatabaseConfig struct {
	Driver string `yaml:"driver"` // sqlite or pgx
	DSN    string `yaml:"dsn,omitempty"`
}

// StorageConfig selects where receipt images live.
type StorageConfig struct {
	Backend   string `yaml:"backend"` // memory or s3
	Endpoint  string `yaml:"endpoint,omitempty"`
	Region    string `yaml:"region,omitempty"`
	Bucket    string `yaml:"bucket,omitempty"`
	AccessKey string `yaml:"-"`
	SecretKey string `yaml:"-"`
}

// OCRConfig configures Mindee.
type OCRConfig struct {
	Endpoint string `yaml:"endpoint,omitempty"`
	APIKey   string `yaml:"-"`
}

// LLMConfig configures the categorisation gateway. A blank BaseURL
// disables it.
type LLMConfig struct {
	BaseURL string        `yaml:"base_url,omitempty"`
	Model   string        `yaml:"model,omitempty"`
	Timeout time.Duration `yaml:"timeout,omitempty"`
	APIKey  string        `yaml:"-"`
}

// PayPalConfig configures subscription billing.
type PayPalConfig struct {
	BaseURL      string                  `yaml:"base_url,omitempty"`
	WebhookID    string                  `yaml:"webhook_id,omitempty"`
	Plans        map[string]model.PlanID `yaml:"plans,omitempty"` // PayPal plan ID -> plan
	ClientID     string                  `yaml:"-"`
	ClientSecret string                  `yaml:"-"`
}

// AuthConfig holds the JWT signing secret. It is never written to disk.
type AuthConfig struct {
	JWTSecret string
}

// Load reads a nuacha.yaml file from disk. Fields missing from the file
// keep their defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	cfg := Default("", model.KindHousehold)
	cfg.Categorizer.Rules = nil
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return cfg, nil
}

// Save writes a Config to a YAML file.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// Default returns a Config with sensible defaults for a new data directory.
func Default(name string, kind model.FamilyKind) *Config {
	if kind != model.KindBusiness {
		kind = model.KindHousehold
	}
	dup := duplicates.DefaultOptions()
	partial := receipt.DefaultPartialOptions()
	var rules []categorize.Rule
	if kind == model.KindHousehold {
		rules = categorize.DefaultRules()
	}
	return &Config{
		Household: HouseholdConfig{
			Name:     name,
			Kind:     kind,
			Currency: "TTD",
		},
		Budget: budget.DefaultRule(),
		Duplicates: DuplicatesConfig{
			DateWindowDays:  dup.DateWindowDays,
			AmountTolerance: dup.AmountTolerance,
			MinSimilarity:   dup.MinSimilarity,
		},
		Receipts: ReceiptsConfig{
			PartialTolerance: partial.Tolerance,
			ReviewConfidence: partial.MinConfidence,
			PollInterval:     2 * time.Second,
			MaxPages:         10,
		},
		Payroll: payroll.DefaultSettings(),
		Categorizer: CategorizerConfig{
			Rules: rules,
		},
		Server: ServerConfig{
			Addr:           ":8080",
			AllowedOrigins: []string{"http://localhost:5173"},
		},
		Database: DatabaseConfig{
			Driver: "sqlite",
			DSN:    "nuacha.db",
		},
		Storage: StorageConfig{
			Backend: "memory",
			Region:  "auto",
		},
		LLM: LLMConfig{
			Model:   "gpt-4o-mini",
			Timeout: 30 * time.Second,
		},
	}
}

// LoadEnv loads <dir>/.env into the process environment if it exists.
// Variables already set are not overridden.
func LoadEnv(dir string) error {
	path := filepath.Join(dir, ".env")
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("loading %s: %w", path, err)
	}
	return nil
}

// ApplyEnv overlays secrets and deployment settings from the environment.
// getenv is usually os.Getenv.
func ApplyEnv(cfg *Config, getenv func(string) string) {
	set := func(dst *string, key string) {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			*dst = v
		}
	}

	if url := strings.TrimSpace(getenv("DATABASE_URL")); url != "" {
		cfg.Database.DSN = url
		if strings.HasPrefix(url, "postgres://") || strings.HasPrefix(url, "postgresql://") {
			cfg.Database.Driver = "pgx"
		}
	}
	set(&cfg.Auth.JWTSecret, "JWT_SECRET")
	set(&cfg.OCR.APIKey, "MINDEE_API_KEY")
	set(&cfg.LLM.APIKey, "LLM_API_KEY")
	set(&cfg.LLM.BaseURL, "LLM_BASE_URL")
	set(&cfg.Storage.Endpoint, "S3_ENDPOINT")
	set(&cfg.Storage.Bucket, "S3_BUCKET")
	set(&cfg.Storage.Region, "S3_REGION")
	set(&cfg.Storage.AccessKey, "S3_ACCESS_KEY")
	set(&cfg.Storage.SecretKey, "S3_SECRET_KEY")
	if cfg.Storage.Bucket != "" && cfg.Storage.Backend == "memory" {
		cfg.Storage.Backend = "s3"
	}
	set(&cfg.PayPal.ClientID, "PAYPAL_CLIENT_ID")
	set(&cfg.PayPal.ClientSecret, "PAYPAL_CLIENT_SECRET")
	set(&cfg.PayPal.WebhookID, "PAYPAL_WEBHOOK_ID")
	set(&cfg.PayPal.BaseURL, "PAYPAL_BASE_URL")
}

// Validate reports settings that serve cannot run without.
func (c *Config) Validate() error {
	var errs []error
	if c.Auth.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is not set"))
	}
	switch c.Database.Driver {
	case "sqlite", "pgx":
	default:
		errs = append(errs, fmt.Errorf("database.driver %q must be sqlite or pgx", c.Database.Driver))
	}
	if c.Database.DSN == "" {
		errs = append(errs, errors.New("database DSN is empty; set DATABASE_URL"))
	}
	switch c.Storage.Backend {
	case "memory":
	case "s3":
		if c.Storage.Bucket == "" {
			errs = append(errs, errors.New("S3_BUCKET is not set"))
		}
	default:
		errs = append(errs, fmt.Errorf("storage.backend %q must be memory or s3", c.Storage.Backend))
	}
	if c.OCR.APIKey == "" {
		errs = append(errs, errors.New("MINDEE_API_KEY is not set"))
	}
	if err := c.Budget.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("budget: %w", err))
	}
	return errors.Join(errs...)
}
