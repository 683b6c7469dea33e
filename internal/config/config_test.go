package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nuacha-app/nuacha/internal/model"
)

func TestRoundTrip(t *testing.T) {
	cfg := Default("Ramdial Household", model.KindHousehold)
	cfg.PayPal.Plans = map[string]model.PlanID{"P-5ML4271244454362WXNWU5NQ": model.PlanMonthly}
	cfg.Duplicates.AmountTolerance = decimal.RequireFromString("0.05")

	path := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, Save(path, cfg))

	got, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "Ramdial Household", got.Household.Name)
	assert.Equal(t, model.KindHousehold, got.Household.Kind)
	assert.Equal(t, "TTD", got.Household.Currency)
	assert.Equal(t, cfg.Budget, got.Budget)
	assert.True(t, got.Duplicates.AmountTolerance.Equal(decimal.RequireFromString("0.05")))
	assert.Equal(t, 3, got.Duplicates.DateWindowDays)
	assert.Equal(t, 2*time.Second, got.Receipts.PollInterval)
	assert.True(t, got.Payroll.NIS.Rate.Equal(cfg.Payroll.NIS.Rate))
	assert.Len(t, got.Payroll.NIS.Classes, len(cfg.Payroll.NIS.Classes))
	assert.Equal(t, cfg.Categorizer.Rules, got.Categorizer.Rules)
	assert.Equal(t, model.PlanMonthly, got.PayPal.Plans["P-5ML4271244454362WXNWU5NQ"])
}

func TestDefaults(t *testing.T) {
	cfg := Default("Doubles Stand Ltd", model.KindBusiness)

	assert.Equal(t, model.KindBusiness, cfg.Household.Kind)
	assert.Equal(t, 50, cfg.Budget.Needs)
	assert.Equal(t, 30, cfg.Budget.Wants)
	assert.Equal(t, 20, cfg.Budget.Savings)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "memory", cfg.Storage.Backend)
	assert.Empty(t, cfg.Categorizer.Rules)
	assert.InDelta(t, 0.6, cfg.Receipts.ReviewConfidence, 0.001)

	assert.Equal(t, model.KindHousehold, Default("x", "castle").Household.Kind)
	assert.NotEmpty(t, Default("x", model.KindHousehold).Categorizer.Rules)
}

func TestLoadNotFound(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nonexistent.yaml"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	yml := "household:\n  name: Small Shop\n  kind: business\nbudget:\n  needs: 60\n  wants: 20\n  savings: 20\n"
	require.NoError(t, os.WriteFile(path, []byte(yml), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "Small Shop", cfg.Household.Name)
	assert.Equal(t, 60, cfg.Budget.Needs)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, 3, cfg.Duplicates.DateWindowDays)
	assert.False(t, cfg.Payroll.PAYERate.IsZero())
	assert.Empty(t, cfg.Categorizer.Rules)
}

func TestYAMLFormat_NoSecrets(t *testing.T) {
	cfg := Default("Test", model.KindHousehold)
	cfg.Auth.JWTSecret = "jwt-secret-value"
	cfg.OCR.APIKey = "mindee-key-value"
	cfg.PayPal.ClientSecret = "paypal-secret-value"
	cfg.Storage.SecretKey = "s3-secret-value"

	path := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, Save(path, cfg))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	contents := string(data)

	assert.Contains(t, contents, "name: Test")
	assert.Contains(t, contents, "kind: household")
	assert.Contains(t, contents, "poll_interval: 2s")
	for _, secret := range []string{"jwt-secret-value", "mindee-key-value", "paypal-secret-value", "s3-secret-value"} {
		assert.NotContains(t, contents, secret)
	}
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		"DATABASE_URL":     "postgres://nuacha:pw@localhost:5432/nuacha",
		"JWT_SECRET":       "s3cret",
		"MINDEE_API_KEY":   "mk",
		"S3_BUCKET":        "receipts",
		"S3_ENDPOINT":      "https://acc.r2.cloudflarestorage.com",
		"PAYPAL_CLIENT_ID": "cid",
	}
	cfg := Default("Test", model.KindHousehold)
	ApplyEnv(cfg, func(k string) string { return env[k] })

	assert.Equal(t, "pgx", cfg.Database.Driver)
	assert.Equal(t, env["DATABASE_URL"], cfg.Database.DSN)
	assert.Equal(t, "s3cret", cfg.Auth.JWTSecret)
	assert.Equal(t, "mk", cfg.OCR.APIKey)
	assert.Equal(t, "s3", cfg.Storage.Backend)
	assert.Equal(t, "receipts", cfg.Storage.Bucket)
	assert.Equal(t, "cid", cfg.PayPal.ClientID)
	assert.NoError(t, cfg.Validate())
}

func TestLoadEnv(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, LoadEnv(dir))

	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("NUACHA_TEST_ONLY=from-dotenv\n"), 0o600))
	t.Setenv("NUACHA_TEST_ONLY", "")
	os.Unsetenv("NUACHA_TEST_ONLY")
	require.NoError(t, LoadEnv(dir))
	assert.Equal(t, "from-dotenv", os.Getenv("NUACHA_TEST_ONLY"))
}

func TestValidate(t *testing.T) {
	cfg := Default("Test", model.KindHousehold)
	cfg.Storage.Backend = "s3"
	cfg.Budget.Savings = 10

	err := cfg.Validate()
	require.Error(t, err)
	msg := err.Error()
	assert.Contains(t, msg, "JWT_SECRET")
	assert.Contains(t, msg, "MINDEE_API_KEY")
	assert.Contains(t, msg, "S3_BUCKET")
	assert.Contains(t, msg, "budget")
}
