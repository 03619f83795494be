package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFrom_DefaultsWithoutFile(t *testing.T) {
	cfg, err := LoadFrom(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "bookstore.events", cfg.MQ.Exchange)
	assert.Equal(t, "order.payment.confirmed", cfg.MQ.ConfirmationKey)
	assert.Equal(t, int64(800), cfg.Order.ShippingFee(false))
	assert.Equal(t, int64(1800), cfg.Order.ShippingFee(true))
	assert.Equal(t, 30*time.Second, cfg.Payment.BreakerTimeout)
}

func TestLoadFrom_FileAndEnvOverride(t *testing.T) {
	dir := t.TempDir()
	yaml := []byte("server:\n  port: 9090\norder:\n  express_shipping_fee: 2500\ndatabase:\n  password: from-file\n")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), yaml, 0o600))

	t.Setenv("BOOKSTORE_DATABASE_PASSWORD", "from-env")

	cfg, err := LoadFrom(dir)
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, int64(2500), cfg.Order.ExpressShipping)
	assert.Equal(t, "from-env", cfg.Database.Password)
}

func TestValidate_ReleaseRequiresSecrets(t *testing.T) {
	cfg := &Config{Server: ServerConfig{Port: 8080, Mode: "release"}, JWT: JWTConfig{Secret: "your-secret-key-change-in-production"}}
	assert.Error(t, validate(cfg))

	cfg.JWT.Secret = "s3cr3t"
	assert.ErrorContains(t, validate(cfg), "webhook")

	cfg.Payment.StripeWebhookSecret = "whsec_x"
	assert.NoError(t, validate(cfg))
}

func TestDSN_EscapesLoc(t *testing.T) {
	d := DatabaseConfig{User: "u", Password: "p", Host: "h", Port: 3306, DBName: "db", Charset: "utf8mb4", ParseTime: true, Loc: "Asia/Shanghai"}
	assert.Equal(t, "u:p@tcp(h:3306)/db?charset=utf8mb4&parseTime=true&loc=Asia%2FShanghai", d.DSN())
}
