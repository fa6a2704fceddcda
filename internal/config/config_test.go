package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"token-launchpad/internal/domain"
	"token-launchpad/internal/idhash"
	"token-launchpad/internal/market"
)

func acct(b byte) domain.Account {
	var a domain.Account
	a[0] = b
	a[31] = b
	return a
}

func validYAML() string {
	return `
registry:
  owner: ` + acct(1).String() + `
  admins: [` + acct(2).String() + `, ` + acct(3).String() + `]
  threshold: 2
market:
  base_price: "200"
genesis:
  - account: ` + acct(4).String() + `
    amount: "1000000000000000000000"
api:
  require_signatures: true
  signature_window: 90s
`
}

func TestParse_Valid(t *testing.T) {
	cfg, err := Parse([]byte(validYAML()))
	require.NoError(t, err)

	assert.Equal(t, acct(1), cfg.Owner())
	admins, err := cfg.Admins()
	require.NoError(t, err)
	assert.Equal(t, []domain.Account{acct(2), acct(3)}, admins)
	assert.Equal(t, 2, cfg.Registry.Threshold)
	assert.True(t, cfg.API.RequireSignatures)
	assert.Equal(t, 90*time.Second, cfg.API.SignatureWindow)

	assert.Equal(t, ":8080", cfg.API.Listen)
	assert.Equal(t, ":9090", cfg.Metrics.Listen)
	assert.Equal(t, BackendMemory, cfg.Storage.Backend)

	params, err := cfg.MarketParams()
	require.NoError(t, err)
	def := market.DefaultParams()
	assert.Equal(t, "200", params.BasePrice.String())
	assert.True(t, params.Slope.Equal(def.Slope))
	assert.True(t, params.MaxSupply.Equal(def.MaxSupply))

	pid, err := cfg.ProgramID()
	require.NoError(t, err)
	assert.Equal(t, idhash.DefaultProgramID, pid)

	genesis, err := cfg.GenesisBalances()
	require.NoError(t, err)
	require.Len(t, genesis, 1)
	assert.Equal(t, acct(4), genesis[0].Account)
	assert.True(t, genesis[0].Amount.Equal(domain.Unit.MulRaw(1000)))
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"bad owner", "registry:\n  owner: not-base58-0OIl\n  admins: [" + acct(2).String() + "]\n  threshold: 1\n"},
		{"no admins", "registry:\n  owner: " + acct(1).String() + "\n  threshold: 1\n"},
		{"threshold zero", "registry:\n  owner: " + acct(1).String() + "\n  admins: [" + acct(2).String() + "]\n  threshold: 0\n"},
		{"threshold above admins", "registry:\n  owner: " + acct(1).String() + "\n  admins: [" + acct(2).String() + "]\n  threshold: 2\n"},
		{"zero base price", "registry:\n  owner: " + acct(1).String() + "\n  admins: [" + acct(2).String() + "]\n  threshold: 1\nmarket:\n  base_price: \"0\"\n"},
		{"negative slope", "registry:\n  owner: " + acct(1).String() + "\n  admins: [" + acct(2).String() + "]\n  threshold: 1\nmarket:\n  slope: \"-1\"\n"},
		{"sql without dsn", "registry:\n  owner: " + acct(1).String() + "\n  admins: [" + acct(2).String() + "]\n  threshold: 1\nstorage:\n  backend: sql\n"},
		{"negative signature window", "registry:\n  owner: " + acct(1).String() + "\n  admins: [" + acct(2).String() + "]\n  threshold: 1\napi:\n  signature_window: -1m\n"},
		{"unknown backend", "registry:\n  owner: " + acct(1).String() + "\n  admins: [" + acct(2).String() + "]\n  threshold: 1\nstorage:\n  backend: redis\n"},
		{"bad genesis amount", "registry:\n  owner: " + acct(1).String() + "\n  admins: [" + acct(2).String() + "]\n  threshold: 1\ngenesis:\n  - account: " + acct(4).String() + "\n    amount: abc\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

func TestParse_EnvOverrides(t *testing.T) {
	t.Setenv(EnvAPIListen, ":18080")
	t.Setenv(EnvMetricsListen, ":19090")
	t.Setenv(EnvPostgresDSN, "postgres://u:p@localhost/db")
	t.Setenv(EnvClickhouseDSN, "clickhouse://localhost:9000/default")

	cfg, err := Parse([]byte(validYAML() + "storage:\n  backend: sql\n"))
	require.NoError(t, err)

	assert.Equal(t, ":18080", cfg.API.Listen)
	assert.Equal(t, ":19090", cfg.Metrics.Listen)
	assert.Equal(t, "postgres://u:p@localhost/db", cfg.Storage.PostgresDSN)
	assert.Equal(t, "clickhouse://localhost:9000/default", cfg.Storage.ClickhouseDSN)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "launchpad.yaml")
	require.NoError(t, os.WriteFile(path, []byte(validYAML()), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, acct(1), cfg.Owner())
}

func TestLoadEnvFile(t *testing.T) {
	const setKey = "LAUNCHPAD_TEST_ALREADY_SET"
	const newKey = "LAUNCHPAD_TEST_FROM_FILE"
	t.Setenv(setKey, "keep")
	t.Setenv(newKey, "")
	os.Unsetenv(newKey)

	path := filepath.Join(t.TempDir(), ".env")
	content := "# comment\n\n" + setKey + "=replaced\n" + newKey + "=\"quoted value\"\nmalformed line\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	require.NoError(t, LoadEnvFile(path))
	assert.Equal(t, "keep", os.Getenv(setKey))
	assert.Equal(t, "quoted value", os.Getenv(newKey))

	assert.NoError(t, LoadEnvFile(filepath.Join(t.TempDir(), "absent.env")))
}
