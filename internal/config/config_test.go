package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestDatabaseConfig_DSN(t *testing.T) {
	cfg := DatabaseConfig{
		Host:     "localhost",
		Port:     5432,
		User:     "testuser",
		Password: "testpass",
		Database: "testdb",
		SSLMode:  "disable",
	}

	expected := "host=localhost port=5432 user=testuser password=testpass dbname=testdb sslmode=disable"
	if got := cfg.DSN(); got != expected {
		t.Errorf("DSN() = %v, want %v", got, expected)
	}
}

func TestRedisConfig_Addr(t *testing.T) {
	cfg := RedisConfig{
		Host: "redis.example.com",
		Port: 6380,
	}

	if got := cfg.Addr(); got != "redis.example.com:6380" {
		t.Errorf("Addr() = %v, want redis.example.com:6380", got)
	}
}

func TestTemporalConfig_Address(t *testing.T) {
	cfg := TemporalConfig{
		Host: "temporal.example.com",
		Port: 7234,
	}

	if got := cfg.Address(); got != "temporal.example.com:7234" {
		t.Errorf("Address() = %v, want temporal.example.com:7234", got)
	}
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, EnvDevelopment, cfg.Env)
	assert.Equal(t, "resources/config.properties", cfg.Suite.PropertiesPath)
	assert.Equal(t, "screenshots", cfg.Suite.ScreenshotDir)
	assert.Equal(t, 10*time.Second, cfg.Timeouts.Medium)
	assert.Equal(t, 250*time.Millisecond, cfg.Timeouts.Poll)
	assert.Equal(t, HealingBackendMemory, cfg.Healing.Backend)
	assert.Nil(t, cfg.Healing.Enabled)
	assert.True(t, cfg.Browser.Headless)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("SUITE_BROWSER", "firefox")
	t.Setenv("HEALING_ENABLED", "false")
	t.Setenv("TIMEOUT_IMPLICIT", "1s")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "firefox", cfg.Suite.Browser)
	require.NotNil(t, cfg.Healing.Enabled)
	assert.False(t, *cfg.Healing.Enabled)
	assert.Equal(t, time.Second, cfg.Timeouts.Implicit)
}

func TestConfig_Validate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Env:      EnvDevelopment,
			Healing:  HealingConfig{Backend: HealingBackendMemory, MinScore: 0.5},
			Timeouts: TimeoutConfig{Poll: 100 * time.Millisecond},
			Browser:  BrowserConfig{WindowWidth: 1280, WindowHeight: 720},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{
			name:   "valid",
			mutate: func(*Config) {},
		},
		{
			name:    "unknown healing backend",
			mutate:  func(c *Config) { c.Healing.Backend = "mongo" },
			wantErr: true,
		},
		{
			name:    "min score out of range",
			mutate:  func(c *Config) { c.Healing.MinScore = 1.5 },
			wantErr: true,
		},
		{
			name:    "zero poll interval",
			mutate:  func(c *Config) { c.Timeouts.Poll = 0 },
			wantErr: true,
		},
		{
			name: "postgres in production without password",
			mutate: func(c *Config) {
				c.Env = EnvProduction
				c.Healing.Backend = HealingBackendPostgres
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestConfig_GetLogLevel(t *testing.T) {
	cfg := &Config{LogLevel: "warn"}
	assert.Equal(t, "warn", cfg.GetLogLevel())

	cfg.Debug = true
	assert.Equal(t, "debug", cfg.GetLogLevel())
}

func TestLoadProperties(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.properties")
	content := "# suite settings\n" +
		"browser=Chrome\n" +
		"url=https://the-internet.herokuapp.com/login\n" +
		"username=tomsmith\n" +
		"password=SuperSecretPassword!\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	props := LoadProperties(path, zap.NewNop())

	assert.Equal(t, path, props.Path())
	assert.Equal(t, "Chrome", props.Browser())
	assert.Equal(t, "https://the-internet.herokuapp.com/login", props.URL())
	assert.Equal(t, "tomsmith", props.Username())
	assert.Equal(t, "SuperSecretPassword!", props.Password())
	assert.Equal(t, []string{"browser", "password", "url", "username"}, props.Keys())
}

func TestLoadProperties_MissingFile(t *testing.T) {
	props := LoadProperties(filepath.Join(t.TempDir(), "missing.properties"), nil)

	assert.Equal(t, 0, props.Len())
	for _, key := range []string{KeyBrowser, KeyURL, KeyUsername, KeyPassword} {
		v, ok := props.Lookup(key)
		assert.False(t, ok, "key %s should be absent", key)
		assert.Empty(t, v)
	}
	assert.Empty(t, props.Browser())
	assert.Empty(t, props.URL())
	assert.Empty(t, props.Username())
	assert.Empty(t, props.Password())
}

func TestLoadProperties_ProductsURL(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.properties")
	require.NoError(t, os.WriteFile(path, []byte("products-url=http://127.0.0.1:8089/products\n"), 0644))

	props := LoadProperties(path, nil)
	assert.Equal(t, "http://127.0.0.1:8089/products", props.ProductsURL())
}

func TestLoadProperties_BundledResources(t *testing.T) {
	props := LoadProperties(filepath.Join("..", "..", "resources", "config.properties"), nil)

	assert.Equal(t, "chrome", props.Browser())
	assert.Equal(t, "https://the-internet.herokuapp.com/login", props.URL())
	assert.Equal(t, "tomsmith", props.Username())
	assert.Equal(t, "SuperSecretPassword!", props.Password())
	assert.Empty(t, props.ProductsURL())
}
