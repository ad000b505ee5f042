package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		Env:                "development",
		Port:               "8080",
		DBDriver:           DriverPostgres,
		DBSSLMode:          "require",
		DBPassword:         "secure-password",
		JWTSecret:          "secure-secret-at-least-32-chars-long",
		DBStatementTimeout: 5 * time.Second,
		PresenceWindow:     5 * time.Minute,
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(c *Config)
		expectError bool
	}{
		{"valid development", func(c *Config) {}, false},
		{"missing port", func(c *Config) { c.Port = "" }, true},
		{"unknown driver", func(c *Config) { c.DBDriver = "oracle" }, true},
		{"mysql driver", func(c *Config) { c.DBDriver = DriverMySQL }, false},
		{"negative statement timeout", func(c *Config) { c.DBStatementTimeout = -time.Second }, true},
		{"zero presence window", func(c *Config) { c.PresenceWindow = 0 }, true},
		{"negative retention", func(c *Config) { c.NotificationRetention = -time.Hour }, true},
		{"production default secret", func(c *Config) {
			c.Env = "production"
			c.JWTSecret = defaultJWTSecret
		}, true},
		{"production sqlite", func(c *Config) {
			c.Env = "production"
			c.DBDriver = DriverSQLite
		}, true},
		{"production disabled ssl", func(c *Config) {
			c.Env = "prod"
			c.DBSSLMode = "disable"
		}, true},
		{"production mysql without sslmode", func(c *Config) {
			c.Env = "production"
			c.DBDriver = DriverMySQL
			c.DBSSLMode = ""
		}, false},
		{"production ok", func(c *Config) { c.Env = "production" }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validConfig()
			tt.mutate(c)
			err := c.Validate()
			if tt.expectError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestLoadConfig_EnvOverridesAndNormalization(t *testing.T) {
	defer viper.Reset()

	t.Setenv("APP_ENV", "test")
	t.Setenv("DB_DRIVER", "  SQLite ")
	t.Setenv("DB_STATEMENT_TIMEOUT", "750ms")
	t.Setenv("PRESENCE_WINDOW", "2m")

	c, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, DriverSQLite, c.DBDriver)
	assert.Equal(t, 750*time.Millisecond, c.DBStatementTimeout)
	assert.Equal(t, 2*time.Minute, c.PresenceWindow)
	assert.Equal(t, "8375", c.Port)
	assert.Equal(t, time.Duration(0), c.NotificationRetention)
}
