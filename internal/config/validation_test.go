package config_test

import (
	"errors"
	"testing"

	"promptforge/apps/backend/internal/config"

	"github.com/stretchr/testify/assert"
)

func validConfig() config.Config {
	return config.Config{
		DBHost:               "localhost",
		DBUser:               "user",
		DBName:               "db",
		RedisAddr:            "localhost:6379",
		JobMaxAttempts:       5,
		RetryBackoffStrategy: "constant",
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*config.Config)
		wantErr bool
		errIs   error
	}{
		{
			name:    "Valid Config",
			mutate:  func(c *config.Config) {},
			wantErr: false,
		},
		{
			name:    "Missing DBHost",
			mutate:  func(c *config.Config) { c.DBHost = "" },
			wantErr: true,
			errIs:   config.ErrMissingRequired,
		},
		{
			name:    "Missing DBUser",
			mutate:  func(c *config.Config) { c.DBUser = "" },
			wantErr: true,
			errIs:   config.ErrMissingRequired,
		},
		{
			name:    "Missing DBName",
			mutate:  func(c *config.Config) { c.DBName = "" },
			wantErr: true,
			errIs:   config.ErrMissingRequired,
		},
		{
			name:    "Missing RedisAddr",
			mutate:  func(c *config.Config) { c.RedisAddr = "" },
			wantErr: true,
			errIs:   config.ErrMissingRequired,
		},
		{
			name:    "Zero JobMaxAttempts",
			mutate:  func(c *config.Config) { c.JobMaxAttempts = 0 },
			wantErr: true,
			errIs:   config.ErrMissingRequired,
		},
		{
			name:    "Unknown backoff strategy",
			mutate:  func(c *config.Config) { c.RetryBackoffStrategy = "fibonacci" },
			wantErr: true,
			errIs:   config.ErrMissingRequired,
		},
		{
			name:    "Exponential backoff strategy",
			mutate:  func(c *config.Config) { c.RetryBackoffStrategy = "exponential" },
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
				if tt.errIs != nil {
					assert.True(t, errors.Is(err, tt.errIs))
				}
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
