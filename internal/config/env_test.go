package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_DefaultValues(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, 60*time.Second, cfg.RequestTimeout)
	assert.Equal(t, []string{"http://localhost:5173"}, cfg.AllowedOrigins)
	assert.False(t, cfg.AuthRequired)
	assert.Equal(t, 10, cfg.BcryptCost)
	assert.Equal(t, "mongodb://localhost:27017", cfg.Mongo.URI)
	assert.Equal(t, "outreach", cfg.Mongo.Database)
	assert.Equal(t, DefaultJWTSecret, cfg.JWT.Secret)
	assert.Equal(t, 48*time.Hour, cfg.JWT.TTL)
	assert.Equal(t, StorageFS, cfg.Storage.Driver)
	assert.Equal(t, "uploads", cfg.Storage.UploadDir)
	assert.Equal(t, "/uploads", cfg.Storage.PublicPrefix)
	assert.Equal(t, "us-east-2", cfg.AWS.Region)
	assert.Equal(t, "localhost:9000", cfg.Minio.Endpoint)
	assert.Empty(t, cfg.Redis.Addr)
	assert.Equal(t, 10, cfg.RateLimit.Login)
	assert.Equal(t, 5, cfg.RateLimit.Register)
	assert.Equal(t, time.Minute, cfg.RateLimit.Window)
}

func TestLoadConfig_EnvironmentOverrides(t *testing.T) {
	tests := []struct {
		name     string
		envVars  map[string]string
		expected func(*Config)
	}{
		{
			name: "server overrides",
			envVars: map[string]string{
				"PORT":                 "9090",
				"LOG_LEVEL":            "debug",
				"CORS_ALLOWED_ORIGINS": "https://a.example,https://b.example",
				"AUTH_REQUIRED":        "true",
				"JWT_SECRET":           "prod-secret",
			},
			expected: func(cfg *Config) {
				assert.Equal(t, "9090", cfg.Port)
				assert.Equal(t, "debug", cfg.LogLevel)
				assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AllowedOrigins)
				assert.True(t, cfg.AuthRequired)
			},
		},
		{
			name: "mongo overrides",
			envVars: map[string]string{
				"MONGODB_URI":      "mongodb://db:27017",
				"MONGODB_DATABASE": "crm",
			},
			expected: func(cfg *Config) {
				assert.Equal(t, "mongodb://db:27017", cfg.Mongo.URI)
				assert.Equal(t, "crm", cfg.Mongo.Database)
			},
		},
		{
			name: "jwt overrides",
			envVars: map[string]string{
				"JWT_SECRET": "topsecret",
				"JWT_TTL":    "24h",
			},
			expected: func(cfg *Config) {
				assert.Equal(t, "topsecret", cfg.JWT.Secret)
				assert.Equal(t, 24*time.Hour, cfg.JWT.TTL)
			},
		},
		{
			name: "s3 storage",
			envVars: map[string]string{
				"STORAGE_DRIVER":  "s3",
				"AWS_ACCESS_KEY":  "ak",
				"AWS_SECRET_KEY":  "sk",
				"AWS_BUCKET_NAME": "files",
			},
			expected: func(cfg *Config) {
				assert.Equal(t, StorageS3, cfg.Storage.Driver)
				assert.Equal(t, "files", cfg.AWS.Bucket)
			},
		},
		{
			name: "minio storage",
			envVars: map[string]string{
				"STORAGE_DRIVER":   "minio",
				"MINIO_ACCESS_KEY": "ak",
				"MINIO_SECRET_KEY": "sk",
				"MINIO_USE_SSL":    "true",
			},
			expected: func(cfg *Config) {
				assert.Equal(t, StorageMinio, cfg.Storage.Driver)
				assert.True(t, cfg.Minio.UseSSL)
			},
		},
		{
			name: "redis limiter",
			envVars: map[string]string{
				"REDIS_ADDR":        "localhost:6379",
				"RATE_LIMIT_LOGIN":  "3",
				"RATE_LIMIT_WINDOW": "30s",
			},
			expected: func(cfg *Config) {
				assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
				assert.Equal(t, 3, cfg.RateLimit.Login)
				assert.Equal(t, 30*time.Second, cfg.RateLimit.Window)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for key, value := range tt.envVars {
				t.Setenv(key, value)
			}

			cfg, err := LoadConfig()
			require.NoError(t, err)

			tt.expected(cfg)
		})
	}
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		envVars map[string]string
		wantErr string
	}{
		{name: "ttl too short", envVars: map[string]string{"JWT_TTL": "1h"}, wantErr: "JWT_TTL"},
		{name: "ttl too long", envVars: map[string]string{"JWT_TTL": "72h"}, wantErr: "JWT_TTL"},
		{name: "unknown driver", envVars: map[string]string{"STORAGE_DRIVER": "ftp"}, wantErr: "STORAGE_DRIVER"},
		{name: "s3 without credentials", envVars: map[string]string{"STORAGE_DRIVER": "s3"}, wantErr: "AWS credentials"},
		{name: "default secret with auth", envVars: map[string]string{"AUTH_REQUIRED": "true"}, wantErr: "JWT_SECRET must be changed"},
		{name: "bad bcrypt cost", envVars: map[string]string{"BCRYPT_COST": "2"}, wantErr: "BCRYPT_COST"},
		{name: "not a duration", envVars: map[string]string{"REQUEST_TIMEOUT": "soon"}, wantErr: "failed to parse config"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for key, value := range tt.envVars {
				t.Setenv(key, value)
			}

			_, err := LoadConfig()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
