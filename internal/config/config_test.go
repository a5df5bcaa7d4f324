package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"multimind.ai/server/internal/store"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "gemini-key")
	t.Setenv("JWT_SECRET", "secret")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.HTTPPort)
	assert.Equal(t, store.DriverSQLite, cfg.DatabaseDriver)
	assert.Equal(t, TextProviderGemini, cfg.TextProvider)
	assert.Equal(t, ImageProviderClipdrop, cfg.ImageProvider)
	assert.Equal(t, "gemini-2.5-flash", cfg.GeminiModel)
	assert.Equal(t, 10, cfg.FreeUsageLimit)
	assert.Equal(t, 60*time.Second, cfg.ProviderTimeout)
	assert.Equal(t, 10*time.Minute, cfg.ProfileCacheTTL)
	assert.Equal(t, int64(20<<20), cfg.MaxUploadBytes)
	assert.Equal(t, "@hourly", cfg.LikeReconcileSchedule)
	assert.Equal(t, []string{"http://localhost:5173"}, cfg.CORSAllowedOrigins)
	assert.Equal(t, LogFormatConsole, cfg.LogFormat)
	assert.False(t, cfg.IsProduction())
}

func TestLoad_ProductionLogsJSON(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "gemini-key")
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("APP_ENV", "Production")

	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.IsProduction())
	assert.Equal(t, LogFormatJSON, cfg.LogFormat)

	t.Setenv("LOG_FORMAT", "console")
	cfg, err = Load()
	require.NoError(t, err)
	assert.Equal(t, LogFormatConsole, cfg.LogFormat)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "openai-key")
	t.Setenv("TEXT_PROVIDER", "openai")
	t.Setenv("IMAGE_PROVIDER", "openai")
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("DATABASE_DRIVER", "postgres")
	t.Setenv("DATABASE_URL", "postgres://u:p@localhost:5432/multimind")
	t.Setenv("PROVIDER_TIMEOUT", "15s")
	t.Setenv("FREE_USAGE_LIMIT", "3")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example,https://b.example")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, store.DriverPostgres, cfg.DatabaseDriver)
	assert.Equal(t, TextProviderOpenAI, cfg.TextProvider)
	assert.Equal(t, 15*time.Second, cfg.ProviderTimeout)
	assert.Equal(t, 3, cfg.FreeUsageLimit)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSAllowedOrigins)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{
			name: "missing gemini key",
			env:  map[string]string{"JWT_SECRET": "secret"},
		},
		{
			name: "missing token keys",
			env:  map[string]string{"GEMINI_API_KEY": "k"},
		},
		{
			name: "unknown driver",
			env:  map[string]string{"GEMINI_API_KEY": "k", "JWT_SECRET": "s", "DATABASE_DRIVER": "mysql"},
		},
		{
			name: "openai images without key",
			env:  map[string]string{"GEMINI_API_KEY": "k", "JWT_SECRET": "s", "IMAGE_PROVIDER": "openai"},
		},
		{
			name: "unknown log format",
			env:  map[string]string{"GEMINI_API_KEY": "k", "JWT_SECRET": "s", "LOG_FORMAT": "xml"},
		},
		{
			name: "unknown text provider",
			env:  map[string]string{"JWT_SECRET": "s", "TEXT_PROVIDER": "llama"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, k := range []string{"GEMINI_API_KEY", "OPENAI_API_KEY", "JWT_SECRET", "CLERK_JWT_PUBLIC_KEY"} {
				t.Setenv(k, "")
			}
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := Load()
			require.Error(t, err)
		})
	}
}
