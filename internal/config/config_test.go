package config_test

import (
	"testing"
	"time"

	"github.com/jrsteele09/go-auth-client/internal/config"
	"github.com/jrsteele09/go-auth-client/oauthmodel"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		t.Setenv("AUTH_DOMAIN", "me.auth0.com")
		t.Setenv("AUTH_CLIENT_ID", "abc")

		cfg, err := config.New()
		require.NoError(t, err)
		require.Equal(t, "DEV", cfg.GetEnv())
		require.Equal(t, zerolog.InfoLevel, cfg.GetLogLevel())
		require.False(t, cfg.GetMetricsEnabled())
		require.Equal(t, 60*time.Second, cfg.GetRenewalTimeout())

		opts := cfg.GetAuthOptions()
		require.Equal(t, "me.auth0.com", opts.Domain)
		require.Equal(t, "abc", opts.ClientID)
		require.Equal(t, oauthmodel.ResponseType("token id_token"), opts.ResponseType)
		require.Equal(t, "openid profile email", opts.Scope)
		require.Equal(t, 60*time.Second, opts.Leeway)
	})

	t.Run("overrides", func(t *testing.T) {
		t.Setenv("AUTH_DOMAIN", "tenant.example.com")
		t.Setenv("AUTH_RESPONSE_TYPE", "code")
		t.Setenv("AUTH_RETRIES", "3")
		t.Setenv("AUTH_LEEWAY", "5s")
		t.Setenv("AUTH_PKCE", "true")
		t.Setenv("MGMT_TOKEN", "mgmt")
		t.Setenv("REDIS_URL", "redis://localhost:6379/0")
		t.Setenv("LOG_LEVEL", "DEBUG")
		t.Setenv("METRICS_ENABLED", "true")

		cfg, err := config.New()
		require.NoError(t, err)
		require.Equal(t, zerolog.DebugLevel, cfg.GetLogLevel())
		require.True(t, cfg.GetMetricsEnabled())
		require.True(t, cfg.GetRequirePKCE())
		require.Equal(t, "redis://localhost:6379/0", cfg.GetRedisURL())

		opts := cfg.GetAuthOptions()
		require.Equal(t, oauthmodel.CodeResponseType, opts.ResponseType)
		require.Equal(t, 3, opts.TimesToRetryFailedRequests)
		require.Equal(t, 5*time.Second, opts.Leeway)

		mgmt := cfg.GetManagementOptions()
		require.Equal(t, "tenant.example.com", mgmt.Domain)
		require.Equal(t, "mgmt", mgmt.Token)
		require.Equal(t, 3, mgmt.TimesToRetryFailedRequests)
	})

	t.Run("unknown log level", func(t *testing.T) {
		t.Setenv("LOG_LEVEL", "loud")
		cfg, err := config.New()
		require.NoError(t, err)
		require.Equal(t, zerolog.InfoLevel, cfg.GetLogLevel())
	})

	t.Run("malformed number", func(t *testing.T) {
		t.Setenv("AUTH_RETRIES", "many")
		_, err := config.New()
		require.Error(t, err)
	})
}
