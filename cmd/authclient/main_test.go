package main

import (
	"bytes"
	"io"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func setEnv(t *testing.T) {
	t.Setenv("AUTH_DOMAIN", "me.auth0.com")
	t.Setenv("AUTH_CLIENT_ID", "abc")
	t.Setenv("AUTH_REDIRECT_URI", "https://app.example.com/callback")
	t.Setenv("REDIS_URL", "")
	t.Setenv("LOG_LEVEL", "error")
}

func TestRun(t *testing.T) {
	t.Run("usage", func(t *testing.T) {
		var out bytes.Buffer
		require.NoError(t, run(nil, &out, io.Discard))
		require.Contains(t, out.String(), "authorize-url")
		require.Contains(t, out.String(), "logout-url")
	})

	t.Run("unknown command", func(t *testing.T) {
		var out bytes.Buffer
		require.Error(t, run([]string{"frobnicate"}, &out, io.Discard))
	})

	t.Run("authorize url", func(t *testing.T) {
		setEnv(t)
		var out bytes.Buffer
		require.NoError(t, run([]string{"authorize-url", "-connection", "github"}, &out, io.Discard))

		u, err := url.Parse(strings.TrimSpace(out.String()))
		require.NoError(t, err)
		require.Equal(t, "me.auth0.com", u.Host)
		require.Equal(t, "/authorize", u.Path)
		q := u.Query()
		require.Equal(t, "github", q.Get("connection"))
		require.Equal(t, "abc", q.Get("client_id"))
		require.NotEmpty(t, q.Get("state"))
		require.NotEmpty(t, q.Get("nonce"))
	})

	t.Run("logout url", func(t *testing.T) {
		setEnv(t)
		var out bytes.Buffer
		require.NoError(t, run([]string{"logout-url", "-return-to", "https://app.example.com", "-federated"}, &out, io.Discard))
		require.Equal(t,
			"https://me.auth0.com/v2/logout?client_id=abc&returnTo=https%3A%2F%2Fapp.example.com&federated\n",
			out.String())
	})

	t.Run("parse hash without transaction", func(t *testing.T) {
		setEnv(t)
		var out bytes.Buffer
		err := run([]string{"parse-hash", "#access_token=at&state=unknown"}, &out, io.Discard)
		require.Error(t, err)
	})

	t.Run("missing configuration", func(t *testing.T) {
		t.Setenv("AUTH_DOMAIN", "")
		t.Setenv("AUTH_CLIENT_ID", "")
		var out bytes.Buffer
		require.Error(t, run([]string{"logout-url"}, &out, io.Discard))
	})

	t.Run("metrics written on exit when enabled", func(t *testing.T) {
		setEnv(t)
		t.Setenv("METRICS_ENABLED", "true")
		var out, diag bytes.Buffer
		require.Error(t, run([]string{"parse-hash", "#access_token=at&state=unknown"}, &out, &diag))
		require.Contains(t, diag.String(), "# TYPE authclient_redirect_parses_total counter")
		require.Contains(t, diag.String(), `authclient_redirect_parses_total{outcome="invalid_token"} 1`)
	})

	t.Run("metrics not written when disabled", func(t *testing.T) {
		setEnv(t)
		t.Setenv("METRICS_ENABLED", "false")
		var out, diag bytes.Buffer
		require.NoError(t, run([]string{"logout-url"}, &out, &diag))
		require.NotContains(t, diag.String(), "authclient_")
	})
}
