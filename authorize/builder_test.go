package authorize_test

import (
	"bytes"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/jrsteele09/go-auth-client/autherror"
	"github.com/jrsteele09/go-auth-client/authorize"
	"github.com/jrsteele09/go-auth-client/internal/random"
	"github.com/jrsteele09/go-auth-client/oauthmodel"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

func exampleOptions() oauthmodel.AuthOptions {
	return oauthmodel.AuthOptions{
		Domain:       "example.auth0.com",
		ClientID:     "abc",
		RedirectURI:  "https://app/cb",
		ResponseType: oauthmodel.CodeResponseType,
		Scope:        "openid email",
	}
}

func TestBuilder_BuildAuthorizeURL(t *testing.T) {
	t.Run("example request", func(t *testing.T) {
		authURL, err := authorize.NewBuilder(exampleOptions()).BuildAuthorizeURL(oauthmodel.AuthorizeRequest{})
		require.NoError(t, err)
		require.True(t, strings.HasPrefix(authURL, "https://example.auth0.com/authorize?"))
		require.Contains(t, authURL, "response_type=code")
		require.Contains(t, authURL, "scope=openid%20email")
		require.Contains(t, authURL, "redirect_uri=https%3A%2F%2Fapp%2Fcb")
		require.Contains(t, authURL, "client_id=abc")
	})

	t.Run("round trips every supplied parameter", func(t *testing.T) {
		req := oauthmodel.AuthorizeRequest{
			ResponseType: "token id_token",
			ResponseMode: oauthmodel.FragmentResponseMode,
			Scope:        "openid profile",
			Audience:     "https://api.example.com",
			State:        "st&ate=1",
			Nonce:        "n+once",
			Prompt:       "login",
			Connection:   "google-oauth2",
			LoginHint:    "user@example.com",
			ScreenHint:   "signup",
			MaxAge:       90 * time.Second,
			Extra:        map[string]string{"ui_locales": "fr en", "state": "ignored"},
		}
		authURL, err := authorize.NewBuilder(exampleOptions()).BuildAuthorizeURL(req)
		require.NoError(t, err)

		u, err := url.Parse(authURL)
		require.NoError(t, err)
		q := u.Query()
		require.Equal(t, "abc", q.Get("client_id"))
		require.Equal(t, "token id_token", q.Get("response_type"))
		require.Equal(t, "fragment", q.Get("response_mode"))
		require.Equal(t, "https://app/cb", q.Get("redirect_uri"))
		require.Equal(t, "openid profile", q.Get("scope"))
		require.Equal(t, "https://api.example.com", q.Get("audience"))
		require.Equal(t, "st&ate=1", q.Get("state"))
		require.Equal(t, "n+once", q.Get("nonce"))
		require.Equal(t, "login", q.Get("prompt"))
		require.Equal(t, "google-oauth2", q.Get("connection"))
		require.Equal(t, "user@example.com", q.Get("login_hint"))
		require.Equal(t, "signup", q.Get("screen_hint"))
		require.Equal(t, "90", q.Get("max_age"))
		require.Equal(t, "fr en", q.Get("ui_locales"))
	})

	t.Run("absent optionals are omitted", func(t *testing.T) {
		authURL, err := authorize.NewBuilder(exampleOptions()).BuildAuthorizeURL(oauthmodel.AuthorizeRequest{})
		require.NoError(t, err)
		u, err := url.Parse(authURL)
		require.NoError(t, err)
		for _, key := range []string{"audience", "prompt", "connection", "login_hint", "max_age", "response_mode", "code_challenge"} {
			_, present := u.Query()[key]
			require.False(t, present, key)
		}
	})

	t.Run("generates state and nonce", func(t *testing.T) {
		b := authorize.NewBuilder(exampleOptions())
		_, tx1, err := b.Prepare(oauthmodel.AuthorizeRequest{AppState: "back-to"})
		require.NoError(t, err)
		_, tx2, err := b.Prepare(oauthmodel.AuthorizeRequest{})
		require.NoError(t, err)
		require.Len(t, tx1.State, 43)
		require.Len(t, tx1.Nonce, 43)
		require.NotEqual(t, tx1.State, tx2.State)
		require.NotEqual(t, tx1.Nonce, tx2.Nonce)
		require.Equal(t, "back-to", tx1.AppState)
	})

	t.Run("deterministic with injected randomness", func(t *testing.T) {
		src := random.NewReaderSource(bytes.NewReader(bytes.Repeat([]byte{0}, 64)))
		_, tx, err := authorize.NewBuilder(exampleOptions(), authorize.WithRandomSource(src)).Prepare(oauthmodel.AuthorizeRequest{})
		require.NoError(t, err)
		require.Equal(t, strings.Repeat("A", 43), tx.State)
	})

	tests := []struct {
		name string
		opts oauthmodel.AuthOptions
		req  oauthmodel.AuthorizeRequest
	}{
		{name: "missing redirect uri", opts: oauthmodel.AuthOptions{Domain: "d", ClientID: "c", ResponseType: "code"}},
		{name: "missing response type", opts: oauthmodel.AuthOptions{Domain: "d", ClientID: "c", RedirectURI: "https://app/cb"}},
		{name: "missing domain", opts: oauthmodel.AuthOptions{ClientID: "c", RedirectURI: "https://app/cb", ResponseType: "code"}},
		{name: "query mode with token", opts: exampleOptions(), req: oauthmodel.AuthorizeRequest{ResponseType: "token", ResponseMode: "query"}},
		{name: "unknown response type", opts: exampleOptions(), req: oauthmodel.AuthorizeRequest{ResponseType: "device"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := authorize.NewBuilder(tt.opts).BuildAuthorizeURL(tt.req)
			require.ErrorIs(t, err, autherror.ErrConfiguration)
		})
	}
}

func TestBuilder_PKCE(t *testing.T) {
	b := authorize.NewBuilder(exampleOptions(), authorize.WithPKCE())
	authURL, tx, err := b.Prepare(oauthmodel.AuthorizeRequest{})
	require.NoError(t, err)
	require.NotEmpty(t, tx.CodeVerifier)

	u, err := url.Parse(authURL)
	require.NoError(t, err)
	require.Equal(t, "S256", u.Query().Get("code_challenge_method"))
	require.Equal(t, oauth2.S256ChallengeFromVerifier(tx.CodeVerifier), u.Query().Get("code_challenge"))

	t.Run("implicit flow has no challenge", func(t *testing.T) {
		authURL, tx, err := b.Prepare(oauthmodel.AuthorizeRequest{ResponseType: "id_token"})
		require.NoError(t, err)
		require.Empty(t, tx.CodeVerifier)
		require.NotContains(t, authURL, "code_challenge")
	})
}

func TestBuilder_BuildLogoutURL(t *testing.T) {
	b := authorize.NewBuilder(exampleOptions())

	t.Run("return to and client id", func(t *testing.T) {
		logoutURL, err := b.BuildLogoutURL(authorize.LogoutOptions{ReturnTo: "https://app/bye"})
		require.NoError(t, err)
		require.Equal(t, "https://example.auth0.com/v2/logout?client_id=abc&returnTo=https%3A%2F%2Fapp%2Fbye", logoutURL)
	})

	t.Run("federated", func(t *testing.T) {
		logoutURL, err := b.BuildLogoutURL(authorize.LogoutOptions{ReturnTo: "https://app/bye", Federated: true})
		require.NoError(t, err)
		require.True(t, strings.HasSuffix(logoutURL, "&federated"))
	})

	t.Run("federated without params", func(t *testing.T) {
		bare := authorize.NewBuilder(oauthmodel.AuthOptions{Domain: "example.auth0.com"})
		logoutURL, err := bare.BuildLogoutURL(authorize.LogoutOptions{Federated: true})
		require.NoError(t, err)
		require.Equal(t, "https://example.auth0.com/v2/logout?federated", logoutURL)
	})
}

func TestBuilder_BuildPasswordlessVerifyURL(t *testing.T) {
	b := authorize.NewBuilder(exampleOptions())

	verifyURL, tx, err := b.BuildPasswordlessVerifyURL(authorize.PasswordlessVerifyOptions{
		Connection:       "email",
		VerificationCode: "123456",
		Email:            "user@example.com",
	})
	require.NoError(t, err)
	require.NotNil(t, tx)

	u, err := url.Parse(verifyURL)
	require.NoError(t, err)
	require.Equal(t, "/passwordless/verify_redirect", u.Path)
	require.Equal(t, "123456", u.Query().Get("verification_code"))
	require.Equal(t, "user@example.com", u.Query().Get("email"))
	require.Equal(t, tx.State, u.Query().Get("state"))

	_, _, err = b.BuildPasswordlessVerifyURL(authorize.PasswordlessVerifyOptions{Connection: "sms", VerificationCode: "1"})
	require.ErrorIs(t, err, autherror.ErrConfiguration)
}
