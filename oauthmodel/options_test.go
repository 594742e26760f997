package oauthmodel_test

import (
	"testing"

	"github.com/jrsteele09/go-auth-client/oauthmodel"
	"github.com/stretchr/testify/require"
)

func TestAuthOptions_Validate(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		require.NoError(t, oauthmodel.AuthOptions{Domain: "example.auth0.com", ClientID: "abc"}.Validate())
	})

	t.Run("missing domain", func(t *testing.T) {
		require.ErrorIs(t, oauthmodel.AuthOptions{ClientID: "abc"}.Validate(), oauthmodel.ErrMissingDomain)
	})

	t.Run("missing client id", func(t *testing.T) {
		require.ErrorIs(t, oauthmodel.AuthOptions{Domain: "example.auth0.com"}.Validate(), oauthmodel.ErrMissingClientID)
	})

	t.Run("unknown response type", func(t *testing.T) {
		err := oauthmodel.AuthOptions{Domain: "d", ClientID: "c", ResponseType: "token magic"}.Validate()
		require.ErrorIs(t, err, oauthmodel.ErrInvalidResponseType)
	})
}

func TestAuthOptions_DerivedURLs(t *testing.T) {
	o := oauthmodel.AuthOptions{Domain: "example.auth0.com", ClientID: "abc"}
	require.Equal(t, "https://example.auth0.com", o.BaseURL())
	require.Equal(t, "https://example.auth0.com/", o.IssuerURL())
	require.Equal(t, "https://example.auth0.com/.well-known/jwks.json", o.JWKSEndpoint())
	require.Equal(t, oauthmodel.DefaultLeeway, o.LeewayOrDefault())

	local := oauthmodel.AuthOptions{Domain: "http://127.0.0.1:8080/", JWKSURI: "http://keys.local/jwks", Issuer: "http://issuer/"}
	require.Equal(t, "http://127.0.0.1:8080", local.BaseURL())
	require.Equal(t, "http://issuer/", local.IssuerURL())
	require.Equal(t, "http://keys.local/jwks", local.JWKSEndpoint())
}

func TestAuthorizeRequest_MergeAndValidate(t *testing.T) {
	opts := oauthmodel.AuthOptions{
		Domain:       "example.auth0.com",
		ClientID:     "abc",
		RedirectURI:  "https://app/cb",
		ResponseType: oauthmodel.CodeResponseType,
		Scope:        "openid",
	}

	t.Run("defaults fill gaps", func(t *testing.T) {
		merged := oauthmodel.AuthorizeRequest{Scope: "openid email"}.Merge(opts)
		require.Equal(t, "abc", merged.ClientID)
		require.Equal(t, "https://app/cb", merged.RedirectURI)
		require.Equal(t, "openid email", merged.Scope)
		require.NoError(t, merged.Validate())
	})

	t.Run("query mode needs code", func(t *testing.T) {
		merged := oauthmodel.AuthorizeRequest{ResponseType: "token", ResponseMode: oauthmodel.QueryResponseMode}.Merge(opts)
		require.ErrorIs(t, merged.Validate(), oauthmodel.ErrQueryModeRequiresCode)
	})

	t.Run("missing redirect", func(t *testing.T) {
		merged := oauthmodel.AuthorizeRequest{}.Merge(oauthmodel.AuthOptions{ClientID: "abc", ResponseType: "code"})
		require.ErrorIs(t, merged.Validate(), oauthmodel.ErrMissingRedirectURI)
	})

	t.Run("challenge without method", func(t *testing.T) {
		merged := oauthmodel.AuthorizeRequest{CodeChallenge: "abc"}.Merge(opts)
		require.ErrorIs(t, merged.Validate(), oauthmodel.ErrInvalidCodeChallengeMethod)
	})
}

func TestResponseType_Has(t *testing.T) {
	rt := oauthmodel.ResponseType("token id_token")
	require.True(t, rt.Has(oauthmodel.IDTokenResponseType))
	require.True(t, rt.Has(oauthmodel.TokenResponseType))
	require.False(t, rt.Has(oauthmodel.CodeResponseType))
	require.True(t, rt.Valid())
}
