package credentials_test

import (
	"context"
	"encoding/json"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jrsteele09/go-auth-client/autherror"
	"github.com/jrsteele09/go-auth-client/credentials"
	"github.com/jrsteele09/go-auth-client/idtoken"
	"github.com/jrsteele09/go-auth-client/internal/oidctest"
	"github.com/jrsteele09/go-auth-client/internal/transport"
	"github.com/jrsteele09/go-auth-client/jwks"
	"github.com/jrsteele09/go-auth-client/oauthmodel"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

const (
	validUser     = "user@example.com"
	validPassword = "correct horse"
)

// tokenParams reads a JSON or form encoded token request.
func tokenParams(t *testing.T, r *http.Request) map[string]string {
	params := map[string]string{}
	if r.Header.Get("Content-Type") == "application/json" {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&params))
		return params
	}
	require.NoError(t, r.ParseForm())
	for k := range r.PostForm {
		params[k] = r.PostForm.Get(k)
	}
	return params
}

func newClient(t *testing.T, srv *oidctest.Server, retries int) *credentials.Client {
	opts := srv.Options()
	opts.TimesToRetryFailedRequests = retries
	tr := transport.New(opts.BaseURL(),
		transport.WithMaxRetries(retries),
		transport.WithRetryDelays(time.Millisecond, 5*time.Millisecond),
	)
	validator := idtoken.New(opts, jwks.NewCache(opts.JWKSEndpoint(), tr))
	return credentials.New(opts, tr, credentials.WithTokenValidator(validator))
}

func serveTokens(t *testing.T, srv *oidctest.Server) {
	srv.Handle("/oauth/token", func(w http.ResponseWriter, r *http.Request) {
		params := tokenParams(t, r)
		require.Equal(t, oidctest.ClientID, params["client_id"])

		switch oauthmodel.GrantType(params["grant_type"]) {
		case oauthmodel.PasswordRealmGrant, oauthmodel.PasswordGrant:
			if params["grant_type"] == string(oauthmodel.PasswordRealmGrant) && params["realm"] != "Username-Password-Authentication" {
				oidctest.WriteJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_realm", "error_description": "unknown realm"})
				return
			}
			if params["username"] != validUser || params["password"] != validPassword {
				oidctest.WriteJSON(w, http.StatusForbidden, map[string]string{"error": "invalid_grant", "error_description": "Wrong email or password."})
				return
			}
		case oauthmodel.PasswordlessOTPGrant:
			if params["otp"] != "123456" {
				oidctest.WriteJSON(w, http.StatusForbidden, map[string]string{"error": "invalid_grant", "error_description": "Wrong phone number or verification code."})
				return
			}
		case oauthmodel.RefreshTokenGrant:
			require.Equal(t, "rt-1", params["refresh_token"])
		case oauthmodel.AuthorizationCodeGrant:
			if params["code"] != "good-code" {
				oidctest.WriteJSON(w, http.StatusForbidden, map[string]string{"error": "invalid_grant", "error_description": "Invalid authorization code"})
				return
			}
			require.Equal(t, "verifier-1", params["code_verifier"])
			require.Equal(t, "https://app.example.com/callback", params["redirect_uri"])
			oidctest.WriteJSON(w, http.StatusOK, map[string]any{
				"access_token": "at-code",
				"id_token":     srv.IDToken("n-code", nil),
				"token_type":   "Bearer",
				"expires_in":   3600,
			})
			return
		default:
			oidctest.WriteJSON(w, http.StatusBadRequest, map[string]string{"error": "unsupported_grant_type"})
			return
		}
		oidctest.WriteJSON(w, http.StatusOK, map[string]any{
			"access_token":  "at-1",
			"refresh_token": "rt-2",
			"id_token":      srv.IDToken("", nil),
			"token_type":    "Bearer",
			"expires_in":    86400,
			"scope":         params["scope"],
		})
	})
}

func TestClient_Login(t *testing.T) {
	srv := oidctest.NewServer(t)
	serveTokens(t, srv)
	client := newClient(t, srv, 0)
	ctx := context.Background()

	t.Run("valid credentials", func(t *testing.T) {
		result, err := client.Login(ctx, credentials.LoginOptions{
			Username: validUser, Password: validPassword, Realm: "Username-Password-Authentication",
		})
		require.NoError(t, err)
		require.Equal(t, "at-1", result.AccessToken)
		require.Equal(t, 86400, result.ExpiresIn)
		require.Equal(t, "openid profile email", result.Scope)
		require.Equal(t, "auth0|123", result.IDTokenPayload.Subject)
	})

	t.Run("invalid credentials are an invalid grant", func(t *testing.T) {
		result, err := client.Login(ctx, credentials.LoginOptions{
			Username: validUser, Password: "wrong", Realm: "Username-Password-Authentication",
		})
		require.Nil(t, result)
		require.ErrorIs(t, err, autherror.ErrInvalidGrant)
		require.NotErrorIs(t, err, autherror.ErrNetwork)
	})

	t.Run("unknown realm", func(t *testing.T) {
		_, err := client.Login(ctx, credentials.LoginOptions{Username: validUser, Password: validPassword, Realm: "nope"})
		require.ErrorIs(t, err, autherror.ErrUnknownConnection)
	})

	t.Run("missing realm", func(t *testing.T) {
		_, err := client.Login(ctx, credentials.LoginOptions{Username: validUser, Password: validPassword})
		require.ErrorIs(t, err, autherror.ErrConfiguration)
	})

	t.Run("default directory", func(t *testing.T) {
		result, err := client.LoginWithDefaultDirectory(ctx, credentials.LoginOptions{Username: validUser, Password: validPassword})
		require.NoError(t, err)
		require.Equal(t, "at-1", result.AccessToken)
	})

	t.Run("refresh token", func(t *testing.T) {
		result, err := client.RefreshToken(ctx, credentials.RefreshOptions{RefreshToken: "rt-1"})
		require.NoError(t, err)
		require.Equal(t, "rt-2", result.RefreshToken)
	})
}

func TestClient_FailureModes(t *testing.T) {
	ctx := context.Background()
	login := credentials.LoginOptions{Username: validUser, Password: validPassword, Realm: "Username-Password-Authentication"}

	t.Run("rate limited", func(t *testing.T) {
		srv := oidctest.NewServer(t)
		srv.Handle("/oauth/token", func(w http.ResponseWriter, r *http.Request) {
			oidctest.WriteJSON(w, http.StatusTooManyRequests, map[string]string{"error": "too_many_attempts", "error_description": "blocked"})
		})
		_, err := newClient(t, srv, 3).Login(ctx, login)
		require.ErrorIs(t, err, autherror.ErrRateLimited)
	})

	t.Run("network failure", func(t *testing.T) {
		srv := oidctest.NewServer(t)
		client := newClient(t, srv, 0)
		srv.Close()
		_, err := client.Login(ctx, login)
		require.ErrorIs(t, err, autherror.ErrNetwork)
	})

	t.Run("no retry unless configured", func(t *testing.T) {
		srv := oidctest.NewServer(t)
		var calls atomic.Int32
		srv.Handle("/oauth/token", func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusServiceUnavailable)
		})
		_, err := newClient(t, srv, 0).Login(ctx, login)
		require.ErrorIs(t, err, autherror.ErrServer)
		require.Equal(t, int32(1), calls.Load())
	})

	t.Run("bounded retry recovers", func(t *testing.T) {
		srv := oidctest.NewServer(t)
		var calls atomic.Int32
		srv.Handle("/oauth/token", func(w http.ResponseWriter, r *http.Request) {
			if calls.Add(1) == 1 {
				w.WriteHeader(http.StatusBadGateway)
				return
			}
			oidctest.WriteJSON(w, http.StatusOK, map[string]any{"access_token": "at", "token_type": "Bearer"})
		})
		result, err := newClient(t, srv, 2).Login(ctx, login)
		require.NoError(t, err)
		require.Equal(t, "at", result.AccessToken)
		require.Equal(t, int32(2), calls.Load())
	})

	t.Run("tampered identity token", func(t *testing.T) {
		srv := oidctest.NewServer(t)
		other, err := oidctest.GenerateRSAKeyPair(srv.Key.KeyID, 2048)
		require.NoError(t, err)
		srv.Handle("/oauth/token", func(w http.ResponseWriter, r *http.Request) {
			forged, _ := other.Sign(srv.Claims("", nil))
			oidctest.WriteJSON(w, http.StatusOK, map[string]any{"access_token": "at", "id_token": forged})
		})
		result, err := newClient(t, srv, 0).Login(ctx, login)
		require.ErrorIs(t, err, autherror.ErrValidation)
		require.Nil(t, result)
	})
}

func TestClient_ExchangeCode(t *testing.T) {
	srv := oidctest.NewServer(t)
	serveTokens(t, srv)
	client := newClient(t, srv, 0)
	ctx := context.Background()

	t.Run("valid code", func(t *testing.T) {
		result, err := client.ExchangeCode(ctx, credentials.ExchangeOptions{Code: "good-code", CodeVerifier: "verifier-1", Nonce: "n-code"})
		require.NoError(t, err)
		require.Equal(t, "at-code", result.AccessToken)
		require.Equal(t, 3600, result.ExpiresIn)
		require.Equal(t, "n-code", result.IDTokenPayload.Nonce)
	})

	t.Run("nonce mismatch", func(t *testing.T) {
		result, err := client.ExchangeCode(ctx, credentials.ExchangeOptions{Code: "good-code", CodeVerifier: "verifier-1", Nonce: "other"})
		require.ErrorIs(t, err, autherror.ErrValidation)
		require.Nil(t, result)
	})

	t.Run("rejected code", func(t *testing.T) {
		_, err := client.ExchangeCode(ctx, credentials.ExchangeOptions{Code: "bad", CodeVerifier: oauth2.GenerateVerifier()})
		require.ErrorIs(t, err, autherror.ErrInvalidGrant)
	})

	t.Run("server errors are retried", func(t *testing.T) {
		srv := oidctest.NewServer(t)
		var calls atomic.Int32
		srv.Handle("/oauth/token", func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, "application/x-www-form-urlencoded", r.Header.Get("Content-Type"))
			if calls.Add(1) == 1 {
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
			params := tokenParams(t, r)
			require.Equal(t, "good-code", params["code"])
			require.Equal(t, "verifier-1", params["code_verifier"])
			oidctest.WriteJSON(w, http.StatusOK, map[string]any{"access_token": "at-retried", "token_type": "Bearer"})
		})
		result, err := newClient(t, srv, 2).ExchangeCode(ctx, credentials.ExchangeOptions{Code: "good-code", CodeVerifier: "verifier-1"})
		require.NoError(t, err)
		require.Equal(t, "at-retried", result.AccessToken)
		require.Equal(t, int32(2), calls.Load())
	})
}

func TestClient_Passwordless(t *testing.T) {
	srv := oidctest.NewServer(t)
	serveTokens(t, srv)
	var started map[string]any
	srv.Handle("/passwordless/start", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&started))
		oidctest.WriteJSON(w, http.StatusOK, map[string]string{"_id": "x"})
	})
	client := newClient(t, srv, 0)
	ctx := context.Background()

	require.NoError(t, client.PasswordlessStart(ctx, credentials.PasswordlessStartOptions{Connection: "sms", PhoneNumber: "+14155550100"}))
	require.Equal(t, "sms", started["connection"])
	require.Equal(t, "code", started["send"])
	require.Equal(t, "+14155550100", started["phone_number"])

	err := client.PasswordlessStart(ctx, credentials.PasswordlessStartOptions{Connection: "email"})
	require.ErrorIs(t, err, autherror.ErrConfiguration)

	result, err := client.PasswordlessLogin(ctx, credentials.PasswordlessLoginOptions{
		Connection: "sms", PhoneNumber: "+14155550100", VerificationCode: "123456",
	})
	require.NoError(t, err)
	require.Equal(t, "at-1", result.AccessToken)

	_, err = client.PasswordlessLogin(ctx, credentials.PasswordlessLoginOptions{
		Connection: "email", Email: "user@example.com", VerificationCode: "000000",
	})
	require.ErrorIs(t, err, autherror.ErrInvalidGrant)
}

func TestClient_DatabaseAndProfile(t *testing.T) {
	srv := oidctest.NewServer(t)
	serveTokens(t, srv)
	srv.Handle("/dbconnections/signup", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		if body["email"] == "taken@example.com" {
			oidctest.WriteJSON(w, http.StatusBadRequest, map[string]any{
				"name": "BadRequestError", "code": "user_exists", "description": "The user already exists.", "statusCode": 400,
			})
			return
		}
		oidctest.WriteJSON(w, http.StatusOK, map[string]any{"_id": "abc", "email": body["email"], "email_verified": false})
	})
	srv.Handle("/dbconnections/change_password", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write([]byte("We've just sent you an email to reset your password."))
	})
	srv.Handle("/userinfo", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer at-1" {
			oidctest.WriteJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid_token"})
			return
		}
		oidctest.WriteJSON(w, http.StatusOK, map[string]any{"sub": "auth0|123", "email": validUser, "email_verified": true})
	})
	srv.Handle("/user/geoloc/country", func(w http.ResponseWriter, r *http.Request) {
		oidctest.WriteJSON(w, http.StatusOK, map[string]string{"country_code": "NZ"})
	})
	srv.Handle("/delegation", func(w http.ResponseWriter, r *http.Request) {
		oidctest.WriteJSON(w, http.StatusOK, map[string]any{"id_token": "delegated", "token_type": "Bearer", "expires_in": 36000})
	})

	client := newClient(t, srv, 0)
	ctx := context.Background()

	t.Run("signup", func(t *testing.T) {
		result, err := client.Signup(ctx, credentials.SignupOptions{Email: "new@example.com", Password: "pw"})
		require.NoError(t, err)
		require.Equal(t, "abc", result.ID)

		_, err = client.Signup(ctx, credentials.SignupOptions{Email: "taken@example.com", Password: "pw"})
		apiErr, ok := autherror.As(err)
		require.True(t, ok)
		require.Equal(t, "user_exists", apiErr.Code)
		require.Equal(t, autherror.KindInvalidRequest, apiErr.Kind)
	})

	t.Run("signup and login", func(t *testing.T) {
		result, err := client.SignupAndLogin(ctx, credentials.SignupOptions{Email: validUser, Password: validPassword})
		require.NoError(t, err)
		require.Equal(t, "at-1", result.AccessToken)
	})

	t.Run("change password", func(t *testing.T) {
		require.NoError(t, client.ChangePassword(ctx, credentials.ChangePasswordOptions{Email: validUser, Connection: "Username-Password-Authentication"}))
	})

	t.Run("user info", func(t *testing.T) {
		profile, err := client.UserInfo(ctx, "at-1")
		require.NoError(t, err)
		require.Equal(t, "auth0|123", profile.Sub)
		require.True(t, profile.EmailVerified)

		_, err = client.UserInfo(ctx, "expired")
		require.ErrorIs(t, err, autherror.ErrValidation)
	})

	t.Run("user country", func(t *testing.T) {
		country, err := client.UserCountry(ctx)
		require.NoError(t, err)
		require.Equal(t, "NZ", country)
	})

	t.Run("delegation", func(t *testing.T) {
		token, err := client.Delegation(ctx, credentials.DelegationOptions{IDToken: "id", Target: "other-client"})
		require.NoError(t, err)
		require.Equal(t, "delegated", token.IDToken)

		_, err = client.Delegation(ctx, credentials.DelegationOptions{})
		require.ErrorIs(t, err, autherror.ErrConfiguration)
	})
}
