package autherror_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/jrsteele09/go-auth-client/autherror"
	"github.com/stretchr/testify/require"
)

func TestFromOAuth_Classification(t *testing.T) {
	tests := []struct {
		name   string
		status int
		code   string
		want   autherror.Kind
	}{
		{"wrong password", http.StatusForbidden, "invalid_grant", autherror.KindInvalidGrant},
		{"unknown realm", http.StatusBadRequest, "invalid_realm", autherror.KindUnknownConnection},
		{"passwordless bad connection", http.StatusBadRequest, "bad.connection", autherror.KindUnknownConnection},
		{"rate limited by code", http.StatusTooManyRequests, "too_many_attempts", autherror.KindRateLimited},
		{"rate limited by status", http.StatusTooManyRequests, "", autherror.KindRateLimited},
		{"login required from fragment", 0, "login_required", autherror.KindLoginRequired},
		{"interaction required", 0, "interaction_required", autherror.KindInteractionRequired},
		{"consent required", 0, "consent_required", autherror.KindConsentRequired},
		{"management not found", http.StatusNotFound, "Not Found", autherror.KindNotFound},
		{"management forbidden", http.StatusForbidden, "Forbidden", autherror.KindForbidden},
		{"management validation", http.StatusBadRequest, "Bad Request", autherror.KindInvalidRequest},
		{"server failure", http.StatusBadGateway, "", autherror.KindServer},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := autherror.FromOAuth(tt.status, tt.code, "description")
			require.Equal(t, tt.want, err.Kind)
			require.Equal(t, tt.status, err.StatusCode)
		})
	}
}

func TestError_IsMatchesKind(t *testing.T) {
	err := fmt.Errorf("login: %w", autherror.FromOAuth(http.StatusForbidden, "invalid_grant", "Wrong email or password."))

	require.True(t, errors.Is(err, autherror.ErrInvalidGrant))
	require.False(t, errors.Is(err, autherror.ErrNetwork))
	require.Equal(t, autherror.KindInvalidGrant, autherror.KindOf(err))
	require.Contains(t, err.Error(), "Wrong email or password.")
}

func TestWrap_KeepsExistingClassification(t *testing.T) {
	inner := autherror.New(autherror.KindTimeout, "renewal timed out")
	wrapped := autherror.Wrap(autherror.KindNetwork, inner, "request failed")
	require.Same(t, inner, wrapped)

	cause := errors.New("connection refused")
	network := autherror.Wrap(autherror.KindNetwork, cause, "request failed")
	require.Equal(t, autherror.KindNetwork, network.Kind)
	require.ErrorIs(t, network, cause)
}

func TestKindOf_PlainError(t *testing.T) {
	require.Equal(t, autherror.Kind(""), autherror.KindOf(errors.New("boom")))
}
