package credentials

import (
	"context"

	"github.com/jrsteele09/go-auth-client/oauthmodel"
)

// LoginOptions holds resource owner credentials.
type LoginOptions struct {
	// Username is the user's email or username.
	// Required: Yes
	Username string

	// Password is the user's password.
	// Required: Yes
	// Security: Never logged
	Password string

	// Realm names the database connection. Required by Login, ignored by
	// LoginWithDefaultDirectory.
	// Example: "Username-Password-Authentication"
	Realm string

	// Scope overrides AuthOptions.Scope.
	Scope string

	// Audience overrides AuthOptions.Audience.
	Audience string
}

// Login authenticates against the named realm with the password-realm grant.
func (c *Client) Login(ctx context.Context, o LoginOptions) (*oauthmodel.AuthResult, error) {
	if err := validateLogin(o); err != nil {
		return nil, err
	}
	if err := required("realm", o.Realm); err != nil {
		return nil, err
	}
	c.logger.Debug().Str("realm", o.Realm).Msg("password realm login")
	return c.requestToken(ctx, tokenRequest{
		GrantType: oauthmodel.PasswordRealmGrant,
		Username:  o.Username,
		Password:  o.Password,
		Realm:     o.Realm,
		Scope:     o.Scope,
		Audience:  o.Audience,
	}, "")
}

// LoginWithDefaultDirectory authenticates against the tenant's default
// directory with the password grant.
func (c *Client) LoginWithDefaultDirectory(ctx context.Context, o LoginOptions) (*oauthmodel.AuthResult, error) {
	if err := validateLogin(o); err != nil {
		return nil, err
	}
	return c.requestToken(ctx, tokenRequest{
		GrantType: oauthmodel.PasswordGrant,
		Username:  o.Username,
		Password:  o.Password,
		Scope:     o.Scope,
		Audience:  o.Audience,
	}, "")
}

// RefreshOptions identifies the refresh token to redeem.
type RefreshOptions struct {
	RefreshToken string
	Scope        string
}

// RefreshToken exchanges a refresh token for new tokens.
func (c *Client) RefreshToken(ctx context.Context, o RefreshOptions) (*oauthmodel.AuthResult, error) {
	if err := required("refresh token", o.RefreshToken); err != nil {
		return nil, err
	}
	return c.requestToken(ctx, tokenRequest{
		GrantType:    oauthmodel.RefreshTokenGrant,
		RefreshToken: o.RefreshToken,
		Scope:        o.Scope,
	}, "")
}

func validateLogin(o LoginOptions) error {
	if err := required("username", o.Username); err != nil {
		return err
	}
	return required("password", o.Password)
}
