package credentials

import (
	"context"

	"github.com/jrsteele09/go-auth-client/autherror"
	"github.com/jrsteele09/go-auth-client/internal/transport"
	"github.com/jrsteele09/go-auth-client/oauthmodel"
)

// UserInfo returns the profile of the user the access token was issued to.
func (c *Client) UserInfo(ctx context.Context, accessToken string) (*oauthmodel.UserProfile, error) {
	if err := required("access token", accessToken); err != nil {
		return nil, err
	}
	var profile oauthmodel.UserProfile
	if err := c.transport.Do(ctx, transport.Request{Path: userInfoPath, Bearer: accessToken}, &profile); err != nil {
		return nil, err
	}
	return &profile, nil
}

// DelegationOptions requests a token for another client or API.
type DelegationOptions struct {
	IDToken      string
	RefreshToken string
	Target       string
	APIType      string
	Scope        string
}

// DelegationToken is the delegated token.
type DelegationToken struct {
	IDToken   string `json:"id_token"`
	TokenType string `json:"token_type"`
	ExpiresIn int    `json:"expires_in"`
}

// Delegation exchanges an identity or refresh token for a token of another target.
func (c *Client) Delegation(ctx context.Context, o DelegationOptions) (*DelegationToken, error) {
	if (o.IDToken == "") == (o.RefreshToken == "") {
		return nil, autherror.Configuration("exactly one of id token or refresh token is required")
	}
	body := map[string]string{
		"client_id":  c.opts.ClientID,
		"grant_type": "urn:ietf:params:oauth:grant-type:jwt-bearer",
	}
	if o.IDToken != "" {
		body["id_token"] = o.IDToken
	} else {
		body["refresh_token"] = o.RefreshToken
	}
	for k, v := range map[string]string{"target": o.Target, "api_type": o.APIType, "scope": o.Scope} {
		if v != "" {
			body[k] = v
		}
	}

	var token DelegationToken
	if err := c.post(ctx, delegationPath, body, &token); err != nil {
		return nil, err
	}
	return &token, nil
}

// UserCountry returns the ISO country code of the caller's IP address.
func (c *Client) UserCountry(ctx context.Context) (string, error) {
	var resp struct {
		CountryCode string `json:"country_code"`
	}
	if err := c.transport.Do(ctx, transport.Request{Path: userCountryPath}, &resp); err != nil {
		return "", err
	}
	return resp.CountryCode, nil
}
