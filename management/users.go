package management

import (
	"context"
	"net/http"

	"github.com/jrsteele09/go-auth-client/autherror"
	"github.com/jrsteele09/go-auth-client/oauthmodel"
)

// UserAttributes are the root attributes that PatchUserAttributes can change.
// Nil and empty fields are left untouched.
type UserAttributes struct {
	Blocked       *bool          `json:"blocked,omitempty"`
	Email         string         `json:"email,omitempty"`
	EmailVerified *bool          `json:"email_verified,omitempty"`
	PhoneNumber   string         `json:"phone_number,omitempty"`
	PhoneVerified *bool          `json:"phone_verified,omitempty"`
	GivenName     string         `json:"given_name,omitempty"`
	FamilyName    string         `json:"family_name,omitempty"`
	Name          string         `json:"name,omitempty"`
	Nickname      string         `json:"nickname,omitempty"`
	Picture       string         `json:"picture,omitempty"`
	Username      string         `json:"username,omitempty"`
	Password      string         `json:"password,omitempty"`
	Connection    string         `json:"connection,omitempty"`
	UserMetadata  map[string]any `json:"user_metadata,omitempty"`
	AppMetadata   map[string]any `json:"app_metadata,omitempty"`
}

// GetUser returns a user by ID.
func (c *Client) GetUser(ctx context.Context, userID string) (*oauthmodel.UserProfile, error) {
	path, err := userPath(userID)
	if err != nil {
		return nil, err
	}
	var user oauthmodel.UserProfile
	if err := c.do(ctx, http.MethodGet, path, nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// PatchUserMetadata merges metadata into the user's user_metadata.
func (c *Client) PatchUserMetadata(ctx context.Context, userID string, metadata map[string]any) (*oauthmodel.UserProfile, error) {
	if metadata == nil {
		return nil, autherror.Configuration("user metadata is required")
	}
	return c.patch(ctx, userID, map[string]any{"user_metadata": metadata})
}

// PatchUserAttributes updates root attributes of the user.
func (c *Client) PatchUserAttributes(ctx context.Context, userID string, attrs UserAttributes) (*oauthmodel.UserProfile, error) {
	return c.patch(ctx, userID, attrs)
}

// LinkUser links the account identified by secondaryUserToken to the primary user
// and returns the primary user's identities.
func (c *Client) LinkUser(ctx context.Context, primaryUserID, secondaryUserToken string) ([]oauthmodel.Identity, error) {
	if secondaryUserToken == "" {
		return nil, autherror.Configuration("secondary user token is required")
	}
	path, err := userPath(primaryUserID, "/identities")
	if err != nil {
		return nil, err
	}
	var identities []oauthmodel.Identity
	if err := c.do(ctx, http.MethodPost, path, map[string]string{"link_with": secondaryUserToken}, &identities); err != nil {
		return nil, err
	}
	return identities, nil
}

func (c *Client) patch(ctx context.Context, userID string, body any) (*oauthmodel.UserProfile, error) {
	path, err := userPath(userID)
	if err != nil {
		return nil, err
	}
	var user oauthmodel.UserProfile
	if err := c.do(ctx, http.MethodPatch, path, body, &user); err != nil {
		return nil, err
	}
	return &user, nil
}
