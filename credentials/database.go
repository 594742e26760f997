package credentials

import (
	"context"

	"github.com/jrsteele09/go-auth-client/oauthmodel"
)

// SignupOptions creates a user in a database connection.
type SignupOptions struct {
	Email      string
	Password   string
	Connection string
	Username   string
	GivenName  string
	FamilyName string
	Name       string
	Nickname   string
	Picture    string

	// UserMetadata is stored on the user. Values must be strings.
	UserMetadata map[string]string
}

// SignupResult is the created user.
type SignupResult struct {
	ID            string `json:"_id"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Username      string `json:"username,omitempty"`
}

type signupRequest struct {
	ClientID     string            `json:"client_id"`
	Email        string            `json:"email"`
	Password     string            `json:"password"`
	Connection   string            `json:"connection"`
	Username     string            `json:"username,omitempty"`
	GivenName    string            `json:"given_name,omitempty"`
	FamilyName   string            `json:"family_name,omitempty"`
	Name         string            `json:"name,omitempty"`
	Nickname     string            `json:"nickname,omitempty"`
	Picture      string            `json:"picture,omitempty"`
	UserMetadata map[string]string `json:"user_metadata,omitempty"`
}

// Signup creates a database user.
func (c *Client) Signup(ctx context.Context, o SignupOptions) (*SignupResult, error) {
	if err := required("email", o.Email); err != nil {
		return nil, err
	}
	if err := required("password", o.Password); err != nil {
		return nil, err
	}
	connection := o.Connection
	if connection == "" {
		connection = defaultDatabaseConnection
	}

	var result SignupResult
	err := c.post(ctx, signupPath, signupRequest{
		ClientID:     c.opts.ClientID,
		Email:        o.Email,
		Password:     o.Password,
		Connection:   connection,
		Username:     o.Username,
		GivenName:    o.GivenName,
		FamilyName:   o.FamilyName,
		Name:         o.Name,
		Nickname:     o.Nickname,
		Picture:      o.Picture,
		UserMetadata: o.UserMetadata,
	}, &result)
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// SignupAndLogin creates a database user and logs them in to the same connection.
func (c *Client) SignupAndLogin(ctx context.Context, o SignupOptions) (*oauthmodel.AuthResult, error) {
	if _, err := c.Signup(ctx, o); err != nil {
		return nil, err
	}
	realm := o.Connection
	if realm == "" {
		realm = defaultDatabaseConnection
	}
	return c.Login(ctx, LoginOptions{Username: o.Email, Password: o.Password, Realm: realm})
}

// ChangePasswordOptions requests a password reset email.
type ChangePasswordOptions struct {
	Email      string
	Connection string
}

// ChangePassword sends the user a password reset email.
func (c *Client) ChangePassword(ctx context.Context, o ChangePasswordOptions) error {
	if err := required("email", o.Email); err != nil {
		return err
	}
	if err := required("connection", o.Connection); err != nil {
		return err
	}
	return c.post(ctx, changePasswordPath, map[string]string{
		"client_id":  c.opts.ClientID,
		"email":      o.Email,
		"connection": o.Connection,
	}, nil)
}
