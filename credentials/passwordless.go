package credentials

import (
	"context"

	"github.com/jrsteele09/go-auth-client/autherror"
	"github.com/jrsteele09/go-auth-client/oauthmodel"
)

// PasswordlessSend selects what the user receives.
type PasswordlessSend string

const (
	SendLink PasswordlessSend = "link"
	SendCode PasswordlessSend = "code"
)

// PasswordlessStartOptions begins an email or sms passwordless flow.
type PasswordlessStartOptions struct {
	// Connection is "email" or "sms".
	Connection string

	// Send selects a magic link or a one-time code.
	// Default: "code"
	Send PasswordlessSend

	// Email is required for the email connection.
	Email string

	// PhoneNumber is required for the sms connection.
	// Example: "+14155550100"
	PhoneNumber string

	// AuthParams are authorize parameters embedded in a magic link.
	AuthParams map[string]string
}

type passwordlessStartRequest struct {
	ClientID    string            `json:"client_id"`
	Connection  string            `json:"connection"`
	Send        PasswordlessSend  `json:"send"`
	Email       string            `json:"email,omitempty"`
	PhoneNumber string            `json:"phone_number,omitempty"`
	AuthParams  map[string]string `json:"authParams,omitempty"`
}

// PasswordlessStart asks the server to deliver a link or code to the user.
func (c *Client) PasswordlessStart(ctx context.Context, o PasswordlessStartOptions) error {
	if err := validateRecipient(o.Connection, o.Email, o.PhoneNumber); err != nil {
		return err
	}
	send := o.Send
	if send == "" {
		send = SendCode
	}
	if send != SendCode && send != SendLink {
		return autherror.Configuration("send must be %q or %q", SendCode, SendLink)
	}
	return c.post(ctx, passwordlessStartPath, passwordlessStartRequest{
		ClientID:    c.opts.ClientID,
		Connection:  o.Connection,
		Send:        send,
		Email:       o.Email,
		PhoneNumber: o.PhoneNumber,
		AuthParams:  o.AuthParams,
	}, nil)
}

// PasswordlessLoginOptions redeems a one-time code.
type PasswordlessLoginOptions struct {
	Connection       string
	Email            string
	PhoneNumber      string
	VerificationCode string
	Scope            string
	Audience         string
}

// PasswordlessLogin exchanges a one-time code for tokens.
func (c *Client) PasswordlessLogin(ctx context.Context, o PasswordlessLoginOptions) (*oauthmodel.AuthResult, error) {
	if err := validateRecipient(o.Connection, o.Email, o.PhoneNumber); err != nil {
		return nil, err
	}
	if err := required("verification code", o.VerificationCode); err != nil {
		return nil, err
	}
	username := o.Email
	if o.Connection == "sms" {
		username = o.PhoneNumber
	}
	return c.requestToken(ctx, tokenRequest{
		GrantType: oauthmodel.PasswordlessOTPGrant,
		Username:  username,
		OTP:       o.VerificationCode,
		Realm:     o.Connection,
		Scope:     o.Scope,
		Audience:  o.Audience,
	}, "")
}

func validateRecipient(connection, email, phone string) error {
	switch connection {
	case "email":
		return required("email", email)
	case "sms":
		return required("phone number", phone)
	}
	return autherror.Configuration("connection must be \"email\" or \"sms\", got %q", connection)
}
