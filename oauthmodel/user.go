package oauthmodel

// UserProfile is the user shape returned by /userinfo and the management API.
type UserProfile struct {
	UserID        string         `json:"user_id,omitempty"`
	Sub           string         `json:"sub,omitempty"`
	Name          string         `json:"name,omitempty"`
	Nickname      string         `json:"nickname,omitempty"`
	Picture       string         `json:"picture,omitempty"`
	Username      string         `json:"username,omitempty"`
	GivenName     string         `json:"given_name,omitempty"`
	FamilyName    string         `json:"family_name,omitempty"`
	Email         string         `json:"email,omitempty"`
	EmailVerified bool           `json:"email_verified,omitempty"`
	Gender        string         `json:"gender,omitempty"`
	Locale        string         `json:"locale,omitempty"`
	Identities    []Identity     `json:"identities,omitempty"`
	CreatedAt     string         `json:"created_at,omitempty"`
	UpdatedAt     string         `json:"updated_at,omitempty"`
	UserMetadata  map[string]any `json:"user_metadata,omitempty"`
	AppMetadata   map[string]any `json:"app_metadata,omitempty"`
}

// Identity is one linked identity provider account of a user.
type Identity struct {
	Connection string `json:"connection"`
	IsSocial   bool   `json:"isSocial"`
	Provider   string `json:"provider"`
	UserID     string `json:"user_id"`
}
