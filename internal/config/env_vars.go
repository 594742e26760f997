package config

import (
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/jrsteele09/go-auth-client/management"
	"github.com/jrsteele09/go-auth-client/oauthmodel"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// EnvVars holds every setting read from the environment.
type EnvVars struct {
	AppName string `env:"APP_NAME" envDefault:"Auth Client"`
	Env     string `env:"ENV" envDefault:"DEV"`

	Domain       string        `env:"AUTH_DOMAIN"`
	ClientID     string        `env:"AUTH_CLIENT_ID"`
	ClientSecret string        `env:"AUTH_CLIENT_SECRET"`
	RedirectURI  string        `env:"AUTH_REDIRECT_URI"`
	ResponseType string        `env:"AUTH_RESPONSE_TYPE" envDefault:"token id_token"`
	ResponseMode string        `env:"AUTH_RESPONSE_MODE"`
	Scope        string        `env:"AUTH_SCOPE" envDefault:"openid profile email"`
	Audience     string        `env:"AUTH_AUDIENCE"`
	Leeway       time.Duration `env:"AUTH_LEEWAY" envDefault:"60s"`
	Retries      int           `env:"AUTH_RETRIES" envDefault:"0"`
	RequirePKCE  bool          `env:"AUTH_PKCE" envDefault:"false"`
	RenewTimeout time.Duration `env:"AUTH_RENEW_TIMEOUT" envDefault:"60s"`

	ManagementToken        string `env:"MGMT_TOKEN"`
	ManagementClientID     string `env:"MGMT_CLIENT_ID"`
	ManagementClientSecret string `env:"MGMT_CLIENT_SECRET"`
	ManagementScope        string `env:"MGMT_SCOPE"`

	RedisURL       string `env:"REDIS_URL"`
	LogLevel       string `env:"LOG_LEVEL" envDefault:"info"`
	MetricsEnabled bool   `env:"METRICS_ENABLED" envDefault:"false"`
}

var _ EnvConfig = EnvVars{}
var _ AuthConfig = EnvVars{}
var _ ManagementConfig = EnvVars{}

// LoadEnvVars parses the process environment.
func LoadEnvVars() (EnvVars, error) {
	var vars EnvVars
	if err := env.Parse(&vars); err != nil {
		return EnvVars{}, errors.Wrap(err, "[config.LoadEnvVars] parsing environment")
	}
	return vars, nil
}

func (e EnvVars) GetAppName() string {
	return e.AppName
}

func (e EnvVars) GetEnv() string {
	return e.Env
}

// GetLogLevel falls back to info for unknown levels.
func (e EnvVars) GetLogLevel() zerolog.Level {
	level, err := zerolog.ParseLevel(strings.ToLower(e.LogLevel))
	if err != nil || level == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return level
}

func (e EnvVars) GetMetricsEnabled() bool {
	return e.MetricsEnabled
}

func (e EnvVars) GetRedisURL() string {
	return e.RedisURL
}

func (e EnvVars) GetAuthOptions() oauthmodel.AuthOptions {
	return oauthmodel.AuthOptions{
		Domain:                     e.Domain,
		ClientID:                   e.ClientID,
		ClientSecret:               e.ClientSecret,
		ResponseType:               oauthmodel.ResponseType(e.ResponseType),
		ResponseMode:               oauthmodel.ResponseModeType(e.ResponseMode),
		RedirectURI:                e.RedirectURI,
		Scope:                      e.Scope,
		Audience:                   e.Audience,
		Leeway:                     e.Leeway,
		TimesToRetryFailedRequests: e.Retries,
	}
}

func (e EnvVars) GetRequirePKCE() bool {
	return e.RequirePKCE
}

func (e EnvVars) GetRenewalTimeout() time.Duration {
	return e.RenewTimeout
}

// GetManagementOptions shares the tenant domain and retry count with the
// authentication client.
func (e EnvVars) GetManagementOptions() management.Options {
	return management.Options{
		Domain:                     e.Domain,
		Token:                      e.ManagementToken,
		ClientID:                   e.ManagementClientID,
		ClientSecret:               e.ManagementClientSecret,
		Scope:                      e.ManagementScope,
		TimesToRetryFailedRequests: e.Retries,
	}
}
