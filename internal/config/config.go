package config

import (
	"time"

	"github.com/jrsteele09/go-auth-client/management"
	"github.com/jrsteele09/go-auth-client/oauthmodel"
	"github.com/rs/zerolog"
)

type Config interface {
	EnvConfig
	AuthConfig
	ManagementConfig
}

type EnvConfig interface {
	GetAppName() string
	GetEnv() string
	GetLogLevel() zerolog.Level
	GetMetricsEnabled() bool
	GetRedisURL() string
}

type AuthConfig interface {
	GetAuthOptions() oauthmodel.AuthOptions
	GetRequirePKCE() bool
	GetRenewalTimeout() time.Duration
}

type ManagementConfig interface {
	GetManagementOptions() management.Options
}

type mainConfig struct {
	EnvVars
}

// New loads the configuration from the environment.
func New() (Config, error) {
	vars, err := LoadEnvVars()
	if err != nil {
		return nil, err
	}
	return mainConfig{EnvVars: vars}, nil
}
