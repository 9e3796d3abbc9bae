package config

import (
	"time"

	"github.com/kelseyhightower/envconfig"
)

// envPrefix scopes the environment overlay: FEATUREBOARD_DATABASE_DSN etc.
const envPrefix = "featureboard"

// EnvConfig mirrors Config for the environment overlay. Pointer fields stay
// nil when the variable is unset so defaults and JSON values survive.
type EnvConfig struct {
	EndpointAddrGRPC                   *string        `envconfig:"ENDPOINT_ADDR_GRPC"`
	MetricsAddr                        *string        `envconfig:"METRICS_ADDR"`
	DatabaseDSN                        *string        `envconfig:"DATABASE_DSN"`
	SecretKey                          *string        `envconfig:"SECRET_KEY"`
	AccessTokenValidityDuration        *time.Duration `envconfig:"ACCESS_TOKEN_VALIDITY"`
	RefreshTokenValidityDuration       *time.Duration `envconfig:"REFRESH_TOKEN_VALIDITY"`
	VerificationTokenValidityDuration  *time.Duration `envconfig:"VERIFICATION_TOKEN_VALIDITY"`
	PasswordResetTokenValidityDuration *time.Duration `envconfig:"PASSWORD_RESET_TOKEN_VALIDITY"`
	LoginMaxAttempts                   *int           `envconfig:"LOGIN_MAX_ATTEMPTS"`
	LoginWindow                        *time.Duration `envconfig:"LOGIN_WINDOW"`
	SystemUserEmail                    *string        `envconfig:"SYSTEM_USER_EMAIL"`
	SystemUserName                     *string        `envconfig:"SYSTEM_USER_NAME"`
	TrustProxyHeaders                  *bool          `envconfig:"TRUST_PROXY_HEADERS"`
	BcryptCost                         *int           `envconfig:"BCRYPT_COST"`
	LogLevel                           *string        `envconfig:"LOG_LEVEL"`
}

// parseEnv overlays config with FEATUREBOARD_* variables. A malformed value
// (e.g. a non-numeric LOGIN_MAX_ATTEMPTS) panics like a malformed JSON file.
func parseEnv(config *Config) {
	var e EnvConfig
	if err := envconfig.Process(envPrefix, &e); err != nil {
		panic(err)
	}

	overlay(&config.EndpointAddrGRPC, e.EndpointAddrGRPC)
	overlay(&config.MetricsAddr, e.MetricsAddr)
	overlay(&config.DatabaseDSN, e.DatabaseDSN)
	overlay(&config.SecretKey, e.SecretKey)
	overlay(&config.AccessTokenValidityDuration, e.AccessTokenValidityDuration)
	overlay(&config.RefreshTokenValidityDuration, e.RefreshTokenValidityDuration)
	overlay(&config.VerificationTokenValidityDuration, e.VerificationTokenValidityDuration)
	overlay(&config.PasswordResetTokenValidityDuration, e.PasswordResetTokenValidityDuration)
	overlay(&config.LoginMaxAttempts, e.LoginMaxAttempts)
	overlay(&config.LoginWindow, e.LoginWindow)
	overlay(&config.SystemUserEmail, e.SystemUserEmail)
	overlay(&config.SystemUserName, e.SystemUserName)
	overlay(&config.TrustProxyHeaders, e.TrustProxyHeaders)
	overlay(&config.BcryptCost, e.BcryptCost)
	overlay(&config.LogLevel, e.LogLevel)
}

func overlay[T any](dst *T, v *T) {
	if v != nil {
		*dst = *v
	}
}
