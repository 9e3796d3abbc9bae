package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/dmitrijs2005/featureboard/internal/flagx"
	"github.com/dmitrijs2005/featureboard/internal/timex"
)

// JsonConfig is the on-disk shape of the JSON config file. Duration fields
// use timex.Duration so both "15m" and integer nanoseconds are accepted.
// Pointer and zero values mean "not set" and leave the current value alone.
type JsonConfig struct {
	EndpointAddrGRPC                   string          `json:"endpoint_addr_grpc"`
	MetricsAddr                        *string         `json:"metrics_addr"`
	DatabaseDSN                        string          `json:"database_dsn"`
	SecretKey                          string          `json:"secret_key"`
	AccessTokenValidityDuration        *timex.Duration `json:"access_token_validity_duration"`
	RefreshTokenValidityDuration       *timex.Duration `json:"refresh_token_validity_duration"`
	VerificationTokenValidityDuration  *timex.Duration `json:"verification_token_validity_duration"`
	PasswordResetTokenValidityDuration *timex.Duration `json:"password_reset_token_validity_duration"`
	LoginMaxAttempts                   int             `json:"login_max_attempts"`
	LoginWindow                        *timex.Duration `json:"login_window"`
	SystemUserEmail                    string          `json:"system_user_email"`
	SystemUserName                     string          `json:"system_user_name"`
	TrustProxyHeaders                  *bool           `json:"trust_proxy_headers"`
	BcryptCost                         int             `json:"bcrypt_cost"`
	LogLevel                           string          `json:"log_level"`
}

// parseJson overlays config with the JSON file named by -c / -config.
// Without the flag nothing is loaded. An unreadable file or invalid JSON
// panics: the process must not start on a half-read config.
func parseJson(config *Config) {
	path := flagx.ConfigFilePath(os.Args[1:])
	if path == "" {
		return
	}

	file, err := os.ReadFile(path)
	if err != nil {
		panic(err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	setString(&config.EndpointAddrGRPC, c.EndpointAddrGRPC)
	if c.MetricsAddr != nil {
		config.MetricsAddr = *c.MetricsAddr
	}
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.SecretKey, c.SecretKey)
	setDuration(&config.AccessTokenValidityDuration, c.AccessTokenValidityDuration)
	setDuration(&config.RefreshTokenValidityDuration, c.RefreshTokenValidityDuration)
	setDuration(&config.VerificationTokenValidityDuration, c.VerificationTokenValidityDuration)
	setDuration(&config.PasswordResetTokenValidityDuration, c.PasswordResetTokenValidityDuration)
	if c.LoginMaxAttempts > 0 {
		config.LoginMaxAttempts = c.LoginMaxAttempts
	}
	setDuration(&config.LoginWindow, c.LoginWindow)
	setString(&config.SystemUserEmail, c.SystemUserEmail)
	setString(&config.SystemUserName, c.SystemUserName)
	if c.TrustProxyHeaders != nil {
		config.TrustProxyHeaders = *c.TrustProxyHeaders
	}
	if c.BcryptCost > 0 {
		config.BcryptCost = c.BcryptCost
	}
	setString(&config.LogLevel, c.LogLevel)
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setDuration(dst *time.Duration, v *timex.Duration) {
	if v != nil {
		*dst = v.Duration
	}
}
