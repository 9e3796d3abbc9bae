package config

import (
	"time"

	"github.com/kelseyhightower/envconfig"
)

const envPrefix = "featureboard_cli"

// EnvConfig holds FEATUREBOARD_CLI_* variables; nil means unset.
type EnvConfig struct {
	ServerEndpointAddr *string        `envconfig:"SERVER_ENDPOINT_ADDR"`
	RequestTimeout     *time.Duration `envconfig:"REQUEST_TIMEOUT"`
}

func parseEnv(cfg *Config) {
	var e EnvConfig
	if err := envconfig.Process(envPrefix, &e); err != nil {
		panic(err)
	}
	if e.ServerEndpointAddr != nil {
		cfg.ServerEndpointAddr = *e.ServerEndpointAddr
	}
	if e.RequestTimeout != nil {
		cfg.RequestTimeout = *e.RequestTimeout
	}
}
