// Package config loads runtime configuration for the feature board CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file (see parseJson) selected via flags: -c or -config.
//  3. FEATUREBOARD_CLI_SERVER_ENDPOINT_ADDR / FEATUREBOARD_CLI_REQUEST_TIMEOUT
//     (see parseEnv).
//  4. Command-line flags (see parseFlags), which override earlier values.
//
// Supported flags
//
//	-a string   address:port of the backend gRPC endpoint
//	-t int      per-call timeout (seconds)
//
// # JSON schema
//
// The JSON loader uses timex.Duration for intervals, so values can be either
// strings like "5s" or integer nanoseconds:
//
//	{
//	  "server_endpoint_addr": "127.0.0.1:50051",
//	  "request_timeout": "5s"
//	}
//
// Primary API
//
//   - type Config                    : holds ServerEndpointAddr and RequestTimeout
//   - func LoadConfig() *Config      : builds Config from defaults, JSON, env, then flags
//   - func (*Config) LoadDefaults()  : sets sensible defaults
package config
