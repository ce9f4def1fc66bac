// pkg/logging/mixin.go
package logging

import (
	"go.uber.org/zap"
)

// Environment variables consulted when the config leaves identity empty.
// NODE_ENV is checked before ENVIRONMENT so services sharing a deployment
// with Node processes report the same environment.
const (
	EnvNodeEnv     = "NODE_ENV"
	EnvEnvironment = "ENVIRONMENT"
	EnvServiceName = "SERVICE_NAME"
	EnvVersion     = "VERSION"
)

// Fallbacks used when neither config nor environment provide a value.
const (
	DefaultEnvironment = "local"
	DefaultServiceName = "undefined-service-name"
	DefaultVersion     = "undefined-version"
)

// Mixin is the process-wide identity stamped on every record.
type Mixin struct {
	Environment string
	Service     string
	Version     string
}

// ResolveMixin picks each value from cfg, then getenv, then the fallback literal.
// It runs once, when the logger is built; emission never reads the environment.
func ResolveMixin(cfg *Config, getenv func(string) string) Mixin {
	pick := func(explicit, fallback string, envs ...string) string {
		if explicit != "" {
			return explicit
		}
		for _, env := range envs {
			if v := getenv(env); v != "" {
				return v
			}
		}
		return fallback
	}
	return Mixin{
		Environment: pick(cfg.Environment, DefaultEnvironment, EnvNodeEnv, EnvEnvironment),
		Service:     pick(cfg.ServiceName, DefaultServiceName, EnvServiceName),
		Version:     pick(cfg.Version, DefaultVersion, EnvVersion),
	}
}

// appendTo writes fresh mixin fields for one record.
func (m Mixin) appendTo(s *fieldSet) {
	s.set(zap.String("environment", m.Environment))
	s.set(zap.String("service", m.Service))
	s.set(zap.String("version", m.Version))
}
