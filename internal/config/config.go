// Package config loads the gateway's process configuration from an optional
// config.yaml overlaid by PGW_-prefixed environment variables.
package config

import (
	"os"
	"regexp"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	Server ServerConfig `koanf:"server"`
	Redis  RedisConfig  `koanf:"redis"`
	Policy PolicyConfig `koanf:"policy"`
	Audit  AuditConfig  `koanf:"audit"`
}

type ServerConfig struct {
	Port int `koanf:"port"`
}

// RedisConfig points at the shared counter store. Addr is the one
// environment-configurable shared-store endpoint (PGW_REDIS__ADDR).
type RedisConfig struct {
	Addr     string `koanf:"addr"`
	Password string `koanf:"password"`
	DB       int    `koanf:"db"`
}

type PolicyConfig struct {
	// Path is the policy document location, both the reload source and the
	// persistence target for admin replacement.
	Path string `koanf:"path"`
}

type AuditConfig struct {
	// Type selects the sink: "file" (JSON lines) or "sqlite".
	Type string `koanf:"type"`
	Path string `koanf:"path"`
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

func Load() (*Config, error) {
	k := koanf.New(".")

	// Try to load from config.yaml file first
	if err := k.Load(file.Provider("config.yaml"), yaml.Parser()); err != nil {
		// File not found is OK, we'll use env vars
		if !os.IsNotExist(err) {
			return nil, err
		}
	}

	// Load environment variables (can override file config)
	if err := k.Load(env.Provider("PGW_", ".", func(s string) string {
		return strings.Replace(strings.ToLower(strings.TrimPrefix(s, "PGW_")), "__", ".", -1)
	}), nil); err != nil {
		return nil, err
	}

	// Default values
	if !k.Exists("server.port") {
		k.Set("server.port", 8080)
	}
	if !k.Exists("redis.addr") {
		k.Set("redis.addr", "localhost:6379")
	}
	if !k.Exists("policy.path") {
		k.Set("policy.path", "policies/policy.yaml")
	}
	if !k.Exists("audit.type") {
		k.Set("audit.type", "file")
	}
	if !k.Exists("audit.path") {
		k.Set("audit.path", "logs/audit.log")
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, err
	}

	// Substitute environment variables in the store credential
	cfg.Redis.Password = substituteEnvVars(cfg.Redis.Password)

	return &cfg, nil
}

func substituteEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		// Extract variable name from ${VAR_NAME}
		varName := envVarPattern.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}
