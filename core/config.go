package core

import (
	"fmt"
	"strings"
)

const (
	StoreDriverMemory   = "memory"
	StoreDriverPostgres = "postgres"
	StoreDriverSQLite   = "sqlite"

	DefaultWebhookPathMarker = "/webhook/"
)

type WebhookConfig struct {
	// PathMarker is the literal path segment preceding the webhook type token.
	PathMarker string `koanf:"path_marker" mapstructure:"path_marker"`
	// ValidateBeforeProcess rejects deliveries failing the advisory validator
	// before the processor runs. Off keeps process unconditional.
	ValidateBeforeProcess bool `koanf:"validate_before_process" mapstructure:"validate_before_process"`
}

type StoreConfig struct {
	Driver                 string `koanf:"driver" mapstructure:"driver"`
	DSN                    string `koanf:"dsn" mapstructure:"dsn"`
	ProjectCacheTTLSeconds int    `koanf:"project_cache_ttl_seconds" mapstructure:"project_cache_ttl_seconds"`
}

type Config struct {
	ServiceName string        `koanf:"service_name" mapstructure:"service_name"`
	ListenAddr  string        `koanf:"listen_addr" mapstructure:"listen_addr"`
	Webhook     WebhookConfig `koanf:"webhook" mapstructure:"webhook"`
	Store       StoreConfig   `koanf:"store" mapstructure:"store"`
}

func DefaultConfig() Config {
	return Config{
		ServiceName: "issuesync",
		ListenAddr:  ":8080",
		Webhook: WebhookConfig{
			PathMarker: DefaultWebhookPathMarker,
		},
		Store: StoreConfig{
			Driver:                 StoreDriverMemory,
			ProjectCacheTTLSeconds: 60,
		},
	}
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.ServiceName) == "" {
		return fmt.Errorf("core: service_name is required")
	}
	marker := strings.TrimSpace(c.Webhook.PathMarker)
	if marker == "" || !strings.HasPrefix(marker, "/") || !strings.HasSuffix(marker, "/") || marker == "/" {
		return fmt.Errorf("core: webhook.path_marker must look like /segment/, got %q", c.Webhook.PathMarker)
	}
	switch strings.ToLower(strings.TrimSpace(c.Store.Driver)) {
	case StoreDriverMemory:
	case StoreDriverPostgres, StoreDriverSQLite:
		if strings.TrimSpace(c.Store.DSN) == "" {
			return fmt.Errorf("core: store.dsn is required for driver %q", c.Store.Driver)
		}
	default:
		return fmt.Errorf("core: unsupported store.driver %q", c.Store.Driver)
	}
	if c.Store.ProjectCacheTTLSeconds < 0 {
		return fmt.Errorf("core: store.project_cache_ttl_seconds must not be negative")
	}
	return nil
}
