package core

import (
	"context"
	"fmt"
	"strings"

	"github.com/goliatone/go-config/cfgx"
	"github.com/goliatone/go-config/config"
	glog "github.com/goliatone/go-logger/glog"
	opts "github.com/goliatone/go-options"
)

type ConfigProvider interface {
	Load(ctx context.Context, defaults Config) (Config, error)
}

type RawConfigLoader interface {
	LoadRaw(ctx context.Context) (map[string]any, error)
}

type OptionsResolver interface {
	Resolve(defaults Config, loaded Config, runtime Config) (Config, error)
}

// ResolveConfig loads the provider layer and merges it between the defaults
// and the caller supplied runtime layer.
func ResolveConfig(
	ctx context.Context,
	provider ConfigProvider,
	resolver OptionsResolver,
	runtime Config,
) (Config, error) {
	if provider == nil {
		provider = NewCfgxConfigProvider(nil)
	}
	if resolver == nil {
		resolver = GoOptionsResolver{}
	}
	defaults := DefaultConfig()
	loaded, err := provider.Load(ctx, defaults)
	if err != nil {
		return Config{}, err
	}
	return resolver.Resolve(defaults, loaded, runtime)
}

type StaticConfigLoader struct {
	Values map[string]any
}

func (l StaticConfigLoader) LoadRaw(context.Context) (map[string]any, error) {
	if len(l.Values) == 0 {
		return map[string]any{}, nil
	}
	out := make(map[string]any, len(l.Values))
	for key, value := range l.Values {
		out[key] = value
	}
	return out, nil
}

// EnvConfigLoader reads PREFIX_* variables through the go-config env
// provider. Nesting uses a double underscore, so ISSUESYNC_STORE__DRIVER
// sets store.driver.
type EnvConfigLoader struct {
	Prefix    string
	Delimiter string
	Logger    Logger
}

func NewEnvConfigLoader(prefix string) EnvConfigLoader {
	return EnvConfigLoader{Prefix: prefix, Delimiter: DefaultEnvDelimiter}
}

const DefaultEnvDelimiter = "__"

func (l EnvConfigLoader) LoadRaw(ctx context.Context) (map[string]any, error) {
	prefix := strings.ToUpper(strings.TrimSpace(l.Prefix))
	if prefix != "" && !strings.HasSuffix(prefix, "_") {
		prefix += "_"
	}
	delim := l.Delimiter
	if strings.TrimSpace(delim) == "" {
		delim = DefaultEnvDelimiter
	}
	logger := l.Logger
	if logger == nil {
		logger = glog.Nop()
	}

	container := config.New(DefaultConfig()).
		WithValidation(false).
		WithLogger(configLogger{logger: logger}).
		WithProvider(config.EnvProvider[Config](prefix, delim))
	if err := container.Load(ctx); err != nil {
		return nil, err
	}
	return container.K.Raw(), nil
}

// configLogger adapts a glog logger to the go-config logger contract.
type configLogger struct {
	logger Logger
}

func (l configLogger) Debug(msg string, args ...any) { l.logger.Debug(msg, args...) }

func (l configLogger) Info(msg string, args ...any) { l.logger.Info(msg, args...) }

func (l configLogger) Error(msg string, args ...any) { l.logger.Error(msg, args...) }

type CfgxConfigProvider struct {
	Loader RawConfigLoader
}

func NewCfgxConfigProvider(loader RawConfigLoader) *CfgxConfigProvider {
	return &CfgxConfigProvider{Loader: loader}
}

func (p *CfgxConfigProvider) Load(ctx context.Context, defaults Config) (Config, error) {
	if p == nil {
		return defaults, nil
	}
	loader := p.Loader
	if loader == nil {
		loader = StaticConfigLoader{}
	}
	raw, err := loader.LoadRaw(ctx)
	if err != nil {
		return Config{}, err
	}
	cfg, err := cfgx.Build[Config](raw,
		cfgx.WithDefaults(defaults),
		cfgx.WithValidator[Config]((*Config).Validate),
	)
	if err != nil {
		return Config{}, err
	}
	return cfg, nil
}

type GoOptionsResolver struct{}

func (GoOptionsResolver) Resolve(defaults Config, loaded Config, runtime Config) (Config, error) {
	stack, err := opts.NewStack(
		opts.NewLayer(
			opts.NewScope("defaults", 0),
			configToLayerMap(defaults, true),
			opts.WithSnapshotID[map[string]any]("defaults"),
		),
		opts.NewLayer(
			opts.NewScope("config", 10),
			configToLayerMap(loaded, false),
			opts.WithSnapshotID[map[string]any]("config"),
		),
		opts.NewLayer(
			opts.NewScope("runtime", 20),
			configToLayerMap(runtime, false),
			opts.WithSnapshotID[map[string]any]("runtime"),
		),
	)
	if err != nil {
		return Config{}, fmt.Errorf("core: options stack build failed: %w", err)
	}
	merged, err := stack.Merge()
	if err != nil {
		return Config{}, fmt.Errorf("core: options merge failed: %w", err)
	}
	resolved, err := cfgx.Build[Config](merged.Value,
		cfgx.WithDefaults(defaults),
		cfgx.WithValidator[Config]((*Config).Validate),
	)
	if err != nil {
		return Config{}, err
	}
	if err := resolved.Validate(); err != nil {
		return Config{}, err
	}
	return resolved, nil
}

func configToLayerMap(cfg Config, includeZero bool) map[string]any {
	layer := map[string]any{}
	if includeZero || strings.TrimSpace(cfg.ServiceName) != "" {
		layer["service_name"] = cfg.ServiceName
	}
	if includeZero || strings.TrimSpace(cfg.ListenAddr) != "" {
		layer["listen_addr"] = cfg.ListenAddr
	}

	webhook := map[string]any{}
	if includeZero || strings.TrimSpace(cfg.Webhook.PathMarker) != "" {
		webhook["path_marker"] = cfg.Webhook.PathMarker
	}
	if includeZero || cfg.Webhook.ValidateBeforeProcess {
		webhook["validate_before_process"] = cfg.Webhook.ValidateBeforeProcess
	}
	if len(webhook) > 0 {
		layer["webhook"] = webhook
	}

	store := map[string]any{}
	if includeZero || strings.TrimSpace(cfg.Store.Driver) != "" {
		store["driver"] = cfg.Store.Driver
	}
	if includeZero || strings.TrimSpace(cfg.Store.DSN) != "" {
		store["dsn"] = cfg.Store.DSN
	}
	if includeZero || cfg.Store.ProjectCacheTTLSeconds > 0 {
		store["project_cache_ttl_seconds"] = cfg.Store.ProjectCacheTTLSeconds
	}
	if len(store) > 0 {
		layer["store"] = store
	}
	return layer
}
