package config

import (
	"context"
	stderrors "errors"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"github.com/turtacn/oidc-core/pkg/constants"
	"github.com/turtacn/oidc-core/pkg/errors"
	"github.com/turtacn/oidc-core/pkg/logger"
)

// EnvPrefix prefixes every environment override, e.g. OIDC_CORE_REDIS_ADDRESS.
const EnvPrefix = "OIDC_CORE"

// Loader reads the configuration and keeps it current while the file changes.
type Loader struct {
	v      *viper.Viper
	logger logger.Logger

	mu        sync.RWMutex
	current   *Config
	listeners []func(*Config)
}

// NewLoader creates a loader. An empty path searches ./config.yaml and /etc/oidc-core/config.yaml.
func NewLoader(path string, log logger.Logger) *Loader {
	v := viper.New()
	setDefaults(v.SetDefault)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("/etc/oidc-core/")
		v.AddConfigPath(".")
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return &Loader{v: v, logger: log.WithComponent("ConfigLoader")}
}

// Load reads and validates the configuration. A missing config file is not an error.
func (l *Loader) Load() (*Config, error) {
	if err := l.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !stderrors.As(err, &notFound) {
			return nil, errors.WrapError(err, constants.ErrCodeServerError, "failed to read config")
		}
	}

	cfg, err := l.decode()
	if err != nil {
		return nil, err
	}
	l.mu.Lock()
	l.current = cfg
	l.mu.Unlock()
	return cfg, nil
}

func (l *Loader) decode() (*Config, error) {
	var cfg Config
	if err := l.v.Unmarshal(&cfg); err != nil {
		return nil, errors.WrapError(err, constants.ErrCodeServerError, "failed to unmarshal config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Current returns the last successfully loaded configuration.
func (l *Loader) Current() *Config {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.current
}

// OnChange registers a listener for reloaded configurations.
func (l *Loader) OnChange(fn func(*Config)) {
	l.mu.Lock()
	l.listeners = append(l.listeners, fn)
	l.mu.Unlock()
}

// Watch reloads the file on change. Invalid revisions are logged and ignored.
func (l *Loader) Watch() {
	l.v.OnConfigChange(func(e fsnotify.Event) {
		ctx := context.Background()
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		cfg, err := l.decode()
		if err != nil {
			l.logger.Warn(ctx, "config reload rejected", logger.String("file", e.Name), logger.Err(err))
			return
		}

		l.mu.Lock()
		l.current = cfg
		listeners := append([]func(*Config){}, l.listeners...)
		l.mu.Unlock()

		l.logger.Info(ctx, "config reloaded", logger.String("file", e.Name), logger.Int("tenants", len(cfg.Tenants)))
		for _, fn := range listeners {
			fn(cfg)
		}
	})
	l.v.WatchConfig()
}

// LoadConfig loads the configuration from file and environment variables.
func LoadConfig(path string, log logger.Logger) (*Config, error) {
	return NewLoader(path, log).Load()
}
