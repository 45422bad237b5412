// Package config loads the YAML configuration consumed by cmd/xproto-ping:
// the candidate endpoint list, credentials, and TLS options that become a
// xproto.SessionProperties. Adapted from the teacher's internal/config
// (env-substituted YAML plus an fsnotify-driven hot-reload watcher),
// replaced here from per-tenant pool settings to a single connection's
// routing and auth configuration.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"regexp"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"
)

// Config is the top-level CLI configuration.
type Config struct {
	User           string            `yaml:"user"`
	Password       string            `yaml:"password"`
	Schema         string            `yaml:"schema"`
	SSL            bool              `yaml:"ssl"`
	SSLOptions     map[string]string `yaml:"ssl_options"`
	AuthMechanism  string            `yaml:"auth_mechanism"`
	Endpoints      []EndpointConfig  `yaml:"endpoints"`
	ConnectTimeout time.Duration     `yaml:"connect_timeout"`
	InspectHTTP    string            `yaml:"inspect_http"` // bind address; empty disables
}

// EndpointConfig is one YAML-level router candidate. Priority is a pointer
// so an absent key (implicit priority, ordered by list position) is
// distinguishable from an explicit 0.
type EndpointConfig struct {
	Host       string `yaml:"host"`
	Port       uint16 `yaml:"port"`
	SocketPath string `yaml:"socket_path"`
	Priority   *uint8 `yaml:"priority,omitempty"`
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// substituteEnvVars replaces ${VAR_NAME} patterns with environment variable
// values, leaving the pattern untouched when the variable is unset.
func substituteEnvVars(data []byte) []byte {
	return envVarPattern.ReplaceAllFunc(data, func(match []byte) []byte {
		varName := envVarPattern.FindSubmatch(match)[1]
		if val, ok := os.LookupEnv(string(varName)); ok {
			return []byte(val)
		}
		return match
	})
}

// Load reads and parses a YAML config file with env var substitution.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	data = substituteEnvVars(data)

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	applyDefaults(cfg)
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.AuthMechanism == "" {
		cfg.AuthMechanism = "PLAIN"
	}
	if cfg.ConnectTimeout == 0 {
		cfg.ConnectTimeout = 10 * time.Second
	}
}

func validate(cfg *Config) error {
	if len(cfg.Endpoints) == 0 {
		return fmt.Errorf("at least one endpoint is required")
	}
	for i, ep := range cfg.Endpoints {
		if ep.Host == "" && ep.SocketPath == "" {
			return fmt.Errorf("endpoint %d: host or socket_path is required", i)
		}
		if ep.SocketPath == "" && ep.Port == 0 {
			return fmt.Errorf("endpoint %d: port is required for TCP endpoints", i)
		}
	}
	if cfg.User == "" {
		return fmt.Errorf("user is required")
	}
	return nil
}

// Redacted returns a copy of the Config with the password masked, for safe
// logging.
func (c Config) Redacted() Config {
	r := c
	if r.Password != "" {
		r.Password = "***REDACTED***"
	}
	return r
}

// Watcher watches the config file for changes and invokes the callback with
// the newly loaded Config. Grounded on the teacher's config.Watcher:
// fsnotify plus a debounce timer to coalesce editor save bursts.
type Watcher struct {
	path     string
	callback func(*Config)
	watcher  *fsnotify.Watcher
	mu       sync.Mutex
	stopCh   chan struct{}
}

// NewWatcher creates a new config file watcher.
func NewWatcher(path string, callback func(*Config)) (*Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating file watcher: %w", err)
	}

	if err := w.Add(path); err != nil {
		w.Close()
		return nil, fmt.Errorf("watching config file: %w", err)
	}

	cw := &Watcher{
		path:     path,
		callback: callback,
		watcher:  w,
		stopCh:   make(chan struct{}),
	}

	go cw.run()
	return cw, nil
}

func (cw *Watcher) run() {
	var debounce *time.Timer
	for {
		select {
		case event, ok := <-cw.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
				if debounce != nil {
					debounce.Stop()
				}
				debounce = time.AfterFunc(500*time.Millisecond, cw.reload)
			}
		case err, ok := <-cw.watcher.Errors:
			if !ok {
				return
			}
			slog.Warn("config watcher error", "err", err)
		case <-cw.stopCh:
			return
		}
	}
}

func (cw *Watcher) reload() {
	cw.mu.Lock()
	defer cw.mu.Unlock()

	cfg, err := Load(cw.path)
	if err != nil {
		slog.Warn("config hot-reload failed", "path", cw.path, "err", err)
		return
	}

	slog.Info("config reloaded", "path", cw.path)
	cw.callback(cfg)
}

// Stop stops the config watcher.
func (cw *Watcher) Stop() error {
	close(cw.stopCh)
	return cw.watcher.Close()
}
