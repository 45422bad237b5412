package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeTemp(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("writing temp file: %v", err)
	}
	return path
}

func TestLoad(t *testing.T) {
	yaml := `
user: appuser
password: secret
schema: mydb
ssl: true
auth_mechanism: PLAIN
connect_timeout: 5s
endpoints:
  - host: primary.example.com
    port: 33060
  - host: secondary.example.com
    port: 33060
`
	path := writeTemp(t, yaml)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.User != "appuser" {
		t.Errorf("expected user appuser, got %s", cfg.User)
	}
	if !cfg.SSL {
		t.Error("expected ssl true")
	}
	if cfg.ConnectTimeout != 5*time.Second {
		t.Errorf("expected connect_timeout 5s, got %v", cfg.ConnectTimeout)
	}
	if len(cfg.Endpoints) != 2 {
		t.Fatalf("expected 2 endpoints, got %d", len(cfg.Endpoints))
	}
	if cfg.Endpoints[0].Host != "primary.example.com" {
		t.Errorf("expected first endpoint primary.example.com, got %s", cfg.Endpoints[0].Host)
	}
}

func TestLoadEnvSubstitution(t *testing.T) {
	os.Setenv("TEST_XPROTO_PASSWORD", "envpass")
	defer os.Unsetenv("TEST_XPROTO_PASSWORD")

	yaml := `
user: appuser
password: ${TEST_XPROTO_PASSWORD}
endpoints:
  - host: localhost
    port: 33060
`
	path := writeTemp(t, yaml)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Password != "envpass" {
		t.Errorf("expected password envpass, got %s", cfg.Password)
	}
}

func TestLoadValidationErrors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{
			name: "no endpoints",
			yaml: `
user: appuser
endpoints: []
`,
		},
		{
			name: "endpoint missing port",
			yaml: `
user: appuser
endpoints:
  - host: localhost
`,
		},
		{
			name: "missing user",
			yaml: `
endpoints:
  - host: localhost
    port: 33060
`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeTemp(t, tt.yaml)
			_, err := Load(path)
			if err == nil {
				t.Error("expected validation error, got nil")
			}
		})
	}
}

func TestApplyDefaults(t *testing.T) {
	yaml := `
user: appuser
endpoints:
  - host: localhost
    port: 33060
`
	path := writeTemp(t, yaml)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.AuthMechanism != "PLAIN" {
		t.Errorf("expected default auth_mechanism PLAIN, got %s", cfg.AuthMechanism)
	}
	if cfg.ConnectTimeout != 10*time.Second {
		t.Errorf("expected default connect_timeout 10s, got %v", cfg.ConnectTimeout)
	}
}

func TestRedacted(t *testing.T) {
	cfg := Config{User: "u", Password: "secret"}
	r := cfg.Redacted()
	if r.Password == "secret" {
		t.Error("expected password to be redacted")
	}
	if cfg.Password != "secret" {
		t.Error("Redacted should not mutate the original")
	}
}

func TestSessionPropertiesImplicitPriority(t *testing.T) {
	yaml := `
user: appuser
endpoints:
  - host: a.example.com
    port: 33060
  - host: b.example.com
    port: 33060
`
	path := writeTemp(t, yaml)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	props := cfg.SessionProperties()
	if len(props.Endpoints) != 2 {
		t.Fatalf("expected 2 endpoints, got %d", len(props.Endpoints))
	}
	if props.Endpoints[0].Priority != nil {
		t.Error("expected implicit (nil) priority")
	}
}

func TestWatcherReloadsOnWrite(t *testing.T) {
	yaml := `
user: appuser
endpoints:
  - host: localhost
    port: 33060
`
	path := writeTemp(t, yaml)

	reloaded := make(chan *Config, 1)
	w, err := NewWatcher(path, func(c *Config) { reloaded <- c })
	if err != nil {
		t.Fatalf("NewWatcher failed: %v", err)
	}
	defer w.Stop()

	updated := `
user: changeduser
endpoints:
  - host: localhost
    port: 33060
`
	if err := os.WriteFile(path, []byte(updated), 0644); err != nil {
		t.Fatalf("writing updated config: %v", err)
	}

	select {
	case cfg := <-reloaded:
		if cfg.User != "changeduser" {
			t.Errorf("expected reloaded user changeduser, got %s", cfg.User)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for config reload")
	}
}
