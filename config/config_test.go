package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadCreatesDefaultsWithoutKey(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "")
	path := filepath.Join(t.TempDir(), "ai-hints", "config.toml")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Hint.DailyLimit != 10 {
		t.Fatalf("DailyLimit = %d, want 10", cfg.Hint.DailyLimit)
	}
	if got := strings.Join(cfg.Hotkeys.Request, "+"); got != "BTN_SELECT+BTN_TL" {
		t.Fatalf("Request combo = %s, want BTN_SELECT+BTN_TL", got)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("expected config file at %q: %v", path, err)
	}
	if !strings.Contains(string(data), "[hotkeys]") {
		t.Fatalf("written config lacks [hotkeys] section:\n%s", data)
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
[hint]
provider = "openai"
model = "gpt-4o"
daily_limit = 3
api_key = "from-config"

[hotkeys]
request = ["BTN_MODE", "BTN_SOUTH"]
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config error = %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Hint.Provider != "openai" || cfg.Hint.DailyLimit != 3 {
		t.Fatalf("hint = %+v, want openai/3", cfg.Hint)
	}
	if got := strings.Join(cfg.Hotkeys.View, "+"); got != "BTN_SELECT+BTN_TR" {
		t.Fatalf("View combo = %s, want default BTN_SELECT+BTN_TR", got)
	}
	if cfg.Hint.APIKey != "from-config" || cfg.APIKeySource() != "config" {
		t.Fatalf("api key = %q from %q, want from-config from config", cfg.Hint.APIKey, cfg.APIKeySource())
	}
}

func TestAPIKeyPriority(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(path, []byte("[hint]\napi_key = \"cfg-key\"\n"), 0o600); err != nil {
		t.Fatalf("write config error = %v", err)
	}
	secrets := "# comment\nOTHER=1\nAPI_KEY = secret-key\n"
	if err := os.WriteFile(filepath.Join(dir, ".secrets"), []byte(secrets), 0o600); err != nil {
		t.Fatalf("write secrets error = %v", err)
	}

	t.Setenv("ANTHROPIC_API_KEY", "")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Hint.APIKey != "secret-key" {
		t.Fatalf("APIKey = %q, want secret-key", cfg.Hint.APIKey)
	}

	t.Setenv("ANTHROPIC_API_KEY", "env-key")
	cfg, err = Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Hint.APIKey != "env-key" || cfg.APIKeySource() != "env" {
		t.Fatalf("APIKey = %q (%s), want env-key (env)", cfg.Hint.APIKey, cfg.APIKeySource())
	}
}

func TestSaveNeverWritesKey(t *testing.T) {
	cfg := defaultConfig()
	cfg.path = filepath.Join(t.TempDir(), "config.toml")
	cfg.Hint.APIKey = "sk-secret"

	if err := cfg.Save(); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	data, err := os.ReadFile(cfg.path)
	if err != nil {
		t.Fatalf("read config error = %v", err)
	}
	if strings.Contains(string(data), "sk-secret") {
		t.Fatalf("saved config contains the API key")
	}
	if cfg.Hint.APIKey != "sk-secret" {
		t.Fatalf("Save() mutated the in-memory key")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown provider", func(c *Config) { c.Hint.Provider = "llama" }},
		{"empty request combo", func(c *Config) { c.Hotkeys.Request = nil }},
		{"empty view combo", func(c *Config) { c.Hotkeys.View = []string{} }},
		{"unknown button", func(c *Config) { c.Hotkeys.View = []string{"BTN_SELECT", "BTN_TURBO"} }},
		{"zero render size", func(c *Config) { c.Render.Width = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatalf("Validate() = nil, want error")
			}
		})
	}

	if err := defaultConfig().Validate(); err != nil {
		t.Fatalf("default Validate() error = %v", err)
	}
}

func TestConfigPath(t *testing.T) {
	t.Setenv("AIHINT_CONFIG", "")
	if got := ConfigPath(""); got != DefaultPath {
		t.Fatalf("ConfigPath(\"\") = %s, want %s", got, DefaultPath)
	}
	if got := ConfigPath("/tmp/x.toml"); got != "/tmp/x.toml" {
		t.Fatalf("ConfigPath(arg) = %s, want /tmp/x.toml", got)
	}
	t.Setenv("AIHINT_CONFIG", "/etc/hint.toml")
	if got := ConfigPath("/tmp/x.toml"); got != "/etc/hint.toml" {
		t.Fatalf("ConfigPath with env = %s, want /etc/hint.toml", got)
	}
}
