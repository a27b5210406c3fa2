package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("写入配置文件失败: %v", err)
	}
	return path
}

func TestLoad_Defaults(t *testing.T) {
	path := writeConfig(t, "handoff:\n  secret: test-secret-key-for-unit-testing\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load 应成功: %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("期望 port=8080，实际=%d", cfg.Server.Port)
	}
	if cfg.Deck.SettleDelay != 320*time.Millisecond {
		t.Errorf("期望 settle_delay=320ms，实际=%v", cfg.Deck.SettleDelay)
	}
	if cfg.Event.Label != "5590-check-in" {
		t.Errorf("期望 event.label=5590-check-in，实际=%s", cfg.Event.Label)
	}
	if cfg.Geocoder.Zoom != 16 {
		t.Errorf("期望 geocoder.zoom=16，实际=%d", cfg.Geocoder.Zoom)
	}
	if cfg.Remote.Enabled() {
		t.Error("默认不应启用远端记录")
	}
}

func TestLoad_EnvOverride(t *testing.T) {
	path := writeConfig(t, "handoff:\n  secret: test-secret-key-for-unit-testing\n")
	t.Setenv("CHECKIN_SERVER_PORT", "9090")
	t.Setenv("CHECKIN_REMOTE_DRIVER", "rest")
	t.Setenv("CHECKIN_REMOTE_URL", "https://example.test")
	t.Setenv("CHECKIN_REMOTE_PUBLIC_KEY", "anon")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load 应成功: %v", err)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("期望 port=9090，实际=%d", cfg.Server.Port)
	}
	if !cfg.Remote.Enabled() {
		t.Error("url + public_key 齐全时应启用 rest 远端记录")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{"合法配置", func(c *Config) {}, false},
		{"缺少 secret", func(c *Config) { c.Handoff.Secret = "" }, true},
		{"secret 过短", func(c *Config) { c.Handoff.Secret = "short" }, true},
		{"端口越界", func(c *Config) { c.Server.Port = 70000 }, true},
		{"未知驱动", func(c *Config) { c.Remote.Driver = "mongo" }, true},
		{"负的 settle", func(c *Config) { c.Deck.SettleDelay = -time.Second }, true},
		{"回收间隔为 0", func(c *Config) { c.Session.SweepInterval = 0 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &Config{
				Server:  ServerConfig{Port: 8080},
				Handoff: HandoffConfig{Secret: "test-secret-key-for-unit-testing"},
				Session: SessionConfig{SweepInterval: time.Minute},
			}
			tt.mutate(c)
			err := c.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() err=%v, wantErr=%v", err, tt.wantErr)
			}
		})
	}
}

func TestRemoteConfig_Enabled(t *testing.T) {
	if (&RemoteConfig{Driver: RemoteDriverREST, URL: "https://x"}).Enabled() {
		t.Error("缺少 public_key 时不应启用")
	}
	if !(&RemoteConfig{Driver: RemoteDriverPostgres}).Enabled() {
		t.Error("postgres 驱动应启用")
	}
}
