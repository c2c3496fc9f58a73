package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/chhz0/dispatchr/core"
	"github.com/chhz0/dispatchr/types"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.Policy() != core.OverwriteDuplicates {
		t.Fatalf("default policy = %v", cfg.Policy())
	}
	if cfg.Pricing[types.CustomerGold] != 0.8 {
		t.Fatalf("gold multiplier = %v", cfg.Pricing[types.CustomerGold])
	}
	if cfg.Storage.Backend != "memory" {
		t.Fatalf("backend = %q", cfg.Storage.Backend)
	}
}

func TestLoadYAML(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	path := writeFile(t, dir, "dispatchr.yaml", `
log_level: debug
duplicate_policy: reject
dispatch_timeout: 2s
bonus:
  developer: 0.1
  manager: 0.15
channels: [email, slack]
storage:
  backend: sqlite
  path: /tmp/orders.sqlite
admin_addr: ":9090"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.LogLevel != "debug" || cfg.Policy() != core.RejectDuplicates {
		t.Fatalf("cfg = %+v", cfg)
	}
	if cfg.DispatchTimeout != 2*time.Second {
		t.Fatalf("timeout = %v", cfg.DispatchTimeout)
	}
	if len(cfg.Bonus) != 2 || cfg.Bonus[types.RoleManager] != 0.15 {
		t.Fatalf("bonus = %v, want exactly developer and manager", cfg.Bonus)
	}
	if _, ok := cfg.Bonus[types.RoleDirector]; ok {
		t.Fatal("director must not survive a bonus map that omits it")
	}
	if len(cfg.Channels) != 2 || cfg.Channels[1] != types.ChannelSlack {
		t.Fatalf("channels = %v", cfg.Channels)
	}
	if cfg.Storage.Backend != "sqlite" || cfg.AdminAddr != ":9090" {
		t.Fatalf("cfg = %+v", cfg)
	}
	// 未在文件中出现的字段保留默认值
	if cfg.Pricing[types.CustomerRegular] != 1.0 {
		t.Fatalf("pricing = %v", cfg.Pricing)
	}
}

func TestLoadYAMLReplacesRuleMaps(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	path := writeFile(t, dir, "dispatchr.yaml", `
pricing:
  gold: 0.8
bonus:
  developer: 0.1
  manager: 0.15
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(cfg.Pricing) != 1 || cfg.Pricing[types.CustomerGold] != 0.8 {
		t.Fatalf("pricing = %v, want only gold", cfg.Pricing)
	}
	if len(cfg.Bonus) != 2 {
		t.Fatalf("bonus = %v, want developer and manager only", cfg.Bonus)
	}
	// 文件未设置渠道时保留默认值
	if len(cfg.Channels) != len(Default().Channels) {
		t.Fatalf("channels = %v", cfg.Channels)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	path := writeFile(t, dir, "dispatchr.yaml", "log_level: debug\n")
	t.Setenv("DISPATCHR_LOG_LEVEL", "warn")
	t.Setenv("DISPATCHR_CHANNELS", "sms, push")
	t.Setenv("DISPATCHR_REDIS_DB", "3")
	t.Setenv("DISPATCHR_DISPATCH_TIMEOUT", "250ms")

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.LogLevel != "warn" {
		t.Fatalf("log level = %q, env should win", cfg.LogLevel)
	}
	if len(cfg.Channels) != 2 || cfg.Channels[0] != types.ChannelSMS || cfg.Channels[1] != types.ChannelPush {
		t.Fatalf("channels = %v", cfg.Channels)
	}
	if cfg.Redis.DB != 3 || cfg.DispatchTimeout != 250*time.Millisecond {
		t.Fatalf("cfg = %+v", cfg)
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	writeFile(t, dir, ".env", "DISPATCHR_ADMIN_ADDR=:7070\n")
	t.Cleanup(func() { os.Unsetenv("DISPATCHR_ADMIN_ADDR") })

	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.AdminAddr != ":7070" {
		t.Fatalf("admin addr = %q", cfg.AdminAddr)
	}
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	if _, err := Load(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}

	bad := writeFile(t, dir, "bad.yaml", "duplicate_policy: sometimes\n")
	if _, err := Load(bad); err == nil {
		t.Fatal("expected error for unknown duplicate policy")
	}

	t.Setenv("DISPATCHR_REDIS_DB", "one")
	if _, err := Load(""); err == nil {
		t.Fatal("expected error for non-numeric redis db")
	}
}

func TestNewLogger(t *testing.T) {
	l, err := NewLogger("debug")
	if err != nil {
		t.Fatal(err)
	}
	if !l.Core().Enabled(-1) {
		t.Fatal("debug level should be enabled")
	}
	if _, err := NewLogger("loud"); err == nil {
		t.Fatal("expected error for unknown level")
	}
}
