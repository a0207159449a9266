package config

import (
	"os"
	"testing"
	"time"
)

func TestGetEnvWithDefault(t *testing.T) {
	const key = "TEST_APP_PORT"

	// 环境变量未设置时，应该返回默认值
	_ = os.Unsetenv(key)
	if got := getEnv(key, "9000"); got != "9000" {
		t.Fatalf("getEnv(%q) = %q, want %q", key, got, "9000")
	}

	// 环境变量设置后，应优先返回环境变量
	if err := os.Setenv(key, "8080"); err != nil {
		t.Fatalf("Setenv error: %v", err)
	}
	defer func() { _ = os.Unsetenv(key) }()
	if got := getEnv(key, "9000"); got != "8080" {
		t.Fatalf("getEnv(%q) = %q, want %q", key, got, "8080")
	}
}

func TestDurationAndIntEnvFallBackOnGarbage(t *testing.T) {
	_ = os.Setenv("TEST_REFRESH_INTERVAL", "not-a-duration")
	_ = os.Setenv("TEST_KEEP_DAYS", "seven")
	defer func() {
		_ = os.Unsetenv("TEST_REFRESH_INTERVAL")
		_ = os.Unsetenv("TEST_KEEP_DAYS")
	}()

	if got := getDurationEnv("TEST_REFRESH_INTERVAL", 10*time.Minute); got != 10*time.Minute {
		t.Fatalf("garbage duration should fall back to default, got %s", got)
	}
	if got := getIntEnv("TEST_KEEP_DAYS", 7); got != 7 {
		t.Fatalf("garbage int should fall back to default, got %d", got)
	}

	_ = os.Setenv("TEST_REFRESH_INTERVAL", "5m")
	if got := getDurationEnv("TEST_REFRESH_INTERVAL", 10*time.Minute); got != 5*time.Minute {
		t.Fatalf("duration env not honored: %s", got)
	}
}

func TestLoadReadsAuthAndPorts(t *testing.T) {
	_ = os.Setenv("APP_PORT", "1234")
	_ = os.Setenv("BASIC_AUTH_USER", "user")
	_ = os.Setenv("BASIC_AUTH_PASS", "pass")
	_ = os.Unsetenv("REFRESH_INTERVAL")
	defer func() {
		_ = os.Unsetenv("APP_PORT")
		_ = os.Unsetenv("BASIC_AUTH_USER")
		_ = os.Unsetenv("BASIC_AUTH_PASS")
	}()

	cfg := Load()
	if cfg.AppPort != "1234" {
		t.Fatalf("AppPort = %q, want %q", cfg.AppPort, "1234")
	}
	if cfg.BasicAuthUser != "user" || cfg.BasicAuthPass != "pass" {
		t.Fatalf("basic auth not loaded: %+v", cfg)
	}
	if cfg.RefreshInterval != 10*time.Minute {
		t.Fatalf("default interval = %s, want 10m", cfg.RefreshInterval)
	}
}
