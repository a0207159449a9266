package config

import (
	"log"
	"os"
	"strconv"
	"time"
)

type Config struct {
	AppPort string
	DataDir string

	PostgresDSN string
	RedisAddr   string

	// RebangToken 为空时使用站方前端自带的公共令牌
	RebangToken string
	SourcesFile string

	RefreshInterval time.Duration
	RefreshJitter   time.Duration
	FetchTimeout    time.Duration
	ShutdownGrace   time.Duration

	MaxFilesPerBucket int
	KeepDays          int

	// BasicAuthUser 为空时接口不做认证
	BasicAuthUser string
	BasicAuthPass string
}

func Load() *Config {
	cfg := &Config{
		AppPort: getEnv("APP_PORT", "9000"),
		DataDir: getEnv("DATA_DIR", "./data"),

		PostgresDSN: getEnv("POSTGRES_DSN", ""),
		RedisAddr:   getEnv("REDIS_ADDR", ""),

		RebangToken: getEnv("REBANG_TOKEN", ""),
		SourcesFile: getEnv("SOURCES_FILE", ""),

		RefreshInterval: getDurationEnv("REFRESH_INTERVAL", 10*time.Minute),
		RefreshJitter:   getDurationEnv("REFRESH_JITTER", 90*time.Second),
		FetchTimeout:    getDurationEnv("FETCH_TIMEOUT", 20*time.Second),
		ShutdownGrace:   getDurationEnv("SHUTDOWN_GRACE", 10*time.Second),

		MaxFilesPerBucket: getIntEnv("MAX_FILES_PER_BUCKET", 20),
		KeepDays:          getIntEnv("KEEP_DAYS", 7),

		BasicAuthUser: getEnv("BASIC_AUTH_USER", ""),
		BasicAuthPass: getEnv("BASIC_AUTH_PASS", ""),
	}

	log.Printf("config loaded: port=%s data=%s interval=%s jitter=%s keep=%dd",
		cfg.AppPort, cfg.DataDir, cfg.RefreshInterval, cfg.RefreshJitter, cfg.KeepDays)
	return cfg
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getIntEnv(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("warn: %s=%q is not a number, using %d", key, v, def)
		return def
	}
	return n
}

func getDurationEnv(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Printf("warn: %s=%q is not a duration, using %s", key, v, def)
		return def
	}
	return d
}
