package server

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds server configuration.
type Config struct {
	Addr string
	// MaxAge and IdleTimeout bound the life of a form session.
	MaxAge      time.Duration
	IdleTimeout time.Duration
	// OriginPatterns are the hosts allowed to open WebSocket connections.
	OriginPatterns []string
	// MaxBodyBytes caps the size of a POST /forms payload.
	MaxBodyBytes int64
	Debug        bool
}

// DefaultConfig returns the configuration used when no variable is set.
func DefaultConfig() Config {
	return Config{
		Addr:         ":8080",
		MaxAge:       24 * time.Hour,
		IdleTimeout:  30 * time.Minute,
		MaxBodyBytes: 4 << 20,
	}
}

// LoadConfig reads the configuration from the environment after loading the
// given .env files, or ./.env when none is named. Missing files are ignored.
//
//	JSONFORM_ADDR             listen address, PORT is honored too
//	JSONFORM_SESSION_MAX_AGE  duration, e.g. 24h
//	JSONFORM_SESSION_IDLE     duration, e.g. 30m
//	JSONFORM_ORIGINS          comma separated origin patterns
//	JSONFORM_MAX_BODY         bytes
//	JSONFORM_DEBUG            bool
func LoadConfig(files ...string) Config {
	_ = godotenv.Load(files...)

	cfg := DefaultConfig()
	if port := strings.TrimSpace(os.Getenv("PORT")); port != "" {
		if strings.HasPrefix(port, ":") {
			cfg.Addr = port
		} else {
			cfg.Addr = ":" + port
		}
	}
	if addr := strings.TrimSpace(os.Getenv("JSONFORM_ADDR")); addr != "" {
		cfg.Addr = addr
	}
	cfg.MaxAge = durationEnv("JSONFORM_SESSION_MAX_AGE", cfg.MaxAge)
	cfg.IdleTimeout = durationEnv("JSONFORM_SESSION_IDLE", cfg.IdleTimeout)
	if raw := strings.TrimSpace(os.Getenv("JSONFORM_ORIGINS")); raw != "" {
		for _, origin := range strings.Split(raw, ",") {
			if origin = strings.TrimSpace(origin); origin != "" {
				cfg.OriginPatterns = append(cfg.OriginPatterns, origin)
			}
		}
	}
	if raw := strings.TrimSpace(os.Getenv("JSONFORM_MAX_BODY")); raw != "" {
		if n, err := strconv.ParseInt(raw, 10, 64); err == nil && n > 0 {
			cfg.MaxBodyBytes = n
		}
	}
	if raw := strings.TrimSpace(os.Getenv("JSONFORM_DEBUG")); raw != "" {
		cfg.Debug, _ = strconv.ParseBool(raw)
	}
	return cfg
}

func durationEnv(key string, fallback time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
