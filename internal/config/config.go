package config

import (
	"os"
	"strings"
)

type Config struct {
	Addr         string
	DatabaseURL  string
	KafkaBrokers []string
	KafkaTopic   string
	S3Bucket     string
	S3Prefix     string
	JWTSecret    string
	SettingsPath string
	LogLevel     string
}

const (
	defaultAddr       = ":8090"
	defaultAlertTopic = "fleetrank.alerts"
	defaultLogLevel   = "info"
)

// Load reads service configuration from the environment. Everything beyond
// the listen address is optional: without DATABASE_URL the in-memory registry
// is used, without brokers alerts stay local, without a bucket exports are
// not archived.
func Load() Config {
	return Config{
		Addr:         getEnv("FLEETRANK_ADDR", defaultAddr),
		DatabaseURL:  firstNonEmpty(os.Getenv("FLEETRANK_DATABASE_URL"), os.Getenv("DATABASE_URL")),
		KafkaBrokers: splitList(os.Getenv("FLEETRANK_KAFKA_BROKERS")),
		KafkaTopic:   getEnv("FLEETRANK_KAFKA_TOPIC", defaultAlertTopic),
		S3Bucket:     os.Getenv("FLEETRANK_S3_BUCKET"),
		S3Prefix:     os.Getenv("FLEETRANK_S3_PREFIX"),
		JWTSecret:    os.Getenv("FLEETRANK_JWT_SECRET"),
		SettingsPath: os.Getenv("FLEETRANK_SETTINGS_PATH"),
		LogLevel:     getEnv("FLEETRANK_LOG_LEVEL", defaultLogLevel),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func splitList(v string) []string {
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
