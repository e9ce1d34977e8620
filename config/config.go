package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds all runtime configuration, loaded from environment variables.
type Config struct {
	// Server
	Port int

	// Narration service
	NarrationURL     string
	NarrationTimeout time.Duration

	// Kafka intake (disabled when Brokers is empty)
	KafkaBrokers []string
	KafkaTopic   string
	KafkaGroupID string

	// Redis job store (memory fallback when Addr is empty)
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	JobTTL        time.Duration

	// S3 delivery (skipped when Bucket is empty)
	S3Bucket string
	S3Prefix string
	S3Region string
}

// Load reads configuration from environment variables with sane defaults.
func Load() Config {
	return Config{
		Port: envInt("PORT", 8080),

		NarrationURL:     envStr("NARRATION_URL", ""),
		NarrationTimeout: time.Duration(envInt("NARRATION_TIMEOUT_SECONDS", 120)) * time.Second,

		KafkaBrokers: envList("KAFKA_BROKERS"),
		KafkaTopic:   envStr("KAFKA_TOPIC", "video-requests"),
		KafkaGroupID: envStr("KAFKA_GROUP_ID", "snapsold-creation"),

		RedisAddr:     envStr("REDIS_ADDR", ""),
		RedisPassword: envStr("REDIS_PASSWORD", ""),
		RedisDB:       envInt("REDIS_DB", 0),
		JobTTL:        time.Duration(envInt("JOB_TTL_HOURS", 24)) * time.Hour,

		S3Bucket: envStr("S3_BUCKET", ""),
		S3Prefix: envStr("S3_PREFIX", "videos"),
		S3Region: envStr("S3_REGION", ""),
	}
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envList(key string) []string {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	var out []string
	start := 0
	for i := 0; i <= len(v); i++ {
		if i == len(v) || v[i] == ',' {
			if s := v[start:i]; s != "" {
				out = append(out, s)
			}
			start = i + 1
		}
	}
	return out
}
