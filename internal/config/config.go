package config

import (
	"bufio"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Sink names accepted in EMIT_SINKS
const (
	SinkDB      = "db"
	SinkNATS    = "nats"
	SinkMetrics = "metrics"
)

type Config struct {
	// NATS Configuration
	NatsURL     string
	Stream      string
	Subject     string
	Durable     string
	MaxMsgs     int
	MaxAge      time.Duration
	Concurrency int

	// HTTP Configuration
	HTTPAddr string

	// Database Configuration
	DBDriver string
	DBPath   string

	// Emission Configuration
	EmitSubjectPrefix string
	EmitSinks         []string

	// Logging Configuration
	LogLevel  string
	LogFormat string

	// Per-model default rules
	RulesFile string
}

func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := loadDotEnv(envFile); err != nil {
			slog.Warn("Could not load env file", "file", envFile, "error", err)
		} else {
			slog.Info("Environment loaded", "file", envFile)
		}
	}

	return &Config{
		NatsURL:           getEnv("NATS_URL", "nats://127.0.0.1:4222"),
		Stream:            getEnv("STREAM_NAME", "SCORE"),
		Subject:           getEnv("SUBJECT", "scoring.request.>"),
		Durable:           getEnv("QUEUE_DURABLE", "score-wq"),
		MaxMsgs:           getEnvInt("QUEUE_MAX_MSGS", 2000),
		MaxAge:            getEnvDuration("QUEUE_MAX_AGE", "30s"),
		Concurrency:       getEnvInt("WORKER_CONCURRENCY", 2),
		HTTPAddr:          getEnv("HTTP_ADDR", ":8081"),
		DBDriver:          getEnv("DB_DRIVER", "sqlite3"),
		DBPath:            getEnv("DB_PATH", "data/scoring.sqlite"),
		EmitSubjectPrefix: getEnv("EMIT_SUBJECT_PREFIX", "scoring.emit"),
		EmitSinks:         getEnvList("EMIT_SINKS", "db,metrics"),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		LogFormat:         getEnv("LOG_FORMAT", "json"),
		RulesFile:         getEnv("RULES_FILE", ""),
	}, nil
}

// HasSink reports whether name is listed in EmitSinks.
func (c *Config) HasSink(name string) bool {
	for _, s := range c.EmitSinks {
		if s == name {
			return true
		}
	}
	return false
}

func loadDotEnv(filename string) error {
	file, err := os.Open(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) == 2 {
			key := strings.TrimSpace(parts[0])
			value := strings.TrimSpace(parts[1])
			os.Setenv(key, value)
		}
	}
	return scanner.Err()
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvDuration(key, defaultVal string) time.Duration {
	val := getEnv(key, defaultVal)
	if d, err := time.ParseDuration(val); err == nil {
		return d
	}
	d, _ := time.ParseDuration(defaultVal)
	return d
}

func getEnvList(key, defaultVal string) []string {
	var out []string
	for _, part := range strings.Split(getEnv(key, defaultVal), ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, strings.ToLower(p))
		}
	}
	return out
}
