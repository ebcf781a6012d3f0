package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"
)

const defaultConnectionString = "Host=localhost;Port=5432;Database=ledger_engine_db;Username=postgres;Password=postgres;Timeout=30;CommandTimeout=30"
const defaultHTTPAddr = ":8080"
const defaultChannelID = "LedgerApp"
const defaultChannelKey = "LedgerKey001"
const defaultKafkaTopic = "ledger.events"

type Config struct {
	DatabaseDSN           string
	HTTPAddr              string
	ChannelID             string
	ChannelKey            string
	ChannelKeyHash        string
	LogLevel              string
	LogFormat             string
	TxTimeout             time.Duration
	AutoPostOnApproval    bool
	SchedulerEnabled      bool
	SchedulerHour         int
	SchedulerMinute       int
	SchedulerLocation     *time.Location
	KafkaBrokers          []string
	KafkaTopic            string
	RedisAddr             string
	RedisPassword         string
	ApprovalTemplatesFile string
}

func Load() (Config, error) {
	conn := envOr("DATABASE_DSN", defaultConnectionString)

	txTimeout, err := time.ParseDuration(envOr("DB_TX_TIMEOUT", "15s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse DB_TX_TIMEOUT: %w", err)
	}

	autoPost, err := strconv.ParseBool(envOr("AUTO_POST_ON_APPROVAL", "true"))
	if err != nil {
		return Config{}, fmt.Errorf("parse AUTO_POST_ON_APPROVAL: %w", err)
	}

	schedulerEnabled, err := strconv.ParseBool(envOr("SCHEDULER_ENABLED", "true"))
	if err != nil {
		return Config{}, fmt.Errorf("parse SCHEDULER_ENABLED: %w", err)
	}

	hour, minute, err := parseClock(envOr("SCHEDULER_RUN_AT", "00:05"))
	if err != nil {
		return Config{}, fmt.Errorf("parse SCHEDULER_RUN_AT: %w", err)
	}

	location, err := time.LoadLocation(envOr("SCHEDULER_TIMEZONE", "UTC"))
	if err != nil {
		return Config{}, fmt.Errorf("parse SCHEDULER_TIMEZONE: %w", err)
	}

	channelKeyHash := strings.TrimSpace(os.Getenv("CHANNEL_KEY_HASH"))
	channelKey := strings.TrimSpace(os.Getenv("CHANNEL_KEY"))
	if channelKeyHash == "" && channelKey == "" {
		channelKey = defaultChannelKey
	}

	return Config{
		DatabaseDSN:           normalizeConnectionString(conn),
		HTTPAddr:              envOr("HTTP_ADDR", defaultHTTPAddr),
		ChannelID:             envOr("CHANNEL_ID", defaultChannelID),
		ChannelKey:            channelKey,
		ChannelKeyHash:        channelKeyHash,
		LogLevel:              envOr("LOG_LEVEL", "info"),
		LogFormat:             envOr("LOG_FORMAT", "json"),
		TxTimeout:             txTimeout,
		AutoPostOnApproval:    autoPost,
		SchedulerEnabled:      schedulerEnabled,
		SchedulerHour:         hour,
		SchedulerMinute:       minute,
		SchedulerLocation:     location,
		KafkaBrokers:          splitList(os.Getenv("KAFKA_BROKERS")),
		KafkaTopic:            envOr("KAFKA_TOPIC", defaultKafkaTopic),
		RedisAddr:             strings.TrimSpace(os.Getenv("REDIS_ADDR")),
		RedisPassword:         os.Getenv("REDIS_PASSWORD"),
		ApprovalTemplatesFile: strings.TrimSpace(os.Getenv("APPROVAL_TEMPLATES_FILE")),
	}, nil
}

func envOr(key, fallback string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	return v
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func parseClock(raw string) (int, int, error) {
	t, err := time.Parse("15:04", strings.TrimSpace(raw))
	if err != nil {
		return 0, 0, fmt.Errorf("expected HH:MM, got %q", raw)
	}
	return t.Hour(), t.Minute(), nil
}

// normalizeConnectionString accepts both libpq key=value DSNs and the
// semicolon separated form (Host=...;Database=...) used by ops tooling.
func normalizeConnectionString(raw string) string {
	if strings.HasPrefix(raw, "postgres://") || strings.HasPrefix(raw, "postgresql://") {
		return raw
	}

	parts := strings.Split(raw, ";")
	out := make([]string, 0, len(parts))
	hasSSLMode := false

	for _, part := range parts {
		p := strings.TrimSpace(part)
		if p == "" {
			continue
		}

		kv := strings.SplitN(p, "=", 2)
		if len(kv) != 2 {
			continue
		}

		key := strings.ToLower(strings.TrimSpace(kv[0]))
		val := strings.TrimSpace(kv[1])

		switch key {
		case "database":
			key = "dbname"
		case "username":
			key = "user"
		case "timeout", "connect timeout":
			key = "connect_timeout"
		case "commandtimeout", "command timeout":
			key, val = "statement_timeout", val+"s"
		case "sslmode":
			hasSSLMode = true
		}
		out = append(out, key+"="+val)
	}

	if len(out) == 0 {
		return raw
	}

	if !hasSSLMode {
		out = append(out, "sslmode=disable")
	}

	return strings.Join(out, " ")
}
