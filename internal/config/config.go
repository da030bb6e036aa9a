package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Addr          string // ops API bind address
	LogDir        string // logs directory
	LogLevel      string // zap level name; default info
	APIRatePerMin int    // per-IP request cap on the ops API; zero disables

	DatabaseURL string // empty means in-memory repositories

	// Render capture service (browserless-style screenshot endpoint).
	RenderURL      string
	RenderToken    string
	CaptureTimeout time.Duration
	ViewportWidth  int
	ViewportHeight int

	// Artifact storage. Empty endpoint means in-memory artifacts.
	S3Endpoint  string
	S3AccessKey string
	S3SecretKey string
	S3Bucket    string
	S3UseSSL    bool
	S3PublicURL string // public base URL; defaults to endpoint/bucket

	// Notification targets.
	SlackWebhook    string
	KafkaBrokers    []string
	KafkaAlertTopic string

	// Check tuning.
	DiffThresholdPercent float64
	PixelMatchThreshold  float64
	FailureThreshold     int
	VisualInterval       time.Duration
	PingInterval         time.Duration
	ProbeTimeout         time.Duration
	StoreDelay           time.Duration

	// Policy switches (see DESIGN.md for why these exist).
	AdvanceBaselineOnAlert bool
	PingAlertCooldown      time.Duration
}

func FromEnv() Config {
	cfg := Config{
		Addr:                 envStr("ADDR", "127.0.0.1:8080"),
		LogDir:               envStr("LOG_DIR", "logs"),
		LogLevel:             envStr("LOG_LEVEL", "info"),
		APIRatePerMin:        envIntZero("API_RATE_PER_MIN", 120),
		DatabaseURL:          os.Getenv("DATABASE_URL"),
		RenderURL:            os.Getenv("RENDER_URL"),
		RenderToken:          os.Getenv("RENDER_TOKEN"),
		CaptureTimeout:       envDur("CAPTURE_TIMEOUT", 45*time.Second),
		ViewportWidth:        envInt("VIEWPORT_WIDTH", 1366),
		ViewportHeight:       envInt("VIEWPORT_HEIGHT", 768),
		S3Endpoint:           os.Getenv("S3_ENDPOINT"),
		S3AccessKey:          os.Getenv("S3_ACCESS_KEY"),
		S3SecretKey:          os.Getenv("S3_SECRET_KEY"),
		S3Bucket:             envStr("S3_BUCKET", "storewatch"),
		S3UseSSL:             envBool("S3_USE_SSL", true),
		S3PublicURL:          os.Getenv("S3_PUBLIC_URL"),
		SlackWebhook:         os.Getenv("SLACK_WEBHOOK"),
		KafkaAlertTopic:      envStr("KAFKA_ALERT_TOPIC", "storewatch-alerts"),
		DiffThresholdPercent: envFloat("DIFF_THRESHOLD_PERCENT", 5.0),
		PixelMatchThreshold:  envFloat("PIXEL_MATCH_THRESHOLD", 0.1),
		FailureThreshold:     envInt("FAILURE_THRESHOLD", 5),
		VisualInterval:       envDur("VISUAL_INTERVAL", 15*time.Minute),
		PingInterval:         envDur("PING_INTERVAL", 5*time.Minute),
		ProbeTimeout:         envDur("PROBE_TIMEOUT", 10*time.Second),
		StoreDelay:           envDur("STORE_DELAY", 5*time.Second),

		AdvanceBaselineOnAlert: envBool("ADVANCE_BASELINE_ON_ALERT", false),
		PingAlertCooldown:      envDur("PING_ALERT_COOLDOWN", 0),
	}

	if v := strings.TrimSpace(os.Getenv("KAFKA_BROKERS")); v != "" {
		for _, b := range strings.Split(v, ",") {
			if b = strings.TrimSpace(b); b != "" {
				cfg.KafkaBrokers = append(cfg.KafkaBrokers, b)
			}
		}
	}

	return cfg
}

func envStr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return def
}

// envIntZero is envInt but keeps an explicit zero, for on/off knobs.
func envIntZero(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			return n
		}
	}
	return def
}

func envFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f >= 0 {
			return f
		}
	}
	return def
}

func envBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

// envDur accepts Go duration strings ("45s", "15m"). Zero is allowed so
// cooldowns can be switched off explicitly.
func envDur(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d >= 0 {
			return d
		}
	}
	return def
}
