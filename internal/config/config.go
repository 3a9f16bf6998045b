package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type DB struct {
	URL  string // full connection string; wins over the individual parts
	User string
	Pass string
	Host string
	Port string
	Name string
}

type NSQ struct {
	NsqdTCPAddr    string // e.g. nsqd:4150
	LookupHTTPAddr string // e.g. http://nsqlookupd:4161
	EventsTopic    string // event log topic
	Channel        string // consumer group channel
	MaxConnectTry  int    // bounded reconnect attempts to nsqd
}

type Delivery struct {
	SignatureHeader string        // HTTP header carrying the payload signature
	FirstTimeout    time.Duration // timeout for first-pass deliveries
	RetryTimeout    time.Duration // timeout for scheduled retries
	MaxAttempts     int           // total attempt budget per chain
}

type Retry struct {
	PollInterval time.Duration // due-task poll interval
	BatchSize    int           // due tasks claimed per poll
}

type Reconcile struct {
	Interval time.Duration // sweep interval for unlogged events
	MinAge   time.Duration // events younger than this are left alone
}

type Config struct {
	AppName        string
	HTTPPort       string // gateway listen address, e.g. :3000
	WorkerHTTPPort string // dispatcher health/metrics address, e.g. :4000
	DB             DB
	NSQ            NSQ
	Delivery       Delivery
	Retry          Retry
	Reconcile      Reconcile
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getenvDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

// Load reads .env if present, then builds the config from the environment.
func Load() Config {
	_ = godotenv.Load()
	return FromEnv()
}

func FromEnv() Config {
	return Config{
		AppName:        getenv("APP_NAME", "eventpulse"),
		HTTPPort:       getenv("HTTP_PORT", ":3000"),
		WorkerHTTPPort: getenv("WORKER_HTTP_PORT", ":4000"),
		DB: DB{
			URL:  getenv("DATABASE_URL", ""),
			User: getenv("DB_USER", "postgres"),
			Pass: getenv("DB_PASS", "postgres"),
			Host: getenv("DB_HOST", "postgres"),
			Port: getenv("DB_PORT", "5432"),
			Name: getenv("DB_NAME", "eventpulse"),
		},
		NSQ: NSQ{
			NsqdTCPAddr:    getenv("NSQD_TCP_ADDR", "nsqd:4150"),
			LookupHTTPAddr: getenv("NSQ_LOOKUP_HTTP_ADDR", "http://nsqlookupd:4161"),
			EventsTopic:    getenv("NSQ_EVENTS_TOPIC", "events"),
			Channel:        getenv("NSQ_CHANNEL", "dispatchers"),
			MaxConnectTry:  getenvInt("NSQ_MAX_CONNECT_ATTEMPTS", 5),
		},
		Delivery: Delivery{
			SignatureHeader: getenv("WEBHOOK_SIGNATURE_HEADER", "X-EventPulse-Signature"),
			FirstTimeout:    getenvDuration("DELIVERY_TIMEOUT", 5*time.Second),
			RetryTimeout:    getenvDuration("RETRY_DELIVERY_TIMEOUT", 10*time.Second),
			MaxAttempts:     getenvInt("MAX_ATTEMPTS", 5),
		},
		Retry: Retry{
			PollInterval: getenvDuration("RETRY_POLL_INTERVAL", time.Second),
			BatchSize:    getenvInt("RETRY_BATCH_SIZE", 50),
		},
		Reconcile: Reconcile{
			Interval: getenvDuration("RECONCILE_INTERVAL", time.Minute),
			MinAge:   getenvDuration("RECONCILE_MIN_AGE", time.Minute),
		},
	}
}

// DSN returns the Postgres connection string, preferring DATABASE_URL when set.
func (c Config) DSN() string {
	if c.DB.URL != "" {
		return c.DB.URL
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
		c.DB.User, c.DB.Pass, c.DB.Host, c.DB.Port, c.DB.Name)
}
