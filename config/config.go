package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

const (
	defaultDataAPIURL        = "http://localhost:3001"
	defaultInferenceURL      = "http://127.0.0.1:5001"
	defaultHTTPTimeout       = 10 * time.Second
	defaultInferenceTimeout  = 60 * time.Second
	defaultLookupConcurrency = 8
	defaultLookupCacheTTL    = 5 * time.Minute
	defaultSessionTTL        = time.Hour
)

// Config holds the application's configuration values.
type Config struct {
	AppName string `json:"appname"`
	AppEnv  string `json:"appenv"`
	AppPort uint16 `json:"appport"`
	GinMode string `json:"ginmode"`
	DBHost  string `json:"dbhost"`
	DBPort  uint16 `json:"dbport"`
	DBName  string `json:"dbname"`
	DBUSER  string `json:"dbuser"`
	DBPass  string `json:"dbpass"`

	// DataAPIURL is the base URL of the remote data service (users, logs, doctors...).
	DataAPIURL string `json:"data_api_url"`
	// InferenceURL is the base URL of the anemia-detection inference service.
	InferenceURL      string        `json:"inference_url"`
	HTTPTimeout       time.Duration `json:"http_timeout"`
	InferenceTimeout  time.Duration `json:"inference_timeout"`
	LookupConcurrency int           `json:"lookup_concurrency"`
	LookupCacheTTL    time.Duration `json:"lookup_cache_ttl"`
	SessionTTL        time.Duration `json:"session_ttl"`
	CORSOrigins       []string      `json:"cors_origins"`
}

var config *Config
var once sync.Once

// LoadConfig loads the environment variables from a .env file, and returns a singleton Config instance.
func LoadConfig() *Config {
	once.Do(func() {
		// A missing .env is only fatal in production; tests and containers pass env directly.
		if err := godotenv.Load(); err != nil && os.Getenv("APPENV") == "production" {
			log.Fatalf("Error loading .env file: %v", err)
		}
		config = fromEnv()
	})
	return config
}

func fromEnv() *Config {
	appPort, _ := strconv.ParseUint(os.Getenv("APPPORT"), 10, 16)
	dbPort, _ := strconv.ParseUint(os.Getenv("DBPORT"), 10, 16)

	cfg := &Config{
		AppName:           os.Getenv("APPNAME"),
		AppEnv:            os.Getenv("APPENV"),
		AppPort:           uint16(appPort),
		GinMode:           os.Getenv("GINMODE"),
		DBHost:            os.Getenv("DBHOST"),
		DBPort:            uint16(dbPort),
		DBName:            os.Getenv("DBNAME"),
		DBUSER:            os.Getenv("DBUSER"),
		DBPass:            os.Getenv("DBPASS"),
		DataAPIURL:        envOr("DATA_API_URL", defaultDataAPIURL),
		InferenceURL:      envOr("INFERENCE_URL", defaultInferenceURL),
		HTTPTimeout:       envDuration("HTTP_TIMEOUT", defaultHTTPTimeout),
		InferenceTimeout:  envDuration("INFERENCE_TIMEOUT", defaultInferenceTimeout),
		LookupConcurrency: envInt("LOOKUP_CONCURRENCY", defaultLookupConcurrency),
		LookupCacheTTL:    envDuration("LOOKUP_CACHE_TTL", defaultLookupCacheTTL),
		SessionTTL:        envDuration("SESSION_TTL", defaultSessionTTL),
		CORSOrigins:       splitList(os.Getenv("CORS_ORIGINS")),
	}
	if cfg.AppName == "" {
		cfg.AppName = "Patient Portal"
	}
	if cfg.AppPort == 0 {
		cfg.AppPort = 8080
	}
	return cfg
}

// ReloadConfigForTest re-reads the environment into the singleton.
// This should only be used in tests.
func ReloadConfigForTest() *Config {
	once.Do(func() {})
	config = fromEnv()
	return config
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return strings.TrimRight(v, "/")
	}
	return fallback
}

// envDuration accepts Go durations ("15s") or a bare number of seconds.
func envDuration(key string, fallback time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil && d > 0 {
		return d
	}
	if n, err := strconv.Atoi(raw); err == nil && n > 0 {
		return time.Duration(n) * time.Second
	}
	log.Printf("config: invalid duration for %s=%q, using %s", key, raw, fallback)
	return fallback
}

func envInt(key string, fallback int) int {
	if n, err := strconv.Atoi(os.Getenv(key)); err == nil && n > 0 {
		return n
	}
	return fallback
}

func splitList(raw string) []string {
	var out []string
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// ConnectMySQL establishes a connection to a MySQL database using the configuration values.
// When APPENV is "test" an in-memory SQLite database is opened instead.
func ConnectMySQL() (*gorm.DB, error) {
	cfg := LoadConfig()
	if os.Getenv("APPENV") == "test" || cfg.AppEnv == "test" {
		dsn := fmt.Sprintf("file:portal_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
		return gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	}

	// Build the Data Source Name (DSN) using the configuration values.
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true", cfg.DBUSER, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)

	// Open a database connection.
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	return db, nil
}
