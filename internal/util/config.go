package util

import (
	"log"
	"os"
	"sync"
	"time"

	"github.com/joho/godotenv"
)

//nolint:gochecknoglobals // here its ok
var once sync.Once

func init() {
	once.Do(func() {
		if err := godotenv.Load(".env"); err != nil {
			log.Printf("Warning: could not load .env file: %v", err)
		}
	})
}

const (
	defaultServerAddr      = "localhost:8080"
	defaultWriteTimeout    = 10 * time.Second
	defaultReadTimeout     = 10 * time.Second
	defaultIdleTimeout     = 30 * time.Second
	defaultGracefulTimeout = 5 * time.Second

	defaultAuthServiceURL = "http://localhost:8081"
	defaultAuthTimeout    = 10 * time.Second

	defaultRefreshLead     = 60 * time.Second
	defaultRefreshMinDelay = 5 * time.Second
	defaultRefreshTimeout  = 10 * time.Second
)

type ServerConfig struct {
	ServerAddr      string
	WriteTimeout    time.Duration
	ReadTimeout     time.Duration
	IdleTimeout     time.Duration
	GracefulTimeout time.Duration
}

func NewServerConfig() *ServerConfig {
	return &ServerConfig{
		ServerAddr:      getEnvOrDefault("SERVER_ADDRESS", defaultServerAddr),
		WriteTimeout:    parseDurationOrDefault("WRITE_TIMEOUT", defaultWriteTimeout),
		ReadTimeout:     parseDurationOrDefault("READ_TIMEOUT", defaultReadTimeout),
		IdleTimeout:     parseDurationOrDefault("IDLE_TIMEOUT", defaultIdleTimeout),
		GracefulTimeout: parseDurationOrDefault("GRACEFUL_TIMEOUT", defaultGracefulTimeout),
	}
}

// AuthServiceConfig points the client at the external auth service.
type AuthServiceConfig struct {
	BaseURL string
	Timeout time.Duration
}

func NewAuthServiceConfig() *AuthServiceConfig {
	return &AuthServiceConfig{
		BaseURL: getEnvOrDefault("AUTH_SERVICE_URL", defaultAuthServiceURL),
		Timeout: parseDurationOrDefault("AUTH_HTTP_TIMEOUT", defaultAuthTimeout),
	}
}

// RefreshConfig controls when the session is renewed.
// Lead is how long before expiry a refresh is attempted, MinDelay is the floor for any
// scheduled delay and Timeout bounds a single refresh round-trip.
type RefreshConfig struct {
	Lead     time.Duration
	MinDelay time.Duration
	Timeout  time.Duration
}

func NewRefreshConfig() *RefreshConfig {
	return &RefreshConfig{
		Lead:     parseDurationOrDefault("REFRESH_LEAD", defaultRefreshLead),
		MinDelay: parseDurationOrDefault("REFRESH_MIN_DELAY", defaultRefreshMinDelay),
		Timeout:  parseDurationOrDefault("REFRESH_TIMEOUT", defaultRefreshTimeout),
	}
}

func getEnvOrDefault(varName, def string) string {
	if v := os.Getenv(varName); v != "" {
		return v
	}
	return def
}

func parseDurationOrDefault(varName string, def time.Duration) time.Duration {
	if v := os.Getenv(varName); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d >= 0 {
			return d
		}
		log.Printf("Invalid duration in %s: %s, using default %s", varName, v, def)
	}
	return def
}
