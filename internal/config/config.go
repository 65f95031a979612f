package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string
	DBLogLevel string

	ServerPort string
	ServerHost string

	// Credentials
	JWTSecret string
	TokenTTL  time.Duration

	// Relay
	WSReadBuffer  int
	WSWriteBuffer int
	WSSendBuffer  int
	WSMaxMessage  int64
	WSRateLimit   float64
	WSRateBurst   int
	WSIdleTimeout time.Duration
	HistoryLimit  int
	MDNSEnabled   bool
	MDNSInstance  string

	// Observability
	JaegerEndpoint string
	TracingEnabled bool
	LogLevel       string
	LogPretty      bool

	// Client
	RelayURL       string
	APIURL         string
	DrawToken      string
	ReconnectDelay time.Duration
	CanvasWidth    float64
	CanvasHeight   float64
}

// Load reads the environment, after applying a .env file if one exists.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "postgres"),
		DBPassword: getEnv("DB_PASSWORD", "postgres"),
		DBName:     getEnv("DB_NAME", "omdraw"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),
		DBLogLevel: getEnv("DB_LOG_LEVEL", "warn"),

		ServerPort: getEnv("SERVER_PORT", "8080"),
		ServerHost: getEnv("SERVER_HOST", "localhost"),

		JWTSecret: getEnv("JWT_SECRET", ""),
		TokenTTL:  getEnvDuration("TOKEN_TTL", 7*24*time.Hour),

		WSReadBuffer:  getEnvInt("WS_READ_BUFFER", 1024),
		WSWriteBuffer: getEnvInt("WS_WRITE_BUFFER", 1024),
		WSSendBuffer:  getEnvInt("WS_SEND_BUFFER", 256),
		WSMaxMessage:  int64(getEnvInt("WS_MAX_MESSAGE_BYTES", 64*1024)),
		WSRateLimit:   getEnvFloat("WS_RATE_LIMIT", 200),
		WSRateBurst:   getEnvInt("WS_RATE_BURST", 400),
		WSIdleTimeout: getEnvDuration("WS_IDLE_TIMEOUT", 5*time.Minute),
		HistoryLimit:  getEnvInt("HISTORY_LIMIT", 50),
		MDNSEnabled:   getEnvBool("MDNS_ENABLED", false),
		MDNSInstance:  getEnv("MDNS_INSTANCE", "omdraw"),

		JaegerEndpoint: getEnv("JAEGER_ENDPOINT", "http://localhost:14268/api/traces"),
		TracingEnabled: getEnvBool("TRACING_ENABLED", true),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		LogPretty:      getEnvBool("LOG_PRETTY", true),

		RelayURL:       getEnv("RELAY_URL", "ws://localhost:8080/ws"),
		APIURL:         getEnv("API_URL", "http://localhost:8080"),
		DrawToken:      getEnv("DRAW_TOKEN", ""),
		ReconnectDelay: getEnvDuration("RECONNECT_DELAY", time.Second),
		CanvasWidth:    getEnvFloat("CANVAS_WIDTH", 1920),
		CanvasHeight:   getEnvFloat("CANVAS_HEIGHT", 1080),
	}

	return cfg, nil
}

// Validate checks the settings the relay server can't run without.
func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if c.HistoryLimit <= 0 {
		return fmt.Errorf("HISTORY_LIMIT must be positive, got %d", c.HistoryLimit)
	}
	if c.WSSendBuffer <= 0 {
		return fmt.Errorf("WS_SEND_BUFFER must be positive, got %d", c.WSSendBuffer)
	}
	return nil
}

func (c *Config) DatabaseURL() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName, c.DBSSLMode)
}

// ServerAddr is the listen address of the HTTP server.
func (c *Config) ServerAddr() string {
	return fmt.Sprintf("%s:%s", c.ServerHost, c.ServerPort)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
