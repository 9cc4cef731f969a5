package config

import (
	"fmt"
	"strings"
	"time"
)

type HTTPConfig struct {
	Port           int `koanf:"port"`
	MaxHeaderBytes int `koanf:"maxHeaderBytes"`
	Timeout        struct {
		Read       time.Duration `koanf:"read"`
		Write      time.Duration `koanf:"write"`
		Idle       time.Duration `koanf:"idle"`
		ReadHeader time.Duration `koanf:"readHeader"`
	} `koanf:"timeout"`
}

func (c *HTTPConfig) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid HTTP server port: %d", c.Port)
	}
	if c.Timeout.Read <= 0 {
		return fmt.Errorf("invalid HTTP server read timeout: %v", c.Timeout.Read)
	}
	if c.Timeout.Write <= 0 {
		return fmt.Errorf("invalid HTTP server write timeout: %v", c.Timeout.Write)
	}
	if c.Timeout.Idle <= 0 {
		return fmt.Errorf("invalid HTTP server idle timeout: %v", c.Timeout.Idle)
	}
	if c.Timeout.ReadHeader <= 0 {
		return fmt.Errorf("invalid HTTP server read header timeout: %v", c.Timeout.ReadHeader)
	}
	return nil
}

type GrpcServerConfig struct {
	Enabled           bool   `koanf:"enabled"`
	Port              string `koanf:"port"`
	ReflectionEnabled bool   `koanf:"reflection"`
}

func (c *GrpcServerConfig) Validate() error {
	if c.Enabled && c.Port == "" {
		return fmt.Errorf("gRPC is enabled but port is not configured")
	}
	return nil
}

type PProfConfig struct {
	Enabled bool   `koanf:"enabled"`
	Addr    string `koanf:"addr"`
}

func (c *PProfConfig) Validate() error {
	if c.Enabled && c.Addr == "" {
		return fmt.Errorf("pprof is enabled but address is not configured")
	}
	return nil
}

type LogConfig struct {
	Level string `koanf:"level"`
}

func (c *LogConfig) Validate() error {
	switch c.Level {
	case "", "debug", "info", "warn", "error":
		return nil
	default:
		return fmt.Errorf("unknown log level: %s", c.Level)
	}
}

type ShutdownConfig struct {
	Timeout time.Duration `koanf:"timeout"`
}

func (c *ShutdownConfig) Validate() error {
	if c.Timeout <= 0 {
		return fmt.Errorf("shutdown timeout is not configured")
	}
	return nil
}

// Storage backends.
const (
	BackendMemory   = "memory"
	BackendFile     = "file"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
)

// StorageConfig selects where cart and preference blobs are kept.
type StorageConfig struct {
	Backend string `koanf:"backend"`
	Dir     string `koanf:"dir"`
}

func (c *StorageConfig) Validate() error {
	switch c.Backend {
	case BackendMemory, BackendRedis, BackendPostgres:
		return nil
	case BackendFile:
		if c.Dir == "" {
			return fmt.Errorf("file storage requires storage.dir")
		}
		return nil
	default:
		return fmt.Errorf("unknown storage backend: %q", c.Backend)
	}
}

type DatabaseConfig struct {
	URL     string        `koanf:"url"`
	Timeout time.Duration `koanf:"timeout"`
}

func (c *DatabaseConfig) Validate() error {
	if c.URL == "" {
		return fmt.Errorf("database URL is not configured")
	}
	if !isValidPostgresURL(c.URL) {
		return fmt.Errorf("database URL must start with 'postgres://': %s", maskURL(c.URL))
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("invalid database connect timeout: %v", c.Timeout)
	}
	return nil
}

// isValidPostgresURL checks if the provided URL is a valid PostgreSQL URL
func isValidPostgresURL(url string) bool {
	return strings.HasPrefix(url, "postgres://") ||
		strings.HasPrefix(url, "postgresql://")
}

type RedisConfig struct {
	Addr     string        `koanf:"addr"`
	Password string        `koanf:"password"`
	DB       int           `koanf:"db"`
	Timeout  time.Duration `koanf:"timeout"`
	TTL      time.Duration `koanf:"ttl"`
}

func (c *RedisConfig) Validate() error {
	if c.Addr == "" {
		return fmt.Errorf("redis address is not configured")
	}
	if c.DB < 0 {
		return fmt.Errorf("invalid redis db: %d", c.DB)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("invalid redis timeout: %v", c.Timeout)
	}
	if c.TTL < 0 {
		return fmt.Errorf("invalid redis ttl: %v", c.TTL)
	}
	return nil
}

// CatalogConfig points at a JSON catalog. An empty file serves the built-in catalog.
type CatalogConfig struct {
	File string `koanf:"file"`
}

type AuthConfig struct {
	Secret       string        `koanf:"secret"`
	Issuer       string        `koanf:"issuer"`
	AccessTTL    time.Duration `koanf:"accessTTL"`
	RefreshTTL   time.Duration `koanf:"refreshTTL"`
	AccountsFile string        `koanf:"accountsFile"`
}

func (c *AuthConfig) Validate() error {
	if len(c.Secret) < 16 {
		return fmt.Errorf("auth secret must be at least 16 characters")
	}
	if c.Issuer == "" {
		return fmt.Errorf("auth issuer is not configured")
	}
	if c.AccessTTL <= 0 || c.RefreshTTL < c.AccessTTL {
		return fmt.Errorf("invalid token lifetimes: access=%v refresh=%v", c.AccessTTL, c.RefreshTTL)
	}
	return nil
}

type ShopperConfig struct {
	IdleTTL time.Duration `koanf:"idleTTL"`
}

func (c *ShopperConfig) Validate() error {
	if c.IdleTTL < 0 {
		return fmt.Errorf("invalid shopper idle ttl: %v", c.IdleTTL)
	}
	return nil
}

// CircuitBreakerConfig guards the remote storage backends.
type CircuitBreakerConfig struct {
	Enabled             bool          `koanf:"enabled"`
	ConsecutiveFailures uint32        `koanf:"consecutiveFailures"`
	ErrorRatePercent    int           `koanf:"errorRatePercent"`
	OpenTimeout         time.Duration `koanf:"openTimeout"`
}

func (c *CircuitBreakerConfig) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.ConsecutiveFailures == 0 {
		return fmt.Errorf("circuit breaker consecutive failures must be greater than 0")
	}
	if c.ErrorRatePercent < 0 || c.ErrorRatePercent > 100 {
		return fmt.Errorf("circuit breaker error rate percent must be between 0 and 100")
	}
	if c.OpenTimeout <= 0 {
		return fmt.Errorf("circuit breaker open timeout must be greater than 0")
	}
	return nil
}

// TelemetryConfig enables OTLP/HTTP trace export.
type TelemetryConfig struct {
	Enabled  bool          `koanf:"enabled"`
	Endpoint string        `koanf:"endpoint"`
	Insecure bool          `koanf:"insecure"`
	Timeout  time.Duration `koanf:"timeout"`
}

func (c *TelemetryConfig) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.Endpoint == "" {
		return fmt.Errorf("OTel endpoint is not configured")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("telemetry timeout must be greater than 0")
	}
	return nil
}
