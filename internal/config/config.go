// Package config loads the storefront configuration from config.yaml, a .env file
// and STOREFRONT_ environment variables, in increasing priority.
package config

import (
	"errors"
	"fmt"
	"strings"
)

type Config struct {
	HTTPServer HTTPConfig           `koanf:"server"`
	GRPC       GrpcServerConfig     `koanf:"grpc"`
	PProf      PProfConfig          `koanf:"pprof"`
	Log        LogConfig            `koanf:"log"`
	Shutdown   ShutdownConfig       `koanf:"shutdown"`
	Storage    StorageConfig        `koanf:"storage"`
	Database   DatabaseConfig       `koanf:"database"`
	Redis      RedisConfig          `koanf:"redis"`
	Catalog    CatalogConfig        `koanf:"catalog"`
	Auth       AuthConfig           `koanf:"auth"`
	Shopper    ShopperConfig        `koanf:"shopper"`
	Breaker    CircuitBreakerConfig `koanf:"circuitBreaker"`
	Telemetry  TelemetryConfig      `koanf:"telemetry"`
}

func (c *Config) String() string {
	var b strings.Builder

	b.WriteString("\n--- Server Configuration ---\n")
	b.WriteString(fmt.Sprintf("  server.port: %d\n", c.HTTPServer.Port))
	b.WriteString(fmt.Sprintf("  server.maxHeaderBytes: %d\n", c.HTTPServer.MaxHeaderBytes))
	b.WriteString(fmt.Sprintf("  server.timeout.read: %v\n", c.HTTPServer.Timeout.Read))
	b.WriteString(fmt.Sprintf("  server.timeout.write: %v\n", c.HTTPServer.Timeout.Write))
	b.WriteString(fmt.Sprintf("  server.timeout.idle: %v\n", c.HTTPServer.Timeout.Idle))
	b.WriteString(fmt.Sprintf("  server.timeout.readHeader: %v\n", c.HTTPServer.Timeout.ReadHeader))

	b.WriteString("\n--- gRPC Configuration ---\n")
	b.WriteString(fmt.Sprintf("  grpc.enabled: %t\n", c.GRPC.Enabled))
	b.WriteString(fmt.Sprintf("  grpc.port: %s\n", c.GRPC.Port))
	b.WriteString(fmt.Sprintf("  grpc.reflection_enabled: %t\n", c.GRPC.ReflectionEnabled))

	b.WriteString("\n--- Storage Configuration ---\n")
	b.WriteString(fmt.Sprintf("  storage.backend: %s\n", c.Storage.Backend))
	switch c.Storage.Backend {
	case BackendFile:
		b.WriteString(fmt.Sprintf("  storage.dir: %s\n", c.Storage.Dir))
	case BackendPostgres:
		b.WriteString(fmt.Sprintf("  database.url: %s\n", maskURL(c.Database.URL)))
		b.WriteString(fmt.Sprintf("  database.connect.timeout: %s\n", c.Database.Timeout))
	case BackendRedis:
		b.WriteString(fmt.Sprintf("  redis.addr: %s\n", c.Redis.Addr))
		b.WriteString(fmt.Sprintf("  redis.password: %s\n", maskSecret(c.Redis.Password)))
		b.WriteString(fmt.Sprintf("  redis.db: %d\n", c.Redis.DB))
		b.WriteString(fmt.Sprintf("  redis.ttl: %s\n", c.Redis.TTL))
	}
	b.WriteString(fmt.Sprintf("  circuitBreaker.enabled: %t\n", c.Breaker.Enabled))
	if c.Breaker.Enabled {
		b.WriteString(fmt.Sprintf("  circuitBreaker.consecutiveFailures: %d\n", c.Breaker.ConsecutiveFailures))
		b.WriteString(fmt.Sprintf("  circuitBreaker.errorRatePercent: %d\n", c.Breaker.ErrorRatePercent))
		b.WriteString(fmt.Sprintf("  circuitBreaker.openTimeout: %s\n", c.Breaker.OpenTimeout))
	}

	b.WriteString("\n--- Storefront ---\n")
	b.WriteString(fmt.Sprintf("  catalog.file: %s\n", orBuiltin(c.Catalog.File)))
	b.WriteString(fmt.Sprintf("  auth.secret: %s\n", maskSecret(c.Auth.Secret)))
	b.WriteString(fmt.Sprintf("  auth.issuer: %s\n", c.Auth.Issuer))
	b.WriteString(fmt.Sprintf("  auth.accessTTL: %s\n", c.Auth.AccessTTL))
	b.WriteString(fmt.Sprintf("  auth.refreshTTL: %s\n", c.Auth.RefreshTTL))
	b.WriteString(fmt.Sprintf("  auth.accountsFile: %s\n", c.Auth.AccountsFile))
	b.WriteString(fmt.Sprintf("  shopper.idleTTL: %s\n", c.Shopper.IdleTTL))

	b.WriteString("\n--- Observability & Logging ---\n")
	b.WriteString(fmt.Sprintf("  log.level: %s\n", c.Log.Level))
	b.WriteString(fmt.Sprintf("  pprof.enabled: %t\n", c.PProf.Enabled))
	b.WriteString(fmt.Sprintf("  pprof.address: %s\n", c.PProf.Addr))
	b.WriteString(fmt.Sprintf("  telemetry.enabled: %t\n", c.Telemetry.Enabled))
	b.WriteString(fmt.Sprintf("  telemetry.endpoint: %s\n", c.Telemetry.Endpoint))

	b.WriteString("\n--- Application Behavior ---\n")
	b.WriteString(fmt.Sprintf("  shutdown.timeout: %s\n", c.Shutdown.Timeout))

	return b.String()
}

func maskURL(url string) string {
	if url == "" {
		return "<not configured>"
	}
	// Mask the URL by replacing the username and password with "****"
	parts := strings.Split(url, "@")
	if len(parts) == 2 {
		return "****@" + parts[1]
	}
	return "****"
}

func maskSecret(s string) string {
	if s == "" {
		return "<not configured>"
	}
	return "****"
}

func orBuiltin(path string) string {
	if path == "" {
		return "<built-in>"
	}
	return path
}

// Validate checks every section. Backend specific sections are only checked for the selected backend.
func (c *Config) Validate() error {
	validators := []interface{ Validate() error }{
		&c.HTTPServer, &c.GRPC, &c.PProf, &c.Log, &c.Shutdown, &c.Storage, &c.Auth, &c.Shopper,
		&c.Breaker, &c.Telemetry,
	}
	switch c.Storage.Backend {
	case BackendPostgres:
		validators = append(validators, &c.Database)
	case BackendRedis:
		validators = append(validators, &c.Redis)
	}
	var errs []error
	for _, v := range validators {
		if err := v.Validate(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
