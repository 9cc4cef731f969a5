package config

import (
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

const (
	envPrefix      = "STOREFRONT_"
	configEnvName  = envPrefix + "CONFIG"
	defaultEnvFile = ".env"
	defaultConfig  = "config.yaml"
)

// defaults are loaded before any other source.
var defaults = map[string]any{
	"server.port":                        8080,
	"server.maxHeaderBytes":              1 << 20,
	"server.timeout.read":                "5s",
	"server.timeout.write":               "10s",
	"server.timeout.idle":                "60s",
	"server.timeout.readHeader":          "2s",
	"grpc.enabled":                       true,
	"grpc.port":                          "9090",
	"pprof.addr":                         "localhost:6060",
	"log.level":                          "info",
	"shutdown.timeout":                   "10s",
	"storage.backend":                    BackendMemory,
	"database.timeout":                   "5s",
	"redis.timeout":                      "3s",
	"redis.ttl":                          "720h",
	"auth.issuer":                        "sabowaryantech-storefront",
	"auth.accessTTL":                     "15m",
	"auth.refreshTTL":                    "168h",
	"shopper.idleTTL":                    "30m",
	"circuitBreaker.enabled":             true,
	"circuitBreaker.consecutiveFailures": 5,
	"circuitBreaker.errorRatePercent":    50,
	"circuitBreaker.openTimeout":         "10s",
	"telemetry.timeout":                  "5s",
}

// ConfigPath returns the config file named by --config, overridden by STOREFRONT_CONFIG.
func ConfigPath(args []string) (string, error) {
	flags := pflag.NewFlagSet("storefront", pflag.ContinueOnError)
	path := flags.String("config", defaultConfig, "path to the YAML config file")
	if err := flags.Parse(args); err != nil {
		return "", fmt.Errorf("failed to parse flags: %w", err)
	}
	if fromEnv, ok := os.LookupEnv(configEnvName); ok && fromEnv != "" {
		return fromEnv, nil
	}
	return *path, nil
}

// Load reads the configuration from the yaml file at path, .env and the environment.
// A missing config file is not an error.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if err := loadFolded(k, confmap.Provider(defaults, "."), nil); err != nil {
		return nil, fmt.Errorf("error loading defaults: %w", err)
	}

	// 1. Load configuration from yaml file
	if err := loadFolded(k, file.Provider(path), yaml.Parser()); err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("error loading YAML config file '%s': %w", path, err)
		}
	}

	// 2. Load environment variables from .env file
	if envFileMap, err := godotenv.Read(defaultEnvFile); err == nil {
		envMap := make(map[string]any)
		for key, value := range envFileMap {
			if strings.HasPrefix(strings.ToUpper(key), envPrefix) {
				envMap[keyTransformer(key)] = value
			}
		}
		if err := k.Load(confmap.Provider(envMap, "."), nil); err != nil {
			log.Printf("WARN: error loading .env config: %v", err)
		}
	} else if !os.IsNotExist(err) {
		log.Printf("WARN: error reading .env file: %v", err)
	}

	// 3. Load environment variables from the system, the highest priority
	if err := k.Load(env.Provider(envPrefix, ".", keyTransformer), nil); err != nil {
		log.Printf("WARN: error loading system env vars: %v", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("error unmarshalling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

// loadFolded loads a source with lower-cased keys, so that camelCase yaml keys and
// environment variables address the same setting.
func loadFolded(k *koanf.Koanf, p koanf.Provider, pa koanf.Parser) error {
	src := koanf.New(".")
	if err := src.Load(p, pa); err != nil {
		return err
	}
	folded := make(map[string]any)
	for key, value := range src.All() {
		folded[strings.ToLower(key)] = value
	}
	return k.Load(confmap.Provider(folded, "."), nil)
}

// keyTransformer maps STOREFRONT_REDIS_ADDR to redis.addr.
func keyTransformer(key string) string {
	key = strings.ToLower(key)
	key = strings.TrimPrefix(key, strings.ToLower(envPrefix))
	return strings.ReplaceAll(key, "_", ".")
}
