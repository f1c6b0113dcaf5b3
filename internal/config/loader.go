package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Loader loads configuration from a hierarchy of sources. Priority,
// lowest to highest: defaults in code, base.yaml, <environment>.yaml,
// environment variables.
type Loader struct {
	basePath    string
	environment Environment
	sources     []string
}

// NewLoader creates a loader rooted at basePath (default "config").
func NewLoader(basePath string, env Environment) *Loader {
	if basePath == "" {
		basePath = "config"
	}
	return &Loader{basePath: basePath, environment: env}
}

// Load builds the final configuration and validates it.
func (l *Loader) Load() (*Config, error) {
	cfg := Default(l.environment)
	l.sources = append(l.sources, "defaults")

	if err := l.loadFile("base", cfg); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to load base config: %w", err)
	}

	envFile := strings.ToLower(string(l.environment))
	if err := l.loadFile(envFile, cfg); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to load %s config: %w", envFile, err)
	}

	l.loadEnvironmentVariables(cfg)
	l.sources = append(l.sources, "environment")

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// Sources reports where configuration was loaded from, for startup logging.
func (l *Loader) Sources() []string {
	return l.sources
}

func (l *Loader) loadFile(name string, cfg *Config) error {
	path := filepath.Join(l.basePath, name+".yaml")
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()

	if err := yaml.NewDecoder(file).Decode(cfg); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}
	l.sources = append(l.sources, path)
	return nil
}

// loadEnvironmentVariables overlays environment variables, the highest
// priority source. Variable names follow the original deployment's.
func (l *Loader) loadEnvironmentVariables(cfg *Config) {
	if val := os.Getenv("PUBLIC_SUPABASE_URL"); val != "" {
		cfg.Supabase.URL = val
	}
	if val := os.Getenv("PUBLIC_SUPABASE_SERVICE_ROLE_KEY"); val != "" {
		cfg.Supabase.ServiceRoleKey = val
	}
	if val := os.Getenv("REDIS_HOST"); val != "" {
		cfg.Redis.Host = val
	}
	if val := os.Getenv("REDIS_PORT"); val != "" {
		if port := parseInt(val); port > 0 {
			cfg.Redis.Port = port
		}
	}
	if val := os.Getenv("REDIS_DB"); val != "" {
		cfg.Redis.DB = parseInt(val)
	}
	if val := os.Getenv("SERVER_HOST"); val != "" {
		cfg.Server.Host = val
	}
	if val := os.Getenv("SERVER_PORT"); val != "" {
		if port := parseInt(val); port > 0 {
			cfg.Server.Port = port
		}
	}
	if val := os.Getenv("PROJECT_CACHE_TTL"); val != "" {
		if ttl := parseSeconds(val); ttl > 0 {
			cfg.Cache.ProjectTTL = ttl
		}
	}
	if val := os.Getenv("USER_PROJECTS_CACHE_TTL"); val != "" {
		if ttl := parseSeconds(val); ttl > 0 {
			cfg.Cache.UserProjectsTTL = ttl
		}
	}
	if val := os.Getenv("CLUSTER_OBJECTS_CACHE_TTL"); val != "" {
		if ttl := parseSeconds(val); ttl > 0 {
			cfg.Cache.ClusterObjectsTTL = ttl
		}
	}
	if val := os.Getenv("LOG_LEVEL"); val != "" {
		cfg.Logging.Level = strings.ToLower(val)
	}
}

func parseInt(s string) int {
	val, _ := strconv.Atoi(s)
	return val
}

// parseSeconds interprets a bare integer as seconds, matching the
// original deployment's TTL variables.
func parseSeconds(s string) time.Duration {
	return time.Duration(parseInt(s)) * time.Second
}

// Load loads configuration for the environment named by APP_ENV.
func Load() (*Config, error) {
	return NewLoader("config", getEnvironment()).Load()
}
