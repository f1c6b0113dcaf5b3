// Package config provides typed application configuration loaded from
// YAML files with an environment-variable overlay. Defaults live in
// code so the service can start with no configuration files at all.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Environment is the deployment environment.
type Environment string

const (
	Development Environment = "development"
	Production  Environment = "production"
	Testing     Environment = "testing"
)

// Config is the root configuration consumed by the dependency container.
type Config struct {
	Environment Environment `yaml:"environment"`
	Server      Server      `yaml:"server"`
	Supabase    Supabase    `yaml:"supabase"`
	Redis       Redis       `yaml:"redis"`
	Cache       Cache       `yaml:"cache"`
	Storage     Storage     `yaml:"storage"`
	Logging     Logging     `yaml:"logging"`
}

// Server holds the HTTP listener settings.
type Server struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// Supabase holds the PostgREST/storage endpoint credentials.
type Supabase struct {
	URL            string `yaml:"url"`
	ServiceRoleKey string `yaml:"service_role_key"`
}

// Redis holds the cache store connection parameters. Connectivity is
// probed at startup; an unreachable store leaves the process running in
// degraded (uncached) mode rather than failing it.
type Redis struct {
	Host           string        `yaml:"host"`
	Port           int           `yaml:"port"`
	DB             int           `yaml:"db"`
	DialTimeout    time.Duration `yaml:"dial_timeout"`
	ReadTimeout    time.Duration `yaml:"read_timeout"`
	WriteTimeout   time.Duration `yaml:"write_timeout"`
}

// Addr returns the host:port address for the Redis client.
func (r Redis) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// Cache holds the store TTLs for the three cache classes.
type Cache struct {
	ProjectTTL        time.Duration `yaml:"project_ttl"`
	UserProjectsTTL   time.Duration `yaml:"user_projects_ttl"`
	ClusterObjectsTTL time.Duration `yaml:"cluster_objects_ttl"`
}

// Storage holds blob-store behavior settings. SignedURLLifetime is the
// lifetime of minted signed URLs; SignedURLSafetyMargin is subtracted
// from it to compute the embedded expiry of cached object listings, so
// a cached URL is always discarded before it can actually expire.
type Storage struct {
	SignedURLLifetime     time.Duration `yaml:"signed_url_lifetime"`
	SignedURLSafetyMargin time.Duration `yaml:"signed_url_safety_margin"`
	MaxUploadBytes        int64         `yaml:"max_upload_bytes"`
	AllowedMimeTypes      []string      `yaml:"allowed_mime_types"`
}

// Logging holds logger settings.
type Logging struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the configuration defaults for the given environment.
func Default(env Environment) *Config {
	cfg := &Config{
		Environment: env,
		Server: Server{
			Host:            "0.0.0.0",
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Redis: Redis{
			Host:         "localhost",
			Port:         6379,
			DB:           0,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 5 * time.Second,
		},
		Cache: Cache{
			ProjectTTL:        1 * time.Hour,
			UserProjectsTTL:   30 * time.Minute,
			ClusterObjectsTTL: 23 * time.Hour,
		},
		Storage: Storage{
			SignedURLLifetime:     24 * time.Hour,
			SignedURLSafetyMargin: 1 * time.Hour,
			MaxUploadBytes:        5 * 1024 * 1024,
			AllowedMimeTypes:      []string{"image/png"},
		},
		Logging: Logging{
			Level:  "info",
			Format: "json",
		},
	}
	if env == Testing {
		cfg.Redis.DB = 1 // keep test keys away from development data
	}
	if env == Development {
		cfg.Logging.Level = "debug"
		cfg.Logging.Format = "console"
	}
	return cfg
}

// Validate checks that the final configuration is usable.
func (c *Config) Validate() error {
	if c.Supabase.URL == "" {
		return fmt.Errorf("supabase.url is required")
	}
	if c.Supabase.ServiceRoleKey == "" {
		return fmt.Errorf("supabase.service_role_key is required")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d is out of range", c.Server.Port)
	}
	if c.Cache.ClusterObjectsTTL <= 0 {
		return fmt.Errorf("cache.cluster_objects_ttl must be positive")
	}
	if c.Storage.SignedURLSafetyMargin >= c.Storage.SignedURLLifetime {
		return fmt.Errorf("storage.signed_url_safety_margin must be smaller than the signed URL lifetime")
	}
	// The store TTL backstops the embedded expiry: it must not purge
	// entries before the embedded check would already reject them, and
	// should not outlive the signed URLs by much either.
	if c.Cache.ClusterObjectsTTL > c.Storage.SignedURLLifetime {
		return fmt.Errorf("cache.cluster_objects_ttl must not exceed the signed URL lifetime")
	}
	return nil
}

// The YAML files spell durations as strings ("30s", "23h"), which the
// yaml package cannot decode into time.Duration directly. Each section
// holding durations decodes through a shadow struct and overlays only
// the fields the file actually sets, so file values never clobber
// defaults with zeros.

func overlayDuration(dst *time.Duration, raw string) error {
	if raw == "" {
		return nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*dst = d
	return nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (s *Server) UnmarshalYAML(value *yaml.Node) error {
	var raw struct {
		Host            string `yaml:"host"`
		Port            int    `yaml:"port"`
		ReadTimeout     string `yaml:"read_timeout"`
		WriteTimeout    string `yaml:"write_timeout"`
		IdleTimeout     string `yaml:"idle_timeout"`
		ShutdownTimeout string `yaml:"shutdown_timeout"`
	}
	if err := value.Decode(&raw); err != nil {
		return err
	}
	if raw.Host != "" {
		s.Host = raw.Host
	}
	if raw.Port != 0 {
		s.Port = raw.Port
	}
	if err := overlayDuration(&s.ReadTimeout, raw.ReadTimeout); err != nil {
		return err
	}
	if err := overlayDuration(&s.WriteTimeout, raw.WriteTimeout); err != nil {
		return err
	}
	if err := overlayDuration(&s.IdleTimeout, raw.IdleTimeout); err != nil {
		return err
	}
	return overlayDuration(&s.ShutdownTimeout, raw.ShutdownTimeout)
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (r *Redis) UnmarshalYAML(value *yaml.Node) error {
	var raw struct {
		Host         string `yaml:"host"`
		Port         int    `yaml:"port"`
		DB           *int   `yaml:"db"`
		DialTimeout  string `yaml:"dial_timeout"`
		ReadTimeout  string `yaml:"read_timeout"`
		WriteTimeout string `yaml:"write_timeout"`
	}
	if err := value.Decode(&raw); err != nil {
		return err
	}
	if raw.Host != "" {
		r.Host = raw.Host
	}
	if raw.Port != 0 {
		r.Port = raw.Port
	}
	if raw.DB != nil {
		r.DB = *raw.DB
	}
	if err := overlayDuration(&r.DialTimeout, raw.DialTimeout); err != nil {
		return err
	}
	if err := overlayDuration(&r.ReadTimeout, raw.ReadTimeout); err != nil {
		return err
	}
	return overlayDuration(&r.WriteTimeout, raw.WriteTimeout)
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (c *Cache) UnmarshalYAML(value *yaml.Node) error {
	var raw struct {
		ProjectTTL        string `yaml:"project_ttl"`
		UserProjectsTTL   string `yaml:"user_projects_ttl"`
		ClusterObjectsTTL string `yaml:"cluster_objects_ttl"`
	}
	if err := value.Decode(&raw); err != nil {
		return err
	}
	if err := overlayDuration(&c.ProjectTTL, raw.ProjectTTL); err != nil {
		return err
	}
	if err := overlayDuration(&c.UserProjectsTTL, raw.UserProjectsTTL); err != nil {
		return err
	}
	return overlayDuration(&c.ClusterObjectsTTL, raw.ClusterObjectsTTL)
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (s *Storage) UnmarshalYAML(value *yaml.Node) error {
	var raw struct {
		SignedURLLifetime     string   `yaml:"signed_url_lifetime"`
		SignedURLSafetyMargin string   `yaml:"signed_url_safety_margin"`
		MaxUploadBytes        int64    `yaml:"max_upload_bytes"`
		AllowedMimeTypes      []string `yaml:"allowed_mime_types"`
	}
	if err := value.Decode(&raw); err != nil {
		return err
	}
	if raw.MaxUploadBytes != 0 {
		s.MaxUploadBytes = raw.MaxUploadBytes
	}
	if len(raw.AllowedMimeTypes) > 0 {
		s.AllowedMimeTypes = raw.AllowedMimeTypes
	}
	if err := overlayDuration(&s.SignedURLLifetime, raw.SignedURLLifetime); err != nil {
		return err
	}
	return overlayDuration(&s.SignedURLSafetyMargin, raw.SignedURLSafetyMargin)
}

// getEnvironment resolves the deployment environment from APP_ENV.
func getEnvironment() Environment {
	switch strings.ToLower(os.Getenv("APP_ENV")) {
	case "production", "prod":
		return Production
	case "testing", "test":
		return Testing
	default:
		return Development
	}
}
