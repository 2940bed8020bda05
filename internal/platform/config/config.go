// Copyright (c) 2026 Addressbook. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package config handles application-wide settings and environment parsing.

It leverages 'caarlos0/env' to map OS environment variables into a strongly-typed
Go struct, providing early validation and default values. A local '.env' file is
loaded first (when present) via 'joho/godotenv'; real environment variables
always win over the file.

Usage:

	cfg, err := config.Load()
	if err != nil {
	    log.Fatal(err)
	}

Architecture:

  - Immutability: Once loaded, configuration is read-only.
  - DI-Friendly: Passed to core components (DB, Redis, TokenService) via constructors.
  - Zero Hidden State: No global variables are used to store config.
*/
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/netip"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// # Configuration Schema

// Config holds all runtime configuration for the Addressbook API server.
type Config struct {

	// Server settings
	ServerPort  string `env:"SERVER_PORT"  envDefault:"8080"`
	Environment string `env:"ENVIRONMENT"  envDefault:"development"`
	Debug       bool   `env:"DEBUG"        envDefault:"false"`

	// Relational Database (PostgreSQL)
	DatabaseURL string `env:"DATABASE_URL,required"`

	// MigrationPath is the filesystem path to the SQL migrations directory.
	MigrationPath string `env:"MIGRATION_PATH" envDefault:"./data/migrations"`

	// Key-Value Cache (Redis)
	RedisURL string `env:"REDIS_URL,required"`

	// CacheEnabled toggles the fast-path profile cache and blacklist.
	// With it off every lookup misses, which trades latency for nothing else.
	CacheEnabled bool          `env:"CACHE_ENABLED"  envDefault:"true"`
	UserCacheTTL time.Duration `env:"REDIS_USER_TTL" envDefault:"15m"`

	// Token signing
	SecretKey          string `env:"SECRET_KEY,required"`
	JWTAlgorithm       string `env:"JWT_ALGORITHM"                envDefault:"HS256"`
	AccessTokenMinutes int    `env:"ACCESS_TOKEN_EXPIRE_MINUTES"  envDefault:"15"`
	RefreshTokenDays   int    `env:"REFRESH_TOKEN_EXPIRE_DAYS"    envDefault:"7"`

	// TrustCachedLogin lets login return a cached profile without re-checking
	// the password. Staleness is bounded by UserCacheTTL and every credential
	// change busts the entry.
	TrustCachedLogin bool `env:"AUTH_TRUST_CACHED_LOGIN" envDefault:"true"`

	// Background refresh-token reaper
	ReaperInterval time.Duration `env:"REAPER_INTERVAL" envDefault:"1h"`

	// MeRateLimit is the ulule/limiter formatted rate for GET /users/me.
	MeRateLimit string `env:"ME_RATE_LIMIT" envDefault:"5-M"`

	// Outbound mail (SMTP)
	MailUsername string `env:"MAIL_USERNAME"`
	MailPassword string `env:"MAIL_PASSWORD"`
	MailFrom     string `env:"MAIL_FROM"      envDefault:"noreply@addressbook.local"`
	MailFromName string `env:"MAIL_FROM_NAME" envDefault:"Addressbook"`
	MailServer   string `env:"MAIL_SERVER"`
	MailPort     int    `env:"MAIL_PORT"      envDefault:"587"`
	MailStartTLS bool   `env:"MAIL_STARTTLS"  envDefault:"true"`
	MailSSLTLS   bool   `env:"MAIL_SSL_TLS"   envDefault:"false"`

	// RabbitMQURL enables the durable mail queue. Empty means in-process delivery.
	RabbitMQURL string `env:"RABBITMQ_URL"`

	// Avatar storage (Cloudinary). Empty name disables PATCH /users/avatar.
	CloudinaryName      string `env:"CLOUDINARY_NAME"`
	CloudinaryAPIKey    string `env:"CLOUDINARY_API_KEY"`
	CloudinaryAPISecret string `env:"CLOUDINARY_API_SECRET"`

	// Cross-Origin Resource Sharing
	ExtraOrigins string `env:"EXTRA_ORIGINS"`

	// TrustedProxies lists the CIDRs or bare IPs of reverse proxies whose
	// X-Forwarded-For / X-Real-IP headers are believed. Empty trusts nobody.
	TrustedProxies string `env:"TRUSTED_PROXIES"`
}

// # Configuration Loading

// Load reads an optional .env file and parses environment variables into a [Config].
func Load(envFiles ...string) (*Config, error) {

	// A missing .env file is normal outside local development.
	if err := godotenv.Load(envFiles...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("config: failed to read .env file: %w", err)
	}

	// Initialize an empty config struct
	cfg := &Config{}

	// Use the 'env' package to map environment variables to struct fields.
	// This will fail if any field marked with 'required' is missing.
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("config: failed to parse environment variables: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate rejects values that parse but cannot work at runtime.
func (c *Config) Validate() error {
	switch c.JWTAlgorithm {
	case "HS256", "HS384", "HS512":
	default:
		return fmt.Errorf("config: JWT_ALGORITHM must be HS256, HS384 or HS512, got %q", c.JWTAlgorithm)
	}

	if c.AccessTokenMinutes <= 0 {
		return fmt.Errorf("config: ACCESS_TOKEN_EXPIRE_MINUTES must be positive, got %d", c.AccessTokenMinutes)
	}
	if c.RefreshTokenDays <= 0 {
		return fmt.Errorf("config: REFRESH_TOKEN_EXPIRE_DAYS must be positive, got %d", c.RefreshTokenDays)
	}
	if c.UserCacheTTL <= 0 {
		return fmt.Errorf("config: REDIS_USER_TTL must be positive, got %s", c.UserCacheTTL)
	}
	if c.ReaperInterval <= 0 {
		return fmt.Errorf("config: REAPER_INTERVAL must be positive, got %s", c.ReaperInterval)
	}
	if _, err := c.TrustedProxyPrefixes(); err != nil {
		return err
	}

	return nil
}

// AccessTokenTTL is the access-token lifetime as a duration.
func (c *Config) AccessTokenTTL() time.Duration {
	return time.Duration(c.AccessTokenMinutes) * time.Minute
}

// RefreshTokenTTL is the refresh-token lifetime as a duration.
func (c *Config) RefreshTokenTTL() time.Duration {
	return time.Duration(c.RefreshTokenDays) * 24 * time.Hour
}

// MailEnabled reports whether an SMTP server is configured.
func (c *Config) MailEnabled() bool {
	return c.MailServer != ""
}

// UploadEnabled reports whether Cloudinary credentials are configured.
func (c *Config) UploadEnabled() bool {
	return c.CloudinaryName != "" && c.CloudinaryAPIKey != "" && c.CloudinaryAPISecret != ""
}

// AllowedOrigins splits EXTRA_ORIGINS into its comma-separated entries.
func (c *Config) AllowedOrigins() []string {
	var origins []string
	for _, origin := range strings.Split(c.ExtraOrigins, ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			origins = append(origins, origin)
		}
	}
	return origins
}

// TrustedProxyPrefixes parses TRUSTED_PROXIES. A bare IP becomes a single-host prefix.
func (c *Config) TrustedProxyPrefixes() ([]netip.Prefix, error) {
	var prefixes []netip.Prefix
	for _, entry := range strings.Split(c.TrustedProxies, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}

		if !strings.Contains(entry, "/") {
			addr, err := netip.ParseAddr(entry)
			if err != nil {
				return nil, fmt.Errorf("config: TRUSTED_PROXIES entry %q: %w", entry, err)
			}
			addr = addr.Unmap()
			prefixes = append(prefixes, netip.PrefixFrom(addr, addr.BitLen()))
			continue
		}

		prefix, err := netip.ParsePrefix(entry)
		if err != nil {
			return nil, fmt.Errorf("config: TRUSTED_PROXIES entry %q: %w", entry, err)
		}
		prefixes = append(prefixes, prefix.Masked())
	}
	return prefixes, nil
}

// IsDevelopment reports whether the server is running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction reports whether the server is running in production mode.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
