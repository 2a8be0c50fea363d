package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies SEQUENCE_* environment variable overrides,
// and returns the final Config. The returned Config has NOT been
// validated; the caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return nil, err
		}
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known SEQUENCE_* environment variables and
// overwrites the corresponding Config fields when a variable is set. This
// lets operators inject secrets at deploy time without touching the TOML
// file.
func applyEnvOverrides(cfg *Config) {
	// ── Server ──
	setInt(&cfg.Server.Port, "SEQUENCE_SERVER_PORT")
	setStringSlice(&cfg.Server.CORSOrigins, "SEQUENCE_SERVER_CORS_ORIGINS")
	setStr(&cfg.Server.APIKey, "SEQUENCE_SERVER_API_KEY")

	// ── Supabase ──
	setStr(&cfg.Supabase.DSN, "SEQUENCE_SUPABASE_DSN")
	setStr(&cfg.Supabase.Host, "SEQUENCE_SUPABASE_HOST")
	setInt(&cfg.Supabase.Port, "SEQUENCE_SUPABASE_PORT")
	setStr(&cfg.Supabase.Database, "SEQUENCE_SUPABASE_DATABASE")
	setStr(&cfg.Supabase.User, "SEQUENCE_SUPABASE_USER")
	setStr(&cfg.Supabase.Password, "SEQUENCE_SUPABASE_PASSWORD")
	setStr(&cfg.Supabase.SSLMode, "SEQUENCE_SUPABASE_SSL_MODE")
	setInt(&cfg.Supabase.PoolMaxConns, "SEQUENCE_SUPABASE_POOL_MAX_CONNS")
	setInt(&cfg.Supabase.PoolMinConns, "SEQUENCE_SUPABASE_POOL_MIN_CONNS")
	setBool(&cfg.Supabase.RunMigrations, "SEQUENCE_SUPABASE_RUN_MIGRATIONS")

	// ── Redis ──
	setBool(&cfg.Redis.Enabled, "SEQUENCE_REDIS_ENABLED")
	setStr(&cfg.Redis.Addr, "SEQUENCE_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "SEQUENCE_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "SEQUENCE_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "SEQUENCE_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "SEQUENCE_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "SEQUENCE_REDIS_TLS_ENABLED")

	// ── S3 ──
	setBool(&cfg.S3.Enabled, "SEQUENCE_S3_ENABLED")
	setStr(&cfg.S3.Endpoint, "SEQUENCE_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "SEQUENCE_S3_REGION")
	setStr(&cfg.S3.Bucket, "SEQUENCE_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "SEQUENCE_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "SEQUENCE_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "SEQUENCE_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "SEQUENCE_S3_FORCE_PATH_STYLE")

	// ── Turnkey ──
	setStr(&cfg.Turnkey.BaseURL, "SEQUENCE_TURNKEY_BASE_URL")
	setStr(&cfg.Turnkey.OrganizationID, "SEQUENCE_TURNKEY_ORGANIZATION_ID")
	setStr(&cfg.Turnkey.APIPublicKey, "SEQUENCE_TURNKEY_API_PUBLIC_KEY")
	setStr(&cfg.Turnkey.APIPrivateKey, "SEQUENCE_TURNKEY_API_PRIVATE_KEY")

	// ── CoinGecko ──
	setStr(&cfg.CoinGecko.BaseURL, "SEQUENCE_COINGECKO_BASE_URL")
	setStr(&cfg.CoinGecko.APIKey, "SEQUENCE_COINGECKO_API_KEY")

	// ── Notify ──
	setStr(&cfg.Notify.TelegramToken, "SEQUENCE_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "SEQUENCE_NOTIFY_TELEGRAM_CHAT_ID")
	setStringSlice(&cfg.Notify.Events, "SEQUENCE_NOTIFY_EVENTS")

	// ── Top-level ──
	setStr(&cfg.LogLevel, "SEQUENCE_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
