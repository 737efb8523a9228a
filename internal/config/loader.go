package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies WAGERD_* environment variable overrides, and
// returns the final Config. The returned Config has NOT been validated; the
// caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known WAGERD_* environment variables and
// overwrites the corresponding Config fields when a variable is set. This
// lets operators inject secrets at deploy time without touching the TOML
// file.
func applyEnvOverrides(cfg *Config) {
	// ── Chain ──
	setStr(&cfg.Chain.RPCURL, "WAGERD_CHAIN_RPC_URL")
	setStr(&cfg.Chain.ContractAddress, "WAGERD_CHAIN_CONTRACT_ADDRESS")
	setStr(&cfg.Chain.OwnerAddress, "WAGERD_CHAIN_OWNER_ADDRESS")
	setInt64(&cfg.Chain.ChainID, "WAGERD_CHAIN_CHAIN_ID")
	setDuration(&cfg.Chain.CallTimeout, "WAGERD_CHAIN_CALL_TIMEOUT")
	setDuration(&cfg.Chain.MineTimeout, "WAGERD_CHAIN_MINE_TIMEOUT")

	// ── Wallet ──
	setStr(&cfg.Wallet.PrivateKey, "WAGERD_WALLET_PRIVATE_KEY")
	setStr(&cfg.Wallet.EncryptedKeyPath, "WAGERD_WALLET_ENCRYPTED_KEY_PATH")
	setStr(&cfg.Wallet.KeyPassword, "WAGERD_WALLET_KEY_PASSWORD")

	// ── Refresh ──
	setInt(&cfg.Refresh.Concurrency, "WAGERD_REFRESH_CONCURRENCY")
	setDuration(&cfg.Refresh.Interval, "WAGERD_REFRESH_INTERVAL")

	// ── Postgres ──
	setStr(&cfg.Postgres.DSN, "WAGERD_POSTGRES_DSN")
	setStr(&cfg.Postgres.Host, "WAGERD_POSTGRES_HOST")
	setInt(&cfg.Postgres.Port, "WAGERD_POSTGRES_PORT")
	setStr(&cfg.Postgres.Database, "WAGERD_POSTGRES_DATABASE")
	setStr(&cfg.Postgres.User, "WAGERD_POSTGRES_USER")
	setStr(&cfg.Postgres.Password, "WAGERD_POSTGRES_PASSWORD")
	setStr(&cfg.Postgres.SSLMode, "WAGERD_POSTGRES_SSLMODE")
	setInt(&cfg.Postgres.PoolMaxConns, "WAGERD_POSTGRES_POOL_MAX_CONNS")
	setInt(&cfg.Postgres.PoolMinConns, "WAGERD_POSTGRES_POOL_MIN_CONNS")
	setBool(&cfg.Postgres.RunMigrations, "WAGERD_POSTGRES_RUN_MIGRATIONS")

	// ── Redis ──
	setStr(&cfg.Redis.Addr, "WAGERD_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "WAGERD_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "WAGERD_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "WAGERD_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "WAGERD_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "WAGERD_REDIS_TLS_ENABLED")

	// ── S3 / archive ──
	setStr(&cfg.S3.Endpoint, "WAGERD_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "WAGERD_S3_REGION")
	setStr(&cfg.S3.Bucket, "WAGERD_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "WAGERD_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "WAGERD_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "WAGERD_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "WAGERD_S3_FORCE_PATH_STYLE")
	setBool(&cfg.Archive.Enabled, "WAGERD_ARCHIVE_ENABLED")
	setStr(&cfg.Archive.Prefix, "WAGERD_ARCHIVE_PREFIX")

	// ── Server ──
	setInt(&cfg.Server.Port, "WAGERD_SERVER_PORT")
	setStringSlice(&cfg.Server.CORSOrigins, "WAGERD_SERVER_CORS_ORIGINS")
	setStr(&cfg.Server.APIKey, "WAGERD_SERVER_API_KEY")

	// ── Notify ──
	setStr(&cfg.Notify.TelegramToken, "WAGERD_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "WAGERD_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "WAGERD_NOTIFY_DISCORD_WEBHOOK_URL")
	setStringSlice(&cfg.Notify.Events, "WAGERD_NOTIFY_EVENTS")

	// ── Top-level ──
	setStr(&cfg.Mode, "WAGERD_MODE")
	setStr(&cfg.LogLevel, "WAGERD_LOG_LEVEL")
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

func setInt64(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
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

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		if len(out) > 0 {
			*dst = out
		}
	}
}
