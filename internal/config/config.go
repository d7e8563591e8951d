package config

import (
	"os"
	"strconv"
	"time"
)

// Config aggregates every runtime setting for the client and its local gateway.
type Config struct {
	Database DatabaseConfig
	JWT      JWTConfig
	Client   ClientConfig
	Limits   LimitConfig
}

// DatabaseConfig captures gateway storage configuration.
type DatabaseConfig struct {
	Path          string
	AttachmentDir string
}

// JWTConfig defines session token issuance parameters.
type JWTConfig struct {
	Secret     string
	Issuer     string
	Expiration time.Duration
}

// ClientConfig holds settings for the terminal client.
type ClientConfig struct {
	CommandPrefix rune
	InviteCache   string
}

// LimitConfig holds client-side admission and presence policy knobs.
type LimitConfig struct {
	MaxMessageLength  int
	RateLimitMaxSends int
	RateLimitWindow   time.Duration
	TypingTTL         time.Duration
	TypingRebroadcast time.Duration
	BannerTTL         time.Duration
	DMPollInterval    time.Duration
}

// Load builds the configuration from environment variables with sensible defaults.
func Load() Config {
	return Config{
		Database: DatabaseConfig{
			Path:          envOrDefault("COVECHAT_DB_PATH", "covechat.db"),
			AttachmentDir: envOrDefault("COVECHAT_ATTACHMENT_DIR", "attachments"),
		},
		JWT: loadJWTConfig(),
		Client: ClientConfig{
			CommandPrefix: loadCommandPrefix(),
			InviteCache:   envOrDefault("COVECHAT_INVITE_CACHE", ""),
		},
		Limits: LimitConfig{
			MaxMessageLength:  envInt("COVECHAT_MAX_MESSAGE_LENGTH", 2000),
			RateLimitMaxSends: envInt("COVECHAT_RATE_LIMIT_MESSAGES", 3),
			RateLimitWindow:   envDuration("COVECHAT_RATE_LIMIT_WINDOW", 5*time.Second),
			TypingTTL:         envDuration("COVECHAT_TYPING_TTL", 3*time.Second),
			TypingRebroadcast: envDuration("COVECHAT_TYPING_REBROADCAST", time.Second),
			BannerTTL:         envDuration("COVECHAT_BANNER_TTL", 3*time.Second),
			DMPollInterval:    envDuration("COVECHAT_DM_POLL_INTERVAL", 30*time.Second),
		},
	}
}

func loadJWTConfig() JWTConfig {
	return JWTConfig{
		Secret:     envOrDefault("COVECHAT_JWT_SECRET", "replace-me"),
		Issuer:     envOrDefault("COVECHAT_JWT_ISSUER", "covechat"),
		Expiration: envDuration("COVECHAT_JWT_EXPIRATION", 24*time.Hour),
	}
}

func loadCommandPrefix() rune {
	prefix := envOrDefault("COVECHAT_COMMAND_PREFIX", "/")
	runes := []rune(prefix)
	if len(runes) > 0 {
		return runes[0]
	}
	return '/'
}

func envOrDefault(key, value string) string {
	if env, ok := os.LookupEnv(key); ok {
		return env
	}
	return value
}

func envDuration(key string, def time.Duration) time.Duration {
	if env, ok := os.LookupEnv(key); ok {
		if parsed, err := time.ParseDuration(env); err == nil {
			return parsed
		}
	}
	return def
}

func envInt(key string, def int) int {
	if env, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.Atoi(env); err == nil {
			return parsed
		}
	}
	return def
}
