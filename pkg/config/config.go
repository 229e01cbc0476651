package config

import (
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Store drivers understood by kvstore.Open.
const (
	StoreMemory   = "memory"
	StoreFile     = "file"
	StorePostgres = "postgres"
	StoreRedis    = "redis"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Store    StoreConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Cache    CacheConfig
	JWT      JWTConfig
	CORS     CORSConfig
	Log      LogConfig
	Admin    AdminConfig
	Uploads  UploadConfig
}

// StoreConfig selects and tunes the document store backend.
type StoreConfig struct {
	Driver           string
	FileDir          string
	MaxDocumentBytes int64
	WriteRetries     int
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// CacheConfig governs the Redis-backed stats cache.
type CacheConfig struct {
	Enabled  bool
	StatsTTL time.Duration
}

type JWTConfig struct {
	Secret     string
	Expiration time.Duration
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// AdminConfig describes the bootstrap super admin account.
type AdminConfig struct {
	Email    string
	Password string
}

// UploadConfig bounds note uploads and the lifecycle of drafts and download links.
type UploadConfig struct {
	MaxFileSizeBytes  int64
	PendingTTL        time.Duration
	SweepInterval     time.Duration
	DownloadURLSecret string
	DownloadURLTTL    time.Duration
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !isMissingFile(err) {
			return nil, err
		}
	}

	return fromViper(v), nil
}

func fromViper(v *viper.Viper) *Config {
	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	maxDoc := v.GetInt64("STORE_MAX_DOCUMENT_BYTES")
	if maxDoc <= 0 {
		maxDoc = 256 * 1024 * 1024
	}
	retries := v.GetInt("STORE_WRITE_RETRIES")
	if retries <= 0 {
		retries = 3
	}
	cfg.Store = StoreConfig{
		Driver:           strings.ToLower(v.GetString("STORE_DRIVER")),
		FileDir:          v.GetString("STORE_FILE_DIR"),
		MaxDocumentBytes: maxDoc,
		WriteRetries:     retries,
	}

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.Cache = CacheConfig{
		Enabled:  v.GetBool("CACHE_ENABLED"),
		StatsTTL: parseDuration(v.GetString("STATS_CACHE_TTL"), 5*time.Minute),
	}

	cfg.JWT = JWTConfig{
		Secret:     v.GetString("JWT_SECRET"),
		Expiration: parseDuration(v.GetString("JWT_EXPIRATION"), 24*time.Hour),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Admin = AdminConfig{
		Email:    strings.ToLower(strings.TrimSpace(v.GetString("ADMIN_EMAIL"))),
		Password: v.GetString("ADMIN_PASSWORD"),
	}

	maxUpload := v.GetInt64("UPLOAD_MAX_FILE_SIZE")
	if maxUpload <= 0 {
		maxUpload = 10 * 1024 * 1024
	}
	cfg.Uploads = UploadConfig{
		MaxFileSizeBytes:  maxUpload,
		PendingTTL:        parseDuration(v.GetString("PENDING_UPLOAD_TTL"), 24*time.Hour),
		SweepInterval:     parseDuration(v.GetString("SWEEP_INTERVAL"), time.Hour),
		DownloadURLSecret: v.GetString("DOWNLOAD_URL_SECRET"),
		DownloadURLTTL:    parseDuration(v.GetString("DOWNLOAD_URL_TTL"), 15*time.Minute),
	}

	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("STORE_DRIVER", StoreMemory)
	v.SetDefault("STORE_FILE_DIR", "./data")
	v.SetDefault("STORE_MAX_DOCUMENT_BYTES", 256*1024*1024)
	v.SetDefault("STORE_WRITE_RETRIES", 3)

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "uninotes")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("CACHE_ENABLED", false)
	v.SetDefault("STATS_CACHE_TTL", "5m")

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_EXPIRATION", "24h")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("ADMIN_EMAIL", "admin@uninotes.com")
	v.SetDefault("ADMIN_PASSWORD", "admin123")

	v.SetDefault("UPLOAD_MAX_FILE_SIZE", 10*1024*1024)
	v.SetDefault("PENDING_UPLOAD_TTL", "24h")
	v.SetDefault("SWEEP_INTERVAL", "1h")
	v.SetDefault("DOWNLOAD_URL_SECRET", "dev_download_secret")
	v.SetDefault("DOWNLOAD_URL_TTL", "15m")
}

func isMissingFile(err error) bool {
	return strings.Contains(err.Error(), "no such file or directory")
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
