package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	DriverFS       = "fs"
	DriverS3       = "s3"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

type Config struct {
	DBHost      string        `mapstructure:"DB_HOST"`
	DBPort      int           `mapstructure:"DB_PORT"`
	DBUser      string        `mapstructure:"DB_USER"`
	DBPassword  string        `mapstructure:"DB_PASSWORD"`
	DBName      string        `mapstructure:"DB_NAME"`
	DBScheme    string        `mapstructure:"DB_SCHEME"`
	AppPort     string        `mapstructure:"APP_PORT"`
	HTTPTimeout time.Duration `mapstructure:"HTTP_TIMEOUT"`

	// --- S3 ---
	S3Endpoint  string `mapstructure:"S3_ENDPOINT"`
	S3Region    string `mapstructure:"S3_REGION"`
	S3Bucket    string `mapstructure:"S3_BUCKET"`
	S3AccessKey string `mapstructure:"S3_ACCESS_KEY"`
	S3SecretKey string `mapstructure:"S3_SECRET_KEY"`
	S3UseSSL    bool   `mapstructure:"S3_USE_SSL"`
	S3PathStyle bool   `mapstructure:"S3_PATH_STYLE"`

	// --- Redis (пустой адрес — без кеша и без lease) ---
	RedisAddr     string `mapstructure:"REDIS_ADDR"`
	RedisDB       int    `mapstructure:"REDIS_DB"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
	RedisPrefix   string `mapstructure:"REDIS_PREFIX"`

	// --- Auth ---
	AuthJWTSecret string        `mapstructure:"AUTH_JWT_SECRET"`
	AuthIssuer    string        `mapstructure:"AUTH_ISSUER"`
	AuthTokenTTL  time.Duration `mapstructure:"AUTH_TOKEN_TTL"`

	// --- Ingest ---
	ChunkRoot      string        `mapstructure:"CHUNK_ROOT"`
	MergeRoot      string        `mapstructure:"MERGE_ROOT"`
	StorageDriver  string        `mapstructure:"STORAGE_DRIVER"`
	StorageRoot    string        `mapstructure:"STORAGE_ROOT"`
	CatalogDriver  string        `mapstructure:"CATALOG_DRIVER"`
	MaxChunkBytes  int64         `mapstructure:"MAX_CHUNK_BYTES"`
	MaxAssetBytes  int64         `mapstructure:"MAX_ASSET_BYTES"`
	SweepInterval  time.Duration `mapstructure:"SWEEP_INTERVAL"`
	ChunkMaxAge    time.Duration `mapstructure:"CHUNK_MAX_AGE"`
	CacheTTL       int           `mapstructure:"CACHE_TTL"` // секунд
	MergeLeaseTTL  time.Duration `mapstructure:"MERGE_LEASE_TTL"`
	CodecAlgorithm string        `mapstructure:"CODEC_ALGORITHM"`
}

func mask(s string) string {
	if s != "" {
		return "********"
	}
	return "(empty)"
}

// String реализует интерфейс Stringer
func (c *Config) String() string {
	var sb strings.Builder
	sb.WriteString("\n")
	sb.WriteString(fmt.Sprintf("  AppPort: %s\n", c.AppPort))
	sb.WriteString(fmt.Sprintf("  HTTPTimeout: %s\n", c.HTTPTimeout))

	sb.WriteString(fmt.Sprintf("  CatalogDriver: %s\n", c.CatalogDriver))
	if c.CatalogDriver == DriverPostgres {
		sb.WriteString(fmt.Sprintf("  DBHost: %s\n", c.DBHost))
		sb.WriteString(fmt.Sprintf("  DBPort: %d\n", c.DBPort))
		sb.WriteString(fmt.Sprintf("  DBUser: %s\n", c.DBUser))
		sb.WriteString(fmt.Sprintf("  DBName: %s\n", c.DBName))
		sb.WriteString(fmt.Sprintf("  DBScheme: %s\n", c.DBScheme))
		// пароль маскируем
		sb.WriteString(fmt.Sprintf("  DBPassword: %s\n", mask(c.DBPassword)))
	}

	sb.WriteString(fmt.Sprintf("  StorageDriver: %s\n", c.StorageDriver))
	if c.StorageDriver == DriverS3 {
		sb.WriteString(fmt.Sprintf("  S3Endpoint: %s\n", c.S3Endpoint))
		sb.WriteString(fmt.Sprintf("  S3Region: %s\n", c.S3Region))
		sb.WriteString(fmt.Sprintf("  S3Bucket: %s\n", c.S3Bucket))
		sb.WriteString(fmt.Sprintf("  S3AccessKey: %s\n", mask(c.S3AccessKey)))
		sb.WriteString(fmt.Sprintf("  S3SecretKey: %s\n", mask(c.S3SecretKey)))
		sb.WriteString(fmt.Sprintf("  S3UseSSL: %v\n", c.S3UseSSL))
		sb.WriteString(fmt.Sprintf("  S3PathStyle: %v\n", c.S3PathStyle))
	} else {
		sb.WriteString(fmt.Sprintf("  StorageRoot: %s\n", c.StorageRoot))
	}

	sb.WriteString(fmt.Sprintf("  RedisAddr: %s\n", c.RedisAddr))
	sb.WriteString(fmt.Sprintf("  RedisDB: %d\n", c.RedisDB))
	sb.WriteString(fmt.Sprintf("  RedisPassword: %s\n", mask(c.RedisPassword)))
	sb.WriteString(fmt.Sprintf("  RedisPrefix: %s\n", c.RedisPrefix))

	sb.WriteString(fmt.Sprintf("  AuthJWTSecret: %s\n", mask(c.AuthJWTSecret)))
	sb.WriteString(fmt.Sprintf("  AuthIssuer: %s\n", c.AuthIssuer))
	sb.WriteString(fmt.Sprintf("  AuthTokenTTL: %s\n", c.AuthTokenTTL))

	sb.WriteString(fmt.Sprintf("  ChunkRoot: %s\n", c.ChunkRoot))
	sb.WriteString(fmt.Sprintf("  MergeRoot: %s\n", c.MergeRoot))
	sb.WriteString(fmt.Sprintf("  MaxChunkBytes: %d\n", c.MaxChunkBytes))
	sb.WriteString(fmt.Sprintf("  MaxAssetBytes: %d\n", c.MaxAssetBytes))
	sb.WriteString(fmt.Sprintf("  SweepInterval: %s\n", c.SweepInterval))
	sb.WriteString(fmt.Sprintf("  ChunkMaxAge: %s\n", c.ChunkMaxAge))
	sb.WriteString(fmt.Sprintf("  CacheTTL: %ds\n", c.CacheTTL))
	sb.WriteString(fmt.Sprintf("  MergeLeaseTTL: %s\n", c.MergeLeaseTTL))
	sb.WriteString(fmt.Sprintf("  CodecAlgorithm: %s\n", c.CodecAlgorithm))

	return sb.String()
}

var defaults = map[string]any{
	"APP_PORT":        ":8080",
	"HTTP_TIMEOUT":    "2m",
	"DB_PORT":         5432,
	"DB_SCHEME":       "public",
	"REDIS_PREFIX":    "myassets:",
	"AUTH_ISSUER":     "my-assets",
	"AUTH_TOKEN_TTL":  "24h",
	"CHUNK_ROOT":      "./data/chunks",
	"MERGE_ROOT":      "./data/merged",
	"STORAGE_DRIVER":  DriverFS,
	"STORAGE_ROOT":    "./data/assets",
	"CATALOG_DRIVER":  DriverPostgres,
	"MAX_CHUNK_BYTES": 32 << 20,
	"MAX_ASSET_BYTES": 512 << 20,
	"SWEEP_INTERVAL":  "10m",
	"CHUNK_MAX_AGE":   "24h",
	"CACHE_TTL":       300,
	"MERGE_LEASE_TTL": "5m",
	"CODEC_ALGORITHM": "auto",
}

// LoadFromEnv загружает конфигурацию из переменных окружения
func LoadFromEnv() (*Config, error) {
	// Загружаем .env только для локальной разработки
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(".env"); err != nil {
			return nil, errors.New("failed to load .env")
		}
	}

	v := viper.New()
	v.AutomaticEnv()

	// Регистрируем интересующие ключи окружения
	keys := []string{
		"APP_ENV", "APP_PORT", "HTTP_TIMEOUT",
		"DB_HOST", "DB_PORT", "DB_USER", "DB_PASSWORD", "DB_NAME", "DB_SCHEME",
		"S3_ENDPOINT", "S3_REGION", "S3_BUCKET", "S3_ACCESS_KEY", "S3_SECRET_KEY",
		"S3_USE_SSL", "S3_PATH_STYLE",
		"REDIS_ADDR", "REDIS_DB", "REDIS_PASSWORD", "REDIS_PREFIX",
		"AUTH_JWT_SECRET", "AUTH_ISSUER", "AUTH_TOKEN_TTL",
		"CHUNK_ROOT", "MERGE_ROOT", "STORAGE_DRIVER", "STORAGE_ROOT", "CATALOG_DRIVER",
		"MAX_CHUNK_BYTES", "MAX_ASSET_BYTES", "SWEEP_INTERVAL", "CHUNK_MAX_AGE",
		"CACHE_TTL", "MERGE_LEASE_TTL", "CODEC_ALGORITHM",
	}
	for _, k := range keys {
		_ = v.BindEnv(k)
	}
	for k, val := range defaults {
		v.SetDefault(k, val)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate проверяет согласованность ключей; ошибки собираются все сразу.
func (c *Config) Validate() error {
	var errs []error
	switch c.StorageDriver {
	case DriverFS:
		if c.StorageRoot == "" {
			errs = append(errs, errors.New("STORAGE_ROOT is required for fs driver"))
		}
	case DriverS3:
		if c.S3Endpoint == "" || c.S3Bucket == "" {
			errs = append(errs, errors.New("S3_ENDPOINT and S3_BUCKET are required for s3 driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("STORAGE_DRIVER must be %q or %q, got %q", DriverFS, DriverS3, c.StorageDriver))
	}
	switch c.CatalogDriver {
	case DriverPostgres:
		if c.DBHost == "" || c.DBName == "" {
			errs = append(errs, errors.New("DB_HOST and DB_NAME are required for postgres catalog"))
		}
	case DriverMemory:
	default:
		errs = append(errs, fmt.Errorf("CATALOG_DRIVER must be %q or %q, got %q", DriverPostgres, DriverMemory, c.CatalogDriver))
	}
	if c.AuthJWTSecret == "" {
		errs = append(errs, errors.New("AUTH_JWT_SECRET is required"))
	}
	if c.ChunkRoot == "" || c.MergeRoot == "" {
		errs = append(errs, errors.New("CHUNK_ROOT and MERGE_ROOT are required"))
	}
	if c.MaxChunkBytes <= 0 {
		errs = append(errs, fmt.Errorf("MAX_CHUNK_BYTES must be positive, got %d", c.MaxChunkBytes))
	}
	if c.ChunkMaxAge <= 0 {
		errs = append(errs, fmt.Errorf("CHUNK_MAX_AGE must be positive, got %s", c.ChunkMaxAge))
	}
	return errors.Join(errs...)
}

func (c *Config) GetDSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.DBUser,
		c.DBPassword,
		c.DBHost,
		c.DBPort,
		c.DBName,
	)
}
