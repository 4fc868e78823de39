package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config captures environment driven configuration values for the office service.
type Config struct {
	HTTPPort           int
	SQLiteDSN          string
	JWTSecret          string
	AccessTokenTTL     time.Duration
	RefreshTokenTTL    time.Duration
	LogLevel           string
	LogFormat          string
	RateLimitPerMinute int
	MaxUploadBytes     int64
	MaxSeriesLength    int

	ImageStore string
	ImageDir   string
	S3         S3Config

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	LockTTL       time.Duration

	Policy Policy
}

// S3Config addresses an S3 compatible bucket for employee images.
type S3Config struct {
	Bucket          string
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	UsePathStyle    bool
}

// Load parses configuration values from the current process environment.
//
// A .env file in the working directory (or at OFFICE_ENV_FILE) is read first;
// variables already present in the environment win. Optional fields fall back
// to defaults, and every missing or invalid entry is reported at once.
func Load() (Config, error) {
	if err := loadDotEnv(strings.TrimSpace(os.Getenv("OFFICE_ENV_FILE"))); err != nil {
		return Config{}, err
	}

	cfg := Config{
		HTTPPort:           8080,
		SQLiteDSN:          "office.db",
		AccessTokenTTL:     15 * time.Minute,
		RefreshTokenTTL:    7 * 24 * time.Hour,
		LogLevel:           "info",
		LogFormat:          "json",
		RateLimitPerMinute: 20,
		MaxUploadBytes:     10 << 20,
		MaxSeriesLength:    366,
		ImageStore:         "local",
		ImageDir:           "media/employees",
		LockTTL:            30 * time.Second,
		Policy:             DefaultPolicy(),
	}

	missing := make([]string, 0, 1)
	invalid := make([]string, 0, 4)

	intVar := func(name string, min int, target *int) {
		if value := strings.TrimSpace(os.Getenv(name)); value != "" {
			parsed, err := strconv.Atoi(value)
			if err != nil || parsed < min {
				invalid = append(invalid, name)
				return
			}
			*target = parsed
		}
	}
	durationVar := func(name string, target *time.Duration) {
		if value := strings.TrimSpace(os.Getenv(name)); value != "" {
			parsed, err := time.ParseDuration(value)
			if err != nil || parsed <= 0 {
				invalid = append(invalid, name)
				return
			}
			*target = parsed
		}
	}
	stringVar := func(name string, target *string) {
		if value := strings.TrimSpace(os.Getenv(name)); value != "" {
			*target = value
		}
	}

	intVar("OFFICE_HTTP_PORT", 1, &cfg.HTTPPort)
	stringVar("OFFICE_SQLITE_DSN", &cfg.SQLiteDSN)

	if secret := strings.TrimSpace(os.Getenv("OFFICE_JWT_SECRET")); secret == "" {
		missing = append(missing, "OFFICE_JWT_SECRET")
	} else {
		cfg.JWTSecret = secret
	}

	durationVar("OFFICE_ACCESS_TOKEN_TTL", &cfg.AccessTokenTTL)
	durationVar("OFFICE_REFRESH_TOKEN_TTL", &cfg.RefreshTokenTTL)
	stringVar("OFFICE_LOG_LEVEL", &cfg.LogLevel)
	stringVar("OFFICE_LOG_FORMAT", &cfg.LogFormat)
	intVar("OFFICE_RATE_LIMIT_PER_MINUTE", 1, &cfg.RateLimitPerMinute)
	intVar("OFFICE_MAX_SERIES_LENGTH", 1, &cfg.MaxSeriesLength)

	if value := strings.TrimSpace(os.Getenv("OFFICE_MAX_UPLOAD_BYTES")); value != "" {
		parsed, err := strconv.ParseInt(value, 10, 64)
		if err != nil || parsed <= 0 {
			invalid = append(invalid, "OFFICE_MAX_UPLOAD_BYTES")
		} else {
			cfg.MaxUploadBytes = parsed
		}
	}

	stringVar("OFFICE_IMAGE_STORE", &cfg.ImageStore)
	stringVar("OFFICE_IMAGE_DIR", &cfg.ImageDir)
	switch cfg.ImageStore {
	case "local":
	case "s3":
		stringVar("OFFICE_S3_BUCKET", &cfg.S3.Bucket)
		stringVar("OFFICE_S3_REGION", &cfg.S3.Region)
		stringVar("OFFICE_S3_ENDPOINT", &cfg.S3.Endpoint)
		stringVar("OFFICE_S3_ACCESS_KEY_ID", &cfg.S3.AccessKeyID)
		stringVar("OFFICE_S3_SECRET_ACCESS_KEY", &cfg.S3.SecretAccessKey)
		cfg.S3.UsePathStyle = strings.EqualFold(strings.TrimSpace(os.Getenv("OFFICE_S3_PATH_STYLE")), "true")
		if cfg.S3.Bucket == "" {
			missing = append(missing, "OFFICE_S3_BUCKET")
		}
		if cfg.S3.Region == "" {
			cfg.S3.Region = "auto"
		}
	default:
		invalid = append(invalid, "OFFICE_IMAGE_STORE")
	}

	stringVar("OFFICE_REDIS_ADDR", &cfg.RedisAddr)
	stringVar("OFFICE_REDIS_PASSWORD", &cfg.RedisPassword)
	intVar("OFFICE_REDIS_DB", 0, &cfg.RedisDB)
	durationVar("OFFICE_LOCK_TTL", &cfg.LockTTL)

	if path := strings.TrimSpace(os.Getenv("OFFICE_POLICY_FILE")); path != "" {
		policy, err := LoadPolicyFile(path)
		if err != nil {
			return Config{}, err
		}
		cfg.Policy = policy
	}
	if mode := strings.TrimSpace(os.Getenv("OFFICE_ADJACENCY_MODE")); mode != "" {
		cfg.Policy.Adjacency = mode
		if err := cfg.Policy.Validate(); err != nil {
			invalid = append(invalid, "OFFICE_ADJACENCY_MODE")
		}
	}

	if len(missing) > 0 {
		return Config{}, fmt.Errorf("required environment variables are not set: %s", strings.Join(missing, ", "))
	}
	if len(invalid) > 0 {
		return Config{}, fmt.Errorf("environment variables have invalid values: %s", strings.Join(invalid, ", "))
	}

	return cfg, nil
}

func loadDotEnv(path string) error {
	explicit := path != ""
	if !explicit {
		path = ".env"
	}
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) && !explicit {
			return nil
		}
		return fmt.Errorf("env file %s: %w", path, err)
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load env file %s: %w", path, err)
	}
	return nil
}
