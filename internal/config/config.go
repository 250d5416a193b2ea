package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config aggregates runtime configuration for the bot and supporting services.
type Config struct {
	BotToken       string        `envconfig:"BOT_TOKEN" required:"true" validate:"required"`
	BotDebug       bool          `envconfig:"BOT_DEBUG"`
	OpenAIAPIKey   string        `envconfig:"OPENAI_API_KEY" required:"true" validate:"required"`
	OpenAIBaseURL  string        `envconfig:"OPENAI_BASE_URL" default:"https://api.openai.com" validate:"required,url"`
	ImageModel     string        `envconfig:"IMAGE_MODEL"`
	ImageSize      string        `envconfig:"IMAGE_SIZE" default:"512x512" validate:"oneof=256x256 512x512 1024x1024"`
	RequestTimeout time.Duration `envconfig:"HTTP_TIMEOUT" default:"2m" validate:"gt=0"`

	DownloadPath        string `envconfig:"DOWNLOAD_PATH" default:"downloaded_image.jpg" validate:"required"`
	DownloadUniqueNames bool   `envconfig:"DOWNLOAD_UNIQUE_NAMES"`
	DownloadMaxBytes    int64  `envconfig:"DOWNLOAD_MAX_BYTES" default:"33554432" validate:"gt=0"`

	AdminListenAddr string `envconfig:"ADMIN_LISTEN_ADDR" default:":8080"`
	AdminUsername   string `envconfig:"ADMIN_USERNAME" default:"admin"`
	AdminPassword   string `envconfig:"ADMIN_PASSWORD"`

	S3Endpoint      string `envconfig:"S3_ENDPOINT" validate:"omitempty,url"`
	S3Region        string `envconfig:"S3_REGION" validate:"required_with=S3Bucket"`
	S3AccessKey     string `envconfig:"S3_ACCESS_KEY" validate:"required_with=S3Bucket"`
	S3SecretKey     string `envconfig:"S3_SECRET_KEY" validate:"required_with=S3Bucket"`
	S3Bucket        string `envconfig:"S3_BUCKET"`
	S3PublicBaseURL string `envconfig:"S3_PUBLIC_BASE_URL" validate:"required_with=S3Bucket"`
	S3UsePathStyle  bool   `envconfig:"S3_USE_PATH_STYLE"`
	S3Prefix        string `envconfig:"S3_PREFIX" default:"downloads"`
}

// MirrorEnabled reports whether downloads are copied to object storage.
func (c Config) MirrorEnabled() bool {
	return c.S3Bucket != ""
}

// AdminEnabled reports whether the operator HTTP surface should start.
func (c Config) AdminEnabled() bool {
	return c.AdminListenAddr != "" && c.AdminPassword != ""
}

// Load reads configuration from an optional env file and the environment.
func Load() (Config, error) {
	if err := loadEnvFile(); err != nil {
		return Config{}, err
	}
	return FromEnv()
}

// FromEnv decodes and validates the current process environment.
func FromEnv() (Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, fmt.Errorf("process env: %w", err)
	}
	cfg.OpenAIBaseURL = normalizeBaseURL(cfg.OpenAIBaseURL)

	if err := validator.New().Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fmt.Sprintf("%s(%s)", fe.Field(), fe.Tag()))
			}
			return Config{}, fmt.Errorf("invalid configuration: %s", strings.Join(fields, ", "))
		}
		return Config{}, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

// normalizeBaseURL adds a missing scheme and drops a trailing slash so the
// client can resolve endpoint paths against it.
func normalizeBaseURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return raw
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	if parsed.Scheme == "" {
		parsed, err = url.Parse("https://" + raw)
		if err != nil {
			return raw
		}
	}
	return strings.TrimRight(parsed.String(), "/")
}

func loadEnvFile() error {
	candidates := []string{}
	if custom, ok := os.LookupEnv("CONFIG_ENV_PATH"); ok && custom != "" {
		candidates = append(candidates, custom)
	}
	candidates = append(candidates,
		filepath.Join("configs", ".env"),
		".env",
	)

	for _, path := range candidates {
		info, err := os.Stat(path)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return fmt.Errorf("access env file %s: %w", path, err)
		}
		if info.IsDir() {
			continue
		}
		if err := godotenv.Load(path); err != nil {
			return fmt.Errorf("load env file %s: %w", path, err)
		}
		return nil
	}
	// No env file is fine; the process environment may carry everything.
	return nil
}
