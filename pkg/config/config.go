package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = ""

	AppEnvDev  = "development"
	AppEnvProd = "production"
)

type Config struct {
	App     AppConfig
	API     APIConfig
	Auth    AuthConfig
	Cart    CartConfig
	LocalDB LocalDBConfig
	Upload  UploadConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.API.validate(); err != nil {
		return nil, err
	}
	if err := cfg.Cart.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"SOLARMART_APP_ENV" default:"development"`
	LogLevel     string `envconfig:"SOLARMART_LOG_LEVEL" default:"info"`
	LogFormat    string `envconfig:"SOLARMART_LOG_FORMAT" default:"json"`
	LogWarnStack bool   `envconfig:"SOLARMART_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type APIConfig struct {
	BaseURL        string        `envconfig:"SOLARMART_API_BASE_URL" required:"true"`
	RequestTimeout time.Duration `envconfig:"SOLARMART_API_REQUEST_TIMEOUT" default:"30s"`
}

func (a APIConfig) validate() error {
	parsed, err := url.Parse(a.BaseURL)
	if err != nil {
		return fmt.Errorf("invalid api base url: %w", err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("api base url must be absolute, got %q", a.BaseURL)
	}
	if a.RequestTimeout <= 0 {
		return fmt.Errorf("request timeout must be positive")
	}
	return nil
}

type AuthConfig struct {
	LoginPath      string   `envconfig:"SOLARMART_AUTH_LOGIN_PATH" default:"/login"`
	ProtectedPaths []string `envconfig:"SOLARMART_AUTH_PROTECTED_PATHS" default:"/account,/checkout,/orders,/cart"`
}

// IsProtected reports whether the given navigation path sits behind auth.
func (a AuthConfig) IsProtected(path string) bool {
	for _, prefix := range a.ProtectedPaths {
		if prefix == "" {
			continue
		}
		if path == prefix || strings.HasPrefix(path, prefix+"/") {
			return true
		}
	}
	return false
}

type CartConfig struct {
	MinQuantityPerItem int `envconfig:"SOLARMART_CART_MIN_QTY_PER_ITEM" default:"1"`
	MaxQuantityPerItem int `envconfig:"SOLARMART_CART_MAX_QTY_PER_ITEM" default:"999"`
}

func (c CartConfig) validate() error {
	if c.MinQuantityPerItem < 1 {
		return fmt.Errorf("min quantity per item must be at least 1")
	}
	if c.MaxQuantityPerItem < c.MinQuantityPerItem {
		return fmt.Errorf("max quantity per item must be >= min quantity")
	}
	return nil
}

type LocalDBConfig struct {
	Path string `envconfig:"SOLARMART_LOCAL_DB_PATH" default:"solarmart.db"`
}

type UploadConfig struct {
	MaxFileMB   int `envconfig:"SOLARMART_UPLOAD_MAX_FILE_MB" default:"50"`
	Concurrency int `envconfig:"SOLARMART_UPLOAD_CONCURRENCY" default:"3"`
}
