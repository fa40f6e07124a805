package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Default assets that must never be deleted from the object store.
var DefaultProtectedAssets = []string{
	"https://res.cloudinary.com/dzsgn2ubp/image/upload/v1765359366/placeholder_vpwjqg.avif",
	"https://res.cloudinary.com/dzsgn2ubp/image/upload/v1760335059/192.168.88.27_5173__fbtge9.png",
}

type Config struct {
	App     AppConfig
	Mongo   MongoConfig
	Redis   RedisConfig
	JWT     JWTConfig
	Uploads UploadConfig
	SMTP    SMTPConfig
}

type AppConfig struct {
	Port        string
	Environment string
	DomainName  string
	FrontendURL string
	LogLevel    string
	// StoreBackend selects the persistence layer: "mongo" or "memory".
	StoreBackend string
}

func (a AppConfig) IsProduction() bool { return a.Environment == "production" }

type MongoConfig struct {
	URI      string
	Database string
	Timeout  time.Duration
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type JWTConfig struct {
	Secret         string
	AccessTokenTTL time.Duration
}

type UploadConfig struct {
	Dir             string
	PublicBaseURL   string
	MaxBytes        int64
	ProtectedAssets []string
}

type SMTPConfig struct {
	Server   string
	Port     int
	Address  string
	Password string
}

// Load reads an optional .env file and then the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()
	return load(viper.New())
}

// LoadFile is Load with an explicit env file.
func LoadFile(path string) (*Config, error) {
	if err := godotenv.Load(path); err != nil {
		return nil, fmt.Errorf("read env file %s: %w", path, err)
	}
	return load(viper.New())
}

func load(v *viper.Viper) (*Config, error) {
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	setDefaults(v)

	cfg := bind(v)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("PORT", "4000")
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("DOMAIN_NAME", "localhost")
	v.SetDefault("FRONTEND_URL", "http://localhost:5173")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("STORE_BACKEND", "mongo")

	v.SetDefault("MONGO_URI", "mongodb://localhost:27017/?replicaSet=rs0")
	v.SetDefault("MONGO_DB", "eventweb")
	v.SetDefault("MONGO_TIMEOUT", "10s")

	v.SetDefault("REDIS_ADDR", "localhost:6379")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("ACCESS_TOKEN_TTL", "168h")

	v.SetDefault("UPLOAD_DIR", "static/uploads")
	v.SetDefault("PUBLIC_BASE_URL", "http://localhost:4000")
	v.SetDefault("MAX_UPLOAD_BYTES", 10<<20)
	v.SetDefault("PROTECTED_ASSET_URLS", strings.Join(DefaultProtectedAssets, ","))

	v.SetDefault("SMTP_SERVER", "smtp.gmail.com")
	v.SetDefault("SMTP_PORT", 587)
}

func bind(v *viper.Viper) *Config {
	cfg := &Config{}

	cfg.App.Port = v.GetString("PORT")
	cfg.App.Environment = v.GetString("APP_ENV")
	cfg.App.DomainName = v.GetString("DOMAIN_NAME")
	cfg.App.FrontendURL = strings.TrimRight(v.GetString("FRONTEND_URL"), "/")
	cfg.App.LogLevel = v.GetString("LOG_LEVEL")
	cfg.App.StoreBackend = strings.ToLower(v.GetString("STORE_BACKEND"))

	cfg.Mongo.URI = v.GetString("MONGO_URI")
	cfg.Mongo.Database = v.GetString("MONGO_DB")
	cfg.Mongo.Timeout = v.GetDuration("MONGO_TIMEOUT")

	cfg.Redis.Addr = v.GetString("REDIS_ADDR")
	cfg.Redis.Password = v.GetString("REDIS_PASSWORD")
	cfg.Redis.DB = v.GetInt("REDIS_DB")

	cfg.JWT.Secret = v.GetString("JWT_SECRET_ACCESS")
	cfg.JWT.AccessTokenTTL = v.GetDuration("ACCESS_TOKEN_TTL")

	cfg.Uploads.Dir = v.GetString("UPLOAD_DIR")
	cfg.Uploads.PublicBaseURL = strings.TrimRight(v.GetString("PUBLIC_BASE_URL"), "/")
	cfg.Uploads.MaxBytes = v.GetInt64("MAX_UPLOAD_BYTES")
	cfg.Uploads.ProtectedAssets = splitList(v.GetString("PROTECTED_ASSET_URLS"))

	cfg.SMTP.Server = v.GetString("SMTP_SERVER")
	cfg.SMTP.Port = v.GetInt("SMTP_PORT")
	cfg.SMTP.Address = v.GetString("OFFICE_EMAIL_ADDRESS")
	cfg.SMTP.Password = v.GetString("OFFICE_EMAIL_PASSWORD")

	return cfg
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func (c *Config) Validate() error {
	if c.JWT.Secret == "" {
		return errors.New("JWT_SECRET_ACCESS is required")
	}
	if c.JWT.AccessTokenTTL <= 0 {
		return errors.New("ACCESS_TOKEN_TTL must be positive")
	}
	switch c.App.StoreBackend {
	case "mongo":
		if c.Mongo.URI == "" {
			return errors.New("MONGO_URI is required for the mongo backend")
		}
	case "memory":
	default:
		return fmt.Errorf("unknown STORE_BACKEND %q", c.App.StoreBackend)
	}
	if c.Uploads.MaxBytes <= 0 {
		return errors.New("MAX_UPLOAD_BYTES must be positive")
	}
	return nil
}

// Addr returns the listen address for the HTTP server.
func (c *Config) Addr() string {
	if strings.HasPrefix(c.App.Port, ":") {
		return c.App.Port
	}
	return ":" + c.App.Port
}
