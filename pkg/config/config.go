package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Dispatch modes
const (
	DispatchSync  = "sync"
	DispatchAsync = "async"
)

type Config struct {
	Port        string `mapstructure:"PORT"`
	Env         string `mapstructure:"ENV"`
	LogLevel    string `mapstructure:"LOG_LEVEL"`
	MetricsPort string `mapstructure:"METRICS_PORT"`

	PostgresConnStr    string `mapstructure:"POSTGRES_CONN_STR"`
	MongoURI           string `mapstructure:"MONGO_URI"`
	MongoDatabase      string `mapstructure:"MONGO_DATABASE"`
	DeliveryLogBackend string `mapstructure:"DELIVERY_LOG_BACKEND"` // postgres | mongo

	RedisURL           string        `mapstructure:"REDIS_URL"`
	PreferenceCacheTTL time.Duration `mapstructure:"PREFERENCE_CACHE_TTL"`

	AuthProvider            string `mapstructure:"AUTH_PROVIDER"` // jwt | firebase
	JWTSecret               string `mapstructure:"JWT_SECRET"`
	FirebaseCredentialsPath string `mapstructure:"FIREBASE_CREDENTIALS_PATH"`
	ServiceToken            string `mapstructure:"SERVICE_TOKEN"` // producers sending to any user

	PushProvider    string `mapstructure:"PUSH_PROVIDER"` // webpush | fcm
	VAPIDPublicKey  string `mapstructure:"VAPID_PUBLIC_KEY"`
	VAPIDPrivateKey string `mapstructure:"VAPID_PRIVATE_KEY"`
	VAPIDSubject    string `mapstructure:"VAPID_SUBJECT"`

	SMTPHost     string `mapstructure:"SMTP_HOST"`
	SMTPPort     string `mapstructure:"SMTP_PORT"`
	SMTPUsername string `mapstructure:"SMTP_USERNAME"`
	SMTPPassword string `mapstructure:"SMTP_PASSWORD"`
	SMTPFrom     string `mapstructure:"SMTP_FROM"`

	EmailTimeout time.Duration `mapstructure:"EMAIL_TIMEOUT"`
	PushTimeout  time.Duration `mapstructure:"PUSH_TIMEOUT"`
	DispatchMode string        `mapstructure:"DISPATCH_MODE"` // sync | async
}

var keys = []string{
	"PORT", "ENV", "LOG_LEVEL", "METRICS_PORT",
	"POSTGRES_CONN_STR", "MONGO_URI", "MONGO_DATABASE", "DELIVERY_LOG_BACKEND",
	"REDIS_URL", "PREFERENCE_CACHE_TTL",
	"AUTH_PROVIDER", "JWT_SECRET", "FIREBASE_CREDENTIALS_PATH", "SERVICE_TOKEN",
	"PUSH_PROVIDER", "VAPID_PUBLIC_KEY", "VAPID_PRIVATE_KEY", "VAPID_SUBJECT",
	"SMTP_HOST", "SMTP_PORT", "SMTP_USERNAME", "SMTP_PASSWORD", "SMTP_FROM",
	"EMAIL_TIMEOUT", "PUSH_TIMEOUT", "DISPATCH_MODE",
}

// Load reads .env (if present), an optional config.yaml and the environment.
// Environment variables win over the file; defaults fill the rest.
func Load() (*Config, error) {
	// A missing .env is fine: production sets real environment variables.
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AutomaticEnv()

	v.SetDefault("PORT", "8080")
	v.SetDefault("ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("METRICS_PORT", "9090")
	v.SetDefault("MONGO_DATABASE", "notifications")
	v.SetDefault("DELIVERY_LOG_BACKEND", "postgres")
	v.SetDefault("PREFERENCE_CACHE_TTL", 5*time.Minute)
	v.SetDefault("AUTH_PROVIDER", "jwt")
	v.SetDefault("PUSH_PROVIDER", "webpush")
	v.SetDefault("VAPID_SUBJECT", "mailto:notifications@example.com")
	v.SetDefault("SMTP_PORT", "587")
	v.SetDefault("EMAIL_TIMEOUT", 10*time.Second)
	v.SetDefault("PUSH_TIMEOUT", 5*time.Second)
	v.SetDefault("DISPATCH_MODE", DispatchSync)

	// Unmarshal only sees keys viper knows about; bind the rest so env-only values load.
	for _, key := range keys {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("bind %s: %w", key, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.PostgresConnStr == "" {
		return fmt.Errorf("POSTGRES_CONN_STR environment variable not set")
	}
	switch c.DeliveryLogBackend {
	case "postgres":
	case "mongo":
		if c.MongoURI == "" {
			return fmt.Errorf("DELIVERY_LOG_BACKEND=mongo requires MONGO_URI")
		}
	default:
		return fmt.Errorf("unknown DELIVERY_LOG_BACKEND %q", c.DeliveryLogBackend)
	}
	switch c.AuthProvider {
	case "jwt", "firebase":
	default:
		return fmt.Errorf("unknown AUTH_PROVIDER %q", c.AuthProvider)
	}
	switch c.PushProvider {
	case "webpush", "fcm":
	default:
		return fmt.Errorf("unknown PUSH_PROVIDER %q", c.PushProvider)
	}
	switch c.DispatchMode {
	case DispatchSync, DispatchAsync:
	default:
		return fmt.Errorf("unknown DISPATCH_MODE %q", c.DispatchMode)
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}
