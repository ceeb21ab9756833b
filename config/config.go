package config

import (
	"errors"
	"io/fs"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App       AppConfig
	DB        DBConfig
	Redis     RedisConfig
	JWT       JWTConfig
	Log       LogConfig
	Pricing   PricingConfig
	Draft     DraftConfig
	Geo       GeoConfig
	Stripe    StripeConfig
	Geocoder  GeocoderConfig
	Queue     QueueConfig
	Telemetry TelemetryConfig
	RateLimit RateLimitConfig
}

type AppConfig struct {
	Name           string
	Port           string
	Env            string
	Version        string
	AllowedOrigins []string
}

type DBConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
	TimeZone string
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// JWTConfig verifies tokens minted by the identity service. An empty Issuer
// skips the issuer check.
type JWTConfig struct {
	Secret string
	Issuer string
	Leeway time.Duration
}

type LogConfig struct {
	Level           string
	FilePath        string
	FileMaxSizeMB   int
	FileMaxBackups  int
	FileMaxAgeDays  int
	FileCompression bool
}

// PricingConfig holds the platform-wide fee and tax rates, in percent.
type PricingConfig struct {
	ServiceFeePercent float64
	VATPercent        float64
	Currency          string
}

type DraftConfig struct {
	TTL           time.Duration
	ReapInterval  time.Duration
	ReapGrace     time.Duration
	CommitLockTTL time.Duration
}

type GeoConfig struct {
	DefaultRadius  float64
	FallbackRadius float64
	DistanceUnit   string
}

type StripeConfig struct {
	SecretKey  string
	MaxRetries int64
}

type GeocoderConfig struct {
	BaseURL  string
	CacheTTL time.Duration
	Timeout  time.Duration
}

type QueueConfig struct {
	RedisDB     int
	Concurrency int
}

type TelemetryConfig struct {
	OTLPEndpoint string
	OTLPInsecure bool
	SamplingRate float64
}

type RateLimitConfig struct {
	SearchRPS   float64
	SearchBurst int
}

func setDefaults() {
	viper.SetDefault("APP_NAME", "bloodathome")
	viper.SetDefault("APP_PORT", "8080")
	viper.SetDefault("APP_ENV", "development")
	viper.SetDefault("APP_VERSION", "dev")
	viper.SetDefault("DB_SSLMODE", "disable")
	viper.SetDefault("DB_TIMEZONE", "Europe/London")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("LOG_FILE_MAX_SIZE_MB", 100)
	viper.SetDefault("LOG_FILE_MAX_BACKUPS", 5)
	viper.SetDefault("LOG_FILE_MAX_AGE_DAYS", 28)
	viper.SetDefault("PRICING_SERVICE_FEE_PERCENT", 5)
	viper.SetDefault("PRICING_VAT_PERCENT", 20)
	viper.SetDefault("PRICING_CURRENCY", "gbp")
	viper.SetDefault("DRAFT_TTL", "60m")
	viper.SetDefault("DRAFT_REAP_INTERVAL", "15m")
	viper.SetDefault("DRAFT_REAP_GRACE", "24h")
	viper.SetDefault("DRAFT_COMMIT_LOCK_TTL", "30s")
	viper.SetDefault("GEO_DEFAULT_RADIUS", 10)
	viper.SetDefault("GEO_FALLBACK_RADIUS", 25)
	viper.SetDefault("GEO_DISTANCE_UNIT", "mi")
	viper.SetDefault("STRIPE_MAX_RETRIES", 2)
	viper.SetDefault("GEOCODER_BASE_URL", "https://api.postcodes.io")
	viper.SetDefault("GEOCODER_CACHE_TTL", "720h")
	viper.SetDefault("GEOCODER_TIMEOUT", "5s")
	viper.SetDefault("QUEUE_REDIS_DB", 1)
	viper.SetDefault("QUEUE_CONCURRENCY", 10)
	viper.SetDefault("OTEL_SAMPLING_RATE", 1.0)
	viper.SetDefault("RATE_LIMIT_SEARCH_RPS", 5)
	viper.SetDefault("RATE_LIMIT_SEARCH_BURST", 20)
}

// LoadConfig reads the env file at path (optional) and the process environment.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		path = ".env"
	}
	viper.SetConfigFile(path)
	viper.SetConfigType("env")
	viper.AutomaticEnv()
	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		// A missing env file is fine in containers where everything comes from the environment.
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	config := &Config{
		App: AppConfig{
			Name:    viper.GetString("APP_NAME"),
			Port:    viper.GetString("APP_PORT"),
			Env:     viper.GetString("APP_ENV"),
			Version: viper.GetString("APP_VERSION"),

			AllowedOrigins: splitList(viper.GetString("APP_ALLOWED_ORIGINS")),
		},
		DB: DBConfig{
			Host:     viper.GetString("DB_HOST"),
			Port:     viper.GetString("DB_PORT"),
			User:     viper.GetString("DB_USER"),
			Password: viper.GetString("DB_PASSWORD"),
			Name:     viper.GetString("DB_NAME"),
			SSLMode:  viper.GetString("DB_SSLMODE"),
			TimeZone: viper.GetString("DB_TIMEZONE"),
		},
		Redis: RedisConfig{
			Host:     viper.GetString("REDIS_HOST"),
			Port:     viper.GetString("REDIS_PORT"),
			Password: viper.GetString("REDIS_PASSWORD"),
			DB:       viper.GetInt("REDIS_DB"),
		},
		JWT: JWTConfig{
			Secret: viper.GetString("JWT_SECRET"),
			Issuer: viper.GetString("JWT_ISSUER"),
			Leeway: durationOr("JWT_LEEWAY", 30*time.Second),
		},
		Log: LogConfig{
			Level:           viper.GetString("LOG_LEVEL"),
			FilePath:        viper.GetString("LOG_FILE_PATH"),
			FileMaxSizeMB:   viper.GetInt("LOG_FILE_MAX_SIZE_MB"),
			FileMaxBackups:  viper.GetInt("LOG_FILE_MAX_BACKUPS"),
			FileMaxAgeDays:  viper.GetInt("LOG_FILE_MAX_AGE_DAYS"),
			FileCompression: viper.GetBool("LOG_FILE_COMPRESS"),
		},
		Pricing: PricingConfig{
			ServiceFeePercent: viper.GetFloat64("PRICING_SERVICE_FEE_PERCENT"),
			VATPercent:        viper.GetFloat64("PRICING_VAT_PERCENT"),
			Currency:          viper.GetString("PRICING_CURRENCY"),
		},
		Draft: DraftConfig{
			TTL:           durationOr("DRAFT_TTL", 60*time.Minute),
			ReapInterval:  durationOr("DRAFT_REAP_INTERVAL", 15*time.Minute),
			ReapGrace:     durationOr("DRAFT_REAP_GRACE", 24*time.Hour),
			CommitLockTTL: durationOr("DRAFT_COMMIT_LOCK_TTL", 30*time.Second),
		},
		Geo: GeoConfig{
			DefaultRadius:  viper.GetFloat64("GEO_DEFAULT_RADIUS"),
			FallbackRadius: viper.GetFloat64("GEO_FALLBACK_RADIUS"),
			DistanceUnit:   viper.GetString("GEO_DISTANCE_UNIT"),
		},
		Stripe: StripeConfig{
			SecretKey:  viper.GetString("STRIPE_SECRET_KEY"),
			MaxRetries: viper.GetInt64("STRIPE_MAX_RETRIES"),
		},
		Geocoder: GeocoderConfig{
			BaseURL:  viper.GetString("GEOCODER_BASE_URL"),
			CacheTTL: durationOr("GEOCODER_CACHE_TTL", 30*24*time.Hour),
			Timeout:  durationOr("GEOCODER_TIMEOUT", 5*time.Second),
		},
		Queue: QueueConfig{
			RedisDB:     viper.GetInt("QUEUE_REDIS_DB"),
			Concurrency: viper.GetInt("QUEUE_CONCURRENCY"),
		},
		Telemetry: TelemetryConfig{
			OTLPEndpoint: viper.GetString("OTEL_EXPORTER_OTLP_ENDPOINT"),
			OTLPInsecure: viper.GetBool("OTEL_EXPORTER_OTLP_INSECURE"),
			SamplingRate: viper.GetFloat64("OTEL_SAMPLING_RATE"),
		},
		RateLimit: RateLimitConfig{
			SearchRPS:   viper.GetFloat64("RATE_LIMIT_SEARCH_RPS"),
			SearchBurst: viper.GetInt("RATE_LIMIT_SEARCH_BURST"),
		},
	}

	return config, nil
}

// splitList parses a comma-separated env value.
func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func durationOr(key string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(viper.GetString(key))
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
