package config

import (
	"fmt"
	"net/netip"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"

	"bookmarket/internal/apperr"
)

// HTTPConfig.TrustedProxies lists the IPs or CIDRs allowed to set
// X-Forwarded-For. Empty means the peer address is always the client.
type HTTPConfig struct {
	Host           string
	Port           int
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	TrustedProxies []string
}

type PostgresConfig struct {
	DSN             string
	MaxOpen         int
	MaxIdle         int
	ConnMaxLifetime time.Duration
	AutoMigrate     bool
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Stream   string
	Group    string
	Consumer string
}

// StorageConfig points at the S3-compatible image host. PublicURL, when set,
// replaces the endpoint as the base of returned image links (CDN in front of
// the bucket).
type StorageConfig struct {
	Endpoint  string
	PublicURL string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
	Region    string
}

type SecurityConfig struct {
	SessionSecret     string
	UploadSecret      string
	LoginFailureDelay time.Duration
	AuthRateLimit     int
	AuthRateWindow    time.Duration
}

type UploadConfig struct {
	MaxBytes     int64
	MaxBatchSize int
}

type QueueConfig struct {
	ClaimInterval time.Duration
}

type AppConfig struct {
	Environment      string
	HTTP             HTTPConfig
	Postgres         PostgresConfig
	Redis            RedisConfig
	Storage          StorageConfig
	Security         SecurityConfig
	Upload           UploadConfig
	Queues           QueueConfig
	AllowCORSOrigins []string
}

func (c *AppConfig) IsProduction() bool {
	return c.Environment == "production"
}

// Validate reports every missing or unusable setting at once. The process
// must not start serving when it fails.
func (c *AppConfig) Validate() error {
	var missing, invalid []string
	if c.Postgres.DSN == "" {
		missing = append(missing, "postgres.dsn")
	}
	if c.Security.SessionSecret == "" {
		missing = append(missing, "security.sessionsecret")
	}
	if c.Security.UploadSecret == "" {
		missing = append(missing, "security.uploadsecret")
	}
	if c.Storage.Endpoint == "" {
		missing = append(missing, "storage.endpoint")
	}
	if c.Storage.AccessKey == "" || c.Storage.SecretKey == "" {
		missing = append(missing, "storage.accesskey/storage.secretkey")
	}

	if c.Queues.ClaimInterval <= 0 {
		invalid = append(invalid, "queues.claiminterval must be positive")
	}
	for _, proxy := range c.HTTP.TrustedProxies {
		if !validProxy(proxy) {
			invalid = append(invalid, fmt.Sprintf("http.trustedproxies entry %q is not an IP or CIDR", proxy))
		}
	}

	var problems []string
	if len(missing) > 0 {
		problems = append(problems, "missing required configuration: "+strings.Join(missing, ", "))
	}
	if len(invalid) > 0 {
		problems = append(problems, "invalid configuration: "+strings.Join(invalid, ", "))
	}
	if len(problems) > 0 {
		return apperr.Configuration("%s", strings.Join(problems, "; "))
	}
	return nil
}

func validProxy(proxy string) bool {
	if _, err := netip.ParsePrefix(proxy); err == nil {
		return true
	}
	_, err := netip.ParseAddr(proxy)
	return err == nil
}

func Load() (*AppConfig, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("../config")

	v.SetEnvPrefix("BOOKMARKET")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("load config file: %w", err)
		}
	}

	var cfg AppConfig
	if err := v.Unmarshal(&cfg, func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "development")

	v.SetDefault("http.host", "0.0.0.0")
	v.SetDefault("http.port", 8080)
	v.SetDefault("http.readtimeout", "10s")
	v.SetDefault("http.writetimeout", "30s")
	v.SetDefault("http.idletimeout", "60s")
	v.SetDefault("http.trustedproxies", []string{})

	// Keys without a usable default are still registered so env overrides
	// reach Unmarshal.
	v.SetDefault("postgres.dsn", "")
	v.SetDefault("postgres.maxopen", 20)
	v.SetDefault("postgres.maxidle", 2)
	v.SetDefault("postgres.connmaxlifetime", "30m")
	v.SetDefault("postgres.automigrate", true)

	v.SetDefault("redis.addr", "127.0.0.1:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.stream", "listings:events")
	v.SetDefault("redis.group", "listing-workers")
	v.SetDefault("redis.consumer", "worker-1")

	v.SetDefault("storage.endpoint", "")
	v.SetDefault("storage.publicurl", "")
	v.SetDefault("storage.accesskey", "")
	v.SetDefault("storage.secretkey", "")
	v.SetDefault("storage.bucket", "bookmarket-images")
	v.SetDefault("storage.usessl", false)
	v.SetDefault("storage.region", "us-east-1")

	v.SetDefault("security.sessionsecret", "")
	v.SetDefault("security.uploadsecret", "")
	v.SetDefault("security.loginfailuredelay", "1s")
	v.SetDefault("security.authratelimit", 20)
	v.SetDefault("security.authratewindow", "1m")

	v.SetDefault("upload.maxbytes", 5*1024*1024)
	v.SetDefault("upload.maxbatchsize", 10)

	v.SetDefault("queues.claiminterval", "30s")

	v.SetDefault("allowcorsorigins", []string{})
}
