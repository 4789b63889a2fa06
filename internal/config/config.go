package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"spp-forecast/internal/ercot"
	"spp-forecast/internal/service"
)

// Config is the on-disk configuration shape (YAML). Every field has a
// default, so an empty file or no file at all is valid.
type Config struct {
	ERCOT    ERCOTConfig    `yaml:"ercot"`
	Forecast ForecastConfig `yaml:"forecast"`
	Server   ServerConfig   `yaml:"server"`
	Log      LogConfig      `yaml:"log"`
	Cache    CacheConfig    `yaml:"cache"`
	// Optional JSON list of settlement points; the built-in hubs and load
	// zones are used when empty or missing.
	CatalogFile string `yaml:"catalog_file"`
}

type ERCOTConfig struct {
	TokenURL    string `yaml:"token_url" default:"https://ercotb2c.b2clogin.com/ercotb2c.onmicrosoft.com/B2C_1_PUBAPI-ROPC-FLOW/oauth2/v2.0/token" validate:"required,url"`
	BaseURL     string `yaml:"base_url" default:"https://api.ercot.com/api/public-reports" validate:"required,url"`
	ProductPath string `yaml:"product_path" default:"np6-905-cd/spp_node_zone_hub" validate:"required"`
	ClientID    string `yaml:"client_id" default:"fec253ea-0d06-4272-a5e6-b478baeecd70" validate:"required"`
	Scope       string `yaml:"scope"`

	// Credentials are usually supplied through the environment. They are
	// checked when the first upstream call is made, not at load time.
	Username        string `yaml:"username"`
	Password        string `yaml:"password"`
	SubscriptionKey string `yaml:"subscription_key"`

	MaxRetries    int           `yaml:"max_retries" default:"5" validate:"gte=1,lte=10"`
	BaseRetry     time.Duration `yaml:"base_retry" default:"400ms" validate:"gt=0"`
	MaxRetryDelay time.Duration `yaml:"max_retry_delay" validate:"gte=0"`
	Timeout       time.Duration `yaml:"timeout" default:"15s" validate:"gt=0"`
	TokenTTL      time.Duration `yaml:"token_ttl" default:"50m" validate:"gt=0,lte=1h"`

	RequestsPerSecond float64       `yaml:"requests_per_second" validate:"gte=0"`
	Burst             int           `yaml:"burst" default:"1" validate:"gte=1"`
	Breaker           BreakerConfig `yaml:"breaker"`
}

type BreakerConfig struct {
	Enabled             bool          `yaml:"enabled"`
	ConsecutiveFailures uint32        `yaml:"consecutive_failures" default:"5" validate:"gte=1"`
	OpenTimeout         time.Duration `yaml:"open_timeout" default:"30s" validate:"gt=0"`
}

type ForecastConfig struct {
	Timezone        string `yaml:"timezone" default:"America/Chicago" validate:"required,timezone"`
	SettlementPoint string `yaml:"settlement_point" default:"HB_WEST" validate:"required"`
	HistoryDays     int    `yaml:"history_days" default:"56" validate:"gte=7,lte=366"`
	LookbackShort   int    `yaml:"lookback_short" default:"4" validate:"gte=1"`
	LookbackLong    int    `yaml:"lookback_long" default:"8" validate:"gtefield=LookbackShort"`
	MaxDaysAhead    int    `yaml:"max_days_ahead" default:"6" validate:"gte=0,lte=31"`
}

type ServerConfig struct {
	Port        int      `yaml:"port" default:"8080" validate:"gte=1,lte=65535"`
	Mode        string   `yaml:"mode" default:"development" validate:"oneof=development production test"`
	CORSOrigins []string `yaml:"cors_origins"`
}

type LogConfig struct {
	Level  string `yaml:"level" default:"info" validate:"oneof=trace debug info warn error"`
	Format string `yaml:"format" default:"json" validate:"oneof=json console"`
}

type CacheConfig struct {
	Backend       string        `yaml:"backend" default:"none" validate:"oneof=none memory redis"`
	TTL           time.Duration `yaml:"ttl" default:"1h" validate:"gt=0"`
	RedisAddr     string        `yaml:"redis_addr" validate:"required_if=Backend redis"`
	RedisPassword string        `yaml:"redis_password"`
	RedisDB       int           `yaml:"redis_db" validate:"gte=0"`
}

var validate = validator.New()

// Load builds the configuration from defaults, the optional YAML file at
// path and the environment, in that order, then validates it.
func Load(path string) (*Config, error) {
	c, err := LoadUnchecked(path)
	if err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// LoadUnchecked loads and merges config, but does not validate it.
func LoadUnchecked(path string) (*Config, error) {
	var c Config
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("apply defaults: %w", err)
	}
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(raw, &c); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	}
	if err := c.applyEnv(os.Getenv); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("config invalid: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("config invalid: %w", err)
	}
	if c.Forecast.HistoryDays < 7*c.Forecast.LookbackLong {
		return fmt.Errorf("config invalid: forecast.history_days %d does not cover lookback_long %d weeks",
			c.Forecast.HistoryDays, c.Forecast.LookbackLong)
	}
	return nil
}

func (c *Config) applyEnv(getenv func(string) string) error {
	setStr := func(dst *string, key string) {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			*dst = v
		}
	}
	setStr(&c.ERCOT.Username, "ERCOT_USERNAME")
	setStr(&c.ERCOT.Password, "ERCOT_PASSWORD")
	setStr(&c.ERCOT.SubscriptionKey, "ERCOT_SUBSCRIPTION_KEY")
	setStr(&c.Log.Level, "LOG_LEVEL")
	setStr(&c.Forecast.Timezone, "APP_TIMEZONE")
	setStr(&c.Forecast.SettlementPoint, "SETTLEMENT_POINT")
	setStr(&c.Cache.Backend, "PAGE_CACHE")
	setStr(&c.Cache.RedisAddr, "REDIS_ADDR")
	setStr(&c.CatalogFile, "SETTLEMENT_POINTS_FILE")
	setStr(&c.Server.Mode, "API_ENV")

	if v := strings.TrimSpace(getenv("API_PORT")); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("API_PORT must be a number, got %q", v)
		}
		c.Server.Port = port
	}
	if v := strings.TrimSpace(getenv("CORS_ORIGINS")); v != "" {
		c.Server.CORSOrigins = strings.Split(v, ",")
	}
	return nil
}

// Settings converts the ERCOT section for the upstream clients.
func (e ERCOTConfig) Settings() ercot.Settings {
	return ercot.Settings{
		TokenURL:        e.TokenURL,
		BaseURL:         e.BaseURL,
		ProductPath:     e.ProductPath,
		ClientID:        e.ClientID,
		Scope:           e.Scope,
		Username:        e.Username,
		Password:        e.Password,
		SubscriptionKey: e.SubscriptionKey,
		MaxRetries:      e.MaxRetries,
		BaseRetry:       e.BaseRetry,
		Timeout:         e.Timeout,
		MaxRetryDelay:   e.MaxRetryDelay,
		TokenTTL:        e.TokenTTL,
	}
}

// Options converts the forecast section for the service layer.
func (f ForecastConfig) Options() service.Options {
	return service.Options{
		Timezone:        f.Timezone,
		SettlementPoint: f.SettlementPoint,
		HistoryDays:     f.HistoryDays,
		LookbackShort:   f.LookbackShort,
		LookbackLong:    f.LookbackLong,
		MaxDaysAhead:    f.MaxDaysAhead,
	}
}
