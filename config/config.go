// Package config loads runtime settings for the payroll server and CLI.
//
// Sources, lowest precedence first: built-in defaults, an optional
// payroll.yaml / payroll.json (or an explicit file), an optional .env file,
// and PAYROLL_* environment variables (PAYROLL_ENGINE_RETENTIONRATE,
// PAYROLL_SERVER_PORT, ...).
package config

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"

	"github.com/warp/studio-payroll/payroll"
	"github.com/warp/studio-payroll/schedule"
)

const envPrefix = "PAYROLL"

// Config is the full runtime configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Engine    EngineConfig    `mapstructure:"engine"`
	Schedule  ScheduleConfig  `mapstructure:"schedule"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
}

type ServerConfig struct {
	Port           string   `mapstructure:"port"`
	DB             string   `mapstructure:"db"`
	AllowedOrigins []string `mapstructure:"allowedOrigins"`
}

// EngineConfig holds rates as decimal strings so 0.08 stays exact.
type EngineConfig struct {
	RetentionRate           string        `mapstructure:"retentionRate"`
	CoverRate               string        `mapstructure:"coverRate"`
	BrandingRate            string        `mapstructure:"brandingRate"`
	ThemeRideRate           string        `mapstructure:"themeRideRate"`
	PenaltyAllowancePercent int           `mapstructure:"penaltyAllowancePercent"`
	MaxPenaltyDiscount      int           `mapstructure:"maxPenaltyDiscount"`
	DoubleShiftWindow       time.Duration `mapstructure:"doubleShiftWindow"`
	Timezone                string        `mapstructure:"timezone"`
}

// ScheduleConfig selects the non-prime hour policy. File, when set, is a
// YAML slot document and its discipline wins over Discipline.
type ScheduleConfig struct {
	Discipline string `mapstructure:"discipline"`
	File       string `mapstructure:"file"`
}

// SchedulerConfig drives the periodic recalculation of one open period.
type SchedulerConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Interval time.Duration `mapstructure:"interval"`
	Tenant   string        `mapstructure:"tenant"`
	Period   string        `mapstructure:"period"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.db", "./data/payroll.db")
	v.SetDefault("server.allowedOrigins", []string{"http://localhost:3000", "http://localhost:5173"})

	v.SetDefault("engine.retentionRate", "0.08")
	v.SetDefault("engine.coverRate", "80")
	v.SetDefault("engine.brandingRate", "5")
	v.SetDefault("engine.themeRideRate", "30")
	v.SetDefault("engine.penaltyAllowancePercent", 10)
	v.SetDefault("engine.maxPenaltyDiscount", 10)
	v.SetDefault("engine.doubleShiftWindow", "1h")
	v.SetDefault("engine.timezone", payroll.DefaultTimezone)

	v.SetDefault("schedule.discipline", "Síclo")
	v.SetDefault("schedule.file", "")

	v.SetDefault("scheduler.enabled", false)
	v.SetDefault("scheduler.interval", "1h")
	v.SetDefault("scheduler.tenant", "default")
	v.SetDefault("scheduler.period", "")
}

// Load reads the configuration. An empty path searches the working
// directory for payroll.yaml / payroll.json and tolerates its absence; an
// explicit path must exist.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Printf("[Config] no .env file loaded, using process environment")
	}

	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", path, err)
		}
	} else {
		v.SetConfigName("payroll")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("error reading config file: %w", err)
			}
		}
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks values that the engine cannot recover from.
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server.port is required")
	}
	if _, err := c.Payroll(); err != nil {
		return err
	}
	if c.Schedule.File == "" && strings.TrimSpace(c.Schedule.Discipline) == "" {
		return fmt.Errorf("schedule.discipline is required when schedule.file is not set")
	}
	if c.Scheduler.Enabled {
		if c.Scheduler.Interval <= 0 {
			return fmt.Errorf("scheduler.interval must be positive")
		}
		if c.Scheduler.Period == "" {
			return fmt.Errorf("scheduler.period is required when the scheduler is enabled")
		}
	}
	return nil
}

// Payroll converts the engine section into payroll.EngineConfig.
func (c *Config) Payroll() (payroll.EngineConfig, error) {
	out := payroll.DefaultEngineConfig()

	rates := []struct {
		key string
		raw string
		dst *decimal.Decimal
	}{
		{"engine.retentionRate", c.Engine.RetentionRate, &out.RetentionRate},
		{"engine.coverRate", c.Engine.CoverRate, &out.CoverRate},
		{"engine.brandingRate", c.Engine.BrandingRate, &out.BrandingRate},
		{"engine.themeRideRate", c.Engine.ThemeRideRate, &out.ThemeRideRate},
	}
	for _, r := range rates {
		d, err := decimal.NewFromString(strings.TrimSpace(r.raw))
		if err != nil {
			return out, fmt.Errorf("%s: invalid decimal %q", r.key, r.raw)
		}
		if d.IsNegative() {
			return out, fmt.Errorf("%s must not be negative, got %s", r.key, d)
		}
		*r.dst = d
	}
	if out.RetentionRate.GreaterThan(decimal.NewFromInt(1)) {
		return out, fmt.Errorf("engine.retentionRate must be a fraction, got %s", out.RetentionRate)
	}

	if c.Engine.PenaltyAllowancePercent < 0 {
		return out, fmt.Errorf("engine.penaltyAllowancePercent must not be negative")
	}
	if c.Engine.MaxPenaltyDiscount < 0 || c.Engine.MaxPenaltyDiscount > 100 {
		return out, fmt.Errorf("engine.maxPenaltyDiscount must be between 0 and 100")
	}
	if c.Engine.DoubleShiftWindow < 0 {
		return out, fmt.Errorf("engine.doubleShiftWindow must not be negative")
	}
	out.PenaltyAllowancePercent = c.Engine.PenaltyAllowancePercent
	out.MaxPenaltyDiscount = c.Engine.MaxPenaltyDiscount
	out.DoubleShiftWindow = c.Engine.DoubleShiftWindow

	loc, err := time.LoadLocation(c.Engine.Timezone)
	if err != nil {
		return out, fmt.Errorf("engine.timezone: unknown zone %q", c.Engine.Timezone)
	}
	out.Location = loc

	return out, nil
}

// NonPrimePolicy builds the configured non-prime hour policy.
func (c *Config) NonPrimePolicy() (*schedule.Policy, error) {
	if c.Schedule.File != "" {
		return schedule.LoadFile(c.Schedule.File)
	}
	return schedule.ForDiscipline(c.Schedule.Discipline)
}
