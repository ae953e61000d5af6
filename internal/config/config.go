package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

const EnvPrefix = "INTERVIEW"

type RateLimit struct {
	Events   int           `mapstructure:"events"`
	Interval time.Duration `mapstructure:"interval"`
}

// Client holds the call screen settings of cmd/interview.
type Client struct {
	SignalURL         string        `mapstructure:"signal_url"`
	StoragePath       string        `mapstructure:"storage_path"`
	ICEServers        []string      `mapstructure:"ice_servers"`
	HeartbeatInterval time.Duration `mapstructure:"heartbeat_interval"`
	EndDisplayDelay   time.Duration `mapstructure:"end_display_delay"`
	BusyWindow        time.Duration `mapstructure:"busy_window"`
	LeaveTimeout      time.Duration `mapstructure:"leave_timeout"`
	UnloadTimeout     time.Duration `mapstructure:"unload_timeout"`
	Camera            bool          `mapstructure:"camera"`
	Mic               bool          `mapstructure:"mic"`
	UserRoute         string        `mapstructure:"user_route"`
	CompanyRoute      string        `mapstructure:"company_route"`
}

type Config struct {
	Mode           string        `mapstructure:"mode"`
	Port           int           `mapstructure:"port"`
	StaticPath     string        `mapstructure:"static_path"`
	ReadLimit      int64         `mapstructure:"read_limit"`
	PingPeriod     time.Duration `mapstructure:"ping_period"`
	Secret         string        `mapstructure:"secret"`
	LogLevel       string        `mapstructure:"log_level"`
	DatabaseURL    string        `mapstructure:"database_url"`
	RateLimit      RateLimit     `mapstructure:"rate_limit"`
	PresenceWindow time.Duration `mapstructure:"presence_window"`
	Client         Client        `mapstructure:"client"`
}

// Load reads config/config.<CONFIG_ENV>.yaml (dev when unset). Every key has
// a default and may be overridden by INTERVIEW_<KEY>, dots becoming
// underscores.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	env := os.Getenv("CONFIG_ENV")
	if env == "" {
		env = "dev"
	}
	fileName := fmt.Sprintf("config/config.%s.yaml", env)

	v.SetConfigFile(fileName)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		log.Warn().Str("module", "config").Str("file", fileName).Msg("config file not found, using defaults")
	} else {
		log.Info().Str("module", "config").Str("file", fileName).Msg("loaded config")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	log.Info().
		Str("module", "config").
		Str("mode", cfg.Mode).
		Int("port", cfg.Port).
		Bool("postgres", cfg.DatabaseURL != "").
		Msg("config ready")
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("mode", "release")
	v.SetDefault("port", 8080)
	v.SetDefault("static_path", "./web")
	v.SetDefault("read_limit", 32768)
	v.SetDefault("ping_period", "54s")
	v.SetDefault("secret", "interview-dev-secret")
	v.SetDefault("log_level", "info")
	v.SetDefault("database_url", "")
	v.SetDefault("rate_limit.events", 40)
	v.SetDefault("rate_limit.interval", "1s")
	v.SetDefault("presence_window", "6s")

	v.SetDefault("client.signal_url", "ws://localhost:8080/api/ws/signal")
	v.SetDefault("client.storage_path", ".interview/state.json")
	v.SetDefault("client.ice_servers", []string{"stun:stun.l.google.com:19302"})
	v.SetDefault("client.heartbeat_interval", "2s")
	v.SetDefault("client.end_display_delay", "2500ms")
	v.SetDefault("client.busy_window", "3s")
	v.SetDefault("client.leave_timeout", "5s")
	v.SetDefault("client.unload_timeout", "500ms")
	v.SetDefault("client.camera", true)
	v.SetDefault("client.mic", true)
	v.SetDefault("client.user_route", "/user/applications")
	v.SetDefault("client.company_route", "/company/applications")
}

func (c *Config) validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("config: port %d out of range", c.Port)
	}
	if c.RateLimit.Events <= 0 || c.RateLimit.Interval <= 0 {
		return errors.New("config: rate_limit.events and rate_limit.interval must be positive")
	}
	if c.Client.HeartbeatInterval <= 0 {
		return errors.New("config: client.heartbeat_interval must be positive")
	}
	if c.PresenceWindow < c.Client.HeartbeatInterval {
		return errors.New("config: presence_window must cover at least one heartbeat")
	}
	return nil
}

// SetupLogger configures the global zerolog logger.
func SetupLogger(level string) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
}
