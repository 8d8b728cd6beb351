package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const EnvPrefix = "TASKSYNC"

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Logger   LoggerConfig   `mapstructure:"logger"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Sync     SyncConfig     `mapstructure:"sync"`
	Cleanup  CleanupConfig  `mapstructure:"cleanup"`
}

type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
	// Memory keeps tasks in process instead of postgres.
	Memory          bool   `mapstructure:"memory"`
	RequestLogging  bool   `mapstructure:"request_logging"`
	RequestIDHeader string `mapstructure:"request_id_header"`
}

func (s *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

func (d *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode,
	)
}

type LoggerConfig struct {
	Level            string   `mapstructure:"level"`
	Encoding         string   `mapstructure:"encoding"`
	OutputPaths      []string `mapstructure:"output_paths"`
	ErrorOutputPaths []string `mapstructure:"error_output_paths"`
}

type AuthConfig struct {
	AdminAPIKey    string   `mapstructure:"admin_api_key"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// SyncConfig drives the watch client.
type SyncConfig struct {
	PageURL          string        `mapstructure:"page_url"`
	Cookie           string        `mapstructure:"cookie"`
	FetchTimeout     time.Duration `mapstructure:"fetch_timeout"`
	HandshakeTimeout time.Duration `mapstructure:"handshake_timeout"`
	MaxPageBytes     int64         `mapstructure:"max_page_bytes"`
	Output           string        `mapstructure:"output"`
}

type CleanupConfig struct {
	Interval   time.Duration `mapstructure:"interval"`
	MaxTaskAge time.Duration `mapstructure:"max_task_age"`
	OnlyIfSeen bool          `mapstructure:"only_if_seen"`
	// DisplayWindow keeps seen tasks on the page for this long.
	DisplayWindow time.Duration `mapstructure:"display_window"`
}

// SetDefaults registers every default on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "15s")
	v.SetDefault("server.idle_timeout", "60s")
	v.SetDefault("server.memory", false)
	v.SetDefault("server.request_logging", true)
	v.SetDefault("server.request_id_header", "X-Request-ID")

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "tasksync")
	v.SetDefault("database.password", "")
	v.SetDefault("database.name", "tasksync")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.max_open_conns", 20)
	v.SetDefault("database.conn_max_lifetime", "30m")

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.encoding", "console")
	v.SetDefault("logger.output_paths", []string{"stderr"})
	v.SetDefault("logger.error_output_paths", []string{"stderr"})

	v.SetDefault("auth.admin_api_key", "")
	v.SetDefault("auth.allowed_origins", []string{})

	// keys without a default are invisible to AutomaticEnv during Unmarshal
	v.SetDefault("sync.page_url", "")
	v.SetDefault("sync.cookie", "")
	v.SetDefault("sync.output", "")
	v.SetDefault("sync.fetch_timeout", "30s")
	v.SetDefault("sync.handshake_timeout", "10s")
	v.SetDefault("sync.max_page_bytes", 5*1024*1024)

	v.SetDefault("cleanup.interval", "60s")
	v.SetDefault("cleanup.max_task_age", "120s")
	v.SetDefault("cleanup.only_if_seen", true)
	v.SetDefault("cleanup.display_window", "30s")
}

// Load reads path (optional) plus TASKSYNC_* environment overrides.
// With an empty path the working directory is searched for config.yaml,
// and a missing file leaves the defaults in place.
func Load(path string) (*Config, error) {
	return LoadWith(viper.New(), path)
}

func LoadWith(v *viper.Viper, path string) (*Config, error) {
	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}
