package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	StoreMySQL  = "mysql"
	StoreMemory = "memory"
)

type Config struct {
	HTTP   HTTPConfig   `yaml:"http"`
	GRPC   GRPCConfig   `yaml:"grpc"`
	Store  string       `yaml:"store"`
	MySQL  MySQLConfig  `yaml:"mysql"`
	Redis  RedisConfig  `yaml:"redis"`
	Logger LoggerConfig `yaml:"logger"`

	// CheckoutTimeout bounds a single checkout including lock and store calls.
	CheckoutTimeout time.Duration `yaml:"checkout_timeout"`
}

type HTTPConfig struct {
	Addr            string        `yaml:"addr"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

type GRPCConfig struct {
	Addr string `yaml:"addr"`
}

type MySQLConfig struct {
	DSN             string        `yaml:"dsn"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
	AutoMigrate     bool          `yaml:"auto_migrate"`
}

// RedisConfig enables the shared checkout lock when Addr is set.
type RedisConfig struct {
	Addr     string        `yaml:"addr"`
	PoolSize int           `yaml:"pool_size"`
	LockTTL  time.Duration `yaml:"lock_ttl"`
}

type LoggerConfig struct {
	Mode       string `yaml:"mode"` // production or development
	Level      string `yaml:"level"`
	FileEnable bool   `yaml:"file_enable"`
	Filename   string `yaml:"filename"`
}

func Default() *Config {
	return &Config{
		HTTP: HTTPConfig{
			Addr:            ":8080",
			ShutdownTimeout: 5 * time.Second,
		},
		GRPC:  GRPCConfig{Addr: ":50051"},
		Store: StoreMySQL,
		MySQL: MySQLConfig{
			DSN:             "root:root@tcp(localhost:3306)/showroom?parseTime=true",
			MaxOpenConns:    50,
			MaxIdleConns:    25,
			ConnMaxLifetime: 5 * time.Minute,
			AutoMigrate:     true,
		},
		Redis: RedisConfig{
			Addr:     "localhost:6379",
			PoolSize: 100,
			LockTTL:  30 * time.Second,
		},
		Logger: LoggerConfig{
			Mode:     "development",
			Level:    "info",
			Filename: "showroom.log",
		},
		CheckoutTimeout: 10 * time.Second,
	}
}

// Load reads the YAML file at path over the defaults and applies environment
// overrides. An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	setenv(&c.HTTP.Addr, "SHOWROOM_HTTP_ADDR")
	setenv(&c.GRPC.Addr, "SHOWROOM_GRPC_ADDR")
	setenv(&c.Store, "SHOWROOM_STORE")
	setenv(&c.MySQL.DSN, "SHOWROOM_MYSQL_DSN")
	setenv(&c.Redis.Addr, "SHOWROOM_REDIS_ADDR")
	setenv(&c.Logger.Mode, "SHOWROOM_LOG_MODE")
	setenv(&c.Logger.Level, "SHOWROOM_LOG_LEVEL")
}

func setenv(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok {
		*dst = v
	}
}

func (c *Config) Validate() error {
	var errs []error
	if c.Store != StoreMySQL && c.Store != StoreMemory {
		errs = append(errs, fmt.Errorf("store must be %q or %q, got %q", StoreMySQL, StoreMemory, c.Store))
	}
	if c.Store == StoreMySQL && c.MySQL.DSN == "" {
		errs = append(errs, errors.New("mysql.dsn is required for the mysql store"))
	}
	if c.HTTP.Addr == "" && c.GRPC.Addr == "" {
		errs = append(errs, errors.New("at least one of http.addr and grpc.addr must be set"))
	}
	if c.Logger.FileEnable && c.Logger.Filename == "" {
		errs = append(errs, errors.New("logger.filename is required when file_enable is set"))
	}
	return errors.Join(errs...)
}
