package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v2"
)

const (
	configFilePathENV = "CONFIG_FILE"
	configDirENV      = "CONFIG_DIR"
	envFileENV        = "ENV_FILE"

	loginENV         = "MT5_LOGIN"
	passwordENV      = "MT5_PASSWORD"
	serverENV        = "MT5_SERVER"
	bridgeURLENV     = "MT5_BRIDGE_URL"
	databaseDSN      = "DATABASE_DSN"
	databaseDriver   = "DATABASE_DRIVER"
	tokenTelegramENV = "TELEGRAM_TOKEN"
	chatTelegramENV  = "TELEGRAM_CHAT_ID"
	logLevelENV      = "LOG_LEVEL"
	jaegerHostENV    = "JAEGER_HOST"
	jaegerPortENV    = "JAEGER_PORT"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Config ...
type Config struct {
	Service struct {
		Name       string `yaml:"name"`
		Host       string `yaml:"host"`
		PublicPort int    `yaml:"public_port"`
		AdminPort  int    `yaml:"admin_port"`
	} `yaml:"service"`

	// Подключение к терминалу через bridge-процесс
	Terminal struct {
		BridgeURL      string        `yaml:"bridge_url"`
		Login          int64         `yaml:"login"`
		Password       string        `yaml:"password"`
		Server         string        `yaml:"server"`
		CallTimeout    time.Duration `yaml:"call_timeout"`
		DialTimeout    time.Duration `yaml:"dial_timeout"`
		SymbolCacheTTL time.Duration `yaml:"symbol_cache_ttl"` // 0 = без кэша
	} `yaml:"terminal"`

	Database struct {
		Driver string `yaml:"driver"` // postgres | sqlite
		DSN    string `yaml:"dsn"`
	} `yaml:"database"`

	Telegram struct {
		Token  string `yaml:"token"`
		ChatID int64  `yaml:"chat_id"`
	} `yaml:"telegram"`

	Logging struct {
		Level string `yaml:"level"`
	} `yaml:"logging"`

	Tracing struct {
		Host string `yaml:"host"`
		Port int    `yaml:"port"`
	} `yaml:"tracing"`
}

func defaults() Config {
	var c Config
	c.Service.Name = "mt5_gateway"
	c.Service.Host = "0.0.0.0"
	c.Service.PublicPort = 8000
	c.Service.AdminPort = 8081
	c.Terminal.BridgeURL = "ws://127.0.0.1:8765/ws"
	c.Terminal.CallTimeout = 10 * time.Second
	c.Terminal.DialTimeout = 5 * time.Second
	c.Terminal.SymbolCacheTTL = time.Minute
	c.Database.Driver = DriverSQLite
	c.Database.DSN = "instruments.db"
	c.Logging.Level = "info"
	return c
}

// NewConfig читает configs/$CONFIG_FILE и поверх накладывает .env и окружение.
func NewConfig() (*Config, error) {
	configFileName := os.Getenv(configFilePathENV)
	if configFileName == "" {
		configFileName = "values_local.yaml"
	}
	dir := os.Getenv(configDirENV)
	if dir == "" {
		dir = "configs"
	}
	envFile := os.Getenv(envFileENV)
	if envFile == "" {
		envFile = ".env"
	}
	return Load(filepath.Join(dir, configFileName), envFile)
}

// Load отсутствующий yaml или .env не ошибка: остаются дефолты.
func Load(path, envFile string) (*Config, error) {
	config := defaults()

	file, err := os.Open(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("failed to open config file: %w", err)
	default:
		defer func() {
			_ = file.Close()
		}()
		if err = yaml.NewDecoder(file).Decode(&config); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("failed to decode config file: %w", err)
		}
	}

	v := viper.New()
	if envFile != "" {
		if _, statErr := os.Stat(envFile); statErr == nil {
			v.SetConfigFile(envFile)
			v.SetConfigType("env")
			if err = v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("failed to read env file: %w", err)
			}
		}
	}
	v.AutomaticEnv()

	if err = applyOverrides(v, &config); err != nil {
		return nil, err
	}
	if err = config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

func applyOverrides(v *viper.Viper, c *Config) error {
	setString(v, bridgeURLENV, &c.Terminal.BridgeURL)
	setString(v, passwordENV, &c.Terminal.Password)
	setString(v, serverENV, &c.Terminal.Server)
	setString(v, databaseDSN, &c.Database.DSN)
	setString(v, databaseDriver, &c.Database.Driver)
	setString(v, tokenTelegramENV, &c.Telegram.Token)
	setString(v, logLevelENV, &c.Logging.Level)
	setString(v, jaegerHostENV, &c.Tracing.Host)

	if err := setInt64(v, loginENV, &c.Terminal.Login); err != nil {
		return err
	}
	if err := setInt64(v, chatTelegramENV, &c.Telegram.ChatID); err != nil {
		return err
	}
	port := int64(c.Tracing.Port)
	if err := setInt64(v, jaegerPortENV, &port); err != nil {
		return err
	}
	c.Tracing.Port = int(port)
	return nil
}

func setString(v *viper.Viper, key string, dst *string) {
	if s := v.GetString(key); s != "" {
		*dst = s
	}
}

func setInt64(v *viper.Viper, key string, dst *int64) error {
	s := v.GetString(key)
	if s == "" {
		return nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return fmt.Errorf("env %s: %w", key, err)
	}
	*dst = n
	return nil
}

func (c *Config) Validate() error {
	switch c.Database.Driver {
	case DriverPostgres, DriverSQLite:
	default:
		return fmt.Errorf("unknown database driver %q", c.Database.Driver)
	}
	if c.Terminal.BridgeURL == "" {
		return errors.New("terminal.bridge_url is required")
	}
	if c.Terminal.CallTimeout <= 0 {
		return errors.New("terminal.call_timeout must be positive")
	}
	return nil
}

// HasCredentials логин задан, можно делать initialize при старте.
func (c *Config) HasCredentials() bool {
	return c.Terminal.Login != 0 && c.Terminal.Password != "" && c.Terminal.Server != ""
}

func (c *Config) PublicAddr() string {
	return fmt.Sprintf("%s:%d", c.Service.Host, c.Service.PublicPort)
}

func (c *Config) AdminAddr() string {
	return fmt.Sprintf("%s:%d", c.Service.Host, c.Service.AdminPort)
}
