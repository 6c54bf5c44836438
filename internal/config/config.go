// Package config loads gigboard configuration from config.yaml, a .env file
// and GIGBOARD_* environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/mesh-intelligence/gigboard/pkg/types"
)

const (
	configFileName = "config"
	configFileType = "yaml"
	configFileExt  = "config.yaml"
	envFileName    = ".env"
	envPrefix      = "GIGBOARD"
)

// Config keys.
const (
	KeyBackend        = "backend"
	KeyDataDir        = "data_dir"
	KeyUser           = "user"
	KeyServerURL      = "server.url"
	KeyRemoteTimeout  = "server.timeout"
	KeyListen         = "serve.listen"
	KeyJWTSecret      = "serve.jwt_secret"
	KeyTokenTTL       = "serve.token_ttl"
	KeyAllowedOrigins = "serve.allowed_origins"
	KeyRatesURL       = "rates.url"
	KeyRatesPath      = "rates.path"
	KeyRatesTimeout   = "rates.timeout"
	KeyCurrency       = "currency.target"
	KeyCurrencyPrefix = "currency.prefix"
	KeyCurrencyLocale = "currency.locale"
	KeyKVDriver       = "kv.driver"
	KeyRedisAddr      = "kv.redis.addr"
	KeyRedisPassword  = "kv.redis.password"
	KeyRedisDB        = "kv.redis.db"
	KeyRedisPrefix    = "kv.redis.prefix"
	KeyLogLevel       = "log.level"
	KeyLogPretty      = "log.pretty"
)

// KV drivers.
const (
	KVFile  = "file"
	KVRedis = "redis"
)

// ErrUnknownKVDriver is returned for a kv.driver other than file or redis.
var ErrUnknownKVDriver = errors.New("unknown kv driver")

// Config is the resolved configuration.
type Config struct {
	Backend  string   `mapstructure:"backend"`
	DataDir  string   `mapstructure:"data_dir"`
	User     string   `mapstructure:"user"`
	Server   Server   `mapstructure:"server"`
	Serve    Serve    `mapstructure:"serve"`
	Rates    Rates    `mapstructure:"rates"`
	Currency Currency `mapstructure:"currency"`
	KV       KV       `mapstructure:"kv"`
	Log      Log      `mapstructure:"log"`
}

// Server is the remote row store used by the rest backend.
type Server struct {
	URL     string        `mapstructure:"url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// Serve configures `gigboard serve`.
type Serve struct {
	Listen         string        `mapstructure:"listen"`
	JWTSecret      string        `mapstructure:"jwt_secret"`
	TokenTTL       time.Duration `mapstructure:"token_ttl"`
	AllowedOrigins []string      `mapstructure:"allowed_origins"`
}

// Rates configures the exchange-rate feed.
type Rates struct {
	URL     string        `mapstructure:"url"`
	Path    string        `mapstructure:"path"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// Currency configures the reference currency.
type Currency struct {
	Target string `mapstructure:"target"`
	Prefix string `mapstructure:"prefix"`
	Locale string `mapstructure:"locale"`
}

// KV configures local state storage.
type KV struct {
	Driver string `mapstructure:"driver"`
	Redis  Redis  `mapstructure:"redis"`
}

// Redis holds the Redis connection settings of the redis KV driver.
type Redis struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Prefix   string `mapstructure:"prefix"`
}

// Log configures logging.
type Log struct {
	Level  string `mapstructure:"level"`
	Pretty bool   `mapstructure:"pretty"`
}

// Validate checks the backend and the KV driver.
func (c Config) Validate() error {
	if err := (types.Config{Backend: c.Backend, DataDir: c.DataDir}).Validate(); err != nil {
		return fmt.Errorf("backend %q: %w", c.Backend, err)
	}
	if c.KV.Driver != KVFile && c.KV.Driver != KVRedis {
		return fmt.Errorf("%w: %q", ErrUnknownKVDriver, c.KV.Driver)
	}
	return nil
}

// Types returns the backend selection for opening a store.
func (c Config) Types() types.Config {
	return types.Config{Backend: c.Backend, DataDir: c.DataDir}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault(KeyBackend, types.BackendSQLite)
	v.SetDefault(KeyUser, "local")
	v.SetDefault(KeyServerURL, "http://localhost:8080")
	v.SetDefault(KeyRemoteTimeout, 15*time.Second)
	v.SetDefault(KeyListen, ":8080")
	v.SetDefault(KeyTokenTTL, 7*24*time.Hour)
	v.SetDefault(KeyAllowedOrigins, []string{"*"})
	v.SetDefault(KeyRatesURL, "https://open.er-api.com/v6/latest/USD")
	v.SetDefault(KeyRatesPath, "rates")
	v.SetDefault(KeyRatesTimeout, 10*time.Second)
	v.SetDefault(KeyCurrency, "IDR")
	v.SetDefault(KeyCurrencyPrefix, "Rp")
	v.SetDefault(KeyCurrencyLocale, "id")
	v.SetDefault(KeyKVDriver, KVFile)
	v.SetDefault(KeyRedisAddr, "localhost:6379")
	v.SetDefault(KeyRedisPrefix, "gigboard:")
	v.SetDefault(KeyLogLevel, "warn")
	v.SetDefault(KeyLogPretty, true)
}

// Load reads configDir/.env into the environment (without overriding
// variables already set), then config.yaml, then GIGBOARD_* variables.
// A missing config.yaml or .env is not an error.
func Load(configDir string) (Config, error) {
	if err := godotenv.Load(filepath.Join(configDir, envFileName)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("read %s: %w", envFileName, err)
	}

	v := viper.New()
	setDefaults(v)
	v.SetConfigName(configFileName)
	v.SetConfigType(configFileType)
	v.AddConfigPath(configDir)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	return cfg, nil
}

// fileConfig is the structure written to config.yaml by init.
type fileConfig struct {
	Backend string `yaml:"backend"`
	DataDir string `yaml:"data_dir,omitempty"`
	Server  struct {
		URL string `yaml:"url"`
	} `yaml:"server"`
	Currency struct {
		Target string `yaml:"target"`
		Prefix string `yaml:"prefix"`
	} `yaml:"currency"`
	KV struct {
		Driver string `yaml:"driver"`
	} `yaml:"kv"`
	Log struct {
		Level string `yaml:"level"`
	} `yaml:"log"`
}

// WriteDefault creates configDir/config.yaml unless it exists. It reports
// whether a file was written.
func WriteDefault(configDir, backend, dataDir string) (bool, error) {
	path := filepath.Join(configDir, configFileExt)
	if _, err := os.Stat(path); err == nil {
		return false, nil
	} else if !os.IsNotExist(err) {
		return false, fmt.Errorf("stat config file: %w", err)
	}
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return false, fmt.Errorf("create config directory: %w", err)
	}

	var fc fileConfig
	fc.Backend = backend
	fc.DataDir = dataDir
	fc.Server.URL = "http://localhost:8080"
	fc.Currency.Target = "IDR"
	fc.Currency.Prefix = "Rp"
	fc.KV.Driver = KVFile
	fc.Log.Level = "warn"

	data, err := yaml.Marshal(&fc)
	if err != nil {
		return false, fmt.Errorf("marshal config: %w", err)
	}
	data = append([]byte("# gigboard configuration\n"), data...)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return false, err
	}
	return true, nil
}
