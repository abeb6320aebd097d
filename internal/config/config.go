package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"gopkg.in/yaml.v3"

	"catalogd/pkg/kvstore"
)

type Config struct {
	Server   Server   `yaml:"server"`
	Upstream Upstream `yaml:"upstream"`
	Cache    Cache    `yaml:"cache"`
	Log      Log      `yaml:"log"`
}

type Server struct {
	Address            string `yaml:"address"              env:"SERVER_ADDR"              env-default:":8080"`
	ReadTimeoutSec     int    `yaml:"read_timeout_sec"     env:"SERVER_READ_TIMEOUT"      env-default:"15"`
	WriteTimeoutSec    int    `yaml:"write_timeout_sec"    env:"SERVER_WRITE_TIMEOUT"     env-default:"15"`
	IdleTimeoutSec     int    `yaml:"idle_timeout_sec"     env:"SERVER_IDLE_TIMEOUT"      env-default:"60"`
	ShutdownTimeoutSec int    `yaml:"shutdown_timeout_sec" env:"SERVER_SHUTDOWN_TIMEOUT"  env-default:"15"`
}

type Upstream struct {
	BaseURL    string `yaml:"base_url"    env:"UPSTREAM_URL"         env-default:"https://6873dfedc75558e273558266.mockapi.io/api/v1"`
	Timeout    string `yaml:"timeout"     env:"UPSTREAM_TIMEOUT"     env-default:"10s"`
	NoCoalesce bool   `yaml:"no_coalesce" env:"UPSTREAM_NO_COALESCE"`
}

type Cache struct {
	Driver           string `yaml:"driver"             env:"CACHE_DRIVER"             env-default:"memory"`
	TTL              string `yaml:"ttl"                env:"CACHE_TTL"                env-default:"5m"`
	Prefix           string `yaml:"prefix"             env:"CACHE_PREFIX"             env-default:"course_explorer_cache_"`
	SkipStartupSweep bool   `yaml:"skip_startup_sweep" env:"CACHE_SKIP_STARTUP_SWEEP"`

	// file
	Dir string `yaml:"dir" env:"CATALOG_CACHE_DIR" env-default:""`

	// redis
	Host string `yaml:"host"     env:"CACHE_HOST"     env-default:"localhost"`
	Port int    `yaml:"port"     env:"CACHE_PORT"     env-default:"6379"`
	Db   int    `yaml:"db"       env:"CACHE_DB"       env-default:"0"`
	Pass string `yaml:"password" env:"CACHE_PASSWORD" env-default:"" json:"-"`

	// sqlite
	DSN string `yaml:"dsn" env:"CACHE_DSN" env-default:""`
}

type Log struct {
	Level string `yaml:"level" env:"LOG_LEVEL" env-default:"info"`
}

// Load reads configuration from a YAML file, from inline YAML content, or,
// when pathOrContent is empty, from the environment and defaults alone.
// Environment variables always win over file values.
func Load(pathOrContent string) (*Config, error) {
	var cfg Config

	switch {
	case strings.TrimSpace(pathOrContent) == "":
		// env + defaults only
	case isFile(pathOrContent):
		if err := cleanenv.ReadConfig(pathOrContent, &cfg); err != nil {
			return nil, fmt.Errorf("read config %q: %w", pathOrContent, err)
		}
	case looksInline(pathOrContent):
		if err := yaml.Unmarshal([]byte(pathOrContent), &cfg); err != nil {
			return nil, fmt.Errorf("parse config content: %w", err)
		}
	default:
		abs := pathOrContent
		if !filepath.IsAbs(abs) {
			abs = filepath.Join(".", abs)
		}
		if err := cleanenv.ReadConfig(abs, &cfg); err != nil {
			return nil, fmt.Errorf("read config %q: %w", pathOrContent, err)
		}
	}

	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("read env: %w", err)
	}

	return &cfg, nil
}

func isFile(p string) bool {
	fi, err := os.Stat(p)
	return err == nil && !fi.IsDir()
}

func looksInline(s string) bool {
	return strings.Contains(s, "\n") ||
		strings.Contains(s, "server:") ||
		strings.Contains(s, "upstream:") ||
		strings.Contains(s, "cache:")
}

// TTLDuration parses Cache.TTL; anything unparsable or non-positive yields 0,
// which the cache treats as "use the default".
func (c Cache) TTLDuration() time.Duration {
	return ParseDuration(c.TTL)
}

// Store maps the cache section onto a store driver configuration.
func (c Cache) Store() kvstore.Config {
	return kvstore.Config{
		Driver:   c.Driver,
		Dir:      c.Dir,
		Addr:     fmt.Sprintf("%s:%d", c.Host, c.Port),
		Password: c.Pass,
		DB:       c.Db,
		DSN:      c.DSN,
	}
}

func (u Upstream) TimeoutDuration() time.Duration {
	return ParseDuration(u.Timeout)
}

// ParseDuration accepts "90s"-style durations or a bare number of seconds.
func ParseDuration(val string) time.Duration {
	val = strings.TrimSpace(val)
	if val == "" {
		return 0
	}
	if d, err := time.ParseDuration(val); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(val); err == nil {
		return time.Duration(secs) * time.Second
	}
	return 0
}

// Pretty renders the config as YAML for debug logging.
func (c *Config) Pretty() (string, error) {
	redacted := *c
	if redacted.Cache.Pass != "" {
		redacted.Cache.Pass = "***"
	}
	b, err := yaml.Marshal(redacted)
	if err != nil {
		return "", fmt.Errorf("marshal config: %w", err)
	}
	return string(b), nil
}
