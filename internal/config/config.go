package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds pipeline configuration loaded from YAML and env.
type Config struct {
	APIURL         string
	APITimeout     time.Duration
	RetryAttempts  int
	RetryBaseDelay time.Duration
	RetryMaxDelay  time.Duration

	CacheBackend          string // "in_memory" or "memcached"
	CacheTTL              time.Duration
	MemcachedAddrs        string
	MemcachedTimeout      time.Duration
	MemcachedMaxIdleConns int

	BreakerEnabled          bool
	BreakerFailureThreshold int
	BreakerSuccessThreshold int
	BreakerTimeout          time.Duration

	// TabularEngine toggles table materialization. When off the pipeline
	// uses the row representation unconditionally.
	TabularEngine bool

	Latitude        float64
	Longitude       float64
	HourlyVariables []string
	StartDate       string
	EndDate         string

	RefreshInterval time.Duration

	ServerPort      string
	RequestTimeout  time.Duration
	RateLimitRPS    int
	RateLimitBurst  int
	ShutdownTimeout time.Duration
}

type fileConfig struct {
	API struct {
		URL            string `yaml:"url"`
		Timeout        string `yaml:"timeout"`
		RetryAttempts  int    `yaml:"retry_attempts"`
		RetryBaseDelay string `yaml:"retry_base_delay"`
		RetryMaxDelay  string `yaml:"retry_max_delay"`
	} `yaml:"api"`

	Cache struct {
		Backend   string `yaml:"backend"`
		TTL       string `yaml:"ttl"`
		Memcached struct {
			Addrs        string `yaml:"addrs"`
			Timeout      string `yaml:"timeout"`
			MaxIdleConns int    `yaml:"max_idle_conns"`
		} `yaml:"memcached"`
	} `yaml:"cache"`

	Breaker struct {
		Enabled          *bool  `yaml:"enabled"`
		FailureThreshold int    `yaml:"failure_threshold"`
		SuccessThreshold int    `yaml:"success_threshold"`
		Timeout          string `yaml:"timeout"`
	} `yaml:"breaker"`

	Tabular struct {
		Enabled *bool `yaml:"enabled"`
	} `yaml:"tabular"`

	Query struct {
		Latitude  float64  `yaml:"latitude"`
		Longitude float64  `yaml:"longitude"`
		Hourly    []string `yaml:"hourly"`
		StartDate string   `yaml:"start_date"`
		EndDate   string   `yaml:"end_date"`
	} `yaml:"query"`

	Refresh struct {
		Interval string `yaml:"interval"`
	} `yaml:"refresh"`

	Server struct {
		Port            string `yaml:"port"`
		RequestTimeout  string `yaml:"request_timeout"`
		RateLimitRPS    int    `yaml:"rate_limit_rps"`
		RateLimitBurst  int    `yaml:"rate_limit_burst"`
		ShutdownTimeout string `yaml:"shutdown_timeout"`
	} `yaml:"server"`
}

// Load reads configuration from the YAML file at path, then applies env
// overrides (CACHE_BACKEND, MEMCACHED_ADDRS) and defaults. An empty path or
// a missing file is not an error; flags and defaults carry a file-less run.
func Load(path string) (*Config, error) {
	var fc fileConfig
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("read config file: %w", err)
			}
		} else if err := yaml.Unmarshal(data, &fc); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	cfg := &Config{}

	cfg.APIURL = fc.API.URL
	if cfg.APIURL == "" {
		cfg.APIURL = "https://archive-api.open-meteo.com/v1/archive"
	}
	cfg.APITimeout = parseDuration(fc.API.Timeout, 10*time.Second)
	cfg.RetryAttempts = fc.API.RetryAttempts
	if cfg.RetryAttempts <= 0 {
		cfg.RetryAttempts = 5
	}
	cfg.RetryBaseDelay = parseDuration(fc.API.RetryBaseDelay, 200*time.Millisecond)
	cfg.RetryMaxDelay = parseDuration(fc.API.RetryMaxDelay, 5*time.Second)

	cfg.CacheBackend = strings.TrimSpace(strings.ToLower(os.Getenv("CACHE_BACKEND")))
	if cfg.CacheBackend == "" {
		cfg.CacheBackend = strings.TrimSpace(strings.ToLower(fc.Cache.Backend))
	}
	if cfg.CacheBackend == "" {
		cfg.CacheBackend = "in_memory"
	}
	cfg.CacheTTL = parseDuration(fc.Cache.TTL, time.Hour)
	cfg.MemcachedAddrs = strings.TrimSpace(os.Getenv("MEMCACHED_ADDRS"))
	if cfg.MemcachedAddrs == "" {
		cfg.MemcachedAddrs = strings.TrimSpace(fc.Cache.Memcached.Addrs)
	}
	if cfg.MemcachedAddrs == "" {
		cfg.MemcachedAddrs = "localhost:11211"
	}
	cfg.MemcachedTimeout = parseDuration(fc.Cache.Memcached.Timeout, 500*time.Millisecond)
	cfg.MemcachedMaxIdleConns = fc.Cache.Memcached.MaxIdleConns
	if cfg.MemcachedMaxIdleConns <= 0 {
		cfg.MemcachedMaxIdleConns = 2
	}

	cfg.BreakerEnabled = true
	if fc.Breaker.Enabled != nil {
		cfg.BreakerEnabled = *fc.Breaker.Enabled
	}
	cfg.BreakerFailureThreshold = fc.Breaker.FailureThreshold
	if cfg.BreakerFailureThreshold <= 0 {
		cfg.BreakerFailureThreshold = 5
	}
	cfg.BreakerSuccessThreshold = fc.Breaker.SuccessThreshold
	if cfg.BreakerSuccessThreshold <= 0 {
		cfg.BreakerSuccessThreshold = 2
	}
	cfg.BreakerTimeout = parseDuration(fc.Breaker.Timeout, 30*time.Second)

	cfg.TabularEngine = true
	if fc.Tabular.Enabled != nil {
		cfg.TabularEngine = *fc.Tabular.Enabled
	}

	cfg.Latitude = fc.Query.Latitude
	cfg.Longitude = fc.Query.Longitude
	cfg.HourlyVariables = fc.Query.Hourly
	cfg.StartDate = fc.Query.StartDate
	cfg.EndDate = fc.Query.EndDate

	cfg.RefreshInterval = parseDuration(fc.Refresh.Interval, 15*time.Minute)

	cfg.ServerPort = fc.Server.Port
	if cfg.ServerPort == "" {
		cfg.ServerPort = "8080"
	}
	cfg.RequestTimeout = parseDuration(fc.Server.RequestTimeout, 5*time.Second)
	cfg.RateLimitRPS = fc.Server.RateLimitRPS
	cfg.RateLimitBurst = fc.Server.RateLimitBurst
	if cfg.RateLimitRPS > 0 && cfg.RateLimitBurst <= 0 {
		cfg.RateLimitBurst = cfg.RateLimitRPS
	}
	cfg.ShutdownTimeout = parseDuration(fc.Server.ShutdownTimeout, 10*time.Second)

	return cfg, nil
}

// parseDuration parses s, falling back to def when empty or invalid.
func parseDuration(s string, def time.Duration) time.Duration {
	if s == "" {
		return def
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return def
	}
	return d
}
