package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v2"

	"github.com/delta10/layer-catalog/internal/timedim"
)

const (
	defaultListenAddress = ":8080"
	defaultCacheTTL      = 15 * time.Minute
)

// Service is one upstream WMS whose capabilities feed the catalog.
type Service struct {
	URL string `yaml:"url"`

	// Headers are set on every upstream request. Values go through
	// environment substitution.
	Headers map[string]string `yaml:"headers"`

	// Filter is an optional jq program applied to the layer records
	// before they are written to the response.
	Filter string `yaml:"filter"`

	LogBackend string `yaml:"logBackend"`

	// ExcludedLayers replaces the default exclusion list for this
	// service. An empty list disables exclusion entirely.
	ExcludedLayers []string `yaml:"excludedLayers"`
}

type ListenTLS struct {
	Certificate string `yaml:"certificate"`
	Key         string `yaml:"key"`
}

type Cache struct {
	RedisAddress  string `yaml:"redisAddress"`
	RedisPassword string `yaml:"redisPassword"`
	RedisDB       int    `yaml:"redisDb"`
	TTL           string `yaml:"ttl"`

	ttl time.Duration
}

// TTLDuration returns the parsed document lifetime.
func (c Cache) TTLDuration() time.Duration {
	return c.ttl
}

type LogBackend struct {
	BaseURL string `yaml:"baseUrl"`
}

type Config struct {
	ListenAddress string    `yaml:"listenAddress"`
	ListenTLS     ListenTLS `yaml:"listenTls"`
	Environment   string    `yaml:"environment"`
	JwksURL       string    `yaml:"jwksUrl"`

	// InstantLimit bounds the instants generated per time-axis interval.
	// Zero selects the default, -1 removes the bound.
	InstantLimit int `yaml:"instantLimit"`

	Cache       Cache                 `yaml:"cache"`
	LogBackends map[string]LogBackend `yaml:"logBackends"`
	Services    map[string]Service    `yaml:"services"`
}

// NewConfig returns a new decoded Config struct
func NewConfig(configPath string) (*Config, error) {
	// Create config structure
	config := &Config{}

	// Open config file
	file, err := os.Open(configPath)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	// Init new YAML decode
	d := yaml.NewDecoder(file)

	// Start YAML decoding from file
	if err := d.Decode(&config); err != nil {
		return nil, err
	}

	if err := config.applyDefaults(); err != nil {
		return nil, err
	}

	return config, nil
}

func (c *Config) applyDefaults() error {
	if c.ListenAddress == "" {
		c.ListenAddress = defaultListenAddress
	}

	if c.InstantLimit == 0 {
		c.InstantLimit = timedim.DefaultLimit
	}

	if c.Cache.TTL == "" {
		c.Cache.ttl = defaultCacheTTL
	} else {
		ttl, err := time.ParseDuration(c.Cache.TTL)
		if err != nil {
			return fmt.Errorf("cache ttl: %w", err)
		}
		c.Cache.ttl = ttl
	}

	return nil
}
