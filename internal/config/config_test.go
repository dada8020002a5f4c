package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfigFile(t *testing.T, contents string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	return path
}

func TestNewConfig(t *testing.T) {
	path := writeConfigFile(t, `
listenAddress: :9090
environment: production
jwksUrl: https://auth.example.org/jwks
instantLimit: 12
cache:
  redisAddress: localhost:6379
  redisDb: 2
  ttl: 1h
logBackends:
  loki:
    baseUrl: http://loki:3100
services:
  weather:
    url: https://geo.example.org/wms
    headers:
      Authorization: Bearer ${WEATHER_TOKEN}
    filter: '.[] | select(.times != null)'
    logBackend: loki
    excludedLayers:
      - background
`)

	config, err := NewConfig(path)
	if err != nil {
		t.Fatalf("NewConfig() error = %v", err)
	}

	if config.ListenAddress != ":9090" {
		t.Errorf("ListenAddress = %q, want :9090", config.ListenAddress)
	}
	if config.Environment != "production" {
		t.Errorf("Environment = %q, want production", config.Environment)
	}
	if config.JwksURL != "https://auth.example.org/jwks" {
		t.Errorf("JwksURL = %q", config.JwksURL)
	}
	if config.InstantLimit != 12 {
		t.Errorf("InstantLimit = %d, want 12", config.InstantLimit)
	}
	if config.Cache.RedisAddress != "localhost:6379" || config.Cache.RedisDB != 2 {
		t.Errorf("Cache = %+v", config.Cache)
	}
	if config.Cache.TTLDuration() != time.Hour {
		t.Errorf("TTLDuration() = %v, want 1h", config.Cache.TTLDuration())
	}
	if config.LogBackends["loki"].BaseURL != "http://loki:3100" {
		t.Errorf("LogBackends = %+v", config.LogBackends)
	}

	service, ok := config.Services["weather"]
	if !ok {
		t.Fatalf("Services = %+v, want a weather entry", config.Services)
	}
	if service.URL != "https://geo.example.org/wms" {
		t.Errorf("service URL = %q", service.URL)
	}
	if service.Headers["Authorization"] != "Bearer ${WEATHER_TOKEN}" {
		t.Errorf("service headers = %+v, substitution happens at request time", service.Headers)
	}
	if service.LogBackend != "loki" {
		t.Errorf("service logBackend = %q", service.LogBackend)
	}
	if len(service.ExcludedLayers) != 1 || service.ExcludedLayers[0] != "background" {
		t.Errorf("service excludedLayers = %v", service.ExcludedLayers)
	}
}

func TestNewConfigDefaults(t *testing.T) {
	path := writeConfigFile(t, `
services:
  weather:
    url: https://geo.example.org/wms
`)

	config, err := NewConfig(path)
	if err != nil {
		t.Fatalf("NewConfig() error = %v", err)
	}

	if config.ListenAddress != ":8080" {
		t.Errorf("ListenAddress = %q, want :8080", config.ListenAddress)
	}
	if config.InstantLimit != 240 {
		t.Errorf("InstantLimit = %d, want 240", config.InstantLimit)
	}
	if config.Cache.TTLDuration() != 15*time.Minute {
		t.Errorf("TTLDuration() = %v, want 15m", config.Cache.TTLDuration())
	}
	if config.Services["weather"].ExcludedLayers != nil {
		t.Errorf("ExcludedLayers = %v, want nil so the default list applies", config.Services["weather"].ExcludedLayers)
	}
}

func TestNewConfigUnboundedInstantLimit(t *testing.T) {
	path := writeConfigFile(t, "instantLimit: -1\n")

	config, err := NewConfig(path)
	if err != nil {
		t.Fatalf("NewConfig() error = %v", err)
	}

	if config.InstantLimit != -1 {
		t.Errorf("InstantLimit = %d, want -1", config.InstantLimit)
	}
}

func TestNewConfigInvalidTTL(t *testing.T) {
	path := writeConfigFile(t, "cache:\n  ttl: soon\n")

	if _, err := NewConfig(path); err == nil {
		t.Fatal("NewConfig() expected an error for an unparseable ttl")
	}
}

func TestNewConfigMissingFile(t *testing.T) {
	if _, err := NewConfig(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("NewConfig() expected an error for a missing file")
	}
}

func TestNewConfigMalformedYAML(t *testing.T) {
	path := writeConfigFile(t, "services: [\n")

	if _, err := NewConfig(path); err == nil {
		t.Fatal("NewConfig() expected an error for malformed YAML")
	}
}
