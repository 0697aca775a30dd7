package main

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/kottu/edge-cache/pkg/cache"
	"github.com/kottu/edge-cache/pkg/compress"
)

// duration accepts Go duration strings ("30s", "10m") in YAML.
type duration time.Duration

func (d *duration) UnmarshalYAML(value *yaml.Node) error {
	parsed, err := time.ParseDuration(value.Value)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", value.Value, err)
	}
	*d = duration(parsed)
	return nil
}

// proxyConfig is the YAML configuration surface of the proxy binary. Unknown
// keys are rejected at load time.
type proxyConfig struct {
	Listen   string `yaml:"listen"`
	Origin   string `yaml:"origin"`
	Redis    string `yaml:"redis"`
	LogLevel string `yaml:"logLevel"`
	Pretty   bool   `yaml:"prettyLogs"`

	Cache       cacheConfig    `yaml:"cache"`
	Compression compressConfig `yaml:"compression"`
}

type cacheConfig struct {
	DefaultTTL           duration                  `yaml:"defaultTTL"`
	StaticAssetsTTL      duration                  `yaml:"staticAssetsTTL"`
	APIResponseTTL       duration                  `yaml:"apiResponseTTL"`
	HTMLTTL              duration                  `yaml:"htmlTTL"`
	StaleWhileRevalidate duration                  `yaml:"staleWhileRevalidate"`
	VaryHeaders          []string                  `yaml:"varyHeaders"`
	RegionHeader         string                    `yaml:"regionHeader"`
	APIPrefixes          []string                  `yaml:"apiPrefixes"`
	CacheableStatusCodes []int                     `yaml:"cacheableStatusCodes"`
	ExcludePaths         []string                  `yaml:"excludePaths"`
	IncludePaths         []string                  `yaml:"includePaths"`
	BypassParams         []string                  `yaml:"bypassParams"`
	RouteStrategies      map[string]cache.Strategy `yaml:"routeStrategies"`
}

type compressConfig struct {
	EnableBrotli             *bool    `yaml:"enableBrotli"`
	EnableGzip               *bool    `yaml:"enableGzip"`
	EnableDeflate            *bool    `yaml:"enableDeflate"`
	MinSizeThreshold         int      `yaml:"minSizeThreshold"`
	MaxSizeThreshold         int      `yaml:"maxSizeThreshold"`
	CompressibleTypes        []string `yaml:"compressibleTypes"`
	ExcludeTypes             []string `yaml:"excludeTypes"`
	ExcludePaths             []string `yaml:"excludePaths"`
	CacheCompressedArtifacts *bool    `yaml:"cacheCompressedArtifacts"`
	Diagnostics              bool     `yaml:"diagnostics"`
}

// defaultProxyConfig returns the configuration used when no file is given.
func defaultProxyConfig() proxyConfig {
	return proxyConfig{
		Listen:   ":8080",
		Origin:   "http://localhost:3000",
		Redis:    "localhost:6379",
		LogLevel: "info",
	}
}

// loadConfig reads and validates a YAML configuration file. Unknown keys are
// a startup error, not a silent no-op.
func loadConfig(filename string) (proxyConfig, error) {
	config := defaultProxyConfig()

	f, err := os.Open(filename)
	if err != nil {
		return config, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&config); err != nil {
		return config, fmt.Errorf("parse config %s: %w", filename, err)
	}
	return config, nil
}

// cacheOptions maps the file surface onto the cache package config,
// keeping package defaults for anything unset.
func (c proxyConfig) cacheOptions() cache.Config {
	cfg := cache.DefaultConfig()
	if c.Cache.DefaultTTL > 0 {
		cfg.DefaultTTL = time.Duration(c.Cache.DefaultTTL)
	}
	if c.Cache.StaticAssetsTTL > 0 {
		cfg.StaticAssetsTTL = time.Duration(c.Cache.StaticAssetsTTL)
	}
	if c.Cache.APIResponseTTL > 0 {
		cfg.APIResponseTTL = time.Duration(c.Cache.APIResponseTTL)
	}
	if c.Cache.HTMLTTL > 0 {
		cfg.HTMLTTL = time.Duration(c.Cache.HTMLTTL)
	}
	if c.Cache.StaleWhileRevalidate > 0 {
		cfg.StaleWhileRevalidate = time.Duration(c.Cache.StaleWhileRevalidate)
	}
	if len(c.Cache.VaryHeaders) > 0 {
		cfg.VaryHeaders = c.Cache.VaryHeaders
	}
	if c.Cache.RegionHeader != "" {
		cfg.RegionHeader = c.Cache.RegionHeader
	}
	if len(c.Cache.APIPrefixes) > 0 {
		cfg.APIPrefixes = c.Cache.APIPrefixes
	}
	if len(c.Cache.CacheableStatusCodes) > 0 {
		cfg.CacheableStatusCodes = c.Cache.CacheableStatusCodes
	}
	cfg.ExcludePaths = c.Cache.ExcludePaths
	cfg.IncludePaths = c.Cache.IncludePaths
	if len(c.Cache.BypassParams) > 0 {
		cfg.BypassParams = c.Cache.BypassParams
	}
	cfg.RouteStrategies = c.Cache.RouteStrategies
	return cfg
}

// compressOptions maps the file surface onto the compress package config.
func (c proxyConfig) compressOptions() compress.Config {
	cfg := compress.DefaultConfig()
	if c.Compression.EnableBrotli != nil {
		cfg.EnableBrotli = *c.Compression.EnableBrotli
	}
	if c.Compression.EnableGzip != nil {
		cfg.EnableGzip = *c.Compression.EnableGzip
	}
	if c.Compression.EnableDeflate != nil {
		cfg.EnableDeflate = *c.Compression.EnableDeflate
	}
	if c.Compression.MinSizeThreshold > 0 {
		cfg.MinSize = c.Compression.MinSizeThreshold
	}
	if c.Compression.MaxSizeThreshold > 0 {
		cfg.MaxSize = c.Compression.MaxSizeThreshold
	}
	if len(c.Compression.CompressibleTypes) > 0 {
		cfg.CompressibleTypes = c.Compression.CompressibleTypes
	}
	if len(c.Compression.ExcludeTypes) > 0 {
		cfg.ExcludeTypes = c.Compression.ExcludeTypes
	}
	cfg.ExcludePaths = c.Compression.ExcludePaths
	if c.Compression.CacheCompressedArtifacts != nil {
		cfg.CacheCompressedArtifacts = *c.Compression.CacheCompressedArtifacts
	}
	cfg.Diagnostics = c.Compression.Diagnostics
	return cfg
}
