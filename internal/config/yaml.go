package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/doridoridoriand/regionwatch/internal/registry"
)

type yamlFile struct {
	Interval       string      `yaml:"interval"`
	Timeout        string      `yaml:"timeout"`
	MaxConcurrency int         `yaml:"max_concurrency"`
	Prober         string      `yaml:"prober"`
	TCPPort        int         `yaml:"tcp_port"`
	Listen         string      `yaml:"listen"`
	Webhook        string      `yaml:"webhook"`
	LogLevel       string      `yaml:"log_level"`
	UI             yamlUI      `yaml:"ui"`
	Groups         []yamlGroup `yaml:"groups"`
}

type yamlUI struct {
	Disable bool `yaml:"disable"`
}

type yamlGroup struct {
	Name        string          `yaml:"name"`
	Coordinates *yamlCoordinate `yaml:"coordinates"`
	Endpoints   []yamlEndpoint  `yaml:"endpoints"`
}

type yamlCoordinate struct {
	Lat float64 `yaml:"lat"`
	Lng float64 `yaml:"lng"`
}

type yamlEndpoint struct {
	Address string `yaml:"address"`
	Label   string `yaml:"label"`
	Range   bool   `yaml:"range"`
}

func loadYAML(path string) (*Config, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return parseYAML(content)
}

func parseYAML(content []byte) (*Config, error) {
	var raw yamlFile
	if err := yaml.Unmarshal(content, &raw); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg := &Config{Global: DefaultGlobalOptions()}
	if raw.Interval != "" {
		d, err := time.ParseDuration(raw.Interval)
		if err != nil {
			return nil, fmt.Errorf("invalid interval: %w", err)
		}
		cfg.Global.Interval = d
	}
	if raw.Timeout != "" {
		d, err := time.ParseDuration(raw.Timeout)
		if err != nil {
			return nil, fmt.Errorf("invalid timeout: %w", err)
		}
		cfg.Global.Timeout = d
	}
	if raw.MaxConcurrency > 0 {
		cfg.Global.MaxConcurrency = raw.MaxConcurrency
	}
	if raw.Prober != "" {
		kind, err := ParseProberKind(raw.Prober)
		if err != nil {
			return nil, err
		}
		cfg.Global.Prober = kind
	}
	if raw.TCPPort > 0 {
		cfg.Global.TCPPort = raw.TCPPort
	}
	if raw.LogLevel != "" {
		cfg.Global.LogLevel = raw.LogLevel
	}
	cfg.Global.Listen = normalizeListen(raw.Listen)
	cfg.Global.Webhook = raw.Webhook
	cfg.Global.UIDisable = raw.UI.Disable

	for i, g := range raw.Groups {
		group := GroupConfig{Name: strings.TrimSpace(g.Name)}
		if group.Name == "" {
			group.Name = fmt.Sprintf("group-%d", i+1)
		}
		if g.Coordinates != nil {
			group.Coordinates = &registry.Coordinates{Lat: g.Coordinates.Lat, Lng: g.Coordinates.Lng}
		}
		for _, ep := range g.Endpoints {
			group.Endpoints = append(group.Endpoints, EndpointConfig{
				Address: strings.TrimSpace(ep.Address),
				Label:   ep.Label,
				IsRange: ep.Range || strings.Contains(ep.Address, "/"),
			})
		}
		cfg.Groups = append(cfg.Groups, group)
	}
	return cfg, nil
}
