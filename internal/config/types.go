package config

import (
	"time"

	"github.com/doridoridoriand/regionwatch/internal/registry"
)

// ProberKind selects the connectivity prober implementation.
type ProberKind string

const (
	ProberAuto      ProberKind = "auto"
	ProberICMP      ProberKind = "icmp"
	ProberExternal  ProberKind = "external"
	ProberParallel  ProberKind = "parallel"
	ProberTCP       ProberKind = "tcp"
	ProberSimulated ProberKind = "simulated"
)

// GlobalOptions holds global settings parsed from config and CLI overrides.
type GlobalOptions struct {
	Interval       time.Duration
	Timeout        time.Duration
	MaxConcurrency int
	Prober         ProberKind
	TCPPort        int
	Listen         string
	Webhook        string
	UIDisable      bool
	LogLevel       string
}

// EndpointConfig is a single address line.
type EndpointConfig struct {
	Address string
	Label   string
	IsRange bool
}

// GroupConfig is one region block.
type GroupConfig struct {
	Name        string
	Coordinates *registry.Coordinates
	Endpoints   []EndpointConfig
}

// Config is the parsed configuration file with global settings.
type Config struct {
	Groups []GroupConfig
	Global GlobalOptions
}

// CLIOverrides holds optional CLI values that override config file values.
type CLIOverrides struct {
	Interval       *time.Duration
	Timeout        *time.Duration
	MaxConcurrency *int
	Prober         *ProberKind
	Listen         *string
	Webhook        *string
	UIDisable      *bool
	LogLevel       *string
}

// Parser defines config parsing behavior.
type Parser interface {
	LoadConfig(path string, overrides CLIOverrides) (*Config, error)
	ParseDirective(line string) (map[string]string, error)
	ParseEndpointLine(line string) (EndpointConfig, error)
}

// Registry converts the parsed groups into a validated registry.
func (c *Config) Registry() (*registry.Registry, error) {
	groups := make([]registry.Group, 0, len(c.Groups))
	for _, g := range c.Groups {
		rg := registry.Group{Name: g.Name, Coordinates: g.Coordinates}
		for _, ep := range g.Endpoints {
			rg.Endpoints = append(rg.Endpoints, registry.Endpoint{
				Address: ep.Address,
				IsRange: ep.IsRange,
				Label:   ep.Label,
			})
		}
		groups = append(groups, rg)
	}
	return registry.New(groups)
}

// EndpointCount returns the number of endpoints across all groups.
func (c *Config) EndpointCount() int {
	n := 0
	for _, g := range c.Groups {
		n += len(g.Endpoints)
	}
	return n
}
