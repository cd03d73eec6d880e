package config

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/doridoridoriand/regionwatch/internal/registry"
)

const directivePrefix = "regionwatch:"

var (
	ErrInvalidCoordinates = errors.New("coordinates out of range")
	ErrInvalidProber      = errors.New("unknown prober")
)

// ConfParser implements the Parser interface for regionwatch.conf files and,
// by extension, YAML files.
type ConfParser struct{}

// DefaultGlobalOptions returns baseline settings used before config overrides.
func DefaultGlobalOptions() GlobalOptions {
	return GlobalOptions{
		Interval:       60 * time.Second,
		Timeout:        5 * time.Second,
		MaxConcurrency: 100,
		Prober:         ProberAuto,
		TCPPort:        443,
		LogLevel:       "info",
	}
}

// LoadConfig parses the file at path with CLI overrides applied. An empty
// path yields the built-in registry.
func (p ConfParser) LoadConfig(path string, overrides CLIOverrides) (*Config, error) {
	var (
		cfg *Config
		err error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case "":
		if path == "" {
			cfg = &Config{Global: DefaultGlobalOptions(), Groups: DefaultGroups()}
			break
		}
		cfg, err = p.loadConf(path)
	case ".yaml", ".yml":
		cfg, err = loadYAML(path)
	default:
		cfg, err = p.loadConf(path)
	}
	if err != nil {
		return nil, err
	}

	applyCLIOverrides(&cfg.Global, overrides)
	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (p ConfParser) loadConf(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	cfg := &Config{Global: DefaultGlobalOptions()}

	scanner := bufio.NewScanner(file)
	groupIndex := 0
	var current *GroupConfig
	lineNo := 0

	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "#") {
			if strings.HasPrefix(line, "# "+directivePrefix) {
				pairs, err := p.ParseDirective(line)
				if err != nil {
					return nil, fmt.Errorf("line %d: %w", lineNo, err)
				}
				if err := applyDirective(&cfg.Global, pairs); err != nil {
					return nil, fmt.Errorf("line %d: %w", lineNo, err)
				}
			}
			continue
		}

		if strings.HasPrefix(line, directivePrefix) {
			pairs, err := p.ParseDirective(line)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", lineNo, err)
			}
			if err := applyDirective(&cfg.Global, pairs); err != nil {
				return nil, fmt.Errorf("line %d: %w", lineNo, err)
			}
			continue
		}

		if strings.HasPrefix(line, "---") {
			groupIndex++
			group, err := parseGroupHeader(strings.TrimSpace(strings.TrimPrefix(line, "---")), groupIndex)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", lineNo, err)
			}
			cfg.Groups = append(cfg.Groups, group)
			current = &cfg.Groups[len(cfg.Groups)-1]
			continue
		}

		ep, err := p.ParseEndpointLine(line)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		if current == nil {
			cfg.Groups = append(cfg.Groups, GroupConfig{Name: "default"})
			current = &cfg.Groups[len(cfg.Groups)-1]
		}
		current.Endpoints = append(current.Endpoints, ep)
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// parseGroupHeader reads "<name words> [lat=.. lng=..]". Tokens holding '='
// are options; everything else forms the name.
func parseGroupHeader(header string, index int) (GroupConfig, error) {
	var (
		nameParts []string
		lat, lng  *float64
	)
	for _, token := range strings.Fields(header) {
		kv := strings.SplitN(token, "=", 2)
		if len(kv) != 2 {
			nameParts = append(nameParts, token)
			continue
		}
		v, err := strconv.ParseFloat(kv[1], 64)
		switch kv[0] {
		case "lat":
			if err != nil {
				return GroupConfig{}, fmt.Errorf("invalid lat: %w", err)
			}
			lat = &v
		case "lng", "lon":
			if err != nil {
				return GroupConfig{}, fmt.Errorf("invalid lng: %w", err)
			}
			lng = &v
		default:
			return GroupConfig{}, fmt.Errorf("invalid group option: %q", token)
		}
	}

	group := GroupConfig{Name: strings.Join(nameParts, " ")}
	if group.Name == "" {
		group.Name = fmt.Sprintf("group-%d", index)
	}
	if lat != nil || lng != nil {
		if lat == nil || lng == nil {
			return GroupConfig{}, fmt.Errorf("group %q: lat and lng must be set together", group.Name)
		}
		group.Coordinates = &registry.Coordinates{Lat: *lat, Lng: *lng}
	}
	return group, nil
}

// ParseDirective extracts key=value pairs from a directive line.
func (p ConfParser) ParseDirective(line string) (map[string]string, error) {
	trimmed := strings.TrimSpace(line)
	if strings.HasPrefix(trimmed, "#") {
		trimmed = strings.TrimSpace(strings.TrimPrefix(trimmed, "#"))
	}
	if !strings.HasPrefix(trimmed, directivePrefix) {
		return nil, fmt.Errorf("directive line must start with '# %s' or '%s': %q", directivePrefix, directivePrefix, line)
	}
	payload := strings.TrimSpace(strings.TrimPrefix(trimmed, directivePrefix))
	if payload == "" {
		return map[string]string{}, nil
	}

	pairs := make(map[string]string)
	for _, token := range strings.Fields(payload) {
		kv := strings.SplitN(token, "=", 2)
		if len(kv) != 2 {
			return nil, fmt.Errorf("invalid directive token: %q", token)
		}
		pairs[kv[0]] = kv[1]
	}
	return pairs, nil
}

// ParseEndpointLine parses "<address> [label=..] [range=true]".
func (p ConfParser) ParseEndpointLine(line string) (EndpointConfig, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return EndpointConfig{}, fmt.Errorf("invalid endpoint line: %q", line)
	}

	ep := EndpointConfig{
		Address: fields[0],
		IsRange: strings.Contains(fields[0], "/"),
	}
	for _, field := range fields[1:] {
		kv := strings.SplitN(field, "=", 2)
		if len(kv) != 2 {
			return EndpointConfig{}, fmt.Errorf("invalid endpoint option: %q", field)
		}
		switch kv[0] {
		case "label":
			ep.Label = kv[1]
		case "range":
			b, err := strconv.ParseBool(kv[1])
			if err != nil {
				return EndpointConfig{}, fmt.Errorf("invalid range: %w", err)
			}
			ep.IsRange = ep.IsRange || b
		default:
			return EndpointConfig{}, fmt.Errorf("invalid endpoint option: %q", field)
		}
	}
	return ep, nil
}

func applyDirective(global *GlobalOptions, pairs map[string]string) error {
	for key, val := range pairs {
		switch key {
		case "interval":
			d, err := time.ParseDuration(val)
			if err != nil {
				return fmt.Errorf("invalid interval: %w", err)
			}
			global.Interval = d
		case "timeout":
			d, err := time.ParseDuration(val)
			if err != nil {
				return fmt.Errorf("invalid timeout: %w", err)
			}
			global.Timeout = d
		case "max_concurrency":
			n, err := strconv.Atoi(val)
			if err != nil {
				return fmt.Errorf("invalid max_concurrency: %w", err)
			}
			global.MaxConcurrency = n
		case "prober":
			kind, err := ParseProberKind(val)
			if err != nil {
				return err
			}
			global.Prober = kind
		case "tcp.port":
			n, err := strconv.Atoi(val)
			if err != nil || n <= 0 || n > 65535 {
				return fmt.Errorf("invalid tcp.port: %q", val)
			}
			global.TCPPort = n
		case "listen":
			global.Listen = normalizeListen(val)
		case "webhook":
			global.Webhook = val
		case "log.level":
			global.LogLevel = val
		case "ui.disable":
			b, err := strconv.ParseBool(val)
			if err != nil {
				return fmt.Errorf("invalid ui.disable: %w", err)
			}
			global.UIDisable = b
		default:
			// Ignore unknown keys for forward compatibility.
		}
	}
	return nil
}

// ParseProberKind validates a prober name.
func ParseProberKind(val string) (ProberKind, error) {
	switch kind := ProberKind(strings.ToLower(val)); kind {
	case ProberAuto, ProberICMP, ProberExternal, ProberParallel, ProberTCP, ProberSimulated:
		return kind, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidProber, val)
	}
}

func applyCLIOverrides(global *GlobalOptions, overrides CLIOverrides) {
	if overrides.Interval != nil {
		global.Interval = *overrides.Interval
	}
	if overrides.Timeout != nil {
		global.Timeout = *overrides.Timeout
	}
	if overrides.MaxConcurrency != nil {
		global.MaxConcurrency = *overrides.MaxConcurrency
	}
	if overrides.Prober != nil {
		global.Prober = *overrides.Prober
	}
	if overrides.Listen != nil {
		global.Listen = normalizeListen(*overrides.Listen)
	}
	if overrides.Webhook != nil {
		global.Webhook = *overrides.Webhook
	}
	if overrides.UIDisable != nil {
		global.UIDisable = *overrides.UIDisable
	}
	if overrides.LogLevel != nil {
		global.LogLevel = *overrides.LogLevel
	}
}

func validate(cfg *Config) error {
	if cfg.Global.Interval <= 0 {
		return fmt.Errorf("interval must be positive, got %v", cfg.Global.Interval)
	}
	if cfg.Global.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %v", cfg.Global.Timeout)
	}
	for _, g := range cfg.Groups {
		if g.Coordinates == nil {
			continue
		}
		if g.Coordinates.Lat < -90 || g.Coordinates.Lat > 90 || g.Coordinates.Lng < -180 || g.Coordinates.Lng > 180 {
			return fmt.Errorf("group %q: %w", g.Name, ErrInvalidCoordinates)
		}
	}
	if _, err := cfg.Registry(); err != nil {
		return err
	}
	return nil
}

func normalizeListen(val string) string {
	if isDigits(val) {
		return ":" + val
	}
	return val
}

func isDigits(value string) bool {
	if value == "" {
		return false
	}
	for _, r := range value {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
