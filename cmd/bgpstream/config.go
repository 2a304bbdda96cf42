package main

import (
	"fmt"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// sourceConfig is one entry of the static resource list a config file
// or --resource flag describes; translated into resource.Resource by
// buildSources in main.go. Keeping this separate from resource.Resource
// itself is the "CLI is a thin translator" boundary from spec.md §1 /
// §9: the Core never parses a config file.
type sourceConfig struct {
	Transport  string            `koanf:"transport"`
	Format     string            `koanf:"format"`
	URI        string            `koanf:"uri"`
	Project    string            `koanf:"project"`
	Collector  string            `koanf:"collector"`
	RecordType string            `koanf:"record_type"`
	Initial    uint32            `koanf:"initial_time"`
	Duration   uint32            `koanf:"duration"`
	Attrs      map[string]string `koanf:"attrs"`
}

// config is the fully-resolved CLI+file+env configuration bgpstream
// runs with.
type config struct {
	LogLevel    string         `koanf:"log"`
	MetricsAddr string         `koanf:"metrics_addr"`
	RIBPeriod   uint32         `koanf:"rib_period"`
	Projects    []string       `koanf:"project"`
	Collectors  []string       `koanf:"collector"`
	PeerASNs    []uint32       `koanf:"peer_asn"`
	Prefixes    []string       `koanf:"prefix"`
	Sources     []sourceConfig `koanf:"sources"`
}

// loadConfig builds the flag set, overlays a YAML config file (if
// --config is given) and BGPSTREAM_-prefixed env vars, then the CLI
// flags themselves (highest priority), following the same
// file-then-env-then-posflag layering as
// pobradovic08-route-beacon-ri's internal/config.Load, with the
// posflag layer added on top the way core/bgpipe.go's Configure does.
func loadConfig(args []string) (*config, error) {
	f := pflag.NewFlagSet("bgpstream", pflag.ContinueOnError)
	f.SortFlags = false
	f.String("log", "info", "log level (debug/info/warn/error/disabled)")
	f.String("config", "", "path to a YAML config file")
	f.String("metrics_addr", "", "if set, serve VictoriaMetrics/Prometheus text metrics on this address")
	f.Uint32("rib_period", 0, "minimum seconds between admitted RIB dumps per (project, collector); 0 disables throttling")
	f.StringSlice("project", nil, "admit only these projects (repeatable)")
	f.StringSlice("collector", nil, "admit only these collectors (repeatable)")
	f.StringSlice("peer_asn", nil, "admit only these peer ASNs (repeatable)")
	f.StringSlice("prefix", nil, "admit only elems matching one of these prefixes, exact match (repeatable)")
	if err := f.Parse(args); err != nil {
		return nil, fmt.Errorf("bgpstream: parsing flags: %w", err)
	}

	k := koanf.New(".")

	if path, _ := f.GetString("config"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("bgpstream: loading config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("BGPSTREAM_", ".", func(s string) string {
		s = strings.TrimPrefix(s, "BGPSTREAM_")
		return strings.ToLower(s)
	}), nil); err != nil {
		return nil, fmt.Errorf("bgpstream: loading env config: %w", err)
	}

	if err := k.Load(posflag.Provider(f, ".", k), nil); err != nil {
		return nil, fmt.Errorf("bgpstream: loading flag config: %w", err)
	}

	cfg := new(config)
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("bgpstream: unmarshaling config: %w", err)
	}
	return cfg, nil
}
