// Command bgpstream is a thin CLI translator over the Core's public
// stream.Stream API: it parses flags/config into a static resource
// list and a filter set, then drives GetNextRecord/GetNextElem until
// end-of-stream, printing one line per elem. It owns no protocol
// logic (spec.md §1, §9's Design Notes: "the Core takes configuration
// as structured inputs; any CLI is a thin translator").
package main

import (
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/routeviews/bgpstream/bgpaddr"
	"github.com/routeviews/bgpstream/bgprecord"
	"github.com/routeviews/bgpstream/filter"
	"github.com/routeviews/bgpstream/internal/metricsutil"
	"github.com/routeviews/bgpstream/resource"
	"github.com/routeviews/bgpstream/stream"
	"github.com/routeviews/bgpstream/transport"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	cfg, err := loadConfig(args)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}

	lvl, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, "bgpstream: bad -log level:", err)
		return 2
	}
	zerolog.SetGlobalLevel(lvl)
	log := zerolog.New(zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.DateTime,
	}).With().Timestamp().Logger()

	if cfg.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.HandleFunc("/metrics", metricsutil.ServeHTTP)
		go func() {
			if err := http.ListenAndServe(cfg.MetricsAddr, mux); err != nil {
				log.Error().Err(err).Msg("bgpstream: metrics server stopped")
			}
		}()
		log.Info().Str("addr", cfg.MetricsAddr).Msg("bgpstream: serving metrics")
	}

	src, err := buildSources(cfg)
	if err != nil {
		log.Error().Err(err).Msg("bgpstream: bad source configuration")
		return 2
	}

	s := stream.New(stream.WithLogger(log), stream.WithName("bgpstream"))
	if err := applyFilters(s, cfg); err != nil {
		log.Error().Err(err).Msg("bgpstream: bad filter configuration")
		return 2
	}
	s.AddResourceSource(src)

	if err := s.Start(); err != nil {
		log.Error().Err(err).Msg("bgpstream: start failed")
		return 1
	}
	defer s.Stop()

	return drive(s, &log)
}

// drive pulls records and elems until clean EOS (spec.md §6's exit-code
// contract: 0 on clean EOS, non-zero when get_next_record == -1).
func drive(s *stream.Stream, log *zerolog.Logger) int {
	var rec bgprecord.Record
	var elem bgprecord.Elem

	for {
		rc, err := s.GetNextRecord(&rec)
		if rc == -1 {
			log.Error().Err(err).Msg("bgpstream: fatal error reading next record")
			return 1
		}
		if rc == 0 {
			return 0
		}

		for {
			rc, err := s.GetNextElem(&rec, &elem)
			if rc == -1 {
				log.Error().Err(err).Msg("bgpstream: fatal error reading next elem")
				return 1
			}
			if rc == 0 {
				break
			}
			printElem(&rec, &elem)
		}
	}
}

func printElem(rec *bgprecord.Record, e *bgprecord.Elem) {
	fmt.Printf("%s|%d.%06d|%s|%s|%s|%d|%s|%s\n",
		e.Type, rec.TimeSec, rec.TimeUsec, rec.ProjectName, rec.CollectorName,
		e.PeerIP, e.PeerASN, e.Prefix, e.ASPath)
}

func applyFilters(s *stream.Stream, cfg *config) error {
	if cfg.RIBPeriod > 0 {
		if err := s.AddFilter(filter.DimRIBPeriod, cfg.RIBPeriod); err != nil {
			return err
		}
	}
	for _, p := range cfg.Projects {
		if err := s.AddFilter(filter.DimProject, p); err != nil {
			return err
		}
	}
	for _, c := range cfg.Collectors {
		if err := s.AddFilter(filter.DimCollector, c); err != nil {
			return err
		}
	}
	for _, asn := range cfg.PeerASNs {
		if err := s.AddFilter(filter.DimPeerASN, asn); err != nil {
			return err
		}
	}
	for _, ps := range cfg.Prefixes {
		p, err := bgpaddr.ParsePrefix(ps)
		if err != nil {
			return fmt.Errorf("bgpstream: bad -prefix %q: %w", ps, err)
		}
		if err := s.AddFilter(filter.DimPrefixExact, p); err != nil {
			return err
		}
	}
	return nil
}

// staticSource is the Source implementation cmd/bgpstream supplies
// per spec.md §1's out-of-scope broker/discovery boundary: "the Core
// consumes a resource stream abstractly."
type staticSource struct {
	resources []resource.Resource
	i         int
}

func (s *staticSource) Next() (resource.Resource, bool, error) {
	if s.i >= len(s.resources) {
		return resource.Resource{}, false, nil
	}
	r := s.resources[s.i]
	s.i++
	return r, true, nil
}

func buildSources(cfg *config) (resource.Source, error) {
	out := make([]resource.Resource, 0, len(cfg.Sources))
	for i, sc := range cfg.Sources {
		rt, err := parseRecordType(sc.RecordType)
		if err != nil {
			return nil, fmt.Errorf("sources[%d]: %w", i, err)
		}
		attrs := make(transport.Attrs, len(sc.Attrs))
		for k, v := range sc.Attrs {
			attrs[k] = v
		}
		dur := sc.Duration
		if dur == 0 {
			dur = resource.Forever
		}
		r := resource.Resource{
			TransportKind: transport.Kind(sc.Transport),
			FormatKind:    sc.Format,
			URI:           sc.URI,
			InitialTime:   sc.Initial,
			Duration:      dur,
			Project:       sc.Project,
			Collector:     sc.Collector,
			RecordType:    rt,
			Attrs:         attrs,
		}
		if err := r.Validate(); err != nil {
			return nil, fmt.Errorf("sources[%d]: %w", i, err)
		}
		out = append(out, r)
	}
	return &staticSource{resources: out}, nil
}

func parseRecordType(s string) (bgprecord.RecordType, error) {
	switch s {
	case "rib", "RIB":
		return bgprecord.RecordRIB, nil
	case "update", "UPDATE":
		return bgprecord.RecordUpdate, nil
	default:
		return bgprecord.RecordUnknown, fmt.Errorf("unknown record_type %q (want rib or update)", s)
	}
}
