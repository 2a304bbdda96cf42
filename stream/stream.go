// Package stream implements the top-level consumer-facing object (C9):
// a minimal state machine tying the resource manager (C6) to the
// reader manager (C7) and the current record's elem generator (C3/C5),
// filtered through the filter manager (C8) at both resource-admission
// and record/elem-emission time.
//
// Grounded on spec.md §4.9 and, for its logger-embedding/options/
// lifecycle shape, on core/bgpipe.go's Bgpipe struct and NewBgpipe.
package stream

import (
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/routeviews/bgpstream/bgprecord"
	"github.com/routeviews/bgpstream/filter"
	"github.com/routeviews/bgpstream/internal/metricsutil"
	"github.com/routeviews/bgpstream/reader"
	"github.com/routeviews/bgpstream/resource"

	_ "github.com/routeviews/bgpstream/format/bmp"
	_ "github.com/routeviews/bgpstream/format/mrt"
	_ "github.com/routeviews/bgpstream/format/rislive"
)

// state is the ALLOCATED → ON → OFF machine from spec.md §4.9.
type state uint8

const (
	stateAllocated state = iota
	stateOn
	stateOff
)

// Stream is the single object a consumer drives. Not safe for
// concurrent use: spec.md §5 scopes one stream to one consumer thread.
type Stream struct {
	zerolog.Logger

	st state

	filter    *filter.Manager
	resources *resource.Manager
	readers   *reader.Manager
	sources   []resource.Source

	metrics *metricsutil.Stream

	cur bgprecord.Record
}

// Option configures a Stream at construction time.
type Option func(*Stream)

// WithLogger overrides the default stderr console logger.
func WithLogger(log zerolog.Logger) Option {
	return func(s *Stream) { s.Logger = log }
}

// WithName sets the label this stream's metrics are registered under
// (metricsutil.NewStream); defaults to "default" if never set.
func WithName(name string) Option {
	return func(s *Stream) { s.metrics = metricsutil.NewStream(name) }
}

// New returns an ALLOCATED stream, ready for AddFilter/AddResourceSource
// calls followed by Start.
func New(opts ...Option) *Stream {
	s := &Stream{
		st:        stateAllocated,
		filter:    filter.NewManager(),
		resources: resource.NewManager(),
		metrics:   metricsutil.NewStream("default"),
		Logger: zerolog.New(zerolog.ConsoleWriter{
			Out:        os.Stderr,
			TimeFormat: time.DateTime,
		}).With().Timestamp().Logger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AddFilter installs one predicate value for dim (spec.md §6's
// add_filter). Legal in any state.
func (s *Stream) AddFilter(dim filter.Dimension, value any) error {
	return s.filter.Add(dim, value)
}

// AddResourceSource registers a discovery source to be drained on
// Start (spec.md §1's "the Core consumes a resource stream
// abstractly").
func (s *Stream) AddResourceSource(src resource.Source) {
	s.sources = append(s.sources, src)
}

// Start moves ALLOCATED→ON, draining every registered source into the
// resource manager (spec.md §4.9's start()).
func (s *Stream) Start() error {
	if s.st != stateAllocated {
		return ErrAlreadyStarted
	}
	if len(s.sources) == 0 {
		return ErrNoResourceSource
	}

	s.readers = reader.NewManager(s.Logger)

	for _, src := range s.sources {
		for {
			res, ok, err := src.Next()
			if err != nil {
				return err
			}
			if !ok {
				break
			}
			if !s.filter.AdmitResource(res) {
				s.metrics.RIBThrottled()
				s.Debug().Str("uri", res.URI).Msg("stream: resource rejected by RIB throttle")
				continue
			}
			if err := s.resources.Push(res); err != nil {
				s.Warn().Err(err).Str("uri", res.URI).Msg("stream: could not push resource")
			}
		}
	}

	s.st = stateOn
	return nil
}

// timeFilter adapts the filter manager's record-level time-interval
// check into the per-format format.TimeFilter hook (spec.md §4.4's
// filter_cb). A format skips each record the hook rejects and keeps
// reading; no format ends a dump early with StatusOutsideTimeInterval.
func (s *Stream) timeFilter(timeSec uint32) bool {
	return s.filter.FilterRecord(&bgprecord.Record{TimeSec: timeSec})
}

// GetNextRecord implements spec.md §4.9's get_next_record: returns
// (1, nil) with rec populated, (0, nil) on clean end-of-stream, or
// (-1, err) on misuse/unrecoverable error.
func (s *Stream) GetNextRecord(rec *bgprecord.Record) (int, error) {
	if s.st != stateOn {
		return -1, ErrNotStarted
	}

	for {
		rec.Reset()

		if s.readers.Empty() {
			batch := s.resources.GetBatch()
			if len(batch) == 0 {
				return 0, nil
			}
			s.readers.Add(batch, s.timeFilter)
			s.metrics.SetReadersOpen(s.readers.Len())
			if s.readers.Empty() {
				continue
			}
		}

		ok, err := s.readers.GetNextRecord(rec)
		s.metrics.SetReadersOpen(s.readers.Len())
		if err != nil {
			return -1, err
		}
		if !ok {
			continue
		}

		if !s.filter.FilterRecord(rec) {
			s.metrics.RecordFiltered()
			continue
		}

		if rec.Status == bgprecord.StatusCorruptedRecord {
			s.metrics.CorruptedRecord()
		}
		s.metrics.RecordRead()
		s.cur = *rec
		return 1, nil
	}
}

// GetNextElem implements spec.md §4.9's get_next_elem: drives rec's
// elem generator, re-filtering each candidate elem, returning the
// first that passes.
func (s *Stream) GetNextElem(rec *bgprecord.Record, elem *bgprecord.Elem) (int, error) {
	if s.st != stateOn {
		return -1, ErrNotStarted
	}
	if !rec.HasGenerator() {
		return 0, nil
	}

	for {
		e, ok, err := rec.NextElem()
		if err != nil {
			return -1, err
		}
		if !ok {
			return 0, nil
		}
		if !s.filter.FilterElem(rec, &e) {
			continue
		}
		*elem = e
		return 1, nil
	}
}

// Stop moves ON→OFF, dropping the resource/reader managers (spec.md
// §4.9's stop()).
func (s *Stream) Stop() error {
	if s.st == stateOff {
		return nil
	}
	if s.readers != nil {
		for !s.readers.Empty() {
			var discard bgprecord.Record
			if _, err := s.readers.GetNextRecord(&discard); err != nil {
				break
			}
		}
	}
	s.readers = nil
	s.resources = nil
	s.filter = nil
	s.st = stateOff
	return nil
}
