// Package kafka implements the Kafka transport variant (spec.md §4.3):
// a consumer-group subscription to one or more topics, polled with a
// 0-ms timeout so Read never blocks the Core's cooperative scheduler.
// Grounded on stages/rv-live/kafka.go's kgo.Client construction.
package kafka

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/routeviews/bgpstream/internal/ratelimit"
	"github.com/routeviews/bgpstream/transport"
	"github.com/twmb/franz-go/pkg/kgo"
)

// maxEmptyPollRate bounds how often Read may actually issue a 0-ms
// PollFetches; every poll counts against it, whether or not the
// previous one returned data. The Core's
// cooperative scheduler calls Read in a tight loop while a live
// stream has nothing new (spec.md §5: "0 bytes... is not EOS"); without
// this governor that loop would hammer the client's internal fetch
// path at CPU speed instead of at the rate new data can plausibly
// arrive.
const maxEmptyPollRate = 200 // polls/sec

func init() {
	transport.Register(transport.KindKafka, Open)
}

const (
	attrTopic         = "KAFKA_TOPIC"
	attrConsumerGroup = "KAFKA_CONSUMER_GROUP"
	attrInitOffset    = "KAFKA_INIT_OFFSET"
)

// Transport consumes one or more Kafka topics as a consumer group and
// surfaces each message payload through Read.
type Transport struct {
	client  *kgo.Client
	ctx     context.Context
	cancel  context.CancelFunc
	pending []byte // payloads of the further records from the last poll, concatenated
	eos     bool

	emptyPollGate *ratelimit.PollGovernor
}

// Open implements transport.Opener for transport.KindKafka: broker
// list from uri (comma-separated), topic(s)/group/offset from attrs
// per spec.md §4.3/§6.
func Open(uri string, attrs transport.Attrs) (transport.Transport, error) {
	brokers := strings.Split(uri, ",")

	topicsAttr := attrs[attrTopic]
	if topicsAttr == "" {
		return nil, fmt.Errorf("transport/kafka: missing %s attribute", attrTopic)
	}
	topics := strings.Split(topicsAttr, ",")

	group := attrs[attrConsumerGroup]
	if group == "" {
		group = fmt.Sprintf("bgpstream-%d-%d", time.Now().UnixMilli(), rand.Int63())
	}

	offset := kgo.NewOffset().AtEnd() // default "latest"
	switch attrs[attrInitOffset] {
	case "earliest":
		offset = kgo.NewOffset().AtStart()
	case "", "latest":
		// keep default
	}

	ctx, cancel := context.WithCancel(context.Background())
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.ConsumeTopics(topics...),
		kgo.ConsumerGroup(group),
		kgo.ConsumeResetOffset(offset),
		kgo.DisableAutoCommit(),
	)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("transport/kafka: %w", err)
	}

	return &Transport{
		client:        client,
		ctx:           ctx,
		cancel:        cancel,
		emptyPollGate: ratelimit.NewPollGovernor(maxEmptyPollRate, maxEmptyPollRate),
	}, nil
}

// Read polls with a 0-ms timeout and copies the first message payload
// into buf; the caller's buffer must be >= the message length. The
// payloads of any further messages from the same poll are queued and
// returned, concatenated, by the following Reads. Returning 0
// bytes with a nil error means "no data yet" for a live stream, per
// spec.md §5 -- it is NOT end-of-stream.
func (t *Transport) Read(buf []byte) (int, error) {
	if len(t.pending) > 0 {
		n := copy(buf, t.pending)
		t.pending = t.pending[n:]
		return n, nil
	}
	if t.eos {
		return 0, nil
	}
	if !t.emptyPollGate.Allow() {
		return 0, nil // governed: too soon to poll again
	}

	pollCtx, cancel := context.WithTimeout(t.ctx, 0)
	defer cancel()
	fetches := t.client.PollFetches(pollCtx)

	if fetches.IsClientClosed() {
		t.eos = true
		return 0, nil
	}

	var fatal error
	fetches.EachError(func(topic string, partition int32, err error) {
		if classifyFatal(err) {
			fatal = fmt.Errorf("transport/kafka: %s[%d]: %w", topic, partition, err)
		}
	})
	if fatal != nil {
		return 0, fatal
	}

	var payload []byte
	fetches.EachRecord(func(r *kgo.Record) {
		if payload == nil {
			payload = r.Value
		} else {
			t.pending = append(t.pending, r.Value...)
		}
	})
	if payload == nil {
		return 0, nil // no message available within the 0-ms poll
	}

	if len(payload) > len(buf) {
		panic("transport/kafka: caller buffer shorter than message length")
	}
	n := copy(buf, payload)
	return n, nil
}

// classifyFatal distinguishes fatal Kafka errors (name resolution,
// codec) from reconnectable ones (transport, all-brokers-down) per
// spec.md §4.3. franz-go retries reconnectable errors internally, so
// anything surfaced to EachError here is treated as fatal, except the
// expired context of a 0-ms poll that found no data.
func classifyFatal(err error) bool {
	return err != nil &&
		!errors.Is(err, context.DeadlineExceeded) &&
		!errors.Is(err, context.Canceled)
}

// ReadLine is not meaningful for a Kafka message transport: each
// message is a complete framed unit, not a line-delimited stream.
func (t *Transport) ReadLine() ([]byte, error) {
	return nil, transport.ErrLineUnsupported
}

func (t *Transport) Close() error {
	t.cancel()
	t.client.Close()
	return nil
}
