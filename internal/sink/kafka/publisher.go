package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/i474232898/weather-dashboard/internal/observability"
	"github.com/i474232898/weather-dashboard/internal/weather"
)

// queueSize bounds the hand-off between the pipeline and the Kafka writer.
const queueSize = 64

// messageWriter is the subset of *kafkago.Writer the publisher uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Publisher forwards merged snapshots to a Kafka topic. Synthetic ticks and
// status messages stay local; only snapshots with a new revision are sent.
type Publisher struct {
	writer  messageWriter
	logger  *slog.Logger
	metrics *observability.Metrics
	queue   chan weather.Snapshot

	// Touched by PublishSnapshot only, which the pipeline calls from one goroutine.
	lastRevision uint64
}

// NewPublisher creates a producer for topic on brokers.
func NewPublisher(brokers []string, topic string, logger *slog.Logger, metrics *observability.Metrics) *Publisher {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireAll,
		BatchTimeout: 100 * time.Millisecond,
	}
	return newPublisher(w, logger, metrics)
}

func newPublisher(w messageWriter, logger *slog.Logger, metrics *observability.Metrics) *Publisher {
	return &Publisher{
		writer:  w,
		logger:  logger,
		metrics: metrics,
		queue:   make(chan weather.Snapshot, queueSize),
	}
}

// PublishSnapshot queues snapshot when it carries a new revision. A full
// queue drops it.
func (p *Publisher) PublishSnapshot(snapshot weather.Snapshot) {
	if snapshot.Revision == 0 || snapshot.Revision == p.lastRevision {
		return
	}
	p.lastRevision = snapshot.Revision

	select {
	case p.queue <- snapshot:
	default:
		p.metrics.SinkDropped.WithLabelValues("kafka").Inc()
		p.logger.Warn("kafka queue full, dropping snapshot", "revision", snapshot.Revision)
	}
}

func (p *Publisher) PublishStatus(weather.Status) {}

// Run writes queued snapshots until ctx is cancelled.
func (p *Publisher) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case snap := <-p.queue:
			msg, err := serializeToMessage(snap)
			if err != nil {
				p.logger.Error("serialize snapshot failed", "error", err, "revision", snap.Revision)
				continue
			}
			if err := p.writer.WriteMessages(ctx, msg); err != nil {
				if ctx.Err() != nil {
					return
				}
				p.logger.Error("kafka write failed", "error", err, "revision", snap.Revision)
			}
		}
	}
}

// Close flushes and closes the underlying writer.
func (p *Publisher) Close() error {
	return p.writer.Close()
}

// serializeToMessage marshals a snapshot into a Kafka message keyed by query.
func serializeToMessage(snap weather.Snapshot) (kafkago.Message, error) {
	data, err := json.Marshal(snap)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize snapshot: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(snap.Query),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "revision", Value: []byte(strconv.FormatUint(snap.Revision, 10))},
			{Key: "updated_at", Value: []byte(snap.UpdatedAt.Format(time.RFC3339))},
		},
	}, nil
}
