package kafka

import (
	"context"
	"log/slog"
	"slices"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/disaster-correlation-etl/internal/config"
	"github.com/couchcryptid/disaster-correlation-etl/internal/domain"
)

// Writer produces finished records to the sink topic and rejections to the
// reject topic. It implements pipeline.BatchLoader.
type Writer struct {
	writer      *kafkago.Writer
	sinkTopic   string
	rejectTopic string
	logger      *slog.Logger
}

// NewWriter creates a Kafka producer. The topic is set per message, so one
// producer serves both the sink and the reject topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Writer{
		writer:      w,
		sinkTopic:   cfg.KafkaSinkTopic,
		rejectTopic: cfg.KafkaRejectTopic,
		logger:      logger,
	}
}

// LoadBatch publishes the events in a single WriteMessages call. Rejected
// events are dropped with a debug log when no reject topic is configured.
func (w *Writer) LoadBatch(ctx context.Context, events []domain.OutputEvent) error {
	msgs := make([]kafkago.Message, 0, len(events))
	for _, event := range events {
		topic := w.topicFor(event)
		if topic == "" {
			w.logger.Debug("reject topic disabled, dropping rejection",
				"key", string(event.Key), "reason", event.Headers["reason"])
			continue
		}
		msgs = append(msgs, serializeToMessage(topic, event))
	}
	if len(msgs) == 0 {
		return nil
	}
	return w.writer.WriteMessages(ctx, msgs...)
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

func (w *Writer) topicFor(event domain.OutputEvent) string {
	if event.Rejected {
		return w.rejectTopic
	}
	return w.sinkTopic
}

// serializeToMessage converts an output event into a Kafka message for topic.
// Headers are emitted in key order so messages are reproducible.
func serializeToMessage(topic string, event domain.OutputEvent) kafkago.Message {
	keys := make([]string, 0, len(event.Headers))
	for k := range event.Headers {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	headers := make([]kafkago.Header, 0, len(keys))
	for _, k := range keys {
		headers = append(headers, kafkago.Header{Key: k, Value: []byte(event.Headers[k])})
	}
	return kafkago.Message{
		Topic:   topic,
		Key:     event.Key,
		Value:   event.Value,
		Headers: headers,
	}
}
