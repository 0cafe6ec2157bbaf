package broadcast

import (
	"context"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// KafkaSink mirrors every event onto a Kafka topic, keyed by event topic so
// each stream keeps its order within a partition.
type KafkaSink struct {
	writer *kafka.Writer
	logger *zap.Logger
}

func NewKafkaSink(brokers []string, topic string, logger *zap.Logger) *KafkaSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("kafka")

	w := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: 50 * time.Millisecond,
		RequiredAcks: kafka.RequireOne,
		Async:        true,
		Completion: func(messages []kafka.Message, err error) {
			if err != nil {
				logger.Warn("kafka delivery failed", zap.Int("messages", len(messages)), zap.Error(err))
			}
		},
	}

	return &KafkaSink{writer: w, logger: logger}
}

func (k *KafkaSink) Publish(topic string, payload any) {
	value, err := encode(topic, payload)
	if err != nil {
		k.logger.Error("encode event", zap.String("topic", topic), zap.Error(err))
		return
	}

	// Async writer: this only enqueues.
	if err := k.writer.WriteMessages(context.Background(), kafka.Message{
		Key:   []byte(topic),
		Value: value,
	}); err != nil {
		k.logger.Warn("kafka enqueue failed", zap.String("topic", topic), zap.Error(err))
	}
}

// Close flushes pending messages.
func (k *KafkaSink) Close() error {
	return k.writer.Close()
}
