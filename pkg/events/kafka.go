package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
)

// MessageWriter adalah bagian dari *kafka.Writer yang dipakai publisher.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type KafkaPublisher struct {
	writer MessageWriter
}

// NewKafkaPublisher memakai writer async: request tidak menunggu broker, hasil pengiriman
// dilaporkan lewat Completion ke log.
func NewKafkaPublisher(broker, topic string, log logrus.FieldLogger) *KafkaPublisher {
	return &KafkaPublisher{writer: newWriter(broker, topic, log)}
}

func newWriter(broker, topic string, log logrus.FieldLogger) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(broker),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		BatchTimeout: 10 * time.Millisecond,
		WriteTimeout: 3 * time.Second,
		Async:        true,
		Completion: func(msgs []kafka.Message, err error) {
			if err == nil {
				return
			}
			for _, m := range msgs {
				log.WithFields(logrus.Fields{
					"topic":        topic,
					"aggregate_id": string(m.Key),
				}).WithError(err).Warn("failed to deliver event")
			}
		},
	}
}

func NewKafkaPublisherWithWriter(w MessageWriter) *KafkaPublisher {
	return &KafkaPublisher{writer: w}
}

// Publish menulis event sebagai JSON; key = aggregate id, dan balancer Hash menjaga event satu
// entitas tetap di partisi yang sama.
func (kp *KafkaPublisher) Publish(ctx context.Context, e Event) error {
	value, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(strconv.FormatInt(e.AggregateID, 10)),
		Value: value,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(e.Type)},
		},
	}
	if err := kp.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to produce message: %w", err)
	}
	return nil
}

func (kp *KafkaPublisher) Close() error {
	return kp.writer.Close()
}
