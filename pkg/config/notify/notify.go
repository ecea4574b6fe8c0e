// Package notify publishes configuration changes after they have been persisted.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
)

// Change describes one successful write.
type Change struct {
	Key    string    `json:"key"`
	Value  any       `json:"value"`
	Source string    `json:"source"`
	At     time.Time `json:"at"`
}

type Notifier interface {
	Notify(ctx context.Context, change Change) error
	Close() error
}

// Nop discards every change.
type Nop struct{}

func (Nop) Notify(context.Context, Change) error { return nil }
func (Nop) Close() error                         { return nil }

type KafkaConfig struct {
	Brokers []string `yaml:"brokers" json:"brokers" validate:"required,min=1,dive,hostname_port"`
	Topic   string   `yaml:"topic" json:"topic" validate:"required"`
}

// messageWriter is the subset of *kafka.Writer used by Kafka.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Kafka publishes changes as JSON messages keyed by the configuration key, so
// all changes of one key land on the same partition in order.
type Kafka struct {
	writer messageWriter
	source string
	now    func() time.Time
}

func NewKafka(cfg KafkaConfig) *Kafka {
	w := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		BatchSize:    1,
		BatchTimeout: 5 * time.Millisecond,
		WriteTimeout: 10 * time.Second,
	}
	return newKafka(w)
}

func newKafka(w messageWriter) *Kafka {
	return &Kafka{writer: w, source: uuid.NewString(), now: time.Now}
}

// Source identifies this process in published changes.
func (k *Kafka) Source() string { return k.source }

func (k *Kafka) Notify(ctx context.Context, change Change) error {
	if change.Source == "" {
		change.Source = k.source
	}
	if change.At.IsZero() {
		change.At = k.now().UTC()
	}
	payload, err := json.Marshal(change)
	if err != nil {
		return fmt.Errorf("failed to marshal change for %q: %w", change.Key, err)
	}
	msg := kafka.Message{
		Key:   []byte(change.Key),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "source", Value: []byte(change.Source)},
		},
	}
	if err := k.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to publish change for %q: %w", change.Key, err)
	}
	return nil
}

func (k *Kafka) Close() error {
	return k.writer.Close()
}
