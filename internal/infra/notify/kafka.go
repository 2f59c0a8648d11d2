package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/IBM/sarama"
	"github.com/google/uuid"

	"grabit/internal/app/outbox"
	domainbooking "grabit/internal/domain/booking"
)

const defaultSource = "app://grabit"

// KafkaNotifier publishes status changes as CloudEvents JSON to
// <prefix>booking.events.v1, keyed by booking id.
type KafkaNotifier struct {
	producer sarama.SyncProducer
	encoder  outbox.EventEncoder
	prefix   string
	Source   string
}

func NewKafkaNotifier(brokers []string, topicPrefix string) (*KafkaNotifier, error) {
	cfg := sarama.NewConfig()
	cfg.Version = sarama.V2_5_0_0
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Idempotent = true
	cfg.Producer.Return.Successes = true
	cfg.Net.MaxOpenRequests = 1
	producer, err := sarama.NewSyncProducer(brokers, cfg)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return NewKafkaNotifierWithProducer(producer, topicPrefix), nil
}

func NewKafkaNotifierWithProducer(producer sarama.SyncProducer, topicPrefix string) *KafkaNotifier {
	return &KafkaNotifier{
		producer: producer,
		encoder:  outbox.JSONEventEncoder{},
		prefix:   topicPrefix,
	}
}

func (n *KafkaNotifier) Publish(ctx context.Context, ev domainbooking.BookingStatusChanged) error {
	rec, err := n.encoder.Encode(ev)
	if err != nil {
		return fmt.Errorf("encode %s: %w", ev.EventName(), err)
	}
	payload, headers, err := n.formatPayload(rec)
	if err != nil {
		return err
	}
	var hs []sarama.RecordHeader
	for k, v := range headers {
		hs = append(hs, sarama.RecordHeader{Key: []byte(k), Value: []byte(v)})
	}
	msg := &sarama.ProducerMessage{
		Topic:   n.topicFor(rec.Name),
		Key:     sarama.StringEncoder(rec.Aggregate),
		Value:   sarama.ByteEncoder(payload),
		Headers: hs,
	}
	if _, _, err := n.producer.SendMessage(msg); err != nil {
		return fmt.Errorf("kafka send: %w", err)
	}
	return nil
}

func (n *KafkaNotifier) formatPayload(rec outbox.EventRecord) ([]byte, map[string]string, error) {
	data := map[string]any{}
	if err := json.Unmarshal(rec.Payload, &data); err != nil {
		return nil, nil, err
	}
	id := rec.ID
	if id == "" {
		id = uuid.NewString()
	}
	evt := map[string]any{
		"specversion":     "1.0",
		"id":              id,
		"type":            rec.Name + ".v1",
		"source":          n.source(),
		"subject":         rec.Aggregate,
		"time":            rec.OccurredAt,
		"datacontenttype": "application/json",
		"data":            data,
	}
	payload, err := json.Marshal(evt)
	if err != nil {
		return nil, nil, err
	}
	headers := map[string]string{"content-type": "application/cloudevents+json"}
	for k, v := range rec.Headers {
		headers[k] = v
	}
	return payload, headers, nil
}

// topicFor maps booking.status_changed to booking.events.v1.
func (n *KafkaNotifier) topicFor(name string) string {
	base := name
	if idx := strings.IndexRune(name, '.'); idx > 0 {
		base = name[:idx]
	}
	return n.prefix + base + ".events.v1"
}

func (n *KafkaNotifier) source() string {
	if n.Source != "" {
		return n.Source
	}
	return defaultSource
}

func (n *KafkaNotifier) Close() error {
	if n.producer == nil {
		return nil
	}
	return n.producer.Close()
}
