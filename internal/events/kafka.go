package events

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/segmentio/kafka-go/sasl"
	"github.com/segmentio/kafka-go/sasl/plain"
	"go.uber.org/zap"

	"github.com/duthaho/trello-clone-sub000/internal/config"
)

// KafkaPublisher writes events to a topic keyed by project so one project's
// events stay ordered within a partition.
type KafkaPublisher struct {
	w *kafka.Writer
}

func NewKafkaPublisher(cfg config.KafkaConfig) *KafkaPublisher {
	transport := &kafka.Transport{DialTimeout: 10 * time.Second}
	if m := saslMechanism(cfg); m != nil {
		transport.SASL = m
		transport.TLS = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	return &KafkaPublisher{w: &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Topic:                  cfg.Topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		BatchTimeout:           10 * time.Millisecond,
		AllowAutoTopicCreation: true,
		Transport:              transport,
	}}
}

func (p *KafkaPublisher) Publish(ctx context.Context, evs ...Event) error {
	if len(evs) == 0 {
		return nil
	}
	msgs := make([]kafka.Message, 0, len(evs))
	for _, ev := range evs {
		b, err := json.Marshal(ev)
		if err != nil {
			return fmt.Errorf("encode event %s: %w", ev.Type, err)
		}
		msgs = append(msgs, kafka.Message{
			Key:   []byte(strconv.FormatInt(ev.ProjectID, 10)),
			Value: b,
		})
	}
	if err := p.w.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("kafka write: %w", err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.w.Close()
}

// Consumer reads events of one consumer group member.
type Consumer struct {
	r   *kafka.Reader
	log *zap.SugaredLogger
}

func NewConsumer(cfg config.KafkaConfig, log *zap.SugaredLogger) *Consumer {
	dialer := &kafka.Dialer{Timeout: 10 * time.Second, DualStack: true}
	if m := saslMechanism(cfg); m != nil {
		dialer.SASLMechanism = m
		dialer.TLS = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	return &Consumer{
		r: kafka.NewReader(kafka.ReaderConfig{
			Brokers:  cfg.Brokers,
			GroupID:  cfg.GroupID,
			Topic:    cfg.Topic,
			Dialer:   dialer,
			MinBytes: 1,
			MaxBytes: 10e6,
		}),
		log: log.Named("kafka.consumer"),
	}
}

// Run fetches events until ctx is done. Offsets are committed after handle
// returns, so an event is redelivered if the process dies mid-job.
func (c *Consumer) Run(ctx context.Context, handle func(context.Context, Event) error) error {
	for {
		m, err := c.r.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				return nil
			}
			return fmt.Errorf("kafka fetch: %w", err)
		}

		var ev Event
		if err := json.Unmarshal(m.Value, &ev); err != nil {
			c.log.Errorw("dropping malformed event", "error", err, "partition", m.Partition, "offset", m.Offset)
		} else if err := handle(ctx, ev); err != nil {
			c.log.Errorw("event handler failed", "error", err, "event_id", ev.ID, "type", ev.Type)
		}

		if err := c.r.CommitMessages(ctx, m); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("kafka commit: %w", err)
		}
	}
}

func (c *Consumer) Close() error {
	return c.r.Close()
}

func saslMechanism(cfg config.KafkaConfig) sasl.Mechanism {
	if cfg.APIKey == "" || cfg.APISecret == "" {
		return nil
	}
	return plain.Mechanism{Username: cfg.APIKey, Password: cfg.APISecret}
}
