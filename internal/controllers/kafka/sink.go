package kafkactrl

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"

	"github.com/Agrid-Dev/housemocktat/internal/household"
)

type Config struct {
	DeviceID string
	RunID    string
	Brokers  []string
	Topic    string
}

// messageWriter is the subset of *kafka.Writer the sink needs.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Sink publishes every reading as a JSON message keyed by device id.
type Sink struct {
	cfg Config
	w   messageWriter
	log *logrus.Entry
}

func New(cfg Config, log *logrus.Logger) (*Sink, error) {
	if cfg.DeviceID == "" {
		return nil, errors.New("kafka: DeviceID is required")
	}
	if len(cfg.Brokers) == 0 {
		return nil, errors.New("kafka: at least one broker is required")
	}
	if cfg.Topic == "" {
		cfg.Topic = "housemocktat.readings"
	}
	w := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		BatchTimeout: 50 * time.Millisecond,
		Async:        false,
	}
	return newWithWriter(cfg, w, log), nil
}

func newWithWriter(cfg Config, w messageWriter, log *logrus.Logger) *Sink {
	return &Sink{
		cfg: cfg,
		w:   w,
		log: log.WithFields(logrus.Fields{"component": "kafka", "topic": cfg.Topic}),
	}
}

type readingMessage struct {
	DeviceID    string  `json:"device_id"`
	RunID       string  `json:"run_id,omitempty"`
	PowerStates []bool  `json:"power_states"`
	Devices     uint8   `json:"devices"`
	TotalDraw   float64 `json:"total_draw_kw"`
	Temperature float64 `json:"temperature"`
	Time        int64   `json:"time"`
}

// Publish implements simulation.Sink.
func (s *Sink) Publish(ctx context.Context, r household.Reading) error {
	b, err := json.Marshal(readingMessage{
		DeviceID:    s.cfg.DeviceID,
		RunID:       s.cfg.RunID,
		PowerStates: r.PowerStates,
		Devices:     r.Bitmask(),
		TotalDraw:   r.TotalDraw,
		Temperature: r.Temperature,
		Time:        r.Time,
	})
	if err != nil {
		return fmt.Errorf("kafka: encode reading: %w", err)
	}
	msg := kafka.Message{
		Key:   []byte(s.cfg.DeviceID),
		Value: b,
		Time:  time.Unix(r.Time, 0),
	}
	if err := s.w.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("kafka: write: %w", err)
	}
	return nil
}

// Run blocks until ctx is canceled and then closes the writer.
func (s *Sink) Run(ctx context.Context) error {
	s.log.Info("publishing readings")
	<-ctx.Done()
	if err := s.w.Close(); err != nil {
		s.log.WithError(err).Warn("close writer")
	}
	return ctx.Err()
}
