package mqttctrl

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/sirupsen/logrus"

	"github.com/Agrid-Dev/housemocktat/internal/household"
	"github.com/Agrid-Dev/housemocktat/internal/ports"
)

type Config struct {
	// Identity
	DeviceID string

	// MQTT connection
	BrokerURL string
	ClientID  string

	// Topics
	BaseTopic string

	// Behavior
	QoS             byte
	RetainReading   bool
	PublishInterval time.Duration

	Username string
	Password string
}

type Controller struct {
	svc ports.HouseService
	cfg Config
	log *logrus.Entry

	client mqtt.Client
}

func New(svc ports.HouseService, cfg Config, log *logrus.Logger) (*Controller, error) {
	// ---- defaults ----

	if cfg.BrokerURL == "" {
		cfg.BrokerURL = "tcp://localhost:1883"
	}

	if cfg.DeviceID == "" {
		return nil, errors.New("mqtt: DeviceID is required")
	}
	if cfg.BaseTopic == "" {
		cfg.BaseTopic = "housemocktat/" + cfg.DeviceID
	}
	if cfg.ClientID == "" {
		cfg.ClientID = "housemocktat-" + cfg.DeviceID
	}
	if cfg.PublishInterval <= 0 {
		cfg.PublishInterval = 1 * time.Second
	}
	if cfg.QoS > 1 {
		return nil, errors.New("mqtt: QoS must be 0 or 1")
	}
	return &Controller{
		svc: svc,
		cfg: cfg,
		log: log.WithField("component", "mqtt"),
	}, nil
}

func (c *Controller) Run(ctx context.Context) error {
	opts := mqtt.NewClientOptions().
		AddBroker(c.cfg.BrokerURL).
		SetClientID(c.cfg.ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(2 * time.Second)

	if c.cfg.Username != "" {
		opts.SetUsername(c.cfg.Username)
		opts.SetPassword(c.cfg.Password)
	}

	// Subscribe when connected/reconnected.
	opts.OnConnect = func(cl mqtt.Client) {
		topic := c.topic("set/#")
		token := cl.Subscribe(topic, c.cfg.QoS, c.onMessage)
		token.Wait()
		if err := token.Error(); err != nil {
			c.log.WithError(err).WithField("topic", topic).Error("subscribe failed")
		}
	}

	c.client = mqtt.NewClient(opts)
	tok := c.client.Connect()
	tok.Wait()
	if err := tok.Error(); err != nil {
		return fmt.Errorf("mqtt connect: %w", err)
	}
	c.log.WithField("broker", c.cfg.BrokerURL).Info("connected")

	// Publish loop: publish the reading on interval, and only when changed.
	ticker := time.NewTicker(c.cfg.PublishInterval)
	defer ticker.Stop()

	last := c.publishReading()

	for {
		select {
		case <-ctx.Done():
			c.client.Disconnect(250)
			return ctx.Err()

		case <-ticker.C:
			if cur := c.svc.Latest(); !reflect.DeepEqual(cur, last) {
				last = c.publishReading()
			}
		}
	}
}

func (c *Controller) publishReading() household.Reading {
	r := c.svc.Latest()
	dto := readingDTO{
		PowerStates: r.PowerStates,
		Devices:     r.Bitmask(),
		TotalDraw:   r.TotalDraw,
		Temperature: r.Temperature,
		Time:        r.Time,
		Running:     c.svc.Running(),
	}
	b, _ := json.Marshal(dto)
	c.client.Publish(c.topic("reading"), c.cfg.QoS, c.cfg.RetainReading, b)
	return r
}

type readingDTO struct {
	PowerStates []bool  `json:"power_states"`
	Devices     uint8   `json:"devices"`
	TotalDraw   float64 `json:"total_draw_kw"`
	Temperature float64 `json:"temperature"`
	Time        int64   `json:"time"`
	Running     bool    `json:"running"`
}

// Command payload format: {"value": ...}
type valueReq[T any] struct {
	Value *T `json:"value"`
}

func (c *Controller) onMessage(_ mqtt.Client, msg mqtt.Message) {
	// topic format: <base>/set/<field>[/<index>]
	t := msg.Topic()
	prefix := c.cfg.BaseTopic + "/set/"
	if !strings.HasPrefix(t, prefix) {
		return
	}
	field, arg, _ := strings.Cut(strings.TrimPrefix(t, prefix), "/")

	payload := msg.Payload()
	entry := c.log.WithField("topic", t)

	var err error
	switch field {
	case "lock":
		var idx int
		var v bool
		if idx, err = strconv.Atoi(arg); err == nil {
			if v, err = decodeValueStrict[bool](payload); err == nil {
				err = c.svc.SetPowerLock(idx, v)
			}
		}

	case "target_temperature":
		var idx int
		var v float64
		if idx, err = strconv.Atoi(arg); err == nil {
			if v, err = decodeValueStrict[float64](payload); err == nil {
				err = c.svc.SetTargetTemperature(idx, v)
			}
		}

	case "time":
		var v int64
		if v, err = decodeValueStrict[int64](payload); err == nil && !c.svc.SetTime(v) {
			entry.WithField("time", v).Info("stale clock ignored")
		}

	case "running":
		var v bool
		if v, err = decodeValueStrict[bool](payload); err == nil {
			c.svc.SetRunning(v)
		}

	default:
		entry.Debug("unknown command")
		return
	}

	if err != nil {
		entry.WithError(err).Warn("command rejected")
	}
}

func (c *Controller) topic(suffix string) string {
	return strings.TrimRight(c.cfg.BaseTopic, "/") + "/" + suffix
}

func decodeValueStrict[T any](b []byte) (T, error) {
	var zero T
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.DisallowUnknownFields()
	var req valueReq[T]
	if err := dec.Decode(&req); err != nil {
		return zero, err
	}
	if req.Value == nil {
		return zero, errors.New("missing field 'value'")
	}
	return *req.Value, nil
}
