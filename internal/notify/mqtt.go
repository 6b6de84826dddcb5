// Package notify публикует результаты распознавания в MQTT для шлагбаумов и табло.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog"

	"plate-service/internal/config"
	"plate-service/internal/recognition"
)

const (
	connectTimeout = 30 * time.Second
	publishTimeout = 10 * time.Second
)

// Event: сообщение о результате распознавания.
type Event struct {
	RequestID    string    `json:"request_id"`
	Status       string    `json:"status"`
	Plate        string    `json:"plate,omitempty"`
	Method       string    `json:"method,omitempty"`
	DetectedText string    `json:"detected_text,omitempty"`
	VehicleID    string    `json:"vehicle_id,omitempty"`
	EmployeeID   string    `json:"employee_id,omitempty"`
	ElapsedMS    int64     `json:"elapsed_ms"`
	Timestamp    time.Time `json:"timestamp"`
}

func NewEvent(out *recognition.Outcome, now time.Time) Event {
	event := Event{
		RequestID:    out.RequestID,
		Status:       string(out.Status),
		Plate:        out.Plate,
		Method:       string(out.Method),
		DetectedText: out.DetectedText,
		ElapsedMS:    out.ElapsedMS,
		Timestamp:    now.UTC(),
	}
	if out.Vehicle != nil {
		event.VehicleID = out.Vehicle.ID.String()
		event.EmployeeID = out.Vehicle.EmployeeID.String()
	}
	return event
}

// Topic возвращает топик для статуса: <base>/matched, <base>/not_detected и т.д.
func Topic(base string, status recognition.Status) string {
	return strings.TrimRight(base, "/") + "/" + strings.ToLower(string(status))
}

type MQTTPublisher struct {
	cfg    config.MQTTConfig
	log    zerolog.Logger
	mu     sync.Mutex
	client mqtt.Client
	now    func() time.Time
}

func NewMQTTPublisher(cfg config.MQTTConfig, log zerolog.Logger) *MQTTPublisher {
	return &MQTTPublisher{
		cfg: cfg,
		log: log.With().Str("component", "mqtt").Logger(),
		now: time.Now,
	}
}

func (p *MQTTPublisher) Connect(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	opts := mqtt.NewClientOptions()
	opts.AddBroker(p.cfg.BrokerURL)
	opts.SetClientID(p.cfg.ClientID)
	opts.SetUsername(p.cfg.Username)
	opts.SetPassword(p.cfg.Password)
	opts.SetCleanSession(true)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetOnConnectHandler(func(mqtt.Client) {
		p.log.Info().Str("broker", p.cfg.BrokerURL).Msg("connected to MQTT broker")
	})
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		p.log.Warn().Err(err).Msg("MQTT connection lost")
	})

	client := mqtt.NewClient(opts)
	if err := wait(ctx, client.Connect(), connectTimeout); err != nil {
		return fmt.Errorf("failed to connect to MQTT broker: %w", err)
	}
	p.client = client
	return nil
}

func (p *MQTTPublisher) Publish(ctx context.Context, out *recognition.Outcome) error {
	if out == nil {
		return nil
	}
	payload, err := json.Marshal(NewEvent(out, p.now()))
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.client == nil || !p.client.IsConnected() {
		return fmt.Errorf("not connected to MQTT broker")
	}

	topic := Topic(p.cfg.Topic, out.Status)
	if err := wait(ctx, p.client.Publish(topic, 0, false, payload), publishTimeout); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", topic, err)
	}
	p.log.Debug().Str("topic", topic).Str("request_id", out.RequestID).Msg("recognition published")
	return nil
}

func (p *MQTTPublisher) Disconnect() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.client != nil && p.client.IsConnected() {
		p.client.Disconnect(250)
	}
}

func wait(ctx context.Context, token mqtt.Token, timeout time.Duration) error {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-token.Done():
		return token.Error()
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return fmt.Errorf("timeout after %s", timeout)
	}
}
