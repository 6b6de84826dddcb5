package notify

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"plate-service/internal/config"
	"plate-service/internal/model"
	"plate-service/internal/recognition"
)

type fakeToken struct {
	done chan struct{}
	err  error
}

func completedToken(err error) *fakeToken {
	t := &fakeToken{done: make(chan struct{}), err: err}
	close(t.done)
	return t
}

func (t *fakeToken) Wait() bool                     { <-t.done; return true }
func (t *fakeToken) WaitTimeout(time.Duration) bool { return true }
func (t *fakeToken) Done() <-chan struct{}          { return t.done }
func (t *fakeToken) Error() error                   { return t.err }

type published struct {
	topic   string
	payload []byte
}

// fakeClient реализует только методы, которые вызывает MQTTPublisher.
type fakeClient struct {
	mqtt.Client
	connected    bool
	publishErr   error
	pending      bool
	messages     []published
	disconnected bool
}

func (c *fakeClient) IsConnected() bool { return c.connected }

func (c *fakeClient) Publish(topic string, _ byte, _ bool, payload interface{}) mqtt.Token {
	if c.pending {
		return &fakeToken{done: make(chan struct{})}
	}
	c.messages = append(c.messages, published{topic: topic, payload: payload.([]byte)})
	return completedToken(c.publishErr)
}

func (c *fakeClient) Disconnect(uint) { c.disconnected = true; c.connected = false }

func newTestPublisher(client mqtt.Client) *MQTTPublisher {
	p := NewMQTTPublisher(config.MQTTConfig{Topic: "smartpark/recognitions/"}, zerolog.Nop())
	p.client = client
	p.now = func() time.Time { return time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC) }
	return p
}

func TestTopic(t *testing.T) {
	assert.Equal(t, "gate/matched", Topic("gate", recognition.StatusMatched))
	assert.Equal(t, "gate/not_detected", Topic("gate/", recognition.StatusNotDetected))
}

func TestMQTTPublisher_Publish(t *testing.T) {
	client := &fakeClient{connected: true}
	p := newTestPublisher(client)

	vehicle := &model.Vehicle{ID: uuid.New(), EmployeeID: uuid.New(), PlateNumber: "ABC123"}
	out := recognition.Matched("ABC123", vehicle, recognition.MethodVariant)
	out.RequestID = "req-1"
	out.DetectedText = "A8C123"

	require.NoError(t, p.Publish(context.Background(), out))
	require.Len(t, client.messages, 1)
	assert.Equal(t, "smartpark/recognitions/matched", client.messages[0].topic)

	var event Event
	require.NoError(t, json.Unmarshal(client.messages[0].payload, &event))
	assert.Equal(t, "req-1", event.RequestID)
	assert.Equal(t, "MATCHED", event.Status)
	assert.Equal(t, "VARIANT", event.Method)
	assert.Equal(t, "ABC123", event.Plate)
	assert.Equal(t, vehicle.ID.String(), event.VehicleID)
	assert.Equal(t, vehicle.EmployeeID.String(), event.EmployeeID)
}

func TestMQTTPublisher_NotConnected(t *testing.T) {
	p := newTestPublisher(&fakeClient{})

	err := p.Publish(context.Background(), recognition.NotDetected())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not connected")

	assert.Error(t, newTestPublisher(nil).Publish(context.Background(), recognition.NotDetected()))
}

func TestMQTTPublisher_PublishError(t *testing.T) {
	p := newTestPublisher(&fakeClient{connected: true, publishErr: errors.New("broker closed")})

	err := p.Publish(context.Background(), recognition.NotDetected())
	assert.ErrorContains(t, err, "broker closed")
}

func TestMQTTPublisher_PublishCancelled(t *testing.T) {
	p := newTestPublisher(&fakeClient{connected: true, pending: true})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := p.Publish(ctx, recognition.NotDetected())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMQTTPublisher_Disconnect(t *testing.T) {
	client := &fakeClient{connected: true}
	p := newTestPublisher(client)

	p.Disconnect()
	assert.True(t, client.disconnected)
}

func TestMQTTPublisher_NilOutcome(t *testing.T) {
	assert.NoError(t, newTestPublisher(nil).Publish(context.Background(), nil))
}
