package telemetry

import (
	"context"
	"testing"

	"github.com/cfclient-project/cfclient/internal/config"
	"github.com/cfclient-project/cfclient/internal/events"
)

func newTestHandler(t *testing.T, prefix string) *MQTTHandler {
	t.Helper()
	cfg := config.DefaultConfig()
	data := cfg.GetApplicationData()
	data.MQTT.Enabled = true
	data.MQTT.TopicPrefix = prefix
	cfg.SetApplicationData(data)

	h, err := NewMQTTHandler(cfg, events.NewEventBus())
	if err != nil {
		t.Fatal(err)
	}
	return h
}

func TestNewMQTTHandlerDisabled(t *testing.T) {
	if _, err := NewMQTTHandler(config.DefaultConfig(), events.NewEventBus()); err == nil {
		t.Fatal("expected an error for disabled MQTT")
	}
}

func TestTopic(t *testing.T) {
	tests := []struct {
		prefix, want string
	}{
		{"cfclient", "cfclient/client/state"},
		{"/site/cf/", "site/cf/client/state"},
		{"", "client/state"},
	}
	for _, tt := range tests {
		if got := newTestHandler(t, tt.prefix).Topic(TopicState); got != tt.want {
			t.Errorf("Topic with prefix %q = %q, want %q", tt.prefix, got, tt.want)
		}
	}
}

func TestBuildMessage(t *testing.T) {
	h := newTestHandler(t, "cfclient")

	msg := h.buildMessage(map[string]int{"frames": 3})
	if _, ok := msg["hostname"]; !ok {
		t.Fatal("metadata missing")
	}
	if msg["client_name"] != "cfclient-go" {
		t.Fatalf("client_name = %v", msg["client_name"])
	}
	if msg["timestamp"] == "" {
		t.Fatal("timestamp missing")
	}
	if p, ok := msg["payload"].(map[string]int); !ok || p["frames"] != 3 {
		t.Fatalf("payload = %v", msg["payload"])
	}
}

func TestHandlersWithoutBroker(t *testing.T) {
	h := newTestHandler(t, "cfclient")
	ctx := context.Background()

	// Publishing while disconnected is a no-op.
	if err := h.onConnectionState(ctx, events.Event{Payload: events.ConnectionStatePayload{State: events.StateConnected}}); err != nil {
		t.Fatal(err)
	}
	if err := h.onFailure(ctx, events.Event{Payload: events.FailurePayload{Command: "accountplay", Message: "no such character"}}); err != nil {
		t.Fatal(err)
	}
	if err := h.onFailure(ctx, events.Event{Payload: "unexpected"}); err != nil {
		t.Fatal(err)
	}
	h.PublishStats(map[string]int{"frames": 1})
}
