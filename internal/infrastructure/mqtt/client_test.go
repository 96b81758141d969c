package mqtt

import (
	"context"
	"errors"
	"testing"

	"github.com/WebAFilippov/af-win-audio/internal/infrastructure/config"
)

// testConfig returns a valid MQTT configuration for testing.
func testConfig() config.MQTTConfig {
	return config.MQTTConfig{
		Broker: config.MQTTBrokerConfig{
			Host:     "127.0.0.1",
			Port:     1883,
			ClientID: "afaudio-test",
			TLS:      false,
		},
		Auth: config.MQTTAuthConfig{
			Username: "",
			Password: "",
		},
		QoS: 1,
		Reconnect: config.MQTTReconnectConfig{
			InitialDelay: 1,
			MaxDelay:     5,
		},
	}
}

// disconnectedClient returns a client that has never connected.
// Validation paths must fail before touching the underlying paho client.
func disconnectedClient() *Client {
	return &Client{
		cfg:           testConfig(),
		subscriptions: make(map[string]subscription),
	}
}

// =============================================================================
// Validation Tests (no broker required)
// =============================================================================

func TestPublishEmptyTopic(t *testing.T) {
	c := disconnectedClient()

	err := c.Publish("", []byte("payload"), 1, false)
	if !errors.Is(err, ErrInvalidTopic) {
		t.Errorf("Publish() error = %v, want ErrInvalidTopic", err)
	}
}

func TestPublishInvalidQoS(t *testing.T) {
	c := disconnectedClient()

	err := c.Publish("afaudio/test", []byte("payload"), 3, false)
	if !errors.Is(err, ErrInvalidQoS) {
		t.Errorf("Publish() error = %v, want ErrInvalidQoS", err)
	}
}

func TestPublishOversizedPayload(t *testing.T) {
	c := disconnectedClient()

	payload := make([]byte, maxPayloadSize+1)
	err := c.Publish("afaudio/test", payload, 1, false)
	if !errors.Is(err, ErrPublishFailed) {
		t.Errorf("Publish() error = %v, want ErrPublishFailed", err)
	}
}

func TestPublishDisconnected(t *testing.T) {
	c := disconnectedClient()

	err := c.Publish("afaudio/test", []byte("payload"), 1, false)
	if !errors.Is(err, ErrNotConnected) {
		t.Errorf("Publish() error = %v, want ErrNotConnected", err)
	}
}

func TestPublishRetainedValidation(t *testing.T) {
	c := disconnectedClient()

	if err := c.PublishRetained("", []byte("payload")); !errors.Is(err, ErrInvalidTopic) {
		t.Errorf("PublishRetained() error = %v, want ErrInvalidTopic", err)
	}
	topic := Topics{}.DeviceState("dev-1")
	if err := c.PublishRetained(topic, []byte("payload")); !errors.Is(err, ErrNotConnected) {
		t.Errorf("PublishRetained() error = %v, want ErrNotConnected", err)
	}
}

func TestSubscribeEmptyTopic(t *testing.T) {
	c := disconnectedClient()

	err := c.Subscribe("", 1, func(string, []byte) error { return nil })
	if !errors.Is(err, ErrInvalidTopic) {
		t.Errorf("Subscribe() error = %v, want ErrInvalidTopic", err)
	}
}

func TestSubscribeInvalidQoS(t *testing.T) {
	c := disconnectedClient()

	err := c.Subscribe("afaudio/test", 3, func(string, []byte) error { return nil })
	if !errors.Is(err, ErrInvalidQoS) {
		t.Errorf("Subscribe() error = %v, want ErrInvalidQoS", err)
	}
}

func TestSubscribeNilHandler(t *testing.T) {
	c := disconnectedClient()

	err := c.Subscribe("afaudio/test", 1, nil)
	if !errors.Is(err, ErrSubscribeFailed) {
		t.Errorf("Subscribe() error = %v, want ErrSubscribeFailed", err)
	}
}

func TestSubscribeDisconnected(t *testing.T) {
	c := disconnectedClient()

	err := c.Subscribe("afaudio/test", 1, func(string, []byte) error { return nil })
	if !errors.Is(err, ErrNotConnected) {
		t.Errorf("Subscribe() error = %v, want ErrNotConnected", err)
	}
}

func TestUnsubscribeEmptyTopic(t *testing.T) {
	c := disconnectedClient()

	err := c.Unsubscribe("")
	if !errors.Is(err, ErrInvalidTopic) {
		t.Errorf("Unsubscribe() error = %v, want ErrInvalidTopic", err)
	}
}

func TestUnsubscribeDisconnected(t *testing.T) {
	c := disconnectedClient()

	err := c.Unsubscribe("afaudio/test")
	if !errors.Is(err, ErrNotConnected) {
		t.Errorf("Unsubscribe() error = %v, want ErrNotConnected", err)
	}
}

func TestCloseNil(t *testing.T) {
	c := &Client{}

	if err := c.Close(); err != nil {
		t.Errorf("Close() on zero client error = %v", err)
	}
}

func TestIsConnected_InitialState(t *testing.T) {
	c := disconnectedClient()

	if c.IsConnected() {
		t.Error("IsConnected() = true for a client that never connected")
	}
}

func TestHealthCheckDisconnected(t *testing.T) {
	c := disconnectedClient()

	err := c.HealthCheck(context.Background())
	if !errors.Is(err, ErrNotConnected) {
		t.Errorf("HealthCheck() error = %v, want ErrNotConnected", err)
	}
}

func TestHealthCheckCancelled(t *testing.T) {
	c := disconnectedClient()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := c.HealthCheck(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("HealthCheck() error = %v, want context.Canceled", err)
	}
}

func TestSubscriptionCount_Empty(t *testing.T) {
	c := disconnectedClient()

	if got := c.SubscriptionCount(); got != 0 {
		t.Errorf("SubscriptionCount() = %d, want 0", got)
	}
}

func TestHasSubscription_NotSubscribed(t *testing.T) {
	c := disconnectedClient()

	if c.HasSubscription("afaudio/test") {
		t.Error("HasSubscription() = true for an empty client")
	}
}

// =============================================================================
// Topic Builder Tests
// =============================================================================

func TestTopicBuilders(t *testing.T) {
	topics := Topics{}

	tests := []struct {
		name string
		got  string
		want string
	}{
		{
			name: "DeviceState",
			got:  topics.DeviceState("speakers-1"),
			want: "afaudio/device/speakers-1/state",
		},
		{
			name: "DeviceChanged",
			got:  topics.DeviceChanged("speakers-1"),
			want: "afaudio/device/speakers-1/changed",
		},
		{
			name: "Devices",
			got:  topics.Devices(),
			want: "afaudio/devices",
		},
		{
			name: "Command",
			got:  topics.Command(),
			want: "afaudio/command",
		},
		{
			name: "SystemStatus",
			got:  topics.SystemStatus(),
			want: "afaudio/system/status",
		},
		{
			name: "SystemProcess",
			got:  topics.SystemProcess(),
			want: "afaudio/system/process",
		},
		{
			name: "SystemError",
			got:  topics.SystemError(),
			want: "afaudio/system/error",
		},
		{
			name: "AllDeviceStates",
			got:  topics.AllDeviceStates(),
			want: "afaudio/device/+/state",
		},
		{
			name: "AllDeviceChanges",
			got:  topics.AllDeviceChanges(),
			want: "afaudio/device/+/changed",
		},
		{
			name: "AllTopics",
			got:  topics.AllTopics(),
			want: "afaudio/#",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("%s = %q, want %q", tt.name, tt.got, tt.want)
			}
		})
	}
}

// =============================================================================
// Option Builder Tests
// =============================================================================

func TestBuildClientOptions(t *testing.T) {
	cfg := testConfig()
	opts := buildClientOptions(cfg)

	if len(opts.Servers) != 1 {
		t.Fatalf("Servers length = %d, want 1", len(opts.Servers))
	}
	if got := opts.Servers[0].String(); got != "tcp://127.0.0.1:1883" {
		t.Errorf("broker URL = %q, want %q", got, "tcp://127.0.0.1:1883")
	}
	if opts.ClientID != "afaudio-test" {
		t.Errorf("ClientID = %q, want %q", opts.ClientID, "afaudio-test")
	}
	if !opts.AutoReconnect {
		t.Error("AutoReconnect = false, want true")
	}
}

func TestBuildClientOptions_TLS(t *testing.T) {
	cfg := testConfig()
	cfg.Broker.TLS = true
	opts := buildClientOptions(cfg)

	if got := opts.Servers[0].Scheme; got != "ssl" {
		t.Errorf("broker scheme = %q, want ssl", got)
	}
	if opts.TLSConfig == nil {
		t.Fatal("TLSConfig is nil with TLS enabled")
	}
}
