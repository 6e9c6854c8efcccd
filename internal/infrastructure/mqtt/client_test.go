package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/orehall/ironpin-core/internal/infrastructure/config"
	"github.com/orehall/ironpin-core/internal/vpin"
)

func testConfig() config.MQTTConfig {
	return config.MQTTConfig{
		Broker: config.MQTTBrokerConfig{
			Host:     "127.0.0.1",
			Port:     1883,
			ClientID: "u0",
		},
		QoS: 1,
		Reconnect: config.MQTTReconnectConfig{
			InitialDelay: 1,
			MaxDelay:     5,
		},
	}
}

// connectTestClient needs a broker at 127.0.0.1:1883; without one the
// round-trip tests skip.
func connectTestClient(t *testing.T) *Client {
	t.Helper()
	client, err := Connect(testConfig())
	if err != nil {
		t.Skipf("no local broker: %v", err)
	}
	t.Cleanup(func() { client.Close() }) //nolint:errcheck
	return client
}

// offlineClient builds a client that never dialled, for exercising the
// validation and not-connected paths.
func offlineClient() *Client {
	return &Client{
		client:        pahomqtt.NewClient(pahomqtt.NewClientOptions()),
		cfg:           testConfig(),
		subscriptions: make(map[string]subscription),
	}
}

type captureLogger struct {
	mu    sync.Mutex
	lines []string
}

func (l *captureLogger) Error(msg string, _ ...any) { l.record("ERROR " + msg) }
func (l *captureLogger) Warn(msg string, _ ...any)  { l.record("WARN " + msg) }

func (l *captureLogger) record(line string) {
	l.mu.Lock()
	l.lines = append(l.lines, line)
	l.mu.Unlock()
}

func (l *captureLogger) joined() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return strings.Join(l.lines, "\n")
}

func TestPublish_Validation(t *testing.T) {
	c := offlineClient()
	topic := Topics{}.PinState(vpin.Local(3))

	tests := []struct {
		name    string
		topic   string
		payload []byte
		qos     byte
		want    error
	}{
		{"empty topic", "", []byte("{}"), 1, ErrInvalidTopic},
		{"qos too high", topic, []byte("{}"), 3, ErrInvalidQoS},
		{"oversized payload", topic, make([]byte, maxPayloadSize+1), 1, ErrPublishFailed},
		{"not connected", topic, []byte("{}"), 1, ErrNotConnected},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := c.Publish(tt.topic, tt.payload, tt.qos, false); !errors.Is(err, tt.want) {
				t.Errorf("Publish() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestSubscribe_Validation(t *testing.T) {
	c := offlineClient()
	handler := func(string, []byte) error { return nil }

	if err := c.Subscribe("", 1, handler); !errors.Is(err, ErrInvalidTopic) {
		t.Errorf("empty topic error = %v, want ErrInvalidTopic", err)
	}
	if err := c.Subscribe("ironpin/#", 3, handler); !errors.Is(err, ErrInvalidQoS) {
		t.Errorf("bad qos error = %v, want ErrInvalidQoS", err)
	}
	if err := c.Subscribe("ironpin/#", 1, nil); !errors.Is(err, ErrSubscribeFailed) {
		t.Errorf("nil handler error = %v, want ErrSubscribeFailed", err)
	}
	if err := c.Subscribe("ironpin/#", 1, handler); !errors.Is(err, ErrNotConnected) {
		t.Errorf("disconnected error = %v, want ErrNotConnected", err)
	}
}

func TestClose_ZeroValue(t *testing.T) {
	var c Client
	if err := c.Close(); err != nil {
		t.Errorf("Close on zero value: %v", err)
	}
}

func TestHealthCheck_Offline(t *testing.T) {
	c := offlineClient()
	if err := c.HealthCheck(context.Background()); !errors.Is(err, ErrNotConnected) {
		t.Errorf("HealthCheck() error = %v, want ErrNotConnected", err)
	}
}

func TestHealthCheck_CancelledContext(t *testing.T) {
	c := offlineClient()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := c.HealthCheck(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("HealthCheck() error = %v, want context.Canceled", err)
	}
}

func TestDisconnectCallback(t *testing.T) {
	c := offlineClient()
	var got error
	c.SetOnDisconnect(func(err error) { got = err })

	cause := errors.New("link down")
	c.handleDisconnect(cause)

	if !errors.Is(got, cause) {
		t.Errorf("disconnect callback got %v, want %v", got, cause)
	}
	if c.connected {
		t.Error("connected still true after disconnect")
	}
}

// fakeMessage satisfies paho's Message interface for handler tests.
type fakeMessage struct {
	topic   string
	payload []byte
}

func (m fakeMessage) Duplicate() bool   { return false }
func (m fakeMessage) Qos() byte         { return 1 }
func (m fakeMessage) Retained() bool    { return false }
func (m fakeMessage) Topic() string     { return m.topic }
func (m fakeMessage) MessageID() uint16 { return 0 }
func (m fakeMessage) Payload() []byte   { return m.payload }
func (m fakeMessage) Ack()              {}

func TestWrapHandler_RecoversPanic(t *testing.T) {
	c := offlineClient()
	log := &captureLogger{}
	c.SetLogger(log)

	wrapped := c.wrapHandler(func(string, []byte) error {
		panic("bad payload")
	})
	wrapped(nil, fakeMessage{topic: "ironpin/pin/u0/adio/p3/set"})

	if !strings.Contains(log.joined(), "panic") {
		t.Errorf("panic not logged: %q", log.joined())
	}
}

func TestWrapHandler_LogsHandlerError(t *testing.T) {
	c := offlineClient()
	log := &captureLogger{}
	c.SetLogger(log)

	wrapped := c.wrapHandler(func(string, []byte) error {
		return errors.New("unparseable")
	})
	wrapped(nil, fakeMessage{topic: "ironpin/pin/u0/adio/p3/set"})

	if !strings.Contains(log.joined(), "WARN") {
		t.Errorf("handler error not logged: %q", log.joined())
	}
}

func TestWrapHandler_NoLoggerIsSilent(t *testing.T) {
	c := offlineClient()
	wrapped := c.wrapHandler(func(string, []byte) error {
		panic("still contained")
	})
	// Must not escape the wrapper.
	wrapped(nil, fakeMessage{topic: "ironpin/pin/u0/adio/p3/set"})
}

func TestBuildClientOptions(t *testing.T) {
	cfg := testConfig()
	cfg.Auth.Username = "ironpin"
	cfg.Auth.Password = "secret"

	opts := buildClientOptions(cfg)

	if len(opts.Servers) != 1 || opts.Servers[0].String() != "tcp://127.0.0.1:1883" {
		t.Errorf("broker URL = %v, want tcp://127.0.0.1:1883", opts.Servers)
	}
	if opts.ClientID != "u0" {
		t.Errorf("client ID = %q, want u0", opts.ClientID)
	}
	if opts.Username != "ironpin" {
		t.Errorf("username = %q, want ironpin", opts.Username)
	}
	if !opts.AutoReconnect {
		t.Error("auto reconnect disabled")
	}
	if opts.WillTopic != "ironpin/u0/system/status" {
		t.Errorf("will topic = %q", opts.WillTopic)
	}
	if !opts.WillRetained {
		t.Error("will not retained")
	}
}

func TestBuildClientOptions_TLSScheme(t *testing.T) {
	cfg := testConfig()
	cfg.Broker.TLS = true

	opts := buildClientOptions(cfg)
	if opts.Servers[0].Scheme != "ssl" {
		t.Errorf("scheme = %q, want ssl", opts.Servers[0].Scheme)
	}
	if opts.TLSConfig == nil {
		t.Fatal("TLS config not set")
	}
}

func TestStatusPayloads(t *testing.T) {
	tests := []struct {
		name       string
		payload    []byte
		status     string
		wantReason string
	}{
		{"online", statusOnline("u0"), "online", ""},
		{"graceful offline", statusOffline("u0"), "offline", "graceful_shutdown"},
		{"lost", statusLost("u0"), "offline", "unexpected_disconnect"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got statusPayload
			if err := json.Unmarshal(tt.payload, &got); err != nil {
				t.Fatalf("payload is not JSON: %v", err)
			}
			if got.Status != tt.status {
				t.Errorf("status = %q, want %q", got.Status, tt.status)
			}
			if got.ClientID != "u0" {
				t.Errorf("client_id = %q, want u0", got.ClientID)
			}
			if got.Reason != tt.wantReason {
				t.Errorf("reason = %q, want %q", got.Reason, tt.wantReason)
			}
			if got.Time == "" {
				t.Error("ts missing")
			}
		})
	}
}

func TestRoundTrip(t *testing.T) {
	client := connectTestClient(t)

	topic := Topics{Unit: "u0"}.PinState(vpin.Local(3))
	received := make(chan []byte, 1)
	err := client.Subscribe(topic, 1, func(_ string, payload []byte) error {
		select {
		case received <- payload:
		default:
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	want := []byte(`{"pin":"u0/adio/p3","value":1}`)
	if err := client.Publish(topic, want, 1, false); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	select {
	case got := <-received:
		if string(got) != string(want) {
			t.Errorf("payload = %s, want %s", got, want)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("message not received")
	}
}

func TestConnect_HealthCheckAndClose(t *testing.T) {
	client := connectTestClient(t)

	if !client.IsConnected() {
		t.Error("IsConnected() = false after Connect")
	}
	if err := client.HealthCheck(context.Background()); err != nil {
		t.Errorf("HealthCheck: %v", err)
	}
	if err := client.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
	if client.IsConnected() {
		t.Error("IsConnected() = true after Close")
	}
}
