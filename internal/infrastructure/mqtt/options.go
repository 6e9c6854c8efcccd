package mqtt

import (
	"crypto/tls"
	"encoding/json"
	"fmt"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/orehall/ironpin-core/internal/infrastructure/config"
)

const (
	connectTimeout = 10 * time.Second
	publishTimeout = 5 * time.Second

	// disconnectQuiesceMs is the window Close gives in-flight messages.
	disconnectQuiesceMs = 1000

	keepAlive = 60 * time.Second
	maxQoS    = 2

	// maxPayloadSize caps publishes at 1 MiB, in line with common
	// broker limits.
	maxPayloadSize = 1 << 20
)

// buildClientOptions maps the mqtt section of config.yaml onto paho
// options: broker URL, identity, credentials, reconnect backoff and the
// LWT that flags a crashed unit offline.
func buildClientOptions(cfg config.MQTTConfig) *pahomqtt.ClientOptions {
	opts := pahomqtt.NewClientOptions()

	scheme := "tcp"
	if cfg.Broker.TLS {
		scheme = "ssl"
		opts.SetTLSConfig(&tls.Config{MinVersion: tls.VersionTLS12})
	}
	opts.AddBroker(fmt.Sprintf("%s://%s:%d", scheme, cfg.Broker.Host, cfg.Broker.Port))
	opts.SetClientID(cfg.Broker.ClientID)

	if cfg.Auth.Username != "" {
		opts.SetUsername(cfg.Auth.Username)
		opts.SetPassword(cfg.Auth.Password)
	}

	// Clean session: retained state topics carry the catch-up, not a
	// broker-side session.
	opts.SetCleanSession(true)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(time.Duration(cfg.Reconnect.InitialDelay) * time.Second)
	opts.SetMaxReconnectInterval(time.Duration(cfg.Reconnect.MaxDelay) * time.Second)
	opts.SetConnectTimeout(connectTimeout)
	opts.SetKeepAlive(keepAlive)

	willTopic := Topics{Unit: cfg.Broker.ClientID}.SystemStatus()
	opts.SetWill(willTopic, string(statusLost(cfg.Broker.ClientID)), 1, true)

	return opts
}

// statusPayload is the JSON body on the unit status topic. Reason
// distinguishes a crash (LWT) from a graceful shutdown.
type statusPayload struct {
	Status   string `json:"status"`
	ClientID string `json:"client_id"`
	Reason   string `json:"reason,omitempty"`
	Time     string `json:"ts"`
}

func statusOnline(clientID string) []byte {
	return marshalStatus(statusPayload{Status: "online", ClientID: clientID})
}

func statusOffline(clientID string) []byte {
	return marshalStatus(statusPayload{Status: "offline", ClientID: clientID, Reason: "graceful_shutdown"})
}

func statusLost(clientID string) []byte {
	return marshalStatus(statusPayload{Status: "offline", ClientID: clientID, Reason: "unexpected_disconnect"})
}

func marshalStatus(p statusPayload) []byte {
	p.Time = time.Now().UTC().Format(time.RFC3339)
	payload, _ := json.Marshal(p) //nolint:errcheck // fixed shape, cannot fail
	return payload
}
