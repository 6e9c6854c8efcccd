package mqtt

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/orehall/ironpin-core/internal/engine"
	"github.com/orehall/ironpin-core/internal/topology"
	"github.com/orehall/ironpin-core/internal/uservars"
	"github.com/orehall/ironpin-core/internal/vpin"
)

// Bridge connects the pin engine and user variable bank to the MQTT
// surface. Outbound it publishes retained pin state, user variables, the
// module table and rail voltages; inbound it turns command topics into
// engine writes and mirrors sibling unit state for remote reads.
//
// Bridge implements engine.StatePublisher and uservars.Publisher.
//
// Thread Safety:
//   - All methods are safe for concurrent use; Bridge holds no mutable
//     state of its own and delegates to the thread-safe Client.
type Bridge struct {
	client *Client
	topics Topics
	role   vpin.UnitRole
	qos    byte
}

// NewBridge creates a bridge for the given unit identity.
// unit is the controller ID used in unit-scoped topics; role is the
// unit's position in the daisy chain.
func NewBridge(client *Client, unit string, role vpin.UnitRole) *Bridge {
	return &Bridge{
		client: client,
		topics: Topics{Unit: unit},
		role:   role,
		qos:    byte(client.cfg.QoS),
	}
}

// pinStatePayload is the JSON body published on pin state topics.
type pinStatePayload struct {
	Pin       string `json:"pin"`
	Mode      string `json:"mode"`
	Value     int    `json:"value"`
	Timestamp string `json:"ts"`
}

// commandPayload is the JSON body accepted on pin command topics.
type commandPayload struct {
	Value int `json:"value"`
}

// boolVarPayload is the JSON body for boolean user variable topics.
type boolVarPayload struct {
	Value bool `json:"value"`
}

// railsPayload is the JSON body published on the rails topic.
type railsPayload struct {
	InputMV  int    `json:"input_mv"`
	OutputMV int    `json:"output_mv"`
	Time     string `json:"ts"`
}

// PublishPinState publishes a retained state message for a pin.
// Publish failures are reported through the client logger; state topics
// are retained so the next change heals any gap.
func (b *Bridge) PublishPinState(ev engine.StateEvent) {
	payload, err := json.Marshal(pinStatePayload{
		Pin:       ev.ID.String(),
		Mode:      ev.Mode.String(),
		Value:     ev.Value,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return
	}
	b.publish(b.topics.PinState(ev.ID), payload)
}

// PublishBoolVar publishes a retained boolean user variable state.
func (b *Bridge) PublishBoolVar(index int, value bool) {
	payload, err := json.Marshal(boolVarPayload{Value: value})
	if err != nil {
		return
	}
	b.publish(b.topics.BoolVar(index), payload)
}

// PublishIntVar publishes a retained integer user variable state.
func (b *Bridge) PublishIntVar(index, value int) {
	payload, err := json.Marshal(commandPayload{Value: value})
	if err != nil {
		return
	}
	b.publish(b.topics.IntVar(index), payload)
}

// PublishModuleTable publishes the unit's detected module table.
func (b *Bridge) PublishModuleTable(records []topology.ModuleRecord) {
	payload, err := json.Marshal(records)
	if err != nil {
		return
	}
	b.publish(b.topics.Modules(), payload)
}

// PublishRails publishes the unit's supply rail voltages.
func (b *Bridge) PublishRails(inputMV, outputMV int) {
	payload, err := json.Marshal(railsPayload{
		InputMV:  inputMV,
		OutputMV: outputMV,
		Time:     time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return
	}
	b.publish(b.topics.Rails(), payload)
}

// ForwardOutbound publishes queued remote writes to their owning units.
// Call after each engine tick with the result of DrainOutbound.
func (b *Bridge) ForwardOutbound(writes []engine.RemoteWrite) {
	for _, w := range writes {
		payload, err := json.Marshal(commandPayload{Value: w.Value})
		if err != nil {
			continue
		}
		if err := b.client.Publish(b.topics.PinCommand(w.ID), payload, b.qos, false); err != nil {
			if logger := b.client.getLogger(); logger != nil {
				logger.Warn("dropping remote pin write",
					"pin", w.ID.String(),
					"error", err,
				)
			}
		}
	}
}

// ListenCommands subscribes to command topics addressed to this unit's
// role and applies them through the engine's write path. Writes to pins
// that are unconfigured or not in an output mode are ignored, matching
// the local write semantics.
func (b *Bridge) ListenCommands(e *engine.Engine) error {
	topic := b.topics.UnitPinCommands(b.role)
	return b.client.Subscribe(topic, b.qos, func(topic string, payload []byte) error {
		id, verb, err := ParsePinTopic(topic)
		if err != nil {
			return fmt.Errorf("mqtt: ignoring command: %w", err)
		}
		if verb != "set" {
			return nil
		}
		var cmd commandPayload
		if err := json.Unmarshal(payload, &cmd); err != nil {
			return fmt.Errorf("mqtt: bad command payload on %s: %w", topic, err)
		}
		e.PinValue(id, cmd.Value)
		return nil
	})
}

// ListenPeerStates subscribes to state topics from every unit and mirrors
// non-local pins into the engine so remote reads return the last seen
// value. This unit's own state messages are skipped.
func (b *Bridge) ListenPeerStates(e *engine.Engine) error {
	return b.client.Subscribe(b.topics.AllPinStates(), b.qos, func(topic string, payload []byte) error {
		id, verb, err := ParsePinTopic(topic)
		if err != nil {
			return fmt.Errorf("mqtt: ignoring state: %w", err)
		}
		if verb != "state" {
			return nil
		}
		if id.IsLocal(b.role) {
			return nil
		}
		var state pinStatePayload
		if err := json.Unmarshal(payload, &state); err != nil {
			return fmt.Errorf("mqtt: bad state payload on %s: %w", topic, err)
		}
		e.IngestRemote(id, state.Value)
		return nil
	})
}

// ListenVarCommands subscribes to this unit's user variable command
// topics and applies writes to the bank.
func (b *Bridge) ListenVarCommands(bank *uservars.Bank) error {
	return b.client.Subscribe(b.topics.VarCommands(), b.qos, func(topic string, payload []byte) error {
		kind, index, err := b.topics.ParseVarTopic(topic)
		if err != nil {
			return err
		}
		switch kind {
		case "bool":
			var cmd boolVarPayload
			if err := json.Unmarshal(payload, &cmd); err != nil {
				return fmt.Errorf("mqtt: bad var payload on %s: %w", topic, err)
			}
			return bank.WriteBool(index, cmd.Value)
		default:
			var cmd commandPayload
			if err := json.Unmarshal(payload, &cmd); err != nil {
				return fmt.Errorf("mqtt: bad var payload on %s: %w", topic, err)
			}
			return bank.WriteInt(index, cmd.Value)
		}
	})
}

// publish sends a retained message, logging failures through the client
// logger. State topics are retained so reconnecting consumers catch up.
func (b *Bridge) publish(topic string, payload []byte) {
	if err := b.client.Publish(topic, payload, b.qos, true); err != nil {
		if logger := b.client.getLogger(); logger != nil {
			logger.Warn("dropping state publish",
				"topic", topic,
				"error", err,
			)
		}
	}
}
