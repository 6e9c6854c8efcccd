package mqtt

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/orehall/ironpin-core/internal/vpin"
)

// Topic prefixes for the IronPin MQTT surface.
//
// Pin topics embed the handle's path form ("u0/adio/p3") directly as topic
// levels, so the unit role, module and channel are each addressable with
// MQTT wildcards. Unit-scoped topics (status, modules, user variables) hang
// off the unit ID instead, since those are per-controller rather than
// per-handle.
const (
	// TopicPrefix is the base for all IronPin topics.
	TopicPrefix = "ironpin"

	// TopicPrefixPin is the base for pin state and command topics.
	// Scheme: ironpin/pin/u<role>/<module>/p<pin>/{state|set}
	TopicPrefixPin = "ironpin/pin"
)

// Topics provides builders for IronPin MQTT topics.
// Unit is the controller ID used for unit-scoped topics.
//
//	topics := mqtt.Topics{Unit: "ironpin-001"}
//	stateTopic := topics.PinState(vpin.Local(3))
//	// Returns: "ironpin/pin/u0/adio/p3/state"
type Topics struct {
	Unit string
}

// =============================================================================
// Pin Topics
// =============================================================================

// PinState returns the retained state topic for a pin handle.
//
// Example: ironpin/pin/u0/adio/p3/state
func (Topics) PinState(id vpin.PinID) string {
	return fmt.Sprintf("%s/%s/state", TopicPrefixPin, id)
}

// PinCommand returns the command topic for a pin handle. A unit publishes
// here to drive a pin on whichever unit owns the handle's role.
//
// Example: ironpin/pin/u2/relay.1/p7/set
func (Topics) PinCommand(id vpin.PinID) string {
	return fmt.Sprintf("%s/%s/set", TopicPrefixPin, id)
}

// UnitPinCommands returns a pattern matching all command topics addressed
// to the given unit role.
//
// Pattern: ironpin/pin/u2/+/+/set
func (Topics) UnitPinCommands(role vpin.UnitRole) string {
	return fmt.Sprintf("%s/u%d/+/+/set", TopicPrefixPin, role)
}

// AllPinStates returns a pattern matching state updates from every unit.
// Subscribing units mirror non-local states for remote reads.
//
// Pattern: ironpin/pin/+/+/+/state
func (Topics) AllPinStates() string {
	return fmt.Sprintf("%s/+/+/+/state", TopicPrefixPin)
}

// ParsePinTopic extracts the pin handle from a state or command topic.
// The returned verb is the trailing level, "state" or "set".
func ParsePinTopic(topic string) (id vpin.PinID, verb string, err error) {
	rest, ok := strings.CutPrefix(topic, TopicPrefixPin+"/")
	if !ok {
		return 0, "", fmt.Errorf("mqtt: not a pin topic: %q", topic)
	}
	path, verb, ok := cutLast(rest)
	if !ok || (verb != "state" && verb != "set") {
		return 0, "", fmt.Errorf("mqtt: malformed pin topic: %q", topic)
	}
	id, err = vpin.ParsePath(path)
	if err != nil {
		return 0, "", fmt.Errorf("mqtt: malformed pin topic %q: %w", topic, err)
	}
	return id, verb, nil
}

// cutLast splits s around its final "/".
func cutLast(s string) (head, tail string, ok bool) {
	i := strings.LastIndexByte(s, '/')
	if i < 0 {
		return "", "", false
	}
	return s[:i], s[i+1:], true
}

// =============================================================================
// Unit Topics
// =============================================================================

// SystemStatus returns the unit status topic carrying online/offline
// payloads and the Last Will message.
//
// Example: ironpin/ironpin-001/system/status
func (t Topics) SystemStatus() string {
	return fmt.Sprintf("%s/%s/system/status", TopicPrefix, t.Unit)
}

// Modules returns the retained topic carrying the unit's detected module
// table.
//
// Example: ironpin/ironpin-001/modules
func (t Topics) Modules() string {
	return fmt.Sprintf("%s/%s/modules", TopicPrefix, t.Unit)
}

// Rails returns the retained topic carrying the unit's supply rail
// voltages in millivolts.
//
// Example: ironpin/ironpin-001/rails
func (t Topics) Rails() string {
	return fmt.Sprintf("%s/%s/rails", TopicPrefix, t.Unit)
}

// =============================================================================
// User Variable Topics
// =============================================================================

// BoolVar returns the retained state topic for a boolean user variable.
//
// Example: ironpin/ironpin-001/var/bool/4
func (t Topics) BoolVar(index int) string {
	return fmt.Sprintf("%s/%s/var/bool/%d", TopicPrefix, t.Unit, index)
}

// IntVar returns the retained state topic for an integer user variable.
//
// Example: ironpin/ironpin-001/var/int/4
func (t Topics) IntVar(index int) string {
	return fmt.Sprintf("%s/%s/var/int/%d", TopicPrefix, t.Unit, index)
}

// VarCommands returns a pattern matching writes to any of the unit's user
// variables.
//
// Pattern: ironpin/ironpin-001/var/+/+/set
func (t Topics) VarCommands() string {
	return fmt.Sprintf("%s/%s/var/+/+/set", TopicPrefix, t.Unit)
}

// BoolVarCommand returns the command topic for a boolean user variable.
func (t Topics) BoolVarCommand(index int) string {
	return t.BoolVar(index) + "/set"
}

// IntVarCommand returns the command topic for an integer user variable.
func (t Topics) IntVarCommand(index int) string {
	return t.IntVar(index) + "/set"
}

// ParseVarTopic extracts the variable kind ("bool" or "int") and index
// from a user variable command topic.
func (t Topics) ParseVarTopic(topic string) (kind string, index int, err error) {
	prefix := fmt.Sprintf("%s/%s/var/", TopicPrefix, t.Unit)
	rest, ok := strings.CutPrefix(topic, prefix)
	if !ok {
		return "", 0, fmt.Errorf("mqtt: not a var topic: %q", topic)
	}
	parts := strings.Split(rest, "/")
	if len(parts) != 3 || parts[2] != "set" || (parts[0] != "bool" && parts[0] != "int") {
		return "", 0, fmt.Errorf("mqtt: malformed var topic: %q", topic)
	}
	index, err = strconv.Atoi(parts[1])
	if err != nil || index < 1 {
		return "", 0, fmt.Errorf("mqtt: malformed var topic: %q", topic)
	}
	return parts[0], index, nil
}

// =============================================================================
// Wildcard Patterns
// =============================================================================

// AllUnitStatus returns a pattern matching every unit's status topic.
//
// Pattern: ironpin/+/system/status
func (Topics) AllUnitStatus() string {
	return fmt.Sprintf("%s/+/system/status", TopicPrefix)
}

// AllTopics returns a pattern matching all IronPin topics.
// Use with caution - this receives ALL traffic.
//
// Pattern: ironpin/#
func (Topics) AllTopics() string {
	return TopicPrefix + "/#"
}
