package vpin

// ModuleType identifies a plug-in expansion module family.
type ModuleType uint8

// Expansion module types. ModuleNone addresses the unit's own ADIO bank.
const (
	ModuleNone  ModuleType = 0
	ModuleRelay ModuleType = 1 // power/relay output channels
	ModuleAIO   ModuleType = 2 // mixed analog/digital channels
	ModuleTC    ModuleType = 3 // thermocouple front end
	ModulePT    ModuleType = 4 // RTD (PT100/PT1000) front end
)

// AllModuleTypes returns the expansion module types a unit can carry.
// ModuleNone is deliberately excluded: it is an address classification,
// not a pluggable module.
func AllModuleTypes() []ModuleType {
	return []ModuleType{ModuleRelay, ModuleAIO, ModuleTC, ModulePT}
}

// moduleChannels maps each module type to its channel count.
var moduleChannels = map[ModuleType]int{
	ModuleRelay: 8,
	ModuleAIO:   8,
	ModuleTC:    4,
	ModulePT:    4,
}

// ChannelCount returns the number of channels a module type exposes,
// or 0 for an unknown type.
func (t ModuleType) ChannelCount() int {
	return moduleChannels[t]
}

// MaxModuleIndex is the highest module instance index per type (4-bit
// field, 1-based).
const MaxModuleIndex = 15

// moduleTypeByName resolves the lowercase family name back to its type.
// ModuleNone is excluded: "adio" paths carry no module segment.
func moduleTypeByName(name string) (ModuleType, bool) {
	for _, t := range AllModuleTypes() {
		if t.String() == name {
			return t, true
		}
	}
	return ModuleNone, false
}

// IsValid reports whether the module type is a known pluggable type.
func (t ModuleType) IsValid() bool {
	_, ok := moduleChannels[t]
	return ok
}

// String returns the lowercase module family name used in handles,
// MQTT topics and log lines.
func (t ModuleType) String() string {
	switch t {
	case ModuleNone:
		return "adio"
	case ModuleRelay:
		return "relay"
	case ModuleAIO:
		return "aio"
	case ModuleTC:
		return "tc"
	case ModulePT:
		return "pt"
	default:
		return "unknown"
	}
}
