package vpin

import (
	"fmt"
	"strconv"
	"strings"
)

// PinID is an opaque 32-bit handle addressing a single I/O terminal anywhere
// in an IronPin installation: on the local unit, on a daisy-chained sibling
// unit, or on a plug-in expansion module.
//
// Bit layout (wire-compatible, do not change):
//
//	bits [0:7]   pin / channel number (1-based)
//	bits [8:11]  reserved, always zero
//	bits [12:15] module index (1-based instance of a module type)
//	bits [16:23] module type (0 = none, main-unit ADIO)
//	bits [24:31] unit role (0 = local/master, 1-4 = sibling unit)
type PinID uint32

// Bit field positions and masks for PinID.
const (
	pinMask    = 0xFF
	indexShift = 12
	indexMask  = 0xF
	typeShift  = 16
	typeMask   = 0xFF
	roleShift  = 24
	roleMask   = 0xFF
)

// UnitRole identifies a unit in a daisy chain.
// Role 0 is the local/master unit; roles 1-4 are sibling units.
type UnitRole uint8

// Unit role limits.
const (
	RoleMaster  UnitRole = 0
	MaxUnitRole UnitRole = 4
)

// Compose packs the four address fields into a PinID.
//
// Compose is pure bit arithmetic and total: out-of-range inputs are masked
// to field width and simply decode to values that higher layers reject.
// Compose followed by the field accessors returns the original fields for
// all in-range inputs.
func Compose(role UnitRole, modType ModuleType, modIndex, pin int) PinID {
	return PinID(uint32(pin)&pinMask |
		(uint32(modIndex)&indexMask)<<indexShift |
		(uint32(modType)&typeMask)<<typeShift |
		(uint32(role)&roleMask)<<roleShift)
}

// Local returns the PinID for a pin on the local main-unit ADIO bank.
func Local(pin int) PinID {
	return Compose(RoleMaster, ModuleNone, 0, pin)
}

// Pin returns the pin (channel) number field.
func (id PinID) Pin() int {
	return int(uint32(id) & pinMask)
}

// ModuleIndex returns the 1-based module instance field.
func (id PinID) ModuleIndex() int {
	return int((uint32(id) >> indexShift) & indexMask)
}

// ModuleType returns the module type field. ModuleNone means the handle
// addresses the unit's own ADIO bank.
func (id PinID) ModuleType() ModuleType {
	return ModuleType((uint32(id) >> typeShift) & typeMask)
}

// UnitRole returns the unit role field.
func (id PinID) UnitRole() UnitRole {
	return UnitRole((uint32(id) >> roleShift) & roleMask)
}

// Fields unpacks all four address fields at once.
func (id PinID) Fields() (role UnitRole, modType ModuleType, modIndex, pin int) {
	return id.UnitRole(), id.ModuleType(), id.ModuleIndex(), id.Pin()
}

// IsLocal reports whether the handle resolves to the unit running with the
// given role. A handle is local only when its role field matches exactly.
func (id PinID) IsLocal(thisRole UnitRole) bool {
	return id.UnitRole() == thisRole
}

// IsExpansion reports whether the handle addresses an expansion module
// channel rather than a main-unit ADIO pin.
func (id PinID) IsExpansion() bool {
	return id.ModuleType() != ModuleNone
}

// String renders the handle in "u<role>/<type>.<index>/p<pin>" form.
//
// Example: "u0/adio/p3", "u2/relay.1/p7"
func (id PinID) String() string {
	role, modType, modIndex, pin := id.Fields()
	if modType == ModuleNone {
		return fmt.Sprintf("u%d/adio/p%d", role, pin)
	}
	return fmt.Sprintf("u%d/%s.%d/p%d", role, modType, modIndex, pin)
}

// ParsePath parses the path form produced by String back into a PinID.
// It accepts "u<role>/adio/p<pin>" for main-unit pins and
// "u<role>/<type>.<index>/p<pin>" for expansion channels.
func ParsePath(s string) (PinID, error) {
	parts := strings.Split(s, "/")
	if len(parts) != 3 {
		return 0, fmt.Errorf("vpin: malformed pin path %q", s)
	}

	role, err := parsePathNumber(parts[0], "u")
	if err != nil {
		return 0, fmt.Errorf("vpin: pin path %q: %w", s, err)
	}
	pin, err := parsePathNumber(parts[2], "p")
	if err != nil {
		return 0, fmt.Errorf("vpin: pin path %q: %w", s, err)
	}

	if parts[1] == "adio" {
		return Compose(UnitRole(role), ModuleNone, 0, pin), nil
	}

	typeName, indexStr, ok := strings.Cut(parts[1], ".")
	if !ok {
		return 0, fmt.Errorf("vpin: pin path %q: missing module index", s)
	}
	modType, ok := moduleTypeByName(typeName)
	if !ok {
		return 0, fmt.Errorf("vpin: pin path %q: unknown module type %q", s, typeName)
	}
	modIndex, err := strconv.Atoi(indexStr)
	if err != nil || modIndex < 1 || modIndex > MaxModuleIndex {
		return 0, fmt.Errorf("vpin: pin path %q: bad module index %q", s, indexStr)
	}

	return Compose(UnitRole(role), modType, modIndex, pin), nil
}

// parsePathNumber strips a single-letter prefix and parses the remainder.
func parsePathNumber(part, prefix string) (int, error) {
	rest, ok := strings.CutPrefix(part, prefix)
	if !ok {
		return 0, fmt.Errorf("expected %q segment, got %q", prefix, part)
	}
	n, err := strconv.Atoi(rest)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("bad %q segment %q", prefix, part)
	}
	return n, nil
}
