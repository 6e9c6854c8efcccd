// Package uservars provides the user variable bank: small 1-based banks
// of boolean and integer variables applications use to exchange state
// with dashboards and between tasks without touching a pin.
//
// Boolean reads carry the same trigger-mode semantics as digital pins:
// state reads return the level, edge reads report a transition exactly
// once across all edge modes, whichever reader polls first. Integer
// reads return the value, with a one-shot changed flag available
// separately.
//
// Variables persist across restarts through a Repository and publish on
// change through a Publisher, both optional.
package uservars
