package mqtt

import "errors"

// Sentinel errors surfaced by the client. Callers match with errors.Is;
// the bridge treats ErrNotConnected as transient and drops the message,
// retained state topics heal the gap on reconnect.
var (
	ErrNotConnected     = errors.New("mqtt: client not connected")
	ErrConnectionFailed = errors.New("mqtt: connection failed")
	ErrPublishFailed    = errors.New("mqtt: publish failed")
	ErrSubscribeFailed  = errors.New("mqtt: subscribe failed")
	ErrInvalidQoS       = errors.New("mqtt: qos must be 0, 1 or 2")
	ErrInvalidTopic     = errors.New("mqtt: topic cannot be empty")
)
