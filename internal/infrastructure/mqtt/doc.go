// Package mqtt is IronPin's message bus: the broker connection, the
// topic scheme, and the bridge between the pin engine and the outside
// world.
//
// IronPin units are daisy-chained controllers sharing one broker. Pin
// topics embed the handle's path form as topic levels, so a unit
// subscribes to commands addressed to its own role and mirrors retained
// state published by its siblings. The unit status topic carries a
// retained online/offline payload, with a Last Will so a crashed unit
// is flagged offline by the broker itself.
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	bridge := mqtt.NewBridge(client, cfg.Controller.ID, role)
//	if err := bridge.ListenCommands(eng); err != nil {
//	    return err
//	}
//
// The client auto-reconnects with backoff, restores subscriptions after
// a reconnect and recovers panics in message handlers. Retained state
// topics mean a gap during reconnection heals on the next change.
package mqtt
