// Package device holds the pool equipment model and its reconciliation.
//
// A Device is one piece of equipment discovered from the controller config
// (heater, solar system, channel, valve, lighting zone or favourite). Each
// registered device has exactly one ViewModel: the merge of its static
// config with the latest status snapshot.
//
// # Merging
//
// Merge is a pure function driven by a per-kind descriptor table. Fields are
// layered defaults < shared snapshot fields < config < the unit's own status
// record, then clamped to their minima:
//
//	vm := device.Merge(dev, status) // status may be nil
//
// # Registry
//
// Registry keeps devices in registration order and replaces view-models
// atomically. Duplicate registrations by (kind, name) are ignored.
//
// # Persistence
//
// SQLiteRepository stores accessory identities so accessory IDs stay stable
// across restarts. Live status is never persisted.
package device
