// Package engine reconciles the pool controller's status with the local
// device registry.
//
// Three pieces run against a shared device.Registry:
//
//   - Bootstrap fetches the equipment inventory once, reconciles it with
//     accessories stored by earlier runs and registers every device.
//   - Poller fetches a status snapshot on a fixed interval and replaces
//     each device's view-model with the merged result.
//   - Dispatcher turns intents from device sinks into remote actions,
//     applying them optimistically first.
//
// Failures never stop the engine. A failed poll keeps the last known
// state; a failed command keeps the optimistic state until the next poll.
package engine
