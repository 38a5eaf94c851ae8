// Package events decouples the session runtime from what happens after a
// session ends. The runtime emits typed events; handlers subscribed to a
// type (persisting progress, metrics) react without the runtime knowing them.
package events
