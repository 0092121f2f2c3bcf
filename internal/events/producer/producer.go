// Package producer provides transport implementations for shipping security
// events out of the process.
package producer

import "saas-erp/backend/internal/events"

// Producer emits security events to an external sink. Callers use it
// best-effort: log and ignore errors.
type Producer interface {
	events.Emitter
	// Close releases resources (e.g. the Kafka writer). Safe to call if
	// already closed.
	Close() error
}

var _ Producer = (*KafkaProducer)(nil)
