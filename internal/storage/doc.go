// Package storage persists what the dispatcher needs across restarts: the
// update ids already answered and an audit trail of deliveries.
package storage
