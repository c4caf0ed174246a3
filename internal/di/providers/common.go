package providers

import "time"

const (
	// shutdownTimeout bounds the graceful stop of each service.
	shutdownTimeout = 30 * time.Second

	// loadTimeout bounds reading the persisted library at startup.
	loadTimeout = 2 * time.Minute
)
