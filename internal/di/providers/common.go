package providers

import "time"

const (
	// shutdownTimeout bounds how long Shutdown waits for a running sweep.
	shutdownTimeout = 30 * time.Second
)
