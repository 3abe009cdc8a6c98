package flows

import (
	"context"
	"time"
)

// Pinger reports session cache reachability.
type Pinger interface {
	Ping(ctx context.Context) (time.Duration, error)
}

// RunHealth pings the session cache once.
func RunHealth(ctx context.Context, store Pinger) (bool, time.Duration) {
	if store == nil {
		return false, 0
	}
	latency, err := store.Ping(ctx)
	return err == nil, latency
}
