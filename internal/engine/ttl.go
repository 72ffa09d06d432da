package engine

import (
	"fmt"
	"time"
)

// expiry resolves the instant a fresh derivative stops being served.
// requested is the client-supplied TTL, zero when absent; the server cap
// comes from the engine. The client may shorten the server cap but never
// exceed it, and with neither side supplying a TTL the upload is refused.
func (e *Engine) expiry(requested time.Duration) (time.Time, error) {
	if requested < 0 {
		return time.Time{}, fmt.Errorf("negative ttl %s", requested)
	}

	now := e.now().UTC()
	switch {
	case requested == 0 && e.maxTTL == 0:
		return time.Time{}, ErrNoTTL
	case requested == 0:
		return now.Add(e.maxTTL), nil
	case e.maxTTL == 0 || requested <= e.maxTTL:
		return now.Add(requested), nil
	default:
		return now.Add(e.maxTTL), nil
	}
}
