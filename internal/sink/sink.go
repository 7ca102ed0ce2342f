// Package sink delivers decoded records downstream.
package sink

import (
	"context"
	"fmt"
	"time"
)

// Record is one decoded payload decorated with engine metadata about the
// object it came from.
type Record struct {
	Bucket       string    `json:"bucket"`
	Key          string    `json:"key"`
	LastModified time.Time `json:"last_modified"`
	Payload      string    `json:"payload"`
}

// Sink receives records synchronously, in the order the codec emitted them.
// Emit either succeeds or reports failure; the engine delivers at least once.
type Sink interface {
	Emit(ctx context.Context, rec Record) error
}

// ByName resolves the configured sink. The empty name means the log sink.
func ByName(name, url string, headers map[string]string) (Sink, error) {
	switch name {
	case "", "log":
		return NewLog(nil), nil
	case "webhook":
		return NewWebhook(url, headers)
	default:
		return nil, fmt.Errorf("unknown sink %q", name)
	}
}
