// Package llm provides the reasoning service abstraction used for entity
// ranking and answer synthesis. Callers treat the service as unreliable:
// every consumer degrades gracefully when a call fails.
package llm

import "context"

// Reasoner is the minimal contract against the external reasoning service.
type Reasoner interface {
	Complete(ctx context.Context, system string, user string) (string, error)
}
