package audit

import "context"

// Sink receives audit events. Implementations may persist, forward, or drop;
// the publisher never lets a sink failure propagate into domain logic.
type Sink interface {
	Record(ctx context.Context, event Event) error
}
