package creditscore

import "context"

// Lookup is the typed outcome of a cache read. Backend failure is a visible
// variant rather than a swallowed error, so the engine's degrade path is an
// explicit branch.
type Lookup int

const (
	LookupHit Lookup = iota
	LookupMiss
	LookupUnavailable
)

func (l Lookup) String() string {
	switch l {
	case LookupHit:
		return "hit"
	case LookupMiss:
		return "miss"
	case LookupUnavailable:
		return "unavailable"
	default:
		return "unknown"
	}
}

// Cache is the score cache in front of the engine. Implementations must bound
// every operation with a timeout; an unreachable backend reports
// LookupUnavailable (or an error from Set/Delete) instead of blocking.
type Cache interface {
	Get(ctx context.Context, customerID int64) (int, Lookup)

	Set(ctx context.Context, customerID int64, score int) error

	// Delete removes a cached score. Deleting an absent key is not an error.
	Delete(ctx context.Context, customerID int64) error
}
