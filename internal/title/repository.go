package title

import "context"

// Repository stores and looks up titles by identifier.
//
// Get returns an error marked shared.KindNotFound when no row matches; other
// failures keep the kind the store assigned (dependency failure, timeout).
// Put inserts or replaces every record atomically.
type Repository interface {
	Get(ctx context.Context, id string) (Record, error)
	Put(ctx context.Context, records ...Record) error
}
