package webquery

import "context"

// ConsistencyLevel tells a store engine whether a read may be served by a replica.
type ConsistencyLevel int

const (
	// StrongConsistency reads from the primary database. This is the default.
	StrongConsistency ConsistencyLevel = iota

	// EventualConsistency allows reads from a replica, which may lag behind the primary.
	EventualConsistency
)

type contextKey string

// ConsistencyLevelKey is the context key holding the ConsistencyLevel.
const ConsistencyLevelKey contextKey = "webquery.consistency_level"

// WithStrongConsistency returns a context that routes queries to the primary database.
func WithStrongConsistency(ctx context.Context) context.Context {
	return context.WithValue(ctx, ConsistencyLevelKey, StrongConsistency)
}

// WithEventualConsistency returns a context that allows queries to be served by a replica.
//
//	ctx = webquery.WithEventualConsistency(ctx)
//	page, err := runner.Find(ctx, envelope)
func WithEventualConsistency(ctx context.Context) context.Context {
	return context.WithValue(ctx, ConsistencyLevelKey, EventualConsistency)
}

// GetConsistencyLevel extracts the ConsistencyLevel, StrongConsistency if none is set.
func GetConsistencyLevel(ctx context.Context) ConsistencyLevel {
	if level, ok := ctx.Value(ConsistencyLevelKey).(ConsistencyLevel); ok {
		return level
	}

	return StrongConsistency
}

func (c ConsistencyLevel) String() string {
	switch c {
	case StrongConsistency:
		return "strong"
	case EventualConsistency:
		return "eventual"
	default:
		return "unknown"
	}
}
