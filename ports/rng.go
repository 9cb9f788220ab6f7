package ports

import (
	"context"
	"math/rand"
)

// RNGPort provides seeded random number generation for deterministic operations
type RNGPort interface {
	// Stream creates a deterministic RNG stream for a specific run/stage/key.
	// Concurrent fits draw from independent streams so their numbers do not depend on scheduling.
	Stream(ctx context.Context, runID, stageName, key string, baseSeed int64) (*rand.Rand, error)
}
