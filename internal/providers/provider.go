package providers

import (
	"context"

	"tradedominance/internal/model"
)

// Source returns the complete observation set for a query or fails.
type Source interface {
	Name() string
	Fetch(ctx context.Context, query model.Query) ([]model.Observation, error)
}
