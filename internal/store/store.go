package store

import (
	"context"

	"tradedominance/internal/model"
)

// Store archives fetched observations. It doubles as a providers.Source so a
// publisher run can be replayed from the archive.
type Store interface {
	Name() string
	UpsertObservations(ctx context.Context, observations []model.Observation) error
	Fetch(ctx context.Context, query model.Query) ([]model.Observation, error)
	Close() error
}

type NopStore struct{}

func (s *NopStore) Name() string {
	return "nop"
}

func (s *NopStore) UpsertObservations(ctx context.Context, observations []model.Observation) error {
	_ = ctx
	_ = observations
	return nil
}

func (s *NopStore) Fetch(ctx context.Context, query model.Query) ([]model.Observation, error) {
	_ = ctx
	_ = query
	return nil, nil
}

func (s *NopStore) Close() error {
	return nil
}
