package tracker

import (
	"context"

	"git.home.luguber.info/inful/legistrack/internal/bill"
)

// Fetcher retrieves raw bill observations.
//
// FetchPartition returns a NotFound-classified error when the upstream has
// no such parliament/session.
type Fetcher interface {
	FetchCurrent(ctx context.Context) ([]bill.Observation, error)
	FetchPartition(ctx context.Context, p Partition) ([]bill.Observation, error)
}
