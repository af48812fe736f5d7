// Package directions defines the port for the upstream directions service.
package directions

import (
	"context"

	"github.com/Strob0t/TravelTime/internal/domain/directions"
	"github.com/Strob0t/TravelTime/internal/domain/lookup"
)

// Fetcher issues one lookup against the upstream service. Implementations
// never return Go errors: every failure is reported as a result carrying
// an error status.
type Fetcher interface {
	Fetch(ctx context.Context, req lookup.Request) directions.Result
}
