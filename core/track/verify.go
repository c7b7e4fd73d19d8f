package track

import (
	"context"

	"TrackFM/model"

	"golang.org/x/sync/errgroup"
)

// TrackLookup resolves a live track by id, returning nil when there is none.
type TrackLookup interface {
	GetByID(ctx context.Context, id int64) (*model.Track, error)
}

// MissingIDs returns the ids that do not resolve to a live track, in input
// order and without duplicates. All lookups finish before anything is
// decided; any lookup error fails the whole call.
func MissingIDs(ctx context.Context, lookup TrackLookup, ids []int64, limit int) ([]int64, error) {
	unique := make([]int64, 0, len(ids))
	seen := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		unique = append(unique, id)
	}

	found := make([]bool, len(unique))
	g, gctx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}
	for i, id := range unique {
		g.Go(func() error {
			t, err := lookup.GetByID(gctx, id)
			if err != nil {
				return err
			}
			found[i] = t != nil
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, serverFault(ReasonInternal, err, "failed to verify tracks")
	}

	missing := make([]int64, 0)
	for i, id := range unique {
		if !found[i] {
			missing = append(missing, id)
		}
	}
	return missing, nil
}
