package runner

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/tigerroll/worklist/pkg/worklist/core/channel"
	"github.com/tigerroll/worklist/pkg/worklist/core/domain/model"
)

// ItemFunc processes one batch entry. report sends interim status text for that entry's row.
// A returned error becomes a failure ResultEntry carrying the error text; it does not fail the run.
type ItemFunc[P any] func(ctx context.Context, payload P, report func(string)) (model.ResultEntry, error)

// PerItem returns Work that runs fn for every entry, at most workers at a time
// (DefaultWorkersCount when workers <= 0). Results keep batch order. A panic in fn fails the whole run.
func PerItem[P any](fn ItemFunc[P], workers int) Work[P] {
	if workers <= 0 {
		workers = DefaultWorkersCount()
	}
	return Func[P](func(ctx context.Context, batch *model.WorkBatch[P], ch *channel.StatusChannel) ([]model.ResultEntry, error) {
		results := make([]model.ResultEntry, batch.Len())
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(workers)
		for i, e := range batch.Entries() {
			g.Go(func() (err error) {
				defer func() {
					if r := recover(); r != nil {
						err = recovered(fmt.Sprintf("item %s", e.ID), r)
					}
				}()
				res, itemErr := fn(gctx, e.Payload, ch.Reporter(e.ID))
				if itemErr != nil {
					res = model.Failure(itemErr.Error())
				}
				results[i] = res
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
		return results, nil
	})
}
