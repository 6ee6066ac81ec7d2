package tools

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// RunWithWorkers runs handler over jobs with at most maxWorkers in flight.
// Jobs not yet started when ctx is cancelled are never handed to handler.
func RunWithWorkers[T any](ctx context.Context, jobs []T, maxWorkers int, handler func(ctx context.Context, i int, job T)) {
	if maxWorkers < 1 {
		maxWorkers = 1
	}

	var g errgroup.Group
	g.SetLimit(maxWorkers)

	for i, job := range jobs {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			handler(ctx, i, job)
			return nil
		})
	}

	_ = g.Wait()
}
