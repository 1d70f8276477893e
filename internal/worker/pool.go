package worker

import (
	"context"
	"log/slog"

	"github.com/cuongbtq/drive-transcriber/internal/worker/domain"
	"golang.org/x/sync/errgroup"
)

// dispatch runs fn for every file with at most Concurrency in flight.
// With a concurrency of one, files are handled strictly in listing order.
// A failing file never stops the others; only ctx cancellation does.
func (p *Processor) dispatch(ctx context.Context, files []domain.RemoteFile, fn func(context.Context, domain.RemoteFile) error) error {
	var g errgroup.Group
	g.SetLimit(p.config.Concurrency)

	p.logger.Debug("Dispatching files",
		slog.Int("count", len(files)),
		slog.Int("concurrency", p.config.Concurrency),
	)

	for _, file := range files {
		if ctx.Err() != nil {
			break
		}

		g.Go(func() error {
			// Per-file errors are collected by fn, never returned to the group
			_ = fn(ctx, file)
			return nil
		})
	}

	_ = g.Wait()
	return ctx.Err()
}
