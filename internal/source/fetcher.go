package source

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ppiankov/marketscout/internal/logging"
	"github.com/ppiankov/marketscout/internal/model"
)

// Fetcher runs every source query of an entity concurrently
type Fetcher struct {
	searcher Searcher
	logger   *zap.Logger
}

// NewFetcher creates a fetcher over searcher
func NewFetcher(searcher Searcher, logger *zap.Logger) *Fetcher {
	return &Fetcher{
		searcher: searcher,
		logger:   logging.OrNop(logger),
	}
}

// FetchAll issues one search per query and returns the results keyed by
// source tag. A failing source yields an empty list and never affects
// its siblings.
func (f *Fetcher) FetchAll(ctx context.Context, queries []model.SourceQuery) map[model.SourceTag][]model.RawResultItem {
	results := make([][]model.RawResultItem, len(queries))

	var g errgroup.Group
	for i, q := range queries {
		g.Go(func() error {
			defer func() {
				if r := recover(); r != nil {
					f.logger.Error("source search panicked",
						zap.String("source", string(q.Tag)),
						zap.Any("panic", r))
				}
			}()

			items, err := f.searcher.Search(ctx, q)
			if err != nil {
				f.logger.Warn("source fetch failed",
					zap.String("source", string(q.Tag)),
					zap.Error(err))
				return nil
			}
			results[i] = items
			return nil
		})
	}
	_ = g.Wait()

	byTag := make(map[model.SourceTag][]model.RawResultItem, len(queries))
	for i, q := range queries {
		if results[i] == nil {
			results[i] = []model.RawResultItem{}
		}
		byTag[q.Tag] = results[i]
	}

	return byTag
}
