package datasource

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// maxSampleWorkers bounds how many sample queries run against the target
// database at once. Sampling is best-effort; a low bound keeps the burst
// gentle on small servers.
const maxSampleWorkers = 4

// SampleFunc fetches up to n rows from one table, returning the sampled
// column names and the rendered rows.
type SampleFunc func(ctx context.Context, table *TableInfo, n int) ([]string, [][]string, error)

// CollectSamples fills SampleColumns and SampleRows for every table,
// running at most maxSampleWorkers sample queries concurrently. A table
// whose sample fails keeps an empty sample; the failure is logged at WARN
// and the remaining tables still get sampled.
func CollectSamples(ctx context.Context, tables []TableInfo, n int, fn SampleFunc, logger *zap.Logger) {
	if n <= 0 || len(tables) == 0 {
		return
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	sem := make(chan struct{}, maxSampleWorkers)
	var wg sync.WaitGroup
	for i := range tables {
		wg.Add(1)
		go func(t *TableInfo) {
			defer wg.Done()

			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				return
			}

			cols, rows, err := fn(ctx, t, n)
			if err != nil {
				logger.Warn("table sample failed, continuing without it",
					zap.String("table", t.Name),
					zap.Error(err))
				return
			}
			t.SampleColumns = cols
			t.SampleRows = rows
		}(&tables[i])
	}
	wg.Wait()
}
