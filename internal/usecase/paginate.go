package usecase

import (
	"context"

	"github.com/rs/zerolog/log"

	"taskbridge/internal/ports"
)

const defaultMaxWalk = 10000

// walk drives a cursor query to completion, yielding each raw record to fn.
// Pages are fetched strictly sequentially: the cursor from page N is the
// only valid input for page N+1, so there is never more than one request in
// flight per walk. fn returns false to stop early; a remote error aborts
// the walk immediately, leaving already-yielded records with the caller.
// Walks restart from the beginning only, there is no mid-stream resume.
func (o *Orchestrator) walk(ctx context.Context, sourceID string, q ports.RecordQuery, fn func(ports.Page) (bool, error)) error {
	maxWalk := o.MaxWalk
	if maxWalk <= 0 {
		maxWalk = defaultMaxWalk
	}

	cursor := ""
	seen := 0
	for {
		req := q
		req.StartCursor = cursor
		page, err := o.Remote.QueryRecords(ctx, sourceID, req)
		if err != nil {
			return err
		}

		for _, rec := range page.Results {
			cont, err := fn(rec)
			if err != nil {
				return err
			}
			if !cont {
				return nil
			}
			seen++
			if seen >= maxWalk {
				// safety valve against unbounded walks, not a correctness limit
				log.Ctx(ctx).Warn().Int("cap", maxWalk).Str("source", sourceID).
					Msg("pagination walk stopped at record cap")
				return nil
			}
		}

		if !page.HasMore || page.NextCursor == "" {
			return nil
		}
		cursor = page.NextCursor
	}
}
