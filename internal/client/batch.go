package client

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// AskAll sends each question concurrently, at most limit at a time, and
// returns the answers in question order.
func (c *APIClient) AskAll(ctx context.Context, questions []string, limit int) ([]string, error) {
	answers := make([]string, len(questions))

	g, gctx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}
	for i, q := range questions {
		g.Go(func() error {
			answer, err := c.Chat(gctx, q)
			if err != nil {
				return err
			}
			answers[i] = answer
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return answers, nil
}
