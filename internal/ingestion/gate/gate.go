// Package gate decides whether an article still needs to be published.
package gate

import (
	"context"
	"log/slog"
)

// Lookup reports whether an article id is already stored.
type Lookup interface {
	Exists(ctx context.Context, id int64) (bool, error)
}

// Decision is the gate's verdict for one article id.
type Decision int

const (
	DecisionProceed Decision = iota
	DecisionSkip
)

func (d Decision) String() string {
	if d == DecisionSkip {
		return "skip"
	}
	return "proceed"
}

type Gate struct {
	lookup Lookup
	logger *slog.Logger
}

func New(lookup Lookup) *Gate {
	return &Gate{
		lookup: lookup,
		logger: slog.Default().With("component", "publish-gate"),
	}
}

// Check returns DecisionSkip when id is already published. A failed lookup is
// treated as absent: the store's insert-if-absent write is the real
// guarantee, so proceeding at worst costs one no-op insert.
func (g *Gate) Check(ctx context.Context, id int64) Decision {
	found, err := g.lookup.Exists(ctx, id)
	if err != nil {
		g.logger.Warn("lookup failed, assuming article is absent",
			"article_id", id,
			"error", err,
		)
		return DecisionProceed
	}
	if found {
		return DecisionSkip
	}
	return DecisionProceed
}
