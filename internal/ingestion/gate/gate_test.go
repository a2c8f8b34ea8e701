package gate

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

type lookupFunc func(ctx context.Context, id int64) (bool, error)

func (f lookupFunc) Exists(ctx context.Context, id int64) (bool, error) { return f(ctx, id) }

func TestCheck(t *testing.T) {
	stored := map[int64]bool{7: true}
	g := New(lookupFunc(func(_ context.Context, id int64) (bool, error) {
		return stored[id], nil
	}))

	assert.Equal(t, DecisionSkip, g.Check(context.Background(), 7))
	assert.Equal(t, DecisionProceed, g.Check(context.Background(), 8))
}

func TestCheckLookupFailureProceeds(t *testing.T) {
	g := New(lookupFunc(func(context.Context, int64) (bool, error) {
		return false, errors.New("connection reset")
	}))

	assert.Equal(t, DecisionProceed, g.Check(context.Background(), 1))
}

func TestDecisionString(t *testing.T) {
	assert.Equal(t, "skip", DecisionSkip.String())
	assert.Equal(t, "proceed", DecisionProceed.String())
}
