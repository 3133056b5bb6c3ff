package rate

import (
	"context"
	"errors"
	"time"
)

// Class groups endpoints that share one budget rule.
type Class string

const (
	ClassAuth   Class = "auth"
	ClassAPI    Class = "api"
	ClassUpload Class = "upload"
	ClassAdmin  Class = "admin"
)

// Rule is one fixed-window budget: at most Max attempts per Window.
type Rule struct {
	Max    int
	Window time.Duration
}

// Decision is the outcome of one Allow call. When Permitted is false,
// RetryAfter is the time until the current window expires.
type Decision struct {
	Permitted  bool
	Remaining  int
	RetryAfter time.Duration
}

// CounterStore increments a window counter and reports how far into the
// window the key currently is. Implementations must start a fresh window
// (count 1, elapsed 0) when none is active for the key.
type CounterStore interface {
	Incr(ctx context.Context, key string, window time.Duration) (count int64, elapsed time.Duration, err error)
	Reset(ctx context.Context, key string) error
}

// Guard applies per-class rules to identifier+endpoint pairs.
// Safe for concurrent use.
type Guard struct {
	store CounterStore
	rules map[Class]Rule
}

// NewGuard validates the rule set and returns a ready Guard.
func NewGuard(store CounterStore, rules map[Class]Rule) (*Guard, error) {
	if store == nil {
		return nil, errors.New("nil counter store")
	}
	if len(rules) == 0 {
		return nil, errors.New("empty rule set")
	}
	for class, rule := range rules {
		if rule.Max <= 0 || rule.Window <= 0 {
			return nil, errors.New("invalid rule for class " + string(class))
		}
	}
	return &Guard{store: store, rules: rules}, nil
}

// Allow consumes one attempt from the budget for the identifier+endpoint
// pair under the class rule. The attempt counts whether or not it is
// permitted.
func (g *Guard) Allow(ctx context.Context, identifier, endpoint string, class Class) (Decision, error) {
	rule, ok := g.rules[class]
	if !ok {
		return Decision{}, ErrUnknownClass
	}

	count, elapsed, err := g.store.Incr(ctx, key(identifier, endpoint), rule.Window)
	if err != nil {
		return Decision{}, err
	}

	if count > int64(rule.Max) {
		retry := rule.Window - elapsed
		if retry < 0 {
			retry = 0
		}
		return Decision{Permitted: false, Remaining: 0, RetryAfter: retry}, nil
	}

	return Decision{Permitted: true, Remaining: rule.Max - int(count)}, nil
}

// Reset clears the active window for the identifier+endpoint pair.
func (g *Guard) Reset(ctx context.Context, identifier, endpoint string) error {
	return g.store.Reset(ctx, key(identifier, endpoint))
}

// Distinct endpoints never share a window even for the same identifier.
func key(identifier, endpoint string) string {
	return endpoint + "|" + identifier
}
