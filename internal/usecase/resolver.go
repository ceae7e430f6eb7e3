package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/foodlog/backend/internal/domain"
)

// Tier outcomes reported to the ResolveObserver.
const (
	OutcomeHit       = "hit"
	OutcomeMiss      = "miss"
	OutcomeTimeout   = "timeout"
	OutcomeMalformed = "malformed"
	OutcomeError     = "error"
)

// Strategy is one tier of the resolution chain. Attempt returns the
// references found, or an error; an empty result and ErrNotFound both
// mean "try the next tier".
type Strategy interface {
	Name() string
	Supports(mode domain.Mode) bool
	Attempt(ctx context.Context, q domain.Query) ([]domain.FoodReference, error)
}

// TierFailure records why one tier produced nothing.
type TierFailure struct {
	Tier string
	Err  error
}

// ResolveError is the only error Resolve returns once a query has been
// accepted. It always matches domain.ErrNotFound, and additionally the
// cause reported by the last tier that failed with something other than a
// plain miss.
type ResolveError struct {
	Query    string
	Mode     domain.Mode
	Attempts []TierFailure
}

func (e *ResolveError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s query %q", domain.ErrNotFound, e.Mode, e.Query)
	for _, a := range e.Attempts {
		fmt.Fprintf(&b, "; %s: %v", a.Tier, a.Err)
	}
	return b.String()
}

func (e *ResolveError) Unwrap() []error {
	errs := []error{domain.ErrNotFound}
	if cause := e.Cause(); cause != nil {
		errs = append(errs, cause)
	}
	return errs
}

// Cause returns the last tier error that was not a plain miss.
func (e *ResolveError) Cause() error {
	for i := len(e.Attempts) - 1; i >= 0; i-- {
		if err := e.Attempts[i].Err; err != nil && !errors.Is(err, domain.ErrNotFound) {
			return err
		}
	}
	return nil
}

type nopObserver struct{}

func (nopObserver) ObserveTier(string, domain.Mode, string, time.Duration) {}

// Resolver turns a query into candidate references by trying each
// strategy in order until one returns a non-empty result.
type Resolver struct {
	strategies []Strategy
	observer   domain.ResolveObserver
	logger     *zap.Logger
}

// NewResolver creates a resolver over the given chain. observer may be nil.
func NewResolver(logger *zap.Logger, observer domain.ResolveObserver, strategies ...Strategy) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	if observer == nil {
		observer = nopObserver{}
	}
	return &Resolver{strategies: strategies, observer: observer, logger: logger}
}

// Strategies returns the tier names in chain order.
func (r *Resolver) Strategies() []string {
	names := make([]string, len(r.strategies))
	for i, s := range r.strategies {
		names[i] = s.Name()
	}
	return names
}

// Resolve runs the chain for q. Malformed queries fail with
// ErrInvalidRequest before any tier runs; every other failure is a
// *ResolveError.
func (r *Resolver) Resolve(ctx context.Context, q domain.Query) ([]domain.FoodReference, error) {
	q.Text = strings.TrimSpace(q.Text)
	if err := validateQuery(q); err != nil {
		return nil, err
	}

	failure := &ResolveError{Query: q.Text, Mode: q.Mode}
	for _, s := range r.strategies {
		if !s.Supports(q.Mode) {
			continue
		}
		if ctx.Err() != nil {
			failure.Attempts = append(failure.Attempts, TierFailure{Tier: s.Name(), Err: ctx.Err()})
			break
		}

		start := time.Now()
		refs, err := r.attempt(ctx, s, q)
		outcome := classifyOutcome(refs, err)
		r.observer.ObserveTier(s.Name(), q.Mode, outcome, time.Since(start))

		if outcome == OutcomeHit {
			r.logger.Debug("query resolved",
				zap.String("tier", s.Name()),
				zap.String("mode", string(q.Mode)),
				zap.Int("results", len(refs)),
			)
			return refs, nil
		}

		if err == nil {
			err = domain.ErrNotFound
		}
		if outcome != OutcomeMiss {
			r.logger.Warn("resolver tier failed",
				zap.String("tier", s.Name()),
				zap.String("mode", string(q.Mode)),
				zap.String("outcome", outcome),
				zap.Error(err),
			)
		}
		failure.Attempts = append(failure.Attempts, TierFailure{Tier: s.Name(), Err: err})
	}

	return nil, failure
}

// attempt runs one tier and converts a panic into an error.
func (r *Resolver) attempt(ctx context.Context, s Strategy, q domain.Query) (refs []domain.FoodReference, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			refs = nil
			err = fmt.Errorf("%w: tier %s panicked: %v", domain.ErrUpstreamFailure, s.Name(), rec)
		}
	}()
	return s.Attempt(ctx, q)
}

func classifyOutcome(refs []domain.FoodReference, err error) string {
	switch {
	case err == nil && len(refs) > 0:
		return OutcomeHit
	case err == nil, errors.Is(err, domain.ErrNotFound):
		return OutcomeMiss
	case errors.Is(err, domain.ErrUpstreamTimeout), errors.Is(err, context.DeadlineExceeded):
		return OutcomeTimeout
	case errors.Is(err, domain.ErrMalformedEstimate):
		return OutcomeMalformed
	default:
		return OutcomeError
	}
}

func validateQuery(q domain.Query) error {
	if q.Text == "" {
		return fmt.Errorf("%w: query is required", domain.ErrInvalidRequest)
	}
	if !q.Mode.Valid() {
		return fmt.Errorf("%w: unknown mode %q", domain.ErrInvalidRequest, q.Mode)
	}
	if q.Mode == domain.ModeBarcode && !isNumeric(q.Text) {
		return fmt.Errorf("%w: barcode must contain only digits", domain.ErrInvalidRequest)
	}
	return nil
}
