package reliability

import (
	"context"
	"errors"
	"time"

	"stagepass/internal/core/domain"
	"stagepass/internal/core/ports"
	"stagepass/pkg/circuitbreaker"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// StoreGuard shares one circuit breaker between every repository backed by
// the same store, so a dead Redis fails fast for streams and identities alike.
type StoreGuard struct {
	breaker *circuitbreaker.CircuitBreaker
}

// NewStoreGuard creates a guard for the named backend.
func NewStoreGuard(backend string, cfg circuitbreaker.Config, logger *zap.SugaredLogger, opts ...circuitbreaker.Option) *StoreGuard {
	opts = append([]circuitbreaker.Option{
		circuitbreaker.WithFailurePredicate(isStoreFailure),
		circuitbreaker.WithStateChangeHook(func(from, to circuitbreaker.State) {
			logger.Warnw("store circuit breaker state changed",
				"backend", backend,
				"from", from.String(),
				"to", to.String(),
			)
		}),
	}, opts...)

	return &StoreGuard{breaker: circuitbreaker.New(cfg, opts...)}
}

func (g *StoreGuard) State() circuitbreaker.State {
	return g.breaker.State()
}

// HealthCheck reports the store as unhealthy while the breaker is open.
func (g *StoreGuard) HealthCheck(ctx context.Context) error {
	if g.breaker.State() == circuitbreaker.StateOpen {
		return circuitbreaker.ErrOpen
	}
	return nil
}

// isStoreFailure treats domain outcomes and exhausted optimistic-transaction
// retries as healthy round trips. Contention on one hot stream says nothing
// about the store being reachable.
func isStoreFailure(err error) bool {
	switch {
	case errors.Is(err, redis.TxFailedErr),
		errors.Is(err, domain.ErrStreamNotFound),
		errors.Is(err, domain.ErrStreamExists),
		errors.Is(err, domain.ErrStreamNotLive),
		errors.Is(err, domain.ErrInvalidTransition),
		errors.Is(err, domain.ErrIdentityNotFound):
		return false
	}
	return true
}

type guardedStreamRepository struct {
	next    ports.StreamRepository
	breaker *circuitbreaker.CircuitBreaker
}

// GuardStreamRepository wraps repo with the guard's breaker.
func (g *StoreGuard) GuardStreamRepository(repo ports.StreamRepository) ports.StreamRepository {
	return &guardedStreamRepository{next: repo, breaker: g.breaker}
}

func (r *guardedStreamRepository) Create(ctx context.Context, stream *domain.Stream) error {
	return r.breaker.Execute(ctx, func(ctx context.Context) error {
		return r.next.Create(ctx, stream)
	})
}

func (r *guardedStreamRepository) GetByID(ctx context.Context, id domain.StreamID) (*domain.Stream, error) {
	return circuitbreaker.Execute(ctx, r.breaker, func(ctx context.Context) (*domain.Stream, error) {
		return r.next.GetByID(ctx, id)
	})
}

func (r *guardedStreamRepository) UpdateStatus(ctx context.Context, id domain.StreamID, status domain.StreamStatus, now time.Time) (*domain.Stream, error) {
	return circuitbreaker.Execute(ctx, r.breaker, func(ctx context.Context) (*domain.Stream, error) {
		return r.next.UpdateStatus(ctx, id, status, now)
	})
}

func (r *guardedStreamRepository) AddViewer(ctx context.Context, id domain.StreamID, viewerID domain.UserID, now time.Time) (*domain.JoinResult, error) {
	return circuitbreaker.Execute(ctx, r.breaker, func(ctx context.Context) (*domain.JoinResult, error) {
		return r.next.AddViewer(ctx, id, viewerID, now)
	})
}

type guardedIdentityRepository struct {
	next    ports.IdentityRepository
	breaker *circuitbreaker.CircuitBreaker
}

func (g *StoreGuard) GuardIdentityRepository(repo ports.IdentityRepository) ports.IdentityRepository {
	return &guardedIdentityRepository{next: repo, breaker: g.breaker}
}

func (r *guardedIdentityRepository) GetByID(ctx context.Context, id domain.UserID) (*domain.Identity, error) {
	return circuitbreaker.Execute(ctx, r.breaker, func(ctx context.Context) (*domain.Identity, error) {
		return r.next.GetByID(ctx, id)
	})
}

func (r *guardedIdentityRepository) Upsert(ctx context.Context, identity *domain.Identity) error {
	return r.breaker.Execute(ctx, func(ctx context.Context) error {
		return r.next.Upsert(ctx, identity)
	})
}
