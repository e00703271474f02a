package service

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/dsocial118/SISOC-sub000/internal/domain"
	"github.com/dsocial118/SISOC-sub000/internal/events"
	"github.com/dsocial118/SISOC-sub000/internal/metrics"
	"github.com/dsocial118/SISOC-sub000/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// RegistryLookup resolves a document key against the external beneficiary registry.
// Implementations return a NotFound error on a miss.
type RegistryLookup interface {
	Lookup(ctx context.Context, docType, docNumber string) (*domain.Beneficiary, error)
}

// Option configures the services built by New.
type Option func(*core)

func WithLogger(l *zap.Logger) Option { return func(c *core) { c.logger = l } }

func WithPublisher(p events.Publisher) Option { return func(c *core) { c.publisher = p } }

func WithMetrics(m *metrics.Metrics) Option { return func(c *core) { c.metrics = m } }

func WithRegistry(r RegistryLookup) Option { return func(c *core) { c.registry = r } }

// WithClock replaces time.Now; tests use it to control created_at ordering.
func WithClock(now func() time.Time) Option { return func(c *core) { c.now = now } }

// core is shared by every service.
type core struct {
	store     repository.Store
	publisher events.Publisher
	metrics   *metrics.Metrics
	registry  RegistryLookup
	logger    *zap.Logger
	now       func() time.Time
}

// Services bundles the VAAC services over one store.
type Services struct {
	Catalog       *CatalogService
	Beneficiaries *BeneficiaryService
	Assessment    *AssessmentService
	Cases         *CaseService
	Scheduler     *SchedulerService
	Interventions *InterventionService
	Audit         *AuditService
}

func New(store repository.Store, opts ...Option) *Services {
	c := &core{
		store:     store,
		publisher: events.Nop{},
		logger:    zap.NewNop(),
		now:       time.Now,
	}
	for _, o := range opts {
		o(c)
	}
	return &Services{
		Catalog:       &CatalogService{core: c},
		Beneficiaries: &BeneficiaryService{core: c},
		Assessment:    &AssessmentService{core: c},
		Cases:         &CaseService{core: c},
		Scheduler:     &SchedulerService{core: c},
		Interventions: &InterventionService{core: c},
		Audit:         &AuditService{core: c},
	}
}

// unit is one transaction plus the events appended inside it.
type unit struct {
	repository.Tx
	actor  domain.Actor
	now    time.Time
	held   map[string]bool
	rank   int
	events []domain.CaseEvent
}

// lockRank fixes the acquisition order across key families so concurrent
// units never wait on each other in a cycle.
func lockRank(key string) int {
	switch {
	case strings.HasPrefix(key, "case:"):
		return 0
	case strings.HasPrefix(key, "preadm:"):
		return 1
	case strings.HasPrefix(key, "snapshot:"):
		return 2
	case strings.HasPrefix(key, "admission:"):
		return 3
	case strings.HasPrefix(key, "pool:"):
		return 4
	}
	return 5
}

// lock takes the serialisation keys in (rank, key) order, skipping keys already held.
func (u *unit) lock(ctx context.Context, keys ...string) error {
	sort.Slice(keys, func(i, j int) bool {
		ri, rj := lockRank(keys[i]), lockRank(keys[j])
		if ri != rj {
			return ri < rj
		}
		return keys[i] < keys[j]
	})
	for _, k := range keys {
		if u.held[k] {
			continue
		}
		if r := lockRank(k); r < u.rank {
			return domain.Errorf(domain.KindConflict, "lock %s requested out of order", k)
		}
		if err := u.Lock(ctx, k); err != nil {
			return err
		}
		u.held[k] = true
		u.rank = lockRank(k)
	}
	return nil
}

// emit stamps ev with the unit's actor and time and queues it. Queued events
// are appended after fn returns, once every aggregate lock of the unit is held.
func (u *unit) emit(_ context.Context, ev domain.CaseEvent) error {
	ev.ID = uuid.NewString()
	ev.Actor = u.actor.ID
	ev.At = u.now
	u.events = append(u.events, ev)
	return nil
}

// write runs fn in a transaction and fans out its events once committed.
func (c *core) write(ctx context.Context, actor domain.Actor, fn func(u *unit) error) error {
	var committed []domain.CaseEvent
	err := c.store.WithTx(ctx, func(tx repository.Tx) error {
		u := &unit{Tx: tx, actor: actor, now: c.now().UTC(), held: map[string]bool{}}
		if err := fn(u); err != nil {
			return err
		}
		for i := range u.events {
			if err := u.AppendEvent(ctx, &u.events[i]); err != nil {
				return err
			}
		}
		committed = u.events
		return nil
	})
	if err != nil {
		return err
	}
	c.afterCommit(ctx, committed)
	return nil
}

// read runs fn in a read-only unit of work.
func (c *core) read(ctx context.Context, fn func(tx repository.Tx) error) error {
	return c.store.View(ctx, fn)
}

func (c *core) afterCommit(ctx context.Context, committed []domain.CaseEvent) {
	if len(committed) == 0 {
		return
	}
	for _, e := range committed {
		c.metrics.CaseEvent(string(e.Kind))
		c.logger.Info("case event committed",
			zap.Int64("seq", e.Seq),
			zap.String("kind", string(e.Kind)),
			zap.String("beneficiary_id", e.BeneficiaryID),
			zap.String("derivation_id", e.DerivationID),
			zap.String("admission_id", e.AdmissionID),
			zap.String("actor", e.Actor),
		)
	}
	if err := c.publisher.Publish(context.WithoutCancel(ctx), committed); err != nil {
		c.metrics.PublishError("fanout")
		c.logger.Warn("failed to publish case events", zap.Int("count", len(committed)), zap.Error(err))
	}
}

func invalid(format string, args ...any) error {
	return domain.Errorf(domain.KindInvalidInput, format, args...)
}

func forbidden(format string, args ...any) error {
	return domain.Errorf(domain.KindForbiddenTransition, format, args...)
}

func unauthorized(format string, args ...any) error {
	return domain.Errorf(domain.KindUnauthorizedActor, format, args...)
}

func badTransition(format string, args ...any) error {
	return domain.Errorf(domain.KindBadTransition, format, args...)
}
