package events

import (
	"context"
	"errors"

	"github.com/dsocial118/SISOC-sub000/internal/domain"
)

// Publisher fans committed case events out to subscribers. The case_events table stays
// the source of truth; publishers are best-effort.
type Publisher interface {
	Publish(ctx context.Context, events []domain.CaseEvent) error
}

// Nop discards events.
type Nop struct{}

func (Nop) Publish(context.Context, []domain.CaseEvent) error { return nil }

// Multi publishes to every sink and joins their errors.
type Multi []Publisher

func (m Multi) Publish(ctx context.Context, events []domain.CaseEvent) error {
	var errs []error
	for _, p := range m {
		if p == nil {
			continue
		}
		if err := p.Publish(ctx, events); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
