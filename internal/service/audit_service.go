package service

import (
	"context"

	"github.com/dsocial118/SISOC-sub000/internal/domain"
	"github.com/dsocial118/SISOC-sub000/internal/repository"
)

// maxTimelineEvents bounds the replay of a single case.
const maxTimelineEvents = 10000

// AuditService is the read side of the case event log.
type AuditService struct {
	*core
}

// ListEvents pulls events in commit order. Consumers page with AfterSeq.
func (s *AuditService) ListEvents(ctx context.Context, actor domain.Actor, filter domain.EventFilter) ([]domain.CaseEvent, error) {
	if err := actor.Require(domain.CapReadCase); err != nil {
		return nil, err
	}
	if filter.Kind != "" && !knownKind(filter.Kind) {
		return nil, invalid("unknown event kind %q", filter.Kind)
	}
	if filter.AfterSeq < 0 {
		return nil, invalid("after_seq must be non-negative")
	}
	if filter.Limit <= 0 || filter.Limit > repository.DefaultEventLimit {
		filter.Limit = repository.DefaultEventLimit
	}
	var out []domain.CaseEvent
	err := s.read(ctx, func(tx repository.Tx) error {
		var err error
		out, err = tx.ListEvents(ctx, filter)
		return err
	})
	return out, err
}

func knownKind(k domain.EventKind) bool {
	for _, kk := range domain.AllEventKinds {
		if kk == k {
			return true
		}
	}
	return false
}

// Timeline replays the events of a derivation and returns every step with the stage it
// reached. Events survive the deletion of the derivation, so a deleted case still has one.
func (s *AuditService) Timeline(ctx context.Context, actor domain.Actor, derivationID string) ([]domain.TimelineStep, error) {
	if err := actor.Require(domain.CapReadCase); err != nil {
		return nil, err
	}
	var evs []domain.CaseEvent
	err := s.read(ctx, func(tx repository.Tx) error {
		var err error
		evs, err = tx.ListEvents(ctx, domain.EventFilter{DerivationID: derivationID, Limit: maxTimelineEvents})
		return err
	})
	if err != nil {
		return nil, err
	}
	if len(evs) == 0 {
		return nil, domain.NotFoundf("no events for derivation %s", derivationID)
	}
	return domain.ReplayCase(evs)
}

// ValidateSequence reports whether events form a path the case state machine accepts.
func (s *AuditService) ValidateSequence(events []domain.CaseEvent) error {
	_, err := domain.ReplayCase(events)
	return err
}
