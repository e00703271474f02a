package domain

// CaseStage is the position of a case in the derivation -> pre-admission -> admission flow,
// as reconstructed from its events.
type CaseStage string

const (
	StagePending      CaseStage = "PENDING"
	StageUnderReview  CaseStage = "UNDER_REVIEW"
	StageAdvisory     CaseStage = "ADVISORY"
	StageClosed       CaseStage = "CLOSED"
	StagePreAdmission CaseStage = "PRE_ADMISSION"
	StageFinalized    CaseStage = "FINALIZED"
	StageAdmitted     CaseStage = "ADMITTED"
	StageInactive     CaseStage = "INACTIVE"
)

// TimelineStep is one replayed event with the state it led to.
type TimelineStep struct {
	Event  CaseEvent `json:"event"`
	Stage  CaseStage `json:"stage"`
	Seated bool      `json:"seated"`
}

// caseReplay folds events of one derivation.
type caseReplay struct {
	stage  CaseStage
	seated bool
}

func (r *caseReplay) apply(e *CaseEvent) bool {
	open := r.stage == StagePending || r.stage == StageUnderReview
	switch e.Kind {
	case EventDerivationCreated:
		if r.stage != "" {
			return false
		}
		r.stage = StagePending
	case EventDerivationReviewed:
		if r.stage != StagePending {
			return false
		}
		r.stage = StageUnderReview
	case EventAcceptedToPreadm:
		if !open {
			return false
		}
		r.stage = StagePreAdmission
	case EventClosed:
		if !open {
			return false
		}
		r.stage = StageClosed
	case EventDerivationAdvised:
		if !open {
			return false
		}
		r.stage = StageAdvisory
	case EventIVICreated, EventEntryIndexCreated:
		return r.stage == StagePreAdmission
	case EventIVIUpdated, EventEntryIndexUpdated:
		switch r.stage {
		case StagePreAdmission, StageFinalized, StageAdmitted, StageInactive:
			return true
		}
		return false
	case EventPreadmDeleted:
		if r.stage != StagePreAdmission {
			return false
		}
		r.stage = StagePending
	case EventPreadmFinalized:
		if r.stage != StagePreAdmission {
			return false
		}
		r.stage = StageFinalized
	case EventAdmitted:
		if r.stage != StageFinalized {
			return false
		}
		r.stage = StageAdmitted
	case EventSlotAssigned:
		if r.stage != StageAdmitted || r.seated {
			return false
		}
		r.seated = true
	case EventSlotChanged:
		return r.stage == StageAdmitted && r.seated
	case EventSlotReleased:
		if r.stage != StageAdmitted || !r.seated {
			return false
		}
		r.seated = false
	case EventInterventionCreated, EventInterventionUpdated:
		return r.stage == StageAdmitted
	case EventInterventionDeleted:
		return r.stage == StageAdmitted || r.stage == StageInactive
	case EventExitIVI:
		if r.stage != StageAdmitted {
			return false
		}
		r.stage = StageInactive
		r.seated = false
	default:
		return false
	}
	return true
}

// ReplayCase runs the events of one derivation, in seq order, through the case state
// machine. It fails with ForbiddenTransition on the first event the machine would reject.
func ReplayCase(events []CaseEvent) ([]TimelineStep, error) {
	var r caseReplay
	steps := make([]TimelineStep, 0, len(events))
	var last int64
	for _, e := range events {
		if e.Seq <= last && last != 0 {
			return steps, Errorf(KindForbiddenTransition, "event %d is out of order after %d", e.Seq, last)
		}
		last = e.Seq
		prev := r.stage
		if !r.apply(&e) {
			if prev == "" {
				prev = "NONE"
			}
			return steps, Errorf(KindForbiddenTransition, "event %d (%s) is not allowed in stage %s", e.Seq, e.Kind, prev)
		}
		steps = append(steps, TimelineStep{Event: e, Stage: r.stage, Seated: r.seated})
	}
	return steps, nil
}
