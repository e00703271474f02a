package domain

import "time"

type ActionTag string

const (
	ActionReferral                ActionTag = "referral"
	ActionHomeVisit               ActionTag = "home_visit"
	ActionInteragencyCoordination ActionTag = "interagency_coordination"
	ActionInterview               ActionTag = "interview"
	ActionWorkshop                ActionTag = "workshop"
	ActionMaterialAssistance      ActionTag = "material_assistance"
	ActionOther                   ActionTag = "other"
)

func (a ActionTag) Valid() bool {
	switch a {
	case ActionReferral, ActionHomeVisit, ActionInteragencyCoordination, ActionInterview,
		ActionWorkshop, ActionMaterialAssistance, ActionOther:
		return true
	}
	return false
}

type Impact string

const (
	ImpactWorked   Impact = "WORKED"
	ImpactReverted Impact = "REVERTED"
)

func (i Impact) Valid() bool {
	return i == ImpactWorked || i == ImpactReverted
}

// Intervention is an operator action recorded against an active admission.
type Intervention struct {
	ID           string     `json:"id"`
	AdmissionID  string     `json:"admission_id"`
	CriterionID  string     `json:"criterion_id"`
	ActionTag    ActionTag  `json:"action_tag"`
	Responsibles []string   `json:"responsibles"`
	Impact       Impact     `json:"impact"`
	Notes        string     `json:"notes,omitempty"`
	CreatedBy    string     `json:"created_by"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedBy    string     `json:"updated_by,omitempty"`
	UpdatedAt    *time.Time `json:"updated_at,omitempty"`
}
