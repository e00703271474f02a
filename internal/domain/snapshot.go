package domain

import "time"

type Phase string

const (
	PhaseEntry Phase = "ENTRY"
	PhaseExit  Phase = "EXIT"
)

func (p Phase) Valid() bool {
	return p == PhaseEntry || p == PhaseExit
}

// FrameEntry is one criterion of the catalog as it stood when the snapshot was taken.
type FrameEntry struct {
	CriterionID string `json:"criterion_id"`
	Weight      int    `json:"weight"`
}

// SnapshotItem records one present criterion with its frozen weight.
type SnapshotItem struct {
	CriterionID string `json:"criterion_id"`
	Weight      int    `json:"weight"`
}

// AssessmentSnapshot is a scored, frozen selection of criteria.
type AssessmentSnapshot struct {
	Key              string          `json:"snapshot_key"`
	PreAdmissionID   string          `json:"pre_admission_id"`
	BeneficiaryID    string          `json:"beneficiary_id"`
	ProgramID        string          `json:"program_id"`
	Family           CriterionFamily `json:"family"`
	Phase            Phase           `json:"phase"`
	Items            []SnapshotItem  `json:"items"`
	Frame            []FrameEntry    `json:"frame"`
	TotalScore       int             `json:"total_score"`
	MaxPossibleScore int             `json:"max_possible_score"`
	Notes            string          `json:"notes,omitempty"`
	Version          int             `json:"version"`
	CreatedBy        string          `json:"created_by"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedBy        string          `json:"updated_by,omitempty"`
	UpdatedAt        *time.Time      `json:"updated_at,omitempty"`
}

// CriterionIDs returns the ids of the present criteria in item order.
func (s *AssessmentSnapshot) CriterionIDs() []string {
	out := make([]string, 0, len(s.Items))
	for _, it := range s.Items {
		out = append(out, it.CriterionID)
	}
	return out
}

// Score sums the frame weights of the selected ids. Unknown ids are returned in missing.
func Score(frame []FrameEntry, selected []string) (items []SnapshotItem, total int, missing []string) {
	weights := make(map[string]int, len(frame))
	for _, f := range frame {
		weights[f.CriterionID] = f.Weight
	}
	seen := make(map[string]bool, len(selected))
	for _, id := range selected {
		if seen[id] {
			continue
		}
		seen[id] = true
		w, ok := weights[id]
		if !ok {
			missing = append(missing, id)
			continue
		}
		items = append(items, SnapshotItem{CriterionID: id, Weight: w})
		total += w
	}
	return items, total, missing
}

// MaxScore sums every weight of the frame.
func MaxScore(frame []FrameEntry) int {
	m := 0
	for _, f := range frame {
		m += f.Weight
	}
	return m
}

// SnapshotLockKey serialises rewrites of one snapshot.
func SnapshotLockKey(key string) string {
	return "snapshot:" + key
}

// CriterionDelta classifies a criterion across an entry/exit comparison.
type CriterionDelta struct {
	CriterionID string `json:"criterion_id"`
	InEntry     bool   `json:"in_entry"`
	InExit      bool   `json:"in_exit"`
}

// Comparison pairs the ENTRY IVI snapshot with the latest EXIT one.
type Comparison struct {
	Entry  *AssessmentSnapshot `json:"entry"`
	Exit   *AssessmentSnapshot `json:"exit"`
	Deltas []CriterionDelta    `json:"deltas"`
}
