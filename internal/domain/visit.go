package domain

import "time"

type VisitStatus string

const (
	VisitPending   VisitStatus = "PENDING"
	VisitApproved  VisitStatus = "APPROVED"
	VisitRejected  VisitStatus = "REJECTED"
	VisitCompleted VisitStatus = "COMPLETED"
	VisitCancelled VisitStatus = "CANCELLED"
)

func ParseVisitStatus(s string) (VisitStatus, bool) {
	switch VisitStatus(s) {
	case VisitPending, VisitApproved, VisitRejected, VisitCompleted, VisitCancelled:
		return VisitStatus(s), true
	default:
		return "", false
	}
}

type VisitType string

const (
	VisitRegular   VisitType = "REGULAR"
	VisitEmergency VisitType = "EMERGENCY"
)

func ParseVisitType(s string) (VisitType, bool) {
	switch VisitType(s) {
	case VisitRegular, VisitEmergency:
		return VisitType(s), true
	default:
		return "", false
	}
}

type Decision string

const (
	DecisionApprove Decision = "approve"
	DecisionReject  Decision = "reject"
)

// EmergencyCooldownDays is the rolling window between two emergency visits by
// the same visitor, measured from the most recent emergency visit's requested
// date.
const EmergencyCooldownDays = 20

// Visit is one visitor's request to see one prisoner on one date and slot.
// VisitDate carries only the calendar day; check-in/out are wall-clock times.
type Visit struct {
	ID         int64       `json:"id"`
	VisitorID  int64       `json:"visitor_id"`
	PrisonerID int64       `json:"prisoner_id"`
	VisitDate  time.Time   `json:"visit_date"`
	TimeSlot   string      `json:"time_slot"`
	VisitType  VisitType   `json:"visit_type"`
	Status     VisitStatus `json:"status"`

	// PassPNG is present iff the visit has ever been approved. It is kept
	// after completion.
	PassPNG []byte `json:"-"`

	CheckInTime  *time.Time `json:"check_in_time,omitempty"`
	CheckOutTime *time.Time `json:"check_out_time,omitempty"`

	DecidedBy *int64     `json:"decided_by,omitempty"`
	DecidedAt *time.Time `json:"decided_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CheckedIn reports whether the visitor is currently inside.
func (v *Visit) CheckedIn() bool {
	return v.CheckInTime != nil && v.CheckOutTime == nil
}

// VisitDetail is a visit joined with the names staff and visitors see in
// lists: who is visiting whom, where.
type VisitDetail struct {
	Visit

	VisitorName    string `json:"visitor_name"`
	VisitorUser    string `json:"visitor_username"`
	PrisonerName   string `json:"prisoner_name"`
	PrisonerNumber string `json:"prisoner_number"`
	JailID         int64  `json:"jail_id"`
	JailName       string `json:"jail_name"`

	HasPass bool `json:"has_pass"`
}

type VisitRequest struct {
	PrisonerID int64     `json:"prisoner_id"`
	VisitDate  string    `json:"visit_date"` // YYYY-MM-DD
	TimeSlot   string    `json:"time_slot"`
	VisitType  VisitType `json:"visit_type"`
}
