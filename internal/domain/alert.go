package domain

import "time"

// EmergencyAlert is a facility-wide broadcast row. Alerts are append-only:
// resolving flips IsActive, nothing is ever deleted. Multiple alerts may be
// active at once; the poll path picks the most recently issued one.
type EmergencyAlert struct {
	ID       int64     `json:"id"`
	Message  string    `json:"message"`
	IssuedBy *int64    `json:"issued_by,omitempty"`
	IssuedAt time.Time `json:"issued_at"`
	IsActive bool      `json:"is_active"`
}

// AlertFilter narrows the alert history listing.
type AlertFilter struct {
	// Active filters by state when non-nil.
	Active *bool
	// DateFrom/DateTo bound IssuedAt inclusively when non-zero.
	DateFrom time.Time
	DateTo   time.Time
	// Search matches the message text, case-insensitive.
	Search string

	Limit  int
	Offset int
}

// AlertStats is the summary block on the alert log view.
type AlertStats struct {
	Total    int64 `json:"total_alerts"`
	Active   int64 `json:"active_alerts"`
	Resolved int64 `json:"resolved_alerts"`
	Today    int64 `json:"alerts_today"`
}
