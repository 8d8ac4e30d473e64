package domain

import "time"

type Role string

const (
	RoleVisitor  Role = "visitor"
	RoleFamily   Role = "family"
	RoleSecurity Role = "security"
	RoleAdmin    Role = "admin"
)

func ParseRole(s string) (Role, bool) {
	switch Role(s) {
	case RoleVisitor, RoleFamily, RoleSecurity, RoleAdmin:
		return Role(s), true
	default:
		return "", false
	}
}

// IsStaff reports whether the role belongs to facility personnel.
func (r Role) IsStaff() bool {
	return r == RoleSecurity || r == RoleAdmin
}

// IsVisitor reports whether the role may submit visit requests.
func (r Role) IsVisitor() bool {
	return r == RoleVisitor || r == RoleFamily
}

type User struct {
	ID           int64  `json:"id"`
	Username     string `json:"username"`
	PasswordHash string `json:"-"`
	FullName     string `json:"full_name"`
	Email        string `json:"email"`
	Role         Role   `json:"role"`

	// JailID is set for staff; nil for visitors and family.
	JailID *int64 `json:"jail_id,omitempty"`

	// Relationship binding used by emergency-visit eligibility. The
	// IsFamilyMember flag is informational; eligibility checks the explicit
	// binding to one prisoner.
	IsFamilyMember    bool   `json:"is_family_member"`
	RelatedPrisonerID *int64 `json:"related_prisoner_id,omitempty"`
	Relationship      string `json:"relationship,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// HasRelationshipTo reports a confirmed family binding to the given prisoner.
func (u *User) HasRelationshipTo(prisonerID int64) bool {
	return u.RelatedPrisonerID != nil && *u.RelatedPrisonerID == prisonerID && u.Relationship != ""
}

// BlacklistEntry suspends a principal from creating visit requests. Its mere
// existence blocks; the reason is shown to staff only.
type BlacklistEntry struct {
	UserID    int64     `json:"user_id"`
	Reason    string    `json:"reason"`
	CreatedAt time.Time `json:"created_at"`
}

type Jail struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Location string `json:"location"`
}

type Prisoner struct {
	ID             int64     `json:"id"`
	JailID         int64     `json:"jail_id"`
	FirstName      string    `json:"first_name"`
	LastName       string    `json:"last_name"`
	PrisonerNumber string    `json:"prisoner_number"`
	DateOfBirth    time.Time `json:"date_of_birth"`
}
