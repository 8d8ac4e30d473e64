package service

import (
	"context"
	"fmt"
	"time"

	"github.com/eprison/visitor-management/internal/domain"
	"github.com/eprison/visitor-management/internal/pass"
	"github.com/eprison/visitor-management/internal/repo/postgres"
	"github.com/eprison/visitor-management/pkg/events"
	"github.com/eprison/visitor-management/pkg/logger"
)

// VisitService owns the visit ledger and the admission decision workflow:
// request creation with its guards, the facility-scoped review queue, and the
// approve/reject transition that mints the gate pass.
type VisitService interface {
	CreateRequest(ctx context.Context, visitor *domain.User, req domain.VisitRequest) (*domain.Visit, error)
	ListMine(ctx context.Context, visitorID int64) ([]domain.VisitDetail, error)
	GetForVisitor(ctx context.Context, visitID, visitorID int64) (*domain.VisitDetail, error)
	EmergencyEligible(ctx context.Context, visitor *domain.User, prisonerID int64, asOf time.Time) (bool, error)

	ListPending(ctx context.Context, jailID int64) ([]domain.VisitDetail, error)
	GetForFacility(ctx context.Context, visitID, jailID int64) (*domain.VisitDetail, error)
	Decide(ctx context.Context, adminID, jailID, visitID int64, decision domain.Decision) (*domain.VisitDetail, error)
	Pass(ctx context.Context, visitID, jailID int64) ([]byte, error)
}

type visitService struct {
	visits     postgres.VisitRepo
	users      postgres.UserRepo
	facilities postgres.FacilityRepo
	eventBus   events.Publisher
	now        func() time.Time
}

func NewVisitService(
	visits postgres.VisitRepo,
	users postgres.UserRepo,
	facilities postgres.FacilityRepo,
	eventBus events.Publisher,
) VisitService {
	return &visitService{
		visits:     visits,
		users:      users,
		facilities: facilities,
		eventBus:   eventBus,
		now:        time.Now,
	}
}

func (s *visitService) CreateRequest(ctx context.Context, visitor *domain.User, req domain.VisitRequest) (*domain.Visit, error) {
	if req.TimeSlot == "" {
		return nil, domain.Validation("time_slot", "time slot is required")
	}
	visitType := req.VisitType
	if visitType == "" {
		visitType = domain.VisitRegular
	}
	if _, ok := domain.ParseVisitType(string(visitType)); !ok {
		return nil, domain.Validation("visit_type", "must be REGULAR or EMERGENCY")
	}
	visitDate, err := time.Parse("2006-01-02", req.VisitDate)
	if err != nil {
		return nil, domain.Validation("visit_date", "must be YYYY-MM-DD")
	}

	blacklisted, err := s.users.IsBlacklisted(ctx, visitor.ID)
	if err != nil {
		return nil, fmt.Errorf("blacklist check failed: %w", err)
	}
	if blacklisted {
		return nil, domain.ErrBlacklisted
	}

	prisoner, err := s.facilities.GetPrisoner(ctx, req.PrisonerID)
	if err != nil {
		return nil, fmt.Errorf("prisoner lookup failed: %w", err)
	}
	if prisoner == nil {
		return nil, domain.ErrNotFound
	}

	dup, err := s.visits.ExistsDuplicate(ctx, visitor.ID, prisoner.ID, visitDate, req.TimeSlot)
	if err != nil {
		return nil, fmt.Errorf("duplicate check failed: %w", err)
	}
	if dup {
		return nil, domain.ErrDuplicateRequest
	}

	if visitType == domain.VisitEmergency {
		// The cooldown window is measured against the requested visit date,
		// so eligibility does not drift with when the form was submitted.
		eligible, err := s.EmergencyEligible(ctx, visitor, prisoner.ID, visitDate)
		if err != nil {
			return nil, err
		}
		if !eligible {
			return nil, domain.ErrEmergencyNotEligible
		}
	}

	visit, err := s.visits.Create(ctx, visitor.ID, prisoner.ID, visitDate, req.TimeSlot, visitType)
	if err != nil {
		return nil, fmt.Errorf("failed to create visit request: %w", err)
	}

	event := events.VisitRequestedEvent{
		VisitID:    visit.ID,
		VisitorID:  visit.VisitorID,
		PrisonerID: visit.PrisonerID,
		VisitDate:  visit.VisitDate.Format("2006-01-02"),
		TimeSlot:   visit.TimeSlot,
		VisitType:  string(visit.VisitType),
		CreatedAt:  visit.CreatedAt,
	}
	if err := s.eventBus.Publish(ctx, events.VisitRequested, event); err != nil {
		logger.ErrorContext(ctx, "Failed to publish visit requested event", "error", err, "visit_id", visit.ID)
	}

	return visit, nil
}

func (s *visitService) ListMine(ctx context.Context, visitorID int64) ([]domain.VisitDetail, error) {
	return s.visits.ListByVisitor(ctx, visitorID)
}

func (s *visitService) GetForVisitor(ctx context.Context, visitID, visitorID int64) (*domain.VisitDetail, error) {
	d, err := s.visits.GetDetail(ctx, visitID)
	if err != nil {
		return nil, err
	}
	if d == nil || d.VisitorID != visitorID {
		return nil, domain.ErrNotFound
	}
	return d, nil
}

// EmergencyEligible implements the strict binding rule: the visitor must hold
// a confirmed relationship to this exact prisoner, and the most recent
// emergency visit (if any) must be more than the cooldown window before asOf.
func (s *visitService) EmergencyEligible(ctx context.Context, visitor *domain.User, prisonerID int64, asOf time.Time) (bool, error) {
	if !visitor.HasRelationshipTo(prisonerID) {
		return false, nil
	}

	last, err := s.visits.LastEmergencyDate(ctx, visitor.ID)
	if err != nil {
		return false, fmt.Errorf("emergency history lookup failed: %w", err)
	}
	if last == nil {
		return true, nil
	}
	return asOf.After(last.AddDate(0, 0, domain.EmergencyCooldownDays)), nil
}

func (s *visitService) ListPending(ctx context.Context, jailID int64) ([]domain.VisitDetail, error) {
	return s.visits.ListPendingForJail(ctx, jailID)
}

func (s *visitService) GetForFacility(ctx context.Context, visitID, jailID int64) (*domain.VisitDetail, error) {
	d, err := s.visits.GetDetailForJail(ctx, visitID, jailID)
	if err != nil {
		return nil, err
	}
	if d == nil {
		return nil, domain.ErrNotFound
	}
	return d, nil
}

// Decide transitions a PENDING visit to APPROVED or REJECTED. The query is
// scoped to the admin's facility and to PENDING status, so a cross-facility
// attempt and a lost decision race both surface as ErrNotFound.
func (s *visitService) Decide(ctx context.Context, adminID, jailID, visitID int64, decision domain.Decision) (*domain.VisitDetail, error) {
	d, err := s.visits.GetPendingForJail(ctx, visitID, jailID)
	if err != nil {
		return nil, err
	}
	if d == nil {
		return nil, domain.ErrNotFound
	}

	var subject string
	switch decision {
	case domain.DecisionApprove:
		payload := pass.Payload{
			VisitID:        d.ID,
			Visitor:        d.VisitorUser,
			PrisonerNumber: d.PrisonerNumber,
			VisitDate:      d.VisitDate.Format("2006-01-02"),
			Facility:       d.JailName,
		}
		png, err := payload.PNG()
		if err != nil {
			return nil, fmt.Errorf("failed to mint pass: %w", err)
		}

		ok, err := s.visits.Approve(ctx, visitID, jailID, adminID, png)
		if err != nil {
			return nil, fmt.Errorf("failed to approve visit: %w", err)
		}
		if !ok {
			return nil, domain.ErrNotFound
		}
		d.Status = domain.VisitApproved
		d.HasPass = true
		subject = events.VisitApproved

	case domain.DecisionReject:
		ok, err := s.visits.Reject(ctx, visitID, jailID, adminID)
		if err != nil {
			return nil, fmt.Errorf("failed to reject visit: %w", err)
		}
		if !ok {
			return nil, domain.ErrNotFound
		}
		d.Status = domain.VisitRejected
		subject = events.VisitRejected

	default:
		return nil, domain.Validation("decision", "must be approve or reject")
	}

	event := events.VisitDecidedEvent{
		VisitID:   d.ID,
		VisitorID: d.VisitorID,
		Decision:  string(decision),
		DecidedBy: adminID,
		DecidedAt: s.now(),
	}
	if err := s.eventBus.Publish(ctx, subject, event); err != nil {
		logger.ErrorContext(ctx, "Failed to publish visit decision event", "error", err, "visit_id", d.ID)
	}

	return d, nil
}

func (s *visitService) Pass(ctx context.Context, visitID, jailID int64) ([]byte, error) {
	png, err := s.visits.PassPNG(ctx, visitID, jailID)
	if err != nil {
		return nil, err
	}
	if png == nil {
		return nil, domain.ErrNotFound
	}
	return png, nil
}
