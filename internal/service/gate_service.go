package service

import (
	"context"
	"fmt"
	"time"

	"github.com/eprison/visitor-management/internal/domain"
	"github.com/eprison/visitor-management/internal/repo/postgres"
	"github.com/eprison/visitor-management/pkg/events"
	"github.com/eprison/visitor-management/pkg/logger"
)

// Verification layer names, in chain order.
const (
	LayerExistence = "existence"
	LayerFacility  = "facility"
	LayerStatus    = "status"
	LayerDate      = "date"
	LayerOccupancy = "occupancy"
)

type LayerResult struct {
	Name    string `json:"name"`
	Passed  bool   `json:"passed"`
	Message string `json:"message"`
}

// VerificationReport is the layer-by-layer answer security staff see when a
// pass is presented. Every layer is evaluated even after the first failure so
// the report is useful for diagnostics; FailedLayer names the first failure.
type VerificationReport struct {
	VisitID     int64               `json:"visit_id"`
	OK          bool                `json:"ok"`
	FailedLayer string              `json:"failed_layer,omitempty"`
	Layers      []LayerResult       `json:"layers"`
	Visit       *domain.VisitDetail `json:"visit,omitempty"`
}

// GateService is the security-facing admission authority: pass verification,
// occupancy transitions, and the live who-is-inside view.
type GateService interface {
	Verify(ctx context.Context, operatorJailID, visitID int64) (*VerificationReport, error)
	CheckIn(ctx context.Context, operatorID, operatorJailID, visitID int64) (*domain.VisitDetail, error)
	CheckOut(ctx context.Context, operatorID, operatorJailID, visitID int64) (*domain.VisitDetail, error)
	CurrentOccupancy(ctx context.Context, jailID int64) ([]domain.VisitDetail, error)
	TodaysApproved(ctx context.Context, jailID int64) ([]domain.VisitDetail, error)
}

type gateService struct {
	visits   postgres.VisitRepo
	eventBus events.Publisher
	now      func() time.Time
}

func NewGateService(visits postgres.VisitRepo, eventBus events.Publisher) GateService {
	return &gateService{
		visits:   visits,
		eventBus: eventBus,
		now:      time.Now,
	}
}

// today truncates to the facility-local calendar day.
func (s *gateService) today() time.Time {
	y, m, d := s.now().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

type layerCheck struct {
	name  string
	check func(v *domain.VisitDetail) (bool, string)
}

func (s *gateService) layerChain(operatorJailID int64) []layerCheck {
	today := s.today()
	return []layerCheck{
		{LayerFacility, func(v *domain.VisitDetail) (bool, string) {
			if v.JailID != operatorJailID {
				return false, "visit belongs to a different facility"
			}
			return true, "facility matches"
		}},
		{LayerStatus, func(v *domain.VisitDetail) (bool, string) {
			if v.Status != domain.VisitApproved {
				return false, fmt.Sprintf("visit status is %s, not APPROVED", v.Status)
			}
			return true, "visit is approved"
		}},
		{LayerDate, func(v *domain.VisitDetail) (bool, string) {
			if !sameDay(v.VisitDate, today) {
				return false, fmt.Sprintf("visit is scheduled for %s, not today", v.VisitDate.Format("2006-01-02"))
			}
			return true, "visit is scheduled for today"
		}},
		{LayerOccupancy, func(v *domain.VisitDetail) (bool, string) {
			if v.CheckInTime != nil {
				return false, fmt.Sprintf("visitor already checked in at %s", v.CheckInTime.Format("15:04"))
			}
			return true, "visitor not yet checked in"
		}},
	}
}

// Verify runs the full predicate chain and never mutates state. Check-in is a
// separate explicit operation.
func (s *gateService) Verify(ctx context.Context, operatorJailID, visitID int64) (*VerificationReport, error) {
	report := &VerificationReport{VisitID: visitID}

	v, err := s.visits.GetDetail(ctx, visitID)
	if err != nil {
		return nil, err
	}
	if v == nil {
		report.Layers = append(report.Layers, LayerResult{
			Name: LayerExistence, Passed: false, Message: "no visit with this ID exists",
		})
		report.FailedLayer = LayerExistence
		return report, nil
	}
	report.Layers = append(report.Layers, LayerResult{
		Name: LayerExistence, Passed: true, Message: "visit found",
	})

	for _, layer := range s.layerChain(operatorJailID) {
		passed, msg := layer.check(v)
		report.Layers = append(report.Layers, LayerResult{Name: layer.name, Passed: passed, Message: msg})
		if !passed && report.FailedLayer == "" {
			report.FailedLayer = layer.name
		}
	}

	if report.FailedLayer == "" {
		report.OK = true
		report.Visit = v
	}
	return report, nil
}

// CheckIn re-runs the verification layers, then performs the atomic
// conditional set. A racing operator loses on the conditional update and gets
// the same error as if the visitor had already been admitted.
func (s *gateService) CheckIn(ctx context.Context, operatorID, operatorJailID, visitID int64) (*domain.VisitDetail, error) {
	v, err := s.visits.GetDetail(ctx, visitID)
	if err != nil {
		return nil, err
	}
	if err := s.admissionError(v, operatorJailID); err != nil {
		return nil, err
	}

	ok, err := s.visits.CheckIn(ctx, visitID, operatorJailID, s.today())
	if err != nil {
		return nil, fmt.Errorf("check-in failed: %w", err)
	}
	if !ok {
		// Lost a race between the read and the conditional update.
		return nil, domain.ErrAlreadyCheckedIn
	}

	now := s.now()
	v.CheckInTime = &now

	event := events.VisitCheckedInEvent{
		VisitID:     v.ID,
		VisitorID:   v.VisitorID,
		JailID:      v.JailID,
		OperatorID:  operatorID,
		CheckedInAt: now,
	}
	if err := s.eventBus.Publish(ctx, events.VisitCheckedIn, event); err != nil {
		logger.ErrorContext(ctx, "Failed to publish check-in event", "error", err, "visit_id", v.ID)
	}

	return v, nil
}

// admissionError maps the first failing verification layer to its error kind.
// Nonexistent and cross-facility visits are indistinguishable on purpose.
func (s *gateService) admissionError(v *domain.VisitDetail, operatorJailID int64) error {
	switch {
	case v == nil, v.JailID != operatorJailID:
		return domain.ErrNotFound
	case v.Status != domain.VisitApproved:
		return domain.ErrNotApproved
	case !sameDay(v.VisitDate, s.today()):
		return domain.ErrWrongDate
	case v.CheckInTime != nil:
		return domain.ErrAlreadyCheckedIn
	}
	return nil
}

func (s *gateService) CheckOut(ctx context.Context, operatorID, operatorJailID, visitID int64) (*domain.VisitDetail, error) {
	v, err := s.visits.GetDetail(ctx, visitID)
	if err != nil {
		return nil, err
	}
	switch {
	case v == nil, v.JailID != operatorJailID:
		return nil, domain.ErrNotFound
	case v.CheckInTime == nil:
		return nil, domain.ErrNotCheckedIn
	case v.CheckOutTime != nil:
		return nil, domain.ErrAlreadyCheckedOut
	}

	ok, err := s.visits.CheckOut(ctx, visitID, operatorJailID)
	if err != nil {
		return nil, fmt.Errorf("check-out failed: %w", err)
	}
	if !ok {
		return nil, domain.ErrAlreadyCheckedOut
	}

	now := s.now()
	v.CheckOutTime = &now
	v.Status = domain.VisitCompleted

	event := events.VisitCheckedOutEvent{
		VisitID:      v.ID,
		VisitorID:    v.VisitorID,
		JailID:       v.JailID,
		OperatorID:   operatorID,
		CheckedOutAt: now,
	}
	if err := s.eventBus.Publish(ctx, events.VisitCheckedOut, event); err != nil {
		logger.ErrorContext(ctx, "Failed to publish check-out event", "error", err, "visit_id", v.ID)
	}

	return v, nil
}

func (s *gateService) CurrentOccupancy(ctx context.Context, jailID int64) ([]domain.VisitDetail, error) {
	return s.visits.CurrentlyInside(ctx, jailID)
}

func (s *gateService) TodaysApproved(ctx context.Context, jailID int64) ([]domain.VisitDetail, error) {
	return s.visits.TodaysApproved(ctx, jailID, s.today())
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
